package webgpu

import (
	"errors"
	"fmt"
)

// Common errors. Typed errors below unwrap to one of these.
var (
	ErrNoSuitableDevice = errors.New("webgpu: no suitable device")
	ErrPipelineBuild    = errors.New("webgpu: pipeline build failed")
	ErrReadbackFailed   = errors.New("webgpu: readback failed")
	ErrEmptyBuffer      = errors.New("webgpu: buffer size must be non-zero")
	ErrMisalignedBuffer = errors.New("webgpu: buffer length is not a multiple of 4")
	ErrTicketState      = errors.New("webgpu: map ticket used out of order")
	ErrAlreadySubmitted = errors.New("webgpu: recording already submitted")
	ErrReleased         = errors.New("webgpu: context released")
)

// DeviceError reports why device acquisition failed.
type DeviceError struct {
	Stage   string   // "instance", "adapter", "features" or "device"
	Missing []string // Requested features the adapter lacks
	Err     error    // Underlying driver error, if any
}

// Error implements the error interface.
func (e *DeviceError) Error() string {
	switch {
	case len(e.Missing) > 0:
		return fmt.Sprintf("%v: %s: missing features %v", ErrNoSuitableDevice, e.Stage, e.Missing)
	case e.Err != nil:
		return fmt.Sprintf("%v: %s: %v", ErrNoSuitableDevice, e.Stage, e.Err)
	default:
		return fmt.Sprintf("%v: %s", ErrNoSuitableDevice, e.Stage)
	}
}

// Unwrap allows errors.Is against ErrNoSuitableDevice and the driver error.
func (e *DeviceError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrNoSuitableDevice}
	}
	return []error{ErrNoSuitableDevice, e.Err}
}

// PipelineError reports a kernel/layout mismatch or a module the driver rejected.
type PipelineError struct {
	Stage      string // "module", "bind group layout", "pipeline layout" or "pipeline"
	EntryPoint string
	Err        error
}

// Error implements the error interface.
func (e *PipelineError) Error() string {
	if e.EntryPoint != "" {
		return fmt.Sprintf("%v: %s (entry point %q): %v", ErrPipelineBuild, e.Stage, e.EntryPoint, e.Err)
	}
	return fmt.Sprintf("%v: %s: %v", ErrPipelineBuild, e.Stage, e.Err)
}

// Unwrap allows errors.Is against ErrPipelineBuild and the driver error.
func (e *PipelineError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrPipelineBuild}
	}
	return []error{ErrPipelineBuild, e.Err}
}

// ReadbackError reports a failed map of the staging buffer.
type ReadbackError struct {
	Size   uint64 // Bytes requested
	Status string // Map status reported by the device
	Err    error  // Error returned when requesting the map, if any
}

// Error implements the error interface.
func (e *ReadbackError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%v: map %d bytes: %v", ErrReadbackFailed, e.Size, e.Err)
	}
	return fmt.Sprintf("%v: map %d bytes: status %s", ErrReadbackFailed, e.Size, e.Status)
}

// Unwrap allows errors.Is against ErrReadbackFailed.
func (e *ReadbackError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrReadbackFailed}
	}
	return []error{ErrReadbackFailed, e.Err}
}
