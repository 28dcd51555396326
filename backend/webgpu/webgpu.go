// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package webgpu computes element-wise inverse square roots on a GPU.
//
// WebGPU is a cross-platform graphics and compute API that works on:
//   - Windows (via D3D12 or Vulkan)
//   - macOS (via Metal)
//   - Linux (via Vulkan)
//
// Example:
//
//	import "github.com/born-ml/invsqrt/backend/webgpu"
//
//	func main() {
//	    out, err := webgpu.InverseSqrt([]float32{4, 25, 100})
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println(out) // [0.5 0.2 0.1]
//	}
//
// Zero inputs produce NaN. Negative inputs follow IEEE sqrt and also give NaN.
package webgpu

import (
	"fmt"

	internalwebgpu "github.com/born-ml/invsqrt/internal/backend/webgpu"
	"github.com/born-ml/invsqrt/internal/config"
	"github.com/born-ml/invsqrt/internal/kernel"
	"github.com/born-ml/invsqrt/internal/parallel"
)

// Capabilities are the optional device features requested at acquisition.
type Capabilities = internalwebgpu.Capabilities

// AdapterReport describes one adapter visible to the platform.
type AdapterReport = internalwebgpu.AdapterReport

// Errors returned by Session and InverseSqrt. Use errors.Is to match them.
var (
	// ErrNoSuitableDevice means no adapter/device with the requested
	// capabilities could be acquired.
	ErrNoSuitableDevice = internalwebgpu.ErrNoSuitableDevice

	// ErrPipelineBuild means the kernel module or its pipeline was rejected.
	ErrPipelineBuild = internalwebgpu.ErrPipelineBuild

	// ErrReadbackFailed means the result buffer could not be mapped.
	ErrReadbackFailed = internalwebgpu.ErrReadbackFailed

	// ErrClosed means the Session was used after Close.
	ErrClosed = internalwebgpu.ErrReleased
)

// Options configure a Session.
type Options struct {
	// PowerPreference is "default", "low-power" or "high-performance".
	PowerPreference string

	// Capabilities requested from the device.
	Capabilities Capabilities

	// KernelPath is a prebuilt SPIR-V kernel. Empty compiles the bundled
	// WGSL source.
	KernelPath string

	// EntryPoint overrides the kernel entry point.
	EntryPoint string

	// BestEffort opens the device without requested capabilities the
	// adapter does not offer. Session.Capabilities reports what was granted.
	BestEffort bool
}

// DefaultOptions returns the options InverseSqrt uses.
func DefaultOptions() Options {
	return Options{
		PowerPreference: "default",
		Capabilities:    internalwebgpu.DefaultCapabilities(),
		EntryPoint:      kernel.EntryPoint,
	}
}

// OptionsFromConfig maps loaded configuration onto session options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		PowerPreference: cfg.Device.PowerPreference,
		Capabilities: Capabilities{
			TimestampQuery:   cfg.Device.TimestampQuery,
			SPIRVPassthrough: cfg.Device.SPIRVPassthrough,
		},
		KernelPath: cfg.Kernel.Path,
		EntryPoint: cfg.Kernel.EntryPoint,
		BestEffort: cfg.Device.BestEffort,
	}
}

// Session holds a device, the loaded kernel and its pipeline. Each
// InverseSqrt call on it is one upload, dispatch and readback cycle.
// A Session is safe for concurrent use; submissions are serialized.
type Session struct {
	ctx      *internalwebgpu.Context
	module   *internalwebgpu.KernelModule
	contract internalwebgpu.KernelContract
}

// Open acquires a device and prepares the kernel pipeline.
func Open(opts Options) (*Session, error) {
	pref, err := internalwebgpu.ParsePowerPreference(opts.PowerPreference)
	if err != nil {
		return nil, err
	}

	binary, err := kernel.Binary(opts.KernelPath)
	if err != nil {
		return nil, err
	}

	acquire := []internalwebgpu.Option{internalwebgpu.WithPowerPreference(pref)}
	if opts.BestEffort {
		acquire = append(acquire, internalwebgpu.WithBestEffort())
	}
	ctx, err := internalwebgpu.Acquire(opts.Capabilities, acquire...)
	if err != nil {
		return nil, err
	}

	module, err := ctx.LoadKernel("inverse_sqrt", binary)
	if err != nil {
		ctx.Release()
		return nil, err
	}

	contract := internalwebgpu.InverseSqrtContract()
	if opts.EntryPoint != "" {
		contract.EntryPoint = opts.EntryPoint
	}

	// Build eagerly so a bad entry point fails here, before any dispatch.
	if _, err := ctx.Pipeline(module, contract); err != nil {
		module.Release()
		ctx.Release()
		return nil, err
	}

	return &Session{ctx: ctx, module: module, contract: contract}, nil
}

// InverseSqrt returns 1/sqrt(x) for every element of values, in order.
// values itself is not modified. On error values is returned unchanged.
func (s *Session) InverseSqrt(values []float32) ([]float32, error) {
	if s.ctx == nil {
		return values, ErrClosed
	}
	out, err := s.ctx.Execute(s.module, s.contract, values)
	if err != nil {
		return values, err
	}
	return out, nil
}

// Device returns a description of the adapter in use, or "" once closed.
func (s *Session) Device() string {
	if s.ctx == nil {
		return ""
	}
	return s.ctx.Name()
}

// Capabilities returns the features granted to the session's device. A
// closed Session has none.
func (s *Session) Capabilities() Capabilities {
	if s.ctx == nil {
		return Capabilities{}
	}
	return s.ctx.Capabilities()
}

// Close releases the kernel and the device.
func (s *Session) Close() {
	if s.module != nil {
		s.module.Release()
		s.module = nil
	}
	if s.ctx != nil {
		s.ctx.Release()
		s.ctx = nil
	}
}

// InverseSqrt opens a session with DefaultOptions, transforms values and
// closes it. Use a Session to amortize device setup across calls.
func InverseSqrt(values []float32) ([]float32, error) {
	if len(values) == 0 {
		return []float32{}, nil
	}

	s, err := Open(DefaultOptions())
	if err != nil {
		return values, fmt.Errorf("inverse sqrt: %w", err)
	}
	defer s.Close()

	return s.InverseSqrt(values)
}

// IsAvailable checks if WebGPU is available on the current system.
//
// This is useful for falling back to InverseSqrtCPU when no GPU is present.
func IsAvailable() bool {
	return internalwebgpu.IsAvailable()
}

// InverseSqrtCPU computes the same transform on the host.
func InverseSqrtCPU(values []float32) []float32 {
	return kernel.Apply(values, parallel.DefaultConfig())
}

// ListAdapters reports every adapter and whether it offers the default
// capabilities.
func ListAdapters() ([]AdapterReport, error) {
	return internalwebgpu.ListAdapters()
}
