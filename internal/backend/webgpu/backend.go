// Package webgpu runs the inverse square root kernel on a GPU through WebGPU.
// Uses cogentcore/webgpu (wgpu-native) bindings.
//
// The flow for one call is: Acquire a Context, LoadKernel, BuildPipeline,
// CreateStorage/CreateStaging, Bind, then Run. Run records bind, dispatch and
// copy into one command buffer, submits it once, and blocks until the staging
// buffer is mapped and decoded.
package webgpu

import (
	"fmt"
	"strings"
	"sync"

	"github.com/born-ml/invsqrt/internal/logging"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/sirupsen/logrus"
)

// Context owns the device and the queue every other object is created from.
type Context struct {
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue

	adapterInfo *wgpu.AdapterInfo
	caps        Capabilities

	// Pipelines built through Pipeline, keyed by entry point.
	pipelines map[string]*ComputePipeline
	mu        sync.RWMutex

	// The queue is the only resource shared between concurrent calls.
	submitMu sync.Mutex

	memoryStats struct {
		totalAllocatedBytes uint64
		peakMemoryBytes     uint64
		activeBuffers       int64
		mu                  sync.RWMutex
	}

	released bool
}

type acquireOptions struct {
	powerPreference wgpu.PowerPreference
	label           string
	bestEffort      bool
}

// Option customizes Acquire.
type Option func(*acquireOptions)

// WithPowerPreference selects the adapter power class. The default lets the
// platform choose.
func WithPowerPreference(p wgpu.PowerPreference) Option {
	return func(o *acquireOptions) {
		o.powerPreference = p
	}
}

// WithBestEffort drops requested features the adapter lacks instead of
// failing. Capabilities on the returned context reports what was granted.
func WithBestEffort() Option {
	return func(o *acquireOptions) {
		o.bestEffort = true
	}
}

// WithLabel sets the debug label of the device.
func WithLabel(label string) Option {
	return func(o *acquireOptions) {
		o.label = label
	}
}

// ParsePowerPreference maps a config value to a wgpu power preference.
func ParsePowerPreference(s string) (wgpu.PowerPreference, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "default":
		return wgpu.PowerPreferenceUndefined, nil
	case "low-power":
		return wgpu.PowerPreferenceLowPower, nil
	case "high-performance":
		return wgpu.PowerPreferenceHighPerformance, nil
	default:
		return wgpu.PowerPreferenceUndefined, fmt.Errorf("webgpu: unknown power preference %q", s)
	}
}

// Acquire selects an adapter and requests a device with the features in caps.
// Every failure is a *DeviceError wrapping ErrNoSuitableDevice; device absence
// is an environment precondition and is never retried. A requested feature
// the adapter lacks fails the call unless WithBestEffort is given.
func Acquire(caps Capabilities, opts ...Option) (ctx *Context, err error) {
	o := acquireOptions{
		powerPreference: wgpu.PowerPreferenceUndefined,
		label:           "invsqrt",
	}
	for _, opt := range opts {
		opt(&o)
	}

	// Recover from panic if wgpu_native library is not found.
	defer func() {
		if r := recover(); r != nil {
			ctx = nil
			err = &DeviceError{Stage: "instance", Err: fmt.Errorf("native library not available: %v", r)}
		}
	}()

	instance := wgpu.CreateInstance(nil)
	if instance == nil {
		return nil, &DeviceError{Stage: "instance"}
	}

	adapter, adapterErr := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: o.powerPreference,
	})
	if adapterErr != nil || adapter == nil {
		instance.Release()
		return nil, &DeviceError{Stage: "adapter", Err: adapterErr}
	}

	available := adapter.EnumerateFeatures()
	if missing := caps.Missing(available); len(missing) > 0 {
		if !o.bestEffort {
			adapter.Release()
			instance.Release()
			return nil, &DeviceError{Stage: "features", Missing: missing}
		}
		logging.WithFields(logrus.Fields{"missing": missing}).Warn("webgpu: continuing without unavailable features")
		caps = caps.Intersect(available)
	}

	device, deviceErr := adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label:            o.label,
		RequiredFeatures: caps.Features(),
	})
	if deviceErr != nil {
		adapter.Release()
		instance.Release()
		return nil, &DeviceError{Stage: "device", Err: deviceErr}
	}

	queue := device.GetQueue()
	if queue == nil {
		device.Release()
		adapter.Release()
		instance.Release()
		return nil, &DeviceError{Stage: "device", Err: fmt.Errorf("no queue")}
	}

	info := adapter.GetInfo()
	logging.WithFields(logrus.Fields{
		"adapter": info.Name,
		"vendor":  info.VendorName,
		"backend": info.BackendType,
		"type":    info.AdapterType,
	}).Info("webgpu: device acquired")

	return &Context{
		instance:    instance,
		adapter:     adapter,
		device:      device,
		queue:       queue,
		adapterInfo: &info,
		caps:        capabilitiesFrom(caps.Features()),
		pipelines:   make(map[string]*ComputePipeline),
	}, nil
}

// Release releases the pipeline cache and all WebGPU handles.
// The context must not be used afterwards.
func (c *Context) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.released {
		return
	}
	c.released = true

	for _, p := range c.pipelines {
		p.Release()
	}
	c.pipelines = nil

	if c.queue != nil {
		c.queue.Release()
		c.queue = nil
	}
	if c.device != nil {
		c.device.Release()
		c.device = nil
	}
	if c.adapter != nil {
		c.adapter.Release()
		c.adapter = nil
	}
	if c.instance != nil {
		c.instance.Release()
		c.instance = nil
	}
}

// Name returns a human-readable adapter description.
func (c *Context) Name() string {
	if c.adapterInfo != nil {
		return fmt.Sprintf("WebGPU (%s %s)", c.adapterInfo.Name, c.adapterInfo.VendorName)
	}
	return "WebGPU"
}

// AdapterInfo returns information about the GPU adapter.
func (c *Context) AdapterInfo() *wgpu.AdapterInfo {
	return c.adapterInfo
}

// Capabilities returns the features granted to this context. Contexts
// acquired with the same request report equal capabilities.
func (c *Context) Capabilities() Capabilities {
	return c.caps
}

func (c *Context) checkLive() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.released {
		return ErrReleased
	}
	return nil
}

// IsAvailable checks if WebGPU is available on this system.
func IsAvailable() (available bool) {
	// Recover from panic if wgpu_native library is not found.
	defer func() {
		if r := recover(); r != nil {
			available = false
		}
	}()

	instance := wgpu.CreateInstance(nil)
	if instance == nil {
		return false
	}
	defer instance.Release()

	adapter, err := instance.RequestAdapter(nil)
	if err != nil || adapter == nil {
		return false
	}
	adapter.Release()

	return true
}

// AdapterReport summarizes one adapter and whether it can run the kernel.
type AdapterReport struct {
	Name        string
	Vendor      string
	Driver      string
	Backend     string
	AdapterType string
	VendorID    uint32
	DeviceID    uint32
	Missing     []string // Default capabilities this adapter lacks
}

// Suitable reports whether Acquire with DefaultCapabilities would accept it.
func (r AdapterReport) Suitable() bool {
	return len(r.Missing) == 0
}

// ListAdapters returns a report for every adapter the platform exposes.
func ListAdapters() (reports []AdapterReport, err error) {
	// Recover from panic if wgpu_native library is not found.
	defer func() {
		if r := recover(); r != nil {
			reports = nil
			err = &DeviceError{Stage: "instance", Err: fmt.Errorf("native library not available: %v", r)}
		}
	}()

	instance := wgpu.CreateInstance(nil)
	if instance == nil {
		return nil, &DeviceError{Stage: "instance"}
	}
	defer instance.Release()

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		return nil, &DeviceError{Stage: "adapter", Err: fmt.Errorf("no adapters available")}
	}

	caps := DefaultCapabilities()
	for _, a := range adapters {
		info := a.GetInfo()
		reports = append(reports, AdapterReport{
			Name:        strings.TrimSpace(info.Name),
			Vendor:      strings.TrimSpace(info.VendorName),
			Driver:      strings.TrimSpace(info.DriverDescription),
			Backend:     fmt.Sprint(info.BackendType),
			AdapterType: fmt.Sprint(info.AdapterType),
			VendorID:    info.VendorId,
			DeviceID:    info.DeviceId,
			Missing:     caps.Missing(a.EnumerateFeatures()),
		})
		a.Release()
	}
	return reports, nil
}

// MemoryStats represents GPU memory usage statistics.
type MemoryStats struct {
	// Bytes currently held by live buffers
	TotalAllocatedBytes uint64
	// Peak memory usage in bytes
	PeakMemoryBytes uint64
	// Number of currently active buffers
	ActiveBuffers int64
}

// MemoryStats returns current GPU memory usage statistics.
func (c *Context) MemoryStats() MemoryStats {
	c.memoryStats.mu.RLock()
	defer c.memoryStats.mu.RUnlock()

	return MemoryStats{
		TotalAllocatedBytes: c.memoryStats.totalAllocatedBytes,
		PeakMemoryBytes:     c.memoryStats.peakMemoryBytes,
		ActiveBuffers:       c.memoryStats.activeBuffers,
	}
}

// trackBufferAllocation records a buffer allocation in memory statistics.
func (c *Context) trackBufferAllocation(size uint64) {
	c.memoryStats.mu.Lock()
	defer c.memoryStats.mu.Unlock()

	c.memoryStats.totalAllocatedBytes += size
	c.memoryStats.activeBuffers++

	if c.memoryStats.totalAllocatedBytes > c.memoryStats.peakMemoryBytes {
		c.memoryStats.peakMemoryBytes = c.memoryStats.totalAllocatedBytes
	}
}

// trackBufferRelease records a buffer release in memory statistics.
func (c *Context) trackBufferRelease(size uint64) {
	c.memoryStats.mu.Lock()
	defer c.memoryStats.mu.Unlock()

	if c.memoryStats.totalAllocatedBytes >= size {
		c.memoryStats.totalAllocatedBytes -= size
	}
	c.memoryStats.activeBuffers--
}
