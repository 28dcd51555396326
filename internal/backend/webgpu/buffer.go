package webgpu

import (
	"errors"

	"github.com/cogentcore/webgpu/wgpu"
)

// StorageBuffer is the device-resident buffer the kernel transforms in place.
type StorageBuffer struct {
	ctx    *Context
	buffer *wgpu.Buffer
	size   uint64
}

// StagingBuffer is a host-mappable copy target used only for readback.
type StagingBuffer struct {
	ctx    *Context
	buffer *wgpu.Buffer
	size   uint64
	ticket *MapTicket // Outstanding map, if any
}

// BindGroup associates a storage buffer with slot 0 of a pipeline's layout.
type BindGroup struct {
	group   *wgpu.BindGroup
	storage *StorageBuffer
}

// CreateStorage allocates a storage buffer holding initial. It can be bound
// read/write to a kernel and used as either end of a device-side copy.
func (c *Context) CreateStorage(initial []byte) (*StorageBuffer, error) {
	if err := c.checkLive(); err != nil {
		return nil, err
	}
	if len(initial) == 0 {
		return nil, ErrEmptyBuffer
	}

	size := uint64(len(initial))
	buffer, err := c.device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    "invsqrt storage",
		Contents: initial,
		Usage:    wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}
	c.trackBufferAllocation(size)

	return &StorageBuffer{ctx: c, buffer: buffer, size: size}, nil
}

// CreateStaging allocates a map-readable buffer of size bytes. Its contents are
// undefined until a copy into it completes.
func (c *Context) CreateStaging(size uint64) (*StagingBuffer, error) {
	if err := c.checkLive(); err != nil {
		return nil, err
	}
	if size == 0 {
		return nil, ErrEmptyBuffer
	}

	buffer, err := c.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label:            "invsqrt staging",
		Size:             size,
		Usage:            wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
		MappedAtCreation: false,
	})
	if err != nil {
		return nil, err
	}
	c.trackBufferAllocation(size)

	return &StagingBuffer{ctx: c, buffer: buffer, size: size}, nil
}

// Bind binds the full extent of storage to slot 0 of the pipeline's layout.
// A bind group can be reused for as long as the storage buffer lives.
func (c *Context) Bind(pipeline *ComputePipeline, storage *StorageBuffer) (*BindGroup, error) {
	if err := c.checkLive(); err != nil {
		return nil, err
	}
	if pipeline == nil || pipeline.bindGroupLayout == nil {
		return nil, errors.New("webgpu: bind: pipeline not built")
	}
	if storage == nil || storage.buffer == nil {
		return nil, errors.New("webgpu: bind: storage buffer released")
	}

	slot := pipeline.contract.Layout.Slots[0]
	group, err := c.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "invsqrt bind group",
		Layout: pipeline.bindGroupLayout,
		Entries: []wgpu.BindGroupEntry{
			{
				Binding: slot.Index,
				Buffer:  storage.buffer,
				Offset:  0,
				Size:    storage.size,
			},
		},
	})
	if err != nil {
		return nil, err
	}

	return &BindGroup{group: group, storage: storage}, nil
}

// Size returns the buffer size in bytes.
func (s *StorageBuffer) Size() uint64 {
	return s.size
}

// Release frees the buffer.
func (s *StorageBuffer) Release() {
	if s.buffer == nil {
		return
	}
	s.buffer.Release()
	s.buffer = nil
	s.ctx.trackBufferRelease(s.size)
}

// Size returns the buffer size in bytes.
func (s *StagingBuffer) Size() uint64 {
	return s.size
}

// Release frees the buffer.
func (s *StagingBuffer) Release() {
	if s.buffer == nil {
		return
	}
	s.buffer.Release()
	s.buffer = nil
	s.ticket = nil
	s.ctx.trackBufferRelease(s.size)
}

// Release frees the bind group. The bound storage buffer is not affected.
func (g *BindGroup) Release() {
	if g.group != nil {
		g.group.Release()
		g.group = nil
	}
}
