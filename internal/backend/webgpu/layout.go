package webgpu

import (
	"errors"
	"fmt"

	"github.com/born-ml/invsqrt/internal/kernel"
	"github.com/cogentcore/webgpu/wgpu"
)

// BindingKind is the resource type a slot expects.
type BindingKind int

const (
	// StorageReadWrite is a read/write storage buffer.
	StorageReadWrite BindingKind = iota
	// StorageReadOnly is a read-only storage buffer.
	StorageReadOnly
)

// String returns the WGSL access mode of the binding kind.
func (k BindingKind) String() string {
	switch k {
	case StorageReadWrite:
		return "storage<read_write>"
	case StorageReadOnly:
		return "storage<read>"
	default:
		return fmt.Sprintf("BindingKind(%d)", int(k))
	}
}

// BindingSlot declares one binding in group 0. Slots are always visible to
// the compute stage only.
type BindingSlot struct {
	Index   uint32
	Kind    BindingKind
	MinSize uint64 // Minimum bound size in bytes
}

// BindingLayout is the shape of the resources a kernel entry point expects.
// It must match the kernel's declared bindings exactly; a mismatch surfaces as
// a pipeline build error.
type BindingLayout struct {
	Slots []BindingSlot
}

// DefaultLayout declares the single in-place buffer the kernel operates on:
// slot 0, read/write storage, at least one element.
func DefaultLayout() BindingLayout {
	return BindingLayout{
		Slots: []BindingSlot{
			{Index: 0, Kind: StorageReadWrite, MinSize: kernel.ElementSize},
		},
	}
}

// Validate checks the layout is non-empty with unique slot indices.
func (l BindingLayout) Validate() error {
	if len(l.Slots) == 0 {
		return errors.New("binding layout has no slots")
	}
	seen := make(map[uint32]bool, len(l.Slots))
	for _, s := range l.Slots {
		if seen[s.Index] {
			return fmt.Errorf("binding slot %d declared twice", s.Index)
		}
		seen[s.Index] = true
		if s.Kind != StorageReadWrite && s.Kind != StorageReadOnly {
			return fmt.Errorf("binding slot %d: unsupported kind %v", s.Index, s.Kind)
		}
	}
	return nil
}

func (l BindingLayout) descriptor(label string) *wgpu.BindGroupLayoutDescriptor {
	entries := make([]wgpu.BindGroupLayoutEntry, 0, len(l.Slots))
	for _, s := range l.Slots {
		bufferType := wgpu.BufferBindingTypeStorage
		if s.Kind == StorageReadOnly {
			bufferType = wgpu.BufferBindingTypeReadOnlyStorage
		}
		entries = append(entries, wgpu.BindGroupLayoutEntry{
			Binding:    s.Index,
			Visibility: wgpu.ShaderStageCompute,
			Buffer: wgpu.BufferBindingLayout{
				Type:             bufferType,
				HasDynamicOffset: false,
				MinBindingSize:   s.MinSize,
			},
		})
	}
	return &wgpu.BindGroupLayoutDescriptor{
		Label:   label,
		Entries: entries,
	}
}

// KernelContract ties a kernel entry point to its binding layout and element
// geometry. It is validated once when the pipeline is built.
type KernelContract struct {
	EntryPoint    string
	Layout        BindingLayout
	ElementSize   uint64 // Bytes per buffer element
	WorkgroupSize uint32 // Invocations per workgroup along X
}

// InverseSqrtContract describes the bundled inverse square root kernel.
func InverseSqrtContract() KernelContract {
	return KernelContract{
		EntryPoint:    kernel.EntryPoint,
		Layout:        DefaultLayout(),
		ElementSize:   kernel.ElementSize,
		WorkgroupSize: kernel.WorkgroupSize,
	}
}

// cacheKey identifies the pipeline built for this contract. Contracts that
// share an entry point but differ in layout get distinct pipelines.
func (k KernelContract) cacheKey() string {
	key := fmt.Sprintf("%s|%d|%d", k.EntryPoint, k.ElementSize, k.WorkgroupSize)
	for _, s := range k.Layout.Slots {
		key += fmt.Sprintf("|%d:%d:%d", s.Index, s.Kind, s.MinSize)
	}
	return key
}

// Validate checks the contract is usable for a dispatch.
func (k KernelContract) Validate() error {
	if k.EntryPoint == "" {
		return errors.New("kernel contract: empty entry point")
	}
	if k.ElementSize == 0 {
		return errors.New("kernel contract: zero element size")
	}
	if k.WorkgroupSize == 0 {
		return errors.New("kernel contract: zero workgroup size")
	}
	if err := k.Layout.Validate(); err != nil {
		return fmt.Errorf("kernel contract: %w", err)
	}
	return nil
}
