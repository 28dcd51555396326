// Package kernel holds the inverse square root compute kernel: its source,
// its binding contract, the build step that turns the source into SPIR-V, and
// a CPU reference of the numeric body.
package kernel

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"github.com/gogpu/naga"
)

const (
	// EntryPoint is the compute entry point exported by the kernel.
	EntryPoint = "main_cs"

	// WorkgroupSize is the fixed X dimension declared by @workgroup_size.
	WorkgroupSize = 64

	// ElementSize is the byte stride of one buffer element (f32).
	ElementSize = 4
)

//go:embed inverse_sqrt.wgsl
var source string

// ErrInvalidBinary is returned when a kernel blob cannot be SPIR-V.
var ErrInvalidBinary = errors.New("kernel: invalid SPIR-V binary")

// Source returns the WGSL source of the kernel.
func Source() string {
	return source
}

// Compile translates the embedded WGSL source into a SPIR-V module.
func Compile() ([]byte, error) {
	spirv, err := naga.Compile(source)
	if err != nil {
		return nil, fmt.Errorf("kernel: compile %s: %w", EntryPoint, err)
	}
	return spirv, nil
}

// LoadBinary reads a prebuilt SPIR-V module from disk. Only the framing is
// checked; the driver validates the contents when the module is created.
func LoadBinary(path string) ([]byte, error) {
	//nolint:gosec // G304: kernel path comes from trusted configuration
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("kernel: read %s: %w", path, err)
	}
	if len(data) == 0 || len(data)%4 != 0 {
		return nil, fmt.Errorf("%w: %s is %d bytes, want a non-zero multiple of 4", ErrInvalidBinary, path, len(data))
	}
	return data, nil
}

// Binary returns the kernel blob from path, or compiles the embedded source
// when path is empty.
func Binary(path string) ([]byte, error) {
	if path == "" {
		return Compile()
	}
	return LoadBinary(path)
}
