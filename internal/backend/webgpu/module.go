package webgpu

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// KernelModule is a compiled kernel binary registered with a device.
// Entry points are resolved later, when a pipeline is built from it.
type KernelModule struct {
	label  string
	module *wgpu.ShaderModule
}

// LoadKernel registers a SPIR-V blob with the device. The blob is opaque here;
// only the driver validates it.
func (c *Context) LoadKernel(label string, binary []byte) (*KernelModule, error) {
	if err := c.checkLive(); err != nil {
		return nil, err
	}
	if len(binary) == 0 {
		return nil, &PipelineError{Stage: "module", Err: ErrEmptyBuffer}
	}

	module, err := c.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: label,
		SPIRVDescriptor: &wgpu.ShaderModuleSPIRVDescriptor{
			Code: binary,
		},
	})
	if err != nil {
		return nil, &PipelineError{Stage: "module", Err: err}
	}

	return &KernelModule{label: label, module: module}, nil
}

// Label returns the label the module was loaded with.
func (m *KernelModule) Label() string {
	return m.label
}

// Release frees the module. Pipelines already built from it stay valid.
func (m *KernelModule) Release() {
	if m.module != nil {
		m.module.Release()
		m.module = nil
	}
}
