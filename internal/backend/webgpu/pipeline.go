package webgpu

import (
	"errors"

	"github.com/born-ml/invsqrt/internal/kernel"
	"github.com/cogentcore/webgpu/wgpu"
)

// ComputePipeline is a kernel entry point compiled against a binding layout.
// It is immutable and may be reused across dispatches.
type ComputePipeline struct {
	contract        KernelContract
	bindGroupLayout *wgpu.BindGroupLayout
	pipelineLayout  *wgpu.PipelineLayout
	pipeline        *wgpu.ComputePipeline
}

// BuildPipeline builds a pipeline for entryPoint in module using layout.
// The bundled kernel's element size and workgroup width are assumed.
func (c *Context) BuildPipeline(module *KernelModule, entryPoint string, layout BindingLayout) (*ComputePipeline, error) {
	return c.BuildContract(module, KernelContract{
		EntryPoint:    entryPoint,
		Layout:        layout,
		ElementSize:   kernel.ElementSize,
		WorkgroupSize: kernel.WorkgroupSize,
	})
}

// BuildContract validates contract and builds a pipeline from it. A driver
// rejection, such as an entry point missing from the module or a layout that
// does not match the kernel's bindings, is a *PipelineError. It is a caller
// configuration bug and is not retried.
func (c *Context) BuildContract(module *KernelModule, contract KernelContract) (*ComputePipeline, error) {
	if err := c.checkLive(); err != nil {
		return nil, err
	}
	if module == nil || module.module == nil {
		return nil, &PipelineError{Stage: "module", EntryPoint: contract.EntryPoint, Err: errors.New("module not loaded")}
	}
	if err := contract.Validate(); err != nil {
		return nil, &PipelineError{Stage: "contract", EntryPoint: contract.EntryPoint, Err: err}
	}

	label := module.label + "/" + contract.EntryPoint

	bindGroupLayout, err := c.device.CreateBindGroupLayout(contract.Layout.descriptor(label))
	if err != nil {
		return nil, &PipelineError{Stage: "bind group layout", EntryPoint: contract.EntryPoint, Err: err}
	}

	pipelineLayout, err := c.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            label,
		BindGroupLayouts: []*wgpu.BindGroupLayout{bindGroupLayout},
	})
	if err != nil {
		bindGroupLayout.Release()
		return nil, &PipelineError{Stage: "pipeline layout", EntryPoint: contract.EntryPoint, Err: err}
	}

	pipeline, err := c.device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:  label,
		Layout: pipelineLayout,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     module.module,
			EntryPoint: contract.EntryPoint,
		},
	})
	if err != nil {
		pipelineLayout.Release()
		bindGroupLayout.Release()
		return nil, &PipelineError{Stage: "pipeline", EntryPoint: contract.EntryPoint, Err: err}
	}

	return &ComputePipeline{
		contract:        contract,
		bindGroupLayout: bindGroupLayout,
		pipelineLayout:  pipelineLayout,
		pipeline:        pipeline,
	}, nil
}

// Pipeline returns a cached pipeline for contract, building it on first use.
// Cached pipelines are owned by the context and released with it.
func (c *Context) Pipeline(module *KernelModule, contract KernelContract) (*ComputePipeline, error) {
	key := contract.cacheKey()
	if module != nil {
		key = module.label + "/" + key
	}

	c.mu.RLock()
	if p, ok := c.pipelines[key]; ok {
		c.mu.RUnlock()
		return p, nil
	}
	c.mu.RUnlock()

	p, err := c.BuildContract(module, contract)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.released {
		p.Release()
		return nil, ErrReleased
	}
	if existing, ok := c.pipelines[key]; ok {
		p.Release()
		return existing, nil
	}
	c.pipelines[key] = p
	return p, nil
}

// Contract returns the contract the pipeline was built from.
func (p *ComputePipeline) Contract() KernelContract {
	return p.contract
}

// Release frees the pipeline and its layouts.
func (p *ComputePipeline) Release() {
	if p.pipeline != nil {
		p.pipeline.Release()
		p.pipeline = nil
	}
	if p.pipelineLayout != nil {
		p.pipelineLayout.Release()
		p.pipelineLayout = nil
	}
	if p.bindGroupLayout != nil {
		p.bindGroupLayout.Release()
		p.bindGroupLayout = nil
	}
}
