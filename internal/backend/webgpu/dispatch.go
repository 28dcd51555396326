package webgpu

import (
	"errors"
	"fmt"

	"github.com/born-ml/invsqrt/internal/logging"
	"github.com/sirupsen/logrus"
)

// WorkgroupCount returns ceil(elements/size) without overflowing uint32.
func WorkgroupCount(elements, size uint32) uint32 {
	if size == 0 {
		return 0
	}
	n := elements / size
	if elements%size != 0 {
		n++
	}
	return n
}

// Run transforms the first elementCount values of storage in place and returns
// them. It records bind, pipeline, dispatch and a copy of the full storage
// extent into staging as one submission, then blocks on the staging map.
//
// The kernel does not bounds-check. When elementCount is not a multiple of the
// workgroup width the trailing invocations of the last group address past the
// logical end of storage; Run logs a warning and proceeds.
func (c *Context) Run(pipeline *ComputePipeline, group *BindGroup, storage *StorageBuffer, staging *StagingBuffer, elementCount uint32) ([]float32, error) {
	if pipeline == nil || group == nil || storage == nil || staging == nil {
		return nil, errors.New("webgpu: run: nil argument")
	}
	contract := pipeline.contract
	if elementCount == 0 {
		return []float32{}, nil
	}

	need := uint64(elementCount) * contract.ElementSize
	if storage.size < need {
		return nil, fmt.Errorf("webgpu: run: storage holds %d bytes, %d elements need %d", storage.size, elementCount, need)
	}
	if staging.size < storage.size {
		return nil, fmt.Errorf("webgpu: run: staging holds %d bytes, storage is %d", staging.size, storage.size)
	}

	groups := WorkgroupCount(elementCount, contract.WorkgroupSize)
	fields := logrus.Fields{
		"entry_point": contract.EntryPoint,
		"elements":    elementCount,
		"workgroups":  groups,
	}
	if elementCount%contract.WorkgroupSize != 0 {
		logging.WithFields(fields).Warnf("webgpu: element count is not a multiple of %d; the last workgroup overruns the buffer", contract.WorkgroupSize)
	}

	err := c.NewRecording(contract.EntryPoint).
		BeginComputePass().
		SetBindGroup(0, group).
		SetPipeline(pipeline).
		Dispatch(groups, 1, 1).
		EndComputePass().
		CopyBufferToBuffer(storage, staging, storage.size).
		Submit()
	if err != nil {
		return nil, err
	}
	logging.WithFields(fields).Debug("webgpu: dispatched")

	values, err := c.MapForRead(staging)
	if err != nil {
		return nil, err
	}
	return values[:elementCount], nil
}

// Execute runs contract's entry point from module over input and returns the
// transformed copy. The pipeline is taken from the context cache; buffers and
// the bind group live only for this call. Empty input returns an empty result
// without touching the device.
func (c *Context) Execute(module *KernelModule, contract KernelContract, input []float32) ([]float32, error) {
	if len(input) == 0 {
		return []float32{}, nil
	}
	if uint64(len(input)) > uint64(^uint32(0)) {
		return nil, fmt.Errorf("webgpu: execute: %d elements exceed dispatch range", len(input))
	}

	pipeline, err := c.Pipeline(module, contract)
	if err != nil {
		return nil, err
	}

	storage, err := c.CreateStorage(EncodeFloat32s(input))
	if err != nil {
		return nil, err
	}
	defer storage.Release()

	staging, err := c.CreateStaging(storage.Size())
	if err != nil {
		return nil, err
	}
	defer staging.Release()

	group, err := c.Bind(pipeline, storage)
	if err != nil {
		return nil, err
	}
	defer group.Release()

	return c.Run(pipeline, group, storage, staging, uint32(len(input)))
}
