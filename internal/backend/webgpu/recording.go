package webgpu

import (
	"errors"
	"fmt"

	"github.com/born-ml/invsqrt/internal/logging"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/sirupsen/logrus"
)

// StepKind identifies one recorded command.
type StepKind int

const (
	StepBeginComputePass StepKind = iota
	StepSetBindGroup
	StepSetPipeline
	StepDispatch
	StepEndComputePass
	StepCopyBufferToBuffer
)

// String returns the command name.
func (k StepKind) String() string {
	switch k {
	case StepBeginComputePass:
		return "begin-compute-pass"
	case StepSetBindGroup:
		return "set-bind-group"
	case StepSetPipeline:
		return "set-pipeline"
	case StepDispatch:
		return "dispatch"
	case StepEndComputePass:
		return "end-compute-pass"
	case StepCopyBufferToBuffer:
		return "copy-buffer-to-buffer"
	default:
		return fmt.Sprintf("StepKind(%d)", int(k))
	}
}

// Step is one command in a recording. Only the fields its Kind uses are set.
type Step struct {
	Kind StepKind

	Group     uint32 // SetBindGroup
	BindGroup *BindGroup
	Pipeline  *ComputePipeline // SetPipeline

	X, Y, Z uint32 // Dispatch workgroup counts

	Src  *StorageBuffer // CopyBufferToBuffer
	Dst  *StagingBuffer
	Size uint64
}

// Recording accumulates commands for a single submission. Commands recorded
// into one recording execute in order, so a copy recorded after a dispatch
// observes the dispatch's writes without further synchronization.
// A recording is consumed by Submit and cannot be reused.
type Recording struct {
	ctx       *Context
	label     string
	steps     []Step
	submitted bool
}

// NewRecording opens an empty recording.
func (c *Context) NewRecording(label string) *Recording {
	return &Recording{
		ctx:   c,
		label: label,
		steps: make([]Step, 0, 6),
	}
}

// BeginComputePass opens a compute pass.
func (r *Recording) BeginComputePass() *Recording {
	return r.add(Step{Kind: StepBeginComputePass})
}

// SetBindGroup binds g at group index.
func (r *Recording) SetBindGroup(index uint32, g *BindGroup) *Recording {
	return r.add(Step{Kind: StepSetBindGroup, Group: index, BindGroup: g})
}

// SetPipeline selects the pipeline for subsequent dispatches.
func (r *Recording) SetPipeline(p *ComputePipeline) *Recording {
	return r.add(Step{Kind: StepSetPipeline, Pipeline: p})
}

// Dispatch launches x*y*z workgroups.
func (r *Recording) Dispatch(x, y, z uint32) *Recording {
	return r.add(Step{Kind: StepDispatch, X: x, Y: y, Z: z})
}

// EndComputePass closes the open compute pass.
func (r *Recording) EndComputePass() *Recording {
	return r.add(Step{Kind: StepEndComputePass})
}

// CopyBufferToBuffer copies size bytes from the start of src to the start of dst.
func (r *Recording) CopyBufferToBuffer(src *StorageBuffer, dst *StagingBuffer, size uint64) *Recording {
	return r.add(Step{Kind: StepCopyBufferToBuffer, Src: src, Dst: dst, Size: size})
}

func (r *Recording) add(s Step) *Recording {
	r.steps = append(r.steps, s)
	return r
}

// Steps returns a copy of the recorded commands.
func (r *Recording) Steps() []Step {
	return append([]Step(nil), r.steps...)
}

// Submitted reports whether the recording has been consumed.
func (r *Recording) Submitted() bool {
	return r.submitted
}

// validate checks pass nesting and that every command has what it needs.
func (r *Recording) validate() error {
	if len(r.steps) == 0 {
		return errors.New("webgpu: empty recording")
	}

	inPass, pipelineSet := false, false
	for i, s := range r.steps {
		switch s.Kind {
		case StepBeginComputePass:
			if inPass {
				return fmt.Errorf("webgpu: step %d: compute pass already open", i)
			}
			inPass, pipelineSet = true, false
		case StepSetBindGroup:
			if !inPass {
				return fmt.Errorf("webgpu: step %d: %s outside compute pass", i, s.Kind)
			}
			if s.BindGroup == nil {
				return fmt.Errorf("webgpu: step %d: nil bind group", i)
			}
		case StepSetPipeline:
			if !inPass {
				return fmt.Errorf("webgpu: step %d: %s outside compute pass", i, s.Kind)
			}
			if s.Pipeline == nil {
				return fmt.Errorf("webgpu: step %d: nil pipeline", i)
			}
			pipelineSet = true
		case StepDispatch:
			if !inPass {
				return fmt.Errorf("webgpu: step %d: %s outside compute pass", i, s.Kind)
			}
			if !pipelineSet {
				return fmt.Errorf("webgpu: step %d: dispatch before set-pipeline", i)
			}
		case StepEndComputePass:
			if !inPass {
				return fmt.Errorf("webgpu: step %d: no compute pass to end", i)
			}
			inPass = false
		case StepCopyBufferToBuffer:
			if inPass {
				return fmt.Errorf("webgpu: step %d: copy inside compute pass", i)
			}
			if s.Src == nil || s.Dst == nil {
				return fmt.Errorf("webgpu: step %d: copy needs source and destination", i)
			}
			if s.Size > s.Src.size || s.Size > s.Dst.size {
				return fmt.Errorf("webgpu: step %d: copy of %d bytes exceeds buffer (src %d, dst %d)", i, s.Size, s.Src.size, s.Dst.size)
			}
		default:
			return fmt.Errorf("webgpu: step %d: unknown command %v", i, s.Kind)
		}
	}
	if inPass {
		return errors.New("webgpu: compute pass left open")
	}
	return nil
}

// Submit encodes the recording into one command buffer and submits it to the
// queue exactly once. Completion is observed through RequestMap/AwaitMap.
func (r *Recording) Submit() error {
	if r.submitted {
		return ErrAlreadySubmitted
	}
	if err := r.validate(); err != nil {
		return err
	}
	c := r.ctx
	if err := c.checkLive(); err != nil {
		return err
	}
	r.submitted = true

	encoder, err := c.device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("webgpu: create command encoder: %w", err)
	}
	defer encoder.Release()

	var pass *wgpu.ComputePassEncoder
	for _, s := range r.steps {
		switch s.Kind {
		case StepBeginComputePass:
			pass = encoder.BeginComputePass(nil)
		case StepSetBindGroup:
			pass.SetBindGroup(s.Group, s.BindGroup.group, nil)
		case StepSetPipeline:
			pass.SetPipeline(s.Pipeline.pipeline)
		case StepDispatch:
			pass.DispatchWorkgroups(s.X, s.Y, s.Z)
		case StepEndComputePass:
			pass.End()
			pass.Release()
			pass = nil
		case StepCopyBufferToBuffer:
			encoder.CopyBufferToBuffer(s.Src.buffer, 0, s.Dst.buffer, 0, s.Size)
		}
	}

	cmdBuffer, err := encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("webgpu: finish command encoder: %w", err)
	}
	defer cmdBuffer.Release()

	c.submitMu.Lock()
	c.queue.Submit(cmdBuffer)
	c.submitMu.Unlock()

	logging.WithFields(logrus.Fields{
		"recording": r.label,
		"commands":  len(r.steps),
	}).Debug("webgpu: submitted")
	return nil
}
