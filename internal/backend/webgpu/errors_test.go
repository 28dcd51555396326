package webgpu

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeviceErrorUnwrap(t *testing.T) {
	cause := errors.New("no adapter")
	err := error(&DeviceError{Stage: "adapter", Err: cause})

	assert.True(t, errors.Is(err, ErrNoSuitableDevice))
	assert.True(t, errors.Is(err, cause))
	assert.Contains(t, err.Error(), "adapter")

	missing := &DeviceError{Stage: "features", Missing: []string{"timestamp-query"}}
	assert.True(t, errors.Is(missing, ErrNoSuitableDevice))
	assert.Contains(t, missing.Error(), "timestamp-query")

	bare := &DeviceError{Stage: "instance"}
	assert.Equal(t, []error{ErrNoSuitableDevice}, bare.Unwrap())
}

func TestPipelineErrorUnwrap(t *testing.T) {
	cause := errors.New("entry point not found")
	err := error(&PipelineError{Stage: "pipeline", EntryPoint: "missing", Err: cause})

	assert.True(t, errors.Is(err, ErrPipelineBuild))
	assert.True(t, errors.Is(err, cause))
	assert.False(t, errors.Is(err, ErrNoSuitableDevice))
	assert.Contains(t, err.Error(), `"missing"`)

	var pe *PipelineError
	assert.True(t, errors.As(err, &pe))
	assert.Equal(t, "pipeline", pe.Stage)
}

func TestReadbackErrorUnwrap(t *testing.T) {
	err := error(&ReadbackError{Size: 16, Status: "lost"})
	assert.True(t, errors.Is(err, ErrReadbackFailed))
	assert.Contains(t, err.Error(), "lost")
}
