package webgpu

import (
	"errors"
	"math"
	"testing"

	"github.com/born-ml/invsqrt/internal/kernel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// requireAdapter skips when the platform exposes no adapter at all. Any
// other acquisition or kernel failure is a test failure.
func requireAdapter(t *testing.T) {
	t.Helper()
	if !IsAvailable() {
		t.Skip("WebGPU not available on this system")
	}
}

// setupContext acquires a device with whatever default features the adapter
// offers and loads the bundled kernel.
func setupContext(t *testing.T) (*Context, *KernelModule) {
	t.Helper()
	requireAdapter(t)

	ctx, err := Acquire(DefaultCapabilities(), WithBestEffort())
	require.NoError(t, err)
	t.Cleanup(ctx.Release)

	binary, err := kernel.Compile()
	require.NoError(t, err)

	module, err := ctx.LoadKernel("inverse_sqrt", binary)
	require.NoError(t, err)
	t.Cleanup(module.Release)

	return ctx, module
}

func TestIsAvailable(t *testing.T) {
	t.Logf("WebGPU available: %v", IsAvailable())
}

func TestListAdapters(t *testing.T) {
	requireAdapter(t)

	reports, err := ListAdapters()
	require.NoError(t, err)
	assert.NotEmpty(t, reports)
	for i, r := range reports {
		t.Logf("Adapter %d: %s (%s) backend=%s suitable=%v", i, r.Name, r.Vendor, r.Backend, r.Suitable())
	}
}

func TestAcquireCapabilitiesStable(t *testing.T) {
	requireAdapter(t)

	a, err := Acquire(DefaultCapabilities(), WithBestEffort())
	require.NoError(t, err)
	defer a.Release()

	b, err := Acquire(DefaultCapabilities(), WithBestEffort())
	require.NoError(t, err)
	defer b.Release()

	assert.Equal(t, a.Capabilities(), b.Capabilities())
	assert.False(t, a.Capabilities().SPIRVPassthrough, "never requested")
	assert.NotEmpty(t, a.Name())
}

func TestAcquireStrictReportsMissing(t *testing.T) {
	requireAdapter(t)

	// Passthrough is absent from the bundled wgpu-native, so a strict
	// request for it fails with the feature named.
	_, err := Acquire(Capabilities{SPIRVPassthrough: true})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoSuitableDevice))

	var de *DeviceError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "features", de.Stage)
	assert.Contains(t, de.Missing, "spirv-shader-passthrough")

	ctx, err := Acquire(Capabilities{SPIRVPassthrough: true}, WithBestEffort())
	require.NoError(t, err)
	defer ctx.Release()
	assert.False(t, ctx.Capabilities().SPIRVPassthrough)
}

func TestContextReleaseIdempotent(t *testing.T) {
	requireAdapter(t)

	ctx, err := Acquire(Capabilities{})
	require.NoError(t, err)
	ctx.Release()
	ctx.Release()

	_, err = ctx.CreateStaging(4)
	assert.True(t, errors.Is(err, ErrReleased))
}

// Scenario: a small buffer is transformed in place.
func TestExecuteSmall(t *testing.T) {
	ctx, module := setupContext(t)

	out, err := ctx.Execute(module, InverseSqrtContract(), []float32{1.0, 4.0})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.InDelta(t, 1.0, out[0], 1e-6)
	assert.InDelta(t, 0.5, out[1], 1e-6)
}

// Scenario: 1..32766 produce 1/sqrt(i) in order.
func TestExecuteLarge(t *testing.T) {
	ctx, module := setupContext(t)

	const n = 32766
	input := make([]float32, n)
	for i := range input {
		input[i] = float32(i + 1)
	}

	out, err := ctx.Execute(module, InverseSqrtContract(), input)
	require.NoError(t, err)
	require.Len(t, out, n)
	for i, v := range out {
		want := 1 / math.Sqrt(float64(i+1))
		if math.Abs(float64(v)-want) > 1e-6*want+1e-7 {
			t.Fatalf("element %d: got %v, want %v", i, v, want)
		}
	}
}

func TestExecuteZeroIsNaN(t *testing.T) {
	ctx, module := setupContext(t)

	out, err := ctx.Execute(module, InverseSqrtContract(), []float32{0, 16})
	require.NoError(t, err)
	assert.True(t, math.IsNaN(float64(out[0])))
	assert.InDelta(t, 0.25, out[1], 1e-6)
}

// Scenario: a bad entry point fails at pipeline build, before any dispatch.
func TestBuildPipelineBadEntryPoint(t *testing.T) {
	ctx, module := setupContext(t)

	_, err := ctx.BuildPipeline(module, "does_not_exist", DefaultLayout())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPipelineBuild))

	var pe *PipelineError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "does_not_exist", pe.EntryPoint)
}

func TestLoadKernelEmpty(t *testing.T) {
	ctx, _ := setupContext(t)

	_, err := ctx.LoadKernel("empty", nil)
	assert.True(t, errors.Is(err, ErrPipelineBuild))
	assert.True(t, errors.Is(err, ErrEmptyBuffer))
}

func TestRunReusesPipeline(t *testing.T) {
	ctx, module := setupContext(t)

	pipeline, err := ctx.Pipeline(module, InverseSqrtContract())
	require.NoError(t, err)
	again, err := ctx.Pipeline(module, InverseSqrtContract())
	require.NoError(t, err)
	assert.Same(t, pipeline, again)

	wider := InverseSqrtContract()
	wider.Layout = BindingLayout{Slots: []BindingSlot{{Index: 0, Kind: StorageReadWrite, MinSize: 8}}}
	other, err := ctx.Pipeline(module, wider)
	require.NoError(t, err)
	assert.NotSame(t, pipeline, other, "layout is part of the cache key")

	storage, err := ctx.CreateStorage(EncodeFloat32s([]float32{4, 9, 16, 25}))
	require.NoError(t, err)
	defer storage.Release()

	staging, err := ctx.CreateStaging(storage.Size())
	require.NoError(t, err)
	defer staging.Release()

	group, err := ctx.Bind(pipeline, storage)
	require.NoError(t, err)
	defer group.Release()

	out, err := ctx.Run(pipeline, group, storage, staging, 4)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0.5, 1.0 / 3, 0.25, 0.2}, toFloat64s(out), 1e-6)

	// In place: a second run sees the first run's output.
	out, err = ctx.Run(pipeline, group, storage, staging, 4)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{math.Sqrt(2), math.Sqrt(3), 2, math.Sqrt(5)}, toFloat64s(out), 1e-5)
}

func TestMemoryStatsTracksBuffers(t *testing.T) {
	ctx, _ := setupContext(t)

	storage, err := ctx.CreateStorage(make([]byte, 16))
	require.NoError(t, err)
	staging, err := ctx.CreateStaging(16)
	require.NoError(t, err)

	stats := ctx.MemoryStats()
	assert.Equal(t, int64(2), stats.ActiveBuffers)
	assert.Equal(t, uint64(32), stats.TotalAllocatedBytes)

	storage.Release()
	staging.Release()
	staging.Release()

	stats = ctx.MemoryStats()
	assert.Zero(t, stats.ActiveBuffers)
	assert.Zero(t, stats.TotalAllocatedBytes)
	assert.Equal(t, uint64(32), stats.PeakMemoryBytes)
}

func toFloat64s(in []float32) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = float64(v)
	}
	return out
}
