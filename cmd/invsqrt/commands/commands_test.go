package commands

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/born-ml/invsqrt/backend/webgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Cleanup(func() {
		cfgFile, verbose = "", false
		runCPU, runKernelPath, runEntryPoint, runBestEffort = false, "", "", false
		compileOutput, compileWGSL = "inverse_sqrt.spv", false
	})

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "invsqrt "+version+"\n", out)
}

func TestRunCPU(t *testing.T) {
	out, err := execute(t, "run", "--cpu", "4", "25", "100")
	require.NoError(t, err)
	assert.Equal(t, "0.5\n0.2\n0.1\n", out)
}

func TestRunCPUZero(t *testing.T) {
	out, err := execute(t, "run", "--cpu", "0")
	require.NoError(t, err)
	assert.Equal(t, "NaN\n", out)
}

func TestRunGPU(t *testing.T) {
	if !webgpu.IsAvailable() {
		t.Skip("WebGPU not available on this system")
	}

	out, err := execute(t, "run", "--best-effort", "4", "25", "100")
	require.NoError(t, err)

	lines := strings.Fields(out)
	require.Len(t, lines, 3)
	for i, want := range []float64{0.5, 0.2, 0.1} {
		got, err := strconv.ParseFloat(lines[i], 32)
		require.NoError(t, err)
		assert.InDelta(t, want, got, 1e-6)
	}
}

func TestRunRejectsBadInput(t *testing.T) {
	_, err := execute(t, "run", "--cpu", "4", "four")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"four"`)

	_, err = execute(t, "run")
	assert.Error(t, err)
}

func TestRunBadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "invsqrt.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: loud\n"), 0o600))

	_, err := execute(t, "run", "--config="+path, "--cpu", "1")
	assert.Error(t, err)
}

func TestCompileWGSL(t *testing.T) {
	out, err := execute(t, "compile", "--wgsl")
	require.NoError(t, err)
	assert.Contains(t, out, "fn main_cs")
}

func TestCompileWritesSPIRV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "k.spv")
	out, err := execute(t, "compile", "-o", path)
	require.NoError(t, err)
	assert.Contains(t, out, path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
	assert.Zero(t, len(data)%4)
}

func TestParseValues(t *testing.T) {
	values, err := parseValues([]string{"1", "-2.5", "1e3"})
	require.NoError(t, err)
	assert.Equal(t, []float32{1, -2.5, 1000}, values)

	_, err = parseValues([]string{"1", ""})
	assert.Error(t, err)
}
