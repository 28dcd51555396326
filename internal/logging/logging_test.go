package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitLevel(t *testing.T) {
	require.NoError(t, Init("debug", "", false))
	assert.Equal(t, logrus.DebugLevel, Get().GetLevel())

	require.NoError(t, Init("not-a-level", "", false))
	assert.Equal(t, logrus.InfoLevel, Get().GetLevel(), "unknown level falls back to info")
}

func TestInitWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "invsqrt.log")
	require.NoError(t, Init("info", path, false))

	Infof("dispatched %d workgroups", 3)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "dispatched 3 workgroups")
}

func TestWithFields(t *testing.T) {
	require.NoError(t, Init("info", "", false))
	var buf bytes.Buffer
	SetOutput(&buf)

	WithFields(logrus.Fields{"elements": 3}).Warn("workgroup overrun")

	out := buf.String()
	assert.Contains(t, out, "workgroup overrun")
	assert.Contains(t, out, "elements=3")
}

func TestDebugSuppressedAtInfo(t *testing.T) {
	require.NoError(t, Init("info", "", false))
	var buf bytes.Buffer
	SetOutput(&buf)

	Debugf("hidden")
	assert.Empty(t, buf.String())
}
