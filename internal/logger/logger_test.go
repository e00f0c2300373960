package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/Mikhail1201/FAYES/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriter_Levels(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf)

	l.Info("connected to %s", "camera")
	l.Warning("label %q not recognized", "kiwi")
	l.Error("report failed: %v", os.ErrDeadlineExceeded)

	out := buf.String()
	assert.Contains(t, out, "INFO    ")
	assert.Contains(t, out, "connected to camera")
	assert.Contains(t, out, `label "kiwi" not recognized`)
	assert.Contains(t, out, "ERROR   ")
}

func TestNewLogger_WritesLevelFiles(t *testing.T) {
	cfg := config.Default()
	cfg.LogDirectory = filepath.Join(t.TempDir(), "logs")

	l := NewLogger(cfg)
	defer l.Close()

	l.Info("scanner started")
	l.Error("stream dropped")

	info, err := os.ReadFile(filepath.Join(cfg.LogDirectory, "info.log"))
	require.NoError(t, err)
	assert.Contains(t, string(info), "scanner started")

	errs, err := os.ReadFile(filepath.Join(cfg.LogDirectory, "error.log"))
	require.NoError(t, err)
	assert.Contains(t, string(errs), "stream dropped")
	assert.NotContains(t, string(errs), "scanner started")
}

func TestCleanLogs(t *testing.T) {
	cfg := config.Default()
	cfg.LogDirectory = t.TempDir()

	l := NewLogger(cfg)
	defer l.Close()

	l.Warning("first warning")
	require.NoError(t, l.CleanLogs("warning.log"))

	data, err := os.ReadFile(filepath.Join(cfg.LogDirectory, "warning.log"))
	require.NoError(t, err)
	assert.Empty(t, data)

	assert.ErrorIs(t, l.CleanLogs("debug.log"), os.ErrNotExist)
}
