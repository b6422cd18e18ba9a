package logger

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("info"))
	assert.Equal(t, zapcore.WarnLevel, ParseLevel("warning"))
	assert.Equal(t, zapcore.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("bogus"))
}

func TestNewWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&Config{Level: "debug", Format: "json"}, &buf)

	l.Debug("shard started", zap.Int("worker", 3))
	require.NoError(t, l.Sync())

	assert.Contains(t, buf.String(), `"msg":"shard started"`)
	assert.Contains(t, buf.String(), `"worker":3`)
}

func TestNewWithWriter_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&Config{Level: "warn", Format: "console"}, &buf)

	l.Info("hidden")
	l.Warn("visible")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "visible")
}

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "systest.log")
	l := New(&Config{Level: "info", Format: "json", Output: "file", FilePath: path, MaxSize: 1})
	l.Info("to file")
	require.NoError(t, l.Sync())
	assert.FileExists(t, path)
}

func TestGlobalLogger(t *testing.T) {
	Init(&Config{Level: "error", Output: "stderr"})
	assert.NotNil(t, L())
	assert.NotNil(t, Named("master"))
	assert.False(t, L().Core().Enabled(zapcore.InfoLevel))
	Sync()
}
