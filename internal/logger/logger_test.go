package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, "console", cfg.Format)
	assert.Equal(t, "stderr", cfg.Output)
	assert.NotEmpty(t, cfg.TimeFormat)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zapcore.Level
		wantErr bool
	}{
		{"debug", zapcore.DebugLevel, false},
		{"", zapcore.InfoLevel, false},
		{"INFO", zapcore.InfoLevel, false},
		{"warning", zapcore.WarnLevel, false},
		{"error", zapcore.ErrorLevel, false},
		{"verbose", zapcore.InfoLevel, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewWithWriter(t *testing.T) {
	t.Run("json format", func(t *testing.T) {
		var buf bytes.Buffer
		log, err := NewWithWriter(&Config{Level: "debug", Format: "json"}, &buf)
		require.NoError(t, err)
		log.Named("gen").Debug("resolved", zap.String("entity", "Post"))

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "debug", entry["level"])
		assert.Equal(t, "gen", entry["logger"])
		assert.Equal(t, "resolved", entry["msg"])
		assert.Equal(t, "Post", entry["entity"])
	})

	t.Run("level filters entries", func(t *testing.T) {
		var buf bytes.Buffer
		log, err := NewWithWriter(&Config{Level: "warn", Format: "console"}, &buf)
		require.NoError(t, err)
		log.Info("hidden")
		log.Warn("shown")
		assert.NotContains(t, buf.String(), "hidden")
		assert.Contains(t, buf.String(), "shown")
	})

	t.Run("unknown level", func(t *testing.T) {
		_, err := NewWithWriter(&Config{Level: "loud"}, &bytes.Buffer{})
		assert.Error(t, err)
	})
}

func TestNew(t *testing.T) {
	t.Run("file output", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "schemagen.log")
		log, err := New(&Config{Level: "info", Format: "json", Output: path})
		require.NoError(t, err)
		log.Info("written")
		_ = log.Sync()

		buf, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(buf), `"msg":"written"`)
	})

	t.Run("unwritable file", func(t *testing.T) {
		_, err := New(&Config{Output: filepath.Join(t.TempDir(), "missing", "x.log")})
		assert.Error(t, err)
	})

	t.Run("default config", func(t *testing.T) {
		log, err := New(DefaultConfig())
		require.NoError(t, err)
		assert.NotNil(t, log)
	})
}
