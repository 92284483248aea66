package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name     string
		expected Level
	}{
		{"debug", DebugLevel},
		{"info", InfoLevel},
		{"warn", WarnLevel},
		{"warning", WarnLevel},
		{"error", ErrorLevel},
		{"fatal", FatalLevel},
		{"", InfoLevel},
		{"verbose", InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseLevel(tt.name))
		})
	}
}

func TestSlogLogger(t *testing.T) {
	t.Setenv("ENV", "")

	var buf bytes.Buffer
	l := NewSlogWithWriter(&buf, InfoLevel, false)
	assert.Equal(t, InfoLevel, l.Level())

	l.Debug("hidden")
	assert.Zero(t, buf.Len())

	l.With("line", 3).Info("pulse", "duration", 20)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "pulse", rec["msg"])
	assert.InDelta(t, 3, rec["line"], 0)
	assert.InDelta(t, 20, rec["duration"], 0)
	assert.Contains(t, rec, "ts")

	l.SetLevel(DebugLevel)
	assert.Equal(t, DebugLevel, l.Level())

	buf.Reset()
	l.Debug("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestZapLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewZap(zap.New(core), WarnLevel)

	l.Info("dropped")
	l.Warn("kept", "cmd", 2)
	l.With("line", 1).Error("failed")

	require.Equal(t, 2, logs.Len())
	entries := logs.AllUntimed()
	assert.Equal(t, "kept", entries[0].Message)
	assert.Equal(t, int64(2), entries[0].ContextMap()["cmd"])
	assert.Equal(t, "failed", entries[1].Message)
	assert.Equal(t, int64(1), entries[1].ContextMap()["line"])

	assert.Equal(t, WarnLevel, l.Level())
	l.SetLevel(DebugLevel)
	l.Debug("now visible")
	assert.Equal(t, 3, logs.Len())
}

func TestNopLogger(t *testing.T) {
	l := NewNop()
	l.Info("ignored")
	assert.Equal(t, l, l.With("k", "v"))
	assert.Equal(t, FatalLevel, l.Level())
}
