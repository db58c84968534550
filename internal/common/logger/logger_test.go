package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapAdapter_Fields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewZapAdapter(zap.New(core))

	log.WithFields(map[string]interface{}{"runId": "r-1"}).
		WithError(errors.New("boom")).
		Warn("item failed", map[string]interface{}{"index": 2})
	log.Debug("no fields", nil)

	entries := logs.All()
	require.Len(t, entries, 2)

	ctx := entries[0].ContextMap()
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, "item failed", entries[0].Message)
	assert.Equal(t, "r-1", ctx["runId"])
	assert.Equal(t, "boom", ctx["error"])
	assert.EqualValues(t, 2, ctx["index"])

	assert.Empty(t, entries[1].ContextMap())
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("warn"))
	assert.Equal(t, zapcore.ErrorLevel, parseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("verbose"))
}

func TestNew(t *testing.T) {
	l := New("debug", "console", "stderr")
	require.NotNil(t, l)
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))

	l = New("error", "json", "stdout")
	assert.False(t, l.Core().Enabled(zapcore.WarnLevel))
}
