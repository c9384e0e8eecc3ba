package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLevels(t *testing.T) {
	log, err := New("warn", "console", "designpro")
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(zapcore.WarnLevel))
	assert.False(t, log.Core().Enabled(zapcore.InfoLevel))

	log, err = New("bogus", "json", "")
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, log.Core().Enabled(zapcore.DebugLevel))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zapcore.ErrorLevel, ParseLevel(" ERROR "))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel(""))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("loud"))
}

func TestPresets(t *testing.T) {
	console := consoleConfig()
	assert.Equal(t, "console", console.Encoding)
	assert.True(t, console.DisableStacktrace)

	json := jsonConfig()
	assert.Equal(t, "json", json.Encoding)
	assert.Nil(t, json.Sampling)
	assert.Equal(t, "ts", json.EncoderConfig.TimeKey)
}

func TestComponent(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)

	Component(zap.New(core), "http").Info("request completed")

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "http", entry.LoggerName)
	assert.Equal(t, "http", entry.ContextMap()["component"])

	assert.NotNil(t, Component(nil, "http"))
}
