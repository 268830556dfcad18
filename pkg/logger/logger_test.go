package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger(t *testing.T) {
	t.Run("invalid level is rejected", func(t *testing.T) {
		_, err := newLogger(Config{Level: "loud", Encoding: "json"})
		require.Error(t, err)
	})

	t.Run("production json logger", func(t *testing.T) {
		l, err := newLogger(Config{Level: "info", Encoding: "json"})
		require.NoError(t, err)
		require.NotNil(t, l)
		assert.False(t, l.Core().Enabled(zapcore.DebugLevel))
	})

	t.Run("development console logger", func(t *testing.T) {
		l, err := newLogger(Config{Level: "debug", Encoding: "console", Development: true})
		require.NoError(t, err)
		assert.True(t, l.Core().Enabled(zapcore.DebugLevel))
	})
}

func TestGet(t *testing.T) {
	// Get falls back to a default logger and always returns the same
	// instance afterwards.
	first := Get()
	require.NotNil(t, first)
	assert.Same(t, first, Get())
	_ = Sync()
}
