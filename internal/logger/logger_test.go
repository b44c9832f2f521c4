package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew_IsNop(t *testing.T) {
	l := New()
	require.NotNil(t, l.Log)
	assert.False(t, l.Log.Core().Enabled(zapcore.ErrorLevel))
}

func TestInit(t *testing.T) {
	l := New()
	require.NoError(t, l.Init("warn"))
	assert.True(t, l.Log.Core().Enabled(zapcore.WarnLevel))
	assert.False(t, l.Log.Core().Enabled(zapcore.InfoLevel))
}

func TestInit_BadLevel(t *testing.T) {
	l := New()
	err := l.Init("chatty")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chatty")
}
