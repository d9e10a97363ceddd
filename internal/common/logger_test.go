package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/lugondev/go-amm/internal/config"
)

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(config.LogConfig{Level: "warn", Format: "json"})
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))

	_, err = NewLogger(config.LogConfig{Level: "loud"})
	require.Error(t, err)
}

func TestLoggerMixin(t *testing.T) {
	var m LoggerMixin
	assert.NotNil(t, m.GetLogger())

	custom := zap.NewExample()
	m.SetLogger(custom)
	m.SetLogger(nil)
	assert.Same(t, custom, m.GetLogger())
}
