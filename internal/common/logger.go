package common

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/lugondev/go-amm/internal/config"
)

// Loggable interface for types that support custom logging.
type Loggable interface {
	SetLogger(logger *zap.Logger)
	GetLogger() *zap.Logger
}

// LoggerMixin provides common logging functionality.
type LoggerMixin struct {
	Logger *zap.Logger
}

// NewLoggerMixin creates a new logger mixin with a no-op logger.
func NewLoggerMixin() LoggerMixin {
	return LoggerMixin{
		Logger: zap.NewNop(),
	}
}

// SetLogger sets a custom logger.
func (l *LoggerMixin) SetLogger(logger *zap.Logger) {
	if logger != nil {
		l.Logger = logger
	}
}

// GetLogger returns the logger.
func (l *LoggerMixin) GetLogger() *zap.Logger {
	if l.Logger == nil {
		l.Logger = zap.NewNop()
	}
	return l.Logger
}

// NewLogger builds a zap logger from the log section of the config.
func NewLogger(cfg config.LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	var zc zap.Config
	if cfg.Format == "json" {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}

	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger, nil
}
