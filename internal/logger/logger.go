// Package logger wraps zap with a level that can be set after construction.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger holds the process-wide zap logger.
type Logger struct {
	Log *zap.Logger
}

// New returns a Logger with a no-op zap logger until Init is called.
func New() *Logger {
	return &Logger{Log: zap.NewNop()}
}

// Init builds a production zap logger at the given level ("debug", "info", ...).
func (l *Logger) Init(level string) error {
	return l.init(level, []string{"stderr"})
}

// InitConsole builds a human-readable logger for the CLI, writing to stderr.
func (l *Logger) InitConsole(level string) error {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return err
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = lvl
	cfg.DisableStacktrace = true
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	zl, err := cfg.Build()
	if err != nil {
		return err
	}
	l.Log = zl
	return nil
}

func (l *Logger) init(level string, outputs []string) error {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return err
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	cfg.OutputPaths = outputs
	zl, err := cfg.Build()
	if err != nil {
		return err
	}
	l.Log = zl
	return nil
}
