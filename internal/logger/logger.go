// Package logger holds the process wide logger of the command line tools.
package logger

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	once   sync.Once
	level  = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	global *zap.SugaredLogger
)

func build() {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = level
	cfg.DisableStacktrace = true
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncoderConfig.TimeKey = ""

	l, err := cfg.Build()
	if err != nil {
		l = zap.NewNop()
	}
	global = l.Sugar()
}

// Logger returns the shared logger.
func Logger() *zap.SugaredLogger {
	once.Do(build)
	return global
}

// SetLevel changes the level of the shared logger at runtime.
func SetLevel(l zapcore.Level) {
	level.SetLevel(l)
}

// SetVerbose switches between the info and the debug level.
func SetVerbose(verbose bool) {
	if verbose {
		SetLevel(zapcore.DebugLevel)
		return
	}
	SetLevel(zapcore.InfoLevel)
}

// Replace sets a different logger, mainly for tests.
func Replace(l *zap.Logger) {
	once.Do(func() {})
	global = l.Sugar()
}

// Sync flushes buffered log entries.
func Sync() {
	_ = Logger().Sync()
}
