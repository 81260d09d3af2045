package logger

import (
	"fmt"

	"go.uber.org/zap"
)

// Log is a no-op until Init runs, so packages can log from tests.
var Log = zap.NewNop().Sugar()

// Init replaces Log with a production logger at level (debug, info, warn, error).
func Init(level string) error {
	if level == "" {
		level = "info"
	}
	atom, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return fmt.Errorf("parse log level: %w", err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = atom
	logger, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("build zap logger: %w", err)
	}
	Log = logger.Sugar()
	return nil
}

// Sync flushes buffered entries.
func Sync() {
	_ = Log.Sync()
}
