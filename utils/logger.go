package utils

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var logger *zap.Logger

// InitLogger initializes the global zap logger for the given environment.
// Production gets JSON output, everything else gets the colored console encoder.
func InitLogger(env string) {
	var cfg zap.Config

	if env == "production" {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "timestamp"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		cfg.OutputPaths = []string{"stdout"}
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	var err error
	logger, err = cfg.Build()
	if err != nil {
		panic(err)
	}
}

// Logger returns the global logger, initializing a default one if needed.
func Logger() *zap.Logger {
	if logger == nil {
		InitLogger(os.Getenv("GO_ENV"))
	}
	return logger
}

// SyncLogger flushes buffered log entries. Called on shutdown.
func SyncLogger() {
	if logger != nil {
		_ = logger.Sync()
	}
}
