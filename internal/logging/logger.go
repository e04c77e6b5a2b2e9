// Package logging provides zap logger helpers.
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// FallbackLevel is used when the requested level is not recognised.
const FallbackLevel = zapcore.InfoLevel

// ParseLevel maps DEBUG, INFO, WARNING (or WARN) and ERROR, in any case, to a
// zap level. ok is false for anything else.
func ParseLevel(name string) (level zapcore.Level, ok bool) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEBUG":
		return zapcore.DebugLevel, true
	case "", "INFO":
		return zapcore.InfoLevel, true
	case "WARNING", "WARN":
		return zapcore.WarnLevel, true
	case "ERROR":
		return zapcore.ErrorLevel, true
	default:
		return FallbackLevel, false
	}
}

// New builds a zap.Logger configured for development or production at the
// named level. An unknown level falls back to INFO and is reported on the
// returned logger.
func New(level string, development bool) (*zap.Logger, error) {
	lvl, ok := ParseLevel(level)

	var cfg zap.Config
	if development {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
		cfg.DisableStacktrace = false
	}
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	if !ok {
		logger.Warn("Unknown log level; falling back",
			zap.String("event", "invalid_log_level"),
			zap.String("requested", level),
			zap.String("using", FallbackLevel.CapitalString()),
		)
	}
	return logger, nil
}
