// internal/logger/logger.go
package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/SinaHo/fyra-signin-backend/internal/config"
)

// NewLogger builds a json (production) or console (development) zap logger.
func NewLogger(levelStr, format string) (*zap.Logger, error) {
	var cfg zap.Config
	switch format {
	case "json":
		cfg = zap.NewProductionConfig()
	case "console", "":
		cfg = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("invalid log format %q", format)
	}

	lvl := zapcore.InfoLevel
	if levelStr != "" {
		if err := lvl.UnmarshalText([]byte(levelStr)); err != nil {
			return nil, fmt.Errorf("invalid log level: %w", err)
		}
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	return cfg.Build(zap.AddCaller())
}

// FromConfig builds the service logger from the logging section.
func FromConfig(cfg config.LoggingConfig) (*zap.Logger, error) {
	l, err := NewLogger(cfg.Level, cfg.Format)
	if err != nil {
		return nil, err
	}
	return l.Named("signin"), nil
}

// Sugar is a convenience wrapper
func NewSugar(levelStr, format string) (*zap.SugaredLogger, error) {
	base, err := NewLogger(levelStr, format)
	if err != nil {
		return nil, err
	}
	return base.Sugar(), nil
}
