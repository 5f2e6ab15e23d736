// Package logger builds the shared zap logger.
package logger

import (
	"go.uber.org/zap"
)

// LoggerConfig controls logger construction.
type LoggerConfig struct {
	// Debug enables development encoding and debug-level output.
	Debug bool
}

// NewLogger creates a zap logger. Production JSON encoding by default,
// human-readable development encoding when Debug is set.
func NewLogger(cfg *LoggerConfig) (*zap.Logger, error) {
	if cfg != nil && cfg.Debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
