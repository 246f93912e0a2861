// Package logging builds the structured logger shared by the commands and engines.
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// New returns a zap logger writing to stderr. debug selects the human-readable
// development encoder and forces the debug level; otherwise logs are JSON at level.
func New(level string, debug bool) (*zap.Logger, error) {
	if debug {
		cfg := zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
		return cfg.Build()
	}
	lvl := strings.TrimSpace(level)
	if lvl == "" {
		lvl = "info"
	}
	al, err := zap.ParseAtomicLevel(strings.ToLower(lvl))
	if err != nil {
		return nil, fmt.Errorf("invalid log_level %q: %w", level, err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = al
	cfg.DisableCaller = true
	cfg.Sampling = nil
	return cfg.Build()
}
