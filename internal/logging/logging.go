// Package logging provides the shared zerolog setup used by the sccp and
// iax2 packages, mirroring the rotation setup of the monitoring pack's
// internal/logger package.
package logging

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config controls where and how component loggers write.
type Config struct {
	Path       string // empty means stderr
	Level      string // zerolog level name, defaults to "info"
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

var (
	mu      sync.Mutex
	root    zerolog.Logger
	rootSet bool
)

// Configure installs the process-wide sink used by Component. Safe to call
// more than once; the last call wins.
func Configure(cfg Config) {
	mu.Lock()
	defer mu.Unlock()

	var w io.Writer = os.Stderr
	if cfg.Path != "" {
		w = &lumberjack.Logger{
			Filename:   cfg.Path,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano
	lvl, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	root = zerolog.New(w).With().Timestamp().Logger().Level(lvl)
	rootSet = true
}

// Component returns a logger tagged with the given subsystem name
// ("sccp", "mgmt", "iax2", ...). Configure may be called later; Component
// falls back to an stderr logger at info level until it is.
func Component(name string) zerolog.Logger {
	mu.Lock()
	defer mu.Unlock()
	if !rootSet {
		root = zerolog.New(os.Stderr).With().Timestamp().Logger().Level(zerolog.InfoLevel)
		rootSet = true
	}
	return root.With().Str("component", name).Logger()
}
