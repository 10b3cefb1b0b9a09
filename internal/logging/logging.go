// Package logging owns the process-wide structured logger. It mirrors the
// single global *slog.Logger pattern used throughout this codebase so every
// package can log without threading a logger through every constructor.
package logging

import (
	"io"
	"log/slog"
	"os"
	"sync/atomic"
)

var global atomic.Pointer[slog.Logger]

func init() {
	global.Store(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})))
}

// L returns the current global logger.
func L() *slog.Logger { return global.Load() }

// Set replaces the global logger. A nil argument is ignored.
func Set(l *slog.Logger) {
	if l != nil {
		global.Store(l)
	}
}

// New builds a logger with the given format ("json" or anything else for
// text), level, and destination (os.Stderr if w is nil).
func New(format string, level slog.Leveler, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	if format == "json" {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h)
}

// Component returns a logger scoped with a "component" attribute, used by
// the focus manager, router, and connection handler so a single grep isolates
// one subsystem's lines.
func Component(name string) *slog.Logger {
	return L().With("component", name)
}

// LevelFromString maps the CLI/env level name to a slog.Level, defaulting to
// Info for anything unrecognized.
func LevelFromString(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
