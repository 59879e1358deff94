// Package logger builds slog.Loggers from the logging config values.
package logger

import (
	"io"
	"log/slog"
	"os"
)

// New returns a *slog.Logger writing to stderr with the given level
// ("debug", "info", "warn", "error") and format ("text" or "json").
// Unrecognized values fall back to info/text.
func New(level, format string) *slog.Logger {
	return NewWithWriter(os.Stderr, level, format)
}

// NewWithWriter is New with an explicit output writer, for tests.
func NewWithWriter(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var h slog.Handler
	switch format {
	case "json":
		h = slog.NewJSONHandler(w, opts)
	default:
		h = slog.NewTextHandler(w, opts)
	}

	return slog.New(h)
}

// Setup builds a logger via New and installs it as the slog default, so
// that library code logging through slog.Default ends up on the same
// handler. It returns the logger for explicit injection.
func Setup(level, format string) *slog.Logger {
	log := New(level, format)
	slog.SetDefault(log)
	return log
}

// ParseLevel maps a level string to a slog.Level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch level {
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
