// Package logger provides the structured logger shared by the runtime.
//
// All components accept a *slog.Logger rather than writing to stdout
// directly: the core never prints on its own behalf, it only logs and
// emits events.
package logger

import (
	"log/slog"
	"os"
	"strings"
)

// ParseLevel converts a string log level to slog.Level.
// Valid levels: debug, info, warn, error. Unknown strings fall back to warn.
func ParseLevel(levelStr string) slog.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// New builds a JSON slog.Logger at the given level, writing to stderr.
func New(levelStr string) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: ParseLevel(levelStr),
	})
	return slog.New(handler)
}

// NopLogger returns a logger that discards everything, for components
// that are not given one explicitly.
func NopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discardWriter{}, &slog.HandlerOptions{
		Level: slog.LevelError + 1,
	}))
}

// OrDefault returns l if non-nil, otherwise a no-op logger.
func OrDefault(l *slog.Logger) *slog.Logger {
	if l == nil {
		return NopLogger()
	}
	return l
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }
