// Package logger builds the process logger from config or environment.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

var defaultLogger *slog.Logger

// Setup builds a logger writing to w at the given level ("debug", "info",
// "warn", "error") and format ("text" or "json"). Empty values fall back to
// BENCHMAP_LOG_LEVEL and BENCHMAP_LOG_FORMAT, then to info and text. A nil
// writer means stderr. The result also becomes the default returned by L.
func Setup(level, format string, w io.Writer) *slog.Logger {
	if level == "" {
		level = os.Getenv("BENCHMAP_LOG_LEVEL")
	}
	if format == "" {
		format = os.Getenv("BENCHMAP_LOG_FORMAT")
	}
	if w == nil {
		w = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	var h slog.Handler
	if strings.ToLower(format) == "json" {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}

	defaultLogger = slog.New(h)
	return defaultLogger
}

// ParseLevel maps a level name to a slog level; unknown names are info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// L returns the default logger, setting it up from the environment on first
// use.
func L() *slog.Logger {
	if defaultLogger == nil {
		return Setup("", "", nil)
	}
	return defaultLogger
}
