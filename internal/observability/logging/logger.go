package logging

import (
	"log/slog"
	"os"
	"strings"
)

var levels = map[string]slog.Level{
	"debug":   slog.LevelDebug,
	"info":    slog.LevelInfo,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
}

// NewJSONLogger builds the shared structured logger. Every record carries the
// emitting service name so api and worker logs can be split downstream.
func NewJSONLogger(service, level string) *slog.Logger {
	parsed, ok := levels[strings.ToLower(strings.TrimSpace(level))]
	if !ok {
		parsed = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parsed})
	return slog.New(handler).With("service", service)
}
