package oteladapters

import (
	"context"
	"log/slog"

	"github.com/notelab/noteservice/observability"
)

// SlogLogger implements the basic observability.Logger over a *slog.Logger,
// for components that log without a request context (e.g. the store).
type SlogLogger struct {
	logger *slog.Logger
}

// NewSlogLogger creates a basic logger over the given slog.Logger.
func NewSlogLogger(logger *slog.Logger) *SlogLogger {
	return &SlogLogger{logger: logger}
}

// Debug logs a debug message.
func (l *SlogLogger) Debug(msg string, args ...any) {
	l.logger.LogAttrs(context.Background(), slog.LevelDebug, msg, argsToAttrs(args)...)
}

// Info logs an info message.
func (l *SlogLogger) Info(msg string, args ...any) {
	l.logger.LogAttrs(context.Background(), slog.LevelInfo, msg, argsToAttrs(args)...)
}

// Warn logs a warning message.
func (l *SlogLogger) Warn(msg string, args ...any) {
	l.logger.LogAttrs(context.Background(), slog.LevelWarn, msg, argsToAttrs(args)...)
}

// Error logs an error message.
func (l *SlogLogger) Error(msg string, args ...any) {
	l.logger.LogAttrs(context.Background(), slog.LevelError, msg, argsToAttrs(args)...)
}

// argsToAttrs converts slog-style key-value pairs to slog.Attr values.
func argsToAttrs(args []any) []slog.Attr {
	attrs := make([]slog.Attr, 0, len(args)/2)

	for i := 0; i+1 < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			continue
		}

		attrs = append(attrs, slog.Any(key, args[i+1]))
	}

	return attrs
}

// Ensure SlogLogger implements observability.Logger.
var _ observability.Logger = (*SlogLogger)(nil)
