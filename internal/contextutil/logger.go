package contextutil

import (
	"context"
	"log/slog"
)

type contextKey string

const (
	loggerKey    contextKey = "logger"
	sessionIDKey contextKey = "session_id"
)

// LoggerFromContext extracts a logger from context if available, otherwise returns the default logger.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	if ctxLogger := ctx.Value(loggerKey); ctxLogger != nil {
		if l, ok := ctxLogger.(*slog.Logger); ok {
			return l
		}
	}
	return slog.Default()
}

// WithLogger returns a copy of ctx carrying logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// WithSession attaches the session ID to ctx and enriches the context logger with it,
// so every component logging through LoggerFromContext reports the owning session.
func WithSession(ctx context.Context, sessionID string) context.Context {
	logger := LoggerFromContext(ctx).With("session_id", sessionID)
	ctx = context.WithValue(ctx, sessionIDKey, sessionID)
	return WithLogger(ctx, logger)
}

// SessionIDFromContext returns the session ID stored by WithSession, or "".
func SessionIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(sessionIDKey).(string); ok {
		return v
	}
	return ""
}
