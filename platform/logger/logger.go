// Package logger provides structured logging infrastructure for the application.
// This is part of the platform layer and contains no business logic.
package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

// Context key types for storing values in context
type contextKey string

const (
	// RequestIDKey is the context key for the enrichment request ID
	RequestIDKey contextKey = "request_id"
	// ContactKeyKey is the context key for the normalized contact key
	ContactKeyKey contextKey = "contact_key"
)

// Logger wraps slog.Logger for structured logging
type Logger struct {
	*slog.Logger
}

// New creates a new logger based on environment
func New(env string) *Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}

	if strings.EqualFold(env, "development") {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithContext returns a logger with context values extracted.
// Supports request_id and contact_key from context.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}

	newLogger := l

	if requestID, ok := ctx.Value(RequestIDKey).(string); ok && requestID != "" {
		newLogger = newLogger.WithRequestID(requestID)
	}

	if contactKey, ok := ctx.Value(ContactKeyKey).(string); ok && contactKey != "" {
		newLogger = &Logger{
			Logger: newLogger.With(slog.String("contact_key", contactKey)),
		}
	}

	return newLogger
}

// WithRequestID returns a logger with request ID
func (l *Logger) WithRequestID(requestID string) *Logger {
	return &Logger{
		Logger: l.With(slog.String("request_id", requestID)),
	}
}

// ProviderError logs a failed upstream provider call.
func (l *Logger) ProviderError(provider, operation string, err error) {
	l.Error("provider_error",
		slog.String("provider", provider),
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	)
}

// ProviderUnavailable logs a provider that was skipped after retries were exhausted.
func (l *Logger) ProviderUnavailable(provider string, err error) {
	l.Warn("provider_unavailable",
		slog.String("provider", provider),
		slog.String("error", err.Error()),
	)
}

// WeakMatch records a candidate that failed the name-match confidence bar.
// Kept at Info so rejected candidates remain auditable.
func (l *Logger) WeakMatch(provider, inputName, candidateName string, score float64) {
	l.Info("weak_match",
		slog.String("provider", provider),
		slog.String("input_name", inputName),
		slog.String("candidate_name", candidateName),
		slog.Float64("score", score),
	)
}

// IdentityResolved logs a successful resolution with its provenance.
func (l *Logger) IdentityResolved(provider, contactKey, method string, score float64) {
	l.Info("identity_resolved",
		slog.String("provider", provider),
		slog.String("contact_key", contactKey),
		slog.String("match_method", method),
		slog.Float64("match_score", score),
	)
}

// DatabaseError logs database errors
func (l *Logger) DatabaseError(operation string, err error) {
	l.Error("database_error",
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	)
}

// CacheFallback logs a backing-store failure that degraded to the local cache.
func (l *Logger) CacheFallback(cacheName, operation string, err error) {
	l.Warn("cache_fallback",
		slog.String("cache", cacheName),
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	)
}
