package logging

import (
	"context"
)

type contextKey string

const (
	loggerKey    contextKey = "logger"
	requestIDKey contextKey = "request_id"
	runIDKey     contextKey = "run_id"
)

// WithLogger stores logger in ctx.
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext returns the logger stored in ctx, or the global logger.
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(loggerKey).(*Logger); ok {
		return logger
	}
	return global
}

// WithRequestID stores the HTTP request id in ctx.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// WithRunID stores a forecast run id in ctx.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

// RequestID returns the request id stored in ctx, if any.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

func contextFields(ctx context.Context) []interface{} {
	var kv []interface{}
	if id, ok := ctx.Value(requestIDKey).(string); ok && id != "" {
		kv = append(kv, "request_id", id)
	}
	if id, ok := ctx.Value(runIDKey).(string); ok && id != "" {
		kv = append(kv, "run_id", id)
	}
	return kv
}

// Ctx returns the logger from ctx enriched with the ids ctx carries.
func Ctx(ctx context.Context) *Logger {
	return FromContext(ctx).WithContext(ctx)
}
