package logging

import (
	"context"

	"go.uber.org/zap"
)

const (
	FieldRequestID = "request_id"
	FieldSessionID = "session"
)

type contextKey int

const (
	requestIDKey contextKey = iota
	sessionIDKey
)

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionIDKey, id)
}

// WithContext decorates logger with identifiers carried by ctx.
func WithContext(ctx context.Context, logger *zap.Logger) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	var fields []zap.Field
	if id, ok := ctx.Value(requestIDKey).(string); ok && id != "" {
		fields = append(fields, zap.String(FieldRequestID, id))
	}
	if id, ok := ctx.Value(sessionIDKey).(string); ok && id != "" {
		fields = append(fields, zap.String(FieldSessionID, id))
	}
	if len(fields) == 0 {
		return logger
	}
	return logger.With(fields...)
}
