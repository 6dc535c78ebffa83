package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type contextKey string

const (
	loggerKey  contextKey = "logger"
	orderIDKey contextKey = "order_id"
	jobIDKey   contextKey = "job_id"
)

// WithContext returns a new context with the logger attached
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext retrieves the logger from context, or a no-op logger if none is attached
func FromContext(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(loggerKey).(*zap.Logger); ok {
		return logger
	}
	return zap.NewNop()
}

// WithOrderID adds the order ID to the context and returns the enriched logger
func WithOrderID(ctx context.Context, logger *zap.Logger, orderID string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, orderIDKey, orderID)
	enriched := logger.With(zap.String("order_id", orderID))
	return WithContext(ctx, enriched), enriched
}

// WithJobID adds the deduction job ID to the context and returns the enriched logger
func WithJobID(ctx context.Context, logger *zap.Logger, jobID string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, jobIDKey, jobID)
	enriched := logger.With(zap.String("job_id", jobID))
	return WithContext(ctx, enriched), enriched
}

// GetOrderID retrieves the order ID from context
func GetOrderID(ctx context.Context) string {
	if id, ok := ctx.Value(orderIDKey).(string); ok {
		return id
	}
	return ""
}

// GetJobID retrieves the deduction job ID from context
func GetJobID(ctx context.Context) string {
	if id, ok := ctx.Value(jobIDKey).(string); ok {
		return id
	}
	return ""
}

// ContextLogger injects trace_id and span_id from the active span into every entry.
type ContextLogger struct {
	ctx    context.Context
	logger *zap.Logger
}

// L returns a ContextLogger for the logger attached to ctx.
// Usage: logger.L(ctx).Info("message", zap.String("key", "value"))
func L(ctx context.Context) *ContextLogger {
	return &ContextLogger{ctx: ctx, logger: FromContext(ctx)}
}

func (cl *ContextLogger) enriched() *zap.Logger {
	l := cl.logger
	if l == nil {
		l = zap.NewNop()
	}
	spanCtx := trace.SpanContextFromContext(cl.ctx)
	if spanCtx.IsValid() {
		l = l.With(
			zap.String("trace_id", spanCtx.TraceID().String()),
			zap.String("span_id", spanCtx.SpanID().String()),
		)
	}
	return l
}

// With creates a child ContextLogger with additional fields.
func (cl *ContextLogger) With(fields ...zap.Field) *ContextLogger {
	return &ContextLogger{ctx: cl.ctx, logger: cl.enriched().With(fields...)}
}

// Debug logs a debug level message with trace context.
func (cl *ContextLogger) Debug(msg string, fields ...zap.Field) {
	cl.enriched().Debug(msg, fields...)
}

// Info logs an info level message with trace context.
func (cl *ContextLogger) Info(msg string, fields ...zap.Field) {
	cl.enriched().Info(msg, fields...)
}

// Warn logs a warning level message with trace context.
func (cl *ContextLogger) Warn(msg string, fields ...zap.Field) {
	cl.enriched().Warn(msg, fields...)
}

// Error logs an error level message with trace context.
func (cl *ContextLogger) Error(msg string, fields ...zap.Field) {
	cl.enriched().Error(msg, fields...)
}

// Zap returns the underlying zap.Logger enriched with trace context.
func (cl *ContextLogger) Zap() *zap.Logger {
	return cl.enriched()
}
