package logging

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

// Context keys for common log fields.
type contextKey string

const (
	// RequestIDKey is the context key for request IDs.
	RequestIDKey contextKey = "request_id"

	// OperationKey is the context key for operation labels.
	OperationKey contextKey = "operation"

	// FunctionKey is the context key for connector function names.
	FunctionKey contextKey = "function"

	// ModelKey is the context key for CRUD model names.
	ModelKey contextKey = "model"
)

// contextFields lists the keys copied into every record, in output order.
var contextFields = []contextKey{RequestIDKey, OperationKey, FunctionKey, ModelKey}

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	return getString(ctx, RequestIDKey)
}

// WithOperation adds an operation label to the context.
func WithOperation(ctx context.Context, operation string) context.Context {
	return context.WithValue(ctx, OperationKey, operation)
}

// GetOperation retrieves the operation label from the context.
func GetOperation(ctx context.Context) string {
	return getString(ctx, OperationKey)
}

// WithFunction adds a function name to the context.
func WithFunction(ctx context.Context, function string) context.Context {
	return context.WithValue(ctx, FunctionKey, function)
}

// GetFunction retrieves the function name from the context.
func GetFunction(ctx context.Context) string {
	return getString(ctx, FunctionKey)
}

// WithModel adds a model name to the context.
func WithModel(ctx context.Context, model string) context.Context {
	return context.WithValue(ctx, ModelKey, model)
}

// GetModel retrieves the model name from the context.
func GetModel(ctx context.Context) string {
	return getString(ctx, ModelKey)
}

func getString(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

// extractContextFields extracts common fields from context for logging.
// Returns a slice of key-value pairs suitable for logger.With().
func extractContextFields(ctx context.Context) []any {
	var fields []any
	for _, key := range contextFields {
		if v := getString(ctx, key); v != "" {
			fields = append(fields, string(key), v)
		}
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields, "trace_id", sc.TraceID().String())
	}
	return fields
}
