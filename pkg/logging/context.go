package logging

import (
	"context"
)

type contextKey string

const (
	TraceIDKey     contextKey = "trace_id"
	MessageIDKey   contextKey = "message_id"
	ServiceNameKey contextKey = "service_name"
	RoutingKeyKey  contextKey = "routing_key"
	QueueKey       contextKey = "queue"
	RequestIDKey   contextKey = "request_id"
)

// fieldOrder fixes the order context fields appear in log lines.
var fieldOrder = []contextKey{
	TraceIDKey,
	RequestIDKey,
	MessageIDKey,
	RoutingKeyKey,
	QueueKey,
	ServiceNameKey,
}

func with(ctx context.Context, key contextKey, value string) context.Context {
	if value == "" {
		return ctx
	}
	return context.WithValue(ctx, key, value)
}

func get(ctx context.Context, key contextKey) string {
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

func WithTraceID(ctx context.Context, traceID string) context.Context {
	return with(ctx, TraceIDKey, traceID)
}

func WithMessageID(ctx context.Context, messageID string) context.Context {
	return with(ctx, MessageIDKey, messageID)
}

func WithServiceName(ctx context.Context, serviceName string) context.Context {
	return with(ctx, ServiceNameKey, serviceName)
}

func WithRoutingKey(ctx context.Context, routingKey string) context.Context {
	return with(ctx, RoutingKeyKey, routingKey)
}

func WithQueue(ctx context.Context, queue string) context.Context {
	return with(ctx, QueueKey, queue)
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return with(ctx, RequestIDKey, requestID)
}

func GetTraceID(ctx context.Context) string {
	return get(ctx, TraceIDKey)
}

func GetMessageID(ctx context.Context) string {
	return get(ctx, MessageIDKey)
}

func GetServiceName(ctx context.Context) string {
	return get(ctx, ServiceNameKey)
}

func GetRequestID(ctx context.Context) string {
	return get(ctx, RequestIDKey)
}

// GetLogFields returns the context values as zap key/value pairs.
func GetLogFields(ctx context.Context) []interface{} {
	fields := make([]interface{}, 0, len(fieldOrder)*2)
	for _, key := range fieldOrder {
		if v := get(ctx, key); v != "" {
			fields = append(fields, string(key), v)
		}
	}
	return fields
}
