package tracing

import (
	"context"
	"net/http"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// NATS headers share http.Header's shape, so the stock carrier applies.

func InjectNATSHeaders(ctx context.Context, header nats.Header) {
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(http.Header(header)))
}

func StartSpanFromNATSMessage(ctx context.Context, operationName string, header nats.Header) (context.Context, trace.Span) {
	if header != nil {
		ctx = otel.GetTextMapPropagator().Extract(ctx, propagation.HeaderCarrier(http.Header(header)))
	}
	return GetTracer(brokerTracerName).Start(ctx, operationName, trace.WithSpanKind(trace.SpanKindConsumer))
}
