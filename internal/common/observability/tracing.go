package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// NewTracing returns an Observability that only records spans, handing
// them to the given processors. Metrics are not set up.
func NewTracing(serviceName string, processors ...sdktrace.SpanProcessor) *Observability {
	o := &Observability{}
	o.initTracing(serviceName, processors...)
	return o
}

func (o *Observability) initTracing(serviceName string, processors ...sdktrace.SpanProcessor) {
	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", serviceName),
		)),
	}
	for _, p := range processors {
		opts = append(opts, sdktrace.WithSpanProcessor(p))
	}

	o.tracerProvider = sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(o.tracerProvider)
	o.tracer = o.tracerProvider.Tracer(serviceName)
}

// StartSpan starts a span, or returns the span already in ctx (a no-op one
// by default) when tracing is not configured.
func (o *Observability) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if o == nil || o.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return o.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// EndSpan records err on span, if any, and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
