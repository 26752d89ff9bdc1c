package oteladapters

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AntonStoeckl/pluggable-sqlengine-go/sqlengine"
)

var timeNow = time.Now

// TracingCollector implements sqlengine.TracingCollector with an OpenTelemetry tracer.
type TracingCollector struct {
	tracer trace.Tracer
}

// NewTracingCollector creates a collector starting spans on tracer.
func NewTracingCollector(tracer trace.Tracer) *TracingCollector {
	return &TracingCollector{tracer: tracer}
}

// StartSpan starts a client span as a child of the span in ctx.
func (t *TracingCollector) StartSpan(
	ctx context.Context,
	name string,
	attrs map[string]string,
) (context.Context, sqlengine.SpanContext) {
	spanCtx, span := t.tracer.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(stringAttributes(attrs)...),
	)

	return spanCtx, &OTelSpanContext{span: span}
}

// FinishSpan adds attrs, maps status and ends the span. Spans of other collectors are ignored.
func (t *TracingCollector) FinishSpan(spanCtx sqlengine.SpanContext, status string, attrs map[string]string) {
	otelSpanCtx, ok := spanCtx.(*OTelSpanContext)
	if !ok {
		return
	}

	otelSpanCtx.span.SetAttributes(stringAttributes(attrs)...)
	otelSpanCtx.SetStatus(status)
	otelSpanCtx.span.End()
}

var _ sqlengine.TracingCollector = (*TracingCollector)(nil)

// OTelSpanContext implements sqlengine.SpanContext for an OpenTelemetry span.
type OTelSpanContext struct {
	span trace.Span
}

// Span returns the underlying span.
func (s *OTelSpanContext) Span() trace.Span {
	return s.span
}

// SetStatus maps the engine status values to span status codes. Other values are kept as a status attribute.
func (s *OTelSpanContext) SetStatus(status string) {
	switch status {
	case sqlengine.SpanStatusSuccess:
		s.span.SetStatus(codes.Ok, "")
	case sqlengine.SpanStatusError:
		s.span.SetStatus(codes.Error, "operation failed")
	case "timeout":
		s.span.SetStatus(codes.Error, "operation timed out")
	default:
		s.span.SetAttributes(attribute.String("status", status))
	}
}

func (s *OTelSpanContext) AddAttribute(key, value string) {
	s.span.SetAttributes(attribute.String(key, value))
}

var _ sqlengine.SpanContext = (*OTelSpanContext)(nil)

func stringAttributes(attrs map[string]string) []attribute.KeyValue {
	kvs := make([]attribute.KeyValue, 0, len(attrs))
	for key, value := range attrs {
		kvs = append(kvs, attribute.String(key, value))
	}

	return kvs
}
