package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// SpanManager handles trace span lifecycle.
// Use NewSpanManager for OTel tracing or NoopSpanManager{} when disabled.
type SpanManager interface {
	// StartTickSpan starts a span for one graph pass.
	StartTickSpan(ctx context.Context, workerID string, tick uint64) (context.Context, trace.Span)

	// StartActionSpan starts a span for a leaf action, normally a child of
	// the tick span.
	StartActionSpan(ctx context.Context, nodeID string) (context.Context, trace.Span)

	// StartCommandSpan starts a span for one command.
	StartCommandSpan(ctx context.Context, workerID, name string) (context.Context, trace.Span)

	// EndSpanWithError completes a span, optionally recording an error.
	EndSpanWithError(span trace.Span, err error)

	// AddSpanEvent adds an event to the span in ctx.
	AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue)
}

type otelSpanManager struct {
	tracer trace.Tracer
}

// NewSpanManager creates a SpanManager on tp, or on the global tracer
// provider when tp is nil.
func NewSpanManager(tp trace.TracerProvider) SpanManager {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &otelSpanManager{tracer: tp.Tracer(ScopeName)}
}

func (m *otelSpanManager) StartTickSpan(ctx context.Context, workerID string, tick uint64) (context.Context, trace.Span) {
	return m.tracer.Start(ctx, "trackflow.tick",
		trace.WithAttributes(
			attribute.String("worker.id", workerID),
			attribute.Int64("tick", int64(tick)),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

func (m *otelSpanManager) StartActionSpan(ctx context.Context, nodeID string) (context.Context, trace.Span) {
	return m.tracer.Start(ctx, "trackflow.action."+nodeID,
		trace.WithAttributes(attribute.String("node.id", nodeID)),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

func (m *otelSpanManager) StartCommandSpan(ctx context.Context, workerID, name string) (context.Context, trace.Span) {
	return m.tracer.Start(ctx, "trackflow.command."+name,
		trace.WithAttributes(
			attribute.String("worker.id", workerID),
			attribute.String("command.name", name),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

func (m *otelSpanManager) EndSpanWithError(span trace.Span, err error) {
	EndSpanWithError(span, err)
}

func (m *otelSpanManager) AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// EndSpanWithError completes span, recording err when non-nil.
func EndSpanWithError(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
