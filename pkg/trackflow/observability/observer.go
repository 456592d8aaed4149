package observability

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// ActionObserver reports leaf action executions to metrics, tracing and
// the log. It satisfies action.Observer.
type ActionObserver struct {
	Metrics MetricsRecorder
	Spans   SpanManager
	Logger  *slog.Logger
}

// NewActionObserver creates an observer; nil metrics or spans fall back to
// the no-op implementations.
func NewActionObserver(m MetricsRecorder, s SpanManager, logger *slog.Logger) *ActionObserver {
	if m == nil {
		m = NoopMetrics{}
	}
	if s == nil {
		s = NoopSpanManager{}
	}
	return &ActionObserver{Metrics: m, Spans: s, Logger: logger}
}

// ActionStarted opens the action span.
func (o *ActionObserver) ActionStarted(ctx context.Context, node string) context.Context {
	ctx, _ = o.Spans.StartActionSpan(ctx, node)
	if o.Logger != nil {
		o.Logger.Debug("action starting", slog.String("node_id", node))
	}
	return ctx
}

// ActionFinished records the execution and closes the span opened by
// ActionStarted.
func (o *ActionObserver) ActionFinished(ctx context.Context, node string, d time.Duration, err error) {
	o.Metrics.RecordAction(ctx, node, d, err)
	o.Spans.EndSpanWithError(trace.SpanFromContext(ctx), err)
	if err != nil && o.Logger != nil {
		o.Logger.Warn("action failed",
			slog.String("node_id", node),
			slog.String("error", err.Error()),
		)
	}
}
