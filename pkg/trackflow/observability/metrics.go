package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ScopeName is the instrumentation scope of trackflow meters and tracers.
const ScopeName = "github.com/randalmurphal/trackflow"

// MetricsRecorder records worker metrics.
// Use NewMetricsRecorder for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordTick records one graph pass.
	RecordTick(ctx context.Context, duration time.Duration, err error)

	// RecordAction records one leaf action execution.
	RecordAction(ctx context.Context, nodeID string, duration time.Duration, err error)

	// RecordCommand records one processed command.
	RecordCommand(ctx context.Context, name string, duration time.Duration, err error)

	// RecordEvents records events handed to listeners on a channel.
	RecordEvents(ctx context.Context, channel string, delivered int)

	// RecordDropped records events discarded by a full event queue.
	RecordDropped(ctx context.Context, n int)
}

type otelMetrics struct {
	ticks          metric.Int64Counter
	tickLatency    metric.Float64Histogram
	tickErrors     metric.Int64Counter
	actions        metric.Int64Counter
	actionLatency  metric.Float64Histogram
	actionErrors   metric.Int64Counter
	commands       metric.Int64Counter
	commandLatency metric.Float64Histogram
	events         metric.Int64Counter
	dropped        metric.Int64Counter
}

// NewMetricsRecorder creates an OTel recorder on mp, or on the global
// meter provider when mp is nil.
func NewMetricsRecorder(mp metric.MeterProvider) (MetricsRecorder, error) {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(ScopeName)
	m := &otelMetrics{}

	var err error
	counter := func(dst *metric.Int64Counter, name, desc string) {
		if err != nil {
			return
		}
		*dst, err = meter.Int64Counter(name, metric.WithDescription(desc))
	}
	histogram := func(dst *metric.Float64Histogram, name, desc string) {
		if err != nil {
			return
		}
		*dst, err = meter.Float64Histogram(name, metric.WithDescription(desc), metric.WithUnit("ms"))
	}

	counter(&m.ticks, "trackflow.tick.count", "Number of graph passes")
	histogram(&m.tickLatency, "trackflow.tick.latency_ms", "Graph pass latency in milliseconds")
	counter(&m.tickErrors, "trackflow.tick.errors", "Number of failed graph passes")
	counter(&m.actions, "trackflow.action.executions", "Number of leaf action executions")
	histogram(&m.actionLatency, "trackflow.action.latency_ms", "Leaf action latency in milliseconds")
	counter(&m.actionErrors, "trackflow.action.errors", "Number of leaf action errors")
	counter(&m.commands, "trackflow.command.count", "Number of processed commands")
	histogram(&m.commandLatency, "trackflow.command.latency_ms", "Command latency in milliseconds")
	counter(&m.events, "trackflow.event.delivered", "Number of listener invocations")
	counter(&m.dropped, "trackflow.event.dropped", "Number of events dropped by a full queue")
	if err != nil {
		return nil, err
	}
	return m, nil
}

func ms(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}

func (m *otelMetrics) RecordTick(ctx context.Context, duration time.Duration, err error) {
	attrs := metric.WithAttributes(attribute.Bool("success", err == nil))
	m.ticks.Add(ctx, 1, attrs)
	m.tickLatency.Record(ctx, ms(duration), attrs)
	if err != nil {
		m.tickErrors.Add(ctx, 1)
	}
}

func (m *otelMetrics) RecordAction(ctx context.Context, nodeID string, duration time.Duration, err error) {
	attrs := metric.WithAttributes(attribute.String("node_id", nodeID))
	m.actions.Add(ctx, 1, attrs)
	m.actionLatency.Record(ctx, ms(duration), attrs)
	if err != nil {
		m.actionErrors.Add(ctx, 1, attrs)
	}
}

func (m *otelMetrics) RecordCommand(ctx context.Context, name string, duration time.Duration, err error) {
	attrs := metric.WithAttributes(
		attribute.String("command", name),
		attribute.Bool("success", err == nil),
	)
	m.commands.Add(ctx, 1, attrs)
	m.commandLatency.Record(ctx, ms(duration), attrs)
}

func (m *otelMetrics) RecordEvents(ctx context.Context, channel string, delivered int) {
	if delivered == 0 {
		return
	}
	m.events.Add(ctx, int64(delivered), metric.WithAttributes(attribute.String("channel", channel)))
}

func (m *otelMetrics) RecordDropped(ctx context.Context, n int) {
	if n <= 0 {
		return
	}
	m.dropped.Add(ctx, int64(n))
}
