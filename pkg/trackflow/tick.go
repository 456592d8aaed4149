package trackflow

import (
	"context"
	"time"

	"github.com/randalmurphal/trackflow/pkg/trackflow/action"
	"github.com/randalmurphal/trackflow/pkg/trackflow/event"
	"github.com/randalmurphal/trackflow/pkg/trackflow/observability"
)

func msOf(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// runPass executes the graph once, publishes a snapshot and queues the data,
// state and performance events of the pass. A failed pass is reported and
// the worker keeps running.
func (w *Worker) runPass(ctx context.Context) {
	w.once = false
	g, store := w.graph, w.store
	if g == nil {
		return
	}
	tick := w.ticks.Add(1)
	ctx, span := w.spans.StartTickSpan(ctx, w.id, tick)

	start := time.Now()
	err := g.Apply(ctx, store, action.WithObserver(w.observer), action.WithLogger(w.logger))
	d := time.Since(start)

	w.spans.EndSpanWithError(span, err)
	w.metrics.RecordTick(ctx, d, err)
	if err != nil {
		observability.LogTickError(w.logger, tick, err)
	} else {
		observability.LogTickComplete(w.logger, tick, msOf(d))
	}

	snap := newSnapshot(g, store, tick, d)
	w.snapshot.Store(snap)

	for _, e := range snap.dataEvents() {
		w.events.Push(e)
	}
	w.events.Push(event.New(event.Global(), event.TrackingState{Objects: snap.States}))
	perf := event.PerformanceInfo{Tick: tick, LastFrameTime: d}
	if err != nil {
		perf.Error = err.Error()
	}
	w.events.Push(event.New(event.Global(), perf))
}

// Snapshot returns the result of the last completed pass, or nil before
// the first one.
func (w *Worker) Snapshot() *Snapshot {
	return w.snapshot.Load()
}
