package trackflow

import (
	"context"
	"fmt"
	"time"

	"github.com/randalmurphal/trackflow/pkg/trackflow/command"
	"github.com/randalmurphal/trackflow/pkg/trackflow/dataset"
	"github.com/randalmurphal/trackflow/pkg/trackflow/event"
	"github.com/randalmurphal/trackflow/pkg/trackflow/observability"
)

// AddListener registers fn for events on ch matching scope. Listeners are
// only called from PollEvents and WaitEvents, on the calling goroutine.
func (w *Worker) AddListener(ch event.Channel, scope event.Scope, fn event.Listener) event.Token {
	return w.listeners.Add(ch, scope, fn)
}

// RemoveListener removes one registration. It reports false for unknown
// tokens.
func (w *Worker) RemoveListener(tok event.Token) bool {
	return w.listeners.Remove(tok)
}

// ClearListeners removes every listener. Events still queued are delivered
// to the listeners registered when they are polled.
func (w *Worker) ClearListeners() {
	w.listeners.Clear()
}

// OnImage registers fn for image updates.
func (w *Worker) OnImage(scope event.Scope, fn func(dataset.ImageView)) event.Token {
	return w.AddListener(event.ChannelImage, scope, func(e event.Event) {
		fn(e.Payload.(event.Image).View)
	})
}

// OnExtrinsic registers fn for pose updates.
func (w *Worker) OnExtrinsic(scope event.Scope, fn func(dataset.ExtrinsicView)) event.Token {
	return w.AddListener(event.ChannelExtrinsic, scope, func(e event.Event) {
		fn(e.Payload.(event.Extrinsic).View)
	})
}

// OnIntrinsic registers fn for calibration updates.
func (w *Worker) OnIntrinsic(scope event.Scope, fn func(dataset.IntrinsicView)) event.Token {
	return w.AddListener(event.ChannelIntrinsic, scope, func(e event.Event) {
		fn(e.Payload.(event.Intrinsic).View)
	})
}

// OnTrackingState registers fn for the per-pass tracker states.
func (w *Worker) OnTrackingState(fn func(event.TrackingState)) event.Token {
	return w.AddListener(event.ChannelTrackingState, event.Global(), func(e event.Event) {
		fn(e.Payload.(event.TrackingState))
	})
}

// OnPerformanceInfo registers fn for per-pass timing.
func (w *Worker) OnPerformanceInfo(fn func(event.PerformanceInfo)) event.Token {
	return w.AddListener(event.ChannelPerformanceInfo, event.Global(), func(e event.Event) {
		fn(e.Payload.(event.PerformanceInfo))
	})
}

// OnCommand registers fn for command completions. Use event.Named(name) to
// receive a single command's completions.
func (w *Worker) OnCommand(scope event.Scope, fn func(command.Result)) event.Token {
	return w.AddListener(event.ChannelCommand, scope, func(e event.Event) {
		fn(e.Payload.(event.CommandCompleted).Result)
	})
}

// PollEvents delivers every queued event to the matching listeners and
// returns the number of events delivered. It does not block.
func (w *Worker) PollEvents() int {
	events := w.events.Drain()
	ctx := context.Background()
	perChannel := make(map[event.Channel]int)
	for _, e := range events {
		ch := e.Channel()
		w.listeners.Dispatch(e, func(rec any) {
			observability.LogListenerPanic(w.logger, ch.String(), rec)
		})
		perChannel[ch]++
	}
	for ch, n := range perChannel {
		w.metrics.RecordEvents(ctx, ch.String(), n)
	}
	w.checkDropped(ctx)
	return len(events)
}

func (w *Worker) checkDropped(ctx context.Context) {
	total := w.events.Dropped()
	prev := w.dropped.Swap(total)
	if total > prev {
		observability.LogEventsDropped(w.logger, total)
		w.metrics.RecordDropped(ctx, int(total-prev))
	}
}

// WaitEvents blocks until an event is queued or timeout elapses, then
// polls. A running worker that produced nothing returns ErrWaitTimeout.
func (w *Worker) WaitEvents(timeout time.Duration) (int, error) {
	return w.WaitEventsContext(context.Background(), timeout)
}

// WaitEventsContext is WaitEvents bounded by ctx as well.
func (w *Worker) WaitEventsContext(ctx context.Context, timeout time.Duration) (int, error) {
	if !w.events.Wait(ctx, timeout) {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		if w.State() == StateRunning {
			return 0, fmt.Errorf("%w after %s", ErrWaitTimeout, timeout)
		}
		return 0, nil
	}
	return w.PollEvents(), nil
}

// PendingEvents returns the number of queued, undelivered events.
func (w *Worker) PendingEvents() int { return w.events.Len() }
