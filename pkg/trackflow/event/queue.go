package event

import (
	"context"
	"sync"
	"time"
)

// Queue is the FIFO between the worker and the pump. With a positive limit,
// a full queue drops its oldest non-command event to make room; command
// completions are never dropped. Safe for concurrent use.
type Queue struct {
	mu      sync.Mutex
	items   []Event
	limit   int
	dropped uint64
	notify  chan struct{}
}

// NewQueue creates a queue. A limit <= 0 means unbounded.
func NewQueue(limit int) *Queue {
	return &Queue{limit: limit, notify: make(chan struct{}, 1)}
}

// Push appends e and wakes a waiting pump.
func (q *Queue) Push(e Event) {
	q.mu.Lock()
	if q.limit > 0 && len(q.items) >= q.limit {
		q.dropOldestLocked()
	}
	q.items = append(q.items, e)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

func (q *Queue) dropOldestLocked() {
	for i, e := range q.items {
		if e.Channel() != ChannelCommand {
			q.items = append(q.items[:i], q.items[i+1:]...)
			q.dropped++
			return
		}
	}
}

// Drain removes and returns every queued event.
func (q *Queue) Drain() []Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.items
	q.items = nil
	return out
}

// Len returns the number of queued events.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Dropped returns how many events were discarded because the queue was full.
func (q *Queue) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

// Wait blocks until an event is queued, the timeout elapses or ctx ends.
// It reports whether events are available.
func (q *Queue) Wait(ctx context.Context, timeout time.Duration) bool {
	if q.Len() > 0 {
		return true
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		select {
		case <-q.notify:
			if q.Len() > 0 {
				return true
			}
		case <-timer.C:
			return q.Len() > 0
		case <-ctx.Done():
			return q.Len() > 0
		}
	}
}
