package command

import (
	"context"
	"errors"
	"sync"
)

// ErrQueueClosed indicates an operation on a closed queue.
var ErrQueueClosed = errors.New("command queue closed")

// Queue is an unbounded FIFO of commands. Push never blocks; Pop blocks
// until a command is available, the context ends, or the queue is closed.
// Safe for concurrent use.
type Queue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []*Command
	closed bool
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	q := &Queue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push appends c.
func (q *Queue) Push(c *Command) error {
	if c == nil {
		return ErrInvalidCommand
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}
	q.items = append(q.items, c)
	q.cond.Signal()
	return nil
}

func (q *Queue) popLocked() *Command {
	c := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	return c
}

// TryPop removes the oldest command without blocking.
func (q *Queue) TryPop() (*Command, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil, false
	}
	return q.popLocked(), true
}

// Pop removes the oldest command, blocking while the queue is empty.
// Commands still queued when the queue is closed are returned before
// ErrQueueClosed.
func (q *Queue) Pop(ctx context.Context) (*Command, error) {
	stop := context.AfterFunc(ctx, func() {
		q.mu.Lock()
		q.cond.Broadcast()
		q.mu.Unlock()
	})
	defer stop()

	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 {
		if q.closed {
			return nil, ErrQueueClosed
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		q.cond.Wait()
	}
	return q.popLocked(), nil
}

// Snapshot removes and returns exactly the commands queued at call time.
func (q *Queue) Snapshot() []*Command {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.items
	q.items = nil
	return out
}

// Len returns the number of queued commands.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close rejects further pushes and wakes blocked Pop calls.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.cond.Broadcast()
}
