package trackflow

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/randalmurphal/trackflow/pkg/trackflow/command"
	"github.com/randalmurphal/trackflow/pkg/trackflow/dataset"
)

// Thread is a client goroutine registered to drive a worker: run
// synchronous steps, read images and pump events. A Thread becomes unusable
// after Unregister.
type Thread struct {
	w  *Worker
	id string
}

// RegisterThread returns a new handle for the calling client goroutine.
func (w *Worker) RegisterThread() *Thread {
	t := &Thread{w: w, id: uuid.NewString()}
	w.threadsMu.Lock()
	w.threads[t.id] = struct{}{}
	w.threadsMu.Unlock()
	return t
}

// UnregisterThread invalidates t. It reports false when t was not
// registered with w.
func (w *Worker) UnregisterThread(t *Thread) bool {
	if t == nil || t.w != w {
		return false
	}
	w.threadsMu.Lock()
	defer w.threadsMu.Unlock()
	if _, ok := w.threads[t.id]; !ok {
		return false
	}
	delete(w.threads, t.id)
	return true
}

// ID returns the handle identifier.
func (t *Thread) ID() string { return t.id }

// Registered reports whether the handle is still valid.
func (t *Thread) Registered() bool {
	t.w.threadsMu.Lock()
	defer t.w.threadsMu.Unlock()
	_, ok := t.w.threads[t.id]
	return ok
}

// Unregister invalidates the handle.
func (t *Thread) Unregister() bool {
	return t.w.UnregisterThread(t)
}

func (t *Thread) check() error {
	if !t.Registered() {
		return ErrThreadNotRegistered
	}
	return nil
}

// RunOnceSync is Worker.RunOnceSync for a registered thread.
func (t *Thread) RunOnceSync(ctx context.Context) error {
	if err := t.check(); err != nil {
		return err
	}
	return t.w.RunOnceSync(ctx)
}

// ProcessCommandSync is Worker.ProcessCommandSync for a registered thread.
func (t *Thread) ProcessCommandSync(ctx context.Context, c *command.Command) error {
	if err := t.check(); err != nil {
		return err
	}
	return t.w.ProcessCommandSync(ctx, c)
}

// ImageSync is Worker.ImageSync for a registered thread.
func (t *Thread) ImageSync() (dataset.ImageView, error) {
	if err := t.check(); err != nil {
		return dataset.ImageView{}, err
	}
	return t.w.ImageSync()
}

// ImageByNameSync is Worker.ImageByNameSync for a registered thread.
func (t *Thread) ImageByNameSync(path string) (dataset.ImageView, error) {
	if err := t.check(); err != nil {
		return dataset.ImageView{}, err
	}
	return t.w.ImageByNameSync(path)
}

// ImageFromNodeSync is Worker.ImageFromNodeSync for a registered thread.
func (t *Thread) ImageFromNodeSync(node, key string) (dataset.ImageView, error) {
	if err := t.check(); err != nil {
		return dataset.ImageView{}, err
	}
	return t.w.ImageFromNodeSync(node, key)
}

// PollEvents is Worker.PollEvents for a registered thread.
func (t *Thread) PollEvents() (int, error) {
	if err := t.check(); err != nil {
		return 0, err
	}
	return t.w.PollEvents(), nil
}

// WaitEvents is Worker.WaitEvents for a registered thread.
func (t *Thread) WaitEvents(timeout time.Duration) (int, error) {
	if err := t.check(); err != nil {
		return 0, err
	}
	return t.w.WaitEvents(timeout)
}
