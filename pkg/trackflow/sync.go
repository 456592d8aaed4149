package trackflow

import (
	"context"
	"fmt"

	"github.com/randalmurphal/trackflow/pkg/trackflow/command"
	"github.com/randalmurphal/trackflow/pkg/trackflow/dataset"
	"github.com/randalmurphal/trackflow/pkg/trackflow/keypath"
)

func (w *Worker) checkSync() error {
	if w.mode != ModeSync {
		return ErrNotSync
	}
	if w.closed.Load() {
		return ErrWorkerClosed
	}
	if !w.State().Started() {
		return ErrNotStarted
	}
	return nil
}

// RunOnceSync processes the commands queued at call time, then runs one
// pass when a configuration is loaded and tracking is running or a
// runTrackingOnce is pending. The target frame rate does not apply.
func (w *Worker) RunOnceSync(ctx context.Context) error {
	if err := w.checkSync(); err != nil {
		return err
	}
	w.stepMu.Lock()
	defer w.stepMu.Unlock()

	for _, c := range w.commands.Snapshot() {
		if err := ctx.Err(); err != nil {
			return err
		}
		w.process(ctx, c)
	}
	if w.wantsPass() {
		w.runPass(ctx)
	}
	return nil
}

// ProcessCommandSync executes c immediately, bypassing the queue. Its
// completion is still delivered by the event pump.
func (w *Worker) ProcessCommandSync(ctx context.Context, c *command.Command) error {
	if err := w.checkSync(); err != nil {
		return err
	}
	w.stepMu.Lock()
	defer w.stepMu.Unlock()
	w.process(ctx, c)
	return nil
}

func (w *Worker) lastSnapshot() (*Snapshot, error) {
	s := w.snapshot.Load()
	if s == nil {
		return nil, ErrNoSnapshot
	}
	return s, nil
}

// ImageSync returns the image of the first device after the last pass.
func (w *Worker) ImageSync() (dataset.ImageView, error) {
	s, err := w.lastSnapshot()
	if err != nil {
		return dataset.ImageView{}, err
	}
	if len(s.Devices) == 0 {
		return dataset.ImageView{}, fmt.Errorf("%w: no device", ErrNoSnapshot)
	}
	return s.Image(keypath.Join(s.Devices[0], "image"))
}

// ImageByNameSync returns the image at a store path such as
// "camera0.image" after the last pass.
func (w *Worker) ImageByNameSync(path string) (dataset.ImageView, error) {
	s, err := w.lastSnapshot()
	if err != nil {
		return dataset.ImageView{}, err
	}
	return s.Image(path)
}

// ImageFromNodeSync returns the image output key of node after the last
// pass.
func (w *Worker) ImageFromNodeSync(node, key string) (dataset.ImageView, error) {
	return w.ImageByNameSync(keypath.Join(node, key))
}
