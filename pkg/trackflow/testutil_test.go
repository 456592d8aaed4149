package trackflow

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/trackflow/pkg/trackflow/command"
	"github.com/randalmurphal/trackflow/pkg/trackflow/event"
)

const trackerJSON = `{
  "version": 1,
  "graph": {
    "devices": [{"name": "camera0", "type": "syntheticCamera", "parameters": {"width": 8, "height": 6}}],
    "trackers": [{"name": "tracker0", "type": "lineModelTracker",
                  "parameters": {"modelURI": "project-dir:model.obj", "initPose": {"t": [0, 0, -2], "q": [0, 0, 0, 1]}}}],
    "connections": [
      {"from": "camera0.image", "to": "tracker0.imageRGB"},
      {"from": "camera0.intrinsic", "to": "tracker0.intrinsic"}
    ]
  }
}`

const posterYAML = `
version: 1
graph:
  devices:
    - name: camera0
      type: syntheticCamera
  trackers:
    - name: poster0
      type: posterTracker
      parameters:
        imageURI: poster.png
  connections:
    - from: camera0.image
      to: poster0.imageRGB
`

// newStartedSync returns a started synchronous worker closed at cleanup.
func newStartedSync(t *testing.T, opts ...Option) *Worker {
	t.Helper()
	w, err := NewSync(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })
	require.NoError(t, w.Start(context.Background()))
	return w
}

func pushFromString(t *testing.T, w *Worker, name, doc, filename string) *command.Command {
	t.Helper()
	c, err := w.Push(name, map[string]string{"str": doc, "fakeFilename": filename})
	require.NoError(t, err)
	return c
}

// loadTracker loads trackerJSON and runs the first pass.
func loadTracker(t *testing.T, w *Worker) {
	t.Helper()
	results := collectResults(w)
	pushFromString(t, w, CmdCreateTrackerFromString, trackerJSON, "tracker.vl")
	require.NoError(t, w.RunOnceSync(context.Background()))
	w.PollEvents()
	require.NotEmpty(t, results.all())
	require.NoError(t, results.all()[0].Err)
	w.RemoveListener(results.token)
}

// step pushes one command, runs a synchronous step and returns the result.
func step(t *testing.T, w *Worker, name string, param any) command.Result {
	t.Helper()
	results := collectResults(w)
	defer w.RemoveListener(results.token)
	_, err := w.Push(name, param)
	require.NoError(t, err)
	require.NoError(t, w.RunOnceSync(context.Background()))
	w.PollEvents()
	got := results.all()
	require.Len(t, got, 1)
	return got[0]
}

type resultLog struct {
	token   event.Token
	mu      sync.Mutex
	results []command.Result
}

func collectResults(w *Worker) *resultLog {
	l := &resultLog{}
	l.token = w.OnCommand(event.Global(), func(r command.Result) {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.results = append(l.results, r)
	})
	return l
}

func (l *resultLog) all() []command.Result {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]command.Result(nil), l.results...)
}

func (l *resultLog) find(name string) (command.Result, bool) {
	for _, r := range l.all() {
		if r.Command.Name() == name {
			return r, true
		}
	}
	return command.Result{}, false
}

func decodeValue(t *testing.T, r command.Result, v any) {
	t.Helper()
	require.NoError(t, r.Err)
	require.NoError(t, json.Unmarshal(r.Value, v))
}
