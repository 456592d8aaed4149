package trackflow

import (
	"strings"
	"time"

	"github.com/randalmurphal/trackflow/pkg/trackflow/action"
	"github.com/randalmurphal/trackflow/pkg/trackflow/dataset"
	"github.com/randalmurphal/trackflow/pkg/trackflow/event"
	"github.com/randalmurphal/trackflow/pkg/trackflow/keypath"
)

// Snapshot is the immutable result of one completed pass. Views obtained
// from it stay valid after later passes.
type Snapshot struct {
	Tick      uint64
	Time      time.Time
	FrameTime time.Duration
	States    []event.ObjectState
	// Devices lists the device keys in declaration order.
	Devices []string

	store *dataset.Store
}

func newSnapshot(g *action.Graph, store *dataset.Store, tick uint64, frameTime time.Duration) *Snapshot {
	s := &Snapshot{
		Tick:      tick,
		Time:      time.Now(),
		FrameTime: frameTime,
		States:    trackerStates(g, store),
		store:     store.Clone(),
	}
	for _, id := range g.Devices() {
		s.Devices = append(s.Devices, g.Key(id))
	}
	return s
}

// Image returns a view of the image at path.
func (s *Snapshot) Image(path string) (dataset.ImageView, error) {
	img, err := s.store.Image(path)
	if err != nil {
		return dataset.ImageView{}, err
	}
	return img.View(), nil
}

// Extrinsic returns a view of the pose at path.
func (s *Snapshot) Extrinsic(path string) (dataset.ExtrinsicView, error) {
	e, err := s.store.Extrinsic(path)
	if err != nil {
		return dataset.ExtrinsicView{}, err
	}
	return e.View(), nil
}

// Intrinsic returns a view of the calibration at path.
func (s *Snapshot) Intrinsic(path string) (dataset.IntrinsicView, error) {
	in, err := s.store.Intrinsic(path)
	if err != nil {
		return dataset.IntrinsicView{}, err
	}
	return in.View(), nil
}

// Value returns a DataBase field, e.g. Value("tracker0.state", "state").
func (s *Snapshot) Value(path, field string) (string, bool) {
	db, err := s.store.DataBase(path)
	if err != nil {
		return "", false
	}
	return db.Get(field)
}

// State returns the tracking state of a tracker, or "" if unknown.
func (s *Snapshot) State(tracker string) string {
	for _, o := range s.States {
		if o.Name == tracker {
			return o.State
		}
	}
	return ""
}

// trackerStates reads the "state" output of every tracker.
func trackerStates(g *action.Graph, store *dataset.Store) []event.ObjectState {
	trackers := g.Trackers()
	states := make([]event.ObjectState, 0, len(trackers))
	for _, id := range trackers {
		st := action.StateLost
		if db, err := store.DataBase(keypath.Join(g.Key(id), "state")); err == nil {
			if v, ok := db.Get("state"); ok {
				st = v
			}
		}
		states = append(states, event.ObjectState{Name: g.Key(id), State: st})
	}
	return states
}

// dataEvents builds one event per image, pose and calibration cell of the
// snapshot, scoped to the cell's node and key.
func (s *Snapshot) dataEvents() []event.Event {
	var out []event.Event
	_ = s.store.Walk(func(path string, d dataset.Data) error {
		node, key := splitCellPath(path)
		scope := event.NodeData(node, key)
		switch c := d.(type) {
		case *dataset.Image:
			out = append(out, event.New(scope, event.Image{View: c.View()}))
		case *dataset.ExtrinsicData:
			out = append(out, event.New(scope, event.Extrinsic{View: c.View()}))
		case *dataset.IntrinsicData:
			out = append(out, event.New(scope, event.Intrinsic{View: c.View()}))
		}
		return nil
	})
	return out
}

func splitCellPath(path string) (node, key string) {
	i := strings.LastIndex(path, keypath.Separator)
	if i < 0 {
		return "", path
	}
	return path[:i], path[i+1:]
}
