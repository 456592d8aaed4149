package action

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/randalmurphal/trackflow/pkg/trackflow/dataset"
	"github.com/randalmurphal/trackflow/pkg/trackflow/keypath"
	"github.com/randalmurphal/trackflow/pkg/trackflow/registry"
)

// Role classifies leaves for validation and for the worker.
type Role int

const (
	// RoleStage is a processing step that is neither a device nor a tracker.
	RoleStage Role = iota
	// RoleDevice produces images, e.g. a camera.
	RoleDevice
	// RoleTracker estimates a pose.
	RoleTracker
)

// String returns the role name.
func (r Role) String() string {
	switch r {
	case RoleDevice:
		return "device"
	case RoleTracker:
		return "tracker"
	default:
		return "stage"
	}
}

// Leaf is the behaviour of a leaf Action. Init runs once before the first
// Apply in which the node is enabled; Apply runs once per pass.
type Leaf interface {
	Init(ctx context.Context, env *Env) error
	Apply(ctx context.Context, env *Env) error
}

// LeafKind describes a registered leaf type.
type LeafKind struct {
	// Type is the name used in tracking configurations.
	Type string
	Role Role
	// Inputs and Outputs are the declared data keys.
	Inputs  []string
	Outputs []string
	// Attributes holds the default attribute values. Its keys, together
	// with configuration parameters, define the attribute names a node
	// accepts.
	Attributes map[string]string
	New        func() Leaf
}

func (k LeafKind) hasInput(key string) bool {
	for _, in := range k.Inputs {
		if in == key {
			return true
		}
	}
	return false
}

func (k LeafKind) hasOutput(key string) bool {
	for _, out := range k.Outputs {
		if out == key {
			return true
		}
	}
	return false
}

// Kinds maps configuration type names to leaf kinds.
type Kinds = registry.Registry[string, LeafKind]

// NewKinds returns an empty kind table.
func NewKinds() *Kinds {
	return registry.New[string, LeafKind]()
}

// InitPoser is implemented by trackers with a configurable init pose.
type InitPoser interface {
	InitPose() Pose
	SetInitPose(p Pose) error
}

// WorkSpacePoser is implemented by trackers that initialize from a set of
// candidate poses.
type WorkSpacePoser interface {
	WorkSpacePoses() []Pose
	SetWorkSpacePoses(poses []Pose) error
}

// InitDataHolder is implemented by trackers that learn init data while
// tracking.
type InitDataHolder interface {
	InitData() ([]byte, error)
	SetInitData(data []byte) error
	ResetInitData()
}

// Resetter is implemented by leaves with resettable tracking state. A soft
// reset restarts from the init pose; a hard reset also drops learned data.
type Resetter interface {
	Reset(hard bool)
}

// Env is the view of the graph and store given to a leaf.
type Env struct {
	Store  *dataset.Store
	Logger *slog.Logger

	g  *Graph
	id NodeID
}

// Name returns the key of the leaf.
func (e *Env) Name() string {
	return e.g.nodes[e.id].key
}

// InputPath returns the store path bound to an input, if connected.
func (e *Env) InputPath(key string) (string, bool) {
	p, ok := e.g.nodes[e.id].inputs[key]
	return p, ok
}

// OutputPath returns the store path of an output of this leaf.
func (e *Env) OutputPath(key string) string {
	return keypath.Join(e.Name(), key)
}

// Attr returns the current value of an attribute, or "" if unset.
func (e *Env) Attr(name string) string {
	return e.g.nodes[e.id].attrs[name]
}

// IntAttr parses an integer attribute, returning def when unset.
func (e *Env) IntAttr(name string, def int) (int, error) {
	v := e.Attr(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, &AttributeError{Node: e.Name(), Name: name, Err: err}
	}
	return n, nil
}

// FloatAttr parses a float attribute, returning def when unset.
func (e *Env) FloatAttr(name string, def float64) (float64, error) {
	v := e.Attr(name)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, &AttributeError{Node: e.Name(), Name: name, Err: err}
	}
	return f, nil
}
