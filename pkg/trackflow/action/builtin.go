package action

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/randalmurphal/trackflow/pkg/trackflow/dataset"
)

// Built-in leaf type names.
const (
	TypeCamera           = "syntheticCamera"
	TypeLineModelTracker = "lineModelTracker"
	TypePosterTracker    = "posterTracker"
)

// Tracking states written to a tracker's "state" output.
const (
	StateTracked  = "tracked"
	StateCritical = "critical"
	StateLost     = "lost"
)

// Pose is the wire form of an init pose: translation and (x, y, z, w)
// rotation quaternion.
type Pose struct {
	T [3]float64 `json:"t"`
	Q [4]float64 `json:"q"`
}

// IdentityPose is the default init pose.
var IdentityPose = Pose{Q: [4]float64{0, 0, 0, 1}}

// BuiltinKinds returns a kind table holding the synthetic camera and the
// line model and poster trackers.
func BuiltinKinds() *Kinds {
	k := NewKinds()
	k.Register(TypeCamera, CameraKind())
	k.Register(TypeLineModelTracker, TrackerKind(TypeLineModelTracker, "modelURI"))
	k.Register(TypePosterTracker, TrackerKind(TypePosterTracker, "imageURI"))
	return k
}

// CameraKind describes a device producing a synthetic RGBA frame and a
// default calibration on every pass. A width or height of 0 yields an empty
// image, which trackers treat as a lost frame. A calibration set on the
// intrinsic output is kept across size changes; deviceID names the entry
// looked up in calibration databases.
func CameraKind() LeafKind {
	return LeafKind{
		Type:    TypeCamera,
		Role:    RoleDevice,
		Outputs: []string{"image", "intrinsic"},
		Attributes: map[string]string{
			"width":    "64",
			"height":   "48",
			"deviceID": "",
		},
		New: func() Leaf { return &camera{} },
	}
}

type camera struct {
	frame int
}

func (c *camera) Init(_ context.Context, env *Env) error {
	w, h, err := c.size(env)
	if err != nil {
		return err
	}
	img, err := dataset.NewImage(w, h, dataset.FormatRGBA)
	if err != nil {
		return err
	}
	if err := env.Store.Set(env.OutputPath("image"), img); err != nil {
		return err
	}
	return env.Store.Set(env.OutputPath("intrinsic"), dataset.DefaultIntrinsicData(w, h))
}

func (c *camera) size(env *Env) (int, int, error) {
	w, err := env.IntAttr("width", 64)
	if err != nil {
		return 0, 0, err
	}
	h, err := env.IntAttr("height", 48)
	if err != nil {
		return 0, 0, err
	}
	return w, h, nil
}

func (c *camera) Apply(_ context.Context, env *Env) error {
	w, h, err := c.size(env)
	if err != nil {
		return err
	}
	img, err := env.Store.Image(env.OutputPath("image"))
	if err != nil {
		return err
	}
	c.frame++
	pix := make([]byte, w*h*4)
	for i := 0; i < w*h; i++ {
		v := byte((i + c.frame) % 256)
		pix[i*4], pix[i*4+1], pix[i*4+2], pix[i*4+3] = v, v, v, 0xff
	}
	if err := img.CopyFromBufferWithFormat(pix, w, h, dataset.FormatRGBA); err != nil {
		return err
	}
	in, err := env.Store.Intrinsic(env.OutputPath("intrinsic"))
	if err != nil {
		return err
	}
	if in.Width() != w || in.Height() != h {
		if in.Calibrated() {
			in.SetSize(w, h)
		} else {
			*in = *dataset.DefaultIntrinsicData(w, h)
		}
	}
	return nil
}

// TrackerKind describes a synthetic tracker. It reports the init pose as its
// extrinsic output; the pose is valid when the connected input image holds
// pixels. The state is "tracked" when a calibration is connected, "critical"
// when tracking without one and "lost" otherwise. uriAttr names the attribute
// holding the model or image URI.
func TrackerKind(typ, uriAttr string) LeafKind {
	return LeafKind{
		Type:    typ,
		Role:    RoleTracker,
		Inputs:  []string{"imageRGB", "intrinsic"},
		Outputs: []string{"extrinsic", "intrinsic", "state"},
		Attributes: map[string]string{
			uriAttr:    "",
			"initPose": "",
		},
		New: func() Leaf { return &Tracker{initPose: IdentityPose} },
	}
}

// initRecord is the learned init data of a Tracker.
type initRecord struct {
	Frames int    `json:"frames"`
	Last   *Pose  `json:"last,omitempty"`
	Poses  []Pose `json:"poses,omitempty"`
}

// maxLearnedPoses bounds the poses kept in init data.
const maxLearnedPoses = 8

// Tracker is the synthetic tracker leaf.
type Tracker struct {
	initPose  Pose
	workSpace []Pose
	learned   initRecord
	state     string
}

var (
	_ InitPoser      = (*Tracker)(nil)
	_ WorkSpacePoser = (*Tracker)(nil)
	_ InitDataHolder = (*Tracker)(nil)
	_ Resetter       = (*Tracker)(nil)
)

// Init implements Leaf.
func (t *Tracker) Init(_ context.Context, env *Env) error {
	if raw := env.Attr("initPose"); raw != "" {
		var p Pose
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			return &AttributeError{Node: env.Name(), Name: "initPose", Err: err}
		}
		if err := t.SetInitPose(p); err != nil {
			return err
		}
	}
	ext := dataset.NewExtrinsicData()
	if err := t.poseInto(ext); err != nil {
		return err
	}
	if err := env.Store.Set(env.OutputPath("extrinsic"), ext); err != nil {
		return err
	}
	if err := env.Store.Set(env.OutputPath("intrinsic"), dataset.DefaultIntrinsicData(0, 0)); err != nil {
		return err
	}
	state := dataset.NewDataBase()
	state.Set("state", StateLost)
	t.state = StateLost
	return env.Store.Set(env.OutputPath("state"), state)
}

func (t *Tracker) poseInto(e *dataset.ExtrinsicData) error {
	if err := e.SetR(t.initPose.Q); err != nil {
		return err
	}
	e.SetT(t.initPose.T)
	return nil
}

// Apply implements Leaf.
func (t *Tracker) Apply(_ context.Context, env *Env) error {
	tracked := false
	if p, ok := env.InputPath("imageRGB"); ok {
		img, err := env.Store.Image(p)
		if err != nil {
			return err
		}
		tracked = !img.Empty()
	}

	ext, err := env.Store.Extrinsic(env.OutputPath("extrinsic"))
	if err != nil {
		return err
	}
	if err := t.poseInto(ext); err != nil {
		return err
	}
	ext.SetValid(tracked)

	calibrated := false
	if p, ok := env.InputPath("intrinsic"); ok {
		calibrated = true
		src, err := env.Store.Intrinsic(p)
		if err != nil {
			return err
		}
		dst, err := env.Store.Intrinsic(env.OutputPath("intrinsic"))
		if err != nil {
			return err
		}
		*dst = *src
	}

	state, err := env.Store.DataBase(env.OutputPath("state"))
	if err != nil {
		return err
	}
	t.state = StateLost
	if tracked {
		// Without a calibration input the pose relies on a guessed
		// focal length.
		t.state = StateCritical
		if calibrated {
			t.state = StateTracked
		}
		t.learn()
	}
	state.Set("state", t.state)
	state.Set("frames", fmt.Sprint(t.learned.Frames))
	return nil
}

func (t *Tracker) learn() {
	p := t.initPose
	t.learned.Frames++
	t.learned.Last = &p
	if len(t.learned.Poses) < maxLearnedPoses {
		t.learned.Poses = append(t.learned.Poses, p)
	}
}

// State returns the tracking state of the last pass.
func (t *Tracker) State() string {
	if t.state == "" {
		return StateLost
	}
	return t.state
}

// InitPose implements InitPoser.
func (t *Tracker) InitPose() Pose {
	return t.initPose
}

// SetInitPose implements InitPoser. The rotation is normalized.
func (t *Tracker) SetInitPose(p Pose) error {
	e := dataset.NewExtrinsicData()
	if err := e.SetR(p.Q); err != nil {
		return fmt.Errorf("init pose: %w", err)
	}
	t.initPose = Pose{T: p.T, Q: e.R()}
	return nil
}

// WorkSpacePoses implements WorkSpacePoser.
func (t *Tracker) WorkSpacePoses() []Pose {
	return slices.Clone(t.workSpace)
}

// SetWorkSpacePoses implements WorkSpacePoser. Rotations are normalized; an
// empty set clears the workspace.
func (t *Tracker) SetWorkSpacePoses(poses []Pose) error {
	out := make([]Pose, 0, len(poses))
	for i, p := range poses {
		e := dataset.NewExtrinsicData()
		if err := e.SetR(p.Q); err != nil {
			return fmt.Errorf("workspace pose %d: %w", i, err)
		}
		out = append(out, Pose{T: p.T, Q: e.R()})
	}
	t.workSpace = out
	return nil
}

// InitData implements InitDataHolder.
func (t *Tracker) InitData() ([]byte, error) {
	return json.Marshal(t.learned)
}

// SetInitData implements InitDataHolder.
func (t *Tracker) SetInitData(data []byte) error {
	var rec initRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return fmt.Errorf("decode init data: %w", err)
	}
	t.learned = rec
	if rec.Last != nil {
		return t.SetInitPose(*rec.Last)
	}
	return nil
}

// ResetInitData implements InitDataHolder.
func (t *Tracker) ResetInitData() {
	t.learned = initRecord{}
}

// Reset implements Resetter.
func (t *Tracker) Reset(hard bool) {
	t.state = StateLost
	if hard {
		t.ResetInitData()
	}
}
