package trackflow

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/randalmurphal/trackflow/pkg/trackflow/action"
	"github.com/randalmurphal/trackflow/pkg/trackflow/command"
	"github.com/randalmurphal/trackflow/pkg/trackflow/dataset"
	tferrors "github.com/randalmurphal/trackflow/pkg/trackflow/errors"
	"github.com/randalmurphal/trackflow/pkg/trackflow/event"
	"github.com/randalmurphal/trackflow/pkg/trackflow/initdata"
	"github.com/randalmurphal/trackflow/pkg/trackflow/keypath"
	"github.com/randalmurphal/trackflow/pkg/trackflow/observability"
	"github.com/randalmurphal/trackflow/pkg/trackflow/workspace"
)

// Command names understood by the worker.
const (
	CmdCreateTracker                 = "createTracker"
	CmdCreateTrackerFromString       = "createTrackerFromString"
	CmdCreateLineTracker             = "createLineTracker"
	CmdCreateLineTrackerFromString   = "createLineTrackerFromString"
	CmdCreatePosterTracker           = "createPosterTracker"
	CmdCreatePosterTrackerFromString = "createPosterTrackerFromString"
	CmdRunTracking                   = "runTracking"
	CmdPauseTracking                 = "pauseTracking"
	CmdRunTrackingOnce               = "runTrackingOnce"
	CmdSetTargetFPS                  = "setTargetFPS"
	CmdGetAttribute                  = "getAttribute"
	CmdSetAttribute                  = "setAttribute"
	CmdResetSoft                     = "resetSoft"
	CmdResetHard                     = "resetHard"
	CmdGetInitPose                   = "getInitPose"
	CmdSetInitPose                   = "setInitPose"
	CmdWriteInitData                 = "writeInitData"
	CmdReadInitData                  = "readInitData"
	CmdResetInitData                 = "resetInitData"
	CmdClearProject                  = "clearProject"
	CmdSetWorkSpaces                 = "setWorkSpaces"
)

// handlerFunc executes one command and returns its JSON-encodable value.
type handlerFunc func(ctx context.Context, c *command.Command) (any, tferrors.Warnings, error)

func (w *Worker) handler(name string) handlerFunc {
	switch name {
	case CmdCreateTracker:
		return w.uriLoader("")
	case CmdCreateLineTracker:
		return w.uriLoader(action.TypeLineModelTracker)
	case CmdCreatePosterTracker:
		return w.uriLoader(action.TypePosterTracker)
	case CmdCreateTrackerFromString:
		return w.stringLoader("")
	case CmdCreateLineTrackerFromString:
		return w.stringLoader(action.TypeLineModelTracker)
	case CmdCreatePosterTrackerFromString:
		return w.stringLoader(action.TypePosterTracker)
	case CmdRunTracking:
		return w.runTracking
	case CmdPauseTracking:
		return w.pauseTracking
	case CmdRunTrackingOnce:
		return w.runTrackingOnce
	case CmdSetTargetFPS:
		return w.setTargetFPS
	case CmdGetAttribute:
		return w.getAttribute
	case CmdSetAttribute:
		return w.setAttribute
	case CmdResetSoft:
		return w.reset(false)
	case CmdResetHard:
		return w.reset(true)
	case CmdGetInitPose:
		return w.getInitPose
	case CmdSetInitPose:
		return w.setInitPose
	case CmdWriteInitData:
		return w.writeInitData
	case CmdReadInitData:
		return w.readInitData
	case CmdResetInitData:
		return w.resetInitData
	case CmdClearProject:
		return w.clearProject
	case CmdSetWorkSpaces:
		return w.setWorkSpaces
	default:
		return nil
	}
}

// process executes c and queues its completion event. It never panics.
func (w *Worker) process(ctx context.Context, c *command.Command) {
	start := time.Now()
	ctx, span := w.spans.StartCommandSpan(ctx, w.id, c.Name())

	value, warnings, err := w.dispatch(ctx, c)
	if err != nil {
		err = &CommandError{Name: c.Name(), Err: err}
	}
	d := time.Since(start)
	w.spans.EndSpanWithError(span, err)
	w.metrics.RecordCommand(ctx, c.Name(), d, err)

	var result command.Result
	if err != nil {
		result = command.Failed(c, err)
		observability.LogCommandFailed(w.logger, c.Name(), err)
	} else {
		result = command.Succeeded(c, value, warnings)
		observability.LogCommandApplied(w.logger, c.Name(), msOf(d), len(warnings))
	}
	w.events.Push(event.New(event.Named(c.Name()), event.CommandCompleted{Result: result}))
}

func (w *Worker) dispatch(ctx context.Context, c *command.Command) (value any, warnings tferrors.Warnings, err error) {
	defer func() {
		if r := recover(); r != nil {
			value, warnings = nil, nil
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	h := w.handler(c.Name())
	if h == nil {
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownCommand, c.Name())
	}
	return h(ctx, c)
}

func (w *Worker) uriLoader(only string) handlerFunc {
	return func(ctx context.Context, c *command.Command) (any, tferrors.Warnings, error) {
		src := c.ParamString()
		if src == "" {
			return nil, nil, tferrors.New(tferrors.FileReadingFailed, "empty tracking configuration URI")
		}
		data, err := w.resolver.Fetch(ctx, src)
		if err != nil {
			w.clear()
			return nil, nil, err
		}
		return w.loadTracker(ctx, data, src, only)
	}
}

type stringParam struct {
	Str          string `json:"str"`
	FakeFilename string `json:"fakeFilename"`
}

func (w *Worker) stringLoader(only string) handlerFunc {
	return func(ctx context.Context, c *command.Command) (any, tferrors.Warnings, error) {
		var p stringParam
		if err := c.DecodeParam(&p); err != nil {
			return nil, nil, tferrors.Wrap(tferrors.FileInvalid, "createTrackerFromString param", err)
		}
		if p.FakeFilename == "" {
			p.FakeFilename = "tracker.vl"
		}
		return w.loadTracker(ctx, []byte(p.Str), p.FakeFilename, only)
	}
}

// loadTracker replaces the current project with the configuration in data.
// When only is set every tracker must be of that type.
func (w *Worker) loadTracker(ctx context.Context, data []byte, filename, only string) (any, tferrors.Warnings, error) {
	w.clear()

	g, err := action.Load(data, filename, w.kinds)
	if err != nil {
		return nil, nil, err
	}
	if only != "" {
		for _, id := range g.Trackers() {
			if typ := g.Type(id); typ != only {
				return nil, nil, tferrors.Newf(tferrors.FileInvalid,
					"tracker %s has type %s, expected %s", g.Key(id), typ, only)
			}
		}
	}
	store := dataset.NewStore()
	if err := g.Init(ctx, store, action.WithObserver(w.observer), action.WithLogger(w.logger)); err != nil {
		return nil, nil, err
	}

	warnings := w.calibrate(ctx, g, store)
	cams := cameraInfos(g, store)

	w.graph, w.store = g, store
	w.cameras.Store(&cams)
	w.logger.Info("tracker loaded",
		"file", filename,
		"graph", g.String(),
		"warnings", len(warnings),
	)
	return nil, warnings, nil
}

// clear drops the current project.
func (w *Worker) clear() {
	w.graph, w.store, w.once = nil, nil, false
	w.snapshot.Store(nil)
	w.cameras.Store(nil)
}

func (w *Worker) clearProject(context.Context, *command.Command) (any, tferrors.Warnings, error) {
	w.clear()
	return nil, nil, nil
}

func (w *Worker) runTracking(context.Context, *command.Command) (any, tferrors.Warnings, error) {
	w.setState(StateRunning)
	return nil, nil, nil
}

func (w *Worker) pauseTracking(context.Context, *command.Command) (any, tferrors.Warnings, error) {
	w.setState(StatePaused)
	return nil, nil, nil
}

func (w *Worker) runTrackingOnce(context.Context, *command.Command) (any, tferrors.Warnings, error) {
	w.once = true
	return nil, nil, nil
}

func (w *Worker) setTargetFPS(_ context.Context, c *command.Command) (any, tferrors.Warnings, error) {
	var p struct {
		FPS *float64 `json:"fps"`
	}
	if err := c.DecodeParam(&p); err != nil {
		return nil, nil, err
	}
	if p.FPS == nil || *p.FPS < 0 || math.IsNaN(*p.FPS) {
		return nil, nil, fmt.Errorf("invalid fps in %s", c.ParamString())
	}
	w.fpsBits.Store(math.Float64bits(*p.FPS))
	w.limiter.SetLimit(limitFor(*p.FPS))
	return nil, nil, nil
}

func (w *Worker) requireGraph() (*action.Graph, error) {
	if w.graph == nil {
		return nil, ErrNoTracker
	}
	return w.graph, nil
}

// attributeTarget resolves "node.att" or a bare "att" of the first tracker.
func (w *Worker) attributeTarget(att string) (action.NodeID, string, error) {
	g, err := w.requireGraph()
	if err != nil {
		return 0, "", err
	}
	i := strings.LastIndex(att, keypath.Separator)
	if i < 0 {
		trackers := g.Trackers()
		if len(trackers) == 0 {
			return 0, "", ErrNoTracker
		}
		return trackers[0], att, nil
	}
	id, err := g.Find(att[:i])
	if err != nil {
		return 0, "", err
	}
	return id, att[i+1:], nil
}

func (w *Worker) getAttribute(_ context.Context, c *command.Command) (any, tferrors.Warnings, error) {
	var p struct {
		Att string `json:"att"`
	}
	if err := c.DecodeParam(&p); err != nil {
		return nil, nil, err
	}
	id, name, err := w.attributeTarget(p.Att)
	if err != nil {
		return nil, nil, err
	}
	v, err := w.graph.Attribute(id, name)
	if err != nil {
		return nil, nil, err
	}
	return map[string]string{"att": p.Att, "value": v}, nil, nil
}

func (w *Worker) setAttribute(_ context.Context, c *command.Command) (any, tferrors.Warnings, error) {
	var p struct {
		Att string          `json:"att"`
		Val json.RawMessage `json:"val"`
	}
	if err := c.DecodeParam(&p); err != nil {
		return nil, nil, err
	}
	id, name, err := w.attributeTarget(p.Att)
	if err != nil {
		return nil, nil, err
	}
	val := string(p.Val)
	var s string
	if json.Unmarshal(p.Val, &s) == nil {
		val = s
	}
	return nil, nil, w.graph.SetAttribute(id, name, val)
}

func (w *Worker) reset(hard bool) handlerFunc {
	return func(context.Context, *command.Command) (any, tferrors.Warnings, error) {
		g, err := w.requireGraph()
		if err != nil {
			return nil, nil, err
		}
		g.Reset(hard)
		return nil, nil, nil
	}
}

// trackerParam decodes an optional tracker name from a string or
// {"name": ...} parameter.
func trackerParam(c *command.Command) string {
	var p struct {
		Name string `json:"name"`
	}
	if c.DecodeParam(&p) == nil && p.Name != "" {
		return p.Name
	}
	s := c.ParamString()
	if strings.HasPrefix(s, "{") {
		return ""
	}
	return s
}

// leavesOf returns the trackers implementing T, restricted to name when set.
func leavesOf[T any](g *action.Graph, name string) ([]action.NodeID, []T, error) {
	var ids []action.NodeID
	var out []T
	for _, id := range g.Trackers() {
		if name != "" && g.Key(id) != name {
			continue
		}
		if v, ok := g.Leaf(id).(T); ok {
			ids = append(ids, id)
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		if name != "" {
			return nil, nil, fmt.Errorf("%w: tracker %q", ErrNoTracker, name)
		}
		return nil, nil, ErrNoTracker
	}
	return ids, out, nil
}

func (w *Worker) getInitPose(_ context.Context, c *command.Command) (any, tferrors.Warnings, error) {
	g, err := w.requireGraph()
	if err != nil {
		return nil, nil, err
	}
	_, posers, err := leavesOf[action.InitPoser](g, trackerParam(c))
	if err != nil {
		return nil, nil, err
	}
	return posers[0].InitPose(), nil, nil
}

func (w *Worker) setInitPose(_ context.Context, c *command.Command) (any, tferrors.Warnings, error) {
	g, err := w.requireGraph()
	if err != nil {
		return nil, nil, err
	}
	var p struct {
		Name string `json:"name"`
		action.Pose
	}
	if err := c.DecodeParam(&p); err != nil {
		return nil, nil, err
	}
	_, posers, err := leavesOf[action.InitPoser](g, p.Name)
	if err != nil {
		return nil, nil, err
	}
	for _, ip := range posers {
		if err := ip.SetInitPose(p.Pose); err != nil {
			return nil, nil, err
		}
	}
	return nil, nil, nil
}

func (w *Worker) writeInitData(_ context.Context, c *command.Command) (any, tferrors.Warnings, error) {
	g, err := w.requireGraph()
	if err != nil {
		return nil, nil, err
	}
	ids, holders, err := leavesOf[action.InitDataHolder](g, "")
	if err != nil {
		return nil, nil, err
	}
	prefix := c.ParamString()
	keys := make([]string, 0, len(ids))
	for i, h := range holders {
		data, err := h.InitData()
		if err != nil {
			return nil, nil, err
		}
		key := initdata.Key(prefix, g.Key(ids[i]))
		if err := w.initData.Save(key, data); err != nil {
			return nil, nil, tferrors.Wrap(tferrors.FileReadingFailed, key, err)
		}
		keys = append(keys, key)
	}
	return map[string][]string{"keys": keys}, nil, nil
}

func (w *Worker) readInitData(_ context.Context, c *command.Command) (any, tferrors.Warnings, error) {
	g, err := w.requireGraph()
	if err != nil {
		return nil, nil, err
	}
	ids, holders, err := leavesOf[action.InitDataHolder](g, "")
	if err != nil {
		return nil, nil, err
	}
	prefix := c.ParamString()
	for i, h := range holders {
		key := initdata.Key(prefix, g.Key(ids[i]))
		data, err := w.initData.Load(key)
		if err != nil {
			return nil, nil, tferrors.Wrap(tferrors.FileReadingFailed, key, err)
		}
		if err := h.SetInitData(data); err != nil {
			return nil, nil, tferrors.Wrap(tferrors.FileInvalid, key, err)
		}
	}
	return nil, nil, nil
}

func (w *Worker) resetInitData(context.Context, *command.Command) (any, tferrors.Warnings, error) {
	g, err := w.requireGraph()
	if err != nil {
		return nil, nil, err
	}
	_, holders, err := leavesOf[action.InitDataHolder](g, "")
	if err != nil {
		return nil, nil, err
	}
	for _, h := range holders {
		h.ResetInitData()
	}
	return nil, nil, nil
}

// setWorkSpaces hard-resets the trackers and hands them the candidate poses
// of a workspace configuration.
func (w *Worker) setWorkSpaces(_ context.Context, c *command.Command) (any, tferrors.Warnings, error) {
	g, err := w.requireGraph()
	if err != nil {
		return nil, nil, err
	}
	if !c.HasParam() {
		return nil, nil, fmt.Errorf("%w: %s: missing parameter", command.ErrInvalidParam, c.Name())
	}
	cfg, err := workspace.ParseConfiguration(c.Param())
	if err != nil {
		return nil, nil, tferrors.Wrap(tferrors.FileInvalid, "workspace configuration", err)
	}
	transforms, err := cfg.Poses()
	if err != nil {
		return nil, nil, tferrors.Wrap(tferrors.FileInvalid, "workspace configuration", err)
	}
	_, posers, err := leavesOf[action.WorkSpacePoser](g, "")
	if err != nil {
		return nil, nil, err
	}

	poses := make([]action.Pose, len(transforms))
	for i, t := range transforms {
		poses[i] = action.Pose{T: t.T, Q: t.Q}
	}
	g.Reset(true)
	for _, p := range posers {
		if err := p.SetWorkSpacePoses(poses); err != nil {
			return nil, nil, err
		}
	}
	w.logger.Info("workspaces set", "workspaces", len(cfg.WorkSpaces), "poses", len(poses))
	return map[string]int{"poses": len(poses)}, nil, nil
}
