package trackflow

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/trackflow/pkg/trackflow/action"
	"github.com/randalmurphal/trackflow/pkg/trackflow/command"
	tferrors "github.com/randalmurphal/trackflow/pkg/trackflow/errors"
	"github.com/randalmurphal/trackflow/pkg/trackflow/initdata"
	"github.com/randalmurphal/trackflow/pkg/trackflow/uri"
)

func TestCommand_Unknown(t *testing.T) {
	w := newStartedSync(t)
	r := step(t, w, "selfDestruct", nil)

	require.Error(t, r.Err)
	assert.ErrorIs(t, r.Err, ErrUnknownCommand)
	var ce *CommandError
	require.ErrorAs(t, r.Err, &ce)
	assert.Equal(t, "selfDestruct", ce.Name)
	assert.Equal(t, 0, command.FailureOf(r.Err).Code)
}

func TestCommand_PairedByClientContext(t *testing.T) {
	w := newStartedSync(t)
	results := collectResults(w)

	for _, tag := range []string{"a", "b", "c"} {
		c, err := command.New(CmdRunTracking, nil)
		require.NoError(t, err)
		require.NoError(t, w.PushCommand(c.WithContext(tag)))
	}
	require.NoError(t, w.RunOnceSync(context.Background()))
	w.PollEvents()

	var tags []any
	for _, r := range results.all() {
		tags = append(tags, r.Command.Context())
	}
	assert.Equal(t, []any{"a", "b", "c"}, tags)
}

func TestCommand_CreateTrackerFromURI(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tracker.vl"), []byte(trackerJSON), 0o600))
	res := uri.NewResolver()
	res.RegisterDir("project-dir:", dir)

	w := newStartedSync(t, WithResolver(res))
	r := step(t, w, CmdCreateTracker, "project-dir:tracker.vl")
	require.NoError(t, r.Err)
	assert.Equal(t, uint64(1), w.Ticks())

	r = step(t, w, CmdCreateTracker, "project-dir:missing.vl")
	assert.True(t, tferrors.HasCode(r.Err, tferrors.FileReadingFailed))
	// A failed load clears the previous project.
	assert.Nil(t, w.Snapshot())
}

func TestCommand_CreateTrackerFailuresClearProject(t *testing.T) {
	w := newStartedSync(t)
	loadTracker(t, w)

	r := step(t, w, CmdCreateTrackerFromString, map[string]string{"str": "{", "fakeFilename": "x.vl"})
	assert.True(t, tferrors.HasCode(r.Err, tferrors.FileInvalid))
	assert.Nil(t, w.Snapshot())

	r = step(t, w, CmdGetAttribute, map[string]string{"att": "camera0.width"})
	assert.ErrorIs(t, r.Err, ErrNoTracker)
}

func TestCommand_TypedCreateRestrictsTrackerType(t *testing.T) {
	w := newStartedSync(t)

	r := step(t, w, CmdCreateLineTrackerFromString, map[string]string{"str": posterYAML, "fakeFilename": "t.yaml"})
	assert.True(t, tferrors.HasCode(r.Err, tferrors.FileInvalid))

	r = step(t, w, CmdCreatePosterTrackerFromString, map[string]string{"str": posterYAML, "fakeFilename": "t.yaml"})
	require.NoError(t, r.Err)
	assert.Equal(t, action.StateCritical, w.Snapshot().State("poster0"))
}

func TestCommand_GraphErrorsCarryCodes(t *testing.T) {
	w := newStartedSync(t)
	doc := `{"version": 1, "graph": {
	  "devices": [{"name": "camera0", "type": "syntheticCamera"}],
	  "trackers": [{"name": "tracker0", "type": "lineModelTracker"}],
	  "connections": [{"from": "camera0.depth", "to": "tracker0.imageRGB"}]}}`
	r := step(t, w, CmdCreateTrackerFromString, map[string]string{"str": doc})
	assert.True(t, tferrors.HasCode(r.Err, tferrors.GraphOutputNotFound))
	assert.Equal(t, int(tferrors.GraphOutputNotFound), command.FailureOf(r.Err).Code)
}

func TestCommand_Attributes(t *testing.T) {
	w := newStartedSync(t)
	loadTracker(t, w)

	var got map[string]string
	decodeValue(t, step(t, w, CmdGetAttribute, map[string]string{"att": "camera0.width"}), &got)
	assert.Equal(t, map[string]string{"att": "camera0.width", "value": "8"}, got)

	decodeValue(t, step(t, w, CmdGetAttribute, map[string]string{"att": "modelURI"}), &got)
	assert.Equal(t, "project-dir:model.obj", got["value"])

	r := step(t, w, CmdSetAttribute, map[string]any{"att": "modelURI", "val": "other.obj"})
	require.NoError(t, r.Err)
	decodeValue(t, step(t, w, CmdGetAttribute, map[string]string{"att": "tracker0.modelURI"}), &got)
	assert.Equal(t, "other.obj", got["value"])

	r = step(t, w, CmdSetAttribute, map[string]any{"att": "tracker0.enabled", "val": false})
	require.NoError(t, r.Err)
	decodeValue(t, step(t, w, CmdGetAttribute, map[string]string{"att": "tracker0.enabled"}), &got)
	assert.Equal(t, "false", got["value"])

	r = step(t, w, CmdGetAttribute, map[string]string{"att": "camera0.nope"})
	var ae *action.AttributeError
	assert.ErrorAs(t, r.Err, &ae)

	r = step(t, w, CmdGetAttribute, map[string]string{"att": "camera9.width"})
	var nf *action.NotFoundError
	assert.ErrorAs(t, r.Err, &nf)
}

func TestCommand_SetTargetFPS(t *testing.T) {
	w := newStartedSync(t)

	require.NoError(t, step(t, w, CmdSetTargetFPS, map[string]float64{"fps": 60}).Err)
	assert.InDelta(t, 60.0, w.TargetFPS(), 1e-9)

	require.NoError(t, step(t, w, CmdSetTargetFPS, map[string]float64{"fps": 0}).Err)
	assert.Zero(t, w.TargetFPS())

	assert.Error(t, step(t, w, CmdSetTargetFPS, map[string]float64{"fps": -1}).Err)
	assert.Error(t, step(t, w, CmdSetTargetFPS, nil).Err)
	assert.Zero(t, w.TargetFPS())
}

func TestCommand_InitPose(t *testing.T) {
	w := newStartedSync(t)

	r := step(t, w, CmdGetInitPose, nil)
	assert.ErrorIs(t, r.Err, ErrNoTracker)

	loadTracker(t, w)

	var pose action.Pose
	decodeValue(t, step(t, w, CmdGetInitPose, nil), &pose)
	assert.Equal(t, action.Pose{T: [3]float64{0, 0, -2}, Q: [4]float64{0, 0, 0, 1}}, pose)

	r = step(t, w, CmdSetInitPose, map[string]any{"t": []float64{1, 2, 3}, "q": []float64{0, 0, 0, 2}})
	require.NoError(t, r.Err)
	decodeValue(t, step(t, w, CmdGetInitPose, "tracker0"), &pose)
	assert.Equal(t, action.Pose{T: [3]float64{1, 2, 3}, Q: [4]float64{0, 0, 0, 1}}, pose)

	r = step(t, w, CmdGetInitPose, "tracker7")
	assert.ErrorIs(t, r.Err, ErrNoTracker)

	view, err := w.Snapshot().Extrinsic("tracker0.extrinsic")
	require.NoError(t, err)
	assert.Equal(t, [3]float64{1, 2, 3}, view.T())
}

func TestCommand_InitData(t *testing.T) {
	store := initdata.NewMemoryStore()
	w := newStartedSync(t, WithInitDataStore(store))
	loadTracker(t, w)

	var keys map[string][]string
	decodeValue(t, step(t, w, CmdWriteInitData, "session1/"), &keys)
	assert.Equal(t, []string{"session1/tracker0"}, keys["keys"])

	saved, err := store.Load("session1/tracker0")
	require.NoError(t, err)
	assert.Contains(t, string(saved), `"frames":`)

	require.NoError(t, step(t, w, CmdResetInitData, nil).Err)
	require.NoError(t, step(t, w, CmdReadInitData, "session1/").Err)

	r := step(t, w, CmdReadInitData, "missing/")
	assert.True(t, tferrors.HasCode(r.Err, tferrors.FileReadingFailed))
	assert.True(t, errors.Is(r.Err, initdata.ErrNotFound))

	require.NoError(t, w.Close())
	// Stores passed in are not closed by the worker.
	_, err = store.Load("session1/tracker0")
	assert.NoError(t, err)
}

func TestCommand_ResetAndClear(t *testing.T) {
	w := newStartedSync(t)

	assert.ErrorIs(t, step(t, w, CmdResetSoft, nil).Err, ErrNoTracker)

	loadTracker(t, w)
	require.NoError(t, step(t, w, CmdResetSoft, nil).Err)
	require.NoError(t, step(t, w, CmdResetHard, nil).Err)

	ticks := w.Ticks()
	require.NoError(t, step(t, w, CmdClearProject, nil).Err)
	assert.Nil(t, w.Snapshot())
	assert.Equal(t, ticks, w.Ticks())
}

func TestCommand_SetWorkSpaces(t *testing.T) {
	w := newStartedSync(t)
	cfg := map[string]any{
		"type":    "VisionLibWorkSpacesConfig",
		"version": 1,
		"workSpaces": []any{map[string]any{
			"type":           "WorkSpaceDef",
			"rollAngleRange": 20,
			"rollAngleStep":  20,
			"origin": map[string]any{"type": "plane", "parameters": map[string]any{
				"planeLength": 1, "planeSteps": 2,
				"transformation": map[string]any{"t": []float64{0, 0, 2}},
			}},
			"destination": map[string]any{"type": "plane"},
		}},
	}

	assert.ErrorIs(t, step(t, w, CmdSetWorkSpaces, cfg).Err, ErrNoTracker)

	loadTracker(t, w)
	var got map[string]int
	decodeValue(t, step(t, w, CmdSetWorkSpaces, cfg), &got)
	assert.Equal(t, map[string]int{"poses": 6}, got)

	id, err := w.graph.Find("tracker0")
	require.NoError(t, err)
	poser, ok := w.graph.Leaf(id).(action.WorkSpacePoser)
	require.True(t, ok)
	assert.Len(t, poser.WorkSpacePoses(), 6)

	r := step(t, w, CmdSetWorkSpaces, map[string]any{"version": 2})
	assert.True(t, tferrors.HasCode(r.Err, tferrors.FileInvalid))

	r = step(t, w, CmdSetWorkSpaces, map[string]any{"workSpaces": []any{
		map[string]any{"origin": map[string]any{"type": "cube"}, "destination": map[string]any{"type": "plane"}},
	}})
	assert.True(t, tferrors.HasCode(r.Err, tferrors.FileInvalid))
	// Failed commands leave the previous workspace in place.
	assert.Len(t, poser.WorkSpacePoses(), 6)

	assert.ErrorIs(t, step(t, w, CmdSetWorkSpaces, nil).Err, command.ErrInvalidParam)
}
