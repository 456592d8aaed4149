package trackflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/trackflow/pkg/trackflow/action"
	"github.com/randalmurphal/trackflow/pkg/trackflow/command"
	"github.com/randalmurphal/trackflow/pkg/trackflow/dataset"
	tferrors "github.com/randalmurphal/trackflow/pkg/trackflow/errors"
	"github.com/randalmurphal/trackflow/pkg/trackflow/event"
)

func TestSync_CreateTrackerRunOncePoll(t *testing.T) {
	w := newStartedSync(t)
	ctx := context.Background()

	results := collectResults(w)
	var poses []dataset.ExtrinsicView
	w.OnExtrinsic(event.NodeData("tracker0", "extrinsic"), func(v dataset.ExtrinsicView) {
		poses = append(poses, v)
	})

	pushFromString(t, w, CmdCreateTrackerFromString, trackerJSON, "tracker.vl")
	require.NoError(t, w.RunOnceSync(ctx))
	assert.Positive(t, w.PollEvents())

	got := results.all()
	require.Len(t, got, 1)
	r := got[0]
	assert.Equal(t, CmdCreateTrackerFromString, r.Command.Name())
	require.NoError(t, r.Err)
	assert.Equal(t, []tferrors.Code{tferrors.CalibrationMissingForDevice}, r.Warnings.Codes())
	assert.Equal(t, "camera0", r.Warnings[0].Info)

	require.Len(t, poses, 1)
	assert.True(t, poses[0].Valid())
	assert.Equal(t, [3]float64{0, 0, -2}, poses[0].T())

	snap := w.Snapshot()
	require.NotNil(t, snap)
	assert.Equal(t, uint64(1), snap.Tick)
	assert.Equal(t, action.StateTracked, snap.State("tracker0"))
}

func TestSync_RunOnceDrainsQueuedCommandsOnly(t *testing.T) {
	w := newStartedSync(t)
	results := collectResults(w)

	_, err := w.Push(CmdPauseTracking, nil)
	require.NoError(t, err)
	_, err = w.Push(CmdRunTracking, nil)
	require.NoError(t, err)
	require.NoError(t, w.RunOnceSync(context.Background()))
	w.PollEvents()

	got := results.all()
	require.Len(t, got, 2)
	assert.Equal(t, CmdPauseTracking, got[0].Command.Name())
	assert.Equal(t, CmdRunTracking, got[1].Command.Name())
	assert.Equal(t, 0, w.PendingCommands())
	// No configuration: no pass.
	assert.Zero(t, w.Ticks())
}

func TestSync_PausedRunsOnlyWhenOnceRequested(t *testing.T) {
	w := newStartedSync(t)
	loadTracker(t, w)
	ctx := context.Background()
	require.Equal(t, uint64(1), w.Ticks())

	step(t, w, CmdPauseTracking, nil)
	assert.Equal(t, StatePaused, w.State())
	assert.Equal(t, uint64(1), w.Ticks())

	require.NoError(t, w.RunOnceSync(ctx))
	assert.Equal(t, uint64(1), w.Ticks())

	step(t, w, CmdRunTrackingOnce, nil)
	assert.Equal(t, uint64(2), w.Ticks())
	assert.Equal(t, StatePaused, w.State())

	require.NoError(t, w.RunOnceSync(ctx))
	assert.Equal(t, uint64(2), w.Ticks())

	step(t, w, CmdRunTracking, nil)
	assert.Equal(t, StateRunning, w.State())
	assert.Equal(t, uint64(3), w.Ticks())
}

func TestSync_ProcessCommandSync(t *testing.T) {
	w := newStartedSync(t)
	results := collectResults(w)

	c, err := command.New(CmdCreateTrackerFromString, map[string]string{"str": trackerJSON})
	require.NoError(t, err)
	require.NoError(t, w.ProcessCommandSync(context.Background(), c))

	// Completion goes through the pump.
	assert.Empty(t, results.all())
	w.PollEvents()
	require.Len(t, results.all(), 1)
	assert.NoError(t, results.all()[0].Err)
	assert.Zero(t, w.Ticks())
}

func TestSync_EntryPointErrors(t *testing.T) {
	ctx := context.Background()

	async, err := New()
	require.NoError(t, err)
	defer async.Close()
	assert.ErrorIs(t, async.RunOnceSync(ctx), ErrNotSync)

	w, err := NewSync()
	require.NoError(t, err)
	assert.ErrorIs(t, w.RunOnceSync(ctx), ErrNotStarted)
	require.NoError(t, w.Close())
	assert.ErrorIs(t, w.RunOnceSync(ctx), ErrWorkerClosed)
}

func TestSync_ImageViews(t *testing.T) {
	w := newStartedSync(t)

	_, err := w.ImageSync()
	assert.ErrorIs(t, err, ErrNoSnapshot)

	loadTracker(t, w)

	img, err := w.ImageSync()
	require.NoError(t, err)
	assert.Equal(t, 8, img.Width())
	assert.Equal(t, 6, img.Height())
	assert.Equal(t, dataset.FormatRGBA, img.Format())

	byName, err := w.ImageByNameSync("camera0.image")
	require.NoError(t, err)
	assert.Equal(t, img.Width(), byName.Width())

	fromNode, err := w.ImageFromNodeSync("camera0", "image")
	require.NoError(t, err)
	assert.Equal(t, img.Height(), fromNode.Height())

	_, err = w.ImageFromNodeSync("camera1", "image")
	var nf *dataset.NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestSync_ViewsSurviveLaterPasses(t *testing.T) {
	w := newStartedSync(t)
	loadTracker(t, w)

	before, err := w.ImageSync()
	require.NoError(t, err)
	step(t, w, CmdSetAttribute, map[string]any{"att": "camera0.width", "val": 16})

	after, err := w.ImageSync()
	require.NoError(t, err)
	assert.Equal(t, 8, before.Width())
	assert.Equal(t, 16, after.Width())
}

func TestThread_Registration(t *testing.T) {
	w := newStartedSync(t)
	ctx := context.Background()

	th := w.RegisterThread()
	assert.True(t, th.Registered())
	require.NoError(t, th.RunOnceSync(ctx))
	n, err := th.PollEvents()
	require.NoError(t, err)
	assert.Zero(t, n)

	assert.True(t, th.Unregister())
	assert.False(t, th.Unregister())

	assert.ErrorIs(t, th.RunOnceSync(ctx), ErrThreadNotRegistered)
	_, err = th.PollEvents()
	assert.ErrorIs(t, err, ErrThreadNotRegistered)
	_, err = th.ImageSync()
	assert.ErrorIs(t, err, ErrThreadNotRegistered)
	_, err = th.WaitEvents(0)
	assert.ErrorIs(t, err, ErrThreadNotRegistered)

	other := newStartedSync(t)
	assert.False(t, other.UnregisterThread(w.RegisterThread()))
}
