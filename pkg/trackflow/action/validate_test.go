package action

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tferrors "github.com/randalmurphal/trackflow/pkg/trackflow/errors"
)

func issueFor(t *testing.T, err error, code tferrors.Code) *tferrors.Issue {
	t.Helper()
	require.Error(t, err)
	var joined interface{ Unwrap() []error }
	list := []error{err}
	if errors.As(err, &joined) {
		list = joined.Unwrap()
	}
	for _, e := range list {
		var issue *tferrors.Issue
		if errors.As(e, &issue) && issue.Code == code {
			return issue
		}
	}
	t.Fatalf("no issue with code %d in %v", code, err)
	return nil
}

func TestValidate_CycleRejectedWithoutExecution(t *testing.T) {
	var log []string
	g, _ := newRecGraph(&log, "a", "b", "tracker")
	g.Connect("a.out", "b.in")
	g.Connect("b.out", "a.in")

	err := g.Init(context.Background(), newStore())
	issue := issueFor(t, err, tferrors.GraphHasCycles)
	assert.Equal(t, "a -> b -> a", issue.Info)
	assert.Empty(t, log, "no leaf may be initialized or applied")
	assert.False(t, g.Initialized())

	assert.ErrorIs(t, g.Apply(context.Background(), newStore()), ErrNotInitialized)
	assert.Empty(t, log)
}

func TestValidate_SelfLoop(t *testing.T) {
	var log []string
	g, _ := newRecGraph(&log, "a", "tracker")
	g.Connect("a.out", "a.in")

	issue := issueFor(t, g.Validate(), tferrors.GraphHasCycles)
	assert.Equal(t, "a -> a", issue.Info)
}

func TestValidate_CrossPipeEdgesAreNotCycles(t *testing.T) {
	var log []string
	g := New()
	p1, _ := g.AddPipe(RootID, "p1")
	p2, _ := g.AddPipe(RootID, "p2")
	_, _ = g.AddLeaf(p1, "x1", recKind("rec", RoleStage, &log))
	_, _ = g.AddLeaf(p1, "x2", recKind("rec", RoleStage, &log))
	_, _ = g.AddLeaf(p2, "y", recKind("rec", RoleStage, &log))
	_, _ = g.AddLeaf(RootID, "tracker", recKind("rec", RoleTracker, &log))
	g.Connect("x1.out", "y.in")
	g.Connect("y.out", "x2.in")

	require.NoError(t, g.Validate())
}

func TestValidate_LongCycleWitness(t *testing.T) {
	var log []string
	g, _ := newRecGraph(&log, "a", "b", "c", "d", "tracker")
	g.Connect("a.out", "b.in")
	g.Connect("d.out", "a.in2")
	g.Connect("b.out", "c.in")
	g.Connect("c.out", "d.in")

	issue := issueFor(t, g.Validate(), tferrors.GraphHasCycles)
	assert.Equal(t, "a -> b -> c -> d -> a", issue.Info)
}

func TestValidate_Endpoints(t *testing.T) {
	tests := []struct {
		name string
		from string
		to   string
		code tferrors.Code
		info string
	}{
		{"invalid data path", "a", "b.in", tferrors.GraphInvalidDataPath, "a"},
		{"too many keys", "a.out.x", "b.in", tferrors.GraphInvalidDataPath, "a.out.x"},
		{"missing node", "zz.out", "b.in", tferrors.GraphNodeNotFound, "zz"},
		{"missing output", "a.nope", "b.in", tferrors.GraphOutputNotFound, "a::nope::out"},
		{"missing input", "a.out", "b.nope", tferrors.GraphInputNotFound, "b::nope::in,in2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var log []string
			g, _ := newRecGraph(&log, "a", "b", "tracker")
			g.Connect(tt.from, tt.to)
			err := g.Init(context.Background(), newStore())
			issue := issueFor(t, err, tt.code)
			assert.Equal(t, tt.info, issue.Info)
			assert.Empty(t, log)
		})
	}
}

func TestValidate_InputConnectedTwice(t *testing.T) {
	var log []string
	g, _ := newRecGraph(&log, "a", "b", "tracker")
	g.Connect("a.out", "tracker.in")
	g.Connect("b.out", "tracker.in")

	issueFor(t, g.Validate(), tferrors.GraphSetupFailedUnknown)
}

func TestValidate_TrackersEmpty(t *testing.T) {
	var log []string
	g := New()
	_, _ = g.AddLeaf(RootID, "cam", recKind("cam", RoleDevice, &log))

	issueFor(t, g.Validate(), tferrors.GraphTrackersEmpty)
}

func TestValidate_DuplicateNames(t *testing.T) {
	var log []string

	t.Run("devices", func(t *testing.T) {
		g := New()
		p, _ := g.AddPipe(RootID, "p")
		_, _ = g.AddLeaf(RootID, "cam", recKind("cam", RoleDevice, &log))
		_, _ = g.AddLeaf(p, "cam", recKind("cam", RoleDevice, &log))
		_, _ = g.AddLeaf(RootID, "t", recKind("t", RoleTracker, &log))

		issue := issueFor(t, g.Validate(), tferrors.GraphDuplicateDeviceName)
		assert.Equal(t, "cam", issue.Info)
	})

	t.Run("trackers", func(t *testing.T) {
		g := New()
		p, _ := g.AddPipe(RootID, "p")
		_, _ = g.AddLeaf(RootID, "t", recKind("t", RoleTracker, &log))
		_, _ = g.AddLeaf(p, "t", recKind("t", RoleTracker, &log))

		issue := issueFor(t, g.Validate(), tferrors.GraphDuplicateTrackerName)
		assert.Equal(t, "t", issue.Info)
	})
}

func TestValidate_ReportsAllProblems(t *testing.T) {
	var log []string
	g := New()
	_, _ = g.AddLeaf(RootID, "a", recKind("rec", RoleStage, &log))
	g.Connect("zz.out", "a.in")

	err := g.Validate()
	assert.True(t, tferrors.HasCode(err, tferrors.GraphNodeNotFound))
	assert.True(t, tferrors.HasCode(err, tferrors.GraphTrackersEmpty))
}

func TestApply_DeclarationOrderWithoutEdges(t *testing.T) {
	var log []string
	g, _ := newRecGraph(&log, "a", "b", "c")
	require.NoError(t, g.Init(context.Background(), newStore()))

	log = nil
	require.NoError(t, g.Apply(context.Background(), newStore()))
	assert.Equal(t, []string{"apply:a", "apply:b", "apply:c"}, log)
}

func TestApply_DeclarationOrderWithBackwardEdge(t *testing.T) {
	var log []string
	g, _ := newRecGraph(&log, "a", "b", "c", "tracker")
	// a reads the value c left behind on the previous pass.
	g.Connect("c.out", "a.in")

	require.NoError(t, g.Init(context.Background(), newStore()))
	assert.Equal(t, []string{"init:a", "init:b", "init:c", "init:tracker"}, log)

	log = nil
	require.NoError(t, g.Apply(context.Background(), newStore()))
	assert.Equal(t, []string{"apply:a", "apply:b", "apply:c", "apply:tracker"}, log)
}

func TestApply_DeclarationOrderAcrossPipes(t *testing.T) {
	var log []string
	g := New()
	p1, _ := g.AddPipe(RootID, "p1")
	p2, _ := g.AddPipe(RootID, "p2")
	_, _ = g.AddLeaf(p1, "x", recKind("rec", RoleStage, &log))
	_, _ = g.AddLeaf(p2, "y", recKind("rec", RoleStage, &log))
	_, _ = g.AddLeaf(RootID, "tracker", recKind("rec", RoleTracker, &log))
	g.Connect("y.out", "x.in")

	require.NoError(t, g.Init(context.Background(), newStore()))
	log = nil
	require.NoError(t, g.Apply(context.Background(), newStore()))
	assert.Equal(t, []string{"apply:x", "apply:y", "apply:tracker"}, log)
}
