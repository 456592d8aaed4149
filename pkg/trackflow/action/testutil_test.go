package action

import (
	"context"
	"errors"

	"github.com/randalmurphal/trackflow/pkg/trackflow/dataset"
)

var errBoom = errors.New("boom")

// recLeaf appends "init:<name>" and "apply:<name>" to a shared log.
type recLeaf struct {
	log *[]string
}

func (l *recLeaf) Init(_ context.Context, env *Env) error {
	*l.log = append(*l.log, "init:"+env.Name())
	return nil
}

func (l *recLeaf) Apply(_ context.Context, env *Env) error {
	*l.log = append(*l.log, "apply:"+env.Name())
	switch {
	case env.Attr("panic") == "true":
		panic("leaf exploded")
	case env.Attr("fail") == "true":
		return errBoom
	}
	return nil
}

func recKind(typ string, role Role, log *[]string) LeafKind {
	return LeafKind{
		Type:       typ,
		Role:       role,
		Inputs:     []string{"in", "in2"},
		Outputs:    []string{"out"},
		Attributes: map[string]string{"fail": "false", "panic": "false"},
		New:        func() Leaf { return &recLeaf{log: log} },
	}
}

// newRecGraph builds a root with one leaf per name. The last name is a
// tracker; the others are stages.
func newRecGraph(log *[]string, names ...string) (*Graph, map[string]NodeID) {
	g := New()
	ids := make(map[string]NodeID)
	for i, name := range names {
		role := RoleStage
		if i == len(names)-1 {
			role = RoleTracker
		}
		id, err := g.AddLeaf(RootID, name, recKind("rec", role, log))
		if err != nil {
			panic(err)
		}
		ids[name] = id
	}
	return g, ids
}

func newStore() *dataset.Store {
	return dataset.NewStore()
}
