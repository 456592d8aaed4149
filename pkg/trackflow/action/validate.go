package action

import (
	"errors"
	"strings"

	tferrors "github.com/randalmurphal/trackflow/pkg/trackflow/errors"
	"github.com/randalmurphal/trackflow/pkg/trackflow/keypath"
)

type edge struct {
	from, to NodeID
}

// Validate checks the graph before any leaf runs. All problems are reported, joined; each carries a graph code:
//
//  1. connection endpoints match "node.name" (GraphInvalidDataPath)
//  2. endpoint nodes exist (GraphNodeNotFound)
//  3. outputs and inputs are declared (GraphOutputNotFound, GraphInputNotFound)
//  4. the connection edges are acyclic (GraphHasCycles)
//  5. at least one tracker exists (GraphTrackersEmpty)
//  6. device and tracker names are unique (GraphDuplicateDeviceName,
//     GraphDuplicateTrackerName)
//
// Validate never initializes or runs a leaf.
func (g *Graph) Validate() error {
	g.validated = false
	for i := range g.nodes {
		if !g.nodes[i].pipe {
			g.nodes[i].inputs = map[string]string{}
		}
	}

	var errs []error
	var edges []edge
	for _, c := range g.conns {
		src, _, srcErr := g.endpoint(c.From, true)
		dst, in, dstErr := g.endpoint(c.To, false)
		if srcErr != nil {
			errs = append(errs, srcErr)
		}
		if dstErr != nil {
			errs = append(errs, dstErr)
		}
		if srcErr != nil || dstErr != nil {
			continue
		}
		if prev, dup := g.nodes[dst].inputs[in]; dup {
			errs = append(errs, tferrors.Newf(tferrors.GraphSetupFailedUnknown,
				"%s connected from both %s and %s", c.To, prev, c.From))
			continue
		}
		g.nodes[dst].inputs[in] = c.From
		edges = append(edges, edge{from: src, to: dst})
	}

	if err := g.checkLeafCycles(edges); err != nil {
		errs = append(errs, err)
	}
	if len(g.Trackers()) == 0 {
		errs = append(errs, tferrors.New(tferrors.GraphTrackersEmpty, ""))
	}
	errs = append(errs, g.checkNames()...)

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	g.validated = true
	return nil
}

// endpoint resolves a "node.key" connection endpoint to a leaf.
func (g *Graph) endpoint(path string, output bool) (NodeID, string, error) {
	name, key, err := keypath.SplitNodeName(path)
	if err != nil {
		return 0, "", tferrors.Wrap(tferrors.GraphInvalidDataPath, path, err)
	}
	id, err := g.Find(name)
	if err != nil {
		return 0, "", tferrors.Wrap(tferrors.GraphNodeNotFound, name, err)
	}
	n := &g.nodes[id]
	if output {
		if n.pipe || !n.kind.hasOutput(key) {
			return 0, "", tferrors.New(tferrors.GraphOutputNotFound,
				tferrors.InputInfo(name, key, n.kind.Outputs))
		}
	} else if n.pipe || !n.kind.hasInput(key) {
		return 0, "", tferrors.New(tferrors.GraphInputNotFound,
			tferrors.InputInfo(name, key, n.kind.Inputs))
	}
	return id, key, nil
}

func (g *Graph) allLeaves() []NodeID {
	var out []NodeID
	g.Walk(func(id NodeID) bool {
		if !g.nodes[id].pipe {
			out = append(out, id)
		}
		return true
	})
	return out
}

func (g *Graph) checkLeafCycles(edges []edge) error {
	leaves := g.allLeaves()
	index := make(map[NodeID]int, len(leaves))
	for i, id := range leaves {
		index[id] = i
	}
	dg := newDepGraph(len(leaves))
	for _, e := range edges {
		dg.addEdge(index[e.from], index[e.to])
	}
	witness := dg.cycle()
	if witness == nil {
		return nil
	}
	names := make([]string, 0, len(witness))
	for _, i := range witness {
		names = append(names, g.nodes[leaves[i]].key)
	}
	return tferrors.New(tferrors.GraphHasCycles, strings.Join(names, " -> "))
}

func (g *Graph) checkNames() []error {
	var errs []error
	seen := make(map[string]Role)
	for _, id := range g.allLeaves() {
		n := &g.nodes[id]
		prev, dup := seen[n.key]
		if !dup {
			seen[n.key] = n.kind.Role
			continue
		}
		switch {
		case prev == RoleTracker || n.kind.Role == RoleTracker:
			errs = append(errs, tferrors.New(tferrors.GraphDuplicateTrackerName, n.key))
		case prev == RoleDevice || n.kind.Role == RoleDevice:
			errs = append(errs, tferrors.New(tferrors.GraphDuplicateDeviceName, n.key))
		default:
			errs = append(errs, tferrors.Newf(tferrors.GraphSetupFailedUnknown, "duplicate node name %s", n.key))
		}
	}
	return errs
}
