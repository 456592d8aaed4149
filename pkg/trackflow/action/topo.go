package action

import (
	"errors"
	"slices"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// depGraph is the dependency graph over leaf indices. Lower indices are
// declared earlier.
type depGraph struct {
	g        *simple.DirectedGraph
	selfLoop int
}

func newDepGraph(n int) *depGraph {
	d := &depGraph{g: simple.NewDirectedGraph(), selfLoop: -1}
	for i := range n {
		d.g.AddNode(simple.Node(i))
	}
	return d
}

func (d *depGraph) addEdge(from, to int) {
	if from == to {
		if d.selfLoop < 0 || from < d.selfLoop {
			d.selfLoop = from
		}
		return
	}
	d.g.SetEdge(d.g.NewEdge(simple.Node(from), simple.Node(to)))
}

// cycle returns one dependency cycle, first and last element equal, or nil
// when the graph can be ordered. The witness starts at the lowest index of
// the earliest declared cyclic component.
func (d *depGraph) cycle() []int {
	if d.selfLoop >= 0 {
		return []int{d.selfLoop, d.selfLoop}
	}
	_, err := topo.Sort(d.g)
	var cyclic topo.Unorderable
	if !errors.As(err, &cyclic) || len(cyclic) == 0 {
		return nil
	}

	// Members are sorted by ID; pick the component with the lowest member.
	comp := cyclic[0]
	for _, c := range cyclic[1:] {
		if c[0].ID() < comp[0].ID() {
			comp = c
		}
	}
	start := comp[0]
	member := make(map[int64]bool, len(comp))
	for _, n := range comp {
		member[n.ID()] = true
	}

	next := graph.NodesOf(d.g.From(start.ID()))
	slices.SortFunc(next, func(a, b graph.Node) int { return int(a.ID() - b.ID()) })
	for _, v := range next {
		if !member[v.ID()] {
			continue
		}
		back, _ := path.DijkstraFromTo(v, start, d.g)
		if len(back) == 0 {
			continue
		}
		out := []int{int(start.ID())}
		for _, n := range back {
			out = append(out, int(n.ID()))
		}
		return out
	}
	return nil
}
