package action

import (
	"fmt"
	"maps"
	"strconv"

	"github.com/randalmurphal/trackflow/pkg/trackflow/keypath"
)

// NodeID indexes a node in a Graph arena.
type NodeID int

// RootID is the ID of the root pipe of every Graph.
const RootID NodeID = 0

// EnabledAttribute is the attribute name mapped to a node's enabled flag.
const EnabledAttribute = "enabled"

// Connection binds the output From ("node.output") to the input To
// ("node.input").
type Connection struct {
	From string `json:"from" yaml:"from"`
	To   string `json:"to" yaml:"to"`
}

type node struct {
	key      string
	parent   NodeID
	pipe     bool
	children []NodeID // declaration and execution order
	enabled  bool
	attrs    map[string]string

	// Leaf only.
	kind   LeafKind
	leaf   Leaf
	inputs map[string]string // input key -> source store path
	ready  bool
}

// Graph is an arena-backed action tree.
type Graph struct {
	nodes       []node
	conns       []Connection
	validated   bool
	initialized bool
}

// New creates a graph holding only the root pipe.
func New() *Graph {
	return &Graph{nodes: []node{{parent: -1, pipe: true, enabled: true}}}
}

// Len returns the number of nodes, root included.
func (g *Graph) Len() int {
	return len(g.nodes)
}

func (g *Graph) valid(id NodeID) bool {
	return id >= 0 && int(id) < len(g.nodes)
}

func (g *Graph) addNode(parent NodeID, key string, n node) (NodeID, error) {
	if !g.valid(parent) {
		return 0, fmt.Errorf("%w: %d", ErrInvalidNodeID, parent)
	}
	if !g.nodes[parent].pipe {
		return 0, fmt.Errorf("%w: %s", ErrNotPipe, g.Path(parent))
	}
	if err := keypath.ValidateKey(key); err != nil {
		return 0, fmt.Errorf("node key %q: %w", key, err)
	}
	if _, ok := g.child(parent, key); ok {
		return 0, fmt.Errorf("%w: %s", ErrDuplicateKey, keypath.Join(g.Path(parent), key))
	}
	n.key = key
	n.parent = parent
	n.enabled = true
	id := NodeID(len(g.nodes))
	g.nodes = append(g.nodes, n)
	g.nodes[parent].children = append(g.nodes[parent].children, id)
	g.validated, g.initialized = false, false
	return id, nil
}

// AddPipe adds an empty ActionPipe under parent.
func (g *Graph) AddPipe(parent NodeID, key string) (NodeID, error) {
	return g.addNode(parent, key, node{pipe: true, attrs: map[string]string{}})
}

// AddLeaf adds a leaf Action of the given kind under parent. The node
// starts with the kind's default attributes.
func (g *Graph) AddLeaf(parent NodeID, key string, kind LeafKind) (NodeID, error) {
	if kind.New == nil {
		return 0, fmt.Errorf("%w: %q has no constructor", ErrInvalidKind, kind.Type)
	}
	attrs := make(map[string]string, len(kind.Attributes))
	maps.Copy(attrs, kind.Attributes)
	return g.addNode(parent, key, node{kind: kind, leaf: kind.New(), attrs: attrs})
}

// Connect records a data connection. Endpoints are checked by Validate.
func (g *Graph) Connect(from, to string) {
	g.conns = append(g.conns, Connection{From: from, To: to})
	g.validated, g.initialized = false, false
}

// Connections returns the recorded connections in declaration order.
func (g *Graph) Connections() []Connection {
	out := make([]Connection, len(g.conns))
	copy(out, g.conns)
	return out
}

// Key returns the key of a node. The root key is empty.
func (g *Graph) Key(id NodeID) string {
	return g.nodes[id].key
}

// Path returns the dotted path of a node from the root.
func (g *Graph) Path(id NodeID) string {
	var keys []string
	for cur := id; cur != RootID && g.valid(cur); cur = g.nodes[cur].parent {
		keys = append(keys, g.nodes[cur].key)
	}
	for i, j := 0, len(keys)-1; i < j; i, j = i+1, j-1 {
		keys[i], keys[j] = keys[j], keys[i]
	}
	return keypath.Join(keys...)
}

// Parent returns the parent of a node, or -1 for the root.
func (g *Graph) Parent(id NodeID) NodeID {
	return g.nodes[id].parent
}

// IsPipe reports whether id is an ActionPipe.
func (g *Graph) IsPipe(id NodeID) bool {
	return g.nodes[id].pipe
}

// Children returns the children of a pipe in declaration order.
func (g *Graph) Children(id NodeID) []NodeID {
	out := make([]NodeID, len(g.nodes[id].children))
	copy(out, g.nodes[id].children)
	return out
}

// Type returns the configuration type of a leaf, or "pipe".
func (g *Graph) Type(id NodeID) string {
	if g.nodes[id].pipe {
		return "pipe"
	}
	return g.nodes[id].kind.Type
}

// Role returns the role of a leaf. Pipes are stages.
func (g *Graph) Role(id NodeID) Role {
	if g.nodes[id].pipe {
		return RoleStage
	}
	return g.nodes[id].kind.Role
}

// Leaf returns the behaviour of a leaf node, or nil for pipes.
func (g *Graph) Leaf(id NodeID) Leaf {
	return g.nodes[id].leaf
}

// Enabled reports the enabled flag of a node.
func (g *Graph) Enabled(id NodeID) bool {
	return g.nodes[id].enabled
}

// SetEnabled sets the enabled flag of a node.
func (g *Graph) SetEnabled(id NodeID, enabled bool) {
	g.nodes[id].enabled = enabled
}

// Attribute returns the value of a node attribute.
func (g *Graph) Attribute(id NodeID, name string) (string, error) {
	n := &g.nodes[id]
	if name == EnabledAttribute {
		return strconv.FormatBool(n.enabled), nil
	}
	v, ok := n.attrs[name]
	if !ok {
		return "", &AttributeError{Node: g.Path(id), Name: name}
	}
	return v, nil
}

// SetAttribute changes the value of an existing node attribute.
func (g *Graph) SetAttribute(id NodeID, name, value string) error {
	n := &g.nodes[id]
	if name == EnabledAttribute {
		b, err := strconv.ParseBool(value)
		if err != nil {
			return &AttributeError{Node: g.Path(id), Name: name, Err: err}
		}
		n.enabled = b
		return nil
	}
	if _, ok := n.attrs[name]; !ok {
		return &AttributeError{Node: g.Path(id), Name: name}
	}
	n.attrs[name] = value
	return nil
}

// DefineAttribute adds or overwrites an attribute on a node. It is used by
// configuration loading for parameters a kind does not declare.
func (g *Graph) DefineAttribute(id NodeID, name, value string) {
	if name == EnabledAttribute {
		if b, err := strconv.ParseBool(value); err == nil {
			g.nodes[id].enabled = b
		}
		return
	}
	g.nodes[id].attrs[name] = value
}

// Attributes returns a copy of the attributes of a node, enabled included.
func (g *Graph) Attributes(id NodeID) map[string]string {
	out := maps.Clone(g.nodes[id].attrs)
	if out == nil {
		out = map[string]string{}
	}
	out[EnabledAttribute] = strconv.FormatBool(g.nodes[id].enabled)
	return out
}

func (g *Graph) child(id NodeID, key string) (NodeID, bool) {
	for _, c := range g.nodes[id].children {
		if g.nodes[c].key == key {
			return c, true
		}
	}
	return 0, false
}

func (g *Graph) childKeys(id NodeID) []string {
	keys := make([]string, 0, len(g.nodes[id].children))
	for _, c := range g.nodes[id].children {
		keys = append(keys, g.nodes[c].key)
	}
	return keys
}

// search finds key among the descendants of id, depth-first pre-order in
// declaration order.
func (g *Graph) search(id NodeID, key string) (NodeID, bool) {
	for _, c := range g.nodes[id].children {
		if g.nodes[c].key == key {
			return c, true
		}
		if g.nodes[c].pipe {
			if found, ok := g.search(c, key); ok {
				return found, true
			}
		}
	}
	return 0, false
}

// Find resolves path from the root. See FindIn.
func (g *Graph) Find(path string) (NodeID, error) {
	return g.FindIn(RootID, path)
}

// FindIn resolves path below pipe. The first key is searched depth-first
// through the pipe and all its descendants; each further key must name a
// direct child of the node found so far.
func (g *Graph) FindIn(pipe NodeID, path string) (NodeID, error) {
	p, err := keypath.Parse(path)
	if err != nil {
		return 0, fmt.Errorf("find %q: %w", path, err)
	}
	if !g.valid(pipe) {
		return 0, fmt.Errorf("%w: %d", ErrInvalidNodeID, pipe)
	}
	if !g.nodes[pipe].pipe {
		return 0, fmt.Errorf("find %q: %w", path, ErrNotPipe)
	}
	id, ok := g.search(pipe, p.Head())
	if !ok {
		return 0, &NotFoundError{Path: path, Missing: p.Head(), Available: g.childKeys(pipe)}
	}
	for _, key := range p.Tail() {
		next, ok := g.child(id, key)
		if !ok {
			return 0, &NotFoundError{Path: path, Missing: key, Available: g.childKeys(id)}
		}
		id = next
	}
	return id, nil
}

// Walk visits every node below the root depth-first pre-order in
// declaration order. Returning false from fn skips the node's subtree.
func (g *Graph) Walk(fn func(id NodeID) bool) {
	g.walk(RootID, fn)
}

func (g *Graph) walk(id NodeID, fn func(NodeID) bool) {
	for _, c := range g.nodes[id].children {
		if fn(c) && g.nodes[c].pipe {
			g.walk(c, fn)
		}
	}
}

// Leaves returns the leaves with the given role in pre-order.
func (g *Graph) Leaves(role Role) []NodeID {
	var out []NodeID
	g.Walk(func(id NodeID) bool {
		if !g.nodes[id].pipe && g.nodes[id].kind.Role == role {
			out = append(out, id)
		}
		return true
	})
	return out
}

// Trackers returns the tracker leaves in pre-order.
func (g *Graph) Trackers() []NodeID {
	return g.Leaves(RoleTracker)
}

// Devices returns the device leaves in pre-order.
func (g *Graph) Devices() []NodeID {
	return g.Leaves(RoleDevice)
}
