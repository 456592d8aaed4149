package dataset

import (
	"errors"
	"fmt"
	"strings"

	"github.com/randalmurphal/trackflow/pkg/trackflow/keypath"
)

// NodeID indexes a node in a Store arena.
type NodeID int

// RootID is the ID of the root DataSet of every Store.
const RootID NodeID = 0

// ErrWrongType indicates a path that resolves to a node of another kind.
var ErrWrongType = errors.New("wrong data type")

// NotFoundError reports a path segment that does not exist.
type NotFoundError struct {
	Path      string   // full path that was looked up
	Missing   string   // key that could not be resolved
	Available []string // keys present at the failing level
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("data %q not found at %q (available: %s)",
		e.Path, e.Missing, strings.Join(e.Available, ","))
}

type storeNode struct {
	key      string
	parent   NodeID
	children []NodeID // DataSet only, insertion order
	data     Data     // nil for DataSet
	removed  bool
}

// Store is the arena-backed typed store. The zero value is not usable; call
// NewStore.
type Store struct {
	nodes []storeNode
}

// NewStore creates a store holding only the root DataSet.
func NewStore() *Store {
	return &Store{nodes: []storeNode{{parent: -1}}}
}

// Len returns the number of live nodes, root included.
func (s *Store) Len() int {
	n := 0
	for i := range s.nodes {
		if !s.nodes[i].removed {
			n++
		}
	}
	return n
}

// Clear removes every node except the root.
func (s *Store) Clear() {
	s.nodes = s.nodes[:1]
	s.nodes[0].children = nil
}

func (s *Store) child(id NodeID, key string) (NodeID, bool) {
	for _, c := range s.nodes[id].children {
		if s.nodes[c].key == key {
			return c, true
		}
	}
	return 0, false
}

func (s *Store) childKeys(id NodeID) []string {
	keys := make([]string, 0, len(s.nodes[id].children))
	for _, c := range s.nodes[id].children {
		keys = append(keys, s.nodes[c].key)
	}
	return keys
}

// Lookup resolves a dotted path to a node ID. The empty path is the root.
func (s *Store) Lookup(path string) (NodeID, error) {
	if path == "" {
		return RootID, nil
	}
	p, err := keypath.Parse(path)
	if err != nil {
		return 0, fmt.Errorf("lookup %q: %w", path, err)
	}
	id := RootID
	for _, key := range p {
		if s.nodes[id].data != nil {
			return 0, fmt.Errorf("lookup %q: %q is a %s cell: %w",
				path, s.nodes[id].key, s.nodes[id].data.Kind(), ErrWrongType)
		}
		next, ok := s.child(id, key)
		if !ok {
			return 0, &NotFoundError{Path: path, Missing: key, Available: s.childKeys(id)}
		}
		id = next
	}
	return id, nil
}

// IsDataSet reports whether path resolves to a DataSet.
func (s *Store) IsDataSet(path string) bool {
	id, err := s.Lookup(path)
	return err == nil && s.nodes[id].data == nil
}

// Data returns the cell at path.
func (s *Store) Data(path string) (Data, error) {
	id, err := s.Lookup(path)
	if err != nil {
		return nil, err
	}
	d := s.nodes[id].data
	if d == nil {
		return nil, fmt.Errorf("%q is a data set: %w", path, ErrWrongType)
	}
	return d, nil
}

// Image returns the image cell at path.
func (s *Store) Image(path string) (*Image, error) {
	return cellAs[*Image](s, path, KindImage)
}

// Extrinsic returns the extrinsic cell at path.
func (s *Store) Extrinsic(path string) (*ExtrinsicData, error) {
	return cellAs[*ExtrinsicData](s, path, KindExtrinsic)
}

// Intrinsic returns the intrinsic cell at path.
func (s *Store) Intrinsic(path string) (*IntrinsicData, error) {
	return cellAs[*IntrinsicData](s, path, KindIntrinsic)
}

// DataBase returns the attribute cell at path.
func (s *Store) DataBase(path string) (*DataBase, error) {
	return cellAs[*DataBase](s, path, KindDataBase)
}

func cellAs[T Data](s *Store, path string, want Kind) (T, error) {
	var zero T
	d, err := s.Data(path)
	if err != nil {
		return zero, err
	}
	t, ok := d.(T)
	if !ok {
		return zero, fmt.Errorf("%q holds %s, want %s: %w", path, d.Kind(), want, ErrWrongType)
	}
	return t, nil
}

// DataSet ensures a DataSet exists at path, creating missing levels, and
// returns its ID.
func (s *Store) DataSet(path string) (NodeID, error) {
	if path == "" {
		return RootID, nil
	}
	p, err := keypath.Parse(path)
	if err != nil {
		return 0, fmt.Errorf("data set %q: %w", path, err)
	}
	return s.ensure(path, p)
}

func (s *Store) ensure(path string, p keypath.Path) (NodeID, error) {
	id := RootID
	for _, key := range p {
		next, ok := s.child(id, key)
		if !ok {
			next = s.add(id, key, nil)
		} else if s.nodes[next].data != nil {
			return 0, fmt.Errorf("%q: %q is a %s cell: %w",
				path, key, s.nodes[next].data.Kind(), ErrWrongType)
		}
		id = next
	}
	return id, nil
}

func (s *Store) add(parent NodeID, key string, d Data) NodeID {
	id := NodeID(len(s.nodes))
	s.nodes = append(s.nodes, storeNode{key: key, parent: parent, data: d})
	s.nodes[parent].children = append(s.nodes[parent].children, id)
	return id
}

// Set stores d at path, creating intermediate DataSets. An existing cell at
// path is replaced; an existing DataSet is an error.
func (s *Store) Set(path string, d Data) error {
	if d == nil {
		return fmt.Errorf("set %q: nil data", path)
	}
	p, err := keypath.Parse(path)
	if err != nil {
		return fmt.Errorf("set %q: %w", path, err)
	}
	dir, key := p.Parent()
	parent, err := s.ensure(path, dir)
	if err != nil {
		return err
	}
	if id, ok := s.child(parent, key); ok {
		if s.nodes[id].data == nil {
			return fmt.Errorf("set %q: target is a data set: %w", path, ErrWrongType)
		}
		s.nodes[id].data = d
		return nil
	}
	s.add(parent, key, d)
	return nil
}

// Remove deletes the node at path and its subtree.
func (s *Store) Remove(path string) error {
	id, err := s.Lookup(path)
	if err != nil {
		return err
	}
	if id == RootID {
		s.Clear()
		return nil
	}
	parent := s.nodes[id].parent
	kids := s.nodes[parent].children
	for i, c := range kids {
		if c == id {
			s.nodes[parent].children = append(kids[:i:i], kids[i+1:]...)
			break
		}
	}
	s.markRemoved(id)
	return nil
}

func (s *Store) markRemoved(id NodeID) {
	n := &s.nodes[id]
	n.removed = true
	n.data = nil
	for _, c := range n.children {
		s.markRemoved(c)
	}
	n.children = nil
}

// Keys returns the child keys of the DataSet at path in insertion order.
func (s *Store) Keys(path string) ([]string, error) {
	id, err := s.Lookup(path)
	if err != nil {
		return nil, err
	}
	if s.nodes[id].data != nil {
		return nil, fmt.Errorf("%q is a %s cell: %w", path, s.nodes[id].data.Kind(), ErrWrongType)
	}
	return s.childKeys(id), nil
}

// Walk calls fn for every cell in depth-first insertion order. Returning an
// error from fn stops the walk.
func (s *Store) Walk(fn func(path string, d Data) error) error {
	return s.walk(RootID, "", fn)
}

func (s *Store) walk(id NodeID, prefix string, fn func(string, Data) error) error {
	for _, c := range s.nodes[id].children {
		n := &s.nodes[c]
		path := n.key
		if prefix != "" {
			path = prefix + keypath.Separator + n.key
		}
		if n.data != nil {
			if err := fn(path, n.data); err != nil {
				return err
			}
			continue
		}
		if err := s.walk(c, path, fn); err != nil {
			return err
		}
	}
	return nil
}

// Clone returns a deep copy of the store. Removed nodes are compacted away.
func (s *Store) Clone() *Store {
	c := NewStore()
	s.cloneInto(c, RootID, RootID)
	return c
}

func (s *Store) cloneInto(dst *Store, src, parent NodeID) {
	for _, id := range s.nodes[src].children {
		n := &s.nodes[id]
		nid := dst.add(parent, n.key, Clone(n.data))
		if n.data == nil {
			s.cloneInto(dst, id, nid)
		}
	}
}
