package action

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for graph building and execution.
var (
	// ErrNotPipe indicates an operation that requires an ActionPipe.
	ErrNotPipe = errors.New("node is not a pipe")

	// ErrNotLeaf indicates an operation that requires a leaf Action.
	ErrNotLeaf = errors.New("node is not a leaf")

	// ErrDuplicateKey indicates a sibling with the same key already exists.
	ErrDuplicateKey = errors.New("duplicate node key")

	// ErrInvalidKind indicates a LeafKind without a constructor.
	ErrInvalidKind = errors.New("invalid leaf kind")

	// ErrNotInitialized indicates Apply was called before a successful Init.
	ErrNotInitialized = errors.New("graph not initialized")

	// ErrInvalidNodeID indicates a NodeID outside the arena.
	ErrInvalidNodeID = errors.New("invalid node id")
)

// NotFoundError reports a node path that does not resolve.
type NotFoundError struct {
	Path      string   // path that was looked up
	Missing   string   // key that could not be resolved
	Available []string // sibling keys at the failing level
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("node %q not found at %q (available: %s)",
		e.Path, e.Missing, strings.Join(e.Available, ","))
}

// AttributeError reports an unknown or malformed node attribute.
type AttributeError struct {
	Node string
	Name string
	// Err is set when the value was rejected rather than the name.
	Err error
}

// Error implements the error interface.
func (e *AttributeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("attribute %s.%s: %v", e.Node, e.Name, e.Err)
	}
	return fmt.Sprintf("unknown attribute %s.%s", e.Node, e.Name)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *AttributeError) Unwrap() error {
	return e.Err
}

// NodeError wraps an error with node context.
type NodeError struct {
	// Node is the dotted path of the node that failed.
	Node string
	// Op is the operation that failed ("init" or "apply").
	Op  string
	Err error
}

// Error implements the error interface.
func (e *NodeError) Error() string {
	return fmt.Sprintf("node %s: %s: %v", e.Node, e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *NodeError) Unwrap() error {
	return e.Err
}

// PanicError captures a panic raised by a leaf action.
type PanicError struct {
	Node  string
	Value any
	Stack string
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("node %s panicked: %v", e.Node, e.Value)
}
