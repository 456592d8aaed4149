/*
Package action implements the tracking action graph.

An action graph is a tree of nodes kept in an arena and addressed by NodeID.
A node is either a leaf Action, backed by a registered LeafKind, or an
ActionPipe holding an ordered list of children. Leaves declare named inputs
and outputs; connections bind an input of one leaf to the output of another
using "node.name" data paths:

	{"from": "camera0.image", "to": "tracker0.imageRGB"}

# Lifecycle

A graph is built programmatically (AddPipe, AddLeaf, Connect) or from a
tracking configuration (Parse, Build). Init validates the whole graph before
any leaf runs: connection endpoints, data path grammar, declared inputs and
outputs, cycles over the connection edges, tracker presence and name
uniqueness. Validation failures carry the graph codes of package errors and
leave every leaf uninitialized.

Apply runs one pass. Within each pipe, children run in declaration order. An
input connected to the output of a later sibling reads the value that output
held after the previous pass. Disabled nodes and their subtrees are skipped.
A failing child does not stop its siblings; the pipe reports the joined
failures.

# Thread Safety

Graph is NOT safe for concurrent use. It is owned by the worker goroutine.
*/
package action
