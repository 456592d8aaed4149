// Package event provides the events a worker emits and the structures that
// carry them to client code: the Event tagged union, listener scopes, the
// event queue written by the worker and drained by the pump, and the
// listener registry.
//
// The worker never invokes listeners. It appends events to a Queue; a client
// goroutine drains the queue and dispatches each event through a Registry.
package event
