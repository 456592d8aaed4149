package trackflow

import "fmt"

// State is the lifecycle state of a worker.
//
//	Created -> Running <-> Paused -> Stopped
//
// Start enters Running; runTracking and pauseTracking switch between
// Running and Paused; Stop enters Stopped. A stopped worker can be started
// again.
type State int32

const (
	StateCreated State = iota
	StateRunning
	StatePaused
	StateStopped
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Started reports whether the worker is Running or Paused.
func (s State) Started() bool {
	return s == StateRunning || s == StatePaused
}

// Mode selects how a worker executes.
type Mode int

const (
	// ModeAsync runs the worker on its own goroutine.
	ModeAsync Mode = iota
	// ModeSync runs the worker only inside RunOnceSync and
	// ProcessCommandSync.
	ModeSync
)

// String returns "async" or "sync".
func (m Mode) String() string {
	if m == ModeSync {
		return "sync"
	}
	return "async"
}
