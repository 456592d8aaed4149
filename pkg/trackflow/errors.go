package trackflow

import (
	"errors"
	"fmt"
)

// Sentinel errors for worker operations.
var (
	// ErrThreadNotRegistered is returned by Thread methods after the thread
	// was unregistered or when it belongs to another worker.
	ErrThreadNotRegistered = errors.New("thread not registered")

	// ErrWaitTimeout is returned by WaitEvents when a running worker
	// produced no event within the timeout.
	ErrWaitTimeout = errors.New("timed out waiting for events")

	// ErrAlreadyStarted is returned by Start on a started worker.
	ErrAlreadyStarted = errors.New("worker already started")

	// ErrNotStarted is returned by synchronous steps before Start.
	ErrNotStarted = errors.New("worker not started")

	// ErrNotSync is returned by synchronous entry points of an
	// asynchronous worker.
	ErrNotSync = errors.New("worker is not synchronous")

	// ErrWorkerClosed is returned after Close.
	ErrWorkerClosed = errors.New("worker closed")

	// ErrUnknownCommand is the failure of a command with an unknown name.
	ErrUnknownCommand = errors.New("unknown command")

	// ErrNoTracker is the failure of a command that needs a loaded
	// tracking configuration.
	ErrNoTracker = errors.New("no tracking configuration loaded")

	// ErrNoSnapshot is returned by snapshot reads before the first
	// completed pass.
	ErrNoSnapshot = errors.New("no completed tick")

	// ErrEmptyURI is returned when a URI argument is empty.
	ErrEmptyURI = errors.New("empty URI")
)

// CommandError is the failure of one command.
type CommandError struct {
	Name string
	Err  error
}

// Error implements the error interface.
func (e *CommandError) Error() string {
	return fmt.Sprintf("command %s: %v", e.Name, e.Err)
}

// Unwrap returns the underlying error.
func (e *CommandError) Unwrap() error {
	return e.Err
}
