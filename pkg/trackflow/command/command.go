// Package command defines the commands clients send to a worker, their JSON
// form, their completion results, and the FIFO queue that carries them
// across the goroutine boundary.
package command

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrEmptyName indicates a command without a name.
	ErrEmptyName = errors.New("command name is empty")

	// ErrInvalidCommand indicates a command document that is not a JSON
	// object with a string "name".
	ErrInvalidCommand = errors.New("invalid command")

	// ErrInvalidParam indicates a parameter that cannot be decoded into the
	// type a handler expects.
	ErrInvalidParam = errors.New("invalid command parameter")
)

// Command is an immutable request to a worker. It is consumed exactly once
// and produces exactly one Result.
type Command struct {
	id      string
	name    string
	param   json.RawMessage
	blob    []byte
	context any
}

// New creates a command whose parameter is the JSON encoding of param.
func New(name string, param any) (*Command, error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	c := &Command{id: uuid.NewString(), name: name}
	if param != nil {
		raw, err := json.Marshal(param)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidParam, err)
		}
		c.param = raw
	}
	return c, nil
}

// NewString creates a command from a name and a string parameter. A
// parameter that is itself valid JSON is kept as JSON; any other text is
// stored as a JSON string.
func NewString(name, param string) (*Command, error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	c := &Command{id: uuid.NewString(), name: name}
	switch {
	case param == "":
	case json.Valid([]byte(param)):
		c.param = json.RawMessage(param)
	default:
		raw, _ := json.Marshal(param)
		c.param = raw
	}
	return c, nil
}

type wire struct {
	Name  string          `json:"name"`
	Param json.RawMessage `json:"param,omitempty"`
}

// Parse decodes a {"name": ..., "param": ...} command document.
func Parse(data []byte) (*Command, error) {
	var w wire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCommand, err)
	}
	if w.Name == "" {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCommand, ErrEmptyName)
	}
	c := &Command{id: uuid.NewString(), name: w.Name}
	if len(w.Param) > 0 && !bytes.Equal(w.Param, []byte("null")) {
		c.param = w.Param
	}
	return c, nil
}

// WithBlob returns a copy of c carrying a binary payload.
func (c *Command) WithBlob(blob []byte) *Command {
	cp := *c
	cp.blob = append([]byte(nil), blob...)
	return &cp
}

// WithContext returns a copy of c carrying a client context value. The value
// is handed back unchanged in the command's Result.
func (c *Command) WithContext(v any) *Command {
	cp := *c
	cp.context = v
	return &cp
}

// ID returns the unique command ID.
func (c *Command) ID() string { return c.id }

// Name returns the command name.
func (c *Command) Name() string { return c.name }

// Param returns the raw JSON parameter, or nil when absent.
func (c *Command) Param() json.RawMessage { return c.param }

// HasParam reports whether a parameter was supplied.
func (c *Command) HasParam() bool { return len(c.param) > 0 }

// Blob returns the binary payload, or nil.
func (c *Command) Blob() []byte { return c.blob }

// Context returns the client context value.
func (c *Command) Context() any { return c.context }

// DecodeParam unmarshals the parameter into v.
func (c *Command) DecodeParam(v any) error {
	if len(c.param) == 0 {
		return fmt.Errorf("%w: %s: missing parameter", ErrInvalidParam, c.name)
	}
	if err := json.Unmarshal(c.param, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidParam, c.name, err)
	}
	return nil
}

// ParamString returns a string parameter's value, or the raw JSON text for
// any other parameter.
func (c *Command) ParamString() string {
	var s string
	if err := json.Unmarshal(c.param, &s); err == nil {
		return s
	}
	return string(c.param)
}

// MarshalJSON encodes the command in its {"name","param"} form.
func (c *Command) MarshalJSON() ([]byte, error) {
	return json.Marshal(wire{Name: c.name, Param: c.param})
}

// String implements fmt.Stringer.
func (c *Command) String() string {
	if len(c.param) == 0 {
		return c.name
	}
	return c.name + " " + string(c.param)
}
