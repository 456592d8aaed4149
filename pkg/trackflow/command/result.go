package command

import (
	"encoding/json"
	"errors"

	tferrors "github.com/randalmurphal/trackflow/pkg/trackflow/errors"
)

// Failure is the wire form of an error or warning.
type Failure struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Info    string `json:"info,omitempty"`
}

// FailureOf converts err into its wire form. Errors without a tracking code
// get code 0.
func FailureOf(err error) Failure {
	var issue *tferrors.Issue
	if errors.As(err, &issue) {
		return Failure{Code: int(issue.Code), Message: err.Error(), Info: issue.Info}
	}
	return Failure{Message: err.Error()}
}

// Result is the completion of one command.
type Result struct {
	Command  *Command
	Value    json.RawMessage
	Err      error
	Warnings tferrors.Warnings
}

// Succeeded builds a successful Result. value is JSON encoded; encoding
// failures turn the result into a failure.
func Succeeded(c *Command, value any, warnings tferrors.Warnings) Result {
	r := Result{Command: c, Warnings: warnings}
	if value != nil {
		raw, err := json.Marshal(value)
		if err != nil {
			r.Err = err
			return r
		}
		r.Value = raw
	}
	return r
}

// Failed builds a failed Result.
func Failed(c *Command, err error) Result {
	return Result{Command: c, Err: err}
}

// OK reports whether the command succeeded.
func (r Result) OK() bool { return r.Err == nil }

type resultWire struct {
	Name     string          `json:"name"`
	Result   json.RawMessage `json:"result,omitempty"`
	Error    *Failure        `json:"error,omitempty"`
	Warnings []Failure       `json:"warnings,omitempty"`
}

// MarshalJSON encodes the result as {"name", "result" | "error", "warnings"}.
func (r Result) MarshalJSON() ([]byte, error) {
	w := resultWire{Result: r.Value}
	if r.Command != nil {
		w.Name = r.Command.Name()
	}
	if r.Err != nil {
		f := FailureOf(r.Err)
		w.Error = &f
		w.Result = nil
	}
	for _, warn := range r.Warnings {
		w.Warnings = append(w.Warnings, Failure{Code: int(warn.Code), Message: warn.Error(), Info: warn.Info})
	}
	return json.Marshal(w)
}
