package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Issue is an error or warning carrying a tracking code and an info string.
// The content of Info depends on the code, e.g. the offending node name or
// "node::missingKey::availableKeys".
type Issue struct {
	Code    Code
	Info    string
	Warning bool
	// Err is an optional underlying cause.
	Err error
}

// New creates an error Issue.
func New(code Code, info string) *Issue {
	return &Issue{Code: code, Info: info}
}

// Newf creates an error Issue with a formatted info string.
func Newf(code Code, format string, args ...any) *Issue {
	return &Issue{Code: code, Info: fmt.Sprintf(format, args...)}
}

// Warn creates a warning Issue.
func Warn(code Code, info string) *Issue {
	return &Issue{Code: code, Info: info, Warning: true}
}

// Wrap creates an error Issue around a cause.
func Wrap(code Code, info string, err error) *Issue {
	return &Issue{Code: code, Info: info, Err: err}
}

// Error implements the error interface.
func (e *Issue) Error() string {
	kind := "error"
	if e.Warning {
		kind = "warning"
	}
	msg := fmt.Sprintf("%s %d (%s)", kind, int(e.Code), e.Code)
	if e.Info != "" {
		msg += ": " + e.Info
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Issue) Unwrap() error {
	return e.Err
}

// Is matches another Issue with the same code and warning flag, so that
// errors.Is(err, errors.New(GraphHasCycles, "")) works regardless of info.
func (e *Issue) Is(target error) bool {
	t, ok := target.(*Issue)
	if !ok {
		return false
	}
	return t.Code == e.Code && t.Warning == e.Warning
}

// CodeOf extracts the code of the first Issue in err's chain.
func CodeOf(err error) (Code, bool) {
	var issue *Issue
	if errors.As(err, &issue) {
		return issue.Code, true
	}
	return 0, false
}

// HasCode reports whether err's chain contains an Issue with code c.
func HasCode(err error, c Code) bool {
	var issue *Issue
	if !errors.As(err, &issue) {
		return false
	}
	if issue.Code == c {
		return true
	}
	// errors.As stops at the first match; joined errors may hold more.
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			if HasCode(e, c) {
				return true
			}
		}
	}
	return false
}

// InputInfo formats the info string for missing input/output errors.
func InputInfo(node, key string, available []string) string {
	return node + "::" + key + "::" + strings.Join(available, ",")
}

// Warnings collects non-fatal issues reported alongside successful results.
type Warnings []*Issue

// Add appends a warning.
func (w *Warnings) Add(code Code, info string) {
	*w = append(*w, Warn(code, info))
}

// Codes returns the codes in report order.
func (w Warnings) Codes() []Code {
	codes := make([]Code, len(w))
	for i, issue := range w {
		codes[i] = issue.Code
	}
	return codes
}
