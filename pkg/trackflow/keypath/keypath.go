// Package keypath parses the dotted key paths used to address nodes and data
// in the action graph and the typed store.
//
// A key path is a sequence of keys joined by '.', for example
// "tracker0.extrinsic" or "pipe.sub.image". Keys are non-empty and contain no
// whitespace. Connection endpoints use the stricter "node.name" grammar.
package keypath

import (
	"errors"
	"fmt"
	"strings"
)

// Separator joins keys in a path.
const Separator = "."

var (
	// ErrEmptyPath indicates an empty path string.
	ErrEmptyPath = errors.New("empty key path")

	// ErrEmptySegment indicates a path with an empty key, e.g. "a..b" or ".a".
	ErrEmptySegment = errors.New("empty key in path")

	// ErrWhitespace indicates a key containing whitespace.
	ErrWhitespace = errors.New("key contains whitespace")

	// ErrNotNodeName indicates a path that does not match "node.name".
	ErrNotNodeName = errors.New("path does not match node.name")
)

// Path is a parsed key path.
type Path []string

// Parse splits s on '.' and validates every key.
func Parse(s string) (Path, error) {
	if s == "" {
		return nil, ErrEmptyPath
	}
	parts := strings.Split(s, Separator)
	for _, p := range parts {
		if err := ValidateKey(p); err != nil {
			return nil, fmt.Errorf("%w: %q", err, s)
		}
	}
	return Path(parts), nil
}

// MustParse is like Parse but panics on error.
func MustParse(s string) Path {
	p, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return p
}

// ValidateKey reports whether key is usable as a single path segment.
func ValidateKey(key string) error {
	if key == "" {
		return ErrEmptySegment
	}
	if strings.ContainsAny(key, " \t\n\r") {
		return ErrWhitespace
	}
	if strings.Contains(key, Separator) {
		return ErrEmptySegment
	}
	return nil
}

// SplitNodeName splits a "node.name" data path. Exactly two keys are required.
func SplitNodeName(s string) (node, name string, err error) {
	p, err := Parse(s)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrNotNodeName, err)
	}
	if len(p) != 2 {
		return "", "", fmt.Errorf("%w: %q", ErrNotNodeName, s)
	}
	return p[0], p[1], nil
}

// Join builds a path string from keys.
func Join(keys ...string) string {
	return strings.Join(keys, Separator)
}

// String returns the dotted form of the path.
func (p Path) String() string {
	return strings.Join(p, Separator)
}

// Head returns the first key, or "" for an empty path.
func (p Path) Head() string {
	if len(p) == 0 {
		return ""
	}
	return p[0]
}

// Tail returns the path without its first key.
func (p Path) Tail() Path {
	if len(p) <= 1 {
		return nil
	}
	return p[1:]
}

// Parent returns the path without its last key and the last key itself.
func (p Path) Parent() (Path, string) {
	if len(p) == 0 {
		return nil, ""
	}
	return p[:len(p)-1], p[len(p)-1]
}
