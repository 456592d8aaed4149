package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format is the encoding of a configuration document.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// ErrUnsupportedFormat indicates a document encoding without a decoder.
var ErrUnsupportedFormat = errors.New("unsupported config format")

var decoders = map[Format]func([]byte, any) error{
	FormatYAML: yaml.Unmarshal,
	FormatJSON: json.Unmarshal,
}

var extFormats = map[string]Format{
	".yaml": FormatYAML,
	".yml":  FormatYAML,
	".json": FormatJSON,
}

// FormatOf picks the format of a file from its extension.
func FormatOf(path string) (Format, error) {
	f, ok := extFormats[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Base(path))
	}
	return f, nil
}

// Parse decodes a document into a Config. A blank document is an empty
// Config; a document whose top level is not a mapping is an error.
func Parse(f Format, data []byte) (Config, error) {
	decode, ok := decoders[f]
	if !ok {
		return Config{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, f)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return New(nil), nil
	}
	var m map[string]any
	if err := decode(data, &m); err != nil {
		return Config{}, fmt.Errorf("parse %s config: %w", f, err)
	}
	return New(m), nil
}

// FromFile reads and parses the configuration file at path.
func FromFile(path string) (Config, error) {
	f, err := FormatOf(path)
	if err != nil {
		return Config{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(f, data)
}
