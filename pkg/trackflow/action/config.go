package action

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	tferrors "github.com/randalmurphal/trackflow/pkg/trackflow/errors"
)

// ConfigVersion is the tracking configuration version understood by Parse.
const ConfigVersion = 1

// PipeType is the configuration type of a composite node.
const PipeType = "pipe"

// Config is a tracking configuration.
type Config struct {
	Version int            `json:"version" yaml:"version"`
	Meta    map[string]any `json:"meta,omitempty" yaml:"meta,omitempty"`
	Graph   GraphConfig    `json:"graph" yaml:"graph"`
}

// GraphConfig lists the devices, trackers and connections of a graph.
type GraphConfig struct {
	Devices     []NodeConfig `json:"devices" yaml:"devices"`
	Trackers    []NodeConfig `json:"trackers" yaml:"trackers"`
	Connections []Connection `json:"connections" yaml:"connections"`
}

// NodeConfig declares one node. Children are only used with PipeType.
type NodeConfig struct {
	Name       string         `json:"name" yaml:"name"`
	Type       string         `json:"type" yaml:"type"`
	Enabled    *bool          `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	Parameters map[string]any `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	Children   []NodeConfig   `json:"children,omitempty" yaml:"children,omitempty"`
}

// Parse decodes a tracking configuration. The format follows the file
// extension of filename: ".yaml" and ".yml" are YAML; ".vl", ".json" and no
// extension are JSON. Other extensions fail with FileFormatNotAllowed and
// undecodable content with FileInvalid.
func Parse(data []byte, filename string) (*Config, error) {
	var cfg Config
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, tferrors.Wrap(tferrors.FileInvalid, filename, err)
		}
	case "", ".vl", ".json":
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, tferrors.Wrap(tferrors.FileInvalid, filename, err)
		}
	default:
		return nil, tferrors.New(tferrors.FileFormatNotAllowed, filename)
	}
	if cfg.Version > ConfigVersion || cfg.Version < 0 {
		return nil, tferrors.Newf(tferrors.FileInvalid, "%s: unsupported version %d", filename, cfg.Version)
	}
	return &cfg, nil
}

// Build creates a graph from cfg using the leaf kinds in kinds. Devices are
// added before trackers, each in declaration order. Unknown types fail with
// FileInvalid; duplicate names fail with GraphDuplicateDeviceName or
// GraphDuplicateTrackerName. All other checks happen in Validate.
func Build(cfg *Config, kinds *Kinds) (*Graph, error) {
	g := New()
	names := make(map[string]bool)

	for _, nc := range cfg.Graph.Devices {
		if names[nc.Name] {
			return nil, tferrors.New(tferrors.GraphDuplicateDeviceName, nc.Name)
		}
		if err := addConfigNode(g, RootID, nc, kinds, names); err != nil {
			return nil, err
		}
	}
	for _, nc := range cfg.Graph.Trackers {
		if names[nc.Name] {
			return nil, tferrors.New(tferrors.GraphDuplicateTrackerName, nc.Name)
		}
		if err := addConfigNode(g, RootID, nc, kinds, names); err != nil {
			return nil, err
		}
	}
	for _, c := range cfg.Graph.Connections {
		g.Connect(c.From, c.To)
	}
	return g, nil
}

func addConfigNode(g *Graph, parent NodeID, nc NodeConfig, kinds *Kinds, names map[string]bool) error {
	var (
		id  NodeID
		err error
	)
	if nc.Type == PipeType {
		id, err = g.AddPipe(parent, nc.Name)
	} else {
		kind, ok := kinds.Get(nc.Type)
		if !ok {
			return tferrors.Newf(tferrors.FileInvalid, "unknown type %q for node %q", nc.Type, nc.Name)
		}
		id, err = g.AddLeaf(parent, nc.Name, kind)
	}
	if err != nil {
		return tferrors.Wrap(tferrors.FileInvalid, nc.Name, err)
	}
	names[nc.Name] = true

	if nc.Enabled != nil {
		g.SetEnabled(id, *nc.Enabled)
	}
	keys := make([]string, 0, len(nc.Parameters))
	for k := range nc.Parameters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v, err := paramString(nc.Parameters[k])
		if err != nil {
			return tferrors.Wrap(tferrors.FileInvalid, nc.Name+"."+k, err)
		}
		g.DefineAttribute(id, k, v)
	}

	for _, child := range nc.Children {
		if nc.Type != PipeType {
			return tferrors.Newf(tferrors.FileInvalid, "node %q of type %q cannot have children", nc.Name, nc.Type)
		}
		if err := addConfigNode(g, id, child, kinds, names); err != nil {
			return err
		}
	}
	return nil
}

// paramString renders a configuration parameter as an attribute value.
// Scalars use their natural text form; lists and objects are JSON.
func paramString(v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	case bool:
		return strconv.FormatBool(t), nil
	case int:
		return strconv.Itoa(t), nil
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64), nil
	case map[string]any, []any:
		b, err := json.Marshal(t)
		if err != nil {
			return "", err
		}
		return string(b), nil
	default:
		return fmt.Sprint(t), nil
	}
}

// Load parses and builds a configuration in one step.
func Load(data []byte, filename string, kinds *Kinds) (*Graph, error) {
	cfg, err := Parse(data, filename)
	if err != nil {
		return nil, err
	}
	return Build(cfg, kinds)
}
