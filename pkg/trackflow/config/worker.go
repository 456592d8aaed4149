package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/randalmurphal/trackflow/pkg/trackflow/logbuf"
)

// Worker option defaults.
const (
	DefaultTargetFPS      = 30.0
	DefaultEventQueueSize = 256
	DefaultHTTPTimeout    = 30 * time.Second
)

// ErrInvalidOption indicates an option value out of range.
var ErrInvalidOption = errors.New("invalid worker option")

// WorkerOptions are the settings a worker is created with.
type WorkerOptions struct {
	// TargetFPS caps the tracking loop rate. Zero or less disables pacing.
	TargetFPS float64

	// LogLevel filters messages reaching client log listeners.
	LogLevel logbuf.Level

	// LogBuffer enables log buffering with LogBufferSize entries.
	LogBuffer     bool
	LogBufferSize int

	// InitDataPath is the SQLite file for tracker init data. Empty keeps
	// init data in memory.
	InitDataPath string

	// EventQueueSize bounds undelivered events.
	EventQueueSize int

	// PluginDir, LicensePath and LicenseData configure the platform
	// collaborators.
	PluginDir   string
	LicensePath string
	LicenseData string

	// HTTPTimeout bounds one attempt of an http(s) URI fetch or put.
	HTTPTimeout time.Duration

	// URIDirs maps virtual URI prefixes onto directories, so that
	// "project-dir:tracker.vl" resolves below the mapped directory.
	URIDirs map[string]string

	// Metrics and Tracing enable OpenTelemetry instrumentation.
	Metrics bool
	Tracing bool
}

// DefaultWorkerOptions returns the options used when nothing is configured.
func DefaultWorkerOptions() WorkerOptions {
	return WorkerOptions{
		TargetFPS:      DefaultTargetFPS,
		LogLevel:       logbuf.LevelWarning,
		LogBufferSize:  logbuf.DefaultBufferSize,
		EventQueueSize: DefaultEventQueueSize,
		HTTPTimeout:    DefaultHTTPTimeout,
	}
}

// WorkerOptionsFrom reads worker options from cfg on top of the defaults.
//
// Recognized keys: targetFPS, logLevel (name or number), logBuffer,
// logBufferSize, initDataPath, eventQueueSize, pluginDir, licensePath,
// licenseData, httpTimeout ("5s" or seconds), uriDirs (list of
// "prefix=dir"), metrics, tracing.
func WorkerOptionsFrom(cfg Config) (WorkerOptions, error) {
	opts := DefaultWorkerOptions()
	opts.TargetFPS = cfg.Float("targetFPS", opts.TargetFPS)
	opts.LogBuffer = cfg.Bool("logBuffer", opts.LogBuffer)
	opts.LogBufferSize = cfg.Int("logBufferSize", opts.LogBufferSize)
	opts.InitDataPath = cfg.String("initDataPath", opts.InitDataPath)
	opts.EventQueueSize = cfg.Int("eventQueueSize", opts.EventQueueSize)
	opts.PluginDir = cfg.String("pluginDir", opts.PluginDir)
	opts.LicensePath = cfg.String("licensePath", opts.LicensePath)
	opts.LicenseData = cfg.String("licenseData", opts.LicenseData)
	opts.Metrics = cfg.Bool("metrics", opts.Metrics)
	opts.Tracing = cfg.Bool("tracing", opts.Tracing)
	opts.HTTPTimeout = cfg.Duration("httpTimeout", opts.HTTPTimeout)

	if cfg.Has("uriDirs") {
		entries := cfg.StringSlice("uriDirs", nil)
		if entries == nil {
			return WorkerOptions{}, fmt.Errorf("%w: uriDirs must be a list of strings", ErrInvalidOption)
		}
		dirs, err := parseURIDirs(entries)
		if err != nil {
			return WorkerOptions{}, err
		}
		opts.URIDirs = dirs
	}

	if cfg.Has("logLevel") {
		raw, ok := cfg.lookupString("logLevel")
		if !ok {
			raw = strconv.Itoa(cfg.Int("logLevel", -1))
		}
		l, err := logbuf.ParseLevel(raw)
		if err != nil {
			return WorkerOptions{}, fmt.Errorf("%w: logLevel: %w", ErrInvalidOption, err)
		}
		opts.LogLevel = l
	}

	if err := opts.Validate(); err != nil {
		return WorkerOptions{}, err
	}
	return opts, nil
}

// parseURIDirs splits "prefix=dir" entries. The prefix ends at the first
// '=' and must not be empty.
func parseURIDirs(entries []string) (map[string]string, error) {
	dirs := make(map[string]string, len(entries))
	for _, e := range entries {
		prefix, dir, ok := strings.Cut(e, "=")
		if !ok || prefix == "" || dir == "" {
			return nil, fmt.Errorf("%w: uriDirs entry %q is not prefix=dir", ErrInvalidOption, e)
		}
		dirs[prefix] = dir
	}
	return dirs, nil
}

// LoadWorkerOptions reads worker options from a YAML or JSON file.
func LoadWorkerOptions(path string) (WorkerOptions, error) {
	cfg, err := FromFile(path)
	if err != nil {
		return WorkerOptions{}, err
	}
	return WorkerOptionsFrom(cfg)
}

// Validate checks option ranges.
func (o WorkerOptions) Validate() error {
	var errs []error
	if o.TargetFPS < 0 {
		errs = append(errs, fmt.Errorf("%w: targetFPS %v must not be negative", ErrInvalidOption, o.TargetFPS))
	}
	if !o.LogLevel.Valid() {
		errs = append(errs, fmt.Errorf("%w: logLevel %d", ErrInvalidOption, int(o.LogLevel)))
	}
	if o.LogBufferSize < 1 {
		errs = append(errs, fmt.Errorf("%w: logBufferSize %d must be positive", ErrInvalidOption, o.LogBufferSize))
	}
	if o.HTTPTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%w: httpTimeout %v must be positive", ErrInvalidOption, o.HTTPTimeout))
	}
	if o.EventQueueSize < 1 {
		errs = append(errs, fmt.Errorf("%w: eventQueueSize %d must be positive", ErrInvalidOption, o.EventQueueSize))
	}
	return errors.Join(errs...)
}
