// Package config provides typed access to loosely structured configuration
// and the worker options file.
//
// A Config wraps a map[string]any, as produced by decoding YAML or JSON.
// Accessors take a key and a default; the default is returned when the key
// is missing or its value cannot be converted. Keys may be dotted to reach
// into nested maps:
//
//	cfg, err := config.FromFile("worker.yaml")
//	fps := cfg.Float("targetFPS", 30)
//	tracing := cfg.Bool("observability.tracing", false)
//
// WorkerOptionsFrom turns a Config into validated WorkerOptions.
package config
