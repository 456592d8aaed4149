// Package observability provides structured logging helpers, OpenTelemetry
// metrics and tracing for trackflow workers.
//
// All features are opt-in and have no-op implementations when disabled.
package observability

import (
	"log/slog"
	"time"
)

// EnrichLogger adds worker context to a logger.
func EnrichLogger(logger *slog.Logger, workerID string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(slog.String("worker_id", workerID))
}

// NodeLogger adds the node being executed to a logger.
func NodeLogger(logger *slog.Logger, nodeID string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(slog.String("node_id", nodeID))
}

// LogWorkerStart logs the start of the worker loop.
func LogWorkerStart(logger *slog.Logger, mode string, targetFPS float64) {
	if logger == nil {
		return
	}
	logger.Info("worker started",
		slog.String("mode", mode),
		slog.Float64("target_fps", targetFPS),
	)
}

// LogWorkerStop logs the end of the worker loop.
func LogWorkerStop(logger *slog.Logger, ticks uint64) {
	if logger == nil {
		return
	}
	logger.Info("worker stopped", slog.Uint64("ticks", ticks))
}

// LogPluginScan logs the plugin directory lookup done at start.
func LogPluginScan(logger *slog.Logger, dir string, plugins []string, err error) {
	if logger == nil {
		return
	}
	if err != nil {
		logger.Warn("plugin directory unavailable",
			slog.String("dir", dir),
			slog.String("error", err.Error()),
		)
		return
	}
	logger.Info("plugins found",
		slog.String("dir", dir),
		slog.Int("count", len(plugins)),
	)
}

// LogCommandApplied logs a successful command.
func LogCommandApplied(logger *slog.Logger, name string, durationMs float64, warnings int) {
	if logger == nil {
		return
	}
	logger.Debug("command applied",
		slog.String("cmd.name", name),
		slog.Float64("duration_ms", durationMs),
		slog.Int("warnings", warnings),
	)
}

// LogCommandFailed logs a failed command. Command failures are reported to
// the client through completion events, so this is a warning.
func LogCommandFailed(logger *slog.Logger, name string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("command failed",
		slog.String("cmd.name", name),
		slog.String("error", err.Error()),
	)
}

// LogTickComplete logs a finished graph pass.
func LogTickComplete(logger *slog.Logger, tick uint64, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Debug("tick completed",
		slog.Uint64("tick", tick),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogTickError logs a failed graph pass. The worker keeps running.
func LogTickError(logger *slog.Logger, tick uint64, err error) {
	if logger == nil {
		return
	}
	logger.Error("tick failed",
		slog.Uint64("tick", tick),
		slog.String("error", err.Error()),
	)
}

// LogListenerPanic logs a recovered listener panic.
func LogListenerPanic(logger *slog.Logger, channel string, value any) {
	if logger == nil {
		return
	}
	logger.Error("listener panicked",
		slog.String("channel", channel),
		slog.Any("panic", value),
	)
}

// LogEventsDropped logs events discarded because the queue was full.
func LogEventsDropped(logger *slog.Logger, total uint64) {
	if logger == nil {
		return
	}
	logger.Warn("event queue overflow", slog.Uint64("dropped_total", total))
}

// TimedOperation returns a function reporting the elapsed milliseconds.
func TimedOperation() func() float64 {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start).Microseconds()) / 1000
	}
}
