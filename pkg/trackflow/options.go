package trackflow

import (
	"log/slog"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/randalmurphal/trackflow/pkg/trackflow/action"
	"github.com/randalmurphal/trackflow/pkg/trackflow/config"
	"github.com/randalmurphal/trackflow/pkg/trackflow/initdata"
	"github.com/randalmurphal/trackflow/pkg/trackflow/logbuf"
	"github.com/randalmurphal/trackflow/pkg/trackflow/platform"
	"github.com/randalmurphal/trackflow/pkg/trackflow/uri"
)

// workerConfig holds construction settings for a Worker.
type workerConfig struct {
	opts     config.WorkerOptions
	logger   *slog.Logger
	logs     *logbuf.Registry
	kinds    *action.Kinds
	resolver *uri.Resolver
	initData initdata.Store
	license  *platform.License
	meters   metric.MeterProvider
	tracers  trace.TracerProvider
}

func defaultWorkerConfig() workerConfig {
	return workerConfig{opts: config.DefaultWorkerOptions()}
}

// Option configures a Worker.
type Option func(*workerConfig)

// WithOptions sets the worker options, usually loaded with
// config.LoadWorkerOptions.
func WithOptions(o config.WorkerOptions) Option {
	return func(c *workerConfig) {
		c.opts = o
	}
}

// WithTargetFPS overrides the target frame rate of the options.
func WithTargetFPS(fps float64) Option {
	return func(c *workerConfig) {
		c.opts.TargetFPS = fps
	}
}

// WithLogger sets the logger of the worker. By default the worker logs
// through its log registry, so client log listeners see its messages.
func WithLogger(l *slog.Logger) Option {
	return func(c *workerConfig) {
		c.logger = l
	}
}

// WithLogRegistry shares a log registry between workers or with the
// application. By default each worker creates its own.
func WithLogRegistry(r *logbuf.Registry) Option {
	return func(c *workerConfig) {
		c.logs = r
	}
}

// WithKinds sets the leaf kinds tracking configurations may use.
// Default: action.BuiltinKinds().
func WithKinds(k *action.Kinds) Option {
	return func(c *workerConfig) {
		c.kinds = k
	}
}

// WithResolver sets the URI resolver used by createTracker.
func WithResolver(r *uri.Resolver) Option {
	return func(c *workerConfig) {
		c.resolver = r
	}
}

// WithInitDataStore sets where init data is written and read. The worker
// does not close a store passed here.
func WithInitDataStore(s initdata.Store) Option {
	return func(c *workerConfig) {
		c.initData = s
	}
}

// WithLicense shares a license holder with the worker.
func WithLicense(l *platform.License) Option {
	return func(c *workerConfig) {
		c.license = l
	}
}

// WithMeterProvider sets the provider used when metrics are enabled.
// Default: the global provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(c *workerConfig) {
		c.meters = mp
		c.opts.Metrics = true
	}
}

// WithTracerProvider sets the provider used when tracing is enabled.
// Default: the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *workerConfig) {
		c.tracers = tp
		c.opts.Tracing = true
	}
}
