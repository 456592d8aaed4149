package trackflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/randalmurphal/trackflow/pkg/trackflow/action"
	"github.com/randalmurphal/trackflow/pkg/trackflow/command"
	"github.com/randalmurphal/trackflow/pkg/trackflow/config"
	"github.com/randalmurphal/trackflow/pkg/trackflow/dataset"
	"github.com/randalmurphal/trackflow/pkg/trackflow/event"
	"github.com/randalmurphal/trackflow/pkg/trackflow/initdata"
	"github.com/randalmurphal/trackflow/pkg/trackflow/logbuf"
	"github.com/randalmurphal/trackflow/pkg/trackflow/observability"
	"github.com/randalmurphal/trackflow/pkg/trackflow/platform"
	"github.com/randalmurphal/trackflow/pkg/trackflow/uri"
)

// Worker executes a tracking pipeline behind a command queue and an event
// queue. All methods are safe for concurrent use unless noted otherwise.
type Worker struct {
	id   string
	mode Mode
	opts config.WorkerOptions

	logger   *slog.Logger
	logs     *logbuf.Registry
	kinds    *action.Kinds
	resolver *uri.Resolver
	initData initdata.Store
	ownStore bool
	license  *platform.License
	metrics  observability.MetricsRecorder
	spans    observability.SpanManager
	observer action.Observer

	commands  *command.Queue
	events    *event.Queue
	listeners *event.Registry

	state     atomic.Int32
	closed    atomic.Bool
	ticks     atomic.Uint64
	fpsBits   atomic.Uint64
	dropped   atomic.Uint64
	snapshot  atomic.Pointer[Snapshot]
	limiter   *rate.Limiter
	lifecycle sync.Mutex
	plugins   []string
	cancel    context.CancelFunc
	done      chan struct{}

	// stepMu serializes synchronous steps. The fields below it are owned
	// by the worker goroutine, or by the holder of stepMu in sync mode.
	stepMu sync.Mutex
	graph  *action.Graph
	store  *dataset.Store
	once   bool

	calibMu  sync.Mutex
	calibDBs []string
	cameras  atomic.Pointer[[]platform.CameraInfo]

	threadsMu sync.Mutex
	threads   map[string]struct{}
}

// New creates an asynchronous worker. Call Start to launch its goroutine.
func New(opts ...Option) (*Worker, error) {
	return newWorker(ModeAsync, opts)
}

// NewSync creates a synchronous worker, driven by RunOnceSync.
func NewSync(opts ...Option) (*Worker, error) {
	return newWorker(ModeSync, opts)
}

func newWorker(mode Mode, opts []Option) (*Worker, error) {
	cfg := defaultWorkerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.opts.Validate(); err != nil {
		return nil, err
	}

	w := &Worker{
		id:        uuid.NewString(),
		mode:      mode,
		opts:      cfg.opts,
		logs:      cfg.logs,
		kinds:     cfg.kinds,
		resolver:  cfg.resolver,
		initData:  cfg.initData,
		license:   cfg.license,
		commands:  command.NewQueue(),
		events:    event.NewQueue(cfg.opts.EventQueueSize),
		listeners: event.NewRegistry(),
		limiter:   rate.NewLimiter(limitFor(cfg.opts.TargetFPS), 1),
		threads:   make(map[string]struct{}),
	}
	w.fpsBits.Store(math.Float64bits(cfg.opts.TargetFPS))

	if w.logs == nil {
		w.logs = logbuf.New()
		if err := w.logs.SetLevel(cfg.opts.LogLevel); err != nil {
			return nil, err
		}
		if cfg.opts.LogBuffer {
			w.logs.SetBufferSize(cfg.opts.LogBufferSize)
			w.logs.EnableBuffer()
		}
	}
	logger := cfg.logger
	if logger == nil {
		logger = slog.New(w.logs.Handler())
	}
	w.logger = observability.EnrichLogger(logger, w.id)

	if w.kinds == nil {
		w.kinds = action.BuiltinKinds()
	}
	if w.resolver == nil {
		client := &http.Client{Timeout: cfg.opts.HTTPTimeout}
		w.resolver = uri.NewResolver(uri.WithHTTP(uri.NewHTTPHandler(client)))
	}
	for prefix, dir := range cfg.opts.URIDirs {
		w.resolver.RegisterDir(prefix, dir)
	}
	if w.license == nil {
		w.license = &platform.License{}
	}
	if cfg.opts.LicensePath != "" {
		w.license.SetPath(cfg.opts.LicensePath)
	}
	if cfg.opts.LicenseData != "" {
		w.license.SetData(cfg.opts.LicenseData)
	}

	w.metrics = observability.NoopMetrics{}
	if cfg.opts.Metrics {
		m, err := observability.NewMetricsRecorder(cfg.meters)
		if err != nil {
			return nil, fmt.Errorf("init metrics: %w", err)
		}
		w.metrics = m
	}
	w.spans = observability.NoopSpanManager{}
	if cfg.opts.Tracing {
		w.spans = observability.NewSpanManager(cfg.tracers)
	}
	w.observer = observability.NewActionObserver(w.metrics, w.spans, w.logger)

	if w.initData == nil {
		w.ownStore = true
		if cfg.opts.InitDataPath != "" {
			s, err := initdata.NewSQLiteStore(cfg.opts.InitDataPath, w.logger)
			if err != nil {
				return nil, fmt.Errorf("open init data store: %w", err)
			}
			w.initData = s
		} else {
			w.initData = initdata.NewMemoryStore()
		}
	}
	return w, nil
}

func limitFor(fps float64) rate.Limit {
	if fps <= 0 {
		return rate.Inf
	}
	return rate.Limit(fps)
}

// ID returns the unique identifier of the worker.
func (w *Worker) ID() string { return w.id }

// Mode returns whether the worker is synchronous or asynchronous.
func (w *Worker) Mode() Mode { return w.mode }

// State returns the current lifecycle state.
func (w *Worker) State() State { return State(w.state.Load()) }

func (w *Worker) setState(s State) { w.state.Store(int32(s)) }

// Ticks returns the number of graph passes executed so far.
func (w *Worker) Ticks() uint64 { return w.ticks.Load() }

// TargetFPS returns the current target frame rate.
func (w *Worker) TargetFPS() float64 { return math.Float64frombits(w.fpsBits.Load()) }

// Logs returns the log registry the worker logs to.
func (w *Worker) Logs() *logbuf.Registry { return w.logs }

// Logger returns the worker logger.
func (w *Worker) Logger() *slog.Logger { return w.logger }

// Resolver returns the URI resolver used to load tracking configurations.
func (w *Worker) Resolver() *uri.Resolver { return w.resolver }

// License returns the license holder of the worker.
func (w *Worker) License() *platform.License { return w.license }

// LoadLicense reads the configured license through the worker's resolver.
// The content is returned as is.
func (w *Worker) LoadLicense(ctx context.Context) ([]byte, error) {
	return w.license.Load(ctx, w.resolver)
}

// PluginDir resolves the plugin directory from the options, the
// environment and the executable location.
func (w *Worker) PluginDir() (string, error) {
	return platform.ResolvePluginDir(w.opts.PluginDir)
}

// Plugins returns the plugin libraries found by the last Start.
func (w *Worker) Plugins() []string {
	w.lifecycle.Lock()
	defer w.lifecycle.Unlock()
	return slices.Clone(w.plugins)
}

// scanPlugins lists the plugin directory. A missing directory is logged and
// leaves the worker without plugins.
func (w *Worker) scanPlugins() {
	dir, err := w.PluginDir()
	var found []string
	if err == nil {
		found, err = platform.Plugins(dir)
	}
	observability.LogPluginScan(w.logger, dir, found, err)
	w.plugins = found
}

// Version returns the version of the running build.
func Version() platform.Version {
	return platform.CurrentVersion()
}

// PushCommand queues c. Commands pushed while the worker is not started
// stay queued until it is.
func (w *Worker) PushCommand(c *command.Command) error {
	if w.closed.Load() {
		return ErrWorkerClosed
	}
	return w.commands.Push(c)
}

// Push builds a command from a name and a parameter encoded as JSON, and
// queues it.
func (w *Worker) Push(name string, param any) (*command.Command, error) {
	c, err := command.New(name, param)
	if err != nil {
		return nil, err
	}
	return c, w.PushCommand(c)
}

// PushString queues a command with a string parameter; see
// command.NewString.
func (w *Worker) PushString(name, param string) (*command.Command, error) {
	c, err := command.NewString(name, param)
	if err != nil {
		return nil, err
	}
	return c, w.PushCommand(c)
}

// PushJSON queues a command given as {"name": ..., "param": ...}.
func (w *Worker) PushJSON(doc []byte) (*command.Command, error) {
	c, err := command.Parse(doc)
	if err != nil {
		return nil, err
	}
	return c, w.PushCommand(c)
}

// PendingCommands returns the number of queued commands.
func (w *Worker) PendingCommands() int { return w.commands.Len() }

// Start enters the Running state. An asynchronous worker launches its
// goroutine, which ends when ctx is cancelled or Stop is called.
func (w *Worker) Start(ctx context.Context) error {
	w.lifecycle.Lock()
	defer w.lifecycle.Unlock()
	if w.closed.Load() {
		return ErrWorkerClosed
	}
	if w.State().Started() {
		return ErrAlreadyStarted
	}
	w.scanPlugins()
	w.setState(StateRunning)
	if w.mode == ModeSync {
		observability.LogWorkerStart(w.logger, w.mode.String(), w.TargetFPS())
		return nil
	}

	loopCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})
	go w.loop(loopCtx, w.done)
	return nil
}

// Stop ends the worker loop after the command or pass in progress and
// waits for it. Queued commands are kept for a later Start.
func (w *Worker) Stop() error {
	w.lifecycle.Lock()
	defer w.lifecycle.Unlock()
	if !w.State().Started() {
		return nil
	}
	if w.cancel != nil {
		w.cancel()
		<-w.done
		w.cancel, w.done = nil, nil
	} else {
		observability.LogWorkerStop(w.logger, w.ticks.Load())
	}
	w.setState(StateStopped)
	return nil
}

// Close stops the worker, rejects further commands and releases the init
// data store if the worker opened it. Buffered log messages are flushed.
func (w *Worker) Close() error {
	if err := w.Stop(); err != nil {
		return err
	}
	if w.closed.Swap(true) {
		return nil
	}
	w.commands.Close()
	var errs []error
	if w.ownStore {
		if err := w.initData.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close init data store: %w", err))
		}
	}
	w.logs.Flush()
	return errors.Join(errs...)
}

// loop is the body of the worker goroutine.
func (w *Worker) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	// Work in progress is not interrupted by Stop.
	work := context.WithoutCancel(ctx)
	observability.LogWorkerStart(w.logger, w.mode.String(), w.TargetFPS())
	defer func() { observability.LogWorkerStop(w.logger, w.ticks.Load()) }()

	for {
		if !w.wantsPass() {
			c, err := w.commands.Pop(ctx)
			if err != nil {
				return
			}
			w.process(work, c)
		}
		for ctx.Err() == nil {
			c, ok := w.commands.TryPop()
			if !ok {
				break
			}
			w.process(work, c)
		}
		if ctx.Err() != nil {
			return
		}
		if !w.wantsPass() {
			continue
		}
		if err := w.limiter.Wait(ctx); err != nil {
			return
		}
		w.runPass(work)
	}
}

// wantsPass reports whether the next step should execute the graph.
func (w *Worker) wantsPass() bool {
	return w.graph != nil && (w.State() == StateRunning || w.once)
}
