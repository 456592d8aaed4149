package action

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/randalmurphal/trackflow/pkg/trackflow/dataset"
)

// Observer receives leaf execution callbacks during Apply.
type Observer interface {
	// ActionStarted is called before a leaf runs. The returned context is
	// passed to the leaf.
	ActionStarted(ctx context.Context, node string) context.Context
	// ActionFinished is called after a leaf ran, with its error if any.
	ActionFinished(ctx context.Context, node string, d time.Duration, err error)
}

type noopObserver struct{}

func (noopObserver) ActionStarted(ctx context.Context, _ string) context.Context  { return ctx }
func (noopObserver) ActionFinished(context.Context, string, time.Duration, error) {}

type applyConfig struct {
	observer Observer
	logger   *slog.Logger
}

// ApplyOption configures Init and Apply.
type ApplyOption func(*applyConfig)

// WithObserver sets the observer notified around every leaf execution.
func WithObserver(o Observer) ApplyOption {
	return func(c *applyConfig) {
		if o != nil {
			c.observer = o
		}
	}
}

// WithLogger sets the logger handed to leaves through Env.
func WithLogger(l *slog.Logger) ApplyOption {
	return func(c *applyConfig) {
		c.logger = l
	}
}

func newApplyConfig(opts []ApplyOption) applyConfig {
	cfg := applyConfig{observer: noopObserver{}}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	return cfg
}

// Initialized reports whether Init completed successfully.
func (g *Graph) Initialized() bool {
	return g.initialized
}

// Init validates the graph and initializes every enabled leaf against store,
// depth-first pre-order in declaration order. Leaves disabled now are
// initialized by the first Apply that finds them enabled. On a validation
// error no leaf is initialized.
func (g *Graph) Init(ctx context.Context, store *dataset.Store, opts ...ApplyOption) error {
	g.initialized = false
	if err := g.Validate(); err != nil {
		return err
	}
	for i := range g.nodes {
		g.nodes[i].ready = false
	}
	cfg := newApplyConfig(opts)
	if err := g.initPipe(ctx, store, RootID, &cfg); err != nil {
		return err
	}
	g.initialized = true
	return nil
}

func (g *Graph) initPipe(ctx context.Context, store *dataset.Store, id NodeID, cfg *applyConfig) error {
	for _, c := range g.nodes[id].children {
		n := &g.nodes[c]
		if !n.enabled {
			continue
		}
		if n.pipe {
			if err := g.initPipe(ctx, store, c, cfg); err != nil {
				return err
			}
			continue
		}
		if err := g.initLeaf(ctx, store, c, cfg); err != nil {
			return err
		}
	}
	return nil
}

func (g *Graph) initLeaf(ctx context.Context, store *dataset.Store, id NodeID, cfg *applyConfig) error {
	env := g.env(store, id, cfg)
	if err := g.guard(id, func() error { return g.nodes[id].leaf.Init(ctx, env) }); err != nil {
		return &NodeError{Node: g.Path(id), Op: "init", Err: err}
	}
	g.nodes[id].ready = true
	return nil
}

func (g *Graph) env(store *dataset.Store, id NodeID, cfg *applyConfig) *Env {
	return &Env{
		Store:  store,
		Logger: cfg.logger.With(slog.String("node_id", g.Path(id))),
		g:      g,
		id:     id,
	}
}

// Apply runs one pass over the graph. Every enabled leaf runs once,
// strictly sequentially. Failures of individual leaves are joined into the
// returned error; the remaining siblings still run. A cancelled context stops
// the pass before the next leaf.
func (g *Graph) Apply(ctx context.Context, store *dataset.Store, opts ...ApplyOption) error {
	if !g.initialized {
		return ErrNotInitialized
	}
	cfg := newApplyConfig(opts)
	return g.applyPipe(ctx, store, RootID, &cfg)
}

func (g *Graph) applyPipe(ctx context.Context, store *dataset.Store, id NodeID, cfg *applyConfig) error {
	var errs []error
	for _, c := range g.nodes[id].children {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		n := &g.nodes[c]
		if !n.enabled {
			continue
		}
		if n.pipe {
			if err := g.applyPipe(ctx, store, c, cfg); err != nil {
				errs = append(errs, err)
			}
			continue
		}
		if err := g.applyLeaf(ctx, store, c, cfg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (g *Graph) applyLeaf(ctx context.Context, store *dataset.Store, id NodeID, cfg *applyConfig) error {
	if !g.nodes[id].ready {
		if err := g.initLeaf(ctx, store, id, cfg); err != nil {
			return err
		}
	}
	path := g.Path(id)
	env := g.env(store, id, cfg)
	leafCtx := cfg.observer.ActionStarted(ctx, path)
	start := time.Now()
	err := g.guard(id, func() error { return g.nodes[id].leaf.Apply(leafCtx, env) })
	cfg.observer.ActionFinished(leafCtx, path, time.Since(start), err)
	if err != nil {
		return &NodeError{Node: path, Op: "apply", Err: err}
	}
	return nil
}

// guard runs fn, converting a panic into a *PanicError.
func (g *Graph) guard(id NodeID, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{
				Node:  g.Path(id),
				Value: r,
				Stack: string(debug.Stack()),
			}
		}
	}()
	return fn()
}

// Reset forwards a soft or hard reset to every leaf implementing Resetter.
func (g *Graph) Reset(hard bool) {
	g.Walk(func(id NodeID) bool {
		if r, ok := g.nodes[id].leaf.(Resetter); ok {
			r.Reset(hard)
		}
		return true
	})
}

// String returns a short description of the graph for logs.
func (g *Graph) String() string {
	return fmt.Sprintf("graph(nodes=%d connections=%d trackers=%d)",
		len(g.nodes)-1, len(g.conns), len(g.Trackers()))
}
