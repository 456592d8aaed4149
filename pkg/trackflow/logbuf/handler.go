package logbuf

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
)

// Handler returns an slog.Handler that formats records as logfmt text and
// logs them through r.
func (r *Registry) Handler() slog.Handler {
	return &handler{r: r}
}

type handler struct {
	r   *Registry
	ops []func(slog.Handler) slog.Handler
}

func (h *handler) Enabled(_ context.Context, l slog.Level) bool {
	return h.r.Enabled(FromSlog(l))
}

func (h *handler) Handle(ctx context.Context, rec slog.Record) error {
	var buf bytes.Buffer
	var inner slog.Handler = slog.NewTextHandler(&buf, &slog.HandlerOptions{
		Level: slog.LevelDebug - 4,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) == 0 && (a.Key == slog.TimeKey || a.Key == slog.LevelKey) {
				return slog.Attr{}
			}
			return a
		},
	})
	for _, op := range h.ops {
		inner = op(inner)
	}
	if err := inner.Handle(ctx, rec); err != nil {
		return err
	}
	h.r.log(Message{
		Level: FromSlog(rec.Level),
		Time:  rec.Time,
		Text:  strings.TrimSuffix(buf.String(), "\n"),
	})
	return nil
}

func (h *handler) with(op func(slog.Handler) slog.Handler) *handler {
	ops := make([]func(slog.Handler) slog.Handler, len(h.ops), len(h.ops)+1)
	copy(ops, h.ops)
	return &handler{r: h.r, ops: append(ops, op)}
}

func (h *handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	return h.with(func(inner slog.Handler) slog.Handler { return inner.WithAttrs(attrs) })
}

func (h *handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return h.with(func(inner slog.Handler) slog.Handler { return inner.WithGroup(name) })
}
