// Package logbuf is the log-listener registry of a trackflow application.
//
// A Registry owns the registered log listeners, the log level and an
// optional ring buffer. Without buffering, messages reach listeners
// immediately on the logging goroutine. With buffering, messages are kept
// in a bounded ring buffer (default 32 entries, oldest overwritten) until
// Flush delivers them on the caller's goroutine.
//
// Registry.Handler adapts the registry to slog, so the worker's structured
// logs can be routed to client listeners.
package logbuf

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// DefaultBufferSize is the ring buffer capacity of a new Registry.
const DefaultBufferSize = 32

// ErrInvalidLevel indicates a level outside LevelLog..LevelDebug.
var ErrInvalidLevel = errors.New("invalid log level")

// Level is a log verbosity. A message is delivered when its level is at
// most the registry level; LevelLog messages are always delivered.
type Level int

const (
	LevelLog Level = iota
	LevelFatal
	LevelWarning
	LevelNotice
	LevelInfo
	LevelDebug
)

// String returns the level name.
func (l Level) String() string {
	switch l {
	case LevelLog:
		return "log"
	case LevelFatal:
		return "fatal"
	case LevelWarning:
		return "warning"
	case LevelNotice:
		return "notice"
	case LevelInfo:
		return "info"
	case LevelDebug:
		return "debug"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// Valid reports whether l is a defined level.
func (l Level) Valid() bool {
	return l >= LevelLog && l <= LevelDebug
}

// ParseLevel accepts a level name ("warning") or its number ("2").
func ParseLevel(s string) (Level, error) {
	for l := LevelLog; l <= LevelDebug; l++ {
		if strings.EqualFold(s, l.String()) || s == strconv.Itoa(int(l)) {
			return l, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidLevel, s)
}

// slogNotice sits between slog's info and warn levels.
const slogNotice = slog.LevelInfo + 2

// FromSlog maps a slog level to a Level.
func FromSlog(l slog.Level) Level {
	switch {
	case l >= slog.LevelError:
		return LevelFatal
	case l >= slog.LevelWarn:
		return LevelWarning
	case l >= slogNotice:
		return LevelNotice
	case l >= slog.LevelInfo:
		return LevelInfo
	default:
		return LevelDebug
	}
}

// Message is one log entry.
type Message struct {
	Level Level
	Time  time.Time
	Text  string
}

// Listener receives log messages.
type Listener func(Message)

// Token identifies a listener registration.
type Token string

type listenerEntry struct {
	token Token
	fn    Listener
}

// Registry is the explicit log-listener registry. Safe for concurrent use.
type Registry struct {
	mu        sync.Mutex
	listeners []listenerEntry
	level     Level
	buffering bool

	ring    []Message
	start   int
	count   int
	dropped uint64

	panics atomic.Uint64
}

// New creates a registry at LevelWarning with buffering disabled.
func New() *Registry {
	return &Registry{
		level: LevelWarning,
		ring:  make([]Message, DefaultBufferSize),
	}
}

// AddListener registers fn and returns its token.
func (r *Registry) AddListener(fn Listener) Token {
	tok := Token(uuid.NewString())
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, listenerEntry{token: tok, fn: fn})
	return tok
}

// RemoveListener removes a registration; it returns false for unknown tokens.
func (r *Registry) RemoveListener(tok Token) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, e := range r.listeners {
		if e.token == tok {
			r.listeners = append(r.listeners[:i], r.listeners[i+1:]...)
			return true
		}
	}
	return false
}

// ClearListeners removes every listener.
func (r *Registry) ClearListeners() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = nil
}

// SetLevel changes the log level.
func (r *Registry) SetLevel(l Level) error {
	if !l.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidLevel, int(l))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.level = l
	return nil
}

// Level returns the log level.
func (r *Registry) Level() Level {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.level
}

// Enabled reports whether messages at l pass the level filter.
func (r *Registry) Enabled(l Level) bool {
	return l <= r.Level()
}

// EnableBuffer starts buffering messages until Flush.
func (r *Registry) EnableBuffer() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buffering = true
}

// DisableBuffer stops buffering and delivers any buffered messages.
func (r *Registry) DisableBuffer() {
	r.mu.Lock()
	r.buffering = false
	msgs, listeners := r.takeLocked()
	r.mu.Unlock()
	r.deliver(listeners, msgs)
}

// Buffering reports whether buffering is enabled.
func (r *Registry) Buffering() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.buffering
}

// SetBufferSize changes the ring buffer capacity, keeping the newest
// messages. Sizes below 1 are raised to 1.
func (r *Registry) SetBufferSize(n int) {
	if n < 1 {
		n = 1
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	msgs := r.orderedLocked()
	if len(msgs) > n {
		r.dropped += uint64(len(msgs) - n)
		msgs = msgs[len(msgs)-n:]
	}
	r.ring = make([]Message, n)
	copy(r.ring, msgs)
	r.start = 0
	r.count = len(msgs)
}

// BufferSize returns the ring buffer capacity.
func (r *Registry) BufferSize() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ring)
}

// Dropped returns how many buffered messages were overwritten.
func (r *Registry) Dropped() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}

// Log records a message. It returns false when the level filter rejects it.
func (r *Registry) Log(l Level, text string) bool {
	return r.log(Message{Level: l, Time: time.Now(), Text: text})
}

func (r *Registry) log(m Message) bool {
	r.mu.Lock()
	if m.Level > r.level {
		r.mu.Unlock()
		return false
	}
	if r.buffering {
		r.pushLocked(m)
		r.mu.Unlock()
		return true
	}
	listeners := r.snapshotLocked()
	r.mu.Unlock()
	r.deliver(listeners, []Message{m})
	return true
}

func (r *Registry) pushLocked(m Message) {
	size := len(r.ring)
	if r.count == size {
		r.ring[r.start] = m
		r.start = (r.start + 1) % size
		r.dropped++
		return
	}
	r.ring[(r.start+r.count)%size] = m
	r.count++
}

func (r *Registry) orderedLocked() []Message {
	out := make([]Message, r.count)
	for i := 0; i < r.count; i++ {
		out[i] = r.ring[(r.start+i)%len(r.ring)]
	}
	return out
}

func (r *Registry) takeLocked() ([]Message, []Listener) {
	msgs := r.orderedLocked()
	r.start, r.count = 0, 0
	clear(r.ring)
	return msgs, r.snapshotLocked()
}

func (r *Registry) snapshotLocked() []Listener {
	out := make([]Listener, len(r.listeners))
	for i, e := range r.listeners {
		out[i] = e.fn
	}
	return out
}

// Flush delivers buffered messages, oldest first, on the calling goroutine.
// It returns the number of messages delivered.
func (r *Registry) Flush() int {
	r.mu.Lock()
	msgs, listeners := r.takeLocked()
	r.mu.Unlock()
	r.deliver(listeners, msgs)
	return len(msgs)
}

// ListenerPanics returns how many listener invocations panicked.
func (r *Registry) ListenerPanics() uint64 {
	return r.panics.Load()
}

func (r *Registry) deliver(listeners []Listener, msgs []Message) {
	for _, m := range msgs {
		for _, fn := range listeners {
			r.call(fn, m)
		}
	}
}

// call isolates one listener invocation. A panic is counted and never
// reaches the logging goroutine.
func (r *Registry) call(fn Listener, m Message) {
	defer func() {
		if rec := recover(); rec != nil {
			r.panics.Add(1)
		}
	}()
	fn(m)
}
