package event

import (
	"sync"

	"github.com/google/uuid"
)

// Listener receives events on the pumping goroutine.
type Listener func(Event)

// Token identifies one listener registration.
type Token string

type entry struct {
	token   Token
	channel Channel
	scope   Scope
	fn      Listener
}

// Registry holds listener registrations. Registering the same function
// twice yields two independent registrations. Safe for concurrent use;
// changes apply from the next dispatch on.
type Registry struct {
	mu      sync.RWMutex
	entries []entry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Add registers fn for events on ch whose scope matches scope.
func (r *Registry) Add(ch Channel, scope Scope, fn Listener) Token {
	tok := Token(uuid.NewString())
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry{token: tok, channel: ch, scope: scope, fn: fn})
	return tok
}

// Remove deletes a registration. It returns false for unknown tokens.
func (r *Registry) Remove(tok Token) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, e := range r.entries {
		if e.token == tok {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Clear removes every registration.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = nil
}

// Len returns the number of registrations.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Match returns the listeners for e in registration order.
func (r *Registry) Match(e Event) []Listener {
	ch := e.Channel()
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Listener
	for _, en := range r.entries {
		if en.channel == ch && en.scope.Matches(e.Scope) {
			out = append(out, en.fn)
		}
	}
	return out
}

// Dispatch calls every listener matching e. A panicking listener does not
// affect the others; onPanic, if set, receives the recovered value. It
// returns the number of listeners called.
func (r *Registry) Dispatch(e Event, onPanic func(recovered any)) int {
	listeners := r.Match(e)
	for _, fn := range listeners {
		call(fn, e, onPanic)
	}
	return len(listeners)
}

func call(fn Listener, e Event, onPanic func(any)) {
	defer func() {
		if rec := recover(); rec != nil && onPanic != nil {
			onPanic(rec)
		}
	}()
	fn(e)
}
