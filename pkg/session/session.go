// Package session tracks the active conversation. Session ids scope cache
// fingerprints and scheduled replies; rotating the id on a chat switch is
// what keeps a decoy reply from landing in the wrong conversation.
package session

import (
	"sync"

	"github.com/google/uuid"
)

// NewID generates a fresh opaque session identifier.
func NewID() string {
	return "wa-session-" + uuid.NewString()
}

// Tracker owns the currently active session id. Rotation hooks let the
// scheduler and cache react to a chat switch without the tracker knowing
// about either.
type Tracker struct {
	mu      sync.RWMutex
	current string
	hooks   []func(oldID string)
}

// NewTracker creates a tracker with a fresh session id.
func NewTracker() *Tracker {
	return &Tracker{current: NewID()}
}

// Current returns the active session id.
func (t *Tracker) Current() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.current
}

// IsActive reports whether id is still the active session. Used by the
// scheduler's fire-time staleness check.
func (t *Tracker) IsActive(id string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return id != "" && id == t.current
}

// OnRotate registers a hook invoked with the invalidated id after every
// rotation. Hooks run synchronously, outside the tracker's lock.
func (t *Tracker) OnRotate(fn func(oldID string)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.hooks = append(t.hooks, fn)
}

// Rotate invalidates the current session and returns the fresh id.
// Subsequent messages get a new fingerprint namespace; pending replies and
// dedup state bound to the old id are torn down by the hooks.
func (t *Tracker) Rotate() string {
	t.mu.Lock()
	old := t.current
	t.current = NewID()
	fresh := t.current
	hooks := make([]func(string), len(t.hooks))
	copy(hooks, t.hooks)
	t.mu.Unlock()

	for _, fn := range hooks {
		fn(old)
	}
	return fresh
}
