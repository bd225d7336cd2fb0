// Package gate implements the enrollment-active signal.
//
// The gate is separate from the blackboard. The control surface opens it,
// which starts a new enrollment attempt; the validate stage closes it when a
// face fails quality checks and the verify stage closes it once an attempt has
// been committed or rejected by the registry. Recognition and verification do
// no work while it is closed.
package gate

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Attempt identifies one open period of the gate.
type Attempt struct {
	ID      string    `json:"id"`
	Started time.Time `json:"started"`
}

// Gate is a process-wide boolean with attempt tracking. The zero value is a
// closed gate ready for use.
type Gate struct {
	set     atomic.Bool
	mu      sync.Mutex
	attempt Attempt
	opened  uint64
	closed  uint64
}

// New returns a closed gate.
func New() *Gate {
	return &Gate{}
}

// Set opens the gate. If it was closed a new attempt begins and changed is
// true; if it was already open the current attempt is returned unchanged.
func (g *Gate) Set() (attempt Attempt, changed bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.set.Load() {
		return g.attempt, false
	}
	return g.openLocked(), true
}

// Clear closes the gate. It returns the attempt that was open and true when
// this call performed the transition, so exactly one caller observes the close.
func (g *Gate) Clear() (Attempt, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.set.Load() {
		return Attempt{}, false
	}
	return g.closeLocked(), true
}

// ClearAttempt closes the gate only if id is the open attempt. It reports
// whether this call performed the transition.
func (g *Gate) ClearAttempt(id string) (Attempt, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.set.Load() || g.attempt.ID != id {
		return Attempt{}, false
	}
	return g.closeLocked(), true
}

// Toggle opens a closed gate or closes an open one. It returns the attempt
// that began or ended and whether the gate is now open.
func (g *Gate) Toggle() (Attempt, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.set.Load() {
		return g.closeLocked(), false
	}
	return g.openLocked(), true
}

func (g *Gate) openLocked() Attempt {
	g.attempt = Attempt{ID: uuid.NewString(), Started: time.Now().UTC()}
	g.opened++
	g.set.Store(true)
	return g.attempt
}

func (g *Gate) closeLocked() Attempt {
	closed := g.attempt
	g.attempt = Attempt{}
	g.closed++
	g.set.Store(false)
	return closed
}

// IsSet reports whether the gate is open.
func (g *Gate) IsSet() bool {
	return g.set.Load()
}

// Current returns the open attempt, if any.
func (g *Gate) Current() (Attempt, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.set.Load() {
		return Attempt{}, false
	}
	return g.attempt, true
}

// Stats reports how many attempts have been opened and closed.
func (g *Gate) Stats() (opened, closed uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.opened, g.closed
}
