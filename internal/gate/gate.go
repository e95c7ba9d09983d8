// Package gate serializes user mutations and pauses silent polling while
// the user interacts with a message.
package gate

import (
	"errors"
	"sync"
)

// ErrMutationInFlight is returned when a send, edit or unsend is already outstanding.
var ErrMutationInFlight = errors.New("another message action is in progress")

// Gate holds the interaction flags and the single mutation slot.
type Gate struct {
	mu       sync.Mutex
	editing  bool
	menuOpen bool
	mutating string
}

// New returns an open gate.
func New() *Gate {
	return &Gate{}
}

// Acquire claims the mutation slot for op. The returned release func is
// idempotent.
func (g *Gate) Acquire(op string) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.mutating != "" {
		return nil, ErrMutationInFlight
	}
	g.mutating = op
	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			g.mutating = ""
			g.mu.Unlock()
		})
	}, nil
}

// SetEditing marks an inline edit as open or closed.
func (g *Gate) SetEditing(on bool) {
	g.mu.Lock()
	g.editing = on
	g.mu.Unlock()
}

// SetMenuOpen marks a message action menu as open or closed.
func (g *Gate) SetMenuOpen(on bool) {
	g.mu.Lock()
	g.menuOpen = on
	g.mu.Unlock()
}

// Blocked reports whether silent polls must be skipped.
func (g *Gate) Blocked() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.editing || g.menuOpen || g.mutating != ""
}

// Interacting reports whether an edit or menu is open. Silent page-1
// refreshes are suppressed while this holds.
func (g *Gate) Interacting() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.editing || g.menuOpen
}

// InFlight returns the name of the outstanding mutation, or "".
func (g *Gate) InFlight() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.mutating
}

// Flags is a point-in-time copy of the gate.
type Flags struct {
	Editing  bool
	MenuOpen bool
	InFlight string
}

// Snapshot returns the current flags.
func (g *Gate) Snapshot() Flags {
	g.mu.Lock()
	defer g.mu.Unlock()
	return Flags{Editing: g.editing, MenuOpen: g.menuOpen, InFlight: g.mutating}
}
