package status

import (
	"sync"
	"time"
)

// DefaultFailureThreshold is how many consecutive failed polls mark the
// session degraded.
const DefaultFailureThreshold = 3

// Health folds poll outcomes into the state machine. Successes move a
// connecting or degraded session to Ready; a run of failures moves it to
// Degraded.
type Health struct {
	machine   *Machine
	threshold int

	mu          sync.Mutex
	failures    int
	lastErr     error
	lastSuccess time.Time
}

// NewHealth creates a health tracker driving m.
func NewHealth(m *Machine, threshold int) *Health {
	if threshold <= 0 {
		threshold = DefaultFailureThreshold
	}
	return &Health{machine: m, threshold: threshold}
}

// Observe records one poll outcome.
func (h *Health) Observe(err error) {
	h.mu.Lock()
	if err == nil {
		h.failures = 0
		h.lastErr = nil
		h.lastSuccess = time.Now()
	} else {
		h.failures++
		h.lastErr = err
	}
	failures := h.failures
	h.mu.Unlock()

	switch cur := h.machine.Current(); {
	case cur == Stopped || cur == Booting:
	case err == nil:
		_ = h.machine.Transition(Ready)
	case failures >= h.threshold:
		_ = h.machine.Transition(Degraded)
	}
}

// Snapshot is the health summary reported to clients.
type Snapshot struct {
	State       State
	Failures    int
	LastError   string
	LastSuccess time.Time
}

// Snapshot returns the current health.
func (h *Health) Snapshot() Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	s := Snapshot{
		State:       h.machine.Current(),
		Failures:    h.failures,
		LastSuccess: h.lastSuccess,
	}
	if h.lastErr != nil {
		s.LastError = h.lastErr.Error()
	}
	return s
}
