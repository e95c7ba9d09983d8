package status

import (
	"errors"
	"testing"

	"github.com/matheus3301/campusmsg/internal/bus"
)

func TestInitialState(t *testing.T) {
	m := NewMachine(nil)
	if m.Current() != Booting {
		t.Errorf("initial state = %s, want BOOTING", m.Current())
	}
}

func TestValidTransitions(t *testing.T) {
	tests := []struct {
		from State
		to   State
	}{
		{Booting, Connecting},
		{Booting, Stopped},
		{Connecting, Ready},
		{Connecting, Degraded},
		{Ready, Degraded},
		{Degraded, Ready},
		{Ready, Stopped},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			m := NewMachine(nil)
			walkTo(t, m, tt.from)
			if err := m.Transition(tt.to); err != nil {
				t.Errorf("Transition(%s -> %s) error = %v", tt.from, tt.to, err)
			}
			if m.Current() != tt.to {
				t.Errorf("state = %s, want %s", m.Current(), tt.to)
			}
		})
	}
}

func TestInvalidTransition(t *testing.T) {
	m := NewMachine(nil)
	if err := m.Transition(Ready); err == nil {
		t.Error("Transition(BOOTING -> READY) should fail")
	}
	walkTo(t, m, Stopped)
	if err := m.Transition(Connecting); err == nil {
		t.Error("STOPPED must be terminal")
	}
}

func TestSameStateIsNoop(t *testing.T) {
	b := bus.New()
	ch, unsub := b.Subscribe("session.", 10)
	defer unsub()

	m := NewMachine(b)
	walkTo(t, m, Ready)
	for len(ch) > 0 {
		<-ch
	}
	if err := m.Transition(Ready); err != nil {
		t.Fatal(err)
	}
	if len(ch) != 0 {
		t.Error("no-op transition published an event")
	}
}

func TestTransitionEmitsEvent(t *testing.T) {
	b := bus.New()
	ch, unsub := b.Subscribe("session.", 10)
	defer unsub()

	m := NewMachine(b)
	if err := m.Transition(Connecting); err != nil {
		t.Fatal(err)
	}

	evt := <-ch
	if evt.Kind != bus.StatusChanged {
		t.Errorf("event kind = %q, want %s", evt.Kind, bus.StatusChanged)
	}
	change, ok := evt.Payload.(StatusChange)
	if !ok {
		t.Fatalf("payload type = %T, want StatusChange", evt.Payload)
	}
	if change.From != Booting || change.To != Connecting {
		t.Errorf("change = %v -> %v, want BOOTING -> CONNECTING", change.From, change.To)
	}
}

func TestHealthDegradesAndRecovers(t *testing.T) {
	m := NewMachine(nil)
	walkTo(t, m, Connecting)
	h := NewHealth(m, 2)

	h.Observe(nil)
	if m.Current() != Ready {
		t.Fatalf("state = %s after first success, want READY", m.Current())
	}

	h.Observe(errors.New("timeout"))
	if m.Current() != Ready {
		t.Errorf("one failure degraded the session")
	}
	h.Observe(errors.New("timeout"))
	if m.Current() != Degraded {
		t.Errorf("state = %s after two failures, want DEGRADED", m.Current())
	}
	if s := h.Snapshot(); s.Failures != 2 || s.LastError != "timeout" {
		t.Errorf("snapshot = %+v", s)
	}

	h.Observe(nil)
	if m.Current() != Ready {
		t.Errorf("state = %s after recovery, want READY", m.Current())
	}
	if s := h.Snapshot(); s.Failures != 0 || s.LastSuccess.IsZero() {
		t.Errorf("snapshot after recovery = %+v", s)
	}
}

func TestHealthIgnoresStoppedSession(t *testing.T) {
	m := NewMachine(nil)
	walkTo(t, m, Stopped)
	h := NewHealth(m, 1)
	h.Observe(nil)
	h.Observe(errors.New("x"))
	if m.Current() != Stopped {
		t.Errorf("state = %s, want STOPPED", m.Current())
	}
}

// walkTo is a helper that transitions the machine to a target state.
func walkTo(t *testing.T, m *Machine, target State) {
	t.Helper()
	paths := map[State][]State{
		Booting:    {},
		Connecting: {Connecting},
		Ready:      {Connecting, Ready},
		Degraded:   {Connecting, Degraded},
		Stopped:    {Stopped},
	}
	for _, s := range paths[target] {
		if err := m.Transition(s); err != nil {
			t.Fatalf("walkTo(%s): %v", target, err)
		}
	}
}
