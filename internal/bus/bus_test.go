package bus

import (
	"testing"
	"time"
)

func TestPublishSubscribe(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("session.", 10)
	defer unsub()

	b.Emit(StatusChanged, "test")

	select {
	case evt := <-ch:
		if evt.Kind != StatusChanged {
			t.Errorf("got kind %q, want %s", evt.Kind, StatusChanged)
		}
		if evt.ID == "" || evt.Timestamp.IsZero() {
			t.Errorf("event not stamped: %+v", evt)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestNamespaceFiltering(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("messages.", 10)
	defer unsub()

	b.Emit(ConversationsUpdated, ListChange{Count: 3})
	b.Emit(MessagesUpdated, ThreadChange{PeerKey: "teacher_9", Count: 5})

	select {
	case evt := <-ch:
		if evt.Kind != MessagesUpdated {
			t.Errorf("got kind %q, want %s", evt.Kind, MessagesUpdated)
		}
		if p, ok := evt.Payload.(ThreadChange); !ok || p.Count != 5 {
			t.Errorf("payload = %#v", evt.Payload)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}

	select {
	case evt := <-ch:
		t.Errorf("unexpected event: %v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestEmptyNamespaceMatchesAll(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("", 10)
	defer unsub()

	b.Emit(ActiveUsersUpdated, nil)
	b.Emit(SendFailed, SendFailure{Draft: "hi"})
	for _, want := range []string{ActiveUsersUpdated, SendFailed} {
		select {
		case evt := <-ch:
			if evt.Kind != want {
				t.Errorf("got %q, want %q", evt.Kind, want)
			}
		case <-time.After(time.Second):
			t.Fatalf("timeout waiting for %s", want)
		}
	}
}

func TestUnsubscribe(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("session.", 10)
	unsub()
	unsub()

	if n := b.Subscribers(); n != 0 {
		t.Errorf("subscribers = %d, want 0", n)
	}

	b.Emit(StatusChanged, nil)

	select {
	case evt := <-ch:
		t.Errorf("received event after unsubscribe: %v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDropOnFullBuffer(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("conversations.", 1)
	defer unsub()

	b.Emit(ConversationsUpdated, ListChange{Count: 1})
	// Dropped; the buffer is full.
	b.Emit(ConversationsUpdated, ListChange{Count: 2})

	evt := <-ch
	if p := evt.Payload.(ListChange); p.Count != 1 {
		t.Errorf("got count %d, want 1", p.Count)
	}
}
