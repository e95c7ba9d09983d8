package mutation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/matheus3301/campusmsg/internal/bus"
	"github.com/matheus3301/campusmsg/internal/chat"
	"github.com/matheus3301/campusmsg/internal/gate"
	"github.com/matheus3301/campusmsg/internal/remote"
	chatsync "github.com/matheus3301/campusmsg/internal/sync"
)

var (
	me   = chat.UserRef{Type: "student", ID: 1}
	peer = chat.UserRef{Type: "teacher", ID: 2}
	now  = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
)

// pollRemote serves a fixed history to the engine.
type pollRemote struct {
	mu   sync.Mutex
	msgs []chat.Message
}

func (p *pollRemote) set(msgs ...chat.Message) {
	p.mu.Lock()
	p.msgs = msgs
	p.mu.Unlock()
}

func (p *pollRemote) ListConversations(context.Context, chat.UserRef, int, int) (remote.ConversationPage, error) {
	return remote.ConversationPage{}, nil
}

func (p *pollRemote) ListActiveUsers(context.Context, chat.UserRef, int, int) (remote.ConversationPage, error) {
	return remote.ConversationPage{}, nil
}

func (p *pollRemote) SearchUsers(context.Context, chat.UserRef, string) ([]chat.User, error) {
	return nil, nil
}

func (p *pollRemote) GetMessages(ctx context.Context, me, peer chat.UserRef, page, limit int) (remote.MessagePage, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if page != 1 {
		return remote.MessagePage{}, nil
	}
	return remote.MessagePage{Messages: append([]chat.Message(nil), p.msgs...)}, nil
}

func (p *pollRemote) MarkRead(context.Context, chat.UserRef, chat.UserRef) error { return nil }
func (p *pollRemote) UpdateSession(context.Context, chat.UserRef) error          { return nil }
func (p *pollRemote) UnreadCount(context.Context, chat.UserRef) (int, error)     { return 0, nil }

// mutRemote records mutation calls. A non-nil block channel holds each
// call until it is closed.
type mutRemote struct {
	mu      sync.Mutex
	calls   []string
	sendErr error
	editErr error
	nextID  int64
	block   chan struct{}
	started chan struct{}
}

func (m *mutRemote) record(op string) {
	m.mu.Lock()
	m.calls = append(m.calls, op)
	block, started := m.block, m.started
	m.mu.Unlock()
	if started != nil {
		started <- struct{}{}
	}
	if block != nil {
		<-block
	}
}

func (m *mutRemote) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func (m *mutRemote) SendMessage(ctx context.Context, r remote.SendRequest) (chat.Message, error) {
	m.record("send")
	if m.sendErr != nil {
		return chat.Message{}, m.sendErr
	}
	return chat.Message{
		ID:        m.nextID,
		Sender:    r.Sender,
		Receiver:  r.Receiver,
		Text:      r.Text,
		Type:      r.Type,
		Timestamp: now.Add(time.Second),
	}, nil
}

func (m *mutRemote) EditMessage(ctx context.Context, me chat.UserRef, id int64, text string) (*chat.Message, error) {
	m.record("edit")
	return nil, m.editErr
}

func (m *mutRemote) UnsendMessage(ctx context.Context, me chat.UserRef, id int64) (*chat.Message, error) {
	m.record("unsend")
	return nil, nil
}

type fixture struct {
	engine *chatsync.Engine
	poll   *pollRemote
	mut    *mutRemote
	gate   *gate.Gate
	bus    *bus.Bus
	ctrl   *Controller
	clock  time.Time
}

func newFixture(t *testing.T, history ...chat.Message) *fixture {
	t.Helper()
	f := &fixture{
		poll:  &pollRemote{},
		mut:   &mutRemote{nextID: 42},
		gate:  gate.New(),
		bus:   bus.New(),
		clock: now,
	}
	f.poll.set(history...)
	f.engine = chatsync.NewEngine(f.poll, chat.StaticUser(me), f.gate, f.bus, nil, chatsync.Options{}, nil)
	f.ctrl = NewController(f.mut, f.engine, f.gate, chat.StaticUser(me), f.bus, Options{
		Now:   func() time.Time { return f.clock },
		NewID: func() string { return "client-1" },
	}, nil)
	if err := f.engine.OpenChat(context.Background(), peer); err != nil {
		t.Fatal(err)
	}
	return f
}

func mine(id int64, age time.Duration, text string) chat.Message {
	return chat.Message{ID: id, Sender: me, Receiver: peer, Text: text, Type: chat.TypeText, Timestamp: now.Add(-age)}
}

func TestSendConfirmsSingleEntry(t *testing.T) {
	f := newFixture(t)
	f.ctrl.SetDraft(peer, "Hello")

	var seen []chat.Entry
	f.mut.started = make(chan struct{}, 1)
	f.mut.block = make(chan struct{})
	done := make(chan error, 1)
	go func() {
		_, err := f.ctrl.Send(context.Background(), SendInput{Text: "Hello"})
		done <- err
	}()

	<-f.mut.started
	seen = f.engine.Thread().Entries
	if len(seen) != 1 || seen[0].State != chat.Pending || seen[0].Message.Text != "Hello" {
		t.Fatalf("optimistic entries = %+v", seen)
	}
	if d := f.ctrl.Draft(peer); d != "" {
		t.Errorf("draft = %q while sending, want cleared", d)
	}
	close(f.mut.block)
	if err := <-done; err != nil {
		t.Fatal(err)
	}

	entries := f.engine.Thread().Entries
	if len(entries) != 1 {
		t.Fatalf("len = %d, want 1", len(entries))
	}
	if entries[0].Message.ID != 42 || entries[0].Message.Text != "Hello" || entries[0].State != chat.Confirmed {
		t.Errorf("entry = %+v", entries[0])
	}

	// The next poll delivers id 42 too; still one row.
	f.poll.set(chat.Message{ID: 42, Sender: me, Receiver: peer, Text: "Hello", Type: chat.TypeText, Timestamp: now.Add(time.Second)})
	if err := f.engine.RefreshMessages(context.Background(), true); err != nil {
		t.Fatal(err)
	}
	if n := len(f.engine.Thread().Entries); n != 1 {
		t.Errorf("len after poll = %d, want 1", n)
	}
}

func TestSendFailureRollsBack(t *testing.T) {
	f := newFixture(t, mine(1, time.Minute, "earlier"))
	f.mut.sendErr = &remote.APIError{Status: 200, Message: "Receiver blocked you"}
	events, unsub := f.bus.Subscribe(bus.SendFailed, 1)
	defer unsub()

	f.ctrl.SetDraft(peer, "  Hello there ")
	_, err := f.ctrl.Send(context.Background(), SendInput{Text: "  Hello there "})

	var failure *Failure
	if !errors.As(err, &failure) {
		t.Fatalf("err = %v, want *Failure", err)
	}
	if failure.Message != "Receiver blocked you" {
		t.Errorf("message = %q", failure.Message)
	}
	if d := f.ctrl.Draft(peer); d != "  Hello there " {
		t.Errorf("draft = %q, want pre-send value", d)
	}
	entries := f.engine.Thread().Entries
	if len(entries) != 1 || entries[0].Message.ID != 1 {
		t.Errorf("entries = %+v, placeholder left behind", entries)
	}
	select {
	case evt := <-events:
		if p := evt.Payload.(bus.SendFailure); p.Draft != "  Hello there " {
			t.Errorf("event draft = %q", p.Draft)
		}
	default:
		t.Error("no send_failed event")
	}
	if f.gate.Blocked() {
		t.Error("slot not released after failure")
	}
}

func TestSendFailureGenericMessage(t *testing.T) {
	f := newFixture(t)
	f.mut.sendErr = errors.New("dial tcp: connection refused")
	_, err := f.ctrl.Send(context.Background(), SendInput{Text: "hi"})
	if err == nil || err.Error() != "Failed to send message" {
		t.Errorf("err = %v, want generic fallback", err)
	}
}

func TestSendValidation(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		in   SendInput
		want error
	}{
		{SendInput{Text: "   "}, ErrEmptyText},
		{SendInput{Text: "x", Type: "video"}, ErrInvalidType},
		{SendInput{Type: chat.TypeImage}, ErrMissingFile},
	}
	for _, tt := range tests {
		if _, err := f.ctrl.Send(context.Background(), tt.in); !errors.Is(err, tt.want) {
			t.Errorf("Send(%+v) = %v, want %v", tt.in, err, tt.want)
		}
	}
	if f.mut.count() != 0 {
		t.Errorf("%d network calls for invalid input", f.mut.count())
	}

	f.engine.CloseChat()
	if _, err := f.ctrl.Send(context.Background(), SendInput{Text: "hi"}); !errors.Is(err, ErrNoOpenChat) {
		t.Errorf("send without chat = %v", err)
	}
}

func TestSendAttachment(t *testing.T) {
	f := newFixture(t)
	res, err := f.ctrl.Send(context.Background(), SendInput{Type: chat.TypeFile, FileURL: "https://cdn/x.pdf", FileName: "x.pdf"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Message.Type != chat.TypeFile {
		t.Errorf("type = %q", res.Message.Type)
	}
}

func TestEditWindow(t *testing.T) {
	f := newFixture(t, mine(1, 170*time.Second, "typo"), mine(2, 200*time.Second, "old"))

	m, err := f.ctrl.Edit(context.Background(), 1, "fixed")
	if err != nil {
		t.Fatal(err)
	}
	if !m.IsEdited || m.Text != "fixed" {
		t.Errorf("edited = %+v", m)
	}

	if _, err := f.ctrl.Edit(context.Background(), 2, "too late"); !errors.Is(err, ErrWindowExpired) {
		t.Errorf("edit at 200s = %v, want ErrWindowExpired", err)
	}
	if n := f.mut.count(); n != 1 {
		t.Errorf("network calls = %d, want 1", n)
	}
}

func TestEditWindowBoundary(t *testing.T) {
	f := newFixture(t, mine(1, 0, "hi"))

	f.clock = now.Add(180 * time.Second)
	el, err := f.ctrl.Eligibility(1)
	if err != nil || !el.CanEdit || !el.CanUnsend {
		t.Fatalf("eligibility at 180s = %+v, %v", el, err)
	}

	f.clock = now.Add(181 * time.Second)
	if _, err := f.ctrl.Edit(context.Background(), 1, "late"); !errors.Is(err, ErrWindowExpired) {
		t.Errorf("edit at 181s = %v, want ErrWindowExpired", err)
	}
	if _, err := f.ctrl.Unsend(context.Background(), 1); !errors.Is(err, ErrWindowExpired) {
		t.Errorf("unsend at 181s = %v, want ErrWindowExpired", err)
	}
	if el, _ := f.ctrl.Eligibility(1); el.CanEdit || el.CanUnsend {
		t.Errorf("eligibility at 181s = %+v", el)
	}
	if f.mut.count() != 0 {
		t.Errorf("network calls = %d, want 0", f.mut.count())
	}
}

// The menu was opened inside the window but submitted after it closed.
func TestEditRevalidatedAtSubmit(t *testing.T) {
	f := newFixture(t, mine(1, 170*time.Second, "hi"))
	if el, _ := f.ctrl.Eligibility(1); !el.CanEdit {
		t.Fatal("should be editable at menu time")
	}
	f.clock = now.Add(15 * time.Second)
	if _, err := f.ctrl.Edit(context.Background(), 1, "changed"); !errors.Is(err, ErrWindowExpired) {
		t.Errorf("submit after expiry = %v", err)
	}
}

func TestEditRejectsOthers(t *testing.T) {
	theirs := chat.Message{ID: 9, Sender: peer, Receiver: me, Text: "hey", Type: chat.TypeText, Timestamp: now}
	img := mine(3, 0, "")
	img.Type = chat.TypeImage
	img.FileURL = "https://cdn/a.png"
	f := newFixture(t, theirs, img)

	if _, err := f.ctrl.Edit(context.Background(), 9, "mine now"); !errors.Is(err, ErrNotOwner) {
		t.Errorf("edit others = %v", err)
	}
	if _, err := f.ctrl.Edit(context.Background(), 3, "caption"); !errors.Is(err, ErrNotEditable) {
		t.Errorf("edit image = %v", err)
	}
	if _, err := f.ctrl.Edit(context.Background(), 404, "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("edit missing = %v", err)
	}
	if el, _ := f.ctrl.Eligibility(3); el.CanEdit || !el.CanUnsend {
		t.Errorf("image eligibility = %+v, want unsend only", el)
	}
}

func TestEditSameTextIsNoop(t *testing.T) {
	f := newFixture(t, mine(1, time.Second, "same"))
	f.gate.SetEditing(true)

	m, err := f.ctrl.Edit(context.Background(), 1, "  same ")
	if !errors.Is(err, ErrUnchanged) {
		t.Fatalf("err = %v, want ErrUnchanged", err)
	}
	if m.ID != 1 || m.Text != "same" || m.IsEdited {
		t.Errorf("message = %+v", m)
	}
	if f.mut.count() != 0 {
		t.Errorf("backend calls = %d, want 0", f.mut.count())
	}
	if f.gate.Blocked() {
		t.Error("editing flag left set")
	}
}

func TestEditFailureKeepsText(t *testing.T) {
	f := newFixture(t, mine(1, time.Second, "original"))
	f.mut.editErr = &remote.APIError{Status: 200}
	_, err := f.ctrl.Edit(context.Background(), 1, "changed")
	if err == nil || err.Error() != "Failed to edit message" {
		t.Fatalf("err = %v", err)
	}
	m, _ := f.engine.Message(1)
	if m.Text != "original" || m.IsEdited {
		t.Errorf("message = %+v, want unchanged", m)
	}
}

func TestSingleMutationSlot(t *testing.T) {
	f := newFixture(t, mine(1, time.Second, "a"), mine(2, time.Second, "b"))
	f.mut.started = make(chan struct{}, 1)
	f.mut.block = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		_, err := f.ctrl.Edit(context.Background(), 1, "a2")
		done <- err
	}()
	<-f.mut.started

	if _, err := f.ctrl.Unsend(context.Background(), 2); !errors.Is(err, ErrMutationInFlight) {
		t.Errorf("unsend during edit = %v", err)
	}
	if _, err := f.ctrl.Edit(context.Background(), 2, "b2"); !errors.Is(err, ErrMutationInFlight) {
		t.Errorf("edit during edit = %v", err)
	}
	if _, err := f.ctrl.Send(context.Background(), SendInput{Text: "c"}); !errors.Is(err, ErrMutationInFlight) {
		t.Errorf("send during edit = %v", err)
	}
	if n := f.mut.count(); n != 1 {
		t.Errorf("network calls = %d, want 1", n)
	}
	if m, _ := f.engine.Message(2); m.Text != "b" {
		t.Errorf("message 2 changed to %q", m.Text)
	}

	close(f.mut.block)
	if err := <-done; err != nil {
		t.Fatal(err)
	}
	f.mut.mu.Lock()
	f.mut.block, f.mut.started = nil, nil
	f.mut.mu.Unlock()
	if _, err := f.ctrl.Unsend(context.Background(), 2); err != nil {
		t.Errorf("unsend after edit resolved = %v", err)
	}
}

func TestUnsendReplacesText(t *testing.T) {
	f := newFixture(t, mine(5, time.Minute, "secret"))
	f.gate.SetMenuOpen(true)

	m, err := f.ctrl.Unsend(context.Background(), 5)
	if err != nil {
		t.Fatal(err)
	}
	if m.Text != chat.RemovedText {
		t.Errorf("text = %q", m.Text)
	}
	if f.gate.Blocked() {
		t.Error("menu flag left set after unsend")
	}

	// The server still returns the original text on the next poll.
	if err := f.engine.RefreshMessages(context.Background(), true); err != nil {
		t.Fatal(err)
	}
	if got, _ := f.engine.Message(5); got.Text != chat.RemovedText {
		t.Errorf("poll resurrected %q", got.Text)
	}
	if _, err := f.ctrl.Unsend(context.Background(), 5); !errors.Is(err, ErrRemoved) {
		t.Errorf("second unsend = %v, want ErrRemoved", err)
	}
}

func TestInteractionHook(t *testing.T) {
	f := newFixture(t)
	calls := 0
	f.ctrl.OnInteraction(func() { calls++ })
	if _, err := f.ctrl.Send(context.Background(), SendInput{Text: "hi"}); err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Errorf("interaction hook calls = %d, want 1", calls)
	}
}
