package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/matheus3301/campusmsg/internal/chat"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

var (
	me   = chat.UserRef{Type: "student", ID: 1}
	peer = chat.UserRef{Type: "teacher", ID: 2}
	t0   = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
)

func TestMigrateIsIdempotent(t *testing.T) {
	db := testDB(t)

	// testDB already ran Migrate; a second run must be a no-op.
	result, err := db.Migrate()
	if err != nil {
		t.Fatal(err)
	}
	if result.Changed {
		t.Error("second Migrate() should report Changed=false")
	}
	if result.Version != 2 {
		t.Errorf("version = %d, want 2 (init + fts)", result.Version)
	}
}

func TestConversationsSnapshot(t *testing.T) {
	db := testDB(t)

	first := []chat.Conversation{
		{Key: "teacher_2", Peer: peer, Name: "Ana", LastMessage: "hi", LastMessageAt: t0.Add(time.Hour), UnreadCount: 3, LastMessageFromMe: true},
		{Key: "student_9", Peer: chat.UserRef{Type: "student", ID: 9}, Name: "Bo"},
	}
	if err := db.SaveConversations(first); err != nil {
		t.Fatal(err)
	}
	got, err := db.ListConversations(10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Key != "teacher_2" || got[1].Key != "student_9" {
		t.Fatalf("conversations = %+v", got)
	}
	if !got[0].LastMessageAt.Equal(t0.Add(time.Hour)) || got[0].UnreadCount != 3 || !got[0].LastMessageFromMe {
		t.Errorf("row = %+v", got[0])
	}
	if !got[1].LastMessageAt.IsZero() {
		t.Errorf("missing timestamp read back as %v", got[1].LastMessageAt)
	}

	// A later snapshot replaces the previous one.
	if err := db.SaveConversations(first[1:]); err != nil {
		t.Fatal(err)
	}
	got, _ = db.ListConversations(10, 0)
	if len(got) != 1 {
		t.Errorf("len = %d after replacement, want 1", len(got))
	}
	if n, err := db.ConversationCount(); err != nil || n != 1 {
		t.Errorf("ConversationCount() = %d, %v", n, err)
	}
	c, err := db.GetConversation("teacher_2")
	if err != nil || c != nil {
		t.Errorf("GetConversation(removed) = %+v, %v", c, err)
	}
	c, err = db.GetConversation("student_9")
	if err != nil || c == nil || c.Peer.ID != 9 {
		t.Errorf("GetConversation = %+v, %v", c, err)
	}
}

func message(id int64, minute int, text string) chat.Message {
	return chat.Message{
		ID:        id,
		Sender:    me,
		Receiver:  peer,
		Text:      text,
		Type:      chat.TypeText,
		Timestamp: t0.Add(time.Duration(minute) * time.Minute),
	}
}

func TestSaveMessagesIdempotent(t *testing.T) {
	db := testDB(t)

	if err := db.SaveMessages(peer, []chat.Message{message(1, 1, "v1"), message(2, 2, "two")}); err != nil {
		t.Fatal(err)
	}
	edited := message(1, 1, "v2")
	edited.IsEdited = true
	if err := db.SaveMessages(peer, []chat.Message{edited}); err != nil {
		t.Fatal(err)
	}

	msgs, err := db.ListMessages(peer, time.Time{}, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2 (idempotent)", len(msgs))
	}
	if msgs[0].ID != 2 {
		t.Errorf("first = %d, want newest first", msgs[0].ID)
	}
	if msgs[1].Text != "v2" || !msgs[1].IsEdited {
		t.Errorf("message 1 = %+v, want updated", msgs[1])
	}
	if msgs[1].Sender != me || msgs[1].Receiver != peer {
		t.Errorf("refs = %v -> %v", msgs[1].Sender, msgs[1].Receiver)
	}
}

func TestListMessagesKeyset(t *testing.T) {
	db := testDB(t)
	var batch []chat.Message
	for i := 1; i <= 5; i++ {
		batch = append(batch, message(int64(i), i, "m"))
	}
	if err := db.SaveMessages(peer, batch); err != nil {
		t.Fatal(err)
	}
	older, err := db.ListMessages(peer, t0.Add(3*time.Minute), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(older) != 2 || older[0].ID != 2 {
		t.Errorf("older = %+v", older)
	}
	other, _ := db.ListMessages(chat.UserRef{Type: "teacher", ID: 99}, time.Time{}, 10)
	if len(other) != 0 {
		t.Errorf("other conversation leaked %d messages", len(other))
	}
}

func TestSearchMessages(t *testing.T) {
	db := testDB(t)
	msgs := []chat.Message{
		message(1, 1, "hello world"),
		message(2, 2, "goodbye world"),
		message(3, 3, "hello again"),
	}
	if err := db.SaveMessages(peer, msgs); err != nil {
		t.Fatal(err)
	}
	other := chat.UserRef{Type: "student", ID: 7}
	if err := db.SaveMessages(other, []chat.Message{message(4, 4, "hello from elsewhere")}); err != nil {
		t.Fatal(err)
	}

	results, err := db.SearchMessages("hello", "", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	if results[0].Message.ID != 4 || results[0].PeerKey != "student_7" {
		t.Errorf("first result = %+v", results[0])
	}
	if results[0].Snippet == "" {
		t.Error("empty snippet")
	}

	scoped, err := db.SearchMessages("hello", peer.Key(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(scoped) != 2 {
		t.Errorf("scoped results = %d, want 2", len(scoped))
	}

	// Edits reindex the body.
	if err := db.SaveMessages(peer, []chat.Message{message(2, 2, "see you")}); err != nil {
		t.Fatal(err)
	}
	if res, _ := db.SearchMessages("goodbye", "", 10); len(res) != 0 {
		t.Errorf("stale body still indexed: %+v", res)
	}

	if res, _ := db.SearchMessages("   ", "", 10); res != nil {
		t.Errorf("blank query = %+v", res)
	}
}

func TestTombstones(t *testing.T) {
	db := testDB(t)
	if err := db.SaveMessages(peer, []chat.Message{message(5, 1, "secret plan")}); err != nil {
		t.Fatal(err)
	}
	if err := db.SaveTombstone(5); err != nil {
		t.Fatal(err)
	}
	if err := db.SaveTombstone(5); err != nil {
		t.Fatalf("repeat tombstone: %v", err)
	}

	ids, err := db.Tombstones()
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 1 || ids[0] != 5 {
		t.Errorf("tombstones = %v", ids)
	}
	msgs, _ := db.ListMessages(peer, time.Time{}, 10)
	if msgs[0].Text != chat.RemovedText {
		t.Errorf("cached text = %q", msgs[0].Text)
	}
	if res, _ := db.SearchMessages("secret", "", 10); len(res) != 0 {
		t.Errorf("unsent message searchable: %+v", res)
	}
	if res, _ := db.SearchMessages("removed", "", 10); len(res) != 0 {
		t.Errorf("placeholder text searchable: %+v", res)
	}
}

func TestSessionState(t *testing.T) {
	db := testDB(t)
	v, err := db.GetState(StateLastChat)
	if err != nil || v != "" {
		t.Fatalf("unset state = %q, %v", v, err)
	}
	if err := db.SetState(StateLastChat, "teacher_2"); err != nil {
		t.Fatal(err)
	}
	if err := db.SetState(StateLastChat, "teacher_3"); err != nil {
		t.Fatal(err)
	}
	if v, _ := db.GetState(StateLastChat); v != "teacher_3" {
		t.Errorf("state = %q", v)
	}
}
