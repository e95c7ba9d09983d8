package sync

import (
	"slices"

	"github.com/matheus3301/campusmsg/internal/chat"
)

// Tombstones records message ids the user unsent in this session.
type Tombstones map[int64]struct{}

// Thread is the ordered message list of one open chat. It is not safe
// for concurrent use; the Engine serializes access.
type Thread struct {
	entries []chat.Entry
	seq     uint64
	removed Tombstones
}

// NewThread creates an empty thread. removed may be shared between
// threads and may be nil.
func NewThread(removed Tombstones) *Thread {
	if removed == nil {
		removed = make(Tombstones)
	}
	return &Thread{removed: removed}
}

func (t *Thread) nextSeq() uint64 {
	t.seq++
	return t.seq
}

func (t *Thread) indexByID(id int64) int {
	for i, e := range t.entries {
		if e.State == chat.Confirmed && e.Message.ID == id {
			return i
		}
	}
	return -1
}

func (t *Thread) indexByClientID(clientID string) int {
	for i, e := range t.entries {
		if e.State != chat.Confirmed && e.ClientID == clientID {
			return i
		}
	}
	return -1
}

func (t *Thread) scrub(m chat.Message) chat.Message {
	if _, gone := t.removed[m.ID]; gone {
		m.Text = chat.RemovedText
		m.FileURL = ""
		m.FileName = ""
		m.Type = chat.TypeText
	}
	return m
}

func (t *Thread) sort() {
	slices.SortStableFunc(t.entries, func(a, b chat.Entry) int {
		if c := a.Message.Timestamp.Compare(b.Message.Timestamp); c != 0 {
			return c
		}
		switch {
		case a.Seq < b.Seq:
			return -1
		case a.Seq > b.Seq:
			return 1
		}
		return 0
	})
}

// MergeServer applies a polled page: unknown ids are inserted, known
// confirmed entries take the server's fields, pending entries stay. It
// reports whether the visible list changed.
func (t *Thread) MergeServer(msgs []chat.Message) bool {
	return t.merge(msgs, true)
}

// MergeOlder inserts older history. Entries already present are left
// untouched so a late history page cannot roll back newer state.
func (t *Thread) MergeOlder(msgs []chat.Message) bool {
	return t.merge(msgs, false)
}

func (t *Thread) merge(msgs []chat.Message, overwrite bool) bool {
	changed := false
	seen := make(map[int64]struct{}, len(msgs))
	for _, m := range msgs {
		if m.ID <= 0 {
			continue
		}
		if _, dup := seen[m.ID]; dup {
			continue
		}
		seen[m.ID] = struct{}{}
		m = t.scrub(m)

		if i := t.indexByID(m.ID); i >= 0 {
			if overwrite && !sameMessage(t.entries[i].Message, m) {
				t.entries[i].Message = m
				changed = true
			}
			continue
		}
		t.entries = append(t.entries, chat.Entry{
			State:   chat.Confirmed,
			Message: m,
			Seq:     t.nextSeq(),
		})
		changed = true
	}
	if changed {
		t.sort()
	}
	return changed
}

// AddPending appends an optimistic entry.
func (t *Thread) AddPending(clientID string, m chat.Message) chat.Entry {
	e := chat.Entry{
		State:    chat.Pending,
		ClientID: clientID,
		Message:  m,
		Seq:      t.nextSeq(),
	}
	t.entries = append(t.entries, e)
	t.sort()
	return e
}

// Confirm replaces the pending entry for clientID with the server record.
// If a poll already delivered that id the pending entry is dropped.
func (t *Thread) Confirm(clientID string, m chat.Message) {
	m = t.scrub(m)
	p := t.indexByClientID(clientID)
	if i := t.indexByID(m.ID); i >= 0 {
		t.entries[i].Message = m
		t.entries[i].ClientID = clientID
		if p >= 0 {
			t.entries = slices.Delete(t.entries, p, p+1)
		}
		t.sort()
		return
	}
	if p < 0 {
		t.entries = append(t.entries, chat.Entry{
			State:    chat.Confirmed,
			ClientID: clientID,
			Message:  m,
			Seq:      t.nextSeq(),
		})
		t.sort()
		return
	}
	t.entries[p].State = chat.Confirmed
	t.entries[p].Message = m
	t.sort()
}

// Fail removes the optimistic entry for clientID and returns it marked
// Failed.
func (t *Thread) Fail(clientID string) (chat.Entry, bool) {
	p := t.indexByClientID(clientID)
	if p < 0 {
		return chat.Entry{}, false
	}
	e := t.entries[p]
	e.State = chat.Failed
	t.entries = slices.Delete(t.entries, p, p+1)
	return e, true
}

// Update applies fn to the confirmed message with the given id.
func (t *Thread) Update(id int64, fn func(*chat.Message)) bool {
	i := t.indexByID(id)
	if i < 0 {
		return false
	}
	fn(&t.entries[i].Message)
	return true
}

// Tombstone marks id as unsent and blanks its content.
func (t *Thread) Tombstone(id int64) bool {
	t.removed[id] = struct{}{}
	i := t.indexByID(id)
	if i < 0 {
		return false
	}
	t.entries[i].Message = t.scrub(t.entries[i].Message)
	return true
}

// Get returns the confirmed message with the given id.
func (t *Thread) Get(id int64) (chat.Message, bool) {
	i := t.indexByID(id)
	if i < 0 {
		return chat.Message{}, false
	}
	return t.entries[i].Message, true
}

// Entries returns a copy of the list in display order.
func (t *Thread) Entries() []chat.Entry {
	return slices.Clone(t.entries)
}

// Confirmed returns the server records in display order.
func (t *Thread) Confirmed() []chat.Message {
	out := make([]chat.Message, 0, len(t.entries))
	for _, e := range t.entries {
		if e.State == chat.Confirmed {
			out = append(out, e.Message)
		}
	}
	return out
}

// Len returns the number of visible entries.
func (t *Thread) Len() int {
	return len(t.entries)
}
