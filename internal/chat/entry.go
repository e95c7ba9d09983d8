package chat

import "strconv"

// EntryState tags the local lifecycle of a message in the open chat.
type EntryState int

const (
	// Pending is an optimistic message shown before the server confirmed it.
	Pending EntryState = iota
	// Confirmed carries a server record.
	Confirmed
	// Failed marks an optimistic send the server rejected. Failed entries
	// are dropped by the merger.
	Failed
)

func (s EntryState) String() string {
	switch s {
	case Pending:
		return "pending"
	case Confirmed:
		return "confirmed"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Entry is one row of the open chat's message list.
type Entry struct {
	State    EntryState
	ClientID string // set for entries that started as optimistic sends
	Message  Message
	Seq      uint64 // insertion order, breaks timestamp ties
}

// Identity returns the key under which the entry is deduplicated:
// the server id for confirmed rows, the client id otherwise.
func (e Entry) Identity() string {
	if e.State == Confirmed {
		return "id:" + strconv.FormatInt(e.Message.ID, 10)
	}
	return "client:" + e.ClientID
}
