package bus

import "time"

// Event kinds published by the daemon.
const (
	ConversationsUpdated = "conversations.updated"
	ActiveUsersUpdated   = "active.updated"
	MessagesUpdated      = "messages.updated"
	SendFailed           = "message.send_failed"
	StatusChanged        = "session.status_changed"
)

// Event represents a domain event published on the bus.
type Event struct {
	ID        string
	Kind      string
	Timestamp time.Time
	Payload   any
}

// ListChange is the payload of conversations.updated and active.updated.
type ListChange struct {
	Count   int
	Page    int
	HasMore bool
}

// ThreadChange is the payload of messages.updated.
type ThreadChange struct {
	PeerKey string
	Count   int
}

// SendFailure is the payload of message.send_failed. Draft is the text
// restored to the composer.
type SendFailure struct {
	PeerKey  string
	ClientID string
	Draft    string
	Reason   string
}
