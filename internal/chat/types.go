package chat

import (
	"strings"
	"time"
	"unicode"
)

// MessageType is the payload kind of a message.
type MessageType string

const (
	TypeText  MessageType = "text"
	TypeImage MessageType = "image"
	TypeFile  MessageType = "file"
)

// Valid reports whether t is one of the known message types.
func (t MessageType) Valid() bool {
	switch t {
	case TypeText, TypeImage, TypeFile:
		return true
	}
	return false
}

// DeliveryStatus is the display status of the current user's last outgoing message.
type DeliveryStatus string

const (
	StatusNone      DeliveryStatus = ""
	StatusSent      DeliveryStatus = "Sent"
	StatusDelivered DeliveryStatus = "Delivered"
	StatusSeen      DeliveryStatus = "Seen"
)

// RemovedText replaces the body of an unsent message.
const RemovedText = "Message removed"

// Conversation is the aggregate view of all messages with one counterpart.
type Conversation struct {
	Key               string
	Peer              UserRef
	Name              string
	AvatarURL         string
	LastMessage       string
	LastMessageTime   string
	LastMessageAt     time.Time
	LastMessageFromMe bool
	LastMessageSeen   bool
	UnreadCount       int
	IsOnline          bool
	LastSeen          string
	MessageStatus     DeliveryStatus
}

// Initials returns up to two upper-case initials of the display name,
// used when the avatar is missing.
func (c Conversation) Initials() string {
	var out []rune
	for _, word := range strings.Fields(c.Name) {
		r := []rune(word)[0]
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			continue
		}
		out = append(out, unicode.ToUpper(r))
		if len(out) == 2 {
			break
		}
	}
	if len(out) == 0 {
		return "?"
	}
	return string(out)
}

// HasActivity reports whether the conversation carries a sortable last-message instant.
func (c Conversation) HasActivity() bool {
	return !c.LastMessageAt.IsZero()
}

// Message is a single chat message between two users.
type Message struct {
	ID        int64
	Sender    UserRef
	Receiver  UserRef
	Text      string
	Type      MessageType
	FileURL   string
	FileName  string
	Timestamp time.Time
	IsEdited  bool
	IsSeen    bool
}

// FromUser reports whether u sent the message.
func (m Message) FromUser(u UserRef) bool {
	return m.Sender == u
}

// Removed reports whether the message was unsent.
func (m Message) Removed() bool {
	return m.Text == RemovedText
}

// User is a search result or active-user row.
type User struct {
	Ref       UserRef
	Name      string
	AvatarURL string
	IsOnline  bool
}
