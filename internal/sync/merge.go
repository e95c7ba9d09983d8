package sync

import (
	"slices"

	"github.com/matheus3301/campusmsg/internal/chat"
)

// DedupeConversations drops entries with an empty or repeated key. The
// first occurrence in slice order wins.
func DedupeConversations(in []chat.Conversation) []chat.Conversation {
	seen := make(map[string]struct{}, len(in))
	out := make([]chat.Conversation, 0, len(in))
	for _, c := range in {
		if c.Key == "" {
			continue
		}
		if _, dup := seen[c.Key]; dup {
			continue
		}
		seen[c.Key] = struct{}{}
		out = append(out, c)
	}
	return out
}

// SortConversations orders by last activity, newest first. Conversations
// without activity go last and keep their relative order.
func SortConversations(cs []chat.Conversation) {
	slices.SortStableFunc(cs, func(a, b chat.Conversation) int {
		switch {
		case a.HasActivity() && !b.HasActivity():
			return -1
		case !a.HasActivity() && b.HasActivity():
			return 1
		}
		return b.LastMessageAt.Compare(a.LastMessageAt)
	})
}

// MergeConversations reconciles a fetched page with the current list.
// A refresh (appending=false) replaces the list; a load-more appends the
// page, keeping the first occurrence of each key.
func MergeConversations(current, incoming []chat.Conversation, appending bool) []chat.Conversation {
	var merged []chat.Conversation
	if appending {
		merged = make([]chat.Conversation, 0, len(current)+len(incoming))
		merged = append(merged, current...)
		merged = append(merged, incoming...)
	} else {
		merged = slices.Clone(incoming)
	}
	merged = DedupeConversations(merged)
	SortConversations(merged)
	return merged
}

// OverlayConversations refreshes the head of a list that already holds
// later pages: incoming rows replace their keys, the rest are kept.
func OverlayConversations(current, incoming []chat.Conversation) []chat.Conversation {
	return MergeConversations(incoming, current, true)
}

// EqualConversations reports whether two lists would render identically.
func EqualConversations(a, b []chat.Conversation) bool {
	return slices.EqualFunc(a, b, sameConversation)
}

func sameConversation(a, b chat.Conversation) bool {
	return a.Key == b.Key &&
		a.Peer == b.Peer &&
		a.Name == b.Name &&
		a.AvatarURL == b.AvatarURL &&
		a.LastMessage == b.LastMessage &&
		a.LastMessageTime == b.LastMessageTime &&
		a.LastMessageAt.Equal(b.LastMessageAt) &&
		a.LastMessageFromMe == b.LastMessageFromMe &&
		a.LastMessageSeen == b.LastMessageSeen &&
		a.UnreadCount == b.UnreadCount &&
		a.IsOnline == b.IsOnline &&
		a.LastSeen == b.LastSeen &&
		a.MessageStatus == b.MessageStatus
}

func sameMessage(a, b chat.Message) bool {
	return a.ID == b.ID &&
		a.Sender == b.Sender &&
		a.Receiver == b.Receiver &&
		a.Text == b.Text &&
		a.Type == b.Type &&
		a.FileURL == b.FileURL &&
		a.FileName == b.FileName &&
		a.Timestamp.Equal(b.Timestamp) &&
		a.IsEdited == b.IsEdited &&
		a.IsSeen == b.IsSeen
}
