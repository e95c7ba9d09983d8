// Package presence derives online and delivery display state from polled fields.
package presence

import (
	"strconv"
	"sync"
	"time"

	"github.com/matheus3301/campusmsg/internal/chat"
)

// BadgeCeiling is the largest unread count rendered verbatim.
const BadgeCeiling = 99

// ResolveStatus maps read/online fields to the outgoing status label.
// Delivered only means the counterpart was online when last polled;
// the backend never acknowledges delivery.
func ResolveStatus(seen, peerOnline bool) chat.DeliveryStatus {
	switch {
	case seen:
		return chat.StatusSeen
	case peerOnline:
		return chat.StatusDelivered
	default:
		return chat.StatusSent
	}
}

// Badge renders an unread count for display. Zero renders as empty.
func Badge(unread int) string {
	switch {
	case unread <= 0:
		return ""
	case unread > BadgeCeiling:
		return strconv.Itoa(BadgeCeiling) + "+"
	default:
		return strconv.Itoa(unread)
	}
}

// Apply fills the derived display fields of c. Conversations whose last
// message came from the counterpart carry no outgoing status.
func Apply(c chat.Conversation) chat.Conversation {
	if c.UnreadCount < 0 {
		c.UnreadCount = 0
	}
	if c.LastMessage == "" && !c.HasActivity() {
		c.MessageStatus = chat.StatusNone
		return c
	}
	if !c.LastMessageFromMe {
		c.MessageStatus = chat.StatusNone
		return c
	}
	c.MessageStatus = ResolveStatus(c.LastMessageSeen, c.IsOnline)
	return c
}

// Tracker holds the online flags reported by the latest active-users poll.
// A flag is trusted for at most maxAge after it was observed; older flags
// read as offline so presence is never stale by more than one interval.
type Tracker struct {
	mu       sync.RWMutex
	reported map[string]bool
	observed time.Time
	maxAge   time.Duration
	now      func() time.Time
}

// NewTracker creates a tracker whose observations expire after maxAge.
func NewTracker(maxAge time.Duration) *Tracker {
	return &Tracker{
		reported: make(map[string]bool),
		maxAge:   maxAge,
		now:      time.Now,
	}
}

// Observe replaces the known presence set with the given users' flags.
// Users missing from the set are unknown, not offline.
func (t *Tracker) Observe(users []chat.Conversation) {
	reported := make(map[string]bool, len(users))
	for _, u := range users {
		reported[u.Key] = u.IsOnline
	}
	t.mu.Lock()
	t.reported = reported
	t.observed = t.now()
	t.mu.Unlock()
}

func (t *Tracker) freshLocked() bool {
	return !t.observed.IsZero() && t.now().Sub(t.observed) <= t.maxAge
}

// IsOnline reports whether key was online in a fresh observation.
func (t *Tracker) IsOnline(key string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.freshLocked() && t.reported[key]
}

// Fresh reports whether the tracker holds an unexpired observation.
func (t *Tracker) Fresh() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.freshLocked()
}

// Overlay fills the display fields of a conversation page fetched at
// polledAt. A fresh observation taken after polledAt replaces the page's
// is_online flag for the users it reported, online or offline; otherwise
// the page's own flag stands.
func (t *Tracker) Overlay(convs []chat.Conversation, polledAt time.Time) []chat.Conversation {
	t.mu.RLock()
	newer := t.freshLocked() && t.observed.After(polledAt)
	out := make([]chat.Conversation, len(convs))
	for i, c := range convs {
		if newer {
			if on, ok := t.reported[c.Key]; ok {
				c.IsOnline = on
			}
		}
		out[i] = Apply(c)
	}
	t.mu.RUnlock()
	return out
}
