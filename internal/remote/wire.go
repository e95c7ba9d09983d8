package remote

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/matheus3301/campusmsg/internal/chat"
)

type envelope struct {
	Success *FlexBool       `json:"success"`
	Message json.RawMessage `json:"message"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`
}

func (e envelope) failed() bool {
	return e.Success != nil && !bool(*e.Success)
}

func (e envelope) succeeded() bool {
	return e.Success != nil && bool(*e.Success)
}

// text returns the human-readable server message, if any.
func (e envelope) text() string {
	if len(e.Message) > 0 && e.Message[0] == '"' {
		var s string
		if json.Unmarshal(e.Message, &s) == nil && s != "" {
			return s
		}
	}
	return e.Error
}

// record returns the embedded object under "message" or "data".
func (e envelope) record() json.RawMessage {
	for _, raw := range []json.RawMessage{e.Data, e.Message} {
		raw = bytes.TrimSpace(raw)
		if len(raw) > 0 && raw[0] == '{' {
			return raw
		}
	}
	return nil
}

type wireConversation struct {
	UniqueKey         string   `json:"unique_key"`
	UserID            FlexInt  `json:"user_id"`
	UserType          string   `json:"user_type"`
	Name              string   `json:"name"`
	Avatar            *string  `json:"avatar"`
	LastMessage       *string  `json:"last_message"`
	LastMessageTime   *string  `json:"last_message_time"`
	LastMessageAt     FlexTime `json:"last_message_timestamp"`
	LastMessageFromMe FlexBool `json:"last_message_from_me"`
	LastMessageSeen   FlexBool `json:"last_message_seen"`
	UnreadCount       FlexInt  `json:"unread_count"`
	IsOnline          FlexBool `json:"is_online"`
	LastSeen          *string  `json:"last_seen"`
	MessageStatus     string   `json:"message_status"`
}

func (w wireConversation) toChat(loc *time.Location) (chat.Conversation, bool) {
	c := chat.Conversation{
		Key:               w.UniqueKey,
		Name:              strings.TrimSpace(w.Name),
		AvatarURL:         deref(w.Avatar),
		LastMessage:       deref(w.LastMessage),
		LastMessageTime:   deref(w.LastMessageTime),
		LastMessageAt:     w.LastMessageAt.In(loc),
		LastMessageFromMe: bool(w.LastMessageFromMe),
		LastMessageSeen:   bool(w.LastMessageSeen),
		UnreadCount:       int(w.UnreadCount),
		IsOnline:          bool(w.IsOnline),
		LastSeen:          deref(w.LastSeen),
	}
	if c.Key == "" && w.UserType != "" && w.UserID > 0 {
		c.Key = w.UserType + "_" + strconv.FormatInt(int64(w.UserID), 10)
	}
	peer, err := chat.ParseKey(c.Key)
	if err != nil {
		return chat.Conversation{}, false
	}
	c.Peer = peer
	if c.LastMessageAt.IsZero() && c.LastMessageTime != "" {
		if t, err := ParseTime(c.LastMessageTime, loc); err == nil {
			c.LastMessageAt = t
		}
	}
	if strings.EqualFold(w.MessageStatus, string(chat.StatusSeen)) {
		c.LastMessageSeen = true
	}
	if c.UnreadCount < 0 {
		c.UnreadCount = 0
	}
	return c, true
}

type wireMessage struct {
	ID           FlexInt  `json:"id"`
	MessageID    FlexInt  `json:"message_id"`
	SenderID     FlexInt  `json:"sender_id"`
	SenderType   string   `json:"sender_type"`
	ReceiverID   FlexInt  `json:"receiver_id"`
	ReceiverType string   `json:"receiver_type"`
	Text         *string  `json:"message"`
	Body         *string  `json:"text"`
	Type         string   `json:"message_type"`
	FileURL      *string  `json:"file_url"`
	FileName     *string  `json:"file_name"`
	Timestamp    FlexTime `json:"timestamp"`
	CreatedAt    FlexTime `json:"created_at"`
	IsEdited     FlexBool `json:"is_edited"`
	IsSeen       FlexBool `json:"is_seen"`
}

func (w wireMessage) toChat(loc *time.Location) chat.Message {
	m := chat.Message{
		ID:        int64(w.ID),
		Sender:    chat.UserRef{Type: w.SenderType, ID: int64(w.SenderID)},
		Receiver:  chat.UserRef{Type: w.ReceiverType, ID: int64(w.ReceiverID)},
		Text:      deref(w.Text),
		Type:      chat.MessageType(strings.ToLower(w.Type)),
		FileURL:   deref(w.FileURL),
		FileName:  deref(w.FileName),
		Timestamp: w.Timestamp.In(loc),
		IsEdited:  bool(w.IsEdited),
		IsSeen:    bool(w.IsSeen),
	}
	if m.ID == 0 {
		m.ID = int64(w.MessageID)
	}
	if m.Text == "" {
		m.Text = deref(w.Body)
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = w.CreatedAt.In(loc)
	}
	if !m.Type.Valid() {
		m.Type = chat.TypeText
	}
	return m
}

type wireUser struct {
	UniqueKey string   `json:"unique_key"`
	UserID    FlexInt  `json:"user_id"`
	ID        FlexInt  `json:"id"`
	UserType  string   `json:"user_type"`
	Name      string   `json:"name"`
	Avatar    *string  `json:"avatar"`
	IsOnline  FlexBool `json:"is_online"`
}

func (w wireUser) toChat() (chat.User, bool) {
	u := chat.User{
		Name:      strings.TrimSpace(w.Name),
		AvatarURL: deref(w.Avatar),
		IsOnline:  bool(w.IsOnline),
	}
	if w.UniqueKey != "" {
		ref, err := chat.ParseKey(w.UniqueKey)
		if err != nil {
			return chat.User{}, false
		}
		u.Ref = ref
		return u, true
	}
	id := int64(w.UserID)
	if id == 0 {
		id = int64(w.ID)
	}
	if w.UserType == "" || id <= 0 {
		return chat.User{}, false
	}
	u.Ref = chat.UserRef{Type: w.UserType, ID: id}
	return u, true
}

type listPage struct {
	Success  *FlexBool          `json:"success"`
	Users    []wireConversation `json:"users"`
	HasMore  FlexBool           `json:"hasMore"`
	HasMore2 FlexBool           `json:"has_more"`
	Message  json.RawMessage    `json:"message"`
}

type messagePage struct {
	Success  *FlexBool       `json:"success"`
	Messages []wireMessage   `json:"messages"`
	HasMore  FlexBool        `json:"hasMore"`
	HasMore2 FlexBool        `json:"has_more"`
	Message  json.RawMessage `json:"message"`
}

type countResponse struct {
	Success *FlexBool `json:"success"`
	Count   FlexInt   `json:"count"`
	Unread  FlexInt   `json:"unread_count"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
