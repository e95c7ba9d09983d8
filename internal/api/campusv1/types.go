package campusv1

import (
	"encoding/json"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// Entry states of a Message.
const (
	StatePending   = "pending"
	StateConfirmed = "confirmed"
	StateFailed    = "failed"
)

type PageInfo struct {
	Page    int32 `json:"page"`
	HasMore bool  `json:"has_more"`
	Loading bool  `json:"loading,omitempty"`
}

func (x *PageInfo) GetPage() int32 {
	if x != nil {
		return x.Page
	}
	return 0
}

func (x *PageInfo) GetHasMore() bool {
	if x != nil {
		return x.HasMore
	}
	return false
}

func (x *PageInfo) GetLoading() bool {
	if x != nil {
		return x.Loading
	}
	return false
}

type Conversation struct {
	Key                 string `json:"key"`
	Name                string `json:"name"`
	Initials            string `json:"initials"`
	AvatarURL           string `json:"avatar_url,omitempty"`
	LastMessage         string `json:"last_message"`
	LastMessageTime     string `json:"last_message_time,omitempty"`
	LastMessageAtUnixMs int64  `json:"last_message_at_unix_ms,omitempty"`
	LastMessageFromMe   bool   `json:"last_message_from_me,omitempty"`
	UnreadCount         int64  `json:"unread_count"`
	UnreadBadge         string `json:"unread_badge,omitempty"`
	IsOnline            bool   `json:"is_online"`
	LastSeen            string `json:"last_seen,omitempty"`
	MessageStatus       string `json:"message_status,omitempty"`
}

type ListConversationsResponse struct {
	Conversations []*Conversation `json:"conversations"`
	PageInfo      *PageInfo       `json:"page_info"`
}

type User struct {
	Key       string `json:"key"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url,omitempty"`
	IsOnline  bool   `json:"is_online"`
}

type SearchUsersRequest struct {
	Query string `json:"query"`
}

type SearchUsersResponse struct {
	Users []*User `json:"users"`
}

type UnreadTotalResponse struct {
	Count int64  `json:"count"`
	Badge string `json:"badge,omitempty"`
}

type Message struct {
	ID              int64  `json:"id,omitempty"`
	ClientID        string `json:"client_id,omitempty"`
	State           string `json:"state"`
	SenderKey       string `json:"sender_key"`
	ReceiverKey     string `json:"receiver_key"`
	FromMe          bool   `json:"from_me"`
	Text            string `json:"text"`
	Type            string `json:"type"`
	FileURL         string `json:"file_url,omitempty"`
	FileName        string `json:"file_name,omitempty"`
	TimestampUnixMs int64  `json:"timestamp_unix_ms"`
	IsEdited        bool   `json:"is_edited,omitempty"`
	IsSeen          bool   `json:"is_seen,omitempty"`
	IsRemoved       bool   `json:"is_removed,omitempty"`
}

type OpenChatRequest struct {
	PeerKey string `json:"peer_key"`
}

type ThreadResponse struct {
	PeerKey  string     `json:"peer_key,omitempty"`
	Open     bool       `json:"open"`
	Messages []*Message `json:"messages"`
	PageInfo *PageInfo  `json:"page_info"`
	Draft    string     `json:"draft,omitempty"`
}

type SendRequest struct {
	Text     string `json:"text"`
	Type     string `json:"type,omitempty"`
	FileURL  string `json:"file_url,omitempty"`
	FileName string `json:"file_name,omitempty"`
}

type SendResponse struct {
	ClientID string   `json:"client_id"`
	Message  *Message `json:"message"`
}

type EditRequest struct {
	MessageID int64  `json:"message_id"`
	Text      string `json:"text"`
}

type MessageRequest struct {
	MessageID int64 `json:"message_id"`
}

type MessageResponse struct {
	Message *Message `json:"message"`
	// Unchanged is set when an edit carried the current text and was not sent.
	Unchanged bool `json:"unchanged,omitempty"`
}

type EligibilityResponse struct {
	CanEdit     bool  `json:"can_edit"`
	CanUnsend   bool  `json:"can_unsend"`
	RemainingMs int64 `json:"remaining_ms"`
}

// InteractionRequest sets the screen's interaction flags. Nil fields are
// left unchanged.
type InteractionRequest struct {
	Editing  *bool `json:"editing,omitempty"`
	MenuOpen *bool `json:"menu_open,omitempty"`
}

type MarkReadRequest struct {
	// PeerKey defaults to the open chat.
	PeerKey string `json:"peer_key,omitempty"`
}

type DraftRequest struct {
	Text string `json:"text"`
}

type SearchMessagesRequest struct {
	Query   string `json:"query"`
	PeerKey string `json:"peer_key,omitempty"`
	Limit   int32  `json:"limit,omitempty"`
}

type SearchResult struct {
	Message *Message `json:"message"`
	PeerKey string   `json:"peer_key"`
	Snippet string   `json:"snippet"`
}

type SearchMessagesResponse struct {
	Results []*SearchResult `json:"results"`
}

type GateState struct {
	Editing  bool   `json:"editing"`
	MenuOpen bool   `json:"menu_open"`
	InFlight string `json:"in_flight,omitempty"`
}

type SessionStatus struct {
	Session             string     `json:"session"`
	Status              string     `json:"status"`
	User                string     `json:"user"`
	Backend             string     `json:"backend"`
	UptimeMs            int64      `json:"uptime_ms"`
	ConsecutiveFailures int32      `json:"consecutive_failures"`
	LastError           string     `json:"last_error,omitempty"`
	LastSuccessUnixMs   int64      `json:"last_success_unix_ms,omitempty"`
	Jobs                []string   `json:"jobs"`
	Paused              bool       `json:"paused"`
	OpenChat            string     `json:"open_chat,omitempty"`
	LastChat            string     `json:"last_chat,omitempty"`
	LastChatName        string     `json:"last_chat_name,omitempty"`
	Gate                *GateState `json:"gate"`
	CachedConversations int64      `json:"cached_conversations"`
}

type SetForegroundRequest struct {
	Foreground bool `json:"foreground"`
}

type WatchRequest struct {
	// Prefixes filters event kinds; empty receives everything.
	Prefixes []string `json:"prefixes,omitempty"`
}

// Update is one daemon event. Payload keys follow the event kind.
type Update struct {
	ID               string           `json:"id"`
	Session          string           `json:"session"`
	Kind             string           `json:"kind"`
	OccurredAtUnixMs int64            `json:"occurred_at_unix_ms"`
	Payload          *structpb.Struct `json:"-"`
}

type updateJSON struct {
	ID               string          `json:"id"`
	Session          string          `json:"session"`
	Kind             string          `json:"kind"`
	OccurredAtUnixMs int64           `json:"occurred_at_unix_ms"`
	Payload          json.RawMessage `json:"payload,omitempty"`
}

func (u *Update) MarshalJSON() ([]byte, error) {
	out := updateJSON{ID: u.ID, Session: u.Session, Kind: u.Kind, OccurredAtUnixMs: u.OccurredAtUnixMs}
	if u.Payload != nil {
		raw, err := protojson.Marshal(u.Payload)
		if err != nil {
			return nil, err
		}
		out.Payload = raw
	}
	return json.Marshal(out)
}

func (u *Update) UnmarshalJSON(data []byte) error {
	var in updateJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*u = Update{ID: in.ID, Session: in.Session, Kind: in.Kind, OccurredAtUnixMs: in.OccurredAtUnixMs}
	if len(in.Payload) > 0 && string(in.Payload) != "null" {
		u.Payload = &structpb.Struct{}
		if err := protojson.Unmarshal(in.Payload, u.Payload); err != nil {
			return err
		}
	}
	return nil
}

// Field returns a payload string field, or "".
func (u *Update) Field(name string) string {
	if u.Payload == nil {
		return ""
	}
	return u.Payload.GetFields()[name].GetStringValue()
}

// Number returns a payload numeric field, or 0.
func (u *Update) Number(name string) float64 {
	if u.Payload == nil {
		return 0
	}
	return u.Payload.GetFields()[name].GetNumberValue()
}
