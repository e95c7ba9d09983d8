package api

import (
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"

	campusv1 "github.com/matheus3301/campusmsg/internal/api/campusv1"
	"github.com/matheus3301/campusmsg/internal/bus"
	"github.com/matheus3301/campusmsg/internal/chat"
	"github.com/matheus3301/campusmsg/internal/paging"
	"github.com/matheus3301/campusmsg/internal/presence"
	"github.com/matheus3301/campusmsg/internal/status"
	"github.com/matheus3301/campusmsg/internal/store"
	chatsync "github.com/matheus3301/campusmsg/internal/sync"
)

func unixMs(c chat.Conversation) int64 {
	if !c.HasActivity() {
		return 0
	}
	return c.LastMessageAt.UnixMilli()
}

func conversationToProto(c chat.Conversation) *campusv1.Conversation {
	return &campusv1.Conversation{
		Key:                 c.Key,
		Name:                c.Name,
		Initials:            c.Initials(),
		AvatarURL:           c.AvatarURL,
		LastMessage:         c.LastMessage,
		LastMessageTime:     c.LastMessageTime,
		LastMessageAtUnixMs: unixMs(c),
		LastMessageFromMe:   c.LastMessageFromMe,
		UnreadCount:         int64(c.UnreadCount),
		UnreadBadge:         presence.Badge(c.UnreadCount),
		IsOnline:            c.IsOnline,
		LastSeen:            c.LastSeen,
		MessageStatus:       string(c.MessageStatus),
	}
}

func pageInfo(s paging.State, loading bool) *campusv1.PageInfo {
	return &campusv1.PageInfo{Page: int32(s.Page), HasMore: s.HasMore, Loading: loading || s.Loading}
}

func listToProto(v chatsync.ListView) *campusv1.ListConversationsResponse {
	out := make([]*campusv1.Conversation, 0, len(v.Conversations))
	for _, c := range v.Conversations {
		out = append(out, conversationToProto(c))
	}
	return &campusv1.ListConversationsResponse{Conversations: out, PageInfo: pageInfo(v.Paging, v.Loading)}
}

func messageToProto(m chat.Message, me chat.UserRef) *campusv1.Message {
	return &campusv1.Message{
		ID:              m.ID,
		State:           campusv1.StateConfirmed,
		SenderKey:       m.Sender.Key(),
		ReceiverKey:     m.Receiver.Key(),
		FromMe:          m.FromUser(me),
		Text:            m.Text,
		Type:            string(m.Type),
		FileURL:         m.FileURL,
		FileName:        m.FileName,
		TimestampUnixMs: m.Timestamp.UnixMilli(),
		IsEdited:        m.IsEdited,
		IsSeen:          m.IsSeen,
		IsRemoved:       m.Removed(),
	}
}

func entryToProto(e chat.Entry, me chat.UserRef) *campusv1.Message {
	m := messageToProto(e.Message, me)
	m.ClientID = e.ClientID
	m.State = e.State.String()
	return m
}

func threadToProto(v chatsync.ThreadView, me chat.UserRef, draft string) *campusv1.ThreadResponse {
	out := &campusv1.ThreadResponse{
		Open:     v.Open,
		Messages: make([]*campusv1.Message, 0, len(v.Entries)),
		PageInfo: pageInfo(v.Paging, v.Loading),
		Draft:    draft,
	}
	if v.Open {
		out.PeerKey = v.Peer.Key()
	}
	for _, e := range v.Entries {
		out.Messages = append(out.Messages, entryToProto(e, me))
	}
	return out
}

func userToProto(u chat.User) *campusv1.User {
	return &campusv1.User{Key: u.Ref.Key(), Name: u.Name, AvatarURL: u.AvatarURL, IsOnline: u.IsOnline}
}

func searchResultToProto(r store.SearchResult, me chat.UserRef) *campusv1.SearchResult {
	return &campusv1.SearchResult{Message: messageToProto(r.Message, me), PeerKey: r.PeerKey, Snippet: r.Snippet}
}

// payloadOf flattens a bus payload into the update's structured payload.
func payloadOf(payload any) (*structpb.Struct, error) {
	var fields map[string]any
	switch p := payload.(type) {
	case nil:
		return nil, nil
	case bus.ListChange:
		fields = map[string]any{"count": p.Count, "page": p.Page, "has_more": p.HasMore}
	case bus.ThreadChange:
		fields = map[string]any{"peer_key": p.PeerKey, "count": p.Count}
	case bus.SendFailure:
		fields = map[string]any{"peer_key": p.PeerKey, "client_id": p.ClientID, "draft": p.Draft, "reason": p.Reason}
	case status.StatusChange:
		fields = map[string]any{"from": string(p.From), "to": string(p.To)}
	default:
		return nil, fmt.Errorf("unsupported payload %T", payload)
	}
	return structpb.NewStruct(fields)
}

func updateToProto(session string, evt bus.Event) (*campusv1.Update, error) {
	payload, err := payloadOf(evt.Payload)
	if err != nil {
		return nil, err
	}
	return &campusv1.Update{
		ID:               evt.ID,
		Session:          session,
		Kind:             evt.Kind,
		OccurredAtUnixMs: evt.Timestamp.UnixMilli(),
		Payload:          payload,
	}, nil
}
