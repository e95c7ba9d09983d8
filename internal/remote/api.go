package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/matheus3301/campusmsg/internal/chat"
)

// ConversationPage is one page of the conversation or active-user list.
type ConversationPage struct {
	Conversations []chat.Conversation
	HasMore       bool
}

// MessagePage is one page of chat history, newest page first.
type MessagePage struct {
	Messages []chat.Message
	HasMore  bool
}

// SendRequest describes an outgoing message.
type SendRequest struct {
	Sender   chat.UserRef
	Receiver chat.UserRef
	Text     string
	Type     chat.MessageType
	FileURL  string
	FileName string
}

func userParams(me chat.UserRef) url.Values {
	q := url.Values{}
	q.Set("userId", strconv.FormatInt(me.ID, 10))
	q.Set("userType", me.Type)
	return q
}

// ListConversations fetches one page of the conversation list.
func (c *Client) ListConversations(ctx context.Context, me chat.UserRef, page, pageSize int) (ConversationPage, error) {
	return c.listUsers(ctx, c.endpoints.Conversations, me, page, pageSize)
}

// ListActiveUsers fetches one page of the active-users list.
func (c *Client) ListActiveUsers(ctx context.Context, me chat.UserRef, page, pageSize int) (ConversationPage, error) {
	return c.listUsers(ctx, c.endpoints.ActiveUsers, me, page, pageSize)
}

func (c *Client) listUsers(ctx context.Context, path string, me chat.UserRef, page, pageSize int) (ConversationPage, error) {
	q := userParams(me)
	q.Set("page", strconv.Itoa(page))
	q.Set("pageSize", strconv.Itoa(pageSize))

	body, err := c.get(ctx, path, q)
	if err != nil {
		return ConversationPage{}, err
	}
	var resp listPage
	if err := decode(body, &resp); err != nil {
		return ConversationPage{}, err
	}
	if resp.Success != nil && !bool(*resp.Success) {
		return ConversationPage{}, &APIError{Status: 200, Message: envelope{Message: resp.Message}.text()}
	}

	out := ConversationPage{
		Conversations: make([]chat.Conversation, 0, len(resp.Users)),
		HasMore:       bool(resp.HasMore) || bool(resp.HasMore2),
	}
	for _, w := range resp.Users {
		if conv, ok := w.toChat(c.loc); ok {
			out.Conversations = append(out.Conversations, conv)
		}
	}
	return out, nil
}

// SearchUsers finds users by name. The backend answers with either a bare
// array or {"users": [...]}.
func (c *Client) SearchUsers(ctx context.Context, me chat.UserRef, query string) ([]chat.User, error) {
	q := userParams(me)
	q.Set("query", query)

	body, err := c.get(ctx, c.endpoints.SearchUsers, q)
	if err != nil {
		return nil, err
	}

	var wire []wireUser
	if trimmed := bytes.TrimSpace(body); len(trimmed) > 0 && trimmed[0] == '[' {
		if err := decode(trimmed, &wire); err != nil {
			return nil, err
		}
	} else {
		var resp struct {
			Success *FlexBool  `json:"success"`
			Users   []wireUser `json:"users"`
		}
		if err := decode(body, &resp); err != nil {
			return nil, err
		}
		if resp.Success != nil && !bool(*resp.Success) {
			return nil, &APIError{Status: 200}
		}
		wire = resp.Users
	}

	users := make([]chat.User, 0, len(wire))
	for _, w := range wire {
		if u, ok := w.toChat(); ok {
			users = append(users, u)
		}
	}
	return users, nil
}

// GetMessages fetches one page of history between me and peer.
func (c *Client) GetMessages(ctx context.Context, me, peer chat.UserRef, page, limit int) (MessagePage, error) {
	q := url.Values{}
	q.Set("senderId", strconv.FormatInt(me.ID, 10))
	q.Set("senderType", me.Type)
	q.Set("receiverId", strconv.FormatInt(peer.ID, 10))
	q.Set("receiverType", peer.Type)
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))

	body, err := c.get(ctx, c.endpoints.Messages, q)
	if err != nil {
		return MessagePage{}, err
	}
	var resp messagePage
	if err := decode(body, &resp); err != nil {
		return MessagePage{}, err
	}
	if resp.Success != nil && !bool(*resp.Success) {
		return MessagePage{}, &APIError{Status: 200, Message: envelope{Message: resp.Message}.text()}
	}

	out := MessagePage{
		Messages: make([]chat.Message, 0, len(resp.Messages)),
		HasMore:  bool(resp.HasMore) || bool(resp.HasMore2),
	}
	for _, w := range resp.Messages {
		m := w.toChat(c.loc)
		if m.ID <= 0 {
			continue
		}
		out.Messages = append(out.Messages, m)
	}
	return out, nil
}

// SendMessage posts a message and returns the server record.
func (c *Client) SendMessage(ctx context.Context, r SendRequest) (chat.Message, error) {
	if r.Type == "" {
		r.Type = chat.TypeText
	}
	payload := map[string]any{
		"text":         r.Text,
		"senderId":     r.Sender.ID,
		"senderType":   r.Sender.Type,
		"receiverId":   r.Receiver.ID,
		"receiverType": r.Receiver.Type,
		"type":         string(r.Type),
	}
	if r.FileURL != "" {
		payload["fileUrl"] = r.FileURL
	}
	if r.FileName != "" {
		payload["fileName"] = r.FileName
	}

	body, err := c.post(ctx, c.endpoints.Send, payload)
	if err != nil {
		return chat.Message{}, err
	}
	var env envelope
	if err := decode(body, &env); err != nil {
		return chat.Message{}, err
	}
	if env.failed() {
		return chat.Message{}, &APIError{Status: 200, Message: env.text()}
	}

	raw := env.record()
	if raw == nil {
		raw = bytes.TrimSpace(body)
	}
	var w wireMessage
	if err := json.Unmarshal(raw, &w); err != nil {
		return chat.Message{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	m := w.toChat(c.loc)
	if m.ID <= 0 {
		return chat.Message{}, ErrMissingID
	}
	if m.Sender.IsZero() {
		m.Sender = r.Sender
	}
	if m.Receiver.IsZero() {
		m.Receiver = r.Receiver
	}
	if m.Text == "" && w.Text == nil && w.Body == nil {
		m.Text = r.Text
	}
	if m.FileURL == "" {
		m.FileURL = r.FileURL
	}
	if m.FileName == "" {
		m.FileName = r.FileName
	}
	if w.Type == "" {
		m.Type = r.Type
	}
	return m, nil
}

// EditMessage replaces the text of a message. The returned record is nil
// when the backend confirms without echoing the message.
func (c *Client) EditMessage(ctx context.Context, me chat.UserRef, id int64, text string) (*chat.Message, error) {
	return c.mutate(ctx, c.endpoints.Edit, map[string]any{
		"messageId": id,
		"newText":   text,
		"userId":    me.ID,
		"userType":  me.Type,
	})
}

// UnsendMessage retracts a message.
func (c *Client) UnsendMessage(ctx context.Context, me chat.UserRef, id int64) (*chat.Message, error) {
	return c.mutate(ctx, c.endpoints.Unsend, map[string]any{
		"messageId": id,
		"userId":    me.ID,
		"userType":  me.Type,
	})
}

// mutate requires an explicit success:true. An empty or non-JSON body
// is a failure even with a 2xx status.
func (c *Client) mutate(ctx context.Context, path string, payload map[string]any) (*chat.Message, error) {
	body, err := c.post(ctx, path, payload)
	if err != nil {
		return nil, err
	}
	var env envelope
	if err := decode(body, &env); err != nil {
		return nil, err
	}
	if !env.succeeded() {
		return nil, &APIError{Status: 200, Message: env.text()}
	}
	raw := env.record()
	if raw == nil {
		return nil, nil
	}
	var w wireMessage
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, nil
	}
	m := w.toChat(c.loc)
	if m.ID <= 0 {
		return nil, nil
	}
	return &m, nil
}

// MarkRead marks every message from peer to me as seen.
func (c *Client) MarkRead(ctx context.Context, me, peer chat.UserRef) error {
	return c.command(ctx, c.endpoints.MarkRead, map[string]any{
		"senderId":     me.ID,
		"senderType":   me.Type,
		"receiverId":   peer.ID,
		"receiverType": peer.Type,
	})
}

// UpdateSession is the presence heartbeat.
func (c *Client) UpdateSession(ctx context.Context, me chat.UserRef) error {
	return c.command(ctx, c.endpoints.UpdateSession, map[string]any{
		"userId":   me.ID,
		"userType": me.Type,
	})
}

// command posts payload and only checks for success:false. Some backend
// scripts answer with an empty body.
func (c *Client) command(ctx context.Context, path string, payload map[string]any) error {
	body, err := c.post(ctx, path, payload)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	var env envelope
	if err := decode(body, &env); err != nil {
		return err
	}
	if env.failed() {
		return &APIError{Status: 200, Message: env.text()}
	}
	return nil
}

// UnreadCount returns the total number of unread messages for me.
func (c *Client) UnreadCount(ctx context.Context, me chat.UserRef) (int, error) {
	body, err := c.get(ctx, c.endpoints.UnreadCount, userParams(me))
	if err != nil {
		return 0, err
	}
	var resp countResponse
	if err := decode(body, &resp); err != nil {
		return 0, err
	}
	if resp.Success != nil && !bool(*resp.Success) {
		return 0, &APIError{Status: 200}
	}
	n := int(resp.Count)
	if n == 0 {
		n = int(resp.Unread)
	}
	if n < 0 {
		n = 0
	}
	return n, nil
}

// String identifies the client in logs.
func (c *Client) String() string {
	return "remote(" + strings.TrimPrefix(strings.TrimPrefix(c.baseURL, "https://"), "http://") + ")"
}
