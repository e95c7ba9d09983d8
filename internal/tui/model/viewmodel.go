// Package model caches daemon state for the TUI and keeps it fresh from
// the daemon's update stream.
package model

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"google.golang.org/protobuf/types/known/emptypb"

	campusv1 "github.com/matheus3301/campusmsg/internal/api/campusv1"
	"github.com/matheus3301/campusmsg/internal/tui/client"
	"github.com/matheus3301/campusmsg/internal/tui/ui"
)

// Change tells the app which part of the model moved.
type Change int

const (
	ChangeStatus Change = iota
	ChangeConversations
	ChangeActive
	ChangeThread
)

// watchRetry is the pause before re-subscribing after the stream drops.
const watchRetry = 2 * time.Second

// ViewModel caches state from the daemon and signals UI refreshes.
type ViewModel struct {
	mu sync.RWMutex

	client        *client.Client
	status        *campusv1.SessionStatus
	unread        *campusv1.UnreadTotalResponse
	conversations *campusv1.ListConversationsResponse
	active        *campusv1.ListConversationsResponse
	thread        *campusv1.ThreadResponse
	Flash         *ui.FlashModel

	changes chan Change
}

// NewViewModel creates a new view model connected to the daemon client.
func NewViewModel(c *client.Client) *ViewModel {
	return &ViewModel{
		client:  c,
		Flash:   ui.NewFlashModel(),
		changes: make(chan Change, 16),
	}
}

// Changes returns the channel that signals UI refreshes.
func (vm *ViewModel) Changes() <-chan Change {
	return vm.changes
}

func (vm *ViewModel) signal(c Change) {
	select {
	case vm.changes <- c:
	default:
	}
}

// LoadStatus fetches session status and the unread total.
func (vm *ViewModel) LoadStatus(ctx context.Context) error {
	st, err := vm.client.Session.GetSessionStatus(ctx, &emptypb.Empty{})
	if err != nil {
		return err
	}
	unread, err := vm.client.Chat.UnreadTotal(ctx, &emptypb.Empty{})
	vm.mu.Lock()
	vm.status = st
	if err == nil {
		vm.unread = unread
	}
	vm.mu.Unlock()
	vm.signal(ChangeStatus)
	return nil
}

// LoadConversations fetches the merged conversation list.
func (vm *ViewModel) LoadConversations(ctx context.Context) error {
	return vm.setConversations(vm.client.Chat.ListConversations(ctx, &emptypb.Empty{}))
}

// LoadMoreConversations asks the daemon for the next page.
func (vm *ViewModel) LoadMoreConversations(ctx context.Context) error {
	return vm.setConversations(vm.client.Chat.LoadMoreConversations(ctx, &emptypb.Empty{}))
}

// RefreshConversations makes the daemon refetch page 1 right away.
func (vm *ViewModel) RefreshConversations(ctx context.Context) error {
	return vm.setConversations(vm.client.Chat.RefreshConversations(ctx, &emptypb.Empty{}))
}

func (vm *ViewModel) setConversations(resp *campusv1.ListConversationsResponse, err error) error {
	if err != nil {
		return err
	}
	vm.mu.Lock()
	vm.conversations = resp
	vm.mu.Unlock()
	vm.signal(ChangeConversations)
	return nil
}

// LoadActiveUsers fetches the active-users list.
func (vm *ViewModel) LoadActiveUsers(ctx context.Context) error {
	return vm.setActive(vm.client.Chat.ListActiveUsers(ctx, &emptypb.Empty{}))
}

// LoadMoreActiveUsers asks the daemon for the next active-users page.
func (vm *ViewModel) LoadMoreActiveUsers(ctx context.Context) error {
	return vm.setActive(vm.client.Chat.LoadMoreActiveUsers(ctx, &emptypb.Empty{}))
}

// RefreshActiveUsers makes the daemon refetch the first active-users page.
func (vm *ViewModel) RefreshActiveUsers(ctx context.Context) error {
	return vm.setActive(vm.client.Chat.RefreshActiveUsers(ctx, &emptypb.Empty{}))
}

func (vm *ViewModel) setActive(resp *campusv1.ListConversationsResponse, err error) error {
	if err != nil {
		return err
	}
	vm.mu.Lock()
	vm.active = resp
	vm.mu.Unlock()
	vm.signal(ChangeActive)
	return nil
}

// OpenChat mounts the chat with peerKey. The returned thread is cached
// even when err is set: the daemon keeps polling a chat whose first
// fetch failed.
func (vm *ViewModel) OpenChat(ctx context.Context, peerKey string) error {
	resp, err := vm.client.Message.OpenChat(ctx, &campusv1.OpenChatRequest{PeerKey: peerKey})
	if err != nil {
		vm.mu.Lock()
		vm.thread = &campusv1.ThreadResponse{PeerKey: peerKey, Open: true, PageInfo: &campusv1.PageInfo{}}
		vm.mu.Unlock()
		vm.signal(ChangeThread)
		return err
	}
	return vm.setThread(resp, nil)
}

// CloseChat unmounts the open chat.
func (vm *ViewModel) CloseChat(ctx context.Context) error {
	_, err := vm.client.Message.CloseChat(ctx, &emptypb.Empty{})
	vm.mu.Lock()
	vm.thread = nil
	vm.mu.Unlock()
	vm.signal(ChangeThread)
	return err
}

// LoadThread refreshes the open chat from the daemon's state.
func (vm *ViewModel) LoadThread(ctx context.Context) error {
	return vm.setThread(vm.client.Message.ListMessages(ctx, &emptypb.Empty{}))
}

// LoadOlderMessages fetches the next page of history.
func (vm *ViewModel) LoadOlderMessages(ctx context.Context) error {
	return vm.setThread(vm.client.Message.LoadOlderMessages(ctx, &emptypb.Empty{}))
}

func (vm *ViewModel) setThread(resp *campusv1.ThreadResponse, err error) error {
	if err != nil {
		return err
	}
	vm.mu.Lock()
	if resp.Open {
		vm.thread = resp
	} else {
		vm.thread = nil
	}
	vm.mu.Unlock()
	vm.signal(ChangeThread)
	return nil
}

// Send posts text to the open chat.
func (vm *ViewModel) Send(ctx context.Context, text string) error {
	if _, err := vm.client.Message.Send(ctx, &campusv1.SendRequest{Text: text}); err != nil {
		return err
	}
	return vm.LoadThread(ctx)
}

// Edit replaces the text of one of my messages. It reports false when the
// text was already current and nothing changed.
func (vm *ViewModel) Edit(ctx context.Context, id int64, text string) (bool, error) {
	resp, err := vm.client.Message.Edit(ctx, &campusv1.EditRequest{MessageID: id, Text: text})
	if err != nil {
		return false, err
	}
	if resp.Unchanged {
		return false, nil
	}
	return true, vm.LoadThread(ctx)
}

// Unsend retracts one of my messages.
func (vm *ViewModel) Unsend(ctx context.Context, id int64) error {
	if _, err := vm.client.Message.Unsend(ctx, &campusv1.MessageRequest{MessageID: id}); err != nil {
		return err
	}
	return vm.LoadThread(ctx)
}

// Eligibility reports what the action menu may offer for id right now.
func (vm *ViewModel) Eligibility(ctx context.Context, id int64) (*campusv1.EligibilityResponse, error) {
	return vm.client.Message.Eligibility(ctx, &campusv1.MessageRequest{MessageID: id})
}

// SetMenuOpen tells the daemon an action menu is showing.
func (vm *ViewModel) SetMenuOpen(ctx context.Context, open bool) error {
	_, err := vm.client.Message.SetInteraction(ctx, &campusv1.InteractionRequest{MenuOpen: &open})
	return err
}

// SetEditing tells the daemon an inline edit is in progress.
func (vm *ViewModel) SetEditing(ctx context.Context, editing bool) error {
	_, err := vm.client.Message.SetInteraction(ctx, &campusv1.InteractionRequest{Editing: &editing})
	return err
}

// SetDraft stores the composer text for the open chat.
func (vm *ViewModel) SetDraft(ctx context.Context, text string) error {
	_, err := vm.client.Message.SetDraft(ctx, &campusv1.DraftRequest{Text: text})
	return err
}

// MarkRead marks the open chat read.
func (vm *ViewModel) MarkRead(ctx context.Context) error {
	_, err := vm.client.Message.MarkRead(ctx, &campusv1.MarkReadRequest{})
	return err
}

// Touch tells the daemon the user just navigated so it refreshes the
// session heartbeat.
func (vm *ViewModel) Touch(ctx context.Context) error {
	_, err := vm.client.Session.Touch(ctx, &emptypb.Empty{})
	return err
}

// SetForeground pauses or resumes the daemon's polling.
func (vm *ViewModel) SetForeground(ctx context.Context, fg bool) error {
	_, err := vm.client.Session.SetForeground(ctx, &campusv1.SetForegroundRequest{Foreground: fg})
	return err
}

// SearchMessages runs a full-text search over cached messages.
func (vm *ViewModel) SearchMessages(ctx context.Context, query string) ([]*campusv1.SearchResult, error) {
	resp, err := vm.client.Message.SearchMessages(ctx, &campusv1.SearchMessagesRequest{Query: query, Limit: 50})
	if err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// SearchUsers finds users on the backend by name.
func (vm *ViewModel) SearchUsers(ctx context.Context, query string) ([]*campusv1.User, error) {
	resp, err := vm.client.Chat.SearchUsers(ctx, &campusv1.SearchUsersRequest{Query: query})
	if err != nil {
		return nil, err
	}
	return resp.Users, nil
}

// Watch follows the daemon's update stream until ctx ends, reloading
// whatever each update touches. The stream is re-opened after errors.
func (vm *ViewModel) Watch(ctx context.Context) {
	for ctx.Err() == nil {
		err := vm.follow(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			vm.Flash.Warn("Lost daemon updates, retrying")
		}
		select {
		case <-time.After(watchRetry):
		case <-ctx.Done():
			return
		}
	}
}

func (vm *ViewModel) follow(ctx context.Context) error {
	stream, err := vm.client.Chat.WatchUpdates(ctx, &campusv1.WatchRequest{})
	if err != nil {
		return err
	}
	for {
		upd, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		vm.apply(ctx, upd)
	}
}

func (vm *ViewModel) apply(ctx context.Context, upd *campusv1.Update) {
	switch {
	case strings.HasPrefix(upd.Kind, "conversations."):
		_ = vm.LoadConversations(ctx)
		_ = vm.LoadStatus(ctx)
	case strings.HasPrefix(upd.Kind, "active."):
		_ = vm.LoadActiveUsers(ctx)
	case upd.Kind == "message.send_failed":
		vm.Flash.Warn(upd.Field("reason"))
		_ = vm.LoadThread(ctx)
	case strings.HasPrefix(upd.Kind, "messages."):
		if upd.Field("peer_key") == vm.OpenPeer() {
			_ = vm.LoadThread(ctx)
		}
	case strings.HasPrefix(upd.Kind, "session."):
		_ = vm.LoadStatus(ctx)
	}
}

// Status returns the last session status, or nil.
func (vm *ViewModel) Status() *campusv1.SessionStatus {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.status
}

// UnreadBadge returns the unread badge text, "" when nothing is unread.
func (vm *ViewModel) UnreadBadge() string {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	if vm.unread == nil {
		return ""
	}
	return vm.unread.Badge
}

// Conversations returns the cached conversation list.
func (vm *ViewModel) Conversations() *campusv1.ListConversationsResponse {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.conversations
}

// ActiveUsers returns the cached active-users list.
func (vm *ViewModel) ActiveUsers() *campusv1.ListConversationsResponse {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.active
}

// Thread returns the open chat, or nil.
func (vm *ViewModel) Thread() *campusv1.ThreadResponse {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.thread
}

// OpenPeer returns the open chat's peer key, or "".
func (vm *ViewModel) OpenPeer() string {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	if vm.thread == nil {
		return ""
	}
	return vm.thread.PeerKey
}

// Conversation finds key in either cached list.
func (vm *ViewModel) Conversation(key string) *campusv1.Conversation {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	for _, list := range []*campusv1.ListConversationsResponse{vm.conversations, vm.active} {
		if list == nil {
			continue
		}
		for _, c := range list.Conversations {
			if c.Key == key {
				return c
			}
		}
	}
	return nil
}
