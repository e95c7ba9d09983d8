// Package sync holds the screen-level chat state and reconciles it with
// polled backend snapshots.
package sync

import (
	"context"
	"errors"
	"fmt"
	"strings"
	gosync "sync"
	"time"

	"go.uber.org/zap"

	"github.com/matheus3301/campusmsg/internal/bus"
	"github.com/matheus3301/campusmsg/internal/chat"
	"github.com/matheus3301/campusmsg/internal/gate"
	"github.com/matheus3301/campusmsg/internal/paging"
	"github.com/matheus3301/campusmsg/internal/presence"
	"github.com/matheus3301/campusmsg/internal/remote"
)

var (
	// ErrNoOpenChat is returned by chat operations when no chat is open.
	ErrNoOpenChat = errors.New("no chat is open")
	// ErrStale is returned when a response arrives for a chat that was
	// closed or switched, or that a local mutation has since overtaken.
	ErrStale = errors.New("response discarded: chat state moved on")
)

// Remote is the subset of the backend API the engine polls.
type Remote interface {
	ListConversations(ctx context.Context, me chat.UserRef, page, pageSize int) (remote.ConversationPage, error)
	ListActiveUsers(ctx context.Context, me chat.UserRef, page, pageSize int) (remote.ConversationPage, error)
	SearchUsers(ctx context.Context, me chat.UserRef, query string) ([]chat.User, error)
	GetMessages(ctx context.Context, me, peer chat.UserRef, page, limit int) (remote.MessagePage, error)
	MarkRead(ctx context.Context, me, peer chat.UserRef) error
	UpdateSession(ctx context.Context, me chat.UserRef) error
	UnreadCount(ctx context.Context, me chat.UserRef) (int, error)
}

// Cache receives every merged snapshot. It is a display cache only.
type Cache interface {
	SaveConversations(convs []chat.Conversation) error
	SaveMessages(peer chat.UserRef, msgs []chat.Message) error
	SaveTombstone(id int64) error
}

// History is implemented by caches that can replay a chat while the
// backend is unreachable.
type History interface {
	ListMessages(peer chat.UserRef, before time.Time, limit int) ([]chat.Message, error)
}

// Options sizes the engine's fetches.
type Options struct {
	ConversationPageSize int
	ActiveUsersPageSize  int
	MessagePageSize      int
	// PresenceTTL bounds how long an active-users observation is trusted.
	PresenceTTL time.Duration
}

func (o Options) withDefaults() Options {
	if o.ConversationPageSize <= 0 {
		o.ConversationPageSize = 20
	}
	if o.ActiveUsersPageSize <= 0 {
		o.ActiveUsersPageSize = 20
	}
	if o.MessagePageSize <= 0 {
		o.MessagePageSize = 30
	}
	if o.PresenceTTL <= 0 {
		o.PresenceTTL = 5 * time.Second
	}
	return o
}

// ListView is a snapshot of a paginated user list.
type ListView struct {
	Conversations []chat.Conversation
	Paging        paging.State
	Loading       bool
}

// ThreadView is a snapshot of the open chat.
type ThreadView struct {
	Peer    chat.UserRef
	Open    bool
	Entries []chat.Entry
	Paging  paging.State
	Loading bool
}

// Engine is the single owner of the conversation list, the active-users
// list and the open chat. Pollers and the mutation controller write
// through it; readers get copies.
type Engine struct {
	remote Remote
	user   chat.CurrentUserProvider
	gate   *gate.Gate
	bus    *bus.Bus
	cache  Cache
	logger *zap.Logger
	opts   Options

	tracker *presence.Tracker

	mu            gosync.Mutex
	conversations []chat.Conversation
	convCursor    *paging.Cursor
	convLoading   bool
	active        []chat.Conversation
	activeCursor  *paging.Cursor

	peer       chat.UserRef
	open       bool
	epoch      uint64
	rev        uint64
	thread     *Thread
	msgCursor  *paging.Cursor
	msgLoading bool
	needsRead  bool
	removed    Tombstones
}

// NewEngine creates an engine. cache and b may be nil.
func NewEngine(r Remote, user chat.CurrentUserProvider, g *gate.Gate, b *bus.Bus, cache Cache, opts Options, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if g == nil {
		g = gate.New()
	}
	opts = opts.withDefaults()
	removed := make(Tombstones)
	return &Engine{
		remote:       r,
		user:         user,
		gate:         g,
		bus:          b,
		cache:        cache,
		logger:       logger,
		opts:         opts,
		tracker:      presence.NewTracker(opts.PresenceTTL),
		convCursor:   paging.NewCursor(),
		activeCursor: paging.NewCursor(),
		msgCursor:    paging.NewCursor(),
		thread:       NewThread(removed),
		removed:      removed,
	}
}

// Prime seeds the conversation list from the display cache before the
// first poll. It is a no-op once the list holds data.
func (e *Engine) Prime(convs []chat.Conversation) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.conversations) > 0 {
		return
	}
	e.conversations = MergeConversations(nil, convs, false)
}

func (e *Engine) publish(kind string, payload any) {
	if e.bus != nil {
		e.bus.Emit(kind, payload)
	}
}

// RestoreTombstones re-applies unsends recorded in earlier sessions.
func (e *Engine) RestoreTombstones(ids []int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, id := range ids {
		e.removed[id] = struct{}{}
	}
}

// RefreshConversations fetches page 1 of the conversation list. Silent
// refreshes are skipped while the user has an edit or menu open, and
// never touch the loading flag.
func (e *Engine) RefreshConversations(ctx context.Context, silent bool) error {
	if silent && e.gate.Interacting() {
		return nil
	}
	if !silent {
		e.setConvLoading(true)
		defer e.setConvLoading(false)
	}

	polledAt := time.Now()
	page, err := e.remote.ListConversations(ctx, e.user.CurrentUser(), 1, e.opts.ConversationPageSize)
	if err != nil {
		return fmt.Errorf("list conversations: %w", err)
	}

	e.mu.Lock()
	if silent && e.gate.Interacting() {
		e.mu.Unlock()
		return nil
	}
	incoming := e.tracker.Overlay(DedupeConversations(page.Conversations), polledAt)
	var next []chat.Conversation
	if e.convCursor.Page() > 1 {
		next = OverlayConversations(e.conversations, incoming)
	} else {
		next = MergeConversations(e.conversations, incoming, false)
	}
	e.convCursor.ObserveFirst(page.HasMore)
	changed := e.swapConversations(next)
	state := e.convCursor.Snapshot()
	e.mu.Unlock()

	if changed {
		e.afterConversations(next, state)
	}
	return nil
}

// LoadMoreConversations appends the next page of the conversation list.
// It returns paging.ErrBusy or paging.ErrExhausted without a fetch when
// a load is running or the list is complete.
func (e *Engine) LoadMoreConversations(ctx context.Context) error {
	page, err := e.convCursor.BeginNext()
	if err != nil {
		return err
	}
	polledAt := time.Now()
	res, err := e.remote.ListConversations(ctx, e.user.CurrentUser(), page, e.opts.ConversationPageSize)
	e.convCursor.Finish(page, res.HasMore, err)
	if err != nil {
		return fmt.Errorf("load conversations page %d: %w", page, err)
	}

	e.mu.Lock()
	next := MergeConversations(e.conversations, e.tracker.Overlay(res.Conversations, polledAt), true)
	changed := e.swapConversations(next)
	state := e.convCursor.Snapshot()
	e.mu.Unlock()

	if changed {
		e.afterConversations(next, state)
	}
	return nil
}

// swapConversations installs next if it differs. Caller holds e.mu.
func (e *Engine) swapConversations(next []chat.Conversation) bool {
	if EqualConversations(e.conversations, next) {
		return false
	}
	e.conversations = next
	return true
}

func (e *Engine) afterConversations(convs []chat.Conversation, state paging.State) {
	e.publish(bus.ConversationsUpdated, bus.ListChange{Count: len(convs), Page: state.Page, HasMore: state.HasMore})
	if e.cache != nil {
		if err := e.cache.SaveConversations(convs); err != nil {
			e.logger.Warn("failed to cache conversations", zap.Error(err))
		}
	}
}

func (e *Engine) setConvLoading(on bool) {
	e.mu.Lock()
	e.convLoading = on
	e.mu.Unlock()
}

// Conversations returns the conversation list.
func (e *Engine) Conversations() ListView {
	e.mu.Lock()
	defer e.mu.Unlock()
	return ListView{
		Conversations: cloneConversations(e.conversations),
		Paging:        e.convCursor.Snapshot(),
		Loading:       e.convLoading,
	}
}

// RefreshActiveUsers fetches page 1 of the active-users list and records
// presence from it.
func (e *Engine) RefreshActiveUsers(ctx context.Context, silent bool) error {
	if silent && e.gate.Interacting() {
		return nil
	}
	page, err := e.remote.ListActiveUsers(ctx, e.user.CurrentUser(), 1, e.opts.ActiveUsersPageSize)
	if err != nil {
		return fmt.Errorf("list active users: %w", err)
	}

	e.mu.Lock()
	var next []chat.Conversation
	if e.activeCursor.Page() > 1 {
		next = OverlayConversations(e.active, page.Conversations)
	} else {
		next = MergeConversations(e.active, page.Conversations, false)
	}
	e.activeCursor.ObserveFirst(page.HasMore)
	e.tracker.Observe(next)
	changed := !EqualConversations(e.active, next)
	if changed {
		e.active = next
	}
	state := e.activeCursor.Snapshot()
	convs, convsChanged := e.reapplyPresence()
	convState := e.convCursor.Snapshot()
	e.mu.Unlock()

	if changed {
		e.publish(bus.ActiveUsersUpdated, bus.ListChange{Count: len(next), Page: state.Page, HasMore: state.HasMore})
	}
	if convsChanged {
		e.afterConversations(convs, convState)
	}
	return nil
}

// LoadMoreActiveUsers appends the next page of active users.
func (e *Engine) LoadMoreActiveUsers(ctx context.Context) error {
	page, err := e.activeCursor.BeginNext()
	if err != nil {
		return err
	}
	res, err := e.remote.ListActiveUsers(ctx, e.user.CurrentUser(), page, e.opts.ActiveUsersPageSize)
	e.activeCursor.Finish(page, res.HasMore, err)
	if err != nil {
		return fmt.Errorf("load active users page %d: %w", page, err)
	}

	e.mu.Lock()
	next := MergeConversations(e.active, res.Conversations, true)
	e.tracker.Observe(next)
	changed := !EqualConversations(e.active, next)
	if changed {
		e.active = next
	}
	state := e.activeCursor.Snapshot()
	convs, convsChanged := e.reapplyPresence()
	convState := e.convCursor.Snapshot()
	e.mu.Unlock()

	if changed {
		e.publish(bus.ActiveUsersUpdated, bus.ListChange{Count: len(next), Page: state.Page, HasMore: state.HasMore})
	}
	if convsChanged {
		e.afterConversations(convs, convState)
	}
	return nil
}

// reapplyPresence carries a new active-users observation into the
// conversation list. Caller holds e.mu.
func (e *Engine) reapplyPresence() ([]chat.Conversation, bool) {
	if len(e.conversations) == 0 {
		return nil, false
	}
	next := e.tracker.Overlay(e.conversations, time.Time{})
	return next, e.swapConversations(next)
}

// ActiveUsers returns the active-users list.
func (e *Engine) ActiveUsers() ListView {
	e.mu.Lock()
	defer e.mu.Unlock()
	return ListView{
		Conversations: cloneConversations(e.active),
		Paging:        e.activeCursor.Snapshot(),
	}
}

// IsOnline reports fresh presence for a conversation key.
func (e *Engine) IsOnline(key string) bool {
	return e.tracker.IsOnline(key)
}

// OpenChat makes peer the open chat and loads its newest page.
func (e *Engine) OpenChat(ctx context.Context, peer chat.UserRef) error {
	if peer.IsZero() {
		return fmt.Errorf("open chat: %w", chat.ErrInvalidKey)
	}
	e.mu.Lock()
	e.epoch++
	e.peer = peer
	e.open = true
	e.thread = NewThread(e.removed)
	e.msgCursor = paging.NewCursor()
	e.msgLoading = true
	e.needsRead = false
	epoch, rev := e.epoch, e.rev
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		if e.epoch == epoch {
			e.msgLoading = false
		}
		e.mu.Unlock()
	}()

	page, err := e.remote.GetMessages(ctx, e.user.CurrentUser(), peer, 1, e.opts.MessagePageSize)
	if err != nil {
		e.replayCached(peer, epoch)
		return fmt.Errorf("get messages: %w", err)
	}
	if _, err := e.applyMessages(peer, epoch, rev, 1, page, true); err != nil {
		return err
	}
	e.markRead(ctx, peer, epoch)
	return nil
}

// replayCached fills a freshly opened chat from the display cache. The
// next successful poll overwrites whatever it shows.
func (e *Engine) replayCached(peer chat.UserRef, epoch uint64) {
	h, ok := e.cache.(History)
	if !ok {
		return
	}
	msgs, err := h.ListMessages(peer, time.Time{}, e.opts.MessagePageSize)
	if err != nil {
		e.logger.Warn("failed to read cached messages", zap.Error(err), zap.String("peer", peer.Key()))
		return
	}
	if len(msgs) == 0 {
		return
	}
	e.mu.Lock()
	if !e.open || e.epoch != epoch {
		e.mu.Unlock()
		return
	}
	e.thread.MergeOlder(msgs)
	count := e.thread.Len()
	e.mu.Unlock()
	e.publish(bus.MessagesUpdated, bus.ThreadChange{PeerKey: peer.Key(), Count: count})
}

// CloseChat unmounts the open chat. Responses still in flight for it are
// discarded on arrival.
func (e *Engine) CloseChat() {
	e.mu.Lock()
	e.epoch++
	e.open = false
	e.peer = chat.UserRef{}
	e.thread = NewThread(e.removed)
	e.msgCursor = paging.NewCursor()
	e.msgLoading = false
	e.needsRead = false
	e.mu.Unlock()
}

// RefreshMessages polls page 1 of the open chat.
func (e *Engine) RefreshMessages(ctx context.Context, silent bool) error {
	if silent && e.gate.Blocked() {
		return nil
	}
	e.mu.Lock()
	if !e.open {
		e.mu.Unlock()
		if silent {
			return nil
		}
		return ErrNoOpenChat
	}
	peer, epoch, rev := e.peer, e.epoch, e.rev
	e.mu.Unlock()

	page, err := e.remote.GetMessages(ctx, e.user.CurrentUser(), peer, 1, e.opts.MessagePageSize)
	if err != nil {
		return fmt.Errorf("get messages: %w", err)
	}
	unread, err := e.applyMessages(peer, epoch, rev, 1, page, true)
	if err != nil {
		return err
	}
	e.mu.Lock()
	retry := e.needsRead && e.epoch == epoch
	e.mu.Unlock()
	if unread || retry {
		e.markRead(ctx, peer, epoch)
	}
	return nil
}

// LoadOlderMessages fetches the next older page of the open chat.
func (e *Engine) LoadOlderMessages(ctx context.Context) error {
	e.mu.Lock()
	if !e.open {
		e.mu.Unlock()
		return ErrNoOpenChat
	}
	peer, epoch, cursor := e.peer, e.epoch, e.msgCursor
	e.mu.Unlock()

	page, err := cursor.BeginNext()
	if err != nil {
		return err
	}
	if page == 1 {
		// Nothing loaded yet; the open itself fetches page 1.
		page = 2
	}
	res, err := e.remote.GetMessages(ctx, e.user.CurrentUser(), peer, page, e.opts.MessagePageSize)
	cursor.Finish(page, res.HasMore, err)
	if err != nil {
		return fmt.Errorf("load messages page %d: %w", page, err)
	}
	_, err = e.applyMessages(peer, epoch, 0, page, res, false)
	return err
}

// applyMessages merges a fetched page into the thread if it still belongs
// to the open chat. A head page fetched before a local mutation is
// dropped; the next poll carries the post-mutation truth. It reports
// whether the page brought unseen incoming messages.
func (e *Engine) applyMessages(peer chat.UserRef, epoch, rev uint64, page int, res remote.MessagePage, head bool) (bool, error) {
	e.mu.Lock()
	if !e.open || e.epoch != epoch {
		e.mu.Unlock()
		return false, ErrStale
	}
	if head && e.rev != rev {
		e.mu.Unlock()
		return false, ErrStale
	}

	var changed bool
	if head {
		changed = e.thread.MergeServer(res.Messages)
		if page == 1 {
			e.msgCursor.ObserveFirst(res.HasMore)
		}
	} else {
		changed = e.thread.MergeOlder(res.Messages)
	}
	count := e.thread.Len()
	confirmed := e.thread.Confirmed()
	me := e.user.CurrentUser()
	unread := false
	for _, m := range res.Messages {
		if m.Sender == peer && m.Receiver == me && !m.IsSeen {
			unread = true
			break
		}
	}
	e.mu.Unlock()

	if changed {
		e.publish(bus.MessagesUpdated, bus.ThreadChange{PeerKey: peer.Key(), Count: count})
		if e.cache != nil {
			if err := e.cache.SaveMessages(peer, confirmed); err != nil {
				e.logger.Warn("failed to cache messages", zap.Error(err), zap.String("peer", peer.Key()))
			}
		}
	}
	return changed && unread && head, nil
}

// markRead is best effort. A failure leaves needsRead set so the next
// successful poll of the same chat tries again.
func (e *Engine) markRead(ctx context.Context, peer chat.UserRef, epoch uint64) {
	err := e.remote.MarkRead(ctx, e.user.CurrentUser(), peer)
	e.mu.Lock()
	if e.epoch == epoch {
		e.needsRead = err != nil
	}
	e.mu.Unlock()
	if err != nil {
		e.logger.Debug("mark read failed", zap.Error(err), zap.String("peer", peer.Key()))
		return
	}
	e.clearUnread(peer)
}

// clearUnread zeroes the local unread count of peer's conversation.
func (e *Engine) clearUnread(peer chat.UserRef) {
	e.mu.Lock()
	key := peer.Key()
	changed := false
	for i := range e.conversations {
		if e.conversations[i].Key == key && e.conversations[i].UnreadCount != 0 {
			e.conversations[i].UnreadCount = 0
			changed = true
		}
	}
	convs := cloneConversations(e.conversations)
	state := e.convCursor.Snapshot()
	e.mu.Unlock()
	if changed {
		e.afterConversations(convs, state)
	}
}

// MarkRead marks the peer's messages as read.
func (e *Engine) MarkRead(ctx context.Context, peer chat.UserRef) error {
	if err := e.remote.MarkRead(ctx, e.user.CurrentUser(), peer); err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	e.clearUnread(peer)
	return nil
}

// Thread returns the open chat.
func (e *Engine) Thread() ThreadView {
	e.mu.Lock()
	defer e.mu.Unlock()
	return ThreadView{
		Peer:    e.peer,
		Open:    e.open,
		Entries: e.thread.Entries(),
		Paging:  e.msgCursor.Snapshot(),
		Loading: e.msgLoading,
	}
}

// Heartbeat refreshes the current user's presence on the backend.
func (e *Engine) Heartbeat(ctx context.Context) error {
	if err := e.remote.UpdateSession(ctx, e.user.CurrentUser()); err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	return nil
}

// UnreadTotal returns the backend's unread count for the current user.
func (e *Engine) UnreadTotal(ctx context.Context) (int, error) {
	n, err := e.remote.UnreadCount(ctx, e.user.CurrentUser())
	if err != nil {
		return 0, fmt.Errorf("unread count: %w", err)
	}
	return n, nil
}

// SearchUsers finds users to start a chat with. Blank queries return nothing.
func (e *Engine) SearchUsers(ctx context.Context, query string) ([]chat.User, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	users, err := e.remote.SearchUsers(ctx, e.user.CurrentUser(), query)
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	for i := range users {
		if !users[i].IsOnline {
			users[i].IsOnline = e.tracker.IsOnline(users[i].Ref.Key())
		}
	}
	return users, nil
}

// Current returns the open chat and its epoch.
func (e *Engine) Current() (chat.UserRef, uint64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.peer, e.epoch, e.open
}

// Message returns a confirmed message of the open chat.
func (e *Engine) Message(id int64) (chat.Message, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.thread.Get(id)
}

// withThread runs fn on the open chat if epoch still matches, bumping the
// revision so head polls issued earlier are dropped.
func (e *Engine) withThread(epoch uint64, fn func(t *Thread) bool) bool {
	e.mu.Lock()
	if !e.open || e.epoch != epoch {
		e.mu.Unlock()
		return false
	}
	e.rev++
	changed := fn(e.thread)
	peer := e.peer
	count := e.thread.Len()
	confirmed := e.thread.Confirmed()
	e.mu.Unlock()

	if changed {
		e.publish(bus.MessagesUpdated, bus.ThreadChange{PeerKey: peer.Key(), Count: count})
		if e.cache != nil {
			if err := e.cache.SaveMessages(peer, confirmed); err != nil {
				e.logger.Warn("failed to cache messages", zap.Error(err), zap.String("peer", peer.Key()))
			}
		}
	}
	return true
}

// AddPending shows an optimistic message in the chat opened at epoch.
func (e *Engine) AddPending(epoch uint64, clientID string, m chat.Message) error {
	ok := e.withThread(epoch, func(t *Thread) bool {
		t.AddPending(clientID, m)
		return true
	})
	if !ok {
		return ErrStale
	}
	return nil
}

// ConfirmSend replaces the optimistic entry with the server record.
func (e *Engine) ConfirmSend(epoch uint64, clientID string, m chat.Message) {
	e.withThread(epoch, func(t *Thread) bool {
		t.Confirm(clientID, m)
		return true
	})
}

// FailSend removes the optimistic entry.
func (e *Engine) FailSend(epoch uint64, clientID string) {
	e.withThread(epoch, func(t *Thread) bool {
		_, ok := t.Fail(clientID)
		return ok
	})
}

// ApplyEdit records a confirmed edit. server, when non-nil, is the
// record echoed by the backend.
func (e *Engine) ApplyEdit(epoch uint64, id int64, text string, server *chat.Message) {
	e.withThread(epoch, func(t *Thread) bool {
		return t.Update(id, func(m *chat.Message) {
			m.Text = text
			m.IsEdited = true
			if server != nil && server.ID == id && server.Text != "" {
				m.Text = server.Text
			}
		})
	})
}

// ApplyUnsend records a confirmed unsend. The id stays tombstoned for the
// life of the engine.
func (e *Engine) ApplyUnsend(epoch uint64, id int64) {
	if !e.withThread(epoch, func(t *Thread) bool { return t.Tombstone(id) }) {
		e.mu.Lock()
		e.removed[id] = struct{}{}
		e.mu.Unlock()
	}
	if e.cache != nil {
		if err := e.cache.SaveTombstone(id); err != nil {
			e.logger.Warn("failed to persist unsend", zap.Error(err), zap.Int64("id", id))
		}
	}
}

func cloneConversations(cs []chat.Conversation) []chat.Conversation {
	if cs == nil {
		return nil
	}
	out := make([]chat.Conversation, len(cs))
	copy(out, cs)
	return out
}
