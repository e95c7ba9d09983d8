// Package mutation implements optimistic send and time-limited
// edit/unsend of the current user's messages.
package mutation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/matheus3301/campusmsg/internal/bus"
	"github.com/matheus3301/campusmsg/internal/chat"
	"github.com/matheus3301/campusmsg/internal/gate"
	"github.com/matheus3301/campusmsg/internal/remote"
)

// DefaultEditWindow is how long after sending a message may be changed.
const DefaultEditWindow = 3 * time.Minute

var (
	ErrEmptyText        = errors.New("message text is empty")
	ErrInvalidType      = errors.New("unknown message type")
	ErrMissingFile      = errors.New("attachment URL is required")
	ErrNoOpenChat       = errors.New("no chat is open")
	ErrNotFound         = errors.New("message not found")
	ErrNotOwner         = errors.New("only your own messages can be changed")
	ErrRemoved          = errors.New("message was already removed")
	ErrNotEditable      = errors.New("only text messages can be edited")
	ErrWindowExpired    = errors.New("message can no longer be changed")
	ErrMutationInFlight = gate.ErrMutationInFlight
)

// ErrUnchanged accompanies the current message when an edit would not
// change its text. Nothing is sent to the backend.
var ErrUnchanged = errors.New("message text is unchanged")

// Failure is a send, edit or unsend the backend did not accept. Message
// is suitable for display.
type Failure struct {
	Op      string
	Message string
	Err     error
}

func (f *Failure) Error() string {
	return f.Message
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Remote is the subset of the backend API used for mutations.
type Remote interface {
	SendMessage(ctx context.Context, r remote.SendRequest) (chat.Message, error)
	EditMessage(ctx context.Context, me chat.UserRef, id int64, text string) (*chat.Message, error)
	UnsendMessage(ctx context.Context, me chat.UserRef, id int64) (*chat.Message, error)
}

// Timeline is the open chat the controller writes to. Every write names
// the chat epoch it was issued for and is dropped if the chat changed.
type Timeline interface {
	Current() (peer chat.UserRef, epoch uint64, open bool)
	Message(id int64) (chat.Message, bool)
	AddPending(epoch uint64, clientID string, m chat.Message) error
	ConfirmSend(epoch uint64, clientID string, m chat.Message)
	FailSend(epoch uint64, clientID string)
	ApplyEdit(epoch uint64, id int64, text string, server *chat.Message)
	ApplyUnsend(epoch uint64, id int64)
}

// Options configures a Controller.
type Options struct {
	EditWindow time.Duration
	Now        func() time.Time
	NewID      func() string
}

// Controller runs at most one mutation at a time through the shared gate.
type Controller struct {
	remote   Remote
	timeline Timeline
	gate     *gate.Gate
	user     chat.CurrentUserProvider
	bus      *bus.Bus
	logger   *zap.Logger

	window time.Duration
	now    func() time.Time
	newID  func() string

	mu            sync.Mutex
	drafts        map[string]string
	onInteraction func()
}

// NewController creates a controller. b and logger may be nil.
func NewController(r Remote, tl Timeline, g *gate.Gate, user chat.CurrentUserProvider, b *bus.Bus, opts Options, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.EditWindow <= 0 {
		opts.EditWindow = DefaultEditWindow
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	return &Controller{
		remote:   r,
		timeline: tl,
		gate:     g,
		user:     user,
		bus:      b,
		logger:   logger,
		window:   opts.EditWindow,
		now:      opts.Now,
		newID:    opts.NewID,
		drafts:   make(map[string]string),
	}
}

// OnInteraction registers fn to run after every accepted user action.
func (c *Controller) OnInteraction(fn func()) {
	c.mu.Lock()
	c.onInteraction = fn
	c.mu.Unlock()
}

func (c *Controller) interacted() {
	c.mu.Lock()
	fn := c.onInteraction
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// SetDraft stores the composer text for peer.
func (c *Controller) SetDraft(peer chat.UserRef, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if text == "" {
		delete(c.drafts, peer.Key())
		return
	}
	c.drafts[peer.Key()] = text
}

// Draft returns the composer text for peer.
func (c *Controller) Draft(peer chat.UserRef) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.drafts[peer.Key()]
}

// SendInput is a message typed or attached by the user.
type SendInput struct {
	Text     string
	Type     chat.MessageType
	FileURL  string
	FileName string
}

// SendResult identifies a confirmed send.
type SendResult struct {
	ClientID string
	Message  chat.Message
}

// Send shows the message optimistically, clears the draft and posts it.
// On failure the optimistic row is removed and the draft restored.
func (c *Controller) Send(ctx context.Context, in SendInput) (SendResult, error) {
	text := strings.TrimSpace(in.Text)
	if in.Type == "" {
		in.Type = chat.TypeText
	}
	switch {
	case !in.Type.Valid():
		return SendResult{}, ErrInvalidType
	case in.Type == chat.TypeText && text == "":
		return SendResult{}, ErrEmptyText
	case in.Type != chat.TypeText && in.FileURL == "":
		return SendResult{}, ErrMissingFile
	}

	peer, epoch, open := c.timeline.Current()
	if !open {
		return SendResult{}, ErrNoOpenChat
	}
	release, err := c.gate.Acquire("send")
	if err != nil {
		return SendResult{}, err
	}
	defer release()

	me := c.user.CurrentUser()
	clientID := c.newID()
	pending := chat.Message{
		Sender:    me,
		Receiver:  peer,
		Text:      text,
		Type:      in.Type,
		FileURL:   in.FileURL,
		FileName:  in.FileName,
		Timestamp: c.now(),
	}
	if err := c.timeline.AddPending(epoch, clientID, pending); err != nil {
		return SendResult{}, ErrNoOpenChat
	}
	c.SetDraft(peer, "")

	m, err := c.remote.SendMessage(ctx, remote.SendRequest{
		Sender:   me,
		Receiver: peer,
		Text:     text,
		Type:     in.Type,
		FileURL:  in.FileURL,
		FileName: in.FileName,
	})
	if err != nil {
		c.timeline.FailSend(epoch, clientID)
		c.SetDraft(peer, in.Text)
		f := &Failure{Op: "send", Message: remote.UserMessage(err, "Failed to send message"), Err: err}
		if c.bus != nil {
			c.bus.Emit(bus.SendFailed, bus.SendFailure{
				PeerKey:  peer.Key(),
				ClientID: clientID,
				Draft:    in.Text,
				Reason:   f.Message,
			})
		}
		c.logger.Warn("send failed", zap.Error(err), zap.String("peer", peer.Key()))
		return SendResult{}, f
	}

	c.timeline.ConfirmSend(epoch, clientID, m)
	c.logger.Debug("message sent", zap.Int64("id", m.ID), zap.String("peer", peer.Key()))
	c.interacted()
	return SendResult{ClientID: clientID, Message: m}, nil
}

// Eligibility is what the action menu may offer for a message.
type Eligibility struct {
	CanEdit   bool
	CanUnsend bool
	// Remaining is the time left in the window at evaluation time.
	Remaining time.Duration
}

// Eligibility evaluates the action menu for message id at the current time.
func (c *Controller) Eligibility(id int64) (Eligibility, error) {
	m, err := c.lookup(id)
	if err != nil {
		return Eligibility{}, err
	}
	if err := c.checkOwnership(m); err != nil {
		return Eligibility{}, nil
	}
	age := c.now().Sub(m.Timestamp)
	if age > c.window {
		return Eligibility{}, nil
	}
	remaining := c.window - age
	if remaining > c.window {
		remaining = c.window
	}
	return Eligibility{
		CanEdit:   m.Type == chat.TypeText,
		CanUnsend: true,
		Remaining: remaining,
	}, nil
}

func (c *Controller) lookup(id int64) (chat.Message, error) {
	if _, _, open := c.timeline.Current(); !open {
		return chat.Message{}, ErrNoOpenChat
	}
	m, ok := c.timeline.Message(id)
	if !ok {
		return chat.Message{}, ErrNotFound
	}
	return m, nil
}

func (c *Controller) checkOwnership(m chat.Message) error {
	if !m.FromUser(c.user.CurrentUser()) {
		return ErrNotOwner
	}
	if m.Removed() {
		return ErrRemoved
	}
	return nil
}

// validate re-checks eligibility at submit time.
func (c *Controller) validate(m chat.Message) error {
	if err := c.checkOwnership(m); err != nil {
		return err
	}
	if c.now().Sub(m.Timestamp) > c.window {
		return ErrWindowExpired
	}
	return nil
}

// Edit replaces the text of message id. The local copy changes only
// after the backend confirms.
func (c *Controller) Edit(ctx context.Context, id int64, newText string) (chat.Message, error) {
	text := strings.TrimSpace(newText)
	if text == "" {
		return chat.Message{}, ErrEmptyText
	}
	m, err := c.lookup(id)
	if err != nil {
		return chat.Message{}, err
	}
	if err := c.validate(m); err != nil {
		return chat.Message{}, err
	}
	if m.Type != chat.TypeText {
		return chat.Message{}, ErrNotEditable
	}
	if text == m.Text {
		c.gate.SetEditing(false)
		return m, ErrUnchanged
	}

	_, epoch, _ := c.timeline.Current()
	release, err := c.gate.Acquire("edit")
	if err != nil {
		return chat.Message{}, err
	}
	defer release()

	server, err := c.remote.EditMessage(ctx, c.user.CurrentUser(), id, text)
	if err != nil {
		c.logger.Warn("edit failed", zap.Error(err), zap.Int64("id", id))
		return chat.Message{}, &Failure{Op: "edit", Message: remote.UserMessage(err, "Failed to edit message"), Err: err}
	}

	c.timeline.ApplyEdit(epoch, id, text, server)
	c.gate.SetEditing(false)
	c.interacted()
	if updated, ok := c.timeline.Message(id); ok {
		return updated, nil
	}
	m.Text = text
	m.IsEdited = true
	return m, nil
}

// Unsend retracts message id. Its text becomes chat.RemovedText once the
// backend confirms.
func (c *Controller) Unsend(ctx context.Context, id int64) (chat.Message, error) {
	m, err := c.lookup(id)
	if err != nil {
		return chat.Message{}, err
	}
	if err := c.validate(m); err != nil {
		return chat.Message{}, err
	}

	_, epoch, _ := c.timeline.Current()
	release, err := c.gate.Acquire("unsend")
	if err != nil {
		return chat.Message{}, err
	}
	defer release()

	if _, err := c.remote.UnsendMessage(ctx, c.user.CurrentUser(), id); err != nil {
		c.logger.Warn("unsend failed", zap.Error(err), zap.Int64("id", id))
		return chat.Message{}, &Failure{Op: "unsend", Message: remote.UserMessage(err, "Failed to unsend message"), Err: err}
	}

	c.timeline.ApplyUnsend(epoch, id)
	c.gate.SetMenuOpen(false)
	c.interacted()
	if updated, ok := c.timeline.Message(id); ok {
		return updated, nil
	}
	m.Text = chat.RemovedText
	return m, nil
}
