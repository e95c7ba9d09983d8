package api

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"

	campusv1 "github.com/matheus3301/campusmsg/internal/api/campusv1"
	"github.com/matheus3301/campusmsg/internal/chat"
	"github.com/matheus3301/campusmsg/internal/gate"
	"github.com/matheus3301/campusmsg/internal/mutation"
	"github.com/matheus3301/campusmsg/internal/store"
	chatsync "github.com/matheus3301/campusmsg/internal/sync"
)

// ChatJobs starts and stops the open chat's polling.
type ChatJobs interface {
	ChatOpened(peer chat.UserRef)
	ChatClosed()
}

var _ campusv1.MessageServiceServer = (*MessageService)(nil)

// MessageService implements campusv1.MessageServiceServer over the open
// chat and the mutation controller.
type MessageService struct {
	engine     *chatsync.Engine
	controller *mutation.Controller
	gate       *gate.Gate
	db         *store.DB
	jobs       ChatJobs
	user       chat.CurrentUserProvider
	logger     *zap.Logger
}

// NewMessageService creates a new message service. db and jobs may be nil.
func NewMessageService(engine *chatsync.Engine, controller *mutation.Controller, g *gate.Gate, db *store.DB, jobs ChatJobs, user chat.CurrentUserProvider, logger *zap.Logger) *MessageService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MessageService{
		engine:     engine,
		controller: controller,
		gate:       g,
		db:         db,
		jobs:       jobs,
		user:       user,
		logger:     logger,
	}
}

func (s *MessageService) thread() *campusv1.ThreadResponse {
	v := s.engine.Thread()
	draft := ""
	if v.Open {
		draft = s.controller.Draft(v.Peer)
	}
	return threadToProto(v, s.user.CurrentUser(), draft)
}

// OpenChat mounts the chat with req.PeerKey. The chat stays open and
// polled even when the first fetch fails.
func (s *MessageService) OpenChat(ctx context.Context, req *campusv1.OpenChatRequest) (*campusv1.ThreadResponse, error) {
	peer, err := chat.ParseKey(req.PeerKey)
	if err != nil {
		return nil, rpcError(err)
	}
	// A new chat starts with no menu or edit carried over.
	s.gate.SetEditing(false)
	s.gate.SetMenuOpen(false)
	err = s.engine.OpenChat(ctx, peer)
	if s.jobs != nil {
		s.jobs.ChatOpened(peer)
	}
	if db := s.db; db != nil {
		if serr := db.SetState(store.StateLastChat, peer.Key()); serr != nil {
			s.logger.Warn("failed to record last chat", zap.Error(serr))
		}
	}
	if err != nil {
		return nil, rpcError(err)
	}
	return s.thread(), nil
}

func (s *MessageService) CloseChat(_ context.Context, _ *emptypb.Empty) (*emptypb.Empty, error) {
	if s.jobs != nil {
		s.jobs.ChatClosed()
	}
	s.engine.CloseChat()
	s.gate.SetEditing(false)
	s.gate.SetMenuOpen(false)
	return &emptypb.Empty{}, nil
}

func (s *MessageService) ListMessages(_ context.Context, _ *emptypb.Empty) (*campusv1.ThreadResponse, error) {
	return s.thread(), nil
}

func (s *MessageService) LoadOlderMessages(ctx context.Context, _ *emptypb.Empty) (*campusv1.ThreadResponse, error) {
	if err := s.engine.LoadOlderMessages(ctx); err != nil {
		return nil, rpcError(err)
	}
	return s.thread(), nil
}

func (s *MessageService) Send(ctx context.Context, req *campusv1.SendRequest) (*campusv1.SendResponse, error) {
	res, err := s.controller.Send(ctx, mutation.SendInput{
		Text:     req.Text,
		Type:     chat.MessageType(req.Type),
		FileURL:  req.FileURL,
		FileName: req.FileName,
	})
	if err != nil {
		return nil, rpcError(err)
	}
	m := messageToProto(res.Message, s.user.CurrentUser())
	m.ClientID = res.ClientID
	return &campusv1.SendResponse{ClientID: res.ClientID, Message: m}, nil
}

func (s *MessageService) Edit(ctx context.Context, req *campusv1.EditRequest) (*campusv1.MessageResponse, error) {
	m, err := s.controller.Edit(ctx, req.MessageID, req.Text)
	if errors.Is(err, mutation.ErrUnchanged) {
		return &campusv1.MessageResponse{Message: messageToProto(m, s.user.CurrentUser()), Unchanged: true}, nil
	}
	if err != nil {
		return nil, rpcError(err)
	}
	return &campusv1.MessageResponse{Message: messageToProto(m, s.user.CurrentUser())}, nil
}

func (s *MessageService) Unsend(ctx context.Context, req *campusv1.MessageRequest) (*campusv1.MessageResponse, error) {
	m, err := s.controller.Unsend(ctx, req.MessageID)
	if err != nil {
		return nil, rpcError(err)
	}
	return &campusv1.MessageResponse{Message: messageToProto(m, s.user.CurrentUser())}, nil
}

func (s *MessageService) MarkRead(ctx context.Context, req *campusv1.MarkReadRequest) (*emptypb.Empty, error) {
	var peer chat.UserRef
	if req.PeerKey != "" {
		p, err := chat.ParseKey(req.PeerKey)
		if err != nil {
			return nil, rpcError(err)
		}
		peer = p
	} else {
		p, _, open := s.engine.Current()
		if !open {
			return nil, rpcError(chatsync.ErrNoOpenChat)
		}
		peer = p
	}
	if err := s.engine.MarkRead(ctx, peer); err != nil {
		return nil, rpcError(err)
	}
	return &emptypb.Empty{}, nil
}

func (s *MessageService) Eligibility(_ context.Context, req *campusv1.MessageRequest) (*campusv1.EligibilityResponse, error) {
	e, err := s.controller.Eligibility(req.MessageID)
	if err != nil {
		return nil, rpcError(err)
	}
	return &campusv1.EligibilityResponse{
		CanEdit:     e.CanEdit,
		CanUnsend:   e.CanUnsend,
		RemainingMs: e.Remaining.Milliseconds(),
	}, nil
}

func (s *MessageService) SetInteraction(_ context.Context, req *campusv1.InteractionRequest) (*campusv1.GateState, error) {
	if req.Editing != nil {
		s.gate.SetEditing(*req.Editing)
	}
	if req.MenuOpen != nil {
		s.gate.SetMenuOpen(*req.MenuOpen)
	}
	f := s.gate.Snapshot()
	return &campusv1.GateState{Editing: f.Editing, MenuOpen: f.MenuOpen, InFlight: f.InFlight}, nil
}

func (s *MessageService) SetDraft(_ context.Context, req *campusv1.DraftRequest) (*emptypb.Empty, error) {
	peer, _, open := s.engine.Current()
	if !open {
		return nil, rpcError(chatsync.ErrNoOpenChat)
	}
	s.controller.SetDraft(peer, req.Text)
	return &emptypb.Empty{}, nil
}

func (s *MessageService) SearchMessages(_ context.Context, req *campusv1.SearchMessagesRequest) (*campusv1.SearchMessagesResponse, error) {
	if s.db == nil {
		return nil, grpcstatus.Errorf(codes.Unavailable, "message cache is disabled")
	}
	start := time.Now()
	results, err := s.db.SearchMessages(req.Query, req.PeerKey, int(req.Limit))
	if err != nil {
		return nil, grpcstatus.Errorf(codes.Internal, "search messages: %v", err)
	}
	me := s.user.CurrentUser()
	out := make([]*campusv1.SearchResult, 0, len(results))
	for _, r := range results {
		out = append(out, searchResultToProto(r, me))
	}
	s.logger.Debug("message search", zap.Int("results", len(out)), zap.Duration("took", time.Since(start)))
	return &campusv1.SearchMessagesResponse{Results: out}, nil
}
