package api

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"

	campusv1 "github.com/matheus3301/campusmsg/internal/api/campusv1"
	"github.com/matheus3301/campusmsg/internal/bus"
	"github.com/matheus3301/campusmsg/internal/presence"
	chatsync "github.com/matheus3301/campusmsg/internal/sync"
)

var _ campusv1.ChatServiceServer = (*ChatService)(nil)

// ChatService implements campusv1.ChatServiceServer over the engine's
// conversation and active-users lists.
type ChatService struct {
	engine      *chatsync.Engine
	bus         *bus.Bus
	sessionName string
	logger      *zap.Logger
}

// NewChatService creates a new chat service.
func NewChatService(engine *chatsync.Engine, b *bus.Bus, sessionName string, logger *zap.Logger) *ChatService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatService{engine: engine, bus: b, sessionName: sessionName, logger: logger}
}

// ListConversations returns the current list without a fetch; the poller
// keeps it fresh.
func (s *ChatService) ListConversations(_ context.Context, _ *emptypb.Empty) (*campusv1.ListConversationsResponse, error) {
	return listToProto(s.engine.Conversations()), nil
}

func (s *ChatService) LoadMoreConversations(ctx context.Context, _ *emptypb.Empty) (*campusv1.ListConversationsResponse, error) {
	if err := s.engine.LoadMoreConversations(ctx); err != nil {
		return nil, rpcError(err)
	}
	return listToProto(s.engine.Conversations()), nil
}

func (s *ChatService) RefreshConversations(ctx context.Context, _ *emptypb.Empty) (*campusv1.ListConversationsResponse, error) {
	if err := s.engine.RefreshConversations(ctx, false); err != nil {
		return nil, rpcError(err)
	}
	return listToProto(s.engine.Conversations()), nil
}

func (s *ChatService) ListActiveUsers(_ context.Context, _ *emptypb.Empty) (*campusv1.ListConversationsResponse, error) {
	return listToProto(s.engine.ActiveUsers()), nil
}

func (s *ChatService) LoadMoreActiveUsers(ctx context.Context, _ *emptypb.Empty) (*campusv1.ListConversationsResponse, error) {
	if err := s.engine.LoadMoreActiveUsers(ctx); err != nil {
		return nil, rpcError(err)
	}
	return listToProto(s.engine.ActiveUsers()), nil
}

func (s *ChatService) RefreshActiveUsers(ctx context.Context, _ *emptypb.Empty) (*campusv1.ListConversationsResponse, error) {
	if err := s.engine.RefreshActiveUsers(ctx, false); err != nil {
		return nil, rpcError(err)
	}
	return listToProto(s.engine.ActiveUsers()), nil
}

func (s *ChatService) SearchUsers(ctx context.Context, req *campusv1.SearchUsersRequest) (*campusv1.SearchUsersResponse, error) {
	users, err := s.engine.SearchUsers(ctx, req.Query)
	if err != nil {
		return nil, rpcError(err)
	}
	out := make([]*campusv1.User, 0, len(users))
	for _, u := range users {
		out = append(out, userToProto(u))
	}
	return &campusv1.SearchUsersResponse{Users: out}, nil
}

func (s *ChatService) UnreadTotal(ctx context.Context, _ *emptypb.Empty) (*campusv1.UnreadTotalResponse, error) {
	n, err := s.engine.UnreadTotal(ctx)
	if err != nil {
		return nil, rpcError(err)
	}
	return &campusv1.UnreadTotalResponse{Count: int64(n), Badge: presence.Badge(n)}, nil
}

func (s *ChatService) WatchUpdates(req *campusv1.WatchRequest, stream grpc.ServerStreamingServer[campusv1.Update]) error {
	ch, unsub := s.bus.Subscribe("", 256)
	defer unsub()

	for {
		select {
		case evt := <-ch:
			if !wanted(req.Prefixes, evt.Kind) {
				continue
			}
			update, err := updateToProto(s.sessionName, evt)
			if err != nil {
				s.logger.Warn("dropping update", zap.String("kind", evt.Kind), zap.Error(err))
				continue
			}
			if err := stream.Send(update); err != nil {
				return err
			}
		case <-stream.Context().Done():
			return nil
		}
	}
}

func wanted(prefixes []string, kind string) bool {
	if len(prefixes) == 0 {
		return true
	}
	for _, p := range prefixes {
		if strings.HasPrefix(kind, p) {
			return true
		}
	}
	return false
}
