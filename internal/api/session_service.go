package api

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/protobuf/types/known/emptypb"

	campusv1 "github.com/matheus3301/campusmsg/internal/api/campusv1"
	"github.com/matheus3301/campusmsg/internal/gate"
	"github.com/matheus3301/campusmsg/internal/poll"
	"github.com/matheus3301/campusmsg/internal/status"
	"github.com/matheus3301/campusmsg/internal/store"
	chatsync "github.com/matheus3301/campusmsg/internal/sync"
)

// SessionInfo identifies the daemon's session.
type SessionInfo struct {
	Name    string
	User    string
	Backend string
}

var _ campusv1.SessionServiceServer = (*SessionService)(nil)

// SessionService implements campusv1.SessionServiceServer.
type SessionService struct {
	info      SessionInfo
	startedAt time.Time
	health    *status.Health
	scheduler *poll.Scheduler
	gate      *gate.Gate
	engine    *chatsync.Engine
	db        *store.DB
	logger    *zap.Logger
}

// NewSessionService creates a new session service. db may be nil.
func NewSessionService(info SessionInfo, health *status.Health, scheduler *poll.Scheduler, g *gate.Gate, engine *chatsync.Engine, db *store.DB, logger *zap.Logger) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{
		info:      info,
		startedAt: time.Now(),
		health:    health,
		scheduler: scheduler,
		gate:      g,
		engine:    engine,
		db:        db,
		logger:    logger,
	}
}

func (s *SessionService) GetSessionStatus(_ context.Context, _ *emptypb.Empty) (*campusv1.SessionStatus, error) {
	snap := s.health.Snapshot()
	flags := s.gate.Snapshot()
	resp := &campusv1.SessionStatus{
		Session:             s.info.Name,
		Status:              string(snap.State),
		User:                s.info.User,
		Backend:             s.info.Backend,
		UptimeMs:            time.Since(s.startedAt).Milliseconds(),
		ConsecutiveFailures: int32(snap.Failures),
		LastError:           snap.LastError,
		Jobs:                s.scheduler.Jobs(),
		Paused:              s.scheduler.Paused(),
		Gate:                &campusv1.GateState{Editing: flags.Editing, MenuOpen: flags.MenuOpen, InFlight: flags.InFlight},
	}
	if !snap.LastSuccess.IsZero() {
		resp.LastSuccessUnixMs = snap.LastSuccess.UnixMilli()
	}
	if peer, _, open := s.engine.Current(); open {
		resp.OpenChat = peer.Key()
	}
	if s.db != nil {
		if n, err := s.db.ConversationCount(); err == nil {
			resp.CachedConversations = int64(n)
		}
		s.fillLastChat(resp)
	}
	return resp, nil
}

// fillLastChat reports the most recently opened chat from the cache.
func (s *SessionService) fillLastChat(resp *campusv1.SessionStatus) {
	key, err := s.db.GetState(store.StateLastChat)
	if err != nil || key == "" {
		return
	}
	resp.LastChat = key
	if c, err := s.db.GetConversation(key); err == nil && c != nil {
		resp.LastChatName = c.Name
	}
}

func (s *SessionService) Touch(_ context.Context, _ *emptypb.Empty) (*emptypb.Empty, error) {
	s.scheduler.Trigger(poll.JobHeartbeat)
	return &emptypb.Empty{}, nil
}

func (s *SessionService) SetForeground(_ context.Context, req *campusv1.SetForegroundRequest) (*emptypb.Empty, error) {
	if req.Foreground {
		s.scheduler.Resume()
		// Catch up at once instead of waiting a full interval.
		for _, name := range s.scheduler.Jobs() {
			s.scheduler.Trigger(name)
		}
	} else {
		s.scheduler.Pause()
	}
	s.logger.Debug("foreground changed", zap.Bool("foreground", req.Foreground))
	return &emptypb.Empty{}, nil
}
