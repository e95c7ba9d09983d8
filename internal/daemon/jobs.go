package daemon

import (
	"context"

	"go.uber.org/zap"

	"github.com/matheus3301/campusmsg/internal/chat"
	"github.com/matheus3301/campusmsg/internal/config"
	"github.com/matheus3301/campusmsg/internal/poll"
	chatsync "github.com/matheus3301/campusmsg/internal/sync"
)

// chatJobs owns the scheduler's job set: the always-on list pollers and
// heartbeat, plus the open chat's message poller.
type chatJobs struct {
	scheduler *poll.Scheduler
	engine    *chatsync.Engine
	cfg       *config.Session
	logger    *zap.Logger
}

func newChatJobs(scheduler *poll.Scheduler, engine *chatsync.Engine, cfg *config.Session, logger *zap.Logger) *chatJobs {
	return &chatJobs{scheduler: scheduler, engine: engine, cfg: cfg, logger: logger}
}

func (j *chatJobs) registerBase() error {
	iv := j.cfg.Intervals
	base := []poll.Job{
		{
			Name:      poll.JobConversations,
			Interval:  iv.Conversations.Duration,
			Gated:     true,
			Immediate: true,
			Run: func(ctx context.Context) error {
				return j.engine.RefreshConversations(ctx, true)
			},
		},
		{
			Name:      poll.JobActiveUsers,
			Interval:  iv.ActiveUsers.Duration,
			Gated:     true,
			Immediate: true,
			Run: func(ctx context.Context) error {
				return j.engine.RefreshActiveUsers(ctx, true)
			},
		},
		{
			Name:      poll.JobHeartbeat,
			Interval:  iv.Heartbeat.Duration,
			Immediate: true,
			Run:       j.engine.Heartbeat,
		},
	}
	for _, job := range base {
		if err := j.scheduler.Add(job); err != nil {
			return err
		}
	}
	return nil
}

// ChatOpened (re)starts message polling for peer and sends a heartbeat.
// OpenChat already fetched the first page, so the poller waits a full
// interval.
func (j *chatJobs) ChatOpened(peer chat.UserRef) {
	j.scheduler.Remove(poll.JobMessages)
	err := j.scheduler.Add(poll.Job{
		Name:     poll.JobMessages,
		Interval: j.cfg.Intervals.Messages.Duration,
		Gated:    true,
		Run: func(ctx context.Context) error {
			return j.engine.RefreshMessages(ctx, true)
		},
	})
	if err != nil {
		j.logger.Warn("failed to start message polling", zap.Error(err), zap.String("peer", peer.Key()))
	}
	j.scheduler.Trigger(poll.JobHeartbeat)
}

// ChatClosed stops message polling. No message poll runs after it returns.
func (j *chatJobs) ChatClosed() {
	j.scheduler.Remove(poll.JobMessages)
}
