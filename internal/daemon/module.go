package daemon

import (
	"context"
	"errors"
	"path/filepath"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/matheus3301/campusmsg/internal/api"
	"github.com/matheus3301/campusmsg/internal/bus"
	"github.com/matheus3301/campusmsg/internal/chat"
	"github.com/matheus3301/campusmsg/internal/config"
	"github.com/matheus3301/campusmsg/internal/gate"
	"github.com/matheus3301/campusmsg/internal/lock"
	"github.com/matheus3301/campusmsg/internal/logging"
	"github.com/matheus3301/campusmsg/internal/mutation"
	"github.com/matheus3301/campusmsg/internal/poll"
	"github.com/matheus3301/campusmsg/internal/remote"
	"github.com/matheus3301/campusmsg/internal/session"
	"github.com/matheus3301/campusmsg/internal/status"
	"github.com/matheus3301/campusmsg/internal/store"
	chatsync "github.com/matheus3301/campusmsg/internal/sync"
)

// Params holds the resolved session configuration passed to the fx module.
type Params struct {
	SessionName string
	SocketPath  string // optional override for testing; empty = use default
	Dir         string // optional session directory override; empty = use default
	// Config is loaded from the session directory when nil.
	Config *config.Session
	// Logger replaces the file logger when set.
	Logger *zap.Logger
	Debug  bool
}

func (p Params) dir() string {
	if p.Dir != "" {
		return p.Dir
	}
	return session.Dir(p.SessionName)
}

func (p Params) socketPath() string {
	if p.SocketPath != "" {
		return p.SocketPath
	}
	return filepath.Join(p.dir(), "daemon.sock")
}

// Module returns the fx module for the daemon, composing all providers and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("daemon",
		fx.Supply(p),
		fx.Provide(
			provideConfig,
			provideUser,
			provideLogger,
			provideBus,
			provideStateMachine,
			provideHealth,
			provideLock,
			provideStore,
			provideRemote,
			gate.New,
			provideEngine,
			provideController,
			provideScheduler,
			newChatJobs,
			provideSessionService,
			provideChatService,
			provideMessageService,
			NewServer,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideConfig(p Params) (*config.Session, error) {
	cfg := p.Config
	if cfg == nil {
		var err error
		cfg, err = config.LoadSession(filepath.Join(p.dir(), "config.toml"), filepath.Join(p.dir(), ".env"))
		if err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func provideUser(cfg *config.Session) chat.CurrentUserProvider {
	return chat.StaticUser{Type: cfg.UserType, ID: cfg.UserID}
}

func provideLogger(p Params, user chat.CurrentUserProvider) (*zap.Logger, error) {
	if p.Logger != nil {
		return p.Logger.With(zap.String("session", p.SessionName), zap.String("user", user.CurrentUser().Key())), nil
	}
	return logging.New(filepath.Join(p.dir(), "logs", "campusd.log"), logging.Options{
		Session: p.SessionName,
		User:    user.CurrentUser().Key(),
		Debug:   p.Debug,
	})
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideStateMachine(b *bus.Bus) *status.Machine {
	return status.NewMachine(b)
}

func provideHealth(m *status.Machine, cfg *config.Session) *status.Health {
	return status.NewHealth(m, cfg.FailureThreshold)
}

func provideLock(p Params, user chat.CurrentUserProvider, logger *zap.Logger) (*lock.Lock, error) {
	logger.Info("acquiring session lock", zap.String("session", p.SessionName))
	l, err := lock.Acquire(p.dir(), user.CurrentUser().Key())
	if err != nil {
		return nil, err
	}
	logger.Info("session lock acquired")
	return l, nil
}

func provideStore(p Params, logger *zap.Logger) (*store.DB, error) {
	dbPath := filepath.Join(p.dir(), "cache.db")
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("store initialized", zap.String("path", dbPath))
	return db, nil
}

func provideRemote(cfg *config.Session) (*remote.Client, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	e := cfg.Endpoints
	return remote.NewClient(cfg.APIBaseURL,
		remote.WithTimeout(cfg.Timeout.Duration),
		remote.WithLocation(loc),
		remote.WithEndpoints(remote.Endpoints{
			Conversations: e.Conversations,
			ActiveUsers:   e.ActiveUsers,
			SearchUsers:   e.SearchUsers,
			Messages:      e.Messages,
			Send:          e.Send,
			Edit:          e.Edit,
			Unsend:        e.Unsend,
			MarkRead:      e.MarkRead,
			UpdateSession: e.UpdateSession,
			UnreadCount:   e.UnreadCount,
		}),
	)
}

func provideEngine(r *remote.Client, user chat.CurrentUserProvider, g *gate.Gate, b *bus.Bus, db *store.DB, cfg *config.Session, logger *zap.Logger) *chatsync.Engine {
	return chatsync.NewEngine(r, user, g, b, db, chatsync.Options{
		ConversationPageSize: cfg.PageSizes.Conversations,
		ActiveUsersPageSize:  cfg.PageSizes.ActiveUsers,
		MessagePageSize:      cfg.PageSizes.Messages,
		// Presence is never trusted beyond one active-users poll.
		PresenceTTL: cfg.Intervals.ActiveUsers.Duration,
	}, logger.Named("sync"))
}

func provideController(r *remote.Client, engine *chatsync.Engine, g *gate.Gate, user chat.CurrentUserProvider, b *bus.Bus, cfg *config.Session, logger *zap.Logger) *mutation.Controller {
	return mutation.NewController(r, engine, g, user, b, mutation.Options{
		EditWindow: cfg.EditWindow.Duration,
	}, logger.Named("mutation"))
}

func provideScheduler(g *gate.Gate, health *status.Health, cfg *config.Session, logger *zap.Logger) *poll.Scheduler {
	log := logger.Named("poll")
	return poll.New(g, poll.Options{
		Timeout: cfg.Timeout.Duration,
		Observer: func(job string, err error) {
			if errors.Is(err, chatsync.ErrStale) {
				return
			}
			if err != nil {
				log.Debug("poll failed", zap.String("job", job), zap.Error(err))
			}
			health.Observe(err)
		},
	}, log)
}

func provideSessionService(p Params, cfg *config.Session, user chat.CurrentUserProvider, health *status.Health, scheduler *poll.Scheduler, g *gate.Gate, engine *chatsync.Engine, db *store.DB, logger *zap.Logger) *api.SessionService {
	info := api.SessionInfo{Name: p.SessionName, User: user.CurrentUser().Key(), Backend: cfg.APIBaseURL}
	return api.NewSessionService(info, health, scheduler, g, engine, db, logger)
}

func provideChatService(p Params, engine *chatsync.Engine, b *bus.Bus, logger *zap.Logger) *api.ChatService {
	return api.NewChatService(engine, b, p.SessionName, logger)
}

func provideMessageService(engine *chatsync.Engine, controller *mutation.Controller, g *gate.Gate, db *store.DB, jobs *chatJobs, user chat.CurrentUserProvider, logger *zap.Logger) *api.MessageService {
	return api.NewMessageService(engine, controller, g, db, jobs, user, logger)
}

// warmStart seeds the engine from the display cache.
func warmStart(db *store.DB, engine *chatsync.Engine, cfg *config.Session, logger *zap.Logger) {
	convs, err := db.ListConversations(cfg.PageSizes.Conversations, 0)
	if err != nil {
		logger.Warn("failed to read cached conversations", zap.Error(err))
	} else {
		engine.Prime(convs)
	}
	ids, err := db.Tombstones()
	if err != nil {
		logger.Warn("failed to read unsent messages", zap.Error(err))
		return
	}
	engine.RestoreTombstones(ids)
	logger.Info("cache loaded", zap.Int("conversations", len(convs)), zap.Int("unsent", len(ids)))
}

// The lock comes first so a second daemon fails before binding the socket.
func registerLifecycle(lc fx.Lifecycle, lk *lock.Lock, srv *Server, db *store.DB, engine *chatsync.Engine, controller *mutation.Controller, scheduler *poll.Scheduler, jobs *chatJobs, machine *status.Machine, cfg *config.Session, r *remote.Client, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			warmStart(db, engine, cfg, logger)

			if err := jobs.registerBase(); err != nil {
				return err
			}
			controller.OnInteraction(func() { scheduler.Trigger(poll.JobHeartbeat) })

			_ = machine.Transition(status.Connecting)
			logger.Info("polling backend", zap.Stringer("remote", r))
			scheduler.Start(context.Background())

			go func() {
				if err := srv.Start(); err != nil {
					logger.Error("gRPC server error", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			_ = machine.Transition(status.Stopped)
			srv.Stop(ctx)
			scheduler.Stop()
			if err := db.Close(); err != nil {
				logger.Warn("error closing store", zap.Error(err))
			}
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("daemon stopped")
			return nil
		},
	})
}
