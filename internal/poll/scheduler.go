// Package poll runs named periodic jobs against the backend.
package poll

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/matheus3301/campusmsg/internal/gate"
)

// Job names used by the daemon.
const (
	JobConversations = "conversations"
	JobActiveUsers   = "activeUsers"
	JobMessages      = "messages"
	JobHeartbeat     = "heartbeat"
)

// DefaultTimeout bounds a single run.
const DefaultTimeout = 10 * time.Second

var (
	ErrDuplicateJob = errors.New("poll: job already registered")
	ErrInvalidJob   = errors.New("poll: job needs a name, a positive interval and a func")
	ErrStopped      = errors.New("poll: scheduler stopped")
)

// Job is a periodic task.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
	// Gated jobs are skipped while the gate is blocked.
	Gated bool
	// Immediate runs the job once as soon as it starts.
	Immediate bool
}

// Options configures a Scheduler.
type Options struct {
	Timeout time.Duration
	// Observer is told the outcome of every completed run.
	Observer func(job string, err error)
}

type job struct {
	Job
	cancel  context.CancelFunc
	done    chan struct{}
	trigger chan struct{}
	running atomic.Bool
	runs    atomic.Int64
}

// Scheduler runs each job on its own goroutine. A job never overlaps
// itself: ticks that arrive during a run are dropped.
type Scheduler struct {
	gate     *gate.Gate
	timeout  time.Duration
	observer func(string, error)
	logger   *zap.Logger

	mu      sync.Mutex
	jobs    map[string]*job
	ctx     context.Context
	cancel  context.CancelFunc
	group   *errgroup.Group
	started bool
	stopped bool
	paused  atomic.Bool
}

// New creates a scheduler. g may be nil when no job is gated.
func New(g *gate.Gate, opts Options, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Scheduler{
		gate:     g,
		timeout:  opts.Timeout,
		observer: opts.Observer,
		logger:   logger,
		jobs:     make(map[string]*job),
	}
}

// Start launches every registered job. Jobs added later start at once.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || s.stopped {
		return
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.group, s.ctx = errgroup.WithContext(s.ctx)
	s.started = true
	for _, j := range s.jobs {
		s.launch(j)
	}
}

// launch starts j's loop. Caller holds s.mu and the scheduler is started.
func (s *Scheduler) launch(j *job) {
	ctx, cancel := context.WithCancel(s.ctx)
	j.cancel = cancel
	s.group.Go(func() error {
		defer close(j.done)
		s.loop(ctx, j)
		return nil
	})
}

// Add registers a job.
func (s *Scheduler) Add(spec Job) error {
	if spec.Name == "" || spec.Interval <= 0 || spec.Run == nil {
		return ErrInvalidJob
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return ErrStopped
	}
	if _, ok := s.jobs[spec.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateJob, spec.Name)
	}
	j := &job{
		Job:     spec,
		done:    make(chan struct{}),
		trigger: make(chan struct{}, 1),
	}
	s.jobs[spec.Name] = j
	if s.started {
		s.launch(j)
	}
	s.logger.Debug("poll job added", zap.String("job", spec.Name), zap.Duration("interval", spec.Interval))
	return nil
}

// Remove unregisters a job and waits for its loop to exit. No run of the
// job starts after Remove returns. It must not be called from the job itself.
func (s *Scheduler) Remove(name string) bool {
	s.mu.Lock()
	j, ok := s.jobs[name]
	if ok {
		delete(s.jobs, name)
	}
	started := s.started
	s.mu.Unlock()
	if !ok {
		return false
	}
	if started && j.cancel != nil {
		j.cancel()
		<-j.done
	}
	s.logger.Debug("poll job removed", zap.String("job", name))
	return true
}

// Trigger asks a job to run as soon as it is idle. Repeated triggers
// before the run coalesce.
func (s *Scheduler) Trigger(name string) bool {
	s.mu.Lock()
	j, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return false
	}
	select {
	case j.trigger <- struct{}{}:
	default:
	}
	return true
}

// Pause skips every run until Resume.
func (s *Scheduler) Pause() {
	s.paused.Store(true)
}

// Resume re-enables runs.
func (s *Scheduler) Resume() {
	s.paused.Store(false)
}

// Paused reports whether runs are skipped.
func (s *Scheduler) Paused() bool {
	return s.paused.Load()
}

// Has reports whether a job is registered.
func (s *Scheduler) Has(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.jobs[name]
	return ok
}

// Jobs returns the registered job names, sorted.
func (s *Scheduler) Jobs() []string {
	s.mu.Lock()
	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	s.mu.Unlock()
	slices.Sort(names)
	return names
}

// Running reports whether a run of name is in progress.
func (s *Scheduler) Running(name string) bool {
	s.mu.Lock()
	j, ok := s.jobs[name]
	s.mu.Unlock()
	return ok && j.running.Load()
}

// Runs returns how many runs of name completed.
func (s *Scheduler) Runs(name string) int64 {
	s.mu.Lock()
	j, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return 0
	}
	return j.runs.Load()
}

// Stop cancels every job and waits for the loops to exit.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	cancel, group := s.cancel, s.group
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if group != nil {
		_ = group.Wait()
	}
}

func (s *Scheduler) loop(ctx context.Context, j *job) {
	if j.Immediate {
		s.tick(ctx, j)
	}
	ticker := time.NewTicker(j.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.tick(ctx, j)
		case <-j.trigger:
			s.tick(ctx, j)
		case <-ctx.Done():
			return
		}
	}
}

func (s *Scheduler) tick(ctx context.Context, j *job) {
	if ctx.Err() != nil || s.paused.Load() {
		return
	}
	if j.Gated && s.gate != nil && s.gate.Blocked() {
		s.logger.Debug("poll skipped while blocked", zap.String("job", j.Name))
		return
	}
	if !j.running.CompareAndSwap(false, true) {
		return
	}
	defer j.running.Store(false)

	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	start := time.Now()
	err := j.Run(runCtx)
	if ctx.Err() != nil {
		// Removed or stopped mid-run; the outcome no longer matters.
		return
	}
	j.runs.Add(1)
	if err != nil {
		s.logger.Debug("poll failed", zap.String("job", j.Name), zap.Duration("took", time.Since(start)), zap.Error(err))
	}
	if s.observer != nil {
		s.observer(j.Name, err)
	}
}
