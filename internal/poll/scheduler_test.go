package poll

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matheus3301/campusmsg/internal/gate"
)

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestJobRunsPeriodically(t *testing.T) {
	s := New(nil, Options{}, nil)
	var n atomic.Int64
	if err := s.Add(Job{Name: JobConversations, Interval: 10 * time.Millisecond, Run: func(context.Context) error {
		n.Add(1)
		return nil
	}}); err != nil {
		t.Fatal(err)
	}
	s.Start(context.Background())
	defer s.Stop()

	waitFor(t, func() bool { return n.Load() >= 3 }, "job did not run three times")
}

func TestAddValidation(t *testing.T) {
	s := New(nil, Options{}, nil)
	run := func(context.Context) error { return nil }
	if err := s.Add(Job{Name: "", Interval: time.Second, Run: run}); !errors.Is(err, ErrInvalidJob) {
		t.Errorf("no name = %v", err)
	}
	if err := s.Add(Job{Name: "x", Run: run}); !errors.Is(err, ErrInvalidJob) {
		t.Errorf("no interval = %v", err)
	}
	if err := s.Add(Job{Name: "x", Interval: time.Second, Run: run}); err != nil {
		t.Fatal(err)
	}
	if err := s.Add(Job{Name: "x", Interval: time.Second, Run: run}); !errors.Is(err, ErrDuplicateJob) {
		t.Errorf("duplicate = %v", err)
	}
	s.Stop()
	if err := s.Add(Job{Name: "y", Interval: time.Second, Run: run}); !errors.Is(err, ErrStopped) {
		t.Errorf("after stop = %v", err)
	}
}

func TestNoOverlap(t *testing.T) {
	s := New(nil, Options{}, nil)
	var active, maxActive, runs atomic.Int64
	_ = s.Add(Job{Name: JobMessages, Interval: 2 * time.Millisecond, Immediate: true, Run: func(context.Context) error {
		cur := active.Add(1)
		for {
			prev := maxActive.Load()
			if cur <= prev || maxActive.CompareAndSwap(prev, cur) {
				break
			}
		}
		time.Sleep(30 * time.Millisecond)
		active.Add(-1)
		runs.Add(1)
		return nil
	}})
	s.Start(context.Background())
	for i := 0; i < 10; i++ {
		s.Trigger(JobMessages)
	}
	waitFor(t, func() bool { return runs.Load() >= 3 }, "job stalled")
	s.Stop()

	if maxActive.Load() != 1 {
		t.Errorf("max concurrent runs = %d, want 1", maxActive.Load())
	}
}

func TestGatedJobSkippedWhileBlocked(t *testing.T) {
	g := gate.New()
	s := New(g, Options{}, nil)
	var gated, free atomic.Int64
	_ = s.Add(Job{Name: JobConversations, Interval: 5 * time.Millisecond, Gated: true, Run: func(context.Context) error {
		gated.Add(1)
		return nil
	}})
	_ = s.Add(Job{Name: JobHeartbeat, Interval: 5 * time.Millisecond, Run: func(context.Context) error {
		free.Add(1)
		return nil
	}})

	g.SetEditing(true)
	s.Start(context.Background())
	defer s.Stop()

	waitFor(t, func() bool { return free.Load() >= 3 }, "ungated job did not run")
	if n := gated.Load(); n != 0 {
		t.Errorf("gated job ran %d times while editing", n)
	}

	g.SetEditing(false)
	waitFor(t, func() bool { return gated.Load() >= 1 }, "gated job did not resume")
}

func TestRemoveStopsJob(t *testing.T) {
	s := New(nil, Options{}, nil)
	var n atomic.Int64
	_ = s.Add(Job{Name: JobMessages, Interval: 2 * time.Millisecond, Run: func(context.Context) error {
		n.Add(1)
		return nil
	}})
	s.Start(context.Background())
	defer s.Stop()

	waitFor(t, func() bool { return n.Load() >= 2 }, "job did not run")
	if !s.Remove(JobMessages) {
		t.Fatal("Remove returned false")
	}
	after := n.Load()
	time.Sleep(30 * time.Millisecond)
	if n.Load() != after {
		t.Errorf("job ran %d times after Remove", n.Load()-after)
	}
	if s.Has(JobMessages) || s.Remove(JobMessages) {
		t.Error("job still registered")
	}

	// Re-adding after removal works, as when a chat is reopened.
	if err := s.Add(Job{Name: JobMessages, Interval: time.Hour, Immediate: true, Run: func(context.Context) error {
		n.Add(100)
		return nil
	}}); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return n.Load() >= after+100 }, "re-added job did not run")
}

func TestTimeoutFreesJob(t *testing.T) {
	var mu sync.Mutex
	var outcomes []error
	s := New(nil, Options{
		Timeout: 20 * time.Millisecond,
		Observer: func(job string, err error) {
			mu.Lock()
			outcomes = append(outcomes, err)
			mu.Unlock()
		},
	}, nil)
	_ = s.Add(Job{Name: JobConversations, Interval: 5 * time.Millisecond, Immediate: true, Run: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}})
	s.Start(context.Background())
	defer s.Stop()

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(outcomes) >= 2
	}, "stalled run was not cut off by the timeout")
	mu.Lock()
	defer mu.Unlock()
	if !errors.Is(outcomes[0], context.DeadlineExceeded) {
		t.Errorf("outcome = %v, want deadline exceeded", outcomes[0])
	}
}

func TestTriggerRunsImmediately(t *testing.T) {
	s := New(nil, Options{}, nil)
	ran := make(chan struct{}, 1)
	_ = s.Add(Job{Name: JobHeartbeat, Interval: time.Hour, Run: func(context.Context) error {
		select {
		case ran <- struct{}{}:
		default:
		}
		return nil
	}})
	s.Start(context.Background())
	defer s.Stop()

	if !s.Trigger(JobHeartbeat) {
		t.Fatal("Trigger returned false")
	}
	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("triggered job did not run")
	}
	if s.Trigger("unknown") {
		t.Error("Trigger on unknown job returned true")
	}
}

func TestPauseResume(t *testing.T) {
	s := New(nil, Options{}, nil)
	var n atomic.Int64
	_ = s.Add(Job{Name: JobActiveUsers, Interval: 3 * time.Millisecond, Run: func(context.Context) error {
		n.Add(1)
		return nil
	}})
	s.Pause()
	s.Start(context.Background())
	defer s.Stop()

	time.Sleep(30 * time.Millisecond)
	if n.Load() != 0 {
		t.Errorf("ran %d times while paused", n.Load())
	}
	s.Resume()
	waitFor(t, func() bool { return n.Load() > 0 }, "job did not resume")
}

func TestStopIsIdempotent(t *testing.T) {
	s := New(nil, Options{}, nil)
	_ = s.Add(Job{Name: "a", Interval: time.Millisecond, Run: func(context.Context) error { return nil }})
	s.Start(context.Background())
	s.Stop()
	s.Stop()
	if got := s.Jobs(); len(got) != 1 || got[0] != "a" {
		t.Errorf("Jobs = %v", got)
	}
}
