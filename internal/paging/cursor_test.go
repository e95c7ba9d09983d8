package paging

import (
	"errors"
	"sync"
	"testing"
)

func TestCursorSequence(t *testing.T) {
	c := NewCursor()

	page, err := c.BeginNext()
	if err != nil || page != 1 {
		t.Fatalf("BeginNext = %d, %v; want 1, nil", page, err)
	}
	c.Finish(page, true, nil)

	page, err = c.BeginNext()
	if err != nil || page != 2 {
		t.Fatalf("BeginNext = %d, %v; want 2, nil", page, err)
	}
	c.Finish(page, false, nil)

	if _, err := c.BeginNext(); !errors.Is(err, ErrExhausted) {
		t.Fatalf("BeginNext after last page = %v, want ErrExhausted", err)
	}
	if c.Page() != 2 || c.HasMore() {
		t.Errorf("state = page %d hasMore %v", c.Page(), c.HasMore())
	}
}

func TestCursorRejectsConcurrentLoad(t *testing.T) {
	c := NewCursor()
	c.ObserveFirst(true)

	if _, err := c.BeginNext(); err != nil {
		t.Fatal(err)
	}
	if !c.Loading() {
		t.Fatal("loading flag not set")
	}
	if _, err := c.BeginNext(); !errors.Is(err, ErrBusy) {
		t.Fatalf("second BeginNext = %v, want ErrBusy", err)
	}
}

func TestCursorFailureKeepsPosition(t *testing.T) {
	c := NewCursor()
	c.ObserveFirst(true)

	page, _ := c.BeginNext()
	c.Finish(page, false, errors.New("timeout"))

	if c.Loading() {
		t.Error("loading flag left set after failure")
	}
	if c.Page() != 1 || !c.HasMore() {
		t.Errorf("state after failure = page %d hasMore %v, want 1 true", c.Page(), c.HasMore())
	}
	if page, err := c.BeginNext(); err != nil || page != 2 {
		t.Errorf("retry = %d, %v; want 2, nil", page, err)
	}
}

func TestObserveFirstKeepsLoadedPages(t *testing.T) {
	c := NewCursor()
	c.ObserveFirst(true)
	page, _ := c.BeginNext()
	c.Finish(page, true, nil)

	// A silent page-1 refresh must not rewind a cursor at page 2.
	c.ObserveFirst(false)
	if c.Page() != 2 || !c.HasMore() {
		t.Errorf("state = page %d hasMore %v, want 2 true", c.Page(), c.HasMore())
	}
}

func TestCursorParallelBegin(t *testing.T) {
	c := NewCursor()
	var wg sync.WaitGroup
	var mu sync.Mutex
	won := 0
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.BeginNext(); err == nil {
				mu.Lock()
				won++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if won != 1 {
		t.Errorf("%d goroutines claimed the cursor, want 1", won)
	}
}
