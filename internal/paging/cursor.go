// Package paging tracks integer-page cursors for lazily loaded lists.
package paging

import (
	"errors"
	"sync"
)

var (
	// ErrBusy is returned when a fetch for the cursor is already running.
	ErrBusy = errors.New("paging: load already in progress")
	// ErrExhausted is returned when the server reported no more pages.
	ErrExhausted = errors.New("paging: no more pages")
)

// Cursor is a page cursor with a loading flag. Page numbers start at 1;
// page 1 is the refresh page and later pages are load-more fetches.
type Cursor struct {
	mu      sync.Mutex
	page    int
	hasMore bool
	loading bool
}

// NewCursor returns a cursor positioned before the first page.
func NewCursor() *Cursor {
	return &Cursor{hasMore: true}
}

// Reset rewinds the cursor. A fetch in progress keeps its loading flag
// so its completion still clears it.
func (c *Cursor) Reset() {
	c.mu.Lock()
	c.page = 0
	c.hasMore = true
	c.mu.Unlock()
}

// BeginNext claims the next page for a load-more fetch.
func (c *Cursor) BeginNext() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loading {
		return 0, ErrBusy
	}
	if c.page > 0 && !c.hasMore {
		return 0, ErrExhausted
	}
	c.loading = true
	return c.page + 1, nil
}

// Finish records the outcome of a fetch started by BeginNext. A failed
// fetch leaves the position unchanged so it can be retried.
func (c *Cursor) Finish(page int, hasMore bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loading = false
	if err != nil {
		return
	}
	if page > c.page {
		c.page = page
	}
	c.hasMore = hasMore
}

// ObserveFirst records a page-1 refresh. It never touches the loading
// flag, and only lowers hasMore when no later page has been loaded.
func (c *Cursor) ObserveFirst(hasMore bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.page <= 1 {
		c.page = 1
		c.hasMore = hasMore
	}
}

// Page returns the last page loaded, 0 before any load.
func (c *Cursor) Page() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.page
}

// HasMore reports whether another page may exist.
func (c *Cursor) HasMore() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hasMore
}

// Loading reports whether a load-more fetch is running.
func (c *Cursor) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// State is a point-in-time copy of a cursor.
type State struct {
	Page    int
	HasMore bool
	Loading bool
}

// Snapshot returns the cursor state.
func (c *Cursor) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{Page: c.page, HasMore: c.hasMore, Loading: c.loading}
}
