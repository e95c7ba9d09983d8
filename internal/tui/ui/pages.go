package ui

import "github.com/rivo/tview"

// Pages is a stack-based page manager wrapping tview.Pages. Overlays
// (dialogs) sit above the stack without hiding the page below.
type Pages struct {
	*tview.Pages
	stack    []string
	overlay  string
	onChange func(stack []string)
}

// NewPages creates a new stack-based page manager.
func NewPages() *Pages {
	return &Pages{
		Pages: tview.NewPages(),
	}
}

// SetOnChange sets a callback that fires when the stack changes.
func (p *Pages) SetOnChange(fn func(stack []string)) {
	p.onChange = fn
}

// Push adds a page to the top of the stack and shows it. Pushing the
// current page is a no-op.
func (p *Pages) Push(name string) {
	if p.Current() == name {
		return
	}
	if len(p.stack) > 0 {
		p.HidePage(p.stack[len(p.stack)-1])
	}
	p.stack = append(p.stack, name)
	p.ShowPage(name)
	p.SendToFront(name)
	p.notify()
}

// Pop removes the top page and shows the previous one. The root page is
// never popped. Returns the popped page, or empty.
func (p *Pages) Pop() string {
	if len(p.stack) <= 1 {
		return ""
	}
	top := p.stack[len(p.stack)-1]
	p.HidePage(top)
	p.stack = p.stack[:len(p.stack)-1]
	current := p.stack[len(p.stack)-1]
	p.ShowPage(current)
	p.SendToFront(current)
	p.notify()
	return top
}

// Current returns the name of the top page, or the overlay when one is open.
func (p *Pages) Current() string {
	if p.overlay != "" {
		return p.overlay
	}
	if len(p.stack) == 0 {
		return ""
	}
	return p.stack[len(p.stack)-1]
}

// Contains reports whether name is on the stack.
func (p *Pages) Contains(name string) bool {
	for _, n := range p.stack {
		if n == name {
			return true
		}
	}
	return false
}

// Stack returns a copy of the current page stack.
func (p *Pages) Stack() []string {
	s := make([]string, len(p.stack))
	copy(s, p.stack)
	return s
}

// Reset clears the stack and shows only the given page.
func (p *Pages) Reset(name string) {
	p.CloseOverlay()
	for _, n := range p.stack {
		p.HidePage(n)
	}
	p.stack = []string{name}
	p.ShowPage(name)
	p.SendToFront(name)
	p.notify()
}

// Overlay shows name above the current page.
func (p *Pages) Overlay(name string) {
	p.CloseOverlay()
	p.overlay = name
	p.ShowPage(name)
	p.SendToFront(name)
}

// CloseOverlay hides the open overlay, if any.
func (p *Pages) CloseOverlay() {
	if p.overlay == "" {
		return
	}
	p.HidePage(p.overlay)
	p.overlay = ""
}

// HasOverlay reports whether a dialog is open.
func (p *Pages) HasOverlay() bool {
	return p.overlay != ""
}

func (p *Pages) notify() {
	if p.onChange != nil {
		p.onChange(p.Stack())
	}
}
