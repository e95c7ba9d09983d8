// Package keys maps key events to actions per page.
package keys

import (
	"github.com/gdamore/tcell/v2"

	"github.com/matheus3301/campusmsg/internal/tui/ui"
)

// Action represents a keybinding action.
type Action struct {
	Key     tcell.Key
	Rune    rune
	Label   string // key as shown in the menu, e.g. "Enter"
	Hint    string // empty hides the action from the menu
	Handler func()
}

// Matches returns true if the event matches this action.
func (a *Action) Matches(ev *tcell.EventKey) bool {
	if a.Key != tcell.KeyRune {
		return ev.Key() == a.Key
	}
	return ev.Key() == tcell.KeyRune && ev.Rune() == a.Rune
}

func (a *Action) label() string {
	if a.Label != "" {
		return a.Label
	}
	if a.Key == tcell.KeyRune {
		return string(a.Rune)
	}
	return tcell.KeyNames[a.Key]
}

// Registry holds keybindings organized by page. Bindings keep their
// registration order, which is also the menu order.
type Registry struct {
	global []*Action
	pages  map[string][]*Action
}

// NewRegistry creates a new keybinding registry.
func NewRegistry() *Registry {
	return &Registry{pages: make(map[string][]*Action)}
}

// Rune is shorthand for a printable-key action.
func Rune(r rune, hint string, fn func()) *Action {
	return &Action{Key: tcell.KeyRune, Rune: r, Hint: hint, Handler: fn}
}

// Key is shorthand for a special-key action.
func Key(k tcell.Key, label, hint string, fn func()) *Action {
	return &Action{Key: k, Label: label, Hint: hint, Handler: fn}
}

// AddGlobal registers bindings active on every page.
func (r *Registry) AddGlobal(actions ...*Action) {
	r.global = append(r.global, actions...)
}

// AddPage registers bindings for one page. They win over global ones.
func (r *Registry) AddPage(page string, actions ...*Action) {
	r.pages[page] = append(r.pages[page], actions...)
}

// Hints returns the menu entries for page: page bindings first.
func (r *Registry) Hints(page string) []ui.MenuHint {
	var hints []ui.MenuHint
	for _, set := range [][]*Action{r.pages[page], r.global} {
		for _, a := range set {
			if a.Hint != "" {
				hints = append(hints, ui.MenuHint{Key: a.label(), Description: a.Hint})
			}
		}
	}
	return hints
}

// HandleEvent dispatches a key event to the first matching action on page.
// Returns true if a handler matched.
func (r *Registry) HandleEvent(page string, ev *tcell.EventKey) bool {
	for _, set := range [][]*Action{r.pages[page], r.global} {
		for _, a := range set {
			if a.Matches(ev) {
				a.Handler()
				return true
			}
		}
	}
	return false
}
