package keys

import (
	"testing"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
)

func TestPageBindingWinsOverGlobal(t *testing.T) {
	r := NewRegistry()
	var hit string
	r.AddGlobal(Rune('q', "Quit", func() { hit = "quit" }))
	r.AddPage("thread", Rune('q', "", func() { hit = "back" }))

	assert.True(t, r.HandleEvent("thread", tcell.NewEventKey(tcell.KeyRune, 'q', tcell.ModNone)))
	assert.Equal(t, "back", hit)

	assert.True(t, r.HandleEvent("conversations", tcell.NewEventKey(tcell.KeyRune, 'q', tcell.ModNone)))
	assert.Equal(t, "quit", hit)

	assert.False(t, r.HandleEvent("thread", tcell.NewEventKey(tcell.KeyRune, 'z', tcell.ModNone)))
}

func TestHintsKeepOrder(t *testing.T) {
	r := NewRegistry()
	r.AddGlobal(Rune('?', "Help", func() {}))
	r.AddPage("thread",
		Key(tcell.KeyEnter, "Enter", "Actions", func() {}),
		Rune('i', "Compose", func() {}),
		Rune('x', "", func() {}),
	)

	hints := r.Hints("thread")
	var got []string
	for _, h := range hints {
		got = append(got, h.Key+" "+h.Description)
	}
	assert.Equal(t, []string{"Enter Actions", "i Compose", "? Help"}, got)
}
