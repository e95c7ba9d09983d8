package ui

import (
	"fmt"
	"strings"

	"github.com/rivo/tview"
)

// menuRows is the header height available to the menu.
const menuRows = 6

// Menu displays keyboard shortcut hints in columns.
type Menu struct {
	*tview.TextView
	theme *Theme
}

// NewMenu creates a new menu hint bar.
func NewMenu(theme *Theme) *Menu {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetBorderPadding(0, 0, 2, 0)

	return &Menu{
		TextView: tv,
		theme:    theme,
	}
}

// Update renders hints top to bottom, then left to right.
func (m *Menu) Update(hints []MenuHint) {
	m.Clear()
	_, _ = fmt.Fprint(m, layoutHints(hints, Tag(m.theme.MenuKeyColor)))
}

func layoutHints(hints []MenuHint, keyTag string) string {
	if len(hints) == 0 {
		return ""
	}
	cols := (len(hints) + menuRows - 1) / menuRows
	width := 0
	for _, h := range hints {
		if w := len(h.Key) + len(h.Description) + 3; w > width {
			width = w
		}
	}

	var b strings.Builder
	for row := 0; row < menuRows && row < len(hints); row++ {
		for col := 0; col < cols; col++ {
			i := col*menuRows + row
			if i >= len(hints) {
				break
			}
			h := hints[i]
			cell := fmt.Sprintf("<%s> %s", h.Key, h.Description)
			fmt.Fprintf(&b, "%s[::b]<%s>[-:-:-] %s%s", keyTag, tview.Escape(h.Key), h.Description, strings.Repeat(" ", width-len(cell)+2))
		}
		b.WriteString("\n")
	}
	return b.String()
}
