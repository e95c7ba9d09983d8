package ui

import (
	"fmt"
	"time"

	"github.com/rivo/tview"
)

// SessionData holds session information for display.
type SessionData struct {
	Session  string
	User     string
	Status   string
	Unread   string // badge text, "" when nothing is unread
	Chats    int
	Failures int32
	Paused   bool
	Uptime   time.Duration
}

// SessionInfo displays session metadata in the header.
type SessionInfo struct {
	*tview.TextView
	theme *Theme
}

// NewSessionInfo creates a new session info panel.
func NewSessionInfo(theme *Theme) *SessionInfo {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetBorderPadding(0, 0, 1, 1)

	return &SessionInfo{
		TextView: tv,
		theme:    theme,
	}
}

// Update renders the session info.
func (si *SessionInfo) Update(data *SessionData) {
	si.Clear()
	if data == nil {
		return
	}

	label := Tag(si.theme.FgColor) + "[::b]"
	value := Tag(si.theme.CounterColor)

	status := data.Status
	switch {
	case data.Paused:
		status += " (paused)"
	case data.Failures > 0:
		status += fmt.Sprintf(" (%d failed)", data.Failures)
	}
	unread := data.Unread
	if unread == "" {
		unread = "0"
	}

	rows := [][2]string{
		{"Session:", data.Session},
		{"User:", data.User},
		{"Status:", status},
		{"Chats:", fmt.Sprint(data.Chats)},
		{"Unread:", unread},
		{"Uptime:", formatDuration(data.Uptime)},
	}
	for i, r := range rows {
		if i > 0 {
			_, _ = fmt.Fprint(si, "\n")
		}
		_, _ = fmt.Fprintf(si, "%s%-9s[-:-:-]%s%s[-]", label, r[0], value, tview.Escape(r[1]))
	}
}

func formatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh%dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}
