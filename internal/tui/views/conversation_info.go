package views

import (
	"fmt"
	"time"

	"github.com/rivo/tview"

	campusv1 "github.com/matheus3301/campusmsg/internal/api/campusv1"
	"github.com/matheus3301/campusmsg/internal/tui/ui"
)

// ConversationInfo displays the counterpart of a conversation.
type ConversationInfo struct {
	*tview.TextView
	theme *ui.Theme
}

// NewConversationInfo creates a new conversation info view.
func NewConversationInfo(theme *ui.Theme) *ConversationInfo {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" Details ")
	tv.SetTitleColor(theme.TitleColor)

	return &ConversationInfo{
		TextView: tv,
		theme:    theme,
	}
}

// Title implements ui.Component.
func (ci *ConversationInfo) Title() string { return "Details" }

// Update renders conversation details.
func (ci *ConversationInfo) Update(c *campusv1.Conversation) {
	ci.Clear()
	if c == nil {
		_, _ = fmt.Fprintf(ci, "\n %sNo details for this conversation yet.[-]", ui.Tag(ci.theme.DimColor))
		return
	}

	presence := "offline"
	if c.IsOnline {
		presence = "online"
	} else if c.LastSeen != "" {
		presence = "last seen " + c.LastSeen
	}
	lastActive := formatTimestamp(c.LastMessageAtUnixMs, time.Now())
	if lastActive == "" {
		lastActive = c.LastMessageTime
	}
	status := c.MessageStatus
	if !c.LastMessageFromMe {
		status = "-"
	}
	avatar := c.AvatarURL
	if avatar == "" {
		avatar = c.Initials
	}

	label, value := ui.Tag(ci.theme.FgColor)+"[::b]", ui.Tag(ci.theme.CounterColor)
	rows := [][2]string{
		{"Name:", c.Name},
		{"Key:", c.Key},
		{"Avatar:", avatar},
		{"Presence:", presence},
		{"Unread:", fmt.Sprint(c.UnreadCount)},
		{"Last active:", orDash(lastActive)},
		{"Last message:", orDash(c.LastMessage)},
		{"Delivery:", orDash(status)},
	}
	_, _ = fmt.Fprint(ci, "\n")
	for _, r := range rows {
		_, _ = fmt.Fprintf(ci, " %s%-14s[-:-:-]%s%s[-]\n", label, r[0], value, tview.Escape(sanitizeForTerminal(r[1])))
	}
	ci.SetTitle(fmt.Sprintf(" %s ", tview.Escape(c.Name)))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
