package views

import (
	"fmt"
	"strings"

	"github.com/rivo/tview"

	"github.com/matheus3301/campusmsg/internal/tui/ui"
)

// HelpView displays key binding reference.
type HelpView struct {
	*tview.TextView
	theme *ui.Theme
}

// NewHelpView creates a new help view.
func NewHelpView(theme *ui.Theme) *HelpView {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" Help ")
	tv.SetTitleColor(theme.TitleColor)

	hv := &HelpView{
		TextView: tv,
		theme:    theme,
	}
	hv.render()
	return hv
}

// Title implements ui.Component.
func (hv *HelpView) Title() string { return "Help" }

var helpSections = []struct {
	title string
	rows  [][2]string
}{
	{"Global", [][2]string{
		{":", "Command mode"},
		{"/", "Filter the list"},
		{"Esc", "Cancel / go back"},
		{"?", "This help"},
		{"q", "Quit"},
	}},
	{"Conversations and active users", [][2]string{
		{"Enter", "Open chat"},
		{"Tab", "Switch conversations / active users"},
		{"d", "Details"},
		{"r", "Refresh"},
		{"j k", "Move (the last row loads more)"},
	}},
	{"Chat", [][2]string{
		{"i", "Focus composer (Enter sends)"},
		{"j k", "Select message (the top loads older)"},
		{"Enter", "Actions for the selected message"},
		{"e", "Edit the selected message"},
		{"x", "Unsend the selected message"},
		{"G", "Jump to newest"},
	}},
	{"Commands", [][2]string{
		{":chats", "Conversation list"},
		{":active", "Active users"},
		{":chat [key]", "Open chat by key, e.g. teacher_2; no key reopens the last one"},
		{":find <name>", "Find users on the backend"},
		{":search <text>", "Search cached messages"},
		{":unread", "Unread total"},
		{":close", "Close the open chat"},
		{":status", "Session status"},
		{":quit", "Quit"},
	}},
}

func (hv *HelpView) render() {
	kc := ui.Tag(hv.theme.MenuKeyColor)
	var b strings.Builder
	for _, s := range helpSections {
		fmt.Fprintf(&b, "\n  [::b]%s[-:-:-]\n\n", s.title)
		for _, r := range s.rows {
			fmt.Fprintf(&b, "  %s%-16s[-] %s\n", kc, tview.Escape(r[0]), r[1])
		}
	}
	_, _ = fmt.Fprint(hv, b.String())
}
