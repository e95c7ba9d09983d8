package views

import (
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	campusv1 "github.com/matheus3301/campusmsg/internal/api/campusv1"
	"github.com/matheus3301/campusmsg/internal/tui/ui"
)

// ConversationList is a table of conversations or active users.
type ConversationList struct {
	*tview.Table
	theme  *ui.Theme
	title  string
	rows   []*campusv1.Conversation
	page   *campusv1.PageInfo
	filter string
	onEnd  func()
}

// NewConversationList creates a list titled title.
func NewConversationList(theme *ui.Theme, title string) *ConversationList {
	table := tview.NewTable().
		SetSelectable(true, false).
		SetBorders(false).
		SetFixed(1, 0)
	table.SetBorder(true)
	table.SetBorderColor(theme.BorderColor)
	table.SetBackgroundColor(theme.BgColor)
	table.SetSelectedStyle(tcell.StyleDefault.
		Foreground(theme.TableCursorFg).
		Background(theme.TableCursorBg))
	table.SetTitleColor(theme.TitleColor)

	cl := &ConversationList{
		Table: table,
		theme: theme,
		title: title,
	}
	table.SetSelectionChangedFunc(func(row, _ int) {
		// Reaching the last row asks for the next page.
		if cl.onEnd != nil && cl.filter == "" && row == table.GetRowCount()-1 && cl.page.GetHasMore() && !cl.page.GetLoading() {
			cl.onEnd()
		}
	})
	cl.render()
	return cl
}

// Title implements ui.Component.
func (cl *ConversationList) Title() string { return cl.title }

// SetOnEndReached sets the callback fired when the cursor hits the last
// row while more pages exist.
func (cl *ConversationList) SetOnEndReached(fn func()) {
	cl.onEnd = fn
}

// Update refreshes the list, keeping the cursor on the same conversation.
func (cl *ConversationList) Update(resp *campusv1.ListConversationsResponse) {
	selected := cl.SelectedKey()
	cl.rows, cl.page = nil, nil
	if resp != nil {
		cl.rows, cl.page = resp.Conversations, resp.PageInfo
	}
	cl.render()
	if selected != "" {
		cl.Select(selected)
	}
}

// SetFilter sets the active filter text and re-renders.
func (cl *ConversationList) SetFilter(filter string) {
	cl.filter = filter
	cl.render()
}

func (cl *ConversationList) visible() []*campusv1.Conversation {
	if cl.filter == "" {
		return cl.rows
	}
	var out []*campusv1.Conversation
	for _, c := range cl.rows {
		if containsFold(c.Name, cl.filter) || containsFold(c.LastMessage, cl.filter) {
			out = append(out, c)
		}
	}
	return out
}

func (cl *ConversationList) render() {
	cl.Clear()

	headers := []struct {
		text string
		exp  int
	}{
		{"  ", 0},
		{" NAME", 1},
		{" LAST MESSAGE", 2},
		{" TIME", 0},
		{" UNREAD", 0},
	}
	for col, h := range headers {
		cl.SetCell(0, col, tview.NewTableCell(h.text).
			SetSelectable(false).
			SetTextColor(cl.theme.TableHeaderFg).
			SetAttributes(tcell.AttrBold).
			SetExpansion(h.exp))
	}

	now := time.Now()
	rows := cl.visible()
	for i, c := range rows {
		row := i + 1
		dot := tview.NewTableCell(" ○").SetTextColor(cl.theme.DimColor)
		if c.IsOnline {
			dot = tview.NewTableCell(" ●").SetTextColor(cl.theme.OnlineColor)
		}

		name := c.Name
		if name == "" {
			name = c.Key
		}
		preview := c.LastMessage
		if c.LastMessageFromMe && preview != "" {
			preview = "You: " + preview
			if c.MessageStatus != "" {
				preview += " · " + c.MessageStatus
			}
		}
		when := formatTimestamp(c.LastMessageAtUnixMs, now)
		if when == "" {
			when = c.LastMessageTime
		}

		fg := cl.theme.FgColor
		if c.UnreadCount > 0 {
			fg = cl.theme.UnreadColor
		}
		cl.SetCell(row, 0, dot)
		cl.SetCell(row, 1, tview.NewTableCell(" "+tview.Escape(sanitizeForTerminal(name))).SetExpansion(1).SetTextColor(fg).SetReference(c.Key))
		cl.SetCell(row, 2, tview.NewTableCell(" "+tview.Escape(sanitizeForTerminal(clip(preview, 60)))).SetExpansion(2).SetTextColor(cl.theme.FgColor))
		cl.SetCell(row, 3, tview.NewTableCell(" "+when).SetTextColor(cl.theme.FgColor).SetAlign(tview.AlignRight))
		cl.SetCell(row, 4, tview.NewTableCell(" "+c.UnreadBadge).SetTextColor(cl.theme.UnreadColor).SetAlign(tview.AlignRight))
	}

	switch {
	case cl.page.GetLoading():
		cl.SetCell(len(rows)+1, 1, tview.NewTableCell(" loading…").SetSelectable(false).SetTextColor(cl.theme.DimColor))
	case len(rows) == 0:
		cl.SetCell(1, 1, tview.NewTableCell(" nothing here yet").SetSelectable(false).SetTextColor(cl.theme.DimColor))
	}

	more := ""
	if cl.page.GetHasMore() {
		more = "+"
	}
	if cl.filter != "" {
		cl.SetTitle(fmt.Sprintf(" %s (%d/%d%s) filter: %s ", cl.title, len(rows), len(cl.rows), more, tview.Escape(cl.filter)))
	} else {
		cl.SetTitle(fmt.Sprintf(" %s (%d%s) ", cl.title, len(cl.rows), more))
	}
}

// SelectedKey returns the key of the conversation under the cursor.
func (cl *ConversationList) SelectedKey() string {
	row, _ := cl.GetSelection()
	if row < 1 {
		return ""
	}
	if key, ok := cl.GetCell(row, 1).GetReference().(string); ok {
		return key
	}
	return ""
}

// Select moves the cursor to key when it is visible.
func (cl *ConversationList) Select(key string) {
	for row := 1; row < cl.GetRowCount(); row++ {
		if ref, ok := cl.GetCell(row, 1).GetReference().(string); ok && ref == key {
			cl.Table.Select(row, 0)
			return
		}
	}
}
