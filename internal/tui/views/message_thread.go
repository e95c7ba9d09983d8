package views

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	campusv1 "github.com/matheus3301/campusmsg/internal/api/campusv1"
	"github.com/matheus3301/campusmsg/internal/tui/ui"
)

// MessageThread displays one chat's messages above a composer. The
// composer doubles as the inline editor.
type MessageThread struct {
	*tview.Flex
	theme    *ui.Theme
	messages *tview.TextView
	composer *tview.InputField

	peerName string
	entries  []*campusv1.Message
	page     *campusv1.PageInfo
	cursor   int // -1 follows the newest message
	editID   int64
	saved    string // composer text set aside during an edit

	onSend   func(text string)
	onEdit   func(id int64, text string)
	onCancel func()
	onDraft  func(text string)
	onTop    func()
}

// NewMessageThread creates a new message thread view.
func NewMessageThread(theme *ui.Theme) *MessageThread {
	messages := tview.NewTextView().
		SetDynamicColors(true).
		SetRegions(true).
		SetScrollable(true).
		SetWordWrap(true)
	messages.SetBorder(true)
	messages.SetBorderColor(theme.BorderColor)
	messages.SetBackgroundColor(theme.BgColor)
	messages.SetTextColor(theme.FgColor)
	messages.SetTitleColor(theme.TitleColor)

	composer := tview.NewInputField().
		SetFieldWidth(0)
	composer.SetBorder(true)
	composer.SetBorderColor(theme.BorderColor)
	composer.SetBackgroundColor(theme.BgColor)
	composer.SetFieldBackgroundColor(theme.BgColor)
	composer.SetFieldTextColor(theme.FgColor)
	composer.SetLabelColor(theme.MenuKeyColor)
	composer.SetTitleColor(theme.TitleColor)

	flex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(messages, 0, 1, true).
		AddItem(composer, 3, 0, false)

	mt := &MessageThread{
		Flex:     flex,
		theme:    theme,
		messages: messages,
		composer: composer,
		cursor:   -1,
	}
	mt.composeMode()

	composer.SetChangedFunc(func(text string) {
		if mt.editID == 0 && mt.onDraft != nil {
			mt.onDraft(text)
		}
	})
	composer.SetDoneFunc(func(key tcell.Key) {
		switch key {
		case tcell.KeyEnter:
			text := strings.TrimSpace(composer.GetText())
			if text == "" {
				return
			}
			if mt.editID != 0 {
				if mt.onEdit != nil {
					mt.onEdit(mt.editID, text)
				}
				return
			}
			if mt.onSend != nil {
				composer.SetText("")
				mt.onSend(text)
			}
		case tcell.KeyEscape:
			if mt.editID != 0 {
				mt.EndEdit()
			}
			if mt.onCancel != nil {
				mt.onCancel()
			}
		}
	})

	return mt
}

// Title implements ui.Component.
func (mt *MessageThread) Title() string {
	if mt.peerName != "" {
		return mt.peerName
	}
	return "Chat"
}

// SetOnSend sets the callback for a composed message.
func (mt *MessageThread) SetOnSend(fn func(text string)) { mt.onSend = fn }

// SetOnEdit sets the callback for a submitted inline edit.
func (mt *MessageThread) SetOnEdit(fn func(id int64, text string)) { mt.onEdit = fn }

// SetOnCancel sets the callback for Esc in the composer.
func (mt *MessageThread) SetOnCancel(fn func()) { mt.onCancel = fn }

// SetOnDraft sets the callback for composer edits outside edit mode.
func (mt *MessageThread) SetOnDraft(fn func(text string)) { mt.onDraft = fn }

// SetOnTopReached sets the callback fired when the cursor reaches the
// oldest loaded message while more history exists.
func (mt *MessageThread) SetOnTopReached(fn func()) { mt.onTop = fn }

// Reset clears the view for a newly opened chat.
func (mt *MessageThread) Reset(peerName, draft string) {
	mt.peerName = peerName
	mt.entries = nil
	mt.page = nil
	mt.cursor = -1
	mt.editID = 0
	mt.saved = ""
	mt.composeMode()
	mt.composer.SetText(draft)
	mt.render()
}

// Update renders the thread. Entries arrive oldest first.
func (mt *MessageThread) Update(thread *campusv1.ThreadResponse) {
	var selected string
	if m := mt.SelectedMessage(); m != nil {
		selected = identity(m)
	}
	mt.entries, mt.page = nil, nil
	if thread != nil {
		mt.entries, mt.page = thread.Messages, thread.PageInfo
	}
	mt.cursor = -1
	if selected != "" {
		for i, m := range mt.entries {
			if identity(m) == selected {
				mt.cursor = i
				break
			}
		}
	}
	mt.render()
}

func identity(m *campusv1.Message) string {
	if m.ClientID != "" && m.State != campusv1.StateConfirmed {
		return "c:" + m.ClientID
	}
	return "m:" + strconv.FormatInt(m.ID, 10)
}

// MoveCursor moves the selection by delta messages.
func (mt *MessageThread) MoveCursor(delta int) {
	if len(mt.entries) == 0 {
		return
	}
	cur := mt.cursor
	if cur < 0 {
		cur = len(mt.entries)
	}
	cur += delta
	if cur < 0 {
		cur = 0
	}
	if cur >= len(mt.entries) {
		cur = -1
	}
	mt.cursor = cur
	mt.render()
	if cur == 0 && mt.onTop != nil && mt.page.GetHasMore() && !mt.page.GetLoading() {
		mt.onTop()
	}
}

// SelectedMessage returns the message under the cursor, or nil.
func (mt *MessageThread) SelectedMessage() *campusv1.Message {
	if mt.cursor < 0 || mt.cursor >= len(mt.entries) {
		return nil
	}
	return mt.entries[mt.cursor]
}

// BeginEdit switches the composer to editing m.
func (mt *MessageThread) BeginEdit(m *campusv1.Message) {
	if mt.editID == 0 {
		mt.saved = mt.composer.GetText()
	}
	mt.editID = m.ID
	mt.composer.SetLabel(" edit> ")
	mt.composer.SetTitle(" Editing (Enter to save, Esc to cancel) ")
	mt.composer.SetBorderColor(mt.theme.FlashWarnColor)
	mt.composer.SetText(m.Text)
}

// EndEdit leaves edit mode and restores the draft.
func (mt *MessageThread) EndEdit() {
	mt.editID = 0
	mt.composer.SetText(mt.saved)
	mt.saved = ""
	mt.composeMode()
}

// Editing reports whether the composer is editing a message.
func (mt *MessageThread) Editing() bool {
	return mt.editID != 0
}

// RestoreDraft puts text back after a failed send, unless the user has
// already typed something new.
func (mt *MessageThread) RestoreDraft(text string) {
	if mt.editID == 0 && mt.composer.GetText() == "" {
		mt.composer.SetText(text)
	}
}

func (mt *MessageThread) composeMode() {
	mt.composer.SetLabel(" > ")
	mt.composer.SetTitle(" Compose (i to focus) ")
	mt.composer.SetBorderColor(mt.theme.BorderColor)
}

// Composer returns the composer input field (for focus management).
func (mt *MessageThread) Composer() *tview.InputField {
	return mt.composer
}

// Messages returns the messages text view (for focus management).
func (mt *MessageThread) Messages() *tview.TextView {
	return mt.messages
}

func (mt *MessageThread) render() {
	mt.messages.Clear()
	title := " " + tview.Escape(mt.Title()) + " "
	if mt.page.GetLoading() {
		title += "[loading older…] "
	}
	mt.messages.SetTitle(title)

	var b strings.Builder
	if mt.page.GetHasMore() {
		fmt.Fprintf(&b, "%s  ↑ older messages (k to load)[-]\n\n", ui.Tag(mt.theme.DimColor))
	}
	now := time.Now()
	for i, m := range mt.entries {
		fmt.Fprintf(&b, "[\"m%d\"]", i)
		mt.writeMessage(&b, m, now)
		b.WriteString("[\"\"]\n")
	}
	_, _ = fmt.Fprint(mt.messages, b.String())

	if mt.cursor >= 0 {
		region := fmt.Sprintf("m%d", mt.cursor)
		mt.messages.Highlight(region)
		mt.messages.ScrollToHighlight()
	} else {
		mt.messages.Highlight()
		mt.messages.ScrollToEnd()
	}
}

func (mt *MessageThread) writeMessage(b *strings.Builder, m *campusv1.Message, now time.Time) {
	sender, color := mt.peerName, mt.theme.PeerColor
	if m.FromMe {
		sender, color = "You", mt.theme.OwnColor
	}
	fmt.Fprintf(b, "%s[::b]%s[-:-:-] %s%s[-]", ui.Tag(color), tview.Escape(sender),
		ui.Tag(mt.theme.DimColor), formatTimestamp(m.TimestampUnixMs, now))

	switch {
	case m.State == campusv1.StatePending:
		fmt.Fprintf(b, " %ssending…[-]", ui.Tag(mt.theme.PendingColor))
	case m.State == campusv1.StateFailed:
		fmt.Fprintf(b, " %sfailed[-]", ui.Tag(mt.theme.FailedColor))
	case m.FromMe && m.IsSeen:
		fmt.Fprintf(b, " %s✓✓[-]", ui.Tag(mt.theme.OnlineColor))
	case m.FromMe:
		fmt.Fprintf(b, " %s✓[-]", ui.Tag(mt.theme.DimColor))
	}
	if m.IsEdited && !m.IsRemoved {
		fmt.Fprintf(b, " %s(edited)[-]", ui.Tag(mt.theme.DimColor))
	}
	b.WriteString("\n")

	text := tview.Escape(sanitizeForTerminal(m.Text))
	switch {
	case m.IsRemoved:
		fmt.Fprintf(b, "  %s[::i]%s[-:-:-]\n", ui.Tag(mt.theme.DimColor), text)
	case m.Type != "" && m.Type != "text":
		name := m.FileName
		if name == "" {
			name = m.FileURL
		}
		if text != "" {
			fmt.Fprintf(b, "  %s\n", text)
		}
		fmt.Fprintf(b, "  %s[%s] %s[-]\n", ui.Tag(mt.theme.MenuKeyColor), m.Type, tview.Escape(name))
	default:
		fmt.Fprintf(b, "  %s\n", text)
	}
}
