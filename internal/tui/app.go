// Package tui is the terminal chat client: conversation and active-user
// lists, a chat thread with composer and a per-message action menu.
package tui

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	campusv1 "github.com/matheus3301/campusmsg/internal/api/campusv1"
	"github.com/matheus3301/campusmsg/internal/tui/client"
	"github.com/matheus3301/campusmsg/internal/tui/keys"
	"github.com/matheus3301/campusmsg/internal/tui/model"
	"github.com/matheus3301/campusmsg/internal/tui/ui"
	"github.com/matheus3301/campusmsg/internal/tui/views"
)

// Page names.
const (
	pageConversations = "conversations"
	pageActive        = "active"
	pageThread        = "thread"
	pageDetails       = "details"
	pageSearch        = "search"
	pageHelp          = "help"
	pageMenu          = "menu"
)

const (
	headerHeight = 6
	promptHeight = 3
)

// App is the main TUI application shell.
type App struct {
	app      *tview.Application
	theme    *ui.Theme
	vm       *model.ViewModel
	registry *keys.Registry
	session  string

	body     *tview.Flex
	pages    *ui.Pages
	info     *ui.SessionInfo
	menu     *ui.Menu
	crumbs   *ui.Crumbs
	prompt   *ui.Prompt
	flashBar *ui.FlashBar

	convList   *views.ConversationList
	activeList *views.ConversationList
	thread     *views.MessageThread
	details    *views.ConversationInfo
	search     *views.SearchView
	help       *views.HelpView
	actions    *views.ActionMenu

	components map[string]ui.Component
	drafts     *draftSync

	ctx    context.Context
	cancel context.CancelFunc
}

// NewApp creates the TUI application.
func NewApp(c *client.Client, sessionName string) *App {
	ctx, cancel := context.WithCancel(context.Background())
	theme := ui.DefaultTheme()
	vm := model.NewViewModel(c)

	a := &App{
		app:        tview.NewApplication(),
		theme:      theme,
		vm:         vm,
		registry:   keys.NewRegistry(),
		session:    sessionName,
		pages:      ui.NewPages(),
		info:       ui.NewSessionInfo(theme),
		menu:       ui.NewMenu(theme),
		crumbs:     ui.NewCrumbs(theme),
		prompt:     ui.NewPrompt(theme),
		flashBar:   ui.NewFlashBar(theme),
		convList:   views.NewConversationList(theme, "Conversations"),
		activeList: views.NewConversationList(theme, "Active users"),
		thread:     views.NewMessageThread(theme),
		details:    views.NewConversationInfo(theme),
		search:     views.NewSearchView(theme),
		help:       views.NewHelpView(theme),
		actions:    views.NewActionMenu(theme),
		ctx:        ctx,
		cancel:     cancel,
	}
	a.drafts = newDraftSync(func(text string) error { return vm.SetDraft(ctx, text) })
	a.components = map[string]ui.Component{
		pageConversations: a.convList,
		pageActive:        a.activeList,
		pageThread:        a.thread,
		pageDetails:       a.details,
		pageSearch:        a.search,
		pageHelp:          a.help,
	}

	a.setupBindings()
	a.setupCallbacks()
	a.setupLayout()
	return a
}

// do runs fn off the UI goroutine and flashes its error.
func (a *App) do(fn func(ctx context.Context) error) {
	go func() {
		if err := fn(a.ctx); err != nil && a.ctx.Err() == nil {
			a.vm.Flash.Err(err)
		}
	}()
}

// interact records a navigation with the daemon before running fn.
func (a *App) interact(fn func(ctx context.Context) error) {
	a.do(func(ctx context.Context) error {
		if err := a.vm.Touch(ctx); err != nil {
			return err
		}
		return fn(ctx)
	})
}

func (a *App) switchTab(page string) {
	a.pages.Reset(page)
	a.do(a.vm.Touch)
}

func (a *App) setupBindings() {
	a.registry.AddGlobal(
		keys.Rune(':', "Command", func() { a.activatePrompt(ui.PromptCommand) }),
		keys.Rune('?', "Help", func() { a.pages.Push(pageHelp) }),
		keys.Key(tcell.KeyEscape, "Esc", "Back", a.back),
		keys.Rune('q', "Quit", a.quitOrBack),
	)

	a.registry.AddPage(pageConversations,
		keys.Key(tcell.KeyEnter, "Enter", "Open", func() { a.openChat(a.convList.SelectedKey()) }),
		keys.Rune('/', "Filter", func() { a.activatePrompt(ui.PromptFilter) }),
		keys.Key(tcell.KeyTab, "Tab", "Active users", func() { a.switchTab(pageActive) }),
		keys.Rune('d', "Details", func() { a.showDetails(a.convList.SelectedKey()) }),
		keys.Rune('r', "Refresh", func() { a.refresh(a.vm.RefreshConversations) }),
	)
	a.registry.AddPage(pageActive,
		keys.Key(tcell.KeyEnter, "Enter", "Open", func() { a.openChat(a.activeList.SelectedKey()) }),
		keys.Rune('/', "Filter", func() { a.activatePrompt(ui.PromptFilter) }),
		keys.Key(tcell.KeyTab, "Tab", "Conversations", func() { a.switchTab(pageConversations) }),
		keys.Rune('d', "Details", func() { a.showDetails(a.activeList.SelectedKey()) }),
		keys.Rune('r', "Refresh", func() { a.refresh(a.vm.RefreshActiveUsers) }),
	)
	a.registry.AddPage(pageThread,
		keys.Rune('i', "Compose", func() { a.app.SetFocus(a.thread.Composer()) }),
		keys.Key(tcell.KeyEnter, "Enter", "Actions", a.openActions),
		keys.Rune('e', "Edit", a.editSelected),
		keys.Rune('x', "Unsend", a.unsendSelected),
		keys.Rune('k', "Older", func() { a.thread.MoveCursor(-1) }),
		keys.Rune('j', "Newer", func() { a.thread.MoveCursor(1) }),
		keys.Key(tcell.KeyUp, "", "", func() { a.thread.MoveCursor(-1) }),
		keys.Key(tcell.KeyDown, "", "", func() { a.thread.MoveCursor(1) }),
		keys.Rune('G', "Newest", func() { a.thread.MoveCursor(1 << 20) }),
		keys.Rune('d', "Details", func() { a.showDetails(a.vm.OpenPeer()) }),
	)
	a.registry.AddPage(pageSearch,
		keys.Key(tcell.KeyEnter, "Enter", "Open chat", func() { a.openChat(a.search.SelectedPeer()) }),
	)
}

func (a *App) setupCallbacks() {
	a.convList.SetOnEndReached(func() {
		a.interact(a.vm.LoadMoreConversations)
	})
	a.activeList.SetOnEndReached(func() {
		a.interact(a.vm.LoadMoreActiveUsers)
	})

	a.thread.SetOnTopReached(func() {
		a.interact(a.vm.LoadOlderMessages)
	})
	a.thread.SetOnDraft(a.drafts.Set)
	a.thread.SetOnSend(func(text string) {
		go func() {
			if err := a.vm.Send(a.ctx, text); err != nil {
				a.vm.Flash.Err(err)
				a.app.QueueUpdateDraw(func() { a.thread.RestoreDraft(text) })
			}
		}()
	})
	a.thread.SetOnEdit(func(id int64, text string) {
		go func() {
			changed, err := a.vm.Edit(a.ctx, id, text)
			if err != nil {
				a.vm.Flash.Err(err)
				return
			}
			if changed {
				a.vm.Flash.Info("Message edited")
			}
			a.app.QueueUpdateDraw(func() {
				a.thread.EndEdit()
				a.app.SetFocus(a.thread.Messages())
			})
		}()
	})
	a.thread.SetOnCancel(func() {
		a.do(func(ctx context.Context) error { return a.vm.SetEditing(ctx, false) })
		a.app.SetFocus(a.thread.Messages())
	})

	a.actions.SetOnChoose(a.chooseAction)

	a.prompt.SetOnSubmit(func(mode ui.PromptMode, text string) {
		a.closePrompt()
		switch mode {
		case ui.PromptCommand:
			a.runCommand(ParseCommand(text))
		case ui.PromptFilter:
			a.currentList().SetFilter(text)
		case ui.PromptSearch:
			a.searchMessages(text)
		}
	})
	a.prompt.SetOnCancel(a.closePrompt)

	a.pages.SetOnChange(func(stack []string) {
		titles := make([]string, 0, len(stack))
		for _, name := range stack {
			if c, ok := a.components[name]; ok {
				titles = append(titles, c.Title())
			}
		}
		a.crumbs.Update(titles)
		a.menu.Update(a.registry.Hints(a.pages.Current()))
		a.focusPage()
	})
}

func (a *App) setupLayout() {
	for name, c := range a.components {
		a.pages.AddPage(name, c.(tview.Primitive), true, false)
	}
	a.pages.AddPage(pageMenu, a.actions, true, false)

	header := tview.NewFlex().
		AddItem(a.info, 34, 0, false).
		AddItem(a.menu, 0, 1, false).
		AddItem(ui.NewLogo(a.theme), 24, 0, false)

	a.body = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(header, headerHeight, 0, false).
		AddItem(a.crumbs, 1, 0, false).
		AddItem(a.pages, 0, 1, true).
		AddItem(a.prompt, 0, 0, false).
		AddItem(a.flashBar, 1, 0, false)

	a.app.SetRoot(a.body, true)
	a.pages.Reset(pageConversations)

	a.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		// Text inputs and the action dialog handle their own keys.
		switch a.app.GetFocus().(type) {
		case *tview.InputField, *ui.Prompt:
			return event
		}
		if a.pages.HasOverlay() {
			return event
		}
		if a.registry.HandleEvent(a.pages.Current(), event) {
			return nil
		}
		return event
	})
}

func (a *App) focusPage() {
	switch a.pages.Current() {
	case pageThread:
		if a.thread.Editing() {
			a.app.SetFocus(a.thread.Composer())
		} else {
			a.app.SetFocus(a.thread.Messages())
		}
	case pageMenu:
		a.app.SetFocus(a.actions)
	default:
		if c, ok := a.components[a.pages.Current()]; ok {
			a.app.SetFocus(c.(tview.Primitive))
		}
	}
}

func (a *App) currentList() *views.ConversationList {
	if a.pages.Current() == pageActive {
		return a.activeList
	}
	return a.convList
}

func (a *App) activatePrompt(mode ui.PromptMode) {
	a.prompt.Activate(mode)
	a.body.ResizeItem(a.prompt, promptHeight, 0)
	a.app.SetFocus(a.prompt)
}

func (a *App) closePrompt() {
	a.body.ResizeItem(a.prompt, 0, 0)
	a.focusPage()
}

func (a *App) back() {
	switch a.pages.Current() {
	case pageThread:
		a.leaveChat()
	case pageConversations, pageActive:
		a.currentList().SetFilter("")
	default:
		a.pages.Pop()
	}
}

func (a *App) quitOrBack() {
	if len(a.pages.Stack()) > 1 {
		a.back()
		return
	}
	a.Stop()
}

// refresh refetches the visible list with its loading flag raised, then
// resumes polling, which triggers every poll job at once.
func (a *App) refresh(list func(ctx context.Context) error) {
	a.interact(func(ctx context.Context) error {
		if err := list(ctx); err != nil {
			return err
		}
		return a.vm.SetForeground(ctx, true)
	})
}

func (a *App) peerName(key string) string {
	if c := a.vm.Conversation(key); c != nil && c.Name != "" {
		return c.Name
	}
	return key
}

func (a *App) openChat(key string) {
	if key == "" {
		return
	}
	if a.pages.Contains(pageThread) {
		for a.pages.Current() != pageThread {
			a.pages.Pop()
		}
		a.pages.Pop()
	}
	a.thread.Reset(a.peerName(key), "")
	a.pages.Push(pageThread)
	go func() {
		if err := a.vm.Touch(a.ctx); err != nil && a.ctx.Err() == nil {
			a.vm.Flash.Err(err)
		}
		err := a.vm.OpenChat(a.ctx, key)
		if err != nil {
			a.vm.Flash.Err(err)
		}
		if t := a.vm.Thread(); t != nil && t.Draft != "" {
			a.app.QueueUpdateDraw(func() { a.thread.RestoreDraft(t.Draft) })
		}
	}()
}

func (a *App) leaveChat() {
	if a.thread.Editing() {
		a.thread.EndEdit()
		a.do(func(ctx context.Context) error { return a.vm.SetEditing(ctx, false) })
	}
	a.pages.Pop()
	a.interact(a.vm.CloseChat)
}

func (a *App) showDetails(key string) {
	if key == "" {
		return
	}
	a.details.Update(a.vm.Conversation(key))
	a.pages.Push(pageDetails)
}

// selectedConfirmed returns the selected message when it has a server id.
func (a *App) selectedConfirmed() *campusv1.Message {
	m := a.thread.SelectedMessage()
	if m == nil || m.ID <= 0 || m.State != campusv1.StateConfirmed {
		return nil
	}
	return m
}

func (a *App) openActions() {
	m := a.selectedConfirmed()
	if m == nil {
		return
	}
	go func() {
		elig, err := a.vm.Eligibility(a.ctx, m.ID)
		if err != nil {
			a.vm.Flash.Err(err)
			return
		}
		if err := a.vm.SetMenuOpen(a.ctx, true); err != nil {
			a.vm.Flash.Err(err)
		}
		a.app.QueueUpdateDraw(func() {
			a.actions.Show(m, elig)
			a.pages.Overlay(pageMenu)
			a.app.SetFocus(a.actions)
		})
	}()
}

func (a *App) chooseAction(action string, m *campusv1.Message) {
	a.pages.CloseOverlay()
	a.focusPage()
	switch action {
	case views.ActionEdit:
		a.beginEdit(m)
	case views.ActionUnsend:
		a.unsend(m.ID)
	}
	a.do(func(ctx context.Context) error { return a.vm.SetMenuOpen(ctx, false) })
}

func (a *App) beginEdit(m *campusv1.Message) {
	a.thread.BeginEdit(m)
	a.app.SetFocus(a.thread.Composer())
	a.do(func(ctx context.Context) error { return a.vm.SetEditing(ctx, true) })
}

func (a *App) editSelected() {
	m := a.selectedConfirmed()
	if m == nil || !m.FromMe || m.IsRemoved {
		return
	}
	go func() {
		elig, err := a.vm.Eligibility(a.ctx, m.ID)
		if err != nil {
			a.vm.Flash.Err(err)
			return
		}
		if !elig.CanEdit {
			a.vm.Flash.Warn("This message can no longer be edited")
			return
		}
		a.app.QueueUpdateDraw(func() { a.beginEdit(m) })
	}()
}

func (a *App) unsendSelected() {
	if m := a.selectedConfirmed(); m != nil && m.FromMe && !m.IsRemoved {
		a.unsend(m.ID)
	}
}

func (a *App) unsend(id int64) {
	go func() {
		if err := a.vm.Unsend(a.ctx, id); err != nil {
			a.vm.Flash.Err(err)
			return
		}
		a.vm.Flash.Info("Message unsent")
	}()
}

func (a *App) searchMessages(query string) {
	go func() {
		results, err := a.vm.SearchMessages(a.ctx, query)
		if err != nil {
			a.vm.Flash.Err(err)
			return
		}
		a.app.QueueUpdateDraw(func() {
			a.search.ShowMessages(query, results)
			a.pages.Push(pageSearch)
		})
	}()
}

func (a *App) findUsers(query string) {
	go func() {
		users, err := a.vm.SearchUsers(a.ctx, query)
		if err != nil {
			a.vm.Flash.Err(err)
			return
		}
		a.app.QueueUpdateDraw(func() {
			a.search.ShowUsers(query, users)
			a.pages.Push(pageSearch)
		})
	}()
}

func (a *App) runCommand(cmd Command) {
	switch cmd.Name {
	case CmdChats:
		a.switchTab(pageConversations)
	case CmdActive:
		a.switchTab(pageActive)
	case CmdChat:
		if cmd.Args != "" {
			a.openChat(cmd.Args)
			return
		}
		if st := a.vm.Status(); st != nil && st.LastChat != "" {
			a.openChat(st.LastChat)
		}
	case CmdSearch:
		if cmd.Args == "" {
			a.activatePrompt(ui.PromptSearch)
			return
		}
		a.searchMessages(cmd.Args)
	case CmdFind:
		if cmd.Args != "" {
			a.findUsers(cmd.Args)
		}
	case CmdUnread:
		a.do(func(ctx context.Context) error {
			if err := a.vm.LoadStatus(ctx); err != nil {
				return err
			}
			badge := a.vm.UnreadBadge()
			if badge == "" {
				badge = "no"
			}
			a.vm.Flash.Info(badge + " unread messages")
			return nil
		})
	case CmdClose:
		if a.pages.Contains(pageThread) {
			for a.pages.Current() != pageThread {
				a.pages.Pop()
			}
			a.leaveChat()
		}
	case CmdStatus:
		a.do(func(ctx context.Context) error {
			if err := a.vm.LoadStatus(ctx); err != nil {
				return err
			}
			if st := a.vm.Status(); st != nil {
				a.vm.Flash.Info(statusLine(st))
			}
			return nil
		})
	case CmdHelp:
		a.pages.Push(pageHelp)
	case CmdQuit:
		a.Stop()
	default:
		a.vm.Flash.Warn(fmt.Sprintf("Unknown command %q", cmd.Name))
	}
}

func statusLine(st *campusv1.SessionStatus) string {
	parts := []string{st.Status, "backend " + st.Backend}
	if st.ConsecutiveFailures > 0 {
		parts = append(parts, fmt.Sprintf("%d failed polls: %s", st.ConsecutiveFailures, st.LastError))
	}
	if st.Gate != nil && st.Gate.InFlight != "" {
		parts = append(parts, st.Gate.InFlight+" in flight")
	}
	return strings.Join(parts, " · ")
}

func (a *App) render(c model.Change) {
	switch c {
	case model.ChangeConversations:
		a.convList.Update(a.vm.Conversations())
	case model.ChangeActive:
		a.activeList.Update(a.vm.ActiveUsers())
	case model.ChangeThread:
		if a.pages.Contains(pageThread) {
			a.thread.Update(a.vm.Thread())
		}
	case model.ChangeStatus:
		st := a.vm.Status()
		if st == nil {
			return
		}
		a.info.Update(&ui.SessionData{
			Session:  st.Session,
			User:     st.User,
			Status:   st.Status,
			Unread:   a.vm.UnreadBadge(),
			Chats:    a.conversationCount(),
			Failures: st.ConsecutiveFailures,
			Paused:   st.Paused,
			Uptime:   time.Duration(st.UptimeMs) * time.Millisecond,
		})
	}
}

func (a *App) conversationCount() int {
	if c := a.vm.Conversations(); c != nil {
		return len(c.Conversations)
	}
	return 0
}

// Run starts the TUI application.
func (a *App) Run() error {
	a.info.Update(&ui.SessionData{Session: a.session, Status: "connecting"})
	a.menu.Update(a.registry.Hints(a.pages.Current()))

	go func() {
		for _, load := range []func(context.Context) error{a.vm.LoadStatus, a.vm.LoadConversations, a.vm.LoadActiveUsers} {
			if err := load(a.ctx); err != nil {
				a.vm.Flash.Err(err)
			}
		}
	}()
	go a.vm.Watch(a.ctx)
	go a.drafts.Run(a.ctx)
	go a.pump()

	return a.app.Run()
}

// pump moves model changes and flashes onto the UI goroutine.
func (a *App) pump() {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case c := <-a.vm.Changes():
			a.app.QueueUpdateDraw(func() { a.render(c) })
		case <-a.vm.Flash.Watch():
			a.app.QueueUpdateDraw(func() { a.flashBar.Update(a.vm.Flash.GetMessage()) })
		case <-ticker.C:
			// Uptime and expired flashes.
			_ = a.vm.LoadStatus(a.ctx)
			a.app.QueueUpdateDraw(func() { a.flashBar.Update(a.vm.Flash.GetMessage()) })
		case <-a.ctx.Done():
			return
		}
	}
}

// Stop unmounts the open chat and shuts down the TUI.
func (a *App) Stop() {
	if a.vm.OpenPeer() != "" {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		_ = a.vm.CloseChat(ctx)
		cancel()
	}
	a.cancel()
	a.app.Stop()
}

// draftSync forwards the latest composer text to the daemon, dropping
// intermediate keystrokes.
type draftSync struct {
	mu     sync.Mutex
	latest string
	dirty  bool
	wake   chan struct{}
	send   func(string) error
}

func newDraftSync(send func(string) error) *draftSync {
	return &draftSync{wake: make(chan struct{}, 1), send: send}
}

// Set records text. It never blocks.
func (d *draftSync) Set(text string) {
	d.mu.Lock()
	d.latest, d.dirty = text, true
	d.mu.Unlock()
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// Run sends recorded drafts until ctx ends.
func (d *draftSync) Run(ctx context.Context) {
	for {
		select {
		case <-d.wake:
		case <-ctx.Done():
			return
		}
		d.mu.Lock()
		text, dirty := d.latest, d.dirty
		d.dirty = false
		d.mu.Unlock()
		if dirty {
			_ = d.send(text)
		}
	}
}
