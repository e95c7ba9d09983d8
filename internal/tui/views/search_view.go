package views

import (
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	campusv1 "github.com/matheus3301/campusmsg/internal/api/campusv1"
	"github.com/matheus3301/campusmsg/internal/tui/ui"
)

// SearchView lists message search hits or found users. Each row opens
// the chat with its peer.
type SearchView struct {
	*tview.Table
	theme *ui.Theme
	title string
}

// NewSearchView creates a new search view.
func NewSearchView(theme *ui.Theme) *SearchView {
	results := tview.NewTable().
		SetSelectable(true, false).
		SetBorders(false).
		SetFixed(1, 0)
	results.SetBorder(true)
	results.SetBorderColor(theme.BorderColor)
	results.SetBackgroundColor(theme.BgColor)
	results.SetTitleColor(theme.TitleColor)
	results.SetSelectedStyle(tcell.StyleDefault.
		Foreground(theme.TableCursorFg).
		Background(theme.TableCursorBg))

	return &SearchView{Table: results, theme: theme, title: "Search"}
}

// Title implements ui.Component.
func (sv *SearchView) Title() string { return sv.title }

func (sv *SearchView) header(query string, cols ...string) {
	sv.Clear()
	sv.SetTitle(" " + tview.Escape(sv.title+": "+query) + " ")
	for col, h := range cols {
		sv.SetCell(0, col, tview.NewTableCell(h).
			SetSelectable(false).
			SetTextColor(sv.theme.TableHeaderFg).
			SetAttributes(tcell.AttrBold))
	}
}

// ShowMessages renders full-text search hits.
func (sv *SearchView) ShowMessages(query string, results []*campusv1.SearchResult) {
	sv.title = "Search"
	sv.header(query, " CHAT", " SNIPPET", " TIME")
	now := time.Now()
	for i, r := range results {
		row := i + 1
		ts := ""
		if r.Message != nil {
			ts = formatTimestamp(r.Message.TimestampUnixMs, now)
		}
		sv.SetCell(row, 0, tview.NewTableCell(" "+tview.Escape(r.PeerKey)).SetMaxWidth(25).SetTextColor(sv.theme.FgColor).SetReference(r.PeerKey))
		sv.SetCell(row, 1, tview.NewTableCell(" "+tview.Escape(sanitizeForTerminal(r.Snippet))).SetExpansion(1).SetTextColor(sv.theme.FgColor))
		sv.SetCell(row, 2, tview.NewTableCell(" "+ts).SetMaxWidth(12).SetTextColor(sv.theme.FgColor))
	}
	sv.empty(len(results))
}

// ShowUsers renders backend user search results.
func (sv *SearchView) ShowUsers(query string, users []*campusv1.User) {
	sv.title = "Users"
	sv.header(query, " KEY", " NAME", "  ")
	for i, u := range users {
		row := i + 1
		dot := tview.NewTableCell(" ○").SetTextColor(sv.theme.DimColor)
		if u.IsOnline {
			dot = tview.NewTableCell(" ●").SetTextColor(sv.theme.OnlineColor)
		}
		sv.SetCell(row, 0, tview.NewTableCell(" "+tview.Escape(u.Key)).SetTextColor(sv.theme.FgColor).SetReference(u.Key))
		sv.SetCell(row, 1, tview.NewTableCell(" "+tview.Escape(sanitizeForTerminal(u.Name))).SetExpansion(1).SetTextColor(sv.theme.FgColor))
		sv.SetCell(row, 2, dot)
	}
	sv.empty(len(users))
}

func (sv *SearchView) empty(n int) {
	if n == 0 {
		sv.SetCell(1, 1, tview.NewTableCell(" no matches").SetSelectable(false).SetTextColor(sv.theme.DimColor))
	}
	sv.Select(1, 0)
}

// SelectedPeer returns the peer key of the selected row.
func (sv *SearchView) SelectedPeer() string {
	row, _ := sv.GetSelection()
	if row < 1 {
		return ""
	}
	key, _ := sv.GetCell(row, 0).GetReference().(string)
	return key
}
