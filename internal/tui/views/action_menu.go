package views

import (
	"fmt"
	"time"

	"github.com/rivo/tview"

	campusv1 "github.com/matheus3301/campusmsg/internal/api/campusv1"
	"github.com/matheus3301/campusmsg/internal/tui/ui"
)

// Menu choices.
const (
	ActionEdit   = "Edit"
	ActionUnsend = "Unsend"
	ActionCancel = "Cancel"
)

// ActionMenu is the per-message dialog offering edit and unsend.
type ActionMenu struct {
	*tview.Modal
	theme    *ui.Theme
	message  *campusv1.Message
	onChoose func(action string, m *campusv1.Message)
}

// NewActionMenu creates the dialog.
func NewActionMenu(theme *ui.Theme) *ActionMenu {
	modal := tview.NewModal()
	modal.SetBackgroundColor(theme.BgColor)
	modal.SetTextColor(theme.FgColor)
	modal.SetBorderColor(theme.BorderColor)
	modal.SetButtonBackgroundColor(theme.TableCursorBg)
	modal.SetButtonTextColor(theme.TableCursorFg)

	am := &ActionMenu{Modal: modal, theme: theme}
	modal.SetDoneFunc(func(_ int, label string) { am.choose(label) })
	return am
}

// choose reports label. Esc closes the modal with an empty label.
func (am *ActionMenu) choose(label string) {
	if label == "" {
		label = ActionCancel
	}
	if am.onChoose != nil {
		am.onChoose(label, am.message)
	}
}

// Title implements ui.Component.
func (am *ActionMenu) Title() string { return "Actions" }

// SetOnChoose sets the callback for a pressed button or Esc (Cancel).
func (am *ActionMenu) SetOnChoose(fn func(action string, m *campusv1.Message)) {
	am.onChoose = fn
}

// Show prepares the dialog for m with the actions elig allows.
func (am *ActionMenu) Show(m *campusv1.Message, elig *campusv1.EligibilityResponse) {
	am.message = m
	am.ClearButtons()

	var buttons []string
	if elig.CanEdit {
		buttons = append(buttons, ActionEdit)
	}
	if elig.CanUnsend {
		buttons = append(buttons, ActionUnsend)
	}
	buttons = append(buttons, ActionCancel)
	am.AddButtons(buttons)
	am.SetFocus(0)
	am.SetText(menuText(m, elig))
}

func menuText(m *campusv1.Message, elig *campusv1.EligibilityResponse) string {
	text := clip(m.Text, 80)
	switch {
	case elig.CanEdit || elig.CanUnsend:
		left := time.Duration(elig.RemainingMs) * time.Millisecond
		return fmt.Sprintf("%q\n\nYou can change this message for %s.", text, left.Round(time.Second))
	default:
		return fmt.Sprintf("%q\n\nThis message can no longer be changed.", text)
	}
}
