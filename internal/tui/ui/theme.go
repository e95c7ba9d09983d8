package ui

import "github.com/gdamore/tcell/v2"

// Theme holds color constants for the TUI.
type Theme struct {
	BgColor           tcell.Color
	FgColor           tcell.Color
	DimColor          tcell.Color
	BorderColor       tcell.Color
	TableHeaderFg     tcell.Color
	TableCursorFg     tcell.Color
	TableCursorBg     tcell.Color
	CrumbActiveFg     tcell.Color
	CrumbActiveBg     tcell.Color
	CrumbInactiveFg   tcell.Color
	CrumbInactiveBg   tcell.Color
	MenuKeyColor      tcell.Color
	TitleColor        tcell.Color
	CounterColor      tcell.Color
	FlashInfoColor    tcell.Color
	FlashWarnColor    tcell.Color
	FlashErrColor     tcell.Color
	PromptBorderColor tcell.Color

	OnlineColor  tcell.Color
	OwnColor     tcell.Color
	PeerColor    tcell.Color
	PendingColor tcell.Color
	FailedColor  tcell.Color
	UnreadColor  tcell.Color
}

// DefaultTheme returns the dark theme.
func DefaultTheme() *Theme {
	return &Theme{
		BgColor:           tcell.ColorBlack,
		FgColor:           tcell.ColorCadetBlue,
		DimColor:          tcell.ColorGray,
		BorderColor:       tcell.ColorDodgerBlue,
		TableHeaderFg:     tcell.ColorWhite,
		TableCursorFg:     tcell.ColorBlack,
		TableCursorBg:     tcell.ColorAqua,
		CrumbActiveFg:     tcell.ColorBlack,
		CrumbActiveBg:     tcell.ColorOrange,
		CrumbInactiveFg:   tcell.ColorBlack,
		CrumbInactiveBg:   tcell.ColorAqua,
		MenuKeyColor:      tcell.ColorDodgerBlue,
		TitleColor:        tcell.ColorFuchsia,
		CounterColor:      tcell.ColorPapayaWhip,
		FlashInfoColor:    tcell.ColorNavajoWhite,
		FlashWarnColor:    tcell.ColorOrange,
		FlashErrColor:     tcell.ColorOrangeRed,
		PromptBorderColor: tcell.ColorDodgerBlue,
		OnlineColor:       tcell.ColorLimeGreen,
		OwnColor:          tcell.ColorLightSkyBlue,
		PeerColor:         tcell.ColorPapayaWhip,
		PendingColor:      tcell.ColorGray,
		FailedColor:       tcell.ColorOrangeRed,
		UnreadColor:       tcell.ColorOrange,
	}
}

// Tag returns a tview color tag for c, e.g. "[#00ff00]".
func Tag(c tcell.Color) string {
	return "[" + ColorName(c) + "]"
}
