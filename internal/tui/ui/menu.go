package ui

import (
	"fmt"

	"github.com/rivo/tview"
)

// Menu displays keyboard shortcut hints in columns.
type Menu struct {
	*tview.TextView
	theme   *Theme
	perLine int
}

// NewMenu creates a menu that lays out perLine hints per row.
func NewMenu(theme *Theme, perLine int) *Menu {
	if perLine <= 0 {
		perLine = 1
	}
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetBorderPadding(0, 0, 2, 0)

	return &Menu{
		TextView: tv,
		theme:    theme,
		perLine:  perLine,
	}
}

// Update renders the hints.
func (m *Menu) Update(hints []MenuHint) {
	m.Clear()
	_, _ = fmt.Fprint(m, FormatHints(hints, m.perLine, ColorName(m.theme.MenuKeyColor)))
}

// FormatHints lays out hints in rows of perLine entries.
func FormatHints(hints []MenuHint, perLine int, keyColor string) string {
	var out string
	for i, h := range hints {
		out += fmt.Sprintf("[%s::b]<%s>[-:-:-] %-12s", keyColor, h.Key, h.Description)
		if (i+1)%perLine == 0 && i+1 < len(hints) {
			out += "\n"
		}
	}
	return out
}
