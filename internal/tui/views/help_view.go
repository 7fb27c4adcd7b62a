package views

import (
	"fmt"

	"github.com/rivo/tview"

	"github.com/matheus3301/peerchat/internal/tui/ui"
)

// HelpView displays the key binding and command reference.
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

	return &HelpView{
		TextView: tv,
		theme:    theme,
	}
}

// Name implements ui.Component.
func (hv *HelpView) Name() string { return "Help" }

// Hints implements ui.Component.
func (hv *HelpView) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Esc", Description: "Back"},
	}
}

// Update renders the reference.
func (hv *HelpView) Update(keys, commands []ui.MenuHint) {
	hv.Clear()
	kc := ui.ColorName(hv.theme.MenuKeyColor)

	section := func(title string, hints []ui.MenuHint) {
		_, _ = fmt.Fprintf(hv, "\n  [::b]%s[-:-:-]\n\n", title)
		for _, h := range hints {
			_, _ = fmt.Fprintf(hv, "  [%s]%-24s[-:-:-] %s\n", kc, tview.Escape(h.Key), h.Description)
		}
	}
	section("Keys", keys)
	section("Commands", commands)
	_, _ = fmt.Fprint(hv, "\n  Lines typed in the composer are sent to the selected contact.\n  Start a line with :: to send a literal colon.\n")
}
