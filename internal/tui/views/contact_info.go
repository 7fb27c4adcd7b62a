package views

import (
	"fmt"
	"time"

	"github.com/rivo/tview"

	"github.com/matheus3301/peerchat/internal/chat"
	"github.com/matheus3301/peerchat/internal/contacts"
	"github.com/matheus3301/peerchat/internal/tui/ui"
)

// ContactInfo displays details about one contact.
type ContactInfo struct {
	*tview.TextView
	theme *ui.Theme
}

// NewContactInfo creates a new contact info view.
func NewContactInfo(theme *ui.Theme) *ContactInfo {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" Contact ")
	tv.SetTitleColor(theme.TitleColor)

	return &ContactInfo{
		TextView: tv,
		theme:    theme,
	}
}

// Name implements ui.Component.
func (ci *ContactInfo) Name() string { return "Details" }

// Hints implements ui.Component.
func (ci *ContactInfo) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Esc", Description: "Back"},
	}
}

// Update renders e with a summary of its history.
func (ci *ContactInfo) Update(e contacts.Entry, history []chat.Message, connected bool) {
	ci.Clear()

	fg := ui.ColorName(ci.theme.FgColor)
	ct := ui.ColorName(ci.theme.CounterColor)

	var files, images, sent int
	var last time.Time
	for _, m := range history {
		switch {
		case m.IsImage:
			images++
		case m.IsFile():
			files++
		}
		if m.IsSelf {
			sent++
		}
		last = m.Timestamp
	}
	lastActive := formatTimestamp(last, time.Now())
	if lastActive == "" {
		lastActive = "-"
	}
	name := e.Name
	if name == "" {
		name = "-"
	}

	rows := []struct{ key, value string }{
		{"Name:", safe(name)},
		{"ID:", safe(e.ID)},
		{"Connected:", fmt.Sprint(connected)},
		{"Unread:", fmt.Sprint(e.Unread)},
		{"Messages:", fmt.Sprintf("%d (%d sent)", len(history), sent)},
		{"Images:", fmt.Sprint(images)},
		{"Files:", fmt.Sprint(files)},
		{"Last active:", lastActive},
	}
	_, _ = fmt.Fprint(ci, "\n")
	for _, r := range rows {
		_, _ = fmt.Fprintf(ci, " [%s::b]%-13s[-:-:-] [%s]%s[-]\n", fg, r.key, ct, r.value)
	}
	ci.SetTitle(fmt.Sprintf(" %s ", safe(e.Label())))
}
