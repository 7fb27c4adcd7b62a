package ui

import (
	"fmt"
	"time"

	"github.com/rivo/tview"
)

// SessionData holds session information for display.
type SessionData struct {
	Session   string
	PeerID    string
	Username  string
	Room      string
	CallState string
	CallPeer  string
	Sharing   bool
	Contacts  int
	Uptime    time.Duration
}

// SessionInfo displays session metadata in the header.
type SessionInfo struct {
	*tview.TextView
	theme *Theme
}

// NewSessionInfo creates a new session info panel.
func NewSessionInfo(theme *Theme) *SessionInfo {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetBorderPadding(0, 0, 1, 1)

	return &SessionInfo{
		TextView: tv,
		theme:    theme,
	}
}

// Update renders the session info.
func (si *SessionInfo) Update(data *SessionData) {
	si.Clear()
	if data == nil {
		return
	}
	_, _ = fmt.Fprint(si, si.format(data))
}

func (si *SessionInfo) format(data *SessionData) string {
	fg := ColorName(si.theme.FgColor)
	val := ColorName(si.theme.CounterColor)

	call := data.CallState
	if data.CallPeer != "" {
		call += " " + tview.Escape(data.CallPeer)
	}
	if data.Sharing {
		call += fmt.Sprintf(" [%s::b]SHARING[-:-:-]", ColorName(si.theme.ShareColor))
	}

	rows := []struct{ key, value string }{
		{"Session:", data.Session},
		{"Peer:", orDash(data.PeerID)},
		{"User:", orDash(data.Username)},
		{"Room:", orDash(data.Room)},
		{"Call:", call},
		{"Contacts:", fmt.Sprint(data.Contacts)},
		{"Uptime:", formatDuration(data.Uptime)},
	}
	var out string
	for i, r := range rows {
		if i > 0 {
			out += "\n"
		}
		out += fmt.Sprintf("[%s::b]%-9s[-:-:-] [%s]%s[-]", fg, r.key, val, r.value)
	}
	return out
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return tview.Escape(s)
}

func formatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh%dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}
