package views

import (
	"fmt"
	"strings"
	"sync"

	"github.com/rivo/tview"

	"github.com/matheus3301/peerchat/internal/transport"
	"github.com/matheus3301/peerchat/internal/tui/ui"
)

// CallView is the remote media panel of the active call. A terminal
// cannot play video, so it shows what the peer is sending and redraws
// whenever the call manager re-attaches the stream.
type CallView struct {
	*tview.TextView
	theme *ui.Theme
	queue ui.Queue
	names func(string) string

	mu       sync.Mutex
	visible  bool
	attached int
	onToggle func(visible bool)
}

// NewCallView creates a hidden call panel.
func NewCallView(theme *ui.Theme, queue ui.Queue, names func(string) string) *CallView {
	if names == nil {
		names = func(id string) string { return id }
	}
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.CallColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitleColor(theme.CallColor)
	tv.SetTitle(" Call ")

	return &CallView{
		TextView: tv,
		theme:    theme,
		queue:    queue,
		names:    names,
	}
}

// SetOnToggle sets the callback run on the UI goroutine when the panel
// appears or disappears.
func (v *CallView) SetOnToggle(fn func(visible bool)) {
	v.mu.Lock()
	v.onToggle = fn
	v.mu.Unlock()
}

// Show attaches rs, or re-attaches it after a track change.
func (v *CallView) Show(peerID string, rs transport.RemoteStream, screen bool) {
	text := v.render(peerID, rs, screen)
	v.mu.Lock()
	v.visible = true
	v.attached++
	toggle := v.onToggle
	v.mu.Unlock()

	v.queue(func() {
		v.Clear()
		_, _ = fmt.Fprint(v, text)
		if screen {
			v.SetTitle(" Screen share ")
		} else {
			v.SetTitle(" Call ")
		}
		if toggle != nil {
			toggle(true)
		}
	})
}

// Hide detaches the remote stream.
func (v *CallView) Hide() {
	v.mu.Lock()
	v.visible = false
	toggle := v.onToggle
	v.mu.Unlock()

	v.queue(func() {
		v.Clear()
		if toggle != nil {
			toggle(false)
		}
	})
}

// Visible reports whether a remote stream is attached.
func (v *CallView) Visible() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.visible
}

// Attachments counts how many times a stream was attached.
func (v *CallView) Attachments() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.attached
}

func (v *CallView) render(peerID string, rs transport.RemoteStream, screen bool) string {
	call := ui.ColorName(v.theme.CallColor)
	dim := ui.ColorName(v.theme.DimColor)

	var b strings.Builder
	fmt.Fprintf(&b, "[%s::b]%s[-:-:-]\n", call, safe(v.names(peerID)))
	fmt.Fprintf(&b, "[%s]stream %s[-]\n\n", dim, safe(rs.ID()))
	if screen {
		fmt.Fprintf(&b, "[%s::b]sharing their screen[-:-:-]\n\n", ui.ColorName(v.theme.ShareColor))
	}

	video := rs.VideoTracks()
	if len(video) == 0 {
		b.WriteString("no video\n")
	}
	for _, t := range video {
		label := t.Label
		if label == "" {
			label = t.ID
		}
		fmt.Fprintf(&b, "video  %s [%s](%s)[-]\n", safe(label), dim, safe(t.ReadyState))
	}
	audio := rs.AudioTracks()
	if len(audio) == 0 {
		b.WriteString("no audio\n")
	}
	for _, t := range audio {
		fmt.Fprintf(&b, "audio  %s [%s](%s)[-]\n", safe(t.ID), dim, safe(t.ReadyState))
	}
	return b.String()
}
