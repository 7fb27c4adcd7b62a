package views

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rivo/tview"

	"github.com/matheus3301/peerchat/internal/chat"
	"github.com/matheus3301/peerchat/internal/tui/ui"
)

// ThreadEntry is a rendered message and its display decision.
type ThreadEntry struct {
	Message      chat.Message
	Presentation chat.Presentation
}

// Thread renders the active conversation. It implements chat.View: the
// store may call it from any goroutine, and redraws are coalesced onto
// the UI goroutine.
type Thread struct {
	*tview.TextView
	theme *ui.Theme
	queue ui.Queue
	blobs chat.Opener
	now   func() time.Time

	mu      sync.Mutex
	title   string
	entries []ThreadEntry
	drawn   int
	reset   bool
	scroll  bool

	scheduled atomic.Bool
}

// NewThread creates a thread view. blobs resolves blob references when
// deciding how images are shown.
func NewThread(theme *ui.Theme, queue ui.Queue, blobs chat.Opener) *Thread {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWordWrap(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitleColor(theme.TitleColor)
	tv.SetTitle(" " + chat.NoSelectionTitle + " ")

	return &Thread{
		TextView: tv,
		theme:    theme,
		queue:    queue,
		blobs:    blobs,
		now:      time.Now,
		title:    chat.NoSelectionTitle,
	}
}

// Reset clears the thread and sets its title.
func (t *Thread) Reset(title string) {
	t.mu.Lock()
	t.title = title
	t.entries = nil
	t.drawn = 0
	t.reset = true
	t.mu.Unlock()
	t.schedule()
}

// AppendMessage adds m after the existing messages.
func (t *Thread) AppendMessage(m chat.Message) {
	e := ThreadEntry{Message: m, Presentation: chat.Present(m, t.blobs)}
	t.mu.Lock()
	t.entries = append(t.entries, e)
	t.mu.Unlock()
	t.schedule()
}

// ScrollToEnd pins the view to the newest message.
func (t *Thread) ScrollToEnd() {
	t.mu.Lock()
	t.scroll = true
	t.mu.Unlock()
	t.schedule()
}

// Entry returns the nth message shown (1-based).
func (t *Thread) Entry(n int) (ThreadEntry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if n < 1 || n > len(t.entries) {
		return ThreadEntry{}, false
	}
	return t.entries[n-1], true
}

// Len returns the number of messages shown.
func (t *Thread) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Title returns the conversation title.
func (t *Thread) Title() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.title
}

func (t *Thread) schedule() {
	if t.scheduled.Swap(true) {
		return
	}
	t.queue(func() {
		t.scheduled.Store(false)
		t.draw()
	})
}

// draw runs on the UI goroutine and writes what changed since the last draw.
func (t *Thread) draw() {
	t.mu.Lock()
	reset, scroll := t.reset, t.scroll
	title := t.title
	start := t.drawn
	pending := append([]ThreadEntry(nil), t.entries[start:]...)
	t.reset, t.scroll = false, false
	t.drawn = len(t.entries)
	t.mu.Unlock()

	if reset {
		t.Clear()
		t.SetTitle(" " + safe(title) + " ")
	}
	now := t.now()
	var b strings.Builder
	for i, e := range pending {
		b.WriteString(t.format(start+i+1, e, now))
	}
	if b.Len() > 0 {
		_, _ = fmt.Fprint(t, b.String())
	}
	if scroll {
		t.TextView.ScrollToEnd()
	}
}

func (t *Thread) format(n int, e ThreadEntry, now time.Time) string {
	m := e.Message
	senderColor := t.theme.PeerColor
	if m.IsSelf {
		senderColor = t.theme.SelfColor
	}
	head := fmt.Sprintf("[%s::d]#%d[-:-:-] [%s::b]%s[-:-:-] [%s]%s[-]\n",
		ui.ColorName(t.theme.DimColor), n,
		ui.ColorName(senderColor), safe(m.Sender),
		ui.ColorName(t.theme.DimColor), formatTimestamp(m.Timestamp, now))

	att := ui.ColorName(t.theme.AttachmentColor)
	var body string
	switch p := e.Presentation; p.Kind {
	case chat.PresentImage:
		name := p.Filename
		if name == "" {
			name = "image"
		}
		body = fmt.Sprintf("[%s]▣ %s (%s %dx%d)[-]  [::d]:save %d[-:-:-]", att, safe(name), p.Format, p.Width, p.Height, n)
	case chat.PresentFile:
		body = fmt.Sprintf("[%s]⎙ %s[-]  [::d]:save %d[-:-:-]", att, safe(p.Filename), n)
	default:
		body = safe(p.Text)
	}
	return head + body + "\n\n"
}

// Name implements ui.Component.
func (t *Thread) Name() string { return "Thread" }

// Hints implements ui.Component.
func (t *Thread) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "i", Description: "Compose"},
		{Key: "Esc", Description: "Contacts"},
	}
}
