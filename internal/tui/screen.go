package tui

import (
	"sync"

	"github.com/rivo/tview"

	"github.com/matheus3301/peerchat/internal/tui/ui"
)

// Screen is the terminal application and its page stack.
type Screen struct {
	App   *tview.Application
	Pages *ui.Pages
	Theme *ui.Theme
	queue ui.Queue

	mu      sync.Mutex
	pending []func()
	closed  bool
}

// NewScreen creates a screen whose updates run on the tview loop.
func NewScreen() *Screen {
	s := &Screen{
		App:   tview.NewApplication(),
		Pages: ui.NewPages(),
		Theme: ui.DefaultTheme(),
	}
	s.queue = s.post
	return s
}

// newScreenWithQueue creates a screen that runs updates through q.
func newScreenWithQueue(q ui.Queue) *Screen {
	s := NewScreen()
	s.queue = q
	return s
}

// Queue runs fn on the UI goroutine and redraws. It never blocks, so it
// is safe to call from the UI goroutine itself and before the loop runs.
// Updates run in the order they were queued.
func (s *Screen) Queue(fn func()) {
	s.queue(fn)
}

func (s *Screen) post(fn func()) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.pending = append(s.pending, fn)
	first := len(s.pending) == 1
	s.mu.Unlock()
	if first {
		// QueueUpdateDraw waits for the loop to run the update.
		go s.App.QueueUpdateDraw(s.drain)
	}
}

func (s *Screen) drain() {
	s.mu.Lock()
	fns := s.pending
	s.pending = nil
	s.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// Close drops queued and future updates.
func (s *Screen) Close() {
	s.mu.Lock()
	s.closed = true
	s.pending = nil
	s.mu.Unlock()
}

// Focus moves keyboard focus to p. Call it on the UI goroutine.
func (s *Screen) Focus(p tview.Primitive) {
	s.App.SetFocus(p)
}
