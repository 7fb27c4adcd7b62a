package tui

import (
	"context"
	"fmt"
	"sync"

	"github.com/rivo/tview"
	"go.uber.org/zap"
)

// Dialogs shows modal questions and alerts over the current page. It is
// the call manager's prompter: Confirm blocks its caller, never the UI.
type Dialogs struct {
	screen *Screen
	logger *zap.Logger

	mu      sync.Mutex
	seq     int
	open    []question
	restore func()
}

type question struct {
	name   string
	answer chan bool
}

// NewDialogs creates the dialog layer of s.
func NewDialogs(s *Screen, logger *zap.Logger) *Dialogs {
	return &Dialogs{
		screen: s,
		logger: logger.Named("dialogs"),
	}
}

// SetRestore sets what receives focus once the last dialog closes.
func (d *Dialogs) SetRestore(fn func()) {
	d.mu.Lock()
	d.restore = fn
	d.mu.Unlock()
}

// Confirm asks a yes/no question and waits for the answer. A cancelled
// ctx withdraws the question and counts as no.
func (d *Dialogs) Confirm(ctx context.Context, msg string) bool {
	q := question{answer: make(chan bool, 1)}
	d.mu.Lock()
	d.seq++
	q.name = fmt.Sprintf("confirm-%d", d.seq)
	d.open = append(d.open, q)
	d.mu.Unlock()

	d.logger.Debug("asking", zap.String("question", msg))
	d.screen.Queue(func() {
		modal := tview.NewModal().
			SetText(msg).
			AddButtons([]string{"Yes", "No"}).
			SetDoneFunc(func(_ int, label string) {
				d.resolve(q.name, label == "Yes")
			})
		d.show(q.name, modal)
	})

	select {
	case ok := <-q.answer:
		return ok
	case <-ctx.Done():
		d.resolve(q.name, false)
		return false
	}
}

// Alert shows msg until dismissed.
func (d *Dialogs) Alert(msg string) {
	d.mu.Lock()
	d.seq++
	name := fmt.Sprintf("alert-%d", d.seq)
	d.mu.Unlock()

	d.logger.Info("alert", zap.String("message", msg))
	d.screen.Queue(func() {
		modal := tview.NewModal().
			SetText(msg).
			AddButtons([]string{"OK"}).
			SetDoneFunc(func(int, string) {
				d.dismiss(name)
			})
		d.show(name, modal)
	})
}

// Answer resolves the most recent open question. It reports false when
// nothing is being asked.
func (d *Dialogs) Answer(ok bool) bool {
	d.mu.Lock()
	if len(d.open) == 0 {
		d.mu.Unlock()
		return false
	}
	name := d.open[len(d.open)-1].name
	d.mu.Unlock()
	d.resolve(name, ok)
	return true
}

// Pending returns how many questions wait for an answer.
func (d *Dialogs) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.open)
}

func (d *Dialogs) resolve(name string, ok bool) {
	d.mu.Lock()
	var ch chan bool
	for i, q := range d.open {
		if q.name == name {
			ch = q.answer
			d.open = append(d.open[:i], d.open[i+1:]...)
			break
		}
	}
	d.mu.Unlock()
	if ch == nil {
		return
	}
	ch <- ok
	d.dismiss(name)
}

func (d *Dialogs) show(name string, modal *tview.Modal) {
	d.screen.Pages.Overlay(name, modal)
	d.screen.Focus(modal)
}

func (d *Dialogs) dismiss(name string) {
	d.screen.Queue(func() {
		pages := d.screen.Pages
		pages.Dismiss(name)
		if open := pages.Overlays(); len(open) > 0 {
			if top := pages.GetPage(open[len(open)-1]); top != nil {
				d.screen.Focus(top)
			}
			return
		}
		d.mu.Lock()
		restore := d.restore
		d.mu.Unlock()
		if restore != nil {
			restore()
		}
	})
}
