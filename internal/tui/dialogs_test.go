package tui

import (
	"context"
	"testing"

	"go.uber.org/zap"
)

func TestConfirmAnswered(t *testing.T) {
	q := &testQueue{}
	d := NewDialogs(newScreenWithQueue(q.post), zap.NewNop())
	restored := 0
	d.SetRestore(func() { restored++ })

	result := make(chan bool, 1)
	go func() { result <- d.Confirm(context.Background(), "Hang up the call?") }()

	waitFor(t, "question", func() bool { return d.Pending() == 1 && q.len() == 1 })
	q.flush()
	if got := d.screen.Pages.Overlays(); len(got) != 1 || got[0] != "confirm-1" {
		t.Fatalf("overlays = %v", got)
	}

	if !d.Answer(true) {
		t.Fatal("Answer found no question")
	}
	if !<-result {
		t.Fatal("Confirm returned false after yes")
	}
	q.flush()
	if got := d.screen.Pages.Overlays(); len(got) != 0 {
		t.Fatalf("overlay left open: %v", got)
	}
	if restored != 1 {
		t.Fatalf("restore called %d times", restored)
	}
	if d.Answer(false) {
		t.Fatal("Answer with nothing pending reported true")
	}
}

func TestConfirmWithdrawnOnCancel(t *testing.T) {
	q := &testQueue{}
	d := NewDialogs(newScreenWithQueue(q.post), zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan bool, 1)
	go func() { result <- d.Confirm(ctx, "Accept call from Bob?") }()

	waitFor(t, "question", func() bool { return q.len() == 1 })
	q.flush()
	cancel()
	if <-result {
		t.Fatal("cancelled question answered yes")
	}
	q.flush()
	if d.Pending() != 0 || len(d.screen.Pages.Overlays()) != 0 {
		t.Fatalf("pending=%d overlays=%v", d.Pending(), d.screen.Pages.Overlays())
	}
}

func TestAlertStacksOverQuestion(t *testing.T) {
	q := &testQueue{}
	d := NewDialogs(newScreenWithQueue(q.post), zap.NewNop())

	result := make(chan bool, 1)
	go func() { result <- d.Confirm(context.Background(), "Share your screen?") }()
	waitFor(t, "question", func() bool { return q.len() == 1 })
	q.flush()

	d.Alert("Failed to join room")
	q.flush()
	got := d.screen.Pages.Overlays()
	if len(got) != 2 || got[1] != "alert-2" {
		t.Fatalf("overlays = %v", got)
	}

	d.Answer(false)
	if <-result {
		t.Fatal("expected no")
	}
	q.flush()
	if got := d.screen.Pages.Overlays(); len(got) != 1 || got[0] != "alert-2" {
		t.Fatalf("overlays after answer = %v", got)
	}
}
