package ui

import (
	"strings"
	"testing"
	"time"

	"github.com/rivo/tview"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		mode     PromptMode
		in       string
		wantMode PromptMode
		want     string
	}{
		{PromptMessage, "hello", PromptMessage, "hello"},
		{PromptMessage, ":call bob", PromptCommand, "call bob"},
		{PromptMessage, "::)", PromptMessage, ":)"},
		{PromptMessage, "   ", PromptMessage, ""},
		{PromptCommand, " quit ", PromptCommand, "quit"},
		{PromptFilter, "bo", PromptFilter, "bo"},
	}
	for _, tt := range tests {
		mode, text := Classify(tt.mode, tt.in)
		if mode != tt.wantMode || text != tt.want {
			t.Errorf("Classify(%d, %q) = %d, %q; want %d, %q", tt.mode, tt.in, mode, text, tt.wantMode, tt.want)
		}
	}
}

func TestPagesStack(t *testing.T) {
	p := NewPages()
	for _, n := range []string{"main", "help", "search"} {
		p.AddPage(n, tview.NewBox(), true, false)
	}
	var seen [][]string
	p.SetOnChange(func(stack []string) { seen = append(seen, stack) })

	p.Reset("main")
	p.Push("help")
	if p.Current() != "help" || p.Depth() != 2 {
		t.Fatalf("current=%q depth=%d", p.Current(), p.Depth())
	}
	if got := p.Pop(); got != "help" {
		t.Fatalf("Pop() = %q", got)
	}
	if got := p.Pop(); got != "" {
		t.Fatalf("root page popped: %q", got)
	}
	if p.Current() != "main" {
		t.Fatalf("current = %q", p.Current())
	}
	if len(seen) != 3 {
		t.Fatalf("onChange fired %d times, want 3", len(seen))
	}
}

func TestPagesOverlay(t *testing.T) {
	p := NewPages()
	p.AddPage("main", tview.NewBox(), true, true)
	p.Reset("main")

	p.Overlay("confirm-1", tview.NewModal())
	p.Overlay("alert-2", tview.NewModal())
	if got := p.Overlays(); len(got) != 2 || got[1] != "alert-2" {
		t.Fatalf("Overlays() = %v", got)
	}
	if name, _ := p.GetFrontPage(); name != "alert-2" {
		t.Fatalf("front page = %q", name)
	}

	p.Dismiss("confirm-1")
	if got := p.Overlays(); len(got) != 1 || got[0] != "alert-2" {
		t.Fatalf("Overlays() after dismiss = %v", got)
	}
	if p.HasPage("confirm-1") {
		t.Fatal("dismissed overlay still present")
	}
	if p.Current() != "main" {
		t.Fatal("overlay changed the stack")
	}
}

func TestFlashExpiry(t *testing.T) {
	f := NewFlashModel()
	now := time.Now()
	f.now = func() time.Time { return now }

	if f.GetMessage() != nil {
		t.Fatal("empty model has a message")
	}
	f.Info("joined")
	if f.Get() != "joined" {
		t.Fatalf("Get() = %q", f.Get())
	}
	select {
	case m := <-f.Watch():
		if m.Level != FlashInfo {
			t.Fatalf("level = %v", m.Level)
		}
	default:
		t.Fatal("watchers not notified")
	}

	now = now.Add(6 * time.Second)
	if f.Get() != "" {
		t.Fatal("info message did not expire")
	}

	f.Warn("slow")
	now = now.Add(6 * time.Second)
	if f.Get() != "slow" {
		t.Fatal("warning expired too early")
	}
}

func TestFlashBar(t *testing.T) {
	fb := NewFlashBar(DefaultTheme())
	fb.Update(&FlashMessage{Text: "disk full", Level: FlashErr})
	if got := fb.GetText(true); !strings.Contains(got, "disk full") {
		t.Fatalf("flash text = %q", got)
	}
	fb.Update(nil)
	if got := fb.GetText(true); got != "" {
		t.Fatalf("cleared bar shows %q", got)
	}
}

func TestSessionInfo(t *testing.T) {
	si := NewSessionInfo(DefaultTheme())
	si.Update(&SessionData{
		Session:   "main",
		PeerID:    "abc-123",
		Room:      "lobby",
		CallState: "ACTIVE",
		CallPeer:  "Bob",
		Sharing:   true,
		Contacts:  2,
		Uptime:    90 * time.Minute,
	})
	got := si.GetText(true)
	for _, want := range []string{"abc-123", "lobby", "ACTIVE Bob", "SHARING", "1h30m", "User:     -"} {
		if !strings.Contains(got, want) {
			t.Errorf("session info missing %q:\n%s", want, got)
		}
	}
}

func TestFormatHints(t *testing.T) {
	out := FormatHints([]MenuHint{{"c", "Call"}, {"a", "Answer"}, {"q", "Quit"}}, 2, "blue")
	lines := strings.Split(out, "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2: %q", len(lines), out)
	}
	if !strings.Contains(lines[0], "<c>") || !strings.Contains(lines[1], "<q>") {
		t.Fatalf("unexpected layout: %q", out)
	}
}
