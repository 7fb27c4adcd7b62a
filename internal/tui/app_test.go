package tui

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"go.uber.org/zap"

	"github.com/matheus3301/peerchat/internal/api"
	"github.com/matheus3301/peerchat/internal/bus"
	"github.com/matheus3301/peerchat/internal/call"
	"github.com/matheus3301/peerchat/internal/chat"
	"github.com/matheus3301/peerchat/internal/contacts"
	"github.com/matheus3301/peerchat/internal/media"
	"github.com/matheus3301/peerchat/internal/outbox"
	"github.com/matheus3301/peerchat/internal/store"
)

type fakeChats struct {
	view    chat.View
	history map[string][]chat.Message
}

func (f *fakeChats) SetView(v chat.View) error { f.view = v; return nil }

func (f *fakeChats) History(peerID string) ([]chat.Message, error) {
	return f.history[peerID], nil
}

type fakeInbox struct {
	mu     sync.Mutex
	active string
}

func (f *fakeInbox) Select(peerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.active = peerID
	return nil
}

func (f *fakeInbox) Active() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active
}

type fakeConns struct{ peers []string }

func (f fakeConns) Peers() []string { return f.peers }

type fakeCalls struct {
	mu     sync.Mutex
	called []string
	hungUp int
	camera string
}

func (f *fakeCalls) State() call.State { return call.Idle }
func (f *fakeCalls) Peer() string      { return "" }
func (f *fakeCalls) Sharing() bool     { return false }

func (f *fakeCalls) Call(_ context.Context, peerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.called = append(f.called, peerID)
	return nil
}

func (f *fakeCalls) AnswerPending(context.Context) error { return errors.New("no incoming call") }

func (f *fakeCalls) Hangup(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hungUp++
	return nil
}

func (f *fakeCalls) ToggleShare(context.Context) error { return nil }

func (f *fakeCalls) Devices() []media.DeviceInfo {
	return []media.DeviceInfo{{ID: "cam0", Label: "Built-in"}}
}

func (f *fakeCalls) SelectedCamera() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.camera
}

func (f *fakeCalls) SelectCamera(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.camera = id
	return nil
}

func (f *fakeCalls) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.called...)
}

type sent struct{ peerID, text string }

type fakeSender struct {
	mu   sync.Mutex
	sent []sent
}

func (f *fakeSender) QueueText(peerID, text string) (string, error) {
	if peerID == "" {
		return "", errNoContact
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sent{peerID, text})
	return "m1", nil
}

func (f *fakeSender) QueueFile(peerID, filename, _ string, _ []byte) (string, error) {
	return f.QueueText(peerID, "file:"+filename)
}

func (f *fakeSender) all() []sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sent(nil), f.sent...)
}

type fakeSession struct {
	mu     sync.Mutex
	info   api.SessionInfo
	joined string
}

func (f *fakeSession) Info() api.SessionInfo {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.info
}

func (f *fakeSession) Join(_ context.Context, room string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.joined = room
	return nil
}

func (f *fakeSession) Refresh(context.Context) error { return nil }

func (f *fakeSession) room() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.joined
}

type fakeSearcher struct{}

func (fakeSearcher) SearchMessages(query, _ string, _ int) ([]store.SearchResult, error) {
	return []store.SearchResult{{
		Message: store.Message{PeerID: "p-bob", Content: query, Sender: "Bob"},
		Snippet: query,
	}}, nil
}

type harness struct {
	ui      *UI
	q       *testQueue
	inbox   *fakeInbox
	calls   *fakeCalls
	sender  *fakeSender
	session *fakeSession
	chats   *fakeChats
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	q := &testQueue{}
	s := newScreenWithQueue(q.post)

	dir := contacts.NewDirectory(nil)
	dir.SetName("p-bob", "Bob")
	dir.SetName("p-carol", "Carol")
	dir.ApplyRoster([]contacts.Peer{{ID: "p-bob", Name: "Bob"}, {ID: "p-carol", Name: "Carol"}}, "p-me")

	h := &harness{
		q:       q,
		inbox:   &fakeInbox{},
		calls:   &fakeCalls{},
		sender:  &fakeSender{},
		session: &fakeSession{info: api.SessionInfo{Name: "default", Signaling: "http://localhost:9000"}},
		chats:   &fakeChats{history: map[string][]chat.Message{}},
	}
	h.ui = New(Options{
		Downloads: t.TempDir(),
		Screen:    s,
		Dialogs:   NewDialogs(s, zap.NewNop()),
		Chats:     h.chats,
		Inbox:     h.inbox,
		Contacts:  dir,
		Conns:     fakeConns{peers: []string{"p-bob"}},
		Calls:     h.calls,
		Sender:    h.sender,
		Session:   h.session,
		Search:    fakeSearcher{},
		Bus:       bus.New(),
		Logger:    zap.NewNop(),
	})
	h.ui.refreshContacts()
	q.flush()
	t.Cleanup(h.ui.Stop)
	return h
}

func (h *harness) flash() string { return h.ui.flash.Get() }

func TestSendTextToOpenConversation(t *testing.T) {
	h := newHarness(t)
	h.inbox.active = "p-bob"

	h.ui.sendText("hello bob")
	waitFor(t, "send", func() bool { return len(h.sender.all()) == 1 })
	if got := h.sender.all()[0]; got != (sent{"p-bob", "hello bob"}) {
		t.Fatalf("sent %+v", got)
	}
}

func TestSendWithoutConversationWarns(t *testing.T) {
	h := newHarness(t)
	h.ui.sendText("anyone?")
	waitFor(t, "warning", func() bool { return strings.Contains(h.flash(), "no contact selected") })
}

func TestCallCommandResolvesName(t *testing.T) {
	h := newHarness(t)
	h.ui.Execute("call carol")
	waitFor(t, "call", func() bool { return len(h.calls.calls()) == 1 })
	if got := h.calls.calls()[0]; got != "p-carol" {
		t.Fatalf("called %q", got)
	}
}

func TestCallDefaultsToOpenConversation(t *testing.T) {
	h := newHarness(t)
	h.inbox.Select("p-bob")
	h.ui.Execute("c")
	waitFor(t, "call", func() bool { return len(h.calls.calls()) == 1 })
	if got := h.calls.calls()[0]; got != "p-bob" {
		t.Fatalf("called %q", got)
	}
}

func TestCallUnknownContact(t *testing.T) {
	h := newHarness(t)
	h.ui.Execute("call zed")
	if got := h.flash(); got != `call: no contact matches "zed"` {
		t.Fatalf("flash = %q", got)
	}
	if len(h.calls.calls()) != 0 {
		t.Fatal("unexpected call")
	}
}

func TestAnswerErrorIsFlashed(t *testing.T) {
	h := newHarness(t)
	h.ui.Execute("answer")
	waitFor(t, "warning", func() bool { return h.flash() == "answer: no incoming call" })
}

func TestJoinCommand(t *testing.T) {
	h := newHarness(t)
	h.ui.Execute("join")
	if got := h.flash(); got != "usage: :join <room>" {
		t.Fatalf("flash = %q", got)
	}
	h.ui.Execute("join games")
	waitFor(t, "join", func() bool { return h.session.room() == "games" })
}

func TestUnknownCommand(t *testing.T) {
	h := newHarness(t)
	h.ui.Execute("dance now")
	if got := h.flash(); got != "unknown command :dance (try :help)" {
		t.Fatalf("flash = %q", got)
	}
}

func TestSaveCommandWritesAttachment(t *testing.T) {
	h := newHarness(t)
	if err := h.ui.Start(); err != nil {
		t.Fatal(err)
	}
	if h.chats.view == nil {
		t.Fatal("thread not bound to the conversation store")
	}
	h.chats.view.Reset("Bob")
	h.chats.view.AppendMessage(chat.Message{Content: "just text", Sender: "Bob", Timestamp: time.Now()})
	h.chats.view.AppendMessage(chat.Message{
		Content:   "data:text/plain;base64,aGVsbG8=",
		Sender:    "Bob",
		Filename:  "notes.txt",
		Timestamp: time.Now(),
	})

	h.ui.Execute("save 1")
	waitFor(t, "warning", func() bool { return strings.Contains(h.flash(), "not a file") })

	dir := t.TempDir()
	h.ui.Execute("save #2 " + dir)
	waitFor(t, "save", func() bool { return strings.HasPrefix(h.flash(), "Saved ") })
	data, err := os.ReadFile(filepath.Join(dir, "notes.txt"))
	if err != nil || string(data) != "hello" {
		t.Fatalf("saved %q, %v", data, err)
	}

	h.ui.Execute("save 9")
	if got := h.flash(); got != "save: no message #9" {
		t.Fatalf("flash = %q", got)
	}
}

func TestJumpKeyOpensNthContact(t *testing.T) {
	h := newHarness(t)
	h.ui.handleKey(tcell.NewEventKey(tcell.KeyRune, '2', tcell.ModNone))
	waitFor(t, "select", func() bool { return h.inbox.Active() == "p-carol" })
}

func TestPagesAndEscape(t *testing.T) {
	h := newHarness(t)
	pages := h.ui.screen.Pages

	h.ui.Execute("invite")
	if pages.Current() != pageInvite {
		t.Fatalf("page = %q", pages.Current())
	}
	h.ui.handleKey(tcell.NewEventKey(tcell.KeyEscape, 0, tcell.ModNone))
	if pages.Current() != pageMain {
		t.Fatalf("Esc left page %q", pages.Current())
	}

	h.ui.Execute("search hello")
	waitFor(t, "results", func() bool {
		h.q.flush()
		return h.ui.search.PeerAt(1) == "p-bob"
	})
	if pages.Current() != pageSearch {
		t.Fatalf("page = %q", pages.Current())
	}
}

func TestCamerasPage(t *testing.T) {
	h := newHarness(t)
	h.ui.Execute("camera cam0")
	waitFor(t, "camera", func() bool { return h.calls.SelectedCamera() == "cam0" })

	h.ui.Execute("cameras")
	waitFor(t, "page", func() bool {
		h.q.flush()
		return h.ui.screen.Pages.Current() == pageCameras
	})
}

func TestDetailsCommand(t *testing.T) {
	h := newHarness(t)
	h.chats.history["p-bob"] = []chat.Message{{Content: "hi", Sender: "Bob"}}
	h.ui.Execute("details bob")
	waitFor(t, "details", func() bool {
		h.q.flush()
		return h.ui.screen.Pages.Current() == pageDetails
	})
	if text := h.ui.details.GetText(true); !strings.Contains(text, "Connected:    true") {
		t.Fatalf("details = %q", text)
	}
}

func TestHandleEventFlashes(t *testing.T) {
	h := newHarness(t)

	h.ui.handleEvent(bus.Event{Kind: bus.PeerDisconnected, Payload: "p-bob"})
	if got := h.flash(); got != "Bob disconnected" {
		t.Fatalf("flash = %q", got)
	}
	h.ui.handleEvent(bus.Event{Kind: bus.MessageSendFailed, Payload: outbox.Ack{PeerID: "p-carol", Error: "peer unreachable"}})
	if got := h.flash(); got != "Message to Carol not delivered: peer unreachable" {
		t.Fatalf("flash = %q", got)
	}
	h.ui.handleEvent(bus.Event{Kind: bus.CallShareChanged, Payload: call.ShareChange{Sharing: true}})
	if got := h.flash(); got != "Sharing your screen" {
		t.Fatalf("flash = %q", got)
	}
}

func TestDescribeCall(t *testing.T) {
	names := func(id string) string { return strings.ToUpper(id) }
	tests := []struct {
		sc   call.StateChange
		want string
	}{
		{call.StateChange{From: call.Idle, To: call.Outgoing, PeerID: "bob"}, "Calling BOB..."},
		{call.StateChange{From: call.Idle, To: call.IncomingPending, PeerID: "bob"}, "Incoming call from BOB (a to answer)"},
		{call.StateChange{From: call.Outgoing, To: call.Active, PeerID: "bob"}, "In call with BOB"},
		{call.StateChange{From: call.Active, To: call.Idle}, "Call ended"},
		{call.StateChange{From: call.Idle, To: call.Idle}, ""},
	}
	for _, tt := range tests {
		if got := describeCall(tt.sc, names); got != tt.want {
			t.Errorf("describeCall(%v -> %v) = %q, want %q", tt.sc.From, tt.sc.To, got, tt.want)
		}
	}
}

func TestInviteLink(t *testing.T) {
	info := api.SessionInfo{Signaling: "https://rooms.example/", Room: "games", PeerID: "abc"}
	if got := InviteLink(info); got != "https://rooms.example/?peer=abc&room=games" {
		t.Fatalf("InviteLink = %q", got)
	}
	if got := InviteLink(api.SessionInfo{PeerID: "abc"}); got != "peerchat:/?peer=abc" {
		t.Fatalf("InviteLink = %q", got)
	}
}
