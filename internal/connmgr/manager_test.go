package connmgr

import (
	"errors"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/matheus3301/peerchat/internal/bus"
	"github.com/matheus3301/peerchat/internal/chat"
	"github.com/matheus3301/peerchat/internal/media"
	"github.com/matheus3301/peerchat/internal/transport"
)

type fakeConn struct {
	mu      sync.Mutex
	peer    string
	open    bool
	closed  bool
	sent    []transport.Frame
	onOpen  []func()
	onData  []func(transport.Frame)
	onClose []func()
	onError []func(error)
}

func (c *fakeConn) Peer() string { return c.peer }
func (c *fakeConn) Open() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}
func (c *fakeConn) Send(f transport.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return errors.New("not open")
	}
	c.sent = append(c.sent, f)
	return nil
}
func (c *fakeConn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed, c.open = true, false
	fns := c.onClose
	c.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
	return nil
}
func (c *fakeConn) OnOpen(fn func()) {
	c.mu.Lock()
	open := c.open
	if !open {
		c.onOpen = append(c.onOpen, fn)
	}
	c.mu.Unlock()
	if open {
		fn()
	}
}
func (c *fakeConn) OnData(fn func(transport.Frame)) { c.onData = append(c.onData, fn) }
func (c *fakeConn) OnClose(fn func()) {
	c.mu.Lock()
	closed := c.closed
	if !closed {
		c.onClose = append(c.onClose, fn)
	}
	c.mu.Unlock()
	if closed {
		fn()
	}
}
func (c *fakeConn) OnError(fn func(error)) { c.onError = append(c.onError, fn) }

func (c *fakeConn) fireError(err error) {
	for _, fn := range c.onError {
		fn(err)
	}
}

func (c *fakeConn) fireOpen() {
	c.mu.Lock()
	c.open = true
	fns := c.onOpen
	c.onOpen = nil
	c.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (c *fakeConn) receive(f transport.Frame) {
	for _, fn := range c.onData {
		fn(f)
	}
}

type fakeDialer struct {
	dials []*fakeConn
}

func (d *fakeDialer) Connect(peerID string, opts transport.ConnectOptions) (transport.DataConn, error) {
	if !opts.Reliable {
		return nil, errors.New("expected reliable connection")
	}
	c := &fakeConn{peer: peerID}
	d.dials = append(d.dials, c)
	return c, nil
}

func (d *fakeDialer) Call(string, *media.Stream) (transport.MediaConn, error) {
	return nil, errors.New("not supported")
}

type echoClassifier struct{}

func (echoClassifier) Handle(peerID string, f transport.Frame) chat.Message {
	return chat.NewMessage(string(f.Data), peerID)
}

type recordingSink struct {
	mu   sync.Mutex
	msgs map[string][]string
	seen []string
}

func (s *recordingSink) Seen(peerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen = append(s.seen, peerID)
}

func (s *recordingSink) Deliver(peerID string, m chat.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs[peerID] = append(s.msgs[peerID], m.Content)
	return nil
}

func newManager() (*Manager, *fakeDialer, *recordingSink) {
	d := &fakeDialer{}
	sink := &recordingSink{msgs: make(map[string][]string)}
	return New(d, echoClassifier{}, sink, bus.New(), zap.NewNop()), d, sink
}

func TestGetOrCreateReusesOpenConnection(t *testing.T) {
	m, d, _ := newManager()

	opened := 0
	first, err := m.GetOrCreate("bob", func(transport.DataConn) { opened++ })
	if err != nil {
		t.Fatal(err)
	}
	if opened != 0 {
		t.Fatal("continuation ran before the connection opened")
	}
	d.dials[0].fireOpen()
	if opened != 1 {
		t.Fatalf("continuation ran %d times, want 1", opened)
	}

	second, err := m.GetOrCreate("bob", func(transport.DataConn) { opened++ })
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Error("second call returned a different connection")
	}
	if len(d.dials) != 1 {
		t.Errorf("dialed %d times, want 1", len(d.dials))
	}
	if opened != 2 {
		t.Errorf("continuation for cached connection should run immediately")
	}
}

func TestGetOrCreateReusesPendingConnection(t *testing.T) {
	m, d, _ := newManager()

	first, _ := m.GetOrCreate("bob", nil)
	second, _ := m.GetOrCreate("bob", nil)

	if first != second {
		t.Fatal("connecting connection was not reused")
	}
	if len(d.dials) != 1 {
		t.Errorf("dialed %d times, want 1", len(d.dials))
	}
	if d.dials[0].closed {
		t.Error("pending connection should stay open")
	}
}

func TestGetOrCreateReplacesFailedConnection(t *testing.T) {
	m, d, _ := newManager()

	stale, _ := m.GetOrCreate("bob", nil)
	d.dials[0].fireError(errors.New("ice failed"))
	fresh, _ := m.GetOrCreate("bob", nil)

	if stale == fresh {
		t.Fatal("failed connection was reused")
	}
	if len(d.dials) != 2 {
		t.Errorf("dialed %d times, want 2", len(d.dials))
	}
	if cur, _ := m.Connection("bob"); cur != fresh {
		t.Error("cache should hold the newest connection")
	}
	if !d.dials[0].closed {
		t.Error("replaced connection should be closed")
	}
}

func TestCloseRemovesCacheEntry(t *testing.T) {
	m, d, _ := newManager()
	_, _ = m.GetOrCreate("bob", nil)
	d.dials[0].fireOpen()

	_ = d.dials[0].Close()
	if _, ok := m.Connection("bob"); ok {
		t.Fatal("closed connection still cached")
	}

	_, _ = m.GetOrCreate("bob", nil)
	if len(d.dials) != 2 {
		t.Errorf("next use should re-dial, dials = %d", len(d.dials))
	}
}

func TestInboundAndOutboundWiredIdentically(t *testing.T) {
	m, d, sink := newManager()

	in := &fakeConn{peer: "carol", open: true}
	m.Accept(in)
	in.receive(transport.TextFrame("from inbound"))

	_, _ = m.GetOrCreate("dave", nil)
	d.dials[0].fireOpen()
	d.dials[0].receive(transport.TextFrame("from outbound"))

	if got := sink.msgs["carol"]; len(got) != 1 || got[0] != "from inbound" {
		t.Errorf("carol = %v", got)
	}
	if got := sink.msgs["dave"]; len(got) != 1 || got[0] != "from outbound" {
		t.Errorf("dave = %v", got)
	}
}

func TestSendWaitsForOpen(t *testing.T) {
	m, d, _ := newManager()

	var result error = errors.New("not called")
	if err := m.Send("bob", transport.TextFrame(`"hi"`), func(err error) { result = err }); err != nil {
		t.Fatal(err)
	}
	if len(d.dials[0].sent) != 0 {
		t.Fatal("sent before open")
	}
	d.dials[0].fireOpen()
	if result != nil {
		t.Errorf("send result = %v", result)
	}
	if len(d.dials[0].sent) != 1 {
		t.Errorf("sent %d frames, want 1", len(d.dials[0].sent))
	}
}

func TestSendTwiceBeforeOpen(t *testing.T) {
	m, d, _ := newManager()

	var results []error
	done := func(err error) { results = append(results, err) }
	if err := m.Send("bob", transport.TextFrame(`"one"`), done); err != nil {
		t.Fatal(err)
	}
	if err := m.Send("bob", transport.TextFrame(`"two"`), done); err != nil {
		t.Fatal(err)
	}
	if len(d.dials) != 1 {
		t.Fatalf("dialed %d times, want 1", len(d.dials))
	}
	d.dials[0].fireOpen()

	if len(results) != 2 || results[0] != nil || results[1] != nil {
		t.Fatalf("results = %v", results)
	}
	sent := d.dials[0].sent
	if len(sent) != 2 || string(sent[0].Data) != `"one"` || string(sent[1].Data) != `"two"` {
		t.Errorf("sent = %v", sent)
	}
}

func TestSendReportsCloseBeforeOpen(t *testing.T) {
	m, d, _ := newManager()

	var results []error
	if err := m.Send("bob", transport.TextFrame(`"hi"`), func(err error) { results = append(results, err) }); err != nil {
		t.Fatal(err)
	}
	_ = d.dials[0].Close()

	if len(results) != 1 || !errors.Is(results[0], ErrClosedBeforeOpen) {
		t.Errorf("results = %v", results)
	}
}

func TestOpenMarksPeerSeen(t *testing.T) {
	m, d, sink := newManager()

	in := &fakeConn{peer: "carol"}
	m.Accept(in)
	if len(sink.seen) != 0 {
		t.Fatalf("seen before open: %v", sink.seen)
	}
	in.fireOpen()

	_, _ = m.GetOrCreate("dave", nil)
	d.dials[0].fireOpen()

	if len(sink.seen) != 2 || sink.seen[0] != "carol" || sink.seen[1] != "dave" {
		t.Errorf("seen = %v", sink.seen)
	}
}

func TestEmptyPeer(t *testing.T) {
	m, _, _ := newManager()
	if _, err := m.GetOrCreate("", nil); !errors.Is(err, ErrNoPeer) {
		t.Errorf("err = %v, want ErrNoPeer", err)
	}
}

func TestCloseAll(t *testing.T) {
	m, d, _ := newManager()
	_, _ = m.GetOrCreate("a", nil)
	_, _ = m.GetOrCreate("b", nil)
	m.Close()
	for _, c := range d.dials {
		if !c.closed {
			t.Errorf("%s not closed", c.peer)
		}
	}
	if len(m.Peers()) != 0 {
		t.Errorf("peers = %v", m.Peers())
	}
}
