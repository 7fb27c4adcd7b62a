package rtc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
	"go.uber.org/zap/zaptest"

	"github.com/matheus3301/peerchat/internal/transport"
)

// fakeBroker is a minimal PeerJS server: it hands out ids, registers sockets
// and relays messages by dst.
type fakeBroker struct {
	t        *testing.T
	upgrader websocket.Upgrader

	mu      sync.Mutex
	next    int
	clients map[string]*websocket.Conn
	writeMu map[string]*sync.Mutex
	beats   int
	query   map[string]string
}

func newFakeBroker(t *testing.T) (*fakeBroker, *httptest.Server) {
	b := &fakeBroker{
		t:       t,
		clients: make(map[string]*websocket.Conn),
		writeMu: make(map[string]*sync.Mutex),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/peerjs/id", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.next++
		id := "peer" + string(rune('0'+b.next))
		b.mu.Unlock()
		_, _ = w.Write([]byte(id))
	})
	mux.HandleFunc("/peerjs", b.serveWS)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return b, srv
}

func (b *fakeBroker) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	q := r.URL.Query()
	id := q.Get("id")

	b.mu.Lock()
	b.query = map[string]string{"key": q.Get("key"), "id": id, "token": q.Get("token")}
	if _, taken := b.clients[id]; taken {
		b.mu.Unlock()
		_ = conn.WriteJSON(Message{Type: MsgIDTaken})
		_ = conn.Close()
		return
	}
	b.clients[id] = conn
	b.writeMu[id] = &sync.Mutex{}
	b.mu.Unlock()

	if err := b.write(id, Message{Type: MsgOpen}); err != nil {
		return
	}
	defer func() {
		b.mu.Lock()
		delete(b.clients, id)
		b.mu.Unlock()
		_ = conn.Close()
	}()

	for {
		var m Message
		if err := conn.ReadJSON(&m); err != nil {
			return
		}
		if m.Type == MsgHeartbeat {
			b.mu.Lock()
			b.beats++
			b.mu.Unlock()
			continue
		}
		m.Src = id
		if err := b.write(m.Dst, m); err != nil {
			_ = b.write(id, Message{Type: MsgExpire, Src: m.Dst})
		}
	}
}

func (b *fakeBroker) write(id string, m Message) error {
	b.mu.Lock()
	conn, ok := b.clients[id]
	mu := b.writeMu[id]
	b.mu.Unlock()
	if !ok {
		return errors.New("unknown peer")
	}
	mu.Lock()
	defer mu.Unlock()
	return conn.WriteJSON(m)
}

func TestDialBrokerFetchesID(t *testing.T) {
	fb, srv := newFakeBroker(t)

	b, err := DialBroker(context.Background(), BrokerConfig{URL: srv.URL}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("DialBroker() error = %v", err)
	}
	defer b.Close()

	if b.ID() != "peer1" {
		t.Errorf("ID() = %q, want peer1", b.ID())
	}
	fb.mu.Lock()
	q := fb.query
	fb.mu.Unlock()
	if q["key"] != DefaultBrokerKey || q["id"] != "peer1" || q["token"] == "" {
		t.Errorf("query = %v", q)
	}
}

func TestDialBrokerIDTaken(t *testing.T) {
	_, srv := newFakeBroker(t)
	log := zaptest.NewLogger(t)

	first, err := DialBroker(context.Background(), BrokerConfig{URL: srv.URL, ID: "alice"}, log)
	if err != nil {
		t.Fatal(err)
	}
	defer first.Close()

	_, err = DialBroker(context.Background(), BrokerConfig{URL: srv.URL, ID: "alice"}, log)
	if !errors.Is(err, ErrIDTaken) {
		t.Errorf("err = %v, want ErrIDTaken", err)
	}
}

func TestBrokerRelaysAndStops(t *testing.T) {
	_, srv := newFakeBroker(t)
	log := zaptest.NewLogger(t)

	a, err := DialBroker(context.Background(), BrokerConfig{URL: srv.URL, ID: "a"}, log)
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	b, err := DialBroker(context.Background(), BrokerConfig{URL: srv.URL, ID: "b"}, log)
	if err != nil {
		t.Fatal(err)
	}

	got := make(chan Message, 1)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx, func(m Message) { got <- m }) }()

	if err := a.SendTo(MsgOffer, "b", map[string]string{"connectionId": "dc_1"}); err != nil {
		t.Fatal(err)
	}
	select {
	case m := <-got:
		if m.Type != MsgOffer || m.Src != "a" {
			t.Errorf("message = %+v", m)
		}
		var p map[string]string
		if err := json.Unmarshal(m.Payload, &p); err != nil || p["connectionId"] != "dc_1" {
			t.Errorf("payload = %s", m.Payload)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("message not relayed")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestDataChannelRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("peer connection test")
	}
	_, srv := newFakeBroker(t)
	log := zaptest.NewLogger(t)

	api, err := NewAPI(APIOptions{IncludeLoopback: true})
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	endpoint := func(id string) *Endpoint {
		b, err := DialBroker(ctx, BrokerConfig{URL: srv.URL, ID: id}, log)
		if err != nil {
			t.Fatal(err)
		}
		e := NewEndpoint(api, webrtc.Configuration{}, b, log)
		go func() { _ = e.Run(ctx) }()
		t.Cleanup(func() { _ = e.Close() })
		return e
	}
	alice, bob := endpoint("alice"), endpoint("bob")

	bob.OnConnection(func(dc transport.DataConn) {
		if dc.Peer() != "alice" {
			t.Errorf("inbound peer = %q", dc.Peer())
		}
		dc.OnData(func(f transport.Frame) {
			_ = dc.Send(transport.TextFrame("echo:" + string(f.Data)))
		})
	})

	dc, err := alice.Connect("bob", transport.ConnectOptions{Reliable: true})
	if err != nil {
		t.Fatal(err)
	}
	replies := make(chan string, 1)
	dc.OnData(func(f transport.Frame) {
		if f.Binary {
			t.Error("reply should be a text frame")
		}
		replies <- string(f.Data)
	})
	dc.OnOpen(func() {
		if err := dc.Send(transport.TextFrame(`"hello"`)); err != nil {
			t.Errorf("Send() error = %v", err)
		}
	})

	select {
	case got := <-replies:
		if got != `echo:"hello"` {
			t.Errorf("reply = %q", got)
		}
	case <-time.After(20 * time.Second):
		t.Fatal("no reply over data channel")
	}

	closed := make(chan struct{})
	dc.OnClose(func() { close(closed) })
	_ = dc.Close()
	select {
	case <-closed:
	case <-time.After(5 * time.Second):
		t.Fatal("close callback not run")
	}
	if dc.Open() {
		t.Error("closed connection reports open")
	}
}

func TestSendBeforeOpen(t *testing.T) {
	c := newDataConn(&negotiation{peer: "bob"}, "dc", zaptest.NewLogger(t))
	if err := c.Send(transport.TextFrame("x")); !errors.Is(err, ErrNotOpen) {
		t.Errorf("err = %v, want ErrNotOpen", err)
	}
}

func TestRemoteTrackState(t *testing.T) {
	now := time.Now()
	rt := &remoteTrack{id: "v1", kind: "video", label: webrtc.MimeTypeVP8}

	if got := rt.info(now).ReadyState; got != "live" {
		t.Errorf("fresh track = %s, want live", got)
	}
	rt.observe(&rtp.Packet{Payload: []byte{1, 2, 3}}, now)
	if got := rt.info(now.Add(time.Second)).ReadyState; got != "live" {
		t.Errorf("recent packets = %s, want live", got)
	}
	if got := rt.info(now.Add(3 * time.Second)).ReadyState; got != "muted" {
		t.Errorf("stale packets = %s, want muted", got)
	}
	if rt.bytes.Load() != 3 {
		t.Errorf("bytes = %d", rt.bytes.Load())
	}
	rt.ended.Store(true)
	if got := rt.info(now).ReadyState; got != "ended" {
		t.Errorf("ended track = %s", got)
	}

	s := newRemoteStream()
	s.tracks = append(s.tracks, rt, &remoteTrack{id: "a1", kind: "audio"})
	if len(s.VideoTracks()) != 1 || len(s.AudioTracks()) != 1 {
		t.Error("tracks not split by kind")
	}
}

func TestConfigurationDefaults(t *testing.T) {
	c := Configuration(nil)
	if len(c.ICEServers) != 1 || !strings.HasPrefix(c.ICEServers[0].URLs[0], "stun:") {
		t.Errorf("ICE servers = %+v", c.ICEServers)
	}
}
