// Package connmgr keeps at most one live data connection per peer and routes
// everything received on them into the inbox.
package connmgr

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/matheus3301/peerchat/internal/bus"
	"github.com/matheus3301/peerchat/internal/chat"
	"github.com/matheus3301/peerchat/internal/transport"
)

// Classifier turns a received frame into a message.
type Classifier interface {
	Handle(peerID string, f transport.Frame) chat.Message
}

// Sink receives classified messages. Seen runs when a connection to peerID
// opens, inbound or outbound.
type Sink interface {
	Deliver(peerID string, m chat.Message) error
	Seen(peerID string)
}

var (
	// ErrNoPeer is returned when no peer id is given.
	ErrNoPeer = errors.New("no peer selected")

	// ErrClosedBeforeOpen is reported to a send whose connection closed
	// before it ever opened.
	ErrClosedBeforeOpen = errors.New("connection closed before it opened")
)

type entry struct {
	conn transport.DataConn

	// failed is set when the connection reports an error before opening.
	failed bool
}

// Manager caches data connections by peer id.
type Manager struct {
	mu         sync.Mutex
	conns      map[string]*entry
	dialer     transport.Dialer
	classifier Classifier
	sink       Sink
	bus        *bus.Bus
	logger     *zap.Logger
}

// New creates a connection manager.
func New(dialer transport.Dialer, classifier Classifier, sink Sink, b *bus.Bus, logger *zap.Logger) *Manager {
	return &Manager{
		conns:      make(map[string]*entry),
		dialer:     dialer,
		classifier: classifier,
		sink:       sink,
		bus:        b,
		logger:     logger.Named("connmgr"),
	}
}

// GetOrCreate returns the cached connection to peerID and runs then once it
// is open, immediately if it already is. A connection still connecting is
// reused. Only a missing entry or one that failed before opening is redialed;
// the new connection replaces the cache entry.
func (m *Manager) GetOrCreate(peerID string, then func(transport.DataConn)) (transport.DataConn, error) {
	if peerID == "" {
		return nil, ErrNoPeer
	}

	// Connect only starts negotiation, so holding mu keeps two concurrent
	// callers from dialing the same peer.
	m.mu.Lock()
	if e, ok := m.conns[peerID]; ok && (e.conn.Open() || !e.failed) {
		c := e.conn
		m.mu.Unlock()
		if then != nil {
			c.OnOpen(func() { then(c) })
		}
		return c, nil
	}
	c, err := m.dialer.Connect(peerID, transport.ConnectOptions{Reliable: true})
	if err != nil {
		m.mu.Unlock()
		return nil, fmt.Errorf("connect to %s: %w", peerID, err)
	}
	prev := m.swap(c)
	m.mu.Unlock()

	m.logger.Info("connecting", zap.String("peer", peerID))
	m.retire(prev, c)
	m.wire(c)
	if then != nil {
		c.OnOpen(func() { then(c) })
	}
	return c, nil
}

// Accept caches and wires an inbound connection.
func (m *Manager) Accept(c transport.DataConn) {
	m.logger.Info("inbound connection", zap.String("peer", c.Peer()))
	m.mu.Lock()
	prev := m.swap(c)
	m.mu.Unlock()
	m.retire(prev, c)
	m.wire(c)
}

// Send delivers f to peerID, connecting first if needed. done, if non-nil,
// receives the send result exactly once: after the send, or with
// ErrClosedBeforeOpen if the connection closes first.
func (m *Manager) Send(peerID string, f transport.Frame, done func(error)) error {
	var once sync.Once
	finish := func(err error) {
		once.Do(func() {
			if done != nil {
				done(err)
			}
		})
	}
	c, err := m.GetOrCreate(peerID, func(c transport.DataConn) {
		err := c.Send(f)
		if err != nil {
			m.logger.Warn("send failed", zap.String("peer", peerID), zap.Error(err))
		}
		finish(err)
	})
	if err != nil {
		return err
	}
	if !c.Open() {
		c.OnClose(func() { finish(ErrClosedBeforeOpen) })
	}
	return nil
}

// Connection returns the cached connection for peerID, if any.
func (m *Manager) Connection(peerID string) (transport.DataConn, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.conns[peerID]
	if !ok {
		return nil, false
	}
	return e.conn, true
}

// Peers returns the ids with a cached connection.
func (m *Manager) Peers() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.conns))
	for id := range m.conns {
		out = append(out, id)
	}
	return out
}

// Close closes every cached connection.
func (m *Manager) Close() {
	m.mu.Lock()
	conns := m.conns
	m.conns = make(map[string]*entry)
	m.mu.Unlock()
	for _, e := range conns {
		_ = e.conn.Close()
	}
}

// swap installs c as the cache entry for its peer and returns the previous
// connection, if any. Callers hold mu.
func (m *Manager) swap(c transport.DataConn) transport.DataConn {
	peerID := c.Peer()
	var prev transport.DataConn
	if e, ok := m.conns[peerID]; ok {
		prev = e.conn
	}
	m.conns[peerID] = &entry{conn: c}
	return prev
}

func (m *Manager) retire(prev, c transport.DataConn) {
	if prev != nil && prev != c {
		_ = prev.Close()
	}
}

// wire routes c's events into the bus and the sink.
func (m *Manager) wire(c transport.DataConn) {
	peerID := c.Peer()

	c.OnOpen(func() {
		m.logger.Info("connection open", zap.String("peer", peerID))
		m.sink.Seen(peerID)
		m.bus.Emit(bus.PeerConnected, peerID)
	})
	c.OnData(func(f transport.Frame) {
		msg := m.classifier.Handle(peerID, f)
		if err := m.sink.Deliver(peerID, msg); err != nil {
			m.logger.Error("deliver failed", zap.String("peer", peerID), zap.Error(err))
		}
	})
	c.OnClose(func() {
		m.mu.Lock()
		if e, ok := m.conns[peerID]; ok && e.conn == c {
			delete(m.conns, peerID)
		}
		m.mu.Unlock()
		m.logger.Info("connection closed", zap.String("peer", peerID))
		m.bus.Emit(bus.PeerDisconnected, peerID)
	})
	c.OnError(func(err error) {
		m.mu.Lock()
		if e, ok := m.conns[peerID]; ok && e.conn == c && !c.Open() {
			e.failed = true
		}
		m.mu.Unlock()
		m.logger.Warn("connection error", zap.String("peer", peerID), zap.Error(err))
	})
}
