package rtc

import (
	"errors"
	"fmt"
	"sync"

	"github.com/pion/webrtc/v4"
	"go.uber.org/zap"

	"github.com/matheus3301/peerchat/internal/transport"
)

// ErrNotOpen is returned when sending before the channel opened.
var ErrNotOpen = errors.New("data channel not open")

// dataConn is a transport.DataConn over a pion data channel.
type dataConn struct {
	n      *negotiation
	label  string
	logger *zap.Logger

	mu      sync.Mutex
	ch      *webrtc.DataChannel
	open    bool
	closed  bool
	onOpen  []func()
	onData  []func(transport.Frame)
	onClose []func()
	onError []func(error)
}

func newDataConn(n *negotiation, label string, logger *zap.Logger) *dataConn {
	return &dataConn{n: n, label: label, logger: logger}
}

func (c *dataConn) Peer() string { return c.n.peer }

func (c *dataConn) Open() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

// attach binds the pion channel, created locally or announced by the peer.
func (c *dataConn) attach(ch *webrtc.DataChannel) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = ch.Close()
		return
	}
	c.ch = ch
	c.mu.Unlock()

	ch.OnOpen(c.handleOpen)
	ch.OnMessage(func(msg webrtc.DataChannelMessage) {
		f := transport.Frame{Binary: !msg.IsString, Data: msg.Data}
		c.mu.Lock()
		fns := append([]func(transport.Frame){}, c.onData...)
		c.mu.Unlock()
		for _, fn := range fns {
			fn(f)
		}
	})
	ch.OnClose(func() { _ = c.Close() })
	ch.OnError(c.fail)
}

func (c *dataConn) handleOpen() {
	c.mu.Lock()
	if c.closed || c.open {
		c.mu.Unlock()
		return
	}
	c.open = true
	fns := c.onOpen
	c.onOpen = nil
	c.mu.Unlock()

	c.logger.Debug("data channel open", zap.String("peer", c.n.peer), zap.String("label", c.label))
	for _, fn := range fns {
		fn()
	}
}

func (c *dataConn) fail(err error) {
	c.mu.Lock()
	fns := append([]func(error){}, c.onError...)
	c.mu.Unlock()
	for _, fn := range fns {
		fn(err)
	}
}

func (c *dataConn) Send(f transport.Frame) error {
	c.mu.Lock()
	ch, open := c.ch, c.open
	c.mu.Unlock()
	if !open || ch == nil {
		return ErrNotOpen
	}
	var err error
	if f.Binary {
		err = ch.Send(f.Data)
	} else {
		err = ch.SendText(string(f.Data))
	}
	if err != nil {
		return fmt.Errorf("send to %s: %w", c.n.peer, err)
	}
	return nil
}

func (c *dataConn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.open = false
	ch := c.ch
	fns := c.onClose
	c.onClose = nil
	c.mu.Unlock()

	if ch != nil {
		_ = ch.Close()
	}
	c.n.close()
	for _, fn := range fns {
		fn()
	}
	return nil
}

func (c *dataConn) OnOpen(fn func()) {
	c.mu.Lock()
	if !c.open {
		c.onOpen = append(c.onOpen, fn)
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()
	fn()
}

func (c *dataConn) OnData(fn func(transport.Frame)) {
	c.mu.Lock()
	c.onData = append(c.onData, fn)
	c.mu.Unlock()
}

func (c *dataConn) OnClose(fn func()) {
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

func (c *dataConn) OnError(fn func(error)) {
	c.mu.Lock()
	c.onError = append(c.onError, fn)
	c.mu.Unlock()
}
