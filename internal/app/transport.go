package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/pion/webrtc/v4"
	"go.uber.org/zap"

	"github.com/matheus3301/peerchat/internal/api"
	"github.com/matheus3301/peerchat/internal/media"
	"github.com/matheus3301/peerchat/internal/rtc"
	"github.com/matheus3301/peerchat/internal/transport"
)

// ErrOffline is returned while the client is not registered with the broker.
var ErrOffline = fmt.Errorf("%w: not connected to the peer broker", api.ErrNotReady)

// Transport is the session's peer transport. Components hold it from
// startup; it stays offline until Open registers with the broker.
type Transport struct {
	api    *webrtc.API
	config webrtc.Configuration
	broker rtc.BrokerConfig
	logger *zap.Logger

	mu     sync.RWMutex
	ep     *rtc.Endpoint
	onConn func(transport.DataConn)
	onCall func(transport.MediaConn)
}

// NewTransport creates an offline transport.
func NewTransport(api *webrtc.API, config webrtc.Configuration, broker rtc.BrokerConfig, logger *zap.Logger) *Transport {
	return &Transport{api: api, config: config, broker: broker, logger: logger}
}

// OnConnection registers the inbound data connection handler.
func (t *Transport) OnConnection(fn func(transport.DataConn)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onConn = fn
	if t.ep != nil {
		t.ep.OnConnection(fn)
	}
}

// OnCall registers the inbound call handler.
func (t *Transport) OnCall(fn func(transport.MediaConn)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onCall = fn
	if t.ep != nil {
		t.ep.OnCall(fn)
	}
}

// Open registers with the broker and returns the local peer id.
func (t *Transport) Open(ctx context.Context) (string, error) {
	b, err := rtc.DialBroker(ctx, t.broker, t.logger)
	if err != nil {
		return "", fmt.Errorf("open transport: %w", err)
	}
	ep := rtc.NewEndpoint(t.api, t.config, b, t.logger)

	t.mu.Lock()
	old := t.ep
	t.ep = ep
	if t.onConn != nil {
		ep.OnConnection(t.onConn)
	}
	if t.onCall != nil {
		ep.OnCall(t.onCall)
	}
	t.mu.Unlock()

	if old != nil {
		_ = old.Close()
	}
	return ep.ID(), nil
}

// Run serves broker traffic until ctx ends or the broker connection fails.
func (t *Transport) Run(ctx context.Context) error {
	ep := t.endpoint()
	if ep == nil {
		return ErrOffline
	}
	return ep.Run(ctx)
}

// ID returns the local peer id, or "" while offline.
func (t *Transport) ID() string {
	if ep := t.endpoint(); ep != nil {
		return ep.ID()
	}
	return ""
}

func (t *Transport) Connect(peerID string, opts transport.ConnectOptions) (transport.DataConn, error) {
	ep := t.endpoint()
	if ep == nil {
		return nil, ErrOffline
	}
	return ep.Connect(peerID, opts)
}

func (t *Transport) Call(peerID string, stream *media.Stream) (transport.MediaConn, error) {
	ep := t.endpoint()
	if ep == nil {
		return nil, ErrOffline
	}
	return ep.Call(peerID, stream)
}

// Close leaves the broker and ends every peer connection.
func (t *Transport) Close() error {
	t.mu.Lock()
	ep := t.ep
	t.ep = nil
	t.mu.Unlock()
	if ep == nil {
		return nil
	}
	return ep.Close()
}

func (t *Transport) endpoint() *rtc.Endpoint {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.ep
}
