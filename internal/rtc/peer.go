package rtc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
	"go.uber.org/zap"

	"github.com/matheus3301/peerchat/internal/media"
	"github.com/matheus3301/peerchat/internal/transport"
)

const (
	kindData  = "data"
	kindMedia = "media"

	serializationJSON = "json"
	browserName       = "peerchat"
)

// ErrClosed is returned for operations on a closed connection.
var ErrClosed = errors.New("connection closed")

// sdpPayload is the OFFER/ANSWER payload.
type sdpPayload struct {
	SDP           webrtc.SessionDescription `json:"sdp"`
	Type          string                    `json:"type"`
	ConnectionID  string                    `json:"connectionId"`
	Label         string                    `json:"label,omitempty"`
	Reliable      bool                      `json:"reliable,omitempty"`
	Serialization string                    `json:"serialization,omitempty"`
	Browser       string                    `json:"browser,omitempty"`
}

// candidatePayload is the CANDIDATE payload.
type candidatePayload struct {
	Candidate    webrtc.ICECandidateInit `json:"candidate"`
	Type         string                  `json:"type"`
	ConnectionID string                  `json:"connectionId"`
}

// closer is the connection that owns a negotiation.
type closer interface {
	Close() error
}

// negotiation is one peer connection bound to a broker connection id.
type negotiation struct {
	id   string
	peer string
	kind string
	pc   *webrtc.PeerConnection
	ep   *Endpoint

	mu        sync.Mutex
	owner     closer
	remoteSet bool
	pending   []webrtc.ICECandidateInit
}

// Endpoint is this client's presence on the broker. It implements
// transport.Dialer and dispatches inbound connections and calls.
type Endpoint struct {
	api    *webrtc.API
	config webrtc.Configuration
	broker *Broker
	logger *zap.Logger

	mu           sync.Mutex
	negs         map[string]*negotiation
	onConnection func(transport.DataConn)
	onCall       func(transport.MediaConn)
}

// NewEndpoint creates an endpoint over a registered broker session.
func NewEndpoint(api *webrtc.API, config webrtc.Configuration, broker *Broker, logger *zap.Logger) *Endpoint {
	return &Endpoint{
		api:    api,
		config: config,
		broker: broker,
		logger: logger.Named("rtc"),
		negs:   make(map[string]*negotiation),
	}
}

// ID returns the local peer id.
func (e *Endpoint) ID() string { return e.broker.ID() }

// OnConnection registers the handler for inbound data connections.
func (e *Endpoint) OnConnection(fn func(transport.DataConn)) {
	e.mu.Lock()
	e.onConnection = fn
	e.mu.Unlock()
}

// OnCall registers the handler for inbound calls. It runs on its own
// goroutine and may block, e.g. to prompt the user.
func (e *Endpoint) OnCall(fn func(transport.MediaConn)) {
	e.mu.Lock()
	e.onCall = fn
	e.mu.Unlock()
}

// Run processes broker traffic until ctx ends or the broker fails.
func (e *Endpoint) Run(ctx context.Context) error {
	return e.broker.Run(ctx, e.handle)
}

// Connect opens a data connection to peerID.
func (e *Endpoint) Connect(peerID string, opts transport.ConnectOptions) (transport.DataConn, error) {
	id := "dc_" + uuid.NewString()
	label := opts.Label
	if label == "" {
		label = id
	}
	n, err := e.newNegotiation(peerID, id, kindData)
	if err != nil {
		return nil, err
	}

	init := &webrtc.DataChannelInit{}
	if !opts.Reliable {
		ordered := false
		retransmits := uint16(0)
		init.Ordered = &ordered
		init.MaxRetransmits = &retransmits
	}
	ch, err := n.pc.CreateDataChannel(label, init)
	if err != nil {
		n.close()
		return nil, fmt.Errorf("create data channel: %w", err)
	}

	dc := newDataConn(n, label, e.logger)
	n.setOwner(dc)
	dc.attach(ch)

	if err := n.offer(sdpPayload{
		Type:          kindData,
		ConnectionID:  id,
		Label:         label,
		Reliable:      opts.Reliable,
		Serialization: serializationJSON,
	}); err != nil {
		_ = dc.Close()
		return nil, err
	}
	e.logger.Debug("connecting", zap.String("peer", peerID), zap.String("connection", id))
	return dc, nil
}

// Call starts a media call to peerID sending stream.
func (e *Endpoint) Call(peerID string, stream *media.Stream) (transport.MediaConn, error) {
	id := "mc_" + uuid.NewString()
	n, err := e.newNegotiation(peerID, id, kindMedia)
	if err != nil {
		return nil, err
	}
	mc := newMediaConn(n, nil, e.logger)
	n.setOwner(mc)
	if err := mc.addStream(stream); err != nil {
		_ = mc.Close()
		return nil, err
	}
	if err := n.offer(sdpPayload{Type: kindMedia, ConnectionID: id}); err != nil {
		_ = mc.Close()
		return nil, err
	}
	e.logger.Info("calling", zap.String("peer", peerID), zap.String("connection", id))
	return mc, nil
}

// Close ends every connection and leaves the broker.
func (e *Endpoint) Close() error {
	e.mu.Lock()
	negs := make([]*negotiation, 0, len(e.negs))
	for _, n := range e.negs {
		negs = append(negs, n)
	}
	e.mu.Unlock()
	for _, n := range negs {
		n.closeOwner()
	}
	return e.broker.Close()
}

func (e *Endpoint) handle(m Message) {
	switch m.Type {
	case MsgOffer:
		var p sdpPayload
		if err := json.Unmarshal(m.Payload, &p); err != nil {
			e.logger.Warn("bad offer", zap.String("peer", m.Src), zap.Error(err))
			return
		}
		e.handleOffer(m.Src, p)
	case MsgAnswer:
		var p sdpPayload
		if err := json.Unmarshal(m.Payload, &p); err != nil {
			e.logger.Warn("bad answer", zap.String("peer", m.Src), zap.Error(err))
			return
		}
		n := e.lookup(p.ConnectionID)
		if n == nil {
			e.logger.Debug("answer for unknown connection", zap.String("connection", p.ConnectionID))
			return
		}
		if err := n.setRemote(p.SDP); err != nil {
			e.logger.Warn("apply answer", zap.String("peer", m.Src), zap.Error(err))
			n.closeOwner()
		}
	case MsgCandidate:
		var p candidatePayload
		if err := json.Unmarshal(m.Payload, &p); err != nil {
			e.logger.Warn("bad candidate", zap.String("peer", m.Src), zap.Error(err))
			return
		}
		if n := e.lookup(p.ConnectionID); n != nil {
			n.addCandidate(p.Candidate)
		}
	case MsgLeave, MsgExpire:
		e.logger.Info("peer gone", zap.String("peer", m.Src), zap.String("type", m.Type))
		e.closePeer(m.Src)
	case MsgError:
		e.logger.Warn("broker error", zap.String("error", errorText(m.Payload)))
	default:
		e.logger.Debug("ignoring broker message", zap.String("type", m.Type))
	}
}

func (e *Endpoint) handleOffer(peerID string, p sdpPayload) {
	if e.lookup(p.ConnectionID) != nil {
		e.logger.Debug("duplicate offer", zap.String("connection", p.ConnectionID))
		return
	}
	n, err := e.newNegotiation(peerID, p.ConnectionID, p.Type)
	if err != nil {
		e.logger.Error("accept offer", zap.String("peer", peerID), zap.Error(err))
		return
	}

	e.mu.Lock()
	onConn, onCall := e.onConnection, e.onCall
	e.mu.Unlock()

	switch p.Type {
	case kindData:
		dc := newDataConn(n, p.Label, e.logger)
		n.setOwner(dc)
		n.pc.OnDataChannel(dc.attach)
		if onConn != nil {
			onConn(dc)
		}
		if err := n.setRemote(p.SDP); err != nil {
			dc.fail(err)
			_ = dc.Close()
			return
		}
		if err := n.answer(); err != nil {
			dc.fail(err)
			_ = dc.Close()
		}
	case kindMedia:
		offer := p.SDP
		mc := newMediaConn(n, &offer, e.logger)
		n.setOwner(mc)
		if onCall == nil {
			_ = mc.Close()
			return
		}
		go onCall(mc)
	default:
		e.logger.Warn("unknown offer type", zap.String("type", p.Type))
		n.close()
	}
}

func (e *Endpoint) lookup(id string) *negotiation {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.negs[id]
}

func (e *Endpoint) closePeer(peerID string) {
	e.mu.Lock()
	var negs []*negotiation
	for _, n := range e.negs {
		if n.peer == peerID {
			negs = append(negs, n)
		}
	}
	e.mu.Unlock()
	for _, n := range negs {
		n.closeOwner()
	}
}

func (e *Endpoint) newNegotiation(peerID, id, kind string) (*negotiation, error) {
	pc, err := e.api.NewPeerConnection(e.config)
	if err != nil {
		return nil, fmt.Errorf("new peer connection: %w", err)
	}
	n := &negotiation{id: id, peer: peerID, kind: kind, pc: pc, ep: e}

	pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			return
		}
		err := e.broker.SendTo(MsgCandidate, peerID, candidatePayload{
			Candidate:    c.ToJSON(),
			Type:         kind,
			ConnectionID: id,
		})
		if err != nil {
			e.logger.Warn("send candidate", zap.String("peer", peerID), zap.Error(err))
		}
	})
	pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		e.logger.Debug("connection state", zap.String("connection", id), zap.String("state", s.String()))
		if s == webrtc.PeerConnectionStateFailed || s == webrtc.PeerConnectionStateClosed {
			n.closeOwner()
		}
	})

	e.mu.Lock()
	e.negs[id] = n
	e.mu.Unlock()
	return n, nil
}

func (n *negotiation) setOwner(c closer) {
	n.mu.Lock()
	n.owner = c
	n.mu.Unlock()
}

func (n *negotiation) closeOwner() {
	n.mu.Lock()
	owner := n.owner
	n.mu.Unlock()
	if owner != nil {
		_ = owner.Close()
		return
	}
	n.close()
}

// close releases the peer connection and forgets the connection id.
func (n *negotiation) close() {
	n.ep.mu.Lock()
	if n.ep.negs[n.id] == n {
		delete(n.ep.negs, n.id)
	}
	n.ep.mu.Unlock()
	if err := n.pc.Close(); err != nil {
		n.ep.logger.Debug("close peer connection", zap.String("connection", n.id), zap.Error(err))
	}
}

func (n *negotiation) offer(p sdpPayload) error {
	offer, err := n.pc.CreateOffer(nil)
	if err != nil {
		return fmt.Errorf("create offer: %w", err)
	}
	if err := n.pc.SetLocalDescription(offer); err != nil {
		return fmt.Errorf("set local description: %w", err)
	}
	p.SDP = offer
	p.Browser = browserName
	return n.ep.broker.SendTo(MsgOffer, n.peer, p)
}

func (n *negotiation) answer() error {
	answer, err := n.pc.CreateAnswer(nil)
	if err != nil {
		return fmt.Errorf("create answer: %w", err)
	}
	if err := n.pc.SetLocalDescription(answer); err != nil {
		return fmt.Errorf("set local description: %w", err)
	}
	return n.ep.broker.SendTo(MsgAnswer, n.peer, sdpPayload{
		SDP:          answer,
		Type:         n.kind,
		ConnectionID: n.id,
		Browser:      browserName,
	})
}

// setRemote applies the remote description and flushes queued candidates.
func (n *negotiation) setRemote(sd webrtc.SessionDescription) error {
	if err := n.pc.SetRemoteDescription(sd); err != nil {
		return fmt.Errorf("set remote description: %w", err)
	}
	n.mu.Lock()
	n.remoteSet = true
	pending := n.pending
	n.pending = nil
	n.mu.Unlock()
	for _, c := range pending {
		if err := n.pc.AddICECandidate(c); err != nil {
			n.ep.logger.Debug("add candidate", zap.String("connection", n.id), zap.Error(err))
		}
	}
	return nil
}

// addCandidate applies c, queueing it until the remote description is set.
func (n *negotiation) addCandidate(c webrtc.ICECandidateInit) {
	n.mu.Lock()
	if !n.remoteSet {
		n.pending = append(n.pending, c)
		n.mu.Unlock()
		return
	}
	n.mu.Unlock()
	if err := n.pc.AddICECandidate(c); err != nil {
		n.ep.logger.Debug("add candidate", zap.String("connection", n.id), zap.Error(err))
	}
}
