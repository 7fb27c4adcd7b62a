package rtc

import (
	"errors"
	"fmt"
	"sync"

	"github.com/pion/webrtc/v4"
	"go.uber.org/zap"

	"github.com/matheus3301/peerchat/internal/media"
	"github.com/matheus3301/peerchat/internal/transport"
)

// ErrNoVideoSender is returned when a call carries no video sender to
// substitute into.
var ErrNoVideoSender = errors.New("call has no video sender")

// mediaConn is a transport.MediaConn over a pion peer connection.
type mediaConn struct {
	n      *negotiation
	offer  *webrtc.SessionDescription
	remote *remoteStream
	logger *zap.Logger

	mu       sync.Mutex
	video    *webrtc.RTPSender
	answered bool
	fired    bool
	closed   bool
	onStream []func(transport.RemoteStream)
	onClose  []func()
	onError  []func(error)
}

// newMediaConn wires a call. offer is set for inbound calls.
func newMediaConn(n *negotiation, offer *webrtc.SessionDescription, logger *zap.Logger) *mediaConn {
	c := &mediaConn{n: n, offer: offer, remote: newRemoteStream(), logger: logger}
	n.pc.OnTrack(func(tr *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		rt := c.remote.add(tr)
		go rt.read(tr)
		c.logger.Debug("remote track",
			zap.String("peer", n.peer), zap.String("kind", tr.Kind().String()), zap.String("track", tr.ID()))
		c.fireStream()
	})
	return c
}

func (c *mediaConn) Peer() string { return c.n.peer }

// addStream adds the local tracks. Missing kinds get a silent placeholder so
// a sender exists for later substitution.
func (c *mediaConn) addStream(s *media.Stream) error {
	var tracks []media.Track
	if s != nil {
		tracks = s.Tracks()
	}
	have := map[media.Kind]bool{}
	for _, t := range tracks {
		sender, err := c.n.pc.AddTrack(t.Local())
		if err != nil {
			return fmt.Errorf("add %s track: %w", t.Kind(), err)
		}
		go drainRTCP(sender)
		if t.Kind() == media.KindVideo && !have[media.KindVideo] {
			c.mu.Lock()
			c.video = sender
			c.mu.Unlock()
		}
		have[t.Kind()] = true
	}

	for _, k := range []media.Kind{media.KindAudio, media.KindVideo} {
		if have[k] {
			continue
		}
		placeholder, err := newPlaceholder(k)
		if err != nil {
			return err
		}
		sender, err := c.n.pc.AddTrack(placeholder)
		if err != nil {
			return fmt.Errorf("add %s placeholder: %w", k, err)
		}
		go drainRTCP(sender)
		if k == media.KindVideo {
			c.mu.Lock()
			c.video = sender
			c.mu.Unlock()
		}
	}
	return nil
}

func newPlaceholder(k media.Kind) (webrtc.TrackLocal, error) {
	capability := webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus, ClockRate: 48000, Channels: 2}
	if k == media.KindVideo {
		capability = webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8, ClockRate: 90000}
	}
	t, err := webrtc.NewTrackLocalStaticSample(capability, string(k)+"-placeholder", browserName)
	if err != nil {
		return nil, fmt.Errorf("%s placeholder: %w", k, err)
	}
	return t, nil
}

// drainRTCP reads sender RTCP so interceptors keep working.
func drainRTCP(sender *webrtc.RTPSender) {
	buf := make([]byte, 1500)
	for {
		if _, _, err := sender.Read(buf); err != nil {
			return
		}
	}
}

func (c *mediaConn) Answer(stream *media.Stream) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.offer == nil || c.answered {
		c.mu.Unlock()
		return errors.New("no offer to answer")
	}
	c.answered = true
	offer := *c.offer
	c.mu.Unlock()

	if err := c.n.setRemote(offer); err != nil {
		c.mu.Lock()
		c.answered = false
		c.mu.Unlock()
		return err
	}
	if err := c.addStream(stream); err != nil {
		return err
	}
	if err := c.n.answer(); err != nil {
		return err
	}
	c.logger.Info("call answered", zap.String("peer", c.n.peer))
	return nil
}

func (c *mediaConn) ReplaceVideoTrack(t media.Track) error {
	c.mu.Lock()
	sender := c.video
	c.mu.Unlock()
	if sender == nil {
		return ErrNoVideoSender
	}
	var local webrtc.TrackLocal
	if t != nil {
		local = t.Local()
	}
	if err := sender.ReplaceTrack(local); err != nil {
		return fmt.Errorf("replace video track: %w", err)
	}
	return nil
}

func (c *mediaConn) fireStream() {
	c.mu.Lock()
	if c.fired || c.closed {
		c.mu.Unlock()
		return
	}
	c.fired = true
	fns := append([]func(transport.RemoteStream){}, c.onStream...)
	c.mu.Unlock()
	for _, fn := range fns {
		fn(c.remote)
	}
}

func (c *mediaConn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	fns := c.onClose
	c.onClose = nil
	c.mu.Unlock()

	c.n.close()
	c.remote.end()
	for _, fn := range fns {
		fn()
	}
	return nil
}

func (c *mediaConn) OnStream(fn func(transport.RemoteStream)) {
	c.mu.Lock()
	fired := c.fired
	c.onStream = append(c.onStream, fn)
	c.mu.Unlock()
	if fired {
		fn(c.remote)
	}
}

func (c *mediaConn) OnClose(fn func()) {
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

func (c *mediaConn) OnError(fn func(error)) {
	c.mu.Lock()
	c.onError = append(c.onError, fn)
	c.mu.Unlock()
}
