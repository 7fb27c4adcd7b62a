package rtc

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"

	"github.com/matheus3301/peerchat/internal/transport"
)

// staleAfter marks a remote track muted when no packets arrived for this long,
// which is what a sender substituting a nil track looks like.
const staleAfter = 2 * time.Second

// remoteStream is the inbound media of one call.
type remoteStream struct {
	mu     sync.Mutex
	id     string
	tracks []*remoteTrack
}

func newRemoteStream() *remoteStream {
	return &remoteStream{}
}

func (s *remoteStream) add(tr *webrtc.TrackRemote) *remoteTrack {
	t := &remoteTrack{
		id:    tr.ID(),
		kind:  tr.Kind().String(),
		label: tr.Codec().MimeType,
	}
	s.mu.Lock()
	if s.id == "" {
		s.id = tr.StreamID()
	}
	s.tracks = append(s.tracks, t)
	s.mu.Unlock()
	return t
}

func (s *remoteStream) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

func (s *remoteStream) VideoTracks() []transport.TrackInfo { return s.byKind("video") }
func (s *remoteStream) AudioTracks() []transport.TrackInfo { return s.byKind("audio") }

func (s *remoteStream) byKind(kind string) []transport.TrackInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []transport.TrackInfo
	for _, t := range s.tracks {
		if t.kind == kind {
			out = append(out, t.info(time.Now()))
		}
	}
	return out
}

func (s *remoteStream) end() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tracks {
		t.ended.Store(true)
	}
}

// remoteTrack follows one received track through its RTP packets.
type remoteTrack struct {
	id    string
	kind  string
	label string

	packets  atomic.Uint64
	bytes    atomic.Uint64
	lastSeen atomic.Int64
	ended    atomic.Bool
}

func (t *remoteTrack) read(tr *webrtc.TrackRemote) {
	defer t.ended.Store(true)
	for {
		pkt, _, err := tr.ReadRTP()
		if err != nil {
			return
		}
		t.observe(pkt, time.Now())
	}
}

func (t *remoteTrack) observe(pkt *rtp.Packet, now time.Time) {
	t.packets.Add(1)
	t.bytes.Add(uint64(len(pkt.Payload)))
	t.lastSeen.Store(now.UnixNano())
}

func (t *remoteTrack) info(now time.Time) transport.TrackInfo {
	state := "live"
	switch {
	case t.ended.Load():
		state = "ended"
	case t.packets.Load() > 0 && now.Sub(time.Unix(0, t.lastSeen.Load())) > staleAfter:
		state = "muted"
	}
	return transport.TrackInfo{ID: t.id, Kind: t.kind, Label: t.label, ReadyState: state}
}
