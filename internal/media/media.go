// Package media provides local audio/video tracks and the streams that group
// them. Sources are files decoded with pion's IVF and Ogg readers, which lets
// the client run without capture hardware.
package media

import (
	"errors"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
)

// Kind is a track media kind.
type Kind string

const (
	KindAudio Kind = "audio"
	KindVideo Kind = "video"
)

// ReadyState mirrors the lifecycle of a track.
type ReadyState string

const (
	Live  ReadyState = "live"
	Ended ReadyState = "ended"
)

var (
	// ErrNoDevice is returned when no source is configured for a request.
	ErrNoDevice = errors.New("no media device available")
	// ErrPermission is returned when a configured source cannot be opened.
	ErrPermission = errors.New("media access denied")
)

// Track is a local media track.
type Track interface {
	ID() string
	Kind() Kind
	Label() string
	ReadyState() ReadyState
	// Stop ends the track. Ended callbacks fire once.
	Stop()
	// OnEnded registers a callback run when the track ends, either by Stop
	// or because its source ran out.
	OnEnded(fn func())
	// Local returns the pion track to attach to a peer connection.
	Local() webrtc.TrackLocal
}

// Stream groups the tracks of one capture.
type Stream struct {
	id     string
	tracks []Track
}

// NewStream creates a stream over the given tracks.
func NewStream(tracks ...Track) *Stream {
	return &Stream{id: uuid.NewString(), tracks: tracks}
}

// ID returns the stream id.
func (s *Stream) ID() string { return s.id }

// Tracks returns all tracks.
func (s *Stream) Tracks() []Track { return slices.Clone(s.tracks) }

// VideoTracks returns the video tracks.
func (s *Stream) VideoTracks() []Track { return s.byKind(KindVideo) }

// AudioTracks returns the audio tracks.
func (s *Stream) AudioTracks() []Track { return s.byKind(KindAudio) }

func (s *Stream) byKind(k Kind) []Track {
	var out []Track
	for _, t := range s.tracks {
		if t.Kind() == k {
			out = append(out, t)
		}
	}
	return out
}

// Stop stops every track. Safe on nil.
func (s *Stream) Stop() {
	if s == nil {
		return
	}
	for _, t := range s.tracks {
		t.Stop()
	}
}

// Live reports whether any track is still live.
func (s *Stream) Live() bool {
	if s == nil {
		return false
	}
	for _, t := range s.tracks {
		if t.ReadyState() == Live {
			return true
		}
	}
	return false
}

// ended is embedded by tracks to implement Stop/OnEnded bookkeeping.
type ended struct {
	mu    sync.Mutex
	done  bool
	fns   []func()
	close chan struct{}
}

func newEnded() ended {
	return ended{close: make(chan struct{})}
}

func (e *ended) ReadyState() ReadyState {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.done {
		return Ended
	}
	return Live
}

func (e *ended) OnEnded(fn func()) {
	e.mu.Lock()
	if !e.done {
		e.fns = append(e.fns, fn)
		e.mu.Unlock()
		return
	}
	e.mu.Unlock()
	fn()
}

// finish marks the track ended and runs callbacks outside the lock.
func (e *ended) finish() {
	e.mu.Lock()
	if e.done {
		e.mu.Unlock()
		return
	}
	e.done = true
	close(e.close)
	fns := e.fns
	e.fns = nil
	e.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}
