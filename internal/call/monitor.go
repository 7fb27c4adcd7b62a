package call

import (
	"strings"
	"sync"
	"time"

	"github.com/matheus3301/peerchat/internal/transport"
)

const (
	monitorInterval = 300 * time.Millisecond
)

// probes are the one-shot checks run shortly after a stream is attached.
var probes = []time.Duration{100 * time.Millisecond, 500 * time.Millisecond}

// IsScreenShare reports whether a track label looks like a display capture.
func IsScreenShare(label string) bool {
	l := strings.ToLower(label)
	return strings.Contains(l, "screen") ||
		strings.Contains(l, "display") ||
		strings.Contains(l, "desktop")
}

// trackMonitor polls a remote stream for a substituted video track. Track
// replacement on the sender side produces no event on the receiver, so the
// first video track's identity is compared at a fixed interval.
type trackMonitor struct {
	stream   transport.RemoteStream
	onChange func(t transport.TrackInfo)
	visible  func() bool

	stop chan struct{}
	done chan struct{}
	once sync.Once

	last    transport.TrackInfo
	hasLast bool
}

// startTrackMonitor begins polling rs. onChange runs on the poll goroutine and
// must not block on the caller of Stop.
func startTrackMonitor(rs transport.RemoteStream, visible func() bool, onChange func(transport.TrackInfo)) *trackMonitor {
	m := &trackMonitor{
		stream:   rs,
		onChange: onChange,
		visible:  visible,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	if t, ok := firstVideo(rs); ok {
		m.last, m.hasLast = t, true
	}
	go m.run()
	return m
}

func (m *trackMonitor) run() {
	defer close(m.done)

	ticker := time.NewTicker(monitorInterval)
	defer ticker.Stop()

	probe := make(chan struct{}, len(probes))
	timers := make([]*time.Timer, 0, len(probes))
	for _, d := range probes {
		timers = append(timers, time.AfterFunc(d, func() { probe <- struct{}{} }))
	}
	defer func() {
		for _, t := range timers {
			t.Stop()
		}
	}()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.check()
		case <-probe:
			m.check()
		}
	}
}

func (m *trackMonitor) check() {
	cur, ok := firstVideo(m.stream)
	if !ok {
		m.hasLast = false
		return
	}
	switch {
	case !m.hasLast:
		m.onChange(cur)
	case cur.ID != m.last.ID || cur.Label != m.last.Label:
		m.onChange(cur)
	case cur.ReadyState != m.last.ReadyState:
		m.onChange(cur)
	case IsScreenShare(cur.Label) && !m.visible():
		m.onChange(cur)
	}
	m.last, m.hasLast = cur, true
}

// Stop ends polling and waits for the poll goroutine to exit. Safe on nil and
// safe to call more than once.
func (m *trackMonitor) Stop() {
	if m == nil {
		return
	}
	m.once.Do(func() { close(m.stop) })
	<-m.done
}

func firstVideo(rs transport.RemoteStream) (transport.TrackInfo, bool) {
	if rs == nil {
		return transport.TrackInfo{}, false
	}
	tracks := rs.VideoTracks()
	if len(tracks) == 0 {
		return transport.TrackInfo{}, false
	}
	return tracks[0], true
}
