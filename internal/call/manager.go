// Package call runs the audio/video call state machine, desktop sharing by
// track substitution and the remote view's track monitor.
package call

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/matheus3301/peerchat/internal/bus"
	"github.com/matheus3301/peerchat/internal/media"
	"github.com/matheus3301/peerchat/internal/transport"
)

var (
	// ErrNoActiveCall is returned by operations that need a call.
	ErrNoActiveCall = errors.New("no active call")
	// ErrNoPendingCall is returned when there is no call to answer.
	ErrNoPendingCall = errors.New("no pending call")
	// ErrBusy is returned when a call is already in progress.
	ErrBusy = errors.New("call already in progress")
	// ErrNoPeer is returned when calling without a selected contact.
	ErrNoPeer = errors.New("no contact selected")
)

// RemoteView shows the remote media of the active call.
type RemoteView interface {
	// Show attaches rs to the view, or re-attaches it after a track change.
	Show(peerID string, rs transport.RemoteStream, screen bool)
	Hide()
	Visible() bool
}

// Prompter asks the user things. Confirm may block until the user answers.
type Prompter interface {
	Confirm(ctx context.Context, msg string) bool
	Alert(msg string)
}

// NameFunc resolves a peer id to a display name.
type NameFunc func(peerID string) string

// Manager owns the call session: the current call, the local camera stream,
// the desktop share stream and the track monitor.
type Manager struct {
	dialer  transport.Dialer
	devices media.Devices
	view    RemoteView
	prompt  Prompter
	names   NameFunc
	machine *Machine
	bus     *bus.Bus
	logger  *zap.Logger

	ctx  context.Context
	stop context.CancelFunc

	mu        sync.Mutex
	call      *session
	camera    *media.Stream
	cameraDev string
	cameraID  string
	desktop   *media.Stream
	monitor   *trackMonitor
}

// session is one call from dial or ring until teardown.
type session struct {
	peer   string
	conn   transport.MediaConn
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a call manager.
func New(dialer transport.Dialer, devices media.Devices, view RemoteView, prompt Prompter, names NameFunc, b *bus.Bus, logger *zap.Logger) *Manager {
	if names == nil {
		names = func(id string) string { return id }
	}
	ctx, stop := context.WithCancel(context.Background())
	return &Manager{
		dialer:  dialer,
		devices: devices,
		view:    view,
		prompt:  prompt,
		names:   names,
		machine: NewMachine(b),
		bus:     b,
		logger:  logger.Named("call"),
		ctx:     ctx,
		stop:    stop,
	}
}

// State returns the current call state.
func (m *Manager) State() State { return m.machine.Current() }

// Peer returns the remote peer of the current call.
func (m *Manager) Peer() string { return m.machine.Peer() }

// Sharing reports whether the desktop is being shared.
func (m *Manager) Sharing() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.desktop != nil
}

// Devices lists video inputs for the camera picker.
func (m *Manager) Devices() []media.DeviceInfo {
	return m.devices.VideoInputs()
}

// SelectedCamera returns the camera chosen in the picker, empty for default.
func (m *Manager) SelectedCamera() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cameraID
}

func (m *Manager) newSession(peerID string, conn transport.MediaConn) *session {
	ctx, cancel := context.WithCancel(m.ctx)
	return &session{peer: peerID, conn: conn, ctx: ctx, cancel: cancel}
}

// Call dials peerID with the desktop stream when sharing, else the camera.
func (m *Manager) Call(ctx context.Context, peerID string) error {
	if peerID == "" {
		m.prompt.Alert("Select a contact to call.")
		return ErrNoPeer
	}
	if st := m.machine.Current(); st != Idle {
		return fmt.Errorf("%w: %s", ErrBusy, st)
	}

	stream := m.desktopStream()
	if stream == nil {
		s, err := m.ensureLocalStream(ctx)
		if err != nil {
			m.logger.Warn("local media unavailable", zap.Error(err))
			m.prompt.Alert("Unable to get local media")
			return err
		}
		stream = s
	}

	conn, err := m.dialer.Call(peerID, stream)
	if err != nil {
		return fmt.Errorf("call %s: %w", peerID, err)
	}

	m.mu.Lock()
	if m.call != nil {
		m.mu.Unlock()
		_ = conn.Close()
		return ErrBusy
	}
	s := m.newSession(peerID, conn)
	m.call = s
	if err := m.machine.Transition(Outgoing, peerID); err != nil {
		m.logger.Warn("state", zap.Error(err))
	}
	m.mu.Unlock()

	m.wire(s)
	m.logger.Info("calling", zap.String("peer", peerID))
	return nil
}

// HandleIncoming takes an inbound call. While another call is held the new
// one is closed. Otherwise the user is asked to answer; declining leaves the
// call pending for AnswerPending.
func (m *Manager) HandleIncoming(mc transport.MediaConn) {
	peerID := mc.Peer()

	m.mu.Lock()
	if m.call != nil {
		m.mu.Unlock()
		m.logger.Info("busy, rejecting call", zap.String("peer", peerID))
		_ = mc.Close()
		return
	}
	s := m.newSession(peerID, mc)
	m.call = s
	if err := m.machine.Transition(IncomingPending, peerID); err != nil {
		m.logger.Warn("state", zap.Error(err))
	}
	m.mu.Unlock()

	m.wire(s)
	m.logger.Info("incoming call", zap.String("peer", peerID))

	msg := fmt.Sprintf("Incoming call from %s. Answer now?", m.names(peerID))
	if !m.prompt.Confirm(s.ctx, msg) {
		return
	}
	if err := m.answer(s.ctx, s); err != nil {
		m.logger.Warn("answer failed", zap.String("peer", peerID), zap.Error(err))
	}
}

// AnswerPending answers the pending incoming call.
func (m *Manager) AnswerPending(ctx context.Context) error {
	m.mu.Lock()
	s := m.call
	m.mu.Unlock()
	if s == nil || m.machine.Current() != IncomingPending {
		return ErrNoPendingCall
	}
	return m.answer(ctx, s)
}

func (m *Manager) answer(ctx context.Context, s *session) error {
	stream := m.desktopStream()
	if stream == nil {
		acqCtx, cancel := context.WithCancel(ctx)
		stopOnTeardown := context.AfterFunc(s.ctx, cancel)
		cam, err := m.ensureLocalStream(acqCtx)
		stopOnTeardown()
		cancel()
		if err != nil {
			if s.ctx.Err() != nil {
				return ErrNoPendingCall
			}
			m.prompt.Alert("Camera/microphone access required to answer the call.")
			return err
		}
		stream = cam
	}

	m.mu.Lock()
	current := m.call == s && m.machine.Current() == IncomingPending
	m.mu.Unlock()
	if !current {
		return ErrNoPendingCall
	}

	if err := s.conn.Answer(stream); err != nil {
		// The transport may have applied part of the offer; the call cannot be retried.
		err = fmt.Errorf("answer %s: %w", s.peer, err)
		m.prompt.Alert("Error answering call: " + err.Error())
		m.end(s, err)
		return err
	}

	m.mu.Lock()
	if m.call == s && m.machine.Current() == IncomingPending {
		if err := m.machine.Transition(Active, s.peer); err != nil {
			m.logger.Warn("state", zap.Error(err))
		}
	}
	m.mu.Unlock()
	m.logger.Info("call answered", zap.String("peer", s.peer))
	return nil
}

func (m *Manager) wire(s *session) {
	s.conn.OnStream(func(rs transport.RemoteStream) { m.onStream(s, rs) })
	s.conn.OnClose(func() { m.end(s, nil) })
	s.conn.OnError(func(err error) { m.end(s, err) })
}

func (m *Manager) onStream(s *session, rs transport.RemoteStream) {
	m.mu.Lock()
	if m.call != s {
		m.mu.Unlock()
		return
	}
	if st := m.machine.Current(); st != Active {
		if err := m.machine.Transition(Active, s.peer); err != nil {
			m.logger.Warn("state", zap.Error(err))
		}
	}
	prev := m.monitor
	m.monitor = nil
	m.mu.Unlock()

	prev.Stop()
	m.showRemote(s, rs)
}

// showRemote attaches rs to the view and starts the track monitor.
func (m *Manager) showRemote(s *session, rs transport.RemoteStream) {
	screen := false
	if t, ok := firstVideo(rs); ok {
		screen = IsScreenShare(t.Label)
	}
	m.view.Show(s.peer, rs, screen)

	mon := startTrackMonitor(rs, m.view.Visible, func(t transport.TrackInfo) {
		m.logger.Debug("remote video track changed",
			zap.String("track", t.ID), zap.String("label", t.Label), zap.String("state", t.ReadyState))
		m.view.Show(s.peer, rs, IsScreenShare(t.Label))
	})

	m.mu.Lock()
	if m.call != s || m.monitor != nil {
		m.mu.Unlock()
		mon.Stop()
		return
	}
	m.monitor = mon
	m.mu.Unlock()
}

// end tears down s if it is still the current call.
func (m *Manager) end(s *session, cause error) {
	m.mu.Lock()
	if m.call != s {
		m.mu.Unlock()
		return
	}
	m.call = nil
	mon := m.monitor
	m.monitor = nil
	if err := m.machine.Transition(Idle, s.peer); err != nil {
		m.logger.Warn("state", zap.Error(err))
	}
	m.mu.Unlock()

	s.cancel()
	mon.Stop()
	m.view.Hide()
	_ = s.conn.Close()

	if cause != nil {
		m.logger.Warn("call error", zap.String("peer", s.peer), zap.Error(cause))
		return
	}
	m.logger.Info("call ended", zap.String("peer", s.peer))
}

// Hangup ends the current call after confirmation. It is a no-op returning
// ErrNoActiveCall when there is nothing to hang up.
func (m *Manager) Hangup(ctx context.Context) error {
	m.mu.Lock()
	s := m.call
	m.mu.Unlock()
	if s == nil {
		return ErrNoActiveCall
	}
	if !m.prompt.Confirm(ctx, "Hang up the call?") {
		return nil
	}
	m.end(s, nil)
	return nil
}

// End ends the current call without asking. It returns ErrNoActiveCall when
// there is no call.
func (m *Manager) End() error {
	m.mu.Lock()
	s := m.call
	m.mu.Unlock()
	if s == nil {
		return ErrNoActiveCall
	}
	m.end(s, nil)
	return nil
}

// ToggleShare starts or stops desktop sharing on the active call.
func (m *Manager) ToggleShare(ctx context.Context) error {
	if m.machine.Current() != Active {
		m.prompt.Alert("Please start a video call first before sharing your desktop.")
		return ErrNoActiveCall
	}
	if m.Sharing() {
		return m.StopShare(ctx)
	}
	return m.StartShare(ctx)
}

// StartShare captures the display and substitutes it for the outbound video
// of the active call. The display track ending runs StopShare.
func (m *Manager) StartShare(ctx context.Context) error {
	st, err := m.devices.DisplayMedia(ctx)
	if err != nil {
		switch {
		case errors.Is(err, media.ErrPermission):
			m.prompt.Alert("Desktop sharing permission was denied.")
		case errors.Is(err, media.ErrNoDevice):
			m.prompt.Alert("No screen/window/tab available to share.")
		default:
			m.prompt.Alert("Error starting desktop share: " + err.Error())
		}
		return fmt.Errorf("display media: %w", err)
	}

	m.mu.Lock()
	prev := m.desktop
	m.desktop = st
	s := m.call
	m.mu.Unlock()
	prev.Stop()

	if vt := st.VideoTracks(); len(vt) > 0 {
		if s != nil && m.machine.Current() == Active {
			if err := s.conn.ReplaceVideoTrack(vt[0]); err != nil {
				m.logger.Error("replace track with display", zap.Error(err))
			}
		}
		vt[0].OnEnded(func() {
			if err := m.stopShare(m.ctx, st); err != nil {
				m.logger.Warn("stop share", zap.Error(err))
			}
		})
	}

	m.logger.Info("desktop share started")
	m.bus.Emit(bus.CallShareChanged, ShareChange{Sharing: true})
	return nil
}

// StopShare ends desktop sharing and switches the active call back to the
// camera, or sends no video when no camera is available.
func (m *Manager) StopShare(ctx context.Context) error {
	return m.stopShare(ctx, m.desktopStream())
}

func (m *Manager) stopShare(ctx context.Context, st *media.Stream) error {
	m.mu.Lock()
	if st == nil || m.desktop != st {
		m.mu.Unlock()
		return nil
	}
	m.desktop = nil
	s := m.call
	m.mu.Unlock()

	st.Stop()

	if s != nil && m.machine.Current() == Active {
		var track media.Track
		cam, err := m.ensureLocalStream(ctx)
		if err != nil {
			m.logger.Info("no camera after share, removing video", zap.Error(err))
		} else if vt := cam.VideoTracks(); len(vt) > 0 {
			track = vt[0]
		}
		if err := s.conn.ReplaceVideoTrack(track); err != nil {
			m.logger.Error("replace track after share", zap.Error(err))
		}
	}

	m.logger.Info("desktop share stopped")
	m.bus.Emit(bus.CallShareChanged, ShareChange{Sharing: false})
	return nil
}

// SelectCamera picks the camera used by later acquisitions. During an active
// call without desktop sharing the new camera replaces the outbound video.
func (m *Manager) SelectCamera(ctx context.Context, deviceID string) error {
	m.mu.Lock()
	m.cameraID = deviceID
	s := m.call
	sharing := m.desktop != nil
	m.mu.Unlock()

	if s == nil || sharing || m.machine.Current() != Active {
		return nil
	}
	cam, err := m.ensureLocalStream(ctx)
	if err != nil {
		return err
	}
	if vt := cam.VideoTracks(); len(vt) > 0 {
		return s.conn.ReplaceVideoTrack(vt[0])
	}
	return nil
}

func (m *Manager) desktopStream() *media.Stream {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.desktop
}

// ensureLocalStream returns the live camera stream, reacquiring it when none
// is held or the picker selected a different camera. A result arriving after
// ctx is cancelled is stopped and discarded.
func (m *Manager) ensureLocalStream(ctx context.Context) (*media.Stream, error) {
	m.mu.Lock()
	cur, want, have := m.camera, m.cameraID, m.cameraDev
	m.mu.Unlock()
	if cur.Live() && (want == "" || want == have) {
		return cur, nil
	}

	st, err := m.devices.UserMedia(ctx, media.Constraints{DeviceID: want, FacingMode: "user", Audio: true})
	if err != nil {
		return nil, fmt.Errorf("acquire camera: %w", err)
	}
	if err := ctx.Err(); err != nil {
		st.Stop()
		return nil, err
	}

	m.mu.Lock()
	old := m.camera
	m.camera, m.cameraDev = st, want
	m.mu.Unlock()
	if old != st {
		old.Stop()
	}
	return st, nil
}

// Close ends any call and releases local media.
func (m *Manager) Close() {
	m.mu.Lock()
	s := m.call
	m.mu.Unlock()
	if s != nil {
		m.end(s, nil)
	}
	m.stop()

	m.mu.Lock()
	cam, desk := m.camera, m.desktop
	m.camera, m.desktop = nil, nil
	m.mu.Unlock()
	cam.Stop()
	desk.Stop()
}

// monitoring reports whether a track monitor is running.
func (m *Manager) monitoring() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.monitor != nil
}
