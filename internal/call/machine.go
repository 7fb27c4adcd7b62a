package call

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/matheus3301/peerchat/internal/bus"
)

// State is the phase of the single call a client can hold.
type State string

const (
	Idle            State = "IDLE"
	Outgoing        State = "OUTGOING"
	IncomingPending State = "INCOMING_PENDING"
	Active          State = "ACTIVE"
)

// validTransitions defines allowed state transitions.
var validTransitions = map[State][]State{
	Idle:            {Outgoing, IncomingPending},
	Outgoing:        {Active, Idle},
	IncomingPending: {Active, Idle},
	Active:          {Idle},
}

// Machine tracks and enforces call state transitions.
type Machine struct {
	mu      sync.RWMutex
	current State
	peer    string
	bus     *bus.Bus
}

// NewMachine creates a new state machine starting in Idle state.
func NewMachine(b *bus.Bus) *Machine {
	return &Machine{
		current: Idle,
		bus:     b,
	}
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Peer returns the remote peer of the current call, empty when Idle.
func (m *Machine) Peer() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.peer
}

// Transition attempts to move to a new state. Returns error if transition is invalid.
func (m *Machine) Transition(to State, peerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	allowed := validTransitions[m.current]
	if !slices.Contains(allowed, to) {
		return fmt.Errorf("invalid transition from %s to %s", m.current, to)
	}
	from := m.current
	m.current = to
	if to == Idle {
		m.peer = ""
	} else if peerID != "" {
		m.peer = peerID
	}
	if m.bus != nil {
		m.bus.Publish(bus.Event{
			Kind:      bus.CallStateChanged,
			Timestamp: time.Now(),
			Payload: StateChange{
				From:   from,
				To:     to,
				PeerID: peerID,
			},
		})
	}
	return nil
}

// StateChange is the payload for call state events.
type StateChange struct {
	From   State
	To     State
	PeerID string
}

// ShareChange is the payload for desktop share events.
type ShareChange struct {
	Sharing bool
}
