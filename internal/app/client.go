package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/matheus3301/peerchat/internal/api"
	"github.com/matheus3301/peerchat/internal/bus"
	"github.com/matheus3301/peerchat/internal/call"
	"github.com/matheus3301/peerchat/internal/contacts"
	"github.com/matheus3301/peerchat/internal/inbox"
	"github.com/matheus3301/peerchat/internal/lock"
	"github.com/matheus3301/peerchat/internal/room"
)

// ErrNoRoom is returned when refreshing before any room was joined.
var ErrNoRoom = fmt.Errorf("%w: no room joined", api.ErrNotReady)

// Client is the session's presence in a room: it registers the transport,
// joins the room and keeps the contact list in step with the roster.
type Client struct {
	name      string
	username  string
	signaling string
	interval  time.Duration
	transport *Transport
	rooms     *room.Client
	inbox     *inbox.Inbox
	lock      *lock.Lock
	prompt    call.Prompter
	bus       *bus.Bus
	logger    *zap.Logger
	started   time.Time

	mu     sync.Mutex
	room   string
	cancel context.CancelFunc
	done   chan struct{}
}

// ClientParams holds what a Client needs.
type ClientParams struct {
	Name      string
	Username  string
	Room      string
	Signaling string
	Interval  time.Duration
	Transport *Transport
	Rooms     *room.Client
	Inbox     *inbox.Inbox
	Lock      *lock.Lock
	Prompt    call.Prompter
	Bus       *bus.Bus
	Logger    *zap.Logger
}

// NewClient creates a room client. Nothing happens until Start.
func NewClient(p ClientParams) *Client {
	return &Client{
		name:      p.Name,
		username:  p.Username,
		signaling: p.Signaling,
		interval:  p.Interval,
		transport: p.Transport,
		rooms:     p.Rooms,
		inbox:     p.Inbox,
		lock:      p.Lock,
		prompt:    p.Prompt,
		bus:       p.Bus,
		logger:    p.Logger.Named("client"),
		started:   time.Now(),
		room:      p.Room,
	}
}

// Info describes the running session.
func (c *Client) Info() api.SessionInfo {
	return api.SessionInfo{
		Name:      c.name,
		PeerID:    c.transport.ID(),
		Username:  c.username,
		Room:      c.Room(),
		Signaling: c.signaling,
		Started:   c.started,
	}
}

// Room returns the current room id.
func (c *Client) Room() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.room
}

// PeerID returns the local peer id, "" while offline.
func (c *Client) PeerID() string {
	return c.transport.ID()
}

// Start opens the transport in the background, then joins the configured
// room and starts the periodic refresh.
func (c *Client) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	c.mu.Lock()
	c.cancel = cancel
	c.done = make(chan struct{})
	done := c.done
	c.mu.Unlock()

	go func() {
		defer close(done)
		c.run(ctx)
	}()
}

// Stop cancels the background work and waits for it.
func (c *Client) Stop() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (c *Client) run(ctx context.Context) {
	id, err := c.transport.Open(ctx)
	if err != nil {
		if ctx.Err() == nil {
			c.logger.Error("transport open failed", zap.Error(err))
			c.prompt.Alert("Unable to reach the peer broker: " + err.Error())
		}
		return
	}
	c.logger.Info("registered with broker", zap.String("peer_id", id))
	if c.lock != nil {
		if err := c.lock.SetPeer(id); err != nil {
			c.logger.Warn("failed to record peer id", zap.Error(err))
		}
	}
	c.bus.Emit(bus.PeerOpen, id)

	go func() {
		if err := c.transport.Run(ctx); err != nil && ctx.Err() == nil {
			c.logger.Error("broker connection lost", zap.Error(err))
			c.prompt.Alert("Disconnected from the peer broker.")
		}
	}()

	if r := c.Room(); r != "" {
		if err := c.join(ctx, r); err != nil {
			c.logger.Error("join failed", zap.String("room", r), zap.Error(err))
			c.prompt.Alert("Failed to join room")
		}
	}

	c.refreshLoop(ctx)
}

// Join switches to roomID and lists its members.
func (c *Client) Join(ctx context.Context, roomID string) error {
	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		return ErrNoRoom
	}
	if c.transport.ID() == "" {
		return ErrOffline
	}
	c.mu.Lock()
	c.room = roomID
	c.mu.Unlock()
	return c.join(ctx, roomID)
}

func (c *Client) join(ctx context.Context, roomID string) error {
	if err := c.rooms.Join(ctx, roomID, c.transport.ID(), c.username); err != nil {
		return fmt.Errorf("join room %s: %w", roomID, err)
	}
	c.logger.Info("joined room", zap.String("room", roomID))
	c.bus.Emit(bus.RoomJoined, roomID)
	// The membership stands even if the first roster fetch fails; the
	// refresh loop retries it.
	if err := c.Refresh(ctx); err != nil {
		c.logger.Warn("roster refresh after join failed", zap.String("room", roomID), zap.Error(err))
	}
	return nil
}

// Refresh fetches the room roster and rebuilds the contact list from it.
func (c *Client) Refresh(ctx context.Context) error {
	roomID := c.Room()
	if roomID == "" {
		return ErrNoRoom
	}
	peers, err := c.rooms.Peers(ctx, roomID)
	if err != nil {
		return fmt.Errorf("list room %s: %w", roomID, err)
	}
	roster := make([]contacts.Peer, 0, len(peers))
	for _, p := range peers {
		roster = append(roster, contacts.Peer{ID: p.ID, Name: p.Name})
	}
	c.inbox.ApplyRoster(roster, c.transport.ID())
	c.logger.Debug("roster refreshed", zap.String("room", roomID), zap.Int("peers", len(roster)))
	c.bus.Emit(bus.RoomRefreshed, len(roster))
	return nil
}

func (c *Client) refreshLoop(ctx context.Context) {
	if c.interval <= 0 {
		<-ctx.Done()
		return
	}
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if c.Room() == "" {
				continue
			}
			if err := c.Refresh(ctx); err != nil && ctx.Err() == nil {
				c.logger.Warn("periodic refresh failed", zap.Error(err))
			}
		case <-ctx.Done():
			return
		}
	}
}
