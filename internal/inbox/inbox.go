// Package inbox ties the message store to the contact directory: it routes
// messages into history, keeps unread flags and owns conversation selection.
package inbox

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/matheus3301/peerchat/internal/bus"
	"github.com/matheus3301/peerchat/internal/chat"
	"github.com/matheus3301/peerchat/internal/contacts"
)

// ErrNotSelectable is returned when selecting the local client's own entry.
var ErrNotSelectable = errors.New("contact is not selectable")

// Inbox coordinates the chat store and the contact directory.
type Inbox struct {
	store  *chat.Store
	dir    *contacts.Directory
	bus    *bus.Bus
	logger *zap.Logger
}

// New creates an inbox.
func New(store *chat.Store, dir *contacts.Directory, b *bus.Bus, logger *zap.Logger) *Inbox {
	return &Inbox{
		store:  store,
		dir:    dir,
		bus:    b,
		logger: logger.Named("inbox"),
	}
}

// Deliver records a message received from peerID: it lists the peer, appends
// the message and flags the conversation unread unless it is active.
func (i *Inbox) Deliver(peerID string, m chat.Message) error {
	if peerID == "" {
		return nil
	}
	i.dir.Upsert(peerID)
	if err := i.store.Append(peerID, m); err != nil {
		return fmt.Errorf("deliver from %s: %w", peerID, err)
	}
	if peerID != i.store.Active() {
		i.dir.MarkUnread(peerID)
	}
	i.logger.Debug("message delivered", zap.String("peer", peerID), zap.String("msg_id", m.ID))
	i.bus.Emit(bus.MessageAppended, bus.MessageRef{PeerID: peerID, MsgID: m.ID})
	return nil
}

// Seen lists peerID once a connection to it opens, before any message.
func (i *Inbox) Seen(peerID string) {
	if peerID == "" {
		return
	}
	if i.dir.Upsert(peerID) {
		i.logger.Debug("peer listed on connect", zap.String("peer", peerID))
	}
}

// Record appends a locally sent message to peerID's conversation.
func (i *Inbox) Record(peerID string, m chat.Message) error {
	if peerID == "" {
		return nil
	}
	m.IsSelf = true
	m.Sender = chat.SelfLabel
	i.dir.Upsert(peerID)
	if err := i.store.Append(peerID, m); err != nil {
		return fmt.Errorf("record to %s: %w", peerID, err)
	}
	i.bus.Emit(bus.MessageAppended, bus.MessageRef{PeerID: peerID, MsgID: m.ID})
	return nil
}

// Select makes peerID the active conversation. An empty id clears it.
func (i *Inbox) Select(peerID string) error {
	if !i.dir.Select(peerID) {
		return ErrNotSelectable
	}
	if err := i.store.Select(peerID); err != nil {
		return err
	}
	i.bus.Emit(bus.ConversationSelected, peerID)
	return nil
}

// Active returns the active conversation.
func (i *Inbox) Active() string {
	return i.store.Active()
}

// ApplyRoster refreshes the directory from a room roster and redraws the
// active conversation title, which may have gained a display name.
func (i *Inbox) ApplyRoster(peers []contacts.Peer, selfID string) {
	i.dir.ApplyRoster(peers, selfID)
	if active := i.store.Active(); active != "" {
		if err := i.store.Select(active); err != nil {
			i.logger.Warn("redraw after roster", zap.Error(err))
		}
	}
}
