package chat

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// NoSelectionTitle is shown when no conversation is active.
const NoSelectionTitle = "Select a contact"

// History persists ordered per-peer messages.
type History interface {
	AppendMessage(peerID string, m Message) error
	ListMessages(peerID string) ([]Message, error)
}

// View renders the active conversation.
type View interface {
	// Reset clears the view and sets its title.
	Reset(title string)
	// AppendMessage renders one message after the existing ones.
	AppendMessage(m Message)
	// ScrollToEnd pins the view to the newest message.
	ScrollToEnd()
}

// NameFunc resolves a peer id to its display name.
type NameFunc func(peerID string) string

// Store owns conversation history and the active conversation.
type Store struct {
	mu      sync.Mutex
	history History
	view    View
	names   NameFunc
	active  string
	logger  *zap.Logger
}

// NewStore creates a store. view may be nil until SetView is called.
func NewStore(h History, names NameFunc, logger *zap.Logger) *Store {
	if names == nil {
		names = func(id string) string { return id }
	}
	return &Store{
		history: h,
		names:   names,
		logger:  logger.Named("chat"),
	}
}

// SetView attaches the renderer and redraws the active conversation into it.
func (s *Store) SetView(v View) error {
	s.mu.Lock()
	s.view = v
	active := s.active
	s.mu.Unlock()
	return s.Select(active)
}

// Active returns the active conversation, or "" if none.
func (s *Store) Active() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Append adds a message to peerID's history. If peerID is the active
// conversation only the new message is rendered. Messages without a peer are dropped.
func (s *Store) Append(peerID string, m Message) error {
	if peerID == "" {
		s.logger.Debug("dropping message without peer", zap.String("msg_id", m.ID))
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.history.AppendMessage(peerID, m); err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	if peerID == s.active && s.view != nil {
		s.view.AppendMessage(m)
		s.view.ScrollToEnd()
	}
	return nil
}

// Select makes peerID the active conversation and redraws its full history.
// An empty peerID clears the view.
func (s *Store) Select(peerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.active = peerID
	if s.view == nil {
		return nil
	}
	if peerID == "" {
		s.view.Reset(NoSelectionTitle)
		return nil
	}

	msgs, err := s.history.ListMessages(peerID)
	if err != nil {
		s.view.Reset(s.names(peerID))
		return fmt.Errorf("list messages: %w", err)
	}
	s.view.Reset(s.names(peerID))
	for _, m := range msgs {
		s.view.AppendMessage(m)
	}
	s.view.ScrollToEnd()
	return nil
}

// History returns peerID's messages in order.
func (s *Store) History(peerID string) ([]Message, error) {
	return s.history.ListMessages(peerID)
}
