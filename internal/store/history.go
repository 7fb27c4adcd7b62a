package store

import (
	"time"

	"github.com/matheus3301/peerchat/internal/chat"
)

// History adapts DB to chat.History.
type History struct {
	db *DB
}

// NewHistory returns a chat.History backed by db.
func NewHistory(db *DB) *History {
	return &History{db: db}
}

// AppendMessage implements chat.History.
func (h *History) AppendMessage(peerID string, m chat.Message) error {
	return h.db.AppendMessage(&Message{
		MsgID:     m.ID,
		PeerID:    peerID,
		Content:   m.Content,
		Sender:    m.Sender,
		IsImage:   m.IsImage,
		IsSelf:    m.IsSelf,
		Filename:  m.Filename,
		Timestamp: m.Timestamp.UnixMilli(),
	})
}

// ListMessages implements chat.History.
func (h *History) ListMessages(peerID string) ([]chat.Message, error) {
	rows, err := h.db.ListMessages(peerID)
	if err != nil {
		return nil, err
	}
	out := make([]chat.Message, 0, len(rows))
	for _, r := range rows {
		out = append(out, ToChat(r))
	}
	return out, nil
}

// ToChat converts a stored message to a chat.Message.
func ToChat(r Message) chat.Message {
	return chat.Message{
		ID:        r.MsgID,
		Content:   r.Content,
		Sender:    r.Sender,
		IsImage:   r.IsImage,
		IsSelf:    r.IsSelf,
		Filename:  r.Filename,
		Timestamp: time.UnixMilli(r.Timestamp),
	}
}
