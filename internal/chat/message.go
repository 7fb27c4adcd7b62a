// Package chat holds per-peer conversation history and drives the view of
// the active conversation.
package chat

import (
	"time"

	"github.com/google/uuid"
)

// SelfLabel is the sender label of locally sent messages.
const SelfLabel = "You"

// Message is one entry in a conversation.
type Message struct {
	ID        string
	Content   string // plain text, a data: URL or a blob reference
	Sender    string
	IsImage   bool
	IsSelf    bool
	Timestamp time.Time
	Filename  string
}

// NewMessage creates a message stamped with the current time.
func NewMessage(content, sender string) Message {
	return Message{
		ID:        uuid.NewString(),
		Content:   content,
		Sender:    sender,
		Timestamp: time.Now(),
	}
}

// IsFile reports whether the message is a downloadable file.
func (m Message) IsFile() bool {
	return !m.IsImage && m.Filename != ""
}

// Label is the "sender time" line shown above the message.
func (m Message) Label() string {
	return m.Sender + " " + m.Timestamp.Format("15:04:05")
}
