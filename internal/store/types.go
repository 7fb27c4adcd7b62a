package store

// Message is a stored conversation entry.
type Message struct {
	ID        int64
	MsgID     string
	PeerID    string
	Content   string
	Sender    string
	IsImage   bool
	IsSelf    bool
	Filename  string
	Timestamp int64 // unix ms
}

// OutboxKind distinguishes queued payload types.
type OutboxKind string

const (
	OutboxText OutboxKind = "text"
	OutboxFile OutboxKind = "file"
)

// OutboxEntry represents a pending outgoing message.
type OutboxEntry struct {
	ID           int64
	ClientMsgID  string
	PeerID       string
	Kind         OutboxKind
	Body         string // text, or a data: URL for files
	Filename     string
	MimeType     string
	Status       string // queued, sending, sent, failed
	ErrorMessage string
}

// SearchResult holds a message with a search snippet.
type SearchResult struct {
	Message Message
	Snippet string
}

// PeerSummary is the per-peer message count.
type PeerSummary struct {
	PeerID   string
	Messages int64
	LastAt   int64
}
