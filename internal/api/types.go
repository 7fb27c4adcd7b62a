package api

import "encoding/json"

// Empty is the request or response of calls that carry nothing.
type Empty struct{}

// Status describes the running client.
type Status struct {
	Session     string `json:"session"`
	PeerID      string `json:"peer_id"`
	Username    string `json:"username"`
	Room        string `json:"room"`
	Signaling   string `json:"signaling"`
	UptimeMs    int64  `json:"uptime_ms"`
	CallState   string `json:"call_state"`
	CallPeer    string `json:"call_peer,omitempty"`
	Sharing     bool   `json:"sharing"`
	Contacts    int    `json:"contacts"`
	Messages    int64  `json:"messages"`
	Connections int    `json:"connections"`
}

// JoinRequest switches the client to another room.
type JoinRequest struct {
	Room string `json:"room"`
}

// RefreshResponse reports the roster size after a refresh.
type RefreshResponse struct {
	Contacts int `json:"contacts"`
}

// Contact is one directory entry.
type Contact struct {
	ID       string `json:"id"`
	Name     string `json:"name,omitempty"`
	Label    string `json:"label"`
	Unread   bool   `json:"unread"`
	Selected bool   `json:"selected"`
	Self     bool   `json:"self"`
}

// ContactList is the directory in display order.
type ContactList struct {
	Contacts []Contact `json:"contacts"`
}

// PeerRequest names a peer. An empty id means the selected contact.
type PeerRequest struct {
	PeerID string `json:"peer_id"`
}

// Message is one conversation entry.
type Message struct {
	ID          string `json:"id"`
	PeerID      string `json:"peer_id"`
	Sender      string `json:"sender"`
	Content     string `json:"content"`
	IsImage     bool   `json:"is_image,omitempty"`
	IsSelf      bool   `json:"is_self,omitempty"`
	Filename    string `json:"filename,omitempty"`
	TimestampMs int64  `json:"timestamp_ms"`
}

// ListMessagesRequest selects the newest Limit messages of a conversation.
type ListMessagesRequest struct {
	PeerID string `json:"peer_id"`
	Limit  int    `json:"limit"`
}

// MessageList is a conversation slice, oldest first.
type MessageList struct {
	Messages []Message `json:"messages"`
}

// SearchRequest searches message content, optionally in one conversation.
type SearchRequest struct {
	Query  string `json:"query"`
	PeerID string `json:"peer_id"`
	Limit  int    `json:"limit"`
}

// SearchResult is a match with a short snippet around it.
type SearchResult struct {
	Message Message `json:"message"`
	Snippet string  `json:"snippet"`
}

// SearchResponse lists search matches, newest first.
type SearchResponse struct {
	Results []SearchResult `json:"results"`
}

// SendTextRequest queues a text message.
type SendTextRequest struct {
	PeerID string `json:"peer_id"`
	Text   string `json:"text"`
}

// SendFileRequest queues a file transfer. Data travels base64 encoded.
type SendFileRequest struct {
	PeerID   string `json:"peer_id"`
	Filename string `json:"filename"`
	MimeType string `json:"mime_type,omitempty"`
	Data     []byte `json:"data"`
}

// SendResponse identifies a queued message.
type SendResponse struct {
	ClientMsgID string `json:"client_msg_id"`
	PeerID      string `json:"peer_id"`
}

// CallStatus is the call manager state.
type CallStatus struct {
	State   string `json:"state"`
	Peer    string `json:"peer,omitempty"`
	Sharing bool   `json:"sharing"`
}

// Camera is a selectable video input.
type Camera struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Selected bool   `json:"selected"`
}

// CameraList lists the video inputs.
type CameraList struct {
	Cameras []Camera `json:"cameras"`
}

// SelectCameraRequest picks the camera for later calls.
type SelectCameraRequest struct {
	DeviceID string `json:"device_id"`
}

// WatchRequest filters events by kind prefix, e.g. "call." or "message.".
type WatchRequest struct {
	Prefix string `json:"prefix"`
}

// Event is one bus event.
type Event struct {
	Kind        string          `json:"kind"`
	TimestampMs int64           `json:"timestamp_ms"`
	Payload     json.RawMessage `json:"payload,omitempty"`
}
