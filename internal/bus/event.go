package bus

import "time"

// Event represents a domain event published on the bus.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}

// Event kinds. Subscribers filter by prefix, e.g. "call." or "message.".
const (
	PeerOpen         = "peer.open"
	PeerConnected    = "peer.connected"
	PeerDisconnected = "peer.disconnected"

	RoomJoined    = "room.joined"
	RoomRefreshed = "room.refreshed"

	ContactsChanged      = "contacts.changed"
	ConversationSelected = "conversation.selected"

	MessageAppended   = "message.appended"
	MessageSendAck    = "message.send_ack"
	MessageSendFailed = "message.send_failed"

	CallStateChanged = "call.state_changed"
	CallShareChanged = "call.share_changed"
)

// MessageRef identifies a message in a conversation.
type MessageRef struct {
	PeerID string
	MsgID  string
}
