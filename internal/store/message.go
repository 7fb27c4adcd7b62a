package store

import "time"

// AppendMessage stores a message at the end of its peer's history.
// Re-inserting the same msg_id is a no-op.
func (db *DB) AppendMessage(m *Message) error {
	_, err := db.Exec(`
		INSERT INTO messages (msg_id, peer_id, content, sender, is_image, is_self, filename, timestamp, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(msg_id) DO NOTHING`,
		m.MsgID, m.PeerID, m.Content, m.Sender, m.IsImage, m.IsSelf, m.Filename, m.Timestamp, time.Now().UnixMilli())
	return err
}

// ListMessages returns a peer's messages in insertion order.
func (db *DB) ListMessages(peerID string) ([]Message, error) {
	rows, err := db.Query(`
		SELECT id, msg_id, peer_id, content, sender, is_image, is_self, filename, timestamp
		FROM messages
		WHERE peer_id = ?
		ORDER BY id ASC`, peerID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var msgs []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.MsgID, &m.PeerID, &m.Content, &m.Sender, &m.IsImage, &m.IsSelf, &m.Filename, &m.Timestamp); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// MessageCount returns the number of stored messages.
func (db *DB) MessageCount() (int64, error) {
	var n int64
	err := db.QueryRow(`SELECT COUNT(*) FROM messages`).Scan(&n)
	return n, err
}

// ListPeers summarizes conversations, most recent first.
func (db *DB) ListPeers() ([]PeerSummary, error) {
	rows, err := db.Query(`
		SELECT peer_id, COUNT(*), MAX(timestamp)
		FROM messages
		GROUP BY peer_id
		ORDER BY MAX(timestamp) DESC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []PeerSummary
	for rows.Next() {
		var p PeerSummary
		if err := rows.Scan(&p.PeerID, &p.Messages, &p.LastAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
