package store

import (
	"strings"
	"unicode/utf8"
)

const snippetRadius = 32

// SearchMessages finds messages whose text or filename contains query
// (case-insensitive). Data URLs and blob references are not searched.
func (db *DB) SearchMessages(query string, peerID string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 50
	}
	pattern := "%" + escapeLike(query) + "%"

	q := `
		SELECT id, msg_id, peer_id, content, sender, is_image, is_self, filename, timestamp
		FROM messages
		WHERE ((content LIKE ? ESCAPE '\' AND content NOT LIKE 'data:%' AND content NOT LIKE 'blob:%')
		       OR filename LIKE ? ESCAPE '\')`
	args := []any{pattern, pattern}
	if peerID != "" {
		q += " AND peer_id = ?"
		args = append(args, peerID)
	}
	q += " ORDER BY timestamp DESC LIMIT ?"
	args = append(args, limit)

	rows, err := db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		m := &r.Message
		if err := rows.Scan(&m.ID, &m.MsgID, &m.PeerID, &m.Content, &m.Sender, &m.IsImage, &m.IsSelf, &m.Filename, &m.Timestamp); err != nil {
			return nil, err
		}
		text := m.Content
		if m.Filename != "" {
			text = m.Filename
		}
		r.Snippet = snippet(text, query)
		results = append(results, r)
	}
	return results, rows.Err()
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// snippet marks the first match of query in text with << >> and trims the
// surroundings to snippetRadius bytes.
func snippet(text, query string) string {
	i, j := foldIndex(text, query)
	if i < 0 {
		return text
	}
	start := max(0, i-snippetRadius)
	end := min(len(text), j+snippetRadius)
	for start > 0 && !utf8.RuneStart(text[start]) {
		start--
	}
	for end < len(text) && !utf8.RuneStart(text[end]) {
		end++
	}

	var b strings.Builder
	if start > 0 {
		b.WriteString("...")
	}
	b.WriteString(text[start:i])
	b.WriteString("<<")
	b.WriteString(text[i:j])
	b.WriteString(">>")
	b.WriteString(text[j:end])
	if end < len(text) {
		b.WriteString("...")
	}
	return b.String()
}

// foldIndex returns the byte range of the first case-insensitive match of
// query in text, or -1, -1. Offsets index text itself, since case mapping
// can change a rune's encoded length.
func foldIndex(text, query string) (int, int) {
	n := utf8.RuneCountInString(query)
	if n == 0 {
		return -1, -1
	}
	for i := 0; i < len(text); {
		j := i
		for k := 0; k < n && j < len(text); k++ {
			_, size := utf8.DecodeRuneInString(text[j:])
			j += size
		}
		if utf8.RuneCountInString(text[i:j]) < n {
			break
		}
		if strings.EqualFold(text[i:j], query) {
			return i, j
		}
		_, size := utf8.DecodeRuneInString(text[i:])
		i += size
	}
	return -1, -1
}
