// Package room talks to the signaling server that groups peer ids into rooms.
package room

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const defaultTimeout = 15 * time.Second

// Peer is a room member as listed by the server.
type Peer struct {
	ID   string
	Name string
}

// StatusError is returned when the server answers with a non-200 status.
type StatusError struct {
	Op     string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: server returned %d", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: server returned %d: %s", e.Op, e.Status, e.Body)
}

// Client is a signaling server client.
type Client struct {
	base   string
	http   *http.Client
	logger *zap.Logger
}

// New creates a client for the server at baseURL.
func New(baseURL string, logger *zap.Logger) *Client {
	return &Client{
		base:   strings.TrimRight(baseURL, "/"),
		http:   &http.Client{Timeout: defaultTimeout},
		logger: logger.Named("room"),
	}
}

// Join registers peerID under roomID. Any 200 response is success.
func (c *Client) Join(ctx context.Context, roomID, peerID, username string) error {
	form := url.Values{
		"roomId":   {roomID},
		"peerId":   {peerID},
		"username": {username},
	}
	resp, err := c.post(ctx, "/join", form)
	if err != nil {
		return fmt.Errorf("join room: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return &StatusError{Op: "join", Status: resp.StatusCode}
	}
	c.logger.Info("joined room", zap.String("room", roomID), zap.String("peer", peerID))
	return nil
}

// Peers lists the members of roomID. Entries may be bare ids or {id, name}
// objects; malformed entries are skipped.
func (c *Client) Peers(ctx context.Context, roomID string) ([]Peer, error) {
	resp, err := c.post(ctx, "/get_peers", url.Values{"roomId": {roomID}})
	if err != nil {
		return nil, fmt.Errorf("list peers: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &StatusError{Op: "get_peers", Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var out struct {
		Peers []json.RawMessage `json:"peers"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode peers: %w", err)
	}
	return parsePeers(out.Peers, c.logger), nil
}

func parsePeers(raw []json.RawMessage, logger *zap.Logger) []Peer {
	peers := make([]Peer, 0, len(raw))
	for _, r := range raw {
		var id string
		if err := json.Unmarshal(r, &id); err == nil {
			if id != "" {
				peers = append(peers, Peer{ID: id})
			}
			continue
		}
		var obj struct {
			ID   string          `json:"id"`
			Name json.RawMessage `json:"name"`
		}
		if err := json.Unmarshal(r, &obj); err != nil || obj.ID == "" {
			logger.Debug("skipping peer entry", zap.ByteString("entry", r))
			continue
		}
		p := Peer{ID: obj.ID}
		if len(obj.Name) > 0 {
			// A name that is not a string is ignored; the id still counts.
			if err := json.Unmarshal(obj.Name, &p.Name); err != nil {
				p.Name = ""
				logger.Debug("ignoring peer name", zap.String("peer", obj.ID), zap.ByteString("name", obj.Name))
			}
		}
		peers = append(peers, p)
	}
	return peers
}

func (c *Client) post(ctx context.Context, path string, form url.Values) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.http.Do(req)
}
