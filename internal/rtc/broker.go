package rtc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Broker message types.
const (
	MsgOpen      = "OPEN"
	MsgOffer     = "OFFER"
	MsgAnswer    = "ANSWER"
	MsgCandidate = "CANDIDATE"
	MsgLeave     = "LEAVE"
	MsgExpire    = "EXPIRE"
	MsgHeartbeat = "HEARTBEAT"
	MsgIDTaken   = "ID-TAKEN"
	MsgError     = "ERROR"
)

const (
	heartbeatInterval = 5 * time.Second
	writeWait         = 10 * time.Second
	DefaultBrokerKey  = "peerjs"
)

// ErrIDTaken is returned when the broker refuses the requested peer id.
var ErrIDTaken = errors.New("peer id is taken")

// Message is one broker envelope.
type Message struct {
	Type    string          `json:"type"`
	Src     string          `json:"src,omitempty"`
	Dst     string          `json:"dst,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// BrokerConfig locates the broker.
type BrokerConfig struct {
	// URL is the broker base, e.g. https://0.peerjs.com/.
	URL string
	Key string
	// ID requests a specific peer id. Empty asks the broker for one.
	ID string
}

// Broker is a registered session with a PeerJS-compatible broker.
type Broker struct {
	id     string
	conn   *websocket.Conn
	logger *zap.Logger

	writeMu sync.Mutex
	once    sync.Once
	done    chan struct{}
}

// DialBroker obtains a peer id if needed, opens the broker socket and waits
// for the OPEN handshake.
func DialBroker(ctx context.Context, cfg BrokerConfig, logger *zap.Logger) (*Broker, error) {
	base, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse broker url: %w", err)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}
	key := cfg.Key
	if key == "" {
		key = DefaultBrokerKey
	}

	id := cfg.ID
	if id == "" {
		if id, err = fetchID(ctx, base, key); err != nil {
			return nil, err
		}
	}

	ws := *base
	switch base.Scheme {
	case "https":
		ws.Scheme = "wss"
	case "http":
		ws.Scheme = "ws"
	}
	ws.Path = base.Path + "peerjs"
	ws.RawQuery = url.Values{
		"key":   {key},
		"id":    {id},
		"token": {uuid.NewString()[:8]},
	}.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, ws.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial broker: %w", err)
	}

	var first Message
	if err := conn.ReadJSON(&first); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("broker handshake: %w", err)
	}
	switch first.Type {
	case MsgOpen:
	case MsgIDTaken:
		_ = conn.Close()
		return nil, fmt.Errorf("%w: %s", ErrIDTaken, id)
	case MsgError:
		_ = conn.Close()
		return nil, fmt.Errorf("broker error: %s", errorText(first.Payload))
	default:
		_ = conn.Close()
		return nil, fmt.Errorf("broker handshake: unexpected %s", first.Type)
	}

	logger = logger.Named("broker")
	logger.Info("registered with broker", zap.String("id", id), zap.String("url", base.String()))
	return &Broker{
		id:     id,
		conn:   conn,
		logger: logger,
		done:   make(chan struct{}),
	}, nil
}

func fetchID(ctx context.Context, base *url.URL, key string) (string, error) {
	u := *base
	u.Path = base.Path + key + "/id"
	u.RawQuery = url.Values{"ts": {fmt.Sprint(time.Now().UnixMilli())}}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch peer id: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 256))
	if err != nil {
		return "", fmt.Errorf("fetch peer id: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch peer id: status %d", resp.StatusCode)
	}
	id := strings.TrimSpace(string(body))
	if id == "" {
		return "", errors.New("fetch peer id: empty id")
	}
	return id, nil
}

func errorText(p json.RawMessage) string {
	var v struct {
		Msg string `json:"msg"`
	}
	if json.Unmarshal(p, &v) == nil && v.Msg != "" {
		return v.Msg
	}
	return string(p)
}

// ID returns the registered peer id.
func (b *Broker) ID() string { return b.id }

// Send writes a message to the broker.
func (b *Broker) Send(m Message) error {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	_ = b.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return b.conn.WriteJSON(m)
}

// SendTo marshals payload and sends it to dst.
func (b *Broker) SendTo(typ, dst string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", typ, err)
	}
	return b.Send(Message{Type: typ, Dst: dst, Payload: raw})
}

// Run sends heartbeats and delivers inbound messages to handle until the
// socket fails, ctx ends or Close is called.
func (b *Broker) Run(ctx context.Context, handle func(Message)) error {
	go b.heartbeat(ctx)

	stop := context.AfterFunc(ctx, func() { _ = b.Close() })
	defer stop()

	for {
		var m Message
		if err := b.conn.ReadJSON(&m); err != nil {
			select {
			case <-b.done:
				return nil
			default:
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("broker read: %w", err)
		}
		if m.Type == MsgHeartbeat {
			continue
		}
		handle(m)
	}
}

func (b *Broker) heartbeat(ctx context.Context) {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-b.done:
			return
		case <-ticker.C:
			if err := b.Send(Message{Type: MsgHeartbeat}); err != nil {
				b.logger.Warn("heartbeat failed", zap.Error(err))
				return
			}
		}
	}
}

// Close disconnects from the broker.
func (b *Broker) Close() error {
	var err error
	b.once.Do(func() {
		close(b.done)
		b.writeMu.Lock()
		_ = b.conn.SetWriteDeadline(time.Now().Add(time.Second))
		_ = b.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		b.writeMu.Unlock()
		err = b.conn.Close()
	})
	return err
}
