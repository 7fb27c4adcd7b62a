// Package outbox queues outgoing messages and drains them over peer
// connections, echoing each into the local conversation once it is sent.
package outbox

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/matheus3301/peerchat/internal/bus"
	"github.com/matheus3301/peerchat/internal/chat"
	"github.com/matheus3301/peerchat/internal/payload"
	"github.com/matheus3301/peerchat/internal/store"
	"github.com/matheus3301/peerchat/internal/transport"
)

var (
	// ErrNoPeer is returned when there is no recipient.
	ErrNoPeer = errors.New("select a contact to send to")
	// ErrEmpty is returned for a blank text message.
	ErrEmpty = errors.New("empty message")
)

// Connector delivers frames to peers, connecting on demand.
type Connector interface {
	Send(peerID string, f transport.Frame, done func(error)) error
}

// Recorder echoes a sent message into the sender's own history.
type Recorder interface {
	Record(peerID string, m chat.Message) error
}

// Ack is the payload of send_ack and send_failed events.
type Ack struct {
	ClientMsgID string
	PeerID      string
	Error       string
}

// Sender drains the outbox and sends messages over peer connections.
type Sender struct {
	db     *store.DB
	conns  Connector
	rec    Recorder
	bus    *bus.Bus
	logger *zap.Logger
	kick   chan struct{}
	cancel context.CancelFunc
}

// NewSender creates a new outbox sender.
func NewSender(db *store.DB, conns Connector, rec Recorder, b *bus.Bus, logger *zap.Logger) *Sender {
	return &Sender{
		db:     db,
		conns:  conns,
		rec:    rec,
		bus:    b,
		logger: logger.Named("outbox"),
		kick:   make(chan struct{}, 1),
	}
}

// QueueText queues a text message to peerID and returns its client id.
func (s *Sender) QueueText(peerID, text string) (string, error) {
	if peerID == "" {
		return "", ErrNoPeer
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmpty
	}
	return s.queue(&store.OutboxEntry{PeerID: peerID, Kind: store.OutboxText, Body: text})
}

// QueueFile queues a file transfer to peerID. An empty mimeType is detected
// from data.
func (s *Sender) QueueFile(peerID, filename, mimeType string, data []byte) (string, error) {
	if peerID == "" {
		return "", ErrNoPeer
	}
	if filename == "" {
		filename = "file"
	}
	_, ft, err := payload.EncodeFile(filename, mimeType, data)
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", filename, err)
	}
	return s.queue(&store.OutboxEntry{
		PeerID:   peerID,
		Kind:     store.OutboxFile,
		Body:     ft.Data,
		Filename: ft.Filename,
		MimeType: ft.MimeType,
	})
}

func (s *Sender) queue(e *store.OutboxEntry) (string, error) {
	e.ClientMsgID = uuid.NewString()
	if err := s.db.QueueOutbox(e); err != nil {
		return "", fmt.Errorf("queue outbox: %w", err)
	}
	select {
	case s.kick <- struct{}{}:
	default:
	}
	return e.ClientMsgID, nil
}

// Start begins polling the outbox for pending messages.
func (s *Sender) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	go s.loop(ctx)
}

// Stop stops the sender loop.
func (s *Sender) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *Sender) loop(ctx context.Context) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.processPending()
		case <-s.kick:
			s.processPending()
		case <-ctx.Done():
			return
		}
	}
}

func (s *Sender) processPending() {
	pending, err := s.db.PendingOutbox()
	if err != nil {
		s.logger.Error("failed to read outbox", zap.Error(err))
		return
	}

	for _, entry := range pending {
		if err := s.db.MarkOutboxSending(entry.ClientMsgID); err != nil {
			s.logger.Error("failed to mark sending", zap.Error(err), zap.String("client_msg_id", entry.ClientMsgID))
			continue
		}

		frame, err := frameFor(entry)
		if err != nil {
			s.fail(entry, err)
			continue
		}

		entry := entry
		err = s.conns.Send(entry.PeerID, frame, func(err error) {
			if err != nil {
				s.fail(entry, err)
				return
			}
			s.sent(entry)
		})
		if err != nil {
			s.fail(entry, err)
		}
	}
}

func frameFor(e store.OutboxEntry) (transport.Frame, error) {
	switch e.Kind {
	case store.OutboxText:
		return payload.EncodeText(e.Body)
	case store.OutboxFile:
		return payload.EncodeTransfer(payload.FileTransfer{Filename: e.Filename, MimeType: e.MimeType, Data: e.Body})
	default:
		return transport.Frame{}, fmt.Errorf("unknown outbox kind %q", e.Kind)
	}
}

// echo is the local copy of a sent entry.
func echo(e store.OutboxEntry) chat.Message {
	m := chat.NewMessage(e.Body, chat.SelfLabel)
	m.ID = e.ClientMsgID
	m.IsSelf = true
	if e.Kind == store.OutboxFile {
		if strings.HasPrefix(e.MimeType, "image/") {
			m.IsImage = true
		} else {
			m.Filename = e.Filename
			if m.Filename == "" {
				m.Filename = fmt.Sprintf("file_%d", m.Timestamp.UnixMilli())
			}
		}
	}
	return m
}

func (s *Sender) sent(e store.OutboxEntry) {
	if err := s.db.MarkOutboxSent(e.ClientMsgID); err != nil {
		s.logger.Error("failed to mark sent", zap.Error(err), zap.String("client_msg_id", e.ClientMsgID))
	}
	if err := s.rec.Record(e.PeerID, echo(e)); err != nil {
		s.logger.Error("failed to record sent message", zap.Error(err), zap.String("client_msg_id", e.ClientMsgID))
	}
	s.logger.Info("message sent", zap.String("client_msg_id", e.ClientMsgID), zap.String("peer", e.PeerID))
	s.bus.Emit(bus.MessageSendAck, Ack{ClientMsgID: e.ClientMsgID, PeerID: e.PeerID})
}

func (s *Sender) fail(e store.OutboxEntry, err error) {
	s.logger.Error("failed to send message", zap.Error(err), zap.String("client_msg_id", e.ClientMsgID))
	_ = s.db.MarkOutboxFailed(e.ClientMsgID, err.Error())
	s.bus.Emit(bus.MessageSendFailed, Ack{ClientMsgID: e.ClientMsgID, PeerID: e.PeerID, Error: err.Error()})
}
