package api

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"

	"github.com/matheus3301/peerchat/internal/chat"
	"github.com/matheus3301/peerchat/internal/inbox"
	"github.com/matheus3301/peerchat/internal/outbox"
	"github.com/matheus3301/peerchat/internal/store"
)

const defaultLimit = 50

// MessageService implements peerchat.v1.MessageService.
type MessageService struct {
	chats  *chat.Store
	db     *store.DB
	sender *outbox.Sender
	inbox  *inbox.Inbox
}

// NewMessageService creates a new message service.
func NewMessageService(chats *chat.Store, db *store.DB, sender *outbox.Sender, in *inbox.Inbox) *MessageService {
	return &MessageService{chats: chats, db: db, sender: sender, inbox: in}
}

// peer defaults to the active conversation.
func (s *MessageService) peer(id string) string {
	if id = strings.TrimSpace(id); id != "" {
		return id
	}
	return s.inbox.Active()
}

func (s *MessageService) ListMessages(_ context.Context, req *ListMessagesRequest) (*MessageList, error) {
	peerID := s.peer(req.PeerID)
	if peerID == "" {
		return nil, grpcstatus.Error(codes.InvalidArgument, "peer_id is required when no contact is selected")
	}
	limit := req.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	msgs, err := s.chats.History(peerID)
	if err != nil {
		return nil, toStatus("list messages", err)
	}
	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	resp := &MessageList{Messages: make([]Message, 0, len(msgs))}
	for _, m := range msgs {
		resp.Messages = append(resp.Messages, messageToAPI(peerID, m))
	}
	return resp, nil
}

func (s *MessageService) SearchMessages(_ context.Context, req *SearchRequest) (*SearchResponse, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, grpcstatus.Error(codes.InvalidArgument, "query is required")
	}
	limit := req.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	results, err := s.db.SearchMessages(req.Query, req.PeerID, limit)
	if err != nil {
		return nil, toStatus("search messages", err)
	}
	resp := &SearchResponse{Results: make([]SearchResult, 0, len(results))}
	for _, r := range results {
		resp.Results = append(resp.Results, SearchResult{
			Message: messageToAPI(r.Message.PeerID, store.ToChat(r.Message)),
			Snippet: r.Snippet,
		})
	}
	return resp, nil
}

func (s *MessageService) SendText(_ context.Context, req *SendTextRequest) (*SendResponse, error) {
	peerID := s.peer(req.PeerID)
	id, err := s.sender.QueueText(peerID, req.Text)
	if err != nil {
		return nil, toStatus("send text", err)
	}
	return &SendResponse{ClientMsgID: id, PeerID: peerID}, nil
}

func (s *MessageService) SendFile(_ context.Context, req *SendFileRequest) (*SendResponse, error) {
	peerID := s.peer(req.PeerID)
	id, err := s.sender.QueueFile(peerID, req.Filename, req.MimeType, req.Data)
	if err != nil {
		return nil, toStatus("send file", err)
	}
	return &SendResponse{ClientMsgID: id, PeerID: peerID}, nil
}

func messageToAPI(peerID string, m chat.Message) Message {
	return Message{
		ID:          m.ID,
		PeerID:      peerID,
		Sender:      m.Sender,
		Content:     m.Content,
		IsImage:     m.IsImage,
		IsSelf:      m.IsSelf,
		Filename:    m.Filename,
		TimestampMs: m.Timestamp.UnixMilli(),
	}
}

var messageServiceDesc = grpc.ServiceDesc{
	ServiceName: MessageServiceName,
	HandlerType: (*any)(nil),
	Methods: []grpc.MethodDesc{
		unary(MessageServiceName, "ListMessages", (*MessageService).ListMessages),
		unary(MessageServiceName, "SearchMessages", (*MessageService).SearchMessages),
		unary(MessageServiceName, "SendText", (*MessageService).SendText),
		unary(MessageServiceName, "SendFile", (*MessageService).SendFile),
	},
}
