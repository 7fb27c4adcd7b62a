package api

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/matheus3301/peerchat/internal/bus"
	"github.com/matheus3301/peerchat/internal/call"
	"github.com/matheus3301/peerchat/internal/connmgr"
	"github.com/matheus3301/peerchat/internal/contacts"
	"github.com/matheus3301/peerchat/internal/store"
)

// Session is the running client as the control socket sees it.
type Session interface {
	Info() SessionInfo
	Join(ctx context.Context, room string) error
	Refresh(ctx context.Context) error
}

// SessionInfo identifies the running client.
type SessionInfo struct {
	Name      string
	PeerID    string
	Username  string
	Room      string
	Signaling string
	Started   time.Time
}

// SessionService implements peerchat.v1.SessionService.
type SessionService struct {
	session Session
	dir     *contacts.Directory
	calls   *call.Manager
	conns   *connmgr.Manager
	db      *store.DB
	bus     *bus.Bus
}

// NewSessionService creates a new session service.
func NewSessionService(session Session, dir *contacts.Directory, calls *call.Manager, conns *connmgr.Manager, db *store.DB, b *bus.Bus) *SessionService {
	return &SessionService{
		session: session,
		dir:     dir,
		calls:   calls,
		conns:   conns,
		db:      db,
		bus:     b,
	}
}

func (s *SessionService) GetStatus(_ context.Context, _ *Empty) (*Status, error) {
	info := s.session.Info()
	resp := &Status{
		Session:   info.Name,
		PeerID:    info.PeerID,
		Username:  info.Username,
		Room:      info.Room,
		Signaling: info.Signaling,
		UptimeMs:  time.Since(info.Started).Milliseconds(),
	}
	if s.calls != nil {
		resp.CallState = string(s.calls.State())
		resp.CallPeer = s.calls.Peer()
		resp.Sharing = s.calls.Sharing()
	}
	if s.dir != nil {
		for _, e := range s.dir.Entries() {
			if !e.Self {
				resp.Contacts++
			}
		}
	}
	if s.conns != nil {
		resp.Connections = len(s.conns.Peers())
	}
	if s.db != nil {
		if n, err := s.db.MessageCount(); err == nil {
			resp.Messages = n
		}
	}
	return resp, nil
}

func (s *SessionService) Join(ctx context.Context, req *JoinRequest) (*Empty, error) {
	room := strings.TrimSpace(req.Room)
	if room == "" {
		return nil, grpcstatus.Error(codes.InvalidArgument, "room is required")
	}
	if err := s.session.Join(ctx, room); err != nil {
		return nil, toStatus("join", err)
	}
	return &Empty{}, nil
}

func (s *SessionService) Refresh(ctx context.Context, _ *Empty) (*RefreshResponse, error) {
	if err := s.session.Refresh(ctx); err != nil {
		return nil, toStatus("refresh", err)
	}
	resp := &RefreshResponse{}
	for _, e := range s.dir.Entries() {
		if !e.Self {
			resp.Contacts++
		}
	}
	return resp, nil
}

// WatchEvents streams bus events until the client goes away.
func (s *SessionService) WatchEvents(req *WatchRequest, stream grpc.ServerStream) error {
	ch, unsub := s.bus.Subscribe(req.Prefix, 64)
	defer unsub()

	for {
		select {
		case evt := <-ch:
			out, err := encode(eventToAPI(evt))
			if err != nil {
				return grpcstatus.Errorf(codes.Internal, "encode event: %v", err)
			}
			if err := stream.SendMsg(out); err != nil {
				return err
			}
		case <-stream.Context().Done():
			return nil
		}
	}
}

func eventToAPI(evt bus.Event) Event {
	out := Event{Kind: evt.Kind, TimestampMs: evt.Timestamp.UnixMilli()}
	if evt.Payload != nil {
		if b, err := json.Marshal(evt.Payload); err == nil {
			out.Payload = b
		}
	}
	return out
}

var sessionServiceDesc = grpc.ServiceDesc{
	ServiceName: SessionServiceName,
	HandlerType: (*any)(nil),
	Methods: []grpc.MethodDesc{
		unary(SessionServiceName, "GetStatus", (*SessionService).GetStatus),
		unary(SessionServiceName, "Join", (*SessionService).Join),
		unary(SessionServiceName, "Refresh", (*SessionService).Refresh),
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "WatchEvents",
			ServerStreams: true,
			Handler: func(srv any, stream grpc.ServerStream) error {
				in := new(structpb.Struct)
				if err := stream.RecvMsg(in); err != nil {
					return err
				}
				req := new(WatchRequest)
				if err := decode(in, req); err != nil {
					return grpcstatus.Errorf(codes.InvalidArgument, "decode request: %v", err)
				}
				return srv.(*SessionService).WatchEvents(req, stream)
			},
		},
	},
}
