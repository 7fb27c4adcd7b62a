// Package api exposes the running client over gRPC. Messages travel as
// google.protobuf.Struct values that map onto the JSON-tagged types below.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/matheus3301/peerchat/internal/call"
	"github.com/matheus3301/peerchat/internal/connmgr"
	"github.com/matheus3301/peerchat/internal/inbox"
	"github.com/matheus3301/peerchat/internal/media"
	"github.com/matheus3301/peerchat/internal/outbox"
	"github.com/matheus3301/peerchat/internal/room"
)

// Service names.
const (
	SessionServiceName = "peerchat.v1.SessionService"
	ContactServiceName = "peerchat.v1.ContactService"
	MessageServiceName = "peerchat.v1.MessageService"
	CallServiceName    = "peerchat.v1.CallService"
)

// ErrNotReady marks requests the session cannot serve yet, such as a join
// before the transport is registered.
var ErrNotReady = errors.New("session not ready")

// MaxMessageSize bounds control messages; file sends carry their data inline.
const MaxMessageSize = 64 << 20

// encode converts v to a Struct through its JSON form.
func encode(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	s := new(structpb.Struct)
	if err := protojson.Unmarshal(b, s); err != nil {
		return nil, err
	}
	return s, nil
}

// decode fills v from s through its JSON form.
func decode(s *structpb.Struct, v any) error {
	b, err := protojson.Marshal(s)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

// unary builds the method descriptor of a request/response call.
func unary[S, Req, Resp any](service, name string, fn func(S, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			handle := func(ctx context.Context, req any) (any, error) {
				r := new(Req)
				if err := decode(req.(*structpb.Struct), r); err != nil {
					return nil, grpcstatus.Errorf(codes.InvalidArgument, "decode request: %v", err)
				}
				resp, err := fn(srv.(S), ctx, r)
				if err != nil {
					return nil, err
				}
				return encode(resp)
			}
			if interceptor == nil {
				return handle(ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + service + "/" + name}
			return interceptor(ctx, in, info, handle)
		},
	}
}

// Register adds every control service to srv.
func Register(srv *grpc.Server, session *SessionService, contacts *ContactService, messages *MessageService, calls *CallService) {
	srv.RegisterService(&sessionServiceDesc, session)
	srv.RegisterService(&contactServiceDesc, contacts)
	srv.RegisterService(&messageServiceDesc, messages)
	srv.RegisterService(&callServiceDesc, calls)
}

// toStatus maps domain errors onto gRPC codes.
func toStatus(op string, err error) error {
	code := codes.Internal
	var se *room.StatusError
	switch {
	case errors.Is(err, outbox.ErrNoPeer), errors.Is(err, outbox.ErrEmpty),
		errors.Is(err, call.ErrNoPeer), errors.Is(err, connmgr.ErrNoPeer),
		errors.Is(err, inbox.ErrNotSelectable):
		code = codes.InvalidArgument
	case errors.Is(err, call.ErrNoActiveCall), errors.Is(err, call.ErrNoPendingCall),
		errors.Is(err, call.ErrBusy), errors.Is(err, ErrNotReady):
		code = codes.FailedPrecondition
	case errors.Is(err, media.ErrNoDevice):
		code = codes.NotFound
	case errors.Is(err, media.ErrPermission):
		code = codes.PermissionDenied
	case errors.As(err, &se):
		code = codes.Unavailable
	case errors.Is(err, context.Canceled):
		code = codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		code = codes.DeadlineExceeded
	}
	return grpcstatus.Error(code, fmt.Sprintf("%s: %v", op, err))
}
