package api

import (
	"context"
	"errors"
	"fmt"
	"io"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client talks to a running client's control socket.
type Client struct {
	conn *grpc.ClientConn
}

// Dial connects to the control socket at socketPath.
func Dial(socketPath string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.MaxCallSendMsgSize(MaxMessageSize), grpc.MaxCallRecvMsgSize(MaxMessageSize)),
	}, opts...)
	conn, err := grpc.NewClient("unix://"+socketPath, opts...)
	if err != nil {
		return nil, fmt.Errorf("dial control socket: %w", err)
	}
	return &Client{conn: conn}, nil
}

// NewClient wraps an existing connection.
func NewClient(conn *grpc.ClientConn) *Client {
	return &Client{conn: conn}
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func invoke[Resp any](ctx context.Context, c *Client, service, method string, req any) (*Resp, error) {
	in, err := encode(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, "/"+service+"/"+method, in, out); err != nil {
		return nil, err
	}
	resp := new(Resp)
	if err := decode(out, resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return resp, nil
}

func (c *Client) Status(ctx context.Context) (*Status, error) {
	return invoke[Status](ctx, c, SessionServiceName, "GetStatus", &Empty{})
}

func (c *Client) Join(ctx context.Context, room string) error {
	_, err := invoke[Empty](ctx, c, SessionServiceName, "Join", &JoinRequest{Room: room})
	return err
}

func (c *Client) Refresh(ctx context.Context) (*RefreshResponse, error) {
	return invoke[RefreshResponse](ctx, c, SessionServiceName, "Refresh", &Empty{})
}

// Watch streams events whose kind starts with prefix to fn until ctx ends
// or the server goes away.
func (c *Client) Watch(ctx context.Context, prefix string, fn func(Event)) error {
	desc := &grpc.StreamDesc{StreamName: "WatchEvents", ServerStreams: true}
	stream, err := c.conn.NewStream(ctx, desc, "/"+SessionServiceName+"/WatchEvents")
	if err != nil {
		return err
	}
	in, err := encode(&WatchRequest{Prefix: prefix})
	if err != nil {
		return err
	}
	if err := stream.SendMsg(in); err != nil {
		return err
	}
	if err := stream.CloseSend(); err != nil {
		return err
	}
	for {
		out := new(structpb.Struct)
		if err := stream.RecvMsg(out); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		var evt Event
		if err := decode(out, &evt); err != nil {
			return fmt.Errorf("decode event: %w", err)
		}
		fn(evt)
	}
}

func (c *Client) Contacts(ctx context.Context) (*ContactList, error) {
	return invoke[ContactList](ctx, c, ContactServiceName, "ListContacts", &Empty{})
}

func (c *Client) SelectContact(ctx context.Context, peerID string) (*Contact, error) {
	return invoke[Contact](ctx, c, ContactServiceName, "SelectContact", &PeerRequest{PeerID: peerID})
}

func (c *Client) Messages(ctx context.Context, peerID string, limit int) (*MessageList, error) {
	return invoke[MessageList](ctx, c, MessageServiceName, "ListMessages", &ListMessagesRequest{PeerID: peerID, Limit: limit})
}

func (c *Client) Search(ctx context.Context, query, peerID string, limit int) (*SearchResponse, error) {
	return invoke[SearchResponse](ctx, c, MessageServiceName, "SearchMessages", &SearchRequest{Query: query, PeerID: peerID, Limit: limit})
}

func (c *Client) SendText(ctx context.Context, peerID, text string) (*SendResponse, error) {
	return invoke[SendResponse](ctx, c, MessageServiceName, "SendText", &SendTextRequest{PeerID: peerID, Text: text})
}

func (c *Client) SendFile(ctx context.Context, req *SendFileRequest) (*SendResponse, error) {
	return invoke[SendResponse](ctx, c, MessageServiceName, "SendFile", req)
}

func (c *Client) CallStatus(ctx context.Context) (*CallStatus, error) {
	return invoke[CallStatus](ctx, c, CallServiceName, "GetCallStatus", &Empty{})
}

func (c *Client) Call(ctx context.Context, peerID string) (*CallStatus, error) {
	return invoke[CallStatus](ctx, c, CallServiceName, "Call", &PeerRequest{PeerID: peerID})
}

func (c *Client) Answer(ctx context.Context) (*CallStatus, error) {
	return invoke[CallStatus](ctx, c, CallServiceName, "Answer", &Empty{})
}

func (c *Client) Hangup(ctx context.Context) (*CallStatus, error) {
	return invoke[CallStatus](ctx, c, CallServiceName, "Hangup", &Empty{})
}

func (c *Client) ToggleShare(ctx context.Context) (*CallStatus, error) {
	return invoke[CallStatus](ctx, c, CallServiceName, "ToggleShare", &Empty{})
}

func (c *Client) Cameras(ctx context.Context) (*CameraList, error) {
	return invoke[CameraList](ctx, c, CallServiceName, "ListCameras", &Empty{})
}

func (c *Client) SelectCamera(ctx context.Context, deviceID string) (*CameraList, error) {
	return invoke[CameraList](ctx, c, CallServiceName, "SelectCamera", &SelectCameraRequest{DeviceID: deviceID})
}
