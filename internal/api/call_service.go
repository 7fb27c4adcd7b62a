package api

import (
	"context"

	"google.golang.org/grpc"

	"github.com/matheus3301/peerchat/internal/call"
	"github.com/matheus3301/peerchat/internal/inbox"
)

// CallService implements peerchat.v1.CallService. Calls placed here behave
// like the ones started from the terminal: prompts and alerts still show
// there.
type CallService struct {
	calls *call.Manager
	inbox *inbox.Inbox
}

// NewCallService creates a new call service.
func NewCallService(calls *call.Manager, in *inbox.Inbox) *CallService {
	return &CallService{calls: calls, inbox: in}
}

func (s *CallService) GetCallStatus(_ context.Context, _ *Empty) (*CallStatus, error) {
	return s.status(), nil
}

func (s *CallService) Call(ctx context.Context, req *PeerRequest) (*CallStatus, error) {
	peerID := req.PeerID
	if peerID == "" {
		peerID = s.inbox.Active()
	}
	if err := s.calls.Call(ctx, peerID); err != nil {
		return nil, toStatus("call", err)
	}
	return s.status(), nil
}

func (s *CallService) Answer(ctx context.Context, _ *Empty) (*CallStatus, error) {
	if err := s.calls.AnswerPending(ctx); err != nil {
		return nil, toStatus("answer", err)
	}
	return s.status(), nil
}

// Hangup ends the call without the terminal's confirmation prompt.
func (s *CallService) Hangup(_ context.Context, _ *Empty) (*CallStatus, error) {
	if err := s.calls.End(); err != nil {
		return nil, toStatus("hangup", err)
	}
	return s.status(), nil
}

func (s *CallService) ToggleShare(ctx context.Context, _ *Empty) (*CallStatus, error) {
	if err := s.calls.ToggleShare(ctx); err != nil {
		return nil, toStatus("share", err)
	}
	return s.status(), nil
}

func (s *CallService) ListCameras(_ context.Context, _ *Empty) (*CameraList, error) {
	selected := s.calls.SelectedCamera()
	devices := s.calls.Devices()
	resp := &CameraList{Cameras: make([]Camera, 0, len(devices))}
	for _, d := range devices {
		resp.Cameras = append(resp.Cameras, Camera{ID: d.ID, Label: d.Label, Selected: d.ID == selected})
	}
	return resp, nil
}

func (s *CallService) SelectCamera(ctx context.Context, req *SelectCameraRequest) (*CameraList, error) {
	if err := s.calls.SelectCamera(ctx, req.DeviceID); err != nil {
		return nil, toStatus("select camera", err)
	}
	return s.ListCameras(ctx, &Empty{})
}

func (s *CallService) status() *CallStatus {
	return &CallStatus{
		State:   string(s.calls.State()),
		Peer:    s.calls.Peer(),
		Sharing: s.calls.Sharing(),
	}
}

var callServiceDesc = grpc.ServiceDesc{
	ServiceName: CallServiceName,
	HandlerType: (*any)(nil),
	Methods: []grpc.MethodDesc{
		unary(CallServiceName, "GetCallStatus", (*CallService).GetCallStatus),
		unary(CallServiceName, "Call", (*CallService).Call),
		unary(CallServiceName, "Answer", (*CallService).Answer),
		unary(CallServiceName, "Hangup", (*CallService).Hangup),
		unary(CallServiceName, "ToggleShare", (*CallService).ToggleShare),
		unary(CallServiceName, "ListCameras", (*CallService).ListCameras),
		unary(CallServiceName, "SelectCamera", (*CallService).SelectCamera),
	},
}
