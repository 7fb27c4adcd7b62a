package app

import (
	"context"
	"sync"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/matheus3301/peerchat/internal/call"
	"github.com/matheus3301/peerchat/internal/transport"
)

// Headless provides the call view and prompts for running without a
// terminal. Remote media is only logged, and incoming calls stay pending
// until answered over the control socket.
func Headless() fx.Option {
	return fx.Provide(
		fx.Annotate(newLogView, fx.As(new(call.RemoteView))),
		fx.Annotate(newLogPrompter, fx.As(new(call.Prompter))),
	)
}

type logView struct {
	mu      sync.Mutex
	visible bool
	logger  *zap.Logger
}

func newLogView(logger *zap.Logger) *logView {
	return &logView{logger: logger.Named("view")}
}

func (v *logView) Show(peerID string, rs transport.RemoteStream, screen bool) {
	v.mu.Lock()
	v.visible = true
	v.mu.Unlock()
	v.logger.Info("remote media",
		zap.String("peer", peerID),
		zap.String("stream", rs.ID()),
		zap.Int("video_tracks", len(rs.VideoTracks())),
		zap.Int("audio_tracks", len(rs.AudioTracks())),
		zap.Bool("screen", screen),
	)
}

func (v *logView) Hide() {
	v.mu.Lock()
	v.visible = false
	v.mu.Unlock()
	v.logger.Info("remote media hidden")
}

func (v *logView) Visible() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.visible
}

// logPrompter declines every question and logs alerts.
type logPrompter struct {
	logger *zap.Logger
}

func newLogPrompter(logger *zap.Logger) *logPrompter {
	return &logPrompter{logger: logger.Named("prompt")}
}

func (p *logPrompter) Confirm(_ context.Context, msg string) bool {
	p.logger.Info("question declined", zap.String("question", msg))
	return false
}

func (p *logPrompter) Alert(msg string) {
	p.logger.Warn("alert", zap.String("message", msg))
}
