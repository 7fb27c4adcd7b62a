package tui

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/matheus3301/peerchat/internal/app"
	"github.com/matheus3301/peerchat/internal/blob"
	"github.com/matheus3301/peerchat/internal/bus"
	"github.com/matheus3301/peerchat/internal/call"
	"github.com/matheus3301/peerchat/internal/chat"
	"github.com/matheus3301/peerchat/internal/connmgr"
	"github.com/matheus3301/peerchat/internal/contacts"
	"github.com/matheus3301/peerchat/internal/inbox"
	"github.com/matheus3301/peerchat/internal/outbox"
	"github.com/matheus3301/peerchat/internal/session"
	"github.com/matheus3301/peerchat/internal/store"
	"github.com/matheus3301/peerchat/internal/tui/views"
)

// Module provides the terminal UI as the session's call view and
// prompter, and runs it for the lifetime of the app. Quitting the UI
// shuts the app down.
func Module() fx.Option {
	return fx.Module("tui",
		fx.Provide(
			NewScreen,
			newCallView,
			func(v *views.CallView) call.RemoteView { return v },
			NewDialogs,
			func(d *Dialogs) call.Prompter { return d },
			newUI,
		),
		fx.Invoke(registerUI),
	)
}

func newCallView(s *Screen, dir *contacts.Directory) *views.CallView {
	return views.NewCallView(s.Theme, s.Queue, dir.Name)
}

type uiParams struct {
	fx.In

	Params   app.Params
	Screen   *Screen
	CallView *views.CallView
	Dialogs  *Dialogs
	Chats    *chat.Store
	Inbox    *inbox.Inbox
	Dir      *contacts.Directory
	Conns    *connmgr.Manager
	Calls    *call.Manager
	Sender   *outbox.Sender
	Client   *app.Client
	DB       *store.DB
	Blobs    *blob.Registry
	Bus      *bus.Bus
	Logger   *zap.Logger
}

func newUI(p uiParams) *UI {
	downloads := p.Params.Config.Downloads.Dir
	if downloads == "" {
		downloads = session.DownloadsDir(p.Params.SessionName)
	}
	return New(Options{
		Downloads: expandHome(downloads),
		Screen:    p.Screen,
		CallView:  p.CallView,
		Dialogs:   p.Dialogs,
		Chats:     p.Chats,
		Inbox:     p.Inbox,
		Contacts:  p.Dir,
		Conns:     p.Conns,
		Calls:     p.Calls,
		Sender:    p.Sender,
		Session:   p.Client,
		Search:    p.DB,
		Blobs:     p.Blobs,
		Bus:       p.Bus,
		Logger:    p.Logger,
	})
}

func registerUI(lc fx.Lifecycle, sd fx.Shutdowner, u *UI, logger *zap.Logger) {
	done := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			if err := u.Start(); err != nil {
				return err
			}
			go func() {
				defer close(done)
				if err := u.Run(); err != nil {
					logger.Error("terminal UI failed", zap.Error(err))
				}
				if err := sd.Shutdown(); err != nil {
					logger.Warn("shutdown", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			u.Stop()
			select {
			case <-done:
			case <-ctx.Done():
			}
			return nil
		},
	})
}
