// Package app wires the client's components together and runs them.
package app

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/matheus3301/peerchat/internal/api"
	"github.com/matheus3301/peerchat/internal/blob"
	"github.com/matheus3301/peerchat/internal/bus"
	"github.com/matheus3301/peerchat/internal/call"
	"github.com/matheus3301/peerchat/internal/chat"
	"github.com/matheus3301/peerchat/internal/config"
	"github.com/matheus3301/peerchat/internal/connmgr"
	"github.com/matheus3301/peerchat/internal/contacts"
	"github.com/matheus3301/peerchat/internal/inbox"
	"github.com/matheus3301/peerchat/internal/lock"
	"github.com/matheus3301/peerchat/internal/logging"
	"github.com/matheus3301/peerchat/internal/media"
	"github.com/matheus3301/peerchat/internal/outbox"
	"github.com/matheus3301/peerchat/internal/payload"
	"github.com/matheus3301/peerchat/internal/room"
	"github.com/matheus3301/peerchat/internal/rtc"
	"github.com/matheus3301/peerchat/internal/session"
	"github.com/matheus3301/peerchat/internal/store"
	"github.com/matheus3301/peerchat/internal/transport"
)

// Params holds the resolved session configuration passed to the fx module.
type Params struct {
	SessionName string
	Config      *config.Config
	SocketPath  string // optional override for testing; empty = use default
	Console     bool   // also log to stderr
	Loopback    bool   // gather loopback ICE candidates
}

// Module returns the fx module for a client session. The call view and
// prompts come from the caller: the terminal UI or Headless.
func Module(p Params) fx.Option {
	if p.Config == nil {
		p.Config = config.Default()
	}
	return fx.Module("peerchat",
		fx.Supply(p),
		fx.Provide(
			provideLogger,
			provideBus,
			provideLock,
			provideStore,
			provideBlobs,
			provideDirectory,
			provideChatStore,
			provideInbox,
			provideClassifier,
			provideTransport,
			provideConnections,
			provideDevices,
			provideCalls,
			provideRoom,
			provideSender,
			provideClient,
			func(c *Client) api.Session { return c },
			api.NewSessionService,
			api.NewContactService,
			api.NewMessageService,
			api.NewCallService,
			NewServer,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideLogger(p Params) (*zap.Logger, error) {
	return logging.New(session.LogPath(p.SessionName), p.SessionName, p.Console)
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := session.EnsureDir(p.SessionName); err != nil {
		return nil, err
	}
	logger.Info("acquiring session lock", zap.String("session", p.SessionName))
	l, err := lock.Acquire(session.Dir(p.SessionName))
	if err != nil {
		return nil, err
	}
	logger.Info("session lock acquired")
	return l, nil
}

func provideStore(logger *zap.Logger) (*store.DB, error) {
	db, err := store.OpenMemory()
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	logger.Info("store initialized", zap.Uint("version", result.Version))
	return db, nil
}

func provideBlobs() *blob.Registry {
	return blob.NewRegistry(blob.DefaultGrace)
}

func provideDirectory(b *bus.Bus) *contacts.Directory {
	return contacts.NewDirectory(b)
}

func provideChatStore(db *store.DB, dir *contacts.Directory, logger *zap.Logger) *chat.Store {
	return chat.NewStore(store.NewHistory(db), dir.Name, logger)
}

func provideInbox(chats *chat.Store, dir *contacts.Directory, b *bus.Bus, logger *zap.Logger) *inbox.Inbox {
	return inbox.New(chats, dir, b, logger)
}

func provideClassifier(blobs *blob.Registry, dir *contacts.Directory, logger *zap.Logger) *payload.Classifier {
	return payload.NewClassifier(blobs, dir.Name, logger)
}

func provideTransport(p Params, logger *zap.Logger) (*Transport, error) {
	webAPI, err := rtc.NewAPI(rtc.APIOptions{IncludeLoopback: p.Loopback})
	if err != nil {
		return nil, err
	}
	broker := rtc.BrokerConfig{URL: p.Config.Broker.URL, Key: p.Config.Broker.Key}
	return NewTransport(webAPI, rtc.Configuration(p.Config.ICE.Servers), broker, logger), nil
}

func provideConnections(t *Transport, cls *payload.Classifier, in *inbox.Inbox, b *bus.Bus, logger *zap.Logger) *connmgr.Manager {
	return connmgr.New(t, cls, in, b, logger)
}

func provideDevices(p Params, logger *zap.Logger) media.Devices {
	m := p.Config.Media
	cams := make([]media.Camera, 0, len(m.Cameras))
	for _, c := range m.Cameras {
		cams = append(cams, media.Camera{ID: c.ID, Label: c.Label, Path: c.Path, FacingMode: c.FacingMode})
	}
	return media.NewFileDevices(cams, m.Microphone, m.Display, logger)
}

func provideCalls(t *Transport, devices media.Devices, view call.RemoteView, prompt call.Prompter, dir *contacts.Directory, b *bus.Bus, logger *zap.Logger) *call.Manager {
	return call.New(t, devices, view, prompt, dir.Name, b, logger)
}

func provideRoom(p Params, logger *zap.Logger) *room.Client {
	return room.New(p.Config.Signaling.URL, logger)
}

func provideSender(db *store.DB, conns *connmgr.Manager, in *inbox.Inbox, b *bus.Bus, logger *zap.Logger) *outbox.Sender {
	return outbox.NewSender(db, conns, in, b, logger)
}

func provideClient(p Params, t *Transport, rooms *room.Client, in *inbox.Inbox, lk *lock.Lock, prompt call.Prompter, b *bus.Bus, logger *zap.Logger) *Client {
	return NewClient(ClientParams{
		Name:      p.SessionName,
		Username:  p.Config.Username,
		Room:      p.Config.Room,
		Signaling: p.Config.Signaling.URL,
		Interval:  p.Config.Signaling.RefreshInterval.Duration,
		Transport: t,
		Rooms:     rooms,
		Inbox:     in,
		Lock:      lk,
		Prompt:    prompt,
		Bus:       b,
		Logger:    logger,
	})
}

type lifecycleParams struct {
	fx.In

	Server    *Server
	Lock      *lock.Lock
	DB        *store.DB
	Blobs     *blob.Registry
	Transport *Transport
	Conns     *connmgr.Manager
	Calls     *call.Manager
	Sender    *outbox.Sender
	Client    *Client
	Logger    *zap.Logger
}

func registerLifecycle(lc fx.Lifecycle, p lifecycleParams) {
	logger := p.Logger
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			p.Transport.OnConnection(p.Conns.Accept)
			p.Transport.OnCall(func(mc transport.MediaConn) {
				p.Calls.HandleIncoming(mc)
			})

			p.Sender.Start(context.Background())

			go func() {
				if err := p.Server.Start(); err != nil {
					logger.Error("gRPC server error", zap.Error(err))
				}
			}()

			// Transport open, room join and roster refresh run in the background.
			p.Client.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			p.Client.Stop()
			p.Sender.Stop()
			p.Calls.Close()
			p.Conns.Close()
			if err := p.Transport.Close(); err != nil {
				logger.Warn("error closing transport", zap.Error(err))
			}
			p.Server.Stop(ctx)
			p.Blobs.Close()
			_ = p.DB.Close()
			if err := p.Lock.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("session stopped")
			_ = logger.Sync()
			return nil
		},
	})
}
