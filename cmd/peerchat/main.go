package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/matheus3301/peerchat/internal/app"
	"github.com/matheus3301/peerchat/internal/config"
	"github.com/matheus3301/peerchat/internal/session"
	"github.com/matheus3301/peerchat/internal/tui"
)

func main() {
	sessionFlag := flag.String("session", "", "session name (overrides config default)")
	roomFlag := flag.String("room", "", "room to join (overrides config)")
	usernameFlag := flag.String("username", "", "display name announced to the room")
	signalingFlag := flag.String("signaling", "", "signaling server URL")
	headless := flag.Bool("headless", false, "run without the terminal UI; control it with peerchatctl")
	loopback := flag.Bool("loopback", false, "gather loopback ICE candidates (local testing)")
	flag.Parse()

	sessionName := session.Resolve(*sessionFlag)
	if err := session.ValidateName(sessionName); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.LoadOrDefault(session.ConfigPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: load config: %v\n", err)
		os.Exit(1)
	}
	if *roomFlag != "" {
		cfg.Room = *roomFlag
	}
	if *usernameFlag != "" {
		cfg.Username = *usernameFlag
	}
	if *signalingFlag != "" {
		cfg.Signaling.URL = *signalingFlag
	}

	p := app.Params{
		SessionName: sessionName,
		Config:      cfg,
		Console:     *headless,
		Loopback:    *loopback,
	}
	frontend := tui.Module()
	if *headless {
		frontend = app.Headless()
	}

	a := fx.New(
		app.Module(p),
		frontend,
		fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger.Named("fx")}
		}),
	)
	if err := a.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	os.Exit(run(a))
}

// run starts the app, waits for a signal or for the UI to quit, and stops it.
func run(a *fx.App) int {
	startCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := a.Start(startCtx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	sig := <-a.Wait()

	stopCtx, cancelStop := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelStop()
	if err := a.Stop(stopCtx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	return sig.ExitCode
}
