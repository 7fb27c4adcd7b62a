package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/gabriel-vasile/mimetype"

	"github.com/matheus3301/peerchat/internal/api"
	"github.com/matheus3301/peerchat/internal/session"
)

var (
	jsonOut bool

	dim   = color.New(color.Faint).SprintFunc()
	bold  = color.New(color.Bold).SprintFunc()
	green = color.New(color.FgGreen).SprintFunc()
	cyan  = color.New(color.FgCyan).SprintFunc()
)

func main() {
	sessionFlag := flag.String("session", "", "session name (overrides config default)")
	flag.BoolVar(&jsonOut, "json", false, "output in JSON format")
	flag.Parse()

	sessionName := session.Resolve(*sessionFlag)
	if err := session.ValidateName(sessionName); err != nil {
		fail(err)
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	c, err := api.Dial(session.SocketPath(sessionName))
	if err != nil {
		fail(fmt.Errorf("cannot connect to session %q: %w", sessionName, err))
	}
	defer func() { _ = c.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if args[0] != "watch" {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "status":
		cmdStatus(ctx, c)
	case "contacts":
		cmdContacts(ctx, c)
	case "select":
		need(rest, 1, "select <peer-id>")
		cmdSelect(ctx, c, rest[0])
	case "messages":
		cmdMessages(ctx, c, rest)
	case "send":
		need(rest, 2, "send <peer-id|-> <text...>")
		cmdSend(ctx, c, peerArg(rest[0]), strings.Join(rest[1:], " "))
	case "send-file":
		need(rest, 2, "send-file <peer-id|-> <path>")
		cmdSendFile(ctx, c, peerArg(rest[0]), rest[1])
	case "search":
		need(rest, 1, "search <query> [peer-id]")
		peerID := ""
		if len(rest) > 1 {
			peerID = rest[1]
		}
		cmdSearch(ctx, c, rest[0], peerID)
	case "join":
		need(rest, 1, "join <room>")
		check(c.Join(ctx, rest[0]))
		fmt.Printf("Joined room %s\n", bold(rest[0]))
	case "refresh":
		resp, err := c.Refresh(ctx)
		check(err)
		if jsonOut {
			outputJSON(resp)
			return
		}
		fmt.Printf("Roster refreshed: %d contacts\n", resp.Contacts)
	case "call":
		peerID := ""
		if len(rest) > 0 {
			peerID = rest[0]
		}
		printCall(c.Call(ctx, peerID))
	case "answer":
		printCall(c.Answer(ctx))
	case "hangup":
		printCall(c.Hangup(ctx))
	case "share":
		printCall(c.ToggleShare(ctx))
	case "cameras":
		printCameras(c.Cameras(ctx))
	case "camera":
		need(rest, 1, "camera <device-id>")
		printCameras(c.SelectCamera(ctx, rest[0]))
	case "watch":
		prefix := ""
		if len(rest) > 0 {
			prefix = rest[0]
		}
		cmdWatch(ctx, c, prefix)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: peerchatctl [--session <name>] [--json] <command>")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "commands:")
	fmt.Fprintln(os.Stderr, "  status                       Show session status")
	fmt.Fprintln(os.Stderr, "  contacts                     List contacts")
	fmt.Fprintln(os.Stderr, "  select <peer-id>             Open a conversation")
	fmt.Fprintln(os.Stderr, "  messages [peer-id] [limit]   Show a conversation")
	fmt.Fprintln(os.Stderr, "  send <peer-id|-> <text>      Send a text message")
	fmt.Fprintln(os.Stderr, "  send-file <peer-id|-> <path> Send a file")
	fmt.Fprintln(os.Stderr, "  search <query> [peer-id]     Search messages")
	fmt.Fprintln(os.Stderr, "  join <room>                  Join another room")
	fmt.Fprintln(os.Stderr, "  refresh                      Refresh the room roster")
	fmt.Fprintln(os.Stderr, "  call [peer-id]               Start a call")
	fmt.Fprintln(os.Stderr, "  answer                       Answer the incoming call")
	fmt.Fprintln(os.Stderr, "  hangup                       End the call")
	fmt.Fprintln(os.Stderr, "  share                        Toggle screen sharing")
	fmt.Fprintln(os.Stderr, "  cameras                      List cameras")
	fmt.Fprintln(os.Stderr, "  camera <device-id>           Select a camera")
	fmt.Fprintln(os.Stderr, "  watch [prefix]               Stream events (e.g. call. or message.)")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "A peer id of - means the selected contact.")
}

func cmdStatus(ctx context.Context, c *api.Client) {
	resp, err := c.Status(ctx)
	check(err)
	if jsonOut {
		outputJSON(resp)
		return
	}
	fmt.Printf("Session:     %s\n", bold(resp.Session))
	fmt.Printf("Peer ID:     %s\n", orDash(resp.PeerID))
	fmt.Printf("Username:    %s\n", orDash(resp.Username))
	fmt.Printf("Room:        %s\n", orDash(resp.Room))
	fmt.Printf("Signaling:   %s\n", resp.Signaling)
	fmt.Printf("Uptime:      %s\n", (time.Duration(resp.UptimeMs) * time.Millisecond).Round(time.Second))
	call := resp.CallState
	if resp.CallPeer != "" {
		call += " " + resp.CallPeer
	}
	if resp.Sharing {
		call += " (sharing)"
	}
	fmt.Printf("Call:        %s\n", call)
	fmt.Printf("Contacts:    %d (%d connected)\n", resp.Contacts, resp.Connections)
	fmt.Printf("Messages:    %d\n", resp.Messages)
}

func cmdContacts(ctx context.Context, c *api.Client) {
	resp, err := c.Contacts(ctx)
	check(err)
	if jsonOut {
		outputJSON(resp)
		return
	}
	if len(resp.Contacts) == 0 {
		fmt.Println("No contacts.")
		return
	}
	for _, ct := range resp.Contacts {
		mark := " "
		switch {
		case ct.Self:
			mark = dim("@")
		case ct.Selected:
			mark = green(">")
		case ct.Unread:
			mark = cyan("●")
		}
		label := ct.Label
		if ct.Self {
			label = dim(label + " (you)")
		}
		fmt.Printf("%s %-24s %s\n", mark, label, dim(ct.ID))
	}
}

func cmdSelect(ctx context.Context, c *api.Client, peerID string) {
	resp, err := c.SelectContact(ctx, peerID)
	check(err)
	if jsonOut {
		outputJSON(resp)
		return
	}
	fmt.Printf("Selected %s\n", bold(resp.Label))
}

func cmdMessages(ctx context.Context, c *api.Client, args []string) {
	peerID, limit := "", 50
	for _, a := range args {
		if n, err := strconv.Atoi(a); err == nil {
			limit = n
			continue
		}
		peerID = peerArg(a)
	}
	resp, err := c.Messages(ctx, peerID, limit)
	check(err)
	if jsonOut {
		outputJSON(resp)
		return
	}
	if len(resp.Messages) == 0 {
		fmt.Println("No messages.")
		return
	}
	for _, m := range resp.Messages {
		printMessage(m)
	}
}

func printMessage(m api.Message) {
	ts := time.UnixMilli(m.TimestampMs).Format("01/02 15:04")
	sender := cyan(m.Sender)
	if m.IsSelf {
		sender = green(m.Sender)
	}
	body := m.Content
	switch {
	case m.IsImage:
		body = "[image] " + m.Filename
	case m.Filename != "":
		body = "[file] " + m.Filename
	}
	fmt.Printf("%s %s: %s\n", dim(ts), sender, body)
}

func cmdSend(ctx context.Context, c *api.Client, peerID, text string) {
	resp, err := c.SendText(ctx, peerID, text)
	check(err)
	if jsonOut {
		outputJSON(resp)
		return
	}
	fmt.Printf("Queued %s for %s\n", dim(resp.ClientMsgID), resp.PeerID)
}

func cmdSendFile(ctx context.Context, c *api.Client, peerID, path string) {
	data, err := os.ReadFile(path)
	check(err)
	resp, err := c.SendFile(ctx, &api.SendFileRequest{
		PeerID:   peerID,
		Filename: filepath.Base(path),
		MimeType: mimetype.Detect(data).String(),
		Data:     data,
	})
	check(err)
	if jsonOut {
		outputJSON(resp)
		return
	}
	fmt.Printf("Queued %s (%d bytes) for %s\n", filepath.Base(path), len(data), resp.PeerID)
}

func cmdSearch(ctx context.Context, c *api.Client, query, peerID string) {
	resp, err := c.Search(ctx, query, peerID, 50)
	check(err)
	if jsonOut {
		outputJSON(resp)
		return
	}
	if len(resp.Results) == 0 {
		fmt.Println("No matches.")
		return
	}
	for _, r := range resp.Results {
		ts := time.UnixMilli(r.Message.TimestampMs).Format("01/02 15:04")
		fmt.Printf("%s %-20s %s\n", dim(ts), cyan(r.Message.PeerID), r.Snippet)
	}
}

func printCall(resp *api.CallStatus, err error) {
	check(err)
	if jsonOut {
		outputJSON(resp)
		return
	}
	line := bold(resp.State)
	if resp.Peer != "" {
		line += " " + resp.Peer
	}
	if resp.Sharing {
		line += " " + green("sharing")
	}
	fmt.Println(line)
}

func printCameras(resp *api.CameraList, err error) {
	check(err)
	if jsonOut {
		outputJSON(resp)
		return
	}
	if len(resp.Cameras) == 0 {
		fmt.Println("No cameras configured.")
		return
	}
	for _, cam := range resp.Cameras {
		mark := " "
		if cam.Selected {
			mark = green("*")
		}
		fmt.Printf("%s %-16s %s\n", mark, cam.ID, cam.Label)
	}
}

func cmdWatch(ctx context.Context, c *api.Client, prefix string) {
	err := c.Watch(ctx, prefix, func(evt api.Event) {
		if jsonOut {
			outputJSON(evt)
			return
		}
		ts := time.UnixMilli(evt.TimestampMs).Format("15:04:05")
		fmt.Printf("%s %s %s\n", dim(ts), bold(evt.Kind), string(evt.Payload))
	})
	if err != nil && ctx.Err() == nil {
		fail(err)
	}
}

// peerArg maps "-" to the selected contact.
func peerArg(s string) string {
	if s == "-" {
		return ""
	}
	return s
}

func orDash(s string) string {
	if s == "" {
		return dim("-")
	}
	return s
}

func need(args []string, n int, usage string) {
	if len(args) < n {
		fmt.Fprintln(os.Stderr, "usage: peerchatctl "+usage)
		os.Exit(1)
	}
}

func check(err error) {
	if err != nil {
		fail(err)
	}
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "%s %v\n", color.RedString("error:"), err)
	os.Exit(1)
}

func outputJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "json encode error: %v\n", err)
	}
}
