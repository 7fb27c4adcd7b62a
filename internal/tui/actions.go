package tui

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/matheus3301/peerchat/internal/api"
	"github.com/matheus3301/peerchat/internal/tui/ui"
)

var errNoContact = errors.New("no contact selected")

// target resolves a command argument to a contact id: an id, a name
// fragment, or the open conversation when empty.
func (u *UI) target(arg string) (string, error) {
	if arg == "" {
		if id := u.opts.Inbox.Active(); id != "" {
			return id, nil
		}
		return "", errNoContact
	}
	if e, ok := u.contacts.Find(arg); ok {
		return e.ID, nil
	}
	return "", fmt.Errorf("no contact matches %q", arg)
}

func (u *UI) cmdCall(args string) {
	peerID := ""
	if args != "" {
		id, err := u.target(args)
		if err != nil {
			u.flash.Warn("call: " + err.Error())
			return
		}
		peerID = id
	}
	u.run("call", func(ctx context.Context) error {
		if peerID == "" {
			peerID = u.opts.Inbox.Active()
		}
		return u.opts.Calls.Call(ctx, peerID)
	})
}

func (u *UI) cmdAnswer(string) {
	u.run("answer", u.opts.Calls.AnswerPending)
}

func (u *UI) cmdHangup(string) {
	u.run("hang up", u.opts.Calls.Hangup)
}

func (u *UI) cmdShare(string) {
	u.run("share", u.opts.Calls.ToggleShare)
}

func (u *UI) cmdCameras(string) {
	u.run("cameras", func(context.Context) error {
		devices, selected := u.opts.Calls.Devices(), u.opts.Calls.SelectedCamera()
		u.screen.Queue(func() {
			u.cameras.Update(devices, selected)
			u.push(pageCameras)
		})
		return nil
	})
}

func (u *UI) cmdCamera(args string) {
	if args == "" {
		u.cmdCameras("")
		return
	}
	u.run("camera", func(ctx context.Context) error {
		if err := u.opts.Calls.SelectCamera(ctx, args); err != nil {
			return err
		}
		u.flash.Infof("Using camera %s", args)
		return nil
	})
}

func (u *UI) cmdOpen(args string) {
	id, err := u.target(args)
	if err != nil {
		u.flash.Warn("open: " + err.Error())
		return
	}
	u.openConversation(id)
}

func (u *UI) cmdSendFile(args string) {
	if args == "" {
		u.flash.Warn("usage: :send-file <path>")
		return
	}
	path := expandHome(args)
	u.run("send file", func(context.Context) error {
		peerID := u.opts.Inbox.Active()
		if peerID == "" {
			return errNoContact
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if _, err := u.opts.Sender.QueueFile(peerID, filepath.Base(path), "", data); err != nil {
			return err
		}
		u.flash.Infof("Sending %s", filepath.Base(path))
		return nil
	})
}

func (u *UI) cmdSave(args string) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		u.flash.Warn("usage: :save <n> [dir]")
		return
	}
	n, err := strconv.Atoi(strings.TrimPrefix(fields[0], "#"))
	if err != nil {
		u.flash.Warn("save: message number expected")
		return
	}
	entry, ok := u.thread.Entry(n)
	if !ok {
		u.flash.Warn(fmt.Sprintf("save: no message #%d", n))
		return
	}
	dir := u.opts.Downloads
	if len(fields) > 1 {
		dir = expandHome(fields[1])
	}
	u.run("save", func(context.Context) error {
		path, err := SaveMessage(entry.Message, u.opts.Blobs, dir)
		if err != nil {
			return err
		}
		u.flash.Infof("Saved %s", path)
		return nil
	})
}

func (u *UI) cmdSearch(args string) {
	u.search.SetQuery(args)
	u.push(pageSearch)
	if args != "" {
		u.runSearch(args)
	}
}

func (u *UI) cmdDetails(args string) {
	id, err := u.target(args)
	if err != nil {
		u.flash.Warn("details: " + err.Error())
		return
	}
	u.run("details", func(context.Context) error {
		e, ok := u.opts.Contacts.Get(id)
		if !ok {
			return fmt.Errorf("unknown contact %s", id)
		}
		history, err := u.opts.Chats.History(id)
		if err != nil {
			return err
		}
		connected := slices.Contains(u.opts.Conns.Peers(), id)
		u.screen.Queue(func() {
			u.details.Update(e, history, connected)
			u.push(pageDetails)
		})
		return nil
	})
}

func (u *UI) cmdJoin(args string) {
	room := strings.TrimSpace(args)
	if room == "" {
		u.flash.Warn("usage: :join <room>")
		return
	}
	u.run("join", func(ctx context.Context) error {
		return u.opts.Session.Join(ctx, room)
	})
}

func (u *UI) cmdRefresh(string) {
	u.run("refresh", func(ctx context.Context) error {
		if err := u.opts.Session.Refresh(ctx); err != nil {
			return err
		}
		u.flash.Info("Roster refreshed")
		return nil
	})
}

func (u *UI) cmdInvite(string) {
	info := u.opts.Session.Info()
	if info.PeerID == "" {
		u.invite.ShowMessage("Not connected yet: no peer id to share.")
	} else {
		u.invite.ShowInvite(InviteLink(info))
	}
	u.push(pageInvite)
}

func (u *UI) cmdHelp(string) {
	var bindings []ui.MenuHint
	for _, a := range u.registry.Hints(pageMain) {
		bindings = append(bindings, ui.MenuHint{Key: a.Label(), Description: a.Description})
	}
	bindings = append(bindings,
		ui.MenuHint{Key: "1-9", Description: "Open the Nth contact"},
		ui.MenuHint{Key: "Esc", Description: "Back"},
		ui.MenuHint{Key: "Ctrl-C", Description: "Quit"},
	)
	u.help.Update(bindings, commandHints())
	u.push(pageHelp)
}

func (u *UI) cmdQuit(string) {
	u.screen.App.Stop()
}

// InviteLink is what the invite QR code encodes: the signaling server,
// the room and this peer's id.
func InviteLink(info api.SessionInfo) string {
	q := url.Values{}
	if info.Room != "" {
		q.Set("room", info.Room)
	}
	q.Set("peer", info.PeerID)
	base := strings.TrimRight(info.Signaling, "/")
	if base == "" {
		base = "peerchat:"
	}
	return base + "/?" + q.Encode()
}
