// Package tui is the interactive terminal client: contact list, thread,
// composer, call panel and dialogs, bound to the session's components.
package tui

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"go.uber.org/zap"

	"github.com/matheus3301/peerchat/internal/api"
	"github.com/matheus3301/peerchat/internal/bus"
	"github.com/matheus3301/peerchat/internal/call"
	"github.com/matheus3301/peerchat/internal/chat"
	"github.com/matheus3301/peerchat/internal/contacts"
	"github.com/matheus3301/peerchat/internal/media"
	"github.com/matheus3301/peerchat/internal/outbox"
	"github.com/matheus3301/peerchat/internal/store"
	"github.com/matheus3301/peerchat/internal/tui/keys"
	"github.com/matheus3301/peerchat/internal/tui/ui"
	"github.com/matheus3301/peerchat/internal/tui/views"
)

// Page names.
const (
	pageMain    = "main"
	pageHelp    = "help"
	pageSearch  = "search"
	pageInvite  = "invite"
	pageDetails = "details"
	pageCameras = "cameras"
)

const callPanelWidth = 44

// Conversations is the store of per-peer history rendered by the thread.
type Conversations interface {
	SetView(v chat.View) error
	History(peerID string) ([]chat.Message, error)
}

// Selector owns which conversation is open.
type Selector interface {
	Select(peerID string) error
	Active() string
}

// Directory lists the known contacts.
type Directory interface {
	Entries() []contacts.Entry
	Get(id string) (contacts.Entry, bool)
	Name(id string) string
}

// Connections reports open data connections.
type Connections interface {
	Peers() []string
}

// Calls is the call session.
type Calls interface {
	State() call.State
	Peer() string
	Sharing() bool
	Call(ctx context.Context, peerID string) error
	AnswerPending(ctx context.Context) error
	Hangup(ctx context.Context) error
	ToggleShare(ctx context.Context) error
	Devices() []media.DeviceInfo
	SelectedCamera() string
	SelectCamera(ctx context.Context, deviceID string) error
}

// Sender queues outgoing messages.
type Sender interface {
	QueueText(peerID, text string) (string, error)
	QueueFile(peerID, filename, mimeType string, data []byte) (string, error)
}

// Searcher searches message history.
type Searcher interface {
	SearchMessages(query string, peerID string, limit int) ([]store.SearchResult, error)
}

// Options holds what the UI is bound to.
type Options struct {
	Downloads string
	Screen    *Screen
	CallView  *views.CallView
	Dialogs   *Dialogs
	Chats     Conversations
	Inbox     Selector
	Contacts  Directory
	Conns     Connections
	Calls     Calls
	Sender    Sender
	Session   api.Session
	Search    Searcher
	Blobs     chat.Opener
	Bus       *bus.Bus
	Logger    *zap.Logger
}

// UI is the terminal client.
type UI struct {
	opts     Options
	screen   *Screen
	theme    *ui.Theme
	registry *keys.Registry
	flash    *ui.FlashModel
	logger   *zap.Logger

	info     *ui.SessionInfo
	menu     *ui.Menu
	logo     *ui.Logo
	crumbs   *ui.Crumbs
	flashBar *ui.FlashBar
	prompt   *ui.Prompt
	contacts *views.ContactList
	thread   *views.Thread
	callView *views.CallView
	body     *tview.Flex
	root     *tview.Flex

	help    *views.HelpView
	search  *views.SearchView
	invite  *views.InviteView
	details *views.ContactInfo
	cameras *views.CameraList

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds the UI. Nothing runs until Start.
func New(opts Options) *UI {
	s := opts.Screen
	theme := s.Theme
	ctx, cancel := context.WithCancel(context.Background())

	u := &UI{
		opts:     opts,
		screen:   s,
		theme:    theme,
		registry: keys.NewRegistry(),
		flash:    ui.NewFlashModel(),
		logger:   opts.Logger.Named("tui"),
		info:     ui.NewSessionInfo(theme),
		menu:     ui.NewMenu(theme, 3),
		logo:     ui.NewLogo(theme),
		crumbs:   ui.NewCrumbs(theme),
		flashBar: ui.NewFlashBar(theme),
		prompt:   ui.NewPrompt(theme),
		contacts: views.NewContactList(theme),
		thread:   views.NewThread(theme, s.Queue, opts.Blobs),
		callView: opts.CallView,
		help:     views.NewHelpView(theme),
		search:   views.NewSearchView(theme, opts.Contacts.Name),
		invite:   views.NewInviteView(theme),
		details:  views.NewContactInfo(theme),
		cameras:  views.NewCameraList(theme),
		ctx:      ctx,
		cancel:   cancel,
	}
	if u.callView == nil {
		u.callView = views.NewCallView(theme, s.Queue, opts.Contacts.Name)
	}

	u.setupBindings()
	u.setupCallbacks()
	u.setupLayout()
	return u
}

func (u *UI) setupBindings() {
	add := func(name string, r rune, desc string, fn func()) {
		u.registry.AddGlobal(name, &keys.Action{Key: tcell.KeyRune, Rune: r, Description: desc, Visible: true, Handler: fn})
	}
	add("compose", 'i', "Compose", func() { u.focusPrompt(ui.PromptMessage) })
	add("command", ':', "Command", func() { u.focusPrompt(ui.PromptCommand) })
	add("filter", '/', "Filter", func() { u.focusPrompt(ui.PromptFilter) })
	add("call", 'c', "Call", func() { u.cmdCall("") })
	add("answer", 'a', "Answer", func() { u.cmdAnswer("") })
	add("hangup", 'h', "Hang up", func() { u.cmdHangup("") })
	add("share", 's', "Share", func() { u.cmdShare("") })
	add("cameras", 'v', "Cameras", func() { u.cmdCameras("") })
	add("refresh", 'r', "Refresh", func() { u.cmdRefresh("") })
	add("search", 'f', "Search", func() { u.cmdSearch("") })
	add("details", 'd', "Details", func() { u.cmdDetails("") })
	add("invite", 'I', "Invite", func() { u.cmdInvite("") })
	add("help", '?', "Help", func() { u.cmdHelp("") })
	add("quit", 'q', "Quit", func() { u.cmdQuit("") })

	for i := 1; i <= 9; i++ {
		n := i
		u.registry.AddView(pageMain, "jump"+string(rune('0'+n)), &keys.Action{
			Key: tcell.KeyRune, Rune: rune('0' + n),
			Handler: func() {
				if id := u.contacts.IDByIndex(n); id != "" {
					u.openConversation(id)
				}
			},
		})
	}
}

func (u *UI) setupCallbacks() {
	u.prompt.SetOnSubmit(func(mode ui.PromptMode, text string) {
		switch mode {
		case ui.PromptCommand:
			u.Execute(text)
		case ui.PromptFilter:
			u.contacts.SetFilter(text)
			u.screen.Focus(u.contacts)
		default:
			u.sendText(text)
		}
	})
	u.prompt.SetOnCancel(func() {
		if u.contacts.Filter() != "" {
			u.contacts.ClearFilter()
		}
		u.screen.Focus(u.contacts)
	})

	u.contacts.SetOnSelect(u.openConversation)
	u.search.SetOnQuery(u.runSearch)
	u.search.SetOnSelect(func(peerID string) {
		u.screen.Pages.Pop()
		u.openConversation(peerID)
	})
	u.cameras.SetOnSelect(func(id string) {
		u.screen.Pages.Pop()
		u.cmdCamera(id)
	})

	u.callView.SetOnToggle(func(visible bool) {
		width := 0
		if visible {
			width = callPanelWidth
		}
		u.body.ResizeItem(u.callView, width, 0)
	})
	u.opts.Dialogs.SetRestore(u.restoreFocus)

	u.screen.Pages.SetOnChange(func(stack []string) {
		u.crumbs.Update(stack)
		u.updateMenu()
	})
}

func (u *UI) setupLayout() {
	header := tview.NewFlex().
		AddItem(u.info, 0, 2, false).
		AddItem(u.menu, 0, 4, false).
		AddItem(u.logo, 24, 0, false)

	u.body = tview.NewFlex().
		AddItem(u.contacts, 34, 0, true).
		AddItem(u.thread, 0, 1, false).
		AddItem(u.callView, 0, 0, false)

	pages := u.screen.Pages
	pages.AddPage(pageMain, u.body, true, false)
	pages.AddPage(pageHelp, u.help, true, false)
	pages.AddPage(pageSearch, u.search, true, false)
	pages.AddPage(pageInvite, u.invite, true, false)
	pages.AddPage(pageDetails, u.details, true, false)
	pages.AddPage(pageCameras, u.cameras, true, false)

	u.root = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(header, 8, 0, false).
		AddItem(pages, 0, 1, true).
		AddItem(u.crumbs, 1, 0, false).
		AddItem(u.flashBar, 1, 0, false).
		AddItem(u.prompt, 3, 0, false)

	pages.Reset(pageMain)

	u.screen.App.SetInputCapture(u.handleKey)
}

func (u *UI) handleKey(ev *tcell.EventKey) *tcell.EventKey {
	if len(u.screen.Pages.Overlays()) > 0 {
		return ev
	}
	if ev.Key() == tcell.KeyCtrlC {
		u.cmdQuit("")
		return nil
	}
	if u.typing() {
		return ev
	}
	if ev.Key() == tcell.KeyEscape {
		u.back()
		return nil
	}
	if ev.Key() == tcell.KeyTab && u.screen.Pages.Current() == pageSearch {
		u.screen.Focus(u.search.Results())
		return nil
	}
	if u.registry.HandleEvent(u.screen.Pages.Current(), ev) {
		return nil
	}
	return ev
}

// typing reports whether an input field has focus.
func (u *UI) typing() bool {
	switch u.screen.App.GetFocus().(type) {
	case *ui.Prompt, *tview.InputField:
		return true
	}
	return false
}

func (u *UI) back() {
	if u.screen.Pages.Pop() != "" {
		u.restoreFocus()
		return
	}
	u.screen.Focus(u.contacts)
}

// restoreFocus focuses the main widget of the current page.
func (u *UI) restoreFocus() {
	switch u.screen.Pages.Current() {
	case pageSearch:
		u.screen.Focus(u.search.Input())
	case pageCameras:
		u.screen.Focus(u.cameras)
	case pageHelp:
		u.screen.Focus(u.help)
	case pageInvite:
		u.screen.Focus(u.invite)
	case pageDetails:
		u.screen.Focus(u.details)
	default:
		u.screen.Focus(u.contacts)
	}
}

func (u *UI) focusPrompt(mode ui.PromptMode) {
	if u.screen.Pages.Current() != pageMain {
		u.screen.Pages.Reset(pageMain)
	}
	u.prompt.Activate(mode)
	u.screen.Focus(u.prompt)
}

func (u *UI) push(page string) {
	u.screen.Pages.Push(page)
	u.restoreFocus()
}

func (u *UI) updateMenu() {
	var hints []ui.MenuHint
	switch u.screen.Pages.Current() {
	case pageMain:
		hints = append(hints, u.contacts.Hints()...)
	case pageHelp:
		hints = append(hints, u.help.Hints()...)
	case pageSearch:
		hints = append(hints, u.search.Hints()...)
	case pageInvite:
		hints = append(hints, u.invite.Hints()...)
	case pageDetails:
		hints = append(hints, u.details.Hints()...)
	case pageCameras:
		hints = append(hints, u.cameras.Hints()...)
	}
	for _, a := range u.registry.Hints(u.screen.Pages.Current()) {
		hints = append(hints, ui.MenuHint{Key: a.Label(), Description: a.Description})
	}
	u.menu.Update(hints)
}

// Start binds the thread to the conversation store and starts following
// session events. The screen itself is run by Run.
func (u *UI) Start() error {
	if err := u.opts.Chats.SetView(u.thread); err != nil {
		u.flash.Err(err)
	}

	events, unsubscribe := u.opts.Bus.Subscribe("", 64)
	u.wg.Add(2)
	go func() {
		defer u.wg.Done()
		defer unsubscribe()
		for {
			select {
			case <-u.ctx.Done():
				return
			case evt := <-events:
				u.handleEvent(evt)
			}
		}
	}()
	go func() {
		defer u.wg.Done()
		u.refreshLoop()
	}()

	u.refreshContacts()
	u.refreshHeader()
	return nil
}

// Run runs the terminal loop until the user quits or Stop is called.
func (u *UI) Run() error {
	return u.screen.App.SetRoot(u.root, true).SetFocus(u.contacts).Run()
}

// Stop ends the terminal loop and waits for background work.
func (u *UI) Stop() {
	u.cancel()
	u.screen.Close()
	u.screen.App.Stop()
	u.wg.Wait()
}

func (u *UI) refreshLoop() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-u.ctx.Done():
			return
		case msg := <-u.flash.Watch():
			u.screen.Queue(func() { u.flashBar.Update(&msg) })
		case <-ticker.C:
			u.refreshHeader()
			msg := u.flash.GetMessage()
			u.screen.Queue(func() { u.flashBar.Update(msg) })
		}
	}
}

func (u *UI) handleEvent(evt bus.Event) {
	switch evt.Kind {
	case bus.ContactsChanged, bus.ConversationSelected:
		u.refreshContacts()
	case bus.PeerOpen:
		if id, ok := evt.Payload.(string); ok {
			u.flash.Infof("Connected to the broker as %s", id)
		}
		u.refreshHeader()
	case bus.RoomJoined:
		if room, ok := evt.Payload.(string); ok {
			u.flash.Infof("Joined room %s", room)
		}
		u.refreshHeader()
	case bus.PeerConnected:
		if id, ok := evt.Payload.(string); ok {
			u.flash.Infof("%s connected", u.opts.Contacts.Name(id))
		}
	case bus.PeerDisconnected:
		if id, ok := evt.Payload.(string); ok {
			u.flash.Warn(u.opts.Contacts.Name(id) + " disconnected")
		}
	case bus.MessageSendFailed:
		if ack, ok := evt.Payload.(outbox.Ack); ok {
			u.flash.Warn(fmt.Sprintf("Message to %s not delivered: %s", u.opts.Contacts.Name(ack.PeerID), ack.Error))
		}
	case bus.CallStateChanged:
		if sc, ok := evt.Payload.(call.StateChange); ok {
			if msg := describeCall(sc, u.opts.Contacts.Name); msg != "" {
				u.flash.Info(msg)
			}
		}
		u.refreshHeader()
	case bus.CallShareChanged:
		if sc, ok := evt.Payload.(call.ShareChange); ok {
			if sc.Sharing {
				u.flash.Info("Sharing your screen")
			} else {
				u.flash.Info("Stopped sharing your screen")
			}
		}
		u.refreshHeader()
	}
}

func describeCall(sc call.StateChange, names func(string) string) string {
	who := names(sc.PeerID)
	switch sc.To {
	case call.Outgoing:
		return "Calling " + who + "..."
	case call.IncomingPending:
		return "Incoming call from " + who + " (a to answer)"
	case call.Active:
		return "In call with " + who
	case call.Idle:
		if sc.From != call.Idle {
			return "Call ended"
		}
	}
	return ""
}

func (u *UI) refreshContacts() {
	entries := u.opts.Contacts.Entries()
	u.screen.Queue(func() { u.contacts.Update(entries) })
}

func (u *UI) refreshHeader() {
	info := u.opts.Session.Info()
	peers := 0
	for _, e := range u.opts.Contacts.Entries() {
		if !e.Self {
			peers++
		}
	}
	data := &ui.SessionData{
		Session:   info.Name,
		PeerID:    info.PeerID,
		Username:  info.Username,
		Room:      info.Room,
		CallState: string(u.opts.Calls.State()),
		Sharing:   u.opts.Calls.Sharing(),
		Contacts:  peers,
	}
	if p := u.opts.Calls.Peer(); p != "" {
		data.CallPeer = u.opts.Contacts.Name(p)
	}
	if !info.Started.IsZero() {
		data.Uptime = time.Since(info.Started)
	}
	u.screen.Queue(func() { u.info.Update(data) })
}

// run does fn off the UI goroutine and reports its error as a flash.
func (u *UI) run(what string, fn func(ctx context.Context) error) {
	u.wg.Add(1)
	go func() {
		defer u.wg.Done()
		if err := fn(u.ctx); err != nil {
			u.logger.Warn(what+" failed", zap.Error(err))
			u.flash.Warn(what + ": " + err.Error())
		}
	}()
}

func (u *UI) openConversation(peerID string) {
	u.run("open conversation", func(context.Context) error {
		return u.opts.Inbox.Select(peerID)
	})
	u.screen.Focus(u.prompt)
}

func (u *UI) sendText(text string) {
	u.run("send", func(context.Context) error {
		_, err := u.opts.Sender.QueueText(u.opts.Inbox.Active(), text)
		return err
	})
}

func (u *UI) runSearch(query string) {
	u.run("search", func(context.Context) error {
		results, err := u.opts.Search.SearchMessages(query, "", 100)
		if err != nil {
			return err
		}
		u.screen.Queue(func() { u.search.Update(results) })
		return nil
	})
}

// Execute runs a ':' command line.
func (u *UI) Execute(line string) {
	cmd := ParseCommand(line)
	if cmd.Name == "" {
		return
	}
	spec, ok := lookupCommand(cmd.Name)
	if !ok {
		u.flash.Warn("unknown command :" + cmd.Name + " (try :help)")
		return
	}
	spec.run(u, cmd.Args)
}
