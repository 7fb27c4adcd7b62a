package tui

import (
	"strings"

	"github.com/matheus3301/peerchat/internal/tui/ui"
)

// Command represents a parsed command.
type Command struct {
	Name string
	Args string
}

// ParseCommand parses a command string (without the leading ':').
func ParseCommand(input string) Command {
	input = strings.TrimSpace(input)
	name, args, _ := strings.Cut(input, " ")
	return Command{Name: strings.ToLower(name), Args: strings.TrimSpace(args)}
}

type commandSpec struct {
	names []string
	usage string
	help  string
	run   func(u *UI, args string)
}

// commandTable lists every ':' command. The first name is canonical.
func commandTable() []commandSpec {
	return []commandSpec{
		{[]string{"call", "c"}, "[contact]", "Call a contact, or the open conversation", (*UI).cmdCall},
		{[]string{"answer", "a"}, "", "Answer the pending incoming call", (*UI).cmdAnswer},
		{[]string{"hangup", "end"}, "", "Hang up the current call", (*UI).cmdHangup},
		{[]string{"share"}, "", "Start or stop sharing your screen", (*UI).cmdShare},
		{[]string{"cameras"}, "", "Pick the camera", (*UI).cmdCameras},
		{[]string{"camera"}, "<id>", "Use a camera for the next call", (*UI).cmdCamera},
		{[]string{"open", "msg"}, "<contact>", "Open a conversation", (*UI).cmdOpen},
		{[]string{"send-file", "file"}, "<path>", "Send a file to the open conversation", (*UI).cmdSendFile},
		{[]string{"save"}, "<n> [dir]", "Save the attachment of message #n", (*UI).cmdSave},
		{[]string{"search", "s"}, "[query]", "Search messages", (*UI).cmdSearch},
		{[]string{"details"}, "", "Show the open contact", (*UI).cmdDetails},
		{[]string{"join"}, "<room>", "Join another room", (*UI).cmdJoin},
		{[]string{"refresh", "r"}, "", "Refresh the room roster", (*UI).cmdRefresh},
		{[]string{"invite"}, "", "Show an invite QR code", (*UI).cmdInvite},
		{[]string{"help", "h"}, "", "Show this help", (*UI).cmdHelp},
		{[]string{"quit", "q"}, "", "Quit peerchat", (*UI).cmdQuit},
	}
}

func lookupCommand(name string) (commandSpec, bool) {
	for _, c := range commandTable() {
		for _, n := range c.names {
			if n == name {
				return c, true
			}
		}
	}
	return commandSpec{}, false
}

func commandHints() []ui.MenuHint {
	table := commandTable()
	hints := make([]ui.MenuHint, 0, len(table))
	for _, c := range table {
		key := ":" + c.names[0]
		if c.usage != "" {
			key += " " + c.usage
		}
		hints = append(hints, ui.MenuHint{Key: key, Description: c.help})
	}
	return hints
}
