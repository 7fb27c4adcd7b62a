package ui

import (
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// PromptMode indicates what a submitted line means.
type PromptMode int

const (
	PromptMessage PromptMode = iota
	PromptCommand
	PromptFilter
)

// Prompt is the composer at the bottom of the screen. In message mode a
// line starting with ':' is submitted as a command.
type Prompt struct {
	*tview.InputField
	theme    *Theme
	mode     PromptMode
	onSubmit func(mode PromptMode, text string)
	onCancel func()
}

// NewPrompt creates a new prompt input bar.
func NewPrompt(theme *Theme) *Prompt {
	input := tview.NewInputField().
		SetFieldWidth(0)
	input.SetBorder(true)
	input.SetBorderColor(theme.PromptBorderColor)
	input.SetBackgroundColor(theme.BgColor)
	input.SetFieldBackgroundColor(theme.BgColor)
	input.SetFieldTextColor(theme.FgColor)
	input.SetLabelColor(theme.MenuKeyColor)
	input.SetTitleColor(theme.TitleColor)

	p := &Prompt{
		InputField: input,
		theme:      theme,
	}
	p.Activate(PromptMessage)

	input.SetDoneFunc(func(key tcell.Key) {
		switch key {
		case tcell.KeyEnter:
			mode, text := Classify(p.mode, p.GetText())
			if p.onSubmit != nil && text != "" {
				p.onSubmit(mode, text)
			}
			p.SetText("")
			if p.mode != PromptMessage {
				p.Activate(PromptMessage)
			}
		case tcell.KeyEscape:
			p.Activate(PromptMessage)
			if p.onCancel != nil {
				p.onCancel()
			}
		}
	})

	return p
}

// Classify resolves what a submitted line is. Message lines starting with
// ':' become commands; "::" escapes a literal leading colon.
func Classify(mode PromptMode, text string) (PromptMode, string) {
	if mode != PromptMessage {
		return mode, strings.TrimSpace(text)
	}
	switch {
	case strings.HasPrefix(text, "::"):
		return PromptMessage, text[1:]
	case strings.HasPrefix(text, ":"):
		return PromptCommand, strings.TrimSpace(text[1:])
	case strings.TrimSpace(text) == "":
		return PromptMessage, ""
	}
	return PromptMessage, text
}

// SetOnSubmit sets the callback when the prompt is submitted.
func (p *Prompt) SetOnSubmit(fn func(mode PromptMode, text string)) {
	p.onSubmit = fn
}

// SetOnCancel sets the callback when the prompt is cancelled.
func (p *Prompt) SetOnCancel(fn func()) {
	p.onCancel = fn
}

// Activate switches the prompt to mode and clears it.
func (p *Prompt) Activate(mode PromptMode) {
	p.mode = mode
	p.SetText("")
	switch mode {
	case PromptMessage:
		p.SetLabel("> ")
		p.SetTitle(" Message (: for commands) ")
	case PromptCommand:
		p.SetLabel(":")
		p.SetTitle(" Command ")
	case PromptFilter:
		p.SetLabel("/")
		p.SetTitle(" Filter contacts ")
	}
}

// Mode returns the current prompt mode.
func (p *Prompt) Mode() PromptMode {
	return p.mode
}
