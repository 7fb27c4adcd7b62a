package ui

import "github.com/rivo/tview"

// Pages is a stack-based page manager wrapping tview.Pages. Full-screen
// views are pushed and popped; dialogs are overlaid on top of the stack.
type Pages struct {
	*tview.Pages
	stack    []string
	overlays []string
	onChange func(stack []string)
}

// NewPages creates a new stack-based page manager.
func NewPages() *Pages {
	return &Pages{
		Pages: tview.NewPages(),
	}
}

// SetOnChange sets a callback that fires when the stack changes.
func (p *Pages) SetOnChange(fn func(stack []string)) {
	p.onChange = fn
}

// Push adds a page to the top of the stack and shows it.
func (p *Pages) Push(name string) {
	if len(p.stack) > 0 {
		p.HidePage(p.stack[len(p.stack)-1])
	}
	p.stack = append(p.stack, name)
	p.ShowPage(name)
	p.SendToFront(name)
	p.raiseOverlays()
	p.notify()
}

// Pop removes the top page and shows the previous one. The root page is
// never popped. Returns the name of the popped page, or empty.
func (p *Pages) Pop() string {
	if len(p.stack) < 2 {
		return ""
	}
	top := p.stack[len(p.stack)-1]
	p.HidePage(top)
	p.stack = p.stack[:len(p.stack)-1]
	current := p.stack[len(p.stack)-1]
	p.ShowPage(current)
	p.SendToFront(current)
	p.raiseOverlays()
	p.notify()
	return top
}

// Current returns the name of the current (top) page.
func (p *Pages) Current() string {
	if len(p.stack) == 0 {
		return ""
	}
	return p.stack[len(p.stack)-1]
}

// Stack returns a copy of the current page stack.
func (p *Pages) Stack() []string {
	s := make([]string, len(p.stack))
	copy(s, p.stack)
	return s
}

// Depth returns the current stack depth.
func (p *Pages) Depth() int {
	return len(p.stack)
}

// Reset clears the stack and shows only the given page.
func (p *Pages) Reset(name string) {
	for _, n := range p.stack {
		p.HidePage(n)
	}
	p.stack = []string{name}
	p.ShowPage(name)
	p.SendToFront(name)
	p.raiseOverlays()
	p.notify()
}

// Overlay shows item above every stacked page without hiding them.
func (p *Pages) Overlay(name string, item tview.Primitive) {
	p.AddPage(name, item, false, true)
	p.SendToFront(name)
	p.overlays = append(p.overlays, name)
}

// Dismiss removes an overlay.
func (p *Pages) Dismiss(name string) {
	for i, n := range p.overlays {
		if n == name {
			p.overlays = append(p.overlays[:i], p.overlays[i+1:]...)
			break
		}
	}
	p.RemovePage(name)
}

// Overlays returns the open overlays, oldest first.
func (p *Pages) Overlays() []string {
	return append([]string(nil), p.overlays...)
}

func (p *Pages) raiseOverlays() {
	for _, n := range p.overlays {
		p.SendToFront(n)
	}
}

func (p *Pages) notify() {
	if p.onChange != nil {
		p.onChange(p.Stack())
	}
}
