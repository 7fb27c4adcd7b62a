// Package keys maps key events to named actions.
package keys

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
)

// Action represents a keybinding action.
type Action struct {
	Key         tcell.Key
	Rune        rune
	Description string
	Handler     func()
	Visible     bool
}

// Matches returns true if the event matches this action.
func (a *Action) Matches(ev *tcell.EventKey) bool {
	if a.Key != tcell.KeyRune {
		return ev.Key() == a.Key
	}
	return ev.Key() == tcell.KeyRune && ev.Rune() == a.Rune
}

// Label is the printable key, e.g. "c" or "Esc".
func (a *Action) Label() string {
	if a.Key == tcell.KeyRune {
		return string(a.Rune)
	}
	if name, ok := tcell.KeyNames[a.Key]; ok {
		return name
	}
	return fmt.Sprintf("key(%d)", a.Key)
}

type named struct {
	name   string
	action *Action
}

// Registry holds keybindings organized by scope. Bindings keep their
// registration order so hints render stably.
type Registry struct {
	global []named
	views  map[string][]named
}

// NewRegistry creates a new keybinding registry.
func NewRegistry() *Registry {
	return &Registry{
		views: make(map[string][]named),
	}
}

// AddGlobal registers a global keybinding, replacing one of the same name.
func (r *Registry) AddGlobal(name string, action *Action) {
	r.global = upsert(r.global, name, action)
}

// AddView registers a view-specific keybinding.
func (r *Registry) AddView(view, name string, action *Action) {
	r.views[view] = upsert(r.views[view], name, action)
}

func upsert(list []named, name string, action *Action) []named {
	for i := range list {
		if list[i].name == name {
			list[i].action = action
			return list
		}
	}
	return append(list, named{name: name, action: action})
}

// Hints returns visible actions for a view: view bindings first, then globals.
func (r *Registry) Hints(view string) []*Action {
	var hints []*Action
	for _, n := range r.views[view] {
		if n.action.Visible {
			hints = append(hints, n.action)
		}
	}
	for _, n := range r.global {
		if n.action.Visible {
			hints = append(hints, n.action)
		}
	}
	return hints
}

// HandleEvent dispatches a key event to the matching action in the given
// view, falling back to globals. Returns true if a handler matched.
func (r *Registry) HandleEvent(view string, ev *tcell.EventKey) bool {
	for _, n := range r.views[view] {
		if n.action.Matches(ev) {
			n.action.Handler()
			return true
		}
	}
	for _, n := range r.global {
		if n.action.Matches(ev) {
			n.action.Handler()
			return true
		}
	}
	return false
}
