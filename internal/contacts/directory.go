// Package contacts tracks known peers, their display names and unread state.
package contacts

import (
	"sync"
	"time"
	"unicode/utf8"

	"github.com/matheus3301/peerchat/internal/bus"
)

// maxLabelRunes bounds the display name shown in the contact list.
const maxLabelRunes = 20

// Entry is one contact.
type Entry struct {
	ID       string
	Name     string
	Unread   bool
	Selected bool
	Self     bool
}

// Label is the list label: the display name truncated to 20 runes.
func (e Entry) Label() string {
	name := e.Name
	if name == "" {
		name = e.ID
	}
	if utf8.RuneCountInString(name) <= maxLabelRunes {
		return name
	}
	return string([]rune(name)[:maxLabelRunes]) + "..."
}

// Peer is a roster entry as reported by the room service.
type Peer struct {
	ID   string
	Name string
}

// Directory is the session's contact list. Selection is exclusive.
type Directory struct {
	mu       sync.RWMutex
	order    []string
	entries  map[string]*Entry
	names    map[string]string
	selected string
	bus      *bus.Bus
}

// NewDirectory creates an empty directory. b may be nil.
func NewDirectory(b *bus.Bus) *Directory {
	return &Directory{
		entries: make(map[string]*Entry),
		names:   make(map[string]string),
		bus:     b,
	}
}

// Upsert adds id if it is not already present. Empty ids are ignored.
// Returns true if the contact was added.
func (d *Directory) Upsert(id string) bool {
	if id == "" {
		return false
	}
	d.mu.Lock()
	added := d.upsertLocked(id)
	d.mu.Unlock()
	if added {
		d.changed()
	}
	return added
}

func (d *Directory) upsertLocked(id string) bool {
	if _, ok := d.entries[id]; ok {
		return false
	}
	d.entries[id] = &Entry{ID: id, Name: d.names[id]}
	d.order = append(d.order, id)
	return true
}

// SetName records a display name for id, whether or not it is listed yet.
func (d *Directory) SetName(id, name string) {
	if id == "" {
		return
	}
	d.mu.Lock()
	d.names[id] = name
	if e, ok := d.entries[id]; ok {
		e.Name = name
	}
	d.mu.Unlock()
	d.changed()
}

// Name returns the display name of id, or id itself when none is known.
func (d *Directory) Name(id string) string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if n := d.names[id]; n != "" {
		return n
	}
	return id
}

// MarkUnread flags id as having unseen messages. No-op for the selected
// contact, an empty id, or an unknown contact.
func (d *Directory) MarkUnread(id string) {
	if id == "" {
		return
	}
	d.mu.Lock()
	e, ok := d.entries[id]
	if !ok || id == d.selected || e.Unread {
		d.mu.Unlock()
		return
	}
	e.Unread = true
	d.mu.Unlock()
	d.changed()
}

// ClearUnread clears id's unread flag.
func (d *Directory) ClearUnread(id string) {
	d.mu.Lock()
	e, ok := d.entries[id]
	if !ok || !e.Unread {
		d.mu.Unlock()
		return
	}
	e.Unread = false
	d.mu.Unlock()
	d.changed()
}

// Select makes id the only selected contact and clears its unread flag.
// The self entry cannot be selected. An empty id clears the selection.
func (d *Directory) Select(id string) bool {
	d.mu.Lock()
	if id != "" {
		e, ok := d.entries[id]
		if !ok {
			d.upsertLocked(id)
			e = d.entries[id]
		}
		if e.Self {
			d.mu.Unlock()
			return false
		}
		e.Unread = false
	}
	d.selected = id
	d.mu.Unlock()
	d.changed()
	return true
}

// Selected returns the selected contact id, or "".
func (d *Directory) Selected() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.selected
}

// Get returns a copy of one entry.
func (d *Directory) Get(id string) (Entry, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	e, ok := d.entries[id]
	if !ok {
		return Entry{}, false
	}
	out := *e
	out.Selected = id == d.selected
	return out, true
}

// Entries returns a snapshot of all contacts in insertion order.
func (d *Directory) Entries() []Entry {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Entry, 0, len(d.order))
	for _, id := range d.order {
		e := *d.entries[id]
		e.Selected = id == d.selected
		out = append(out, e)
	}
	return out
}

// ApplyRoster rebuilds the list from the room roster. selfID is listed
// first as a non-selectable entry. Unread flags of peers still present are
// kept, and the selected contact stays listed even if it left the room.
func (d *Directory) ApplyRoster(peers []Peer, selfID string) {
	d.mu.Lock()
	prev := d.entries
	d.entries = make(map[string]*Entry, len(peers)+1)
	d.order = d.order[:0]

	add := func(id string) *Entry {
		e := &Entry{ID: id, Name: d.names[id]}
		if old, ok := prev[id]; ok {
			e.Unread = old.Unread
		}
		d.entries[id] = e
		d.order = append(d.order, id)
		return e
	}

	if selfID != "" {
		add(selfID).Self = true
	}
	for _, p := range peers {
		if p.ID == "" || p.ID == selfID {
			continue
		}
		if p.Name != "" {
			d.names[p.ID] = p.Name
		}
		if _, dup := d.entries[p.ID]; dup {
			continue
		}
		add(p.ID)
	}
	if d.selected != "" {
		if _, ok := d.entries[d.selected]; !ok {
			add(d.selected)
		}
	}
	d.mu.Unlock()
	d.changed()
}

func (d *Directory) changed() {
	if d.bus == nil {
		return
	}
	d.bus.Publish(bus.Event{
		Kind:      bus.ContactsChanged,
		Timestamp: time.Now(),
	})
}
