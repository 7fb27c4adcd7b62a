package contacts

import (
	"testing"
	"time"

	"github.com/matheus3301/peerchat/internal/bus"
)

func ids(entries []Entry) []string {
	var out []string
	for _, e := range entries {
		out = append(out, e.ID)
	}
	return out
}

func TestUpsertIdempotent(t *testing.T) {
	d := NewDirectory(nil)
	if !d.Upsert("a") {
		t.Error("first Upsert should add")
	}
	if d.Upsert("a") {
		t.Error("second Upsert should be a no-op")
	}
	if d.Upsert("") {
		t.Error("empty id should be skipped")
	}
	if got := ids(d.Entries()); len(got) != 1 || got[0] != "a" {
		t.Errorf("entries = %v", got)
	}
}

func TestNameFallsBackToID(t *testing.T) {
	d := NewDirectory(nil)
	if d.Name("x") != "x" {
		t.Errorf("Name = %q, want x", d.Name("x"))
	}
	d.SetName("x", "Xavier")
	d.Upsert("x")
	if e, _ := d.Get("x"); e.Name != "Xavier" {
		t.Errorf("entry name = %q, want name set before upsert", e.Name)
	}
}

func TestLabelTruncates(t *testing.T) {
	e := Entry{ID: "id", Name: "abcdefghijklmnopqrstuvwxyz"}
	if got := e.Label(); got != "abcdefghijklmnopqrst..." {
		t.Errorf("Label = %q", got)
	}
	if got := (Entry{ID: "short"}).Label(); got != "short" {
		t.Errorf("Label = %q", got)
	}
}

func TestMarkUnread(t *testing.T) {
	d := NewDirectory(nil)
	d.Upsert("a")
	d.Upsert("b")
	d.Select("a")

	d.MarkUnread("a")
	d.MarkUnread("b")
	d.MarkUnread("")
	d.MarkUnread("unknown")

	a, _ := d.Get("a")
	b, _ := d.Get("b")
	if a.Unread {
		t.Error("selected contact must not be marked unread")
	}
	if !b.Unread {
		t.Error("b should be unread")
	}
	d.ClearUnread("b")
	if b, _ := d.Get("b"); b.Unread {
		t.Error("ClearUnread did not clear")
	}
}

func TestSelectClearsUnreadAndIsExclusive(t *testing.T) {
	d := NewDirectory(nil)
	d.Upsert("a")
	d.Upsert("b")
	d.MarkUnread("b")

	d.Select("a")
	d.Select("b")

	selected := 0
	for _, e := range d.Entries() {
		if e.Selected {
			selected++
			if e.ID != "b" {
				t.Errorf("selected %s, want b", e.ID)
			}
		}
		if e.ID == "b" && e.Unread {
			t.Error("selecting b should clear its unread flag")
		}
	}
	if selected != 1 {
		t.Errorf("%d selected entries, want 1", selected)
	}
}

func TestApplyRoster(t *testing.T) {
	d := NewDirectory(nil)
	d.Upsert("gone")
	d.Upsert("bob")
	d.MarkUnread("bob")
	d.Upsert("carol")
	d.Select("carol")

	d.ApplyRoster([]Peer{
		{ID: "me"},
		{ID: "bob", Name: "Bob"},
		{ID: "dave"},
		{ID: "bob"},
		{ID: ""},
	}, "me")

	got := ids(d.Entries())
	want := []string{"me", "bob", "dave", "carol"}
	if len(got) != len(want) {
		t.Fatalf("entries = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("entries = %v, want %v", got, want)
		}
	}

	me, _ := d.Get("me")
	if !me.Self {
		t.Error("own id should be a self entry")
	}
	if d.Select("me") {
		t.Error("self entry must not be selectable")
	}
	if d.Selected() != "carol" {
		t.Errorf("selection = %q, want carol restored", d.Selected())
	}
	bob, _ := d.Get("bob")
	if !bob.Unread || bob.Name != "Bob" {
		t.Errorf("bob = %+v, want unread and named", bob)
	}
}

func TestChangesArePublished(t *testing.T) {
	b := bus.New()
	ch, unsub := b.Subscribe("contacts.", 10)
	defer unsub()

	d := NewDirectory(b)
	d.Upsert("a")

	select {
	case evt := <-ch:
		if evt.Kind != bus.ContactsChanged {
			t.Errorf("kind = %s", evt.Kind)
		}
	case <-time.After(time.Second):
		t.Fatal("no contacts.changed event")
	}
}
