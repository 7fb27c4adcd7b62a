package views

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/matheus3301/peerchat/internal/contacts"
	"github.com/matheus3301/peerchat/internal/tui/ui"
)

// ContactList is the table of known peers. The local peer is listed but
// cannot be selected.
type ContactList struct {
	*tview.Table
	theme    *ui.Theme
	entries  []contacts.Entry
	visible  []contacts.Entry
	filter   string
	onSelect func(id string)
}

// NewContactList creates an empty contact list.
func NewContactList(theme *ui.Theme) *ContactList {
	table := tview.NewTable().
		SetSelectable(true, false).
		SetBorders(false).
		SetFixed(1, 0)
	table.SetBorder(true)
	table.SetBorderColor(theme.BorderColor)
	table.SetBackgroundColor(theme.BgColor)
	table.SetSelectedStyle(tcell.StyleDefault.
		Foreground(theme.TableCursorFg).
		Background(theme.TableCursorBg))
	table.SetTitleColor(theme.TitleColor)

	cl := &ContactList{
		Table: table,
		theme: theme,
	}
	table.SetSelectedFunc(func(row, _ int) {
		if id := cl.IDAt(row); id != "" && cl.onSelect != nil {
			cl.onSelect(id)
		}
	})
	cl.render()
	return cl
}

// SetOnSelect sets the callback run when a contact is opened with Enter.
func (cl *ContactList) SetOnSelect(fn func(id string)) {
	cl.onSelect = fn
}

// Update replaces the listed contacts, keeping the cursor on the same peer.
func (cl *ContactList) Update(entries []contacts.Entry) {
	current := cl.SelectedID()
	cl.entries = entries
	cl.render()
	if current != "" {
		cl.focusID(current)
	}
}

// SetFilter narrows the list to contacts whose name or id contains filter.
func (cl *ContactList) SetFilter(filter string) {
	cl.filter = filter
	cl.render()
}

// ClearFilter clears the active filter.
func (cl *ContactList) ClearFilter() {
	cl.SetFilter("")
}

// Filter returns the active filter.
func (cl *ContactList) Filter() string { return cl.filter }

func (cl *ContactList) render() {
	cl.Clear()

	for col, h := range []string{" ", " NAME", " ID"} {
		cl.SetCell(0, col, tview.NewTableCell(h).
			SetSelectable(false).
			SetTextColor(cl.theme.TableHeaderFg).
			SetBackgroundColor(cl.theme.TableHeaderBg).
			SetAttributes(tcell.AttrBold))
	}

	cl.visible = cl.visible[:0]
	for _, e := range cl.entries {
		if cl.filter != "" && !containsFold(e.Name, cl.filter) && !containsFold(e.ID, cl.filter) {
			continue
		}
		cl.visible = append(cl.visible, e)
		row := len(cl.visible)

		marker, color := " ", cl.theme.FgColor
		switch {
		case e.Self:
			marker, color = "@", cl.theme.SelfColor
		case e.Unread:
			marker, color = "●", cl.theme.UnreadColor
		case e.Selected:
			marker = ">"
		}
		label := safe(oneLine(e.Label()))
		if e.Self {
			label += " (you)"
		}
		cl.SetCell(row, 0, tview.NewTableCell(marker).SetTextColor(color).SetSelectable(!e.Self))
		cl.SetCell(row, 1, tview.NewTableCell(" "+label).SetExpansion(1).SetTextColor(color).SetSelectable(!e.Self))
		cl.SetCell(row, 2, tview.NewTableCell(" "+safe(e.ID)).SetMaxWidth(12).SetTextColor(cl.theme.DimColor).SetSelectable(!e.Self))
	}

	peers := 0
	for _, e := range cl.entries {
		if !e.Self {
			peers++
		}
	}
	if cl.filter != "" {
		cl.SetTitle(fmt.Sprintf(" Contacts (%d/%d) filter: %s ", len(cl.visible), len(cl.entries), tview.Escape(cl.filter)))
	} else {
		cl.SetTitle(fmt.Sprintf(" Contacts (%d) ", peers))
	}
}

// IDAt returns the id of the contact on a table row, or "" for the header
// and the local peer.
func (cl *ContactList) IDAt(row int) string {
	idx := row - 1
	if idx < 0 || idx >= len(cl.visible) || cl.visible[idx].Self {
		return ""
	}
	return cl.visible[idx].ID
}

// SelectedID returns the id under the cursor.
func (cl *ContactList) SelectedID() string {
	row, _ := cl.GetSelection()
	return cl.IDAt(row)
}

// IDByIndex returns the id of the Nth selectable contact (1-based).
func (cl *ContactList) IDByIndex(n int) string {
	for _, e := range cl.visible {
		if e.Self {
			continue
		}
		n--
		if n == 0 {
			return e.ID
		}
	}
	return ""
}

// Find returns the first contact whose id equals or whose name contains q.
func (cl *ContactList) Find(q string) (contacts.Entry, bool) {
	for _, e := range cl.entries {
		if !e.Self && e.ID == q {
			return e, true
		}
	}
	for _, e := range cl.entries {
		if !e.Self && containsFold(e.Name, q) {
			return e, true
		}
	}
	return contacts.Entry{}, false
}

func (cl *ContactList) focusID(id string) {
	for i, e := range cl.visible {
		if e.ID == id {
			cl.Select(i+1, 0)
			return
		}
	}
}

// Name implements ui.Component.
func (cl *ContactList) Name() string { return "Contacts" }

// Hints implements ui.Component.
func (cl *ContactList) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Enter", Description: "Open"},
		{Key: "/", Description: "Filter"},
		{Key: "1-9", Description: "Jump"},
	}
}
