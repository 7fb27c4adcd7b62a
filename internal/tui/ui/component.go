package ui

// MenuHint describes a keyboard shortcut for display in the menu.
type MenuHint struct {
	Key         string
	Description string
}

// Component is a full-screen view pushed on the page stack.
type Component interface {
	Name() string
	Hints() []MenuHint
}
