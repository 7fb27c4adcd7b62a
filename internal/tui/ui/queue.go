package ui

// Queue runs fn on the UI goroutine. Widgets are only mutated through it.
type Queue func(fn func())

// Immediate runs fn on the calling goroutine. It is used before the
// application loop starts and in tests.
func Immediate(fn func()) { fn() }
