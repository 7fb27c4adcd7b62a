package views

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rivo/tview"
)

// sanitizeForTerminal removes codepoints that break tcell rendering or
// could drive the terminal:
// - C0/C1 control characters other than newline and tab (escape sequences)
// - Skin tone modifiers (U+1F3FB..U+1F3FF) that create multi-codepoint emoji
// - Zero Width Joiner (U+200D) used in emoji sequences
// - Variation Selectors (U+FE00..U+FE0F, U+E0100..U+E01EF)
// - Bidirectional overrides (U+202A..U+202E, U+2066..U+2069)
func sanitizeForTerminal(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			b.WriteRune('�')
		} else if !isProblematicRune(r) {
			b.WriteRune(r)
		}
		i += size
	}
	return b.String()
}

func isProblematicRune(r rune) bool {
	switch {
	case r == '\n' || r == '\t':
		return false
	case unicode.IsControl(r):
		return true
	case r >= 0x1F3FB && r <= 0x1F3FF:
		return true
	case r == 0x200D:
		return true
	case r >= 0xFE00 && r <= 0xFE0F:
		return true
	case r >= 0xE0100 && r <= 0xE01EF:
		return true
	case r >= 0x202A && r <= 0x202E, r >= 0x2066 && r <= 0x2069:
		return true
	default:
		return false
	}
}

// safe prepares peer-supplied text for a dynamic-color TextView.
func safe(s string) string {
	return tview.Escape(sanitizeForTerminal(s))
}

// oneLine collapses s to a single line for table cells.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
