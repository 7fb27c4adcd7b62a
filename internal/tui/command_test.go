package tui

import "testing"

func TestParseCommand(t *testing.T) {
	tests := []struct {
		in   string
		want Command
	}{
		{"call", Command{Name: "call"}},
		{"  CALL   Bob  ", Command{Name: "call", Args: "Bob"}},
		{"save 2 ~/Downloads", Command{Name: "save", Args: "2 ~/Downloads"}},
		{"", Command{}},
	}
	for _, tt := range tests {
		if got := ParseCommand(tt.in); got != tt.want {
			t.Errorf("ParseCommand(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestLookupCommandAliases(t *testing.T) {
	for alias, canonical := range map[string]string{
		"c":    "call",
		"a":    "answer",
		"end":  "hangup",
		"file": "send-file",
		"msg":  "open",
		"q":    "quit",
	} {
		spec, ok := lookupCommand(alias)
		if !ok || spec.names[0] != canonical {
			t.Errorf("lookupCommand(%q) = %v, %v", alias, spec.names, ok)
		}
	}
	if _, ok := lookupCommand("dance"); ok {
		t.Error("unknown command resolved")
	}
}

func TestCommandHintsCoverTable(t *testing.T) {
	hints := commandHints()
	if len(hints) != len(commandTable()) {
		t.Fatalf("%d hints for %d commands", len(hints), len(commandTable()))
	}
	if hints[0].Key != ":call [contact]" {
		t.Fatalf("first hint = %q", hints[0].Key)
	}
}
