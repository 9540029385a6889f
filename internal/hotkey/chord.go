package hotkey

import (
	"fmt"
	"strings"
)

// Chord is a parsed key combination such as ctrl+shift+f9.
type Chord struct {
	Ctrl  bool
	Shift bool
	Alt   bool
	Key   string // lower-case key name, see Keys
}

// Keys lists the key names a chord may end with.
var Keys = func() map[string]bool {
	keys := map[string]bool{"space": true, "escape": true, "tab": true, "return": true, "delete": true}
	for c := 'a'; c <= 'z'; c++ {
		keys[string(c)] = true
	}
	for c := '0'; c <= '9'; c++ {
		keys[string(c)] = true
	}
	for i := 1; i <= 20; i++ {
		keys[fmt.Sprintf("f%d", i)] = true
	}
	return keys
}()

// ParseChord parses "mod+mod+key". Modifiers are ctrl, shift and alt
// (option on macOS); at least one is required so a bare key is never grabbed
// globally.
func ParseChord(s string) (Chord, error) {
	parts := strings.Split(strings.ToLower(strings.ReplaceAll(s, " ", "")), "+")
	if len(parts) < 2 {
		return Chord{}, fmt.Errorf("hotkey %q: want modifier+key", s)
	}

	var c Chord
	for _, m := range parts[:len(parts)-1] {
		switch m {
		case "ctrl", "control":
			c.Ctrl = true
		case "shift":
			c.Shift = true
		case "alt", "option":
			c.Alt = true
		default:
			return Chord{}, fmt.Errorf("hotkey %q: unknown modifier %q", s, m)
		}
	}

	key := parts[len(parts)-1]
	if !Keys[key] {
		return Chord{}, fmt.Errorf("hotkey %q: unsupported key %q", s, key)
	}
	c.Key = key
	return c, nil
}

func (c Chord) String() string {
	var parts []string
	if c.Ctrl {
		parts = append(parts, "ctrl")
	}
	if c.Shift {
		parts = append(parts, "shift")
	}
	if c.Alt {
		parts = append(parts, "alt")
	}
	return strings.Join(append(parts, c.Key), "+")
}
