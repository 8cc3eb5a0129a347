// Package icons holds the glyphs the dashboard draws, with an ASCII set for
// terminals that cannot render the Unicode ones.
package icons

import (
	"os"
	"reflect"
	"strings"
)

// IconSet contains all icons used in the TUI
type IconSet struct {
	// Tree
	Expanded  string
	Collapsed string
	Leaf      string

	// Connection
	Connected    string
	Connecting   string
	Disconnected string
	Paused       string

	// Scrolling
	ScrollUp   string
	ScrollDown string

	// Status
	Changed string
	Warning string
	Filter  string
	Pointer string
}

// Unicode uses box-drawing and geometric symbols that render in a single cell
// on any UTF-8 terminal.
var Unicode = IconSet{
	Expanded:  "▾",
	Collapsed: "▸",
	Leaf:      " ",

	Connected:    "●",
	Connecting:   "◌",
	Disconnected: "○",
	Paused:       "‖",

	ScrollUp:   "▲",
	ScrollDown: "▼",

	Changed: "•",
	Warning: "!",
	Filter:  "/",
	Pointer: "❯",
}

// ASCII is the fallback set.
var ASCII = IconSet{
	Expanded:  "v",
	Collapsed: ">",
	Leaf:      " ",

	Connected:    "*",
	Connecting:   "~",
	Disconnected: "o",
	Paused:       "=",

	ScrollUp:   "^",
	ScrollDown: "v",

	Changed: "*",
	Warning: "!",
	Filter:  "/",
	Pointer: ">",
}

// WithFallback fills the empty icons of i from fallback.
func (i IconSet) WithFallback(fallback IconSet) IconSet {
	if reflect.DeepEqual(i, fallback) {
		return i
	}

	out := i
	dst := reflect.ValueOf(&out).Elem()
	fb := reflect.ValueOf(fallback)

	for idx := 0; idx < dst.NumField(); idx++ {
		f := dst.Field(idx)
		if f.Kind() != reflect.String || f.String() != "" {
			continue
		}
		f.SetString(fb.Field(idx).String())
	}
	return out
}

// HasUnicode detects if the terminal supports Unicode
func HasUnicode() bool {
	for _, env := range []string{"LC_ALL", "LC_CTYPE", "LANG"} {
		v := strings.ToLower(os.Getenv(env))
		if v == "" {
			continue
		}
		// The first locale variable that is set wins.
		return strings.Contains(v, "utf")
	}

	switch os.Getenv("TERM") {
	case "dumb", "linux", "vt100", "vt220":
		return false
	}
	return true
}

// FromName returns the set for a [ui] icons value: "unicode", "ascii" or
// "auto". QVIEW_ICONS overrides it.
func FromName(name string) IconSet {
	if env := os.Getenv("QVIEW_ICONS"); env != "" {
		name = env
	}
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "unicode":
		return Unicode.WithFallback(ASCII)
	case "ascii":
		return ASCII
	default:
		if HasUnicode() {
			return Unicode.WithFallback(ASCII)
		}
		return ASCII
	}
}

// TreeMarker returns the marker drawn before a tree line.
func (i IconSet) TreeMarker(hasChildren, expanded bool) string {
	switch {
	case !hasChildren:
		return i.Leaf
	case expanded:
		return i.Expanded
	default:
		return i.Collapsed
	}
}

// ConnectionIcon returns the icon for the session state. Paused only shows
// while connected.
func (i IconSet) ConnectionIcon(connected, connecting, paused bool) string {
	switch {
	case connected && paused:
		return i.Paused
	case connected:
		return i.Connected
	case connecting:
		return i.Connecting
	default:
		return i.Disconnected
	}
}
