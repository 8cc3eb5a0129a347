package theme

import (
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme defines a complete color palette for the TUI
type Theme struct {
	// Base colors
	Base     lipgloss.Color // Background
	Surface0 lipgloss.Color // Surface
	Surface1 lipgloss.Color // Surface highlight
	Surface2 lipgloss.Color // Borders

	// Text colors
	Text    lipgloss.Color // Primary text
	Subtext lipgloss.Color // Secondary text
	Overlay lipgloss.Color // Dimmed text

	// Semantic colors
	Primary   lipgloss.Color
	Secondary lipgloss.Color
	Success   lipgloss.Color
	Warning   lipgloss.Color
	Error     lipgloss.Color
	Info      lipgloss.Color

	// Changed marks tree values that differ from the previous refresh.
	Changed lipgloss.Color
}

// Catppuccin Mocha - the flagship dark theme
var CatppuccinMocha = Theme{
	Base:     lipgloss.Color("#1e1e2e"),
	Surface0: lipgloss.Color("#313244"),
	Surface1: lipgloss.Color("#45475a"),
	Surface2: lipgloss.Color("#585b70"),

	Text:    lipgloss.Color("#cdd6f4"),
	Subtext: lipgloss.Color("#a6adc8"),
	Overlay: lipgloss.Color("#6c7086"),

	Primary:   lipgloss.Color("#89b4fa"), // Blue
	Secondary: lipgloss.Color("#cba6f7"), // Mauve
	Success:   lipgloss.Color("#a6e3a1"), // Green
	Warning:   lipgloss.Color("#f9e2af"), // Yellow
	Error:     lipgloss.Color("#f38ba8"), // Red
	Info:      lipgloss.Color("#89dceb"), // Sky
	Changed:   lipgloss.Color("#fab387"), // Peach
}

// Catppuccin Macchiato - darker variant
var CatppuccinMacchiato = Theme{
	Base:     lipgloss.Color("#24273a"),
	Surface0: lipgloss.Color("#363a4f"),
	Surface1: lipgloss.Color("#494d64"),
	Surface2: lipgloss.Color("#5b6078"),

	Text:    lipgloss.Color("#cad3f5"),
	Subtext: lipgloss.Color("#a5adcb"),
	Overlay: lipgloss.Color("#6e738d"),

	Primary:   lipgloss.Color("#8aadf4"),
	Secondary: lipgloss.Color("#c6a0f6"),
	Success:   lipgloss.Color("#a6da95"),
	Warning:   lipgloss.Color("#eed49f"),
	Error:     lipgloss.Color("#ed8796"),
	Info:      lipgloss.Color("#91d7e3"),
	Changed:   lipgloss.Color("#f5a97f"),
}

// Catppuccin Latte - light theme
var CatppuccinLatte = Theme{
	Base:     lipgloss.Color("#eff1f5"),
	Surface0: lipgloss.Color("#ccd0da"),
	Surface1: lipgloss.Color("#bcc0cc"),
	Surface2: lipgloss.Color("#acb0be"),

	Text:    lipgloss.Color("#4c4f69"),
	Subtext: lipgloss.Color("#5c5f77"),
	Overlay: lipgloss.Color("#9ca0b0"),

	Primary:   lipgloss.Color("#1e66f5"),
	Secondary: lipgloss.Color("#8839ef"),
	Success:   lipgloss.Color("#40a02b"),
	Warning:   lipgloss.Color("#df8e1d"),
	Error:     lipgloss.Color("#d20f39"),
	Info:      lipgloss.Color("#04a5e5"),
	Changed:   lipgloss.Color("#fe640b"),
}

// Plain is a no-color theme that uses empty/default colors.
// Used when NO_COLOR is set or for accessibility needs.
var Plain = Theme{}

// Nord - popular arctic theme
var Nord = Theme{
	Base:     lipgloss.Color("#2e3440"),
	Surface0: lipgloss.Color("#3b4252"),
	Surface1: lipgloss.Color("#434c5e"),
	Surface2: lipgloss.Color("#4c566a"),

	Text:    lipgloss.Color("#eceff4"),
	Subtext: lipgloss.Color("#d8dee9"),
	Overlay: lipgloss.Color("#7b88a1"),

	Primary:   lipgloss.Color("#88c0d0"),
	Secondary: lipgloss.Color("#b48ead"),
	Success:   lipgloss.Color("#a3be8c"),
	Warning:   lipgloss.Color("#ebcb8b"),
	Error:     lipgloss.Color("#bf616a"),
	Info:      lipgloss.Color("#81a1c1"),
	Changed:   lipgloss.Color("#d08770"),
}

// NoColorEnabled returns true if color output should be disabled.
// NO_COLOR (any value) disables colors; QVIEW_NO_COLOR=0 forces them back
// on and QVIEW_NO_COLOR=1 forces them off.
func NoColorEnabled() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("QVIEW_NO_COLOR"))) {
	case "0", "false", "no", "off":
		return false
	case "1", "true", "yes", "on":
		return true
	}
	_, noColorSet := os.LookupEnv("NO_COLOR")
	return noColorSet
}

// FromName returns a theme by name
func FromName(name string) Theme {
	if NoColorEnabled() {
		return Plain
	}

	switch strings.ToLower(strings.TrimSpace(name)) {
	case "plain", "none", "no-color", "nocolor":
		return Plain
	case "macchiato":
		return CatppuccinMacchiato
	case "nord":
		return Nord
	case "latte", "light":
		return CatppuccinLatte
	case "mocha":
		return CatppuccinMocha
	default:
		return autoTheme()
	}
}

// Current returns the theme named by QVIEW_THEME, or the detected one.
func Current() Theme {
	return FromName(os.Getenv("QVIEW_THEME"))
}

// detectDarkBackground inspects the terminal to determine if a dark background is in use.
// It is defined as a variable for testability.
var detectDarkBackground = func() bool {
	return termenv.NewOutput(os.Stdout).HasDarkBackground()
}

var (
	cachedAutoTheme Theme
	autoThemeOnce   sync.Once
)

// resetAutoTheme lets tests re-run detection.
var resetAutoTheme = func() {
	autoThemeOnce = sync.Once{}
	cachedAutoTheme = Theme{}
}

func autoTheme() Theme {
	autoThemeOnce.Do(func() {
		cachedAutoTheme = CatppuccinMocha

		defer func() {
			if recover() != nil {
				cachedAutoTheme = CatppuccinMocha
			}
		}()

		if !detectDarkBackground() {
			cachedAutoTheme = CatppuccinLatte
		}
	})
	return cachedAutoTheme
}

// Styles contains pre-built lipgloss styles for the theme
type Styles struct {
	Title  lipgloss.Style
	Normal lipgloss.Style
	Dim    lipgloss.Style

	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Info    lipgloss.Style
	Changed lipgloss.Style

	// Panes
	Pane        lipgloss.Style
	PaneFocused lipgloss.Style
	PaneTitle   lipgloss.Style

	// Queue table
	TableHeader lipgloss.Style
	Row         lipgloss.Style
	RowSelected lipgloss.Style

	// Header tree
	TreeCursor lipgloss.Style
	TreeBody   lipgloss.Style

	Input     lipgloss.Style
	Help      lipgloss.Style
	StatusBar lipgloss.Style
}

// NewStyles creates a Styles instance from a theme
func NewStyles(t Theme) Styles {
	styles := Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(t.Primary),

		Normal: lipgloss.NewStyle().
			Foreground(t.Text),

		Dim: lipgloss.NewStyle().
			Foreground(t.Overlay),

		Success: lipgloss.NewStyle().Bold(true).Foreground(t.Success),
		Warning: lipgloss.NewStyle().Bold(true).Foreground(t.Warning),
		Error:   lipgloss.NewStyle().Bold(true).Foreground(t.Error),
		Info:    lipgloss.NewStyle().Bold(true).Foreground(t.Info),
		Changed: lipgloss.NewStyle().Foreground(t.Changed),

		Pane: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(t.Surface2),

		PaneFocused: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(t.Primary),

		PaneTitle: lipgloss.NewStyle().
			Bold(true).
			Foreground(t.Primary).
			Padding(0, 1),

		TableHeader: lipgloss.NewStyle().
			Bold(true).
			Foreground(t.Subtext),

		Row: lipgloss.NewStyle().
			Foreground(t.Text),

		RowSelected: lipgloss.NewStyle().
			Bold(true).
			Foreground(t.Base).
			Background(t.Primary),

		TreeCursor: lipgloss.NewStyle().
			Bold(true).
			Foreground(t.Primary),

		TreeBody: lipgloss.NewStyle().
			Foreground(t.Subtext),

		Input: lipgloss.NewStyle().
			Foreground(t.Text).
			Background(t.Surface0).
			Padding(0, 1),

		Help: lipgloss.NewStyle().
			Foreground(t.Overlay),

		StatusBar: lipgloss.NewStyle().
			Foreground(t.Subtext).
			Background(t.Surface0).
			Padding(0, 1),
	}

	// Without color, selection and change must not rely on shades alone.
	if t == Plain {
		styles.RowSelected = lipgloss.NewStyle().Bold(true).Reverse(true)
		styles.Changed = lipgloss.NewStyle().Underline(true)
		styles.Error = styles.Error.Underline(true)
	}

	return styles
}
