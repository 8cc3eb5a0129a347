// Package components provides small animated pieces of the dashboard.
package components

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// SpinnerStyle defines different spinner animations
type SpinnerStyle int

const (
	SpinnerDots SpinnerStyle = iota
	SpinnerLine
)

var spinnerFrames = map[SpinnerStyle][]string{
	SpinnerDots: {"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
	SpinnerLine: {"-", "\\", "|", "/"},
}

// Spinner animates while the dashboard waits on the broker. Ticks only keep
// coming while Active is set; a stopped spinner renders nothing.
type Spinner struct {
	Style  SpinnerStyle
	Color  lipgloss.Color
	Frame  int
	FPS    time.Duration
	Label  string
	Active bool
}

// SpinnerTickMsg is sent on each animation tick
type SpinnerTickMsg time.Time

// NewSpinner creates a new spinner with defaults
func NewSpinner(color lipgloss.Color) Spinner {
	return Spinner{
		Style: SpinnerDots,
		Color: color,
		FPS:   80 * time.Millisecond,
	}
}

// Start activates the spinner and returns the first tick.
func (s Spinner) Start() (Spinner, tea.Cmd) {
	if s.Active {
		return s, nil
	}
	s.Active = true
	s.Frame = 0
	return s, s.tick()
}

// Stop deactivates the spinner; the pending tick is dropped on arrival.
func (s Spinner) Stop() Spinner {
	s.Active = false
	return s
}

// Update handles spinner animation
func (s Spinner) Update(msg tea.Msg) (Spinner, tea.Cmd) {
	if _, ok := msg.(SpinnerTickMsg); !ok || !s.Active {
		return s, nil
	}
	s.Frame = (s.Frame + 1) % len(s.frames())
	return s, s.tick()
}

// View renders the spinner
func (s Spinner) View() string {
	if !s.Active {
		return ""
	}
	frames := s.frames()
	rendered := lipgloss.NewStyle().Foreground(s.Color).Render(frames[s.Frame%len(frames)])
	if s.Label != "" {
		return rendered + " " + s.Label
	}
	return rendered
}

func (s Spinner) frames() []string {
	frames, ok := spinnerFrames[s.Style]
	if !ok || len(frames) == 0 {
		return spinnerFrames[SpinnerDots]
	}
	return frames
}

func (s Spinner) tick() tea.Cmd {
	return tea.Tick(s.FPS, func(t time.Time) tea.Msg {
		return SpinnerTickMsg(t)
	})
}
