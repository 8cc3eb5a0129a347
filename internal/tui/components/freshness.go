package components

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// FreshnessOptions configures freshness indicator rendering.
type FreshnessOptions struct {
	LastUpdate      time.Time     // When the last queue listing completed
	RefreshInterval time.Duration // Expected poll interval
	Now             time.Time     // Zero means time.Now
	Paused          bool          // Paused listings are never stale
	Style           lipgloss.Style
	StaleStyle      lipgloss.Style
}

// IsStale returns true if data is older than 2x the refresh interval.
func IsStale(lastUpdate, now time.Time, refreshInterval time.Duration) bool {
	if lastUpdate.IsZero() || refreshInterval <= 0 {
		return false
	}
	return now.Sub(lastUpdate) > 2*refreshInterval
}

// RenderFreshness renders "updated Xs ago", or "stale Xs" in StaleStyle
// when the poll has fallen behind. Returns empty string if lastUpdate is
// zero.
func RenderFreshness(opts FreshnessOptions) string {
	if opts.LastUpdate.IsZero() {
		return ""
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	elapsed := now.Sub(opts.LastUpdate)
	age := FormatAge(elapsed)

	switch {
	case !opts.Paused && IsStale(opts.LastUpdate, now, opts.RefreshInterval):
		return opts.StaleStyle.Render("stale " + age)
	case elapsed < time.Second:
		return opts.Style.Render("updated just now")
	default:
		return opts.Style.Render(fmt.Sprintf("updated %s ago", age))
	}
}

// FormatAge returns a human-readable duration string.
func FormatAge(d time.Duration) string {
	switch {
	case d < time.Second:
		return "now"
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}
