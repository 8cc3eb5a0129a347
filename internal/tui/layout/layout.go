// Package layout sizes the dashboard panes for the terminal.
package layout

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"
)

// Below SplitViewThreshold the queue table and the header tree are stacked;
// at or above it they sit side by side. WideViewThreshold gives the tree
// the larger share.
const (
	SplitViewThreshold = 120
	WideViewThreshold  = 200
)

// Tier describes the current width bucket.
type Tier int

const (
	TierNarrow Tier = iota
	TierSplit
	TierWide
)

// TierForWidth maps a terminal width to a tier.
func TierForWidth(width int) Tier {
	switch {
	case width >= WideViewThreshold:
		return TierWide
	case width >= SplitViewThreshold:
		return TierSplit
	default:
		return TierNarrow
	}
}

// SplitProportions returns table/tree widths for a side-by-side layout.
// Below the split threshold both panes get the full width.
func SplitProportions(total int) (left, right int) {
	if total < SplitViewThreshold {
		return total, total
	}
	// 2 columns of border per pane
	avail := total - 4
	share := 0.45
	if total >= WideViewThreshold {
		share = 0.35
	}
	left = int(float64(avail) * share)
	right = avail - left
	return
}

// StackProportions splits the body height between the table (top) and
// the tree (bottom) when the panes are stacked.
func StackProportions(total int) (top, bottom int) {
	// 2 rows of border per pane
	avail := total - 4
	if avail < 2 {
		return 1, 1
	}
	top = avail * 2 / 5
	if top < 1 {
		top = 1
	}
	bottom = avail - top
	return
}

// Truncate cuts s to width cells, ending in "…" when it was cut. ANSI
// sequences are not counted.
func Truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if lipgloss.Width(s) <= width {
		return s
	}
	return truncate.StringWithTail(s, uint(width), "…")
}

// ScrollState tracks the visible window of a list.
type ScrollState struct {
	FirstVisible int // Index of first visible item
	LastVisible  int // Index of last visible item, inclusive
	TotalItems   int
}

// Window returns the window of height rows that keeps cursor visible,
// scrolling as little as possible from the previous first row.
func Window(total, cursor, height, first int) ScrollState {
	if total <= 0 || height <= 0 {
		return ScrollState{LastVisible: -1, TotalItems: total}
	}
	if cursor < 0 {
		cursor = 0
	}
	if cursor >= total {
		cursor = total - 1
	}
	if cursor < first {
		first = cursor
	}
	if cursor >= first+height {
		first = cursor - height + 1
	}
	if first+height > total {
		first = total - height
	}
	if first < 0 {
		first = 0
	}
	last := first + height - 1
	if last >= total {
		last = total - 1
	}
	return ScrollState{FirstVisible: first, LastVisible: last, TotalItems: total}
}

// HasMoreAbove returns true if there's content above the viewport.
func (s ScrollState) HasMoreAbove() bool {
	return s.FirstVisible > 0
}

// HasMoreBelow returns true if there's content below the viewport.
func (s ScrollState) HasMoreBelow() bool {
	return s.TotalItems > 0 && s.LastVisible < s.TotalItems-1
}

// Indicator returns "▲▼", "▲", "▼" or "" for the hidden content.
func (s ScrollState) Indicator() string {
	switch {
	case s.HasMoreAbove() && s.HasMoreBelow():
		return "▲▼"
	case s.HasMoreAbove():
		return "▲"
	case s.HasMoreBelow():
		return "▼"
	default:
		return ""
	}
}

// Position renders "first-last/total" plus the indicator, or "" when
// everything is visible.
func (s ScrollState) Position() string {
	ind := s.Indicator()
	if ind == "" {
		return ""
	}
	return fmt.Sprintf("%d-%d/%d %s", s.FirstVisible+1, s.LastVisible+1, s.TotalItems, ind)
}
