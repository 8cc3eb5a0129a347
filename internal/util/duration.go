// Package util provides small parsing helpers shared by qview's packages.
package util

import (
	"fmt"
	"strconv"
	"time"
)

// ParseDuration parses human-friendly duration strings.
// Supports: 30s, 5m, 1h, 1d and standard Go durations (e.g., 1500ms, 1m30s).
func ParseDuration(s string) (time.Duration, error) {
	if len(s) < 2 {
		return 0, fmt.Errorf("invalid duration: %q", s)
	}

	unit := s[len(s)-1]
	value, err := strconv.Atoi(s[:len(s)-1])
	if err != nil {
		// Not a simple unit, try standard Go duration
		return time.ParseDuration(s)
	}

	switch unit {
	case 's':
		return time.Duration(value) * time.Second, nil
	case 'm':
		return time.Duration(value) * time.Minute, nil
	case 'h':
		return time.Duration(value) * time.Hour, nil
	case 'd':
		return time.Duration(value) * 24 * time.Hour, nil
	default:
		return time.ParseDuration(s)
	}
}

// ParseDurationWithDefault is ParseDuration that also accepts a bare number,
// counted in defaultUnit.
//
//	ParseDurationWithDefault("2", time.Second)     -> 2s
//	ParseDurationWithDefault("500ms", time.Second) -> 500ms
func ParseDurationWithDefault(s string, defaultUnit time.Duration) (time.Duration, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return time.Duration(n) * defaultUnit, nil
	}
	d, err := ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration: %q (use units like 500ms, 2s, 1m)", s)
	}
	return d, nil
}
