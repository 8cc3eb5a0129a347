package util

import (
	"testing"
	"time"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		input    string
		expected time.Duration
		wantErr  bool
	}{
		// Simple units
		{"30s", 30 * time.Second, false},
		{"5m", 5 * time.Minute, false},
		{"2h", 2 * time.Hour, false},
		{"1d", 24 * time.Hour, false},

		// Milliseconds (standard Go format)
		{"500ms", 500 * time.Millisecond, false},
		{"1500ms", 1500 * time.Millisecond, false},

		// Standard Go compound durations
		{"1h30m", 90 * time.Minute, false},
		{"1m30s", 90 * time.Second, false},

		// Edge cases
		{"0s", 0, false},
		{"-1s", -time.Second, false},

		// Errors
		{"", 0, true},
		{"s", 0, true},
		{"abc", 0, true},
		{"5x", 0, true},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			got, err := ParseDuration(tc.input)
			if tc.wantErr {
				if err == nil {
					t.Errorf("ParseDuration(%q) expected error, got %v", tc.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDuration(%q) unexpected error: %v", tc.input, err)
			}
			if got != tc.expected {
				t.Errorf("ParseDuration(%q) = %v, want %v", tc.input, got, tc.expected)
			}
		})
	}
}

func TestParseDurationWithDefault(t *testing.T) {
	tests := []struct {
		input   string
		unit    time.Duration
		want    time.Duration
		wantErr bool
	}{
		{"2", time.Second, 2 * time.Second, false},
		{"250", time.Millisecond, 250 * time.Millisecond, false},
		{"2s", time.Millisecond, 2 * time.Second, false},
		{"soon", time.Second, 0, true},
	}
	for _, tc := range tests {
		got, err := ParseDurationWithDefault(tc.input, tc.unit)
		if (err != nil) != tc.wantErr {
			t.Errorf("ParseDurationWithDefault(%q) error = %v, wantErr %v", tc.input, err, tc.wantErr)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseDurationWithDefault(%q) = %v, want %v", tc.input, got, tc.want)
		}
	}
}
