package cli

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/theirongolddev/qview/internal/config"
)

func simSession(t *testing.T) *session {
	t.Helper()
	c := config.Default()
	c.Broker.URL = "sim:"
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)

	s, err := openSession(ctx, c, false)
	if err != nil {
		t.Fatalf("openSession() error = %v", err)
	}
	t.Cleanup(s.close)
	return s
}

func TestOpenSessionSkipsStartupStatus(t *testing.T) {
	s := simSession(t)

	for _, name := range []string{"orders", "billing", "notifications"} {
		if _, err := s.queue(name); err != nil {
			t.Errorf("queue(%q) error = %v", name, err)
		}
	}
}

func TestSessionHeaders(t *testing.T) {
	s := simSession(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	headers, err := s.headers(ctx, "billing")
	if err != nil {
		t.Fatalf("headers() error = %v", err)
	}
	if len(headers) != 3 {
		t.Errorf("len(headers()) = %d, want 3", len(headers))
	}
	for i := 1; i < len(headers); i++ {
		if headers[i-1].ID >= headers[i].ID {
			t.Errorf("headers() not in id order: %d before %d", headers[i-1].ID, headers[i].ID)
		}
	}
}

func TestSessionHeadersUnknownQueue(t *testing.T) {
	s := simSession(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := s.headers(ctx, "missing")
	if err == nil {
		t.Fatal("headers() error = nil, want listing failure")
	}
	if !strings.Contains(err.Error(), "missing") {
		t.Errorf("headers() error = %q, want it to name the queue", err)
	}
}
