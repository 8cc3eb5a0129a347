package command

import (
	"errors"
	"testing"
	"time"
)

func TestQueueFIFO(t *testing.T) {
	t.Parallel()

	q := NewQueue()
	kinds := []Kind{Connect, FetchHeaders, Disconnect}
	for _, k := range kinds {
		if err := q.Push(Command{Kind: k}); err != nil {
			t.Fatalf("Push(%v) error: %v", k, err)
		}
	}
	if q.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", q.Len())
	}
	for _, want := range kinds {
		cmd, ok := q.Pop()
		if !ok || cmd.Kind != want {
			t.Errorf("Pop() = %v, %v; want %v", cmd.Kind, ok, want)
		}
	}
	if _, ok := q.Pop(); ok {
		t.Error("Pop() on empty queue returned a command")
	}
}

func TestQueueWake(t *testing.T) {
	t.Parallel()

	q := NewQueue()
	q.Push(Command{Kind: Connect})
	q.Push(Command{Kind: Disconnect})

	select {
	case <-q.Wake():
	case <-time.After(time.Second):
		t.Fatal("no wake after Push")
	}
	// Several pushes coalesce into one wake; the receiver drains with Pop.
	select {
	case <-q.Wake():
		t.Error("second wake pending, want coalesced")
	default:
	}
	if q.Len() != 2 {
		t.Errorf("Len() = %d, want 2", q.Len())
	}
}

func TestQueueClose(t *testing.T) {
	t.Parallel()

	q := NewQueue()
	q.Push(Command{Kind: Connect, URL: "localhost"})
	rest := q.Close()
	if len(rest) != 1 || rest[0].URL != "localhost" {
		t.Errorf("Close() = %v, want the queued connect", rest)
	}
	if err := q.Push(Command{Kind: Disconnect}); !errors.Is(err, ErrClosed) {
		t.Errorf("Push after Close error = %v, want ErrClosed", err)
	}
}

func TestKindString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		kind Kind
		want string
	}{
		{Connect, "connect"},
		{Disconnect, "disconnect"},
		{FetchHeaders, "fetch-headers"},
		{RemoveMessage, "remove-message"},
		{Purge, "purge"},
		{FetchBody, "fetch-body"},
		{Pause, "pause"},
		{Kind(0), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("Kind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}
