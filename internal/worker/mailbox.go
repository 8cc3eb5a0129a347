package worker

import (
	"context"
	"errors"
	"sync"
)

// ErrMailboxClosed is returned by Receive once the mailbox is closed and empty.
var ErrMailboxClosed = errors.New("mailbox closed")

// Mailbox is an unbounded FIFO between the worker and its consumer.
// Post never blocks, so a slow consumer cannot stall the worker.
type Mailbox struct {
	mu     sync.Mutex
	items  []Message
	signal chan struct{}
	closed bool
}

// NewMailbox returns an empty mailbox.
func NewMailbox() *Mailbox {
	return &Mailbox{signal: make(chan struct{}, 1)}
}

// Post appends msg. Posting to a closed mailbox drops the message.
func (m *Mailbox) Post(msg Message) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.items = append(m.items, msg)
	m.mu.Unlock()
	m.notify()
}

// TryReceive returns the oldest message without waiting.
func (m *Mailbox) TryReceive() (Message, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.items) == 0 {
		return nil, false
	}
	msg := m.items[0]
	m.items[0] = nil
	m.items = m.items[1:]
	return msg, true
}

// Receive waits for the oldest message. Messages posted before Close are
// still delivered; after that Receive returns ErrMailboxClosed.
func (m *Mailbox) Receive(ctx context.Context) (Message, error) {
	for {
		if msg, ok := m.TryReceive(); ok {
			return msg, nil
		}
		m.mu.Lock()
		closed := m.closed
		m.mu.Unlock()
		if closed {
			return nil, ErrMailboxClosed
		}
		select {
		case <-m.signal:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Len returns the number of undelivered messages.
func (m *Mailbox) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// Close stops accepting messages and wakes any waiting receiver.
func (m *Mailbox) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.notify()
}

func (m *Mailbox) notify() {
	select {
	case m.signal <- struct{}{}:
	default:
	}
}
