// Package command carries requests from the interactive side to the worker.
package command

import (
	"errors"
	"sync"

	"github.com/theirongolddev/qview/internal/broker"
)

// ErrClosed is returned by Push after Close.
var ErrClosed = errors.New("command queue closed")

// Kind identifies what a Command asks the worker to do.
type Kind int

const (
	Connect Kind = iota + 1
	Disconnect
	FetchHeaders
	RemoveMessage
	Purge
	FetchBody
	Pause
)

func (k Kind) String() string {
	switch k {
	case Connect:
		return "connect"
	case Disconnect:
		return "disconnect"
	case FetchHeaders:
		return "fetch-headers"
	case RemoveMessage:
		return "remove-message"
	case Purge:
		return "purge"
	case FetchBody:
		return "fetch-body"
	case Pause:
		return "pause"
	default:
		return "unknown"
	}
}

// BodyReply receives the result of a synchronous body fetch.
type BodyReply struct {
	Body        any
	ContentType string
	Err         error
}

// Command is a single request. It is not modified after Push.
type Command struct {
	Kind Kind

	URL               string
	ConnectionOptions broker.Options
	SessionOptions    broker.Options

	// Queue and Args address the message or queue for the message commands.
	Queue string
	Args  broker.Map
	// Addr is the queue object a Purge is invoked on.
	Addr        broker.DataAddr
	Count       uint64
	ContentType string

	Paused bool

	// Reply, when set on FetchBody, makes the fetch synchronous: the worker
	// sends exactly one BodyReply and publishes nothing.
	Reply chan<- BodyReply
}

// Queue is a FIFO of commands with a wake channel the worker selects on.
type Queue struct {
	mu     sync.Mutex
	items  []Command
	wake   chan struct{}
	closed bool
}

// NewQueue returns an empty queue.
func NewQueue() *Queue {
	return &Queue{wake: make(chan struct{}, 1)}
}

// Push appends cmd and wakes the worker.
func (q *Queue) Push(cmd Command) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrClosed
	}
	q.items = append(q.items, cmd)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return nil
}

// Pop removes the oldest command. ok is false when the queue is empty.
func (q *Queue) Pop() (cmd Command, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return Command{}, false
	}
	cmd = q.items[0]
	q.items[0] = Command{}
	q.items = q.items[1:]
	return cmd, true
}

// Len returns the number of queued commands.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Wake fires after a Push. Receivers should drain with Pop until empty.
func (q *Queue) Wake() <-chan struct{} {
	return q.wake
}

// Close rejects further pushes and returns the commands still queued.
func (q *Queue) Close() []Command {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	rest := q.items
	q.items = nil
	return rest
}
