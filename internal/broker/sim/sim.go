// Package sim is an in-process broker that speaks the management interface of
// package broker. It backs the console's tests and the `qview sim` demo server.
package sim

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/theirongolddev/qview/internal/broker"
)

// DefaultAgentName is the agent name reported by a simulated broker.
const DefaultAgentName = "apache.org:qpidd:sim"

// Message is a message stored on a simulated queue.
type Message struct {
	ID     uint64
	Header broker.Map
	Body   any
}

type queue struct {
	name     string
	props    broker.Map
	messages []*Message
	enqBytes uint64
	deqBytes uint64
}

// Broker is a simulated broker. All methods are safe for concurrent use.
type Broker struct {
	mu          sync.Mutex
	agent       string
	queues      map[string]*queue
	nextID      uint64
	brokerCount int
	dialErr     error
	filters     []string
	conns       int
}

// Option configures a Broker.
type Option func(*Broker)

// WithAgentName overrides the broker agent name.
func WithAgentName(name string) Option {
	return func(b *Broker) {
		b.agent = name
	}
}

// WithBrokerObjects sets how many broker singletons the broker query returns.
// Anything other than one leaves the console without a usable singleton.
func WithBrokerObjects(n int) Option {
	return func(b *Broker) {
		b.brokerCount = n
	}
}

// New creates an empty simulated broker.
func New(opts ...Option) *Broker {
	b := &Broker{
		agent:       DefaultAgentName,
		queues:      make(map[string]*queue),
		brokerCount: 1,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// AgentName returns the broker agent name.
func (b *Broker) AgentName() string {
	return b.agent
}

// SetDialError makes subsequent dials fail with err (nil restores).
func (b *Broker) SetDialError(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.dialErr = err
}

// AddQueue declares a queue. Extra properties are merged into its object.
func (b *Broker) AddQueue(name string, props broker.Map) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if q, ok := b.queues[name]; ok {
		for k, v := range props {
			q.props[k] = v
		}
		return
	}
	p := props.Clone()
	if p == nil {
		p = broker.Map{}
	}
	b.queues[name] = &queue{name: name, props: p}
}

// DeleteQueue removes a queue and its messages.
func (b *Broker) DeleteQueue(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.queues, name)
}

// Enqueue appends a message and returns its id.
func (b *Broker) Enqueue(queueName string, header broker.Map, body any) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	q, ok := b.queues[queueName]
	if !ok {
		return 0, broker.NewFault("queue %s not found", queueName)
	}
	b.nextID++
	msg := &Message{ID: b.nextID, Header: header.Clone(), Body: body}
	q.messages = append(q.messages, msg)
	q.enqBytes += bodySize(body)
	return msg.ID, nil
}

// SetHeader replaces the header of a stored message.
func (b *Broker) SetHeader(queueName string, id uint64, header broker.Map) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, msg, err := b.lookup(queueName, id)
	if err != nil {
		return err
	}
	msg.Header = header.Clone()
	return nil
}

// Messages returns a snapshot of the messages on a queue.
func (b *Broker) Messages(queueName string) []Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	q, ok := b.queues[queueName]
	if !ok {
		return nil
	}
	out := make([]Message, len(q.messages))
	for i, m := range q.messages {
		out[i] = Message{ID: m.ID, Header: m.Header.Clone(), Body: m.Body}
	}
	return out
}

// AgentFilters returns the agent filters sessions have installed.
func (b *Broker) AgentFilters() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.filters...)
}

// OpenConnections returns how many connections are currently open.
func (b *Broker) OpenConnections() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conns
}

// Dial implements broker.Dialer.
func (b *Broker) Dial(ctx context.Context, url string, opts broker.Options) (broker.Connection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.dialErr != nil {
		return nil, fmt.Errorf("dial %s: %w", url, b.dialErr)
	}
	b.conns++
	return &conn{broker: b, url: url}, nil
}

func (b *Broker) lookup(queueName string, id uint64) (*queue, *Message, error) {
	q, ok := b.queues[queueName]
	if !ok {
		return nil, nil, broker.NewFault("queue %s not found", queueName)
	}
	for _, m := range q.messages {
		if m.ID == id {
			return q, m, nil
		}
	}
	return q, nil, broker.NewFault("message %d not found on queue %s", id, queueName)
}

func (b *Broker) query(agent string, q broker.Query) ([]broker.Data, error) {
	if agent != b.agent {
		return nil, broker.NewFault("unknown agent %s", agent)
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	switch q.Class {
	case broker.ClassBroker:
		out := make([]broker.Data, 0, b.brokerCount)
		for i := 0; i < b.brokerCount; i++ {
			out = append(out, broker.Data{
				Addr:       broker.DataAddr{Agent: b.agent, Name: fmt.Sprintf("amqp-broker-%d", i), Class: broker.ClassBroker},
				Properties: broker.Map{"name": "amqp-broker"},
			})
		}
		return out, nil
	case broker.ClassQueue:
		names := make([]string, 0, len(b.queues))
		for name := range b.queues {
			names = append(names, name)
		}
		sort.Strings(names)
		out := make([]broker.Data, 0, len(names))
		for _, name := range names {
			out = append(out, b.queueData(b.queues[name]))
		}
		return out, nil
	default:
		return nil, nil
	}
}

func (b *Broker) queueData(q *queue) broker.Data {
	props := q.props.Clone()
	var depth uint64
	for _, m := range q.messages {
		depth += bodySize(m.Body)
	}
	props["name"] = q.name
	props["msgDepth"] = uint64(len(q.messages))
	props["byteDepth"] = depth
	props["byteTotalEnqueues"] = q.enqBytes
	props["byteTotalDequeues"] = q.deqBytes
	if !props.Has("autoDelete") {
		props["autoDelete"] = false
	}
	return broker.Data{
		Addr:       broker.DataAddr{Agent: b.agent, Name: q.name, Class: broker.ClassQueue},
		Properties: props,
	}
}

func (b *Broker) invoke(addr broker.DataAddr, method string, args broker.Map) (broker.Map, error) {
	if addr.Agent != b.agent {
		return nil, broker.NewFault("unknown agent %s", addr.Agent)
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if addr.Class == broker.ClassQueue {
		if method != "purge" {
			return nil, broker.NewFault("unknown queue method %s", method)
		}
		q, ok := b.queues[addr.Name]
		if !ok {
			return nil, broker.NewFault("queue %s not found", addr.Name)
		}
		n, _ := args.Uint64("request")
		if n == 0 || n > uint64(len(q.messages)) {
			n = uint64(len(q.messages))
		}
		for _, m := range q.messages[:n] {
			q.deqBytes += bodySize(m.Body)
		}
		q.messages = append([]*Message(nil), q.messages[n:]...)
		return broker.Map{"purged": n}, nil
	}

	name := args.String("name")
	switch method {
	case "queueGetIdList":
		q, ok := b.queues[name]
		if !ok {
			return nil, broker.NewFault("queue %s not found", name)
		}
		ids := make([]any, len(q.messages))
		for i, m := range q.messages {
			ids[i] = m.ID
		}
		return broker.Map{"ids": ids}, nil
	case "queueGetMessageHeader":
		id, _ := args.Uint64("id")
		_, msg, err := b.lookup(name, id)
		if err != nil {
			return nil, err
		}
		return broker.Map{"header": msg.Header.Clone()}, nil
	case "queueRemoveMessage":
		id, _ := args.Uint64("id")
		q, msg, err := b.lookup(name, id)
		if err != nil {
			return nil, err
		}
		for i, m := range q.messages {
			if m == msg {
				q.messages = append(q.messages[:i], q.messages[i+1:]...)
				break
			}
		}
		q.deqBytes += bodySize(msg.Body)
		return broker.Map{}, nil
	case "getBody":
		id, _ := args.Uint64("id")
		_, msg, err := b.lookup(name, id)
		if err != nil {
			return nil, err
		}
		return broker.Map{"body": msg.Body}, nil
	default:
		return nil, broker.NewFault("unknown method %s", method)
	}
}

func bodySize(body any) uint64 {
	switch v := body.(type) {
	case string:
		return uint64(len(v))
	case []byte:
		return uint64(len(v))
	case nil:
		return 0
	default:
		return uint64(len(broker.FormatValue(v)))
	}
}
