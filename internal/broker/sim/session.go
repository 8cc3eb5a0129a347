package sim

import (
	"context"
	"errors"
	"sync"

	"github.com/theirongolddev/qview/internal/broker"
)

type conn struct {
	broker *Broker
	url    string

	mu       sync.Mutex
	closed   bool
	sessions []*session
}

func (c *conn) OpenSession(ctx context.Context, opts broker.Options) (broker.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, broker.ErrClosed
	}
	s := newSession(c.broker)
	c.sessions = append(c.sessions, s)
	// Discovery of the broker's own agent is the first thing a console sees.
	s.push(broker.Event{Type: broker.EventAgentAdded, Agent: c.broker.agent})
	return s, nil
}

func (c *conn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	sessions := c.sessions
	c.sessions = nil
	c.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
	c.broker.mu.Lock()
	c.broker.conns--
	c.broker.mu.Unlock()
	return nil
}

// session delivers asynchronous responses through an unbounded backlog so a
// slow consumer never stalls the caller issuing requests.
type session struct {
	broker *Broker
	events chan broker.Event

	mu      sync.Mutex
	backlog []broker.Event
	wake    chan struct{}
	done    chan struct{}
	closed  bool
	nextCor uint32
}

func newSession(b *Broker) *session {
	s := &session{
		broker: b,
		events: make(chan broker.Event),
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go s.pump()
	return s
}

func (s *session) pump() {
	defer close(s.events)
	for {
		s.mu.Lock()
		if len(s.backlog) == 0 {
			s.mu.Unlock()
			select {
			case <-s.wake:
				continue
			case <-s.done:
				return
			}
		}
		ev := s.backlog[0]
		s.backlog = s.backlog[1:]
		s.mu.Unlock()

		select {
		case s.events <- ev:
		case <-s.done:
			return
		}
	}
}

func (s *session) push(ev broker.Event) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.backlog = append(s.backlog, ev)
	s.mu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *session) correlator() (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, broker.ErrClosed
	}
	s.nextCor++
	if s.nextCor == 0 {
		s.nextCor = 1
	}
	return s.nextCor, nil
}

func (s *session) Events() <-chan broker.Event {
	return s.events
}

func (s *session) BrokerAgent() string {
	return s.broker.agent
}

func (s *session) SetAgentFilter(filter string) error {
	s.broker.mu.Lock()
	defer s.broker.mu.Unlock()
	s.broker.filters = append(s.broker.filters, filter)
	return nil
}

func (s *session) Query(ctx context.Context, agent string, q broker.Query) ([]broker.Data, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	return s.broker.query(agent, q)
}

func (s *session) QueryAsync(agent string, q broker.Query) (uint32, error) {
	cor, err := s.correlator()
	if err != nil {
		return 0, err
	}
	data, err := s.broker.query(agent, q)
	if err != nil {
		s.push(faultEvent(cor, agent, err))
		return cor, nil
	}
	s.push(broker.Event{Type: broker.EventQueryResponse, Agent: agent, Correlator: cor, Data: data})
	return cor, nil
}

func (s *session) CallMethod(ctx context.Context, addr broker.DataAddr, method string, args broker.Map) (broker.Map, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	return s.broker.invoke(addr, method, args)
}

func (s *session) CallMethodAsync(addr broker.DataAddr, method string, args broker.Map) (uint32, error) {
	cor, err := s.correlator()
	if err != nil {
		return 0, err
	}
	out, err := s.broker.invoke(addr, method, args)
	if err != nil {
		s.push(faultEvent(cor, addr.Agent, err))
		return cor, nil
	}
	s.push(broker.Event{Type: broker.EventMethodResponse, Agent: addr.Agent, Correlator: cor, Arguments: out})
	return cor, nil
}

func (s *session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	close(s.done)
	return nil
}

func (s *session) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return broker.ErrClosed
	}
	return nil
}

func faultEvent(cor uint32, agent string, err error) broker.Event {
	text := err.Error()
	var fault *broker.Fault
	if errors.As(err, &fault) {
		text = fault.Text
	}
	return broker.Event{
		Type:       broker.EventException,
		Agent:      agent,
		Correlator: cor,
		Arguments:  broker.Map{"error_text": text},
	}
}
