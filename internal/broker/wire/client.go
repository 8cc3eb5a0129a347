package wire

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/theirongolddev/qview/internal/broker"
	"github.com/theirongolddev/qview/internal/logging"
)

// Settings tune the websocket client.
type Settings struct {
	HandshakeTimeout time.Duration
	RequestTimeout   time.Duration
	WriteTimeout     time.Duration
	PingInterval     time.Duration
}

// DefaultSettings returns the client defaults.
func DefaultSettings() Settings {
	return Settings{
		HandshakeTimeout: 5 * time.Second,
		RequestTimeout:   10 * time.Second,
		WriteTimeout:     5 * time.Second,
		PingInterval:     15 * time.Second,
	}
}

// Dialer opens websocket management connections. It implements broker.Dialer.
type Dialer struct {
	Settings Settings
	Logger   *slog.Logger
}

// NewDialer returns a Dialer with default settings.
func NewDialer(logger *slog.Logger) *Dialer {
	return &Dialer{Settings: DefaultSettings(), Logger: logger}
}

// Dial connects to url. Connection options understood: username, password,
// heartbeat (seconds between pings), timeout (handshake timeout).
func (d *Dialer) Dial(ctx context.Context, rawURL string, opts broker.Options) (broker.Connection, error) {
	target, err := NormalizeURL(rawURL)
	if err != nil {
		return nil, err
	}
	settings := d.Settings
	settings.HandshakeTimeout = opts.Duration("timeout", settings.HandshakeTimeout)
	settings.PingInterval = opts.Duration("heartbeat", settings.PingInterval)

	header := http.Header{}
	if user, ok := opts["username"]; ok {
		cred := base64.StdEncoding.EncodeToString([]byte(user + ":" + opts["password"]))
		header.Set("Authorization", "Basic "+cred)
	}

	dialer := websocket.Dialer{HandshakeTimeout: settings.HandshakeTimeout}
	ws, _, err := dialer.DialContext(ctx, target, header)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", target, err)
	}

	success := false
	defer func() {
		if !success {
			ws.Close()
		}
	}()

	console := "qview-" + uuid.NewString()
	ws.SetWriteDeadline(time.Now().Add(settings.HandshakeTimeout))
	if err := ws.WriteJSON(frame{Kind: kindHello, Console: console, URL: rawURL, Options: opts}); err != nil {
		return nil, fmt.Errorf("sending hello: %w", err)
	}
	welcome, err := readFrame(ws, settings.HandshakeTimeout)
	if err != nil {
		return nil, fmt.Errorf("awaiting welcome: %w", err)
	}
	if welcome.Kind != kindWelcome {
		if err := replyError(welcome); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("unexpected handshake frame %q", welcome.Kind)
	}

	logger := logging.OrDiscard(d.Logger)
	c := &clientConn{
		ws:       ws,
		settings: settings,
		logger:   logger.With(slog.String("console", console)),
		pending:  make(map[uint32]chan frame),
		done:     make(chan struct{}),
	}
	go c.readLoop()
	if settings.PingInterval > 0 {
		go c.pingLoop()
	}
	success = true
	return c, nil
}

type clientConn struct {
	ws       *websocket.Conn
	settings Settings
	logger   *slog.Logger

	writeMu sync.Mutex

	mu      sync.Mutex
	nextID  uint32
	pending map[uint32]chan frame
	session *clientSession
	closed  bool
	done    chan struct{}
	err     error
}

func (c *clientConn) write(f frame) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.ws.SetWriteDeadline(time.Now().Add(c.settings.WriteTimeout))
	return c.ws.WriteJSON(f)
}

// request sends f and waits for the reply with the same id.
func (c *clientConn) request(ctx context.Context, f frame) (frame, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return frame{}, broker.ErrClosed
	}
	c.nextID++
	if c.nextID == 0 {
		c.nextID = 1
	}
	id := c.nextID
	ch := make(chan frame, 1)
	c.pending[id] = ch
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	f.Kind = kindRequest
	f.ID = id
	if err := c.write(f); err != nil {
		return frame{}, fmt.Errorf("sending %s: %w", f.Op, err)
	}

	timer := time.NewTimer(c.settings.RequestTimeout)
	defer timer.Stop()
	select {
	case reply := <-ch:
		return reply, replyError(reply)
	case <-ctx.Done():
		return frame{}, ctx.Err()
	case <-c.done:
		return frame{}, broker.ErrClosed
	case <-timer.C:
		return frame{}, fmt.Errorf("%s: no reply within %s", f.Op, c.settings.RequestTimeout)
	}
}

func (c *clientConn) readLoop() {
	defer c.shutdown(nil)
	for {
		f, err := readFrame(c.ws, 0)
		if err != nil {
			c.mu.Lock()
			closed := c.closed
			c.mu.Unlock()
			if !closed {
				c.logger.Warn("wire read failed", logging.Err(err))
			}
			return
		}
		switch f.Kind {
		case kindReply:
			c.mu.Lock()
			ch := c.pending[f.ID]
			c.mu.Unlock()
			if ch != nil {
				ch <- f
			}
		case kindEvent:
			if f.Event == nil {
				continue
			}
			ev, err := decodeEvent(f.Event)
			if err != nil {
				c.logger.Debug("dropping event", logging.Err(err))
				continue
			}
			c.mu.Lock()
			s := c.session
			c.mu.Unlock()
			if s != nil {
				s.push(ev)
			}
		default:
			c.logger.Debug("ignoring frame", slog.String("kind", f.Kind))
		}
	}
}

func (c *clientConn) pingLoop() {
	ticker := time.NewTicker(c.settings.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.writeMu.Lock()
			err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.settings.WriteTimeout))
			c.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

func (c *clientConn) shutdown(err error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.err = err
	s := c.session
	close(c.done)
	c.mu.Unlock()

	if s != nil {
		s.finish()
	}
	c.ws.Close()
}

func (c *clientConn) OpenSession(ctx context.Context, opts broker.Options) (broker.Session, error) {
	c.mu.Lock()
	if c.session != nil {
		c.mu.Unlock()
		return nil, fmt.Errorf("wire: session already open")
	}
	s := newClientSession(c)
	c.session = s
	c.mu.Unlock()

	reply, err := c.request(ctx, frame{Op: opOpenSession, Options: opts})
	if err != nil {
		c.mu.Lock()
		c.session = nil
		c.mu.Unlock()
		s.finish()
		return nil, fmt.Errorf("opening session: %w", err)
	}
	s.agent = reply.Agent
	return s, nil
}

func (c *clientConn) Close() error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return nil
	}
	c.writeMu.Lock()
	c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(c.settings.WriteTimeout))
	c.writeMu.Unlock()
	c.shutdown(nil)
	return nil
}

// clientSession buffers inbound events without bound so the reader goroutine
// never stalls behind a slow consumer.
type clientSession struct {
	conn  *clientConn
	agent string

	events chan broker.Event
	mu     sync.Mutex
	queue  []broker.Event
	wake   chan struct{}
	done   chan struct{}
	ended  bool
}

func newClientSession(c *clientConn) *clientSession {
	s := &clientSession{
		conn:   c,
		events: make(chan broker.Event),
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go s.pump()
	return s
}

func (s *clientSession) pump() {
	defer close(s.events)
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.mu.Unlock()
			select {
			case <-s.wake:
				continue
			case <-s.done:
				return
			}
		}
		ev := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()
		select {
		case s.events <- ev:
		case <-s.done:
			return
		}
	}
}

func (s *clientSession) push(ev broker.Event) {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, ev)
	s.mu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *clientSession) finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return
	}
	s.ended = true
	close(s.done)
}

func (s *clientSession) Events() <-chan broker.Event { return s.events }

func (s *clientSession) BrokerAgent() string { return s.agent }

func (s *clientSession) SetAgentFilter(filter string) error {
	_, err := s.conn.request(context.Background(), frame{Op: opSetFilter, Filter: filter})
	return err
}

func (s *clientSession) Query(ctx context.Context, agent string, q broker.Query) ([]broker.Data, error) {
	reply, err := s.conn.request(ctx, frame{Op: opQuery, Agent: agent, Query: &q})
	if err != nil {
		return nil, err
	}
	return reply.Data, nil
}

func (s *clientSession) QueryAsync(agent string, q broker.Query) (uint32, error) {
	reply, err := s.conn.request(context.Background(), frame{Op: opQuery, Async: true, Agent: agent, Query: &q})
	if err != nil {
		return 0, err
	}
	return reply.Correlator, nil
}

func (s *clientSession) CallMethod(ctx context.Context, addr broker.DataAddr, method string, args broker.Map) (broker.Map, error) {
	reply, err := s.conn.request(ctx, frame{Op: opCall, Addr: &addr, Method: method, Args: args})
	if err != nil {
		return nil, err
	}
	return reply.Result, nil
}

func (s *clientSession) CallMethodAsync(addr broker.DataAddr, method string, args broker.Map) (uint32, error) {
	reply, err := s.conn.request(context.Background(), frame{Op: opCall, Async: true, Addr: &addr, Method: method, Args: args})
	if err != nil {
		return 0, err
	}
	return reply.Correlator, nil
}

func (s *clientSession) Close() error {
	s.mu.Lock()
	ended := s.ended
	s.mu.Unlock()
	if ended {
		return nil
	}
	_, err := s.conn.request(context.Background(), frame{Op: opClose})
	s.finish()
	s.conn.mu.Lock()
	if s.conn.session == s {
		s.conn.session = nil
	}
	s.conn.mu.Unlock()
	if err != nil && err != broker.ErrClosed {
		return fmt.Errorf("closing session: %w", err)
	}
	return nil
}
