package wire

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/theirongolddev/qview/internal/broker"
	"github.com/theirongolddev/qview/internal/logging"
)

// Server exposes a broker.Dialer to websocket consoles. Each websocket
// connection dials the backend once and may hold one session at a time.
type Server struct {
	backend  broker.Dialer
	logger   *slog.Logger
	upgrader websocket.Upgrader
	timeout  time.Duration
}

// NewServer returns a Server relaying to backend.
func NewServer(backend broker.Dialer, logger *slog.Logger) *Server {
	return &Server{
		backend: backend,
		logger:  logging.OrDiscard(logger),
		upgrader: websocket.Upgrader{
			HandshakeTimeout: 5 * time.Second,
			CheckOrigin:      func(*http.Request) bool { return true },
		},
		timeout: 5 * time.Second,
	}
}

// ServeHTTP upgrades the request and serves frames until the peer goes away.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", logging.Err(err))
		return
	}
	defer ws.Close()

	hello, err := readFrame(ws, s.timeout)
	if err != nil || hello.Kind != kindHello {
		s.logger.Warn("bad handshake", slog.String("remote", r.RemoteAddr))
		return
	}
	logger := s.logger.With(slog.String("console", hello.Console), slog.String("remote", r.RemoteAddr))

	p := &peer{ws: ws, timeout: s.timeout, logger: logger}

	backend, err := s.backend.Dial(r.Context(), hello.URL, hello.Options)
	if err != nil {
		logger.Warn("backend dial failed", logging.Err(err))
		p.write(frame{Kind: kindReply, Error: err.Error()})
		return
	}
	defer backend.Close()

	if err := p.write(frame{Kind: kindWelcome}); err != nil {
		return
	}
	logger.Info("console connected")
	defer logger.Info("console disconnected")

	p.serve(r.Context(), backend)
}

type peer struct {
	ws      *websocket.Conn
	timeout time.Duration
	logger  *slog.Logger

	writeMu sync.Mutex
	session broker.Session
	forward sync.WaitGroup
}

func (p *peer) write(f frame) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	p.ws.SetWriteDeadline(time.Now().Add(p.timeout))
	return p.ws.WriteJSON(f)
}

func (p *peer) serve(ctx context.Context, backend broker.Connection) {
	defer func() {
		if p.session != nil {
			p.session.Close()
		}
		p.forward.Wait()
	}()
	for {
		f, err := readFrame(p.ws, 0)
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				p.logger.Debug("read ended", logging.Err(err))
			}
			return
		}
		if f.Kind != kindRequest {
			continue
		}
		reply := p.handle(ctx, backend, f)
		reply.Kind = kindReply
		reply.ID = f.ID
		if err := p.write(reply); err != nil {
			return
		}
	}
}

func (p *peer) handle(ctx context.Context, backend broker.Connection, f frame) frame {
	if f.Op == opOpenSession {
		if p.session != nil {
			return errorFrame(errors.New("session already open"))
		}
		sess, err := backend.OpenSession(ctx, f.Options)
		if err != nil {
			return errorFrame(err)
		}
		p.session = sess
		p.forward.Add(1)
		go p.forwardEvents(sess)
		return frame{Agent: sess.BrokerAgent()}
	}

	sess := p.session
	if sess == nil {
		return errorFrame(broker.ErrNotConnected)
	}

	switch f.Op {
	case opClose:
		p.session = nil
		return errorFrame(sess.Close())
	case opSetFilter:
		return errorFrame(sess.SetAgentFilter(f.Filter))
	case opQuery:
		if f.Query == nil {
			return errorFrame(errors.New("query missing"))
		}
		if f.Async {
			cor, err := sess.QueryAsync(f.Agent, *f.Query)
			if err != nil {
				return errorFrame(err)
			}
			return frame{Correlator: cor}
		}
		data, err := sess.Query(ctx, f.Agent, *f.Query)
		if err != nil {
			return errorFrame(err)
		}
		return frame{Data: data}
	case opCall:
		if f.Addr == nil {
			return errorFrame(errors.New("object address missing"))
		}
		if f.Async {
			cor, err := sess.CallMethodAsync(*f.Addr, f.Method, f.Args)
			if err != nil {
				return errorFrame(err)
			}
			return frame{Correlator: cor}
		}
		out, err := sess.CallMethod(ctx, *f.Addr, f.Method, f.Args)
		if err != nil {
			return errorFrame(err)
		}
		return frame{Result: out}
	default:
		return errorFrame(fmt.Errorf("unknown op %q", f.Op))
	}
}

func (p *peer) forwardEvents(sess broker.Session) {
	defer p.forward.Done()
	for ev := range sess.Events() {
		if err := p.write(frame{Kind: kindEvent, Event: encodeEvent(ev)}); err != nil {
			p.logger.Debug("event write failed", logging.Err(err))
			return
		}
	}
}

func errorFrame(err error) frame {
	if err == nil {
		return frame{}
	}
	var fault *broker.Fault
	if errors.As(err, &fault) {
		return frame{Error: fault.Text, Fault: true}
	}
	return frame{Error: err.Error()}
}
