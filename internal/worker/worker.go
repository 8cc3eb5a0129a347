// Package worker owns the broker session. A single goroutine connects,
// polls for events, issues every remote call, and posts results to a
// Mailbox; nothing else touches the session.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/theirongolddev/qview/internal/broker"
	"github.com/theirongolddev/qview/internal/command"
	"github.com/theirongolddev/qview/internal/correlator"
	"github.com/theirongolddev/qview/internal/logging"
)

// ErrTerminated is returned for requests made after the worker stopped.
var ErrTerminated = errors.New("worker terminated")

// DefaultPollInterval bounds how long the loop waits for an event.
const DefaultPollInterval = time.Second

// State is the connection state of the worker.
type State int32

const (
	Disconnected State = iota
	Connecting
	Connected
	Disconnecting
	Terminated
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Disconnecting:
		return "disconnecting"
	case Terminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Options configure a Worker.
type Options struct {
	Dialer       broker.Dialer
	PollInterval time.Duration
	Paused       bool
	Logger       *slog.Logger
}

// Worker serializes all interaction with one broker.
type Worker struct {
	dialer   broker.Dialer
	poll     time.Duration
	logger   *slog.Logger
	commands *command.Queue
	calls    *correlator.Registry
	mailbox  *Mailbox

	state  atomic.Int32
	paused atomic.Bool

	startOnce sync.Once
	cancel    context.CancelFunc
	done      chan struct{}

	// Owned by the loop goroutine.
	conn        broker.Connection
	sess        broker.Session
	url         string
	brokerObj   *broker.Data
	epoch       uint64
	queryEpochs map[uint32]uint64
	headerEpoch uint64
}

// New returns a worker in the Disconnected state. Call Start to run it.
func New(opts Options) *Worker {
	poll := opts.PollInterval
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	w := &Worker{
		dialer:      opts.Dialer,
		poll:        poll,
		logger:      logging.OrDiscard(opts.Logger).With(slog.String("component", "worker")),
		commands:    command.NewQueue(),
		calls:       correlator.New(),
		mailbox:     NewMailbox(),
		done:        make(chan struct{}),
		queryEpochs: make(map[uint32]uint64),
	}
	w.paused.Store(opts.Paused)
	return w
}

// Start launches the loop. Later calls do nothing.
func (w *Worker) Start(ctx context.Context) {
	w.startOnce.Do(func() {
		ctx, cancel := context.WithCancel(ctx)
		w.cancel = cancel
		go w.run(ctx)
	})
}

// Stop cancels the loop and waits for it to close the session and exit.
func (w *Worker) Stop() {
	w.startOnce.Do(func() {
		// Never started: nothing to close but the queues.
		w.terminate()
		close(w.done)
	})
	// Do returns only after Start's function has finished, so cancel is set.
	if w.cancel != nil {
		w.cancel()
	}
	<-w.done
}

// Done is closed once the loop has exited.
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

// Mailbox returns the channel results are posted to.
func (w *Worker) Mailbox() *Mailbox {
	return w.mailbox
}

// State returns the current connection state.
func (w *Worker) State() State {
	return State(w.state.Load())
}

// Paused reports whether periodic queue refreshes are suspended.
func (w *Worker) Paused() bool {
	return w.paused.Load()
}

// Outstanding returns the number of asynchronous calls awaiting a response.
func (w *Worker) Outstanding() int {
	return w.calls.Len()
}

func (w *Worker) run(ctx context.Context) {
	defer close(w.done)
	w.setState(Disconnected)
	w.status("Closed")

	for {
		if ctx.Err() != nil {
			w.terminate()
			return
		}
		if w.sess == nil {
			w.waitDisconnected(ctx)
		} else {
			w.waitConnected(ctx)
		}
		if ctx.Err() != nil {
			continue
		}
		if cmd, ok := w.commands.Pop(); ok {
			w.handle(ctx, cmd)
		}
	}
}

// waitDisconnected blocks until a command arrives, the poll interval
// passes, or ctx is cancelled.
func (w *Worker) waitDisconnected(ctx context.Context) {
	if w.commands.Len() > 0 {
		return
	}
	timer := time.NewTimer(w.poll)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-w.commands.Wake():
	case <-timer.C:
	}
}

// waitConnected dispatches at most one event, or re-polls the queue list
// when the interval passes without one.
func (w *Worker) waitConnected(ctx context.Context) {
	if w.commands.Len() > 0 {
		// Still give a ready event its turn before the command.
		select {
		case ev, ok := <-w.sess.Events():
			w.receive(ctx, ev, ok)
		default:
		}
		return
	}
	timer := time.NewTimer(w.poll)
	defer timer.Stop()
	select {
	case ev, ok := <-w.sess.Events():
		w.receive(ctx, ev, ok)
	case <-w.commands.Wake():
	case <-timer.C:
		if !w.paused.Load() {
			w.requestQueues()
		}
	case <-ctx.Done():
	}
}

func (w *Worker) receive(ctx context.Context, ev broker.Event, ok bool) {
	if !ok {
		w.sessionLost()
		return
	}
	w.dispatch(ctx, ev)
}

func (w *Worker) handle(ctx context.Context, cmd command.Command) {
	w.logger.Debug("command", slog.String("kind", cmd.Kind.String()))
	switch cmd.Kind {
	case command.Connect:
		if w.sess != nil {
			w.logger.Debug("already connected, ignoring connect", slog.String("url", cmd.URL))
			return
		}
		w.connect(ctx, cmd)
	case command.Disconnect:
		if w.sess == nil {
			return
		}
		w.disconnect()
	case command.Pause:
		w.paused.Store(cmd.Paused)
	case command.FetchHeaders:
		w.fetchHeaders(ctx, cmd)
	case command.RemoveMessage:
		w.removeMessage(cmd)
	case command.Purge:
		w.purge(ctx, cmd)
	case command.FetchBody:
		if cmd.Reply != nil {
			w.fetchBodySync(ctx, cmd)
		} else {
			w.fetchBody(cmd)
		}
	default:
		w.logger.Warn("unknown command", slog.Int("kind", int(cmd.Kind)))
	}
}

func (w *Worker) connect(ctx context.Context, cmd command.Command) {
	w.setState(Connecting)
	w.status("QMF connection opening...")

	conn, err := w.dialer.Dial(ctx, cmd.URL, cmd.ConnectionOptions)
	if err != nil {
		w.connectFailed(cmd.URL, err)
		return
	}

	w.status("QMF session opening...")
	sess, err := conn.OpenSession(ctx, cmd.SessionOptions)
	if err != nil {
		conn.Close()
		w.connectFailed(cmd.URL, err)
		return
	}
	if err := sess.SetAgentFilter(broker.AgentFilter); err != nil {
		w.logger.Debug("agent filter rejected", logging.Err(err))
	}

	w.conn = conn
	w.sess = sess
	w.url = cmd.URL
	w.setState(Connected)
	w.mailbox.Post(ConnectedMsg{Connected: true})
	w.status(fmt.Sprintf("Operational (URL: %s)", cmd.URL))
	w.logger.Info("connected", slog.String("url", cmd.URL))
}

func (w *Worker) connectFailed(url string, err error) {
	w.logger.Warn("connect failed", slog.String("url", url), logging.Err(err))
	w.setState(Disconnected)
	w.status("QMF Session Failed: " + err.Error())
}

func (w *Worker) disconnect() {
	w.setState(Disconnecting)
	w.status("QMF Session Closing...")
	if err := w.sess.Close(); err != nil {
		w.logger.Debug("session close", logging.Err(err))
	}
	w.status("Closing...")
	if err := w.conn.Close(); err != nil {
		w.logger.Debug("connection close", logging.Err(err))
	}
	w.reset()
	w.setState(Disconnected)
	w.status("Closed")
	w.mailbox.Post(ConnectedMsg{Connected: false})
	w.logger.Info("disconnected", slog.String("url", w.url))
}

// sessionLost handles the event stream ending without a Disconnect.
func (w *Worker) sessionLost() {
	w.logger.Warn("session lost", slog.String("url", w.url))
	w.mailbox.Post(ErrorMsg{Text: "broker session lost"})
	if err := w.conn.Close(); err != nil {
		w.logger.Debug("connection close", logging.Err(err))
	}
	w.reset()
	w.setState(Disconnected)
	w.status("Closed")
	w.mailbox.Post(ConnectedMsg{Connected: false})
}

func (w *Worker) reset() {
	w.sess = nil
	w.conn = nil
	w.brokerObj = nil
	clear(w.queryEpochs)
	if n := w.calls.Abandon(); n > 0 {
		w.logger.Debug("abandoned pending calls", slog.Int("count", n))
	}
}

func (w *Worker) terminate() {
	if w.sess != nil {
		w.sess.Close()
		w.conn.Close()
		w.reset()
	}
	for _, cmd := range w.commands.Close() {
		if cmd.Reply != nil {
			cmd.Reply <- command.BodyReply{Err: ErrTerminated}
		}
	}
	w.setState(Terminated)
	w.mailbox.Close()
	w.logger.Info("worker terminated")
}

func (w *Worker) setState(s State) {
	w.state.Store(int32(s))
}

func (w *Worker) status(text string) {
	w.mailbox.Post(StatusMsg{Text: text, State: w.State()})
}

// brokerObject returns the cached broker singleton.
func (w *Worker) brokerObject() (*broker.Data, error) {
	if w.sess == nil {
		return nil, broker.ErrNotConnected
	}
	if w.brokerObj == nil {
		return nil, broker.ErrAgentUnavailable
	}
	return w.brokerObj, nil
}
