package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/theirongolddev/qview/internal/broker"
	"github.com/theirongolddev/qview/internal/broker/sim"
	"github.com/theirongolddev/qview/internal/broker/wire"
	"github.com/theirongolddev/qview/internal/config"
	"github.com/theirongolddev/qview/internal/output"
	"github.com/theirongolddev/qview/internal/queuetable"
	"github.com/theirongolddev/qview/internal/worker"
)

// simScheme selects the in-process demo broker instead of a network one.
const simScheme = "sim:"

// connectTimeout bounds how long one-shot commands wait for the broker.
var connectTimeout = 15 * time.Second

// dialerFor picks the transport for url.
func dialerFor(url string) broker.Dialer {
	if strings.HasPrefix(url, simScheme) {
		b := sim.New()
		sim.Seed(b)
		return b
	}
	return wire.NewDialer(logger)
}

// session is a connected worker for the one-shot commands. It consumes the
// mailbox itself; nothing else may read it.
type session struct {
	w     *worker.Worker
	url   string
	table *queuetable.Table
}

// openSession starts a worker, connects it and waits for the first complete
// queue listing.
func openSession(ctx context.Context, c *config.Config, showSystem bool) (*session, error) {
	interval, err := c.RefreshInterval()
	if err != nil {
		return nil, output.ConfigInvalidError(err)
	}
	url := c.Broker.URL
	w := worker.New(worker.Options{
		Dialer:       dialerFor(url),
		PollInterval: interval,
		Logger:       logger,
	})
	w.Start(ctx)

	if err := w.ConnectURL(url, c.Broker.ConnectionOptions, c.Broker.SessionOptions); err != nil {
		w.Stop()
		return nil, output.ConfigInvalidError(err)
	}
	s := &session{w: w, url: url, table: queuetable.New(c.Columns(), showSystem)}

	waitCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := s.waitListing(waitCtx); err != nil {
		w.Stop()
		return nil, output.BrokerUnreachableError(url, err)
	}
	return s, nil
}

func (s *session) close() {
	_ = s.w.Disconnect()
	s.w.Stop()
}

// next returns the next worker message, failing on context expiry.
func (s *session) next(ctx context.Context) (worker.Message, error) {
	msg, err := s.w.Mailbox().Receive(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		return nil, errors.New("timed out waiting for the broker")
	}
	return msg, err
}

// waitListing folds queue objects into the table until a batch completes.
// A connection attempt that fails before then is an error. The worker reports
// Disconnected once at startup, before it has seen the connect request.
func (s *session) waitListing(ctx context.Context) error {
	attempted, connected := false, false
	for {
		msg, err := s.next(ctx)
		if err != nil {
			return err
		}
		switch m := msg.(type) {
		case worker.StatusMsg:
			switch {
			case m.State == worker.Connecting:
				attempted = true
			case attempted && !connected && m.State == worker.Disconnected:
				return errors.New(m.Text)
			}
		case worker.ConnectedMsg:
			if !m.Connected {
				return errors.New("broker session closed")
			}
			connected = true
		case worker.ErrorMsg:
			logger.Debug("broker error while listing", "error", m.Text)
		case worker.ObjectMsg:
			s.table.AddOrUpdate(m.Object, m.Epoch)
		case worker.BatchCompleteMsg:
			s.table.Refresh(m.Epoch)
			return nil
		}
	}
}

// queue returns the row for name.
func (s *session) queue(name string) (queuetable.Row, error) {
	i, ok := s.table.Find(name)
	if !ok {
		return queuetable.Row{}, output.QueueNotFoundError(name)
	}
	row, _ := s.table.Row(i)
	return row, nil
}

// headers fetches every message header on queue, in id order.
func (s *session) headers(ctx context.Context, queue string) ([]worker.HeadersMsg, error) {
	if err := s.w.GetQueueHeaders(queue); err != nil {
		return nil, err
	}
	var (
		epoch   uint64
		pending map[uint64]struct{}
		byID    = make(map[uint64]worker.HeadersMsg)
		order   []uint64
	)
	for pending == nil || len(pending) > 0 {
		msg, err := s.next(ctx)
		if err != nil {
			return nil, err
		}
		switch m := msg.(type) {
		case worker.ErrorMsg:
			logger.Debug("broker error while fetching headers", "error", m.Text)
		case worker.ConnectedMsg:
			if !m.Connected {
				return nil, errors.New("broker session closed")
			}
		case worker.HeaderIDsMsg:
			if m.Queue != queue || pending != nil {
				continue
			}
			if m.Err != nil {
				return nil, m.Err
			}
			epoch = m.Epoch
			order = m.IDs
			pending = make(map[uint64]struct{}, len(m.IDs))
			for _, id := range m.IDs {
				pending[id] = struct{}{}
			}
		case worker.HeadersMsg:
			if m.Queue != queue || m.Epoch != epoch {
				continue
			}
			if _, ok := pending[m.ID]; !ok {
				continue
			}
			delete(pending, m.ID)
			byID[m.ID] = m
		}
	}

	out := make([]worker.HeadersMsg, 0, len(order))
	for _, id := range order {
		out = append(out, byID[id])
	}
	return out, nil
}

// purge removes count messages from queue and waits for the result.
func (s *session) purge(ctx context.Context, row queuetable.Row, count uint64) error {
	if err := s.w.Purge(row.Name, row.Addr, count); err != nil {
		return err
	}
	for {
		msg, err := s.next(ctx)
		if err != nil {
			return err
		}
		if m, ok := msg.(worker.PurgedMsg); ok && m.Queue == row.Name {
			if m.Err != nil {
				return fmt.Errorf("purge %s: %w", row.Name, m.Err)
			}
			return nil
		}
	}
}
