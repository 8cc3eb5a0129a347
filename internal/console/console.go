// Package console applies worker messages to the queue table and the header
// tree and turns view actions into worker requests. It runs on the consumer
// side of the mailbox; nothing in it is safe for concurrent use.
package console

import (
	"fmt"
	"log/slog"

	"github.com/theirongolddev/qview/internal/broker"
	"github.com/theirongolddev/qview/internal/headertree"
	"github.com/theirongolddev/qview/internal/itemmodel"
	"github.com/theirongolddev/qview/internal/logging"
	"github.com/theirongolddev/qview/internal/queuetable"
	"github.com/theirongolddev/qview/internal/worker"
)

// Requester is the part of the worker the console drives.
type Requester interface {
	GetQueueHeaders(queue string) error
	RemoveMessage(queue string, args broker.Map) error
	Purge(queue string, addr broker.DataAddr, count uint64) error
	FetchBody(args broker.Map, contentType string) error
}

// Console is the consumer-side state of one qview window.
type Console struct {
	Table *queuetable.Table
	Tree  *headertree.Store

	req    Requester
	logger *slog.Logger

	status    string
	state     worker.State
	connected bool
	lastError string

	selected string
	listings uint64

	// Header fetch bookkeeping for the selected queue.
	headerEpoch uint64
	pending     map[uint64]struct{}
	inFlight    bool

	// Outstanding body fetches by message id.
	bodies map[string]itemmodel.Index
}

// New returns a console over table and tree, sending requests to req.
func New(req Requester, table *queuetable.Table, tree *headertree.Store, logger *slog.Logger) *Console {
	c := &Console{
		Table:   table,
		Tree:    tree,
		req:     req,
		logger:  logging.OrDiscard(logger),
		status:  "Closed",
		pending: make(map[uint64]struct{}),
		bodies:  make(map[string]itemmodel.Index),
	}
	tree.OnBodyRequested = c.requestBody
	return c
}

// Status returns the latest connection status line.
func (c *Console) Status() string { return c.status }

// State returns the latest reported worker state.
func (c *Console) State() worker.State { return c.state }

// Connected reports whether a broker session is open.
func (c *Console) Connected() bool { return c.connected }

// LastError returns the most recent error text, or "".
func (c *Console) LastError() string { return c.lastError }

// ClearError forgets the last error.
func (c *Console) ClearError() { c.lastError = "" }

// Listings counts the complete queue listings applied so far.
func (c *Console) Listings() uint64 { return c.listings }

// SelectedQueue returns the queue whose headers are shown, or "".
func (c *Console) SelectedQueue() string { return c.selected }

// Apply folds one worker message into the console state.
func (c *Console) Apply(msg worker.Message) {
	switch m := msg.(type) {
	case worker.StatusMsg:
		c.status = m.Text
		c.state = m.State
	case worker.ConnectedMsg:
		c.connectedChanged(m.Connected)
	case worker.ErrorMsg:
		c.lastError = m.Text
	case worker.ObjectMsg:
		c.Table.AddOrUpdate(m.Object, m.Epoch)
	case worker.BatchCompleteMsg:
		c.batchComplete(m.Epoch)
	case worker.HeaderIDsMsg:
		c.headerIDs(m)
	case worker.HeadersMsg:
		c.headers(m)
	case worker.MessageRemovedMsg:
		c.messageRemoved(m)
	case worker.PurgedMsg:
		c.purged(m)
	case worker.BodyMsg:
		c.body(m)
	default:
		c.logger.Debug("unhandled worker message", slog.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (c *Console) connectedChanged(connected bool) {
	c.connected = connected
	c.resetHeaders()
	if !connected {
		c.Table.Clear()
		c.selected = ""
	}
}

func (c *Console) resetHeaders() {
	c.Tree.Clear()
	c.pending = make(map[uint64]struct{})
	c.bodies = make(map[string]itemmodel.Index)
	c.inFlight = false
}

func (c *Console) batchComplete(epoch uint64) {
	c.Table.Refresh(epoch)
	c.listings++

	if c.selected != "" {
		if _, ok := c.Table.Find(c.selected); !ok {
			c.logger.Debug("selected queue went away", slog.String("queue", c.selected))
			c.selected = ""
			c.resetHeaders()
		}
	}
	if c.selected == "" {
		if c.Table.Len() > 0 {
			c.SelectRow(0)
		}
		return
	}
	if !c.inFlight {
		c.fetchHeaders()
	}
}

// SelectRow selects the queue at table row i.
func (c *Console) SelectRow(i int) {
	row, ok := c.Table.Row(i)
	if !ok {
		return
	}
	c.SelectQueue(row.Name)
}

// SelectQueue shows the headers of queue. Selecting a different queue clears
// the tree first.
func (c *Console) SelectQueue(queue string) {
	if queue == c.selected {
		return
	}
	c.selected = queue
	c.resetHeaders()
	if queue != "" {
		c.fetchHeaders()
	}
}

// SetClassification switches how headers are split into summary, detail
// and body attributes. The tree is rebuilt from a fresh fetch.
func (c *Console) SetClassification(class headertree.Classification) {
	c.Tree.SetClassification(class)
	c.resetHeaders()
	if c.selected != "" {
		c.fetchHeaders()
	}
}

// Refresh refetches the headers of the selected queue.
func (c *Console) Refresh() {
	if c.selected != "" {
		c.fetchHeaders()
	}
}

func (c *Console) fetchHeaders() {
	if err := c.req.GetQueueHeaders(c.selected); err != nil {
		c.lastError = err.Error()
		return
	}
	c.inFlight = true
}

func (c *Console) headerIDs(m worker.HeaderIDsMsg) {
	if m.Queue != c.selected {
		return
	}
	if m.Err != nil {
		// The next complete queue listing retries.
		c.inFlight = false
		return
	}
	if m.Epoch < c.headerEpoch {
		return
	}
	c.headerEpoch = m.Epoch
	c.pending = make(map[uint64]struct{}, len(m.IDs))
	for _, id := range m.IDs {
		c.pending[id] = struct{}{}
	}
	if len(c.pending) == 0 {
		c.finishHeaders()
	}
}

func (c *Console) headers(m worker.HeadersMsg) {
	if m.Queue != c.selected || m.Epoch != c.headerEpoch {
		return
	}
	if _, ok := c.pending[m.ID]; !ok {
		return
	}
	if m.Err != nil {
		c.logger.Debug("header fetch failed", slog.Uint64("id", m.ID), logging.Err(m.Err))
	} else {
		c.Tree.AddHeader(m.Args, m.Header, m.Epoch)
	}
	delete(c.pending, m.ID)
	if len(c.pending) == 0 {
		c.finishHeaders()
	}
}

// finishHeaders drops every message the completed fetch did not report.
func (c *Console) finishHeaders() {
	c.Tree.Expire(c.headerEpoch)
	c.inFlight = false
}

// RemoveMessage removes the message under index in the header tree.
func (c *Console) RemoveMessage(index itemmodel.Index) error {
	args := c.Tree.Args(index)
	if args == nil {
		return fmt.Errorf("no message at %v", index)
	}
	queue := args.String("name")
	if queue == "" {
		queue = c.selected
	}
	return c.req.RemoveMessage(queue, args)
}

func (c *Console) messageRemoved(m worker.MessageRemovedMsg) {
	if m.Err != nil {
		c.lastError = fmt.Sprintf("remove message: %v", m.Err)
		return
	}
	if m.Queue != c.selected {
		return
	}
	c.resetHeaders()
	c.fetchHeaders()
}

// PurgeSelected removes count messages from the selected queue; zero
// removes all of them.
func (c *Console) PurgeSelected(count uint64) error {
	if c.selected == "" {
		return fmt.Errorf("no queue selected")
	}
	var addr broker.DataAddr
	if i, ok := c.Table.Find(c.selected); ok {
		row, _ := c.Table.Row(i)
		addr = row.Addr
	}
	return c.req.Purge(c.selected, addr, count)
}

func (c *Console) purged(m worker.PurgedMsg) {
	if m.Err != nil {
		return // the worker already posted an ErrorMsg
	}
	if m.Queue == c.selected {
		c.fetchHeaders()
	}
}

func (c *Console) requestBody(r headertree.BodyRequest) {
	if err := c.req.FetchBody(r.Args, r.ContentType); err != nil {
		c.lastError = err.Error()
		c.Tree.ResetBody(r.Index)
		return
	}
	c.bodies[r.MessageID] = r.Index
}

func (c *Console) body(m worker.BodyMsg) {
	key := broker.FormatValue(m.Args["id"])
	index, ok := c.bodies[key]
	if !ok {
		return
	}
	delete(c.bodies, key)
	if m.Err != nil {
		c.lastError = fmt.Sprintf("fetch body: %v", m.Err)
		c.Tree.ResetBody(index)
		return
	}
	c.Tree.SetBodyText(index, m.Text)
}

// Drain applies every message already waiting in mb and reports how many
// there were.
func (c *Console) Drain(mb *worker.Mailbox) int {
	n := 0
	for {
		msg, ok := mb.TryReceive()
		if !ok {
			return n
		}
		c.Apply(msg)
		n++
	}
}
