package dashboard

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/theirongolddev/qview/internal/broker"
	"github.com/theirongolddev/qview/internal/config"
	"github.com/theirongolddev/qview/internal/console"
	"github.com/theirongolddev/qview/internal/headertree"
	"github.com/theirongolddev/qview/internal/queuetable"
	"github.com/theirongolddev/qview/internal/tui/icons"
	"github.com/theirongolddev/qview/internal/worker"
)

type fakeController struct {
	headers     []string
	removed     []broker.Map
	purged      []uint64
	bodies      []broker.Map
	connects    []string
	disconnects int
	paused      []bool
}

func (f *fakeController) GetQueueHeaders(queue string) error {
	f.headers = append(f.headers, queue)
	return nil
}

func (f *fakeController) RemoveMessage(queue string, args broker.Map) error {
	f.removed = append(f.removed, args)
	return nil
}

func (f *fakeController) Purge(queue string, addr broker.DataAddr, count uint64) error {
	f.purged = append(f.purged, count)
	return nil
}

func (f *fakeController) FetchBody(args broker.Map, contentType string) error {
	f.bodies = append(f.bodies, args)
	return nil
}

func (f *fakeController) ConnectURL(url, connOpts, sessOpts string) error {
	f.connects = append(f.connects, url)
	return nil
}

func (f *fakeController) Disconnect() error {
	f.disconnects++
	return nil
}

func (f *fakeController) PauseRefreshes(paused bool) error {
	f.paused = append(f.paused, paused)
	return nil
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.UI.Theme = "plain"
	return cfg
}

func newModel(t *testing.T, width int) (Model, *fakeController, *worker.Mailbox) {
	t.Helper()
	f := &fakeController{}
	c := console.New(f, queuetable.New(nil, false), headertree.New(headertree.DefaultClassification()), nil)
	mb := worker.NewMailbox()
	m := New(Options{Controller: f, Mailbox: mb, Console: c, Config: testConfig()})
	m = step(t, m, tea.WindowSizeMsg{Width: width, Height: 40})
	return m, f, mb
}

func step(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	out, ok := next.(Model)
	if !ok {
		t.Fatalf("Update() returned %T, want Model", next)
	}
	return out
}

func feed(t *testing.T, m Model, msgs ...worker.Message) Model {
	t.Helper()
	for _, msg := range msgs {
		m = step(t, m, workerMsg{msg: msg})
	}
	return m
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
}

func press(t *testing.T, m Model, keys ...string) Model {
	t.Helper()
	for _, k := range keys {
		m = step(t, m, keyMsg(k))
	}
	return m
}

func queueObj(name string) broker.Data {
	return broker.Data{
		Addr:       broker.DataAddr{Agent: "a", Name: name, Class: broker.ClassQueue},
		Properties: broker.Map{"name": name, "msgDepth": uint64(2)},
	}
}

func connectedWith(t *testing.T, m Model, queues ...string) Model {
	t.Helper()
	msgs := []worker.Message{
		worker.StatusMsg{Text: "Connected to localhost", State: worker.Connected},
		worker.ConnectedMsg{Connected: true},
	}
	for _, q := range queues {
		msgs = append(msgs, worker.ObjectMsg{Object: queueObj(q), Epoch: 1})
	}
	msgs = append(msgs, worker.BatchCompleteMsg{Epoch: 1})
	return feed(t, m, msgs...)
}

func withHeaders(t *testing.T, m Model, queue string, ids ...uint64) Model {
	t.Helper()
	msgs := []worker.Message{worker.HeaderIDsMsg{Queue: queue, Epoch: 1, IDs: ids}}
	for _, id := range ids {
		msgs = append(msgs, worker.HeadersMsg{
			Queue: queue,
			ID:    id,
			Epoch: 1,
			Header: broker.Map{
				"MessageId":   "m" + broker.FormatValue(id),
				"ContentType": "text/plain",
				"Priority":    uint64(4),
			},
			Args: broker.Map{"name": queue, "id": id},
		})
	}
	return feed(t, m, msgs...)
}

func TestWorkerMessagesFillTable(t *testing.T) {
	t.Parallel()
	m, f, _ := newModel(t, 140)
	m = connectedWith(t, m, "orders", "billing")

	if got := m.console.SelectedQueue(); got != "orders" {
		t.Errorf("SelectedQueue() = %q, want orders", got)
	}
	if len(f.headers) != 1 || f.headers[0] != "orders" {
		t.Errorf("header fetches = %v, want [orders]", f.headers)
	}
	view := m.View()
	for _, want := range []string{"orders", "billing", "Connected to localhost"} {
		if !strings.Contains(view, want) {
			t.Errorf("View() missing %q", want)
		}
	}
}

func TestQueueNavigationSelects(t *testing.T) {
	t.Parallel()
	m, f, _ := newModel(t, 140)
	m = connectedWith(t, m, "orders", "billing")

	m = press(t, m, "down")
	if got := m.console.SelectedQueue(); got != "billing" {
		t.Errorf("after down SelectedQueue() = %q, want billing", got)
	}
	m = press(t, m, "down")
	if got := m.console.SelectedQueue(); got != "billing" {
		t.Errorf("down at the end moved selection to %q", got)
	}
	m = press(t, m, "k")
	if got := m.console.SelectedQueue(); got != "orders" {
		t.Errorf("after k SelectedQueue() = %q, want orders", got)
	}
	want := []string{"orders", "billing", "orders"}
	if strings.Join(f.headers, ",") != strings.Join(want, ",") {
		t.Errorf("header fetches = %v, want %v", f.headers, want)
	}
}

func TestHeaderTreeNavigation(t *testing.T) {
	t.Parallel()
	m, f, _ := newModel(t, 140)
	m = connectedWith(t, m, "orders")
	m = withHeaders(t, m, "orders", 1, 2)

	if got := m.console.Tree.Len(); got != 2 {
		t.Fatalf("Tree.Len() = %d, want 2", got)
	}
	if !strings.Contains(m.View(), "MessageId=m1") {
		t.Errorf("View() missing first summary:\n%s", m.View())
	}

	m = press(t, m, "tab", "enter")
	lines := m.console.Tree.Lines()
	if len(lines) != 4 {
		t.Fatalf("expanded tree has %d lines, want 4", len(lines))
	}
	if lines[2].Kind != headertree.Body {
		t.Fatalf("line 2 kind = %v, want body", lines[2].Kind)
	}

	m = press(t, m, "down", "down")
	if m.treePos != 2 {
		t.Errorf("treePos = %d, want 2", m.treePos)
	}
	if len(f.bodies) != 1 {
		t.Fatalf("body fetches = %d, want 1", len(f.bodies))
	}

	m = feed(t, m, worker.BodyMsg{Queue: "orders", ID: 1, Args: f.bodies[0], Text: "hello body"})
	m = press(t, m, "enter")
	if !strings.Contains(m.View(), "hello body") {
		t.Errorf("View() missing fetched body:\n%s", m.View())
	}

	m = press(t, m, "h")
	if m.console.Tree.IsExpanded(lines[2].Index) {
		t.Error("h did not collapse the body node")
	}
	m = press(t, m, "h")
	if m.treePos != 0 {
		t.Errorf("h on a folded node moved to %d, want parent at 0", m.treePos)
	}
}

func TestCursorFollowsNodeAcrossMerges(t *testing.T) {
	t.Parallel()
	m, _, _ := newModel(t, 140)
	m = connectedWith(t, m, "orders")
	m = withHeaders(t, m, "orders", 1, 2, 3)
	m = press(t, m, "tab", "down", "down")
	want := m.treeCursor.ID

	// Message 1 is gone after the next fetch.
	m = feed(t, m, worker.HeaderIDsMsg{Queue: "orders", Epoch: 2, IDs: []uint64{2, 3}})
	m = feed(t, m,
		worker.HeadersMsg{Queue: "orders", ID: 2, Epoch: 2, Header: broker.Map{"MessageId": "m2"}, Args: broker.Map{"name": "orders", "id": uint64(2)}},
		worker.HeadersMsg{Queue: "orders", ID: 3, Epoch: 2, Header: broker.Map{"MessageId": "m3"}, Args: broker.Map{"name": "orders", "id": uint64(3)}},
	)
	if m.treeCursor.ID != want {
		t.Errorf("cursor moved to node %d, want %d", m.treeCursor.ID, want)
	}
	if m.treePos != 1 {
		t.Errorf("treePos = %d, want 1", m.treePos)
	}
}

func TestRemoveNeedsConfirmation(t *testing.T) {
	t.Parallel()
	m, f, _ := newModel(t, 140)
	m = connectedWith(t, m, "orders")
	m = withHeaders(t, m, "orders", 1)
	m = press(t, m, "tab", "d")

	if !strings.Contains(m.View(), "Remove message 1 from orders?") {
		t.Errorf("View() missing confirmation prompt:\n%s", m.View())
	}
	m = press(t, m, "n")
	if len(f.removed) != 0 {
		t.Errorf("removed without confirmation: %v", f.removed)
	}
	if m.notice != "cancelled" {
		t.Errorf("notice = %q, want cancelled", m.notice)
	}

	press(t, m, "d", "y")
	if len(f.removed) != 1 || f.removed[0].String("id") != "1" {
		t.Errorf("removed = %v, want message 1", f.removed)
	}
}

func TestPurgeKeys(t *testing.T) {
	t.Parallel()
	m, f, _ := newModel(t, 140)

	m = press(t, m, "p")
	if m.confirm != nil || m.notice != "no queue selected" {
		t.Errorf("purge without a queue: confirm=%v notice=%q", m.confirm, m.notice)
	}

	m = connectedWith(t, m, "orders")
	m = press(t, m, "p", "y", "o", "y")
	if len(f.purged) != 2 || f.purged[0] != 0 || f.purged[1] != 1 {
		t.Errorf("purged = %v, want [0 1]", f.purged)
	}
}

func TestPauseToggle(t *testing.T) {
	t.Parallel()
	m, f, _ := newModel(t, 140)
	m = press(t, m, "P")
	if !strings.Contains(m.View(), "[paused]") {
		t.Error("View() missing paused badge")
	}
	press(t, m, "P")
	if len(f.paused) != 2 || !f.paused[0] || f.paused[1] {
		t.Errorf("PauseRefreshes calls = %v, want [true false]", f.paused)
	}
}

func TestFilterMovesSelection(t *testing.T) {
	t.Parallel()
	m, _, _ := newModel(t, 140)
	m = connectedWith(t, m, "orders", "billing", "BILLING.dlq")

	m = press(t, m, "/", "b", "i", "l", "enter")
	if m.filtering {
		t.Error("enter did not leave filter mode")
	}
	if got := len(m.visibleQueues()); got != 2 {
		t.Errorf("visible queues = %d, want 2", got)
	}
	if got := m.console.SelectedQueue(); got != "billing" {
		t.Errorf("SelectedQueue() = %q, want billing", got)
	}
	if strings.Contains(m.View(), "orders") {
		t.Error("filtered queue still rendered")
	}

	m = press(t, m, "/", "esc")
	if got := len(m.visibleQueues()); got != 3 {
		t.Errorf("esc did not clear the filter: %d visible", got)
	}
}

func TestSystemToggle(t *testing.T) {
	t.Parallel()
	m, _, _ := newModel(t, 140)
	m = press(t, m, "s")
	if !m.console.Table.SystemShown() {
		t.Error("s did not show system queues")
	}
	m = press(t, m, "s")
	if m.console.Table.SystemShown() {
		t.Error("second s did not hide system queues")
	}
}

func TestConnectKey(t *testing.T) {
	t.Parallel()
	m, f, _ := newModel(t, 140)

	next, cmd := m.Update(keyMsg("c"))
	if cmd == nil {
		t.Fatal("c while disconnected returned no command")
	}
	batch, ok := cmd().(tea.BatchMsg)
	if !ok {
		t.Fatalf("connect command = %T, want a batch", cmd())
	}
	for _, c := range batch {
		if c == nil {
			continue
		}
		if msg, ok := c().(errMsg); ok {
			t.Errorf("connect command returned %v", msg.err)
		}
	}
	if len(f.connects) != 1 || f.connects[0] != m.cfg.Broker.URL {
		t.Errorf("connects = %v, want [%s]", f.connects, m.cfg.Broker.URL)
	}

	m = next.(Model)
	if !m.spinner.Active || !strings.Contains(m.View(), "connecting to") {
		t.Errorf("no spinner while connecting:\n%s", m.View())
	}
	m = connectedWith(t, m, "orders")
	if m.spinner.Active {
		t.Error("spinner still running once connected")
	}
	press(t, m, "c")
	if f.disconnects != 1 {
		t.Errorf("disconnects = %d, want 1", f.disconnects)
	}
}

func TestDisconnectClearsView(t *testing.T) {
	t.Parallel()
	m, _, _ := newModel(t, 140)
	m = connectedWith(t, m, "orders")
	m = withHeaders(t, m, "orders", 1)
	m = feed(t, m, worker.ConnectedMsg{Connected: false})

	if m.treeCursor.Valid() {
		t.Error("tree cursor survived disconnect")
	}
	view := m.View()
	if !strings.Contains(view, "not connected") {
		t.Errorf("View() missing disconnected hint:\n%s", view)
	}
	if strings.Contains(view, "MessageId=m1") {
		t.Error("headers still rendered after disconnect")
	}
}

func TestConfigReloadApplied(t *testing.T) {
	t.Parallel()
	m, f, _ := newModel(t, 140)
	m = connectedWith(t, m, "orders")
	if !strings.Contains(m.View(), "Auto Delete") {
		t.Fatal("View() missing default column header")
	}

	cfg := testConfig()
	cfg.Queues.ShowSystem = true
	cfg.Queues.Columns = []config.ColumnConfig{{Name: "name", Header: "Queue"}}
	m = step(t, m, ConfigReloadedMsg{Config: cfg})

	if !m.console.Table.SystemShown() {
		t.Error("reload did not show system queues")
	}
	if got := len(m.console.Table.Columns()); got != 1 {
		t.Errorf("columns = %d, want 1", got)
	}
	if strings.Contains(m.View(), "Auto Delete") {
		t.Error("View() still shows a dropped column")
	}
	// Reclassification refetches the selected queue.
	if got := f.headers[len(f.headers)-1]; got != "orders" || len(f.headers) != 2 {
		t.Errorf("header fetches = %v, want a refetch of orders", f.headers)
	}
}

func TestErrorShownAndCleared(t *testing.T) {
	t.Parallel()
	m, _, _ := newModel(t, 140)
	m = feed(t, m, worker.ErrorMsg{Text: "queue vanished"})
	if !strings.Contains(m.View(), "Error: queue vanished") {
		t.Errorf("View() missing error:\n%s", m.View())
	}
	m = press(t, m, "esc")
	if strings.Contains(m.View(), "queue vanished") {
		t.Error("esc did not clear the error")
	}
}

func TestLayoutTiers(t *testing.T) {
	t.Parallel()
	for _, width := range []int{60, 140, 220} {
		m, _, _ := newModel(t, width)
		m = connectedWith(t, m, "orders")
		m = withHeaders(t, m, "orders", 1)
		view := m.View()
		for _, want := range []string{"Queues", "Messages on orders (1)"} {
			if !strings.Contains(view, want) {
				t.Errorf("width %d: View() missing %q", width, want)
			}
		}
	}
}

func TestMailboxDelivery(t *testing.T) {
	t.Parallel()
	m, _, mb := newModel(t, 140)

	mb.Post(worker.StatusMsg{Text: "Connecting", State: worker.Connecting})
	mb.Post(worker.ErrorMsg{Text: "late"})
	msg := m.waitForWorker()()
	if _, ok := msg.(workerMsg); !ok {
		t.Fatalf("waitForWorker() = %T, want workerMsg", msg)
	}
	m = step(t, m, msg)
	if got := m.console.Status(); got != "Connecting" {
		t.Errorf("Status() = %q, want Connecting", got)
	}
	// The rest of the mailbox is drained in the same update.
	if got := m.console.LastError(); got != "late" {
		t.Errorf("LastError() = %q, want late", got)
	}

	mb.Close()
	if msg := m.waitForWorker()(); msg != (mailboxClosedMsg{}) {
		t.Errorf("waitForWorker() after Close = %T, want mailboxClosedMsg", msg)
	}
}

func TestQuit(t *testing.T) {
	t.Parallel()
	m, _, _ := newModel(t, 140)
	next, cmd := m.Update(keyMsg("q"))
	if cmd == nil || !next.(Model).Quitting() {
		t.Error("q did not quit")
	}
	if next.View() != "" {
		t.Error("View() after quit not empty")
	}
}

func TestRefreshAge(t *testing.T) {
	t.Parallel()
	m, _, _ := newModel(t, 160)
	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return clock }

	if strings.Contains(m.View(), "updated") {
		t.Error("refresh age shown before any listing")
	}
	m = connectedWith(t, m, "orders")
	if !strings.Contains(m.View(), "updated just now") {
		t.Errorf("View() missing fresh listing age:\n%s", m.View())
	}

	clock = clock.Add(1500 * time.Millisecond)
	m = step(t, m, clockTickMsg(clock))
	if !strings.Contains(m.View(), "updated 1s ago") {
		t.Errorf("View() missing listing age:\n%s", m.View())
	}

	clock = clock.Add(time.Minute)
	if !strings.Contains(m.View(), "stale 1m") {
		t.Errorf("View() missing stale marker:\n%s", m.View())
	}

	m = press(t, m, "P")
	if strings.Contains(m.View(), "stale") {
		t.Error("paused listing reported stale")
	}
}

func TestChangedLinesMarked(t *testing.T) {
	t.Parallel()
	m, _, _ := newModel(t, 160)
	m.icons = icons.ASCII
	m = connectedWith(t, m, "orders")
	m = withHeaders(t, m, "orders", 1)

	m = feed(t, m,
		worker.HeaderIDsMsg{Queue: "orders", Epoch: 3, IDs: []uint64{1}},
		worker.HeadersMsg{
			Queue:  "orders",
			ID:     1,
			Epoch:  3,
			Header: broker.Map{"MessageId": "m1", "ContentType": "application/json", "Priority": uint64(4)},
			Args:   broker.Map{"name": "orders", "id": uint64(1)},
		},
	)
	if !strings.Contains(m.View(), ">*ContentType=application/json, MessageId=m1") {
		t.Errorf("changed summary not marked:\n%s", m.View())
	}
}
