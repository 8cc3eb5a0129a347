// Package dashboard is the interactive qview view: the queue table on one
// side, the header tree of the selected queue on the other.
package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/theirongolddev/qview/internal/config"
	"github.com/theirongolddev/qview/internal/console"
	"github.com/theirongolddev/qview/internal/itemmodel"
	"github.com/theirongolddev/qview/internal/logging"
	"github.com/theirongolddev/qview/internal/tui/components"
	"github.com/theirongolddev/qview/internal/tui/icons"
	"github.com/theirongolddev/qview/internal/tui/layout"
	"github.com/theirongolddev/qview/internal/tui/theme"
	"github.com/theirongolddev/qview/internal/worker"
)

// Controller is the worker surface the dashboard drives.
type Controller interface {
	console.Requester
	ConnectURL(url, connOpts, sessOpts string) error
	Disconnect() error
	PauseRefreshes(paused bool) error
}

// workerMsg wraps one message taken from the worker mailbox.
type workerMsg struct {
	msg worker.Message
}

// mailboxClosedMsg is sent once the worker has stopped posting.
type mailboxClosedMsg struct{}

// errMsg reports a request that could not be queued.
type errMsg struct {
	err error
}

// clockTickMsg re-renders the refresh age.
type clockTickMsg time.Time

// clockInterval is how often the refresh age is redrawn.
const clockInterval = time.Second

// ConfigReloadedMsg carries a configuration reloaded from disk.
type ConfigReloadedMsg struct {
	Config *config.Config
}

type focus int

const (
	focusQueues focus = iota
	focusHeaders
)

// confirmation is a destructive action waiting for a yes.
type confirmation struct {
	prompt string
	run    func() error
}

// Options configure a Model.
type Options struct {
	Controller Controller
	Mailbox    *worker.Mailbox
	Console    *console.Console
	Config     *config.Config
	Logger     *slog.Logger
	// Context bounds the mailbox wait; the program should quit before it
	// is cancelled.
	Context context.Context
}

// Model is the dashboard model
type Model struct {
	ctx     context.Context
	ctrl    Controller
	mailbox *worker.Mailbox
	console *console.Console
	cfg     *config.Config
	logger  *slog.Logger

	theme   theme.Theme
	styles  theme.Styles
	icons   icons.IconSet
	keys    KeyMap
	help    help.Model
	spinner components.Spinner

	filter    textinput.Model
	filtering bool

	width  int
	height int
	tier   layout.Tier
	focus  focus

	queueFirst int
	treeCursor itemmodel.Index
	treePos    int
	treeFirst  int

	// Time of the last complete queue listing, for the refresh age.
	listings    uint64
	lastRefresh time.Time
	interval    time.Duration
	now         func() time.Time

	paused   bool
	confirm  *confirmation
	notice   string
	err      error
	closed   bool
	quitting bool
}

// New creates a new dashboard model
func New(opts Options) Model {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	t := theme.FromName(cfg.UI.Theme)
	interval, err := cfg.RefreshInterval()
	if err != nil {
		interval = config.DefaultRefreshInterval
	}

	filter := textinput.New()
	filter.Prompt = "/"
	filter.Placeholder = "filter queues"
	filter.CharLimit = 128

	return Model{
		ctx:        ctx,
		ctrl:       opts.Controller,
		mailbox:    opts.Mailbox,
		console:    opts.Console,
		cfg:        cfg,
		logger:     logging.OrDiscard(opts.Logger),
		theme:      t,
		styles:     theme.NewStyles(t),
		icons:      icons.FromName(cfg.UI.Icons),
		keys:       DefaultKeyMap(),
		help:       help.New(),
		spinner:    components.NewSpinner(t.Primary),
		interval:   interval,
		now:        time.Now,
		filter:     filter,
		width:      80,
		height:     24,
		tier:       layout.TierForWidth(80),
		treeCursor: itemmodel.Root,
		paused:     cfg.Refresh.Paused,
	}
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.waitForWorker(), clockTick()}
	if m.cfg.Broker.ConnectOnStart {
		cmds = append(cmds, m.connect())
	}
	return tea.Batch(cmds...)
}

// waitForWorker blocks on the mailbox in a command goroutine; the console
// itself is only touched from Update.
func (m Model) waitForWorker() tea.Cmd {
	mb, ctx := m.mailbox, m.ctx
	return func() tea.Msg {
		msg, err := mb.Receive(ctx)
		if err != nil {
			return mailboxClosedMsg{}
		}
		return workerMsg{msg: msg}
	}
}

func clockTick() tea.Cmd {
	return tea.Tick(clockInterval, func(t time.Time) tea.Msg {
		return clockTickMsg(t)
	})
}

func (m Model) connect() tea.Cmd {
	ctrl, b := m.ctrl, m.cfg.Broker
	return func() tea.Msg {
		if err := ctrl.ConnectURL(b.URL, b.ConnectionOptions, b.SessionOptions); err != nil {
			return errMsg{err: err}
		}
		return nil
	}
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	next, cmd := m.update(msg)
	next.scroll()
	return next, cmd
}

func (m Model) update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.tier = layout.TierForWidth(msg.Width)
		m.help.Width = msg.Width
		return m, nil

	case workerMsg:
		m.console.Apply(msg.msg)
		m.console.Drain(m.mailbox)
		m.syncTreeCursor()
		if n := m.console.Listings(); n != m.listings {
			m.listings = n
			m.lastRefresh = m.now()
		}
		return m, tea.Batch(m.waitForWorker(), m.syncSpinner())

	case components.SpinnerTickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case clockTickMsg:
		return m, clockTick()

	case mailboxClosedMsg:
		m.closed = true
		return m, nil

	case errMsg:
		m.err = msg.err
		return m, nil

	case ConfigReloadedMsg:
		m.applyConfig(msg.Config)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	if m.filtering {
		var cmd tea.Cmd
		m.filter, cmd = m.filter.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		m.quitting = true
		return m, tea.Quit
	}

	if m.confirm != nil {
		c := m.confirm
		m.confirm = nil
		if key.Matches(msg, m.keys.Confirm) {
			if err := c.run(); err != nil {
				m.err = err
			}
		} else {
			m.notice = "cancelled"
		}
		return m, nil
	}

	if m.filtering {
		return m.handleFilterKey(msg)
	}

	m.notice = ""
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll

	case key.Matches(msg, m.keys.Cancel):
		m.err = nil
		m.console.ClearError()

	case key.Matches(msg, m.keys.Focus):
		if m.focus == focusQueues {
			m.focus = focusHeaders
		} else {
			m.focus = focusQueues
		}

	case key.Matches(msg, m.keys.Up):
		m.move(-1)

	case key.Matches(msg, m.keys.Down):
		m.move(1)

	case key.Matches(msg, m.keys.Expand):
		if m.focus == focusQueues {
			m.focus = focusHeaders
		} else {
			m.toggleExpanded()
		}

	case key.Matches(msg, m.keys.Collapse):
		if m.focus == focusHeaders {
			m.collapse()
		}

	case key.Matches(msg, m.keys.Filter):
		m.filtering = true
		return m, m.filter.Focus()

	case key.Matches(msg, m.keys.Refresh):
		m.console.Refresh()

	case key.Matches(msg, m.keys.Pause):
		m.paused = !m.paused
		if err := m.ctrl.PauseRefreshes(m.paused); err != nil {
			m.err = err
		}

	case key.Matches(msg, m.keys.System):
		show := !m.console.Table.SystemShown()
		m.console.Table.ShowSystem(show)
		if show {
			m.notice = "system queues shown from the next refresh"
		}

	case key.Matches(msg, m.keys.Connect):
		if m.console.Connected() {
			if err := m.ctrl.Disconnect(); err != nil {
				m.err = err
			}
			return m, nil
		}
		var spin tea.Cmd
		m.spinner.Label = "connecting to " + m.cfg.Broker.URL
		m.spinner, spin = m.spinner.Start()
		return m, tea.Batch(m.connect(), spin)

	case key.Matches(msg, m.keys.Acknowledge):
		m.console.Tree.AcknowledgeAll()

	case key.Matches(msg, m.keys.Remove):
		m.askRemove()

	case key.Matches(msg, m.keys.PurgeAll):
		m.askPurge(0)

	case key.Matches(msg, m.keys.PurgeOne):
		m.askPurge(1)
	}
	return m, nil
}

func (m Model) handleFilterKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.filtering = false
		m.filter.Blur()
		return m, nil
	case tea.KeyEsc:
		m.filtering = false
		m.filter.Blur()
		m.filter.SetValue("")
		return m, nil
	}
	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	m.followFilter()
	return m, cmd
}

// followFilter moves the selection onto the filtered rows when the
// selected queue is filtered out.
func (m *Model) followFilter() {
	rows := m.visibleQueues()
	if len(rows) == 0 || m.queuePos(rows) >= 0 {
		return
	}
	m.console.SelectRow(rows[0])
	m.resetTreeCursor()
}

func (m *Model) move(delta int) {
	if m.focus == focusQueues {
		rows := m.visibleQueues()
		if len(rows) == 0 {
			return
		}
		pos := m.queuePos(rows) + delta
		if pos < 0 {
			pos = 0
		}
		if pos >= len(rows) {
			pos = len(rows) - 1
		}
		m.console.SelectRow(rows[pos])
		m.resetTreeCursor()
		return
	}

	lines := m.console.Tree.Lines()
	if len(lines) == 0 {
		return
	}
	pos := m.treePos + delta
	if pos < 0 {
		pos = 0
	}
	if pos >= len(lines) {
		pos = len(lines) - 1
	}
	m.treePos = pos
	m.treeCursor = lines[pos].Index
	m.console.Tree.Selected(m.treeCursor)
}

func (m *Model) toggleExpanded() {
	if !m.treeCursor.Valid() {
		return
	}
	tree := m.console.Tree
	tree.SetExpanded(m.treeCursor, !tree.IsExpanded(m.treeCursor))
}

// collapse folds the node under the cursor, or moves to its parent when it
// is already folded.
func (m *Model) collapse() {
	if !m.treeCursor.Valid() {
		return
	}
	tree := m.console.Tree
	if tree.IsExpanded(m.treeCursor) {
		tree.SetExpanded(m.treeCursor, false)
		return
	}
	if parent := tree.Parent(m.treeCursor); parent.Valid() {
		m.treeCursor = parent
		m.syncTreeCursor()
	}
}

func (m *Model) askRemove() {
	if !m.treeCursor.Valid() {
		m.notice = "no message selected"
		return
	}
	index := m.treeCursor
	args := m.console.Tree.Args(index)
	if args == nil {
		return
	}
	c := m.console
	m.confirm = &confirmation{
		prompt: fmt.Sprintf("Remove message %s from %s? (y/N)", args.String("id"), c.SelectedQueue()),
		run:    func() error { return c.RemoveMessage(index) },
	}
}

func (m *Model) askPurge(count uint64) {
	queue := m.console.SelectedQueue()
	if queue == "" {
		m.notice = "no queue selected"
		return
	}
	what := "all messages"
	if count == 1 {
		what = "the top message"
	}
	c := m.console
	m.confirm = &confirmation{
		prompt: fmt.Sprintf("Purge %s from %s? (y/N)", what, queue),
		run:    func() error { return c.PurgeSelected(count) },
	}
}

// syncSpinner runs the spinner while a connection attempt is in progress.
func (m *Model) syncSpinner() tea.Cmd {
	if m.console.State() == worker.Connecting {
		m.spinner.Label = "connecting to " + m.cfg.Broker.URL
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Start()
		return cmd
	}
	m.spinner = m.spinner.Stop()
	return nil
}

// visibleQueues returns the table rows that pass the filter.
func (m Model) visibleQueues() []int {
	return m.console.Table.Filtered(m.filter.Value())
}

// queuePos returns the position of the selected queue within rows, or -1.
func (m Model) queuePos(rows []int) int {
	selected := m.console.SelectedQueue()
	for pos, i := range rows {
		if row, ok := m.console.Table.Row(i); ok && row.Name == selected {
			return pos
		}
	}
	return -1
}

func (m *Model) resetTreeCursor() {
	m.treeCursor = itemmodel.Root
	m.treePos = 0
	m.treeFirst = 0
}

// syncTreeCursor keeps the cursor on the same node across merges. When the
// node is gone the cursor stays at the same position.
func (m *Model) syncTreeCursor() {
	lines := m.console.Tree.Lines()
	if len(lines) == 0 {
		m.resetTreeCursor()
		return
	}
	if m.treeCursor.Valid() {
		for pos, l := range lines {
			if l.Index.ID == m.treeCursor.ID {
				m.treePos = pos
				m.treeCursor = l.Index
				return
			}
		}
	}
	if m.treePos >= len(lines) {
		m.treePos = len(lines) - 1
	}
	if m.treePos < 0 {
		m.treePos = 0
	}
	m.treeCursor = lines[m.treePos].Index
}

// applyConfig takes over the parts of a reloaded config that can change
// while running.
func (m *Model) applyConfig(cfg *config.Config) {
	if cfg == nil {
		return
	}
	m.cfg = cfg
	m.console.SetClassification(cfg.Classification())
	m.console.Table.SetColumns(cfg.Columns())
	if cfg.Queues.ShowSystem != m.console.Table.SystemShown() {
		m.console.Table.ShowSystem(cfg.Queues.ShowSystem)
	}
	m.theme = theme.FromName(cfg.UI.Theme)
	m.styles = theme.NewStyles(m.theme)
	m.icons = icons.FromName(cfg.UI.Icons)
	m.spinner.Color = m.theme.Primary
	if interval, err := cfg.RefreshInterval(); err == nil {
		m.interval = interval
	}
	m.notice = "configuration reloaded"
	m.logger.Info("dashboard applied reloaded config", slog.String("theme", cfg.UI.Theme))
	m.syncTreeCursor()
}

// Quitting reports whether the user asked to leave.
func (m Model) Quitting() bool {
	return m.quitting
}

