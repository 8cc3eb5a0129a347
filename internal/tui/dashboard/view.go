package dashboard

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/wordwrap"
	"github.com/muesli/reflow/wrap"

	"github.com/theirongolddev/qview/internal/headertree"
	"github.com/theirongolddev/qview/internal/queuetable"
	"github.com/theirongolddev/qview/internal/tui/components"
	"github.com/theirongolddev/qview/internal/tui/layout"
)

const (
	minNameWidth = 8
	columnGap    = 2
)

// treeRow is one physical line of the header tree; wrapped payloads
// span several rows of the same line.
type treeRow struct {
	line int
	text string
}

// View implements tea.Model
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	header := m.renderHeader()
	footer := m.renderFooter()
	qw, qh, tw, th := m.paneSizes()

	queues := m.renderPane(m.queuesTitle(qh), m.renderQueues(qw, qh), qw, qh, m.focus == focusQueues)
	tree := m.renderPane(m.treeTitle(tw, th), m.renderTree(tw, th), tw, th, m.focus == focusHeaders)

	var body string
	if m.tier == layout.TierNarrow {
		body = lipgloss.JoinVertical(lipgloss.Left, queues, tree)
	} else {
		body = lipgloss.JoinHorizontal(lipgloss.Top, queues, tree)
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}

// paneSizes returns the content width and list height of both panes. One
// row of each pane goes to its title; the queue pane also loses one to the
// column headers.
func (m Model) paneSizes() (qw, qh, tw, th int) {
	bodyHeight := m.height - 1 - lipgloss.Height(m.renderFooter())
	if m.tier == layout.TierNarrow {
		top, bottom := layout.StackProportions(bodyHeight)
		qw, tw = m.width-2, m.width-2
		qh, th = top-2, bottom-1
	} else {
		qw, tw = layout.SplitProportions(m.width)
		qh, th = bodyHeight-4, bodyHeight-3
	}
	return max(qw, 1), max(qh, 1), max(tw, 1), max(th, 1)
}

// scroll keeps both cursors inside their windows.
func (m *Model) scroll() {
	_, qh, tw, th := m.paneSizes()
	rows := m.visibleQueues()
	m.queueFirst = layout.Window(len(rows), max(m.queuePos(rows), 0), qh, m.queueFirst).FirstVisible

	tr := m.treeRows(tw)
	m.treeFirst = layout.Window(len(tr), firstRowOf(tr, m.treePos), th, m.treeFirst).FirstVisible
}

func (m Model) renderPane(title, content string, width, height int, focused bool) string {
	style := m.styles.Pane
	if focused {
		style = m.styles.PaneFocused
	}
	titleLine := m.styles.PaneTitle.Render(layout.Truncate(title, width-2))
	return style.Width(width).Render(titleLine + "\n" + content)
}

func (m Model) renderHeader() string {
	var b strings.Builder
	b.WriteString(m.styles.Title.Render("qview"))
	b.WriteString(" ")
	b.WriteString(m.styles.Dim.Render(m.cfg.Broker.URL))
	b.WriteString("  ")

	connected := m.console.Connected()
	status := m.icons.ConnectionIcon(connected, m.spinner.Active, m.paused) + " " + m.console.Status()
	if connected {
		b.WriteString(m.styles.Success.Render(status))
	} else {
		b.WriteString(m.styles.Warning.Render(status))
	}
	if spin := m.spinner.View(); spin != "" {
		b.WriteString("  ")
		b.WriteString(spin)
	}
	if m.paused {
		b.WriteString("  ")
		b.WriteString(m.styles.Warning.Render("[paused]"))
	}
	if m.closed {
		b.WriteString("  ")
		b.WriteString(m.styles.Error.Render("[worker stopped]"))
	}
	return layout.Truncate(b.String(), m.width)
}

func (m Model) queuesTitle(height int) string {
	rows := m.visibleQueues()
	win := layout.Window(len(rows), max(m.queuePos(rows), 0), height, m.queueFirst)
	return withPosition("Queues", win)
}

func (m Model) treeTitle(width, height int) string {
	queue := m.console.SelectedQueue()
	if queue == "" {
		return "Messages"
	}
	title := fmt.Sprintf("Messages on %s (%d)", queue, m.console.Tree.Len())
	rows := m.treeRows(width)
	return withPosition(title, layout.Window(len(rows), firstRowOf(rows, m.treePos), height, m.treeFirst))
}

func withPosition(title string, win layout.ScrollState) string {
	if pos := win.Position(); pos != "" {
		return title + "  " + pos
	}
	return title
}

func (m Model) renderQueues(width, height int) string {
	table := m.console.Table
	cols := table.Columns()
	rows := m.visibleQueues()
	widths := columnWidths(table, cols, rows, width)

	lines := make([]string, 0, height+1)
	header := make([]string, len(cols))
	for i, c := range cols {
		header[i] = c.Header
	}
	lines = append(lines, m.styles.TableHeader.Render(formatRow(cols, header, widths)))

	selected := m.console.SelectedQueue()
	win := layout.Window(len(rows), max(m.queuePos(rows), 0), height, m.queueFirst)
	for pos := win.FirstVisible; pos <= win.LastVisible; pos++ {
		cells := make([]string, len(cols))
		for c := range cols {
			cells[c] = table.Cell(rows[pos], c)
		}
		line := runewidth.FillRight(formatRow(cols, cells, widths), width)
		if r, ok := table.Row(rows[pos]); ok && r.Name == selected {
			lines = append(lines, m.styles.RowSelected.Render(line))
		} else {
			lines = append(lines, m.styles.Row.Render(line))
		}
	}
	if len(rows) == 0 {
		lines = append(lines, m.styles.Dim.Render(m.emptyQueuesText()))
	}
	return strings.Join(lines, "\n")
}

func (m Model) emptyQueuesText() string {
	switch {
	case !m.console.Connected():
		return "not connected (c to connect)"
	case m.filter.Value() != "":
		return "no queue matches the filter"
	default:
		return "no queues"
	}
}

// columnWidths sizes each column to its widest cell, then narrows the
// first column until the row fits width.
func columnWidths(table *queuetable.Table, cols []queuetable.Column, rows []int, width int) []int {
	widths := make([]int, len(cols))
	for i, c := range cols {
		widths[i] = runewidth.StringWidth(c.Header)
	}
	for _, r := range rows {
		for i := range cols {
			if w := runewidth.StringWidth(table.Cell(r, i)); w > widths[i] {
				widths[i] = w
			}
		}
	}
	total := (len(cols) - 1) * columnGap
	for _, w := range widths {
		total += w
	}
	if over := total - width; over > 0 && len(widths) > 0 {
		widths[0] = max(widths[0]-over, minNameWidth)
	}
	return widths
}

func formatRow(cols []queuetable.Column, cells []string, widths []int) string {
	parts := make([]string, len(cols))
	for i, c := range cols {
		cell := runewidth.Truncate(cells[i], widths[i], "…")
		if c.Align == queuetable.AlignRight {
			parts[i] = runewidth.FillLeft(cell, widths[i])
		} else {
			parts[i] = runewidth.FillRight(cell, widths[i])
		}
	}
	return strings.Join(parts, strings.Repeat(" ", columnGap))
}

// treeRows lays out the visible tree lines at width. Payloads are word
// wrapped; every other line is truncated.
func (m Model) treeRows(width int) []treeRow {
	var rows []treeRow
	for i, l := range m.console.Tree.Lines() {
		indent := strings.Repeat("  ", l.Depth)
		mark := " "
		if l.Changed {
			mark = m.icons.Changed
		}
		prefix := indent + m.icons.TreeMarker(l.HasChildren, l.Expanded) + mark
		avail := width - runewidth.StringWidth(prefix)
		if l.Kind != headertree.BodyDisplay || avail < 10 {
			rows = append(rows, treeRow{line: i, text: prefix + layout.Truncate(l.Text, avail)})
			continue
		}
		wrapped := wrap.String(wordwrap.String(l.Text, avail), avail)
		for _, part := range strings.Split(wrapped, "\n") {
			rows = append(rows, treeRow{line: i, text: prefix + part})
		}
	}
	return rows
}

// firstRowOf returns the first physical row of logical line, or 0.
func firstRowOf(rows []treeRow, line int) int {
	for i, r := range rows {
		if r.line == line {
			return i
		}
	}
	return 0
}

func (m Model) renderTree(width, height int) string {
	if m.console.SelectedQueue() == "" {
		return m.styles.Dim.Render("select a queue")
	}
	rows := m.treeRows(width)
	if len(rows) == 0 {
		return m.styles.Dim.Render("no messages")
	}

	lines := m.console.Tree.Lines()
	focused := m.focus == focusHeaders
	win := layout.Window(len(rows), firstRowOf(rows, m.treePos), height, m.treeFirst)
	out := make([]string, 0, height)
	for i := win.FirstVisible; i <= win.LastVisible; i++ {
		r := rows[i]
		l := lines[r.line]
		switch {
		case focused && r.line == m.treePos:
			out = append(out, m.styles.TreeCursor.Render(runewidth.FillRight(r.text, width)))
		case l.Changed:
			out = append(out, m.styles.Changed.Render(r.text))
		case l.Kind == headertree.BodyDisplay:
			out = append(out, m.styles.TreeBody.Render(r.text))
		default:
			out = append(out, m.styles.Normal.Render(r.text))
		}
	}
	return strings.Join(out, "\n")
}

func (m Model) renderFooter() string {
	var lines []string

	switch {
	case m.confirm != nil:
		lines = append(lines, m.styles.Warning.Render(m.confirm.prompt))
	case m.filtering:
		lines = append(lines, m.styles.Input.Render(m.filter.View()))
	case m.err != nil:
		lines = append(lines, m.styles.Error.Render("Error: "+m.err.Error()))
	case m.console.LastError() != "":
		lines = append(lines, m.styles.Error.Render("Error: "+m.console.LastError()))
	case m.notice != "":
		lines = append(lines, m.styles.Info.Render(m.notice))
	default:
		lines = append(lines, "")
	}

	lines = append(lines, m.styles.StatusBar.Render(layout.Truncate(m.statusLine(), max(m.width-2, 1))))
	lines = append(lines, m.styles.Help.Render(m.help.View(m.keys)))
	return strings.Join(lines, "\n")
}

func (m Model) statusLine() string {
	parts := []string{fmt.Sprintf("%d queues", len(m.visibleQueues()))}
	if f := m.filter.Value(); f != "" && !m.filtering {
		parts = append(parts, "filter: "+f)
	}
	if m.console.Table.SystemShown() {
		parts = append(parts, "system shown")
	}
	if q := m.console.SelectedQueue(); q != "" {
		parts = append(parts, fmt.Sprintf("%s: %d messages", q, m.console.Tree.Len()))
	}
	parts = append(parts, m.console.State().String())
	fresh := components.RenderFreshness(components.FreshnessOptions{
		LastUpdate:      m.lastRefresh,
		RefreshInterval: m.interval,
		Now:             m.now(),
		Paused:          m.paused || !m.console.Connected(),
	})
	if fresh != "" {
		parts = append(parts, fresh)
	}
	return strings.Join(parts, " · ")
}
