// Package queuetable merges polled queue objects into a flat table keyed by
// queue name.
package queuetable

import (
	"strings"

	"github.com/theirongolddev/qview/internal/broker"
	"github.com/theirongolddev/qview/internal/itemmodel"
)

// Row is one queue.
type Row struct {
	Name  string
	Addr  broker.DataAddr
	Attrs broker.Map
	Epoch uint64

	id uint64
}

// Predicate selects rows, for example system queues.
type Predicate func(broker.Map) bool

// IsSystemQueue reports whether a queue is broker-internal: one declared
// with a "management" argument, or otherwise an exclusive queue.
func IsSystemQueue(attrs broker.Map) bool {
	if attrs.Has("arguments") {
		return attrs.Map("arguments").Has("management")
	}
	return attrs.Bool("exclusive")
}

// Table is the queue table. It is not safe for concurrent use.
type Table struct {
	itemmodel.Notifier

	columns    []Column
	rows       []*Row
	nextID     uint64
	system     Predicate
	hideSystem bool
}

// New returns an empty table with the given columns. System queues start
// hidden unless showSystem is set.
func New(columns []Column, showSystem bool) *Table {
	if len(columns) == 0 {
		columns = DefaultColumns()
	}
	return &Table{
		columns:    columns,
		nextID:     1,
		system:     IsSystemQueue,
		hideSystem: !showSystem,
	}
}

// SetSystemPredicate replaces the predicate used to hide system queues.
func (t *Table) SetSystemPredicate(p Predicate) {
	t.system = p
}

// SetColumns replaces the column set.
func (t *Table) SetColumns(columns []Column) {
	if len(columns) == 0 {
		columns = DefaultColumns()
	}
	t.columns = columns
	if len(t.rows) > 0 {
		t.Changed(t.cell(0, 0), t.cell(len(t.rows)-1, len(t.columns)-1))
	}
}

// Columns returns the current columns.
func (t *Table) Columns() []Column {
	return t.columns
}

// AddOrUpdate merges one queue object observed in epoch. Objects without an
// address are ignored, as are system queues while they are hidden.
func (t *Table) AddOrUpdate(obj broker.Data, epoch uint64) {
	if !obj.Valid() {
		return
	}
	if t.hideSystem && t.system != nil && t.system(obj.Properties) {
		return
	}
	name := obj.Properties.String("name")
	if name == "" {
		name = obj.Addr.Name
	}

	for i, r := range t.rows {
		if r.Name != name {
			continue
		}
		r.Attrs = obj.Properties.Clone()
		r.Addr = obj.Addr
		r.Epoch = epoch
		// Column-level diffing is not attempted.
		t.Changed(t.cell(i, 0), t.cell(i, len(t.columns)-1))
		return
	}

	row := len(t.rows)
	t.Insert(itemmodel.Root, row, row, func() {
		t.rows = append(t.rows, &Row{
			Name:  name,
			Addr:  obj.Addr,
			Attrs: obj.Properties.Clone(),
			Epoch: epoch,
			id:    t.nextID,
		})
		t.nextID++
	})
}

// ShowSystem toggles system queues. Hiding removes matching rows now;
// showing takes effect with the next batch, it does not bring rows back.
func (t *Table) ShowSystem(show bool) {
	t.hideSystem = !show
	if show || t.system == nil {
		return
	}
	removed := t.removeWhere(func(r *Row) bool { return t.system(r.Attrs) })
	if removed > 0 && len(t.rows) > 0 {
		t.Changed(t.cell(0, 0), t.cell(len(t.rows)-1, len(t.columns)-1))
	}
}

// SystemShown reports whether system queues are shown.
func (t *Table) SystemShown() bool {
	return !t.hideSystem
}

// Refresh removes every row not observed in epoch. A broker that truncated
// its queue listing would make the missing rows expire here.
func (t *Table) Refresh(epoch uint64) int {
	return t.removeWhere(func(r *Row) bool { return r.Epoch != epoch })
}

// Clear removes every row.
func (t *Table) Clear() {
	t.Remove(itemmodel.Root, 0, len(t.rows)-1, func() {
		t.rows = nil
	})
}

// removeWhere removes matching rows one at a time, each notified at its
// position at that moment.
func (t *Table) removeWhere(match func(*Row) bool) int {
	removed := 0
	for i := 0; i < len(t.rows); {
		if !match(t.rows[i]) {
			i++
			continue
		}
		t.Remove(itemmodel.Root, i, i, func() {
			t.rows = append(t.rows[:i], t.rows[i+1:]...)
		})
		removed++
	}
	return removed
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Row returns the row at position i.
func (t *Table) Row(i int) (Row, bool) {
	if i < 0 || i >= len(t.rows) {
		return Row{}, false
	}
	return *t.rows[i], true
}

// Find returns the position of the row named name.
func (t *Table) Find(name string) (int, bool) {
	for i, r := range t.rows {
		if r.Name == name {
			return i, true
		}
	}
	return -1, false
}

// Cell renders the cell at row, column.
func (t *Table) Cell(row, column int) string {
	if row < 0 || row >= len(t.rows) || column < 0 || column >= len(t.columns) {
		return ""
	}
	return FormatCell(t.columns[column], t.rows[row].Attrs)
}

// Filtered returns the positions of rows whose name contains filter,
// ignoring case. An empty filter matches every row.
func (t *Table) Filtered(filter string) []int {
	filter = strings.ToLower(filter)
	out := make([]int, 0, len(t.rows))
	for i, r := range t.rows {
		if filter == "" || strings.Contains(strings.ToLower(r.Name), filter) {
			out = append(out, i)
		}
	}
	return out
}

func (t *Table) cell(row, column int) itemmodel.Index {
	return itemmodel.Index{Row: row, Column: column, ID: t.rows[row].id}
}

// RowCount implements itemmodel.Model.
func (t *Table) RowCount(parent itemmodel.Index) int {
	if parent.Valid() {
		return 0
	}
	return len(t.rows)
}

// ColumnCount implements itemmodel.Model.
func (t *Table) ColumnCount(itemmodel.Index) int {
	return len(t.columns)
}

// Index implements itemmodel.Model.
func (t *Table) Index(row, column int, parent itemmodel.Index) itemmodel.Index {
	if parent.Valid() || row < 0 || row >= len(t.rows) || column < 0 || column >= len(t.columns) {
		return itemmodel.Root
	}
	return t.cell(row, column)
}

// Parent implements itemmodel.Model.
func (t *Table) Parent(itemmodel.Index) itemmodel.Index {
	return itemmodel.Root
}

// Data implements itemmodel.Model.
func (t *Table) Data(index itemmodel.Index) string {
	if !index.Valid() {
		return ""
	}
	return t.Cell(index.Row, index.Column)
}
