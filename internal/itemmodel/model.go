// Package itemmodel is the contract between the merge stores and whatever
// renders them: indexed access to rows and nodes, and notifications that
// bracket every structural change.
package itemmodel

import "fmt"

// Index addresses one cell. ID is the store's stable identity for the row or
// node, valid for as long as the entry lives; Row and Column are positional.
type Index struct {
	Row    int
	Column int
	ID     uint64
}

// Root is the invalid index that parents top-level rows.
var Root = Index{Row: -1, Column: -1}

// Valid reports whether i addresses a cell rather than the root.
func (i Index) Valid() bool {
	return i.Row >= 0 && i.Column >= 0
}

func (i Index) String() string {
	if !i.Valid() {
		return "root"
	}
	return fmt.Sprintf("(%d,%d #%d)", i.Row, i.Column, i.ID)
}

// Model is read access to an indexed store.
type Model interface {
	RowCount(parent Index) int
	ColumnCount(parent Index) int
	Index(row, column int, parent Index) Index
	Parent(child Index) Index
	Data(index Index) string
}

// Observer receives change notifications. Every insertion and removal is
// bracketed by an AboutTo call before the store changes and a matching
// call after. Ranges are inclusive.
type Observer interface {
	RowsAboutToBeInserted(parent Index, first, last int)
	RowsInserted(parent Index, first, last int)
	RowsAboutToBeRemoved(parent Index, first, last int)
	RowsRemoved(parent Index, first, last int)
	DataChanged(topLeft, bottomRight Index)
}
