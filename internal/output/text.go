package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
)

// Text outputs plain text to the formatter's writer
func (f *Formatter) Text(format string, args ...any) {
	fmt.Fprintf(f.writer, format, args...)
}

// Textln outputs plain text with a newline to the formatter's writer
func (f *Formatter) Textln(format string, args ...any) {
	fmt.Fprintf(f.writer, format+"\n", args...)
}

// Table outputs tabular data in text format. Widths are measured in
// terminal cells, so wide runes line up.
type Table struct {
	writer   io.Writer
	headers  []string
	right    []bool
	rows     [][]string
	widths   []int
	maxWidth int
}

// NewTable creates a new table with headers
func NewTable(w io.Writer, headers ...string) *Table {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = runewidth.StringWidth(h)
	}
	return &Table{
		writer:  w,
		headers: headers,
		right:   make([]bool, len(headers)),
		widths:  widths,
	}
}

// AlignRight right-aligns column i.
func (t *Table) AlignRight(i int) *Table {
	if i >= 0 && i < len(t.right) {
		t.right[i] = true
	}
	return t
}

// MaxCellWidth truncates cells wider than n; zero means no limit.
func (t *Table) MaxCellWidth(n int) *Table {
	t.maxWidth = n
	return t
}

// AddRow adds a row to the table
func (t *Table) AddRow(cols ...string) {
	row := make([]string, len(t.headers))
	for i := range row {
		if i < len(cols) {
			row[i] = cols[i]
		}
		if t.maxWidth > 0 {
			row[i] = Truncate(row[i], t.maxWidth)
		}
		if w := runewidth.StringWidth(row[i]); w > t.widths[i] {
			t.widths[i] = w
		}
	}
	t.rows = append(t.rows, row)
}

// Len returns the number of rows added.
func (t *Table) Len() int {
	return len(t.rows)
}

// Render outputs the table
func (t *Table) Render() error {
	seps := make([]string, len(t.widths))
	for i, w := range t.widths {
		seps[i] = strings.Repeat("-", w)
	}
	for _, row := range append([][]string{t.headers, seps}, t.rows...) {
		if _, err := io.WriteString(t.writer, t.line(row)); err != nil {
			return err
		}
	}
	return nil
}

func (t *Table) line(row []string) string {
	var b strings.Builder
	b.WriteString(" ")
	for i, cell := range row {
		b.WriteString(" ")
		if t.right[i] {
			b.WriteString(runewidth.FillLeft(cell, t.widths[i]))
		} else if i < len(row)-1 {
			b.WriteString(runewidth.FillRight(cell, t.widths[i]))
		} else {
			b.WriteString(cell)
		}
		if i < len(row)-1 {
			b.WriteString(" ")
		}
	}
	b.WriteString("\n")
	return b.String()
}

// Truncate shortens s to at most maxWidth cells, ending in "..." when cut.
func Truncate(s string, maxWidth int) string {
	if runewidth.StringWidth(s) <= maxWidth {
		return s
	}
	if maxWidth <= 3 {
		return runewidth.Truncate(s, maxWidth, "")
	}
	return runewidth.Truncate(s, maxWidth, "...")
}

// Pluralize returns singular or plural form based on count
func Pluralize(count int, singular, plural string) string {
	if count == 1 {
		return singular
	}
	return plural
}

// CountStr returns "N item(s)" string
func CountStr(count int, singular, plural string) string {
	return fmt.Sprintf("%d %s", count, Pluralize(count, singular, plural))
}
