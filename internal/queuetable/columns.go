package queuetable

import (
	"strconv"

	"github.com/theirongolddev/qview/internal/broker"
)

// Alignment of a column's cells.
type Alignment int

const (
	AlignLeft Alignment = iota
	AlignRight
)

// Column formats.
const (
	FormatText    = ""
	FormatNumeric = "N"
	FormatBytes   = "B"
)

// Missing is shown for an attribute a row does not carry.
const Missing = "--"

// Column describes one table column.
type Column struct {
	Name   string // attribute key
	Header string
	Align  Alignment
	Format string
}

// DefaultColumns returns the stock queue columns.
func DefaultColumns() []Column {
	return []Column{
		{Name: "name", Header: "Name", Align: AlignLeft},
		{Name: "autoDelete", Header: "Auto Delete", Align: AlignLeft},
		{Name: "msgDepth", Header: "Messages", Align: AlignRight, Format: FormatNumeric},
		{Name: "byteDepth", Header: "Bytes", Align: AlignRight, Format: FormatBytes},
		{Name: "byteTotalEnqueues", Header: "In Bytes", Align: AlignRight, Format: FormatBytes},
		{Name: "byteTotalDequeues", Header: "Out Bytes", Align: AlignRight, Format: FormatBytes},
	}
}

// FormatCell renders attribute key of attrs for col. Absent values render as
// Missing; maps and lists render as <map> and <list>.
func FormatCell(col Column, attrs broker.Map) string {
	v, ok := attrs[col.Name]
	if !ok {
		return Missing
	}
	switch v.(type) {
	case map[string]any, broker.Map:
		return "<map>"
	case []any, []string, []uint64:
		return "<list>"
	case string, bool, nil:
		return broker.FormatValue(v)
	}
	n, ok := broker.ToUint64(v)
	if !ok {
		return broker.FormatValue(v)
	}
	switch col.Format {
	case FormatBytes:
		return FormatBytesValue(n)
	case FormatNumeric:
		return strconv.FormatUint(n, 10)
	default:
		return broker.FormatValue(v)
	}
}

// FormatBytesValue scales b by powers of 1024 and appends the unit letter:
// 512 -> "512 ", 2048 -> "2K".
func FormatBytesValue(b uint64) string {
	const sizes = " KMGTPY"
	which := 0
	for b >= 1024 && which < len(sizes)-1 {
		b /= 1024
		which++
	}
	return strconv.FormatUint(b, 10) + string(sizes[which])
}
