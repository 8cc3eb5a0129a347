package headertree

import (
	"strings"

	"github.com/theirongolddev/qview/internal/broker"
)

// Kind is the level of a node in the tree.
type Kind int

const (
	// Summary is a message's top-level node.
	Summary Kind = iota + 1
	// Detail holds one non-body header attribute.
	Detail
	// Body holds the body-related attributes and owns the BodyDisplay.
	Body
	// BodyDisplay shows the fetched payload, or a placeholder until then.
	BodyDisplay
)

func (k Kind) String() string {
	switch k {
	case Summary:
		return "summary"
	case Detail:
		return "detail"
	case Body:
		return "body"
	case BodyDisplay:
		return "body-display"
	default:
		return "unknown"
	}
}

// FetchState tracks the payload of a Body node.
type FetchState int

const (
	// Placeholder means no fetch has been requested since the last reset.
	Placeholder FetchState = iota
	// Fetching means one request is outstanding.
	Fetching
	// Resolved means the display holds a payload.
	Resolved
)

type node struct {
	id       uint64
	kind     Kind
	parent   uint64 // zero for summaries
	children []uint64
	row      int

	messageID string // summaries
	key       string // details and bodies
	attrs     []Attr

	text      string
	textValid bool

	epoch    uint64
	changed  bool
	expanded bool

	// Summaries keep the call arguments and the full header so that removal
	// and body fetches can address the message.
	args   broker.Map
	header broker.Map

	fetch FetchState
	// stale marks an outstanding fetch issued before the body last changed.
	stale bool
}

func joinAttrs(attrs []Attr) string {
	var b strings.Builder
	for i, a := range attrs {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(a.Key)
		b.WriteByte('=')
		b.WriteString(broker.FormatValue(a.Value))
	}
	return b.String()
}
