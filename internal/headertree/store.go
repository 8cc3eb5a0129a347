// Package headertree merges message headers into a four-level tree:
// Summary, then Detail and Body, then BodyDisplay.
//
// Nodes are created once and updated in place on later observations, so
// indexes held by a view (expansion, selection) survive refreshes. Summaries
// not seen in the latest header epoch are removed by Expire.
package headertree

import (
	"github.com/theirongolddev/qview/internal/broker"
	"github.com/theirongolddev/qview/internal/itemmodel"
)

const (
	// DefaultPlaceholder is shown in a BodyDisplay until the payload arrives.
	DefaultPlaceholder = "please wait..."
	// DefaultEmptyBody labels a Body node that has no body attributes.
	DefaultEmptyBody = "Message Body"
)

// BodyRequest asks for the payload of one message.
type BodyRequest struct {
	Index       itemmodel.Index
	MessageID   string
	Args        broker.Map
	ContentType string
}

// Store is the header tree. It is not safe for concurrent use.
type Store struct {
	itemmodel.Notifier

	class       Classification
	placeholder string
	emptyBody   string

	nodes     map[uint64]*node
	summaries []uint64
	nextID    uint64

	// OnSummarySelected runs when a Summary node is selected.
	OnSummarySelected func(itemmodel.Index)
	// OnBodyRequested runs when a Body node needs its payload fetched.
	OnBodyRequested func(BodyRequest)
}

// Option configures a Store.
type Option func(*Store)

// WithPlaceholder overrides the BodyDisplay placeholder text.
func WithPlaceholder(text string) Option {
	return func(s *Store) {
		if text != "" {
			s.placeholder = text
		}
	}
}

// WithEmptyBodyLabel overrides the label of a Body node without attributes.
func WithEmptyBodyLabel(text string) Option {
	return func(s *Store) {
		if text != "" {
			s.emptyBody = text
		}
	}
}

// New returns an empty store using class to group attributes.
func New(class Classification, opts ...Option) *Store {
	s := &Store{
		class:       class,
		placeholder: DefaultPlaceholder,
		emptyBody:   DefaultEmptyBody,
		nodes:       make(map[uint64]*node),
		nextID:      1,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetClassification changes attribute grouping for subsequent headers.
func (s *Store) SetClassification(class Classification) {
	s.class = class
}

// Placeholder returns the text shown while a payload is outstanding.
func (s *Store) Placeholder() string {
	return s.placeholder
}

// AddHeader merges one message header. args are the arguments the header was
// fetched with; args["id"] identifies the message. It returns the index of
// the message's Summary node.
func (s *Store) AddHeader(args, header broker.Map, epoch uint64) itemmodel.Index {
	messageID := broker.FormatValue(args["id"])
	p := s.class.partition(header)

	sum, created := s.summary(messageID)
	sum.epoch = epoch
	sum.args = args.Clone()
	sum.header = header.Clone()
	s.update(sum, p.summary, created)

	for _, a := range p.details {
		attrs := []Attr{a}
		n, created := s.child(sum, Detail, keySet(attrs))
		s.update(n, attrs, created)
	}

	// Body attributes go last so the Body node follows the details it
	// was first created with.
	body, created := s.child(sum, Body, keySet(p.body))
	changed := s.update(body, p.body, created)
	if len(body.children) == 0 {
		display, _ := s.child(body, BodyDisplay, "")
		display.text = s.placeholder
		display.textValid = true
		body.fetch = Placeholder
	} else if changed {
		s.bodyChanged(body)
	}
	return s.index(sum)
}

// summary finds or creates the Summary node for messageID. Summary labels
// may collide, so identity is the message id, never the label.
func (s *Store) summary(messageID string) (*node, bool) {
	for _, id := range s.summaries {
		if n := s.nodes[id]; n.messageID == messageID {
			return n, false
		}
	}
	row := len(s.summaries)
	var n *node
	s.Insert(itemmodel.Root, row, row, func() {
		n = s.newNode(Summary, 0)
		n.messageID = messageID
		n.row = row
		s.summaries = append(s.summaries, n.id)
	})
	return n, true
}

// child finds or creates the child of parent with the given kind and key.
func (s *Store) child(parent *node, kind Kind, key string) (*node, bool) {
	for _, id := range parent.children {
		if n := s.nodes[id]; n.kind == kind && n.key == key {
			return n, false
		}
	}
	row := len(parent.children)
	var n *node
	s.Insert(s.index(parent), row, row, func() {
		n = s.newNode(kind, parent.id)
		n.key = key
		n.row = row
		parent.children = append(parent.children, n.id)
	})
	return n, true
}

func (s *Store) newNode(kind Kind, parent uint64) *node {
	n := &node{id: s.nextID, kind: kind, parent: parent}
	s.nextID++
	s.nodes[n.id] = n
	return n
}

// update stores attrs on n. It reports whether an existing node's values
// changed; only then is the node flagged and a change notified.
func (s *Store) update(n *node, attrs []Attr, created bool) bool {
	if created {
		n.attrs = attrs
		n.textValid = false
		return false
	}
	if sameValues(n.attrs, attrs) {
		return false
	}
	n.attrs = attrs
	n.textValid = false
	n.changed = true
	idx := s.index(n)
	s.Changed(idx, idx)
	return true
}

// bodyChanged runs when a Body node's attributes change after its display
// was created. A resolved payload is stale: an expanded body is fetched
// again at once, a collapsed one goes back to the placeholder. With a fetch
// outstanding the reply is marked stale and handled when it lands, so at
// most one fetch per body is ever outstanding.
func (s *Store) bodyChanged(body *node) {
	if body.fetch == Fetching {
		body.stale = true
		return
	}
	if body.fetch != Resolved {
		return
	}
	display := s.nodes[body.children[0]]
	display.text = s.placeholder
	display.textValid = true
	idx := s.index(display)
	s.Changed(idx, idx)

	if body.expanded {
		s.requestBody(body)
		return
	}
	body.fetch = Placeholder
}

func (s *Store) requestBody(body *node) {
	body.fetch = Fetching
	if s.OnBodyRequested == nil {
		return
	}
	sum := s.nodes[body.parent]
	s.OnBodyRequested(BodyRequest{
		Index:       s.index(body),
		MessageID:   sum.messageID,
		Args:        sum.args.Clone(),
		ContentType: sum.header.String("ContentType"),
	})
}

// Expire removes every summary whose last header epoch is not epoch.
// Each removal is notified at the row the summary held at that moment.
func (s *Store) Expire(epoch uint64) int {
	removed := 0
	for i := 0; i < len(s.summaries); {
		n := s.nodes[s.summaries[i]]
		if n.epoch == epoch {
			i++
			continue
		}
		s.Remove(itemmodel.Root, i, i, func() {
			s.summaries = append(s.summaries[:i], s.summaries[i+1:]...)
			s.drop(n.id)
			s.renumber(s.summaries)
		})
		removed++
	}
	return removed
}

// Clear removes every node.
func (s *Store) Clear() {
	s.Remove(itemmodel.Root, 0, len(s.summaries)-1, func() {
		s.summaries = nil
		s.nodes = make(map[uint64]*node)
	})
}

func (s *Store) drop(id uint64) {
	n := s.nodes[id]
	if n == nil {
		return
	}
	for _, c := range n.children {
		s.drop(c)
	}
	delete(s.nodes, id)
}

func (s *Store) renumber(ids []uint64) {
	for row, id := range ids {
		s.nodes[id].row = row
	}
}

// Selected handles the user selecting index. Selecting a summary fires
// OnSummarySelected; selecting a Body whose payload was never requested
// fires OnBodyRequested. A body with a fetch outstanding or resolved is
// left alone.
func (s *Store) Selected(index itemmodel.Index) {
	n := s.lookup(index)
	if n == nil {
		return
	}
	switch n.kind {
	case Summary:
		if s.OnSummarySelected != nil {
			s.OnSummarySelected(s.index(n))
		}
	case Body:
		if n.fetch == Placeholder {
			s.requestBody(n)
		}
	}
}

// SetExpanded records whether index is expanded in the view. Expanding a
// node counts as selecting it.
func (s *Store) SetExpanded(index itemmodel.Index, expanded bool) {
	n := s.lookup(index)
	if n == nil || n.expanded == expanded {
		return
	}
	n.expanded = expanded
	if expanded {
		s.Selected(index)
	}
}

// IsExpanded reports whether index is expanded.
func (s *Store) IsExpanded(index itemmodel.Index) bool {
	n := s.lookup(index)
	return n != nil && n.expanded
}

// SetBodyText shows a fetched payload under the Body node at index. It is a
// content change only; the tree's shape is untouched. It reports false if
// the node no longer exists.
func (s *Store) SetBodyText(index itemmodel.Index, text string) bool {
	body := s.lookup(index)
	if body == nil || body.kind != Body || len(body.children) == 0 {
		return false
	}
	if body.stale {
		body.stale = false
		body.fetch = Resolved
		s.bodyChanged(body)
		return true
	}
	display := s.nodes[body.children[0]]
	display.text = text
	display.textValid = true
	body.fetch = Resolved
	idx := s.index(display)
	s.Changed(idx, idx)
	return true
}

// ResetBody returns the Body node at index to its placeholder so the next
// selection fetches again.
func (s *Store) ResetBody(index itemmodel.Index) {
	body := s.lookup(index)
	if body == nil || body.kind != Body || len(body.children) == 0 {
		return
	}
	body.fetch = Placeholder
	body.stale = false
	display := s.nodes[body.children[0]]
	if display.text != s.placeholder {
		display.text = s.placeholder
		idx := s.index(display)
		s.Changed(idx, idx)
	}
}

// FetchState returns the payload state of the Body node at index.
func (s *Store) FetchState(index itemmodel.Index) FetchState {
	if n := s.lookup(index); n != nil && n.kind == Body {
		return n.fetch
	}
	return Placeholder
}

// IsChanged reports whether index changed since it was last acknowledged.
func (s *Store) IsChanged(index itemmodel.Index) bool {
	n := s.lookup(index)
	return n != nil && n.changed
}

// Acknowledge clears the changed flag of index.
func (s *Store) Acknowledge(index itemmodel.Index) {
	if n := s.lookup(index); n != nil {
		n.changed = false
	}
}

// AcknowledgeAll clears every changed flag, typically after a render.
func (s *Store) AcknowledgeAll() {
	for _, n := range s.nodes {
		n.changed = false
	}
}

// Kind returns the kind of the node at index, or zero.
func (s *Store) Kind(index itemmodel.Index) Kind {
	if n := s.lookup(index); n != nil {
		return n.kind
	}
	return 0
}

// Args returns the fetch arguments of the message index belongs to.
func (s *Store) Args(index itemmodel.Index) broker.Map {
	n := s.lookup(index)
	for n != nil && n.kind != Summary {
		n = s.nodes[n.parent]
	}
	if n == nil {
		return nil
	}
	return n.args.Clone()
}

// Header returns the last header merged for the message index belongs to.
func (s *Store) Header(index itemmodel.Index) broker.Map {
	n := s.lookup(index)
	for n != nil && n.kind != Summary {
		n = s.nodes[n.parent]
	}
	if n == nil {
		return nil
	}
	return n.header.Clone()
}

// Find returns the Summary index for messageID.
func (s *Store) Find(messageID string) (itemmodel.Index, bool) {
	for _, id := range s.summaries {
		if n := s.nodes[id]; n.messageID == messageID {
			return s.index(n), true
		}
	}
	return itemmodel.Root, false
}

// Len returns the number of summaries.
func (s *Store) Len() int {
	return len(s.summaries)
}

// lookup resolves index by identity; positions are not trusted.
func (s *Store) lookup(index itemmodel.Index) *node {
	if !index.Valid() {
		return nil
	}
	return s.nodes[index.ID]
}

func (s *Store) index(n *node) itemmodel.Index {
	return itemmodel.Index{Row: n.row, Column: 0, ID: n.id}
}

// text computes and caches the display text of n.
func (s *Store) text(n *node) string {
	if n.textValid {
		return n.text
	}
	switch {
	case n.kind == Body && len(n.attrs) == 0:
		n.text = s.emptyBody
	default:
		n.text = joinAttrs(n.attrs)
	}
	n.textValid = true
	return n.text
}

// RowCount implements itemmodel.Model.
func (s *Store) RowCount(parent itemmodel.Index) int {
	if !parent.Valid() {
		return len(s.summaries)
	}
	if n := s.lookup(parent); n != nil {
		return len(n.children)
	}
	return 0
}

// ColumnCount implements itemmodel.Model.
func (s *Store) ColumnCount(itemmodel.Index) int {
	return 1
}

// Index implements itemmodel.Model.
func (s *Store) Index(row, column int, parent itemmodel.Index) itemmodel.Index {
	if column != 0 || row < 0 {
		return itemmodel.Root
	}
	ids := s.summaries
	if parent.Valid() {
		p := s.lookup(parent)
		if p == nil {
			return itemmodel.Root
		}
		ids = p.children
	}
	if row >= len(ids) {
		return itemmodel.Root
	}
	return s.index(s.nodes[ids[row]])
}

// Parent implements itemmodel.Model.
func (s *Store) Parent(child itemmodel.Index) itemmodel.Index {
	n := s.lookup(child)
	if n == nil || n.parent == 0 {
		return itemmodel.Root
	}
	return s.index(s.nodes[n.parent])
}

// Data implements itemmodel.Model.
func (s *Store) Data(index itemmodel.Index) string {
	n := s.lookup(index)
	if n == nil {
		return ""
	}
	return s.text(n)
}
