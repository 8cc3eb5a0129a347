package headertree

import "github.com/theirongolddev/qview/internal/itemmodel"

// Line is one visible node in depth-first order.
type Line struct {
	Index       itemmodel.Index
	Depth       int
	Kind        Kind
	Text        string
	Changed     bool
	Expanded    bool
	HasChildren bool
}

// Lines flattens the tree as a view shows it: every summary, and the
// children of expanded nodes.
func (s *Store) Lines() []Line {
	var out []Line
	var walk func(ids []uint64, depth int)
	walk = func(ids []uint64, depth int) {
		for _, id := range ids {
			n := s.nodes[id]
			out = append(out, Line{
				Index:       s.index(n),
				Depth:       depth,
				Kind:        n.kind,
				Text:        s.text(n),
				Changed:     n.changed,
				Expanded:    n.expanded,
				HasChildren: len(n.children) > 0,
			})
			if n.expanded {
				walk(n.children, depth+1)
			}
		}
	}
	walk(s.summaries, 0)
	return out
}
