package itemmodel

import "fmt"

// EventKind names a recorded notification.
type EventKind string

const (
	AboutToInsert EventKind = "about-to-insert"
	Inserted      EventKind = "inserted"
	AboutToRemove EventKind = "about-to-remove"
	Removed       EventKind = "removed"
	Changed       EventKind = "changed"
)

// Event is one recorded notification. Parent, First and Last are set for
// structural events; TopLeft and BottomRight for Changed.
type Event struct {
	Kind        EventKind
	Parent      Index
	First, Last int
	TopLeft     Index
	BottomRight Index
}

func (e Event) String() string {
	if e.Kind == Changed {
		return fmt.Sprintf("%s %v..%v", e.Kind, e.TopLeft, e.BottomRight)
	}
	return fmt.Sprintf("%s %v [%d,%d]", e.Kind, e.Parent, e.First, e.Last)
}

// Recorder is an Observer that keeps every notification, for tests and for
// views that redraw lazily.
type Recorder struct {
	Events []Event
}

func (r *Recorder) RowsAboutToBeInserted(parent Index, first, last int) {
	r.Events = append(r.Events, Event{Kind: AboutToInsert, Parent: parent, First: first, Last: last})
}

func (r *Recorder) RowsInserted(parent Index, first, last int) {
	r.Events = append(r.Events, Event{Kind: Inserted, Parent: parent, First: first, Last: last})
}

func (r *Recorder) RowsAboutToBeRemoved(parent Index, first, last int) {
	r.Events = append(r.Events, Event{Kind: AboutToRemove, Parent: parent, First: first, Last: last})
}

func (r *Recorder) RowsRemoved(parent Index, first, last int) {
	r.Events = append(r.Events, Event{Kind: Removed, Parent: parent, First: first, Last: last})
}

func (r *Recorder) DataChanged(topLeft, bottomRight Index) {
	r.Events = append(r.Events, Event{Kind: Changed, TopLeft: topLeft, BottomRight: bottomRight})
}

// Kinds returns the kinds of the recorded events in order.
func (r *Recorder) Kinds() []EventKind {
	kinds := make([]EventKind, len(r.Events))
	for i, e := range r.Events {
		kinds[i] = e.Kind
	}
	return kinds
}

// Count returns how many events of kind were recorded.
func (r *Recorder) Count(kind EventKind) int {
	n := 0
	for _, e := range r.Events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

// Reset drops everything recorded so far.
func (r *Recorder) Reset() {
	r.Events = nil
}
