package itemmodel

import "testing"

func TestNotifierBrackets(t *testing.T) {
	t.Parallel()

	var n Notifier
	var rec Recorder
	n.Subscribe(&rec)

	var sawBefore, sawAfter int
	n.Insert(Root, 2, 2, func() {
		sawBefore = len(rec.Events)
	})
	sawAfter = len(rec.Events)
	if sawBefore != 1 || sawAfter != 2 {
		t.Errorf("mutate ran with %d events recorded, %d after; want 1 and 2", sawBefore, sawAfter)
	}

	n.Remove(Root, 0, 1, func() {})
	n.Changed(Index{Row: 0, Column: 0, ID: 7}, Index{Row: 0, Column: 5, ID: 7})

	want := []EventKind{AboutToInsert, Inserted, AboutToRemove, Removed, Changed}
	got := rec.Kinds()
	if len(got) != len(want) {
		t.Fatalf("Kinds() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d = %v, want %v", i, got[i], want[i])
		}
	}
	if rec.Events[0].First != 2 || rec.Events[0].Last != 2 {
		t.Errorf("insert range = [%d,%d], want [2,2]", rec.Events[0].First, rec.Events[0].Last)
	}
	if rec.Events[4].BottomRight.Column != 5 {
		t.Errorf("changed range ends at column %d, want 5", rec.Events[4].BottomRight.Column)
	}
}

func TestNotifierEmptyRemove(t *testing.T) {
	t.Parallel()

	var n Notifier
	var rec Recorder
	n.Subscribe(&rec)

	ran := false
	n.Remove(Root, 0, -1, func() { ran = true })
	if !ran {
		t.Error("mutate did not run")
	}
	if len(rec.Events) != 0 {
		t.Errorf("empty remove notified: %v", rec.Events)
	}
}

func TestUnsubscribe(t *testing.T) {
	t.Parallel()

	var n Notifier
	var a, b Recorder
	n.Subscribe(&a)
	cancel := n.Subscribe(&b)
	cancel()

	n.Changed(Root, Root)
	if a.Count(Changed) != 1 || b.Count(Changed) != 0 {
		t.Errorf("a=%d b=%d changed events, want 1 and 0", a.Count(Changed), b.Count(Changed))
	}
}

func TestIndexValid(t *testing.T) {
	t.Parallel()

	if Root.Valid() {
		t.Error("Root.Valid() = true")
	}
	if !(Index{Row: 0, Column: 0}).Valid() {
		t.Error("Index{0,0}.Valid() = false")
	}
	if Root.String() != "root" {
		t.Errorf("Root.String() = %q", Root.String())
	}
}
