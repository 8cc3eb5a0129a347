package headertree

import (
	"testing"

	"github.com/theirongolddev/qview/internal/broker"
	"github.com/theirongolddev/qview/internal/itemmodel"
)

func newStore(t *testing.T) (*Store, *itemmodel.Recorder) {
	t.Helper()
	s := New(DefaultClassification())
	rec := &itemmodel.Recorder{}
	s.Subscribe(rec)
	return s, rec
}

func args(id uint64) broker.Map {
	return broker.Map{"name": "q1", "id": id}
}

func childTexts(s *Store, parent itemmodel.Index) []string {
	var out []string
	for row := 0; row < s.RowCount(parent); row++ {
		out = append(out, s.Data(s.Index(row, 0, parent)))
	}
	return out
}

func TestSummaryLabelAndChildren(t *testing.T) {
	t.Parallel()

	s, _ := newStore(t)
	sum := s.AddHeader(args(1), broker.Map{"UserId": "bob", "ContentType": "text/plain"}, 1)

	if s.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", s.Len())
	}
	if got := s.Data(sum); got != "UserId=bob, ContentType=text/plain" {
		t.Errorf("summary label = %q", got)
	}
	children := childTexts(s, sum)
	if len(children) != 2 || children[0] != "UserId=bob" || children[1] != "ContentType=text/plain" {
		t.Fatalf("children = %q, want one detail then the body", children)
	}
	detail := s.Index(0, 0, sum)
	body := s.Index(1, 0, sum)
	if s.Kind(detail) != Detail || s.Kind(body) != Body {
		t.Errorf("kinds = %v, %v; want detail, body", s.Kind(detail), s.Kind(body))
	}
	if got := childTexts(s, body); len(got) != 1 || got[0] != DefaultPlaceholder {
		t.Errorf("body display = %q, want placeholder", got)
	}
	if s.Parent(body) != sum {
		t.Errorf("Parent(body) = %v, want %v", s.Parent(body), sum)
	}
	if s.Parent(sum).Valid() {
		t.Error("summary has a parent")
	}
}

func TestUpdateInPlace(t *testing.T) {
	t.Parallel()

	s, rec := newStore(t)
	sum := s.AddHeader(args(1), broker.Map{"UserId": "bob", "ContentType": "text/plain"}, 1)
	detail := s.Index(0, 0, sum)
	if s.IsChanged(sum) {
		t.Error("new summary flagged changed")
	}
	rec.Reset()

	again := s.AddHeader(args(1), broker.Map{"UserId": "bob", "ContentType": "text/html"}, 2)
	if again != sum {
		t.Errorf("second batch index = %v, want %v", again, sum)
	}
	if s.Len() != 1 || s.RowCount(sum) != 2 {
		t.Errorf("Len() = %d, children = %d; want 1 and 2", s.Len(), s.RowCount(sum))
	}
	if got := s.Data(sum); got != "UserId=bob, ContentType=text/html" {
		t.Errorf("summary label = %q", got)
	}
	if !s.IsChanged(sum) {
		t.Error("summary not flagged changed")
	}
	if s.IsChanged(detail) {
		t.Error("unchanged detail flagged changed")
	}
	if s.Index(0, 0, sum) != detail {
		t.Error("detail identity moved")
	}
	if n := rec.Count(itemmodel.AboutToInsert); n != 0 {
		t.Errorf("in-place update inserted %d rows", n)
	}
	if n := rec.Count(itemmodel.Changed); n != 2 {
		t.Errorf("changed notifications = %d, want 2 (summary and body)", n)
	}

	s.Acknowledge(sum)
	if s.IsChanged(sum) {
		t.Error("Acknowledge() left the flag set")
	}
}

func TestIdenticalBatchTouchesNothing(t *testing.T) {
	t.Parallel()

	s, rec := newStore(t)
	h := broker.Map{"UserId": "bob", "Priority": 4}
	s.AddHeader(args(1), h, 1)
	rec.Reset()
	s.AddHeader(args(1), h, 2)
	if len(rec.Events) != 0 {
		t.Errorf("identical batch notified: %v", rec.Events)
	}
}

func TestInsertNotifiesExactIndex(t *testing.T) {
	t.Parallel()

	s, rec := newStore(t)
	s.AddHeader(args(1), broker.Map{"UserId": "a"}, 1)
	rec.Reset()
	s.AddHeader(args(2), broker.Map{"UserId": "b"}, 1)

	first := rec.Events[0]
	if first.Kind != itemmodel.AboutToInsert || first.Parent.Valid() || first.First != 1 || first.Last != 1 {
		t.Errorf("first event = %v, want about-to-insert root [1,1]", first)
	}
}

func TestSummaryKeyedByMessageID(t *testing.T) {
	t.Parallel()

	s, _ := newStore(t)
	h := broker.Map{"UserId": "bob"}
	s.AddHeader(args(1), h, 1)
	s.AddHeader(args(2), h, 1)
	if s.Len() != 2 {
		t.Errorf("Len() = %d, want 2 summaries with equal labels", s.Len())
	}
}

func TestExpireRenumbers(t *testing.T) {
	t.Parallel()

	s, rec := newStore(t)
	for id := uint64(1); id <= 4; id++ {
		s.AddHeader(args(id), broker.Map{"UserId": "u"}, 1)
	}
	s.AddHeader(args(2), broker.Map{"UserId": "u"}, 2)
	s.AddHeader(args(4), broker.Map{"UserId": "u"}, 2)
	rec.Reset()

	if n := s.Expire(2); n != 2 {
		t.Fatalf("Expire() = %d, want 2", n)
	}
	if s.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", s.Len())
	}
	for row := 0; row < 2; row++ {
		if idx := s.Index(row, 0, itemmodel.Root); idx.Row != row {
			t.Errorf("row %d reports Row %d", row, idx.Row)
		}
	}
	if _, ok := s.Find("1"); ok {
		t.Error("message 1 survived expiry")
	}
	if idx, ok := s.Find("4"); !ok || idx.Row != 1 {
		t.Errorf("Find(4) = %v, %v; want row 1", idx, ok)
	}

	// Message 1 was removed at row 0; message 3 then sat at row 1.
	var removed []int
	for _, e := range rec.Events {
		if e.Kind == itemmodel.AboutToRemove {
			removed = append(removed, e.First)
		}
	}
	if len(removed) != 2 || removed[0] != 0 || removed[1] != 1 {
		t.Errorf("removal rows = %v, want [0 1]", removed)
	}
}

func TestSelectionSignals(t *testing.T) {
	t.Parallel()

	s, _ := newStore(t)
	var selected []itemmodel.Index
	var requests []BodyRequest
	s.OnSummarySelected = func(i itemmodel.Index) { selected = append(selected, i) }
	s.OnBodyRequested = func(r BodyRequest) { requests = append(requests, r) }

	sum := s.AddHeader(args(9), broker.Map{"UserId": "bob", "ContentType": "amqp/map"}, 1)
	body := s.Index(1, 0, sum)

	s.Selected(sum)
	if len(selected) != 1 || selected[0] != sum {
		t.Errorf("summary selections = %v", selected)
	}

	s.Selected(body)
	s.Selected(body)
	if len(requests) != 1 {
		t.Fatalf("body requests = %d, want 1 while fetching", len(requests))
	}
	if requests[0].ContentType != "amqp/map" || requests[0].MessageID != "9" {
		t.Errorf("request = %+v", requests[0])
	}
	if id, _ := requests[0].Args.Uint64("id"); id != 9 {
		t.Errorf("request args = %v", requests[0].Args)
	}

	if !s.SetBodyText(body, "{a:1}") {
		t.Fatal("SetBodyText() = false")
	}
	s.Selected(body)
	if len(requests) != 1 {
		t.Errorf("resolved body refetched on select")
	}
	if got := childTexts(s, body); got[0] != "{a:1}" {
		t.Errorf("display = %q", got[0])
	}
}

func TestSetBodyTextIsContentOnly(t *testing.T) {
	t.Parallel()

	s, rec := newStore(t)
	sum := s.AddHeader(args(1), broker.Map{"ContentType": "text/plain"}, 1)
	body := s.Index(0, 0, sum)
	rec.Reset()

	s.SetBodyText(body, "payload")
	kinds := rec.Kinds()
	if len(kinds) != 1 || kinds[0] != itemmodel.Changed {
		t.Errorf("SetBodyText() notified %v, want one change", kinds)
	}
	if s.FetchState(body) != Resolved {
		t.Errorf("FetchState() = %v, want resolved", s.FetchState(body))
	}
}

func TestExpandedBodyRefetchesOnChange(t *testing.T) {
	t.Parallel()

	s, _ := newStore(t)
	var requests int
	s.OnBodyRequested = func(BodyRequest) { requests++ }

	sum := s.AddHeader(args(1), broker.Map{"ContentLength": 5}, 1)
	body := s.Index(0, 0, sum)
	s.SetExpanded(body, true)
	if requests != 1 {
		t.Fatalf("expanding requested %d fetches, want 1", requests)
	}
	s.SetBodyText(body, "hello")

	s.AddHeader(args(1), broker.Map{"ContentLength": 5}, 2)
	if requests != 1 {
		t.Errorf("unchanged body refetched")
	}

	s.AddHeader(args(1), broker.Map{"ContentLength": 7}, 3)
	if requests != 2 {
		t.Errorf("changed expanded body requests = %d, want 2", requests)
	}
	if s.FetchState(body) != Fetching {
		t.Errorf("FetchState() = %v, want fetching", s.FetchState(body))
	}
}

func TestCollapsedBodyResetsOnChange(t *testing.T) {
	t.Parallel()

	s, _ := newStore(t)
	var requests int
	s.OnBodyRequested = func(BodyRequest) { requests++ }

	sum := s.AddHeader(args(1), broker.Map{"ContentLength": 5}, 1)
	body := s.Index(0, 0, sum)
	s.Selected(body)
	s.SetBodyText(body, "hello")

	s.AddHeader(args(1), broker.Map{"ContentLength": 9}, 2)
	if requests != 1 {
		t.Errorf("collapsed body refetched automatically")
	}
	if s.FetchState(body) != Placeholder {
		t.Errorf("FetchState() = %v, want placeholder", s.FetchState(body))
	}
	if got := childTexts(s, body); got[0] != DefaultPlaceholder {
		t.Errorf("display = %q, want placeholder", got[0])
	}
}

func TestBodyChangedWhileFetching(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		expanded     bool
		wantRequests int
		wantState    FetchState
	}{
		{"expanded refetches after the stale reply", true, 2, Fetching},
		{"collapsed returns to placeholder", false, 1, Placeholder},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s, _ := newStore(t)
			var requests int
			s.OnBodyRequested = func(BodyRequest) { requests++ }

			sum := s.AddHeader(args(1), broker.Map{"ContentLength": 5}, 1)
			body := s.Index(0, 0, sum)
			if tt.expanded {
				s.SetExpanded(body, true)
			} else {
				s.Selected(body)
			}

			s.AddHeader(args(1), broker.Map{"ContentLength": 7}, 2)
			if requests != 1 {
				t.Fatalf("requests while fetching = %d, want 1", requests)
			}

			s.SetBodyText(body, "old")
			if requests != tt.wantRequests {
				t.Errorf("requests = %d, want %d", requests, tt.wantRequests)
			}
			if s.FetchState(body) != tt.wantState {
				t.Errorf("FetchState() = %v, want %v", s.FetchState(body), tt.wantState)
			}
			if got := childTexts(s, body); got[0] != DefaultPlaceholder {
				t.Errorf("display = %q, want placeholder", got[0])
			}

			if tt.expanded {
				s.SetBodyText(body, "new")
				if got := childTexts(s, body); got[0] != "new" {
					t.Errorf("display = %q, want %q", got[0], "new")
				}
			}
		})
	}
}

func TestEmptyBodyLabel(t *testing.T) {
	t.Parallel()

	s, _ := newStore(t)
	sum := s.AddHeader(args(1), broker.Map{"UserId": "bob"}, 1)
	body := s.Index(1, 0, sum)
	if got := s.Data(body); got != DefaultEmptyBody {
		t.Errorf("empty body label = %q, want %q", got, DefaultEmptyBody)
	}
}

func TestClear(t *testing.T) {
	t.Parallel()

	s, rec := newStore(t)
	s.AddHeader(args(1), broker.Map{"UserId": "a"}, 1)
	s.AddHeader(args(2), broker.Map{"UserId": "b"}, 1)
	rec.Reset()

	s.Clear()
	if s.Len() != 0 {
		t.Errorf("Len() = %d after Clear", s.Len())
	}
	if len(rec.Events) != 2 || rec.Events[0].First != 0 || rec.Events[0].Last != 1 {
		t.Errorf("Clear() events = %v", rec.Events)
	}

	rec.Reset()
	s.Clear()
	if len(rec.Events) != 0 {
		t.Errorf("clearing an empty tree notified: %v", rec.Events)
	}
}

func TestStaleIndexIgnored(t *testing.T) {
	t.Parallel()

	s, _ := newStore(t)
	sum := s.AddHeader(args(1), broker.Map{"ContentType": "x"}, 1)
	body := s.Index(0, 0, sum)
	s.Clear()

	if s.SetBodyText(body, "late") {
		t.Error("SetBodyText() on a cleared node reported success")
	}
	s.Selected(body)
	if s.Args(body) != nil {
		t.Error("Args() of a cleared node is not nil")
	}
}

func TestArgsFromAnyLevel(t *testing.T) {
	t.Parallel()

	s, _ := newStore(t)
	sum := s.AddHeader(args(3), broker.Map{"UserId": "x", "ContentType": "y"}, 1)
	body := s.Index(1, 0, sum)
	display := s.Index(0, 0, body)
	if id, _ := s.Args(display).Uint64("id"); id != 3 {
		t.Errorf("Args(display) id = %d, want 3", id)
	}
}

func TestLines(t *testing.T) {
	t.Parallel()

	s, _ := newStore(t)
	sum := s.AddHeader(args(1), broker.Map{"UserId": "bob", "ContentType": "t"}, 1)
	s.AddHeader(args(2), broker.Map{"UserId": "amy"}, 1)

	if n := len(s.Lines()); n != 2 {
		t.Fatalf("collapsed Lines() = %d, want 2", n)
	}
	s.SetExpanded(sum, true)
	lines := s.Lines()
	if len(lines) != 4 {
		t.Fatalf("expanded Lines() = %d, want 4", len(lines))
	}
	if lines[1].Depth != 1 || lines[2].Kind != Body || lines[3].Depth != 0 {
		t.Errorf("lines = %+v", lines)
	}
}
