package queuetable

import (
	"encoding/json"
	"testing"

	"github.com/theirongolddev/qview/internal/broker"
	"github.com/theirongolddev/qview/internal/itemmodel"
)

func queue(name string, props broker.Map) broker.Data {
	p := broker.Map{"name": name}
	for k, v := range props {
		p[k] = v
	}
	return broker.Data{
		Addr:       broker.DataAddr{Agent: "broker", Name: "org.apache.qpid.broker:queue:" + name},
		Properties: p,
	}
}

func TestUpdateKeepsSingleRow(t *testing.T) {
	t.Parallel()

	tbl := New(nil, false)
	rec := &itemmodel.Recorder{}
	tbl.Subscribe(rec)

	tbl.AddOrUpdate(queue("q1", broker.Map{"msgDepth": uint64(3)}), 1)
	tbl.AddOrUpdate(queue("q1", broker.Map{"msgDepth": uint64(5)}), 2)

	if got := tbl.Len(); got != 1 {
		t.Fatalf("Len() = %d, want 1", got)
	}
	if got := tbl.Cell(0, 2); got != "5" {
		t.Errorf("Cell(0, 2) = %q, want %q", got, "5")
	}
	r, _ := tbl.Row(0)
	if r.Epoch != 2 {
		t.Errorf("Epoch = %d, want 2", r.Epoch)
	}

	want := []itemmodel.EventKind{itemmodel.AboutToInsert, itemmodel.Inserted, itemmodel.Changed}
	got := rec.Kinds()
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event[%d] = %v, want %v", i, got[i], want[i])
		}
	}
	changed := rec.Events[2]
	if changed.TopLeft.Column != 0 || changed.BottomRight.Column != len(tbl.Columns())-1 {
		t.Errorf("changed range = %v..%v, want full row", changed.TopLeft, changed.BottomRight)
	}
}

func TestInvalidObjectIgnored(t *testing.T) {
	t.Parallel()

	tbl := New(nil, true)
	tbl.AddOrUpdate(broker.Data{Properties: broker.Map{"name": "q"}}, 1)
	if got := tbl.Len(); got != 0 {
		t.Errorf("Len() = %d, want 0", got)
	}
}

func TestIsSystemQueue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		attrs broker.Map
		want  bool
	}{
		{"plain", broker.Map{}, false},
		{"exclusive", broker.Map{"exclusive": true}, true},
		{"management argument", broker.Map{"arguments": map[string]any{"management": 1}}, true},
		{"arguments without management", broker.Map{"arguments": map[string]any{"x": 1}, "exclusive": true}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsSystemQueue(tt.attrs); got != tt.want {
				t.Errorf("IsSystemQueue(%v) = %v, want %v", tt.attrs, got, tt.want)
			}
		})
	}
}

func TestHiddenSystemQueuesSkipped(t *testing.T) {
	t.Parallel()

	tbl := New(nil, false)
	tbl.AddOrUpdate(queue("sys", broker.Map{"exclusive": true}), 1)
	tbl.AddOrUpdate(queue("app", nil), 1)

	if got := tbl.Len(); got != 1 {
		t.Fatalf("Len() = %d, want 1", got)
	}
	if _, ok := tbl.Find("sys"); ok {
		t.Error("system queue added while hidden")
	}
}

func TestShowSystemDoesNotRestoreRows(t *testing.T) {
	t.Parallel()

	tbl := New(nil, true)
	tbl.AddOrUpdate(queue("sys", broker.Map{"exclusive": true}), 1)
	tbl.AddOrUpdate(queue("app", nil), 1)

	tbl.ShowSystem(false)
	if got := tbl.Len(); got != 1 {
		t.Fatalf("Len() after hide = %d, want 1", got)
	}

	tbl.ShowSystem(true)
	if got := tbl.Len(); got != 1 {
		t.Errorf("Len() after show = %d, want 1", got)
	}

	tbl.AddOrUpdate(queue("sys", broker.Map{"exclusive": true}), 2)
	if got := tbl.Len(); got != 2 {
		t.Errorf("Len() after next batch = %d, want 2", got)
	}
}

func TestRefreshRemovesStaleRows(t *testing.T) {
	t.Parallel()

	tbl := New(nil, true)
	for _, name := range []string{"a", "b", "c", "d"} {
		tbl.AddOrUpdate(queue(name, nil), 1)
	}
	tbl.AddOrUpdate(queue("b", nil), 2)
	tbl.AddOrUpdate(queue("d", nil), 2)

	rec := &itemmodel.Recorder{}
	tbl.Subscribe(rec)

	if got := tbl.Refresh(2); got != 2 {
		t.Fatalf("Refresh(2) = %d, want 2", got)
	}
	var rows []int
	for _, e := range rec.Events {
		if e.Kind == itemmodel.Removed {
			rows = append(rows, e.First)
		}
	}
	if len(rows) != 2 || rows[0] != 0 || rows[1] != 1 {
		t.Errorf("removed rows = %v, want [0 1]", rows)
	}
	if i, ok := tbl.Find("d"); !ok || i != 1 {
		t.Errorf("Find(d) = %d, %v, want 1, true", i, ok)
	}
}

func TestClear(t *testing.T) {
	t.Parallel()

	tbl := New(nil, true)
	tbl.Clear()
	tbl.AddOrUpdate(queue("a", nil), 1)
	tbl.AddOrUpdate(queue("b", nil), 1)

	rec := &itemmodel.Recorder{}
	tbl.Subscribe(rec)
	tbl.Clear()

	if got := tbl.Len(); got != 0 {
		t.Errorf("Len() = %d, want 0", got)
	}
	if got := rec.Count(itemmodel.Removed); got != 1 {
		t.Errorf("Removed events = %d, want 1", got)
	}
}

func TestFormatCell(t *testing.T) {
	t.Parallel()

	attrs := broker.Map{
		"name":      "q1",
		"durable":   true,
		"msgDepth":  json.Number("12"),
		"byteDepth": float64(3 * 1024 * 1024),
		"arguments": map[string]any{"x": 1},
		"bindings":  []any{"a"},
	}
	tests := []struct {
		col  Column
		want string
	}{
		{Column{Name: "name"}, "q1"},
		{Column{Name: "durable"}, "True"},
		{Column{Name: "msgDepth", Format: FormatNumeric}, "12"},
		{Column{Name: "byteDepth", Format: FormatBytes}, "3M"},
		{Column{Name: "arguments"}, "<map>"},
		{Column{Name: "bindings"}, "<list>"},
		{Column{Name: "missing"}, Missing},
	}
	for _, tt := range tests {
		if got := FormatCell(tt.col, attrs); got != tt.want {
			t.Errorf("FormatCell(%s) = %q, want %q", tt.col.Name, got, tt.want)
		}
	}
}

func TestFormatBytesValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   uint64
		want string
	}{
		{0, "0 "},
		{512, "512 "},
		{1024, "1K"},
		{2047, "1K"},
		{5 << 30, "5G"},
	}
	for _, tt := range tests {
		if got := FormatBytesValue(tt.in); got != tt.want {
			t.Errorf("FormatBytesValue(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFiltered(t *testing.T) {
	t.Parallel()

	tbl := New(nil, true)
	for _, name := range []string{"orders", "Payments", "audit"} {
		tbl.AddOrUpdate(queue(name, nil), 1)
	}

	if got := tbl.Filtered(""); len(got) != 3 {
		t.Errorf("Filtered(\"\") = %v, want 3 rows", got)
	}
	got := tbl.Filtered("PAY")
	if len(got) != 1 || got[0] != 1 {
		t.Errorf("Filtered(PAY) = %v, want [1]", got)
	}
}
