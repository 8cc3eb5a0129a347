package headertree

import (
	"sort"

	"github.com/theirongolddev/qview/internal/broker"
)

// Classification decides where each header attribute is shown.
//
// Summary attributes are promoted into the message's top-level label, in
// the order listed. Body attributes are grouped under the Body node. Every
// other attribute gets a Detail node of its own. An attribute may be both a
// summary attribute and a body or detail attribute.
type Classification struct {
	Summary []string
	Body    []string
}

// DefaultClassification returns the stock attribute grouping.
func DefaultClassification() Classification {
	return Classification{
		Summary: []string{"UserId", "ContentLength", "ContentType", "MessageId"},
		Body:    []string{"ContentLength", "ContentType", "ContentEncoding"},
	}
}

// Attr is one header attribute.
type Attr struct {
	Key   string
	Value any
}

type partition struct {
	summary []Attr
	body    []Attr
	details []Attr
}

func (c Classification) partition(header broker.Map) partition {
	var p partition
	for _, key := range header.Keys() {
		a := Attr{Key: key, Value: header[key]}
		if contains(c.Body, key) {
			p.body = append(p.body, a)
		} else {
			p.details = append(p.details, a)
		}
	}
	for _, key := range c.Summary {
		if v, ok := header[key]; ok {
			p.summary = append(p.summary, Attr{Key: key, Value: v})
		}
	}
	return p
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// keySet identifies a Detail or Body node by the names of its attributes.
func keySet(attrs []Attr) string {
	names := make([]string, len(attrs))
	for i, a := range attrs {
		names[i] = a.Key
	}
	sort.Strings(names)
	key := ""
	for i, n := range names {
		if i > 0 {
			key += "\x00"
		}
		key += n
	}
	return key
}

func sameValues(a, b []Attr) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Key != b[i].Key || !broker.Equal(a[i].Value, b[i].Value) {
			return false
		}
	}
	return true
}
