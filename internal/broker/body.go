package broker

import (
	"encoding/json"
	"strings"

	"github.com/charmbracelet/glamour"
)

// Content types with structured encodings.
const (
	ContentTypeMap      = "amqp/map"
	ContentTypeList     = "amqp/list"
	ContentTypeMarkdown = "text/markdown"
)

// DecodeBody renders a fetched message body for display according to its
// content type. Structured bodies that fail to decode are shown verbatim.
func DecodeBody(body any, contentType string) string {
	switch strings.ToLower(contentType) {
	case ContentTypeMap:
		if m := AsMap(body); m != nil {
			return FormatValue(m)
		}
		if s, ok := body.(string); ok {
			var m map[string]any
			if err := decodeJSON(s, &m); err == nil {
				return FormatValue(Map(m))
			}
			return s
		}
	case ContentTypeList:
		if l, ok := body.([]any); ok {
			return FormatValue(l)
		}
		if s, ok := body.(string); ok {
			var l []any
			if err := decodeJSON(s, &l); err == nil {
				return FormatValue(l)
			}
			return s
		}
	case ContentTypeMarkdown, "text/x-markdown":
		if s, ok := body.(string); ok {
			return renderMarkdown(s)
		}
	}
	return FormatValue(body)
}

// markdownWidth is the layout width for markdown bodies; the tree view
// rewraps to the pane.
const markdownWidth = 100

// renderMarkdown lays out a markdown body as plain text. The output carries
// no escape sequences since it also ends up in exports.
func renderMarkdown(s string) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("notty"),
		glamour.WithWordWrap(markdownWidth),
	)
	if err != nil {
		return s
	}
	out, err := r.Render(s)
	if err != nil {
		return s
	}
	lines := strings.Split(out, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " ")
	}
	return strings.Trim(strings.Join(lines, "\n"), "\n")
}

func decodeJSON(s string, v any) error {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	return dec.Decode(v)
}
