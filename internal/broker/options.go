package broker

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Options holds a parsed connection or session option string such as
// "{username:guest, password:guest, heartbeat:5}". Keys are case-sensitive;
// values keep their textual form.
type Options map[string]string

// ParseOptions parses the brace-delimited key:value option syntax. An empty
// string yields empty options. Quotes around values are stripped.
func ParseOptions(s string) (Options, error) {
	opts := Options{}
	s = strings.TrimSpace(s)
	if s == "" {
		return opts, nil
	}
	if !strings.HasPrefix(s, "{") || !strings.HasSuffix(s, "}") {
		return nil, fmt.Errorf("options %q: expected {key:value, ...}", s)
	}
	body := strings.TrimSpace(s[1 : len(s)-1])
	if body == "" {
		return opts, nil
	}
	for _, field := range splitTopLevel(body) {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		key, value, ok := strings.Cut(field, ":")
		if !ok {
			return nil, fmt.Errorf("options %q: field %q has no value", s, field)
		}
		key = unquote(strings.TrimSpace(key))
		if key == "" {
			return nil, fmt.Errorf("options %q: empty key", s)
		}
		opts[key] = unquote(strings.TrimSpace(value))
	}
	return opts, nil
}

// splitTopLevel splits on commas not nested inside braces, brackets or quotes.
func splitTopLevel(s string) []string {
	var parts []string
	depth := 0
	var quote rune
	start := 0
	for i, r := range s {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"':
			quote = r
		case r == '{' || r == '[':
			depth++
		case r == '}' || r == ']':
			depth--
		case r == ',' && depth == 0:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}

func unquote(s string) string {
	if len(s) >= 2 {
		if (s[0] == '\'' && s[len(s)-1] == '\'') || (s[0] == '"' && s[len(s)-1] == '"') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// Bool returns the option as a boolean, falling back to def.
func (o Options) Bool(key string, def bool) bool {
	v, ok := o[key]
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(strings.ToLower(v))
	if err != nil {
		return def
	}
	return b
}

// Duration returns the option as a duration. Bare integers are seconds.
func (o Options) Duration(key string, def time.Duration) time.Duration {
	v, ok := o[key]
	if !ok {
		return def
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
