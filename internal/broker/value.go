package broker

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// Map is a loosely typed property or argument map as carried on the wire.
// Numbers may arrive as any Go numeric type or json.Number; nested maps and
// lists keep their decoded form. Accessors treat missing or malformed fields
// as absence rather than failure.
type Map map[string]any

// Has reports whether key is present.
func (m Map) Has(key string) bool {
	_, ok := m[key]
	return ok
}

// String returns the value at key rendered as text, or "" when absent.
func (m Map) String(key string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	return FormatValue(v)
}

// Uint64 returns the value at key as an unsigned integer.
func (m Map) Uint64(key string) (uint64, bool) {
	v, ok := m[key]
	if !ok {
		return 0, false
	}
	return ToUint64(v)
}

// Bool returns the value at key as a boolean; absent or malformed is false.
func (m Map) Bool(key string) bool {
	switch v := m[key].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	default:
		n, ok := ToUint64(v)
		return ok && n != 0
	}
}

// Map returns the nested map at key, or nil.
func (m Map) Map(key string) Map {
	return AsMap(m[key])
}

// List returns the nested list at key, or nil.
func (m Map) List(key string) []any {
	switch v := m[key].(type) {
	case []any:
		return v
	case []uint64:
		out := make([]any, len(v))
		for i, n := range v {
			out[i] = n
		}
		return out
	default:
		return nil
	}
}

// Keys returns the map keys in sorted order.
func (m Map) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a shallow copy.
func (m Map) Clone() Map {
	if m == nil {
		return nil
	}
	out := make(Map, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// With returns a copy of m with key set to value.
func (m Map) With(key string, value any) Map {
	out := m.Clone()
	if out == nil {
		out = Map{}
	}
	out[key] = value
	return out
}

// AsMap converts a decoded nested value into a Map, or nil.
func AsMap(v any) Map {
	switch t := v.(type) {
	case Map:
		return t
	case map[string]any:
		return Map(t)
	default:
		return nil
	}
}

// ToUint64 converts numeric representations to uint64.
func ToUint64(v any) (uint64, bool) {
	switch n := v.(type) {
	case uint64:
		return n, true
	case uint32:
		return uint64(n), true
	case uint:
		return uint64(n), true
	case int:
		if n < 0 {
			return 0, false
		}
		return uint64(n), true
	case int64:
		if n < 0 {
			return 0, false
		}
		return uint64(n), true
	case int32:
		if n < 0 {
			return 0, false
		}
		return uint64(n), true
	case float64:
		if n < 0 || math.IsNaN(n) {
			return 0, false
		}
		return uint64(n), true
	case json.Number:
		u, err := strconv.ParseUint(n.String(), 10, 64)
		if err != nil {
			f, ferr := n.Float64()
			if ferr != nil || f < 0 {
				return 0, false
			}
			return uint64(f), true
		}
		return u, true
	case string:
		u, err := strconv.ParseUint(n, 10, 64)
		return u, err == nil
	default:
		return 0, false
	}
}

// FormatValue renders a scalar the way the console displays it. Whole floats
// print without a fractional part so JSON-decoded counters read naturally.
func FormatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		if t {
			return "True"
		}
		return "False"
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1e15 {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'g', -1, 64)
	case json.Number:
		return t.String()
	case map[string]any:
		return formatMap(Map(t))
	case Map:
		return formatMap(t)
	case []any:
		parts := make([]string, len(t))
		for i, e := range t {
			parts[i] = FormatValue(e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return fmt.Sprint(t)
	}
}

func formatMap(m Map) string {
	parts := make([]string, 0, len(m))
	for _, k := range m.Keys() {
		parts = append(parts, k+":"+FormatValue(m[k]))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Equal compares two values after normalising numeric representations.
func Equal(a, b any) bool {
	if reflect.DeepEqual(a, b) {
		return true
	}
	return FormatValue(a) == FormatValue(b)
}
