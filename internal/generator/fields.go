package generator

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Field readers for structured generator output. Models drift on types
// (numbers arrive as strings, single values instead of arrays), so every
// reader coerces what it reasonably can and falls back to the zero value.

// Str returns m[key] as a string. Numbers and bools are formatted rather
// than dropped.
func Str(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}

// Num returns m[key] as an int. String digits are parsed; anything else
// yields 0.
func Num(m map[string]any, key string) int {
	switch v := m[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n)
		}
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return 0
}

// StrSlice returns m[key] as a slice of strings. A bare string becomes a
// one-element slice; non-string elements are formatted.
func StrSlice(m map[string]any, key string) []string {
	switch v := m[key].(type) {
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			} else if item != nil {
				out = append(out, fmt.Sprintf("%v", item))
			}
		}
		return out
	case []string:
		return v
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	}
	return nil
}

// Maps returns m[key] as a slice of objects, skipping non-object elements.
func Maps(m map[string]any, key string) []map[string]any {
	items, ok := m[key].([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if obj, ok := item.(map[string]any); ok {
			out = append(out, obj)
		}
	}
	return out
}

// Obj returns m[key] as an object, or nil.
func Obj(m map[string]any, key string) map[string]any {
	obj, _ := m[key].(map[string]any)
	return obj
}
