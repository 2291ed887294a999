// Package transcode renames mapping keys between the wire naming convention
// (snake_case) and the in-memory convention (camelCase). Only keys are
// renamed; leaf values pass through untouched.
package transcode

import "strings"

// SnakeToCamel collapses every underscore followed by a lowercase letter into
// the uppercase form of that letter.
func SnakeToCamel(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '_' && i+1 < len(s) && s[i+1] >= 'a' && s[i+1] <= 'z' {
			b.WriteByte(s[i+1] - 'a' + 'A')
			i++
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// CamelToSnake is the exact inverse of SnakeToCamel for the keys used by this
// system: every uppercase letter becomes an underscore plus its lowercase form.
func CamelToSnake(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 4)
	for i := 0; i < len(s); i++ {
		if s[i] >= 'A' && s[i] <= 'Z' {
			b.WriteByte('_')
			b.WriteByte(s[i] - 'A' + 'a')
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// WireToMemory recursively renames every mapping key in v from snake_case to
// camelCase. Sequences are transcoded element-wise, scalars and nil pass
// through unchanged.
func WireToMemory(v any) any {
	return mapKeys(v, SnakeToCamel)
}

// MemoryToWire recursively renames every mapping key in v from camelCase to
// snake_case.
func MemoryToWire(v any) any {
	return mapKeys(v, CamelToSnake)
}

func mapKeys(v any, rename func(string) string) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			out[rename(k)] = mapKeys(inner, rename)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = mapKeys(inner, rename)
		}
		return out
	default:
		return v
	}
}
