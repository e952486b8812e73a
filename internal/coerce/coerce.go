// Package coerce converts loosely typed values from decoded JSON/YAML
// documents into Go scalars without failing on unexpected shapes.
package coerce

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

var truthy = map[string]bool{
	"1": true, "true": true, "yes": true, "on": true, "y": true, "enabled": true,
}

var falsy = map[string]bool{
	"0": true, "false": true, "no": true, "off": true, "n": true, "disabled": true, "": true,
}

// Bool interprets v as a boolean. ok is false when v has no boolean reading
// (nil, maps, unrecognized strings).
func Bool(v any) (value bool, ok bool) {
	switch val := v.(type) {
	case bool:
		return val, true
	case string:
		s := strings.ToLower(strings.TrimSpace(val))
		if truthy[s] {
			return true, true
		}
		if falsy[s] {
			return false, true
		}
		return false, false
	case int:
		return val != 0, true
	case int64:
		return val != 0, true
	case float64:
		return val != 0, true
	case uint64:
		return val != 0, true
	default:
		return false, false
	}
}

// Int interprets v as an integer. Floats are truncated; numeric strings are parsed.
func Int(v any) (int64, bool) {
	switch val := v.(type) {
	case int:
		return int64(val), true
	case int32:
		return int64(val), true
	case int64:
		return val, true
	case uint64:
		if val > math.MaxInt64 {
			return 0, false
		}
		return int64(val), true
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return 0, false
		}
		return int64(val), true
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return 0, false
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, true
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			return int64(f), true
		}
		return 0, false
	default:
		return 0, false
	}
}

// String returns v as a trimmed string. Numbers and booleans are formatted.
func String(v any) (string, bool) {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val), true
	case int, int32, int64, uint64, bool:
		return fmt.Sprint(val), true
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	default:
		return "", false
	}
}

// Strings flattens v into a list of non-empty strings. A single string is
// split on commas.
func Strings(v any) []string {
	var out []string
	switch val := v.(type) {
	case nil:
		return nil
	case string:
		for _, part := range strings.Split(val, ",") {
			if s := strings.TrimSpace(part); s != "" {
				out = append(out, s)
			}
		}
	case []string:
		for _, item := range val {
			if s := strings.TrimSpace(item); s != "" {
				out = append(out, s)
			}
		}
	case []any:
		for _, item := range val {
			if s, ok := String(item); ok && s != "" {
				out = append(out, s)
			}
		}
	default:
		if s, ok := String(val); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Ints flattens v into a list of integers, dropping anything non-numeric.
func Ints(v any) []int64 {
	var out []int64
	switch val := v.(type) {
	case nil:
		return nil
	case string:
		for _, part := range strings.Split(val, ",") {
			if n, ok := Int(part); ok {
				out = append(out, n)
			}
		}
	case []int64:
		out = append(out, val...)
	case []int:
		for _, n := range val {
			out = append(out, int64(n))
		}
	case []any:
		for _, item := range val {
			if n, ok := Int(item); ok {
				out = append(out, n)
			}
		}
	default:
		if n, ok := Int(val); ok {
			out = append(out, n)
		}
	}
	return out
}

// Map returns v as a string-keyed map. YAML documents decoded into
// map[any]any are converted key by key.
func Map(v any) (map[string]any, bool) {
	switch val := v.(type) {
	case map[string]any:
		return val, true
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[fmt.Sprint(k)] = item
		}
		return out, true
	default:
		return nil, false
	}
}

// SortedSet sorts and de-duplicates ss in place and returns the result.
func SortedSet(ss []string) []string {
	if len(ss) == 0 {
		return nil
	}
	sort.Strings(ss)
	out := ss[:1]
	for _, s := range ss[1:] {
		if s != out[len(out)-1] {
			out = append(out, s)
		}
	}
	return out
}

// SortedInts sorts and de-duplicates ns in place and returns the result.
func SortedInts(ns []int64) []int64 {
	if len(ns) == 0 {
		return nil
	}
	sort.Slice(ns, func(i, j int) bool { return ns[i] < ns[j] })
	out := ns[:1]
	for _, n := range ns[1:] {
		if n != out[len(out)-1] {
			out = append(out, n)
		}
	}
	return out
}

// Slug lower-cases s and maps every character outside [a-z0-9_-] to '-',
// collapsing runs and trimming leading/trailing dashes.
func Slug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	lastDash := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

// Key sanitizes an identifier the way content-type and role keys are stored:
// lower-case with only [a-z0-9_-] retained.
func Key(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' || r == '-' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Plain deep-converts v so every nested map is map[string]any and every
// list is []any, the shape encoding/json produces.
func Plain(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = Plain(item)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[fmt.Sprint(k)] = Plain(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = Plain(item)
		}
		return out
	case []string:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = item
		}
		return out
	case []map[string]any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = Plain(item)
		}
		return out
	default:
		return val
	}
}
