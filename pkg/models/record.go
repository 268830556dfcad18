// Package models defines the data shapes flowing through the pipeline:
// untyped RawRecord values produced by extractors, typed canonical rows
// produced by the transformer and consumed by the dual-sink writer, and
// file-shaped Artifact payloads destined for the object store.
package models

import (
	"fmt"
	"strconv"
)

// RawRecord is an untyped field-name to value mapping as produced by a
// single extractor. Its shape varies by source and it carries no identity
// guarantee; it is discarded after transformation.
type RawRecord map[string]interface{}

// String returns the named field as a string, or "" if absent.
func (r RawRecord) String(key string) string {
	v, ok := r[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// Float returns the named field coerced to float64. The second return
// value reports whether the coercion succeeded.
func (r RawRecord) Float(key string) (float64, bool) {
	v, ok := r[key]
	if !ok || v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// Int returns the named field coerced to int. The second return value
// reports whether the coercion succeeded.
func (r RawRecord) Int(key string) (int, bool) {
	f, ok := r.Float(key)
	if !ok {
		return 0, false
	}
	return int(f), true
}

// Strings returns the named field as a string slice, or nil if absent or
// not a slice.
func (r RawRecord) Strings(key string) []string {
	v, ok := r[key]
	if !ok || v == nil {
		return nil
	}
	switch s := v.(type) {
	case []string:
		return s
	case []interface{}:
		out := make([]string, 0, len(s))
		for _, e := range s {
			out = append(out, fmt.Sprintf("%v", e))
		}
		return out
	default:
		return nil
	}
}

// Has reports whether the named field is present, even if empty.
func (r RawRecord) Has(key string) bool {
	_, ok := r[key]
	return ok
}
