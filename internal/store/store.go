package store

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
)

// ErrNotFound is returned when no value exists at the requested path.
var ErrNotFound = errors.New("path not found")

// Store is a hierarchical key-value store addressed by slash-separated
// logical paths. Writes are last-writer-wins per path; there are no
// transactions spanning multiple paths.
type Store interface {
	// Get returns the JSON value stored at path.
	Get(ctx context.Context, path string) (json.RawMessage, error)
	// Set writes value at path, replacing any existing value.
	Set(ctx context.Context, path string, value interface{}) error
	// Update merges fields into the object at path, creating it if absent.
	Update(ctx context.Context, path string, fields map[string]interface{}) error
	// Push stores value under path with a freshly generated child id and
	// returns that id.
	Push(ctx context.Context, path string, value interface{}) (string, error)
	// Children returns the direct children of path keyed by child id.
	Children(ctx context.Context, path string) (map[string]json.RawMessage, error)
	// Query returns the direct children of path whose value has a string
	// field equal to equals.
	Query(ctx context.Context, path string, field string, equals string) (map[string]json.RawMessage, error)
}

// Join builds a store path from segments.
func Join(segments ...string) string {
	return strings.Join(segments, "/")
}

// childID extracts the direct child id of parent from a full path, or ""
// when the path is not a direct child.
func childID(parent, path string) string {
	prefix := parent + "/"
	if !strings.HasPrefix(path, prefix) {
		return ""
	}
	rest := strings.TrimPrefix(path, prefix)
	if rest == "" || strings.Contains(rest, "/") {
		return ""
	}
	return rest
}

// fieldEquals reports whether the JSON object raw has a string field with
// the given value.
func fieldEquals(raw json.RawMessage, field, equals string) bool {
	var obj map[string]interface{}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return false
	}
	s, ok := obj[field].(string)
	return ok && s == equals
}
