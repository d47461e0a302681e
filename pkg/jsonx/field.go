package jsonx

import (
	"bytes"
	"encoding/json"
)

// Field tracks whether a key appeared in the object, so a missing key can
// be told apart from an explicit zero:
//   - IsSet() == true  => key existed (even if it was null)
//   - IsNull() == true => key existed with value null
type Field[T any] struct {
	set bool
	val *T
}

func (f Field[T]) IsSet() bool  { return f.set }
func (f Field[T]) IsNull() bool { return f.set && f.val == nil }

// Value returns the decoded value, or nil if the key was missing or null.
func (f Field[T]) Value() *T { return f.val }

// Present reports whether the key was set to a non-null value.
func (f Field[T]) Present() bool { return f.val != nil }

func (f *Field[T]) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		f.set, f.val = true, nil
		return nil
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	f.set, f.val = true, &v
	return nil
}
