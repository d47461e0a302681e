package jsonx

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
)

var (
	ErrEmptyBody    = errors.New("empty body")
	ErrTrailingJSON = errors.New("trailing data")
)

// MaxBody caps how much of a body DecodeStrict reads.
const MaxBody = 1 << 20

// DecodeStrict decodes exactly one JSON value from r into dst. It fails on
// an empty body, unknown fields, type mismatches, and anything after the
// value. It does not check that required keys are present; use Field for
// that.
func DecodeStrict[T any](r io.Reader, dst *T) error {
	body, err := io.ReadAll(io.LimitReader(r, MaxBody))
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return ErrEmptyBody
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return ErrTrailingJSON
	}
	return nil
}
