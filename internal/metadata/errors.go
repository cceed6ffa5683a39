package metadata

import "errors"

var (
	// ErrEmptyName is returned when a lookup is given an empty name.
	ErrEmptyName = errors.New("metadata: empty name")

	// ErrUnknownLayout is returned when attribute bits match no known value.
	ErrUnknownLayout = errors.New("metadata: unrecognised attribute bit pattern")
)
