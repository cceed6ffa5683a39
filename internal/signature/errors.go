package signature

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformed matches every *Error.
	ErrMalformed = errors.New("signature: malformed blob")

	// ErrCompressedRange is returned when encoding a value wider than 29 bits.
	ErrCompressedRange = errors.New("signature: value out of compressed integer range")
)

// Error reports where in a blob decoding failed.
type Error struct {
	Offset  int  // byte offset of the offending byte
	Tag     byte // raw byte at Offset, when one was read
	HasTag  bool
	Message string
}

func (e *Error) Error() string {
	if e.HasTag {
		return fmt.Sprintf("signature: %s at offset %d (byte 0x%02x)", e.Message, e.Offset, e.Tag)
	}
	return fmt.Sprintf("signature: %s at offset %d", e.Message, e.Offset)
}

func (e *Error) Is(target error) bool { return target == ErrMalformed }

func errAt(offset int, tag byte, format string, args ...any) *Error {
	return &Error{Offset: offset, Tag: tag, HasTag: true, Message: fmt.Sprintf(format, args...)}
}

func errEOF(offset int) *Error {
	return &Error{Offset: offset, Message: "unexpected end of signature"}
}
