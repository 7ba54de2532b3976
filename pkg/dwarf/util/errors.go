package util

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the parsers in pkg/dwarf is a
// *DecodeError wrapping exactly one of these, test for them with errors.Is.
var (
	ErrTruncated           = errors.New("truncated")
	ErrOverflow            = errors.New("integer overflow")
	ErrUnterminated        = errors.New("unterminated string")
	ErrEOF                 = errors.New("unexpected end of buffer")
	ErrUnknownAbbrevCode   = errors.New("unknown abbreviation code")
	ErrDuplicateAbbrevCode = errors.New("duplicate abbreviation code")
	ErrUnknownForm         = errors.New("unknown attribute form")
	ErrMalformedHeader     = errors.New("malformed header")
	ErrInvalidOffset       = errors.New("invalid offset")
	ErrTooDeep             = errors.New("entries nested too deeply")
)

// DecodeError describes a failure to decode a DWARF construct.
type DecodeError struct {
	Name   string // section or construct being decoded
	Offset int    // offset into the buffer where the failure was detected
	Kind   error
	Detail string
}

func (e *DecodeError) Error() string {
	s := fmt.Sprintf("decoding dwarf section %s at offset %#x: %v", e.Name, e.Offset, e.Kind)
	if e.Detail != "" {
		s += ": " + e.Detail
	}
	return s
}

func (e *DecodeError) Unwrap() error {
	return e.Kind
}
