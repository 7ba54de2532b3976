package leb128

import (
	"errors"
	"io"
)

var (
	// ErrOverflow is returned when an encoded value does not fit in 64 bits.
	ErrOverflow = errors.New("LEB128 value overflows 64 bits")
	// ErrTruncated is returned when the input ends before the last byte of
	// an encoded value.
	ErrTruncated = errors.New("LEB128 value is truncated")
)

// DecodeUnsigned decodes an unsigned Little Endian Base 128
// represented number. It returns the value and the number of bytes read.
func DecodeUnsigned(buf io.ByteReader) (uint64, uint32, error) {
	var (
		result uint64
		shift  uint
		length uint32
	)

	for {
		b, err := buf.ReadByte()
		if err != nil {
			return 0, length, ErrTruncated
		}
		length++

		if shift == 63 && b > 1 {
			return 0, length, ErrOverflow
		}
		result |= uint64(b&0x7f) << shift

		// If high order bit is 1.
		if b&0x80 == 0 {
			break
		}

		shift += 7
	}

	return result, length, nil
}

// DecodeSigned decodes a signed Little Endian Base 128
// represented number. It returns the value and the number of bytes read.
func DecodeSigned(buf io.ByteReader) (int64, uint32, error) {
	var (
		b      byte
		err    error
		result int64
		shift  uint
		length uint32
	)

	for {
		b, err = buf.ReadByte()
		if err != nil {
			return 0, length, ErrTruncated
		}
		length++

		if shift == 63 && b != 0 && b != 0x7f {
			return 0, length, ErrOverflow
		}
		result |= int64(b&0x7f) << shift
		shift += 7
		if b&0x80 == 0 {
			break
		}
	}

	if shift < 64 && b&0x40 != 0 {
		result |= -(1 << shift)
	}

	return result, length, nil
}
