// Bounds checked sequential reading of DWARF data.

package util

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/go-delve/lldwarf/pkg/dwarf/leb128"
)

// Buf is a cursor over an immutable byte buffer. The buffer is never
// written to, the offset only moves forward while reading and always stays
// in [0, len(data)].
//
// After a failed read the position of the cursor is unspecified.
type Buf struct {
	name  string
	data  []byte
	off   int
	order binary.ByteOrder
}

// NewBuf returns a little endian cursor over data starting at off. Name is
// used to describe the buffer in errors, usually it is the name of the
// section data was read from.
func NewBuf(name string, data []byte, off int) (*Buf, error) {
	b := &Buf{name: name, data: data, order: binary.LittleEndian}
	if err := b.Seek(off); err != nil {
		return nil, err
	}
	return b, nil
}

// SetOrder changes the byte order used for fixed size integers.
func (b *Buf) SetOrder(order binary.ByteOrder) {
	b.order = order
}

// Order returns the byte order used for fixed size integers.
func (b *Buf) Order() binary.ByteOrder {
	return b.order
}

// Name returns the name of the buffer.
func (b *Buf) Name() string {
	return b.name
}

// Off returns the current offset.
func (b *Buf) Off() int {
	return b.off
}

// Len returns the number of unread bytes.
func (b *Buf) Len() int {
	return len(b.data) - b.off
}

// Data returns the whole underlying buffer.
func (b *Buf) Data() []byte {
	return b.data
}

// Seek moves the cursor to off.
func (b *Buf) Seek(off int) error {
	if off < 0 || off > len(b.data) {
		return &DecodeError{Name: b.name, Offset: off, Kind: ErrInvalidOffset, Detail: fmt.Sprintf("buffer length is %#x", len(b.data))}
	}
	b.off = off
	return nil
}

// Limit returns a copy of b that can not read past end.
func (b *Buf) Limit(end int) (*Buf, error) {
	if end < b.off || end > len(b.data) {
		return nil, &DecodeError{Name: b.name, Offset: b.off, Kind: ErrInvalidOffset, Detail: fmt.Sprintf("end offset %#x out of range", end)}
	}
	return &Buf{name: b.name, data: b.data[:end], off: b.off, order: b.order}, nil
}

// Errorf returns a *DecodeError of the given kind at the current offset.
func (b *Buf) Errorf(kind error, format string, args ...interface{}) error {
	return b.ErrorfAt(b.off, kind, format, args...)
}

// ErrorfAt returns a *DecodeError of the given kind at off.
func (b *Buf) ErrorfAt(off int, kind error, format string, args ...interface{}) error {
	return &DecodeError{Name: b.name, Offset: off, Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// ReadByte implements io.ByteReader.
func (b *Buf) ReadByte() (byte, error) {
	if b.off >= len(b.data) {
		return 0, b.Errorf(ErrEOF, "reading byte")
	}
	c := b.data[b.off]
	b.off++
	return c, nil
}

// Bytes returns the next n bytes. The returned slice aliases the
// underlying buffer.
func (b *Buf) Bytes(n uint64, what string) ([]byte, error) {
	if b.off >= len(b.data) && n > 0 {
		return nil, b.Errorf(ErrEOF, "reading %s", what)
	}
	if n > uint64(b.Len()) {
		return nil, b.Errorf(ErrTruncated, "%s needs %d bytes, %d left", what, n, b.Len())
	}
	r := b.data[b.off : b.off+int(n)]
	b.off += int(n)
	return r, nil
}

// Skip advances the cursor by n bytes.
func (b *Buf) Skip(n uint64, what string) error {
	_, err := b.Bytes(n, what)
	return err
}

func (b *Buf) Uint8() (uint8, error) {
	if b.off >= len(b.data) {
		return 0, b.Errorf(ErrEOF, "reading u8")
	}
	c := b.data[b.off]
	b.off++
	return c, nil
}

func (b *Buf) Uint16() (uint16, error) {
	d, err := b.Bytes(2, "u16")
	if err != nil {
		return 0, err
	}
	return b.order.Uint16(d), nil
}

func (b *Buf) Uint32() (uint32, error) {
	d, err := b.Bytes(4, "u32")
	if err != nil {
		return 0, err
	}
	return b.order.Uint32(d), nil
}

func (b *Buf) Uint64() (uint64, error) {
	d, err := b.Bytes(8, "u64")
	if err != nil {
		return 0, err
	}
	return b.order.Uint64(d), nil
}

// Uint reads an unsigned integer of size bytes, size can be 1 through 8.
func (b *Buf) Uint(size int) (uint64, error) {
	switch size {
	case 1:
		v, err := b.Uint8()
		return uint64(v), err
	case 2:
		v, err := b.Uint16()
		return uint64(v), err
	case 4:
		v, err := b.Uint32()
		return uint64(v), err
	case 8:
		return b.Uint64()
	}
	if size <= 0 || size > 8 {
		return 0, b.Errorf(ErrMalformedHeader, "unsupported integer size %d", size)
	}
	d, err := b.Bytes(uint64(size), "integer")
	if err != nil {
		return 0, err
	}
	var v uint64
	if b.order == binary.BigEndian {
		for _, c := range d {
			v = v<<8 | uint64(c)
		}
	} else {
		for i := len(d) - 1; i >= 0; i-- {
			v = v<<8 | uint64(d[i])
		}
	}
	return v, nil
}

// ULEB128 reads an unsigned LEB128 value.
func (b *Buf) ULEB128() (uint64, error) {
	start := b.off
	v, _, err := leb128.DecodeUnsigned(b)
	if err != nil {
		return 0, b.leb128Error(start, err, "ULEB128")
	}
	return v, nil
}

// SLEB128 reads a signed LEB128 value.
func (b *Buf) SLEB128() (int64, error) {
	start := b.off
	v, _, err := leb128.DecodeSigned(b)
	if err != nil {
		return 0, b.leb128Error(start, err, "SLEB128")
	}
	return v, nil
}

func (b *Buf) leb128Error(start int, err error, what string) error {
	if err == leb128.ErrOverflow {
		return b.ErrorfAt(start, ErrOverflow, "%s overflowed 64-bit integer", what)
	}
	return b.ErrorfAt(start, ErrTruncated, "%s is truncated", what)
}

// CString returns the NUL terminated string at the cursor, without the
// terminator, and advances past the NUL. The returned slice aliases the
// underlying buffer.
func (b *Buf) CString() ([]byte, error) {
	if b.off >= len(b.data) {
		return nil, b.Errorf(ErrEOF, "reading string")
	}
	i := bytes.IndexByte(b.data[b.off:], 0)
	if i < 0 {
		return nil, b.Errorf(ErrUnterminated, "")
	}
	s := b.data[b.off : b.off+i]
	b.off += i + 1
	return s, nil
}

// InitialLength reads the initial length field of a unit header. If the
// first four bytes are 0xffffffff the unit uses the 64-bit DWARF format and
// the real length follows as an 8 byte value.
func (b *Buf) InitialLength() (length uint64, dwarf64 bool, err error) {
	l32, err := b.Uint32()
	if err != nil {
		return 0, false, err
	}
	if l32 == 0xffffffff {
		length, err = b.Uint64()
		return length, true, err
	}
	if l32 >= 0xfffffff0 {
		return 0, false, b.ErrorfAt(b.off-4, ErrMalformedHeader, "reserved initial length %#x", l32)
	}
	return uint64(l32), false, nil
}

// Offset reads a section offset, 8 bytes long for 64-bit DWARF and 4 bytes
// long otherwise.
func (b *Buf) Offset(dwarf64 bool) (uint64, error) {
	if dwarf64 {
		return b.Uint64()
	}
	v, err := b.Uint32()
	return uint64(v), err
}

// OffsetSize returns the size of a section offset.
func OffsetSize(dwarf64 bool) int {
	if dwarf64 {
		return 8
	}
	return 4
}
