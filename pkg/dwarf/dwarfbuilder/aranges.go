package dwarfbuilder

import (
	"bytes"
	"encoding/binary"
)

// Arange is a tuple of an address range table.
type Arange struct {
	Segment uint64
	Address uint64
	Length  uint64
}

func putUint(buf *bytes.Buffer, sz int, v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	buf.Write(b[:sz])
}

// Aranges returns a version 2 .debug_aranges set for the unit at
// infoOffset, including the padding that aligns the first tuple and the
// terminating tuple.
func Aranges(infoOffset uint32, addrSize, segSize int, tuples []Arange) []byte {
	var buf bytes.Buffer
	buf.Write([]byte{0, 0, 0, 0})
	binary.Write(&buf, binary.LittleEndian, uint16(2))
	binary.Write(&buf, binary.LittleEndian, infoOffset)
	buf.WriteByte(byte(addrSize))
	buf.WriteByte(byte(segSize))
	for tupleSize := 2 * addrSize; buf.Len()%tupleSize != 0; {
		buf.WriteByte(0)
	}
	for _, t := range append(tuples, Arange{}) {
		putUint(&buf, segSize, t.Segment)
		putUint(&buf, addrSize, t.Address)
		putUint(&buf, addrSize, t.Length)
	}
	r := buf.Bytes()
	binary.LittleEndian.PutUint32(r, uint32(len(r)-4))
	return r
}

// RangeList returns a .debug_ranges list made of the given (begin, end)
// pairs followed by the terminating entry.
func RangeList(addrSize int, pairs ...[2]uint64) []byte {
	var buf bytes.Buffer
	for _, p := range append(pairs, [2]uint64{}) {
		putUint(&buf, addrSize, p[0])
		putUint(&buf, addrSize, p[1])
	}
	return buf.Bytes()
}
