// Package aranges parses the address range tables of .debug_aranges.
package aranges

import (
	"github.com/go-delve/lldwarf/pkg/dwarf/util"
)

// Header is the header of an address range set.
type Header struct {
	// Offset is the offset of the header in the buffer it was parsed from.
	Offset int

	UnitLength          uint64
	Dwarf64             bool
	Version             uint16
	DebugInfoOffset     uint64
	AddressSize         uint8
	SegmentSelectorSize uint8
}

// End returns the offset immediately after the set.
func (h *Header) End() int {
	if h.Dwarf64 {
		return h.Offset + 12 + int(h.UnitLength)
	}
	return h.Offset + 4 + int(h.UnitLength)
}

// AddressRange is a tuple of an address range table.
type AddressRange struct {
	Segment uint64
	Address uint64
	Length  uint64
}

// Set is an address range set, its header and its table.
type Set struct {
	Header *Header
	Ranges []AddressRange
}

// ParseHeader parses the header of the address range set at the cursor.
func ParseHeader(b *util.Buf) (*Header, error) {
	h := &Header{Offset: b.Off()}

	var err error
	if h.UnitLength, h.Dwarf64, err = b.InitialLength(); err != nil {
		return nil, err
	}
	if h.Version, err = b.Uint16(); err != nil {
		return nil, err
	}
	if h.Version != 2 {
		return nil, b.ErrorfAt(b.Off()-2, util.ErrMalformedHeader, "unsupported address range table version %d", h.Version)
	}
	if h.DebugInfoOffset, err = b.Offset(h.Dwarf64); err != nil {
		return nil, err
	}
	if h.AddressSize, err = b.Uint8(); err != nil {
		return nil, err
	}
	if h.SegmentSelectorSize, err = b.Uint8(); err != nil {
		return nil, err
	}
	return h, nil
}

// ParseTable parses the tuples of an address range table. Before the first
// tuple the cursor is aligned to a multiple of twice the address size,
// measured from base (normally the offset of the set header).
// The terminating tuple is consumed but not returned.
func ParseTable(b *util.Buf, segSize, addrSize int, base int) ([]AddressRange, error) {
	if addrSize < 1 || addrSize > 8 {
		return nil, b.Errorf(util.ErrMalformedHeader, "unsupported address size %d", addrSize)
	}
	if segSize < 0 || segSize > 8 {
		return nil, b.Errorf(util.ErrMalformedHeader, "unsupported segment selector size %d", segSize)
	}

	tupleAlign := 2 * addrSize
	if rem := (b.Off() - base) % tupleAlign; rem != 0 {
		if err := b.Skip(uint64(tupleAlign-rem), "address range table padding"); err != nil {
			return nil, err
		}
	}

	var r []AddressRange
	for {
		var (
			t   AddressRange
			err error
		)
		if segSize > 0 {
			if t.Segment, err = b.Uint(segSize); err != nil {
				return nil, err
			}
		}
		if t.Address, err = b.Uint(addrSize); err != nil {
			return nil, err
		}
		if t.Length, err = b.Uint(addrSize); err != nil {
			return nil, err
		}
		if t == (AddressRange{}) {
			break
		}
		r = append(r, t)
	}
	return r, nil
}

// Parse parses the address range set at the cursor and leaves the cursor
// after the end of the set.
func Parse(b *util.Buf) (*Set, error) {
	h, err := ParseHeader(b)
	if err != nil {
		return nil, err
	}
	if h.End() > len(b.Data()) || h.End() < b.Off() {
		return nil, b.ErrorfAt(h.Offset, util.ErrMalformedHeader, "bad set length %#x", h.UnitLength)
	}
	table, err := b.Limit(h.End())
	if err != nil {
		return nil, err
	}
	ranges, err := ParseTable(table, int(h.SegmentSelectorSize), int(h.AddressSize), h.Offset)
	if err != nil {
		return nil, err
	}
	if err := b.Seek(h.End()); err != nil {
		return nil, err
	}
	return &Set{Header: h, Ranges: ranges}, nil
}

// ParseAll parses every address range set of a .debug_aranges section.
func ParseAll(data []byte) ([]*Set, error) {
	b, err := util.NewBuf(".debug_aranges", data, 0)
	if err != nil {
		return nil, err
	}
	var sets []*Set
	for b.Len() > 0 {
		set, err := Parse(b)
		if err != nil {
			return nil, err
		}
		sets = append(sets, set)
	}
	return sets, nil
}
