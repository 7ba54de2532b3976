// Package rangelist parses the DWARF 2 through 4 range lists of
// .debug_ranges.
package rangelist

import (
	"github.com/go-delve/lldwarf/pkg/dwarf/util"
)

// Range is an address range of a range list. Begin and End are absolute,
// they are the values stored in the list plus Base, the base address in
// effect for the entry.
type Range struct {
	Begin, End uint64
	Base       uint64
}

// RawBegin returns the begin address as it was stored in the list.
func (r Range) RawBegin() uint64 { return r.Begin - r.Base }

// RawEnd returns the end address as it was stored in the list.
func (r Range) RawEnd() uint64 { return r.End - r.Base }

// Contains returns true if pc is inside the range.
func (r Range) Contains(pc uint64) bool {
	return pc >= r.Begin && pc < r.End
}

// BaseSelection returns the largest address that fits in addrSize bytes,
// list entries beginning with it are base address selection entries.
func BaseSelection(addrSize int) uint64 {
	return ^uint64(0) >> uint(64-8*addrSize)
}

// Parse parses the range list at the cursor. Base is the base address
// before the first base address selection entry, usually the DW_AT_low_pc
// of the compile unit. Base address selection entries and the terminating
// entry are consumed but not returned.
func Parse(b *util.Buf, addrSize int, base uint64) ([]Range, error) {
	if addrSize < 1 || addrSize > 8 {
		return nil, b.Errorf(util.ErrMalformedHeader, "unsupported address size %d", addrSize)
	}
	baseSelection := BaseSelection(addrSize)

	var r []Range
	for {
		begin, err := b.Uint(addrSize)
		if err != nil {
			return nil, err
		}
		end, err := b.Uint(addrSize)
		if err != nil {
			return nil, err
		}
		switch {
		case begin == 0 && end == 0:
			return r, nil
		case begin == baseSelection:
			base = end
		default:
			r = append(r, Range{Begin: base + begin, End: base + end, Base: base})
		}
	}
}

// Find returns the first range that contains pc.
func Find(ranges []Range, pc uint64) (Range, bool) {
	for _, rng := range ranges {
		if rng.Contains(pc) {
			return rng, true
		}
	}
	return Range{}, false
}
