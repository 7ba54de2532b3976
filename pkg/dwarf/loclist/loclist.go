// Package loclist parses the DWARF 2 through 4 location lists of
// .debug_loc. Location expressions are returned as opaque bytes.
package loclist

import (
	"github.com/go-delve/lldwarf/pkg/dwarf/rangelist"
	"github.com/go-delve/lldwarf/pkg/dwarf/util"
)

// Entry represents a single entry in the loclist section. Begin and End
// are absolute, Base is the base address that was added to them.
type Entry struct {
	Begin, End uint64
	Base       uint64
	Instr      []byte
}

// Parse parses the location list at the cursor. Base is the base address
// before the first base address selection entry, usually the DW_AT_low_pc
// of the compile unit. The returned expressions alias the buffer.
func Parse(b *util.Buf, addrSize int, base uint64) ([]Entry, error) {
	if addrSize < 1 || addrSize > 8 {
		return nil, b.Errorf(util.ErrMalformedHeader, "unsupported address size %d", addrSize)
	}
	baseSelection := rangelist.BaseSelection(addrSize)

	var r []Entry
	for {
		lowpc, err := b.Uint(addrSize)
		if err != nil {
			return nil, err
		}
		highpc, err := b.Uint(addrSize)
		if err != nil {
			return nil, err
		}

		if lowpc == 0 && highpc == 0 {
			return r, nil
		}
		if lowpc == baseSelection {
			base = highpc
			continue
		}

		instrlen, err := b.Uint16()
		if err != nil {
			return nil, err
		}
		instr, err := b.Bytes(uint64(instrlen), "location expression")
		if err != nil {
			return nil, err
		}
		r = append(r, Entry{Begin: base + lowpc, End: base + highpc, Base: base, Instr: instr})
	}
}

// Find returns the entry for the specified PC address.
func Find(entries []Entry, pc uint64) (*Entry, bool) {
	for i := range entries {
		if pc >= entries[i].Begin && pc < entries[i].End {
			return &entries[i], true
		}
	}
	return nil, false
}
