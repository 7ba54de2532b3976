package info

import (
	lru "github.com/hashicorp/golang-lru"

	"github.com/go-delve/lldwarf/pkg/dwarf/util"
)

// DefaultAbbrevCacheSize is the number of abbreviation tables a Walker
// keeps when NewWalker is called with a cache size of zero.
const DefaultAbbrevCacheSize = 64

// Unit is a unit of .debug_info together with its entries.
type Unit struct {
	Header  *UnitHeader
	Abbrevs AbbrevTable
	// Entries are the top level entries of the unit, normally a single
	// DW_TAG_compile_unit entry.
	Entries []*DIE
}

// Walker iterates over all the units of a .debug_info section.
// Abbreviation tables are shared between units so they are cached by
// offset.
type Walker struct {
	info    *util.Buf
	abbrev  []byte
	recurse bool
	cache   *lru.Cache
}

// NewWalker returns a Walker over the units in info, using abbrev as the
// contents of .debug_abbrev. If recurse is false only the top level entry
// of every unit is parsed.
func NewWalker(info, abbrev []byte, recurse bool, cacheSize int) (*Walker, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultAbbrevCacheSize
	}
	cache, err := lru.New(cacheSize)
	if err != nil {
		return nil, err
	}
	b, err := util.NewBuf(".debug_info", info, 0)
	if err != nil {
		return nil, err
	}
	return &Walker{info: b, abbrev: abbrev, recurse: recurse, cache: cache}, nil
}

// Next returns the next unit, or nil after the last one.
func (w *Walker) Next() (*Unit, error) {
	if w.info.Len() == 0 {
		return nil, nil
	}
	hdr, err := ParseUnitHeader(w.info)
	if err != nil {
		return nil, err
	}
	if hdr.End() > len(w.info.Data()) || hdr.End() < w.info.Off() {
		return nil, w.info.ErrorfAt(hdr.Offset, util.ErrMalformedHeader, "unit length %#x exceeds section", hdr.UnitLength)
	}

	abbrevs, err := w.abbrevTable(hdr.AbbrevOffset)
	if err != nil {
		return nil, err
	}

	body, err := w.info.Limit(hdr.End())
	if err != nil {
		return nil, err
	}
	u := &Unit{Header: hdr, Abbrevs: abbrevs}
	if w.recurse {
		u.Entries, err = ParseDIESiblings(hdr, nil, abbrevs, hdr.Offset, body, true)
	} else {
		var die *DIE
		die, err = ParseDIE(hdr, nil, abbrevs, hdr.Offset, body, false)
		if die != nil {
			u.Entries = []*DIE{die}
		}
	}
	if err != nil {
		return nil, err
	}

	if err := w.info.Seek(hdr.End()); err != nil {
		return nil, err
	}
	return u, nil
}

func (w *Walker) abbrevTable(off uint64) (AbbrevTable, error) {
	if t, ok := w.cache.Get(off); ok {
		return t.(AbbrevTable), nil
	}
	if off > uint64(len(w.abbrev)) {
		return nil, &util.DecodeError{Name: ".debug_abbrev", Offset: int(off), Kind: util.ErrInvalidOffset}
	}
	b, err := util.NewBuf(".debug_abbrev", w.abbrev, int(off))
	if err != nil {
		return nil, err
	}
	t, err := ParseAbbrevTable(b)
	if err != nil {
		return nil, err
	}
	w.cache.Add(off, t)
	return t, nil
}
