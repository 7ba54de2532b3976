package info

import (
	"github.com/go-delve/lldwarf/pkg/dwarf/util"
)

// UnitHeader is the header of a unit in .debug_info (or .debug_types).
type UnitHeader struct {
	// Offset is the offset of the header in the buffer it was parsed from.
	Offset int
	// HeaderSize is the size of the header, the first DIE of the unit
	// starts at Offset+HeaderSize.
	HeaderSize int

	UnitLength   uint64
	Dwarf64      bool
	Version      uint16
	UnitType     uint8 // zero before DWARF 5
	AbbrevOffset uint64
	AddressSize  uint8

	// DWOID is set for DW_UT_skeleton and DW_UT_split_compile units.
	DWOID uint64
	// TypeSignature and TypeOffset are set for DW_UT_type and
	// DW_UT_split_type units.
	TypeSignature uint64
	TypeOffset    uint64
}

// End returns the offset immediately after the unit.
func (h *UnitHeader) End() int {
	return h.Offset + h.initialLengthSize() + int(h.UnitLength)
}

func (h *UnitHeader) initialLengthSize() int {
	if h.Dwarf64 {
		return 12
	}
	return 4
}

// ParseUnitHeader parses a compilation unit header.
func ParseUnitHeader(b *util.Buf) (*UnitHeader, error) {
	h := &UnitHeader{Offset: b.Off()}

	var err error
	h.UnitLength, h.Dwarf64, err = b.InitialLength()
	if err != nil {
		return nil, err
	}
	h.Version, err = b.Uint16()
	if err != nil {
		return nil, err
	}
	if h.Version < 2 || h.Version > 5 {
		return nil, b.ErrorfAt(b.Off()-2, util.ErrMalformedHeader, "unsupported unit version %d", h.Version)
	}

	if h.Version >= 5 {
		if h.UnitType, err = b.Uint8(); err != nil {
			return nil, err
		}
		if h.AddressSize, err = b.Uint8(); err != nil {
			return nil, err
		}
		if h.AbbrevOffset, err = b.Offset(h.Dwarf64); err != nil {
			return nil, err
		}
		switch h.UnitType {
		case DW_UT_skeleton, DW_UT_split_compile:
			if h.DWOID, err = b.Uint64(); err != nil {
				return nil, err
			}
		case DW_UT_type, DW_UT_split_type:
			if h.TypeSignature, err = b.Uint64(); err != nil {
				return nil, err
			}
			if h.TypeOffset, err = b.Offset(h.Dwarf64); err != nil {
				return nil, err
			}
		}
	} else {
		if h.AbbrevOffset, err = b.Offset(h.Dwarf64); err != nil {
			return nil, err
		}
		if h.AddressSize, err = b.Uint8(); err != nil {
			return nil, err
		}
	}

	h.HeaderSize = b.Off() - h.Offset
	return h, nil
}
