// Package dwarfbuilder provides a way to build DWARF sections with
// arbitrary contents.
package dwarfbuilder

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/go-delve/lldwarf/pkg/dwarf/info"
)

// Builder dwarf builder
type Builder struct {
	info     bytes.Buffer
	abbrevs  []tagDescr
	tagStack []*tagState
	version  uint16
	addrSize int
}

// New creates a new DWARF builder for a single compilation unit with the
// given version and address size. The caller must open the top level
// entry.
func New(version uint16, addrSize int) *Builder {
	b := &Builder{version: version, addrSize: addrSize}

	b.info.Write([]byte{0x0, 0x0, 0x0, 0x0}) // length
	binary.Write(&b.info, binary.LittleEndian, version)
	if version >= 5 {
		b.info.WriteByte(info.DW_UT_compile)
		b.info.WriteByte(byte(addrSize))
		b.info.Write([]byte{0x0, 0x0, 0x0, 0x0}) // debug_abbrev_offset
	} else {
		b.info.Write([]byte{0x0, 0x0, 0x0, 0x0}) // debug_abbrev_offset
		b.info.WriteByte(byte(addrSize))
	}

	return b
}

// Build closes b and returns the abbrev and info sections.
func (b *Builder) Build() (abbrev, debugInfo []byte, err error) {
	if len(b.tagStack) > 0 {
		err = fmt.Errorf("unbalanced TagOpen/TagClose %d", len(b.tagStack))
		return
	}

	abbrev = b.makeAbbrevTable()
	debugInfo = b.info.Bytes()
	binary.LittleEndian.PutUint32(debugInfo, uint32(len(debugInfo)-4))

	return
}
