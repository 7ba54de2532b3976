package dwarfbuilder

import (
	"bytes"
	"debug/dwarf"
	"encoding/binary"

	"github.com/go-delve/lldwarf/pkg/dwarf/info"
	"github.com/go-delve/lldwarf/pkg/dwarf/leb128"
)

// Address represents a machine address.
type Address uint64

// Ref is a reference to an entry, relative to the start of the unit.
type Ref uint32

// Expr is a location expression.
type Expr []byte

// Strp is an offset into .debug_str.
type Strp uint32

// SecOffset is an offset into another debug section.
type SecOffset uint32

type tagDescr struct {
	tag dwarf.Tag

	attr     []dwarf.Attr
	form     []info.Form
	implicit []int64
	children bool
}

type tagState struct {
	off int
	tagDescr
}

// TagOpen starts a new DIE, call TagClose after adding all attributes and
// children elements. If name is not empty a DW_AT_name attribute is added.
// Returns the offset of the DIE relative to the start of the unit.
func (b *Builder) TagOpen(tag dwarf.Tag, name string) int {
	if len(b.tagStack) > 0 {
		b.tagStack[len(b.tagStack)-1].children = true
	}
	ts := &tagState{off: b.info.Len()}
	ts.tag = tag
	b.info.WriteByte(0)
	b.tagStack = append(b.tagStack, ts)
	if name != "" {
		b.Attr(dwarf.AttrName, name)
	}

	return ts.off
}

// SetHasChildren sets the current DIE as having children (even if none are added).
func (b *Builder) SetHasChildren() {
	if len(b.tagStack) <= 0 {
		panic("NoChildren with no open tags")
	}
	b.tagStack[len(b.tagStack)-1].children = true
}

// TagClose closes the current DIE.
func (b *Builder) TagClose() {
	if len(b.tagStack) <= 0 {
		panic("TagClose with no open tags")
	}
	tag := b.tagStack[len(b.tagStack)-1]
	abbrev := b.abbrevFor(tag.tagDescr)
	b.info.Bytes()[tag.off] = abbrev
	if tag.children {
		b.info.WriteByte(0)
	}
	b.tagStack = b.tagStack[:len(b.tagStack)-1]
}

func (b *Builder) currentTag() *tagState {
	if len(b.tagStack) <= 0 {
		panic("Attr with no open tags")
	}
	tag := b.tagStack[len(b.tagStack)-1]
	if tag.children {
		panic("Can't add attributes after adding children")
	}
	return tag
}

// Attr adds an attribute to the current DIE.
func (b *Builder) Attr(attr dwarf.Attr, val interface{}) {
	tag := b.currentTag()

	var form info.Form
	switch x := val.(type) {
	case string:
		form = info.DW_FORM_string
		b.info.Write([]byte(x))
		b.info.WriteByte(0)
	case uint8:
		form = info.DW_FORM_data1
		b.info.WriteByte(x)
	case uint16:
		form = info.DW_FORM_data2
		binary.Write(&b.info, binary.LittleEndian, x)
	case uint32:
		form = info.DW_FORM_data4
		binary.Write(&b.info, binary.LittleEndian, x)
	case uint64:
		form = info.DW_FORM_data8
		binary.Write(&b.info, binary.LittleEndian, x)
	case int64:
		form = info.DW_FORM_sdata
		leb128.EncodeSigned(&b.info, x)
	case bool:
		form = info.DW_FORM_flag
		if x {
			b.info.WriteByte(1)
		} else {
			b.info.WriteByte(0)
		}
	case Address:
		form = info.DW_FORM_addr
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], uint64(x))
		b.info.Write(buf[:b.addrSize])
	case Ref:
		form = info.DW_FORM_ref4
		binary.Write(&b.info, binary.LittleEndian, uint32(x))
	case Strp:
		form = info.DW_FORM_strp
		binary.Write(&b.info, binary.LittleEndian, uint32(x))
	case SecOffset:
		form = info.DW_FORM_sec_offset
		binary.Write(&b.info, binary.LittleEndian, uint32(x))
	case Expr:
		form = info.DW_FORM_exprloc
		leb128.EncodeUnsigned(&b.info, uint64(len(x)))
		b.info.Write(x)
	case []byte:
		form = info.DW_FORM_block4
		binary.Write(&b.info, binary.LittleEndian, uint32(len(x)))
		b.info.Write(x)
	default:
		panic("unknown value type")
	}

	tag.attr = append(tag.attr, attr)
	tag.form = append(tag.form, form)
	tag.implicit = append(tag.implicit, 0)
}

// AttrImplicitConst adds a DW_FORM_implicit_const attribute to the current
// DIE, the value is stored in the abbreviation table.
func (b *Builder) AttrImplicitConst(attr dwarf.Attr, val int64) {
	tag := b.currentTag()
	tag.attr = append(tag.attr, attr)
	tag.form = append(tag.form, info.DW_FORM_implicit_const)
	tag.implicit = append(tag.implicit, val)
}

// AttrRaw adds an attribute with an arbitrary form, data must already be
// encoded according to form.
func (b *Builder) AttrRaw(attr dwarf.Attr, form info.Form, data []byte) {
	tag := b.currentTag()
	b.info.Write(data)
	tag.attr = append(tag.attr, attr)
	tag.form = append(tag.form, form)
	tag.implicit = append(tag.implicit, 0)
}

func sameTagDescr(a, b tagDescr) bool {
	if a.tag != b.tag {
		return false
	}
	if len(a.attr) != len(b.attr) {
		return false
	}
	if a.children != b.children {
		return false
	}
	for i := range a.attr {
		if a.attr[i] != b.attr[i] {
			return false
		}
		if a.form[i] != b.form[i] {
			return false
		}
		if a.implicit[i] != b.implicit[i] {
			return false
		}
	}
	return true
}

// abbrevFor returns an abbrev for the given entry description. If no abbrev
// for tag already exist a new one is created.
func (b *Builder) abbrevFor(tag tagDescr) byte {
	for abbrev, descr := range b.abbrevs {
		if sameTagDescr(descr, tag) {
			return byte(abbrev + 1)
		}
	}

	b.abbrevs = append(b.abbrevs, tag)
	return byte(len(b.abbrevs))
}

func (b *Builder) makeAbbrevTable() []byte {
	var abbrev bytes.Buffer

	for i := range b.abbrevs {
		leb128.EncodeUnsigned(&abbrev, uint64(i+1))
		leb128.EncodeUnsigned(&abbrev, uint64(b.abbrevs[i].tag))
		if b.abbrevs[i].children {
			abbrev.WriteByte(0x01)
		} else {
			abbrev.WriteByte(0x00)
		}
		for j := range b.abbrevs[i].attr {
			leb128.EncodeUnsigned(&abbrev, uint64(b.abbrevs[i].attr[j]))
			leb128.EncodeUnsigned(&abbrev, uint64(b.abbrevs[i].form[j]))
			if b.abbrevs[i].form[j] == info.DW_FORM_implicit_const {
				leb128.EncodeSigned(&abbrev, b.abbrevs[i].implicit[j])
			}
		}
		leb128.EncodeUnsigned(&abbrev, 0)
		leb128.EncodeUnsigned(&abbrev, 0)
	}
	abbrev.WriteByte(0)

	return abbrev.Bytes()
}

// AddSubprogram adds a subprogram declaration to debug_info, must call
// TagClose after adding all local variables and parameters.
// Will write an abbrev corresponding to a DW_TAG_subprogram, followed by a
// DW_AT_lowpc and a DW_AT_highpc.
func (b *Builder) AddSubprogram(fnname string, lowpc, highpc uint64) int {
	r := b.TagOpen(dwarf.TagSubprogram, fnname)
	b.Attr(dwarf.AttrLowpc, Address(lowpc))
	b.Attr(dwarf.AttrHighpc, Address(highpc))
	return r
}

// AddVariable adds a new variable entry to debug_info.
// Will write a DW_TAG_variable, followed by a DW_AT_type and a
// DW_AT_location.
func (b *Builder) AddVariable(varname string, typ Ref, loc Expr) int {
	r := b.TagOpen(dwarf.TagVariable, varname)
	b.Attr(dwarf.AttrType, typ)
	b.Attr(dwarf.AttrLocation, loc)
	b.TagClose()
	return r
}

// AddBaseType adds a new base type entry to debug_info.
// Will write a DW_TAG_base_type, followed by a DW_AT_encoding and a
// DW_AT_byte_size.
func (b *Builder) AddBaseType(typename string, encoding uint8, byteSz uint16) int {
	r := b.TagOpen(dwarf.TagBaseType, typename)
	b.Attr(dwarf.AttrEncoding, encoding)
	b.Attr(dwarf.AttrByteSize, byteSz)
	b.TagClose()
	return r
}
