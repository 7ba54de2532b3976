package info

import (
	"debug/dwarf"

	"github.com/go-delve/lldwarf/pkg/dwarf/util"
	"github.com/go-delve/lldwarf/pkg/logflags"
)

// Field is a decoded attribute of a DIE.
type Field struct {
	Attr dwarf.Attr
	Form Form
	Val  Value
}

// DIE is a debugging information entry.
type DIE struct {
	// Offset is the offset of the entry in the buffer it was parsed from.
	Offset int
	// CUOffset is the offset of the header of the unit containing the entry.
	CUOffset int
	Tag      dwarf.Tag
	// HasChildren is the children flag of the abbreviation declaration.
	HasChildren bool
	// Attrs are the attributes of the entry in declaration order.
	Attrs []Field
	// Children is nil unless the children of the entry were parsed.
	Children []*DIE
	// End is the offset immediately after the entry. If the children of the
	// entry were parsed End is past the whole subtree, otherwise it is the
	// offset of the first child (if any).
	End int

	parent *DIE
}

// Parent returns the entry containing d, or nil.
func (d *DIE) Parent() *DIE {
	return d.parent
}

// ChildrenParsed reports whether Children holds the children of d.
func (d *DIE) ChildrenParsed() bool {
	return !d.HasChildren || d.Children != nil
}

// Val returns the value of attr. If attr appears more than once the last
// occurrence wins.
func (d *DIE) Val(attr dwarf.Attr) (Value, bool) {
	for i := len(d.Attrs) - 1; i >= 0; i-- {
		if d.Attrs[i].Attr == attr {
			return d.Attrs[i].Val, true
		}
	}
	return Value{}, false
}

// RefOffset returns the offset, in the debug info buffer, of the entry
// referenced by attr. Only references inside the same buffer are resolved
// (ClassReference and ClassRefAddr values).
func (d *DIE) RefOffset(attr dwarf.Attr) (int, bool) {
	v, ok := d.Val(attr)
	if !ok {
		return 0, false
	}
	switch v.Class {
	case ClassReference:
		return d.CUOffset + int(v.U), true
	case ClassRefAddr:
		return int(v.U), true
	}
	return 0, false
}

// ParseDIE parses the entry at the cursor. If the cursor is on a null entry
// the null entry is consumed and nil is returned.
// When recurse is true the children of the entry are parsed too, otherwise
// the cursor is left on the first child and they can be parsed later with
// ParseDIESiblings.
func ParseDIE(cu *UnitHeader, parent *DIE, abbrevs AbbrevTable, cuOffset int, b *util.Buf, recurse bool) (*DIE, error) {
	return parseDIE(cu, parent, abbrevs, cuOffset, b, recurse, depthOf(parent))
}

// MaxDepth is the deepest nesting of entries the parser accepts, the top
// level entries of a unit have depth 0.
const MaxDepth = 1024

func depthOf(parent *DIE) int {
	depth := 0
	for d := parent; d != nil; d = d.parent {
		depth++
	}
	return depth
}

func parseDIE(cu *UnitHeader, parent *DIE, abbrevs AbbrevTable, cuOffset int, b *util.Buf, recurse bool, depth int) (*DIE, error) {
	off := b.Off()
	code, err := b.ULEB128()
	if err != nil {
		return nil, err
	}
	if code == 0 {
		return nil, nil
	}
	if depth > MaxDepth {
		return nil, b.ErrorfAt(off, util.ErrTooDeep, "entry nested %d levels deep", depth)
	}
	decl, ok := abbrevs[code]
	if !ok {
		return nil, b.ErrorfAt(off, util.ErrUnknownAbbrevCode, "code %d", code)
	}

	die := &DIE{
		Offset:      off,
		CUOffset:    cuOffset,
		Tag:         decl.Tag,
		HasChildren: decl.Children,
		Attrs:       make([]Field, 0, len(decl.Fields)),
		parent:      parent,
	}
	for _, spec := range decl.Fields {
		v, form, err := readValue(cu, b, spec.Form, spec.ImplicitConst)
		if err != nil {
			return nil, err
		}
		die.Attrs = append(die.Attrs, Field{Attr: spec.Attr, Form: form, Val: v})
	}
	die.End = b.Off()

	if decl.Children && recurse {
		die.Children, err = parseSiblings(cu, die, abbrevs, cuOffset, b, true, depth+1)
		if err != nil {
			return nil, err
		}
		if die.Children == nil {
			die.Children = []*DIE{}
		}
		die.End = b.Off()
	}
	return die, nil
}

// ParseDIESiblings parses entries at the same depth until a null entry
// (which is consumed) or the end of the buffer.
// When recurse is false the subtree of entries with children is skipped,
// using DW_AT_sibling when available, and their Children field is left nil.
//
// On error no entries are returned.
func ParseDIESiblings(cu *UnitHeader, parent *DIE, abbrevs AbbrevTable, cuOffset int, b *util.Buf, recurse bool) ([]*DIE, error) {
	return parseSiblings(cu, parent, abbrevs, cuOffset, b, recurse, depthOf(parent))
}

func parseSiblings(cu *UnitHeader, parent *DIE, abbrevs AbbrevTable, cuOffset int, b *util.Buf, recurse bool, depth int) ([]*DIE, error) {
	var r []*DIE
	for b.Len() > 0 {
		die, err := parseDIE(cu, parent, abbrevs, cuOffset, b, recurse, depth)
		if err != nil {
			return nil, err
		}
		if die == nil {
			break
		}
		r = append(r, die)
		if recurse || !die.HasChildren {
			continue
		}
		if err := skipChildren(cu, die, abbrevs, cuOffset, b, depth+1); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func skipChildren(cu *UnitHeader, die *DIE, abbrevs AbbrevTable, cuOffset int, b *util.Buf, depth int) error {
	if sib, ok := die.RefOffset(dwarf.AttrSibling); ok && sib > b.Off() {
		return b.Seek(sib)
	}
	_, err := parseSiblings(cu, die, abbrevs, cuOffset, b, true, depth)
	return err
}

// readValue decodes one attribute value of the given form. The returned
// form is the one actually used, which differs from form for
// DW_FORM_indirect.
func readValue(cu *UnitHeader, b *util.Buf, form Form, implicitConst int64) (Value, Form, error) {
	var (
		v   Value
		err error
	)
	switch form {
	case DW_FORM_addr:
		v.Class = ClassAddress
		v.U, err = b.Uint(int(cu.AddressSize))

	case DW_FORM_addrx, DW_FORM_GNU_addr_index:
		v.Class = ClassAddrIndex
		v.U, err = b.ULEB128()
	case DW_FORM_addrx1:
		v.Class = ClassAddrIndex
		v.U, err = b.Uint(1)
	case DW_FORM_addrx2:
		v.Class = ClassAddrIndex
		v.U, err = b.Uint(2)
	case DW_FORM_addrx3:
		v.Class = ClassAddrIndex
		v.U, err = b.Uint(3)
	case DW_FORM_addrx4:
		v.Class = ClassAddrIndex
		v.U, err = b.Uint(4)

	case DW_FORM_block1, DW_FORM_block2, DW_FORM_block4, DW_FORM_block, DW_FORM_exprloc:
		var n uint64
		switch form {
		case DW_FORM_block1:
			n, err = b.Uint(1)
		case DW_FORM_block2:
			n, err = b.Uint(2)
		case DW_FORM_block4:
			n, err = b.Uint(4)
		default:
			n, err = b.ULEB128()
		}
		if err != nil {
			return v, form, err
		}
		v.Class = ClassBlock
		if form == DW_FORM_exprloc {
			v.Class = ClassExprLoc
		}
		v.Bytes, err = b.Bytes(n, form.String())

	case DW_FORM_data1:
		v.Class = ClassConstant
		v.U, err = b.Uint(1)
	case DW_FORM_data2:
		v.Class = ClassConstant
		v.U, err = b.Uint(2)
	case DW_FORM_data4:
		v.Class = ClassConstant
		v.U, err = b.Uint(4)
	case DW_FORM_data8:
		v.Class = ClassConstant
		v.U, err = b.Uint(8)
	case DW_FORM_data16:
		v.Class = ClassData16
		v.Bytes, err = b.Bytes(16, "DW_FORM_data16")
	case DW_FORM_udata:
		v.Class = ClassConstant
		v.U, err = b.ULEB128()
	case DW_FORM_sdata:
		v.Class = ClassSigned
		v.I, err = b.SLEB128()
	case DW_FORM_implicit_const:
		v.Class = ClassSigned
		v.I = implicitConst

	case DW_FORM_flag:
		v.Class = ClassFlag
		v.U, err = b.Uint(1)
	case DW_FORM_flag_present:
		v.Class = ClassFlag
		v.U = 1

	case DW_FORM_string:
		v.Class = ClassString
		v.Bytes, err = b.CString()
	case DW_FORM_strp, DW_FORM_line_strp, DW_FORM_strp_sup, DW_FORM_GNU_strp_alt:
		v.Class = ClassStrOffset
		v.U, err = b.Offset(cu.Dwarf64)
	case DW_FORM_strx, DW_FORM_GNU_str_index:
		v.Class = ClassStrIndex
		v.U, err = b.ULEB128()
	case DW_FORM_strx1:
		v.Class = ClassStrIndex
		v.U, err = b.Uint(1)
	case DW_FORM_strx2:
		v.Class = ClassStrIndex
		v.U, err = b.Uint(2)
	case DW_FORM_strx3:
		v.Class = ClassStrIndex
		v.U, err = b.Uint(3)
	case DW_FORM_strx4:
		v.Class = ClassStrIndex
		v.U, err = b.Uint(4)

	case DW_FORM_ref1:
		v.Class = ClassReference
		v.U, err = b.Uint(1)
	case DW_FORM_ref2:
		v.Class = ClassReference
		v.U, err = b.Uint(2)
	case DW_FORM_ref4:
		v.Class = ClassReference
		v.U, err = b.Uint(4)
	case DW_FORM_ref8:
		v.Class = ClassReference
		v.U, err = b.Uint(8)
	case DW_FORM_ref_udata:
		v.Class = ClassReference
		v.U, err = b.ULEB128()
	case DW_FORM_ref_addr:
		v.Class = ClassRefAddr
		if cu.Version <= 2 {
			v.U, err = b.Uint(int(cu.AddressSize))
		} else {
			v.U, err = b.Offset(cu.Dwarf64)
		}
	case DW_FORM_GNU_ref_alt:
		v.Class = ClassRefAddr
		v.U, err = b.Offset(cu.Dwarf64)
	case DW_FORM_ref_sup4:
		v.Class = ClassRefAddr
		v.U, err = b.Uint(4)
	case DW_FORM_ref_sup8:
		v.Class = ClassRefAddr
		v.U, err = b.Uint(8)
	case DW_FORM_ref_sig8:
		v.Class = ClassRefSig8
		v.U, err = b.Uint(8)

	case DW_FORM_sec_offset:
		v.Class = ClassSecOffset
		v.U, err = b.Offset(cu.Dwarf64)
	case DW_FORM_loclistx:
		v.Class = ClassLocListIndex
		v.U, err = b.ULEB128()
	case DW_FORM_rnglistx:
		v.Class = ClassRangeListIndex
		v.U, err = b.ULEB128()

	case DW_FORM_indirect:
		off := b.Off()
		var f uint64
		f, err = b.ULEB128()
		if err != nil {
			return v, form, err
		}
		if Form(f) == DW_FORM_indirect || Form(f) == DW_FORM_implicit_const {
			return v, form, b.ErrorfAt(off, util.ErrUnknownForm, "%s can not be used with DW_FORM_indirect", Form(f))
		}
		if logflags.DebugInfo() {
			logflags.DebugInfoLogger().WithField("offset", off).Debugf("indirect form resolved to %s", Form(f))
		}
		return readValue(cu, b, Form(f), 0)

	default:
		return v, form, b.Errorf(util.ErrUnknownForm, "%s", form)
	}
	return v, form, err
}
