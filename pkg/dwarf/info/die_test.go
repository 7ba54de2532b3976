package info_test

import (
	"bytes"
	"debug/dwarf"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-delve/lldwarf/pkg/dwarf/dwarfbuilder"
	"github.com/go-delve/lldwarf/pkg/dwarf/info"
	"github.com/go-delve/lldwarf/pkg/dwarf/util"
)

type testUnit struct {
	abbrev, info []byte

	cu, fn, v, bt int
}

// buildTestUnit builds a compile unit containing a subprogram, with one
// local variable, followed by a base type. If sibling is not zero the
// subprogram gets a DW_AT_sibling attribute with that value.
func buildTestUnit(t *testing.T, version uint16, sibling uint32) testUnit {
	t.Helper()
	var u testUnit
	b := dwarfbuilder.New(version, 8)
	u.cu = b.TagOpen(dwarf.TagCompileUnit, "main.c")
	b.Attr(dwarf.AttrLanguage, uint8(0x0c))
	u.fn = b.AddSubprogram("main", 0x1000, 0x1100)
	if sibling != 0 {
		b.Attr(dwarf.AttrSibling, dwarfbuilder.Ref(sibling))
	}
	u.v = b.AddVariable("x", dwarfbuilder.Ref(0), dwarfbuilder.Expr{0x91, 0x10})
	b.TagClose()
	u.bt = b.AddBaseType("int", 5, 4)
	b.TagClose()

	var err error
	u.abbrev, u.info, err = b.Build()
	require.NoError(t, err)
	return u
}

func parseTestHeader(t *testing.T, u testUnit) (*info.UnitHeader, info.AbbrevTable, *util.Buf) {
	t.Helper()
	b := mustBuf(t, u.info, 0)
	hdr, err := info.ParseUnitHeader(b)
	require.NoError(t, err)
	abbrevs, err := info.ParseAbbrevTable(mustBuf(t, u.abbrev, 0))
	require.NoError(t, err)
	return hdr, abbrevs, b
}

func stringVal(t *testing.T, die *info.DIE, attr dwarf.Attr) string {
	t.Helper()
	v, ok := die.Val(attr)
	require.True(t, ok, "missing %s", attr)
	require.Equal(t, info.ClassString, v.Class)
	return string(v.Bytes)
}

func TestParseDIERecursive(t *testing.T) {
	u := buildTestUnit(t, 4, 0)
	hdr, abbrevs, b := parseTestHeader(t, u)
	require.Equal(t, u.cu, b.Off())

	cu, err := info.ParseDIE(hdr, nil, abbrevs, hdr.Offset, b, true)
	require.NoError(t, err)
	require.Equal(t, len(u.info), b.Off())
	require.Equal(t, len(u.info), cu.End)

	require.Equal(t, u.cu, cu.Offset)
	require.Equal(t, dwarf.TagCompileUnit, cu.Tag)
	require.Nil(t, cu.Parent())
	require.True(t, cu.ChildrenParsed())
	require.Equal(t, "main.c", stringVal(t, cu, dwarf.AttrName))
	lang, ok := cu.Val(dwarf.AttrLanguage)
	require.True(t, ok)
	require.Equal(t, info.Value{Class: info.ClassConstant, U: 0x0c}, lang)

	require.Len(t, cu.Children, 2)
	fn, bt := cu.Children[0], cu.Children[1]

	require.Equal(t, u.fn, fn.Offset)
	require.Equal(t, dwarf.TagSubprogram, fn.Tag)
	require.Equal(t, cu, fn.Parent())
	require.Equal(t, "main", stringVal(t, fn, dwarf.AttrName))
	lowpc, _ := fn.Val(dwarf.AttrLowpc)
	require.Equal(t, info.Value{Class: info.ClassAddress, U: 0x1000}, lowpc)
	require.Equal(t, u.bt, fn.End)

	require.Len(t, fn.Children, 1)
	v := fn.Children[0]
	require.Equal(t, u.v, v.Offset)
	require.Equal(t, dwarf.TagVariable, v.Tag)
	require.Equal(t, fn, v.Parent())
	require.False(t, v.HasChildren)
	require.Nil(t, v.Children)
	require.True(t, v.ChildrenParsed())
	loc, _ := v.Val(dwarf.AttrLocation)
	require.Equal(t, info.ClassExprLoc, loc.Class)
	require.Equal(t, []byte{0x91, 0x10}, loc.Bytes)
	typ, ok := v.RefOffset(dwarf.AttrType)
	require.True(t, ok)
	require.Equal(t, 0, typ)

	require.Equal(t, u.bt, bt.Offset)
	require.Equal(t, "int", stringVal(t, bt, dwarf.AttrName))
	size, _ := bt.Val(dwarf.AttrByteSize)
	require.Equal(t, info.Value{Class: info.ClassConstant, U: 4}, size)
}

func TestParseDIENonRecursive(t *testing.T) {
	u := buildTestUnit(t, 4, 0)
	hdr, abbrevs, b := parseTestHeader(t, u)

	cu, err := info.ParseDIE(hdr, nil, abbrevs, hdr.Offset, b, false)
	require.NoError(t, err)
	require.True(t, cu.HasChildren)
	require.Nil(t, cu.Children)
	require.False(t, cu.ChildrenParsed())
	require.Equal(t, u.fn, cu.End)
	require.Equal(t, u.fn, b.Off())

	children, err := info.ParseDIESiblings(hdr, cu, abbrevs, hdr.Offset, b, false)
	require.NoError(t, err)
	require.Len(t, children, 2)
	require.Equal(t, u.fn, children[0].Offset)
	require.Nil(t, children[0].Children)
	require.Equal(t, u.v, children[0].End)
	require.Equal(t, u.bt, children[1].Offset)
	require.Equal(t, cu, children[1].Parent())
	require.Equal(t, 0, b.Len())
}

func TestParseDIESiblingSkip(t *testing.T) {
	// The offsets of the entries do not depend on the value of the sibling
	// attribute, build once to find where the base type ends up.
	first := buildTestUnit(t, 4, 1)
	u := buildTestUnit(t, 4, uint32(first.bt))
	require.Equal(t, first.bt, u.bt)

	// Corrupt the abbreviation code of the variable, it can only be skipped
	// by following DW_AT_sibling.
	u.info[u.v] = 0x7f

	hdr, abbrevs, b := parseTestHeader(t, u)
	_, err := info.ParseDIE(hdr, nil, abbrevs, hdr.Offset, b, false)
	require.NoError(t, err)
	children, err := info.ParseDIESiblings(hdr, nil, abbrevs, hdr.Offset, b, false)
	require.NoError(t, err)
	require.Len(t, children, 2)
	sib, ok := children[0].RefOffset(dwarf.AttrSibling)
	require.True(t, ok)
	require.Equal(t, u.bt, sib)
	require.Equal(t, u.bt, children[1].Offset)

	hdr, abbrevs, b = parseTestHeader(t, u)
	cu, err := info.ParseDIE(hdr, nil, abbrevs, hdr.Offset, b, true)
	require.Nil(t, cu)
	require.True(t, errors.Is(err, util.ErrUnknownAbbrevCode), "got %v", err)
	var derr *util.DecodeError
	require.True(t, errors.As(err, &derr))
	require.Equal(t, u.v, derr.Offset)
}

func TestParseDIENull(t *testing.T) {
	b := mustBuf(t, []byte{0x00, 0x01}, 0)
	die, err := info.ParseDIE(&info.UnitHeader{Version: 4, AddressSize: 8}, nil, info.AbbrevTable{}, 0, b, true)
	require.NoError(t, err)
	require.Nil(t, die)
	require.Equal(t, 1, b.Off())
}

func TestParseDIESingleAttribute(t *testing.T) {
	// code 1, DW_TAG_compile_unit, no children, DW_AT_name DW_FORM_string
	abbrevs, err := info.ParseAbbrevTable(mustBuf(t, []byte{0x01, 0x11, 0x00, 0x03, 0x08, 0x00, 0x00, 0x00}, 0))
	require.NoError(t, err)

	b := mustBuf(t, []byte{0x01, 'a', '.', 'c', 0x00}, 0)
	die, err := info.ParseDIE(&info.UnitHeader{Version: 4, AddressSize: 8}, nil, abbrevs, 0, b, true)
	require.NoError(t, err)
	require.Equal(t, dwarf.TagCompileUnit, die.Tag)
	require.False(t, die.HasChildren)
	require.Nil(t, die.Children)
	require.Len(t, die.Attrs, 1)
	require.Equal(t, dwarf.AttrName, die.Attrs[0].Attr)
	require.Equal(t, info.DW_FORM_string, die.Attrs[0].Form)
	require.Equal(t, "a.c", stringVal(t, die, dwarf.AttrName))
	require.Equal(t, 5, die.End)
	require.Equal(t, 5, b.Off())
}

func TestParseDIEChildrenFlagWithoutChildren(t *testing.T) {
	b := dwarfbuilder.New(4, 8)
	b.TagOpen(dwarf.TagCompileUnit, "empty.c")
	b.SetHasChildren()
	b.TagClose()
	abbrev, data, err := b.Build()
	require.NoError(t, err)

	hdr, abbrevs, buf := parseTestHeader(t, testUnit{abbrev: abbrev, info: data})
	cu, err := info.ParseDIE(hdr, nil, abbrevs, hdr.Offset, buf, true)
	require.NoError(t, err)
	require.True(t, cu.HasChildren)
	require.NotNil(t, cu.Children)
	require.Empty(t, cu.Children)
	require.True(t, cu.ChildrenParsed())
	require.Equal(t, len(data), cu.End)
}

func TestParseDIEForms(t *testing.T) {
	data16 := []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15}

	b := dwarfbuilder.New(5, 8)
	b.TagOpen(dwarf.TagVariable, "")
	b.AttrRaw(dwarf.AttrConstValue, info.DW_FORM_data16, data16)
	b.AttrImplicitConst(dwarf.AttrByteSize, -8)
	b.AttrRaw(dwarf.AttrName, info.DW_FORM_indirect, []byte{byte(info.DW_FORM_string), 'x', 0})
	b.AttrRaw(dwarf.AttrProducer, info.DW_FORM_strx1, []byte{3})
	b.AttrRaw(dwarf.AttrExternal, info.DW_FORM_flag_present, nil)
	b.AttrRaw(dwarf.AttrLinkageName, info.DW_FORM_line_strp, []byte{0x10, 0, 0, 0})
	b.AttrRaw(dwarf.AttrSpecification, info.DW_FORM_ref_addr, []byte{0x44, 0, 0, 0})
	b.AttrRaw(dwarf.AttrType, info.DW_FORM_ref_sig8, []byte{1, 0, 0, 0, 0, 0, 0, 0})
	b.AttrRaw(dwarf.AttrRanges, info.DW_FORM_rnglistx, []byte{0x81, 0x01})
	b.Attr(dwarf.AttrDiscrValue, int64(-129))
	b.TagClose()
	abbrev, data, err := b.Build()
	require.NoError(t, err)

	hdr, abbrevs, buf := parseTestHeader(t, testUnit{abbrev: abbrev, info: data})
	require.Equal(t, uint16(5), hdr.Version)
	die, err := info.ParseDIE(hdr, nil, abbrevs, hdr.Offset, buf, true)
	require.NoError(t, err)
	require.Equal(t, len(data), die.End)

	want := []info.Field{
		{Attr: dwarf.AttrConstValue, Form: info.DW_FORM_data16, Val: info.Value{Class: info.ClassData16, Bytes: data16}},
		{Attr: dwarf.AttrByteSize, Form: info.DW_FORM_implicit_const, Val: info.Value{Class: info.ClassSigned, I: -8}},
		{Attr: dwarf.AttrName, Form: info.DW_FORM_string, Val: info.Value{Class: info.ClassString, Bytes: []byte("x")}},
		{Attr: dwarf.AttrProducer, Form: info.DW_FORM_strx1, Val: info.Value{Class: info.ClassStrIndex, U: 3}},
		{Attr: dwarf.AttrExternal, Form: info.DW_FORM_flag_present, Val: info.Value{Class: info.ClassFlag, U: 1}},
		{Attr: dwarf.AttrLinkageName, Form: info.DW_FORM_line_strp, Val: info.Value{Class: info.ClassStrOffset, U: 0x10}},
		{Attr: dwarf.AttrSpecification, Form: info.DW_FORM_ref_addr, Val: info.Value{Class: info.ClassRefAddr, U: 0x44}},
		{Attr: dwarf.AttrType, Form: info.DW_FORM_ref_sig8, Val: info.Value{Class: info.ClassRefSig8, U: 1}},
		{Attr: dwarf.AttrRanges, Form: info.DW_FORM_rnglistx, Val: info.Value{Class: info.ClassRangeListIndex, U: 129}},
		{Attr: dwarf.AttrDiscrValue, Form: info.DW_FORM_sdata, Val: info.Value{Class: info.ClassSigned, I: -129}},
	}
	require.Equal(t, want, die.Attrs)

	spec, ok := die.RefOffset(dwarf.AttrSpecification)
	require.True(t, ok)
	require.Equal(t, 0x44, spec)
	_, ok = die.RefOffset(dwarf.AttrType)
	require.False(t, ok)
}

func TestParseDIERefAddrSize(t *testing.T) {
	for _, tc := range []struct {
		version uint16
		size    int
	}{{2, 8}, {3, 4}, {4, 4}} {
		b := dwarfbuilder.New(tc.version, 8)
		b.TagOpen(dwarf.TagVariable, "")
		raw := make([]byte, tc.size)
		raw[0] = 0x20
		b.AttrRaw(dwarf.AttrSpecification, info.DW_FORM_ref_addr, raw)
		b.TagClose()
		abbrev, data, err := b.Build()
		require.NoError(t, err)

		hdr, abbrevs, buf := parseTestHeader(t, testUnit{abbrev: abbrev, info: data})
		die, err := info.ParseDIE(hdr, nil, abbrevs, hdr.Offset, buf, true)
		require.NoError(t, err, "version %d", tc.version)
		require.Equal(t, len(data), die.End, "version %d", tc.version)
		off, _ := die.RefOffset(dwarf.AttrSpecification)
		require.Equal(t, 0x20, off)
	}
}

func TestParseDIEDwarf64(t *testing.T) {
	abbrev := []byte{
		0x01, 0x11, 0x00,
		0x10, 0x17, // DW_AT_stmt_list, DW_FORM_sec_offset
		0x47, 0x10, // DW_AT_specification, DW_FORM_ref_addr
		0x00, 0x00,
		0x00,
	}
	data := []byte{
		0xff, 0xff, 0xff, 0xff, 28, 0, 0, 0, 0, 0, 0, 0,
		4, 0,
		0, 0, 0, 0, 0, 0, 0, 0,
		8,
		0x01,
		0x20, 0, 0, 0, 0, 0, 0, 0,
		0x30, 0, 0, 0, 0, 0, 0, 0,
	}
	hdr, abbrevs, b := parseTestHeader(t, testUnit{abbrev: abbrev, info: data})
	require.True(t, hdr.Dwarf64)
	require.Equal(t, len(data), hdr.End())

	die, err := info.ParseDIE(hdr, nil, abbrevs, hdr.Offset, b, true)
	require.NoError(t, err)
	stmt, _ := die.Val(dwarf.AttrStmtList)
	require.Equal(t, info.Value{Class: info.ClassSecOffset, U: 0x20}, stmt)
	spec, _ := die.RefOffset(dwarf.AttrSpecification)
	require.Equal(t, 0x30, spec)
	require.Equal(t, 0, b.Len())
}

func TestParseDIEErrors(t *testing.T) {
	u := buildTestUnit(t, 4, 0)

	t.Run("unknown abbrev code", func(t *testing.T) {
		hdr, abbrevs, _ := parseTestHeader(t, u)
		b := mustBuf(t, []byte{0x7f}, 0)
		die, err := info.ParseDIE(hdr, nil, abbrevs, 0, b, true)
		require.Nil(t, die)
		require.True(t, errors.Is(err, util.ErrUnknownAbbrevCode), "got %v", err)
	})

	t.Run("truncated", func(t *testing.T) {
		hdr, abbrevs, _ := parseTestHeader(t, u)
		b := mustBuf(t, u.info[:u.fn+3], u.cu)
		die, err := info.ParseDIE(hdr, nil, abbrevs, 0, b, true)
		require.Nil(t, die)
		require.True(t, errors.Is(err, util.ErrUnterminated), "got %v", err)

		b = mustBuf(t, u.info[:u.cu+3], u.cu)
		die, err = info.ParseDIE(hdr, nil, abbrevs, 0, b, true)
		require.Nil(t, die)
		require.True(t, errors.Is(err, util.ErrUnterminated), "got %v", err)
	})

	t.Run("unknown form", func(t *testing.T) {
		b := dwarfbuilder.New(4, 8)
		b.TagOpen(dwarf.TagVariable, "")
		b.AttrRaw(dwarf.AttrType, info.Form(0x7e), nil)
		b.TagClose()
		abbrev, data, err := b.Build()
		require.NoError(t, err)
		hdr, abbrevs, buf := parseTestHeader(t, testUnit{abbrev: abbrev, info: data})
		die, err := info.ParseDIE(hdr, nil, abbrevs, 0, buf, true)
		require.Nil(t, die)
		require.True(t, errors.Is(err, util.ErrUnknownForm), "got %v", err)
	})

	t.Run("siblings", func(t *testing.T) {
		hdr, abbrevs, b := parseTestHeader(t, u)
		_, err := info.ParseDIE(hdr, nil, abbrevs, 0, b, false)
		require.NoError(t, err)
		trunc := mustBuf(t, u.info[:u.bt+2], b.Off())
		dies, err := info.ParseDIESiblings(hdr, nil, abbrevs, 0, trunc, false)
		require.Nil(t, dies)
		require.Error(t, err)
	})
}

func TestParseDIEMaxDepth(t *testing.T) {
	// code 1, DW_TAG_lexical_block, has children, no attributes
	abbrevs, err := info.ParseAbbrevTable(mustBuf(t, []byte{0x01, 0x0b, 0x01, 0x00, 0x00, 0x00}, 0))
	require.NoError(t, err)
	hdr := &info.UnitHeader{Version: 4, AddressSize: 8}

	n := info.MaxDepth + 1
	data := append(bytes.Repeat([]byte{0x01}, n), bytes.Repeat([]byte{0x00}, n)...)
	die, err := info.ParseDIE(hdr, nil, abbrevs, 0, mustBuf(t, data, 0), true)
	require.NoError(t, err)
	require.Equal(t, len(data), die.End)

	data = append(bytes.Repeat([]byte{0x01}, n+1), bytes.Repeat([]byte{0x00}, n+1)...)
	die, err = info.ParseDIE(hdr, nil, abbrevs, 0, mustBuf(t, data, 0), true)
	require.Nil(t, die)
	require.True(t, errors.Is(err, util.ErrTooDeep), "got %v", err)
	var derr *util.DecodeError
	require.True(t, errors.As(err, &derr))
	require.Equal(t, n, derr.Offset)

	// the same limit applies when subtrees are parsed only to be skipped
	_, err = info.ParseDIESiblings(hdr, nil, abbrevs, 0, mustBuf(t, data, 0), false)
	require.True(t, errors.Is(err, util.ErrTooDeep), "got %v", err)
}

func TestParseDIEIdempotent(t *testing.T) {
	u := buildTestUnit(t, 5, 0)
	var offsets [2][]int
	for i := range offsets {
		hdr, abbrevs, b := parseTestHeader(t, u)
		cu, err := info.ParseDIE(hdr, nil, abbrevs, hdr.Offset, b, true)
		require.NoError(t, err)
		var walk func(d *info.DIE)
		walk = func(d *info.DIE) {
			offsets[i] = append(offsets[i], d.Offset, d.End, len(d.Attrs))
			for _, c := range d.Children {
				walk(c)
			}
		}
		walk(cu)
	}
	require.Equal(t, offsets[0], offsets[1])
	require.Equal(t, []int{u.cu, len(u.info), 2, u.fn, u.bt, 3, u.v, u.bt - 1, 3, u.bt, len(u.info) - 1, 3}, offsets[0])
}
