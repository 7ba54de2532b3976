package info

import (
	"debug/dwarf"

	"github.com/go-delve/lldwarf/pkg/dwarf/util"
)

// AttrSpec is an (attribute, form) pair of an abbreviation declaration.
type AttrSpec struct {
	Attr dwarf.Attr
	Form Form
	// ImplicitConst is the value of the attribute when Form is
	// DW_FORM_implicit_const, such attributes take no space in the DIE.
	ImplicitConst int64
}

// AbbrevDecl is a single abbreviation declaration.
type AbbrevDecl struct {
	Code     uint64
	Tag      dwarf.Tag
	Children bool
	Fields   []AttrSpec
}

// AbbrevTable maps abbreviation codes to their declaration.
type AbbrevTable map[uint64]*AbbrevDecl

// ParseAbbrevTable parses the abbreviation table starting at the cursor,
// it stops after reading a zero code.
func ParseAbbrevTable(b *util.Buf) (AbbrevTable, error) {
	table := make(AbbrevTable)
	for {
		off := b.Off()
		code, err := b.ULEB128()
		if err != nil {
			return nil, err
		}
		if code == 0 {
			break
		}
		if _, dup := table[code]; dup {
			return nil, b.ErrorfAt(off, util.ErrDuplicateAbbrevCode, "code %d", code)
		}

		decl, err := parseAbbrevDecl(b, code)
		if err != nil {
			return nil, err
		}
		table[code] = decl
	}
	return table, nil
}

func parseAbbrevDecl(b *util.Buf, code uint64) (*AbbrevDecl, error) {
	tag, err := b.ULEB128()
	if err != nil {
		return nil, err
	}
	children, err := b.Uint8()
	if err != nil {
		return nil, err
	}

	decl := &AbbrevDecl{Code: code, Tag: dwarf.Tag(tag), Children: children != 0}
	for {
		attr, err := b.ULEB128()
		if err != nil {
			return nil, err
		}
		form, err := b.ULEB128()
		if err != nil {
			return nil, err
		}
		if attr == 0 && form == 0 {
			break
		}

		spec := AttrSpec{Attr: dwarf.Attr(attr), Form: Form(form)}
		if spec.Form == DW_FORM_implicit_const {
			spec.ImplicitConst, err = b.SLEB128()
			if err != nil {
				return nil, err
			}
		}
		decl.Fields = append(decl.Fields, spec)
	}
	return decl, nil
}
