package info

import "fmt"

// Form represents a DWARF form kind (see Table 7.6, DWARF v5).
type Form uint16

const (
	DW_FORM_addr           Form = 0x01 // address
	DW_FORM_block2         Form = 0x03 // block
	DW_FORM_block4         Form = 0x04 // block
	DW_FORM_data2          Form = 0x05 // constant
	DW_FORM_data4          Form = 0x06 // constant
	DW_FORM_data8          Form = 0x07 // constant
	DW_FORM_string         Form = 0x08 // string
	DW_FORM_block          Form = 0x09 // block
	DW_FORM_block1         Form = 0x0a // block
	DW_FORM_data1          Form = 0x0b // constant
	DW_FORM_flag           Form = 0x0c // flag
	DW_FORM_sdata          Form = 0x0d // constant
	DW_FORM_strp           Form = 0x0e // string
	DW_FORM_udata          Form = 0x0f // constant
	DW_FORM_ref_addr       Form = 0x10 // reference
	DW_FORM_ref1           Form = 0x11 // reference
	DW_FORM_ref2           Form = 0x12 // reference
	DW_FORM_ref4           Form = 0x13 // reference
	DW_FORM_ref8           Form = 0x14 // reference
	DW_FORM_ref_udata      Form = 0x15 // reference
	DW_FORM_indirect       Form = 0x16 // (see Section 7.5.3)
	DW_FORM_sec_offset     Form = 0x17 // lineptr, loclistptr, macptr, rangelistptr
	DW_FORM_exprloc        Form = 0x18 // exprloc
	DW_FORM_flag_present   Form = 0x19 // flag
	DW_FORM_strx           Form = 0x1a // string
	DW_FORM_addrx          Form = 0x1b // address
	DW_FORM_ref_sup4       Form = 0x1c // reference
	DW_FORM_strp_sup       Form = 0x1d // string
	DW_FORM_data16         Form = 0x1e // constant
	DW_FORM_line_strp      Form = 0x1f // string
	DW_FORM_ref_sig8       Form = 0x20 // reference
	DW_FORM_implicit_const Form = 0x21 // constant
	DW_FORM_loclistx       Form = 0x22 // loclist
	DW_FORM_rnglistx       Form = 0x23 // rnglist
	DW_FORM_ref_sup8       Form = 0x24 // reference
	DW_FORM_strx1          Form = 0x25 // string
	DW_FORM_strx2          Form = 0x26 // string
	DW_FORM_strx3          Form = 0x27 // string
	DW_FORM_strx4          Form = 0x28 // string
	DW_FORM_addrx1         Form = 0x29 // address
	DW_FORM_addrx2         Form = 0x2a // address
	DW_FORM_addrx3         Form = 0x2b // address
	DW_FORM_addrx4         Form = 0x2c // address

	// GNU extensions
	DW_FORM_GNU_addr_index Form = 0x1f01
	DW_FORM_GNU_str_index  Form = 0x1f02
	DW_FORM_GNU_ref_alt    Form = 0x1f20
	DW_FORM_GNU_strp_alt   Form = 0x1f21
)

var formNames = map[Form]string{
	DW_FORM_addr:           "DW_FORM_addr",
	DW_FORM_block2:         "DW_FORM_block2",
	DW_FORM_block4:         "DW_FORM_block4",
	DW_FORM_data2:          "DW_FORM_data2",
	DW_FORM_data4:          "DW_FORM_data4",
	DW_FORM_data8:          "DW_FORM_data8",
	DW_FORM_string:         "DW_FORM_string",
	DW_FORM_block:          "DW_FORM_block",
	DW_FORM_block1:         "DW_FORM_block1",
	DW_FORM_data1:          "DW_FORM_data1",
	DW_FORM_flag:           "DW_FORM_flag",
	DW_FORM_sdata:          "DW_FORM_sdata",
	DW_FORM_strp:           "DW_FORM_strp",
	DW_FORM_udata:          "DW_FORM_udata",
	DW_FORM_ref_addr:       "DW_FORM_ref_addr",
	DW_FORM_ref1:           "DW_FORM_ref1",
	DW_FORM_ref2:           "DW_FORM_ref2",
	DW_FORM_ref4:           "DW_FORM_ref4",
	DW_FORM_ref8:           "DW_FORM_ref8",
	DW_FORM_ref_udata:      "DW_FORM_ref_udata",
	DW_FORM_indirect:       "DW_FORM_indirect",
	DW_FORM_sec_offset:     "DW_FORM_sec_offset",
	DW_FORM_exprloc:        "DW_FORM_exprloc",
	DW_FORM_flag_present:   "DW_FORM_flag_present",
	DW_FORM_strx:           "DW_FORM_strx",
	DW_FORM_addrx:          "DW_FORM_addrx",
	DW_FORM_ref_sup4:       "DW_FORM_ref_sup4",
	DW_FORM_strp_sup:       "DW_FORM_strp_sup",
	DW_FORM_data16:         "DW_FORM_data16",
	DW_FORM_line_strp:      "DW_FORM_line_strp",
	DW_FORM_ref_sig8:       "DW_FORM_ref_sig8",
	DW_FORM_implicit_const: "DW_FORM_implicit_const",
	DW_FORM_loclistx:       "DW_FORM_loclistx",
	DW_FORM_rnglistx:       "DW_FORM_rnglistx",
	DW_FORM_ref_sup8:       "DW_FORM_ref_sup8",
	DW_FORM_strx1:          "DW_FORM_strx1",
	DW_FORM_strx2:          "DW_FORM_strx2",
	DW_FORM_strx3:          "DW_FORM_strx3",
	DW_FORM_strx4:          "DW_FORM_strx4",
	DW_FORM_addrx1:         "DW_FORM_addrx1",
	DW_FORM_addrx2:         "DW_FORM_addrx2",
	DW_FORM_addrx3:         "DW_FORM_addrx3",
	DW_FORM_addrx4:         "DW_FORM_addrx4",
	DW_FORM_GNU_addr_index: "DW_FORM_GNU_addr_index",
	DW_FORM_GNU_str_index:  "DW_FORM_GNU_str_index",
	DW_FORM_GNU_ref_alt:    "DW_FORM_GNU_ref_alt",
	DW_FORM_GNU_strp_alt:   "DW_FORM_GNU_strp_alt",
}

func (f Form) String() string {
	if s, ok := formNames[f]; ok {
		return s
	}
	return fmt.Sprintf("DW_FORM_%#x", uint16(f))
}

// Unit types (see Table 7.2, DWARF v5).
const (
	DW_UT_compile       = 0x01
	DW_UT_type          = 0x02
	DW_UT_partial       = 0x03
	DW_UT_skeleton      = 0x04
	DW_UT_split_compile = 0x05
	DW_UT_split_type    = 0x06
)
