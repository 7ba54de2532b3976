// Package op names the operations of DWARF expressions and prints the
// expressions found in location lists and exprloc attributes. Expressions
// are never evaluated.
package op

import (
	"fmt"
	"io"
	"strconv"

	"github.com/go-delve/lldwarf/pkg/dwarf/util"
)

// Opcode represent a DWARF stack program instruction.
type Opcode byte

// operand is the encoding of an operand of an instruction.
type operand uint8

const (
	opU8 operand = iota
	opS8
	opU16
	opS16
	opU32
	opS32
	opU64
	opS64
	opULEB
	opSLEB
	opAddr   // target address
	opOffset // section offset, 4 or 8 bytes
	opBlock  // ULEB128 length followed by that many bytes
	opBlock1 // 1 byte length followed by that many bytes
)

const (
	DW_OP_addr                Opcode = 0x03
	DW_OP_deref               Opcode = 0x06
	DW_OP_const1u             Opcode = 0x08
	DW_OP_const1s             Opcode = 0x09
	DW_OP_const2u             Opcode = 0x0a
	DW_OP_const2s             Opcode = 0x0b
	DW_OP_const4u             Opcode = 0x0c
	DW_OP_const4s             Opcode = 0x0d
	DW_OP_const8u             Opcode = 0x0e
	DW_OP_const8s             Opcode = 0x0f
	DW_OP_constu              Opcode = 0x10
	DW_OP_consts              Opcode = 0x11
	DW_OP_dup                 Opcode = 0x12
	DW_OP_drop                Opcode = 0x13
	DW_OP_over                Opcode = 0x14
	DW_OP_pick                Opcode = 0x15
	DW_OP_swap                Opcode = 0x16
	DW_OP_rot                 Opcode = 0x17
	DW_OP_xderef              Opcode = 0x18
	DW_OP_abs                 Opcode = 0x19
	DW_OP_and                 Opcode = 0x1a
	DW_OP_div                 Opcode = 0x1b
	DW_OP_minus               Opcode = 0x1c
	DW_OP_mod                 Opcode = 0x1d
	DW_OP_mul                 Opcode = 0x1e
	DW_OP_neg                 Opcode = 0x1f
	DW_OP_not                 Opcode = 0x20
	DW_OP_or                  Opcode = 0x21
	DW_OP_plus                Opcode = 0x22
	DW_OP_plus_uconst         Opcode = 0x23
	DW_OP_shl                 Opcode = 0x24
	DW_OP_shr                 Opcode = 0x25
	DW_OP_shra                Opcode = 0x26
	DW_OP_xor                 Opcode = 0x27
	DW_OP_bra                 Opcode = 0x28
	DW_OP_eq                  Opcode = 0x29
	DW_OP_ge                  Opcode = 0x2a
	DW_OP_gt                  Opcode = 0x2b
	DW_OP_le                  Opcode = 0x2c
	DW_OP_lt                  Opcode = 0x2d
	DW_OP_ne                  Opcode = 0x2e
	DW_OP_skip                Opcode = 0x2f
	DW_OP_lit0                Opcode = 0x30
	DW_OP_lit31               Opcode = 0x4f
	DW_OP_reg0                Opcode = 0x50
	DW_OP_reg31               Opcode = 0x6f
	DW_OP_breg0               Opcode = 0x70
	DW_OP_breg31              Opcode = 0x8f
	DW_OP_regx                Opcode = 0x90
	DW_OP_fbreg               Opcode = 0x91
	DW_OP_bregx               Opcode = 0x92
	DW_OP_piece               Opcode = 0x93
	DW_OP_deref_size          Opcode = 0x94
	DW_OP_xderef_size         Opcode = 0x95
	DW_OP_nop                 Opcode = 0x96
	DW_OP_push_object_address Opcode = 0x97
	DW_OP_call2               Opcode = 0x98
	DW_OP_call4               Opcode = 0x99
	DW_OP_call_ref            Opcode = 0x9a
	DW_OP_form_tls_address    Opcode = 0x9b
	DW_OP_call_frame_cfa      Opcode = 0x9c
	DW_OP_bit_piece           Opcode = 0x9d
	DW_OP_implicit_value      Opcode = 0x9e
	DW_OP_stack_value         Opcode = 0x9f
	DW_OP_implicit_pointer    Opcode = 0xa0
	DW_OP_addrx               Opcode = 0xa1
	DW_OP_constx              Opcode = 0xa2
	DW_OP_entry_value         Opcode = 0xa3
	DW_OP_const_type          Opcode = 0xa4
	DW_OP_regval_type         Opcode = 0xa5
	DW_OP_deref_type          Opcode = 0xa6
	DW_OP_xderef_type         Opcode = 0xa7
	DW_OP_convert             Opcode = 0xa8
	DW_OP_reinterpret         Opcode = 0xa9

	DW_OP_GNU_push_tls_address Opcode = 0xe0
	DW_OP_GNU_entry_value      Opcode = 0xf3
	DW_OP_GNU_addr_index       Opcode = 0xfb
	DW_OP_GNU_const_index      Opcode = 0xfc
)

var opcodeName = map[Opcode]string{
	DW_OP_addr:                 "DW_OP_addr",
	DW_OP_deref:                "DW_OP_deref",
	DW_OP_const1u:              "DW_OP_const1u",
	DW_OP_const1s:              "DW_OP_const1s",
	DW_OP_const2u:              "DW_OP_const2u",
	DW_OP_const2s:              "DW_OP_const2s",
	DW_OP_const4u:              "DW_OP_const4u",
	DW_OP_const4s:              "DW_OP_const4s",
	DW_OP_const8u:              "DW_OP_const8u",
	DW_OP_const8s:              "DW_OP_const8s",
	DW_OP_constu:               "DW_OP_constu",
	DW_OP_consts:               "DW_OP_consts",
	DW_OP_dup:                  "DW_OP_dup",
	DW_OP_drop:                 "DW_OP_drop",
	DW_OP_over:                 "DW_OP_over",
	DW_OP_pick:                 "DW_OP_pick",
	DW_OP_swap:                 "DW_OP_swap",
	DW_OP_rot:                  "DW_OP_rot",
	DW_OP_xderef:               "DW_OP_xderef",
	DW_OP_abs:                  "DW_OP_abs",
	DW_OP_and:                  "DW_OP_and",
	DW_OP_div:                  "DW_OP_div",
	DW_OP_minus:                "DW_OP_minus",
	DW_OP_mod:                  "DW_OP_mod",
	DW_OP_mul:                  "DW_OP_mul",
	DW_OP_neg:                  "DW_OP_neg",
	DW_OP_not:                  "DW_OP_not",
	DW_OP_or:                   "DW_OP_or",
	DW_OP_plus:                 "DW_OP_plus",
	DW_OP_plus_uconst:          "DW_OP_plus_uconst",
	DW_OP_shl:                  "DW_OP_shl",
	DW_OP_shr:                  "DW_OP_shr",
	DW_OP_shra:                 "DW_OP_shra",
	DW_OP_xor:                  "DW_OP_xor",
	DW_OP_bra:                  "DW_OP_bra",
	DW_OP_eq:                   "DW_OP_eq",
	DW_OP_ge:                   "DW_OP_ge",
	DW_OP_gt:                   "DW_OP_gt",
	DW_OP_le:                   "DW_OP_le",
	DW_OP_lt:                   "DW_OP_lt",
	DW_OP_ne:                   "DW_OP_ne",
	DW_OP_skip:                 "DW_OP_skip",
	DW_OP_regx:                 "DW_OP_regx",
	DW_OP_fbreg:                "DW_OP_fbreg",
	DW_OP_bregx:                "DW_OP_bregx",
	DW_OP_piece:                "DW_OP_piece",
	DW_OP_deref_size:           "DW_OP_deref_size",
	DW_OP_xderef_size:          "DW_OP_xderef_size",
	DW_OP_nop:                  "DW_OP_nop",
	DW_OP_push_object_address:  "DW_OP_push_object_address",
	DW_OP_call2:                "DW_OP_call2",
	DW_OP_call4:                "DW_OP_call4",
	DW_OP_call_ref:             "DW_OP_call_ref",
	DW_OP_form_tls_address:     "DW_OP_form_tls_address",
	DW_OP_call_frame_cfa:       "DW_OP_call_frame_cfa",
	DW_OP_bit_piece:            "DW_OP_bit_piece",
	DW_OP_implicit_value:       "DW_OP_implicit_value",
	DW_OP_stack_value:          "DW_OP_stack_value",
	DW_OP_implicit_pointer:     "DW_OP_implicit_pointer",
	DW_OP_addrx:                "DW_OP_addrx",
	DW_OP_constx:               "DW_OP_constx",
	DW_OP_entry_value:          "DW_OP_entry_value",
	DW_OP_const_type:           "DW_OP_const_type",
	DW_OP_regval_type:          "DW_OP_regval_type",
	DW_OP_deref_type:           "DW_OP_deref_type",
	DW_OP_xderef_type:          "DW_OP_xderef_type",
	DW_OP_convert:              "DW_OP_convert",
	DW_OP_reinterpret:          "DW_OP_reinterpret",
	DW_OP_GNU_push_tls_address: "DW_OP_GNU_push_tls_address",
	DW_OP_GNU_entry_value:      "DW_OP_GNU_entry_value",
	DW_OP_GNU_addr_index:       "DW_OP_GNU_addr_index",
	DW_OP_GNU_const_index:      "DW_OP_GNU_const_index",
}

var opcodeArgs = map[Opcode][]operand{
	DW_OP_addr:             {opAddr},
	DW_OP_const1u:          {opU8},
	DW_OP_const1s:          {opS8},
	DW_OP_const2u:          {opU16},
	DW_OP_const2s:          {opS16},
	DW_OP_const4u:          {opU32},
	DW_OP_const4s:          {opS32},
	DW_OP_const8u:          {opU64},
	DW_OP_const8s:          {opS64},
	DW_OP_constu:           {opULEB},
	DW_OP_consts:           {opSLEB},
	DW_OP_pick:             {opU8},
	DW_OP_plus_uconst:      {opULEB},
	DW_OP_bra:              {opS16},
	DW_OP_skip:             {opS16},
	DW_OP_regx:             {opULEB},
	DW_OP_fbreg:            {opSLEB},
	DW_OP_bregx:            {opULEB, opSLEB},
	DW_OP_piece:            {opULEB},
	DW_OP_deref_size:       {opU8},
	DW_OP_xderef_size:      {opU8},
	DW_OP_call2:            {opU16},
	DW_OP_call4:            {opU32},
	DW_OP_call_ref:         {opOffset},
	DW_OP_bit_piece:        {opULEB, opULEB},
	DW_OP_implicit_value:   {opBlock},
	DW_OP_implicit_pointer: {opOffset, opSLEB},
	DW_OP_addrx:            {opULEB},
	DW_OP_constx:           {opULEB},
	DW_OP_entry_value:      {opBlock},
	DW_OP_const_type:       {opULEB, opBlock1},
	DW_OP_regval_type:      {opULEB, opULEB},
	DW_OP_deref_type:       {opU8, opULEB},
	DW_OP_xderef_type:      {opU8, opULEB},
	DW_OP_convert:          {opULEB},
	DW_OP_reinterpret:      {opULEB},
	DW_OP_GNU_entry_value:  {opBlock},
	DW_OP_GNU_addr_index:   {opULEB},
	DW_OP_GNU_const_index:  {opULEB},
}

func init() {
	for i := Opcode(0); i <= DW_OP_lit31-DW_OP_lit0; i++ {
		opcodeName[DW_OP_lit0+i] = "DW_OP_lit" + strconv.Itoa(int(i))
		opcodeName[DW_OP_reg0+i] = "DW_OP_reg" + strconv.Itoa(int(i))
		opcodeName[DW_OP_breg0+i] = "DW_OP_breg" + strconv.Itoa(int(i))
		opcodeArgs[DW_OP_breg0+i] = []operand{opSLEB}
	}
}

func (op Opcode) String() string {
	if name, ok := opcodeName[op]; ok {
		return name
	}
	return fmt.Sprintf("DW_OP(%#x)", uint8(op))
}

// PrettyPrint prints the DWARF stack program instructions to out, one
// space separated instruction after the other. Instructions with an
// unknown opcode are printed without operands. An error is returned if
// an operand runs past the end of the expression.
func PrettyPrint(out io.Writer, instructions []byte, addrSize int, dwarf64 bool) error {
	in, err := util.NewBuf("location expression", instructions, 0)
	if err != nil {
		return err
	}

	for first := true; in.Len() > 0; first = false {
		opcode, err := in.ReadByte()
		if err != nil {
			return err
		}
		if !first {
			io.WriteString(out, " ")
		}
		io.WriteString(out, Opcode(opcode).String())
		for _, arg := range opcodeArgs[Opcode(opcode)] {
			s, err := readOperand(in, arg, addrSize, dwarf64)
			if err != nil {
				return err
			}
			io.WriteString(out, " "+s)
		}
	}
	return nil
}

func readOperand(in *util.Buf, arg operand, addrSize int, dwarf64 bool) (string, error) {
	switch arg {
	case opSLEB:
		n, err := in.SLEB128()
		return strconv.FormatInt(n, 10), err
	case opULEB:
		n, err := in.ULEB128()
		return fmt.Sprintf("%#x", n), err
	case opS8, opS16, opS32, opS64:
		size := map[operand]int{opS8: 1, opS16: 2, opS32: 4, opS64: 8}[arg]
		x, err := in.Uint(size)
		shift := uint(64 - 8*size)
		return strconv.FormatInt(int64(x<<shift)>>shift, 10), err
	case opBlock, opBlock1:
		var sz uint64
		var err error
		if arg == opBlock {
			sz, err = in.ULEB128()
		} else {
			var x uint8
			x, err = in.Uint8()
			sz = uint64(x)
		}
		if err != nil {
			return "", err
		}
		data, err := in.Bytes(sz, "block operand")
		return fmt.Sprintf("[% x]", data), err
	}
	size := map[operand]int{opU8: 1, opU16: 2, opU32: 4, opU64: 8, opAddr: addrSize, opOffset: util.OffsetSize(dwarf64)}[arg]
	x, err := in.Uint(size)
	return fmt.Sprintf("%#x", x), err
}
