package line

import (
	"errors"
	"fmt"

	"github.com/go-delve/lldwarf/pkg/dwarf/util"
	"github.com/go-delve/lldwarf/pkg/logflags"
)

// Row is a row of the line number matrix.
type Row struct {
	Address       uint64
	OpIndex       uint64
	File          uint64
	Line          uint64
	Column        uint64
	IsStmt        bool
	BasicBlock    bool
	EndSequence   bool
	PrologueEnd   bool
	EpilogueBegin bool
	ISA           uint64
	Discriminator uint64
}

// Standard opcodes
const (
	DW_LNS_copy             = 1
	DW_LNS_advance_pc       = 2
	DW_LNS_advance_line     = 3
	DW_LNS_set_file         = 4
	DW_LNS_set_column       = 5
	DW_LNS_negate_stmt      = 6
	DW_LNS_set_basic_block  = 7
	DW_LNS_const_add_pc     = 8
	DW_LNS_fixed_advance_pc = 9
	DW_LNS_prologue_end     = 10
	DW_LNS_epilogue_begin   = 11
	DW_LNS_set_isa          = 12
)

// Extended opcodes
const (
	DW_LINE_end_sequence      = 1
	DW_LINE_set_address       = 2
	DW_LINE_define_file       = 3
	DW_LINE_set_discriminator = 4
)

var standardOpcodeNames = map[byte]string{
	DW_LNS_copy:             "DW_LNS_copy",
	DW_LNS_advance_pc:       "DW_LNS_advance_pc",
	DW_LNS_advance_line:     "DW_LNS_advance_line",
	DW_LNS_set_file:         "DW_LNS_set_file",
	DW_LNS_set_column:       "DW_LNS_set_column",
	DW_LNS_negate_stmt:      "DW_LNS_negate_stmt",
	DW_LNS_set_basic_block:  "DW_LNS_set_basic_block",
	DW_LNS_const_add_pc:     "DW_LNS_const_add_pc",
	DW_LNS_fixed_advance_pc: "DW_LNS_fixed_advance_pc",
	DW_LNS_prologue_end:     "DW_LNS_set_prologue_end",
	DW_LNS_epilogue_begin:   "DW_LNS_set_epilogue_begin",
	DW_LNS_set_isa:          "DW_LNS_set_isa",
}

// StateMachine executes a line number program one row at a time.
type StateMachine struct {
	hdr *Header
	buf *util.Buf // remaining instructions, limited to the end of the program

	regs Row

	definedFiles []FileEntry // files defined with DW_LINE_define_file

	err error
}

// NewStateMachine returns a state machine that executes the instructions
// in b from the cursor up to end.
func NewStateMachine(hdr *Header, b *util.Buf, end int) (*StateMachine, error) {
	if hdr.LineRange == 0 || hdr.OpcodeBase == 0 {
		return nil, b.Errorf(util.ErrMalformedHeader, "line range %d and opcode base %d must not be zero", hdr.LineRange, hdr.OpcodeBase)
	}
	buf, err := b.Limit(end)
	if err != nil {
		return nil, err
	}
	sm := &StateMachine{hdr: hdr, buf: buf}
	sm.reset()
	return sm, nil
}

// Execute runs the line number program in b, from the cursor to end, and
// returns all the rows of the matrix. On success the cursor is left at
// end. No rows are returned if the program is malformed.
func Execute(hdr *Header, b *util.Buf, end int) ([]Row, error) {
	sm, err := NewStateMachine(hdr, b, end)
	if err != nil {
		return nil, err
	}
	var rows []Row
	for {
		row, err := sm.Next()
		if err != nil {
			return nil, err
		}
		if row == nil {
			break
		}
		rows = append(rows, *row)
	}
	if err := b.Seek(end); err != nil {
		return nil, err
	}
	return rows, nil
}

func (sm *StateMachine) reset() {
	sm.regs = Row{File: 1, Line: 1, IsStmt: sm.hdr.DefaultIsStmt}
}

// Off returns the offset of the next instruction.
func (sm *StateMachine) Off() int {
	return sm.buf.Off()
}

// DefinedFiles returns the files defined by DW_LINE_define_file
// instructions executed so far. The header is never modified.
func (sm *StateMachine) DefinedFiles() []FileEntry {
	return sm.definedFiles
}

// Next executes instructions until a row is appended to the matrix and
// returns it. It returns nil when the end of the program is reached.
func (sm *StateMachine) Next() (*Row, error) {
	if sm.err != nil {
		return nil, sm.err
	}
	for sm.buf.Len() > 0 {
		row, err := sm.step()
		if err != nil {
			sm.err = err
			return nil, err
		}
		if row != nil {
			return row, nil
		}
	}
	return nil, nil
}

// step executes one instruction, if the instruction appends a row to the
// matrix the row is returned.
func (sm *StateMachine) step() (*Row, error) {
	start := sm.buf.Off()
	op, err := sm.buf.Uint8()
	if err != nil {
		return nil, err
	}

	var row *Row
	switch {
	case op == 0:
		row, err = sm.execExtendedOpcode(start)
	case op < sm.hdr.OpcodeBase:
		row, err = sm.execStandardOpcode(op)
	default:
		row = sm.execSpecialOpcode(op)
	}
	if err != nil {
		return nil, sm.instructionError(start, op, err)
	}
	return row, nil
}

// instructionError reports reads past the end of the program as truncation
// of the instruction at start.
func (sm *StateMachine) instructionError(start int, op byte, err error) error {
	if !errors.Is(err, util.ErrEOF) && !errors.Is(err, util.ErrTruncated) {
		return err
	}
	name := standardOpcodeNames[op]
	switch {
	case op == 0:
		name = "extended opcode"
	case name == "" || op >= sm.hdr.OpcodeBase:
		name = fmt.Sprintf("opcode %#x", op)
	}
	return sm.buf.ErrorfAt(start, util.ErrTruncated, "%s runs past the end of the program at %#x", name, len(sm.buf.Data()))
}

// emit returns a copy of the registers and clears the registers that only
// apply to one row.
func (sm *StateMachine) emit() *Row {
	row := sm.regs
	sm.regs.BasicBlock = false
	sm.regs.PrologueEnd = false
	sm.regs.EpilogueBegin = false
	sm.regs.Discriminator = 0
	return &row
}

// advance applies an operation advance to the address and op_index
// registers.
func (sm *StateMachine) advance(opAdvance uint64) {
	maxOps := uint64(sm.hdr.MaxOpPerInstr)
	if maxOps == 0 {
		maxOps = 1
	}
	total := sm.regs.OpIndex + opAdvance
	sm.regs.Address += uint64(sm.hdr.MinInstrLength) * (total / maxOps)
	sm.regs.OpIndex = total % maxOps
}

func (sm *StateMachine) execSpecialOpcode(op byte) *Row {
	adjusted := op - sm.hdr.OpcodeBase
	sm.advance(uint64(adjusted / sm.hdr.LineRange))
	sm.regs.Line += uint64(int64(sm.hdr.LineBase) + int64(adjusted%sm.hdr.LineRange))
	return sm.emit()
}

func (sm *StateMachine) execStandardOpcode(op byte) (*Row, error) {
	b := sm.buf
	switch op {
	case DW_LNS_copy:
		return sm.emit(), nil

	case DW_LNS_advance_pc:
		n, err := b.ULEB128()
		if err != nil {
			return nil, err
		}
		sm.advance(n)

	case DW_LNS_advance_line:
		n, err := b.SLEB128()
		if err != nil {
			return nil, err
		}
		sm.regs.Line += uint64(n)

	case DW_LNS_set_file:
		n, err := b.ULEB128()
		if err != nil {
			return nil, err
		}
		sm.regs.File = n

	case DW_LNS_set_column:
		n, err := b.ULEB128()
		if err != nil {
			return nil, err
		}
		sm.regs.Column = n

	case DW_LNS_negate_stmt:
		sm.regs.IsStmt = !sm.regs.IsStmt

	case DW_LNS_set_basic_block:
		sm.regs.BasicBlock = true

	case DW_LNS_const_add_pc:
		sm.advance(uint64((255 - sm.hdr.OpcodeBase) / sm.hdr.LineRange))

	case DW_LNS_fixed_advance_pc:
		n, err := b.Uint16()
		if err != nil {
			return nil, err
		}
		sm.regs.Address += uint64(n)
		sm.regs.OpIndex = 0

	case DW_LNS_prologue_end:
		sm.regs.PrologueEnd = true

	case DW_LNS_epilogue_begin:
		sm.regs.EpilogueBegin = true

	case DW_LNS_set_isa:
		n, err := b.ULEB128()
		if err != nil {
			return nil, err
		}
		sm.regs.ISA = n

	default:
		// unknown standard opcode, skip the number of operands specified in
		// the header
		var opnum uint8
		if int(op-1) < len(sm.hdr.StdOpLengths) {
			opnum = sm.hdr.StdOpLengths[op-1]
		}
		for i := 0; i < int(opnum); i++ {
			if _, err := b.ULEB128(); err != nil {
				return nil, err
			}
		}
		if logflags.DebugLineErrors() {
			logflags.DebugLineLogger().Debugf("unknown opcode %d(%#x), %d arguments, line %d, address %#x", op, op, opnum, sm.regs.Line, sm.regs.Address)
		}
	}
	return nil, nil
}

func (sm *StateMachine) execExtendedOpcode(start int) (*Row, error) {
	length, err := sm.buf.ULEB128()
	if err != nil {
		return nil, err
	}
	payloadStart := sm.buf.Off()
	if err := sm.buf.Skip(length, "extended opcode"); err != nil {
		return nil, err
	}
	if length == 0 {
		return nil, nil
	}
	payloadEnd := sm.buf.Off()

	// operands never extend past the payload
	b, err := util.NewBuf(sm.buf.Name(), sm.buf.Data()[:payloadEnd], payloadStart)
	if err != nil {
		return nil, err
	}
	b.SetOrder(sm.buf.Order())
	sub, _ := b.Uint8()

	switch sub {
	case DW_LINE_end_sequence:
		sm.regs.EndSequence = true
		row := sm.regs
		sm.reset()
		return &row, nil

	case DW_LINE_set_address:
		size := b.Len()
		if size == 0 || size > 8 {
			return nil, b.ErrorfAt(start, util.ErrMalformedHeader, "DW_LNE_set_address with a %d byte operand", size)
		}
		addr, err := b.Uint(size)
		if err != nil {
			return nil, err
		}
		sm.regs.Address = addr
		sm.regs.OpIndex = 0

	case DW_LINE_define_file:
		entry, err := readFileEntry(b)
		if err != nil {
			return nil, err
		}
		if entry == nil {
			entry = &FileEntry{}
		}
		sm.definedFiles = append(sm.definedFiles, *entry)

	case DW_LINE_set_discriminator:
		n, err := b.ULEB128()
		if err != nil {
			return nil, err
		}
		sm.regs.Discriminator = n

	default:
		if logflags.DebugLineErrors() {
			logflags.DebugLineLogger().WithField("offset", start).Debugf("skipping unknown extended opcode %#x, %d bytes", sub, length)
		}
	}
	return nil, nil
}
