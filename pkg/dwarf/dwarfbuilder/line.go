package dwarfbuilder

import (
	"bytes"
	"encoding/binary"

	"github.com/go-delve/lldwarf/pkg/dwarf/leb128"
)

// LineFile is an entry of the file name table of a line number program.
type LineFile struct {
	Name        string
	DirIdx      uint64
	LastModTime uint64
	Length      uint64
	MD5         [16]byte
}

// LineProgram builds a .debug_line contribution. Fill in the header
// fields, append instructions with its methods and call Build.
type LineProgram struct {
	Version        uint16
	AddrSize       uint8
	MinInstrLength uint8
	MaxOpPerInstr  uint8
	DefaultIsStmt  bool
	LineBase       int8
	LineRange      uint8
	OpcodeBase     uint8
	StdOpLengths   []uint8 // defaults to the standard lengths for OpcodeBase 13
	IncludeDirs    []string
	Files          []LineFile
	WithMD5        bool // DWARF 5 only, adds a DW_LNCT_MD5 column to the file table

	prog bytes.Buffer
}

// NewLineProgram returns a LineProgram with the parameters used by most
// compilers.
func NewLineProgram(version uint16) *LineProgram {
	return &LineProgram{
		Version:        version,
		AddrSize:       8,
		MinInstrLength: 1,
		MaxOpPerInstr:  1,
		DefaultIsStmt:  true,
		LineBase:       -5,
		LineRange:      14,
		OpcodeBase:     13,
	}
}

var defaultStdOpLengths = []uint8{0, 1, 1, 1, 1, 0, 0, 0, 1, 0, 0, 1}

// Build returns the encoded unit and the offset, relative to the start of
// the unit, where the instructions begin.
func (lp *LineProgram) Build() ([]byte, int) {
	var hdr bytes.Buffer
	hdr.WriteByte(lp.MinInstrLength)
	if lp.Version >= 4 {
		hdr.WriteByte(lp.MaxOpPerInstr)
	}
	if lp.DefaultIsStmt {
		hdr.WriteByte(1)
	} else {
		hdr.WriteByte(0)
	}
	hdr.WriteByte(byte(lp.LineBase))
	hdr.WriteByte(lp.LineRange)
	hdr.WriteByte(lp.OpcodeBase)
	lengths := lp.StdOpLengths
	if lengths == nil {
		lengths = defaultStdOpLengths
	}
	for i := 0; i < int(lp.OpcodeBase)-1; i++ {
		if i < len(lengths) {
			hdr.WriteByte(lengths[i])
		} else {
			hdr.WriteByte(0)
		}
	}

	if lp.Version >= 5 {
		lp.writeTables5(&hdr)
	} else {
		lp.writeTables2(&hdr)
	}

	var out bytes.Buffer
	out.Write([]byte{0, 0, 0, 0}) // unit_length
	binary.Write(&out, binary.LittleEndian, lp.Version)
	if lp.Version >= 5 {
		out.WriteByte(lp.AddrSize)
		out.WriteByte(0) // segment_selector_size
	}
	binary.Write(&out, binary.LittleEndian, uint32(hdr.Len()))
	out.Write(hdr.Bytes())
	progOff := out.Len()
	out.Write(lp.prog.Bytes())

	r := out.Bytes()
	binary.LittleEndian.PutUint32(r, uint32(len(r)-4))
	return r, progOff
}

func (lp *LineProgram) writeTables2(hdr *bytes.Buffer) {
	for _, dir := range lp.IncludeDirs {
		hdr.WriteString(dir)
		hdr.WriteByte(0)
	}
	hdr.WriteByte(0)
	for _, f := range lp.Files {
		writeFileEntry(hdr, f)
	}
	hdr.WriteByte(0)
}

const (
	lnctPath     = 0x1
	lnctDirIndex = 0x2
	lnctTime     = 0x3
	lnctSize     = 0x4
	lnctMD5      = 0x5

	formString = 0x08
	formUdata  = 0x0f
	formData16 = 0x1e
)

func (lp *LineProgram) writeTables5(hdr *bytes.Buffer) {
	hdr.WriteByte(1)
	leb128.EncodeUnsigned(hdr, lnctPath)
	leb128.EncodeUnsigned(hdr, formString)
	leb128.EncodeUnsigned(hdr, uint64(len(lp.IncludeDirs)))
	for _, dir := range lp.IncludeDirs {
		hdr.WriteString(dir)
		hdr.WriteByte(0)
	}

	formats := [][2]uint64{{lnctPath, formString}, {lnctDirIndex, formUdata}, {lnctTime, formUdata}, {lnctSize, formUdata}}
	if lp.WithMD5 {
		formats = append(formats, [2]uint64{lnctMD5, formData16})
	}
	hdr.WriteByte(byte(len(formats)))
	for _, f := range formats {
		leb128.EncodeUnsigned(hdr, f[0])
		leb128.EncodeUnsigned(hdr, f[1])
	}
	leb128.EncodeUnsigned(hdr, uint64(len(lp.Files)))
	for _, f := range lp.Files {
		hdr.WriteString(f.Name)
		hdr.WriteByte(0)
		leb128.EncodeUnsigned(hdr, f.DirIdx)
		leb128.EncodeUnsigned(hdr, f.LastModTime)
		leb128.EncodeUnsigned(hdr, f.Length)
		if lp.WithMD5 {
			hdr.Write(f.MD5[:])
		}
	}
}

func writeFileEntry(buf *bytes.Buffer, f LineFile) {
	buf.WriteString(f.Name)
	buf.WriteByte(0)
	leb128.EncodeUnsigned(buf, f.DirIdx)
	leb128.EncodeUnsigned(buf, f.LastModTime)
	leb128.EncodeUnsigned(buf, f.Length)
}

// Standard opcodes
const (
	lnsCopy             = 1
	lnsAdvancePC        = 2
	lnsAdvanceLine      = 3
	lnsSetFile          = 4
	lnsSetColumn        = 5
	lnsNegateStmt       = 6
	lnsSetBasicBlock    = 7
	lnsConstAddPC       = 8
	lnsFixedAdvancePC   = 9
	lnsSetPrologueEnd   = 10
	lnsSetEpilogueBegin = 11
	lnsSetISA           = 12
)

// Extended opcodes
const (
	lneEndSequence      = 1
	lneSetAddress       = 2
	lneDefineFile       = 3
	lneSetDiscriminator = 4
)

func (lp *LineProgram) extended(op byte, payload []byte) {
	lp.prog.WriteByte(0)
	leb128.EncodeUnsigned(&lp.prog, uint64(len(payload)+1))
	lp.prog.WriteByte(op)
	lp.prog.Write(payload)
}

// Extended appends an arbitrary extended opcode.
func (lp *LineProgram) Extended(op byte, payload []byte) { lp.extended(op, payload) }

func (lp *LineProgram) EndSequence() { lp.extended(lneEndSequence, nil) }

func (lp *LineProgram) SetAddress(addr uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], addr)
	lp.extended(lneSetAddress, buf[:lp.AddrSize])
}

func (lp *LineProgram) DefineFile(f LineFile) {
	var buf bytes.Buffer
	writeFileEntry(&buf, f)
	lp.extended(lneDefineFile, buf.Bytes())
}

func (lp *LineProgram) SetDiscriminator(d uint64) {
	var buf bytes.Buffer
	leb128.EncodeUnsigned(&buf, d)
	lp.extended(lneSetDiscriminator, buf.Bytes())
}

func (lp *LineProgram) Copy() { lp.prog.WriteByte(lnsCopy) }

func (lp *LineProgram) AdvancePC(n uint64) {
	lp.prog.WriteByte(lnsAdvancePC)
	leb128.EncodeUnsigned(&lp.prog, n)
}

func (lp *LineProgram) AdvanceLine(n int64) {
	lp.prog.WriteByte(lnsAdvanceLine)
	leb128.EncodeSigned(&lp.prog, n)
}

func (lp *LineProgram) SetFile(n uint64) {
	lp.prog.WriteByte(lnsSetFile)
	leb128.EncodeUnsigned(&lp.prog, n)
}

func (lp *LineProgram) SetColumn(n uint64) {
	lp.prog.WriteByte(lnsSetColumn)
	leb128.EncodeUnsigned(&lp.prog, n)
}

func (lp *LineProgram) NegateStmt()       { lp.prog.WriteByte(lnsNegateStmt) }
func (lp *LineProgram) SetBasicBlock()    { lp.prog.WriteByte(lnsSetBasicBlock) }
func (lp *LineProgram) ConstAddPC()       { lp.prog.WriteByte(lnsConstAddPC) }
func (lp *LineProgram) SetPrologueEnd()   { lp.prog.WriteByte(lnsSetPrologueEnd) }
func (lp *LineProgram) SetEpilogueBegin() { lp.prog.WriteByte(lnsSetEpilogueBegin) }

func (lp *LineProgram) FixedAdvancePC(n uint16) {
	lp.prog.WriteByte(lnsFixedAdvancePC)
	binary.Write(&lp.prog, binary.LittleEndian, n)
}

func (lp *LineProgram) SetISA(n uint64) {
	lp.prog.WriteByte(lnsSetISA)
	leb128.EncodeUnsigned(&lp.prog, n)
}

// Special appends a special opcode.
func (lp *LineProgram) Special(op byte) { lp.prog.WriteByte(op) }

// Raw appends arbitrary bytes to the program.
func (lp *LineProgram) Raw(b ...byte) { lp.prog.Write(b) }
