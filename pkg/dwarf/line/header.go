package line

import (
	"path"

	"github.com/go-delve/lldwarf/pkg/dwarf/info"
	"github.com/go-delve/lldwarf/pkg/dwarf/util"
)

// Header is the header of a line number program.
type Header struct {
	// Offset is the offset of the header in the buffer it was parsed from.
	Offset int

	UnitLength          uint64
	Dwarf64             bool
	Version             uint16
	AddressSize         uint8 // DWARF 5 only
	SegmentSelectorSize uint8 // DWARF 5 only
	HeaderLength        uint64
	MinInstrLength      uint8
	MaxOpPerInstr       uint8
	DefaultIsStmt       bool
	LineBase            int8
	LineRange           uint8
	OpcodeBase          uint8
	// StdOpLengths[i] is the number of ULEB128 operands of standard opcode
	// i+1.
	StdOpLengths []uint8

	IncludeDirs []string
	FileNames   []FileEntry

	programOffset int
}

// FileEntry is an entry of the file name table.
type FileEntry struct {
	Path        string
	DirIdx      uint64
	LastModTime uint64
	Length      uint64
	MD5         []byte

	// PathForm is the form the path was encoded with. When it is not
	// DW_FORM_string and the string section it refers to was not available
	// Path is empty and StrOffset holds the offset (or index) of the path.
	PathForm  info.Form
	StrOffset uint64
}

// ProgramOffset returns the offset of the first instruction of the
// program.
func (h *Header) ProgramOffset() int {
	return h.programOffset
}

// End returns the offset immediately after the line number program.
func (h *Header) End() int {
	if h.Dwarf64 {
		return h.Offset + 12 + int(h.UnitLength)
	}
	return h.Offset + 4 + int(h.UnitLength)
}

// ParseHeader parses the line number program header at the cursor and
// leaves the cursor on the first instruction of the program.
// DebugLineStr and debugStr are the contents of .debug_line_str and
// .debug_str, they are only used to resolve DWARF 5 paths and can be nil.
func ParseHeader(b *util.Buf, debugLineStr, debugStr []byte) (*Header, error) {
	h := &Header{Offset: b.Off()}

	var err error
	if h.UnitLength, h.Dwarf64, err = b.InitialLength(); err != nil {
		return nil, err
	}
	if h.Version, err = b.Uint16(); err != nil {
		return nil, err
	}
	if h.Version < 2 || h.Version > 5 {
		return nil, b.ErrorfAt(b.Off()-2, util.ErrMalformedHeader, "unsupported line table version %d", h.Version)
	}
	if h.Version >= 5 {
		if h.AddressSize, err = b.Uint8(); err != nil {
			return nil, err
		}
		if h.SegmentSelectorSize, err = b.Uint8(); err != nil {
			return nil, err
		}
	}
	if h.HeaderLength, err = b.Offset(h.Dwarf64); err != nil {
		return nil, err
	}
	if h.HeaderLength > uint64(b.Len()) {
		return nil, b.Errorf(util.ErrMalformedHeader, "header length %#x exceeds buffer", h.HeaderLength)
	}
	h.programOffset = b.Off() + int(h.HeaderLength)

	if err := parseParameters(h, b); err != nil {
		return nil, err
	}

	if h.Version >= 5 {
		err = parseTables5(h, b, debugLineStr, debugStr)
	} else {
		err = parseTables2(h, b)
	}
	if err != nil {
		return nil, err
	}

	if b.Off() > h.programOffset {
		return nil, b.Errorf(util.ErrMalformedHeader, "header tables end past the program offset %#x", h.programOffset)
	}
	if err := b.Seek(h.programOffset); err != nil {
		return nil, err
	}
	return h, nil
}

func parseParameters(h *Header, b *util.Buf) error {
	var err error
	if h.MinInstrLength, err = b.Uint8(); err != nil {
		return err
	}
	h.MaxOpPerInstr = 1
	if h.Version >= 4 {
		if h.MaxOpPerInstr, err = b.Uint8(); err != nil {
			return err
		}
		if h.MaxOpPerInstr == 0 {
			return b.ErrorfAt(b.Off()-1, util.ErrMalformedHeader, "maximum operations per instruction is zero")
		}
	}
	isStmt, err := b.Uint8()
	if err != nil {
		return err
	}
	h.DefaultIsStmt = isStmt != 0
	lineBase, err := b.Uint8()
	if err != nil {
		return err
	}
	h.LineBase = int8(lineBase)
	if h.LineRange, err = b.Uint8(); err != nil {
		return err
	}
	if h.LineRange == 0 {
		return b.ErrorfAt(b.Off()-1, util.ErrMalformedHeader, "line range is zero")
	}
	if h.OpcodeBase, err = b.Uint8(); err != nil {
		return err
	}
	if h.OpcodeBase == 0 {
		return b.ErrorfAt(b.Off()-1, util.ErrMalformedHeader, "opcode base is zero")
	}
	lengths, err := b.Bytes(uint64(h.OpcodeBase-1), "standard_opcode_lengths")
	if err != nil {
		return err
	}
	h.StdOpLengths = append([]uint8(nil), lengths...)
	return nil
}

// parseTables2 parses the directory and file tables for DWARF 2 through 4.
func parseTables2(h *Header, b *util.Buf) error {
	for {
		dir, err := b.CString()
		if err != nil {
			return err
		}
		if len(dir) == 0 {
			break
		}
		h.IncludeDirs = append(h.IncludeDirs, string(dir))
	}
	for {
		entry, err := readFileEntry(b)
		if err != nil {
			return err
		}
		if entry == nil {
			break
		}
		h.FileNames = append(h.FileNames, *entry)
	}
	return nil
}

// readFileEntry reads a DWARF 2 style file entry, it returns nil if the
// entry is the empty terminator.
func readFileEntry(b *util.Buf) (*FileEntry, error) {
	name, err := b.CString()
	if err != nil {
		return nil, err
	}
	if len(name) == 0 {
		return nil, nil
	}
	entry := &FileEntry{Path: string(name), PathForm: info.DW_FORM_string}
	if entry.DirIdx, err = b.ULEB128(); err != nil {
		return nil, err
	}
	if entry.LastModTime, err = b.ULEB128(); err != nil {
		return nil, err
	}
	if entry.Length, err = b.ULEB128(); err != nil {
		return nil, err
	}
	return entry, nil
}

// parseTables5 parses the directory and file tables for DWARF 5.
func parseTables5(h *Header, b *util.Buf, debugLineStr, debugStr []byte) error {
	dirs, err := readEntryFormat(b, h.Dwarf64)
	if err != nil {
		return err
	}
	dirCount, err := b.ULEB128()
	if err != nil {
		return err
	}
	if err := checkEntryCount(h, b, dirs, dirCount, "directory"); err != nil {
		return err
	}
	for i := uint64(0); i < dirCount; i++ {
		entry, err := dirs.readEntry(b, debugLineStr, debugStr)
		if err != nil {
			return err
		}
		h.IncludeDirs = append(h.IncludeDirs, entry.Path)
	}

	files, err := readEntryFormat(b, h.Dwarf64)
	if err != nil {
		return err
	}
	fileCount, err := b.ULEB128()
	if err != nil {
		return err
	}
	if err := checkEntryCount(h, b, files, fileCount, "file name"); err != nil {
		return err
	}
	for i := uint64(0); i < fileCount; i++ {
		entry, err := files.readEntry(b, debugLineStr, debugStr)
		if err != nil {
			return err
		}
		h.FileNames = append(h.FileNames, *entry)
	}
	return nil
}

// checkEntryCount rejects entry counts that the rest of the header can
// not hold. Every entry takes at least one byte per field.
func checkEntryCount(h *Header, b *util.Buf, rdr *formReader, count uint64, what string) error {
	if count == 0 {
		return nil
	}
	if len(rdr.formCodes) == 0 {
		return b.Errorf(util.ErrMalformedHeader, "%d %s entries with an empty entry format", count, what)
	}
	remaining := h.programOffset - b.Off()
	if remaining < 0 {
		remaining = 0
	}
	if count > uint64(remaining)/uint64(len(rdr.formCodes)) {
		return b.Errorf(util.ErrMalformedHeader, "%d %s entries do not fit in %d header bytes", count, what, remaining)
	}
	return nil
}

// FirstFileIndex returns the value of the file register that refers to
// the first entry of FileNames.
func (h *Header) FirstFileIndex() uint64 {
	if h.Version >= 5 {
		return 0
	}
	return 1
}

// File returns the file entry for the value idx of the file register.
// Defined are the files added by DW_LNE_define_file, they follow the
// entries of the header.
func (h *Header) File(idx uint64, defined []FileEntry) (*FileEntry, bool) {
	idx -= h.FirstFileIndex()
	if idx < uint64(len(h.FileNames)) {
		return &h.FileNames[idx], true
	}
	idx -= uint64(len(h.FileNames))
	if idx < uint64(len(defined)) {
		return &defined[idx], true
	}
	return nil, false
}

// FilePath returns the path of f joined with the include directory it
// refers to. Directory 0 is the compilation directory before DWARF 5,
// which is not recorded in the header, so those paths are left as they
// are.
func (h *Header) FilePath(f *FileEntry) string {
	if f.Path == "" || pathIsAbs(f.Path) {
		return f.Path
	}
	dir := f.DirIdx
	if h.Version < 5 {
		if dir == 0 {
			return f.Path
		}
		dir--
	}
	if dir < uint64(len(h.IncludeDirs)) && h.IncludeDirs[dir] != "" {
		return path.Join(h.IncludeDirs[dir], f.Path)
	}
	return f.Path
}

// pathIsAbs returns true if this is an absolute path.
// We can not use path.IsAbs because it will not recognize windows paths as
// absolute. We also can not use filepath.Abs because we want this
// processing to be independent of the host operating system.
func pathIsAbs(s string) bool {
	if len(s) >= 1 && s[0] == '/' {
		return true
	}
	if len(s) >= 2 && s[1] == ':' && (('a' <= s[0] && s[0] <= 'z') || ('A' <= s[0] && s[0] <= 'Z')) {
		return true
	}
	return false
}
