package line

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-delve/lldwarf/pkg/dwarf/dwarfbuilder"
	"github.com/go-delve/lldwarf/pkg/dwarf/info"
	"github.com/go-delve/lldwarf/pkg/dwarf/util"
)

func mustBuf(t *testing.T, data []byte, off int) *util.Buf {
	t.Helper()
	b, err := util.NewBuf(".debug_line", data, off)
	require.NoError(t, err)
	return b
}

func TestParseHeaderV2(t *testing.T) {
	lp := dwarfbuilder.NewLineProgram(2)
	lp.IncludeDirs = []string{"src", "/usr/include"}
	lp.Files = []dwarfbuilder.LineFile{
		{Name: "main.c", DirIdx: 1, LastModTime: 10, Length: 200},
		{Name: "stdio.h", DirIdx: 2},
		{Name: "/abs/gen.c", DirIdx: 1},
		{Name: "cu.c"},
	}
	lp.Special(0x4b)
	unit, progOff := lp.Build()
	data := append([]byte{0xaa, 0xbb}, unit...)

	b := mustBuf(t, data, 2)
	hdr, err := ParseHeader(b, nil, nil)
	require.NoError(t, err)

	require.Equal(t, 2, hdr.Offset)
	require.Equal(t, uint16(2), hdr.Version)
	require.False(t, hdr.Dwarf64)
	require.Equal(t, uint64(len(unit)-4), hdr.UnitLength)
	require.Equal(t, uint8(1), hdr.MinInstrLength)
	require.Equal(t, uint8(1), hdr.MaxOpPerInstr)
	require.True(t, hdr.DefaultIsStmt)
	require.Equal(t, int8(-5), hdr.LineBase)
	require.Equal(t, uint8(14), hdr.LineRange)
	require.Equal(t, uint8(13), hdr.OpcodeBase)
	require.Equal(t, []uint8{0, 1, 1, 1, 1, 0, 0, 0, 1, 0, 0, 1}, hdr.StdOpLengths)
	require.Equal(t, []string{"src", "/usr/include"}, hdr.IncludeDirs)
	require.Equal(t, uint64(progOff-10), hdr.HeaderLength)

	require.Len(t, hdr.FileNames, 4)
	require.Equal(t, FileEntry{Path: "main.c", DirIdx: 1, LastModTime: 10, Length: 200, PathForm: info.DW_FORM_string}, hdr.FileNames[0])

	require.Equal(t, 2+progOff, hdr.ProgramOffset())
	require.Equal(t, hdr.ProgramOffset(), b.Off())
	require.Equal(t, len(data), hdr.End())

	var paths []string
	for i := range hdr.FileNames {
		paths = append(paths, hdr.FilePath(&hdr.FileNames[i]))
	}
	require.Equal(t, []string{"src/main.c", "/usr/include/stdio.h", "/abs/gen.c", "cu.c"}, paths)

	f, ok := hdr.File(2, nil)
	require.True(t, ok)
	require.Equal(t, "stdio.h", f.Path)
	_, ok = hdr.File(0, nil)
	require.False(t, ok)
	_, ok = hdr.File(5, nil)
	require.False(t, ok)
}

func TestParseHeaderV5(t *testing.T) {
	lp := dwarfbuilder.NewLineProgram(5)
	lp.AddrSize = 4
	lp.MaxOpPerInstr = 2
	lp.WithMD5 = true
	lp.IncludeDirs = []string{"/work", "include"}
	sum := [16]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}
	lp.Files = []dwarfbuilder.LineFile{
		{Name: "a.c", MD5: sum},
		{Name: "b.h", DirIdx: 1, Length: 42},
	}
	unit, progOff := lp.Build()

	b := mustBuf(t, unit, 0)
	hdr, err := ParseHeader(b, nil, nil)
	require.NoError(t, err)
	require.Equal(t, uint16(5), hdr.Version)
	require.Equal(t, uint8(4), hdr.AddressSize)
	require.Equal(t, uint8(0), hdr.SegmentSelectorSize)
	require.Equal(t, uint8(2), hdr.MaxOpPerInstr)
	require.Equal(t, []string{"/work", "include"}, hdr.IncludeDirs)
	require.Equal(t, progOff, hdr.ProgramOffset())
	require.Equal(t, progOff, b.Off())

	require.Len(t, hdr.FileNames, 2)
	require.Equal(t, "a.c", hdr.FileNames[0].Path)
	require.Equal(t, sum[:], hdr.FileNames[0].MD5)
	require.Equal(t, uint64(42), hdr.FileNames[1].Length)
	require.Equal(t, uint64(1), hdr.FileNames[1].DirIdx)

	require.Equal(t, "/work/a.c", hdr.FilePath(&hdr.FileNames[0]))
	require.Equal(t, "include/b.h", hdr.FilePath(&hdr.FileNames[1]))

	require.Equal(t, uint64(0), hdr.FirstFileIndex())
	f, ok := hdr.File(0, nil)
	require.True(t, ok)
	require.Equal(t, "a.c", f.Path)
}

// buildLineStrpHeader returns a DWARF 5 line table header whose paths are
// stored in .debug_line_str and whose directory index is a data1 value.
// buildHeader5 returns a DWARF 5 line program header, without
// instructions, whose directory and file tables are the given bytes.
func buildHeader5(dirsAndFiles ...byte) []byte {
	var tables bytes.Buffer
	tables.Write([]byte{1, 1, 1, 0xfb, 14, 13})
	tables.Write([]byte{0, 1, 1, 1, 1, 0, 0, 0, 1, 0, 0, 1})
	tables.Write(dirsAndFiles)

	var unit bytes.Buffer
	unit.Write([]byte{0, 0, 0, 0, 5, 0, 8, 0})
	binary.Write(&unit, binary.LittleEndian, uint32(tables.Len()))
	unit.Write(tables.Bytes())
	r := unit.Bytes()
	binary.LittleEndian.PutUint32(r, uint32(len(r)-4))
	return r
}

func buildLineStrpHeader() []byte {
	return buildHeader5(
		1, _DW_LNCT_path, byte(info.DW_FORM_line_strp),
		1, 0, 0, 0, 0,
		2, _DW_LNCT_path, byte(info.DW_FORM_line_strp), _DW_LNCT_directory_index, byte(info.DW_FORM_data1),
		1, 5, 0, 0, 0, 0)
}

func TestParseHeaderLineStrp(t *testing.T) {
	data := buildLineStrpHeader()
	lineStr := []byte("/src\x00a.c\x00")

	hdr, err := ParseHeader(mustBuf(t, data, 0), lineStr, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"/src"}, hdr.IncludeDirs)
	require.Equal(t, FileEntry{Path: "a.c", PathForm: info.DW_FORM_line_strp, StrOffset: 5}, hdr.FileNames[0])
	require.Equal(t, "/src/a.c", hdr.FilePath(&hdr.FileNames[0]))
	require.Equal(t, len(data), hdr.ProgramOffset())

	hdr, err = ParseHeader(mustBuf(t, data, 0), nil, nil)
	require.NoError(t, err)
	require.Equal(t, []string{""}, hdr.IncludeDirs)
	require.Equal(t, FileEntry{PathForm: info.DW_FORM_line_strp, StrOffset: 5}, hdr.FileNames[0])

	_, err = ParseHeader(mustBuf(t, data, 0), []byte("/src"), nil)
	require.True(t, errors.Is(err, util.ErrUnterminated), "got %v", err)
	_, err = ParseHeader(mustBuf(t, data, 0), []byte("/s\x00"), nil)
	require.True(t, errors.Is(err, util.ErrInvalidOffset), "got %v", err)
}

func TestParseHeaderErrors(t *testing.T) {
	unit, _ := dwarfbuilder.NewLineProgram(3).Build()

	patch := func(off int, b ...byte) []byte {
		r := append([]byte{}, unit...)
		copy(r[off:], b)
		return r
	}

	tests := []struct {
		name string
		data []byte
		kind error
	}{
		{"version", patch(4, 6, 0), util.ErrMalformedHeader},
		{"header length too short", patch(6, byte(len(unit)-10-1)), util.ErrMalformedHeader},
		{"header length too long", patch(6, 0xff, 0xff), util.ErrMalformedHeader},
		{"line range", patch(13, 0), util.ErrMalformedHeader},
		{"opcode base", patch(14, 0), util.ErrMalformedHeader},
		{"reserved length", patch(0, 0xf0, 0xff, 0xff, 0xff), util.ErrMalformedHeader},
		{"truncated", unit[:6], util.ErrEOF},
		{"truncated header length", unit[:8], util.ErrTruncated},
		{"directories without entry format", buildHeader5(
			0, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x01), util.ErrMalformedHeader},
		{"files without entry format", buildHeader5(
			0, 0,
			0, 1), util.ErrMalformedHeader},
		{"directory count past header end", buildHeader5(
			1, _DW_LNCT_path, byte(info.DW_FORM_string),
			0x80, 0x01, 'a', 0,
			0, 0), util.ErrMalformedHeader},
		{"file count past header end", buildHeader5(
			0, 0,
			2, _DW_LNCT_path, byte(info.DW_FORM_string), _DW_LNCT_directory_index, byte(info.DW_FORM_udata),
			3, 'a', 0, 0), util.ErrMalformedHeader},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			hdr, err := ParseHeader(mustBuf(t, tc.data, 0), nil, nil)
			require.Nil(t, hdr)
			require.True(t, errors.Is(err, tc.kind), "got %v", err)
		})
	}
}
