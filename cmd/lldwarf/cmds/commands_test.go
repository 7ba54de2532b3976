package cmds

import (
	"bytes"
	"debug/dwarf"
	"errors"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-delve/lldwarf/pkg/config"
	"github.com/go-delve/lldwarf/pkg/dwarf/dwarfbuilder"
	"github.com/go-delve/lldwarf/pkg/dwarf/util"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := New(&config.Config{})
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(ioutil.Discard)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeFiles(t *testing.T, files map[string][]byte) string {
	t.Helper()
	dir, err := ioutil.TempDir("", "lldwarf-cmds")
	require.NoError(t, err)
	for name, data := range files {
		require.NoError(t, ioutil.WriteFile(filepath.Join(dir, name), data, 0600))
	}
	return dir
}

func TestLEB128(t *testing.T) {
	out, err := run(t, "uleb128", "e58e26", "7f")
	require.NoError(t, err)
	require.Equal(t, "<0x0> 624485 (0x98765)\n<0x3> 127 (0x7f)\n", out)

	out, err = run(t, "sleb128", "7f 8001")
	require.NoError(t, err)
	require.Equal(t, "<0x0> -1\n<0x1> 128\n", out)

	out, err = run(t, "uleb128", "--offset", "1", "7f02")
	require.NoError(t, err)
	require.Equal(t, "<0x1> 2 (0x2)\n", out)

	_, err = run(t, "uleb128", "80")
	require.True(t, errors.Is(err, util.ErrTruncated), "got %v", err)

	_, err = run(t, "uleb128", "zz")
	require.Error(t, err)
}

func buildUnit(t *testing.T) (abbrev, info []byte) {
	t.Helper()
	b := dwarfbuilder.New(4, 8)
	b.TagOpen(dwarf.TagCompileUnit, "main.c")
	b.AddSubprogram("main", 0x1000, 0x1100)
	b.AddVariable("x", dwarfbuilder.Ref(0), dwarfbuilder.Expr{0x91, 0x70})
	b.TagClose()
	b.TagClose()
	abbrev, info, err := b.Build()
	require.NoError(t, err)
	return abbrev, info
}

func TestInfoCommands(t *testing.T) {
	abbrev, info := buildUnit(t)
	dir := writeFiles(t, map[string][]byte{"abbrev.bin": abbrev, "info.bin": info})
	defer os.RemoveAll(dir)
	abbrevPath, infoPath := filepath.Join(dir, "abbrev.bin"), filepath.Join(dir, "info.bin")

	out, err := run(t, "abbrev", abbrevPath)
	require.NoError(t, err)
	require.Contains(t, out, "TagCompileUnit children\n")
	require.Contains(t, out, "\tAttrName DW_FORM_string\n")
	require.Contains(t, out, "\tAttrLowpc DW_FORM_addr\n")
	require.True(t, strings.HasSuffix(out, fmt.Sprintf("end <%#x>\n", len(abbrev))), out)

	out, err = run(t, "cu", infoPath)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, "unit <0x0> length "), out)
	require.Contains(t, out, "version 4\n")
	require.Contains(t, out, "\taddress_size 8\n")
	require.NotContains(t, out, "unit_type")

	out, err = run(t, "info", "--abbrev", abbrevPath, infoPath)
	require.NoError(t, err)
	require.Contains(t, out, "  <0xb> TagCompileUnit\n")
	require.Contains(t, out, `AttrName DW_FORM_string "main.c"`)
	require.Contains(t, out, "TagSubprogram\n")
	require.Contains(t, out, "AttrLowpc DW_FORM_addr 0x1000\n")
	require.Contains(t, out, "AttrLocation DW_FORM_exprloc (DW_OP_fbreg -16)\n")

	out, err = run(t, "info", "--recurse=false", "--abbrev", abbrevPath, infoPath)
	require.NoError(t, err)
	require.Contains(t, out, "TagCompileUnit\n")
	require.NotContains(t, out, "TagSubprogram")

	_, err = run(t, "info", infoPath)
	require.Error(t, err)
}

func TestArangesCommand(t *testing.T) {
	data := dwarfbuilder.Aranges(0x40, 8, 0, []dwarfbuilder.Arange{{Address: 0x401000, Length: 0x200}})
	dir := writeFiles(t, map[string][]byte{"aranges.bin": data})
	defer os.RemoveAll(dir)

	out, err := run(t, "aranges", filepath.Join(dir, "aranges.bin"))
	require.NoError(t, err)
	require.Contains(t, out, "info_offset 0x40 address_size 8 segment_size 0\n")
	require.Contains(t, out, "\t[0x401000, 0x401200)\n")
}

func TestListCommands(t *testing.T) {
	ranges := dwarfbuilder.RangeList(8, [2]uint64{^uint64(0), 0x1000}, [2]uint64{0x10, 0x20})
	loc := []byte{
		0x10, 0, 0, 0, 0x20, 0, 0, 0, // begin, end
		2, 0, 0x50, 0x9f, // expression
		0, 0, 0, 0, 0, 0, 0, 0,
	}
	dir := writeFiles(t, map[string][]byte{"ranges.bin": ranges, "loc.bin": loc})
	defer os.RemoveAll(dir)

	out, err := run(t, "ranges", filepath.Join(dir, "ranges.bin"))
	require.NoError(t, err)
	require.Equal(t, "[0x1010, 0x1020) base 0x1000\nend <0x30>\n", out)

	out, err = run(t, "loclist", "--address-size", "4", "--base", "0x400000", filepath.Join(dir, "loc.bin"))
	require.NoError(t, err)
	require.Equal(t, "[0x400010, 0x400020) base 0x400000 DW_OP_reg0 DW_OP_stack_value\nend <0x14>\n", out)

	_, err = run(t, "ranges", "--address-size", "9", filepath.Join(dir, "ranges.bin"))
	require.True(t, errors.Is(err, util.ErrMalformedHeader), "got %v", err)
}

func TestLineCommand(t *testing.T) {
	lp := dwarfbuilder.NewLineProgram(4)
	lp.Files = []dwarfbuilder.LineFile{{Name: "a.c"}, {Name: "b.c"}}
	lp.SetAddress(0x1000)
	lp.Copy()
	lp.SetFile(2)
	lp.AdvancePC(4)
	lp.Copy()
	lp.AdvancePC(2)
	lp.EndSequence()
	unit, _ := lp.Build()
	dir := writeFiles(t, map[string][]byte{"line.bin": unit, "trunc.bin": unit[:len(unit)-1]})
	defer os.RemoveAll(dir)

	out, err := run(t, "line", filepath.Join(dir, "line.bin"))
	require.NoError(t, err)
	require.Contains(t, out, "files:\n\t[1] a.c\n\t[2] b.c\n")
	require.Contains(t, out, "rows:\n"+
		"\t0x1000 a.c:1:0 is_stmt\n"+
		"\t0x1004 b.c:1:0 is_stmt\n"+
		"\t0x1006 b.c:1:0 is_stmt end_sequence\n")

	out, err = run(t, "line", "--file", "b", filepath.Join(dir, "line.bin"))
	require.NoError(t, err)
	require.NotContains(t, out, "0x1000 a.c")
	require.Contains(t, out, "\t0x1004 b.c:1:0 is_stmt\n")

	// the unit length runs past the end of the file
	_, err = run(t, "line", filepath.Join(dir, "trunc.bin"))
	require.Error(t, err)
}

func TestVersionAndLogFlags(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, "lldwarf\nVersion: 0.3.0\n"), out)

	_, err = run(t, "--log-output", "line", "version")
	require.Error(t, err)
}

func TestColorAlways(t *testing.T) {
	data := dwarfbuilder.Aranges(0, 8, 0, []dwarfbuilder.Arange{{Address: 0x10, Length: 0x10}})
	dir := writeFiles(t, map[string][]byte{"aranges.bin": data})
	defer os.RemoveAll(dir)

	out, err := run(t, "--color", "always", "aranges", filepath.Join(dir, "aranges.bin"))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, colorHeading+"set "+colorOffset+"<0x0>"+colorReset), out)

	out, err = run(t, "aranges", filepath.Join(dir, "aranges.bin"))
	require.NoError(t, err)
	require.NotContains(t, out, "\x1b[")
}
