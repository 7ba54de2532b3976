package cmds

import (
	"encoding/hex"
	"fmt"
	"io/ioutil"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/go-delve/lldwarf/pkg/config"
	"github.com/go-delve/lldwarf/pkg/dwarf/aranges"
	"github.com/go-delve/lldwarf/pkg/dwarf/info"
	"github.com/go-delve/lldwarf/pkg/dwarf/line"
	"github.com/go-delve/lldwarf/pkg/dwarf/loclist"
	"github.com/go-delve/lldwarf/pkg/dwarf/op"
	"github.com/go-delve/lldwarf/pkg/dwarf/rangelist"
	"github.com/go-delve/lldwarf/pkg/dwarf/util"
	"github.com/go-delve/lldwarf/pkg/logflags"
	"github.com/go-delve/lldwarf/pkg/version"
)

var (
	// log is whether to log debug statements.
	log bool
	// logOutput is a comma separated list of components that should produce debug output.
	logOutput string
	// logDest is the file path where logs should go.
	logDest string
	// color is the color mode: auto, always or never.
	color string

	// offset is the offset in the input file where decoding starts.
	offset int
	// abbrevFile is the path of a .debug_abbrev dump.
	abbrevFile string
	// recurse is whether to parse the children of entries.
	recurse bool
	// lineStrFile and strFile are the paths of .debug_line_str and
	// .debug_str dumps, used to resolve DWARF 5 file names.
	lineStrFile string
	strFile     string
	// fileFilter restricts the rows printed by the line command to the
	// files whose path starts with it.
	fileFilter string
	// addrSize and listBase configure range and location list decoding.
	addrSize int
	listBase uint64
	// verbose prints build information in the version command.
	verbose bool

	conf *config.Config
)

const lldwarfCommandLongDesc = `lldwarf decodes the low level structures of DWARF 2 through 5 debug sections.

Every command takes a file containing the raw contents of a single section,
as extracted by 'objcopy --dump-section .debug_info=info.bin prog', and
prints what it decodes.`

// New returns an initialized command tree.
func New(c *config.Config) *cobra.Command {
	conf = c

	rootCommand := &cobra.Command{
		Use:          "lldwarf",
		Short:        "lldwarf is a low level DWARF decoder.",
		Long:         lldwarfCommandLongDesc,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logstr := logOutput
			if log && logstr == "" {
				logstr = conf.LogComponents()
			}
			return logflags.Setup(log, logstr, logDest)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logflags.Close()
		},
	}

	rootCommand.PersistentFlags().BoolVarP(&log, "log", "", false, "Enable logging.")
	rootCommand.PersistentFlags().StringVarP(&logOutput, "log-output", "", "", "Comma separated list of components that should produce debug output: info, line, cli.")
	rootCommand.PersistentFlags().StringVarP(&logDest, "log-dest", "", "", "Writes logs to the specified file.")
	rootCommand.PersistentFlags().StringVar(&color, "color", conf.ColorMode(), "Colored output: auto, always or never.")

	// 'uleb128' and 'sleb128' subcommands.
	uleb128Command := &cobra.Command{
		Use:   "uleb128 <hex bytes>...",
		Short: "Decodes a sequence of unsigned LEB128 numbers.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return lebCmd(cmd, args, false)
		},
	}
	uleb128Command.Flags().IntVar(&offset, "offset", 0, "Offset of the first number.")
	rootCommand.AddCommand(uleb128Command)

	sleb128Command := &cobra.Command{
		Use:   "sleb128 <hex bytes>...",
		Short: "Decodes a sequence of signed LEB128 numbers.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return lebCmd(cmd, args, true)
		},
	}
	sleb128Command.Flags().IntVar(&offset, "offset", 0, "Offset of the first number.")
	rootCommand.AddCommand(sleb128Command)

	// 'abbrev' subcommand.
	abbrevCommand := &cobra.Command{
		Use:   "abbrev <debug_abbrev>",
		Short: "Prints an abbreviation table.",
		Args:  cobra.ExactArgs(1),
		RunE:  abbrevCmd,
	}
	abbrevCommand.Flags().IntVar(&offset, "offset", 0, "Offset of the table.")
	rootCommand.AddCommand(abbrevCommand)

	// 'cu' subcommand.
	cuCommand := &cobra.Command{
		Use:   "cu <debug_info>",
		Short: "Prints the headers of the units of .debug_info.",
		Args:  cobra.ExactArgs(1),
		RunE:  cuCmd,
	}
	cuCommand.Flags().IntVar(&offset, "offset", 0, "Offset of the first unit.")
	rootCommand.AddCommand(cuCommand)

	// 'info' subcommand.
	infoCommand := &cobra.Command{
		Use:   "info <debug_info>",
		Short: "Prints the debugging information entries of every unit.",
		Long: `Prints the debugging information entries of every unit.

The abbreviation tables are read from the file passed with --abbrev.`,
		Args: cobra.ExactArgs(1),
		RunE: infoCmd,
	}
	infoCommand.Flags().StringVar(&abbrevFile, "abbrev", "", "Contents of .debug_abbrev.")
	infoCommand.Flags().BoolVar(&recurse, "recurse", conf.DefaultRecurse(), "Parse the children of the top level entries.")
	infoCommand.MarkFlagRequired("abbrev")
	rootCommand.AddCommand(infoCommand)

	// 'aranges' subcommand.
	arangesCommand := &cobra.Command{
		Use:   "aranges <debug_aranges>",
		Short: "Prints the address range tables.",
		Args:  cobra.ExactArgs(1),
		RunE:  arangesCmd,
	}
	rootCommand.AddCommand(arangesCommand)

	// 'line' subcommand.
	lineCommand := &cobra.Command{
		Use:   "line <debug_line>",
		Short: "Prints a line number program header and its line table.",
		Args:  cobra.ExactArgs(1),
		RunE:  lineCmd,
	}
	lineCommand.Flags().IntVar(&offset, "offset", 0, "Offset of the line number program.")
	lineCommand.Flags().StringVar(&lineStrFile, "line-str", "", "Contents of .debug_line_str.")
	lineCommand.Flags().StringVar(&strFile, "str", "", "Contents of .debug_str.")
	lineCommand.Flags().StringVar(&fileFilter, "file", "", "Only print rows for files whose path starts with this prefix.")
	rootCommand.AddCommand(lineCommand)

	// 'ranges' and 'loclist' subcommands.
	rangesCommand := &cobra.Command{
		Use:   "ranges <debug_ranges>",
		Short: "Prints a range list.",
		Args:  cobra.ExactArgs(1),
		RunE:  rangesCmd,
	}
	rangesCommand.Flags().AddFlagSet(listFlags())
	rootCommand.AddCommand(rangesCommand)

	loclistCommand := &cobra.Command{
		Use:   "loclist <debug_loc>",
		Short: "Prints a location list.",
		Args:  cobra.ExactArgs(1),
		RunE:  loclistCmd,
	}
	loclistCommand.Flags().AddFlagSet(listFlags())
	rootCommand.AddCommand(loclistCommand)

	// 'version' subcommand.
	versionCommand := &cobra.Command{
		Use:   "version",
		Short: "Prints version.",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "lldwarf\n%s\n", version.LLDwarfVersion)
			if verbose {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\n", version.BuildInfo())
			}
		},
	}
	versionCommand.Flags().BoolVarP(&verbose, "verbose", "v", false, "print verbose version info")
	rootCommand.AddCommand(versionCommand)

	return rootCommand
}

// listFlags returns the flags shared by the range and location list
// commands.
func listFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("list", pflag.ContinueOnError)
	fs.IntVar(&offset, "offset", 0, "Offset of the list.")
	fs.IntVar(&addrSize, "address-size", conf.DefaultAddressSize(), "Size of an address in bytes.")
	fs.Uint64Var(&listBase, "base", 0, "Base address before the first base address selection entry.")
	return fs
}

func readSection(name, path string) ([]byte, error) {
	if path == "" {
		return nil, nil
	}
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	logflags.CLILogger().Debugf("loaded %s from %s (%d bytes)", name, path, len(data))
	return data, nil
}

func openSection(name, path string) (*util.Buf, error) {
	data, err := readSection(name, path)
	if err != nil {
		return nil, err
	}
	return util.NewBuf(name, data, offset)
}

func lebCmd(cmd *cobra.Command, args []string, signed bool) error {
	data, err := hex.DecodeString(strings.Join(strings.Fields(strings.Join(args, " ")), ""))
	if err != nil {
		return fmt.Errorf("invalid input: %v", err)
	}
	b, err := util.NewBuf("input", data, offset)
	if err != nil {
		return err
	}
	p := newPrinter(cmd.OutOrStdout(), color)
	for b.Len() > 0 {
		start := b.Off()
		if signed {
			v, err := b.SLEB128()
			if err != nil {
				return err
			}
			p.printf("%s %d\n", p.offset(start), v)
		} else {
			v, err := b.ULEB128()
			if err != nil {
				return err
			}
			p.printf("%s %d (%#x)\n", p.offset(start), v, v)
		}
	}
	return nil
}

func abbrevCmd(cmd *cobra.Command, args []string) error {
	b, err := openSection(".debug_abbrev", args[0])
	if err != nil {
		return err
	}
	table, err := info.ParseAbbrevTable(b)
	if err != nil {
		return err
	}
	p := newPrinter(cmd.OutOrStdout(), color)
	printAbbrevTable(p, table)
	p.printf("end %s\n", p.offset(b.Off()))
	return nil
}

func printAbbrevTable(p *printer, table info.AbbrevTable) {
	codes := make([]uint64, 0, len(table))
	for code := range table {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	for _, code := range codes {
		decl := table[code]
		children := "no children"
		if decl.Children {
			children = "children"
		}
		p.heading("[%d] %s %s", code, decl.Tag, children)
		for _, f := range decl.Fields {
			if f.Form == info.DW_FORM_implicit_const {
				p.printf("\t%s %s %d\n", f.Attr, f.Form, f.ImplicitConst)
				continue
			}
			p.printf("\t%s %s\n", f.Attr, f.Form)
		}
	}
}

func cuCmd(cmd *cobra.Command, args []string) error {
	b, err := openSection(".debug_info", args[0])
	if err != nil {
		return err
	}
	p := newPrinter(cmd.OutOrStdout(), color)
	for b.Len() > 0 {
		hdr, err := info.ParseUnitHeader(b)
		if err != nil {
			return err
		}
		printUnitHeader(p, hdr)
		if err := b.Seek(hdr.End()); err != nil {
			return err
		}
	}
	return nil
}

var unitTypeNames = map[uint8]string{
	info.DW_UT_compile:       "compile",
	info.DW_UT_type:          "type",
	info.DW_UT_partial:       "partial",
	info.DW_UT_skeleton:      "skeleton",
	info.DW_UT_split_compile: "split_compile",
	info.DW_UT_split_type:    "split_type",
}

func printUnitHeader(p *printer, hdr *info.UnitHeader) {
	p.heading("unit %s length %#x version %d", p.offset(hdr.Offset), hdr.UnitLength, hdr.Version)
	if hdr.Dwarf64 {
		p.printf("\tformat dwarf64\n")
	}
	if hdr.Version >= 5 {
		name, ok := unitTypeNames[hdr.UnitType]
		if !ok {
			name = fmt.Sprintf("%#x", hdr.UnitType)
		}
		p.printf("\tunit_type %s\n", name)
	}
	p.printf("\tabbrev_offset %#x\n", hdr.AbbrevOffset)
	p.printf("\taddress_size %d\n", hdr.AddressSize)
	switch hdr.UnitType {
	case info.DW_UT_skeleton, info.DW_UT_split_compile:
		p.printf("\tdwo_id %#x\n", hdr.DWOID)
	case info.DW_UT_type, info.DW_UT_split_type:
		p.printf("\ttype_signature %#x\n", hdr.TypeSignature)
		p.printf("\ttype_offset %#x\n", hdr.TypeOffset)
	}
}

func infoCmd(cmd *cobra.Command, args []string) error {
	infoData, err := readSection(".debug_info", args[0])
	if err != nil {
		return err
	}
	abbrevData, err := readSection(".debug_abbrev", abbrevFile)
	if err != nil {
		return err
	}
	w, err := info.NewWalker(infoData, abbrevData, recurse, conf.AbbrevCacheSize)
	if err != nil {
		return err
	}
	p := newPrinter(cmd.OutOrStdout(), color)
	for {
		u, err := w.Next()
		if err != nil {
			return err
		}
		if u == nil {
			return nil
		}
		printUnitHeader(p, u.Header)
		for _, die := range u.Entries {
			printDIE(p, u.Header, die, 1)
		}
	}
}

func printDIE(p *printer, hdr *info.UnitHeader, die *info.DIE, depth int) {
	indent := strings.Repeat("  ", depth)
	p.printf("%s%s %s\n", indent, p.offset(die.Offset), die.Tag)
	for _, f := range die.Attrs {
		val := f.Val.String()
		if f.Val.Class == info.ClassExprLoc {
			var expr strings.Builder
			if err := op.PrettyPrint(&expr, f.Val.Bytes, int(hdr.AddressSize), hdr.Dwarf64); err == nil {
				val = "(" + expr.String() + ")"
			}
		}
		p.printf("%s    %s %s %s\n", indent, f.Attr, f.Form, val)
	}
	for _, child := range die.Children {
		printDIE(p, hdr, child, depth+1)
	}
}

func arangesCmd(cmd *cobra.Command, args []string) error {
	data, err := readSection(".debug_aranges", args[0])
	if err != nil {
		return err
	}
	sets, err := aranges.ParseAll(data)
	if err != nil {
		return err
	}
	p := newPrinter(cmd.OutOrStdout(), color)
	for _, set := range sets {
		hdr := set.Header
		p.heading("set %s length %#x version %d info_offset %#x address_size %d segment_size %d",
			p.offset(hdr.Offset), hdr.UnitLength, hdr.Version, hdr.DebugInfoOffset, hdr.AddressSize, hdr.SegmentSelectorSize)
		for _, r := range set.Ranges {
			if hdr.SegmentSelectorSize > 0 {
				p.printf("\t%#x:[%#x, %#x)\n", r.Segment, r.Address, r.Address+r.Length)
				continue
			}
			p.printf("\t[%#x, %#x)\n", r.Address, r.Address+r.Length)
		}
	}
	return nil
}

func lineCmd(cmd *cobra.Command, args []string) error {
	b, err := openSection(".debug_line", args[0])
	if err != nil {
		return err
	}
	lineStr, err := readSection(".debug_line_str", lineStrFile)
	if err != nil {
		return err
	}
	str, err := readSection(".debug_str", strFile)
	if err != nil {
		return err
	}
	hdr, err := line.ParseHeader(b, lineStr, str)
	if err != nil {
		return err
	}
	p := newPrinter(cmd.OutOrStdout(), color)
	printLineHeader(p, hdr)

	sm, err := line.NewStateMachine(hdr, b, hdr.End())
	if err != nil {
		return err
	}
	var rows []line.Row
	var execErr error
	for {
		row, err := sm.Next()
		if err != nil {
			execErr = err
			break
		}
		if row == nil {
			break
		}
		rows = append(rows, *row)
	}

	var selected map[uint64]bool
	if fileFilter != "" {
		selected = make(map[uint64]bool)
		for _, ref := range line.NewFileIndex(hdr, sm.DefinedFiles()).Lookup(fileFilter) {
			selected[ref.Index] = true
		}
	}

	p.heading("rows:")
	for _, row := range rows {
		if selected != nil && !selected[row.File] {
			continue
		}
		printRow(p, hdr, sm.DefinedFiles(), &row)
	}
	return execErr
}

func printLineHeader(p *printer, hdr *line.Header) {
	p.heading("line program %s length %#x version %d", p.offset(hdr.Offset), hdr.UnitLength, hdr.Version)
	if hdr.Version >= 5 {
		p.printf("\taddress_size %d segment_selector_size %d\n", hdr.AddressSize, hdr.SegmentSelectorSize)
	}
	p.printf("\tmin_instruction_length %d max_ops_per_instruction %d default_is_stmt %v\n", hdr.MinInstrLength, hdr.MaxOpPerInstr, hdr.DefaultIsStmt)
	p.printf("\tline_base %d line_range %d opcode_base %d\n", hdr.LineBase, hdr.LineRange, hdr.OpcodeBase)

	p.heading("include directories:")
	dirBase := 1
	if hdr.Version >= 5 {
		dirBase = 0
	}
	for i, dir := range hdr.IncludeDirs {
		p.printf("\t[%d] %s\n", i+dirBase, dir)
	}
	p.heading("files:")
	idx := hdr.FirstFileIndex()
	for i := range hdr.FileNames {
		p.printf("\t[%d] %s\n", idx, hdr.FilePath(&hdr.FileNames[i]))
		idx++
	}
}

func printRow(p *printer, hdr *line.Header, defined []line.FileEntry, row *line.Row) {
	file := fmt.Sprintf("file#%d", row.File)
	if f, ok := hdr.File(row.File, defined); ok {
		file = hdr.FilePath(f)
	}
	var flags []string
	if row.OpIndex != 0 {
		flags = append(flags, fmt.Sprintf("op_index=%d", row.OpIndex))
	}
	if row.IsStmt {
		flags = append(flags, "is_stmt")
	}
	if row.BasicBlock {
		flags = append(flags, "basic_block")
	}
	if row.PrologueEnd {
		flags = append(flags, "prologue_end")
	}
	if row.EpilogueBegin {
		flags = append(flags, "epilogue_begin")
	}
	if row.ISA != 0 {
		flags = append(flags, fmt.Sprintf("isa=%d", row.ISA))
	}
	if row.Discriminator != 0 {
		flags = append(flags, fmt.Sprintf("discriminator=%d", row.Discriminator))
	}
	if row.EndSequence {
		flags = append(flags, "end_sequence")
	}
	p.printf("\t%#x %s:%d:%d %s\n", row.Address, file, row.Line, row.Column, strings.Join(flags, " "))
}

func rangesCmd(cmd *cobra.Command, args []string) error {
	b, err := openSection(".debug_ranges", args[0])
	if err != nil {
		return err
	}
	ranges, err := rangelist.Parse(b, addrSize, listBase)
	if err != nil {
		return err
	}
	p := newPrinter(cmd.OutOrStdout(), color)
	for _, r := range ranges {
		p.printf("[%#x, %#x) base %#x\n", r.Begin, r.End, r.Base)
	}
	p.printf("end %s\n", p.offset(b.Off()))
	return nil
}

func loclistCmd(cmd *cobra.Command, args []string) error {
	b, err := openSection(".debug_loc", args[0])
	if err != nil {
		return err
	}
	entries, err := loclist.Parse(b, addrSize, listBase)
	if err != nil {
		return err
	}
	p := newPrinter(cmd.OutOrStdout(), color)
	for _, e := range entries {
		var expr strings.Builder
		if err := op.PrettyPrint(&expr, e.Instr, addrSize, false); err != nil {
			return err
		}
		p.printf("[%#x, %#x) base %#x %s\n", e.Begin, e.End, e.Base, expr.String())
	}
	p.printf("end %s\n", p.offset(b.Off()))
	return nil
}
