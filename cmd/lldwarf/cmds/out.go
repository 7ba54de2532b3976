package cmds

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"

	"github.com/go-delve/lldwarf/pkg/config"
)

const (
	colorHeading = "\x1b[1;34m"
	colorOffset  = "\x1b[33m"
	colorReset   = "\x1b[0m"
)

// printer writes command output, optionally with ANSI colors.
type printer struct {
	w     io.Writer
	color bool
}

func newPrinter(out io.Writer, mode string) *printer {
	f, isFile := out.(*os.File)
	switch mode {
	case config.ColorNever:
		return &printer{w: out}
	case config.ColorAlways:
		if isFile {
			return &printer{w: colorable.NewColorable(f), color: true}
		}
		return &printer{w: out, color: true}
	}
	if isFile && isatty.IsTerminal(f.Fd()) {
		return &printer{w: colorable.NewColorable(f), color: true}
	}
	return &printer{w: out}
}

func (p *printer) printf(format string, args ...interface{}) {
	fmt.Fprintf(p.w, format, args...)
}

func (p *printer) heading(format string, args ...interface{}) {
	s := fmt.Sprintf(format, args...)
	if p.color {
		s = colorHeading + s + colorReset
	}
	fmt.Fprintln(p.w, s)
}

func (p *printer) offset(off int) string {
	s := fmt.Sprintf("<%#x>", off)
	if p.color {
		return colorOffset + s + colorReset
	}
	return s
}
