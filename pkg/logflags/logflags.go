package logflags

import (
	"errors"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

var debugInfo = false
var debugLine = false
var cli = false

var logOut io.WriteCloser

func makeLogger(level logrus.Level, fields Fields) Logger {
	if lf := loggerFactory; lf != nil {
		var out io.Writer
		if logOut != nil {
			out = logOut
		}
		return lf(level, fields, out)
	}
	logger := logrus.New().WithFields(logrus.Fields(fields))
	logger.Logger.Formatter = textFormatterInstance
	if logOut != nil {
		logger.Logger.Out = logOut
	} else {
		logger.Logger.Out = os.Stderr
	}
	logger.Logger.Level = level
	return &logrusLogger{logger}
}

func makeFlaggableLogger(flag bool, fields Fields) Logger {
	if !flag {
		return makeLogger(logrus.ErrorLevel, fields)
	}
	return makeLogger(logrus.DebugLevel, fields)
}

// DebugInfo returns true if pkg/dwarf/info should log how it decodes
// entries.
func DebugInfo() bool {
	return debugInfo
}

// DebugInfoLogger returns a logger for the pkg/dwarf/info package.
func DebugInfoLogger() Logger {
	return makeFlaggableLogger(debugInfo, Fields{"layer": "dwarf", "kind": "info"})
}

// DebugLineErrors returns true if pkg/dwarf/line should log its recoverable
// errors.
func DebugLineErrors() bool {
	return debugLine
}

// DebugLineLogger returns a logger for the pkg/dwarf/line package.
func DebugLineLogger() Logger {
	return makeFlaggableLogger(debugLine, Fields{"layer": "dwarf", "kind": "line"})
}

// CLI returns true if the command line frontend should log.
func CLI() bool {
	return cli
}

// CLILogger returns a logger for the command line frontend.
func CLILogger() Logger {
	return makeFlaggableLogger(cli, Fields{"layer": "cli"})
}

var errLogstrWithoutLog = errors.New("--log-output specified without --log")

// Setup sets logging flags based on the contents of logstr.
// If logDest is not empty logs will be written to the file at that path.
func Setup(logFlag bool, logstr, logDest string) error {
	if logDest != "" {
		f, err := os.Create(logDest)
		if err != nil {
			return err
		}
		logOut = f
	}
	if !logFlag {
		if logstr != "" {
			return errLogstrWithoutLog
		}
		return nil
	}
	if logstr == "" {
		logstr = "cli"
	}
	v := strings.Split(logstr, ",")
	for _, logcmd := range v {
		switch logcmd {
		case "info":
			debugInfo = true
		case "line":
			debugLine = true
		case "cli":
			cli = true
		}
	}
	return nil
}

// Close closes the logger output.
func Close() {
	if logOut != nil {
		logOut.Close()
		logOut = nil
	}
}
