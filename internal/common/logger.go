package common

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

// NewLogger builds the process logger. Unknown levels fall back to info.
func NewLogger(level, prefix string) *log.Logger {
	return newLogger(os.Stderr, level, prefix)
}

func newLogger(w io.Writer, level, prefix string) *log.Logger {
	lvl, err := log.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		lvl = log.InfoLevel
	}
	return log.NewWithOptions(w, log.Options{
		ReportCaller:    lvl == log.DebugLevel,
		ReportTimestamp: true,
		Prefix:          prefix,
		Level:           lvl,
	})
}

// Discard returns a logger that writes nowhere, for tests and library callers.
func Discard() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.FatalLevel})
}
