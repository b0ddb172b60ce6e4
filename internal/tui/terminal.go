package tui

import (
	"os"

	"github.com/mattn/go-isatty"
)

type fdWriter interface {
	Fd() uintptr
}

// IsTerminal reports whether v is an *os.File (or anything with an Fd)
// attached to a terminal.
func IsTerminal(v any) bool {
	f, ok := v.(fdWriter)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// ColorAllowed reports whether styled output should be written to out. It
// honours NO_COLOR (https://no-color.org) and TERM=dumb.
func ColorAllowed(out any, lookupEnv func(string) (string, bool)) bool {
	if lookupEnv == nil {
		lookupEnv = os.LookupEnv
	}
	if v, ok := lookupEnv("NO_COLOR"); ok && v != "" {
		return false
	}
	if v, _ := lookupEnv("TERM"); v == "dumb" {
		return false
	}
	return IsTerminal(out)
}
