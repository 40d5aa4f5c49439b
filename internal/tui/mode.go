package tui

import (
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// OutputMode selects how a command reports progress.
type OutputMode int

const (
	// ModeTUI draws the live stage table.
	ModeTUI OutputMode = iota
	// ModePlain prints one line per event.
	ModePlain
	// ModeJSON prints nothing until the final JSON document.
	ModeJSON
)

type fileDescriptor interface {
	Fd() uintptr
}

// DetectMode picks ModeTUI only for an interactive terminal that is not
// "dumb". Flags win over detection.
func DetectMode(out io.Writer, noProgress, jsonOutput bool) OutputMode {
	switch {
	case jsonOutput:
		return ModeJSON
	case noProgress:
		return ModePlain
	}
	f, ok := out.(fileDescriptor)
	if !ok {
		return ModePlain
	}
	if !isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd()) {
		return ModePlain
	}
	if strings.EqualFold(os.Getenv("TERM"), "dumb") {
		return ModePlain
	}
	return ModeTUI
}
