package ui

import (
	"fmt"
	"io"
)

// Success writes a green check line.
func Success(w io.Writer, format string, args ...interface{}) {
	line(w, SuccessStyle().Render(SymbolSuccess), format, args...)
}

// Fail writes a red cross line.
func Fail(w io.Writer, format string, args ...interface{}) {
	line(w, ErrorStyle().Render(SymbolFail), format, args...)
}

// Skipped writes a yellow skipped line.
func Skipped(w io.Writer, format string, args ...interface{}) {
	line(w, WarningStyle().Render(SymbolSkipped), format, args...)
}

func line(w io.Writer, symbol, format string, args ...interface{}) {
	fmt.Fprintf(w, "%s %s\n", symbol, fmt.Sprintf(format, args...))
}
