// Package diag provides colorized diagnostics and the error taxonomy used
// throughout cbld (ConfigError, SubstitutionError, IfSyntaxError, IOError,
// ChildFailure, UsageError).
package diag

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

func Info(format string, a ...any) {
	fmt.Print(color.HiGreenString("info"))
	fmt.Print(": ")
	fmt.Printf(format, a...)
	fmt.Print("\n")
}

func Warn(format string, a ...any) {
	fmt.Print(color.YellowString("warn"))
	fmt.Print(": ")
	fmt.Printf(format, a...)
	fmt.Print("\n")
}

func Error(format string, a ...any) {
	fmt.Print(color.HiRedString("error"))
	fmt.Print(": ")
	fmt.Printf(format, a...)
	fmt.Print("\n")
}

// Fatal prints a fatal diagnostic and terminates the process.
// Only the CLI entry point should call this; library code returns errors.
func Fatal(format string, a ...any) {
	fmt.Print(color.RedString("fatal"))
	fmt.Print(": ")
	fmt.Printf(format, a...)
	fmt.Print("\n")
	os.Exit(1)
}

// IndentWriter prefixes every line written to it with Indent, so a nested
// (recursive prebuild) invocation's output is visually distinguishable
// from its parent's.
type IndentWriter struct {
	Indent    string
	W         io.Writer
	didIndent bool
}

func (w *IndentWriter) Write(p []byte) (n int, err error) {
	for _, c := range p {
		if !w.didIndent {
			w.W.Write([]byte(w.Indent))
			w.didIndent = true
		}
		w.W.Write([]byte{c})
		if c == '\n' || c == '\r' {
			w.didIndent = false
		}
	}
	return len(p), nil
}
