package msg

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

// All diagnostics go to stderr: stdout is reserved for the flag lists and
// linker directives consumed by the enclosing build.

func Error(format string, a ...any) {
	fmt.Fprint(os.Stderr, color.HiRedString("error"), ": ")
	fmt.Fprintf(os.Stderr, format, a...)
	fmt.Fprint(os.Stderr, "\n")
}

func Warn(format string, a ...any) {
	fmt.Fprint(os.Stderr, color.YellowString("warn"), ": ")
	fmt.Fprintf(os.Stderr, format, a...)
	fmt.Fprint(os.Stderr, "\n")
}

func Fatal(format string, a ...any) {
	fmt.Fprint(os.Stderr, color.RedString("fatal"), ": ")
	fmt.Fprintf(os.Stderr, format, a...)
	fmt.Fprint(os.Stderr, "\n")
	os.Exit(1)
}

func Info(format string, a ...any) {
	fmt.Fprint(os.Stderr, color.HiGreenString("info"), ": ")
	fmt.Fprintf(os.Stderr, format, a...)
	fmt.Fprint(os.Stderr, "\n")
}

// IndentWriter indents line-oriented output from a subprocess or library
// (e.g. git clone progress) so it reads as part of our own diagnostics.
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
		w.W.Write([]byte{c}) // FIXME-perf: buffer this
		if c == '\n' || c == '\r' {
			w.didIndent = false
		}
	}
	return len(p), nil
}
