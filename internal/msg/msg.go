package msg

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

// Output receives every message. Generated build files may go to stdout, so
// diagnostics stay on stderr.
var Output io.Writer = color.Error

// Verbose enables Debug output.
var Verbose bool

func emit(level string, format string, a ...any) {
	fmt.Fprint(Output, level)
	fmt.Fprint(Output, ": ")
	fmt.Fprintf(Output, format, a...)
	fmt.Fprint(Output, "\n")
}

func Debug(format string, a ...any) {
	if !Verbose {
		return
	}
	emit(color.HiBlackString("debug"), format, a...)
}

func Error(format string, a ...any) {
	emit(color.HiRedString("error"), format, a...)
}

func Warn(format string, a ...any) {
	emit(color.YellowString("warn"), format, a...)
}

// Fatal prints the message and exits with status 1.
func Fatal(format string, a ...any) {
	Exit(1, format, a...)
}

// Exit prints a fatal message and exits with the given status.
func Exit(code int, format string, a ...any) {
	emit(color.RedString("fatal"), format, a...)
	os.Exit(code)
}

func Info(format string, a ...any) {
	emit(color.HiGreenString("info"), format, a...)
}

type IndentWriter struct {
	Indent    string
	W         io.Writer
	didIndent bool
}

func (w *IndentWriter) Write(p []byte) (n int, err error) {
	buf := make([]byte, 0, len(p)+len(w.Indent))
	for _, c := range p {
		if !w.didIndent {
			buf = append(buf, w.Indent...)
			w.didIndent = true
		}
		buf = append(buf, c)
		if c == '\n' || c == '\r' {
			w.didIndent = false
		}
	}
	if _, err := w.W.Write(buf); err != nil {
		return 0, err
	}
	return len(p), nil
}
