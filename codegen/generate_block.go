package codegen

import (
	"fmt"
	"strings"
)

// writer accumulates emitted source text with indentation tracking.  One
// writer exists per emission target: the module writer for top-level items
// and a scratch writer per function so a failed function leaves no partial
// text behind.
type writer struct {
	sb     strings.Builder
	indent int
}

// line writes one indented line.
func (w *writer) line(format string, args ...interface{}) {
	for i := 0; i < w.indent; i++ {
		w.sb.WriteString("    ")
	}

	fmt.Fprintf(&w.sb, format, args...)
	w.sb.WriteRune('\n')
}

// blank writes an empty line.
func (w *writer) blank() {
	w.sb.WriteRune('\n')
}

// open writes a block header followed by `{` and indents.
func (w *writer) open(format string, args ...interface{}) {
	w.line(fmt.Sprintf(format, args...) + " {")
	w.indent++
}

// close dedents and writes the closing `}`.
func (w *writer) close() {
	w.indent--
	w.line("}")
}

// closeWith dedents and writes `}` followed by a suffix on the same line,
// e.g. `} else {` or `});`.
func (w *writer) closeWith(suffix string) {
	w.indent--
	w.line("}" + suffix)
}

// raw appends text from another writer verbatim.
func (w *writer) raw(text string) {
	w.sb.WriteString(text)
}

func (w *writer) String() string {
	return w.sb.String()
}
