package makefile

import (
	"bufio"
	"io"
	"strings"
	"unicode"
)

const (
	lineWidth   = 80
	indentWidth = 4
)

var continuationIndent = strings.Repeat(" ", indentWidth)

// countingWriter tracks bytes written for io.WriterTo.
type countingWriter struct {
	w *bufio.Writer
	n int64
}

func (c *countingWriter) WriteString(s string) (int, error) {
	n, err := c.w.WriteString(s)
	c.n += int64(n)
	return n, err
}

// makeWriter writes Makefile syntax, wrapping long prerequisite lists.
type makeWriter struct {
	writer           io.StringWriter
	justDidBlankLine bool
	err              error
}

func (w *makeWriter) writeString(s string) {
	if w.err != nil {
		return
	}
	_, w.err = w.writer.WriteString(s)
}

// Comment writes comment as one or more "# " lines wrapped at lineWidth.
func (w *makeWriter) Comment(comment string) {
	w.justDidBlankLine = false
	const maxLineLen = lineWidth - len("# ")

	for _, paragraph := range strings.Split(comment, "\n") {
		words := strings.FieldsFunc(paragraph, unicode.IsSpace)
		if len(words) == 0 {
			w.writeString("#\n")
			continue
		}
		line := words[0]
		for _, word := range words[1:] {
			if len(line)+1+len(word) > maxLineLen {
				w.writeString("# " + line + "\n")
				line = word
				continue
			}
			line += " " + word
		}
		w.writeString("# " + line + "\n")
	}
}

// Line writes a raw line.
func (w *makeWriter) Line(s string) {
	w.justDidBlankLine = false
	w.writeString(s + "\n")
}

// BlankLine writes an empty line unless the last thing written was one.
func (w *makeWriter) BlankLine() {
	if !w.justDidBlankLine {
		w.justDidBlankLine = true
		w.writeString("\n")
	}
}

// Rule writes "target: prereqs | order-only" followed by tab-indented commands.
func (w *makeWriter) Rule(r *Rule) {
	w.justDidBlankLine = false
	if r.Comment != "" {
		w.Comment(r.Comment)
	}

	wrapper := wrapWriter{makeWriter: w, maxLineLen: lineWidth - len(" \\")}
	wrapper.WriteString(r.Target + ":")
	for _, p := range r.Prereqs {
		wrapper.WriteStringWithSpace(p)
	}
	if len(r.OrderOnly) > 0 {
		wrapper.WriteStringWithSpace("|")
		for _, p := range r.OrderOnly {
			wrapper.WriteStringWithSpace(p)
		}
	}
	w.writeString("\n")

	for _, cmd := range r.Commands {
		w.writeString("\t" + cmd + "\n")
	}
}

// wrapWriter breaks a logical line with backslash continuations.
type wrapWriter struct {
	*makeWriter
	maxLineLen int
	writtenLen int
}

func (w *wrapWriter) write(s string, space bool) {
	spaceLen := 0
	if space {
		spaceLen = 1
	}

	if w.writtenLen > 0 && w.writtenLen+len(s)+spaceLen > w.maxLineLen {
		w.writeString(" \\\n" + continuationIndent)
		w.writtenLen = indentWidth
	} else if space {
		w.writeString(" ")
		w.writtenLen++
	}
	w.writeString(s)
	w.writtenLen += len(s)
}

func (w *wrapWriter) WriteString(s string) {
	w.write(s, false)
}

func (w *wrapWriter) WriteStringWithSpace(s string) {
	w.write(s, true)
}

// WriteTo serializes the Makefile.
func (m *Makefile) WriteTo(out io.Writer) (int64, error) {
	cw := &countingWriter{w: bufio.NewWriter(out)}
	w := &makeWriter{writer: cw}

	if m.banner != "" {
		w.Comment(m.banner)
		w.BlankLine()
	}

	for _, h := range m.heads {
		for _, line := range h.lines {
			w.Line(line)
		}
		w.BlankLine()
	}

	phony := []string{AllTarget}
	for _, r := range m.rules {
		if r.Phony {
			phony = append(phony, r.Target)
		}
	}
	phony = append(phony, InstallTarget, CleanTarget)
	w.Rule(&Rule{Target: ".PHONY", Prereqs: phony})
	w.BlankLine()

	w.Rule(&Rule{Target: AllTarget, Prereqs: m.defaults})
	w.BlankLine()

	for _, r := range m.rules {
		w.Rule(r)
		w.BlankLine()
	}

	w.Rule(m.install)
	w.BlankLine()

	clean := &Rule{Target: CleanTarget}
	if len(m.clean) > 0 {
		clean.Commands = []string{"rm -rf " + strings.Join(m.clean, " ")}
	}
	w.Rule(clean)

	if w.err != nil {
		return cw.n, w.err
	}
	return cw.n, cw.w.Flush()
}

// String returns the serialized Makefile.
func (m *Makefile) String() string {
	var sb strings.Builder
	_, _ = m.WriteTo(&sb)
	return sb.String()
}
