// Copyright © 2024 The Mago authors

package diagnostic

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/wordwrap"

	"github.com/magophp/mago/source"
)

// Files resolves the file IDs carried by spans.  *source.Database satisfies
// it.
type Files interface {
	Get(id source.FileID) (*source.File, error)
}

// Location is a span translated to 1-based line and column numbers.
type Location struct {
	File    string
	Line    int
	Col     int
	EndLine int
	EndCol  int
}

func (l Location) String() string {
	if l.Line == 0 {
		return l.File
	}
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Col)
}

// Locate translates span using files.  When the file is unknown only the
// numeric ID is filled in.
func Locate(files Files, span source.Span) Location {
	if files == nil {
		return Location{File: fmt.Sprintf("file#%d", span.File)}
	}
	f, err := files.Get(span.File)
	if err != nil {
		return Location{File: fmt.Sprintf("file#%d", span.File)}
	}
	return Location{
		File:    f.Name,
		Line:    f.LineNumber(int(span.Start)),
		Col:     f.ColumnNumber(int(span.Start)),
		EndLine: f.LineNumber(int(span.End)),
		EndCol:  f.ColumnNumber(int(span.End)),
	}
}

// Renderer formats issues as annotated source snippets.
type Renderer struct {
	// Color controls ANSI color output. Default is ColorAuto.
	Color ColorMode

	// Files resolves spans to source text.  Snippets are omitted when nil.
	Files Files

	// Compact limits the output to the header, the primary snippet, and
	// the help line.
	Compact bool

	// Width is the column at which help and notes wrap.  Zero means 100.
	Width int
}

// Render writes a single issue to w.
func (r *Renderer) Render(w io.Writer, i *Issue) error {
	p := choosePalette(r.Color, fileFromWriter(w))
	bw := bufio.NewWriter(w)
	ew := &errWriter{w: bw}

	r.writeHeader(ew, i, p)

	annotations := []Annotation{i.Primary}
	if !r.Compact {
		secondary := append([]Annotation(nil), i.Secondary...)
		sortAnnotations(secondary)
		annotations = append(annotations, secondary...)
	}
	gutter := r.gutterWidth(annotations)
	for n, a := range annotations {
		r.writeAnnotation(ew, a, n == 0, gutter, p)
	}

	if !r.Compact {
		for _, note := range i.Notes {
			ew.printf("%s %s=%s note: %s\n", strings.Repeat(" ", gutter), p.boldCyan, p.reset, r.wrap(note, gutter+9))
		}
	}
	if i.Help != "" {
		ew.printf("%s %s=%s help: %s\n", strings.Repeat(" ", gutter), p.boldCyan, p.reset, r.wrap(i.Help, gutter+9))
	}
	if i.Link != "" && !r.Compact {
		ew.printf("%s %s=%s see: %s\n", strings.Repeat(" ", gutter), p.boldCyan, p.reset, i.Link)
	}

	if ew.err != nil {
		return ew.err
	}
	return bw.Flush()
}

// RenderAll writes all issues to w separated by blank lines.
func (r *Renderer) RenderAll(w io.Writer, issues []*Issue) error {
	for n, i := range issues {
		if n > 0 {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
		if err := r.Render(w, i); err != nil {
			return err
		}
	}
	return nil
}

// errWriter wraps a writer and captures the first error, short-circuiting
// subsequent writes. This avoids checking every fmt.Fprintf return value.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, a ...interface{}) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, a...)
}

func (ew *errWriter) print(s string) {
	if ew.err != nil {
		return
	}
	_, ew.err = io.WriteString(ew.w, s)
}

func (r *Renderer) writeHeader(ew *errWriter, i *Issue, p palette) {
	ew.printf("%s%s%s[%s]%s: %s%s%s\n",
		p.levelColor(i.Level), p.bold, i.Level, i.Code, p.reset,
		p.bold, i.Message, p.reset)
}

func (r *Renderer) gutterWidth(annotations []Annotation) int {
	width := 1
	for _, a := range annotations {
		loc := Locate(r.Files, a.Span)
		if n := len(fmt.Sprint(loc.Line)); n > width {
			width = n
		}
	}
	return width
}

func (r *Renderer) writeAnnotation(ew *errWriter, a Annotation, first bool, gutter int, p palette) {
	loc := Locate(r.Files, a.Span)
	pad := strings.Repeat(" ", gutter)
	arrow := "-->"
	if !first {
		arrow = ":::"
	}
	ew.printf("%s%s%s%s %s\n", pad, p.boldBlue, arrow, p.reset, loc)

	line, ok := r.sourceLine(a.Span.File, loc.Line)
	if !ok {
		ew.printf("%s %s|%s\n", pad, p.boldBlue, p.reset)
		return
	}

	ew.printf("%s %s|%s\n", pad, p.boldBlue, p.reset)
	ew.printf("%s%*d |%s %s\n", p.boldBlue, gutter, loc.Line, p.reset, expandTabs(line))

	col := loc.Col
	if col < 1 {
		col = 1
	}
	endCol := loc.EndCol
	if loc.EndLine != loc.Line {
		endCol = len(line) + 1
	}
	if endCol <= col {
		endCol = col + 1
	}
	prefix := ""
	if col-1 <= len(line) {
		prefix = line[:col-1]
	}
	marker, color := "^", p.boldRed
	if a.Kind == Secondary {
		marker, color = "-", p.boldBlue
	}
	ew.printf("%s %s|%s %s%s%s%s",
		pad, p.boldBlue, p.reset,
		strings.Repeat(" ", displayWidth(prefix)),
		color, strings.Repeat(marker, endCol-col), p.reset)
	if a.Message != "" {
		ew.printf(" %s%s%s", color, a.Message, p.reset)
	}
	ew.print("\n")
}

func (r *Renderer) sourceLine(id source.FileID, line int) (string, bool) {
	if r.Files == nil || line <= 0 {
		return "", false
	}
	f, err := r.Files.Get(id)
	if err != nil || line > f.LineCount() {
		return "", false
	}
	return f.Line(line), true
}

func (r *Renderer) wrap(s string, hang int) string {
	width := r.Width
	if width <= 0 {
		width = 100
	}
	if width-hang < 20 || len(s) <= width-hang {
		return s
	}
	wrapped := wordwrap.String(s, width-hang)
	first, rest, found := strings.Cut(wrapped, "\n")
	if !found {
		return wrapped
	}
	return first + "\n" + indent.String(rest, uint(hang))
}

func expandTabs(s string) string {
	return strings.ReplaceAll(s, "\t", "    ")
}

// displayWidth returns the display width of a string, expanding tabs to 4 spaces.
func displayWidth(s string) int {
	w := 0
	for _, ch := range s {
		if ch == '\t' {
			w += 4
		} else {
			w++
		}
	}
	return w
}

// fileFromWriter attempts to extract an *os.File from a writer for terminal
// detection. Returns nil if the writer is not backed by a file.
func fileFromWriter(w io.Writer) *os.File {
	if f, ok := w.(*os.File); ok {
		return f
	}
	return nil
}

// sortAnnotations orders annotations by file then offset.
func sortAnnotations(as []Annotation) {
	sort.SliceStable(as, func(i, j int) bool {
		if as[i].Span.File != as[j].Span.File {
			return as[i].Span.File < as[j].Span.File
		}
		return as[i].Span.Start < as[j].Span.Start
	})
}
