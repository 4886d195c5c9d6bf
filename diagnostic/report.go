// Copyright © 2024 The Mago authors

package diagnostic

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// Format selects how a Reporter writes issues.
type Format string

const (
	FormatRich       Format = "rich"
	FormatMedium     Format = "medium"
	FormatShort      Format = "short"
	FormatJSON       Format = "json"
	FormatCheckstyle Format = "checkstyle"
	FormatEmacs      Format = "emacs"
	FormatGitHub     Format = "github"
)

// Formats lists every supported format in display order.
var Formats = []Format{FormatRich, FormatMedium, FormatShort, FormatJSON, FormatCheckstyle, FormatEmacs, FormatGitHub}

// ParseFormat validates a --reporting-format value.
func ParseFormat(s string) (Format, error) {
	for _, f := range Formats {
		if string(f) == strings.ToLower(s) {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown reporting format %q", s)
}

// Reporter writes an IssueCollection in a chosen format.
type Reporter struct {
	Format Format
	Color  ColorMode
	Files  Files
}

// Report writes every issue of c to w.
func (r *Reporter) Report(w io.Writer, c *IssueCollection) error {
	issues := c.All()
	switch r.Format {
	case FormatRich, "":
		rr := &Renderer{Color: r.Color, Files: r.Files}
		return rr.RenderAll(w, issues)
	case FormatMedium:
		rr := &Renderer{Color: r.Color, Files: r.Files, Compact: true}
		return rr.RenderAll(w, issues)
	case FormatShort:
		return r.lines(w, issues, func(loc Location, i *Issue) string {
			return fmt.Sprintf("%s: %s[%s]: %s", loc, i.Level, i.Code, i.Message)
		})
	case FormatEmacs:
		return r.lines(w, issues, func(loc Location, i *Issue) string {
			return fmt.Sprintf("%s:%d:%d:%s - %s: %s", loc.File, loc.Line, loc.Col, i.Level, i.Code, i.Message)
		})
	case FormatGitHub:
		return r.lines(w, issues, githubLine)
	case FormatJSON:
		return r.writeJSON(w, issues)
	case FormatCheckstyle:
		return r.writeCheckstyle(w, issues)
	}
	return fmt.Errorf("unknown reporting format %q", r.Format)
}

func (r *Reporter) lines(w io.Writer, issues []*Issue, line func(Location, *Issue) string) error {
	ew := &errWriter{w: w}
	for _, i := range issues {
		ew.print(line(Locate(r.Files, i.Primary.Span), i))
		ew.print("\n")
	}
	return ew.err
}

func githubLine(loc Location, i *Issue) string {
	kind := "notice"
	switch i.Level {
	case LevelError:
		kind = "error"
	case LevelWarning:
		kind = "warning"
	}
	return fmt.Sprintf("::%s file=%s,line=%d,col=%d,endLine=%d,endColumn=%d,title=%s::%s",
		kind, loc.File, loc.Line, loc.Col, loc.EndLine, loc.EndCol, i.Code, githubEscape(i.Message))
}

func githubEscape(s string) string {
	r := strings.NewReplacer("%", "%25", "\r", "%0D", "\n", "%0A")
	return r.Replace(s)
}

type jsonAnnotation struct {
	File    string `json:"file"`
	Line    int    `json:"line"`
	Col     int    `json:"column"`
	EndLine int    `json:"end_line"`
	EndCol  int    `json:"end_column"`
	Start   uint32 `json:"start"`
	End     uint32 `json:"end"`
	Message string `json:"message,omitempty"`
	Primary bool   `json:"primary"`
}

type jsonEdit struct {
	Start       uint32 `json:"start"`
	End         uint32 `json:"end"`
	Replacement string `json:"replacement"`
	Safety      string `json:"safety"`
}

type jsonIssue struct {
	Level       Level            `json:"level"`
	Category    string           `json:"category,omitempty"`
	Code        string           `json:"code"`
	Message     string           `json:"message"`
	Annotations []jsonAnnotation `json:"annotations"`
	Notes       []string         `json:"notes,omitempty"`
	Help        string           `json:"help,omitempty"`
	Link        string           `json:"link,omitempty"`
	Edits       []jsonEdit       `json:"edits,omitempty"`
}

func (r *Reporter) writeJSON(w io.Writer, issues []*Issue) error {
	out := struct {
		Issues []jsonIssue `json:"issues"`
	}{Issues: make([]jsonIssue, 0, len(issues))}
	for _, i := range issues {
		ji := jsonIssue{
			Level:    i.Level,
			Category: i.Category,
			Code:     i.Code,
			Message:  i.Message,
			Notes:    i.Notes,
			Help:     i.Help,
			Link:     i.Link,
		}
		for _, a := range i.Annotations() {
			loc := Locate(r.Files, a.Span)
			ji.Annotations = append(ji.Annotations, jsonAnnotation{
				File:    loc.File,
				Line:    loc.Line,
				Col:     loc.Col,
				EndLine: loc.EndLine,
				EndCol:  loc.EndCol,
				Start:   a.Span.Start,
				End:     a.Span.End,
				Message: a.Message,
				Primary: a.Kind == Primary,
			})
		}
		for _, e := range i.Fix.Edits() {
			ji.Edits = append(ji.Edits, jsonEdit{
				Start:       e.Range.Start,
				End:         e.Range.End,
				Replacement: e.Replacement,
				Safety:      e.Safety.String(),
			})
		}
		out.Issues = append(out.Issues, ji)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

type checkstyleError struct {
	Line     int    `xml:"line,attr"`
	Column   int    `xml:"column,attr"`
	Severity string `xml:"severity,attr"`
	Message  string `xml:"message,attr"`
	Source   string `xml:"source,attr"`
}

type checkstyleFile struct {
	Name   string            `xml:"name,attr"`
	Errors []checkstyleError `xml:"error"`
}

type checkstyleReport struct {
	XMLName xml.Name          `xml:"checkstyle"`
	Files   []*checkstyleFile `xml:"file"`
}

func (r *Reporter) writeCheckstyle(w io.Writer, issues []*Issue) error {
	report := checkstyleReport{}
	byName := make(map[string]*checkstyleFile)
	for _, i := range issues {
		loc := Locate(r.Files, i.Primary.Span)
		f, ok := byName[loc.File]
		if !ok {
			f = &checkstyleFile{Name: loc.File}
			byName[loc.File] = f
			report.Files = append(report.Files, f)
		}
		severity := "info"
		switch i.Level {
		case LevelError:
			severity = "error"
		case LevelWarning:
			severity = "warning"
		}
		f.Errors = append(f.Errors, checkstyleError{
			Line:     loc.Line,
			Column:   loc.Col,
			Severity: severity,
			Message:  i.Message,
			Source:   i.Rule(),
		})
	}
	ew := &errWriter{w: w}
	ew.print(xml.Header)
	if ew.err != nil {
		return ew.err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(report); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}
