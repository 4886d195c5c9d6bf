// Copyright © 2024 The Mago authors

// Package diagnostic holds the issue model shared by the analyzer, the linter
// and the CLI: issues with annotated spans, fix plans, and collections of
// issues grouped by file.  Reporters in this package turn a collection into
// one of several output formats.
package diagnostic

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/magophp/mago/source"
)

// Level indicates the severity of an issue.
type Level int

const (
	LevelHelp Level = iota
	LevelNote
	LevelWarning
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelHelp:
		return "help"
	case LevelNote:
		return "note"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	default:
		return "unknown"
	}
}

// ParseLevel parses a level name as written in configuration files.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "help":
		return LevelHelp, nil
	case "note", "info":
		return LevelNote, nil
	case "warning", "warn":
		return LevelWarning, nil
	case "error":
		return LevelError, nil
	}
	return LevelHelp, fmt.Errorf("unknown level: %q", s)
}

// MarshalJSON serializes the level as a JSON string.
func (l Level) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

// UnmarshalJSON deserializes a level from a JSON string.
func (l *Level) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	lvl, err := ParseLevel(str)
	if err != nil {
		return err
	}
	*l = lvl
	return nil
}

// AnnotationKind distinguishes the span an issue is about from related spans.
type AnnotationKind int

const (
	Primary AnnotationKind = iota
	Secondary
)

// Annotation labels a region of source code.
type Annotation struct {
	Span    source.Span
	Message string
	Kind    AnnotationKind
}

// PrimaryAt returns a primary annotation over span.
func PrimaryAt(span source.Span, msg string) Annotation {
	return Annotation{Span: span, Message: msg, Kind: Primary}
}

// SecondaryAt returns a secondary annotation over span.
func SecondaryAt(span source.Span, msg string) Annotation {
	return Annotation{Span: span, Message: msg, Kind: Secondary}
}

// Issue is a single reported problem.
type Issue struct {
	Level    Level
	Category string // "analysis", "lint", "syntax" ...
	Code     string
	Message  string

	Primary   Annotation
	Secondary []Annotation

	Notes []string
	Help  string
	Link  string
	Fix   *FixPlan
}

// NewIssue starts an issue at the given level.  The primary annotation is
// attached with At.
func NewIssue(level Level, category, code, msg string) *Issue {
	return &Issue{Level: level, Category: category, Code: code, Message: msg}
}

// At sets the primary annotation.
func (i *Issue) At(span source.Span, label string) *Issue {
	i.Primary = PrimaryAt(span, label)
	return i
}

// Also adds a secondary annotation.
func (i *Issue) Also(span source.Span, label string) *Issue {
	i.Secondary = append(i.Secondary, SecondaryAt(span, label))
	return i
}

// WithNote appends a note.
func (i *Issue) WithNote(note string) *Issue {
	i.Notes = append(i.Notes, note)
	return i
}

// WithHelp sets the help text.
func (i *Issue) WithHelp(help string) *Issue {
	i.Help = help
	return i
}

// WithLink sets the documentation link.
func (i *Issue) WithLink(link string) *Issue {
	i.Link = link
	return i
}

// WithFix attaches a fix plan.
func (i *Issue) WithFix(plan *FixPlan) *Issue {
	i.Fix = plan
	return i
}

// File returns the file of the primary annotation.
func (i *Issue) File() source.FileID {
	return i.Primary.Span.File
}

// Rule returns the "<category>:<code>" pair matched by suppression pragmas.
func (i *Issue) Rule() string {
	return i.Category + ":" + i.Code
}

// Annotations returns the primary annotation followed by the secondary ones.
func (i *Issue) Annotations() []Annotation {
	out := make([]Annotation, 0, 1+len(i.Secondary))
	out = append(out, i.Primary)
	return append(out, i.Secondary...)
}

func (i *Issue) String() string {
	return fmt.Sprintf("%s[%s]: %s (%s)", i.Level, i.Code, i.Message, i.Primary.Span)
}

// IssueCollection aggregates issues by file.  The zero value is ready to use;
// a collection is not safe for concurrent use, so each worker owns its own
// and results are combined with Extend.
type IssueCollection struct {
	byFile map[source.FileID][]*Issue
	n      int
}

// NewIssueCollection returns a collection holding issues.
func NewIssueCollection(issues ...*Issue) *IssueCollection {
	c := &IssueCollection{}
	for _, i := range issues {
		c.Add(i)
	}
	return c
}

// Add records an issue.
func (c *IssueCollection) Add(i *Issue) {
	if i == nil {
		return
	}
	if c.byFile == nil {
		c.byFile = make(map[source.FileID][]*Issue)
	}
	c.byFile[i.File()] = append(c.byFile[i.File()], i)
	c.n++
}

// Extend adds every issue of other.
func (c *IssueCollection) Extend(other *IssueCollection) {
	if other == nil {
		return
	}
	for _, issues := range other.byFile {
		for _, i := range issues {
			c.Add(i)
		}
	}
}

// Len returns the number of issues.
func (c *IssueCollection) Len() int {
	return c.n
}

// File returns the issues reported against id in insertion order.
func (c *IssueCollection) File(id source.FileID) []*Issue {
	return c.byFile[id]
}

// Files returns the IDs of files with at least one issue, ascending.
func (c *IssueCollection) Files() []source.FileID {
	ids := make([]source.FileID, 0, len(c.byFile))
	for id := range c.byFile {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// All returns every issue sorted by file, offset, and code.
func (c *IssueCollection) All() []*Issue {
	out := make([]*Issue, 0, c.n)
	for _, id := range c.Files() {
		issues := append([]*Issue(nil), c.byFile[id]...)
		sort.SliceStable(issues, func(i, j int) bool {
			a, b := issues[i].Primary.Span, issues[j].Primary.Span
			if a.Start != b.Start {
				return a.Start < b.Start
			}
			return issues[i].Code < issues[j].Code
		})
		out = append(out, issues...)
	}
	return out
}

// Filter returns a new collection holding the issues for which keep is true.
func (c *IssueCollection) Filter(keep func(*Issue) bool) *IssueCollection {
	out := &IssueCollection{}
	for _, issues := range c.byFile {
		for _, i := range issues {
			if keep(i) {
				out.Add(i)
			}
		}
	}
	return out
}

// Count returns the number of issues at level.
func (c *IssueCollection) Count(level Level) int {
	n := 0
	for _, issues := range c.byFile {
		for _, i := range issues {
			if i.Level == level {
				n++
			}
		}
	}
	return n
}

// HasErrors reports whether any issue is at LevelError.
func (c *IssueCollection) HasErrors() bool {
	return c.Count(LevelError) > 0
}

// Codes returns the codes of all issues in sorted order.  It exists mostly
// for tests.
func (c *IssueCollection) Codes() []string {
	var codes []string
	for _, i := range c.All() {
		codes = append(codes, i.Code)
	}
	return codes
}
