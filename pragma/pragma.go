// Copyright © 2024 The Mago authors

// Package pragma implements in-source suppression comments.
//
// A comment of the form
//
//	// @mago-ignore analysis:unused-assignment
//
// suppresses matching issues reported on the line it annotates.
// @mago-expect suppresses in the same way but is itself reported as
// unfulfilled-expect when nothing it names fires.  A pragma annotates its
// own line when it trails code, and otherwise the next line holding code.
package pragma

import (
	"fmt"
	"sort"
	"strings"

	"github.com/magophp/mago/diagnostic"
	"github.com/magophp/mago/parser/ast"
	"github.com/magophp/mago/source"
)

// Category is the category of issues reported by this package.
const Category = "pragma"

// CodeUnfulfilledExpect is reported for expectations that matched nothing.
const CodeUnfulfilledExpect = "unfulfilled-expect"

// Kind distinguishes ignore and expect pragmas.
type Kind uint8

const (
	Ignore Kind = iota
	Expect
)

func (k Kind) String() string {
	if k == Expect {
		return "@mago-expect"
	}
	return "@mago-ignore"
}

// Pragma is one suppression comment.
type Pragma struct {
	Kind Kind
	// Rules are "<category>:<code>" pairs.
	Rules []string
	// Span covers the whole comment.
	Span source.Span
	// Line is the 1-based line the pragma annotates.
	Line int

	used []bool
}

// Collect returns the pragmas found in the comments of prog.
func Collect(f *source.File, prog *ast.Program) []*Pragma {
	var out []*Pragma
	for _, c := range prog.Comments() {
		kind, rules, ok := parseComment(c.Value)
		if !ok {
			continue
		}
		out = append(out, &Pragma{
			Kind:  kind,
			Rules: rules,
			Span:  c.Range,
			Line:  targetLine(f, c.Range),
			used:  make([]bool, len(rules)),
		})
	}
	return out
}

// parseComment extracts the directive of a comment.  Rule tokens may be
// separated by whitespace or commas; the list ends at the first token that is
// not a rule, so a description may follow.
func parseComment(text string) (Kind, []string, bool) {
	for _, d := range []Kind{Ignore, Expect} {
		i := strings.Index(text, d.String())
		if i < 0 {
			continue
		}
		rest := text[i+len(d.String()):]
		if rest != "" && !isSeparator(rune(rest[0])) {
			continue
		}
		rest = strings.TrimSuffix(strings.TrimSpace(rest), "*/")
		var rules []string
		for _, tok := range strings.FieldsFunc(rest, isSeparator) {
			cat, code, ok := strings.Cut(tok, ":")
			if !ok || cat == "" || code == "" {
				break
			}
			rules = append(rules, tok)
		}
		if len(rules) == 0 {
			return d, nil, false
		}
		return d, rules, true
	}
	return Ignore, nil, false
}

func isSeparator(r rune) bool {
	return r == ' ' || r == '\t' || r == ',' || r == '\n' || r == '\r'
}

// targetLine returns the line annotated by a comment at span.
func targetLine(f *source.File, span source.Span) int {
	start := f.LineNumber(int(span.Start))
	if strings.TrimSpace(f.Content[f.LineStart(start):span.Start]) != "" {
		return start
	}
	line := f.LineNumber(int(span.End)) + 1
	for ; line <= f.LineCount(); line++ {
		text := strings.TrimSpace(f.Line(line))
		if text == "" || isCommentLine(text) {
			continue
		}
		break
	}
	return line
}

func isCommentLine(text string) bool {
	for _, p := range []string{"//", "#", "/*", "*"} {
		if strings.HasPrefix(text, p) {
			return true
		}
	}
	return false
}

// match reports whether the pragma suppresses i and marks the matching rule
// as used.
func (p *Pragma) match(f *source.File, i *diagnostic.Issue) bool {
	if f.LineNumber(int(i.Primary.Span.Start)) != p.Line {
		return false
	}
	rule := i.Rule()
	for k, r := range p.Rules {
		if r == rule {
			p.used[k] = true
			return true
		}
	}
	return false
}

// Set is the pragmas of one file.
type Set struct {
	file    *source.File
	pragmas []*Pragma
}

// NewSet collects the pragmas of f.
func NewSet(f *source.File, prog *ast.Program) *Set {
	return &Set{file: f, pragmas: Collect(f, prog)}
}

// Len returns the number of pragmas.
func (s *Set) Len() int {
	return len(s.pragmas)
}

// Suppressed reports whether some pragma suppresses i.
func (s *Set) Suppressed(i *diagnostic.Issue) bool {
	if i.File() != s.file.ID {
		return false
	}
	hit := false
	for _, p := range s.pragmas {
		// Every matching pragma is marked, so duplicates are not reported
		// as unfulfilled.
		if p.match(s.file, i) {
			hit = true
		}
	}
	return hit
}

// Unfulfilled returns an issue for every expected rule that suppressed
// nothing.
func (s *Set) Unfulfilled() []*diagnostic.Issue {
	var out []*diagnostic.Issue
	for _, p := range s.pragmas {
		if p.Kind != Expect {
			continue
		}
		var missing []string
		for k, r := range p.Rules {
			if !p.used[k] {
				missing = append(missing, r)
			}
		}
		if len(missing) == 0 {
			continue
		}
		sort.Strings(missing)
		issue := diagnostic.NewIssue(diagnostic.LevelWarning, Category, CodeUnfulfilledExpect,
			fmt.Sprintf("Expected `%s` on line %d, but it was not reported.", strings.Join(missing, "`, `"), p.Line)).
			At(p.Span, "unfulfilled expectation").
			WithHelp("Remove the rule from the pragma.")
		for _, r := range missing {
			issue.WithNote(fmt.Sprintf("`%s` was expected here", r))
		}
		if len(missing) == len(p.Rules) {
			if plan, err := diagnostic.NewFixPlan(diagnostic.Delete(p.Span, diagnostic.PotentiallyUnsafe)); err == nil {
				issue.WithFix(plan)
			}
		}
		out = append(out, issue)
	}
	return out
}

// Apply returns the issues of c with those suppressed by the pragmas of f
// removed and unfulfilled expectations added.  Issues of other files pass
// through unchanged.
func Apply(f *source.File, prog *ast.Program, c *diagnostic.IssueCollection) *diagnostic.IssueCollection {
	s := NewSet(f, prog)
	if s.Len() == 0 {
		return c
	}
	out := c.Filter(func(i *diagnostic.Issue) bool { return !s.Suppressed(i) })
	for _, i := range s.Unfulfilled() {
		out.Add(i)
	}
	return out
}
