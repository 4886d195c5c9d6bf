// Copyright © 2024 The Mago authors

// Package lint provides syntactic checks over parsed source files.
//
// The linter is modeled after go vet: each check is an independent Analyzer
// that receives a parsed program and reports issues.  The framework handles
// running analyzers, applying per-rule settings, and collecting results.
//
// Analyzers are composable and extensible: embedders can define custom
// checks alongside the built-in set.
package lint

import (
	"fmt"
	"sort"
	"strings"

	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/wordwrap"

	"github.com/magophp/mago/diagnostic"
	"github.com/magophp/mago/parser/ast"
	"github.com/magophp/mago/source"
)

// Category is the issue category of every lint finding.  Pragmas name lint
// rules as "lint:<name>".
const Category = "lint"

// Analyzer defines a single lint check.
type Analyzer struct {
	// Name is a short identifier for this check (e.g. "no-eval").
	Name string

	// Group classifies the check ("safety", "correctness", ...).
	Group string

	// Doc is a human-readable description. The first line is a short summary.
	Doc string

	// Level is the default level of issues from this analyzer.
	Level diagnostic.Level

	// Run executes the check. It should call pass.Report for each finding.
	Run func(pass *Pass) error
}

// FullName returns "<group>/<name>".
func (a *Analyzer) FullName() string {
	return a.Group + "/" + a.Name
}

// Summary returns the first line of Doc.
func (a *Analyzer) Summary() string {
	s, _, _ := strings.Cut(a.Doc, "\n")
	return s
}

// RuleSettings configures one analyzer.
type RuleSettings struct {
	Enabled bool
	// Level overrides the analyzer's default level when non-nil.
	Level *diagnostic.Level
	// Options holds rule specific values, such as "threshold".
	Options map[string]any
}

// Int returns the integer option key, or def when it is missing or not a
// number.
func (s RuleSettings) Int(key string, def int) int {
	switch v := s.Options[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return def
}

// Pass provides context to a running analyzer.
type Pass struct {
	// Analyzer is the currently running check.
	Analyzer *Analyzer

	// File is the source file being analyzed.
	File *source.File

	// Program is the parsed content of File.
	Program *ast.Program

	// Settings holds the configuration of Analyzer.
	Settings RuleSettings

	issues []*diagnostic.Issue
}

// Report records a finding.  The category, code, and level are filled in
// from the analyzer.
func (p *Pass) Report(i *diagnostic.Issue) {
	i.Category = Category
	i.Code = p.Analyzer.Name
	i.Level = p.Analyzer.Level
	if p.Settings.Level != nil {
		i.Level = *p.Settings.Level
	}
	p.issues = append(p.issues, i)
}

// Reportf is a convenience for reporting a finding at span.
func (p *Pass) Reportf(span source.Span, label, format string, args ...interface{}) *diagnostic.Issue {
	i := diagnostic.NewIssue(p.Analyzer.Level, Category, p.Analyzer.Name, fmt.Sprintf(format, args...)).
		At(span, label)
	p.Report(i)
	return i
}

// Linter runs a set of analyzers over source files.
type Linter struct {
	Analyzers []*Analyzer

	// Settings is keyed by analyzer name.  Analyzers without an entry run
	// with their defaults.
	Settings map[string]RuleSettings
}

// New returns a linter running the default analyzers with settings.
func New(settings map[string]RuleSettings) *Linter {
	return &Linter{Analyzers: DefaultAnalyzers(), Settings: settings}
}

func (l *Linter) settings(a *Analyzer) RuleSettings {
	if s, ok := l.Settings[a.Name]; ok {
		return s
	}
	return RuleSettings{Enabled: true}
}

// Enabled returns the analyzers that will run.
func (l *Linter) Enabled() []*Analyzer {
	var out []*Analyzer
	for _, a := range l.Analyzers {
		if l.settings(a).Enabled {
			out = append(out, a)
		}
	}
	return out
}

// Lint runs every enabled analyzer over prog, the parsed content of f.
func (l *Linter) Lint(f *source.File, prog *ast.Program) (*diagnostic.IssueCollection, error) {
	all := &diagnostic.IssueCollection{}
	for _, analyzer := range l.Enabled() {
		pass := &Pass{
			Analyzer: analyzer,
			File:     f,
			Program:  prog,
			Settings: l.settings(analyzer),
		}
		if err := analyzer.Run(pass); err != nil {
			return nil, fmt.Errorf("%s: analyzer %s: %w", f.Name, analyzer.Name, err)
		}
		for _, i := range pass.issues {
			all.Add(i)
		}
	}
	return all, nil
}

// DefaultAnalyzers returns the built-in set of lint checks.
func DefaultAnalyzers() []*Analyzer {
	return []*Analyzer{
		AnalyzerNoEval,
		AnalyzerNoErrorControlOperator,
		AnalyzerAssignmentInCondition,
		AnalyzerNoEmptyCatchClause,
		AnalyzerTooManyParameters,
		AnalyzerRequireReturnType,
		AnalyzerClassName,
	}
}

// Lookup returns the default analyzer named name, accepting either the
// short or the "<group>/<name>" form.
func Lookup(name string) (*Analyzer, bool) {
	for _, a := range DefaultAnalyzers() {
		if a.Name == name || a.FullName() == name {
			return a, true
		}
	}
	return nil, false
}

// AnalyzerNames returns a sorted list of all default analyzer names.
func AnalyzerNames() []string {
	analyzers := DefaultAnalyzers()
	names := make([]string, len(analyzers))
	for i, a := range analyzers {
		names[i] = a.FullName()
	}
	sort.Strings(names)
	return names
}

// AnalyzerDoc returns a formatted documentation string for all analyzers,
// wrapped at width.
func AnalyzerDoc(width int) string {
	var b strings.Builder
	for _, a := range DefaultAnalyzers() {
		fmt.Fprintf(&b, "  %s (%s)\n", a.FullName(), a.Level)
		b.WriteString(indent.String(wordwrap.String(a.Summary(), width-4), uint(4)))
		b.WriteString("\n\n")
	}
	return b.String()
}

// Explain returns the full documentation of a, wrapped at width.
func Explain(a *Analyzer, width int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (default level: %s)\n\n", a.FullName(), a.Level)
	for _, para := range strings.Split(a.Doc, "\n\n") {
		b.WriteString(indent.String(wordwrap.String(para, width-2), uint(2)))
		b.WriteString("\n\n")
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}
