// Copyright © 2024 The Mago authors

// Package analysis performs semantic and type-flow analysis of one parsed
// file against a populated codebase.
//
// The analyzer walks statements in order, computing the type of every
// expression on demand.  A BlockContext carries the types of live variables
// and the ways the current block may exit; it is forked at conditional
// boundaries and merged afterwards.  Conditions produce assertions that the
// reconciler applies to narrow variable types inside the guarded branch.
// Each function body gets its own data-flow graph, which is queried once
// the body is done to find assignments whose value is never read.
package analysis

import (
	"github.com/magophp/mago/codebase"
	"github.com/magophp/mago/dataflow"
	"github.com/magophp/mago/diagnostic"
	"github.com/magophp/mago/names"
	"github.com/magophp/mago/parser/ast"
	"github.com/magophp/mago/reconciler"
	"github.com/magophp/mago/source"
	"github.com/magophp/mago/ttype"
)

// Settings toggles individual checks.
type Settings struct {
	FindUnusedExpressions bool
	FindUnusedDefinitions bool
	AnalyzeDeadCode       bool
	MemoizeProperties     bool
	AllowInclude          bool
	AllowEval             bool
	AllowEmpty            bool
	PerformTaintAnalysis  bool
}

// DefaultSettings enables every check except taint analysis.
func DefaultSettings() Settings {
	return Settings{
		FindUnusedExpressions: true,
		FindUnusedDefinitions: true,
		AnalyzeDeadCode:       true,
		MemoizeProperties:     true,
		AllowInclude:          true,
		AllowEval:             true,
		AllowEmpty:            true,
	}
}

// Config controls the behavior of the analyzer.
type Config struct {
	// Codebase is the populated index of every known symbol.
	Codebase *codebase.Codebase

	Settings Settings
}

// Assertions maps a variable key to the facts known about it.
type Assertions map[string][]reconciler.Assertion

// Artifacts are the facts computed while analyzing a file.  Spans are keyed
// by their start and end offsets.
type Artifacts struct {
	// Types holds the type of every analyzed expression.
	Types map[[2]uint32]ttype.Union
	// IfTrue and IfFalse hold the assertions of every analyzed condition.
	IfTrue  map[[2]uint32]Assertions
	IfFalse map[[2]uint32]Assertions
	// InferredReturns holds the returned types of each function-like,
	// keyed by the span of its declaration.
	InferredReturns map[[2]uint32][]ttype.Union
	// TemplateBounds holds the bounds of the template parameters at each
	// invocation of a generic function-like, keyed by the span of the call
	// and then by lowercase template name.
	TemplateBounds map[[2]uint32]map[string]TemplateBound
}

// TemplateBound constrains one template parameter at a call.  Lower holds
// the argument types that flowed into it; Upper is its declared constraint.
type TemplateBound struct {
	Lower []ttype.Union
	Upper ttype.Union
}

func newArtifacts() *Artifacts {
	return &Artifacts{
		Types:           make(map[[2]uint32]ttype.Union),
		IfTrue:          make(map[[2]uint32]Assertions),
		IfFalse:         make(map[[2]uint32]Assertions),
		InferredReturns: make(map[[2]uint32][]ttype.Union),
		TemplateBounds:  make(map[[2]uint32]map[string]TemplateBound),
	}
}

// TypeOf returns the type computed for node.
func (r *Artifacts) TypeOf(node ast.Node) (ttype.Union, bool) {
	t, ok := r.Types[node.Span().Key()]
	return t, ok
}

// Result holds the output of analyzing one file.
type Result struct {
	Issues     *diagnostic.IssueCollection
	Artifacts  *Artifacts
	References *codebase.SymbolReferences
	// DataFlow is the taint graph of the file.  It is empty unless taint
	// analysis is enabled.
	DataFlow *dataflow.Graph
}

// NewResult returns an empty result, suitable for reducing the results of
// several files.
func NewResult() *Result {
	return &Result{
		Issues:     &diagnostic.IssueCollection{},
		Artifacts:  newArtifacts(),
		References: codebase.NewSymbolReferences(),
		DataFlow:   dataflow.New(),
	}
}

// Extend folds other into r.  Artifacts are per file and are not merged.
func (r *Result) Extend(other *Result) {
	if other == nil {
		return
	}
	r.Issues.Extend(other.Issues)
	r.References.Extend(other.References)
	r.DataFlow.Extend(other.DataFlow)
}

// Analyze analyzes prog, the parsed content of f, with its resolved names.
// The codebase in cfg must have been populated.
func Analyze(f *source.File, prog *ast.Program, n *names.Names, cfg *Config) *Result {
	if cfg == nil {
		cfg = &Config{Settings: DefaultSettings()}
	}
	cb := cfg.Codebase
	if cb == nil {
		cb = codebase.New()
	}
	a := &analyzer{
		file:     f,
		prog:     prog,
		names:    n,
		cb:       cb,
		settings: cfg.Settings,
		result:   NewResult(),
		keyed:    make(map[string]ttype.Union),
		targets:  make(map[[2]uint32]*codebase.FunctionLikeMetadata),
		assigns:  make(map[[2]uint32]source.Span),
		taintOf:  make(map[[2]uint32][]*dataflow.Node),
	}
	a.types = &codebase.TypeBuilder{Names: n}

	fn := a.newFunctionContext(nil, nil, "")
	fn.global = true
	a.fn = fn
	ctx := NewBlockContext()
	a.statements(prog.Statements, ctx)

	if a.settings.PerformTaintAnalysis {
		a.reportTaints()
	}
	return a.result
}
