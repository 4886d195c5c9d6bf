// Copyright © 2024 The Mago authors

package lsp

import (
	"strings"

	"go.uber.org/zap"

	"github.com/magophp/mago/analysis"
	"github.com/magophp/mago/astutil"
	"github.com/magophp/mago/codebase"
	"github.com/magophp/mago/names"
	"github.com/magophp/mago/parser"
	"github.com/magophp/mago/parser/ast"
	"github.com/magophp/mago/source"
	"github.com/magophp/mago/ttype"
)

// semantics is the analysis of one document version against the
// workspace.  The tree, names, and artifacts are computed on first use by a
// hover or definition request.
type semantics struct {
	db   *source.Database
	file *source.File
	cb   *codebase.Codebase

	prog      *ast.Program
	names     *names.Names
	artifacts *analysis.Artifacts
}

// semanticsOf returns the analysis of the current version of doc, or nil
// when it could not be analyzed.
func (s *Server) semanticsOf(doc *Document) *semantics {
	s.ensureAnalysis(doc)

	doc.mu.Lock()
	defer doc.mu.Unlock()
	sem := doc.sem
	if sem == nil || sem.artifacts != nil {
		return sem
	}

	defer func() {
		if r := recover(); r != nil {
			s.log.Error("lsp.semantics.panic", zap.String("uri", doc.URI), zap.Any("panic", r))
			doc.sem = nil
		}
	}()
	prog, _ := parser.Parse(sem.file)
	sem.prog = prog
	sem.names = names.Resolve(sem.db.Interner(), prog)
	res := analysis.Analyze(sem.file, prog, sem.names, &analysis.Config{
		Codebase: sem.cb,
		Settings: s.currentConfig().AnalysisSettings(),
	})
	sem.artifacts = res.Artifacts
	return sem
}

// nodesAt returns the nodes whose span contains offset, outermost first.
func (sem *semantics) nodesAt(offset int) []ast.Node {
	off := uint32(offset) //nolint:gosec // offsets are bounded by the file size
	var path []ast.Node
	astutil.Walk(sem.prog, func(n ast.Node, _ []ast.Node) {
		sp := n.Span()
		if sp.Start <= off && off < sp.End {
			path = append(path, n)
		}
	})
	return path
}

// symbol is a declaration found under the cursor.
type symbol struct {
	kind     names.Kind
	class    *codebase.ClassLikeMetadata
	function *codebase.FunctionLikeMetadata
	constant *codebase.ConstantMetadata
}

// span returns the span to navigate to.
func (sym *symbol) span() source.Span {
	switch {
	case sym.class != nil:
		return sym.class.NameSpan
	case sym.function != nil:
		if sym.function.NameSpan.Len() > 0 {
			return sym.function.NameSpan
		}
		return sym.function.Span
	default:
		return sym.constant.Span
	}
}

// symbolAt resolves the name or member under offset to its declaration.
func (sem *semantics) symbolAt(offset int) (*symbol, bool) {
	path := sem.nodesAt(offset)
	for i := len(path) - 1; i >= 0; i-- {
		switch n := path[i].(type) {
		case *ast.Name:
			return sem.resolveName(n)
		case *ast.Ident:
			if i == 0 {
				return nil, false
			}
			return sem.resolveMember(path[i-1], n)
		}
	}
	return nil, false
}

func (sem *semantics) resolveName(n *ast.Name) (*symbol, bool) {
	start := n.Span().Start
	fqn, ok := sem.names.Lookup(start)
	if !ok {
		return nil, false
	}
	kind, _ := sem.names.Kind(start)
	candidates := []string{fqn}
	if fb, ok := sem.names.Fallback(start); ok {
		candidates = append(candidates, fb)
	}
	for _, name := range candidates {
		switch kind {
		case names.KindClass:
			if m, ok := sem.cb.ClassLike(name); ok {
				return &symbol{kind: kind, class: m}, true
			}
		case names.KindFunction:
			if f, ok := sem.cb.Function(name); ok {
				return &symbol{kind: kind, function: f}, true
			}
		case names.KindConst:
			if c, ok := sem.cb.Constant(name); ok {
				return &symbol{kind: kind, constant: c}, true
			}
		}
	}
	return nil, false
}

// resolveMember resolves a method name of a call on an object or class.
func (sem *semantics) resolveMember(parent ast.Node, id *ast.Ident) (*symbol, bool) {
	var classes []string
	switch p := parent.(type) {
	case *ast.MethodCall:
		if p.Method != id {
			return nil, false
		}
		t, ok := sem.artifacts.TypeOf(p.Object)
		if !ok {
			return nil, false
		}
		classes = objectClasses(t)
	case *ast.StaticCall:
		if p.Method != id {
			return nil, false
		}
		name, ok := p.Class.(*ast.Name)
		if !ok || name.IsSpecial() {
			return nil, false
		}
		classes = []string{sem.names.Resolved(name)}
	default:
		return nil, false
	}
	for _, class := range classes {
		if f, ok := sem.cb.Method(class, id.Value); ok {
			return &symbol{kind: names.KindFunction, function: f}, true
		}
	}
	return nil, false
}

// objectClasses returns the class names of the named objects in t.
func objectClasses(t ttype.Union) []string {
	var out []string
	for _, a := range t.Types {
		if a.Kind == ttype.KNamed {
			out = append(out, a.Name)
		}
	}
	return out
}

// typeAt returns the innermost expression under offset that has a type.
func (sem *semantics) typeAt(offset int) (ast.Node, ttype.Union, bool) {
	path := sem.nodesAt(offset)
	for i := len(path) - 1; i >= 0; i-- {
		if _, ok := path[i].(ast.Expr); !ok {
			continue
		}
		if t, ok := sem.artifacts.TypeOf(path[i]); ok {
			return path[i], t, true
		}
	}
	return nil, ttype.Union{}, false
}

// signature formats a function-like declaration.
func signature(f *codebase.FunctionLikeMetadata) string {
	var b strings.Builder
	b.WriteString("function ")
	b.WriteString(f.DisplayName())
	b.WriteByte('(')
	for i, p := range f.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		if p.Type != nil {
			b.WriteString(p.Type.String())
			b.WriteByte(' ')
		}
		if p.ByRef {
			b.WriteByte('&')
		}
		if p.Variadic {
			b.WriteString("...")
		}
		b.WriteByte('$')
		b.WriteString(p.Name)
		if p.HasDefault {
			b.WriteString(" = ...")
		}
	}
	b.WriteByte(')')
	if f.ReturnType != nil {
		b.WriteString(": ")
		b.WriteString(f.ReturnType.String())
	}
	return b.String()
}
