// Copyright © 2024 The Mago authors

package analysis

import (
	"fmt"
	"sort"
	"strings"

	"github.com/magophp/mago/codebase"
	"github.com/magophp/mago/parser/ast"
	"github.com/magophp/mago/ttype"
)

func (a *analyzer) classLike(n *ast.ClassLike) {
	name := n.Name.Value
	if resolved, ok := a.names.Lookup(n.Name.Span().Start); ok {
		name = resolved
	}
	m, ok := a.cb.ClassLike(name)
	if !ok || m.Span != n.Span() {
		// A duplicate declaration; the codebase reported it.
		return
	}
	if n.Kind == ast.KindInterface {
		for _, ext := range n.Extends {
			a.inherit(m, ext, true)
		}
	} else if len(n.Extends) > 0 {
		a.inherit(m, n.Extends[0], false)
	}
	for _, impl := range n.Implements {
		a.implement(impl)
	}
	a.checkAbstractImplementations(m)
	a.members(m, n.Members)
}

func (a *analyzer) anonymousClass(e *ast.AnonymousClass, ctx *BlockContext) string {
	name := codebase.AnonymousClassName(e.Span())
	m, ok := a.cb.ClassLike(name)
	if !ok {
		a.arguments(e.Args, nil, ctx)
		return name
	}
	if e.Extends != nil {
		a.inherit(m, e.Extends, false)
	}
	for _, impl := range e.Implements {
		a.implement(impl)
	}
	a.checkAbstractImplementations(m)

	if ctor, ok := a.cb.Method(name, "__construct"); ok {
		args := a.arguments(e.Args, ctor, ctx)
		a.invoke(invocation{target: ctor, class: name, span: e.Span()}, args, ctx)
	} else {
		a.arguments(e.Args, nil, ctx)
	}
	a.members(m, e.Members)
	return name
}

// inherit checks the extends clause of m naming ext.
func (a *analyzer) inherit(m *codebase.ClassLikeMetadata, ext *ast.Name, iface bool) {
	name := a.names.Resolved(ext)
	parent, ok := a.cb.ClassLike(name)
	if !ok {
		a.errorf(CodeNonExistentClassLike, ext.Span(),
			fmt.Sprintf("Class-like `%s` does not exist.", name), "unknown class-like")
		return
	}
	a.result.References.AddSymbol(m.Key(), parent.Key())
	switch {
	case iface && !parent.IsInterface():
		a.errorf(CodeInvalidExtend, ext.Span(),
			fmt.Sprintf("Interface `%s` cannot extend `%s`, which is not an interface.", m.Name, parent.Name),
			"not an interface")
	case !iface && (parent.IsInterface() || parent.IsTrait() || parent.IsEnum()):
		a.errorf(CodeInvalidExtend, ext.Span(),
			fmt.Sprintf("Class `%s` cannot extend `%s`, which is not a class.", displayClass(m), parent.Name),
			"not a class").
			WithHelp("Use `implements` for interfaces and `use` for traits.")
	case !iface && parent.Final:
		a.errorf(CodeExtendFinalClass, ext.Span(),
			fmt.Sprintf("Class `%s` cannot extend final class `%s`.", displayClass(m), parent.Name),
			"final class").
			Also(parent.NameSpan, "declared final here")
	}
	if parent.Deprecated {
		a.warnf(CodeDeprecatedClass, ext.Span(),
			fmt.Sprintf("Class `%s` is deprecated.", parent.Name), "deprecated class")
	}
}

func (a *analyzer) implement(impl *ast.Name) {
	name := a.names.Resolved(impl)
	iface, ok := a.cb.ClassLike(name)
	if !ok {
		a.errorf(CodeNonExistentClassLike, impl.Span(),
			fmt.Sprintf("Interface `%s` does not exist.", name), "unknown interface")
		return
	}
	a.result.References.AddSymbol(a.fn.scope, iface.Key())
	if !iface.IsInterface() {
		a.errorf(CodeInvalidImplement, impl.Span(),
			fmt.Sprintf("`%s` is not an interface and cannot be implemented.", iface.Name), "not an interface")
	}
}

func displayClass(m *codebase.ClassLikeMetadata) string {
	if m.Anonymous {
		return "class@anonymous"
	}
	return m.Name
}

// enumMethods are provided by the engine for every enum.
var enumMethods = map[string]bool{"cases": true, "from": true, "tryfrom": true}

// checkAbstractImplementations reports abstract methods a concrete class
// inherits without implementing.
func (a *analyzer) checkAbstractImplementations(m *codebase.ClassLikeMetadata) {
	if m.Abstract || m.IsInterface() || m.IsTrait() {
		return
	}
	keys := make([]string, 0, len(m.MethodMembers.Appearing))
	for k := range m.MethodMembers.Appearing {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if m.IsEnum() && enumMethods[key] {
			continue
		}
		f, ok := a.cb.Method(m.Name, key)
		if !ok || !f.Abstract {
			continue
		}
		a.errorf(CodeMissingAbstractImplementation, m.NameSpan,
			fmt.Sprintf("Class `%s` does not implement the abstract method `%s`.", displayClass(m), f.DisplayName()),
			"missing implementation").
			Also(f.NameSpan, "declared here")
	}
}

// members analyzes the method bodies and initializers of a class-like.
func (a *analyzer) members(m *codebase.ClassLikeMetadata, members []ast.Member) {
	prev := a.fn
	a.fn = a.newFunctionContext(nil, m, m.Key())
	a.fn.global = true
	defer func() { a.fn = prev }()

	for _, member := range members {
		switch mem := member.(type) {
		case *ast.Method:
			meta, ok := m.Methods[strings.ToLower(mem.Name.Value)]
			if !ok || mem.Body == nil {
				continue
			}
			a.functionBody(meta, m, mem.Params, mem.Body.Statements, codebase.MemberKey(m.Name, meta.Name), nil)
		case *ast.Property:
			for _, item := range mem.Items {
				if item.Default == nil {
					continue
				}
				t := a.expr(item.Default, NewBlockContext())
				if p, ok := m.Properties[item.Var.Name]; ok && p.Type != nil {
					a.checkDefault(p.Type, t, item.Default)
				}
			}
		case *ast.ClassConst:
			for _, item := range mem.Items {
				a.expr(item.Value, NewBlockContext())
			}
		case *ast.EnumCase:
			if mem.Value != nil {
				a.expr(mem.Value, NewBlockContext())
			}
		case *ast.TraitUse:
			for _, t := range mem.Traits {
				name := a.names.Resolved(t)
				trait, ok := a.cb.ClassLike(name)
				if !ok {
					a.errorf(CodeNonExistentClassLike, t.Span(),
						fmt.Sprintf("Trait `%s` does not exist.", name), "unknown trait")
					continue
				}
				a.result.References.AddSymbol(m.Key(), trait.Key())
			}
		}
	}
}

func (a *analyzer) checkDefault(declared *ttype.Union, t ttype.Union, e ast.Expr) {
	want := a.expand(*declared)
	if ttype.IsContainedBy(a.cb, t, want, &ttype.ComparisonResult{}) || ttype.CanBeContainedBy(a.cb, t, want) {
		return
	}
	a.errorf(CodeInvalidPropertyAssignment, e.Span(),
		fmt.Sprintf("Default value of type `%s` is not compatible with `%s`.", t, want),
		"wrong default type")
}
