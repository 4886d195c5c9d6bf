// Copyright © 2024 The Mago authors

package codebase

import (
	"fmt"
	"strings"

	"github.com/magophp/mago/docblock"
	"github.com/magophp/mago/names"
	"github.com/magophp/mago/parser/ast"
	"github.com/magophp/mago/parser/token"
	"github.com/magophp/mago/source"
	"github.com/magophp/mago/ttype"
)

// AnonymousClassName returns the synthetic name given to the anonymous
// class declared at span.
func AnonymousClassName(span source.Span) string {
	return fmt.Sprintf("class@anonymous#%d:%d", span.File, span.Start)
}

// Scan indexes the declarations of one parsed file: class-likes, functions,
// constants, and define() calls with a literal name.
func Scan(f *source.File, prog *ast.Program, n *names.Names) *Codebase {
	s := &scanner{
		category: f.Category,
		prog:     prog,
		names:    n,
		cb:       New(),
		types:    &TypeBuilder{Names: n},
	}
	ast.Inspect(prog, s.visit)
	return s.cb
}

type scanner struct {
	category source.Category
	prog     *ast.Program
	names    *names.Names
	cb       *Codebase
	types    *TypeBuilder
}

func (s *scanner) visit(node ast.Node) bool {
	switch n := node.(type) {
	case *ast.ClassLike:
		s.classLike(n)
	case *ast.AnonymousClass:
		s.anonymousClass(n)
	case *ast.Function:
		s.function(n)
	case *ast.Const:
		s.constants(n)
	case *ast.Call:
		s.define(n)
	}
	return true
}

func (s *scanner) declared(id *ast.Ident) string {
	if name, ok := s.names.Lookup(id.Span().Start); ok {
		return name
	}
	return id.Value
}

func (s *scanner) docblock(node ast.Node) (*docblock.Docblock, uint32) {
	return DocblockOf(s.prog, node)
}

// DocblockOf returns the parsed docblock preceding node and its offset.  A
// node without one gets an empty docblock.
func DocblockOf(prog *ast.Program, node ast.Node) (*docblock.Docblock, uint32) {
	t, ok := prog.DocComment(node.Span().Start)
	if !ok {
		return &docblock.Docblock{}, node.Span().Start
	}
	return docblock.Parse(t.Value), t.Range.Start
}

func templates(doc *docblock.Docblock, offset uint32, defining string, tb *TypeBuilder) []TemplateMetadata {
	var out []TemplateMetadata
	for _, t := range doc.Templates() {
		bound := ttype.Mixed()
		if t.Bound != nil {
			bound = tb.Doc(t.Bound, offset)
		}
		out = append(out, TemplateMetadata{Name: t.Name, Defining: defining, Bound: bound, Covariant: t.Covariant})
	}
	return out
}

func (s *scanner) classLike(n *ast.ClassLike) {
	m := NewClassLike(s.declared(n.Name), n.Kind)
	m.Span = n.Span()
	m.NameSpan = n.Name.Span()
	m.Final = n.Modifiers.Has(token.Final)
	m.Abstract = n.Modifiers.Has(token.Abstract)
	m.Readonly = n.Modifiers.Has(token.Readonly)

	switch n.Kind {
	case ast.KindInterface:
		m.Interfaces = s.resolvedList(n.Extends)
	default:
		if len(n.Extends) > 0 {
			m.Parent = s.names.Resolved(n.Extends[0])
		}
		m.Interfaces = s.resolvedList(n.Implements)
	}
	s.classBody(m, n, n.Members)
	if n.Kind == ast.KindEnum {
		m.Final = true
		m.Interfaces = appendUnique(m.Interfaces, "UnitEnum")
		if n.BackingType != nil {
			bt := s.types.WithTemplates(m.Templates).Hint(n.BackingType)
			m.BackingType = &bt
			m.Interfaces = appendUnique(m.Interfaces, "BackedEnum")
		}
	}
	s.cb.AddClassLike(m)
}

func (s *scanner) anonymousClass(n *ast.AnonymousClass) {
	m := NewClassLike(AnonymousClassName(n.Span()), ast.KindClass)
	m.Span = n.Span()
	m.NameSpan = source.Span{File: n.Span().File, Start: n.Span().Start, End: n.Span().Start}
	m.Anonymous = true
	m.Final = true
	m.Readonly = n.Modifiers.Has(token.Readonly)
	if n.Extends != nil {
		m.Parent = s.names.Resolved(n.Extends)
	}
	m.Interfaces = s.resolvedList(n.Implements)
	s.classBody(m, n, n.Members)
	s.cb.AddClassLike(m)
}

func (s *scanner) classBody(m *ClassLikeMetadata, decl ast.Node, members []ast.Member) {
	m.Category = s.category
	doc, off := s.docblock(decl)
	m.Deprecated = doc.Deprecated()
	m.Templates = templates(doc, off, m.Key(), s.types)
	tb := s.types.WithTemplates(m.Templates)
	for _, t := range append(doc.Extends(), doc.Implements()...) {
		u := tb.Doc(t, off)
		if u.IsSingle() && u.Types[0].Kind == ttype.KNamed {
			m.TemplateExtended[Key(u.Types[0].Name)] = u.Types[0].Params
		}
	}
	for _, member := range members {
		switch mem := member.(type) {
		case *ast.Method:
			s.method(m, mem, tb)
		case *ast.Property:
			s.property(m, mem, tb)
		case *ast.ClassConst:
			s.classConst(m, mem, tb)
		case *ast.EnumCase:
			s.enumCase(m, mem)
		case *ast.TraitUse:
			s.traitUse(m, mem)
		}
	}
}

func (s *scanner) method(m *ClassLikeMetadata, n *ast.Method, tb *TypeBuilder) {
	doc, off := s.docblock(n)
	defining := m.Key() + "::" + strings.ToLower(n.Name.Value)
	f := s.functionLike(n, n.Params, n.ReturnType, blockNode(n.Body), doc, off, defining, tb)
	f.Name = n.Name.Value
	f.Kind = MethodKind
	f.Class = m.Name
	f.NameSpan = n.Name.Span()
	f.ByRef = n.ByRef
	f.Visibility = visibility(n.Modifiers)
	f.Static = n.Modifiers.Has(token.Static)
	f.Abstract = n.Modifiers.Has(token.Abstract) || m.IsInterface()
	f.Final = n.Modifiers.Has(token.Final)
	m.Methods[f.Key()] = f
	m.MethodMembers.Declared[f.Key()] = true

	if f.Key() != "__construct" || n.Params == nil {
		return
	}
	for i, p := range n.Params.Params {
		if len(p.Modifiers) == 0 {
			continue
		}
		pm := f.Params[i]
		m.Properties[pm.Name] = &PropertyMetadata{
			Name:       pm.Name,
			Class:      m.Name,
			Span:       p.Span(),
			Type:       pm.Type,
			Visibility: visibility(p.Modifiers),
			Readonly:   p.Modifiers.Has(token.Readonly) || m.Readonly,
			Promoted:   true,
		}
		m.PropertyMembers.Declared[pm.Name] = true
	}
}

func (s *scanner) property(m *ClassLikeMetadata, n *ast.Property, tb *TypeBuilder) {
	doc, off := s.docblock(n)
	hint := tb.OptionalHint(n.Type)
	var docType *ttype.Union
	if v, ok := doc.Var(); ok {
		u := tb.Doc(v.Type, off)
		docType = &u
	}
	typ := Refine(docType, hint)
	for _, item := range n.Items {
		p := &PropertyMetadata{
			Name:       item.Var.Name,
			Class:      m.Name,
			Span:       item.Span(),
			Type:       typ,
			Visibility: visibility(n.Modifiers),
			Static:     n.Modifiers.Has(token.Static),
			Readonly:   n.Modifiers.Has(token.Readonly) || m.Readonly,
			Deprecated: doc.Deprecated(),
		}
		switch {
		case item.Default != nil:
			d := ValueType(item.Default)
			p.Default = &d
		case n.Type == nil:
			d := ttype.Null()
			p.Default = &d
		}
		m.Properties[p.Name] = p
		m.PropertyMembers.Declared[p.Name] = true
	}
}

func (s *scanner) classConst(m *ClassLikeMetadata, n *ast.ClassConst, tb *TypeBuilder) {
	for _, item := range n.Items {
		typ := ValueType(item.Value)
		if n.Type != nil && typ.IsMixed() {
			typ = tb.Hint(n.Type)
		}
		k := &ClassConstantMetadata{
			Name:       item.Name.Value,
			Class:      m.Name,
			Span:       item.Span(),
			Type:       typ,
			Visibility: visibility(n.Modifiers),
			Final:      n.Modifiers.Has(token.Final),
		}
		m.Constants[k.Name] = k
		m.ConstantMembers.Declared[k.Name] = true
	}
}

func (s *scanner) enumCase(m *ClassLikeMetadata, n *ast.EnumCase) {
	e := &EnumCaseMetadata{Name: n.Name.Value, Class: m.Name, Span: n.Span()}
	if n.Value != nil {
		v := ValueType(n.Value)
		e.Value = &v
	}
	m.Cases[e.Name] = e
	m.ConstantMembers.Declared[e.Name] = true
}

func (s *scanner) traitUse(m *ClassLikeMetadata, n *ast.TraitUse) {
	for _, t := range n.Traits {
		m.Traits = appendUnique(m.Traits, s.names.Resolved(t))
	}
	for _, a := range n.Adaptations {
		if a.Method == nil {
			continue
		}
		method := strings.ToLower(a.Method.Value)
		trait := ""
		if a.Trait != nil {
			trait = Key(s.names.Resolved(a.Trait))
		}
		for _, excluded := range a.Insteadof {
			key := Key(s.names.Resolved(excluded))
			m.TraitExclusions[key] = append(m.TraitExclusions[key], method)
		}
		if a.Alias == nil && a.Visibility == nil {
			continue
		}
		alias := TraitAlias{Trait: trait, Method: method}
		if a.Alias != nil {
			alias.Alias = a.Alias.Value
		}
		if a.Visibility != nil {
			v := visibility(ast.Modifiers{a.Visibility})
			alias.Visibility = &v
		}
		m.TraitAliases = append(m.TraitAliases, alias)
	}
}

func (s *scanner) function(n *ast.Function) {
	doc, off := s.docblock(n)
	name := s.declared(n.Name)
	f := s.functionLike(n, n.Params, n.ReturnType, blockNode(n.Body), doc, off, Key(name), s.types)
	f.Name = name
	f.Kind = FunctionKind
	f.NameSpan = n.Name.Span()
	f.ByRef = n.ByRef
	s.cb.AddFunction(f)
}

func (s *scanner) functionLike(node ast.Node, params *ast.ParameterList, ret ast.Hint, body ast.Node, doc *docblock.Docblock, off uint32, defining string, tb *TypeBuilder) *FunctionLikeMetadata {
	f := BuildFunctionLike(node, params, ret, body, doc, off, defining, tb)
	f.Category = s.category
	return f
}

func blockNode(b *ast.Block) ast.Node {
	if b == nil {
		return nil
	}
	return b
}

// BuildFunctionLike builds the metadata shared by every function-like
// declaration from its parameters, return hint, body, and docblock.
// Callers fill in the name and kind.
func BuildFunctionLike(node ast.Node, params *ast.ParameterList, ret ast.Hint, body ast.Node, doc *docblock.Docblock, off uint32, defining string, tb *TypeBuilder) *FunctionLikeMetadata {
	f := &FunctionLikeMetadata{Span: node.Span()}
	f.Templates = templates(doc, off, defining, tb)
	tb = tb.WithTemplates(f.Templates)

	docParams := make(map[string]docblock.Param)
	for _, p := range doc.Params() {
		docParams[p.Name] = p
	}
	if params != nil {
		for _, p := range params.Params {
			pm := &ParameterMetadata{
				Name:     p.Var.Name,
				Span:     p.Span(),
				Variadic: p.Variadic,
				ByRef:    p.ByRef,
				Promoted: len(p.Modifiers) > 0,
			}
			var docType *ttype.Union
			if dp, ok := docParams[pm.Name]; ok {
				u := tb.Doc(dp.Type, off)
				docType = &u
			}
			pm.Type = Refine(docType, tb.OptionalHint(p.Type))
			if p.Default != nil {
				pm.HasDefault = true
				d := ValueType(p.Default)
				pm.Default = &d
				if pm.Type != nil && d.IsNullable() && !pm.Type.IsNullable() {
					nullable := ttype.Nullable(*pm.Type)
					pm.Type = &nullable
				}
			}
			f.Params = append(f.Params, pm)
		}
	}

	var docReturn *ttype.Union
	if t, ok := doc.Return(); ok {
		u := tb.Doc(t, off)
		docReturn = &u
	}
	f.ReturnType = Refine(docReturn, tb.OptionalHint(ret))
	if ret != nil {
		f.ReturnSpan = ret.Span()
	}
	for _, t := range doc.Throws() {
		f.Throws = append(f.Throws, tb.Doc(t, off))
	}
	f.Deprecated = doc.Deprecated()
	f.Pure = doc.Pure()
	f.Generator = ContainsYield(body)
	return f
}

// ContainsYield reports whether body yields, ignoring nested function-likes
// and classes.
func ContainsYield(body ast.Node) bool {
	if body == nil {
		return false
	}
	found := false
	ast.Inspect(body, func(n ast.Node) bool {
		if found {
			return false
		}
		switch n.(type) {
		case *ast.Yield, *ast.YieldFrom:
			found = true
			return false
		case *ast.Closure, *ast.ArrowFunction, *ast.Function, *ast.ClassLike, *ast.AnonymousClass:
			return n == body
		}
		return true
	})
	return found
}

func (s *scanner) constants(n *ast.Const) {
	for _, item := range n.Items {
		s.cb.AddConstant(&ConstantMetadata{
			Name:     s.declared(item.Name),
			Span:     item.Name.Span(),
			Category: s.category,
			Type:     ValueType(item.Value),
		})
	}
}

func (s *scanner) define(n *ast.Call) {
	callee, ok := n.Callee.(*ast.Name)
	if !ok || !strings.EqualFold(strings.TrimPrefix(callee.Value, `\`), "define") {
		return
	}
	if n.Args == nil || len(n.Args.Args) < 2 {
		return
	}
	lit, ok := n.Args.Args[0].Value.(*ast.StringLiteral)
	if !ok {
		return
	}
	s.cb.AddConstant(&ConstantMetadata{
		Name:     strings.TrimPrefix(lit.Value, `\`),
		Span:     lit.Span(),
		Category: s.category,
		Type:     ValueType(n.Args.Args[1].Value),
	})
}

func (s *scanner) resolvedList(list []*ast.Name) []string {
	out := make([]string, 0, len(list))
	for _, n := range list {
		out = appendUnique(out, s.names.Resolved(n))
	}
	return out
}

func visibility(ms ast.Modifiers) Visibility {
	switch {
	case ms.Has(token.Private):
		return Private
	case ms.Has(token.Protected):
		return Protected
	}
	return Public
}

func appendUnique(list []string, name string) []string {
	for _, x := range list {
		if strings.EqualFold(x, name) {
			return list
		}
	}
	return append(list, name)
}
