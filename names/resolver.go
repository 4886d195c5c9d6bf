// Copyright © 2024 The Mago authors

package names

import (
	"strings"

	"github.com/magophp/mago/interner"
	"github.com/magophp/mago/parser/ast"
)

type resolver struct {
	in        *interner.Interner
	names     *Names
	namespace string
	// imports maps a lowercased alias to its target, per symbol table.
	imports [3]map[string]string
}

func (r *resolver) reset(namespace string) {
	r.namespace = namespace
	for i := range r.imports {
		r.imports[i] = make(map[string]string)
	}
}

func (r *resolver) record(n *ast.Name, kind Kind, name, fallback string, imported bool) {
	offset := n.Span().Start
	if _, ok := r.names.entries[offset]; ok {
		return
	}
	e := entry{name: r.in.Intern(name), kind: kind, imported: imported}
	if fallback != "" {
		e.fallback = r.in.Intern(fallback)
	}
	r.names.entries[offset] = e
}

func (r *resolver) declare(id *ast.Ident, kind Kind) {
	if id == nil {
		return
	}
	r.names.entries[id.Span().Start] = entry{name: r.in.Intern(Qualify(r.namespace, id.Value)), kind: kind}
}

// resolve computes the fully qualified form of a name.  Unqualified function
// and constant names inside a namespace also yield the global fallback.
func (r *resolver) resolve(n *ast.Name, kind Kind) (name, fallback string, imported bool) {
	if kind == KindClass && n.Kind == ast.Unqualified && n.IsSpecial() {
		return n.Value, "", false
	}
	return resolveIn(r.namespace, &r.imports, n.Kind, n.Value, kind)
}

func resolveIn(namespace string, imports *[3]map[string]string, nk ast.NameKind, value string, kind Kind) (name, fallback string, imported bool) {
	switch nk {
	case ast.FullyQualified:
		return value, "", false
	case ast.Relative:
		return Qualify(namespace, value), "", false
	case ast.Qualified:
		first, rest, _ := strings.Cut(value, `\`)
		if target, ok := imports[KindClass][strings.ToLower(first)]; ok {
			return target + `\` + rest, "", true
		}
		return Qualify(namespace, value), "", false
	}
	if kind == KindClass && IsBuiltinType(value) {
		return value, "", false
	}
	alias := strings.ToLower(value)
	if target, ok := imports[kind][alias]; ok {
		return target, "", true
	}
	if kind != KindClass && namespace != "" {
		return Qualify(namespace, value), value, false
	}
	return Qualify(namespace, value), "", false
}

// snapshot records the namespace and imports in effect from offset on.
func (r *resolver) snapshot(offset uint32) {
	sc := scope{start: offset, namespace: r.namespace}
	for i, m := range r.imports {
		sc.imports[i] = make(map[string]string, len(m))
		for k, v := range m {
			sc.imports[i][k] = v
		}
	}
	r.names.scopes = append(r.names.scopes, sc)
}

func (r *resolver) name(n *ast.Name, kind Kind) {
	if n == nil {
		return
	}
	name, fallback, imported := r.resolve(n, kind)
	r.record(n, kind, name, fallback, imported)
}

func (r *resolver) classExpr(e ast.Expr) {
	if n, ok := e.(*ast.Name); ok {
		r.name(n, KindClass)
	}
}

func (r *resolver) nameList(list []*ast.Name, kind Kind) {
	for _, n := range list {
		r.name(n, kind)
	}
}

func (r *resolver) use(u *ast.Use) {
	for _, item := range u.Items {
		target := item.Name.Value
		if u.Prefix != nil {
			target = u.Prefix.Value + `\` + target
		}
		target = strings.TrimPrefix(target, `\`)
		alias := Short(target)
		if item.Alias != nil {
			alias = item.Alias.Value
		}
		r.imports[item.Kind][strings.ToLower(alias)] = target
		r.names.entries[item.Name.Span().Start] = entry{
			name:     r.in.Intern(target),
			kind:     Kind(item.Kind),
			imported: true,
		}
	}
}

func (r *resolver) Visit(node ast.Node) ast.Visitor {
	switch n := node.(type) {
	case *ast.Namespace:
		name := ""
		if n.Name != nil {
			name = n.Name.Value
		}
		r.reset(name)
		r.snapshot(n.Span().Start)
		for _, s := range n.Statements {
			ast.Walk(r, s)
		}
		if n.Braced {
			r.reset("")
			r.snapshot(n.Span().End)
		}
		return nil
	case *ast.Use:
		r.use(n)
		r.snapshot(n.Span().End)
		return nil
	case *ast.ClassLike:
		r.declare(n.Name, KindClass)
		r.nameList(n.Extends, KindClass)
		r.nameList(n.Implements, KindClass)
	case *ast.AnonymousClass:
		r.name(n.Extends, KindClass)
		r.nameList(n.Implements, KindClass)
	case *ast.Function:
		r.declare(n.Name, KindFunction)
	case *ast.Const:
		for _, item := range n.Items {
			r.declare(item.Name, KindConst)
		}
	case *ast.Call:
		if name, ok := n.Callee.(*ast.Name); ok {
			r.name(name, KindFunction)
		}
	case *ast.ConstFetch:
		r.name(n.Name, KindConst)
	case *ast.New:
		r.classExpr(n.Class)
	case *ast.StaticCall:
		r.classExpr(n.Class)
	case *ast.StaticPropertyFetch:
		r.classExpr(n.Class)
	case *ast.ClassConstFetch:
		r.classExpr(n.Class)
	case *ast.Instanceof:
		r.classExpr(n.Class)
	case *ast.Catch:
		r.nameList(n.Types, KindClass)
	case *ast.TraitUse:
		r.nameList(n.Traits, KindClass)
		for _, a := range n.Adaptations {
			r.name(a.Trait, KindClass)
			r.nameList(a.Insteadof, KindClass)
		}
	case *ast.Attribute:
		r.name(n.Name, KindClass)
	case *ast.NamedHint:
		r.name(n.Name, KindClass)
	case *ast.Name:
		// A name reached without a classifying parent, such as a callee
		// expression in an unusual position.
		r.name(n, KindClass)
	}
	return r
}
