// Copyright © 2024 The Mago authors

// Package names resolves the names used in a program to fully qualified
// names.  Resolution happens in one walk over the tree; afterwards each name
// is looked up by the byte offset where it starts.
package names

import (
	"sort"
	"strings"

	"github.com/magophp/mago/interner"
	"github.com/magophp/mago/parser/ast"
)

// Kind is the symbol table a name is resolved against.  Classes, functions,
// and constants live in separate tables and have separate imports.
type Kind uint8

const (
	KindClass Kind = iota
	KindFunction
	KindConst
)

func (k Kind) String() string {
	switch k {
	case KindClass:
		return "class"
	case KindFunction:
		return "function"
	case KindConst:
		return "constant"
	default:
		return "unknown"
	}
}

type entry struct {
	name     interner.ID
	fallback interner.ID
	kind     Kind
	imported bool
}

// scope is the namespace and imports in effect from start onward.
type scope struct {
	start     uint32
	namespace string
	imports   [3]map[string]string
}

// Names is the immutable result of resolving one program.
type Names struct {
	in      *interner.Interner
	entries map[uint32]entry
	scopes  []scope
}

// Len returns the number of resolved names.
func (n *Names) Len() int {
	return len(n.entries)
}

// Lookup returns the fully qualified name of the name starting at offset.
func (n *Names) Lookup(offset uint32) (string, bool) {
	e, ok := n.entries[offset]
	if !ok {
		return "", false
	}
	return n.in.Lookup(e.name), true
}

// ID returns the interned fully qualified name starting at offset.
func (n *Names) ID(offset uint32) (interner.ID, bool) {
	e, ok := n.entries[offset]
	return e.name, ok
}

// Fallback returns the global name tried when an unqualified function or
// constant reference inside a namespace does not exist in that namespace.
func (n *Names) Fallback(offset uint32) (string, bool) {
	e, ok := n.entries[offset]
	if !ok || e.fallback == interner.Empty {
		return "", false
	}
	return n.in.Lookup(e.fallback), true
}

// IsImported reports whether the name at offset was resolved through a use
// import.
func (n *Names) IsImported(offset uint32) bool {
	return n.entries[offset].imported
}

// Kind returns the symbol table the name at offset was resolved against.
func (n *Names) Kind(offset uint32) (Kind, bool) {
	e, ok := n.entries[offset]
	return e.kind, ok
}

// Resolved returns the resolved value of name, or its literal value when the
// name was not resolved.
func (n *Names) Resolved(name *ast.Name) string {
	if s, ok := n.Lookup(name.Span().Start); ok {
		return s
	}
	return name.Value
}

// ResolveAt resolves a name written in a comment or string at offset, such
// as a class named in a docblock type, using the namespace and imports in
// effect there.
func (n *Names) ResolveAt(offset uint32, value string, kind Kind) string {
	nk := ast.Unqualified
	switch {
	case strings.HasPrefix(value, `\`):
		return value[1:]
	case len(value) > 10 && strings.EqualFold(value[:10], `namespace\`):
		nk, value = ast.Relative, value[10:]
	case strings.Contains(value, `\`):
		nk = ast.Qualified
	}
	i := sort.Search(len(n.scopes), func(i int) bool { return n.scopes[i].start > offset })
	if i == 0 {
		var empty [3]map[string]string
		name, _, _ := resolveIn("", &empty, nk, value, kind)
		return name
	}
	sc := &n.scopes[i-1]
	name, _, _ := resolveIn(sc.namespace, &sc.imports, nk, value, kind)
	return name
}

// Resolve walks prog and resolves every name in it.
func Resolve(in *interner.Interner, prog *ast.Program) *Names {
	r := &resolver{
		in:    in,
		names: &Names{in: in, entries: make(map[uint32]entry)},
	}
	r.reset("")
	ast.Walk(r, prog)
	return r.names
}

// Qualify joins a namespace and a name.
func Qualify(namespace, name string) string {
	if namespace == "" {
		return name
	}
	return namespace + `\` + name
}

// Short returns the last segment of a qualified name.
func Short(name string) string {
	if i := strings.LastIndexByte(name, '\\'); i >= 0 {
		return name[i+1:]
	}
	return name
}

// Namespace returns everything before the last segment of name.
func Namespace(name string) string {
	if i := strings.LastIndexByte(name, '\\'); i >= 0 {
		return name[:i]
	}
	return ""
}

// builtinTypes are hint keywords that never name a class.
var builtinTypes = map[string]bool{
	"int": true, "integer": true, "float": true, "double": true, "string": true,
	"bool": true, "boolean": true, "array": true, "callable": true,
	"iterable": true, "object": true, "mixed": true, "void": true,
	"null": true, "never": true, "false": true, "true": true,
	"self": true, "static": true, "parent": true,
}

// IsBuiltinType reports whether name is a reserved type keyword.
func IsBuiltinType(name string) bool {
	return builtinTypes[strings.ToLower(name)]
}
