// Copyright © 2024 The Mago authors

package codebase

import (
	"strconv"
	"strings"

	"github.com/magophp/mago/docblock"
	"github.com/magophp/mago/names"
	"github.com/magophp/mago/parser/ast"
	"github.com/magophp/mago/ttype"
)

// TypeBuilder converts type hints and docblock types into unions for one
// declaration context.  Relative class names are kept as self, static, and
// parent; Populate expands them once the hierarchy is known.
type TypeBuilder struct {
	Names     *names.Names
	Templates map[string]TemplateMetadata
}

// WithTemplates returns a builder that also knows ts.
func (b *TypeBuilder) WithTemplates(ts []TemplateMetadata) *TypeBuilder {
	if len(ts) == 0 {
		return b
	}
	out := &TypeBuilder{Names: b.Names, Templates: make(map[string]TemplateMetadata, len(b.Templates)+len(ts))}
	for k, v := range b.Templates {
		out.Templates[k] = v
	}
	for _, t := range ts {
		out.Templates[strings.ToLower(t.Name)] = t
	}
	return out
}

// Hint converts a declared type hint.
func (b *TypeBuilder) Hint(h ast.Hint) ttype.Union {
	switch h := h.(type) {
	case *ast.NamedHint:
		return b.namedHint(h.Name)
	case *ast.NullableHint:
		return ttype.Nullable(b.Hint(h.Inner))
	case *ast.UnionHint:
		parts := make([]ttype.Union, len(h.Types))
		for i, t := range h.Types {
			parts[i] = b.Hint(t)
		}
		return ttype.Merge(parts...)
	case *ast.IntersectionHint:
		// Intersections are approximated by their first member.
		if len(h.Types) > 0 {
			return b.Hint(h.Types[0])
		}
	}
	return ttype.Mixed()
}

// OptionalHint converts h, returning nil when h is nil.
func (b *TypeBuilder) OptionalHint(h ast.Hint) *ttype.Union {
	if h == nil {
		return nil
	}
	u := b.Hint(h)
	return &u
}

func (b *TypeBuilder) namedHint(n *ast.Name) ttype.Union {
	if n.Kind == ast.Unqualified {
		switch strings.ToLower(n.Value) {
		case "int", "integer":
			return ttype.Int()
		case "float", "double":
			return ttype.Float()
		case "string":
			return ttype.String()
		case "bool", "boolean":
			return ttype.Bool()
		case "true":
			return ttype.True()
		case "false":
			return ttype.False()
		case "null":
			return ttype.Null()
		case "void":
			return ttype.Void()
		case "never":
			return ttype.Never()
		case "mixed":
			return ttype.Mixed()
		case "array":
			return ttype.MixedArray()
		case "iterable":
			return ttype.Single(ttype.IterableOf(ttype.Mixed(), ttype.Mixed()))
		case "callable":
			return ttype.Single(ttype.CallableAtomic(nil))
		case "object":
			return ttype.Object()
		case "self", "static", "parent":
			return ttype.Single(ttype.Named(strings.ToLower(n.Value)))
		}
	}
	name := n.Value
	if b.Names != nil {
		name = b.Names.Resolved(n)
	}
	if strings.EqualFold(name, "Closure") {
		return ttype.Single(ttype.ClosureAtomic(nil))
	}
	return ttype.Single(ttype.Named(name))
}

// Doc converts a docblock type found at offset.  Class names are resolved
// against the namespace and imports in effect at offset.
func (b *TypeBuilder) Doc(t *docblock.TypeExpr, offset uint32) ttype.Union {
	if t == nil {
		return ttype.Mixed()
	}
	switch t.Kind {
	case docblock.TypeUnion:
		return ttype.Merge(b.docList(t.Params, offset)...)
	case docblock.TypeIntersection:
		if len(t.Params) > 0 {
			return b.Doc(t.Params[0], offset)
		}
		return ttype.Mixed()
	case docblock.TypeNullable:
		return ttype.Nullable(b.Doc(t.Params[0], offset))
	case docblock.TypeList:
		return ttype.Single(ttype.ArrayOf(ttype.ArrayKeyType(), b.Doc(t.Params[0], offset)))
	case docblock.TypeIntLiteral:
		return ttype.Single(ttype.IntLit(t.Int))
	case docblock.TypeStringLiteral:
		return ttype.Single(ttype.StringLit(t.Str))
	case docblock.TypeShape:
		return b.docShape(t, offset)
	case docblock.TypeCallable:
		return b.docCallable(t, offset)
	}
	return b.docName(t, offset)
}

func (b *TypeBuilder) docList(ts []*docblock.TypeExpr, offset uint32) []ttype.Union {
	out := make([]ttype.Union, len(ts))
	for i, t := range ts {
		out[i] = b.Doc(t, offset)
	}
	return out
}

func (b *TypeBuilder) param(t *docblock.TypeExpr, i int, offset uint32) ttype.Union {
	if i < len(t.Params) {
		return b.Doc(t.Params[i], offset)
	}
	return ttype.Mixed()
}

func (b *TypeBuilder) docShape(t *docblock.TypeExpr, offset uint32) ttype.Union {
	switch strings.ToLower(t.Name) {
	case "object":
		return ttype.Object()
	case "array", "list", "non-empty-array", "non-empty-list":
	default:
		return ttype.MixedArray()
	}
	entries := make([]ttype.Entry, 0, len(t.Fields))
	for _, f := range t.Fields {
		entries = append(entries, ttype.Entry{
			Key:      ttype.StringKey(f.Key),
			Type:     b.Doc(f.Type, offset),
			Optional: f.Optional,
		})
	}
	return ttype.Single(ttype.Keyed(true, entries...))
}

func (b *TypeBuilder) docCallable(t *docblock.TypeExpr, offset uint32) ttype.Union {
	sig := &ttype.Signature{}
	for i, p := range t.Params {
		sig.Params = append(sig.Params, ttype.Param{Name: "arg" + strconv.Itoa(i), Type: b.Doc(p, offset)})
	}
	if t.Return != nil {
		ret := b.Doc(t.Return, offset)
		sig.Return = &ret
	}
	switch strings.ToLower(strings.TrimPrefix(t.Name, `\`)) {
	case "closure":
		return ttype.Single(ttype.ClosureAtomic(sig))
	case "pure-callable":
		sig.Pure = true
	}
	return ttype.Single(ttype.CallableAtomic(sig))
}

func (b *TypeBuilder) docName(t *docblock.TypeExpr, offset uint32) ttype.Union {
	lower := strings.ToLower(t.Name)
	switch lower {
	case "int", "integer":
		if len(t.Params) == 2 {
			return ttype.Single(ttype.IntRange(rangeBound(t.Params[0]), rangeBound(t.Params[1])))
		}
		return ttype.Int()
	case "positive-int":
		return ttype.Single(ttype.IntRange(i64(1), nil))
	case "non-negative-int":
		return ttype.Single(ttype.IntRange(i64(0), nil))
	case "negative-int":
		return ttype.Single(ttype.IntRange(nil, i64(-1)))
	case "non-positive-int":
		return ttype.Single(ttype.IntRange(nil, i64(0)))
	case "float", "double":
		return ttype.Float()
	case "string", "lowercase-string", "literal-string", "callable-string", "trait-string":
		return ttype.String()
	case "non-empty-string", "non-falsy-string", "truthy-string", "non-empty-lowercase-string":
		return ttype.Single(ttype.NonEmptyString())
	case "numeric-string":
		return ttype.Single(ttype.NumericString())
	case "class-string", "interface-string", "enum-string":
		if len(t.Params) == 0 {
			return ttype.Single(ttype.Atomic{Kind: ttype.KClassString})
		}
		inner := b.Doc(t.Params[0], offset)
		if inner.IsSingle() && inner.Types[0].Kind == ttype.KNamed {
			return ttype.Single(ttype.ClassString(inner.Types[0].Name))
		}
		return ttype.Single(ttype.Atomic{Kind: ttype.KClassString, Bound: &inner})
	case "bool", "boolean":
		return ttype.Bool()
	case "true":
		return ttype.True()
	case "false":
		return ttype.False()
	case "null":
		return ttype.Null()
	case "void":
		return ttype.Void()
	case "never", "never-return", "never-returns", "no-return":
		return ttype.Never()
	case "mixed":
		return ttype.Mixed()
	case "scalar":
		return ttype.Single(ttype.Atomic{Kind: ttype.KScalar})
	case "numeric":
		return ttype.Single(ttype.Atomic{Kind: ttype.KNumeric})
	case "array-key":
		return ttype.ArrayKeyType()
	case "resource", "closed-resource", "open-resource":
		return ttype.Single(ttype.Atomic{Kind: ttype.KResource})
	case "object":
		return ttype.Object()
	case "array", "associative-array", "non-empty-array":
		var a ttype.Atomic
		switch len(t.Params) {
		case 0:
			a = ttype.ArrayOf(ttype.ArrayKeyType(), ttype.Mixed())
		case 1:
			a = ttype.ArrayOf(ttype.ArrayKeyType(), b.param(t, 0, offset))
		default:
			a = ttype.ArrayOf(b.param(t, 0, offset), b.param(t, 1, offset))
		}
		a.NonEmpty = lower == "non-empty-array"
		return ttype.Single(a)
	case "list", "non-empty-list":
		a := ttype.ListOf(b.param(t, 0, offset))
		a.NonEmpty = lower == "non-empty-list"
		return ttype.Single(a)
	case "iterable":
		switch len(t.Params) {
		case 0:
			return ttype.Single(ttype.IterableOf(ttype.Mixed(), ttype.Mixed()))
		case 1:
			return ttype.Single(ttype.IterableOf(ttype.Mixed(), b.param(t, 0, offset)))
		}
		return ttype.Single(ttype.IterableOf(b.param(t, 0, offset), b.param(t, 1, offset)))
	case "callable", "pure-callable":
		return ttype.Single(ttype.CallableAtomic(nil))
	case "closure", `\closure`:
		return ttype.Single(ttype.ClosureAtomic(nil))
	case "key-of":
		return ttype.Single(ttype.Atomic{Kind: ttype.KKeyOf, Params: []ttype.Union{b.param(t, 0, offset)}})
	case "value-of":
		return ttype.Single(ttype.Atomic{Kind: ttype.KValueOf, Params: []ttype.Union{b.param(t, 0, offset)}})
	case "properties-of":
		return ttype.Single(ttype.Atomic{Kind: ttype.KPropertiesOf, Params: []ttype.Union{b.param(t, 0, offset)}})
	case "self", "static", "parent":
		return ttype.Single(ttype.Named(lower, b.docList(t.Params, offset)...))
	case "$this":
		return ttype.Single(ttype.Named("static"))
	}
	if tpl, ok := b.Templates[lower]; ok && len(t.Params) == 0 {
		return ttype.Single(tpl.Atomic())
	}
	name := t.Name
	if b.Names != nil {
		name = b.Names.ResolveAt(offset, t.Name, names.KindClass)
	}
	return ttype.Single(ttype.Named(name, b.docList(t.Params, offset)...))
}

func rangeBound(t *docblock.TypeExpr) *int64 {
	if t.Kind == docblock.TypeIntLiteral {
		return i64(t.Int)
	}
	return nil
}

func i64(v int64) *int64 { return &v }

// looseHierarchy treats every class as compatible with every other.  It
// is used before the hierarchy exists, to decide whether a docblock type
// refines a signature type.
type looseHierarchy struct{}

func (looseHierarchy) IsSubtype(string, string) bool { return true }

// Refine returns the docblock type when it is compatible with the
// signature type, and the signature type otherwise.  Either may be nil.
func Refine(doc, hint *ttype.Union) *ttype.Union {
	switch {
	case doc == nil:
		return hint
	case hint == nil:
		return doc
	}
	out := *doc
	if !ttype.ContainsTemplate(out) && !ttype.IsContainedBy(looseHierarchy{}, out, *hint, nil) {
		return hint
	}
	if hint.IsNullable() && !out.IsNullable() {
		out = ttype.Nullable(out)
	}
	return &out
}
