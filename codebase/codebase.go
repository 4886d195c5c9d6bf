// Copyright © 2024 The Mago authors

// Package codebase holds the cross-file symbol index.  Each file is scanned
// into its own Codebase; the per-file results are merged into one global
// Codebase, which Populate then completes with inheritance closures and
// member tables.  After Populate the Codebase is read-only and may be shared
// by any number of analysis goroutines.
package codebase

import (
	"fmt"
	"sort"
	"strings"

	"github.com/magophp/mago/diagnostic"
	"github.com/magophp/mago/source"
	"github.com/magophp/mago/ttype"
)

// Codebase is the metadata of a set of files.
type Codebase struct {
	Classes   map[string]*ClassLikeMetadata
	Functions map[string]*FunctionLikeMetadata
	Constants map[string]*ConstantMetadata

	// Issues holds problems found while indexing, such as duplicate
	// definitions and inheritance cycles.
	Issues *diagnostic.IssueCollection

	populated bool
}

// New returns an empty codebase.
func New() *Codebase {
	return &Codebase{
		Classes:   make(map[string]*ClassLikeMetadata),
		Functions: make(map[string]*FunctionLikeMetadata),
		Constants: make(map[string]*ConstantMetadata),
		Issues:    &diagnostic.IssueCollection{},
	}
}

// Populated reports whether Populate has run.
func (c *Codebase) Populated() bool {
	return c.populated
}

// AddClassLike registers class metadata, replacing any previous entry.
func (c *Codebase) AddClassLike(m *ClassLikeMetadata) {
	c.Classes[m.Key()] = m
}

// AddFunction registers function metadata.
func (c *Codebase) AddFunction(f *FunctionLikeMetadata) {
	c.Functions[f.Key()] = f
}

// AddConstant registers a global constant.
func (c *Codebase) AddConstant(k *ConstantMetadata) {
	c.Constants[ConstantKey(k.Name)] = k
}

// Merge folds other into c.  The last writer wins; redefining a symbol
// from a user-defined file records a duplicate-definition issue.
func (c *Codebase) Merge(other *Codebase) {
	for _, key := range sortedKeys(other.Classes) {
		m := other.Classes[key]
		if prev, ok := c.Classes[key]; ok && m.Category == source.UserDefined && prev.Span != m.Span {
			c.duplicate(m.NameSpan, prev.NameSpan, fmt.Sprintf("%s %s is already defined.", titleKind(m), m.Name))
		}
		c.Classes[key] = m
	}
	for _, key := range sortedKeys(other.Functions) {
		f := other.Functions[key]
		if prev, ok := c.Functions[key]; ok && f.Category == source.UserDefined && prev.Span != f.Span {
			c.duplicate(f.NameSpan, prev.NameSpan, fmt.Sprintf("Function %s is already defined.", f.Name))
		}
		c.Functions[key] = f
	}
	for _, key := range sortedKeys(other.Constants) {
		k := other.Constants[key]
		if prev, ok := c.Constants[key]; ok && k.Category == source.UserDefined && prev.Span != k.Span {
			c.duplicate(k.Span, prev.Span, fmt.Sprintf("Constant %s is already defined.", k.Name))
		}
		c.Constants[key] = k
	}
	c.Issues.Extend(other.Issues)
	c.populated = false
}

func (c *Codebase) duplicate(at, prev source.Span, msg string) {
	c.Issues.Add(diagnostic.NewIssue(diagnostic.LevelError, "analysis", "duplicate-definition", msg).
		At(at, "redefined here").
		Also(prev, "previously defined here"))
}

func titleKind(m *ClassLikeMetadata) string {
	k := m.Kind.String()
	return strings.ToUpper(k[:1]) + k[1:]
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ClassLike returns the metadata of a class, interface, trait, or enum.
func (c *Codebase) ClassLike(name string) (*ClassLikeMetadata, bool) {
	m, ok := c.Classes[Key(name)]
	return m, ok
}

// ClassExists reports whether any class-like called name is known.
func (c *Codebase) ClassExists(name string) bool {
	_, ok := c.Classes[Key(name)]
	return ok
}

// Function returns the metadata of a global function.
func (c *Codebase) Function(name string) (*FunctionLikeMetadata, bool) {
	f, ok := c.Functions[Key(name)]
	return f, ok
}

// Constant returns a global constant.
func (c *Codebase) Constant(name string) (*ConstantMetadata, bool) {
	k, ok := c.Constants[ConstantKey(name)]
	return k, ok
}

// Method looks up method on class, including inherited and trait methods.
func (c *Codebase) Method(class, method string) (*FunctionLikeMetadata, bool) {
	m, ok := c.ClassLike(class)
	if !ok {
		return nil, false
	}
	key := strings.ToLower(method)
	if f, ok := m.Methods[key]; ok {
		return f, true
	}
	from, ok := m.MethodMembers.Appearing[key]
	if !ok {
		return nil, false
	}
	decl, ok := c.Classes[from]
	if !ok {
		return nil, false
	}
	f, ok := decl.Methods[key]
	return f, ok
}

// Property looks up property name (without the dollar sign) on class.
func (c *Codebase) Property(class, name string) (*PropertyMetadata, bool) {
	m, ok := c.ClassLike(class)
	if !ok {
		return nil, false
	}
	if p, ok := m.Properties[name]; ok {
		return p, true
	}
	from, ok := m.PropertyMembers.Appearing[name]
	if !ok {
		return nil, false
	}
	decl, ok := c.Classes[from]
	if !ok {
		return nil, false
	}
	p, ok := decl.Properties[name]
	return p, ok
}

// ClassConstant looks up a class constant on class.
func (c *Codebase) ClassConstant(class, name string) (*ClassConstantMetadata, bool) {
	m, ok := c.ClassLike(class)
	if !ok {
		return nil, false
	}
	if k, ok := m.Constants[name]; ok {
		return k, true
	}
	from, ok := m.ConstantMembers.Appearing[name]
	if !ok {
		return nil, false
	}
	decl, ok := c.Classes[from]
	if !ok {
		return nil, false
	}
	k, ok := decl.Constants[name]
	return k, ok
}

// EnumCase looks up a case of enum class.
func (c *Codebase) EnumCase(class, name string) (*EnumCaseMetadata, bool) {
	m, ok := c.ClassLike(class)
	if !ok {
		return nil, false
	}
	e, ok := m.Cases[name]
	return e, ok
}

// IsSubtype reports whether child is parent or extends or implements it.
func (c *Codebase) IsSubtype(child, parent string) bool {
	ck, pk := Key(child), Key(parent)
	if ck == pk {
		return true
	}
	m, ok := c.Classes[ck]
	if !ok {
		return false
	}
	return m.parents[pk] || m.interfaces[pk]
}

// IsInterface reports whether name is a known interface.
func (c *Codebase) IsInterface(name string) bool {
	m, ok := c.Classes[Key(name)]
	return ok && m.IsInterface()
}

// Properties returns the instance property types of class in declaration
// order.
func (c *Codebase) Properties(class string) ([]ttype.Entry, bool) {
	m, ok := c.ClassLike(class)
	if !ok {
		return nil, false
	}
	var props []*PropertyMetadata
	for name := range m.PropertyMembers.Appearing {
		p, ok := c.Property(class, name)
		if !ok || p.Static {
			continue
		}
		props = append(props, p)
	}
	sort.Slice(props, func(i, j int) bool {
		if props[i].Span.File != props[j].Span.File {
			return props[i].Span.File < props[j].Span.File
		}
		return props[i].Span.Start < props[j].Span.Start
	})
	entries := make([]ttype.Entry, len(props))
	for i, p := range props {
		entries[i] = ttype.Entry{Key: ttype.StringKey(p.Name), Type: p.EffectiveType()}
	}
	return entries, true
}

// EnumCases returns the case names of enum class in declaration order.
func (c *Codebase) EnumCases(class string) ([]string, bool) {
	m, ok := c.ClassLike(class)
	if !ok || !m.IsEnum() {
		return nil, false
	}
	cases := make([]*EnumCaseMetadata, 0, len(m.Cases))
	for _, e := range m.Cases {
		cases = append(cases, e)
	}
	sort.Slice(cases, func(i, j int) bool { return cases[i].Span.Start < cases[j].Span.Start })
	names := make([]string, len(cases))
	for i, e := range cases {
		names[i] = e.Name
	}
	return names, true
}

// ExpansionOptions returns the options expanding self, static, and parent
// for class.
func (c *Codebase) ExpansionOptions(class string) ttype.ExpansionOptions {
	opts := ttype.ExpansionOptions{Self: class, Static: class}
	if m, ok := c.ClassLike(class); ok {
		opts.Self = m.Name
		opts.Static = m.Name
		opts.Parent = m.Parent
	}
	return opts
}

// Expand expands u in the context of class, which may be empty.
func (c *Codebase) Expand(u ttype.Union, class string) ttype.Union {
	if class == "" {
		return ttype.Expand(c, u, ttype.ExpansionOptions{})
	}
	return ttype.Expand(c, u, c.ExpansionOptions(class))
}

// Descendants returns the lowercase names of every class-like that extends
// or implements class.
func (c *Codebase) Descendants(class string) []string {
	key := Key(class)
	var out []string
	for _, k := range sortedKeys(c.Classes) {
		m := c.Classes[k]
		if m.parents[key] || m.interfaces[key] {
			out = append(out, k)
		}
	}
	return out
}
