// Copyright © 2024 The Mago authors

package codebase

import (
	"fmt"
	"strings"

	"github.com/magophp/mago/diagnostic"
	"github.com/magophp/mago/ttype"
)

const (
	unvisited uint8 = iota
	visiting
	visited
)

// Populate computes inheritance closures and member tables and expands
// every stored type.  It must run after the last Merge and before
// analysis.  Running it again after another Merge recomputes everything.
func (c *Codebase) Populate() {
	p := &populator{cb: c, state: make(map[string]uint8, len(c.Classes))}
	for _, key := range sortedKeys(c.Classes) {
		p.class(key)
	}
	for _, key := range sortedKeys(c.Classes) {
		m := c.Classes[key]
		if m.IsTrait() {
			continue
		}
		c.expandClass(m)
	}
	for _, key := range sortedKeys(c.Functions) {
		c.expandFunction(c.Functions[key], ttype.ExpansionOptions{})
	}
	for _, key := range sortedKeys(c.Constants) {
		k := c.Constants[key]
		k.Type = ttype.Expand(c, k.Type, ttype.ExpansionOptions{})
	}
	c.populated = true
}

type populator struct {
	cb    *Codebase
	state map[string]uint8
}

func (p *populator) class(key string) {
	m, ok := p.cb.Classes[key]
	if !ok || p.state[key] != unvisited {
		return
	}
	p.state[key] = visiting
	p.reset(m)

	if m.Parent != "" {
		p.extend(m)
	}
	p.implement(m)
	for _, t := range m.Traits {
		p.useTrait(m, t)
	}
	p.declare(m)
	p.visibility(m)
	p.state[key] = visited
}

// reset clears the results of a previous run and drops trait members
// copied in by it.
func (p *populator) reset(m *ClassLikeMetadata) {
	m.AllParents = nil
	m.AllInterfaces = nil
	m.parents = make(map[string]bool)
	m.interfaces = make(map[string]bool)
	for k, f := range m.Methods {
		if !m.MethodMembers.Declared[k] || !strings.EqualFold(f.Class, m.Name) {
			delete(m.Methods, k)
		}
	}
	for k := range m.Properties {
		if !m.PropertyMembers.Declared[k] {
			delete(m.Properties, k)
		}
	}
	for k := range m.Constants {
		if !m.ConstantMembers.Declared[k] {
			delete(m.Constants, k)
		}
	}
	for _, members := range []*Members{&m.MethodMembers, &m.PropertyMembers, &m.ConstantMembers} {
		declared := members.Declared
		*members = newMembers()
		members.Declared = declared
	}
}

func (p *populator) cycle(m *ClassLikeMetadata, target string) {
	p.cb.Issues.Add(diagnostic.NewIssue(diagnostic.LevelError, "analysis", "circular-inheritance",
		fmt.Sprintf("%s %s has a circular inheritance chain through %s.", titleKind(m), m.Name, target)).
		At(m.NameSpan, "inheritance cycle starts here").
		WithHelp("Remove one of the extends or implements clauses forming the cycle."))
}

// ancestor populates the class-like key and returns it, or reports a cycle
// and returns false.  Unknown class-likes yield (nil, true).
func (p *populator) ancestor(m *ClassLikeMetadata, name string) (*ClassLikeMetadata, bool) {
	key := Key(name)
	if key == m.Key() || p.state[key] == visiting {
		p.cycle(m, name)
		return nil, false
	}
	p.class(key)
	a, ok := p.cb.Classes[key]
	if !ok {
		return nil, true
	}
	return a, true
}

func (p *populator) extend(m *ClassLikeMetadata) {
	parent, ok := p.ancestor(m, m.Parent)
	if !ok {
		m.Parent = ""
		return
	}
	pk := Key(m.Parent)
	m.AllParents = append(m.AllParents, pk)
	m.parents[pk] = true
	if parent == nil {
		return
	}
	for _, a := range parent.AllParents {
		if !m.parents[a] {
			m.AllParents = append(m.AllParents, a)
			m.parents[a] = true
		}
	}
	for _, i := range parent.AllInterfaces {
		p.addInterface(m, i)
	}
	inherit(&m.MethodMembers, &parent.MethodMembers, func(key, from string) bool {
		f, ok := p.cb.Classes[from].Methods[key]
		return ok && f.Visibility != Private
	})
	inherit(&m.PropertyMembers, &parent.PropertyMembers, func(key, from string) bool {
		prop, ok := p.cb.Classes[from].Properties[key]
		return ok && prop.Visibility != Private
	})
	inherit(&m.ConstantMembers, &parent.ConstantMembers, func(key, from string) bool {
		if k, ok := p.cb.Classes[from].Constants[key]; ok {
			return k.Visibility != Private
		}
		return true
	})
}

func (p *populator) implement(m *ClassLikeMetadata) {
	kept := m.Interfaces[:0]
	for _, name := range m.Interfaces {
		iface, ok := p.ancestor(m, name)
		if !ok {
			continue
		}
		kept = append(kept, name)
		p.addInterface(m, Key(name))
		if iface == nil {
			continue
		}
		for _, i := range iface.AllInterfaces {
			p.addInterface(m, i)
		}
		// Interface members only fill gaps.
		inherit(&m.MethodMembers, &iface.MethodMembers, func(key, _ string) bool {
			_, ok := m.MethodMembers.Appearing[key]
			return !ok && !m.MethodMembers.Declared[key]
		})
		inherit(&m.ConstantMembers, &iface.ConstantMembers, func(key, _ string) bool {
			_, ok := m.ConstantMembers.Appearing[key]
			return !ok
		})
	}
	m.Interfaces = kept
}

func (p *populator) addInterface(m *ClassLikeMetadata, key string) {
	if m.interfaces[key] {
		return
	}
	m.interfaces[key] = true
	m.AllInterfaces = append(m.AllInterfaces, key)
}

func inherit(dst, src *Members, keep func(key, from string) bool) {
	for _, key := range sortedKeys(src.Appearing) {
		from := src.Appearing[key]
		if keep(key, from) {
			dst.Appearing[key] = from
		}
	}
}

func (p *populator) useTrait(m *ClassLikeMetadata, name string) {
	trait, ok := p.ancestor(m, name)
	if !ok || trait == nil || !trait.IsTrait() {
		return
	}
	tk := trait.Key()
	excluded := make(map[string]bool)
	for _, method := range m.TraitExclusions[tk] {
		excluded[method] = true
	}
	for _, key := range sortedKeys(trait.Methods) {
		f := trait.Methods[key]
		if !excluded[key] && !m.MethodMembers.Declared[key] {
			p.copyMethod(m, f, f.Name, nil)
		}
		for _, alias := range m.TraitAliases {
			if alias.Method != key || (alias.Trait != "" && alias.Trait != tk) {
				continue
			}
			switch {
			case alias.Alias != "":
				p.copyMethod(m, f, alias.Alias, alias.Visibility)
			case !excluded[key] && !m.MethodMembers.Declared[key]:
				p.copyMethod(m, f, f.Name, alias.Visibility)
			}
		}
	}
	for _, key := range sortedKeys(trait.Properties) {
		if m.PropertyMembers.Declared[key] {
			continue
		}
		prop := *trait.Properties[key]
		prop.Class = m.Name
		m.Properties[key] = &prop
		m.PropertyMembers.Appearing[key] = m.Key()
	}
	for _, key := range sortedKeys(trait.Constants) {
		if m.ConstantMembers.Declared[key] {
			continue
		}
		k := *trait.Constants[key]
		k.Class = m.Name
		m.Constants[key] = &k
		m.ConstantMembers.Appearing[key] = m.Key()
	}
}

func (p *populator) copyMethod(m *ClassLikeMetadata, f *FunctionLikeMetadata, name string, vis *Visibility) {
	cp := *f
	cp.Name = name
	cp.Class = m.Name
	cp.Params = make([]*ParameterMetadata, len(f.Params))
	for i, param := range f.Params {
		pc := *param
		cp.Params[i] = &pc
	}
	if vis != nil {
		cp.Visibility = *vis
	}
	key := cp.Key()
	m.Methods[key] = &cp
	m.MethodMembers.Appearing[key] = m.Key()
}

func (p *populator) declare(m *ClassLikeMetadata) {
	self := m.Key()
	overrides := func(members *Members, kind string) {
		for _, key := range sortedKeys(members.Declared) {
			if from, ok := members.Appearing[key]; ok && from != self {
				if decl, ok := p.cb.Classes[from]; ok {
					owner := decl.member(kind)
					owner.OverriddenBy[key] = append(owner.OverriddenBy[key], self)
				}
			}
			members.Appearing[key] = self
		}
	}
	overrides(&m.MethodMembers, "method")
	overrides(&m.PropertyMembers, "property")
	overrides(&m.ConstantMembers, "constant")
}

func (c *ClassLikeMetadata) member(kind string) *Members {
	switch kind {
	case "property":
		return &c.PropertyMembers
	case "constant":
		return &c.ConstantMembers
	}
	return &c.MethodMembers
}

func (p *populator) visibility(m *ClassLikeMetadata) {
	for key := range m.MethodMembers.Appearing {
		if f, ok := p.cb.Method(m.Name, key); ok && f.Visibility == Public {
			m.MethodMembers.Visible[key] = true
		}
	}
	for key := range m.PropertyMembers.Appearing {
		if prop, ok := p.cb.Property(m.Name, key); ok && prop.Visibility == Public {
			m.PropertyMembers.Visible[key] = true
		}
	}
	for key := range m.ConstantMembers.Appearing {
		if k, ok := p.cb.ClassConstant(m.Name, key); !ok || k.Visibility == Public {
			m.ConstantMembers.Visible[key] = true
		}
	}
}

func (c *Codebase) expandClass(m *ClassLikeMetadata) {
	opts := ttype.ExpansionOptions{Self: m.Name, Static: "static", Parent: m.Parent}
	expand := func(u ttype.Union) ttype.Union { return ttype.Expand(c, u, opts) }
	for _, f := range m.Methods {
		c.expandFunction(f, opts)
	}
	for _, prop := range m.Properties {
		prop.Type = expandPtr(prop.Type, expand)
		prop.Default = expandPtr(prop.Default, expand)
	}
	for _, k := range m.Constants {
		k.Type = expand(k.Type)
	}
	for i := range m.Templates {
		m.Templates[i].Bound = expand(m.Templates[i].Bound)
	}
	for name, params := range m.TemplateExtended {
		out := make([]ttype.Union, len(params))
		for i, u := range params {
			out[i] = expand(u)
		}
		m.TemplateExtended[name] = out
	}
	m.BackingType = expandPtr(m.BackingType, expand)
}

func (c *Codebase) expandFunction(f *FunctionLikeMetadata, opts ttype.ExpansionOptions) {
	expand := func(u ttype.Union) ttype.Union { return ttype.Expand(c, u, opts) }
	for _, param := range f.Params {
		param.Type = expandPtr(param.Type, expand)
		param.Default = expandPtr(param.Default, expand)
	}
	f.ReturnType = expandPtr(f.ReturnType, expand)
	if len(f.Throws) > 0 {
		throws := make([]ttype.Union, len(f.Throws))
		for i, u := range f.Throws {
			throws[i] = expand(u)
		}
		f.Throws = throws
	}
	if len(f.Templates) > 0 {
		templates := make([]TemplateMetadata, len(f.Templates))
		for i, t := range f.Templates {
			t.Bound = expand(t.Bound)
			templates[i] = t
		}
		f.Templates = templates
	}
}

func expandPtr(u *ttype.Union, expand func(ttype.Union) ttype.Union) *ttype.Union {
	if u == nil {
		return nil
	}
	out := expand(*u)
	return &out
}
