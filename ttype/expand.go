// Copyright © 2024 The Mago authors

package ttype

import "strings"

// Expander supplies the class information needed to expand derived types.
type Expander interface {
	Hierarchy
	// Properties returns the property types of class.
	Properties(class string) ([]Entry, bool)
	// EnumCases returns the case names of enum class.
	EnumCases(class string) ([]string, bool)
}

// ExpansionOptions gives the class context used to rewrite self, static,
// and parent.
type ExpansionOptions struct {
	Self   string
	Static string
	Parent string
}

// Expand replaces self, static, and parent with the classes of opts and
// resolves key-of, value-of, and properties-of.  Expansion is idempotent.
func Expand(x Expander, u Union, opts ExpansionOptions) Union {
	if !needsExpansion(u) {
		return u
	}
	out := u.Map(func(a Atomic) Union { return expandAtomic(x, a, opts) })
	out.PossiblyUndefined = u.PossiblyUndefined
	out.IgnoreFalsable = u.IgnoreFalsable
	return out
}

func needsExpansion(u Union) bool {
	for _, a := range u.Types {
		switch a.Kind {
		case KKeyOf, KValueOf, KPropertiesOf:
			return true
		case KNamed:
			if isRelativeClass(a.Name) {
				return true
			}
		case KClassString:
			if isRelativeClass(a.Name) || (a.Bound != nil && needsExpansion(*a.Bound)) {
				return true
			}
		}
		for _, p := range a.Params {
			if needsExpansion(p) {
				return true
			}
		}
		for _, e := range a.Entries {
			if needsExpansion(e.Type) {
				return true
			}
		}
		if a.Signature != nil {
			for _, p := range a.Signature.Params {
				if needsExpansion(p.Type) {
					return true
				}
			}
			if a.Signature.Return != nil && needsExpansion(*a.Signature.Return) {
				return true
			}
		}
		if a.Kind == KTemplate && a.Bound != nil && needsExpansion(*a.Bound) {
			return true
		}
	}
	return false
}

func isRelativeClass(name string) bool {
	switch strings.ToLower(name) {
	case "self", "static", "parent", "$this":
		return true
	}
	return false
}

func relativeClass(name string, opts ExpansionOptions) (string, bool, bool) {
	switch strings.ToLower(name) {
	case "self":
		return opts.Self, false, opts.Self != ""
	case "static", "$this":
		if opts.Static != "" {
			return opts.Static, true, true
		}
		return opts.Self, true, opts.Self != ""
	case "parent":
		return opts.Parent, false, opts.Parent != ""
	}
	return name, false, true
}

func expandAtomic(x Expander, a Atomic, opts ExpansionOptions) Union {
	switch a.Kind {
	case KNamed:
		if name, this, ok := relativeClass(a.Name, opts); ok {
			a.Name = name
			a.This = a.This || this
		}
	case KClassString:
		if name, _, ok := relativeClass(a.Name, opts); ok {
			a.Name = name
		}
	case KKeyOf, KValueOf:
		return expandKeyValueOf(x, a, opts)
	case KPropertiesOf:
		return expandPropertiesOf(x, a, opts)
	}
	if len(a.Params) > 0 {
		params := make([]Union, len(a.Params))
		for i, p := range a.Params {
			params[i] = Expand(x, p, opts)
		}
		a.Params = params
	}
	if len(a.Entries) > 0 {
		entries := make([]Entry, len(a.Entries))
		for i, e := range a.Entries {
			e.Type = Expand(x, e.Type, opts)
			entries[i] = e
		}
		a.Entries = entries
	}
	if a.Signature != nil {
		sig := &Signature{Pure: a.Signature.Pure, Params: make([]Param, len(a.Signature.Params))}
		for i, p := range a.Signature.Params {
			p.Type = Expand(x, p.Type, opts)
			sig.Params[i] = p
		}
		if a.Signature.Return != nil {
			ret := Expand(x, *a.Signature.Return, opts)
			sig.Return = &ret
		}
		a.Signature = sig
	}
	if a.Bound != nil {
		b := Expand(x, *a.Bound, opts)
		a.Bound = &b
	}
	return Single(a)
}

func expandKeyValueOf(x Expander, a Atomic, opts ExpansionOptions) Union {
	if len(a.Params) != 1 {
		if a.Kind == KKeyOf {
			return ArrayKeyType()
		}
		return Mixed()
	}
	target := Expand(x, a.Params[0], opts)
	if containsTemplate(target) {
		a.Params = []Union{target}
		return Single(a)
	}
	var out []Atomic
	for _, t := range target.Types {
		switch {
		case t.IsArray() || t.Kind == KIterable:
			k, v := t.ArrayParams()
			if a.Kind == KKeyOf {
				out = append(out, k.Types...)
			} else {
				out = append(out, v.Types...)
			}
		case t.Kind == KNamed && a.Kind == KValueOf && x != nil:
			cases, ok := x.EnumCases(t.Name)
			if !ok {
				out = append(out, MixedAtomic())
				continue
			}
			for _, c := range cases {
				out = append(out, EnumCase(t.Name, c))
			}
		default:
			if a.Kind == KKeyOf {
				out = append(out, Atomic{Kind: KArrayKey})
			} else {
				out = append(out, MixedAtomic())
			}
		}
	}
	return Combine(out...)
}

func expandPropertiesOf(x Expander, a Atomic, opts ExpansionOptions) Union {
	if len(a.Params) != 1 || x == nil {
		return MixedArray()
	}
	target := Expand(x, a.Params[0], opts)
	var out []Atomic
	for _, t := range target.Types {
		if t.Kind != KNamed {
			out = append(out, ArrayOf(String(), Mixed()))
			continue
		}
		props, ok := x.Properties(t.Name)
		if !ok {
			out = append(out, ArrayOf(String(), Mixed()))
			continue
		}
		out = append(out, Keyed(true, props...))
	}
	return Combine(out...)
}
