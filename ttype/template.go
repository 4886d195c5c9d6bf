// Copyright © 2024 The Mago authors

package ttype

import "strings"

// TemplateResult accumulates bounds for template parameters while the
// arguments of one invocation are compared against its parameters.
type TemplateResult struct {
	Lower map[string][]Union
	Upper map[string]Union
}

// NewTemplateResult returns an empty result.  upper holds the declared
// constraint of each template.
func NewTemplateResult(upper map[string]Union) *TemplateResult {
	if upper == nil {
		upper = make(map[string]Union)
	}
	return &TemplateResult{Lower: make(map[string][]Union), Upper: upper}
}

// AddLower records that u flowed into template name.
func (r *TemplateResult) AddLower(name string, u Union) {
	key := strings.ToLower(name)
	r.Lower[key] = append(r.Lower[key], u)
}

// Inferred returns the combination of the lower bounds of name.
func (r *TemplateResult) Inferred(name string) (Union, bool) {
	lower, ok := r.Lower[strings.ToLower(name)]
	if !ok {
		return Union{}, false
	}
	return Merge(lower...).Defined(), true
}

// Resolve returns the inferred type of name, falling back to its upper
// bound and then to mixed.
func (r *TemplateResult) Resolve(name string) Union {
	if r != nil {
		if u, ok := r.Inferred(name); ok {
			return u
		}
		if u, ok := r.Upper[strings.ToLower(name)]; ok {
			return u
		}
	}
	return Mixed()
}

// Substitute replaces the template parameters in u with their resolved
// types from r.
func Substitute(u Union, r *TemplateResult) Union {
	if !containsTemplate(u) {
		return u
	}
	out := u.Map(func(a Atomic) Union {
		if a.Kind == KTemplate {
			if r == nil {
				if a.Bound != nil {
					return *a.Bound
				}
				return Mixed()
			}
			if inferred, ok := r.Inferred(a.Name); ok {
				return inferred
			}
			if a.Bound != nil {
				return *a.Bound
			}
			return r.Resolve(a.Name)
		}
		return Single(substituteAtomic(a, r))
	})
	out.PossiblyUndefined = u.PossiblyUndefined
	out.IgnoreFalsable = u.IgnoreFalsable
	return out
}

func substituteAtomic(a Atomic, r *TemplateResult) Atomic {
	if len(a.Params) > 0 {
		params := make([]Union, len(a.Params))
		for i, p := range a.Params {
			params[i] = Substitute(p, r)
		}
		a.Params = params
	}
	if len(a.Entries) > 0 {
		entries := make([]Entry, len(a.Entries))
		for i, e := range a.Entries {
			e.Type = Substitute(e.Type, r)
			entries[i] = e
		}
		a.Entries = entries
	}
	if a.Signature != nil {
		a.Signature = substituteSignature(a.Signature, r)
	}
	if a.Kind == KClassString && a.Bound != nil {
		b := Substitute(*a.Bound, r)
		if len(b.Types) == 1 && b.Types[0].Kind == KNamed {
			return ClassString(b.Types[0].Name)
		}
		a.Bound = &b
	}
	return a
}

func substituteSignature(s *Signature, r *TemplateResult) *Signature {
	out := &Signature{Pure: s.Pure, Params: make([]Param, len(s.Params))}
	for i, p := range s.Params {
		p.Type = Substitute(p.Type, r)
		out.Params[i] = p
	}
	if s.Return != nil {
		ret := Substitute(*s.Return, r)
		out.Return = &ret
	}
	return out
}

// ContainsTemplate reports whether u mentions a template parameter.
func ContainsTemplate(u Union) bool {
	return containsTemplate(u)
}

func containsTemplate(u Union) bool {
	for _, a := range u.Types {
		if atomicContainsTemplate(a) {
			return true
		}
	}
	return false
}

func atomicContainsTemplate(a Atomic) bool {
	if a.Kind == KTemplate {
		return true
	}
	for _, p := range a.Params {
		if containsTemplate(p) {
			return true
		}
	}
	for _, e := range a.Entries {
		if containsTemplate(e.Type) {
			return true
		}
	}
	if a.Signature != nil {
		for _, p := range a.Signature.Params {
			if containsTemplate(p.Type) {
				return true
			}
		}
		if a.Signature.Return != nil && containsTemplate(*a.Signature.Return) {
			return true
		}
	}
	return a.Bound != nil && a.Kind == KClassString && containsTemplate(*a.Bound)
}
