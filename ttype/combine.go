// Copyright © 2024 The Mago authors

package ttype

import "strings"

// literalLimit bounds the number of literal members kept for one scalar
// kind before the union widens to the general type.
const literalLimit = 128

// shapeLimit bounds the entries of a combined keyed array.
const shapeLimit = 64

// Combine canonicalizes atoms into a union.  Mixed absorbs everything, never
// disappears, literals widen into their general type when it is present, and
// array variants merge into a single array type.
func Combine(atoms ...Atomic) Union {
	c := &combiner{buckets: make(map[string][]Atomic)}
	for _, a := range atoms {
		if a.Kind == KMixed {
			return Mixed()
		}
		if a.Kind == KNever {
			continue
		}
		c.add(a)
	}
	return c.union()
}

// Merge combines the members of several unions.  The result is possibly
// undefined when any input is.
func Merge(unions ...Union) Union {
	var atoms []Atomic
	undefined, falsable := false, false
	for _, u := range unions {
		atoms = append(atoms, u.Types...)
		undefined = undefined || u.PossiblyUndefined
		falsable = falsable || u.IgnoreFalsable
	}
	out := Combine(atoms...)
	out.PossiblyUndefined = undefined
	out.IgnoreFalsable = falsable
	return out
}

type combiner struct {
	order   []string
	buckets map[string][]Atomic
}

func bucketOf(a Atomic) string {
	switch a.Kind {
	case KBool, KTrue, KFalse:
		return "bool"
	case KInt:
		return "int"
	case KFloat:
		return "float"
	case KString:
		return "string"
	case KClassString:
		return "class-string"
	case KArray, KList, KKeyedArray:
		return "array"
	case KIterable:
		return "iterable"
	case KObject, KNamed, KEnumCase, KClosure:
		return "object"
	case KCallable:
		return "callable"
	}
	return "other:" + a.Key()
}

func (c *combiner) add(a Atomic) {
	b := bucketOf(a)
	if _, ok := c.buckets[b]; !ok {
		c.order = append(c.order, b)
	}
	c.buckets[b] = append(c.buckets[b], a)
}

func (c *combiner) union() Union {
	var out Union
	for _, b := range c.order {
		atoms := c.buckets[b]
		switch b {
		case "bool":
			out.Types = append(out.Types, combineBools(atoms)...)
		case "int", "float", "string":
			out.Types = append(out.Types, combineScalars(atoms)...)
		case "class-string", "callable":
			out.Types = append(out.Types, combineGeneral(atoms)...)
		case "array":
			out.Types = append(out.Types, combineArrays(atoms))
		case "iterable":
			out.Types = append(out.Types, combineIterables(atoms))
		case "object":
			out.Types = append(out.Types, combineObjects(atoms)...)
		default:
			out.Types = append(out.Types, atoms[0])
		}
	}
	return out
}

func combineBools(atoms []Atomic) []Atomic {
	var hasTrue, hasFalse bool
	for _, a := range atoms {
		switch a.Kind {
		case KBool:
			return []Atomic{BoolAtomic()}
		case KTrue:
			hasTrue = true
		case KFalse:
			hasFalse = true
		}
	}
	switch {
	case hasTrue && hasFalse:
		return []Atomic{BoolAtomic()}
	case hasTrue:
		return []Atomic{TrueAtomic()}
	}
	return []Atomic{FalseAtomic()}
}

// general reports whether a is the unrefined form of its kind.
func general(a Atomic) bool {
	switch a.Kind {
	case KInt:
		return !a.Literal && a.Min == nil && a.Max == nil
	case KString:
		return !a.Literal && !a.NonEmpty && !a.Numeric
	case KFloat:
		return !a.Literal
	case KClassString:
		return a.Name == "" && a.Bound == nil
	case KCallable:
		return a.Signature == nil
	}
	return false
}

func dedupe(atoms []Atomic) []Atomic {
	seen := make(map[string]bool, len(atoms))
	var out []Atomic
	for _, a := range atoms {
		k := a.Key()
		if !seen[k] {
			seen[k] = true
			out = append(out, a)
		}
	}
	return out
}

func combineGeneral(atoms []Atomic) []Atomic {
	for _, a := range atoms {
		if general(a) {
			return []Atomic{a}
		}
	}
	return dedupe(atoms)
}

func combineScalars(atoms []Atomic) []Atomic {
	for _, a := range atoms {
		if general(a) {
			return []Atomic{a}
		}
	}
	atoms = dedupe(atoms)
	literals := 0
	var nonEmpty bool
	for _, a := range atoms {
		if a.Literal {
			literals++
		} else if a.Kind == KString && a.NonEmpty && !a.Numeric {
			nonEmpty = true
		}
	}
	if literals > literalLimit {
		return []Atomic{{Kind: atoms[0].Kind}}
	}
	var out []Atomic
	for _, a := range atoms {
		switch {
		case a.Kind == KString && nonEmpty && a.NonEmpty && (a.Literal || a.Numeric):
			continue
		case a.Kind == KInt && a.Literal && inSomeRange(a.Int, atoms):
			continue
		}
		out = append(out, a)
	}
	return out
}

func inSomeRange(v int64, atoms []Atomic) bool {
	for _, a := range atoms {
		if a.Kind != KInt || a.Literal {
			continue
		}
		if (a.Min == nil || *a.Min <= v) && (a.Max == nil || v <= *a.Max) {
			return true
		}
	}
	return false
}

func combineArrays(atoms []Atomic) Atomic {
	if len(atoms) == 1 {
		return atoms[0]
	}
	allKeyed := true
	for _, a := range atoms {
		if a.Kind != KKeyedArray {
			allKeyed = false
		}
	}
	if allKeyed {
		if merged, ok := mergeKeyed(atoms); ok {
			return merged
		}
	}
	allLists, allNonEmpty := true, true
	var keys, values []Atomic
	for _, a := range atoms {
		if a.Kind == KKeyedArray && len(a.Entries) == 0 && a.Sealed {
			allNonEmpty = false
			continue
		}
		switch a.Kind {
		case KArray:
			allLists = false
		case KKeyedArray:
			allLists = allLists && a.List
		}
		if atomicTruthiness(a) != AlwaysTruthy {
			allNonEmpty = false
		}
		k, v := a.ArrayParams()
		keys = append(keys, k.Types...)
		values = append(values, v.Types...)
	}
	if len(values) == 0 {
		return EmptyArray()
	}
	var out Atomic
	if allLists {
		out = ListOf(Combine(values...))
	} else {
		out = ArrayOf(Combine(keys...), Combine(values...))
	}
	out.NonEmpty = allNonEmpty
	return out
}

func mergeKeyed(atoms []Atomic) (Atomic, bool) {
	type slot struct {
		key      ArrayKey
		types    []Union
		optional bool
		count    int
	}
	var order []ArrayKey
	slots := make(map[ArrayKey]*slot)
	sealed := true
	for _, a := range atoms {
		sealed = sealed && a.Sealed
		for _, e := range a.Entries {
			s, ok := slots[e.Key]
			if !ok {
				s = &slot{key: e.Key}
				slots[e.Key] = s
				order = append(order, e.Key)
			}
			s.types = append(s.types, e.Type)
			s.optional = s.optional || e.Optional
			s.count++
		}
	}
	if len(order) > shapeLimit {
		return Atomic{}, false
	}
	entries := make([]Entry, 0, len(order))
	for _, k := range order {
		s := slots[k]
		entries = append(entries, Entry{
			Key:      k,
			Type:     Merge(s.types...).Defined(),
			Optional: s.optional || s.count < len(atoms),
		})
	}
	return Keyed(sealed, entries...), true
}

func combineIterables(atoms []Atomic) Atomic {
	var keys, values []Atomic
	for _, a := range atoms {
		k, v := a.ArrayParams()
		keys = append(keys, k.Types...)
		values = append(values, v.Types...)
	}
	return IterableOf(Combine(keys...), Combine(values...))
}

func combineObjects(atoms []Atomic) []Atomic {
	for _, a := range atoms {
		if a.Kind == KObject {
			return []Atomic{a}
		}
	}
	var out []Atomic
	named := make(map[string]int)
	for _, a := range dedupe(atoms) {
		if a.Kind != KNamed {
			out = append(out, a)
			continue
		}
		name := strings.ToLower(a.Name)
		if a.This {
			name = "static<" + name + ">"
		}
		i, ok := named[name]
		if !ok {
			named[name] = len(out)
			out = append(out, a)
			continue
		}
		prev := out[i]
		if len(prev.Params) == len(a.Params) {
			params := make([]Union, len(a.Params))
			for j := range a.Params {
				params[j] = Merge(prev.Params[j], a.Params[j])
			}
			prev.Params = params
			out[i] = prev
		}
	}
	return out
}
