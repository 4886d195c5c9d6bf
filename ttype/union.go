// Copyright © 2024 The Mago authors

package ttype

import (
	"sort"
	"strings"
)

// Union is a set of atomic types.  The empty union is never.
type Union struct {
	Types []Atomic
	// IgnoreFalsable suppresses issues about a false member, as for the
	// results of builtins that return false only on failure.
	IgnoreFalsable bool
	// PossiblyUndefined marks optional array entries and variables that are
	// assigned on some paths only.
	PossiblyUndefined bool
}

// Single returns the union holding just a.
func Single(a Atomic) Union {
	return Union{Types: []Atomic{a}}
}

func Mixed() Union       { return Single(MixedAtomic()) }
func Never() Union       { return Union{} }
func Null() Union        { return Single(NullAtomic()) }
func Void() Union        { return Single(VoidAtomic()) }
func Bool() Union        { return Single(BoolAtomic()) }
func True() Union        { return Single(TrueAtomic()) }
func False() Union       { return Single(FalseAtomic()) }
func Int() Union         { return Single(IntAtomic()) }
func Float() Union       { return Single(FloatAtomic()) }
func String() Union      { return Single(StringAtomic()) }
func Object() Union      { return Single(ObjectAtomic()) }
func ArrayKeyType() Union { return Single(Atomic{Kind: KArrayKey}) }

// MixedArray returns array<array-key, mixed>.
func MixedArray() Union {
	return Single(ArrayOf(ArrayKeyType(), Mixed()))
}

// IntOrFloat returns int|float.
func IntOrFloat() Union {
	return Union{Types: []Atomic{IntAtomic(), FloatAtomic()}}
}

// Nullable returns u|null.
func Nullable(u Union) Union {
	return Combine(append(append([]Atomic(nil), u.Types...), NullAtomic())...)
}

// IsNever reports whether u is empty.
func (u Union) IsNever() bool {
	return len(u.Types) == 0 || (len(u.Types) == 1 && u.Types[0].Kind == KNever)
}

// IsMixed reports whether u contains mixed.
func (u Union) IsMixed() bool {
	for _, a := range u.Types {
		if a.Kind == KMixed {
			return true
		}
	}
	return false
}

// IsSingle reports whether u has exactly one member.
func (u Union) IsSingle() bool {
	return len(u.Types) == 1
}

// Has reports whether any member has kind k.
func (u Union) Has(k Kind) bool {
	for _, a := range u.Types {
		if a.Kind == k {
			return true
		}
	}
	return false
}

// Only reports whether every member has one of kinds.  It is false for
// never.
func (u Union) Only(kinds ...Kind) bool {
	if len(u.Types) == 0 {
		return false
	}
outer:
	for _, a := range u.Types {
		for _, k := range kinds {
			if a.Kind == k {
				continue outer
			}
		}
		return false
	}
	return true
}

// IsNullable reports whether u includes null.
func (u Union) IsNullable() bool {
	return u.Has(KNull)
}

// IsVoid reports whether u is exactly void.
func (u Union) IsVoid() bool {
	return u.Only(KVoid)
}

// IsTrue reports whether u is exactly true.
func (u Union) IsTrue() bool {
	return u.Only(KTrue)
}

// IsFalse reports whether u is exactly false.
func (u Union) IsFalse() bool {
	return u.Only(KFalse)
}

// IsInt reports whether every member is an integer.
func (u Union) IsInt() bool {
	return u.Only(KInt)
}

// IsString reports whether every member is a string.
func (u Union) IsString() bool {
	return u.Only(KString, KClassString)
}

// IsNumeric reports whether every member is an int or float.
func (u Union) IsNumeric() bool {
	return u.Only(KInt, KFloat)
}

// IsArray reports whether every member is an array.
func (u Union) IsArray() bool {
	return u.Only(KArray, KList, KKeyedArray)
}

// HasObject reports whether any member is an object.
func (u Union) HasObject() bool {
	for _, a := range u.Types {
		if a.IsObject() {
			return true
		}
	}
	return false
}

// Filter returns the members for which keep returns true.
func (u Union) Filter(keep func(Atomic) bool) Union {
	out := Union{IgnoreFalsable: u.IgnoreFalsable, PossiblyUndefined: u.PossiblyUndefined}
	for _, a := range u.Types {
		if keep(a) {
			out.Types = append(out.Types, a)
		}
	}
	return out
}

// Map applies fn to every member and combines the results.
func (u Union) Map(fn func(Atomic) Union) Union {
	var atoms []Atomic
	for _, a := range u.Types {
		atoms = append(atoms, fn(a).Types...)
	}
	return Combine(atoms...)
}

// WithoutNull removes null from u.
func (u Union) WithoutNull() Union {
	return u.Filter(func(a Atomic) bool { return a.Kind != KNull })
}

// Defined returns u with PossiblyUndefined cleared.
func (u Union) Defined() Union {
	u.PossiblyUndefined = false
	return u
}

// LiteralInt returns the value of a single literal int.
func (u Union) LiteralInt() (int64, bool) {
	if len(u.Types) == 1 && u.Types[0].Kind == KInt && u.Types[0].Literal {
		return u.Types[0].Int, true
	}
	return 0, false
}

// LiteralString returns the value of a single literal string.
func (u Union) LiteralString() (string, bool) {
	if len(u.Types) == 1 && u.Types[0].Kind == KString && u.Types[0].Literal {
		return u.Types[0].Str, true
	}
	return "", false
}

// Truthiness classifies the boolean value of a type.
type Truthiness uint8

const (
	MaybeTruthy Truthiness = iota
	AlwaysTruthy
	AlwaysFalsy
)

// Truthiness reports whether every value of u is truthy, every value is
// falsy, or neither.
func (u Union) Truthiness() Truthiness {
	if len(u.Types) == 0 {
		return MaybeTruthy
	}
	truthy, falsy := true, true
	for _, a := range u.Types {
		switch atomicTruthiness(a) {
		case AlwaysTruthy:
			falsy = false
		case AlwaysFalsy:
			truthy = false
		default:
			return MaybeTruthy
		}
	}
	switch {
	case truthy:
		return AlwaysTruthy
	case falsy:
		return AlwaysFalsy
	}
	return MaybeTruthy
}

func atomicTruthiness(a Atomic) Truthiness {
	switch a.Kind {
	case KNull, KVoid, KFalse:
		return AlwaysFalsy
	case KTrue, KObject, KNamed, KEnumCase, KClosure, KClassString, KResource:
		return AlwaysTruthy
	case KInt:
		if a.Literal {
			if a.Int == 0 {
				return AlwaysFalsy
			}
			return AlwaysTruthy
		}
		if (a.Min != nil && *a.Min > 0) || (a.Max != nil && *a.Max < 0) {
			return AlwaysTruthy
		}
	case KFloat:
		if a.Literal {
			if a.Float == 0 {
				return AlwaysFalsy
			}
			return AlwaysTruthy
		}
	case KString:
		if a.Literal {
			if a.Str == "" || a.Str == "0" {
				return AlwaysFalsy
			}
			return AlwaysTruthy
		}
	case KArray, KList:
		if a.NonEmpty {
			return AlwaysTruthy
		}
	case KKeyedArray:
		if len(a.Entries) == 0 && a.Sealed {
			return AlwaysFalsy
		}
		for _, e := range a.Entries {
			if !e.Optional {
				return AlwaysTruthy
			}
		}
	}
	return MaybeTruthy
}

// Equal reports set equality of a and b.
func Equal(a, b Union) bool {
	if len(a.Types) != len(b.Types) {
		return false
	}
	keys := make(map[string]bool, len(a.Types))
	for _, t := range a.Types {
		keys[t.Key()] = true
	}
	for _, t := range b.Types {
		if !keys[t.Key()] {
			return false
		}
	}
	return true
}

// Key returns a canonical identity that is equal for set-equal unions.
func (u Union) Key() string {
	if len(u.Types) == 0 {
		return "never"
	}
	keys := make([]string, len(u.Types))
	for i, a := range u.Types {
		keys[i] = a.Key()
	}
	sort.Strings(keys)
	return strings.Join(keys, "|")
}

func (u Union) String() string {
	var b strings.Builder
	u.write(&b, false)
	return b.String()
}

func (u Union) write(b *strings.Builder, key bool) {
	if key {
		b.WriteString(u.Key())
		return
	}
	if len(u.Types) == 0 {
		b.WriteString("never")
		return
	}
	for i, a := range u.Types {
		if i > 0 {
			b.WriteByte('|')
		}
		a.write(b, key)
	}
}
