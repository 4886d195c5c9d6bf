// Copyright © 2024 The Mago authors

// Package reconciler narrows types by assertions.  An assertion is a fact
// learned from a condition, such as is_int($x) being true; reconciling it
// with the existing type of $x yields the type $x has where the fact holds.
package reconciler

import (
	"github.com/magophp/mago/ttype"
)

// Kind identifies an assertion.
type Kind uint8

const (
	// Any asserts nothing.
	Any Kind = iota
	IsType
	IsNotType
	Truthy
	Falsy
	// IsEqual and IsNotEqual compare strictly against a literal.
	IsEqual
	IsNotEqual
	// IsIsset holds when the value exists and is not null.
	IsIsset
	IsNotIsset
	// HasArrayKey holds when the array has Key.
	HasArrayKey
	// NonEmpty holds for non-empty arrays and strings.
	NonEmpty
)

var kindNames = [...]string{
	Any:         "any",
	IsType:      "is",
	IsNotType:   "is-not",
	Truthy:      "truthy",
	Falsy:       "falsy",
	IsEqual:     "=",
	IsNotEqual:  "!=",
	IsIsset:     "isset",
	IsNotIsset:  "!isset",
	HasArrayKey: "has-key",
	NonEmpty:    "non-empty",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Assertion is one fact about a value.  Type is meaningful for IsType,
// IsNotType, IsEqual, and IsNotEqual; Key for HasArrayKey.
type Assertion struct {
	Kind Kind
	Type ttype.Union
	Key  ttype.ArrayKey
}

func Is(t ttype.Union) Assertion    { return Assertion{Kind: IsType, Type: t} }
func IsNot(t ttype.Union) Assertion { return Assertion{Kind: IsNotType, Type: t} }
func Equals(t ttype.Union) Assertion {
	return Assertion{Kind: IsEqual, Type: t}
}
func HasKey(k ttype.ArrayKey) Assertion { return Assertion{Kind: HasArrayKey, Key: k} }

// Negate returns the assertion that holds when a does not.  Assertions
// without an exact negation negate to Any.
func (a Assertion) Negate() Assertion {
	switch a.Kind {
	case IsType:
		return Assertion{Kind: IsNotType, Type: a.Type}
	case IsNotType:
		return Assertion{Kind: IsType, Type: a.Type}
	case Truthy:
		return Assertion{Kind: Falsy}
	case Falsy:
		return Assertion{Kind: Truthy}
	case IsEqual:
		return Assertion{Kind: IsNotEqual, Type: a.Type}
	case IsNotEqual:
		return Assertion{Kind: IsEqual, Type: a.Type}
	case IsIsset:
		return Assertion{Kind: IsNotIsset}
	case IsNotIsset:
		return Assertion{Kind: IsIsset}
	}
	return Assertion{Kind: Any}
}

func (a Assertion) String() string {
	switch a.Kind {
	case IsType, IsNotType, IsEqual, IsNotEqual:
		return a.Kind.String() + " " + a.Type.String()
	case HasArrayKey:
		return a.Kind.String() + " " + a.Key.String()
	}
	return a.Kind.String()
}

// Result is the outcome of reconciling one assertion.
type Result struct {
	Type ttype.Union
	// NeverMatches is set when a type assertion can never hold for the
	// existing type.  Equality and isset checks never set it.
	NeverMatches bool
}

// Interfaces is implemented by hierarchies that know which class-likes
// are interfaces.  Asserting an interface on an unrelated class keeps the
// interface, since a subclass may implement it.
type Interfaces interface {
	IsInterface(name string) bool
}

// Reconcile narrows existing by a.  insideIsset suppresses NeverMatches.
func Reconcile(h ttype.Hierarchy, a Assertion, existing ttype.Union, insideIsset bool) Result {
	var out ttype.Union
	switch a.Kind {
	case Any:
		return Result{Type: existing}
	case IsType:
		out = intersect(h, existing, a.Type)
	case IsNotType:
		out = subtract(h, existing, a.Type)
	case Truthy:
		out = existing.Map(truthy)
	case Falsy:
		out = existing.Map(falsy)
	case IsEqual:
		out = intersect(h, existing, a.Type)
	case IsNotEqual:
		out = subtractLiteral(existing, a.Type)
	case IsIsset:
		out = existing.Filter(func(at ttype.Atomic) bool {
			return at.Kind != ttype.KNull && at.Kind != ttype.KVoid
		}).Defined()
	case IsNotIsset:
		switch {
		case existing.IsMixed(), existing.IsNullable():
			out = ttype.Null()
		}
	case HasArrayKey:
		out = existing.Map(func(at ttype.Atomic) ttype.Union { return hasKey(at, a.Key) })
	case NonEmpty:
		out = existing.Map(nonEmpty)
	}
	out.IgnoreFalsable = existing.IgnoreFalsable
	if a.Kind != IsIsset {
		out.PossiblyUndefined = existing.PossiblyUndefined
	}
	res := Result{Type: out}
	if out.IsNever() && !existing.IsNever() && !insideIsset {
		switch a.Kind {
		case IsEqual, IsNotEqual, IsIsset, IsNotIsset:
		default:
			res.NeverMatches = true
		}
	}
	return res
}

// ReconcileAll applies every assertion in order.  It reports whether any
// of them could never match.
func ReconcileAll(h ttype.Hierarchy, as []Assertion, existing ttype.Union, insideIsset bool) Result {
	res := Result{Type: existing}
	for _, a := range as {
		r := Reconcile(h, a, res.Type, insideIsset)
		res.Type = r.Type
		res.NeverMatches = res.NeverMatches || r.NeverMatches
	}
	return res
}

func single(a ttype.Atomic) ttype.Union { return ttype.Single(a) }

func contains(h ttype.Hierarchy, a, c ttype.Atomic) bool {
	return ttype.IsContainedBy(h, single(a), single(c), nil)
}

func intersect(h ttype.Hierarchy, existing, asserted ttype.Union) ttype.Union {
	if existing.IsMixed() {
		return asserted
	}
	return existing.Map(func(a ttype.Atomic) ttype.Union {
		var atoms []ttype.Atomic
		for _, t := range asserted.Types {
			atoms = append(atoms, intersectAtomic(h, a, t)...)
		}
		return ttype.Combine(atoms...)
	})
}

func intersectAtomic(h ttype.Hierarchy, a, t ttype.Atomic) []ttype.Atomic {
	switch {
	case contains(h, a, t):
		return []ttype.Atomic{a}
	case contains(h, t, a):
		return []ttype.Atomic{t}
	}
	switch a.Kind {
	case ttype.KTemplate:
		if a.Bound != nil && ttype.CanBeContainedBy(h, *a.Bound, single(t)) {
			return []ttype.Atomic{t}
		}
	case ttype.KIterable:
		if t.IsArray() {
			k, v := a.ArrayParams()
			return []ttype.Atomic{ttype.ArrayOf(k, v)}
		}
		if t.IsObject() {
			return []ttype.Atomic{t}
		}
	case ttype.KString:
		switch t.Kind {
		case ttype.KNumeric:
			return []ttype.Atomic{ttype.NumericString()}
		case ttype.KCallable:
			return []ttype.Atomic{a}
		}
	case ttype.KArray, ttype.KList, ttype.KKeyedArray:
		if t.Kind == ttype.KCallable {
			return []ttype.Atomic{a}
		}
	case ttype.KNamed:
		if t.Kind == ttype.KCallable {
			return []ttype.Atomic{a}
		}
		if t.Kind == ttype.KNamed {
			if is, ok := h.(Interfaces); ok && (is.IsInterface(t.Name) || is.IsInterface(a.Name)) {
				return []ttype.Atomic{t}
			}
		}
	case ttype.KArrayKey, ttype.KScalar, ttype.KNumeric:
		if t.Kind == ttype.KArrayKey || t.Kind == ttype.KScalar || t.Kind == ttype.KNumeric {
			return []ttype.Atomic{a}
		}
	}
	return nil
}

func subtract(h ttype.Hierarchy, existing, removed ttype.Union) ttype.Union {
	return existing.Map(func(a ttype.Atomic) ttype.Union {
		switch a.Kind {
		case ttype.KMixed, ttype.KTemplate:
			return single(a)
		case ttype.KBool:
			switch {
			case removed.Has(ttype.KTrue) && removed.Has(ttype.KFalse), removed.Has(ttype.KBool):
				return ttype.Never()
			case removed.Has(ttype.KTrue):
				return ttype.False()
			case removed.Has(ttype.KFalse):
				return ttype.True()
			}
		case ttype.KArrayKey:
			switch {
			case removed.Has(ttype.KInt) && !removed.Has(ttype.KString):
				return ttype.String()
			case removed.Has(ttype.KString) && !removed.Has(ttype.KInt):
				return ttype.Int()
			}
		}
		if ttype.IsContainedBy(h, single(a), removed, nil) {
			return ttype.Never()
		}
		return single(a)
	})
}

func subtractLiteral(existing, lit ttype.Union) ttype.Union {
	if !lit.IsSingle() {
		return existing
	}
	l := lit.Types[0]
	return existing.Map(func(a ttype.Atomic) ttype.Union {
		switch {
		case a.Kind == ttype.KBool && l.Kind == ttype.KTrue:
			return ttype.False()
		case a.Kind == ttype.KBool && l.Kind == ttype.KFalse:
			return ttype.True()
		case a.Kind == l.Kind && a.Literal && l.Literal && a.Key() == l.Key():
			return ttype.Never()
		case a.Kind == l.Kind && (a.Kind == ttype.KNull || a.Kind == ttype.KTrue || a.Kind == ttype.KFalse):
			return ttype.Never()
		}
		return single(a)
	})
}

func truthy(a ttype.Atomic) ttype.Union {
	switch ttype.Single(a).Truthiness() {
	case ttype.AlwaysFalsy:
		return ttype.Never()
	case ttype.AlwaysTruthy:
		return single(a)
	}
	switch a.Kind {
	case ttype.KBool:
		return ttype.True()
	case ttype.KArray, ttype.KList, ttype.KString:
		a.NonEmpty = true
		return single(a)
	}
	return single(a)
}

func falsy(a ttype.Atomic) ttype.Union {
	switch ttype.Single(a).Truthiness() {
	case ttype.AlwaysTruthy:
		return ttype.Never()
	case ttype.AlwaysFalsy:
		return single(a)
	}
	switch a.Kind {
	case ttype.KBool:
		return ttype.False()
	case ttype.KInt:
		return single(ttype.IntLit(0))
	case ttype.KFloat:
		return single(ttype.FloatLit(0))
	case ttype.KString:
		if a.NonEmpty {
			return single(ttype.StringLit("0"))
		}
		return ttype.Combine(ttype.StringLit(""), ttype.StringLit("0"))
	case ttype.KArray, ttype.KList, ttype.KKeyedArray:
		return single(ttype.EmptyArray())
	}
	return single(a)
}

func hasKey(a ttype.Atomic, k ttype.ArrayKey) ttype.Union {
	switch a.Kind {
	case ttype.KKeyedArray:
		entries := make([]ttype.Entry, 0, len(a.Entries)+1)
		found := false
		for _, e := range a.Entries {
			if e.Key == k {
				found = true
				e.Optional = false
				e.Type = e.Type.Defined()
			}
			entries = append(entries, e)
		}
		if !found {
			if a.Sealed {
				return ttype.Never()
			}
			entries = append(entries, ttype.Entry{Key: k, Type: ttype.Mixed()})
		}
		a.Entries = entries
		return single(a)
	case ttype.KArray, ttype.KList:
		a.NonEmpty = true
		return single(a)
	case ttype.KNull, ttype.KVoid, ttype.KBool, ttype.KTrue, ttype.KFalse, ttype.KInt, ttype.KFloat:
		return ttype.Never()
	}
	return single(a)
}

func nonEmpty(a ttype.Atomic) ttype.Union {
	switch a.Kind {
	case ttype.KArray, ttype.KList, ttype.KString:
		if a.Literal {
			if a.Str == "" {
				return ttype.Never()
			}
			return single(a)
		}
		a.NonEmpty = true
		return single(a)
	case ttype.KKeyedArray:
		if a.Sealed && len(a.Entries) == 0 {
			return ttype.Never()
		}
	case ttype.KNull, ttype.KVoid:
		return ttype.Never()
	}
	return single(a)
}
