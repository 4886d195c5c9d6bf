// Copyright © 2024 The Mago authors

// Package ttype implements the type system: atomic and union types, the
// combiner that canonicalizes unions, containment comparison, expansion of
// derived types, and template substitution.
//
// Types are values.  A Union or Atomic is never modified after it is built;
// operations return new values that may share slices with their inputs.
package ttype

import (
	"strconv"
	"strings"
)

// Kind identifies the variant of an Atomic.
type Kind uint8

const (
	KMixed Kind = iota
	KNever
	KNull
	KVoid
	KBool
	KTrue
	KFalse
	KInt
	KFloat
	KString
	KClassString
	KArrayKey
	KScalar
	KNumeric
	KResource
	KArray
	KList
	KKeyedArray
	KIterable
	KObject
	KNamed
	KEnumCase
	KCallable
	KClosure
	KTemplate
	KKeyOf
	KValueOf
	KPropertiesOf
)

// Atomic is a single type that is not further decomposed by unions.  Which
// fields are meaningful depends on Kind:
//
//	KInt          Literal/Int, or a Min/Max range
//	KFloat        Literal/Float
//	KString       Literal/Str, NonEmpty, Numeric
//	KClassString  Name of the class, or Bound for class-string<T>
//	KArray        Params [key, value], NonEmpty
//	KList         Params [value], NonEmpty
//	KKeyedArray   Entries, Sealed, List
//	KIterable     Params [key, value]
//	KNamed        Name, Params (generic arguments), This
//	KEnumCase     Name of the enum, Str is the case
//	KCallable     Signature (optional)
//	KClosure      Signature (optional)
//	KTemplate     Name, Defining, Bound
//	KKeyOf, KValueOf, KPropertiesOf  Params [target]
type Atomic struct {
	Kind      Kind
	Literal   bool
	Int       int64
	Float     float64
	Str       string
	Min, Max  *int64
	NonEmpty  bool
	Numeric   bool
	Name      string
	Params    []Union
	Entries   []Entry
	Sealed    bool
	List      bool
	This      bool
	Signature *Signature
	Defining  string
	Bound     *Union
}

// Entry is one known key of a keyed array.
type Entry struct {
	Key      ArrayKey
	Type     Union
	Optional bool
}

// ArrayKey is an int or string array key.
type ArrayKey struct {
	IsInt bool
	Int   int64
	Str   string
}

// IntKey returns an integer array key.
func IntKey(i int64) ArrayKey {
	return ArrayKey{IsInt: true, Int: i}
}

// StringKey returns a string array key.  Decimal integer strings become
// integer keys as they do at runtime.
func StringKey(s string) ArrayKey {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil && strconv.FormatInt(i, 10) == s {
		return IntKey(i)
	}
	return ArrayKey{Str: s}
}

func (k ArrayKey) String() string {
	if k.IsInt {
		return strconv.FormatInt(k.Int, 10)
	}
	return k.Str
}

// Atomic returns the literal type of the key.
func (k ArrayKey) Atomic() Atomic {
	if k.IsInt {
		return IntLit(k.Int)
	}
	return StringLit(k.Str)
}

func (k ArrayKey) quoted() string {
	if k.IsInt {
		return strconv.FormatInt(k.Int, 10)
	}
	if isIdent(k.Str) {
		return k.Str
	}
	return "'" + k.Str + "'"
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (i > 0 && c >= '0' && c <= '9') {
			continue
		}
		return false
	}
	return true
}

// Atomic constructors.

func MixedAtomic() Atomic { return Atomic{Kind: KMixed} }
func NullAtomic() Atomic  { return Atomic{Kind: KNull} }
func VoidAtomic() Atomic  { return Atomic{Kind: KVoid} }
func BoolAtomic() Atomic  { return Atomic{Kind: KBool} }
func TrueAtomic() Atomic  { return Atomic{Kind: KTrue} }
func FalseAtomic() Atomic { return Atomic{Kind: KFalse} }
func IntAtomic() Atomic   { return Atomic{Kind: KInt} }
func FloatAtomic() Atomic { return Atomic{Kind: KFloat} }

// StringAtomic returns the general string type.
func StringAtomic() Atomic { return Atomic{Kind: KString} }

// IntLit returns the literal integer type.
func IntLit(v int64) Atomic { return Atomic{Kind: KInt, Literal: true, Int: v} }

// IntRange returns an integer range type; nil bounds are unbounded.
func IntRange(min, max *int64) Atomic { return Atomic{Kind: KInt, Min: min, Max: max} }

// FloatLit returns the literal float type.
func FloatLit(v float64) Atomic { return Atomic{Kind: KFloat, Literal: true, Float: v} }

// StringLit returns the literal string type.
func StringLit(s string) Atomic {
	return Atomic{Kind: KString, Literal: true, Str: s, NonEmpty: s != ""}
}

// NonEmptyString returns non-empty-string.
func NonEmptyString() Atomic { return Atomic{Kind: KString, NonEmpty: true} }

// NumericString returns numeric-string.
func NumericString() Atomic { return Atomic{Kind: KString, Numeric: true, NonEmpty: true} }

// ClassString returns class-string<name>, or class-string when name is empty.
func ClassString(name string) Atomic { return Atomic{Kind: KClassString, Name: name} }

// ArrayOf returns array<key, value>.
func ArrayOf(key, value Union) Atomic {
	return Atomic{Kind: KArray, Params: []Union{key, value}}
}

// ListOf returns list<value>.
func ListOf(value Union) Atomic {
	return Atomic{Kind: KList, Params: []Union{value}}
}

// Keyed returns a keyed array with the given entries.
func Keyed(sealed bool, entries ...Entry) Atomic {
	list := true
	for i, e := range entries {
		if !e.Key.IsInt || e.Key.Int != int64(i) || e.Optional {
			list = false
		}
	}
	return Atomic{Kind: KKeyedArray, Entries: entries, Sealed: sealed, List: list && sealed}
}

// EmptyArray returns the type of [].
func EmptyArray() Atomic { return Keyed(true) }

// IterableOf returns iterable<key, value>.
func IterableOf(key, value Union) Atomic {
	return Atomic{Kind: KIterable, Params: []Union{key, value}}
}

// ObjectAtomic returns the type of any object.
func ObjectAtomic() Atomic { return Atomic{Kind: KObject} }

// Named returns the object type of class name with optional generic
// arguments.
func Named(name string, params ...Union) Atomic {
	return Atomic{Kind: KNamed, Name: name, Params: params}
}

// EnumCase returns the type of a single enum case.
func EnumCase(enum, name string) Atomic {
	return Atomic{Kind: KEnumCase, Name: enum, Str: name}
}

// CallableAtomic returns callable with an optional signature.
func CallableAtomic(sig *Signature) Atomic { return Atomic{Kind: KCallable, Signature: sig} }

// ClosureAtomic returns Closure with an optional signature.
func ClosureAtomic(sig *Signature) Atomic { return Atomic{Kind: KClosure, Signature: sig} }

// Template returns a generic parameter declared by defining.
func Template(name, defining string, bound Union) Atomic {
	return Atomic{Kind: KTemplate, Name: name, Defining: defining, Bound: &bound}
}

// IsLiteral reports whether a is a literal scalar.
func (a Atomic) IsLiteral() bool {
	switch a.Kind {
	case KTrue, KFalse:
		return true
	case KInt, KFloat, KString:
		return a.Literal
	}
	return false
}

// IsArray reports whether a is any array variant.
func (a Atomic) IsArray() bool {
	return a.Kind == KArray || a.Kind == KList || a.Kind == KKeyedArray
}

// IsObject reports whether a is any object variant.
func (a Atomic) IsObject() bool {
	switch a.Kind {
	case KObject, KNamed, KEnumCase, KClosure:
		return true
	}
	return false
}

// IsScalar reports whether a is a scalar variant.
func (a Atomic) IsScalar() bool {
	switch a.Kind {
	case KBool, KTrue, KFalse, KInt, KFloat, KString, KClassString, KArrayKey, KScalar, KNumeric:
		return true
	}
	return false
}

// Key returns a canonical identity used for deduplication.  Class names are
// case-insensitive.
func (a Atomic) Key() string {
	var b strings.Builder
	a.write(&b, true)
	return b.String()
}

func (a Atomic) String() string {
	var b strings.Builder
	a.write(&b, false)
	return b.String()
}

func writeName(b *strings.Builder, name string, key bool) {
	if key {
		b.WriteString(strings.ToLower(name))
		return
	}
	b.WriteString(name)
}

func (a Atomic) write(b *strings.Builder, key bool) {
	switch a.Kind {
	case KMixed:
		b.WriteString("mixed")
	case KNever:
		b.WriteString("never")
	case KNull:
		b.WriteString("null")
	case KVoid:
		b.WriteString("void")
	case KBool:
		b.WriteString("bool")
	case KTrue:
		b.WriteString("true")
	case KFalse:
		b.WriteString("false")
	case KInt:
		a.writeInt(b)
	case KFloat:
		if a.Literal {
			b.WriteString("float(")
			b.WriteString(strconv.FormatFloat(a.Float, 'g', -1, 64))
			b.WriteByte(')')
			return
		}
		b.WriteString("float")
	case KString:
		switch {
		case a.Literal:
			b.WriteString("string('")
			b.WriteString(a.Str)
			b.WriteString("')")
		case a.Numeric:
			b.WriteString("numeric-string")
		case a.NonEmpty:
			b.WriteString("non-empty-string")
		default:
			b.WriteString("string")
		}
	case KClassString:
		b.WriteString("class-string")
		switch {
		case a.Bound != nil:
			b.WriteByte('<')
			a.Bound.write(b, key)
			b.WriteByte('>')
		case a.Name != "":
			b.WriteByte('<')
			writeName(b, a.Name, key)
			b.WriteByte('>')
		}
	case KArrayKey:
		b.WriteString("array-key")
	case KScalar:
		b.WriteString("scalar")
	case KNumeric:
		b.WriteString("numeric")
	case KResource:
		b.WriteString("resource")
	case KArray:
		if a.NonEmpty {
			b.WriteString("non-empty-")
		}
		b.WriteString("array")
		writeParams(b, a.Params, key)
	case KList:
		if a.NonEmpty {
			b.WriteString("non-empty-")
		}
		b.WriteString("list")
		writeParams(b, a.Params, key)
	case KKeyedArray:
		a.writeKeyed(b, key)
	case KIterable:
		b.WriteString("iterable")
		writeParams(b, a.Params, key)
	case KObject:
		b.WriteString("object")
	case KNamed:
		if a.This {
			b.WriteString("static<")
			writeName(b, a.Name, key)
			b.WriteByte('>')
		} else {
			writeName(b, a.Name, key)
		}
		writeParams(b, a.Params, key)
	case KEnumCase:
		b.WriteString("enum(")
		writeName(b, a.Name, key)
		b.WriteString("::")
		b.WriteString(a.Str)
		b.WriteByte(')')
	case KCallable, KClosure:
		if a.Kind == KCallable {
			b.WriteString("callable")
		} else {
			b.WriteString("Closure")
		}
		if a.Signature != nil {
			a.Signature.write(b, key)
		}
	case KTemplate:
		b.WriteString(a.Name)
		if key {
			b.WriteByte(':')
			b.WriteString(strings.ToLower(a.Defining))
		}
	case KKeyOf:
		b.WriteString("key-of")
		writeParams(b, a.Params, key)
	case KValueOf:
		b.WriteString("value-of")
		writeParams(b, a.Params, key)
	case KPropertiesOf:
		b.WriteString("properties-of")
		writeParams(b, a.Params, key)
	}
}

func (a Atomic) writeInt(b *strings.Builder) {
	switch {
	case a.Literal:
		b.WriteString("int(")
		b.WriteString(strconv.FormatInt(a.Int, 10))
		b.WriteByte(')')
	case a.Min == nil && a.Max == nil:
		b.WriteString("int")
	case a.Max == nil && *a.Min == 1:
		b.WriteString("positive-int")
	case a.Max == nil && *a.Min == 0:
		b.WriteString("non-negative-int")
	case a.Min == nil && *a.Max == -1:
		b.WriteString("negative-int")
	default:
		b.WriteString("int<")
		if a.Min == nil {
			b.WriteString("min")
		} else {
			b.WriteString(strconv.FormatInt(*a.Min, 10))
		}
		b.WriteString(", ")
		if a.Max == nil {
			b.WriteString("max")
		} else {
			b.WriteString(strconv.FormatInt(*a.Max, 10))
		}
		b.WriteByte('>')
	}
}

func (a Atomic) writeKeyed(b *strings.Builder, key bool) {
	if len(a.Entries) == 0 && a.Sealed {
		b.WriteString("array<never, never>")
		return
	}
	if a.List {
		b.WriteString("list{")
	} else {
		b.WriteString("array{")
	}
	for i, e := range a.Entries {
		if i > 0 {
			b.WriteString(", ")
		}
		if !a.List {
			b.WriteString(e.Key.quoted())
			if e.Optional {
				b.WriteByte('?')
			}
			b.WriteString(": ")
		}
		e.Type.write(b, key)
	}
	if !a.Sealed {
		if len(a.Entries) > 0 {
			b.WriteString(", ")
		}
		b.WriteString("...")
	}
	b.WriteByte('}')
}

func writeParams(b *strings.Builder, params []Union, key bool) {
	if len(params) == 0 {
		return
	}
	b.WriteByte('<')
	for i, p := range params {
		if i > 0 {
			b.WriteString(", ")
		}
		p.write(b, key)
	}
	b.WriteByte('>')
}

// ArrayParams returns the key and value types of any array variant.
func (a Atomic) ArrayParams() (key, value Union) {
	switch a.Kind {
	case KArray, KIterable:
		if len(a.Params) == 2 {
			return a.Params[0], a.Params[1]
		}
		return ArrayKeyType(), Mixed()
	case KList:
		if len(a.Params) == 1 {
			return Int(), a.Params[0]
		}
		return Int(), Mixed()
	case KKeyedArray:
		var keys, values []Atomic
		for _, e := range a.Entries {
			keys = append(keys, e.Key.Atomic())
			values = append(values, e.Type.Types...)
		}
		if !a.Sealed {
			keys = append(keys, Atomic{Kind: KArrayKey})
			values = append(values, MixedAtomic())
		}
		return Combine(keys...), Combine(values...)
	}
	return Mixed(), Mixed()
}

// Entry returns the entry for k in a keyed array.
func (a Atomic) Entry(k ArrayKey) (Entry, bool) {
	for _, e := range a.Entries {
		if e.Key == k {
			return e, true
		}
	}
	return Entry{}, false
}
