// Copyright © 2024 The Mago authors

package ttype

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// hierarchy is a map from lowercased class to lowercased supertypes.
type hierarchy map[string][]string

func (h hierarchy) IsSubtype(child, parent string) bool {
	for _, p := range h[strings.ToLower(child)] {
		if p == strings.ToLower(parent) {
			return true
		}
	}
	return false
}

func (h hierarchy) Properties(class string) ([]Entry, bool) {
	if strings.EqualFold(class, "Point") {
		return []Entry{{Key: StringKey("x"), Type: Int()}, {Key: StringKey("y"), Type: Int()}}, true
	}
	return nil, false
}

func (h hierarchy) EnumCases(class string) ([]string, bool) {
	if strings.EqualFold(class, "Suit") {
		return []string{"Hearts", "Spades"}, true
	}
	return nil, false
}

var classes = hierarchy{
	"child":  {"base", "countable"},
	"base":   {"countable"},
	"cursor": {"traversable"},
}

func u(atoms ...Atomic) Union {
	return Combine(atoms...)
}

func TestCombine(t *testing.T) {
	tests := []struct {
		in   Union
		want string
	}{
		{u(IntLit(1), IntLit(2), IntLit(1)), "int(1)|int(2)"},
		{u(IntLit(1), IntAtomic()), "int"},
		{u(TrueAtomic(), FalseAtomic()), "bool"},
		{u(StringLit("a"), NonEmptyString()), "non-empty-string"},
		{u(StringLit(""), NonEmptyString()), "string('')|non-empty-string"},
		{u(IntAtomic(), MixedAtomic(), NullAtomic()), "mixed"},
		{u(Atomic{Kind: KNever}, NullAtomic()), "null"},
		{u(ListOf(Int()), ListOf(String())), "list<int|string>"},
		{u(ListOf(Int()), ArrayOf(String(), Int())), "array<int|string, int>"},
		{u(EmptyArray(), Keyed(true, Entry{Key: StringKey("a"), Type: Int()})), "array{a?: int}"},
		{u(Named("Foo"), Named("foo")), "Foo"},
		{u(Named("Foo"), ObjectAtomic()), "object"},
		{u(Named("Box", Int()), Named("Box", String())), "Box<int|string>"},
	}
	for _, test := range tests {
		assert.Equal(t, test.want, test.in.String())
	}
}

func TestCombineWidensManyLiterals(t *testing.T) {
	var atoms []Atomic
	for i := 0; i <= literalLimit; i++ {
		atoms = append(atoms, IntLit(int64(i)))
	}
	assert.Equal(t, "int", Combine(atoms...).String())
}

func TestNeverAndMixedBounds(t *testing.T) {
	samples := []Union{
		Int(), Null(), u(IntLit(3), StringLit("x")), MixedArray(), Single(Named("Child")),
		Single(Keyed(true, Entry{Key: IntKey(0), Type: Int()})), Never(),
	}
	for _, s := range samples {
		assert.True(t, IsContainedBy(classes, s, Mixed(), nil), "%s in mixed", s)
		assert.True(t, IsContainedBy(classes, Never(), s, nil), "never in %s", s)
	}
}

func TestIsContainedBy(t *testing.T) {
	one := int64(1)
	tests := []struct {
		input, container Union
		want             bool
	}{
		{Single(IntLit(7)), Int(), true},
		{Int(), Single(IntLit(7)), false},
		{Single(IntLit(7)), Single(IntRange(&one, nil)), true},
		{Single(IntLit(0)), Single(IntRange(&one, nil)), false},
		{Int(), Float(), true},
		{Single(StringLit("foo")), Int(), false},
		{Single(StringLit("12")), Single(NumericString()), true},
		{Single(StringLit("")), Single(NonEmptyString()), false},
		{Bool(), u(TrueAtomic(), FalseAtomic(), NullAtomic()), true},
		{Nullable(Int()), Int(), false},
		{Single(Named("Child")), Single(Named("Base")), true},
		{Single(Named("Base")), Single(Named("Child")), false},
		{Single(Named("Child")), Single(Named("Countable")), true},
		{Single(ListOf(Int())), MixedArray(), true},
		{MixedArray(), Single(ListOf(Mixed())), false},
		{Single(Keyed(true, Entry{Key: IntKey(0), Type: Int()})), Single(ListOf(Int())), true},
		{Single(Keyed(true, Entry{Key: StringKey("a"), Type: Int()})),
			Single(Keyed(true, Entry{Key: StringKey("a"), Type: Int()}, Entry{Key: StringKey("b"), Type: Int(), Optional: true})), true},
		{Single(Keyed(true, Entry{Key: StringKey("b"), Type: Int()})),
			Single(Keyed(true, Entry{Key: StringKey("a"), Type: Int()})), false},
		{Single(Named("Cursor")), Single(IterableOf(Mixed(), Mixed())), true},
		{Single(ClosureAtomic(nil)), Single(CallableAtomic(nil)), true},
		{Single(StringLit("strlen")), Single(CallableAtomic(nil)), true},
		{Single(ClassString("Child")), Single(ClassString("Base")), true},
		{Single(ClassString("Base")), String(), true},
		{Single(EnumCase("Suit", "Hearts")), Single(Named("Suit")), true},
	}
	for _, test := range tests {
		got := IsContainedBy(classes, test.input, test.container, nil)
		assert.Equal(t, test.want, got, "%s in %s", test.input, test.container)
	}
}

func TestCoercion(t *testing.T) {
	var res ComparisonResult
	assert.False(t, IsContainedBy(classes, Mixed(), Int(), &res))
	assert.True(t, res.CoercedFromMixed)

	res = ComparisonResult{}
	assert.False(t, IsContainedBy(classes, Single(Named("Base")), Single(Named("Child")), &res))
	assert.True(t, res.Coerced)

	assert.True(t, CanBeContainedBy(classes, Nullable(Int()), Int()))
	assert.False(t, CanBeContainedBy(classes, String(), Int()))
}

func TestIgnoreFalsable(t *testing.T) {
	in := u(StringAtomic(), FalseAtomic())
	assert.False(t, IsContainedBy(classes, in, String(), nil))
	in.IgnoreFalsable = true
	assert.True(t, IsContainedBy(classes, in, String(), nil))
}

func TestTemplates(t *testing.T) {
	tpl := Template("T", "fn", Mixed())
	container := Single(ListOf(Single(tpl)))
	result := &ComparisonResult{Templates: NewTemplateResult(nil)}
	require.True(t, IsContainedBy(classes, Single(ListOf(Int())), container, result))
	inferred, ok := result.Templates.Inferred("T")
	require.True(t, ok)
	assert.Equal(t, "int", inferred.String())

	ret := Substitute(Nullable(Single(tpl)), result.Templates)
	assert.Equal(t, "int|null", ret.String())

	unresolved := Substitute(Single(Template("U", "fn", String())), NewTemplateResult(nil))
	assert.Equal(t, "string", unresolved.String())
}

func TestExpand(t *testing.T) {
	opts := ExpansionOptions{Self: "Child", Static: "Child", Parent: "Base"}
	in := u(Named("self"), Named("parent"), ClassString("static"))
	out := Expand(classes, in, opts)
	assert.Equal(t, "Child|Base|class-string<Child>", out.String())
	assert.True(t, Equal(out, Expand(classes, out, opts)), "expansion is idempotent")

	shape := Single(Keyed(true, Entry{Key: StringKey("a"), Type: Int()}, Entry{Key: StringKey("b"), Type: String()}))
	keys := Expand(classes, Single(Atomic{Kind: KKeyOf, Params: []Union{shape}}), opts)
	assert.Equal(t, "string('a')|string('b')", keys.String())
	values := Expand(classes, Single(Atomic{Kind: KValueOf, Params: []Union{shape}}), opts)
	assert.Equal(t, "int|string", values.String())

	cases := Expand(classes, Single(Atomic{Kind: KValueOf, Params: []Union{Single(Named("Suit"))}}), opts)
	assert.Equal(t, "enum(Suit::Hearts)|enum(Suit::Spades)", cases.String())

	props := Expand(classes, Single(Atomic{Kind: KPropertiesOf, Params: []Union{Single(Named("Point"))}}), opts)
	assert.Equal(t, "array{x: int, y: int}", props.String())
	assert.True(t, Equal(props, Expand(classes, props, opts)))
}

func TestStatic(t *testing.T) {
	out := Expand(classes, Single(Named("static")), ExpansionOptions{Self: "Base", Static: "Child"})
	require.True(t, out.IsSingle())
	assert.True(t, out.Types[0].This)
	assert.Equal(t, "static<Child>", out.String())
}

func TestTruthiness(t *testing.T) {
	assert.Equal(t, AlwaysFalsy, Null().Truthiness())
	assert.Equal(t, AlwaysTruthy, Single(Named("Foo")).Truthiness())
	assert.Equal(t, MaybeTruthy, Int().Truthiness())
	assert.Equal(t, AlwaysFalsy, u(IntLit(0), StringLit(""), FalseAtomic()).Truthiness())
	assert.Equal(t, AlwaysFalsy, Single(EmptyArray()).Truthiness())
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal(u(IntAtomic(), StringAtomic()), u(StringAtomic(), IntAtomic())))
	assert.False(t, Equal(Int(), String()))
	assert.Equal(t, u(IntAtomic(), StringAtomic()).Key(), u(StringAtomic(), IntAtomic()).Key())
}

func TestStringKey(t *testing.T) {
	assert.Equal(t, IntKey(12), StringKey("12"))
	assert.Equal(t, ArrayKey{Str: "012"}, StringKey("012"))
}
