// Copyright © 2024 The Mago authors

package docblock

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDocblock(t *testing.T) {
	doc := Parse(`/**
 * Maps the values.
 *
 * @template T of object
 * @template-covariant U
 * @param array<int, T> $items the input
 *        spanning two lines
 * @param callable(T): U ...$fn
 * @return list<U>
 * @throws \RuntimeException
 * @deprecated
 * @psalm-pure
 */`)
	assert.Equal(t, "Maps the values.", doc.Summary)

	params := doc.Params()
	require.Len(t, params, 2)
	assert.Equal(t, "items", params[0].Name)
	assert.Equal(t, "array<int, T>", params[0].Type.String())
	assert.Equal(t, "fn", params[1].Name)
	assert.True(t, params[1].Variadic)
	assert.Equal(t, TypeCallable, params[1].Type.Kind)

	ret, ok := doc.Return()
	require.True(t, ok)
	assert.Equal(t, "list<U>", ret.String())

	tpls := doc.Templates()
	require.Len(t, tpls, 2)
	assert.Equal(t, "T", tpls[0].Name)
	assert.Equal(t, "object", tpls[0].Bound.String())
	assert.True(t, tpls[1].Covariant)
	assert.Nil(t, tpls[1].Bound)

	require.Len(t, doc.Throws(), 1)
	assert.True(t, doc.Deprecated())
	assert.True(t, doc.Pure())
	assert.Contains(t, doc.Find("param")[0].Body, "spanning two lines")
}

func TestPrefixedTagsWin(t *testing.T) {
	doc := Parse("/**\n * @return array\n * @psalm-return list<int>\n */")
	ret, ok := doc.Return()
	require.True(t, ok)
	assert.Equal(t, "list<int>", ret.String())
}

func TestVar(t *testing.T) {
	doc := Parse("/** @var int|null $x */")
	v, ok := doc.Var()
	require.True(t, ok)
	assert.Equal(t, "x", v.Name)
	assert.Equal(t, TypeUnion, v.Type.Kind)
}

func TestParseType(t *testing.T) {
	tests := []struct {
		in   string
		want string
		kind TypeKind
	}{
		{"int", "int", TypeName},
		{"?string", "?string", TypeNullable},
		{"int|string|null", "int|string|null", TypeUnion},
		{"A & B", "A&B", TypeIntersection},
		{"Foo[]", "Foo[]", TypeList},
		{`\App\Model`, `\App\Model`, TypeName},
		{"array<array-key, list<int>>", "array<array-key, list<int>>", TypeName},
		{"array{id: int, name?: string}", "array{id: int, name?: string}", TypeShape},
		{"array{int, string}", "array{0: int, 1: string}", TypeShape},
		{"callable(int, string): bool", "callable(int, string): bool", TypeCallable},
		{"Closure(): void", "Closure(): void", TypeCallable},
		{"1|2", "1|2", TypeUnion},
		{"'a'", `"a"`, TypeStringLiteral},
		{"(int|string)[]", "int|string[]", TypeList},
		{"non-empty-string", "non-empty-string", TypeName},
	}
	for _, test := range tests {
		got, err := ParseType(test.in)
		if assert.NoError(t, err, test.in) {
			assert.Equal(t, test.want, got.String(), test.in)
			assert.Equal(t, test.kind, got.Kind, test.in)
		}
	}
}

func TestParseTypeErrors(t *testing.T) {
	for _, in := range []string{"", "array<int", "int|", "{}"} {
		_, err := ParseType(in)
		assert.Error(t, err, in)
	}
}

func TestParseTypeMemoized(t *testing.T) {
	a, err := ParseType("list<int>")
	require.NoError(t, err)
	b, err := ParseType(" list<int> ")
	require.NoError(t, err)
	assert.Same(t, a, b)
}

func TestSplitType(t *testing.T) {
	tests := []struct {
		in, typ, rest string
	}{
		{"int $x", "int", "$x"},
		{"array<int, string> $x desc", "array<int, string>", "$x desc"},
		{"int | string $x", "int | string", "$x"},
		{"callable(int): void $cb", "callable(int): void", "$cb"},
		{"Foo", "Foo", ""},
	}
	for _, test := range tests {
		typ, rest := SplitType(test.in)
		assert.Equal(t, test.typ, typ, test.in)
		assert.Equal(t, test.rest, rest, test.in)
	}
}
