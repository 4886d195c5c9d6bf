// Copyright © 2024 The Mago authors

package reconciler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/magophp/mago/ttype"
)

type hierarchy map[string][]string

func (h hierarchy) IsSubtype(child, parent string) bool {
	for _, p := range h[strings.ToLower(child)] {
		if p == strings.ToLower(parent) {
			return true
		}
	}
	return false
}

func (h hierarchy) IsInterface(name string) bool {
	return strings.EqualFold(name, "Countable")
}

var classes = hierarchy{
	"child": {"base"},
}

func TestReconcileIsType(t *testing.T) {
	tests := []struct {
		name     string
		existing ttype.Union
		assert   Assertion
		want     string
		never    bool
	}{
		{"mixed to int", ttype.Mixed(), Is(ttype.Int()), "int", false},
		{"nullable to string", ttype.Nullable(ttype.String()), Is(ttype.String()), "string", false},
		{"literal kept", ttype.Single(ttype.IntLit(3)), Is(ttype.Int()), "int(3)", false},
		{"array-key to int", ttype.ArrayKeyType(), Is(ttype.Int()), "int", false},
		{"bool to true", ttype.Bool(), Is(ttype.True()), "true", false},
		{"parent to child", ttype.Single(ttype.Named("Base")), Is(ttype.Single(ttype.Named("Child"))), "Child", false},
		{"child stays child", ttype.Single(ttype.Named("Child")), Is(ttype.Single(ttype.Named("Base"))), "Child", false},
		{"interface on class", ttype.Single(ttype.Named("Base")), Is(ttype.Single(ttype.Named("Countable"))), "Countable", false},
		{"string to numeric", ttype.String(), Is(ttype.Single(ttype.Atomic{Kind: ttype.KNumeric})), "numeric-string", false},
		{"int is never string", ttype.Int(), Is(ttype.String()), "never", true},
		{"null removed", ttype.Nullable(ttype.Int()), IsNot(ttype.Null()), "int", false},
		{"bool minus false", ttype.Bool(), IsNot(ttype.False()), "true", false},
		{"array-key minus string", ttype.ArrayKeyType(), IsNot(ttype.String()), "int", false},
		{"only null removed", ttype.Null(), IsNot(ttype.Null()), "never", true},
		{"mixed minus null", ttype.Mixed(), IsNot(ttype.Null()), "mixed", false},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			res := Reconcile(classes, test.assert, test.existing, false)
			assert.Equal(t, test.want, res.Type.String())
			assert.Equal(t, test.never, res.NeverMatches)
		})
	}
}

func TestReconcileTruthiness(t *testing.T) {
	res := Reconcile(classes, Assertion{Kind: Truthy}, ttype.Combine(ttype.StringAtomic(), ttype.NullAtomic(), ttype.FalseAtomic()), false)
	assert.Equal(t, "non-empty-string", res.Type.String())

	res = Reconcile(classes, Assertion{Kind: Falsy}, ttype.Combine(ttype.Named("Base"), ttype.NullAtomic()), false)
	assert.Equal(t, "null", res.Type.String())

	res = Reconcile(classes, Assertion{Kind: Falsy}, ttype.Int(), false)
	assert.Equal(t, "int(0)", res.Type.String())

	res = Reconcile(classes, Assertion{Kind: Truthy}, ttype.Null(), false)
	assert.True(t, res.Type.IsNever())
	assert.True(t, res.NeverMatches)
}

func TestReconcileEquality(t *testing.T) {
	res := Reconcile(classes, Equals(ttype.Single(ttype.StringLit("a"))), ttype.String(), false)
	assert.Equal(t, "string('a')", res.Type.String())

	// Equality never reports, even when impossible.
	res = Reconcile(classes, Equals(ttype.Single(ttype.StringLit("a"))), ttype.Int(), false)
	assert.True(t, res.Type.IsNever())
	assert.False(t, res.NeverMatches)

	res = Reconcile(classes, Equals(ttype.Single(ttype.IntLit(1))).Negate(), ttype.Combine(ttype.IntLit(1), ttype.IntLit(2)), false)
	assert.Equal(t, "int(2)", res.Type.String())
}

func TestReconcileIsset(t *testing.T) {
	u := ttype.Nullable(ttype.Int())
	u.PossiblyUndefined = true
	res := Reconcile(classes, Assertion{Kind: IsIsset}, u, false)
	assert.Equal(t, "int", res.Type.String())
	assert.False(t, res.Type.PossiblyUndefined)

	res = Reconcile(classes, Assertion{Kind: IsNotIsset}, ttype.Int(), true)
	assert.True(t, res.Type.IsNever())
	assert.False(t, res.NeverMatches)

	res = Reconcile(classes, Is(ttype.String()), ttype.Int(), true)
	assert.False(t, res.NeverMatches)
}

func TestReconcileArrayKey(t *testing.T) {
	shape := ttype.Single(ttype.Keyed(true,
		ttype.Entry{Key: ttype.StringKey("x"), Type: ttype.Int(), Optional: true},
	))
	res := Reconcile(classes, HasKey(ttype.StringKey("x")), shape, false)
	assert.Equal(t, "array{x: int}", res.Type.String())

	res = Reconcile(classes, HasKey(ttype.StringKey("y")), shape, false)
	assert.True(t, res.NeverMatches)

	res = Reconcile(classes, HasKey(ttype.StringKey("x")), ttype.MixedArray(), false)
	assert.True(t, res.Type.Types[0].NonEmpty)
}

func TestReconcileAll(t *testing.T) {
	res := ReconcileAll(classes, []Assertion{{Kind: IsIsset}, Is(ttype.Int())}, ttype.Mixed(), false)
	assert.Equal(t, "int", res.Type.String())
	assert.False(t, res.NeverMatches)
}

func TestNegate(t *testing.T) {
	assert.Equal(t, IsNotType, Is(ttype.Int()).Negate().Kind)
	assert.Equal(t, Truthy, Assertion{Kind: Falsy}.Negate().Kind)
	assert.Equal(t, Any, HasKey(ttype.IntKey(0)).Negate().Kind)
	assert.Equal(t, "is int", Is(ttype.Int()).String())
}
