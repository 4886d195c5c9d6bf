// Copyright © 2024 The Mago authors

package names

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magophp/mago/interner"
	"github.com/magophp/mago/parser"
)

// resolveAll resolves src and returns the resolved name of the first
// occurrence of each probe.
func resolveAll(t *testing.T, src string, probes ...string) map[string]string {
	t.Helper()
	prog, _, err := parser.ParseString("test.php", src)
	require.NoError(t, err)
	n := Resolve(interner.New(), prog)
	out := make(map[string]string)
	for _, probe := range probes {
		off := strings.Index(src, probe)
		require.GreaterOrEqual(t, off, 0, probe)
		name, ok := n.Lookup(uint32(off))
		require.True(t, ok, "no name at %q", probe)
		out[probe] = name
	}
	return out
}

func TestResolveNamespaced(t *testing.T) {
	src := `<?php
namespace App\Model;
use Lib\Base as Parent_;
use function Lib\helper;
use const Lib\LIMIT;
class User extends Parent_ implements \Countable {}
helper();
strlen('x');
echo LIMIT . 1;
new Sub\Thing();
`
	got := resolveAll(t, src, "User", "Parent_ implements", `\Countable`, "helper()", "LIMIT .", `Sub\Thing`)
	want := map[string]string{
		"User":               `App\Model\User`,
		"Parent_ implements": `Lib\Base`,
		`\Countable`:         "Countable",
		"helper()":           `Lib\helper`,
		"LIMIT .":            `Lib\LIMIT`,
		`Sub\Thing`:          `App\Model\Sub\Thing`,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("resolved names (-want +got):\n%s", diff)
	}
}

func TestFunctionFallback(t *testing.T) {
	src := "<?php namespace App; strlen('x');"
	prog, _, err := parser.ParseString("test.php", src)
	require.NoError(t, err)
	n := Resolve(interner.New(), prog)
	off := uint32(strings.Index(src, "strlen"))
	name, _ := n.Lookup(off)
	assert.Equal(t, `App\strlen`, name)
	fallback, ok := n.Fallback(off)
	require.True(t, ok)
	assert.Equal(t, "strlen", fallback)
	kind, _ := n.Kind(off)
	assert.Equal(t, KindFunction, kind)
}

func TestGlobalNamespace(t *testing.T) {
	got := resolveAll(t, "<?php function f(Foo $x): self { return FOO; }", "f(", "Foo", "self", "FOO")
	assert.Equal(t, "f", got["f("])
	assert.Equal(t, "Foo", got["Foo"])
	assert.Equal(t, "self", got["self"])
	assert.Equal(t, "FOO", got["FOO"])
}

func TestBracedNamespacesReset(t *testing.T) {
	src := `<?php
namespace A { use X\Y; new Y; }
namespace { new Y; }
`
	prog, _, err := parser.ParseString("test.php", src)
	require.NoError(t, err)
	n := Resolve(interner.New(), prog)
	first := uint32(strings.Index(src, "new Y") + 4)
	second := uint32(strings.LastIndex(src, "new Y") + 4)
	a, _ := n.Lookup(first)
	b, _ := n.Lookup(second)
	assert.Equal(t, `X\Y`, a)
	assert.True(t, n.IsImported(first))
	assert.Equal(t, "Y", b)
}

func TestGroupUse(t *testing.T) {
	got := resolveAll(t, `<?php use Vendor\Pkg\{Alpha, Beta as B}; new Alpha; new B;`, "Alpha;", "B;")
	assert.Equal(t, `Vendor\Pkg\Alpha`, got["Alpha;"])
	assert.Equal(t, `Vendor\Pkg\Beta`, got["B;"])
}

func TestHelpers(t *testing.T) {
	assert.Equal(t, `A\B`, Qualify("A", "B"))
	assert.Equal(t, "B", Qualify("", "B"))
	assert.Equal(t, "C", Short(`A\B\C`))
	assert.Equal(t, `A\B`, Namespace(`A\B\C`))
	assert.True(t, IsBuiltinType("Int"))
}

func TestResolveAt(t *testing.T) {
	src := `<?php
namespace App;
use Lib\Collection;
use Lib\Models as M;
/** @return Collection<M\User> */
function users() {}
namespace Other;
/** @var Collection */
`
	prog, _, err := parser.ParseString("test.php", src)
	require.NoError(t, err)
	n := Resolve(interner.New(), prog)

	first := uint32(strings.Index(src, "@return"))
	assert.Equal(t, `Lib\Collection`, n.ResolveAt(first, "Collection", KindClass))
	assert.Equal(t, `Lib\Models\User`, n.ResolveAt(first, `M\User`, KindClass))
	assert.Equal(t, `App\Thing`, n.ResolveAt(first, "Thing", KindClass))
	assert.Equal(t, "Thing", n.ResolveAt(first, `\Thing`, KindClass))
	assert.Equal(t, "self", n.ResolveAt(first, "self", KindClass))

	second := uint32(strings.Index(src, "@var"))
	assert.Equal(t, `Other\Collection`, n.ResolveAt(second, "Collection", KindClass))
	assert.Equal(t, "Before", n.ResolveAt(0, "Before", KindClass))
}
