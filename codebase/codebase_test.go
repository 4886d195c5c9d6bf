// Copyright © 2024 The Mago authors

package codebase

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magophp/mago/interner"
	"github.com/magophp/mago/names"
	"github.com/magophp/mago/parser"
	"github.com/magophp/mago/source"
	"github.com/magophp/mago/ttype"
)

// index scans each source as its own file, merges the results, and
// populates the codebase.
func index(t *testing.T, srcs ...string) *Codebase {
	t.Helper()
	in := interner.New()
	db := source.NewDatabase(in)
	cb := New()
	for i, src := range srcs {
		f := db.Add(fmt.Sprintf("file%d.php", i), src, source.UserDefined)
		prog, err := parser.Parse(f)
		require.NoError(t, err)
		cb.Merge(Scan(f, prog, names.Resolve(in, prog)))
	}
	cb.Populate()
	return cb
}

func TestScanDeclarations(t *testing.T) {
	cb := index(t, `<?php
namespace App;

const VERSION = 3;
define('DEBUG', true);

function helper(int $a, string ...$rest): ?string { return null; }

final class User {
    const ROLE = 'admin';
    public static int $count = 0;
    protected $name;

    public function __construct(private readonly int $id) {}
    public function id(): int { return $this->id; }
}
`)
	assert.True(t, cb.Populated())

	v, ok := cb.Constant(`App\VERSION`)
	require.True(t, ok)
	n, ok := v.Type.LiteralInt()
	require.True(t, ok)
	assert.EqualValues(t, 3, n)
	debug, ok := cb.Constant("DEBUG")
	require.True(t, ok)
	assert.True(t, debug.Type.IsTrue())

	f, ok := cb.Function(`app\HELPER`)
	require.True(t, ok)
	assert.Equal(t, `App\helper`, f.Name)
	assert.Equal(t, 1, f.Required())
	assert.True(t, f.Variadic())
	require.NotNil(t, f.ReturnType)
	assert.True(t, f.ReturnType.IsNullable())

	user, ok := cb.ClassLike(`\App\User`)
	require.True(t, ok)
	assert.Equal(t, `App\User`, user.Name)
	assert.True(t, user.Final)
	assert.Contains(t, user.Constants, "ROLE")

	count, ok := cb.Property(`App\User`, "count")
	require.True(t, ok)
	assert.True(t, count.Static)

	name, ok := cb.Property(`App\User`, "name")
	require.True(t, ok)
	assert.Nil(t, name.Type)
	assert.Equal(t, Protected, name.Visibility)

	id, ok := cb.Property(`App\User`, "id")
	require.True(t, ok)
	assert.True(t, id.Promoted)
	assert.True(t, id.Readonly)
	assert.Equal(t, Private, id.Visibility)
	assert.True(t, id.EffectiveType().IsInt())

	m, ok := cb.Method(`App\User`, "ID")
	require.True(t, ok)
	assert.Equal(t, "App\\User::id", m.DisplayName())
	assert.True(t, m.ReturnType.IsInt())
	assert.True(t, user.MethodMembers.Visible["id"])
}

func TestPopulateHierarchy(t *testing.T) {
	cb := index(t, `<?php
interface Shape { public function area(): float; }
interface Named { const PREFIX = 'n'; }
abstract class Base implements Shape, Named {
    protected function describe(): string { return ''; }
    private function secret(): void {}
}
class Square extends Base {
    public function area(): float { return 1.0; }
    protected function describe(): string { return 'square'; }
}
`, `<?php
class Tile extends Square {}
`)
	tile, ok := cb.ClassLike("Tile")
	require.True(t, ok)
	if diff := cmp.Diff([]string{"square", "base"}, tile.AllParents); diff != "" {
		t.Errorf("all parents (-want +got):\n%s", diff)
	}
	assert.ElementsMatch(t, []string{"shape", "named"}, tile.AllInterfaces)
	assert.True(t, cb.IsSubtype("Tile", "Shape"))
	assert.True(t, cb.IsSubtype("tile", "BASE"))
	assert.False(t, cb.IsSubtype("Base", "Square"))
	assert.Equal(t, []string{"tile"}, cb.Descendants("Square"))

	from, ok := tile.MethodMembers.InheritedFrom("tile", "area")
	require.True(t, ok)
	assert.Equal(t, "square", from)
	_, ok = tile.MethodMembers.Appearing["secret"]
	assert.False(t, ok, "private methods are not inherited")
	_, ok = cb.ClassConstant("Tile", "PREFIX")
	assert.True(t, ok)

	base, _ := cb.ClassLike("Base")
	assert.Equal(t, []string{"square"}, base.MethodMembers.OverriddenBy["describe"])
	shape, _ := cb.ClassLike("Shape")
	assert.Equal(t, []string{"square"}, shape.MethodMembers.OverriddenBy["area"])

	// Base inherits the abstract interface method.
	area, ok := cb.Method("Base", "area")
	require.True(t, ok)
	assert.True(t, area.Abstract)
	assert.Equal(t, "Shape", area.Class)
	assert.Equal(t, 0, cb.Issues.Len())
}

func TestPopulateCycle(t *testing.T) {
	cb := index(t, `<?php
class A extends B {}
class B extends A {}
`)
	require.Equal(t, []string{"circular-inheritance"}, cb.Issues.Codes())
	for _, name := range []string{"a", "b"} {
		m, _ := cb.ClassLike(name)
		assert.NotContains(t, m.AllParents, name)
	}
}

func TestTraitMembersResolveAtUseSite(t *testing.T) {
	cb := index(t, `<?php
trait Fluent {
    private int $calls = 0;
    public function me(): self { return $this; }
    public function twin(): static { return $this; }
    public function hidden(): void {}
}
class Builder {
    use Fluent { hidden as protected shown; }
}
`)
	me, ok := cb.Method("Builder", "me")
	require.True(t, ok)
	assert.Equal(t, "Builder", me.Class)
	require.NotNil(t, me.ReturnType)
	assert.Equal(t, "Builder", me.ReturnType.Types[0].Name)

	twin, ok := cb.Method("Builder", "twin")
	require.True(t, ok)
	assert.Equal(t, "static", twin.ReturnType.Types[0].Name)

	shown, ok := cb.Method("Builder", "shown")
	require.True(t, ok)
	assert.Equal(t, Protected, shown.Visibility)
	_, ok = cb.Method("Builder", "hidden")
	assert.True(t, ok)

	calls, ok := cb.Property("Builder", "calls")
	require.True(t, ok)
	assert.Equal(t, "Builder", calls.Class)

	trait, _ := cb.ClassLike("Fluent")
	assert.Equal(t, "self", trait.Methods["me"].ReturnType.Types[0].Name)
}

func TestPopulateIsRepeatable(t *testing.T) {
	cb := index(t, `<?php
trait T { public function t(): void {} }
class C { use T; }
`)
	cb.Populate()
	c, _ := cb.ClassLike("C")
	assert.Len(t, c.Methods, 1)
	assert.Empty(t, c.MethodMembers.Declared)
	assert.Equal(t, "c", c.MethodMembers.Appearing["t"])
}

func TestMergeDuplicate(t *testing.T) {
	cb := index(t, `<?php function dup() {}`, `<?php function DUP() {}`)
	require.Equal(t, []string{"duplicate-definition"}, cb.Issues.Codes())
	issue := cb.Issues.All()[0]
	assert.Equal(t, source.FileID(1), issue.File())
	assert.Len(t, issue.Secondary, 1)
	f, _ := cb.Function("dup")
	assert.Equal(t, "DUP", f.Name)
}

func TestDocblockRefinesSignature(t *testing.T) {
	cb := index(t, `<?php
/**
 * @template T of object
 * @param list<int> $xs
 * @param T $item
 * @return non-empty-string
 * @throws RuntimeException
 * @deprecated
 */
function f(array $xs, object $item, ?string $s = null): string { return 'x'; }

/** @return int */
function g(): string { return ''; }
`)
	f, ok := cb.Function("f")
	require.True(t, ok)
	assert.True(t, f.Deprecated)
	require.Len(t, f.Templates, 1)
	assert.Equal(t, "f", f.Templates[0].Defining)

	xs, _ := f.Param("xs")
	assert.Equal(t, ttype.KList, xs.Type.Types[0].Kind)
	item, _ := f.Param("item")
	assert.Equal(t, ttype.KTemplate, item.Type.Types[0].Kind)
	s, _ := f.Param("s")
	assert.True(t, s.HasDefault)
	assert.True(t, s.Type.IsNullable())

	ret := f.ReturnType.Types[0]
	assert.Equal(t, ttype.KString, ret.Kind)
	assert.True(t, ret.NonEmpty)
	require.Len(t, f.Throws, 1)
	assert.Equal(t, "RuntimeException", f.Throws[0].Types[0].Name)

	// An incompatible docblock type is ignored.
	g, _ := cb.Function("g")
	assert.True(t, g.ReturnType.IsString())
}

func TestEnums(t *testing.T) {
	cb := index(t, `<?php
enum Suit: string {
    case Hearts = 'h';
    case Spades = 's';
    const Wild = self::Spades;
}
enum Pure { case One; }
`)
	suit, ok := cb.ClassLike("Suit")
	require.True(t, ok)
	assert.True(t, suit.IsEnum())
	assert.Equal(t, []string{"UnitEnum", "BackedEnum"}, suit.Interfaces)
	require.NotNil(t, suit.BackingType)
	assert.True(t, suit.BackingType.IsString())

	cases, ok := cb.EnumCases("suit")
	require.True(t, ok)
	assert.Equal(t, []string{"Hearts", "Spades"}, cases)
	hearts, ok := cb.EnumCase("Suit", "Hearts")
	require.True(t, ok)
	v, _ := hearts.Value.LiteralString()
	assert.Equal(t, "h", v)

	pure, _ := cb.ClassLike("Pure")
	assert.Equal(t, []string{"UnitEnum"}, pure.Interfaces)
	assert.Nil(t, pure.Cases["One"].Value)
}

func TestAnonymousAndGenerators(t *testing.T) {
	src := `<?php
function gen() { $f = function () { yield 1; }; return $f; }
function real() { yield 1; }
$o = new class extends Exception {};
`
	cb := index(t, src)
	gen, _ := cb.Function("gen")
	assert.False(t, gen.Generator)
	real, _ := cb.Function("real")
	assert.True(t, real.Generator)

	var anon *ClassLikeMetadata
	for _, m := range cb.Classes {
		if m.Anonymous {
			anon = m
		}
	}
	require.NotNil(t, anon)
	assert.Contains(t, anon.Name, "class@anonymous#0:")
	assert.Equal(t, "Exception", anon.Parent)
}

func TestSymbolReferences(t *testing.T) {
	r := NewSymbolReferences()
	r.AddSymbol("main", `\App\Foo`)
	r.AddMember("app\\foo::run", "App\\Foo", "Helper")
	r.AddMember("main", "App\\Foo", "$name")

	other := NewSymbolReferences()
	other.AddMember("tests", "app\\foo", "HELPER")
	r.Extend(other)

	assert.True(t, r.SymbolReferenced("app\\foo"))
	assert.True(t, r.MemberReferenced("App\\Foo", "helper"))
	assert.False(t, r.MemberReferenced("App\\Foo", "$Name"))
	assert.Equal(t, []string{"app\\foo::run", "tests"}, r.Referencers("app\\foo", "helper"))
	assert.Equal(t, 3, r.Len())
}

func TestConstantKey(t *testing.T) {
	assert.Equal(t, `app\sub\LIMIT`, ConstantKey(`\App\Sub\LIMIT`))
	assert.Equal(t, "PHP_EOL", ConstantKey("PHP_EOL"))
	assert.Equal(t, `app\foo`, Key(`\App\Foo`))
}
