// Copyright © 2024 The Mago authors

package rdparser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magophp/mago/interner"
	"github.com/magophp/mago/parser/ast"
	"github.com/magophp/mago/parser/token"
	"github.com/magophp/mago/source"
)

func parse(t *testing.T, src string) *ast.Program {
	t.Helper()
	db := source.NewDatabase(interner.New())
	f := db.Add("test.php", src, source.UserDefined)
	prog, err := Parse(f)
	require.Nil(t, err, "%v", err)
	require.NotNil(t, prog)
	return prog
}

// body returns the statements after the opening tag.
func body(t *testing.T, src string) []ast.Stmt {
	t.Helper()
	prog := parse(t, src)
	require.NotEmpty(t, prog.Statements)
	_, ok := prog.Statements[0].(*ast.Tag)
	require.True(t, ok, "first statement is %T", prog.Statements[0])
	return prog.Statements[1:]
}

func expr(t *testing.T, src string) ast.Expr {
	t.Helper()
	stmts := body(t, "<?php "+src+";")
	require.Len(t, stmts, 1)
	es, ok := stmts[0].(*ast.ExprStmt)
	require.True(t, ok, "statement is %T", stmts[0])
	return es.Expr
}

func TestEchoConstant(t *testing.T) {
	stmts := body(t, "<?php echo FOO;")
	require.Len(t, stmts, 1)
	echo := stmts[0].(*ast.Echo)
	require.Len(t, echo.Values, 1)
	c, ok := echo.Values[0].(*ast.ConstFetch)
	require.True(t, ok)
	assert.Equal(t, "FOO", c.Name.Value)
	assert.Equal(t, ast.Unqualified, c.Name.Kind)
}

func TestPrecedence(t *testing.T) {
	assign := expr(t, "$a = 1 + 2 * 3").(*ast.Assign)
	assert.Equal(t, token.Equal, assign.Op)
	sum := assign.Value.(*ast.Binary)
	assert.Equal(t, token.Plus, sum.Op)
	prod := sum.Right.(*ast.Binary)
	assert.Equal(t, token.Asterisk, prod.Op)

	pow := expr(t, "2 ** 3 ** 2").(*ast.Binary)
	assert.Equal(t, token.Pow, pow.Op)
	_, ok := pow.Right.(*ast.Binary)
	assert.True(t, ok, "** is right associative")

	coalesce := expr(t, "$a ?? $b ?? $c").(*ast.Binary)
	_, ok = coalesce.Right.(*ast.Binary)
	assert.True(t, ok, "?? is right associative")

	// Assignment binds inside a boolean operand.
	and := expr(t, "$a && $b = 1").(*ast.Binary)
	assert.Equal(t, token.AmpersandAmpersand, and.Op)
	_, ok = and.Right.(*ast.Assign)
	assert.True(t, ok)
}

func TestPipe(t *testing.T) {
	pipe := expr(t, "$x |> strlen(...)").(*ast.Pipe)
	_, ok := pipe.Input.(*ast.Variable)
	assert.True(t, ok)
	call := pipe.Callable.(*ast.Call)
	assert.True(t, call.Args.FirstClassCallable)
	assert.Equal(t, "strlen", call.Callee.(*ast.Name).Value)
}

func TestTernary(t *testing.T) {
	short := expr(t, "$a ?: $b").(*ast.Ternary)
	assert.Nil(t, short.Then)
	full := expr(t, "$a ? 1 : 2").(*ast.Ternary)
	assert.NotNil(t, full.Then)
}

func TestMemberAccess(t *testing.T) {
	call := expr(t, "$o?->foo()->bar")
	fetch := call.(*ast.PropertyFetch)
	assert.Equal(t, "bar", fetch.Property.(*ast.Ident).Value)
	mc := fetch.Object.(*ast.MethodCall)
	assert.True(t, mc.Nullsafe)

	static := expr(t, "Foo::BAR").(*ast.ClassConstFetch)
	assert.Equal(t, "BAR", static.Constant.Value)
}

func TestStrings(t *testing.T) {
	lit := expr(t, `"a\tb"`).(*ast.StringLiteral)
	assert.Equal(t, "a\tb", lit.Value)
	assert.Equal(t, `"a\tb"`, lit.Raw)

	single := expr(t, `'it\'s \n'`).(*ast.StringLiteral)
	assert.Equal(t, `it's \n`, single.Value)

	interp := expr(t, `"x $a[0] {$b->c} y"`).(*ast.InterpolatedString)
	assert.Equal(t, ast.DoubleQuoted, interp.Kind)
	require.Len(t, interp.Parts, 5)
	_, ok := interp.Parts[1].(*ast.ArrayAccess)
	assert.True(t, ok)
	_, ok = interp.Parts[3].(*ast.PropertyFetch)
	assert.True(t, ok)
}

func TestUnescape(t *testing.T) {
	tests := []struct {
		in, out string
	}{
		{`\n`, "\n"},
		{`\x41`, "A"},
		{`\101`, "A"},
		{`\u{1F600}`, "\U0001F600"},
		{`\q`, `\q`},
		{`\$x`, "$x"},
	}
	for _, test := range tests {
		assert.Equal(t, test.out, unescapeDouble(test.in, '"'), test.in)
	}
}

func TestClass(t *testing.T) {
	src := `<?php
abstract class Foo extends Bar implements Baz, Qux {
    use T1, T2 { T1::hello insteadof T2; T2::hello as protected hi; }
    const int ONE = 1;
    private static ?string $name = null, $other;
    abstract protected function run(int $x, string ...$rest): void;
    public function __construct(private readonly int $id = 0) {}
}`
	stmts := body(t, src)
	require.Len(t, stmts, 1)
	cl := stmts[0].(*ast.ClassLike)
	assert.Equal(t, ast.KindClass, cl.Kind)
	assert.Equal(t, "Foo", cl.Name.Value)
	assert.True(t, cl.Modifiers.Has(token.Abstract))
	require.Len(t, cl.Extends, 1)
	assert.Len(t, cl.Implements, 2)
	require.Len(t, cl.Members, 5)

	use := cl.Members[0].(*ast.TraitUse)
	assert.Len(t, use.Traits, 2)
	require.Len(t, use.Adaptations, 2)
	assert.Len(t, use.Adaptations[0].Insteadof, 1)
	assert.Equal(t, "hi", use.Adaptations[1].Alias.Value)
	assert.Equal(t, token.Protected, use.Adaptations[1].Visibility.Kind)

	c := cl.Members[1].(*ast.ClassConst)
	assert.NotNil(t, c.Type)
	assert.Equal(t, "ONE", c.Items[0].Name.Value)

	prop := cl.Members[2].(*ast.Property)
	assert.Len(t, prop.Items, 2)
	_, ok := prop.Type.(*ast.NullableHint)
	assert.True(t, ok)

	run := cl.Members[3].(*ast.Method)
	assert.Nil(t, run.Body)
	assert.Len(t, run.Params.Params, 2)
	assert.True(t, run.Params.Params[1].Variadic)

	ctor := cl.Members[4].(*ast.Method)
	require.NotNil(t, ctor.Body)
	assert.True(t, ctor.Params.Params[0].Modifiers.Has(token.Readonly))
}

func TestEnum(t *testing.T) {
	stmts := body(t, `<?php enum Suit: string implements HasLabel { case Hearts = 'H'; case Spades = 'S'; }`)
	cl := stmts[0].(*ast.ClassLike)
	assert.Equal(t, ast.KindEnum, cl.Kind)
	assert.NotNil(t, cl.BackingType)
	require.Len(t, cl.Members, 2)
	assert.Equal(t, "Hearts", cl.Members[0].(*ast.EnumCase).Name.Value)
}

func TestAnonymousClass(t *testing.T) {
	n := expr(t, "new class(1) extends Foo {}").(*ast.New)
	anon := n.Class.(*ast.AnonymousClass)
	assert.Equal(t, "Foo", anon.Extends.Value)
	require.NotNil(t, n.Args)
	assert.Len(t, n.Args.Args, 1)
}

func TestUnbracedNamespace(t *testing.T) {
	stmts := body(t, "<?php namespace A; function f() {} namespace B; const X = 1;")
	require.Len(t, stmts, 2)
	a := stmts[0].(*ast.Namespace)
	assert.False(t, a.Braced)
	assert.Equal(t, "A", a.Name.Value)
	assert.Len(t, a.Statements, 1)
	b := stmts[1].(*ast.Namespace)
	assert.Len(t, b.Statements, 1)
}

func TestAlternativeSyntax(t *testing.T) {
	stmts := body(t, "<?php if ($a): echo 1; elseif ($b): echo 2; else: echo 3; endif;")
	stmt := stmts[0].(*ast.If)
	assert.Len(t, stmt.ElseIfs, 1)
	assert.NotNil(t, stmt.Else)
}

func TestInlineHTML(t *testing.T) {
	prog := parse(t, "<p><?php echo 1 ?></p>")
	require.Len(t, prog.Statements, 5)
	assert.IsType(t, &ast.InlineHTML{}, prog.Statements[0])
	assert.IsType(t, &ast.Echo{}, prog.Statements[2])
	assert.IsType(t, &ast.Tag{}, prog.Statements[3])
}

func TestDocComment(t *testing.T) {
	src := "<?php\n/** @return int */\nfunction f() {}"
	prog := parse(t, src)
	fn := prog.Statements[1].(*ast.Function)
	doc, ok := prog.DocComment(fn.Span().Start)
	require.True(t, ok)
	assert.Equal(t, "/** @return int */", doc.Value)
}

func TestParseError(t *testing.T) {
	db := source.NewDatabase(interner.New())
	f := db.Add("bad.php", "<?php echo 1; $a = ;", source.UserDefined)
	prog, err := Parse(f)
	require.NotNil(t, err)
	assert.Contains(t, err.Message, "expected expression")
	assert.Equal(t, uint32(19), err.Span.Start)
	// The statements before the error survive.
	require.Len(t, prog.Statements, 2)
	assert.IsType(t, &ast.Echo{}, prog.Statements[1])
}

func TestWalk(t *testing.T) {
	prog := parse(t, `<?php function f($a) { return array_map(fn($x) => $x + $a, [1, 2]); }`)
	vars := 0
	ast.Inspect(prog, func(n ast.Node) bool {
		if _, ok := n.(*ast.Variable); ok {
			vars++
		}
		return true
	})
	assert.Equal(t, 4, vars)
}
