// Copyright © 2024 The Mago authors

package analysis

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magophp/mago/codebase"
	"github.com/magophp/mago/diagnostic"
	"github.com/magophp/mago/interner"
	"github.com/magophp/mago/names"
	"github.com/magophp/mago/parser"
	"github.com/magophp/mago/parser/ast"
	"github.com/magophp/mago/source"
)

type analyzed struct {
	*Result
	file *source.File
	prog *ast.Program
	cb   *codebase.Codebase
}

// analyzeWith indexes the prelude and src, then analyzes src.
func analyzeWith(t *testing.T, settings Settings, src string) *analyzed {
	t.Helper()
	in := interner.New()
	db := source.NewDatabase(in)
	prelude, err := AddPrelude(db)
	require.NoError(t, err)
	user := db.Add("test.php", src, source.UserDefined)

	cb := codebase.New()
	var userProg *ast.Program
	var userNames *names.Names
	for _, f := range append(prelude, user) {
		prog, err := parser.Parse(f)
		require.NoError(t, err, f.Name)
		n := names.Resolve(in, prog)
		cb.Merge(codebase.Scan(f, prog, n))
		if f == user {
			userProg, userNames = prog, n
		}
	}
	cb.Populate()

	res := Analyze(user, userProg, userNames, &Config{Codebase: cb, Settings: settings})
	return &analyzed{Result: res, file: user, prog: userProg, cb: cb}
}

func analyzeSource(t *testing.T, src string) *analyzed {
	t.Helper()
	return analyzeWith(t, DefaultSettings(), src)
}

func sortedCodes(c *diagnostic.IssueCollection) []string {
	codes := c.Codes()
	sort.Strings(codes)
	return codes
}

func issuesWithCode(c *diagnostic.IssueCollection, code string) []*diagnostic.Issue {
	var out []*diagnostic.Issue
	for _, i := range c.All() {
		if i.Code == code {
			out = append(out, i)
		}
	}
	return out
}

func assertHasIssue(t *testing.T, r *analyzed, code string) *diagnostic.Issue {
	t.Helper()
	found := issuesWithCode(r.Issues, code)
	if !assert.NotEmpty(t, found, "expected %s, got %v", code, r.Issues.Codes()) {
		return nil
	}
	return found[0]
}

func assertNoIssue(t *testing.T, r *analyzed, code string) {
	t.Helper()
	assert.Empty(t, issuesWithCode(r.Issues, code), "unexpected %s", code)
}

// spanText returns the source covered by the primary annotation of i.
func spanText(r *analyzed, i *diagnostic.Issue) string {
	return i.Primary.Span.Text(r.file)
}

// first returns the first node of type T in the program.
func first[T ast.Node](t *testing.T, prog *ast.Program) T {
	t.Helper()
	var out T
	found := false
	for _, s := range prog.Statements {
		ast.Inspect(s, func(n ast.Node) bool {
			if found {
				return false
			}
			if x, ok := n.(T); ok {
				out = x
				found = true
				return false
			}
			return true
		})
	}
	require.True(t, found, "node not found")
	return out
}

func typeString(t *testing.T, r *analyzed, n ast.Node) string {
	t.Helper()
	u, ok := r.Artifacts.TypeOf(n)
	require.True(t, ok, "no type recorded for %s", n.Span().Text(r.file))
	return u.String()
}

func TestUndefinedConstant(t *testing.T) {
	r := analyzeSource(t, `<?php echo FOO;`)
	assert.Equal(t, []string{CodeNonExistentConstant}, sortedCodes(r.Issues))
	issue := assertHasIssue(t, r, CodeNonExistentConstant)
	assert.Equal(t, "FOO", spanText(r, issue))
	assert.Equal(t, diagnostic.LevelError, issue.Level)
}

func TestPipeArityMismatch(t *testing.T) {
	r := analyzeSource(t, `<?php
function do_nothing(int $a, int $b): void {}
"foo" |> do_nothing(...);
`)
	assert.Equal(t, []string{CodeInvalidArgument, CodeTooFewArguments}, sortedCodes(r.Issues))
	issue := assertHasIssue(t, r, CodeInvalidArgument)
	assert.Equal(t, `"foo"`, spanText(r, issue))
}

func TestDeadCode(t *testing.T) {
	r := analyzeSource(t, `<?php
function f(): int { return 1; echo 2; }
`)
	assert.Equal(t, []string{CodeUnreachableStatement}, sortedCodes(r.Issues))
	issue := assertHasIssue(t, r, CodeUnreachableStatement)
	assert.Equal(t, "echo 2;", spanText(r, issue))
}

func TestIssetNarrowing(t *testing.T) {
	r := analyzeSource(t, `<?php
function f(array $a): int {
  if (isset($a['x']) && is_int($a['x'])) { return $a['x']; }
  return 0;
}
`)
	assert.Empty(t, r.Issues.Codes())
}

func TestUnusedPureAssignment(t *testing.T) {
	r := analyzeSource(t, `<?php
function f(int $x): int { $y = $x + 1; return $x; }
`)
	assert.Equal(t, []string{CodeUnusedAssignment}, sortedCodes(r.Issues))
	issue := assertHasIssue(t, r, CodeUnusedAssignment)
	assert.Contains(t, spanText(r, issue), "$y")
	require.NotNil(t, issue.Fix)
	assert.Equal(t, diagnostic.Safe, issue.Fix.Safety())
}

func TestUnusedDestructuredElement(t *testing.T) {
	r := analyzeSource(t, `<?php
function f(array $a): mixed { [$p, $q] = $a; return $p; }
`)
	assert.Equal(t, []string{CodeUnusedAssignment}, sortedCodes(r.Issues))
	issue := assertHasIssue(t, r, CodeUnusedAssignment)
	assert.Equal(t, "$q", spanText(r, issue))
	assert.Nil(t, issue.Fix)

	r = analyzeSource(t, `<?php
function f(array $a): mixed { list('k' => $p, 'n' => [$q, $s]) = $a; return $q; }
`)
	unused := issuesWithCode(r.Issues, CodeUnusedAssignment)
	require.Len(t, unused, 2)
	for _, i := range unused {
		assert.Nil(t, i.Fix, spanText(r, i))
	}
}

func TestDisallowedEmpty(t *testing.T) {
	settings := DefaultSettings()
	settings.AllowEmpty = false
	r := analyzeWith(t, settings, `<?php if (empty($x)) {}`)
	assert.Equal(t, []string{CodeDisallowedConstruct}, sortedCodes(r.Issues))
	issue := assertHasIssue(t, r, CodeDisallowedConstruct)
	assert.Equal(t, "empty($x)", spanText(r, issue))
}

func TestAllowedEmptyByDefault(t *testing.T) {
	r := analyzeSource(t, `<?php if (empty($x)) {}`)
	assertNoIssue(t, r, CodeDisallowedConstruct)
}

func TestAssignmentTypes(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"int literal", `<?php $x = 1;`, "int(1)"},
		{"folded addition", `<?php $x = 1 + 2;`, "int(3)"},
		{"folded division", `<?php $x = 1 / 2;`, "float(0.5)"},
		{"string", `<?php $x = 'a';`, "string('a')"},
		{"folded concat", `<?php $x = 'a' . 'b';`, "string('ab')"},
		{"comparison", `<?php $x = 1 < 2;`, "bool"},
		{"builtin return", `<?php $x = strlen('abc');`, "int"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := analyzeSource(t, tt.src)
			assign := first[*ast.Assign](t, r.prog)
			assert.Equal(t, tt.want, typeString(t, r, assign.Value))
		})
	}
}

func TestIfMergesBranchTypes(t *testing.T) {
	r := analyzeSource(t, `<?php
function f(bool $b): void {
  if ($b) { $x = 1; } else { $x = "a"; }
  echo $x;
}
`)
	assert.Empty(t, r.Issues.Codes())
	echo := first[*ast.Echo](t, r.prog)
	got := typeString(t, r, echo.Values[0])
	assert.Contains(t, got, "int(1)")
	assert.Contains(t, got, "string('a')")
}

func TestPossiblyUndefinedVariable(t *testing.T) {
	r := analyzeSource(t, `<?php
function f(bool $b): void {
  if ($b) { $x = 1; }
  echo $x;
}
`)
	issue := assertHasIssue(t, r, CodePossiblyUndefinedVariable)
	assert.Equal(t, "$x", spanText(r, issue))
}

func TestUndefinedVariable(t *testing.T) {
	r := analyzeSource(t, `<?php
function f(): void { echo $nope; }
`)
	assertHasIssue(t, r, CodeUndefinedVariable)

	r = analyzeSource(t, `<?php echo $nope;`)
	assertNoIssue(t, r, CodeUndefinedVariable)
}

func TestInstanceofNarrowing(t *testing.T) {
	r := analyzeSource(t, `<?php
class A { public function hello(): string { return "hi"; } }
function f(?A $a): string {
  if ($a instanceof A) { return $a->hello(); }
  return "";
}
`)
	assert.Empty(t, r.Issues.Codes())
}

func TestPossiblyNullMethodCall(t *testing.T) {
	r := analyzeSource(t, `<?php
class A { public function hello(): string { return "hi"; } }
function f(?A $a): string { return $a->hello(); }
`)
	assertHasIssue(t, r, CodePossiblyNullMethodAccess)

	r = analyzeSource(t, `<?php
class A { public function hello(): string { return "hi"; } }
function f(?A $a): ?string { return $a?->hello(); }
`)
	assertNoIssue(t, r, CodePossiblyNullMethodAccess)
}

func TestTypeNeverMatches(t *testing.T) {
	r := analyzeSource(t, `<?php
function f(int $a): void {
  if (is_string($a)) { echo $a; }
}
`)
	assertHasIssue(t, r, CodeTypeNeverMatches)
}

func TestCallChecks(t *testing.T) {
	tests := []struct {
		name string
		src  string
		code string
	}{
		{"unknown function", `<?php nope();`, CodeNonExistentFunction},
		{"too many", `<?php function g(int $a): void {} g(1, 2);`, CodeTooManyArguments},
		{"too few", `<?php function g(int $a): void {} g();`, CodeTooFewArguments},
		{"named unknown", `<?php function g(int $a): void {} g(b: 1);`, CodeInvalidNamedArgument},
		{"named duplicate", `<?php function g(int $a): void {} g(1, a: 2);`, CodeDuplicateNamedArgument},
		{"wrong type", `<?php function g(int $a): void {} g("x");`, CodeInvalidArgument},
		{"unknown method", `<?php class A {} (new A())->nope();`, CodeNonExistentMethod},
		{"unknown class", `<?php new Nope();`, CodeNonExistentClassLike},
		{"interface", `<?php interface I {} new I();`, CodeInterfaceInstantiation},
		{"abstract", `<?php abstract class A {} new A();`, CodeAbstractInstantiation},
		{"unknown class constant", `<?php class A {} echo A::B;`, CodeNonExistentClassConstant},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := analyzeSource(t, tt.src)
			assertHasIssue(t, r, tt.code)
		})
	}
}

func TestMagicCallSuppressesUnknownMethod(t *testing.T) {
	r := analyzeSource(t, `<?php
class A { public function __call(string $name, array $args): mixed { return null; } }
(new A())->anything();
`)
	assertNoIssue(t, r, CodeNonExistentMethod)
}

func TestReturnChecks(t *testing.T) {
	r := analyzeSource(t, `<?php function f(): int { return "a"; }`)
	assertHasIssue(t, r, CodeInvalidReturnStatement)

	r = analyzeSource(t, `<?php function f(bool $b): int { if ($b) { return 1; } }`)
	assertHasIssue(t, r, CodeMissingReturnStatement)

	r = analyzeSource(t, `<?php function f(): void { return 1; }`)
	assertHasIssue(t, r, CodeInvalidReturnStatement)
}

func TestInvalidOperand(t *testing.T) {
	r := analyzeSource(t, `<?php
function f(array $a): void { echo $a - 1; }
`)
	assertHasIssue(t, r, CodeInvalidOperand)
}

func TestUnusedStatementAndCall(t *testing.T) {
	r := analyzeSource(t, `<?php
function f(string $s): void { strlen($s); }
`)
	assertHasIssue(t, r, CodeUnusedFunctionCall)

	r = analyzeSource(t, `<?php
function f(int $a): void { $a + 1; }
`)
	assertHasIssue(t, r, CodeUnusedStatement)
}

func TestUnusedAssignmentWithSideEffects(t *testing.T) {
	r := analyzeSource(t, `<?php
function g(): int { echo "x"; return 1; }
function f(): void { $y = g(); }
`)
	assertHasIssue(t, r, CodeUnusedAssignmentWithSideEffects)
	assertNoIssue(t, r, CodeUnusedAssignment)
}

func TestByReferenceArgumentDefinesVariable(t *testing.T) {
	r := analyzeSource(t, `<?php
function f(string $s): int {
  preg_match('/a/', $s, $m);
  return count($m);
}
`)
	assertNoIssue(t, r, CodeUndefinedVariable)
}

func TestLoopTypesSettle(t *testing.T) {
	r := analyzeSource(t, `<?php
function f(): int {
  $n = 0;
  for ($i = 0; $i < 10; $i++) { $n = $n + $i; }
  return $n;
}
`)
	assert.Empty(t, r.Issues.Codes())
}

func TestForeachBindsValues(t *testing.T) {
	r := analyzeSource(t, `<?php
/** @param list<string> $xs */
function f(array $xs): int {
  $n = 0;
  foreach ($xs as $x) { $n += strlen($x); }
  return $n;
}
`)
	assert.Empty(t, r.Issues.Codes())
	assert.Equal(t, "int", typeString(t, r, first[*ast.Return](t, r.prog).Value))
}

func TestForeachFallsThrough(t *testing.T) {
	for _, src := range []string{
		`<?php
function f(array $xs): int {
  $n = 0;
  foreach ($xs as $x) { $n = $n + 1; }
  return $n;
}
`,
		`<?php
function f(array $xs): void {
  foreach ($xs as $x) { echo $x; }
  echo "done";
}
`,
		`<?php
function f(array $xs): int {
  $n = 0;
  foreach ($xs as $x) {
    if ($x === null) { continue; }
    $n = $n + 1;
  }
  return $n;
}
`,
		`<?php
function f(array $xs): int {
  foreach ($xs as $x) { return 1; }
  return 0;
}
`,
	} {
		r := analyzeSource(t, src)
		assertNoIssue(t, r, CodeUnreachableStatement)
		assertNoIssue(t, r, CodeMissingReturnStatement)
	}
}

func TestForeachValueMaybeUnbound(t *testing.T) {
	r := analyzeSource(t, `<?php
function f(array $xs): void {
  foreach ($xs as $x) {}
  echo $x;
}
`)
	assertHasIssue(t, r, CodePossiblyUndefinedVariable)
	assertNoIssue(t, r, CodeUnreachableStatement)
}

func TestClosures(t *testing.T) {
	r := analyzeSource(t, `<?php
function f(int $base): int {
  $add = function (int $x) use ($base): int { return $x + $base; };
  $mul = fn(int $x): int => $x * $base;
  return $add(1) + $mul(2);
}
`)
	assert.Empty(t, r.Issues.Codes())

	r = analyzeSource(t, `<?php
function f(): int {
  $add = function (int $x) use ($missing): int { return $x; };
  return $add(1);
}
`)
	assertHasIssue(t, r, CodeUndefinedVariable)
}

func TestMatchExpression(t *testing.T) {
	r := analyzeSource(t, `<?php
function f(int $a): string {
  return match ($a) { 1 => "one", 2 => "two", default => "many" };
}
`)
	assert.Empty(t, r.Issues.Codes())
}

func TestClassDeclarationChecks(t *testing.T) {
	tests := []struct {
		name string
		src  string
		code string
	}{
		{"final parent", `<?php final class A {} class B extends A {}`, CodeExtendFinalClass},
		{"extends interface", `<?php interface I {} class B extends I {}`, CodeInvalidExtend},
		{"implements class", `<?php class A {} class B implements A {}`, CodeInvalidImplement},
		{"unknown parent", `<?php class B extends Nope {}`, CodeNonExistentClassLike},
		{"missing implementation", `<?php interface I { public function run(): void; } class B implements I {}`, CodeMissingAbstractImplementation},
		{"bad default", `<?php class A { public int $x = "a"; }`, CodeInvalidPropertyAssignment},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := analyzeSource(t, tt.src)
			assertHasIssue(t, r, tt.code)
		})
	}
}

func TestMethodBodiesAreAnalyzed(t *testing.T) {
	r := analyzeSource(t, `<?php
class A {
  private int $n = 0;
  public function inc(): int { $this->n = $this->n + 1; return $this->n; }
  public function bad(): int { return $this->missing; }
}
`)
	assertHasIssue(t, r, CodeNonExistentProperty)
}

func TestEnums(t *testing.T) {
	r := analyzeSource(t, `<?php
enum Suit: string {
  case Hearts = "h";
  case Spades = "s";
}
function f(string $v): ?Suit { return Suit::tryFrom($v); }
function g(): array { return Suit::cases(); }
function h(): string { return Suit::Hearts->value; }
`)
	assert.Empty(t, r.Issues.Codes())
}

func TestDeprecatedFunction(t *testing.T) {
	r := analyzeSource(t, `<?php
/** @deprecated */
function old(): void {}
old();
`)
	issue := assertHasIssue(t, r, CodeDeprecatedFunction)
	assert.Equal(t, diagnostic.LevelWarning, issue.Level)
}

func TestTemplateInference(t *testing.T) {
	r := analyzeSource(t, `<?php
/**
 * @template T
 * @param T $x
 * @return T
 */
function id(mixed $x): mixed { return $x; }
$v = id(5);
`)
	assert.Empty(t, r.Issues.Codes())
	call := first[*ast.Call](t, r.prog)
	assert.Equal(t, "int(5)", typeString(t, r, call))
	bounds, ok := r.Artifacts.TemplateBounds[call.Span().Key()]
	require.True(t, ok)
	require.Contains(t, bounds, "t")
	require.Len(t, bounds["t"].Lower, 1)
	assert.Equal(t, "int(5)", bounds["t"].Lower[0].String())
	assert.Equal(t, "mixed", bounds["t"].Upper.String())
}

func TestTemplateUpperBound(t *testing.T) {
	r := analyzeSource(t, `<?php
/**
 * @template T of int|string
 * @param T $x
 * @return T
 */
function keep(int|string $x): int|string { return $x; }
$v = keep('a');
`)
	call := first[*ast.Call](t, r.prog)
	bounds, ok := r.Artifacts.TemplateBounds[call.Span().Key()]
	require.True(t, ok)
	require.Contains(t, bounds, "t")
	assert.Len(t, bounds["t"].Upper.Types, 2)
	assert.NotEmpty(t, bounds["t"].Lower)
}

func TestConditionArtifacts(t *testing.T) {
	r := analyzeSource(t, `<?php
function f(mixed $a): void { if (is_string($a)) { echo $a; } }
`)
	cond := first[*ast.If](t, r.prog).Cond
	ifTrue, ok := r.Artifacts.IfTrue[cond.Span().Key()]
	require.True(t, ok)
	assert.Contains(t, ifTrue, "$a")
	_, ok = r.Artifacts.IfFalse[cond.Span().Key()]
	assert.True(t, ok)
}

func TestTaintAnalysis(t *testing.T) {
	settings := DefaultSettings()
	settings.PerformTaintAnalysis = true

	r := analyzeWith(t, settings, `<?php
$name = $_GET['name'];
echo "Hello " . $name;
`)
	issue := assertHasIssue(t, r, CodeTaintedData)
	assert.NotEmpty(t, issue.Secondary)

	r = analyzeWith(t, settings, `<?php
$name = htmlspecialchars($_GET['name']);
echo "Hello " . $name;
`)
	assertNoIssue(t, r, CodeTaintedData)

	r = analyzeWith(t, settings, `<?php
system($_POST['cmd']);
`)
	assertHasIssue(t, r, CodeTaintedData)

	r = analyzeSource(t, `<?php echo $_GET['name'];`)
	assertNoIssue(t, r, CodeTaintedData)
}

func TestFindUnusedDefinitions(t *testing.T) {
	r := analyzeSource(t, `<?php
class A {
  private int $used = 1;
  private int $unused = 2;
  public function run(): int { return $this->helper() + $this->used; }
  private function helper(): int { return 1; }
  private function orphan(): int { return $this->orphan(); }
}
`)
	issues := FindUnusedDefinitions(r.cb, r.References)
	var names []string
	for _, i := range issues.All() {
		names = append(names, i.Code+":"+i.Primary.Span.Text(r.file))
	}
	assert.ElementsMatch(t, []string{
		CodeUnusedMethod + ":orphan",
		CodeUnusedProperty + ":$unused = 2",
	}, names)
}

func TestPreludeIsIdempotent(t *testing.T) {
	db := source.NewDatabase(interner.New())
	a, err := AddPrelude(db)
	require.NoError(t, err)
	b, err := AddPrelude(db)
	require.NoError(t, err)
	require.NotEmpty(t, a)
	assert.Equal(t, len(a), db.Len())
	for i := range a {
		assert.Same(t, a[i], b[i])
		assert.True(t, IsPrelude(a[i]))
		assert.Equal(t, source.Builtin, a[i].Category)
	}
}

func TestResultExtend(t *testing.T) {
	r1 := analyzeSource(t, `<?php echo FOO;`)
	r2 := analyzeSource(t, `<?php nope();`)
	total := NewResult()
	total.Extend(r1.Result)
	total.Extend(r2.Result)
	total.Extend(nil)
	assert.Equal(t, 2, total.Issues.Len())
}
