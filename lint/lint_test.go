// Copyright © 2024 The Mago authors

package lint

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magophp/mago/diagnostic"
	"github.com/magophp/mago/parser"
	"github.com/magophp/mago/source"
)

type linted struct {
	issues []*diagnostic.Issue
	file   *source.File
}

// lintWith runs l over source.
func lintWith(t *testing.T, l *Linter, src string) linted {
	t.Helper()
	prog, f, err := parser.ParseString("test.php", src)
	require.NoError(t, err)
	c, err := l.Lint(f, prog)
	require.NoError(t, err)
	return linted{issues: c.All(), file: f}
}

// lintSource runs all default analyzers on the given source.
func lintSource(t *testing.T, src string) linted {
	t.Helper()
	return lintWith(t, New(nil), src)
}

// lintCheck runs a single analyzer on the given source.
func lintCheck(t *testing.T, analyzer *Analyzer, src string) linted {
	t.Helper()
	return lintWith(t, &Linter{Analyzers: []*Analyzer{analyzer}}, src)
}

// assertHasDiag checks that at least one issue contains the given substring.
func assertHasDiag(t *testing.T, r linted, substr string) {
	t.Helper()
	for _, i := range r.issues {
		if strings.Contains(i.Message, substr) {
			return
		}
	}
	t.Errorf("expected issue containing %q, got: %v", substr, r.messages())
}

// assertNoDiags checks that there are no issues.
func assertNoDiags(t *testing.T, r linted) {
	t.Helper()
	if len(r.issues) > 0 {
		t.Errorf("expected no issues, got %d: %v", len(r.issues), r.messages())
	}
}

// assertDiagOnLine checks that an issue exists on the given line with the
// given substring.
func assertDiagOnLine(t *testing.T, r linted, line int, substr string) {
	t.Helper()
	for _, i := range r.issues {
		if r.file.LineNumber(int(i.Primary.Span.Start)) == line && strings.Contains(i.Message, substr) {
			return
		}
	}
	t.Errorf("expected issue on line %d containing %q, got: %v", line, substr, r.messages())
}

func (r linted) messages() []string {
	var msgs []string
	for _, i := range r.issues {
		msgs = append(msgs, fmt.Sprintf("line %d: %s", r.file.LineNumber(int(i.Primary.Span.Start)), i.Message))
	}
	return msgs
}

// --- framework ---

func TestLint_AnalyzerError(t *testing.T) {
	errAnalyzer := &Analyzer{
		Name: "fail",
		Doc:  "Always fails.",
		Run: func(pass *Pass) error {
			return fmt.Errorf("intentional failure")
		},
	}
	l := &Linter{Analyzers: []*Analyzer{errAnalyzer}}
	prog, f, err := parser.ParseString("test.php", "<?php 1;")
	require.NoError(t, err)
	_, err = l.Lint(f, prog)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "intentional failure")
	assert.Contains(t, err.Error(), "fail")
}

func TestLint_ReportFillsCategoryAndLevel(t *testing.T) {
	r := lintCheck(t, AnalyzerNoEval, `<?php eval('1;');`)
	require.Len(t, r.issues, 1)
	i := r.issues[0]
	assert.Equal(t, Category, i.Category)
	assert.Equal(t, "no-eval", i.Code)
	assert.Equal(t, "lint:no-eval", i.Rule())
	assert.Equal(t, diagnostic.LevelError, i.Level)
}

func TestLint_SettingsDisableAndOverrideLevel(t *testing.T) {
	note := diagnostic.LevelNote
	l := New(map[string]RuleSettings{
		"no-eval":             {Enabled: false},
		"require-return-type": {Enabled: true, Level: &note},
		"class-name":          {Enabled: false},
	})
	assert.Len(t, l.Enabled(), len(DefaultAnalyzers())-2)

	r := lintWith(t, l, `<?php
eval('1;');
function f() {}
`)
	require.Len(t, r.issues, 1)
	assert.Equal(t, "require-return-type", r.issues[0].Code)
	assert.Equal(t, diagnostic.LevelNote, r.issues[0].Level)
}

func TestRuleSettings_Int(t *testing.T) {
	s := RuleSettings{Options: map[string]any{"a": 3, "b": int64(4), "c": 5.0, "d": "x"}}
	assert.Equal(t, 3, s.Int("a", 0))
	assert.Equal(t, 4, s.Int("b", 0))
	assert.Equal(t, 5, s.Int("c", 0))
	assert.Equal(t, 9, s.Int("d", 9))
	assert.Equal(t, 7, s.Int("missing", 7))
}

func TestLookup(t *testing.T) {
	a, ok := Lookup("safety/no-eval")
	require.True(t, ok)
	assert.Same(t, AnalyzerNoEval, a)
	a, ok = Lookup("no-eval")
	require.True(t, ok)
	assert.Same(t, AnalyzerNoEval, a)
	_, ok = Lookup("nope")
	assert.False(t, ok)
}

func TestAnalyzerNames_Sorted(t *testing.T) {
	names := AnalyzerNames()
	require.Len(t, names, len(DefaultAnalyzers()))
	assert.IsNonDecreasing(t, names)
	assert.Contains(t, names, "naming/class-name")
}

func TestAnalyzerDoc_Wraps(t *testing.T) {
	doc := AnalyzerDoc(40)
	for _, line := range strings.Split(doc, "\n") {
		// Words longer than the limit cannot be broken.
		if !strings.Contains(line, "/") {
			assert.LessOrEqual(t, len(line), 40, line)
		}
	}
	assert.Contains(t, doc, "safety/no-eval")
}

func TestExplain(t *testing.T) {
	text := Explain(AnalyzerTooManyParameters, 60)
	assert.True(t, strings.HasPrefix(text, "maintainability/too-many-parameters (default level: warning)"))
	assert.Contains(t, text, "threshold")
}

// --- no-eval ---

func TestNoEval_Positive(t *testing.T) {
	r := lintCheck(t, AnalyzerNoEval, "<?php\n$x = 1;\neval($code);\n")
	assertDiagOnLine(t, r, 3, "eval")
}

func TestNoEval_Negative(t *testing.T) {
	r := lintCheck(t, AnalyzerNoEval, `<?php $evaluate = 1; evaluate();`)
	assertNoDiags(t, r)
}

// --- no-error-control-operator ---

func TestNoErrorControlOperator_Positive(t *testing.T) {
	r := lintCheck(t, AnalyzerNoErrorControlOperator, `<?php $x = @file_get_contents('x');`)
	assertHasDiag(t, r, "silence")
}

func TestNoErrorControlOperator_Negative(t *testing.T) {
	r := lintCheck(t, AnalyzerNoErrorControlOperator, `<?php $x = file_get_contents('x');`)
	assertNoDiags(t, r)
}

// --- assignment-in-condition ---

func TestAssignmentInCondition_Positive(t *testing.T) {
	r := lintCheck(t, AnalyzerAssignmentInCondition, `<?php
if ($a = foo()) {}
while (!($line = next_line())) {}
$x = ($y = 1) ? 2 : 3;
if ($ok && ($b = bar())) {}
`)
	assertDiagOnLine(t, r, 2, "Assignment used as a condition")
	assertDiagOnLine(t, r, 3, "Assignment used as a condition")
	assertDiagOnLine(t, r, 4, "Assignment used as a condition")
	assertDiagOnLine(t, r, 5, "Assignment used as a condition")
}

func TestAssignmentInCondition_Negative(t *testing.T) {
	r := lintCheck(t, AnalyzerAssignmentInCondition, `<?php
if ($a == foo()) {}
if (($a = foo()) !== null) {}
if ($a += 1) {}
`)
	assertNoDiags(t, r)
}

// --- no-empty-catch-clause ---

func TestNoEmptyCatchClause_Positive(t *testing.T) {
	r := lintCheck(t, AnalyzerNoEmptyCatchClause, `<?php
try { run(); } catch (Exception $e) {}
`)
	assertDiagOnLine(t, r, 2, "Empty catch block")
}

func TestNoEmptyCatchClause_Negative(t *testing.T) {
	r := lintCheck(t, AnalyzerNoEmptyCatchClause, `<?php
try { run(); } catch (Exception $e) { log_error($e); }
try { run(); } catch (Exception $e) {
  // Nothing to clean up.
}
`)
	assertNoDiags(t, r)
}

// --- too-many-parameters ---

func TestTooManyParameters_Positive(t *testing.T) {
	r := lintCheck(t, AnalyzerTooManyParameters, `<?php
function f($a, $b, $c, $d, $e, $f) {}
`)
	assertHasDiag(t, r, "Function `f` has 6 parameters; at most 5 are allowed.")
}

func TestTooManyParameters_Threshold(t *testing.T) {
	l := &Linter{
		Analyzers: []*Analyzer{AnalyzerTooManyParameters},
		Settings: map[string]RuleSettings{
			"too-many-parameters": {Enabled: true, Options: map[string]any{"threshold": int64(2)}},
		},
	}
	r := lintWith(t, l, `<?php
class A { public function m($a, $b, $c) {} }
$f = fn($a, $b) => 1;
`)
	require.Len(t, r.issues, 1)
	assertHasDiag(t, r, "Method `m` has 3 parameters")
}

func TestTooManyParameters_Negative(t *testing.T) {
	r := lintCheck(t, AnalyzerTooManyParameters, `<?php function f($a, $b, $c, $d, $e) {}`)
	assertNoDiags(t, r)
}

// --- require-return-type ---

func TestRequireReturnType_Positive(t *testing.T) {
	r := lintCheck(t, AnalyzerRequireReturnType, `<?php
function f() {}
class A { public function m() {} }
`)
	assertDiagOnLine(t, r, 2, "Function `f` has no return type.")
	assertDiagOnLine(t, r, 3, "Method `m` has no return type.")
}

func TestRequireReturnType_Negative(t *testing.T) {
	r := lintCheck(t, AnalyzerRequireReturnType, `<?php
function f(): void {}
class A {
  public function __construct() {}
  public function __clone() {}
}
$c = function () { return 1; };
`)
	assertNoDiags(t, r)
}

// --- class-name ---

func TestClassName_Positive(t *testing.T) {
	r := lintCheck(t, AnalyzerClassName, `<?php class user_profile {}`)
	assertHasDiag(t, r, "`user_profile` is not in PascalCase")
	require.Len(t, r.issues, 1)
	assert.Contains(t, r.issues[0].Help, "UserProfile")
}

func TestClassName_Negative(t *testing.T) {
	r := lintCheck(t, AnalyzerClassName, `<?php
class UserProfile {}
interface lower_interface {}
$x = new class {};
`)
	assertNoDiags(t, r)
}

// --- defaults ---

func TestDefaultAnalyzers_CleanSource(t *testing.T) {
	r := lintSource(t, `<?php
final class Greeter
{
    public function greet(string $name): string
    {
        try {
            return "Hello " . $name;
        } catch (Exception $e) {
            throw $e;
        }
    }
}
`)
	assertNoDiags(t, r)
}
