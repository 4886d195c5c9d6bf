// Copyright © 2024 The Mago authors

package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// workspace writes files into a temporary directory and returns its path.
func workspace(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	}
	return dir
}

func run(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := Run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

const cleanPHP = `<?php

function add(int $a, int $b): int
{
    return $a + $b;
}
`

func TestCheck_Clean(t *testing.T) {
	dir := workspace(t, map[string]string{"a.php": cleanPHP})
	code, stdout, stderr := run(t, "check", "--workspace", dir, "--color", "never")
	assert.Equal(t, 0, code, stderr)
	assert.Empty(t, stdout)
}

func TestCheck_ReportsErrors(t *testing.T) {
	dir := workspace(t, map[string]string{"a.php": "<?php\necho NOPE;\n"})
	code, stdout, _ := run(t, "check", "--workspace", dir, "--color", "never")
	assert.Equal(t, 1, code)
	assert.Contains(t, stdout, "non-existent-constant")
}

func TestCheck_PathArguments(t *testing.T) {
	dir := workspace(t, map[string]string{
		"good/a.php": cleanPHP,
		"bad/b.php":  "<?php\necho NOPE;\n",
	})
	code, _, _ := run(t, "check", "--workspace", dir, filepath.Join(dir, "good")+"/...")
	assert.Equal(t, 0, code)
	code, _, _ = run(t, "check", "--workspace", dir, filepath.Join(dir, "bad"))
	assert.Equal(t, 1, code)
}

func TestCheck_MinimumFailLevel(t *testing.T) {
	src := "<?php\n\nfunction f(int $x): int\n{\n    $y = $x + 1;\n    return $x;\n}\n"
	dir := workspace(t, map[string]string{"a.php": src})
	code, stdout, _ := run(t, "analyze", "--workspace", dir, "--reporting-format", "short")
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "warning[unused-assignment]")

	code, _, _ = run(t, "analyze", "--workspace", dir, "--minimum-fail-level", "warning")
	assert.Equal(t, 1, code)

	code, _, _ = run(t, "analyze", "--workspace", dir, "--find-unused-expressions=false",
		"--minimum-fail-level", "warning")
	assert.Equal(t, 0, code)
}

func TestCheck_JSON(t *testing.T) {
	dir := workspace(t, map[string]string{"a.php": "<?php\necho NOPE;\n"})
	code, stdout, _ := run(t, "analyze", "--workspace", dir, "--reporting-format", "json")
	assert.Equal(t, 1, code)

	var out struct {
		Issues []struct {
			Level    string `json:"level"`
			Category string `json:"category"`
			Code     string `json:"code"`
		} `json:"issues"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	require.Len(t, out.Issues, 1)
	assert.Equal(t, "error", out.Issues[0].Level)
	assert.Equal(t, "non-existent-constant", out.Issues[0].Code)
}

func TestCheck_ReportingTarget(t *testing.T) {
	dir := workspace(t, map[string]string{"a.php": "<?php\necho NOPE;\n"})
	code, stdout, stderr := run(t, "analyze", "--workspace", dir,
		"--reporting-format", "short", "--reporting-target", "stderr")
	assert.Equal(t, 1, code)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "error[non-existent-constant]")
}

func TestCheck_Fix(t *testing.T) {
	src := "<?php\n\nfunction f(int $x): int\n{\n    $y = $x + 1;\n    return $x;\n}\n"
	dir := workspace(t, map[string]string{"a.php": src})
	code, stdout, stderr := run(t, "analyze", "--workspace", dir, "--fix",
		"--reporting-format", "short", "--minimum-fail-level", "warning")
	assert.Equal(t, 0, code, stdout)
	assert.NotContains(t, stdout, "unused-assignment")
	assert.Contains(t, stderr, "fixed ")

	data, err := os.ReadFile(filepath.Join(dir, "a.php"))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "$y")
	assert.Contains(t, string(data), "return $x;")
}

func TestCheck_FixKeepsDestructuring(t *testing.T) {
	src := "<?php\n\nfunction f(array $a): mixed\n{\n    [$p, $q] = $a;\n    return $p;\n}\n"
	dir := workspace(t, map[string]string{"a.php": src})
	code, stdout, _ := run(t, "analyze", "--workspace", dir, "--fix",
		"--reporting-format", "short", "--minimum-fail-level", "warning")
	assert.Equal(t, 1, code)
	assert.Contains(t, stdout, "warning[unused-assignment]")

	data, err := os.ReadFile(filepath.Join(dir, "a.php"))
	require.NoError(t, err)
	assert.Equal(t, src, string(data))
}

func TestCheck_BadInvocation(t *testing.T) {
	dir := workspace(t, map[string]string{"a.php": cleanPHP})
	tests := [][]string{
		{"check", "--workspace", dir, "--reporting-format", "xml"},
		{"check", "--workspace", dir, "--reporting-target", "file"},
		{"check", "--workspace", dir, "--minimum-fail-level", "fatal"},
		{"check", "--workspace", dir, "--color", "sometimes"},
		{"check", "--workspace", dir, "--log-level", "loud"},
		{"check", "--config", filepath.Join(dir, "missing.toml")},
		{"nope"},
	}
	for _, args := range tests {
		code, _, stderr := run(t, args...)
		assert.Equal(t, 2, code, strings.Join(args, " "))
		assert.Contains(t, stderr, "mago:", strings.Join(args, " "))
	}
}

func TestCheck_SkipsUnreadable(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("permissions are not enforced for root")
	}
	dir := workspace(t, map[string]string{"a.php": cleanPHP, "b.php": cleanPHP})
	require.NoError(t, os.Chmod(filepath.Join(dir, "b.php"), 0))
	code, _, stderr := run(t, "check", "--workspace", dir)
	assert.Equal(t, 0, code)
	assert.Equal(t, 1, strings.Count(stderr, "mago: skipping"))
}

func TestLint(t *testing.T) {
	dir := workspace(t, map[string]string{"a.php": "<?php\neval('1');\n"})
	code, stdout, _ := run(t, "lint", "--workspace", dir, "--reporting-format", "short")
	assert.Equal(t, 1, code)
	assert.Contains(t, stdout, "no-eval")

	code, stdout, _ = run(t, "lint", "--workspace", dir, "--only", "class-name")
	assert.Equal(t, 0, code)
	assert.Empty(t, stdout)

	code, _, stderr := run(t, "lint", "--workspace", dir, "--only", "no-such-rule")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "unknown rule: no-such-rule")
}

func TestLint_ConfigDisablesRule(t *testing.T) {
	dir := workspace(t, map[string]string{
		"a.php":     "<?php\neval('1');\n",
		"mago.toml": "[linter.rules.no-eval]\nenabled = false\n",
	})
	code, _, _ := run(t, "lint", "--workspace", dir)
	assert.Equal(t, 0, code)
}

func TestLint_List(t *testing.T) {
	code, stdout, _ := run(t, "lint", "--list")
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "safety/no-eval\n")
	assert.Contains(t, stdout, "naming/class-name\n")
}

func TestLint_Explain(t *testing.T) {
	code, stdout, _ := run(t, "lint", "--explain", "no-eval")
	assert.Equal(t, 0, code)
	assert.True(t, strings.HasPrefix(stdout, "safety/no-eval (default level: error)"), stdout)

	code, _, _ = run(t, "lint", "--explain", "nope")
	assert.Equal(t, 2, code)
}

func TestSelectAnalyzers(t *testing.T) {
	as, err := selectAnalyzers("no-eval, safety/no-eval,class-name")
	require.NoError(t, err)
	require.Len(t, as, 2)
	assert.Equal(t, "no-eval", as[0].Name)
	assert.Equal(t, "class-name", as[1].Name)

	_, err = selectAnalyzers(" , ")
	assert.Error(t, err)
}

const unformatted = "<?php\nECHO 1;   \n"

func TestFmt_Check(t *testing.T) {
	dir := workspace(t, map[string]string{"a.php": unformatted, "b.php": "<?php\necho 2;\n"})
	code, stdout, _ := run(t, "fmt", "--workspace", dir, "--check")
	assert.Equal(t, 1, code)
	assert.Contains(t, stdout, "a.php")
	assert.NotContains(t, stdout, "b.php")

	data, err := os.ReadFile(filepath.Join(dir, "a.php"))
	require.NoError(t, err)
	assert.Equal(t, unformatted, string(data), "--check does not write")
}

func TestFmt_Write(t *testing.T) {
	dir := workspace(t, map[string]string{"a.php": unformatted})
	code, _, _ := run(t, "fmt", "--workspace", dir)
	assert.Equal(t, 0, code)

	data, err := os.ReadFile(filepath.Join(dir, "a.php"))
	require.NoError(t, err)
	assert.Equal(t, "<?php\necho 1;\n", string(data))

	code, _, _ = run(t, "fmt", "--workspace", dir, "--check")
	assert.Equal(t, 0, code)
}

func TestFmt_DryRun(t *testing.T) {
	dir := workspace(t, map[string]string{"a.php": unformatted})
	code, stdout, _ := run(t, "fmt", "--workspace", dir, "--dry-run")
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "-ECHO 1;   \n")
	assert.Contains(t, stdout, "+echo 1;\n")

	data, err := os.ReadFile(filepath.Join(dir, "a.php"))
	require.NoError(t, err)
	assert.Equal(t, unformatted, string(data))
}

func TestFmt_Stdin(t *testing.T) {
	cmd := NewRootCommand()
	var stdout bytes.Buffer
	cmd.SetArgs([]string{"fmt", "--stdin", "--workspace", t.TempDir()})
	cmd.SetIn(strings.NewReader(unformatted))
	cmd.SetOut(&stdout)
	cmd.SetErr(&bytes.Buffer{})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "<?php\necho 1;\n", stdout.String())
}

func TestFmt_ConflictingModes(t *testing.T) {
	code, _, stderr := run(t, "fmt", "--workspace", t.TempDir(), "--check", "--dry-run")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "mutually exclusive")
}

func TestConfig(t *testing.T) {
	dir := workspace(t, map[string]string{
		"mago.toml": "[analyzer]\nallow_eval = false\n",
	})
	code, stdout, _ := run(t, "config", "--workspace", dir, "--threads", "3")
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "[analyzer]")
	assert.Contains(t, stdout, "allow_eval = false")
	assert.Contains(t, stdout, "threads = 3")

	code, stdout, _ = run(t, "config", "--workspace", dir, "--default")
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "allow_eval = true")
	assert.Contains(t, stdout, "threads = 0")
}

func TestConfig_Env(t *testing.T) {
	dir := workspace(t, map[string]string{".env": "MAGO_ANALYZER_THREADS=5\n"})
	t.Cleanup(func() { os.Unsetenv("MAGO_ANALYZER_THREADS") }) //nolint:errcheck // test cleanup
	code, stdout, _ := run(t, "config", "--workspace", dir)
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "threads = 5")
}

func TestConfig_Invalid(t *testing.T) {
	dir := workspace(t, map[string]string{
		"mago.toml": "[linter.rules.no-such-rule]\nenabled = false\n",
	})
	code, _, stderr := run(t, "config", "--workspace", dir)
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "unknown rule")
}

func TestLogLevel(t *testing.T) {
	dir := workspace(t, map[string]string{"a.php": cleanPHP})
	code, _, stderr := run(t, "check", "--workspace", dir, "--log-level", "info")
	assert.Equal(t, 0, code)
	assert.Contains(t, stderr, "source.loaded")

	code, _, stderr = run(t, "check", "--workspace", dir)
	assert.Equal(t, 0, code)
	assert.NotContains(t, stderr, "source.loaded")
}

func TestHelpTopics(t *testing.T) {
	code, stdout, _ := run(t, "help", "configuration")
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "[analyzer]")
	assert.Contains(t, stdout, "MAGO_ANALYZER_THREADS")

	code, stdout, _ = run(t, "help", "suppressing-issues")
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "@mago-expect")
}
