// Copyright © 2024 The Mago authors

package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magophp/mago/analysis"
	"github.com/magophp/mago/diagnostic"
	"github.com/magophp/mago/pipeline"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, analysis.DefaultSettings(), cfg.AnalysisSettings())
	assert.Equal(t, pipeline.DefaultStackSize, cfg.Analyzer.StackSize)
	assert.Equal(t, 0, cfg.Analyzer.Threads)
	assert.Equal(t, []string{"php"}, cfg.Source.Extensions)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_NoFile(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(Options{Workspace: dir})
	require.NoError(t, err)
	assert.Equal(t, dir, cfg.Source.Workspace)
	assert.False(t, cfg.Analyzer.PerformTaintAnalysis)
	assert.True(t, cfg.Analyzer.AllowEmpty)
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, FileName, `
[source]
paths = ["src"]
excludes = ["src/generated/**"]

[analyzer]
allow_eval = false
perform_taint_analysis = true
threads = 4

[linter.rules.too-many-parameters]
threshold = 3
level = "error"

[linter.rules.no-eval]
enabled = false

[formatter]
max_blank_lines = 1
`)
	cfg, err := Load(Options{Workspace: dir})
	require.NoError(t, err)
	assert.Equal(t, []string{"src"}, cfg.Source.Paths)
	assert.Equal(t, []string{"src/generated/**"}, cfg.LoaderConfig().Excludes)

	settings := cfg.AnalysisSettings()
	assert.False(t, settings.AllowEval)
	assert.True(t, settings.PerformTaintAnalysis)
	assert.True(t, settings.FindUnusedDefinitions)
	assert.Equal(t, 4, cfg.PipelineConfig(nil).Threads)
	assert.Equal(t, 1, cfg.FormatterSettings().MaxBlankLines)

	rules := cfg.LintSettings()
	require.Contains(t, rules, "too-many-parameters")
	tmp := rules["too-many-parameters"]
	assert.True(t, tmp.Enabled)
	require.NotNil(t, tmp.Level)
	assert.Equal(t, diagnostic.LevelError, *tmp.Level)
	assert.Equal(t, 3, tmp.Int("threshold", 5))
	assert.False(t, rules["no-eval"].Enabled)
	assert.Len(t, cfg.NewLinter().Enabled(), len(cfg.NewLinter().Analyzers)-1)
}

func TestLoad_ExplicitFileMustExist(t *testing.T) {
	dir := t.TempDir()
	_, err := Load(Options{Workspace: dir, File: filepath.Join(dir, "other.toml")})
	assert.Error(t, err)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, FileName, "[analyzer]\nallow_empty = true\nthreads = 2\n")
	t.Setenv("MAGO_ANALYZER_ALLOW_EMPTY", "false")
	t.Setenv("MAGO_ANALYZER_THREADS", "3")
	cfg, err := Load(Options{Workspace: dir})
	require.NoError(t, err)
	assert.False(t, cfg.Analyzer.AllowEmpty)
	assert.Equal(t, 3, cfg.Analyzer.Threads)
}

func TestLoad_RootKey(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, FileName, "[source]\nroot = \"/srv/app\"\n")
	cfg, err := Load(Options{Workspace: dir})
	require.NoError(t, err)
	assert.Equal(t, "/srv/app", cfg.Source.Workspace)
	assert.Equal(t, "/srv/app", cfg.LoaderConfig().Workspace)

	writeFile(t, dir, FileName, "[source]\nroot = \"/srv/app\"\nworkspace = \"/srv/other\"\n")
	cfg, err = Load(Options{Workspace: dir})
	require.NoError(t, err)
	assert.Equal(t, "/srv/other", cfg.Source.Workspace)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".env", "MAGO_ANALYZER_MEMOIZE_PROPERTIES=false\n")
	t.Setenv("MAGO_ANALYZER_MEMOIZE_PROPERTIES", "")
	os.Unsetenv("MAGO_ANALYZER_MEMOIZE_PROPERTIES")
	cfg, err := Load(Options{Workspace: dir})
	require.NoError(t, err)
	assert.False(t, cfg.Analyzer.MemoizeProperties)
}

func TestLoad_FlagsOverrideEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("MAGO_ANALYZER_THREADS", "3")
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("threads", 0, "")
	flags.Bool("taint", false, "")
	require.NoError(t, flags.Parse([]string{"--threads=7"}))

	cfg, err := Load(Options{Workspace: dir, Flags: map[string]*pflag.Flag{
		"analyzer.threads":                flags.Lookup("threads"),
		"analyzer.perform_taint_analysis": flags.Lookup("taint"),
	}})
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Analyzer.Threads)
	assert.False(t, cfg.Analyzer.PerformTaintAnalysis, "unset flags fall through to defaults")
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"stack too small", "[analyzer]\nstack_size = 1024\n"},
		{"stack too large", "[analyzer]\nstack_size = 1073741824\n"},
		{"negative threads", "[analyzer]\nthreads = -1\n"},
		{"empty extensions", "[source]\nextensions = []\n"},
		{"negative blank lines", "[formatter]\nmax_blank_lines = -1\n"},
		{"unknown rule", "[linter.rules.no-such-rule]\nenabled = true\n"},
		{"bad level", "[linter.rules.no-eval]\nlevel = \"fatal\"\n"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, dir, FileName, test.content)
			_, err := Load(Options{Workspace: dir})
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestWriteTOML_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, FileName, `
[analyzer]
allow_include = false

[linter.rules.too-many-parameters]
threshold = 3
`)
	cfg, err := Load(Options{Workspace: dir})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, cfg.WriteTOML(&buf))

	var doc map[string]any
	_, err = toml.Decode(buf.String(), &doc)
	require.NoError(t, err)
	analyzer := doc["analyzer"].(map[string]any)
	assert.Equal(t, false, analyzer["allow_include"])
	assert.Equal(t, int64(pipeline.DefaultStackSize), analyzer["stack_size"])
	rules := doc["linter"].(map[string]any)["rules"].(map[string]any)
	rule := rules["too-many-parameters"].(map[string]any)
	assert.Equal(t, int64(3), rule["threshold"])
	assert.Equal(t, true, rule["enabled"])

	writeFile(t, dir, FileName, buf.String())
	again, err := Load(Options{Workspace: dir})
	require.NoError(t, err)
	assert.Equal(t, cfg.AnalysisSettings(), again.AnalysisSettings())
	assert.Equal(t, cfg.Analyzer, again.Analyzer)
}
