// Copyright © 2024 The Mago authors

package pipeline

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opencensus.io/stats/view"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/magophp/mago/analysis"
	"github.com/magophp/mago/diagnostic"
	"github.com/magophp/mago/interner"
	"github.com/magophp/mago/lint"
	"github.com/magophp/mago/pragma"
	"github.com/magophp/mago/source"
)

func newDB(files map[string]string, cat source.Category) *source.Database {
	db := source.NewDatabase(interner.New())
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		db.Add(name, files[name], cat)
	}
	return db
}

func analyzeConfig() Config {
	return Config{Analyze: true, Settings: analysis.DefaultSettings(), Threads: 2}
}

func codes(c *diagnostic.IssueCollection) []string {
	out := c.Codes()
	sort.Strings(out)
	return out
}

func TestRun_CrossFileResolution(t *testing.T) {
	db := newDB(map[string]string{
		"a.php": `<?php
namespace App;
final class Greeter {
  public function greet(string $name): string { return "Hello " . $name; }
}
`,
		"b.php": `<?php
namespace App;
function main(): string { return (new Greeter())->greet("you"); }
`,
	}, source.UserDefined)
	report, err := New(db, analyzeConfig()).Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report.Issues.Codes())
	assert.Len(t, report.Files, 2)
	assert.True(t, report.Codebase.ClassExists("App\\Greeter"))
	assert.True(t, report.Codebase.ClassExists("Exception"), "prelude is indexed")
}

func TestRun_ReportsOnlyUserFiles(t *testing.T) {
	db := newDB(map[string]string{"vendor.php": `<?php echo UNDEFINED_IN_VENDOR;`}, source.External)
	db.Add("app.php", `<?php echo UNDEFINED_IN_APP;`, source.UserDefined)
	report, err := New(db, analyzeConfig()).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{analysis.CodeNonExistentConstant}, codes(report.Issues))
	require.Len(t, report.Files, 1)
	assert.Equal(t, "app.php", report.Files[0].Name)
}

func TestRun_ParseError(t *testing.T) {
	db := newDB(map[string]string{"bad.php": `<?php function (`}, source.UserDefined)
	report, err := New(db, Config{}).Run(context.Background())
	require.NoError(t, err)
	issues := report.Issues.All()
	require.NotEmpty(t, issues)
	assert.Equal(t, analysis.CodeParseError, issues[0].Code)
	assert.Equal(t, "syntax", issues[0].Category)
	assert.True(t, report.Issues.HasErrors())
}

func TestRun_PragmasAndUnusedDefinitions(t *testing.T) {
	db := newDB(map[string]string{"a.php": `<?php
class A {
  // @mago-expect analysis:unused-method
  private function orphan(): void {}
  private function helper(): void {}
  // @mago-expect analysis:unused-property
  private int $n = 1;
}
// @mago-ignore analysis:non-existent-constant
echo NOPE;
// @mago-expect analysis:non-existent-function
echo 1;
`}, source.UserDefined)
	report, err := New(db, analyzeConfig()).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{pragma.CodeUnfulfilledExpect, analysis.CodeUnusedMethod}, codes(report.Issues))
}

func TestRun_Linter(t *testing.T) {
	db := newDB(map[string]string{"a.php": `<?php
eval('1;');
// @mago-ignore lint:no-error-control-operator
$x = @strlen('a');
`}, source.UserDefined)
	cfg := Config{Linter: &lint.Linter{Analyzers: []*lint.Analyzer{lint.AnalyzerNoEval, lint.AnalyzerNoErrorControlOperator}}}
	report, err := New(db, cfg).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"no-eval"}, codes(report.Issues))
}

func TestRun_Taint(t *testing.T) {
	db := newDB(map[string]string{"a.php": `<?php
$cmd = $_GET['cmd'];
system($cmd);
`}, source.UserDefined)
	cfg := analyzeConfig()
	cfg.Settings.PerformTaintAnalysis = true
	report, err := New(db, cfg).Run(context.Background())
	require.NoError(t, err)
	assert.Contains(t, report.Issues.Codes(), analysis.CodeTaintedData)
	assert.NotEmpty(t, report.Result.DataFlow.Taints())
}

func TestRun_Cancelled(t *testing.T) {
	db := newDB(map[string]string{"a.php": `<?php echo 1;`}, source.UserDefined)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(db, analyzeConfig()).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_StackSizeBounds(t *testing.T) {
	db := newDB(nil, source.UserDefined)
	cfg := analyzeConfig()
	cfg.StackSize = 1 << 20
	_, err := New(db, cfg).Run(context.Background())
	assert.Error(t, err)
	cfg.StackSize = MaxStackSize
	_, err = New(db, cfg).Run(context.Background())
	assert.NoError(t, err)
}

func TestRun_Deterministic(t *testing.T) {
	src := map[string]string{
		"a.php": `<?php function f(int $a): void {} f("x"); echo NOPE;`,
		"b.php": `<?php nope(); $y = 1 + "a";`,
		"c.php": `<?php class C extends Missing {}`,
	}
	run := func(threads int) []string {
		cfg := analyzeConfig()
		cfg.Threads = threads
		report, err := New(newDB(src, source.UserDefined), cfg).Run(context.Background())
		require.NoError(t, err)
		var out []string
		for _, i := range report.Issues.All() {
			out = append(out, i.String())
		}
		return out
	}
	assert.Equal(t, run(1), run(8))
}

func TestRun_Tracing(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := trace.NewTracerProvider(
		trace.WithSyncer(exporter),
		trace.WithSampler(trace.AlwaysSample()),
	)
	t.Cleanup(func() {
		err := tp.Shutdown(context.Background())
		assert.NoError(t, err, "TracerProvider shutdown")
	})
	otel.SetTracerProvider(tp)

	db := newDB(map[string]string{"a.php": `<?php echo 1;`}, source.UserDefined)
	_, err := New(db, analyzeConfig()).Run(context.Background())
	require.NoError(t, err)

	names := make(map[string]int)
	for _, s := range exporter.GetSpans() {
		names[s.Name]++
	}
	assert.Equal(t, 1, names["pipeline.run"])
	assert.Equal(t, 1, names["pipeline.index"])
	assert.Equal(t, 1, names["pipeline.analyze"])
	assert.Equal(t, 1, names["pipeline.analyze.file"])
	assert.Greater(t, names["pipeline.index.file"], 1, "prelude files are indexed too")
}

func TestRun_Metrics(t *testing.T) {
	require.NoError(t, view.Register(Views...))
	t.Cleanup(func() { view.Unregister(Views...) })

	db := newDB(map[string]string{"a.php": `<?php echo NOPE;`}, source.UserDefined)
	_, err := New(db, analyzeConfig()).Run(context.Background())
	require.NoError(t, err)

	rows, err := view.RetrieveData("mago/issues")
	require.NoError(t, err)
	require.NotEmpty(t, rows)
	rows, err = view.RetrieveData("mago/files")
	require.NoError(t, err)
	assert.Len(t, rows, 2, "one row per phase")
}

func TestRun_Logging(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	db := newDB(map[string]string{"a.php": `<?php echo 1;`}, source.UserDefined)
	cfg := analyzeConfig()
	cfg.Logger = zap.New(core)
	_, err := New(db, cfg).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, logs.FilterMessage("pipeline.index.done").Len())
	assert.Equal(t, 1, logs.FilterMessage("pipeline.analyze.done").Len())
	assert.Equal(t, 1, logs.FilterMessage("pipeline.done").Len())
}
