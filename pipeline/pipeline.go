// Copyright © 2024 The Mago authors

// Package pipeline drives a full run over a workspace in two parallel
// phases.  The index phase parses every file and scans its declarations; the
// per-file metadata is then merged and populated into a frozen codebase.
// The analyze phase re-parses each user-defined file and analyzes it against
// that codebase.  Each phase ends with a sequential reduce.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/magophp/mago/analysis"
	"github.com/magophp/mago/codebase"
	"github.com/magophp/mago/diagnostic"
	"github.com/magophp/mago/lint"
	"github.com/magophp/mago/names"
	"github.com/magophp/mago/parser"
	"github.com/magophp/mago/parser/ast"
	"github.com/magophp/mago/parser/rdparser"
	"github.com/magophp/mago/pragma"
	"github.com/magophp/mago/source"
)

const tracerName = "github.com/magophp/mago/pipeline"

// Stack budget bounds, in bytes.
const (
	MinStackSize     = 8 << 20
	DefaultStackSize = 36 << 20
	MaxStackSize     = 256 << 20
)

// Config controls a run.
type Config struct {
	// Analyze enables the analyze phase.  When false only parse errors,
	// indexing problems, and lint findings are reported.
	Analyze bool
	// Settings are passed to the analyzer.
	Settings analysis.Settings
	// Linter, when non-nil, runs over every user-defined file.
	Linter *lint.Linter
	// Threads bounds the worker pool.  Zero means the number of logical
	// CPUs.
	Threads int
	// StackSize is the maximum goroutine stack in bytes.  Zero means
	// DefaultStackSize.
	StackSize int
	// Logger receives progress events.  Nil disables logging.
	Logger *zap.Logger
}

// Report is the outcome of a run.
type Report struct {
	// Issues holds every reported issue after pragma suppression.
	Issues *diagnostic.IssueCollection
	// Codebase is the populated index of every file, builtins included.
	Codebase *codebase.Codebase
	// Result holds the reduced symbol references and data-flow graph.
	Result *analysis.Result
	// Files are the user-defined files that were analyzed.
	Files []*source.File
}

// Pipeline runs the phases over the files of a database.
type Pipeline struct {
	db     *source.Database
	cfg    Config
	log    *zap.Logger
	tracer trace.Tracer
}

// New returns a pipeline over db.
func New(db *source.Database, cfg Config) *Pipeline {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{
		db:     db,
		cfg:    cfg,
		log:    log,
		tracer: otel.GetTracerProvider().Tracer(tracerName),
	}
}

func (p *Pipeline) threads() int {
	if p.cfg.Threads > 0 {
		return p.cfg.Threads
	}
	return runtime.NumCPU()
}

// indexed is the output of the index phase for one file.
type indexed struct {
	meta   *codebase.Codebase
	issues *diagnostic.IssueCollection
}

// analyzed is the output of the analyze phase for one file.
type analyzed struct {
	result  *analysis.Result
	pragmas *pragma.Set
}

// Run indexes every file of the database, builtins included, and analyzes
// the user-defined ones.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	stack := p.cfg.StackSize
	if stack == 0 {
		stack = DefaultStackSize
	}
	if stack < MinStackSize || stack > MaxStackSize {
		return nil, fmt.Errorf("stack size %d out of range [%d, %d]", stack, MinStackSize, MaxStackSize)
	}
	defer debug.SetMaxStack(debug.SetMaxStack(stack))

	ctx, span := p.tracer.Start(ctx, "pipeline.run")
	defer span.End()

	if _, err := analysis.AddPrelude(p.db); err != nil {
		return nil, err
	}
	files := p.db.Files()
	span.SetAttributes(attribute.Int("mago.files", len(files)))

	cb, issues, err := p.index(ctx, files)
	if err != nil {
		return nil, err
	}

	report := &Report{
		Issues:   issues,
		Codebase: cb,
		Result:   analysis.NewResult(),
		Files:    p.db.FilesIn(source.UserDefined),
	}
	if err := p.analyze(ctx, cb, report); err != nil {
		return nil, err
	}
	recordIssues(ctx, report.Issues)
	p.log.Info("pipeline.done",
		zap.Int("files", len(report.Files)),
		zap.Int("issues", report.Issues.Len()))
	return report, nil
}

func (p *Pipeline) index(ctx context.Context, files []*source.File) (*codebase.Codebase, *diagnostic.IssueCollection, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.index")
	defer span.End()
	start := time.Now()

	results := make([]indexed, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.threads())
	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = p.indexFile(gctx, f)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	// Merge in database order so duplicate definitions resolve the same
	// way on every run.
	cb := codebase.New()
	issues := &diagnostic.IssueCollection{}
	for _, r := range results {
		cb.Merge(r.meta)
		issues.Extend(r.issues)
	}
	cb.Populate()
	issues.Extend(cb.Issues)

	elapsed := time.Since(start)
	recordPhase(ctx, phaseIndex, len(files), elapsed)
	p.log.Debug("pipeline.index.done",
		zap.Int("files", len(files)),
		zap.Int("classes", len(cb.Classes)),
		zap.Duration("elapsed", elapsed))
	return cb, issues, nil
}

func (p *Pipeline) indexFile(ctx context.Context, f *source.File) (out indexed) {
	_, span := p.tracer.Start(ctx, "pipeline.index.file", trace.WithAttributes(attribute.String("mago.file", f.Name)))
	defer span.End()

	out.issues = &diagnostic.IssueCollection{}
	out.meta = codebase.New()
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("pipeline.index.panic", zap.String("file", f.Name), zap.Any("panic", r))
			out.meta = codebase.New()
			out.issues.Add(internalError(f, r))
		}
	}()

	prog, err := parser.Parse(f)
	if err != nil && f.Category == source.UserDefined {
		out.issues.Add(parseError(f, err))
	}
	n := names.Resolve(p.db.Interner(), prog)
	out.meta = codebase.Scan(f, prog, n)
	return out
}

func (p *Pipeline) analyze(ctx context.Context, cb *codebase.Codebase, report *Report) error {
	ctx, span := p.tracer.Start(ctx, "pipeline.analyze")
	defer span.End()
	start := time.Now()

	files := report.Files
	results := make([]analyzed, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.threads())
	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r, err := p.analyzeFile(gctx, cb, f)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	sets := make(map[source.FileID]*pragma.Set, len(files))
	for i, r := range results {
		report.Result.Extend(r.result)
		sets[files[i].ID] = r.pragmas
	}
	keep := func(i *diagnostic.Issue) bool {
		s, ok := sets[i.File()]
		return !ok || !s.Suppressed(i)
	}
	report.Issues = report.Issues.Filter(keep)
	report.Issues.Extend(report.Result.Issues.Filter(keep))

	if p.cfg.Analyze && p.cfg.Settings.FindUnusedDefinitions {
		report.Issues.Extend(analysis.FindUnusedDefinitions(cb, report.Result.References).Filter(keep))
	}
	for _, f := range files {
		for _, i := range sets[f.ID].Unfulfilled() {
			report.Issues.Add(i)
		}
	}

	elapsed := time.Since(start)
	recordPhase(ctx, phaseAnalyze, len(files), elapsed)
	p.log.Debug("pipeline.analyze.done",
		zap.Int("files", len(files)),
		zap.Int("issues", report.Issues.Len()),
		zap.Duration("elapsed", elapsed))
	return nil
}

// analyzeFile parses, analyzes, and lints f.  A panic is reported as an
// internal error on f; only lint failures abort the run.
func (p *Pipeline) analyzeFile(ctx context.Context, cb *codebase.Codebase, f *source.File) (out analyzed, err error) {
	_, span := p.tracer.Start(ctx, "pipeline.analyze.file", trace.WithAttributes(attribute.String("mago.file", f.Name)))
	defer span.End()

	out.result = analysis.NewResult()
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("pipeline.analyze.panic", zap.String("file", f.Name), zap.Any("panic", r))
			out.result = analysis.NewResult()
			out.result.Issues.Add(internalError(f, r))
			if out.pragmas == nil {
				out.pragmas = pragma.NewSet(f, &ast.Program{})
			}
		}
	}()

	prog, _ := parser.Parse(f)
	out.pragmas = pragma.NewSet(f, prog)
	if p.cfg.Analyze {
		n := names.Resolve(p.db.Interner(), prog)
		out.result = analysis.Analyze(f, prog, n, &analysis.Config{Codebase: cb, Settings: p.cfg.Settings})
	}
	if p.cfg.Linter != nil {
		issues, err := p.cfg.Linter.Lint(f, prog)
		if err != nil {
			return out, err
		}
		out.result.Issues.Extend(issues)
	}
	return out, nil
}

func parseError(f *source.File, err error) *diagnostic.Issue {
	span := source.Span{File: f.ID}
	msg := err.Error()
	var pe *rdparser.ParseError
	if errors.As(err, &pe) {
		span = pe.Span
		msg = pe.Message
	}
	return diagnostic.NewIssue(diagnostic.LevelError, "syntax", analysis.CodeParseError, msg).
		At(span, "syntax error")
}

func internalError(f *source.File, r any) *diagnostic.Issue {
	return diagnostic.NewIssue(diagnostic.LevelError, analysis.Category, analysis.CodeInternalError,
		fmt.Sprintf("Internal error while processing `%s`: %v", f.Name, r)).
		At(source.Span{File: f.ID}, "").
		WithNote("This is a bug. Please report it along with the file that triggered it.")
}
