// Copyright © 2024 The Mago authors

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/magophp/mago/config"
	"github.com/magophp/mago/diagnostic"
	"github.com/magophp/mago/interner"
	"github.com/magophp/mago/lint"
	"github.com/magophp/mago/pipeline"
	"github.com/magophp/mago/source"
)

// checkMode selects the phases a check command runs.
type checkMode struct {
	name    string
	analyze bool
	lint    bool
}

// checkOptions holds the flags of check, analyze, and lint.
type checkOptions struct {
	reportOptions
	fix       bool
	fixUnsafe bool
}

func newCheckCommand(opts *rootOptions, mode checkMode) *cobra.Command {
	var copts checkOptions
	short := "Analyze and lint PHP source files"
	if !mode.lint {
		short = "Analyze PHP source files"
	}
	cmd := &cobra.Command{
		Use:   mode.name + " [flags] [paths...]",
		Short: short,
		Long: short + `.

With no paths, the paths of the configuration are used, or the whole workspace
when none are configured.  Directories are searched recursively; a trailing
"/..." is accepted and ignored.

Exit codes:
  0  No issue at or above --minimum-fail-level
  1  One or more such issues were reported
  2  Bad invocation or configuration`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}
			pcfg := cfg.PipelineConfig(opts.log)
			pcfg.Analyze = mode.analyze
			if !mode.lint {
				pcfg.Linter = nil
			}
			return runCheck(cmd, opts, &copts, cfg, pcfg, args)
		},
	}
	copts.addFlags(cmd)
	addAnalyzerFlags(cmd)
	cmd.Flags().BoolVar(&copts.fix, "fix", false,
		"Apply the safe fixes of reported issues and write the files back.")
	cmd.Flags().BoolVar(&copts.fixUnsafe, "unsafe", false,
		"With --fix, also apply fixes that may change behavior.")
	return cmd
}

// loadSources reads the files selected by cfg, or by paths when given, into
// a new database.  Unreadable files are logged, reported once on stderr, and
// skipped.
func loadSources(cmd *cobra.Command, log *zap.Logger, cfg *config.Config, paths []string) (*source.Database, error) {
	lcfg := cfg.LoaderConfig()
	if len(paths) > 0 {
		expanded, err := expandArgs(paths)
		if err != nil {
			return nil, err
		}
		lcfg.Paths = expanded
	}
	loader, err := source.NewLoader(lcfg)
	if err != nil {
		return nil, err
	}
	db := source.NewDatabase(interner.New())
	files, loadErrs, err := loader.Load(db)
	if err != nil {
		return nil, err
	}
	for _, lerr := range loadErrs {
		log.Warn("source.skip", zap.String("path", lerr.Path), zap.Error(lerr.Err))
		fmt.Fprintf(cmd.ErrOrStderr(), "mago: skipping %s\n", lerr) //nolint:errcheck // best-effort
	}
	log.Info("source.loaded", zap.Int("files", len(files)), zap.String("workspace", loader.Workspace()))
	return db, nil
}

func runCheck(cmd *cobra.Command, opts *rootOptions, copts *checkOptions, cfg *config.Config, pcfg pipeline.Config, args []string) error {
	if err := copts.validate(); err != nil {
		return err
	}
	color, err := opts.colorMode()
	if err != nil {
		return err
	}
	db, err := loadSources(cmd, opts.log, cfg, args)
	if err != nil {
		return err
	}
	report, err := pipeline.New(db, pcfg).Run(cmd.Context())
	if err != nil {
		return err
	}
	opts.log.Info("check.done", zap.String("summary", summary(report.Issues)))

	issues := report.Issues
	if copts.fix {
		limit := diagnostic.Safe
		if copts.fixUnsafe {
			limit = diagnostic.Unsafe
		}
		written, fixed, err := applyFixes(db, issues, limit)
		if err != nil {
			return err
		}
		opts.log.Info("check.fixed", zap.Int("files", len(written)), zap.Int("issues", len(fixed)))
		for _, path := range written {
			fmt.Fprintf(cmd.ErrOrStderr(), "fixed %s\n", path) //nolint:errcheck // best-effort
		}
		issues = issues.Filter(func(i *diagnostic.Issue) bool { return !fixed[i] })
	}
	return copts.report(cmd, color, db, issues)
}

// applyFixes merges the fix plans of issues per file, applies every edit at
// or below limit, and writes the changed files.  A plan overlapping an
// earlier one is dropped whole.  It returns the paths written and the
// issues whose fix was applied.
func applyFixes(db *source.Database, issues *diagnostic.IssueCollection, limit diagnostic.Safety) ([]string, map[*diagnostic.Issue]bool, error) {
	var written []string
	fixed := make(map[*diagnostic.Issue]bool)
	for _, id := range issues.Files() {
		f, err := db.Get(id)
		if err != nil {
			return written, fixed, err
		}
		if f.Path == "" {
			continue
		}
		plan := &diagnostic.FixPlan{}
		var applied []*diagnostic.Issue
		for _, i := range issues.File(id) {
			if i.Fix.Len() == 0 || i.Fix.Safety() > limit {
				continue
			}
			edits := append(append([]diagnostic.Edit(nil), plan.Edits()...), i.Fix.Edits()...)
			if merged, err := diagnostic.NewFixPlan(edits...); err == nil {
				plan = merged
				applied = append(applied, i)
			}
		}
		if plan.Len() == 0 {
			continue
		}
		out := plan.Apply(f.Content, limit)
		if out == f.Content {
			continue
		}
		info, err := os.Stat(f.Path)
		if err != nil {
			return written, fixed, err
		}
		if err := os.WriteFile(f.Path, []byte(out), info.Mode().Perm()); err != nil {
			return written, fixed, err
		}
		written = append(written, f.Path)
		for _, i := range applied {
			fixed[i] = true
		}
	}
	return written, fixed, nil
}

// newLintOnlyConfig returns a pipeline configuration that only lints with
// linter.
func newLintOnlyConfig(cfg *config.Config, log *zap.Logger, linter *lint.Linter) pipeline.Config {
	pcfg := cfg.PipelineConfig(log)
	pcfg.Analyze = false
	pcfg.Linter = linter
	return pcfg
}
