// Copyright © 2024 The Mago authors

package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/magophp/mago/lint"
)

const docWidth = 80

func newLintCommand(opts *rootOptions) *cobra.Command {
	var (
		copts   checkOptions
		list    bool
		explain string
		only    string
	)
	cmd := &cobra.Command{
		Use:   "lint [flags] [paths...]",
		Short: "Run lint rules on PHP source files",
		Long: `Run lint rules on PHP source files without semantic analysis.

Each rule is an independent check over the syntax tree.  Rules are enabled,
disabled, and configured in the [linter.rules] table of mago.toml.

Exit codes:
  0  No issue at or above --minimum-fail-level
  1  One or more such issues were reported
  2  Bad invocation or configuration

Rules:
` + lint.AnalyzerDoc(docWidth) + `Examples:
  mago lint                                 Lint the workspace
  mago lint src/                            Lint a directory
  mago lint --only=no-eval,class-name       Run only some rules
  mago lint --explain=no-eval               Describe a rule
  mago lint --list                          List the rules`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if list {
				for _, name := range lint.AnalyzerNames() {
					fmt.Fprintln(cmd.OutOrStdout(), name) //nolint:errcheck // best-effort
				}
				return nil
			}
			if explain != "" {
				a, ok := lint.Lookup(explain)
				if !ok {
					return fmt.Errorf("unknown rule: %s", explain)
				}
				_, err := fmt.Fprint(cmd.OutOrStdout(), lint.Explain(a, docWidth))
				return err
			}

			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}
			linter := cfg.NewLinter()
			if only != "" {
				analyzers, err := selectAnalyzers(only)
				if err != nil {
					return err
				}
				linter.Analyzers = analyzers
			}
			return runCheck(cmd, opts, &copts, cfg, newLintOnlyConfig(cfg, opts.log, linter), args)
		},
	}
	copts.addFlags(cmd)
	cmd.Flags().BoolVar(&list, "list", false,
		"List the available rules and exit.")
	cmd.Flags().StringVar(&explain, "explain", "",
		"Print the documentation of a rule and exit.")
	cmd.Flags().StringVar(&only, "only", "",
		"Comma-separated list of rules to run (default: all enabled).")
	cmd.Flags().Int("threads", 0, "Number of worker threads (0 means one per CPU).")
	cmd.Flags().BoolVar(&copts.fix, "fix", false,
		"Apply the safe fixes of reported issues and write the files back.")
	cmd.Flags().BoolVar(&copts.fixUnsafe, "unsafe", false,
		"With --fix, also apply fixes that may change behavior.")
	return cmd
}

// selectAnalyzers resolves a comma-separated list of rule names.
func selectAnalyzers(names string) ([]*lint.Analyzer, error) {
	var out []*lint.Analyzer
	seen := make(map[string]bool)
	for _, name := range strings.Split(names, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		a, ok := lint.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("unknown rule: %s", name)
		}
		if !seen[a.Name] {
			seen[a.Name] = true
			out = append(out, a)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("--only: no rules given")
	}
	return out, nil
}
