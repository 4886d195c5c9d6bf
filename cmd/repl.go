// Copyright © 2024 The Mago authors

package cmd

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/magophp/mago/repl"
)

func newReplCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Inspect inferred types interactively",
		Long: `Start an interactive session that analyzes PHP statements as they are
entered and prints the inferred type of each expression.

Statements accumulate: functions, classes, and variables defined earlier
stay visible.  Input that produces an error is reported and discarded.
Nothing is executed.  Type :help for the session commands.

Example session:
  mago> 1 + 2
  int(3)
  mago> function twice(int $n): int { return $n * 2; }
  mago> twice(4)
  int
  mago> $s = strtoupper('a');
  mago> $s
  string`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}
			color, err := opts.colorMode()
			if err != nil {
				return err
			}
			return repl.Run(filepath.Base(os.Args[0])+"> ",
				repl.WithSettings(cfg.AnalysisSettings()),
				repl.WithColor(color),
				repl.WithLogger(opts.log),
				repl.WithStderr(cmd.ErrOrStderr()),
			)
		},
	}
}
