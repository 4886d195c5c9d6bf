// Copyright © 2024 The Mago authors

// Package cmd implements the mago command line.
package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// errIssuesFound signals an exit code of 1 after issues were reported.
var errIssuesFound = errors.New("issues found")

// NewRootCommand returns the mago command with every subcommand attached.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{log: zap.NewNop()}
	rootCmd := &cobra.Command{
		Use:   "mago",
		Short: "Mago: a PHP static analyzer, linter, and formatter",
		Long: `Mago analyzes PHP source files. It infers the type of every expression,
reports semantic problems, runs lint rules, and formats source code.

Getting started:
  mago check                   Analyze and lint the workspace
  mago analyze src/            Run the analyzer only
  mago lint --list             List the lint rules
  mago fmt --check             Report files that are not formatted
  mago config                  Print the effective configuration
  mago repl                    Inspect inferred types interactively
  mago lsp                     Start the language server

Configuration is read from mago.toml in the workspace, then from MAGO_
environment variables (a .env file in the workspace is loaded first), then
from flags.  Later sources override earlier ones.

Suppress an issue on the following line with a comment:
  // @mago-ignore analysis:non-existent-function
  // @mago-expect lint:no-eval`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			log, err := newLogger(opts.logLevel, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			opts.log = log
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = opts.log.Sync()
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.configFile, "config", "",
		"Configuration file (default is mago.toml in the workspace).")
	rootCmd.PersistentFlags().StringVar(&opts.workspace, "workspace", ".",
		"Workspace root.")
	rootCmd.PersistentFlags().StringVar(&opts.color, "color", "auto",
		`Control colored output: "auto", "always", or "never".`)
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn",
		`Log level: "debug", "info", "warn", or "error".`)

	rootCmd.AddCommand(
		newCheckCommand(opts, checkMode{name: "check", analyze: true, lint: true}),
		newCheckCommand(opts, checkMode{name: "analyze", analyze: true}),
		newLintCommand(opts),
		newFmtCommand(opts),
		newConfigCommand(opts),
		newLSPCommand(opts),
		newReplCommand(opts),
	)
	rootCmd.AddCommand(helpTopics()...)
	return rootCmd
}

// Execute runs the command line and exits with its status.
// This is called by main.main().
func Execute() {
	os.Exit(Run(os.Args[1:], os.Stdout, os.Stderr))
}

// Run executes the command line args and returns the process exit code: 0
// on success, 1 when issues at the failure level were reported, and 2 when
// the command could not run.
func Run(args []string, stdout, stderr io.Writer) int {
	rootCmd := NewRootCommand()
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	err := rootCmd.Execute()
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errIssuesFound):
		return 1
	default:
		fmt.Fprintln(stderr, "mago:", err) //nolint:errcheck // best-effort error display
		return 2
	}
}
