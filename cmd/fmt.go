// Copyright © 2024 The Mago authors

package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/magophp/mago/formatter"
	"github.com/magophp/mago/source"
)

type fmtOptions struct {
	check  bool
	dryRun bool
	stdin  bool
}

func newFmtCommand(opts *rootOptions) *cobra.Command {
	var fopts fmtOptions
	cmd := &cobra.Command{
		Use:   "fmt [flags] [paths...]",
		Short: "Format PHP source files",
		Long: `Format PHP source files in place.

The formatter lowercases keywords and casts, trims trailing whitespace, caps
runs of blank lines, and ends every file with a single newline.  String
literals, heredocs, and inline HTML are left untouched.  Formatting is
idempotent.

Modes:
  (default)   Write formatted files back
  --check     List files that are not formatted and exit 1 if any
  --dry-run   Print a unified diff of the changes
  --stdin     Format standard input to standard output

Examples:
  mago fmt                     Format the workspace
  mago fmt src/                Format a directory
  mago fmt --check             Verify formatting in CI
  cat a.php | mago fmt --stdin`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if fopts.check && fopts.dryRun {
				return fmt.Errorf("--check and --dry-run are mutually exclusive")
			}
			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}
			settings := cfg.FormatterSettings()
			if fopts.stdin {
				if len(args) > 0 {
					return fmt.Errorf("--stdin takes no paths")
				}
				return fmtStdin(cmd, &settings)
			}
			db, err := loadSources(cmd, opts.log, cfg, args)
			if err != nil {
				return err
			}
			return fmtFiles(cmd, opts.log, &fopts, db.FilesIn(source.UserDefined), &settings)
		},
	}
	cmd.Flags().BoolVar(&fopts.check, "check", false,
		"List files whose formatting differs and exit 1 if any.")
	cmd.Flags().BoolVar(&fopts.dryRun, "dry-run", false,
		"Print a diff of the changes instead of writing files.")
	cmd.Flags().BoolVar(&fopts.stdin, "stdin", false,
		"Read source from stdin and write the formatted result to stdout.")
	return cmd
}

func fmtStdin(cmd *cobra.Command, settings *formatter.Settings) error {
	src, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return fmt.Errorf("reading stdin: %w", err)
	}
	out, err := formatter.Format(src, settings)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(out)
	return err
}

// fmtFiles formats files according to fopts.  Files that cannot be
// tokenized are reported and skipped.  It returns errIssuesFound when
// --check finds an unformatted file or any file failed to format.
func fmtFiles(cmd *cobra.Command, log *zap.Logger, fopts *fmtOptions, files []*source.File, settings *formatter.Settings) error {
	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()
	failed := false
	changed := 0
	for _, f := range files {
		out, err := formatter.FormatFile(f, settings)
		if err != nil {
			fmt.Fprintln(stderr, err) //nolint:errcheck // best-effort
			failed = true
			continue
		}
		if string(out) == f.Content {
			continue
		}
		changed++
		switch {
		case fopts.check:
			fmt.Fprintln(stdout, f.Name) //nolint:errcheck // best-effort
			failed = true
		case fopts.dryRun:
			if err := printUnifiedDiff(stdout, f.Name, f.Content, string(out)); err != nil {
				return err
			}
		default:
			info, err := os.Stat(f.Path)
			if err != nil {
				return err
			}
			if err := os.WriteFile(f.Path, out, info.Mode().Perm()); err != nil {
				return err
			}
		}
	}
	log.Info("fmt.done", zap.Int("files", len(files)), zap.Int("changed", changed))
	if failed {
		return errIssuesFound
	}
	return nil
}

func printUnifiedDiff(w io.Writer, name, original, formatted string) error {
	return difflib.WriteUnifiedDiff(w, difflib.UnifiedDiff{
		A:        difflib.SplitLines(original),
		B:        difflib.SplitLines(formatted),
		FromFile: name,
		ToFile:   name,
		Context:  3,
	})
}
