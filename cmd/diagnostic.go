// Copyright © 2024 The Mago authors

package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/magophp/mago/diagnostic"
	"github.com/magophp/mago/source"
)

// reportOptions selects how issues are written and which level fails the
// command.
type reportOptions struct {
	format    string
	target    string
	failLevel string
}

func (r *reportOptions) addFlags(cmd *cobra.Command) {
	formats := make([]string, len(diagnostic.Formats))
	for i, f := range diagnostic.Formats {
		formats[i] = string(f)
	}
	cmd.Flags().StringVar(&r.format, "reporting-format", string(diagnostic.FormatRich),
		"Output format: "+strings.Join(formats, ", ")+".")
	cmd.Flags().StringVar(&r.target, "reporting-target", "stdout",
		`Where issues are written: "stdout" or "stderr".`)
	cmd.Flags().StringVar(&r.failLevel, "minimum-fail-level", "error",
		`Lowest level that makes the command fail: "help", "note", "warning", or "error".`)
}

// writer returns the stream selected by --reporting-target.
func (r *reportOptions) writer(cmd *cobra.Command) (io.Writer, error) {
	switch r.target {
	case "stdout":
		return cmd.OutOrStdout(), nil
	case "stderr":
		return cmd.ErrOrStderr(), nil
	}
	return nil, fmt.Errorf("unknown reporting target %q", r.target)
}

// validate checks the flags before any work is done.
func (r *reportOptions) validate() error {
	if _, err := diagnostic.ParseFormat(r.format); err != nil {
		return err
	}
	if r.target != "stdout" && r.target != "stderr" {
		return fmt.Errorf("unknown reporting target %q", r.target)
	}
	_, err := diagnostic.ParseLevel(r.failLevel)
	return err
}

// report writes issues and returns errIssuesFound when one of them is at
// or above the failure level.
func (r *reportOptions) report(cmd *cobra.Command, color diagnostic.ColorMode, db *source.Database, issues *diagnostic.IssueCollection) error {
	format, err := diagnostic.ParseFormat(r.format)
	if err != nil {
		return err
	}
	failLevel, err := diagnostic.ParseLevel(r.failLevel)
	if err != nil {
		return err
	}
	w, err := r.writer(cmd)
	if err != nil {
		return err
	}
	reporter := &diagnostic.Reporter{Format: format, Color: color, Files: db}
	if err := reporter.Report(w, issues); err != nil {
		return err
	}
	for _, i := range issues.All() {
		if i.Level >= failLevel {
			return errIssuesFound
		}
	}
	return nil
}

// summary returns a one-line count of issues by level.
func summary(issues *diagnostic.IssueCollection) string {
	if issues.Len() == 0 {
		return "No issues found."
	}
	var parts []string
	for _, level := range []diagnostic.Level{diagnostic.LevelError, diagnostic.LevelWarning, diagnostic.LevelNote, diagnostic.LevelHelp} {
		if n := issues.Count(level); n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, level))
		}
	}
	return "Found " + strings.Join(parts, ", ") + "."
}
