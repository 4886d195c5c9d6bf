// Copyright © 2024 The Mago authors

package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/magophp/mago/config"
	"github.com/magophp/mago/diagnostic"
)

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	configFile string
	workspace  string
	color      string
	logLevel   string

	// log is built from logLevel before any subcommand runs.
	log *zap.Logger
}

// configFlags maps configuration keys to the names of the flags that
// override them.  Flags not defined on a command are skipped.
var configFlags = map[string]string{
	"analyzer.threads":                 "threads",
	"analyzer.stack_size":              "stack-size",
	"analyzer.perform_taint_analysis":  "taint",
	"analyzer.find_unused_expressions": "find-unused-expressions",
	"analyzer.find_unused_definitions": "find-unused-definitions",
}

// loadConfig loads the configuration of the workspace, letting the flags
// set on cmd override it.
func (o *rootOptions) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	flags := make(map[string]*pflag.Flag)
	for key, name := range configFlags {
		if f := cmd.Flags().Lookup(name); f != nil {
			flags[key] = f
		}
	}
	cfg, err := config.Load(config.Options{
		Workspace: o.workspace,
		File:      o.configFile,
		Flags:     flags,
	})
	if err != nil {
		return nil, fmt.Errorf("configuration: %w", err)
	}
	return cfg, nil
}

func (o *rootOptions) colorMode() (diagnostic.ColorMode, error) {
	return diagnostic.ParseColorMode(o.color)
}

// newLogger builds a development logger writing to w at level.
func newLogger(level string, w io.Writer) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("--log-level: %w", err)
	}
	enc := zap.NewDevelopmentEncoderConfig()
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.AddSync(w), lvl)
	return zap.New(core), nil
}

// addAnalyzerFlags defines the flags that override analyzer settings.
func addAnalyzerFlags(cmd *cobra.Command) {
	cmd.Flags().Int("threads", 0, "Number of worker threads (0 means one per CPU).")
	cmd.Flags().Int("stack-size", 0, "Maximum stack size of a worker in bytes.")
	cmd.Flags().Bool("taint", false, "Report tainted data reaching a sink.")
	cmd.Flags().Bool("find-unused-expressions", true, "Report expressions and assignments whose value is never used.")
	cmd.Flags().Bool("find-unused-definitions", true, "Report private methods and properties that are never used.")
}
