// Copyright © 2024 The Mago authors

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/magophp/mago/config"
)

func newConfigCommand(opts *rootOptions) *cobra.Command {
	var defaults bool
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Print the configuration in mago.toml format, after merging the
configuration file, MAGO_ environment variables, and flags.

With --default the built-in defaults are printed instead, which is a
convenient starting point for a new mago.toml.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			if !defaults {
				var err error
				if cfg, err = opts.loadConfig(cmd); err != nil {
					return err
				}
			}
			return cfg.WriteTOML(cmd.OutOrStdout())
		},
	}
	cmd.Flags().BoolVar(&defaults, "default", false,
		"Print the built-in defaults, ignoring every configuration source.")
	addAnalyzerFlags(cmd)
	return cmd
}
