// Copyright © 2024 The Mago authors

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/magophp/mago/lsp"
)

func newLSPCommand(opts *rootOptions) *cobra.Command {
	var (
		stdio bool
		port  int
	)
	cmd := &cobra.Command{
		Use:   "lsp [flags]",
		Short: "Start the language server",
		Long: `Start a Language Server Protocol server for PHP files.

The server publishes the issues of open documents as they change and offers
formatting, document symbols, folding ranges, and code actions that apply
fixes or insert @mago-ignore pragmas.

Transport modes:
  --stdio      Use stdin/stdout for LSP communication (default)
  --port N     Listen for an LSP client on TCP port N

When --config is given, that file is used for every workspace; otherwise
each workspace's own mago.toml is read on initialize.

Examples:
  mago lsp                           Start with stdio transport
  mago lsp --port 7998               Start with TCP on port 7998`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			serverOpts := []lsp.Option{lsp.WithLogger(opts.log)}
			if opts.configFile != "" {
				cfg, err := opts.loadConfig(cmd)
				if err != nil {
					return err
				}
				serverOpts = append(serverOpts, lsp.WithConfig(cfg))
			}
			srv := lsp.New(serverOpts...)

			if !stdio && port > 0 {
				addr := fmt.Sprintf("localhost:%d", port)
				opts.log.Info("lsp.listen", zap.String("addr", addr))
				return srv.RunTCP(addr)
			}
			return srv.RunStdio()
		},
	}
	cmd.Flags().BoolVar(&stdio, "stdio", false,
		"Use stdin/stdout for LSP communication (default behavior).")
	cmd.Flags().IntVar(&port, "port", 0,
		"TCP port for the LSP server (use instead of --stdio).")
	return cmd
}
