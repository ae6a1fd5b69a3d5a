package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nvandessel/thoughtseed/internal/logging"
	"github.com/nvandessel/thoughtseed/internal/mcp"
)

func newMCPServerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp-server",
		Short: "Run as an MCP server over stdio",
		Long: `Serve the thoughtseed tools over the Model Context Protocol on stdin and
stdout. Logs go to stderr.

Tools: thoughtseed_generate, thoughtseed_sprout, thoughtseed_analyze,
thoughtseed_graph, thoughtseed_status.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")

			cfg, err := loadSettings(cmd)
			if err != nil {
				return err
			}

			server, err := mcp.NewServer(&mcp.Config{
				Name:     "thoughtseed",
				Version:  version,
				Root:     root,
				Settings: cfg,
				Logger:   logging.NewLogger(cfg.Logging.Level, os.Stderr),
			})
			if err != nil {
				return fmt.Errorf("failed to create MCP server: %w", err)
			}

			return server.Run(context.Background())
		},
	}
}
