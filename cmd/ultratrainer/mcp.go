// ABOUTME: CLI command for starting the MCP server.
// ABOUTME: Runs stdio-based MCP for AI assistant integration.
package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/harperreed/ultratrainer/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP server",
	Long: `Start the Model Context Protocol (MCP) server for AI assistant integration.

The server communicates via stdin/stdout and exposes every tool listed by
'ultratrainer tools'. Each tool returns the same {status, result} or
{status, kind, message} envelope as the line protocol.

CLAUDE DESKTOP CONFIGURATION:

  {
    "mcpServers": {
      "ultratrainer": {
        "command": "ultratrainer",
        "args": ["mcp"]
      }
    }
  }

AVAILABLE RESOURCES:

  coach://profile    Athlete profile
  coach://goals      All goals by target date
  coach://context    Profile, active goals, recent episodes and conversation`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		registry, err := newRegistry(ctx)
		if err != nil {
			return err
		}

		server := mcp.NewServer(registry,
			mcp.WithLogger(logger),
			mcp.WithVersion(version),
		)
		return server.Serve(ctx)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
