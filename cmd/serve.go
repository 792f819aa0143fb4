package cmd

import (
	"fmt"

	mcpserver "github.com/lukman83/campaign-scout/mcp"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start MCP stdio server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	scanner, cleanup, err := buildScanner()
	if err != nil {
		return err
	}
	defer cleanup()

	fmt.Fprintln(cmd.ErrOrStderr(), "Starting Campaign Scout MCP server on stdio...")

	if err := mcpserver.Serve(mcpserver.Deps{
		Scanner:        scanner,
		DefaultSession: cfg.Session,
		Logger:         logger,
	}); err != nil {
		return fmt.Errorf("MCP server: %w", err)
	}
	return nil
}
