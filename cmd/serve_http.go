package cmd

import (
	"fmt"

	mcpserver "github.com/lukman83/campaign-scout/mcp"
	"github.com/spf13/cobra"
)

var serveHTTPCmd = &cobra.Command{
	Use:   "serve-http",
	Short: "Start HTTP server (MCP and crawl endpoints)",
	Long: "Start the HTTP server for remote access: MCP on /mcp, batch scans on POST /crawl\n" +
		"and streamed scans (Server-Sent Events) on POST /crawl/stream.",
	RunE: runServeHTTP,
}

func init() {
	serveHTTPCmd.Flags().String("port", "", "HTTP port (default from $PORT or 8080)")
	rootCmd.AddCommand(serveHTTPCmd)
}

func runServeHTTP(cmd *cobra.Command, args []string) error {
	port := cfg.HTTPPort
	if p, _ := cmd.Flags().GetString("port"); p != "" {
		port = p
	}

	scanner, cleanup, err := buildScanner()
	if err != nil {
		return err
	}
	defer cleanup()

	return mcpserver.ServeHTTP(mcpserver.Deps{
		Scanner:        scanner,
		DefaultSession: cfg.Session,
		Logger:         logger,
	}, mcpserver.HTTPOptions{
		Addr:           fmt.Sprintf(":%s", port),
		APIKey:         cfg.APIKey,
		AllowedOrigins: cfg.AllowedOrigins,
	})
}
