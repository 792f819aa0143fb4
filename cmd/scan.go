package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/lukman83/campaign-scout/internal/models"
	"github.com/lukman83/campaign-scout/internal/pipeline"
	"github.com/lukman83/campaign-scout/internal/ui"
	"github.com/spf13/cobra"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan campaign ids and list hidden and public matches",
	Example: `  scout scan --session abc123 --days 05일,06일 --exclude 강아지,깔창
  scout scan --session abc123 --days 05일 --start 41000 --end 41500 --format table`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().StringSlice("days", nil, "Participation day or window tokens to match (e.g. 05일)")
	scanCmd.Flags().StringSlice("exclude", nil, "Keywords that exclude a product")
	scanCmd.Flags().Int("start", 0, "First id of an explicit range (skips discovery)")
	scanCmd.Flags().Int("end", 0, "Last id of an explicit range")
	scanCmd.Flags().IntSlice("skip-ids", nil, "Ids to leave out of the scan")
	scanCmd.Flags().String("format", "json", "Output format: json, table, lines, stream")
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	days, _ := cmd.Flags().GetStringSlice("days")
	exclude, _ := cmd.Flags().GetStringSlice("exclude")
	start, _ := cmd.Flags().GetInt("start")
	end, _ := cmd.Flags().GetInt("end")
	skipIDs, _ := cmd.Flags().GetIntSlice("skip-ids")
	format, _ := cmd.Flags().GetString("format")

	mode := pipeline.FullRange()
	if cmd.Flags().Changed("start") || cmd.Flags().Changed("end") {
		mode = pipeline.ExplicitRange(start, end)
	}

	req := pipeline.Request{
		Credential: models.Credential(cfg.Session),
		Filter:     models.FilterConfig{Windows: days, ExcludeKeywords: exclude},
		Range:      mode,
		ExcludeIDs: skipIDs,
	}
	if err := req.Validate(); err != nil {
		return err
	}

	scanner, cleanup, err := buildScanner()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()

	if format == "stream" {
		enc := json.NewEncoder(out)
		_, err := scanner.Scan(ctx, req, pipeline.SinkFunc(func(e pipeline.Event) {
			enc.Encode(e)
		}))
		return err
	}

	spin := ui.NewSpinner()
	spin.Start(fmt.Sprintf("Scanning campaigns (%s)...", mode))
	ctx = pipeline.WithProgress(ctx, spin.Update)
	result, err := scanner.Scan(ctx, req, pipeline.SinkFunc(func(e pipeline.Event) {
		switch e.Type {
		case pipeline.EventInit:
			spin.Update("Scanning campaigns...")
			spin.Progress(0, e.Total)
		case pipeline.EventProgress:
			spin.Progress(e.Done, e.Total)
		}
	}))
	spin.Stop()
	if err != nil && (result == nil || !errors.Is(err, context.Canceled)) {
		return fmt.Errorf("scan failed: %w", err)
	}
	if err != nil {
		logger.Warn("scan interrupted, printing partial result")
	}
	if result.LikelyInvalidCredential {
		logger.Warn("every page redirected to login; check the session cookie")
	}

	switch format {
	case "table":
		printResultTable(out, result)
	case "lines":
		printResultLines(out, result)
	default:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return err
		}
	}
	return nil
}
