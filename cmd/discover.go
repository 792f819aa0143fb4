package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lukman83/campaign-scout/internal/models"
	"github.com/lukman83/campaign-scout/internal/pipeline"
	"github.com/lukman83/campaign-scout/internal/ui"
	"github.com/spf13/cobra"
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "List publicly advertised campaign ids and the range a full scan would cover",
	RunE:  runDiscover,
}

func init() {
	rootCmd.AddCommand(discoverCmd)
}

type discoverOutput struct {
	Range     models.ScanRange `json:"range"`
	PublicIDs []int            `json:"public_ids"`
}

func runDiscover(cmd *cobra.Command, args []string) error {
	if cfg.Session == "" {
		return pipeline.ErrMissingCredential
	}

	scanner, cleanup, err := buildScanner()
	if err != nil {
		return err
	}
	defer cleanup()

	spin := ui.NewSpinner()
	spin.Start("Discovering public campaigns...")
	ctx := pipeline.WithProgress(context.Background(), spin.Update)
	res, err := scanner.Resolve(ctx, pipeline.FullRange(), models.Credential(cfg.Session))
	spin.Stop()
	if err != nil {
		return fmt.Errorf("discover failed: %w", err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(discoverOutput{Range: res.Range, PublicIDs: res.Public.Sorted()})
}
