package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/corpfetch/internal/database"
	"github.com/dbsmedya/corpfetch/internal/pipeline"
	"github.com/dbsmedya/corpfetch/internal/search"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch search results into the CSV file only",
	Long: `Fetch pages through the search results and writes them to the CSV
file without touching the store.

Example:
  corpfetch fetch --query smartt --csv results.csv`,
	RunE: runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, cancel := database.SetupSignalHandler(log)
	defer cancel()

	p, err := pipeline.New(cfg, search.NewFetcher(cfg.API, log), nil, log)
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}

	result, err := p.Fetch(ctx)
	if err != nil {
		if errors.Is(err, search.ErrAuth) {
			return err
		}
		if errors.Is(err, context.Canceled) {
			log.Warn("Fetch cancelled by user")
			return nil
		}
		return fmt.Errorf("fetch failed: %w", err)
	}

	printFetchSummary(cmd.OutOrStdout(), result)
	printDuration(cmd.OutOrStdout(), result)
	return nil
}
