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

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fetch search results and load them into the store",
	Long: `Run executes the full pipeline for the configured query.

The run follows these steps:
  1. Fetch page 1 and read the total page count
  2. Fetch the remaining pages up to the page cap
  3. Write every collected company to the CSV file
  4. Create the store table if needed and load the CSV file
  5. Verify the table row count

An authentication or rate limit failure (HTTP 403) aborts the run
before any file or store is written.

Example:
  corpfetch run --config corpfetch.yaml --query smartt`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, cancel := database.SetupSignalHandler(log)
	defer cancel()

	manager := database.NewManager(&cfg.Store, log)
	defer manager.Close()

	p, err := pipeline.New(cfg, search.NewFetcher(cfg.API, log), manager, log)
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}

	result, err := p.Run(ctx)
	if err != nil {
		if errors.Is(err, search.ErrAuth) {
			return err
		}
		if errors.Is(err, context.Canceled) {
			log.Warn("Run cancelled by user")
			return nil
		}
		return fmt.Errorf("run failed: %w", err)
	}

	out := cmd.OutOrStdout()
	printFetchSummary(out, result)
	printLoadSummary(out, result)
	printDuration(out, result)
	return nil
}
