package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/corpfetch/internal/database"
	"github.com/dbsmedya/corpfetch/internal/pipeline"
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load an existing CSV file into the store",
	Long: `Load reads the configured CSV file and inserts every row into the
store table, creating the table first if it does not exist. Rows are
appended; existing rows are never replaced.

Example:
  corpfetch load --csv results.csv --store out/database.db`,
	RunE: runLoad,
}

func init() {
	rootCmd.AddCommand(loadCmd)
}

func runLoad(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, cancel := database.SetupSignalHandler(log)
	defer cancel()

	manager := database.NewManager(&cfg.Store, log)
	defer manager.Close()

	p, err := pipeline.New(cfg, nil, manager, log)
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}

	result, err := p.Load(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Warn("Load cancelled by user")
			return nil
		}
		return fmt.Errorf("load failed: %w", err)
	}

	printLoadSummary(cmd.OutOrStdout(), result)
	printDuration(cmd.OutOrStdout(), result)
	return nil
}
