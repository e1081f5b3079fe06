package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/corpfetch/internal/database"
	"github.com/dbsmedya/corpfetch/internal/search"
)

var dryrunCmd = &cobra.Command{
	Use:   "dry-run",
	Short: "Show what a run would fetch without writing anything",
	Long: `Dry-run requests only the first result page and reports what a run
would do, without writing the CSV file or the store.

The dry-run shows:
  - Total matching companies and result pages
  - Number of pages that would be fetched under the page cap
  - Upper bound on the number of records

Example:
  corpfetch dry-run --query smartt --max-pages 5`,
	RunE: runDryrun,
}

func init() {
	rootCmd.AddCommand(dryrunCmd)
}

func runDryrun(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, cancel := database.SetupSignalHandler(log)
	defer cancel()

	q := search.NewQuery(cfg.API.BaseURL, cfg.API.Query, cfg.API.Token, cfg.API.Version)
	log.Infow("Estimating fetch", "query", q.Redacted())

	result, err := search.Estimate(ctx, search.NewFetcher(cfg.API, log), q, cfg.API.MaxPages)
	if err != nil {
		if errors.Is(err, search.ErrAuth) {
			log.Critical("Authentication or rate limit failure during dry-run", "error", err)
			return err
		}
		return fmt.Errorf("estimation failed: %w", err)
	}

	result.Display(cmd.OutOrStdout())
	return nil
}
