package cmd

import (
	"fmt"

	"github.com/gookit/color"
	"github.com/spf13/cobra"

	"github.com/dbsmedya/corpfetch/internal/database"
)

var initStoreCmd = &cobra.Command{
	Use:   "init-store",
	Short: "Create the store table without loading data",
	Long: `Init-store connects to the configured store and creates the company
table if it does not exist. An existing table is left untouched.

Example:
  corpfetch init-store --store out/database.db --table companies`,
	RunE: runInitStore,
}

func init() {
	rootCmd.AddCommand(initStoreCmd)
}

func runInitStore(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, cancel := database.SetupSignalHandler(log)
	defer cancel()

	manager := database.NewManager(&cfg.Store, log)
	defer manager.Close()

	if err := manager.EnsureStore(ctx, cfg.Store.Table); err != nil {
		return fmt.Errorf("failed to create store: %w", err)
	}

	count, err := manager.CountRows(ctx, cfg.Store.Table)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	heading(out, "Store Ready")
	field(out, "Driver", cfg.Store.Driver)
	field(out, "Location", manager.Location())
	field(out, "Table", cfg.Store.Table)
	field(out, "Rows", count)
	fmt.Fprintln(out, color.Green.Sprint("Store table is ready"))
	return nil
}
