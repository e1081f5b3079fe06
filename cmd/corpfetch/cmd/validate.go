package cmd

import (
	"errors"
	"fmt"

	"github.com/gookit/color"
	"github.com/spf13/cobra"

	"github.com/dbsmedya/corpfetch/internal/config"
	"github.com/dbsmedya/corpfetch/internal/database"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration and check the store",
	Long: `Validate checks the configuration file and verifies the store can be
reached.

Checks performed:
  - Configuration syntax and required fields
  - Page cap, driver and table name
  - Store connectivity (server drivers, or an existing SQLite file)

Example:
  corpfetch validate --config corpfetch.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	configFile := GetConfigFile()

	heading(out, "Configuration Validation")
	field(out, "Config file", configFile)

	cfg, log, err := loadConfig()
	if err != nil {
		var verrs config.ValidationErrors
		if errors.As(err, &verrs) {
			for _, e := range verrs {
				fmt.Fprintf(out, "%s %s\n", color.Red.Sprint("✗"), e.Error())
			}
		}
		return err
	}
	defer log.Sync()

	fmt.Fprintf(out, "%s configuration is valid\n", color.Green.Sprint("✓"))
	field(out, "Query", cfg.API.Query)
	field(out, "Page cap", cfg.API.MaxPages)
	field(out, "Store", fmt.Sprintf("%s (%s)", cfg.Store.Driver, cfg.Store.Table))

	ctx, cancel := database.SetupSignalHandler(log)
	defer cancel()

	manager := database.NewManager(&cfg.Store, log)
	defer manager.Close()

	if !manager.StoreExists() {
		fmt.Fprintf(out, "%s store %s does not exist yet; it will be created on first load\n",
			color.Yellow.Sprint("!"), manager.Location())
		return nil
	}

	if err := manager.Connect(ctx); err != nil {
		fmt.Fprintf(out, "%s store connection failed\n", color.Red.Sprint("✗"))
		return err
	}
	if err := manager.Ping(ctx); err != nil {
		return err
	}
	fmt.Fprintf(out, "%s store %s is reachable\n", color.Green.Sprint("✓"), manager.Location())

	fmt.Fprintln(out, "\n=== Validation Complete ===")
	return nil
}
