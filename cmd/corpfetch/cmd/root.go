package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/gookit/color"
	"github.com/spf13/cobra"

	"github.com/dbsmedya/corpfetch/internal/config"
	"github.com/dbsmedya/corpfetch/internal/logger"
	"github.com/dbsmedya/corpfetch/internal/search"
)

// Version information (set via ldflags at build time)
var (
	Version = "0.0.1-dev"
	Commit  = "unknown"
)

// CLI flags that override config file values
var (
	cfgFile   string
	logLevel  string
	logFormat string
	query     string
	maxPages  int
	csvFile   string
	storePath string
	table     string
)

var rootCmd = &cobra.Command{
	Use:   "corpfetch",
	Short: "Company registry search exporter and loader",
	Long: `A CLI tool that pages through a company registry search API, writes
the matching companies to a CSV file and loads that file into a
single-table relational store.

Features:
  - Bounded pagination with a hard page cap
  - Retry with exponential backoff for transient failures
  - Deduplication by jurisdiction and company number
  - SQLite, MySQL and PostgreSQL stores
  - Row count verification after load`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// a rejected credential was already logged at critical severity
		if !errors.Is(err, search.ErrAuth) {
			fmt.Fprintln(os.Stderr, color.Red.Sprint("Error: ")+err.Error())
		}
		os.Exit(1)
	}
}

func init() {
	// Config file flag
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "corpfetch.yaml",
		"Path to configuration file")

	// Logging overrides
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Override log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "",
		"Override log format (json, text)")

	// Search overrides
	rootCmd.PersistentFlags().StringVarP(&query, "query", "q", "",
		"Override search term")
	rootCmd.PersistentFlags().IntVar(&maxPages, "max-pages", 0,
		"Override page cap (1-100)")

	// Output overrides
	rootCmd.PersistentFlags().StringVar(&csvFile, "csv", "",
		"Override CSV file path")
	rootCmd.PersistentFlags().StringVar(&storePath, "store", "",
		"Override SQLite store path")
	rootCmd.PersistentFlags().StringVar(&table, "table", "",
		"Override store table name")
}

// GetConfigFile returns the config file path
func GetConfigFile() string {
	return cfgFile
}

// CLIOverrides contains flag values that override config file settings
type CLIOverrides struct {
	LogLevel  string
	LogFormat string
	Query     string
	MaxPages  int
	CSVFile   string
	StorePath string
	Table     string
}

// GetCLIOverrides returns the CLI flag override values
func GetCLIOverrides() CLIOverrides {
	return CLIOverrides{
		LogLevel:  logLevel,
		LogFormat: logFormat,
		Query:     query,
		MaxPages:  maxPages,
		CSVFile:   csvFile,
		StorePath: storePath,
		Table:     table,
	}
}

// loadConfig reads the config file, applies CLI overrides, validates the
// result and builds the logger.
func loadConfig() (*config.Config, *logger.Logger, error) {
	configFile := GetConfigFile()

	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	o := GetCLIOverrides()
	cfg.ApplyOverrides(o.LogLevel, o.LogFormat, o.Query, o.MaxPages, o.CSVFile, o.StorePath, o.Table)

	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, log, nil
}
