// Package config provides configuration structures and loading for corpfetch.
package config

import "time"

// MaxPages is the hard ceiling on result pages fetched in one run
// (100 pages of 100 records).
const MaxPages = 100

// Config represents the complete application configuration.
type Config struct {
	API          APIConfig          `yaml:"api" mapstructure:"api"`
	Output       OutputConfig       `yaml:"output" mapstructure:"output"`
	Store        StoreConfig        `yaml:"store" mapstructure:"store"`
	Load         LoadConfig         `yaml:"load" mapstructure:"load"`
	Verification VerificationConfig `yaml:"verification" mapstructure:"verification"`
	Logging      LoggingConfig      `yaml:"logging" mapstructure:"logging"`
	Metrics      MetricsConfig      `yaml:"metrics" mapstructure:"metrics"`
}

// APIConfig represents the company search API settings.
type APIConfig struct {
	BaseURL        string      `yaml:"base_url" mapstructure:"base_url"`
	Version        string      `yaml:"version" mapstructure:"version"`
	Token          string      `yaml:"token" mapstructure:"token"`
	Query          string      `yaml:"query" mapstructure:"query"`
	MaxPages       int         `yaml:"max_pages" mapstructure:"max_pages"`
	TimeoutSeconds int         `yaml:"timeout_seconds" mapstructure:"timeout_seconds"` // 0 = no client timeout
	Retry          RetryConfig `yaml:"retry" mapstructure:"retry"`
}

// RetryConfig represents backoff settings for recoverable page failures.
type RetryConfig struct {
	MaxRetries        int `yaml:"max_retries" mapstructure:"max_retries"` // 0 disables retries
	InitialIntervalMS int `yaml:"initial_interval_ms" mapstructure:"initial_interval_ms"`
	MaxIntervalMS     int `yaml:"max_interval_ms" mapstructure:"max_interval_ms"`
}

// OutputConfig represents the flat file settings.
type OutputConfig struct {
	CSVFile string `yaml:"csv_file" mapstructure:"csv_file"`
}

// StoreConfig represents the relational store. Path is used by sqlite;
// the connection fields by mysql and postgres.
type StoreConfig struct {
	Driver   string `yaml:"driver" mapstructure:"driver"` // sqlite, mysql, postgres
	Path     string `yaml:"path" mapstructure:"path"`
	Table    string `yaml:"table" mapstructure:"table"`
	Host     string `yaml:"host" mapstructure:"host"`
	Port     int    `yaml:"port" mapstructure:"port"`
	User     string `yaml:"user" mapstructure:"user"`
	Password string `yaml:"password" mapstructure:"password"`
	Database string `yaml:"database" mapstructure:"database"`
	TLS      string `yaml:"tls" mapstructure:"tls"` // disable, preferred, required
}

// LoadConfig represents row loader settings.
type LoadConfig struct {
	CommitEvery int    `yaml:"commit_every" mapstructure:"commit_every"`
	OnMalformed string `yaml:"on_malformed" mapstructure:"on_malformed"` // abort or skip
}

// VerificationConfig represents post-load verification settings.
type VerificationConfig struct {
	Method string `yaml:"method" mapstructure:"method"` // "count" or "skip"
}

// LoggingConfig represents logging settings.
type LoggingConfig struct {
	Level  string       `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string       `yaml:"format" mapstructure:"format"` // json or text
	Output string       `yaml:"output" mapstructure:"output"` // stdout, stderr, or file path
	Rotate RotateConfig `yaml:"rotate" mapstructure:"rotate"`
}

// RotateConfig represents log file rotation; only used for file output.
type RotateConfig struct {
	Enabled    bool `yaml:"enabled" mapstructure:"enabled"`
	MaxSizeMB  int  `yaml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int  `yaml:"max_backups" mapstructure:"max_backups"`
	MaxAgeDays int  `yaml:"max_age_days" mapstructure:"max_age_days"`
	Compress   bool `yaml:"compress" mapstructure:"compress"`
}

// MetricsConfig represents metrics export settings.
type MetricsConfig struct {
	Textfile string `yaml:"textfile" mapstructure:"textfile"` // node-exporter textfile path, empty disables
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:  "https://api.opencorporates.com",
			Version:  "v0.4",
			MaxPages: MaxPages,
			Retry: RetryConfig{
				MaxRetries:        2,
				InitialIntervalMS: 500,
				MaxIntervalMS:     10000,
			},
		},
		Output: OutputConfig{
			CSVFile: "results.csv",
		},
		Store: StoreConfig{
			Driver: "sqlite",
			Path:   "database.db",
			Table:  "companies",
			TLS:    "preferred",
		},
		Load: LoadConfig{
			CommitEvery: 1,
			OnMalformed: "abort",
		},
		Verification: VerificationConfig{
			Method: "count",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
			Rotate: RotateConfig{
				MaxSizeMB:  100,
				MaxBackups: 5,
				MaxAgeDays: 28,
			},
		},
	}
}

// Timeout returns the per-request HTTP timeout; zero means none.
func (a APIConfig) Timeout() time.Duration {
	return time.Duration(a.TimeoutSeconds) * time.Second
}

// InitialInterval returns the first backoff interval.
func (r RetryConfig) InitialInterval() time.Duration {
	return time.Duration(r.InitialIntervalMS) * time.Millisecond
}

// MaxInterval returns the backoff interval ceiling.
func (r RetryConfig) MaxInterval() time.Duration {
	return time.Duration(r.MaxIntervalMS) * time.Millisecond
}

// DefaultPort returns the conventional port for a server driver.
func DefaultPort(driver string) int {
	switch driver {
	case "mysql":
		return 3306
	case "postgres":
		return 5432
	default:
		return 0
	}
}
