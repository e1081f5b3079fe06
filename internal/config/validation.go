package config

import (
	"fmt"
	"strings"

	"github.com/dbsmedya/corpfetch/internal/sqlutil"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}

// Validate checks the configuration for required fields and valid values.
func (c *Config) Validate() error {
	var errors ValidationErrors

	errors = append(errors, c.validateAPI()...)
	errors = append(errors, c.validateOutput()...)
	errors = append(errors, c.validateStore()...)
	errors = append(errors, c.validateLoad()...)
	errors = append(errors, c.validateVerification()...)
	errors = append(errors, c.validateLogging()...)

	if len(errors) > 0 {
		return errors
	}
	return nil
}

func (c *Config) validateAPI() ValidationErrors {
	var errors ValidationErrors

	if c.API.BaseURL == "" {
		errors = append(errors, ValidationError{
			Field:   "api.base_url",
			Message: "base_url is required",
		})
	}

	if c.API.Version == "" {
		errors = append(errors, ValidationError{
			Field:   "api.version",
			Message: "version is required",
		})
	}

	if c.API.Query == "" {
		errors = append(errors, ValidationError{
			Field:   "api.query",
			Message: "query is required",
		})
	}

	if c.API.MaxPages <= 0 || c.API.MaxPages > MaxPages {
		errors = append(errors, ValidationError{
			Field:   "api.max_pages",
			Message: fmt.Sprintf("max_pages must be between 1 and %d", MaxPages),
		})
	}

	if c.API.TimeoutSeconds < 0 {
		errors = append(errors, ValidationError{
			Field:   "api.timeout_seconds",
			Message: "timeout_seconds cannot be negative",
		})
	}

	if c.API.Retry.MaxRetries < 0 {
		errors = append(errors, ValidationError{
			Field:   "api.retry.max_retries",
			Message: "max_retries cannot be negative",
		})
	}

	if c.API.Retry.InitialIntervalMS < 0 || c.API.Retry.MaxIntervalMS < 0 {
		errors = append(errors, ValidationError{
			Field:   "api.retry",
			Message: "retry intervals cannot be negative",
		})
	}

	return errors
}

func (c *Config) validateOutput() ValidationErrors {
	var errors ValidationErrors

	if c.Output.CSVFile == "" {
		errors = append(errors, ValidationError{
			Field:   "output.csv_file",
			Message: "csv_file is required",
		})
	}

	return errors
}

func (c *Config) validateStore() ValidationErrors {
	var errors ValidationErrors

	if !sqlutil.IsValidIdentifier(c.Store.Table) {
		errors = append(errors, ValidationError{
			Field:   "store.table",
			Message: "table must contain only alphanumeric characters and underscores",
		})
	}

	switch c.Store.Driver {
	case "sqlite":
		if c.Store.Path == "" {
			errors = append(errors, ValidationError{
				Field:   "store.path",
				Message: "path is required for the sqlite driver",
			})
		}
	case "mysql", "postgres":
		if c.Store.Host == "" {
			errors = append(errors, ValidationError{
				Field:   "store.host",
				Message: "host is required",
			})
		}
		if c.Store.Port <= 0 || c.Store.Port > 65535 {
			errors = append(errors, ValidationError{
				Field:   "store.port",
				Message: "port must be between 1 and 65535",
			})
		}
		if c.Store.User == "" {
			errors = append(errors, ValidationError{
				Field:   "store.user",
				Message: "user is required",
			})
		}
		if c.Store.Database == "" {
			errors = append(errors, ValidationError{
				Field:   "store.database",
				Message: "database name is required",
			})
		}
		validTLS := map[string]bool{"disable": true, "preferred": true, "required": true, "": true}
		if !validTLS[c.Store.TLS] {
			errors = append(errors, ValidationError{
				Field:   "store.tls",
				Message: "tls must be 'disable', 'preferred', or 'required'",
			})
		}
	default:
		errors = append(errors, ValidationError{
			Field:   "store.driver",
			Message: "driver must be 'sqlite', 'mysql', or 'postgres'",
		})
	}

	return errors
}

func (c *Config) validateLoad() ValidationErrors {
	var errors ValidationErrors

	if c.Load.CommitEvery <= 0 {
		errors = append(errors, ValidationError{
			Field:   "load.commit_every",
			Message: "commit_every must be positive",
		})
	}

	validPolicies := map[string]bool{"abort": true, "skip": true, "": true}
	if !validPolicies[c.Load.OnMalformed] {
		errors = append(errors, ValidationError{
			Field:   "load.on_malformed",
			Message: "on_malformed must be 'abort' or 'skip'",
		})
	}

	return errors
}

func (c *Config) validateVerification() ValidationErrors {
	var errors ValidationErrors

	validMethods := map[string]bool{"count": true, "skip": true, "": true}
	if !validMethods[c.Verification.Method] {
		errors = append(errors, ValidationError{
			Field:   "verification.method",
			Message: "method must be 'count' or 'skip'",
		})
	}

	return errors
}

func (c *Config) validateLogging() ValidationErrors {
	var errors ValidationErrors

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true, "": true}
	if !validLevels[c.Logging.Level] {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Message: "level must be 'debug', 'info', 'warn', or 'error'",
		})
	}

	validFormats := map[string]bool{"json": true, "text": true, "": true}
	if !validFormats[c.Logging.Format] {
		errors = append(errors, ValidationError{
			Field:   "logging.format",
			Message: "format must be 'json' or 'text'",
		})
	}

	if c.Logging.Rotate.Enabled && c.Logging.Rotate.MaxSizeMB <= 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.rotate.max_size_mb",
			Message: "max_size_mb must be positive when rotation is enabled",
		})
	}

	return errors
}
