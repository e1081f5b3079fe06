// Package pipeline coordinates a corpfetch run: collect search result
// pages, export them to the flat file, load the flat file into the store
// and verify the load.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dbsmedya/corpfetch/internal/config"
	"github.com/dbsmedya/corpfetch/internal/database"
	"github.com/dbsmedya/corpfetch/internal/export"
	"github.com/dbsmedya/corpfetch/internal/logger"
	"github.com/dbsmedya/corpfetch/internal/search"
	"github.com/dbsmedya/corpfetch/internal/verifier"
)

// Result contains statistics and status of a pipeline run.
type Result struct {
	Query          string // redacted request URL
	CSVFile        string
	Table          string
	TotalCount     int
	TotalPages     int
	PagesFetched   int
	PagesFailed    int
	RecordsFetched int
	Duplicates     int
	Capped         bool
	RowsExported   int
	RowsRead       int64
	RowsInserted   int64
	RowsSkipped    int64
	Commits        int64
	Verified       bool
	StartedAt      time.Time
	CompletedAt    time.Time
	Duration       time.Duration
}

// Pipeline runs the fetch and load stages for one configured query.
type Pipeline struct {
	config   *config.Config
	source   search.PageSource
	manager  *database.Manager
	logger   *logger.Logger
	progress search.ProgressFunc
}

// New creates a pipeline. source may be nil for load-only use; manager may
// be nil for fetch-only use.
func New(cfg *config.Config, source search.PageSource, manager *database.Manager, log *logger.Logger) (*Pipeline, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}
	if log == nil {
		log = logger.NewDefault()
	}
	return &Pipeline{
		config:  cfg,
		source:  source,
		manager: manager,
		logger:  log,
	}, nil
}

// OnProgress registers a callback invoked after each fetched page.
func (p *Pipeline) OnProgress(fn search.ProgressFunc) {
	p.progress = fn
}

// Query builds the search query from configuration.
func (p *Pipeline) Query() search.SearchQuery {
	return search.NewQuery(p.config.API.BaseURL, p.config.API.Query, p.config.API.Token, p.config.API.Version)
}

// Run executes collect, export, load and verify in order. A rejected
// credential stops the run before anything is written.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	result := p.newResult()
	defer p.finish(result)

	p.logger.Infow("Starting run",
		"query", p.config.API.Query,
		"max_pages", p.config.API.MaxPages,
		"csv_file", p.config.Output.CSVFile,
		"store", p.config.Store.Driver,
		"table", p.config.Store.Table,
	)

	if err := p.fetch(ctx, result); err != nil {
		return result, err
	}
	if err := p.load(ctx, result); err != nil {
		return result, err
	}

	p.writeMetrics()
	return result, nil
}

// Fetch collects all pages and writes the flat file.
func (p *Pipeline) Fetch(ctx context.Context) (*Result, error) {
	result := p.newResult()
	defer p.finish(result)

	if err := p.fetch(ctx, result); err != nil {
		return result, err
	}
	p.writeMetrics()
	return result, nil
}

// Load loads the configured flat file into the store and verifies it.
func (p *Pipeline) Load(ctx context.Context) (*Result, error) {
	result := p.newResult()
	defer p.finish(result)

	if err := p.load(ctx, result); err != nil {
		return result, err
	}
	p.writeMetrics()
	return result, nil
}

func (p *Pipeline) newResult() *Result {
	return &Result{
		CSVFile:   p.config.Output.CSVFile,
		Table:     p.config.Store.Table,
		StartedAt: time.Now(),
	}
}

func (p *Pipeline) finish(result *Result) {
	result.CompletedAt = time.Now()
	result.Duration = result.CompletedAt.Sub(result.StartedAt)
}

func (p *Pipeline) fetch(ctx context.Context, result *Result) error {
	if p.source == nil {
		return fmt.Errorf("page source is nil")
	}

	q := p.Query()
	result.Query = q.Redacted()

	collector := search.NewCollector(p.source, p.logger)
	if p.progress != nil {
		collector.OnProgress(p.progress)
	}

	rs, stats, err := collector.Collect(ctx, q, p.config.API.MaxPages)
	if stats != nil {
		result.TotalPages = stats.TotalPages
		result.PagesFetched = stats.PagesFetched
		result.PagesFailed = stats.PagesFailed
		result.RecordsFetched = stats.RecordsFetched
		result.Duplicates = stats.Duplicates
		result.Capped = stats.Capped
	}
	if err != nil {
		if errors.Is(err, search.ErrAuth) {
			p.logAuthFailure(err)
			return err
		}
		return fmt.Errorf("collect failed: %w", err)
	}
	result.TotalCount = rs.TotalCount

	rows, err := export.WriteCSV(rs, p.config.Output.CSVFile)
	if err != nil {
		return err
	}
	result.RowsExported = rows

	p.logger.Infow("Flat file written", "file", p.config.Output.CSVFile, "rows", rows)
	return nil
}

func (p *Pipeline) logAuthFailure(err error) {
	fields := []interface{}{"error", err}
	var fe *search.FetchError
	if errors.As(err, &fe) {
		fields = append(fields, "page", fe.Page, "status", fe.StatusCode)
	}
	p.logger.Critical("Authentication or rate limit failure, aborting run", fields...)
}

func (p *Pipeline) load(ctx context.Context, result *Result) error {
	if p.manager == nil {
		return fmt.Errorf("store manager is nil")
	}
	defer func() {
		if err := p.manager.Close(); err != nil {
			p.logger.Warnw("Failed to close store", "error", err)
		}
	}()

	table := p.config.Store.Table
	if err := p.manager.EnsureStore(ctx, table); err != nil {
		return err
	}

	v, err := verifier.NewVerifier(p.manager.DB, p.manager.Dialect(), verifier.VerificationMethod(p.config.Verification.Method), p.logger)
	if err != nil {
		return err
	}

	var before int64
	if v.GetMethod() != verifier.MethodSkip {
		before, err = v.CountRows(ctx, table)
		if err != nil {
			return err
		}
	}

	loader, err := database.NewLoader(p.manager, table, p.config.Load, p.logger)
	if err != nil {
		return err
	}

	stats, err := loader.Load(ctx, p.config.Output.CSVFile)
	if stats != nil {
		result.RowsRead = stats.RowsRead
		result.RowsInserted = stats.RowsInserted
		result.RowsSkipped = stats.RowsSkipped
		result.Commits = stats.Commits
	}
	if err != nil {
		return err
	}

	verify, err := v.Verify(ctx, table, before, result.RowsInserted)
	if err != nil {
		return err
	}
	result.Verified = verify.Method != verifier.MethodSkip && verify.Match
	return nil
}

// writeMetrics dumps the default registry for the node-exporter textfile
// collector. Failures are logged, not returned.
func (p *Pipeline) writeMetrics() {
	path := p.config.Metrics.Textfile
	if path == "" {
		return
	}
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		p.logger.Warnw("Failed to write metrics textfile", "file", path, "error", err)
		return
	}
	p.logger.Debugw("Metrics textfile written", "file", path)
}
