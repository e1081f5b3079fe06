package search

import (
	"context"
	"errors"

	"github.com/dbsmedya/corpfetch/internal/config"
	"github.com/dbsmedya/corpfetch/internal/logger"
	"github.com/dbsmedya/corpfetch/internal/types"
)

// ProgressFunc is called after every page with the cumulative record count.
type ProgressFunc func(page, totalPages, records int)

// CollectStats summarizes one collection run.
type CollectStats struct {
	TotalPages     int  // pages the run iterated over (after the cap)
	PagesFetched   int  // pages decoded successfully
	PagesFailed    int  // pages that failed recoverably
	RecordsFetched int  // records accepted into the result set
	Duplicates     int  // records dropped because their key was already seen
	Capped         bool // the API reported more pages than the cap allows
}

// Collector drives a PageSource across a bounded number of pages.
type Collector struct {
	source   PageSource
	log      *logger.Logger
	progress ProgressFunc
}

// NewCollector creates a new collector.
func NewCollector(source PageSource, log *logger.Logger) *Collector {
	if log == nil {
		log = logger.NewDefault()
	}
	return &Collector{source: source, log: log}
}

// OnProgress registers a callback invoked after each page.
func (c *Collector) OnProgress(fn ProgressFunc) {
	c.progress = fn
}

// ClampPageCap bounds a requested page cap to [1, config.MaxPages].
func ClampPageCap(pageCap int) int {
	if pageCap < 1 {
		return 1
	}
	if pageCap > config.MaxPages {
		return config.MaxPages
	}
	return pageCap
}

// Collect fetches page 1, then pages 2..min(total_pages, pageCap), and
// returns every record in page order.
//
// An ErrAuth failure on any page is returned immediately. Other page
// failures are logged and contribute no records; a failed first page
// yields an empty result set.
func (c *Collector) Collect(ctx context.Context, q SearchQuery, pageCap int) (*types.ResultSet, *CollectStats, error) {
	pageCap = ClampPageCap(pageCap)
	log := c.log.WithQuery(q.Term)

	rs := types.NewResultSet(q.Redacted())
	stats := &CollectStats{}
	seen := make(map[string]struct{})

	first, err := c.source.FetchPage(ctx, q, 1)
	if err != nil {
		if errors.Is(err, ErrAuth) {
			return nil, stats, err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, stats, ctxErr
		}
		stats.PagesFailed++
		log.Errorw("First page failed; continuing with an empty result set", "error", err)
		return rs, stats, nil
	}

	rs.TotalCount = first.TotalCount
	rs.TotalPages = first.TotalPages

	if first.TotalPages <= 0 {
		log.Infow("Search returned no results", "total_count", first.TotalCount)
		return rs, stats, nil
	}

	lastPage := first.TotalPages
	if lastPage > pageCap {
		lastPage = pageCap
		stats.Capped = true
		log.Warnw("Result pages exceed the page cap; later pages will not be fetched",
			"total_pages", first.TotalPages,
			"page_cap", pageCap)
	}
	stats.TotalPages = lastPage

	log.Infow("Collecting search results",
		"total_count", first.TotalCount,
		"total_pages", first.TotalPages,
		"pages_to_fetch", lastPage)

	stats.PagesFetched++
	c.accept(rs, stats, seen, first.Companies)
	c.report(log, 1, lastPage, rs.Len())

	for page := 2; page <= lastPage; page++ {
		if err := ctx.Err(); err != nil {
			return nil, stats, err
		}

		p, err := c.source.FetchPage(ctx, q, page)
		if err != nil {
			if errors.Is(err, ErrAuth) {
				return nil, stats, err
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, stats, ctxErr
			}
			stats.PagesFailed++
			log.WithPage(page).Errorw("Page fetch failed; page contributes no records", "error", err)
		} else {
			stats.PagesFetched++
			c.accept(rs, stats, seen, p.Companies)
		}

		c.report(log, page, lastPage, rs.Len())
	}

	return rs, stats, nil
}

// accept appends records, skipping ones whose key was already collected.
func (c *Collector) accept(rs *types.ResultSet, stats *CollectStats, seen map[string]struct{}, records []types.CompanyRecord) {
	for _, rec := range records {
		if key := rec.Key(); key != "" {
			if _, dup := seen[key]; dup {
				stats.Duplicates++
				duplicatesSkipped.Inc()
				continue
			}
			seen[key] = struct{}{}
		}
		if err := rs.Append(rec); err != nil {
			// only a frozen set refuses appends, and this one is private
			c.log.Errorw("Failed to append record", "error", err)
			continue
		}
		stats.RecordsFetched++
		recordsCollected.Inc()
	}
}

func (c *Collector) report(log *logger.Logger, page, totalPages, records int) {
	log.Infow("Page processed",
		"page", page,
		"total_pages", totalPages,
		"records", records)
	if c.progress != nil {
		c.progress(page, totalPages, records)
	}
}
