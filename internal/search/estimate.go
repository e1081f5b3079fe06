package search

import (
	"context"
	"fmt"
	"io"
)

// EstimateResult holds dry-run estimation results.
type EstimateResult struct {
	Query             string // redacted
	TotalCount        int
	TotalPages        int
	PagesToFetch      int
	RecordsUpperBound int
	Capped            bool
}

// Estimate fetches page 1 only and reports how much a full run would
// request. Unlike Collect, any first-page failure is returned.
func Estimate(ctx context.Context, source PageSource, q SearchQuery, pageCap int) (*EstimateResult, error) {
	pageCap = ClampPageCap(pageCap)

	first, err := source.FetchPage(ctx, q, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch first page: %w", err)
	}

	result := &EstimateResult{
		Query:      q.Redacted(),
		TotalCount: first.TotalCount,
		TotalPages: first.TotalPages,
	}

	result.PagesToFetch = first.TotalPages
	if result.PagesToFetch < 0 {
		result.PagesToFetch = 0
	}
	if result.PagesToFetch > pageCap {
		result.PagesToFetch = pageCap
		result.Capped = true
	}

	result.RecordsUpperBound = result.PagesToFetch * PerPage
	if result.TotalCount < result.RecordsUpperBound {
		result.RecordsUpperBound = result.TotalCount
	}

	return result, nil
}

// Display prints the dry-run plan.
func (r *EstimateResult) Display(w io.Writer) {
	fmt.Fprintf(w, "\n=== Dry-Run Fetch Plan ===\n\n")
	fmt.Fprintf(w, "Query: %s\n", r.Query)
	fmt.Fprintf(w, "  Matching companies: %d\n", r.TotalCount)
	fmt.Fprintf(w, "  Result pages: %d\n", r.TotalPages)
	fmt.Fprintf(w, "  Pages to fetch: %d", r.PagesToFetch)
	if r.Capped {
		fmt.Fprint(w, " (capped)")
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  Records (upper bound): %d\n", r.RecordsUpperBound)
	fmt.Fprintln(w, "\n=== End of Dry-Run ===")
	fmt.Fprintln(w, "\nNo file or store was written. Use 'run' command to execute.")
}
