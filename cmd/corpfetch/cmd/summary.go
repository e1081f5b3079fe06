package cmd

import (
	"fmt"
	"io"

	"github.com/gookit/color"

	"github.com/dbsmedya/corpfetch/internal/pipeline"
)

func heading(w io.Writer, title string) {
	fmt.Fprintf(w, "\n%s\n", color.Bold.Sprintf("=== %s ===", title))
}

func field(w io.Writer, label string, value interface{}) {
	fmt.Fprintf(w, "%s %v\n", color.Cyan.Sprint(label+":"), value)
}

// printFetchSummary reports the collect and export stages.
func printFetchSummary(w io.Writer, r *pipeline.Result) {
	heading(w, "Fetch Complete")
	field(w, "Query", r.Query)
	field(w, "Matching companies", r.TotalCount)
	pages := fmt.Sprintf("%d of %d", r.PagesFetched, r.TotalPages)
	if r.Capped {
		pages += " " + color.Yellow.Sprint("(capped)")
	}
	field(w, "Pages fetched", pages)
	if r.PagesFailed > 0 {
		field(w, "Pages failed", color.Red.Sprint(r.PagesFailed))
	}
	field(w, "Records", r.RecordsFetched)
	if r.Duplicates > 0 {
		field(w, "Duplicates skipped", r.Duplicates)
	}
	field(w, "CSV file", fmt.Sprintf("%s (%d rows)", r.CSVFile, r.RowsExported))
}

// printLoadSummary reports the load and verify stages.
func printLoadSummary(w io.Writer, r *pipeline.Result) {
	heading(w, "Load Complete")
	field(w, "Table", r.Table)
	field(w, "Rows read", r.RowsRead)
	field(w, "Rows inserted", r.RowsInserted)
	if r.RowsSkipped > 0 {
		field(w, "Rows skipped", color.Yellow.Sprint(r.RowsSkipped))
	}
	field(w, "Commits", r.Commits)
	if r.Verified {
		field(w, "Verification", color.Green.Sprint("passed"))
	} else {
		field(w, "Verification", "skipped")
	}
}

func printDuration(w io.Writer, r *pipeline.Result) {
	field(w, "Duration", r.Duration)
}
