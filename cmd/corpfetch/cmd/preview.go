package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/dbsmedya/corpfetch/internal/config"
	"github.com/dbsmedya/corpfetch/internal/export"
)

var (
	previewRows     int
	previewColumns  []string
	previewMaxWidth int
)

var defaultPreviewColumns = []string{"name", "company_number", "jurisdiction_code", "incorporation_date", "current_status"}

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Print the first rows of the CSV file as a table",
	Long: `Preview reads the configured CSV file and prints the first rows as an
aligned table. Wide values (including CJK company names) are truncated by
display width.

Example:
  corpfetch preview --csv results.csv -n 20 --columns name,company_number`,
	RunE: runPreview,
}

func init() {
	previewCmd.Flags().IntVarP(&previewRows, "rows", "n", 10,
		"Number of rows to print")
	previewCmd.Flags().StringSliceVar(&previewColumns, "columns", defaultPreviewColumns,
		"Columns to print")
	previewCmd.Flags().IntVar(&previewMaxWidth, "max-width", 40,
		"Maximum display width of a cell")

	rootCmd.AddCommand(previewCmd)
}

func runPreview(cmd *cobra.Command, args []string) error {
	path, err := previewPath()
	if err != nil {
		return err
	}

	header, rows, err := export.ReadCSV(path, previewRows)
	if err != nil {
		return err
	}

	return renderTable(cmd.OutOrStdout(), header, rows, previewColumns, previewMaxWidth)
}

// previewPath resolves the CSV file from the --csv flag or the config file.
// Preview does not need a valid search configuration.
func previewPath() (string, error) {
	o := GetCLIOverrides()
	if o.CSVFile != "" {
		return o.CSVFile, nil
	}
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return "", fmt.Errorf("failed to load config: %w", err)
	}
	return cfg.Output.CSVFile, nil
}

// renderTable writes the selected columns of rows as an aligned table.
func renderTable(w io.Writer, header []string, rows [][]string, columns []string, maxWidth int) error {
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[h] = i
	}

	cols := make([]int, 0, len(columns))
	for _, c := range columns {
		i, ok := index[c]
		if !ok {
			return fmt.Errorf("unknown column %q", c)
		}
		cols = append(cols, i)
	}

	cell := func(row []string, i int) string {
		if i >= len(row) {
			return ""
		}
		return runewidth.Truncate(row[i], maxWidth, "…")
	}

	widths := make([]int, len(cols))
	for j, i := range cols {
		widths[j] = runewidth.StringWidth(header[i])
		for _, row := range rows {
			if n := runewidth.StringWidth(cell(row, i)); n > widths[j] {
				widths[j] = n
			}
		}
	}

	line := func(values []string) {
		padded := make([]string, len(values))
		for j, v := range values {
			padded[j] = runewidth.FillRight(v, widths[j])
		}
		fmt.Fprintln(w, strings.TrimRight(strings.Join(padded, "  "), " "))
	}

	names := make([]string, len(cols))
	rules := make([]string, len(cols))
	for j, i := range cols {
		names[j] = header[i]
		rules[j] = strings.Repeat("-", widths[j])
	}
	line(names)
	line(rules)

	for _, row := range rows {
		values := make([]string, len(cols))
		for j, i := range cols {
			values[j] = cell(row, i)
		}
		line(values)
	}

	fmt.Fprintf(w, "\n(%d rows)\n", len(rows))
	return nil
}
