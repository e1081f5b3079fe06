package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dbsmedya/corpfetch/internal/config"
	"github.com/dbsmedya/corpfetch/internal/export"
	"github.com/dbsmedya/corpfetch/internal/logger"
	"github.com/dbsmedya/corpfetch/internal/sqlutil"
	"github.com/dbsmedya/corpfetch/internal/types"
)

// Malformed row policies.
const (
	OnMalformedAbort = "abort"
	OnMalformedSkip  = "skip"
)

// SchemaMismatchError reports a flat file whose shape does not match the
// store columns. Line 1 is the header.
type SchemaMismatchError struct {
	Line   int
	Got    int
	Want   int
	Detail string
}

func (e *SchemaMismatchError) Error() string {
	msg := fmt.Sprintf("schema mismatch at line %d: got %d fields, want %d", e.Line, e.Got, e.Want)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// LoadStats contains statistics about one load.
type LoadStats struct {
	RowsRead     int64
	RowsInserted int64
	RowsSkipped  int64
	Commits      int64
	Duration     time.Duration
}

// Loader inserts flat file rows into the store table.
type Loader struct {
	manager     *Manager
	table       string
	commitEvery int
	onMalformed string
	logger      *logger.Logger
}

// NewLoader creates a new row loader.
func NewLoader(m *Manager, table string, cfg config.LoadConfig, log *logger.Logger) (*Loader, error) {
	if m == nil {
		return nil, fmt.Errorf("store manager is nil")
	}
	if !sqlutil.IsValidIdentifier(table) {
		return nil, &sqlutil.InvalidIdentifierError{Name: table}
	}
	if log == nil {
		log = logger.NewDefault()
	}

	commitEvery := cfg.CommitEvery
	if commitEvery <= 0 {
		commitEvery = 1
	}
	onMalformed := cfg.OnMalformed
	if onMalformed == "" {
		onMalformed = OnMalformedAbort
	}

	return &Loader{
		manager:     m,
		table:       table,
		commitEvery: commitEvery,
		onMalformed: onMalformed,
		logger:      log.WithTable(table),
	}, nil
}

// batch is an open transaction with rows not yet committed.
type batch struct {
	tx      *sql.Tx
	pending int64
}

// Load ensures the table exists, then inserts every row of the flat file
// positionally. Rows are committed in transactions of at most commitEvery
// rows; rows committed before a failure stay committed.
func (l *Loader) Load(ctx context.Context, csvPath string) (*LoadStats, error) {
	start := time.Now()
	stats := &LoadStats{}
	defer func() {
		stats.Duration = time.Since(start)
		loadDuration.Observe(stats.Duration.Seconds())
	}()

	if err := l.manager.EnsureStore(ctx, l.table); err != nil {
		return stats, err
	}

	r, err := export.Open(csvPath)
	if err != nil {
		return stats, err
	}
	defer r.Close()

	if err := checkHeader(r.Header()); err != nil {
		return stats, err
	}

	insert, err := InsertSQL(l.manager.Dialect(), l.table)
	if err != nil {
		return stats, err
	}

	var b *batch
	defer func() {
		if b != nil {
			l.logger.Warnw("Rolling back uncommitted rows", "rows", b.pending)
			if rbErr := b.tx.Rollback(); rbErr != nil {
				l.logger.Errorw("Failed to rollback transaction", "error", rbErr)
			}
		}
	}()

	commit := func() error {
		if b == nil {
			return nil
		}
		if err := b.tx.Commit(); err != nil {
			b = nil
			return l.storeError("commit", err)
		}
		stats.RowsInserted += b.pending
		stats.Commits++
		rowsInserted.Add(float64(b.pending))
		commitsTotal.Inc()
		b = nil
		return nil
	}

	l.logger.Infow("Loading flat file", "file", csvPath, "commit_every", l.commitEvery)

	for {
		if err := ctx.Err(); err != nil {
			return stats, fmt.Errorf("load interrupted: %w", err)
		}

		row, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return stats, err
		}
		stats.RowsRead++

		if len(row) != len(types.Columns) {
			mismatch := &SchemaMismatchError{Line: r.Line(), Got: len(row), Want: len(types.Columns)}
			if l.onMalformed == OnMalformedSkip {
				stats.RowsSkipped++
				rowsSkipped.Inc()
				l.logger.Warnw("Skipping malformed row", "line", mismatch.Line, "fields", mismatch.Got, "want", mismatch.Want)
				continue
			}
			if err := commit(); err != nil {
				return stats, err
			}
			return stats, mismatch
		}

		if b == nil {
			tx, err := l.manager.DB.BeginTx(ctx, nil)
			if err != nil {
				return stats, l.storeError("begin", err)
			}
			b = &batch{tx: tx}
		}

		args := make([]interface{}, len(row))
		for i, v := range row {
			args[i] = v
		}
		if _, err := b.tx.ExecContext(ctx, insert, args...); err != nil {
			return stats, l.storeError("insert", fmt.Errorf("line %d: %w", r.Line(), err))
		}
		b.pending++

		if b.pending >= int64(l.commitEvery) {
			if err := commit(); err != nil {
				return stats, err
			}
		}
	}

	if err := commit(); err != nil {
		return stats, err
	}

	l.logger.Infow("Load complete",
		"rows_read", stats.RowsRead,
		"rows_inserted", stats.RowsInserted,
		"rows_skipped", stats.RowsSkipped,
		"commits", stats.Commits,
		"duration", time.Since(start))

	return stats, nil
}

func (l *Loader) storeError(op string, err error) error {
	return &types.ResourceError{Resource: types.ResourceStore, Path: l.manager.Location(), Op: op, Err: err}
}

// checkHeader verifies the flat file header matches the store columns.
func checkHeader(header []string) error {
	if len(header) != len(types.Columns) {
		return &SchemaMismatchError{Line: 1, Got: len(header), Want: len(types.Columns), Detail: "header does not match store columns"}
	}
	for i, c := range types.Columns {
		if header[i] != c {
			return &SchemaMismatchError{
				Line:   1,
				Got:    len(header),
				Want:   len(types.Columns),
				Detail: fmt.Sprintf("column %d is %q, want %q", i+1, header[i], c),
			}
		}
	}
	return nil
}
