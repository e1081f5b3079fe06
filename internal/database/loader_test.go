package database

import (
	"context"
	"database/sql/driver"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbsmedya/corpfetch/internal/config"
	"github.com/dbsmedya/corpfetch/internal/export"
	"github.com/dbsmedya/corpfetch/internal/logger"
	"github.com/dbsmedya/corpfetch/internal/types"
)

var (
	createPattern = regexp.QuoteMeta(`CREATE TABLE IF NOT EXISTS "companies"`)
	insertPattern = regexp.QuoteMeta(`INSERT INTO "companies" ("name", "company_number"`)
)

func sampleRow(name, number string) []string {
	row := make([]string, len(types.Columns))
	row[0] = name
	row[1] = number
	row[2] = "gb"
	return row
}

func rowArgs(row []string) []driver.Value {
	args := make([]driver.Value, len(row))
	for i, v := range row {
		args[i] = v
	}
	return args
}

// writeFlatFile writes the standard header followed by rows as given,
// so tests can include malformed rows.
func writeFlatFile(t *testing.T, header []string, rows ...[]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "companies.csv")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := csv.NewWriter(f)
	require.NoError(t, w.Write(header))
	for _, r := range rows {
		require.NoError(t, w.Write(r))
	}
	w.Flush()
	require.NoError(t, w.Error())
	return path
}

func newMockLoader(t *testing.T, cfg config.LoadConfig) (*Loader, sqlmock.Sqlmock) {
	t.Helper()
	manager, mock := newMockManager(t, "sqlite")
	loader, err := NewLoader(manager, "companies", cfg, logger.NewNop())
	require.NoError(t, err)
	return loader, mock
}

func TestNewLoader(t *testing.T) {
	manager := NewManager(&config.StoreConfig{Driver: "sqlite"}, logger.NewNop())

	_, err := NewLoader(nil, "companies", config.LoadConfig{}, nil)
	assert.Error(t, err)

	_, err = NewLoader(manager, "bad-table", config.LoadConfig{}, nil)
	assert.Error(t, err)

	loader, err := NewLoader(manager, "companies", config.LoadConfig{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, loader.commitEvery)
	assert.Equal(t, OnMalformedAbort, loader.onMalformed)
}

func TestLoad_CommitPerRow(t *testing.T) {
	a := sampleRow("SMARTT LTD", "00000001")
	b := sampleRow("SMARTT HOLDINGS LTD", "00000002")
	path := writeFlatFile(t, types.Columns, a, b)

	loader, mock := newMockLoader(t, config.LoadConfig{CommitEvery: 1})

	mock.ExpectExec(createPattern).WillReturnResult(sqlmock.NewResult(0, 0))
	for _, row := range [][]string{a, b} {
		mock.ExpectBegin()
		mock.ExpectExec(insertPattern).WithArgs(rowArgs(row)...).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()
	}

	stats, err := loader.Load(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, int64(2), stats.RowsRead)
	assert.Equal(t, int64(2), stats.RowsInserted)
	assert.Equal(t, int64(2), stats.Commits)
	assert.Equal(t, int64(0), stats.RowsSkipped)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoad_CommitEveryBatches(t *testing.T) {
	rows := [][]string{
		sampleRow("A LTD", "1"),
		sampleRow("B LTD", "2"),
		sampleRow("C LTD", "3"),
	}
	path := writeFlatFile(t, types.Columns, rows...)

	loader, mock := newMockLoader(t, config.LoadConfig{CommitEvery: 2})

	mock.ExpectExec(createPattern).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectBegin()
	mock.ExpectExec(insertPattern).WithArgs(rowArgs(rows[0])...).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(insertPattern).WithArgs(rowArgs(rows[1])...).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectExec(insertPattern).WithArgs(rowArgs(rows[2])...).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	stats, err := loader.Load(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, int64(3), stats.RowsInserted)
	assert.Equal(t, int64(2), stats.Commits)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoad_EmptyFile(t *testing.T) {
	path := writeFlatFile(t, types.Columns)
	loader, mock := newMockLoader(t, config.LoadConfig{CommitEvery: 1})

	mock.ExpectExec(createPattern).WillReturnResult(sqlmock.NewResult(0, 0))

	stats, err := loader.Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.RowsInserted)
	assert.Equal(t, int64(0), stats.Commits)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoad_InsertErrorRollsBack(t *testing.T) {
	a := sampleRow("A LTD", "1")
	b := sampleRow("B LTD", "2")
	path := writeFlatFile(t, types.Columns, a, b)

	loader, mock := newMockLoader(t, config.LoadConfig{CommitEvery: 10})

	mock.ExpectExec(createPattern).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectBegin()
	mock.ExpectExec(insertPattern).WithArgs(rowArgs(a)...).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(insertPattern).WithArgs(rowArgs(b)...).WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	stats, err := loader.Load(context.Background(), path)
	require.Error(t, err)

	var re *types.ResourceError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, types.ResourceStore, re.Resource)
	assert.Equal(t, "insert", re.Op)
	assert.Contains(t, err.Error(), "line 3")

	assert.Equal(t, int64(0), stats.RowsInserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoad_CommitError(t *testing.T) {
	a := sampleRow("A LTD", "1")
	path := writeFlatFile(t, types.Columns, a)

	loader, mock := newMockLoader(t, config.LoadConfig{CommitEvery: 1})

	mock.ExpectExec(createPattern).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectBegin()
	mock.ExpectExec(insertPattern).WithArgs(rowArgs(a)...).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit().WillReturnError(errors.New("database is locked"))

	_, err := loader.Load(context.Background(), path)

	var re *types.ResourceError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, "commit", re.Op)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoad_MalformedAbortKeepsEarlierRows(t *testing.T) {
	good := sampleRow("A LTD", "1")
	short := []string{"B LTD", "2", "gb"}
	path := writeFlatFile(t, types.Columns, good, short, sampleRow("C LTD", "3"))

	loader, mock := newMockLoader(t, config.LoadConfig{CommitEvery: 5, OnMalformed: OnMalformedAbort})

	mock.ExpectExec(createPattern).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectBegin()
	mock.ExpectExec(insertPattern).WithArgs(rowArgs(good)...).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	stats, err := loader.Load(context.Background(), path)

	var mismatch *SchemaMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, 3, mismatch.Line)
	assert.Equal(t, 3, mismatch.Got)
	assert.Equal(t, len(types.Columns), mismatch.Want)

	assert.Equal(t, int64(1), stats.RowsInserted)
	assert.Equal(t, int64(2), stats.RowsRead)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoad_MalformedSkip(t *testing.T) {
	a := sampleRow("A LTD", "1")
	c := sampleRow("C LTD", "3")
	long := append(sampleRow("B LTD", "2"), "extra")
	path := writeFlatFile(t, types.Columns, a, long, c)

	loader, mock := newMockLoader(t, config.LoadConfig{CommitEvery: 1, OnMalformed: OnMalformedSkip})

	mock.ExpectExec(createPattern).WillReturnResult(sqlmock.NewResult(0, 0))
	for _, row := range [][]string{a, c} {
		mock.ExpectBegin()
		mock.ExpectExec(insertPattern).WithArgs(rowArgs(row)...).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()
	}

	stats, err := loader.Load(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, int64(3), stats.RowsRead)
	assert.Equal(t, int64(2), stats.RowsInserted)
	assert.Equal(t, int64(1), stats.RowsSkipped)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoad_HeaderMismatch(t *testing.T) {
	tests := []struct {
		name   string
		header []string
		detail string
	}{
		{name: "wrong width", header: []string{"name", "company_number"}, detail: "header does not match"},
		{name: "wrong order", header: append([]string{"company_number", "name"}, types.Columns[2:]...), detail: `column 1 is "company_number", want "name"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFlatFile(t, tt.header)
			loader, mock := newMockLoader(t, config.LoadConfig{})
			mock.ExpectExec(createPattern).WillReturnResult(sqlmock.NewResult(0, 0))

			_, err := loader.Load(context.Background(), path)

			var mismatch *SchemaMismatchError
			require.True(t, errors.As(err, &mismatch))
			assert.Equal(t, 1, mismatch.Line)
			assert.Contains(t, mismatch.Error(), tt.detail)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestLoad_MissingFlatFile(t *testing.T) {
	loader, mock := newMockLoader(t, config.LoadConfig{})
	mock.ExpectExec(createPattern).WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := loader.Load(context.Background(), filepath.Join(t.TempDir(), "missing.csv"))

	var re *types.ResourceError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, types.ResourceFlatFile, re.Resource)
}

func newSQLiteLoader(t *testing.T, cfg config.LoadConfig) (*Manager, *Loader) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "out", "database.db")
	manager := NewManager(&config.StoreConfig{Driver: "sqlite", Path: path, Table: "companies"}, logger.NewNop())
	t.Cleanup(func() { _ = manager.Close() })

	loader, err := NewLoader(manager, "companies", cfg, logger.NewNop())
	require.NoError(t, err)
	return manager, loader
}

func TestLoad_SQLiteRoundTrip(t *testing.T) {
	rs := types.NewResultSet("query")
	for i := 1; i <= 3; i++ {
		rec, err := types.RecordFromRow(sampleRow(fmt.Sprintf("SMARTT %d LTD", i), fmt.Sprintf("%08d", i)))
		require.NoError(t, err)
		require.NoError(t, rs.Append(rec))
	}
	csvPath := filepath.Join(t.TempDir(), "companies.csv")
	n, err := export.WriteCSV(rs, csvPath)
	require.NoError(t, err)
	require.Equal(t, 3, n)

	manager, loader := newSQLiteLoader(t, config.LoadConfig{CommitEvery: 2})
	ctx := context.Background()

	stats, err := loader.Load(ctx, csvPath)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.RowsInserted)
	assert.Equal(t, int64(2), stats.Commits)

	count, err := manager.CountRows(ctx, "companies")
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	rows, err := manager.DB.QueryContext(ctx, `SELECT "name", "company_number", "jurisdiction_code" FROM "companies" ORDER BY rowid`)
	require.NoError(t, err)
	defer rows.Close()

	var got []string
	for rows.Next() {
		var name, number, jurisdiction string
		require.NoError(t, rows.Scan(&name, &number, &jurisdiction))
		assert.Equal(t, "gb", jurisdiction)
		got = append(got, name+"|"+number)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []string{"SMARTT 1 LTD|00000001", "SMARTT 2 LTD|00000002", "SMARTT 3 LTD|00000003"}, got)

	// loading again appends; existing rows are never replaced
	_, err = loader.Load(ctx, csvPath)
	require.NoError(t, err)
	count, err = manager.CountRows(ctx, "companies")
	require.NoError(t, err)
	assert.Equal(t, int64(6), count)
}

func TestLoad_SQLiteRoundTripPreservesLineBreaks(t *testing.T) {
	const address = "1 High St\r\nLondon"

	rec := types.NewCompanyRecord()
	rec.Set("name", "SMARTT LTD")
	rec.Set("company_number", "07444723")
	rec.Set("registered_address_in_full", address)
	rs := types.NewResultSet("query")
	require.NoError(t, rs.Append(rec))

	csvPath := filepath.Join(t.TempDir(), "companies.csv")
	_, err := export.WriteCSV(rs, csvPath)
	require.NoError(t, err)

	manager, loader := newSQLiteLoader(t, config.LoadConfig{CommitEvery: 1})
	ctx := context.Background()

	_, err = loader.Load(ctx, csvPath)
	require.NoError(t, err)

	var stored string
	err = manager.DB.QueryRowContext(ctx, `SELECT "registered_address_in_full" FROM "companies"`).Scan(&stored)
	require.NoError(t, err)
	assert.Equal(t, address, stored)
}

func TestLoad_SQLiteSkipMalformed(t *testing.T) {
	path := writeFlatFile(t, types.Columns,
		sampleRow("A LTD", "1"),
		[]string{"broken"},
		sampleRow("C LTD", "3"),
	)

	manager, loader := newSQLiteLoader(t, config.LoadConfig{CommitEvery: 1, OnMalformed: OnMalformedSkip})
	ctx := context.Background()

	stats, err := loader.Load(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.RowsSkipped)

	count, err := manager.CountRows(ctx, "companies")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestLoad_SQLiteAbortKeepsCommittedRows(t *testing.T) {
	path := writeFlatFile(t, types.Columns,
		sampleRow("A LTD", "1"),
		sampleRow("B LTD", "2"),
		[]string{"broken", "row"},
	)

	manager, loader := newSQLiteLoader(t, config.LoadConfig{CommitEvery: 1})
	ctx := context.Background()

	_, err := loader.Load(ctx, path)
	var mismatch *SchemaMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, 4, mismatch.Line)

	count, err := manager.CountRows(ctx, "companies")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}
