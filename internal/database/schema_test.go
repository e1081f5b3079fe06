package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbsmedya/corpfetch/internal/config"
	"github.com/dbsmedya/corpfetch/internal/logger"
	"github.com/dbsmedya/corpfetch/internal/sqlutil"
	"github.com/dbsmedya/corpfetch/internal/types"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func newMockManager(t *testing.T, driver string) (*Manager, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	cfg := &config.StoreConfig{Driver: driver, Path: "database.db", Table: "companies", Host: "db", Port: 5432, Database: "registry"}
	return NewManagerWithDB(db, cfg, logger.NewNop()), mock
}

func TestCreateTableSQL(t *testing.T) {
	stmt, err := CreateTableSQL(sqlutil.DialectSQLite, "companies")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(stmt, `CREATE TABLE IF NOT EXISTS "companies" (`))
	assert.Equal(t, len(types.Columns), strings.Count(stmt, " TEXT"))
	assert.Contains(t, stmt, `"name" TEXT,`)
	assert.Contains(t, stmt, `"source_terms_url" TEXT`)

	// column order follows types.Columns
	last := -1
	for _, c := range types.Columns {
		idx := strings.Index(stmt, `"`+c+`" TEXT`)
		require.GreaterOrEqual(t, idx, 0, c)
		assert.Greater(t, idx, last, c)
		last = idx
	}

	mysqlStmt, err := CreateTableSQL(sqlutil.DialectMySQL, "companies")
	require.NoError(t, err)
	assert.Contains(t, mysqlStmt, "CREATE TABLE IF NOT EXISTS `companies`")
}

func TestCreateTableSQL_InvalidTable(t *testing.T) {
	_, err := CreateTableSQL(sqlutil.DialectSQLite, "companies; DROP TABLE x")
	var ie *sqlutil.InvalidIdentifierError
	assert.True(t, errors.As(err, &ie))
}

func TestInsertSQL(t *testing.T) {
	stmt, err := InsertSQL(sqlutil.DialectPostgres, "companies")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(stmt, `INSERT INTO "companies" ("name", "company_number", `))
	assert.True(t, strings.HasSuffix(stmt, "$28, $29)"))

	stmt, err = InsertSQL(sqlutil.DialectSQLite, "companies")
	require.NoError(t, err)
	assert.Equal(t, len(types.Columns), strings.Count(stmt, "?"))
}

func TestEnsureStore_Mock(t *testing.T) {
	manager, mock := newMockManager(t, "sqlite")

	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE IF NOT EXISTS "companies" (`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, manager.EnsureStore(context.Background(), "companies"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureStore_ExecError(t *testing.T) {
	manager, mock := newMockManager(t, "postgres")

	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE IF NOT EXISTS "companies"`)).
		WillReturnError(errors.New("permission denied for schema public"))

	err := manager.EnsureStore(context.Background(), "companies")

	var re *types.ResourceError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, types.ResourceStore, re.Resource)
	assert.Equal(t, "create table", re.Op)
	assert.Equal(t, "db:5432/registry", re.Path)
}

func TestEnsureStore_SQLiteIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "database.db")
	manager := NewManager(&config.StoreConfig{Driver: "sqlite", Path: path, Table: "companies"}, logger.NewNop())
	defer manager.Close()

	ctx := context.Background()
	require.NoError(t, manager.EnsureStore(ctx, "companies"))
	assert.True(t, manager.StoreExists())

	_, err := manager.DB.ExecContext(ctx, `INSERT INTO "companies" ("name") VALUES ('KEEP ME')`)
	require.NoError(t, err)

	// a second call neither fails nor drops existing rows
	require.NoError(t, manager.EnsureStore(ctx, "companies"))

	count, err := manager.CountRows(ctx, "companies")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	rows, err := manager.DB.QueryContext(ctx, `SELECT name, type FROM pragma_table_info('companies') ORDER BY cid`)
	require.NoError(t, err)
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name, typ string
		require.NoError(t, rows.Scan(&name, &typ))
		assert.Equal(t, "TEXT", typ)
		names = append(names, name)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, types.Columns, names)
}

func TestCountRows_Mock(t *testing.T) {
	manager, mock := newMockManager(t, "mysql")

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM `companies`")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(42))

	count, err := manager.CountRows(context.Background(), "companies")
	require.NoError(t, err)
	assert.Equal(t, int64(42), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountRows_NotConnected(t *testing.T) {
	manager := NewManager(&config.StoreConfig{Driver: "sqlite"}, logger.NewNop())
	_, err := manager.CountRows(context.Background(), "companies")
	assert.ErrorIs(t, err, ErrNotConnected)
}
