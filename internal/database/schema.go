package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/dbsmedya/corpfetch/internal/sqlutil"
	"github.com/dbsmedya/corpfetch/internal/types"
)

// CreateTableSQL renders the table DDL: every persisted column as TEXT,
// in types.Columns order.
func CreateTableSQL(d sqlutil.Dialect, table string) (string, error) {
	quoted, err := sqlutil.QuoteIdentifierSafe(d, table)
	if err != nil {
		return "", err
	}

	defs := make([]string, len(types.Columns))
	for i, c := range types.Columns {
		defs[i] = sqlutil.QuoteIdentifier(d, c) + " TEXT"
	}

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n)", quoted, strings.Join(defs, ",\n  ")), nil
}

// InsertSQL renders the positional insert with an explicit column list.
func InsertSQL(d sqlutil.Dialect, table string) (string, error) {
	quoted, err := sqlutil.QuoteIdentifierSafe(d, table)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoted,
		sqlutil.QuoteList(d, types.Columns),
		sqlutil.Placeholders(d, len(types.Columns))), nil
}

// CountSQL renders a row count query for the table.
func CountSQL(d sqlutil.Dialect, table string) (string, error) {
	quoted, err := sqlutil.QuoteIdentifierSafe(d, table)
	if err != nil {
		return "", err
	}
	return "SELECT COUNT(*) FROM " + quoted, nil
}

// EnsureStore creates the table if it does not exist. It never alters or
// drops an existing table, so calling it repeatedly is safe.
func (m *Manager) EnsureStore(ctx context.Context, table string) error {
	stmt, err := CreateTableSQL(m.Dialect(), table)
	if err != nil {
		return err
	}

	if err := m.Connect(ctx); err != nil {
		return err
	}

	if _, err := m.DB.ExecContext(ctx, stmt); err != nil {
		return &types.ResourceError{Resource: types.ResourceStore, Path: m.Location(), Op: "create table", Err: err}
	}

	if !m.existed {
		m.logger.Infow("Store created", "location", m.Location(), "table", table)
		m.existed = true
	}
	return nil
}

// CountRows returns the number of rows in the table.
func (m *Manager) CountRows(ctx context.Context, table string) (int64, error) {
	if m.DB == nil {
		return 0, ErrNotConnected
	}
	query, err := CountSQL(m.Dialect(), table)
	if err != nil {
		return 0, err
	}

	var count int64
	if err := m.DB.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count rows in %s: %w", table, err)
	}
	return count, nil
}
