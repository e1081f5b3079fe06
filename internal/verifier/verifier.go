// Package verifier checks that a load landed in the store.
package verifier

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dbsmedya/corpfetch/internal/logger"
	"github.com/dbsmedya/corpfetch/internal/sqlutil"
)

// VerificationMethod defines how to verify a load.
type VerificationMethod string

const (
	// MethodCount compares the table row count before and after the load
	MethodCount VerificationMethod = "count"
	// MethodSkip skips verification entirely
	MethodSkip VerificationMethod = "skip"
)

// VerifyResult holds the verification outcome for one table.
type VerifyResult struct {
	Table        string
	Method       VerificationMethod
	CountBefore  int64
	CountAfter   int64
	Inserted     int64
	Match        bool
	ErrorMessage string
}

// MismatchError is returned when the store does not hold the rows the
// loader reported as committed.
type MismatchError struct {
	Result *VerifyResult
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("verification mismatch in table %s: %s", e.Result.Table, e.Result.ErrorMessage)
}

// Verifier compares store row counts against loader statistics.
type Verifier struct {
	db      *sql.DB
	dialect sqlutil.Dialect
	method  VerificationMethod
	logger  *logger.Logger
}

// NewVerifier creates a new verifier. An empty method defaults to count.
func NewVerifier(db *sql.DB, dialect sqlutil.Dialect, method VerificationMethod, log *logger.Logger) (*Verifier, error) {
	if db == nil {
		return nil, fmt.Errorf("store database is nil")
	}
	if log == nil {
		log = logger.NewDefault()
	}

	if method == "" {
		method = MethodCount
	}
	if method != MethodCount && method != MethodSkip {
		return nil, fmt.Errorf("unsupported verification method: %s", method)
	}

	return &Verifier{
		db:      db,
		dialect: dialect,
		method:  method,
		logger:  log,
	}, nil
}

// CountRows returns the current row count of table. Callers take this
// snapshot before loading and pass it to Verify.
func (v *Verifier) CountRows(ctx context.Context, table string) (int64, error) {
	quoted, err := sqlutil.QuoteIdentifierSafe(v.dialect, table)
	if err != nil {
		return 0, err
	}

	var count int64
	if err := v.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+quoted).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", table, err)
	}
	return count, nil
}

// Verify checks that table grew by exactly inserted rows since the before
// snapshot.
func (v *Verifier) Verify(ctx context.Context, table string, before, inserted int64) (*VerifyResult, error) {
	if v.method == MethodSkip {
		v.logger.Info("Verification SKIPPED (method=skip)")
		return &VerifyResult{Table: table, Method: MethodSkip, Match: true}, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("verification interrupted: %w", err)
	}

	after, err := v.CountRows(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("verification failed for table %s: %w", table, err)
	}

	result := &VerifyResult{
		Table:       table,
		Method:      MethodCount,
		CountBefore: before,
		CountAfter:  after,
		Inserted:    inserted,
		Match:       after-before == inserted,
	}

	if !result.Match {
		result.ErrorMessage = fmt.Sprintf("count mismatch: before=%d, after=%d, inserted=%d", before, after, inserted)
		v.logger.Errorf("Verification FAILED for table %q: %s", table, result.ErrorMessage)
		return result, &MismatchError{Result: result}
	}

	v.logger.Infof("Verification PASSED for table %q (%d rows added, %d total)", table, inserted, after)
	return result, nil
}

// GetMethod returns the configured verification method.
func (v *Verifier) GetMethod() VerificationMethod {
	return v.method
}
