package sqliteadapter

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	domainerrors "dispatch/contexts/field-operations/request-assignment/domain/errors"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// resultCode returns the extended result code carried by a driver error, or
// zero for anything else.
func resultCode(err error) int {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code()
	}
	return 0
}

func isUniqueViolation(err error) bool {
	switch resultCode(err) {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	default:
		return false
	}
}

func isForeignKeyViolation(err error) bool {
	return resultCode(err) == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY
}

// isBusy compares the primary code so SQLITE_BUSY_SNAPSHOT and friends match.
func isBusy(err error) bool {
	switch resultCode(err) & 0xff {
	case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
		return true
	default:
		return false
	}
}

func mapStoreError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %w", domainerrors.ErrStoreUnavailable, err)
	}
	if isBusy(err) || errors.Is(err, sql.ErrConnDone) {
		return fmt.Errorf("%w: %w", domainerrors.ErrStoreUnavailable, err)
	}
	return err
}
