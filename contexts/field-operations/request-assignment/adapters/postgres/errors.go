package postgresadapter

import (
	"context"
	"errors"
	"fmt"
	"strings"

	domainerrors "dispatch/contexts/field-operations/request-assignment/domain/errors"

	"github.com/jackc/pgx/v5/pgconn"
)

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

func isUndefinedFunction(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "42883"
}

func constraintName(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.ConstraintName
	}
	return ""
}

// mapStoreError folds connectivity and contention failures into
// ErrStoreUnavailable. Anything else is returned unchanged.
func mapStoreError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %w", domainerrors.ErrStoreUnavailable, err)
	}
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) || pgconn.Timeout(err) {
		return fmt.Errorf("%w: %w", domainerrors.ErrStoreUnavailable, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && transientSQLState(pgErr.Code) {
		return fmt.Errorf("%w: %w", domainerrors.ErrStoreUnavailable, err)
	}
	return err
}

// transientSQLState covers connection exceptions (08), insufficient
// resources (53), operator intervention (57P) and serialization/deadlock.
func transientSQLState(code string) bool {
	switch {
	case strings.HasPrefix(code, "08"),
		strings.HasPrefix(code, "53"),
		strings.HasPrefix(code, "57P"),
		code == "40001",
		code == "40P01":
		return true
	default:
		return false
	}
}
