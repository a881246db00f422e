package postgres

import (
	"errors"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgconn"

	"stocklot/internal/core/apperror"
)

// PostgreSQL error codes that signal a lock or serialization conflict.
// These are the only failures callers may retry unchanged.
const (
	pgCodeLockNotAvailable     = "55P03"
	pgCodeSerializationFailure = "40001"
	pgCodeDeadlockDetected     = "40P01"
	pgCodeUniqueViolation      = "23505"
)

// MapError translates driver-level errors into AppError kinds. Entity and id
// give the error enough context to render a message; pass empty strings when
// unknown.
func MapError(err error, entity string, entityID string) error {
	if err == nil {
		return nil
	}

	if pgxscan.NotFound(err) {
		return apperror.NewNotFound(entity, entityID).WithCause(err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgCodeLockNotAvailable, pgCodeSerializationFailure, pgCodeDeadlockDetected:
			return apperror.NewConcurrencyConflict(entity, entityID).WithCause(err)
		case pgCodeUniqueViolation:
			return apperror.NewDuplicate(entity, pgErr.ConstraintName, "").WithCause(err)
		}
	}

	return err
}
