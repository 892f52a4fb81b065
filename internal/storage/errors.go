package storage

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	dErrors "tranquility/pkg/domain-errors"
	"tranquility/pkg/platform/sentinel"
)

const pgUniqueViolation = "23505"

// classify wraps a driver error as a persistence failure, tagging unique
// violations with sentinel.ErrConflict and empty results with sentinel.ErrNotFound.
func classify(err error, op string) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		err = fmt.Errorf("%w: %w", sentinel.ErrNotFound, err)
	case isUniqueViolation(err):
		err = fmt.Errorf("%w: %w", sentinel.ErrConflict, err)
	}
	return dErrors.Wrap(err, dErrors.CodePersistence, op)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == pgUniqueViolation
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
