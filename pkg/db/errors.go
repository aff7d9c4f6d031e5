package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

const (
	pgCodeUniqueViolation = "23505"
	pgCodeUndefinedColumn = "42703"
)

// IsUniqueViolation reports whether the provided error is a unique-constraint
// violation. When constraintName is given, the violated constraint must match
// (by driver field or by message text).
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}

	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		if pgxErr.Code != pgCodeUniqueViolation {
			return false
		}
		if constraintName != "" {
			return pgxErr.ConstraintName == constraintName
		}
		return true
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if string(pqErr.Code) != pgCodeUniqueViolation {
			return false
		}
		if constraintName != "" {
			return pqErr.Constraint == constraintName
		}
		return true
	}

	// sqlite (tests) and drivers that only surface message text.
	msg := err.Error()
	if constraintName != "" && strings.Contains(msg, constraintName) {
		return true
	}
	return strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}

// IsUndefinedColumn reports whether the error means a referenced column does
// not exist in the current schema. Used by the schema probe to advance to the
// next candidate column name during a migration rollout.
func IsUndefinedColumn(err error) bool {
	if err == nil {
		return false
	}

	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return pgxErr.Code == pgCodeUndefinedColumn
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == pgCodeUndefinedColumn
	}

	msg := err.Error()
	if strings.Contains(msg, "no such column") {
		return true
	}
	return strings.Contains(msg, "column") && strings.Contains(msg, "does not exist")
}
