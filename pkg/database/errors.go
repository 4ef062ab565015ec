package database

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"
)

// PostgreSQL error codes
const (
	codeUniqueViolation     pq.ErrorCode = "23505"
	codeForeignKeyViolation pq.ErrorCode = "23503"
	codeInvalidTextRepr     pq.ErrorCode = "22P02"
)

// IsUniqueViolation reports whether err is a unique constraint violation.
// When constraint is non-empty the violated constraint name must match.
func IsUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != codeUniqueViolation {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}

// IsForeignKeyViolation reports whether err is a foreign key violation
func IsForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == codeForeignKeyViolation
}

// IsInvalidTextRepresentation reports whether a parameter could not be parsed
// as its column type, such as a malformed UUID key
func IsInvalidTextRepresentation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == codeInvalidTextRepr
}

// IsMissingRow reports whether a keyed lookup matched nothing. A key that is
// not a valid UUID cannot name any row.
func IsMissingRow(err error) bool {
	return errors.Is(err, sql.ErrNoRows) || IsInvalidTextRepresentation(err)
}
