package record

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned by lookups when no row matches.
	ErrNotFound = errors.New("record: not found")

	// ErrNotAuthorized is returned by mutating operations when the configured
	// Authorizer denies the caller.
	ErrNotAuthorized = errors.New("record: not authorized")

	// ErrTokenCollision is returned when a unique token could not be found
	// within the attempt budget. Seeing this in practice means the token
	// column is being filled from a source other than NewToken.
	ErrTokenCollision = errors.New("record: token collision")
)

// pgUniqueViolation is the Postgres error code for unique constraint breaks.
const pgUniqueViolation = "23505"

// IsDuplicate reports whether err is a unique-constraint violation, either as
// GORM's translated sentinel or a raw driver error. SQLite has no typed error
// shared across driver implementations, so that case falls back to the
// constraint message.
func IsDuplicate(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// IsNotFound reports whether err means "no such record", covering both this
// package's sentinel and GORM's.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, gorm.ErrRecordNotFound)
}
