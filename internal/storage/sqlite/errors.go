package sqlite

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/workgraph/core/internal/storage"
)

// wrapDBError maps a raw database/sql error onto the repository facade's
// closed error kinds, converting sql.ErrNoRows into storage.KindNotFound and
// unique-constraint violations into storage.KindConflict.
func wrapDBError(op, id string, err error) *storage.RepositoryError {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return storage.NotFound(id, op+": not found")
	}
	if isUniqueViolation(err) {
		return storage.Conflict(op + ": " + err.Error())
	}
	return storage.DatabaseError(op, err)
}

// isUniqueViolation detects a SQLite UNIQUE constraint failure. The
// ncruces/go-sqlite3 driver surfaces these as plain errors whose message
// contains "UNIQUE constraint failed", so we match on message rather than
// a typed driver error.
func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
