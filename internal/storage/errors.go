// Package storage defines the repository facade: typed operations over
// persistence that return a *RepositoryError with a closed Kind, rather than
// raw driver errors, so callers (the workflow engine, the tool handlers) can
// branch on Kind without string-matching.
package storage

import (
	"errors"
	"fmt"
)

// ErrorKind is the closed set of repository-facade error kinds.
type ErrorKind string

const (
	KindNotFound ErrorKind = "not_found"
	KindDatabase ErrorKind = "database"
	KindConflict ErrorKind = "conflict"
)

// RepositoryError is the error type Storage methods return on persistence
// failure (missing row, database fault, version or constraint conflict).
type RepositoryError struct {
	Kind ErrorKind
	ID   string
	Msg  string
	err  error // wrapped cause, if any
}

func (e *RepositoryError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s: %s (id=%s)", e.Kind, e.Msg, e.ID)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *RepositoryError) Unwrap() error { return e.err }

// NotFound builds a RepositoryError of kind NotFound.
func NotFound(id, msg string) *RepositoryError {
	return &RepositoryError{Kind: KindNotFound, ID: id, Msg: msg}
}

// DatabaseError wraps a lower-level persistence fault.
func DatabaseError(msg string, cause error) *RepositoryError {
	return &RepositoryError{Kind: KindDatabase, Msg: msg, err: cause}
}

// Conflict builds a RepositoryError of kind Conflict (version mismatch,
// cycle, duplicate).
func Conflict(msg string) *RepositoryError {
	return &RepositoryError{Kind: KindConflict, Msg: msg}
}

// IsNotFound reports whether err is or wraps a NotFound RepositoryError.
func IsNotFound(err error) bool { return kindIs(err, KindNotFound) }

// IsConflict reports whether err is or wraps a Conflict RepositoryError.
func IsConflict(err error) bool { return kindIs(err, KindConflict) }

// IsDatabase reports whether err is or wraps a Database RepositoryError.
func IsDatabase(err error) bool { return kindIs(err, KindDatabase) }

func kindIs(err error, kind ErrorKind) bool {
	var re *RepositoryError
	if errors.As(err, &re) {
		return re.Kind == kind
	}
	return false
}
