// Package sqlite implements storage.Storage on top of an embedded, pure-Go
// SQLite database (github.com/ncruces/go-sqlite3). It uses raw database/sql
// with parameterized queries, a sentinel-error-plus-wrap convention for
// mapping driver errors onto the repository facade's closed error kinds, and
// per-row decode tolerance on bulk reads.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/workgraph/core/internal/storage"
	"github.com/workgraph/core/internal/storage/sqlite/migrations"
)

// SQLiteStorage is the sqlite-backed implementation of storage.Storage.
type SQLiteStorage struct {
	db  *sql.DB
	log *slog.Logger
}

// Open opens (creating if absent) the SQLite database at path and applies
// the schema migrations.
func Open(ctx context.Context, path string, log *slog.Logger) (*SQLiteStorage, error) {
	if log == nil {
		log = slog.Default()
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	// Single-writer embedded store: cap connections so busy-retry below is
	// the only contention path.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, `PRAGMA journal_mode=WAL`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, `PRAGMA foreign_keys=ON`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStorage{db: db, log: log}
	if err := migrations.Apply(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("applying migrations: %w", err)
	}
	return s, nil
}

// Close closes the underlying database handle.
func (s *SQLiteStorage) Close() error { return s.db.Close() }

// execer is satisfied by both *sql.DB and *sql.Tx, letting every query
// method run unmodified whether or not it is inside WithTx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type txKeyType struct{}

var txKey = txKeyType{}

// conn returns the transaction bound to ctx by WithTx, or the pooled db
// handle when called outside a transaction. Read-only callers should not
// hold a transaction open across a suspend point.
func (s *SQLiteStorage) conn(ctx context.Context) execer {
	if tx, ok := ctx.Value(txKey).(*sql.Tx); ok {
		return tx
	}
	return s.db
}

// WithTx runs fn inside a single transactional scope, retrying transaction
// start with exponential backoff on lock contention (SQLITE_BUSY).
func (s *SQLiteStorage) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, already := ctx.Value(txKey).(*sql.Tx); already {
		return fn(ctx)
	}

	var tx *sql.Tx
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 5 * time.Second
	err := backoff.Retry(func() error {
		var beginErr error
		tx, beginErr = s.db.BeginTx(ctx, nil)
		if beginErr != nil && !isBusy(beginErr) {
			return backoff.Permanent(beginErr)
		}
		return beginErr
	}, backoff.WithContext(bo, ctx))
	if err != nil {
		return storage.DatabaseError("beginning transaction", err)
	}

	txCtx := context.WithValue(ctx, txKey, tx)
	if err := fn(txCtx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.log.Warn("rollback failed", "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return storage.DatabaseError("committing transaction", err)
	}
	return nil
}

func isBusy(err error) bool {
	return err != nil && (err.Error() == "database is locked" || err == sql.ErrTxDone)
}
