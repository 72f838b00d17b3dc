package sqlite

import (
	"context"
	"testing"
)

// newTestStore opens a fresh file-backed sqlite database per test: a
// temp-file path rather than ":memory:" so the single-connection pool
// behaves the same as production.
func newTestStore(t *testing.T) *SQLiteStorage {
	t.Helper()

	dbPath := t.TempDir() + "/test.db"
	store, err := Open(context.Background(), dbPath, nil)
	if err != nil {
		t.Fatalf("opening test store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("closing test store: %v", err)
		}
	})
	return store
}
