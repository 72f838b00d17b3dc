package sqlite

import (
	"context"

	"github.com/workgraph/core/internal/depgraph"
	"github.com/workgraph/core/internal/storage"
	"github.com/workgraph/core/internal/types"
)

// CreateDependency validates and inserts a single edge inside its own
// transaction, loading the existing graph for cycle detection the same way
// CreateDependencyBatch does for a batch of one.
func (s *SQLiteStorage) CreateDependency(ctx context.Context, dep *types.Dependency) error {
	return s.CreateDependencyBatch(ctx, []*types.Dependency{dep})
}

// CreateDependencyBatch inserts a batch of edges atomically: every edge is
// validated, checked for duplicates against the existing graph and the rest
// of the batch, and the combined graph is checked for cycles before any row
// is written.
func (s *SQLiteStorage) CreateDependencyBatch(ctx context.Context, deps []*types.Dependency) error {
	if len(deps) == 0 {
		return nil
	}
	return s.WithTx(ctx, func(ctx context.Context) error {
		existing, err := s.allDependencies(ctx)
		if err != nil {
			return err
		}

		proposed := make([]types.Dependency, len(deps))
		for i, d := range deps {
			proposed[i] = *d
		}
		if err := depgraph.ValidateBatch(existing, proposed); err != nil {
			return err
		}
		if err := depgraph.DetectCycle(existing, proposed); err != nil {
			return err
		}

		for _, d := range deps {
			_, err := s.conn(ctx).ExecContext(ctx, `
				INSERT INTO dependencies (`+dependencyColumns+`)
				VALUES (?, ?, ?, ?, ?, ?)`,
				d.ID, d.FromItemID, d.ToItemID, d.Type, d.UnblockAt, d.CreatedAt,
			)
			if err != nil {
				return wrapDBError("create dependency", d.ID, err)
			}
		}
		return nil
	})
}

func (s *SQLiteStorage) allDependencies(ctx context.Context) ([]types.Dependency, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, `SELECT `+dependencyColumns+` FROM dependencies`)
	if err != nil {
		return nil, storage.DatabaseError("load dependency graph", err)
	}
	defer rows.Close()

	var deps []types.Dependency
	for rows.Next() {
		d, err := scanDependency(rows)
		if err != nil {
			return nil, storage.DatabaseError("load dependency graph: scan", err)
		}
		deps = append(deps, *d)
	}
	return deps, rows.Err()
}

func (s *SQLiteStorage) DeleteDependency(ctx context.Context, id string) error {
	res, err := s.conn(ctx).ExecContext(ctx, `DELETE FROM dependencies WHERE id = ?`, id)
	if err != nil {
		return wrapDBError("delete dependency", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return storage.DatabaseError("delete dependency", err)
	}
	if affected == 0 {
		return storage.NotFound(id, "delete dependency: not found")
	}
	return nil
}

func (s *SQLiteStorage) DeleteDependenciesByItem(ctx context.Context, itemID string) error {
	_, err := s.conn(ctx).ExecContext(ctx, `
		DELETE FROM dependencies WHERE from_item_id = ? OR to_item_id = ?`, itemID, itemID)
	if err != nil {
		return wrapDBError("delete dependencies by item", itemID, err)
	}
	return nil
}

func (s *SQLiteStorage) FindDependenciesByItem(ctx context.Context, itemID string) ([]*types.Dependency, error) {
	return s.queryDependencies(ctx, `
		SELECT `+dependencyColumns+` FROM dependencies WHERE from_item_id = ? OR to_item_id = ?
		ORDER BY created_at`, itemID, itemID)
}

func (s *SQLiteStorage) FindDependenciesByFromItem(ctx context.Context, fromItemID string) ([]*types.Dependency, error) {
	return s.queryDependencies(ctx, `
		SELECT `+dependencyColumns+` FROM dependencies WHERE from_item_id = ? ORDER BY created_at`, fromItemID)
}

func (s *SQLiteStorage) FindDependenciesByToItem(ctx context.Context, toItemID string) ([]*types.Dependency, error) {
	return s.queryDependencies(ctx, `
		SELECT `+dependencyColumns+` FROM dependencies WHERE to_item_id = ? ORDER BY created_at`, toItemID)
}

func (s *SQLiteStorage) queryDependencies(ctx context.Context, q string, args ...any) ([]*types.Dependency, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, q, args...)
	if err != nil {
		return nil, storage.DatabaseError("query dependencies", err)
	}
	defer rows.Close()

	var deps []*types.Dependency
	for rows.Next() {
		d, err := scanDependency(rows)
		if err != nil {
			s.log.Warn("skipping unreadable dependency row", "error", err)
			continue
		}
		deps = append(deps, d)
	}
	return deps, rows.Err()
}
