package sqlite

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/workgraph/core/internal/storage"
	"github.com/workgraph/core/internal/types"
)

func (s *SQLiteStorage) GetItem(ctx context.Context, id string) (*types.WorkItem, error) {
	row := s.conn(ctx).QueryRowContext(ctx, `SELECT `+itemColumns+` FROM work_items WHERE id = ?`, id)
	item, err := scanItem(row)
	if err != nil {
		return nil, wrapDBError("get item", id, err)
	}
	return item, nil
}

func (s *SQLiteStorage) CreateItem(ctx context.Context, item *types.WorkItem) error {
	if err := item.Validate(); err != nil {
		return err
	}
	_, err := s.conn(ctx).ExecContext(ctx, `
		INSERT INTO work_items (`+itemColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.ParentID, item.Title, item.Description, item.Summary, item.Role, item.PreviousRole,
		item.StatusLabel, item.Priority, item.Complexity, boolToInt(item.RequiresVerification), item.Depth,
		item.Metadata, item.Tags, item.CreatedAt, item.ModifiedAt, item.RoleChangedAt, item.Version,
	)
	if err != nil {
		return wrapDBError("create item", item.ID, err)
	}
	return nil
}

// UpdateItem performs an optimistic-locking update: the WHERE clause matches
// on both id and the caller's observed version, and a zero-rows-affected
// result is distinguished as a conflict (someone else updated first) rather
// than a not-found, which is checked separately.
func (s *SQLiteStorage) UpdateItem(ctx context.Context, item *types.WorkItem) error {
	if err := item.Validate(); err != nil {
		return err
	}
	conn := s.conn(ctx)
	res, err := conn.ExecContext(ctx, `
		UPDATE work_items SET
			parent_id = ?, title = ?, description = ?, summary = ?, role = ?, previous_role = ?,
			status_label = ?, priority = ?, complexity = ?, requires_verification = ?, depth = ?,
			metadata = ?, tags = ?, modified_at = ?, role_changed_at = ?, version = version + 1
		WHERE id = ? AND version = ?`,
		item.ParentID, item.Title, item.Description, item.Summary, item.Role, item.PreviousRole,
		item.StatusLabel, item.Priority, item.Complexity, boolToInt(item.RequiresVerification), item.Depth,
		item.Metadata, item.Tags, item.ModifiedAt, item.RoleChangedAt,
		item.ID, item.Version,
	)
	if err != nil {
		return wrapDBError("update item", item.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return storage.DatabaseError("update item", err)
	}
	if affected == 0 {
		row := conn.QueryRowContext(ctx, `SELECT 1 FROM work_items WHERE id = ?`, item.ID)
		var exists int
		if scanErr := row.Scan(&exists); scanErr != nil {
			return storage.NotFound(item.ID, "update item: not found")
		}
		return storage.Conflict(fmt.Sprintf("update item %s: version mismatch", item.ID))
	}
	return nil
}

func (s *SQLiteStorage) DeleteItem(ctx context.Context, id string) error {
	res, err := s.conn(ctx).ExecContext(ctx, `DELETE FROM work_items WHERE id = ?`, id)
	if err != nil {
		return wrapDBError("delete item", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return storage.DatabaseError("delete item", err)
	}
	if affected == 0 {
		return storage.NotFound(id, "delete item: not found")
	}
	return nil
}

func (s *SQLiteStorage) DeleteItems(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders, args := inClause(ids)
	_, err := s.conn(ctx).ExecContext(ctx, `DELETE FROM work_items WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return wrapDBError("delete items", "", err)
	}
	return nil
}

func (s *SQLiteStorage) FindByParent(ctx context.Context, parentID string) ([]*types.WorkItem, error) {
	return s.queryItems(ctx, `SELECT `+itemColumns+` FROM work_items WHERE parent_id = ? ORDER BY created_at`, parentID)
}

func (s *SQLiteStorage) FindByRole(ctx context.Context, role types.Role, limit int) ([]*types.WorkItem, error) {
	q := `SELECT ` + itemColumns + ` FROM work_items WHERE role = ? ORDER BY priority, created_at`
	args := []any{role}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	return s.queryItems(ctx, q, args...)
}

func (s *SQLiteStorage) FindByDepth(ctx context.Context, depth int) ([]*types.WorkItem, error) {
	return s.queryItems(ctx, `SELECT `+itemColumns+` FROM work_items WHERE depth = ? ORDER BY created_at`, depth)
}

func (s *SQLiteStorage) FindRoot(ctx context.Context, itemID string) (*types.WorkItem, error) {
	current, err := s.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	for current.ParentID != nil {
		parent, err := s.GetItem(ctx, *current.ParentID)
		if err != nil {
			return nil, err
		}
		current = parent
	}
	return current, nil
}

func (s *SQLiteStorage) FindRootItems(ctx context.Context) ([]*types.WorkItem, error) {
	return s.queryItems(ctx, `SELECT `+itemColumns+` FROM work_items WHERE parent_id IS NULL ORDER BY created_at`)
}

func (s *SQLiteStorage) SearchItems(ctx context.Context, query string, limit int) ([]*types.WorkItem, error) {
	like := "%" + strings.ReplaceAll(query, "%", "\\%") + "%"
	q := `SELECT ` + itemColumns + ` FROM work_items
		WHERE title LIKE ? ESCAPE '\' OR summary LIKE ? ESCAPE '\' OR description LIKE ? ESCAPE '\'
		ORDER BY created_at DESC`
	args := []any{like, like, like}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	return s.queryItems(ctx, q, args...)
}

func (s *SQLiteStorage) CountItems(ctx context.Context) (int, error) {
	var count int
	row := s.conn(ctx).QueryRowContext(ctx, `SELECT COUNT(*) FROM work_items`)
	if err := row.Scan(&count); err != nil {
		return 0, storage.DatabaseError("count items", err)
	}
	return count, nil
}

func (s *SQLiteStorage) FindChildren(ctx context.Context, parentID string) ([]*types.WorkItem, error) {
	return s.FindByParent(ctx, parentID)
}

func (s *SQLiteStorage) CountChildrenByRole(ctx context.Context, parentID string) (storage.ChildRoleCounts, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, `
		SELECT role, COUNT(*) FROM work_items WHERE parent_id = ? GROUP BY role`, parentID)
	if err != nil {
		return nil, storage.DatabaseError("count children by role", err)
	}
	defer rows.Close()

	counts := storage.ChildRoleCounts{}
	for rows.Next() {
		var role types.Role
		var n int
		if err := rows.Scan(&role, &n); err != nil {
			return nil, storage.DatabaseError("count children by role: scan", err)
		}
		counts[role] = n
	}
	return counts, rows.Err()
}

// FindDescendants walks the subtree rooted at rootID breadth-first; the
// parent_id index keeps each level's query cheap, and recursion depth is
// bounded by the tree's own depth rather than an arbitrary cap.
func (s *SQLiteStorage) FindDescendants(ctx context.Context, rootID string) ([]*types.WorkItem, error) {
	var all []*types.WorkItem
	frontier := []string{rootID}
	for len(frontier) > 0 {
		var next []string
		for _, parentID := range frontier {
			children, err := s.FindByParent(ctx, parentID)
			if err != nil {
				return nil, err
			}
			for _, c := range children {
				all = append(all, c)
				next = append(next, c.ID)
			}
		}
		frontier = next
	}
	return all, nil
}

func (s *SQLiteStorage) FindByIDs(ctx context.Context, ids []string) ([]*types.WorkItem, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders, args := inClause(ids)
	return s.queryItems(ctx, `SELECT `+itemColumns+` FROM work_items WHERE id IN (`+placeholders+`)`, args...)
}

// FindAncestorChains resolves the ancestor path of every id in ids
// concurrently: one goroutine per item via errgroup, each walking its own
// parent chain with GetItem. This fans out independent per-row lookups
// rather than a single recursive CTE, since the embedded driver has no
// window-function support worth depending on here.
func (s *SQLiteStorage) FindAncestorChains(ctx context.Context, ids []string) ([]storage.AncestorChain, error) {
	chains := make([]storage.AncestorChain, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			item, err := s.GetItem(gctx, id)
			if err != nil {
				return err
			}
			var ancestors []*types.WorkItem
			for item.ParentID != nil {
				parent, err := s.GetItem(gctx, *item.ParentID)
				if err != nil {
					return err
				}
				ancestors = append([]*types.WorkItem{parent}, ancestors...)
				item = parent
			}
			chains[i] = storage.AncestorChain{ItemID: id, Ancestors: ancestors}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return chains, nil
}

func (s *SQLiteStorage) FindByFilters(ctx context.Context, filter types.ItemFilter) ([]*types.WorkItem, error) {
	where, args := filterClause(filter)
	q := `SELECT ` + itemColumns + ` FROM work_items`
	if where != "" {
		q += ` WHERE ` + where
	}
	q += ` ORDER BY ` + orderByClause(filter)
	if filter.Limit > 0 {
		q += ` LIMIT ?`
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			q += ` OFFSET ?`
			args = append(args, filter.Offset)
		}
	}
	return s.queryItems(ctx, q, args...)
}

func (s *SQLiteStorage) CountByFilters(ctx context.Context, filter types.ItemFilter) (int, error) {
	where, args := filterClause(filter)
	q := `SELECT COUNT(*) FROM work_items`
	if where != "" {
		q += ` WHERE ` + where
	}
	var count int
	row := s.conn(ctx).QueryRowContext(ctx, q, args...)
	if err := row.Scan(&count); err != nil {
		return 0, storage.DatabaseError("count by filters", err)
	}
	return count, nil
}

// queryItems runs q and decodes every row, skipping (and logging) rows that
// fail to decode instead of failing the whole bulk read.
func (s *SQLiteStorage) queryItems(ctx context.Context, q string, args ...any) ([]*types.WorkItem, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, q, args...)
	if err != nil {
		return nil, storage.DatabaseError("query items", err)
	}
	defer rows.Close()

	var items []*types.WorkItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			s.log.Warn("skipping unreadable work item row", "error", err)
			continue
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func inClause(ids []string) (string, []any) {
	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	return strings.Join(placeholders, ", "), args
}

// filterClause builds the conjunctive WHERE predicate for types.ItemFilter.
// Tag matching replicates types.HasTag's comma-boundary semantics in SQL by
// anchoring the stored, comma-joined tag list with leading/trailing commas
// before a LIKE search.
func filterClause(f types.ItemFilter) (string, []any) {
	var clauses []string
	var args []any

	if f.ParentID != nil {
		clauses = append(clauses, "parent_id = ?")
		args = append(args, *f.ParentID)
	}
	if f.Depth != nil {
		clauses = append(clauses, "depth = ?")
		args = append(args, *f.Depth)
	}
	if f.Role != nil {
		clauses = append(clauses, "role = ?")
		args = append(args, *f.Role)
	}
	if f.Priority != nil {
		clauses = append(clauses, "priority = ?")
		args = append(args, *f.Priority)
	}
	for _, tag := range f.Tags {
		clauses = append(clauses, "(',' || tags || ',') LIKE ?")
		args = append(args, "%,"+tag+",%")
	}
	if f.Query != "" {
		like := "%" + strings.ReplaceAll(f.Query, "%", "\\%") + "%"
		clauses = append(clauses, "(title LIKE ? ESCAPE '\\' OR summary LIKE ? ESCAPE '\\')")
		args = append(args, like, like)
	}
	if f.CreatedAfter != nil {
		clauses = append(clauses, "created_at >= ?")
		args = append(args, *f.CreatedAfter)
	}
	if f.CreatedBefore != nil {
		clauses = append(clauses, "created_at <= ?")
		args = append(args, *f.CreatedBefore)
	}
	if f.ModifiedAfter != nil {
		clauses = append(clauses, "modified_at >= ?")
		args = append(args, *f.ModifiedAfter)
	}
	if f.ModifiedBefore != nil {
		clauses = append(clauses, "modified_at <= ?")
		args = append(args, *f.ModifiedBefore)
	}
	if f.RoleChangedAfter != nil {
		clauses = append(clauses, "role_changed_at >= ?")
		args = append(args, *f.RoleChangedAfter)
	}
	if f.RoleChangedBefore != nil {
		clauses = append(clauses, "role_changed_at <= ?")
		args = append(args, *f.RoleChangedBefore)
	}

	return strings.Join(clauses, " AND "), args
}

func orderByClause(f types.ItemFilter) string {
	field := types.NormalizeSortField(string(f.SortBy))
	col := map[types.SortField]string{
		types.SortByCreated:  "created_at",
		types.SortByModified: "modified_at",
		types.SortByPriority: "priority",
	}[field]
	dir := "ASC"
	if f.SortOrder == types.SortDesc {
		dir = "DESC"
	}
	return col + " " + dir
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
