package sqlite

import (
	"context"

	"github.com/workgraph/core/internal/storage"
	"github.com/workgraph/core/internal/types"
)

// AppendTransition records a role change. role_transitions is append-only:
// there is no update or delete path, matching the audit-trail requirement of
// .2.
func (s *SQLiteStorage) AppendTransition(ctx context.Context, rt *types.RoleTransition) error {
	_, err := s.conn(ctx).ExecContext(ctx, `
		INSERT INTO role_transitions (`+transitionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rt.ID, rt.ItemID, rt.FromRole, rt.ToRole, rt.Trigger, rt.Summary, rt.StatusLabel, rt.OccurredAt,
	)
	if err != nil {
		return wrapDBError("append transition", rt.ID, err)
	}
	return nil
}

func (s *SQLiteStorage) FindTransitionsByItem(ctx context.Context, itemID string) ([]*types.RoleTransition, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, `
		SELECT `+transitionColumns+` FROM role_transitions WHERE item_id = ? ORDER BY occurred_at`, itemID)
	if err != nil {
		return nil, storage.DatabaseError("find transitions by item", err)
	}
	defer rows.Close()

	var transitions []*types.RoleTransition
	for rows.Next() {
		rt, err := scanTransition(rows)
		if err != nil {
			s.log.Warn("skipping unreadable transition row", "error", err)
			continue
		}
		transitions = append(transitions, rt)
	}
	return transitions, rows.Err()
}
