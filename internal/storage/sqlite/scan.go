package sqlite

import (
	"database/sql"

	"github.com/workgraph/core/internal/types"
)

const itemColumns = `id, parent_id, title, description, summary, role, previous_role,
	status_label, priority, complexity, requires_verification, depth, metadata, tags,
	created_at, modified_at, role_changed_at, version`

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanItem(row scanner) (*types.WorkItem, error) {
	var w types.WorkItem
	var parentID, description, previousRole, statusLabel sql.NullString
	var complexity sql.NullInt64
	var requiresVerification int

	err := row.Scan(
		&w.ID, &parentID, &w.Title, &description, &w.Summary, &w.Role, &previousRole,
		&statusLabel, &w.Priority, &complexity, &requiresVerification, &w.Depth, &w.Metadata, &w.Tags,
		&w.CreatedAt, &w.ModifiedAt, &w.RoleChangedAt, &w.Version,
	)
	if err != nil {
		return nil, err
	}
	if parentID.Valid {
		w.ParentID = &parentID.String
	}
	if description.Valid {
		w.Description = &description.String
	}
	if previousRole.Valid {
		r := types.Role(previousRole.String)
		w.PreviousRole = &r
	}
	if statusLabel.Valid {
		w.StatusLabel = &statusLabel.String
	}
	if complexity.Valid {
		c := int(complexity.Int64)
		w.Complexity = &c
	}
	w.RequiresVerification = requiresVerification != 0
	return &w, nil
}

const dependencyColumns = `id, from_item_id, to_item_id, type, unblock_at, created_at`

func scanDependency(row scanner) (*types.Dependency, error) {
	var d types.Dependency
	var unblockAt sql.NullString
	if err := row.Scan(&d.ID, &d.FromItemID, &d.ToItemID, &d.Type, &unblockAt, &d.CreatedAt); err != nil {
		return nil, err
	}
	if unblockAt.Valid {
		r := types.Role(unblockAt.String)
		d.UnblockAt = &r
	}
	return &d, nil
}

const noteColumns = `id, item_id, key, role, body, created_at, modified_at`

func scanNote(row scanner) (*types.Note, error) {
	var n types.Note
	if err := row.Scan(&n.ID, &n.ItemID, &n.Key, &n.Role, &n.Body, &n.CreatedAt, &n.ModifiedAt); err != nil {
		return nil, err
	}
	return &n, nil
}

const transitionColumns = `id, item_id, from_role, to_role, trigger, summary, status_label, occurred_at`

func scanTransition(row scanner) (*types.RoleTransition, error) {
	var rt types.RoleTransition
	var summary, statusLabel sql.NullString
	if err := row.Scan(&rt.ID, &rt.ItemID, &rt.FromRole, &rt.ToRole, &rt.Trigger, &summary, &statusLabel, &rt.OccurredAt); err != nil {
		return nil, err
	}
	if summary.Valid {
		rt.Summary = &summary.String
	}
	if statusLabel.Valid {
		rt.StatusLabel = &statusLabel.String
	}
	return &rt, nil
}
