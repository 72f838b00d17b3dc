package workflow

import (
	"context"

	"github.com/workgraph/core/internal/depgraph"
	"github.com/workgraph/core/internal/storage"
	"github.com/workgraph/core/internal/types"
)

// validateTransition checks dependency-gating constraints for items moving
// to WORK, REVIEW, or TERMINAL. BLOCKED and resume targets skip this check.
func validateTransition(ctx context.Context, store storage.Storage, itemID string, target types.Role) ([]depgraph.Blocker, error) {
	switch target {
	case types.RoleWork, types.RoleReview, types.RoleTerminal:
	default:
		return nil, nil
	}

	deps, err := store.FindDependenciesByItem(ctx, itemID)
	if err != nil {
		return nil, err
	}

	blockerIDs := make(map[string]struct{})
	for _, d := range deps {
		if d.Type == types.DepBlocks && d.ToItemID == itemID {
			blockerIDs[d.FromItemID] = struct{}{}
		}
		if d.Type == types.DepIsBlockedBy && d.FromItemID == itemID {
			blockerIDs[d.ToItemID] = struct{}{}
		}
	}
	if len(blockerIDs) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(blockerIDs))
	for id := range blockerIDs {
		ids = append(ids, id)
	}
	blockerItems, err := store.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	roles := make(map[string]types.Role, len(blockerItems))
	for _, it := range blockerItems {
		roles[it.ID] = it.Role
	}
	roleOf := func(id string) (types.Role, bool) {
		r, ok := roles[id]
		return r, ok
	}

	depVals := depgraph.Deref(deps)
	blockers := depgraph.Blockers(itemID, depVals, depVals, roleOf)
	return blockers, nil
}
