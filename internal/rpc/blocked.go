package rpc

import (
	"context"
	"encoding/json"

	"github.com/workgraph/core/internal/depgraph"
	"github.com/workgraph/core/internal/types"
)

type blockedItemResult struct {
	Item      *types.WorkItem     `json:"item"`
	BlockType depgraph.BlockType  `json:"blockType"`
	Blockers  []depgraph.Blocker  `json:"blockers,omitempty"`
}

// GetBlockedItemsArgs is the get_blocked_items tool's parameter envelope.
type GetBlockedItemsArgs struct {
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// GetBlockedItems implements get_blocked_items: items explicitly in BLOCKED,
// plus items in QUEUE/WORK/REVIEW with at least one unsatisfied dependency.
// Results are paginated since nothing bounds the size of a large graph's
// scan.
func (h *Handlers) GetBlockedItems(ctx context.Context, raw json.RawMessage) Envelope {
	var args GetBlockedItemsArgs
	if err := marshalArgs(raw, &args); err != nil {
		return fail(CodeValidation, "invalid get_blocked_items args: "+err.Error(), nil)
	}

	results, err := h.collectBlocked(ctx, args.Limit, args.Offset)
	if err != nil {
		return fromError(err)
	}
	return ok(map[string]any{"items": results}, "")
}

// collectBlocked scans the closed-set-of-productive-roles items plus
// explicitly BLOCKED items, classifying each with depgraph.IsBlocked.
// limit/offset of 0 means unbounded (used by query_items(overview) for a
// full count).
func (h *Handlers) collectBlocked(ctx context.Context, limit, offset int) ([]blockedItemResult, error) {
	var candidates []*types.WorkItem
	for _, role := range []types.Role{types.RoleQueue, types.RoleWork, types.RoleReview, types.RoleBlocked} {
		items, err := h.Store.FindByRole(ctx, role, 0)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, items...)
	}

	var results []blockedItemResult
	for _, item := range candidates {
		if item.Role == types.RoleBlocked {
			results = append(results, blockedItemResult{Item: item, BlockType: depgraph.BlockTypeExplicit})
			continue
		}

		deps, err := h.Store.FindDependenciesByItem(ctx, item.ID)
		if err != nil {
			return nil, err
		}
		if len(deps) == 0 {
			continue
		}

		blockerIDs := map[string]struct{}{}
		for _, d := range deps {
			if d.Type == types.DepBlocks && d.ToItemID == item.ID {
				blockerIDs[d.FromItemID] = struct{}{}
			}
			if d.Type == types.DepIsBlockedBy && d.FromItemID == item.ID {
				blockerIDs[d.ToItemID] = struct{}{}
			}
		}
		ids := make([]string, 0, len(blockerIDs))
		for id := range blockerIDs {
			ids = append(ids, id)
		}
		blockerItems, err := h.Store.FindByIDs(ctx, ids)
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
		blocked, blockers := depgraph.IsBlocked(item.ID, depVals, depVals, roleOf)
		if blocked {
			results = append(results, blockedItemResult{Item: item, BlockType: depgraph.BlockTypeDependency, Blockers: blockers})
		}
	}

	if offset > 0 {
		if offset >= len(results) {
			return nil, nil
		}
		results = results[offset:]
	}
	if limit > 0 && limit < len(results) {
		results = results[:limit]
	}
	return results, nil
}
