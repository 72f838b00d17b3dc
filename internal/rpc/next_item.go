package rpc

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/workgraph/core/internal/depgraph"
	"github.com/workgraph/core/internal/types"
)

// candidateScanLimit bounds the QUEUE scan before filtering and ranking.
const candidateScanLimit = 200

// GetNextItemArgs is the get_next_item tool's parameter envelope.
type GetNextItemArgs struct {
	ParentID         *string `json:"parentId,omitempty"`
	Limit            int     `json:"limit,omitempty"`
	IncludeAncestors bool    `json:"includeAncestors,omitempty"`
}

// GetNextItem implements get_next_item: QUEUE candidates under an optional
// parent scope, blocked ones filtered out, ranked by priority then
// complexity ascending.
func (h *Handlers) GetNextItem(ctx context.Context, raw json.RawMessage) Envelope {
	var args GetNextItemArgs
	if err := marshalArgs(raw, &args); err != nil {
		return fail(CodeValidation, "invalid get_next_item args: "+err.Error(), nil)
	}
	limit := args.Limit
	if limit <= 0 {
		limit = 1
	}
	if limit > 20 {
		limit = 20
	}

	queueRole := types.RoleQueue
	filter := types.ItemFilter{Role: &queueRole, Limit: candidateScanLimit}
	if args.ParentID != nil {
		filter.ParentID = args.ParentID
	}
	candidates, err := h.Store.FindByFilters(ctx, filter)
	if err != nil {
		return fromError(err)
	}

	actionable, err := h.filterUnblocked(ctx, candidates)
	if err != nil {
		return fromError(err)
	}

	sort.SliceStable(actionable, func(i, j int) bool {
		a, b := actionable[i], actionable[j]
		if a.Priority.Rank() != b.Priority.Rank() {
			return a.Priority.Rank() < b.Priority.Rank()
		}
		ac, bc := complexityOrMax(a.Complexity), complexityOrMax(b.Complexity)
		return ac < bc
	})
	if len(actionable) > limit {
		actionable = actionable[:limit]
	}

	data := map[string]any{"items": actionable}
	if args.IncludeAncestors && len(actionable) > 0 {
		ids := make([]string, len(actionable))
		for i, it := range actionable {
			ids[i] = it.ID
		}
		chains, err := h.Store.FindAncestorChains(ctx, ids)
		if err != nil {
			return fromError(err)
		}
		data["ancestors"] = chains
	}
	return ok(data, "")
}

func complexityOrMax(c *int) int {
	if c == nil {
		return 1<<31 - 1
	}
	return *c
}

func (h *Handlers) filterUnblocked(ctx context.Context, candidates []*types.WorkItem) ([]*types.WorkItem, error) {
	var actionable []*types.WorkItem
	for _, item := range candidates {
		deps, err := h.Store.FindDependenciesByItem(ctx, item.ID)
		if err != nil {
			return nil, err
		}
		if len(deps) == 0 {
			actionable = append(actionable, item)
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
		if blocked, _ := depgraph.IsBlocked(item.ID, depVals, depVals, roleOf); !blocked {
			actionable = append(actionable, item)
		}
	}
	return actionable, nil
}
