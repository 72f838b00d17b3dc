package rpc

import (
	"context"
	"encoding/json"
	"time"

	"github.com/workgraph/core/internal/types"
)

// DependencyInput is one explicit edge in a manage_dependencies create call.
type DependencyInput struct {
	FromItemID string              `json:"fromItemId"`
	ToItemID   string              `json:"toItemId"`
	Type       types.DependencyType `json:"type"`
	UnblockAt  *types.Role          `json:"unblockAt,omitempty"`
}

// ManageDependenciesArgs is the manage_dependencies tool's parameter
// envelope. Create accepts either an explicit Deps array or one pattern
// shortcut; Type/UnblockAt at the top level are per-edge
// defaults for pattern shortcuts. An edge with no type from either place is
// created as BLOCKS.
type ManageDependenciesArgs struct {
	Op         string               `json:"op"`
	Deps       []DependencyInput    `json:"deps,omitempty"`
	Linear     []string             `json:"linear,omitempty"`
	FanOutFrom string               `json:"fanOutFrom,omitempty"`
	FanOutTo   []string             `json:"fanOutTo,omitempty"`
	FanInFrom  []string             `json:"fanInFrom,omitempty"`
	FanInTo    string               `json:"fanInTo,omitempty"`
	Type       types.DependencyType `json:"type,omitempty"`
	UnblockAt  *types.Role          `json:"unblockAt,omitempty"`

	ID   string  `json:"id,omitempty"`
	From string  `json:"from,omitempty"`
	To   *string `json:"to,omitempty"`

	DeleteAll bool `json:"deleteAll,omitempty"`
}

// ManageDependencies implements manage_dependencies (ops: create, delete).
func (h *Handlers) ManageDependencies(ctx context.Context, raw json.RawMessage) Envelope {
	var args ManageDependenciesArgs
	if err := marshalArgs(raw, &args); err != nil {
		return fail(CodeValidation, "invalid manage_dependencies args: "+err.Error(), nil)
	}

	switch args.Op {
	case "create":
		return h.createDependencies(ctx, args)
	case "delete":
		return h.deleteDependencies(ctx, args)
	default:
		return fail(CodeValidation, "unknown manage_dependencies op: "+args.Op, nil)
	}
}

func (h *Handlers) createDependencies(ctx context.Context, args ManageDependenciesArgs) Envelope {
	inputs, err := expandDependencyPattern(args)
	if err != nil {
		return fromError(err)
	}
	if len(inputs) == 0 {
		return fail(CodeValidation, "create requires deps or a pattern shortcut", nil)
	}

	deps := make([]*types.Dependency, len(inputs))
	now := time.Now()
	for i, in := range inputs {
		depType := in.Type
		if depType == "" {
			depType = args.Type
		}
		if depType == "" {
			depType = types.DepBlocks
		}
		unblockAt := in.UnblockAt
		if unblockAt == nil {
			unblockAt = args.UnblockAt
		}
		deps[i] = &types.Dependency{
			ID:         types.NewDependencyID(),
			FromItemID: in.FromItemID,
			ToItemID:   in.ToItemID,
			Type:       depType,
			UnblockAt:  unblockAt,
			CreatedAt:  now,
		}
	}

	if err := h.Store.CreateDependencyBatch(ctx, deps); err != nil {
		return fromError(err)
	}
	return ok(deps, "")
}

// expandDependencyPattern turns a pattern shortcut (linear, fan-out, fan-in)
// or an explicit deps array into a flat list of DependencyInput.
func expandDependencyPattern(args ManageDependenciesArgs) ([]DependencyInput, error) {
	if len(args.Deps) > 0 {
		return args.Deps, nil
	}
	if len(args.Linear) > 0 {
		if len(args.Linear) < 2 {
			return nil, types.NewValidationError("linear pattern requires at least 2 ids")
		}
		inputs := make([]DependencyInput, 0, len(args.Linear)-1)
		for i := 0; i+1 < len(args.Linear); i++ {
			inputs = append(inputs, DependencyInput{FromItemID: args.Linear[i], ToItemID: args.Linear[i+1]})
		}
		return inputs, nil
	}
	if args.FanOutFrom != "" || len(args.FanOutTo) > 0 {
		if args.FanOutFrom == "" || len(args.FanOutTo) == 0 {
			return nil, types.NewValidationError("fan-out requires a source and at least one target")
		}
		inputs := make([]DependencyInput, len(args.FanOutTo))
		for i, to := range args.FanOutTo {
			inputs[i] = DependencyInput{FromItemID: args.FanOutFrom, ToItemID: to}
		}
		return inputs, nil
	}
	if args.FanInTo != "" || len(args.FanInFrom) > 0 {
		if args.FanInTo == "" || len(args.FanInFrom) == 0 {
			return nil, types.NewValidationError("fan-in requires at least one source and a target")
		}
		inputs := make([]DependencyInput, len(args.FanInFrom))
		for i, from := range args.FanInFrom {
			inputs[i] = DependencyInput{FromItemID: from, ToItemID: args.FanInTo}
		}
		return inputs, nil
	}
	return nil, nil
}

func (h *Handlers) deleteDependencies(ctx context.Context, args ManageDependenciesArgs) Envelope {
	switch {
	case args.ID != "":
		if err := h.Store.DeleteDependency(ctx, args.ID); err != nil {
			return fromError(err)
		}
		return ok(map[string]any{"deleted": args.ID}, "")

	case args.From != "" && args.DeleteAll:
		if err := h.Store.DeleteDependenciesByItem(ctx, args.From); err != nil {
			return fromError(err)
		}
		return ok(map[string]any{"deletedFor": args.From}, "")

	case args.From != "" && args.To != nil:
		deps, err := h.Store.FindDependenciesByFromItem(ctx, args.From)
		if err != nil {
			return fromError(err)
		}
		var deletedIDs []string
		for _, d := range deps {
			if d.ToItemID != *args.To {
				continue
			}
			if args.Type != "" && d.Type != args.Type {
				continue
			}
			if err := h.Store.DeleteDependency(ctx, d.ID); err != nil {
				return fromError(err)
			}
			deletedIDs = append(deletedIDs, d.ID)
		}
		return ok(map[string]any{"deleted": deletedIDs}, "")

	default:
		return fail(CodeValidation, "delete requires id, or (from,to), or (from,deleteAll)", nil)
	}
}

// QueryDependenciesArgs is the query_dependencies tool's parameter envelope.
type QueryDependenciesArgs struct {
	ItemID          string               `json:"itemId"`
	Direction       string               `json:"direction,omitempty"` // incoming|outgoing|all
	Type            types.DependencyType `json:"type,omitempty"`
	IncludeItemInfo bool                 `json:"includeItemInfo,omitempty"`
	NeighborsOnly   bool                 `json:"neighborsOnly,omitempty"`
}

// QueryDependencies implements query_dependencies.
func (h *Handlers) QueryDependencies(ctx context.Context, raw json.RawMessage) Envelope {
	var args QueryDependenciesArgs
	if err := marshalArgs(raw, &args); err != nil {
		return fail(CodeValidation, "invalid query_dependencies args: "+err.Error(), nil)
	}
	if args.ItemID == "" {
		return fail(CodeValidation, "query_dependencies requires itemId", nil)
	}

	deps, err := h.Store.FindDependenciesByItem(ctx, args.ItemID)
	if err != nil {
		return fromError(err)
	}
	deps = filterDependencies(deps, args)

	data := map[string]any{"dependencies": deps}

	if args.IncludeItemInfo {
		ids := map[string]struct{}{}
		for _, d := range deps {
			ids[d.FromItemID] = struct{}{}
			ids[d.ToItemID] = struct{}{}
		}
		idList := make([]string, 0, len(ids))
		for id := range ids {
			idList = append(idList, id)
		}
		items, err := h.Store.FindByIDs(ctx, idList)
		if err != nil {
			return fromError(err)
		}
		data["items"] = items
	}

	if !args.NeighborsOnly {
		chain, depth, err := h.dependencyChain(ctx, args.ItemID)
		if err != nil {
			return fromError(err)
		}
		data["chain"] = chain
		data["depth"] = depth
	}

	return ok(data, "")
}

func filterDependencies(deps []*types.Dependency, args QueryDependenciesArgs) []*types.Dependency {
	var filtered []*types.Dependency
	for _, d := range deps {
		switch args.Direction {
		case "incoming":
			if d.ToItemID != args.ItemID {
				continue
			}
		case "outgoing":
			if d.FromItemID != args.ItemID {
				continue
			}
		}
		if args.Type != "" && d.Type != args.Type {
			continue
		}
		filtered = append(filtered, d)
	}
	return filtered
}

// dependencyChain BFS-walks the connected subgraph from itemID, bounded by
// h.MaxChainDepth, collapsing cycles via a visited set.
func (h *Handlers) dependencyChain(ctx context.Context, itemID string) ([]string, int, error) {
	visited := map[string]struct{}{itemID: {}}
	chain := []string{itemID}
	frontier := []string{itemID}
	depth := 0

	for len(frontier) > 0 && depth < h.MaxChainDepth {
		var next []string
		for _, id := range frontier {
			deps, err := h.Store.FindDependenciesByItem(ctx, id)
			if err != nil {
				return nil, 0, err
			}
			for _, d := range deps {
				neighbor := d.ToItemID
				if neighbor == id {
					neighbor = d.FromItemID
				}
				if _, seen := visited[neighbor]; seen {
					continue
				}
				visited[neighbor] = struct{}{}
				chain = append(chain, neighbor)
				next = append(next, neighbor)
			}
		}
		frontier = next
		depth++
	}
	return chain, depth, nil
}
