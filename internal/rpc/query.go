package rpc

import (
	"context"
	"encoding/json"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"

	"github.com/workgraph/core/internal/types"
)

var dateParser = newDateParser()

func newDateParser() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}

// parseTimeBound accepts either an RFC3339 timestamp or a natural-language
// relative expression ("3 days ago", "yesterday"), resolved with
// olebedev/when so filter arguments stay human-operable.
func parseTimeBound(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	r, err := dateParser.Parse(s, time.Now())
	if err != nil {
		return nil, types.NewValidationError("unparseable time expression %q: %v", s, err)
	}
	if r == nil {
		return nil, types.NewValidationError("unparseable time expression %q", s)
	}
	return &r.Time, nil
}

// QueryItemsArgs is the query_items tool's parameter envelope.
type QueryItemsArgs struct {
	Op                string   `json:"op"`
	ID                string   `json:"id,omitempty"`
	Query             string   `json:"query,omitempty"`
	ParentID          *string  `json:"parentId,omitempty"`
	Depth             *int     `json:"depth,omitempty"`
	Role              *types.Role     `json:"role,omitempty"`
	Priority          *types.Priority `json:"priority,omitempty"`
	Tags              []string `json:"tags,omitempty"`
	CreatedAfter      string   `json:"createdAfter,omitempty"`
	CreatedBefore     string   `json:"createdBefore,omitempty"`
	ModifiedAfter     string   `json:"modifiedAfter,omitempty"`
	ModifiedBefore    string   `json:"modifiedBefore,omitempty"`
	RoleChangedAfter  string   `json:"roleChangedAfter,omitempty"`
	RoleChangedBefore string   `json:"roleChangedBefore,omitempty"`
	SortBy            string   `json:"sortBy,omitempty"`
	SortOrder         string   `json:"sortOrder,omitempty"`
	Limit             int      `json:"limit,omitempty"`
	Offset            int      `json:"offset,omitempty"`
	IncludeAncestors  bool     `json:"includeAncestors,omitempty"`
	IncludeChildren   bool     `json:"includeChildren,omitempty"`
}

// QueryItems implements query_items (ops: get, search, overview).
func (h *Handlers) QueryItems(ctx context.Context, raw json.RawMessage) Envelope {
	var args QueryItemsArgs
	if err := marshalArgs(raw, &args); err != nil {
		return fail(CodeValidation, "invalid query_items args: "+err.Error(), nil)
	}

	switch args.Op {
	case "get":
		return h.queryGet(ctx, args)
	case "search":
		return h.querySearch(ctx, args)
	case "overview":
		return h.queryOverview(ctx)
	default:
		return fail(CodeValidation, "unknown query_items op: "+args.Op, nil)
	}
}

func (h *Handlers) queryGet(ctx context.Context, args QueryItemsArgs) Envelope {
	if args.ID != "" {
		item, err := h.Store.GetItem(ctx, args.ID)
		if err != nil {
			return fromError(err)
		}
		data := map[string]any{"item": item}
		if args.IncludeChildren {
			children, err := h.Store.FindChildren(ctx, args.ID)
			if err != nil {
				return fromError(err)
			}
			data["children"] = children
		}
		if args.IncludeAncestors {
			chains, err := h.Store.FindAncestorChains(ctx, []string{args.ID})
			if err != nil {
				return fromError(err)
			}
			if len(chains) > 0 {
				data["ancestors"] = chains[0].Ancestors
			}
		}
		return ok(data, "")
	}

	filter, err := h.buildFilter(args)
	if err != nil {
		return fromError(err)
	}
	items, err := h.Store.FindByFilters(ctx, filter)
	if err != nil {
		return fromError(err)
	}
	total, err := h.Store.CountByFilters(ctx, filter)
	if err != nil {
		return fromError(err)
	}
	return ok(map[string]any{"items": items, "total": total}, "")
}

func (h *Handlers) querySearch(ctx context.Context, args QueryItemsArgs) Envelope {
	if args.Query == "" {
		return fail(CodeValidation, "search requires a query", nil)
	}
	limit := args.Limit
	if limit <= 0 {
		limit = 50
	}
	items, err := h.Store.SearchItems(ctx, args.Query, limit)
	if err != nil {
		return fromError(err)
	}
	return ok(map[string]any{"items": items}, "")
}

func (h *Handlers) queryOverview(ctx context.Context) Envelope {
	total, err := h.Store.CountItems(ctx)
	if err != nil {
		return fromError(err)
	}

	byRole := map[types.Role]int{}
	for _, role := range []types.Role{types.RoleQueue, types.RoleWork, types.RoleReview, types.RoleTerminal, types.RoleBlocked} {
		count, err := h.Store.CountByFilters(ctx, types.ItemFilter{Role: &role})
		if err != nil {
			return fromError(err)
		}
		byRole[role] = count
	}

	byPriority := map[types.Priority]int{}
	for _, p := range []types.Priority{types.PriorityHigh, types.PriorityMedium, types.PriorityLow} {
		count, err := h.Store.CountByFilters(ctx, types.ItemFilter{Priority: &p})
		if err != nil {
			return fromError(err)
		}
		byPriority[p] = count
	}

	oldestQueue, err := h.Store.FindByFilters(ctx, types.ItemFilter{
		Role: &[]types.Role{types.RoleQueue}[0], SortBy: types.SortByCreated, SortOrder: types.SortAsc, Limit: 1,
	})
	if err != nil {
		return fromError(err)
	}

	blocked, err := h.collectBlocked(ctx, 0, 0)
	if err != nil {
		return fromError(err)
	}

	var oldest *types.WorkItem
	if len(oldestQueue) > 0 {
		oldest = oldestQueue[0]
	}

	return ok(map[string]any{
		"total":          total,
		"byRole":         byRole,
		"byPriority":     byPriority,
		"oldestQueued":   oldest,
		"blockedCount":   len(blocked),
	}, "")
}

func (h *Handlers) buildFilter(args QueryItemsArgs) (types.ItemFilter, error) {
	filter := types.ItemFilter{
		ParentID: args.ParentID,
		Depth:    args.Depth,
		Role:     args.Role,
		Priority: args.Priority,
		Tags:     args.Tags,
		Query:    args.Query,
		SortBy:       types.NormalizeSortField(args.SortBy),
		SortOrder:    types.SortOrder(args.SortOrder),
		Limit:        args.Limit,
		Offset:       args.Offset,
	}
	if filter.SortOrder == "" {
		filter.SortOrder = types.SortDesc
	}

	var err error
	if filter.CreatedAfter, err = parseTimeBound(args.CreatedAfter); err != nil {
		return filter, err
	}
	if filter.CreatedBefore, err = parseTimeBound(args.CreatedBefore); err != nil {
		return filter, err
	}
	if filter.ModifiedAfter, err = parseTimeBound(args.ModifiedAfter); err != nil {
		return filter, err
	}
	if filter.ModifiedBefore, err = parseTimeBound(args.ModifiedBefore); err != nil {
		return filter, err
	}
	if filter.RoleChangedAfter, err = parseTimeBound(args.RoleChangedAfter); err != nil {
		return filter, err
	}
	if filter.RoleChangedBefore, err = parseTimeBound(args.RoleChangedBefore); err != nil {
		return filter, err
	}
	return filter, nil
}
