package rpc

import (
	"context"
	"encoding/json"

	"github.com/workgraph/core/internal/types"
	"github.com/workgraph/core/internal/workflow"
)

// CompleteTreeArgs is the complete_tree tool's parameter envelope. Either
// RootID (root + all its descendants) or ItemIDs (an explicit set) selects
// the target set; Trigger is usually "complete" but "cancel" is accepted
// for bulk cancellation.
type CompleteTreeArgs struct {
	RootID  string        `json:"rootId,omitempty"`
	ItemIDs []string       `json:"itemIds,omitempty"`
	Trigger types.Trigger `json:"trigger,omitempty"`
}

type treeItemResult struct {
	ItemID  string `json:"itemId"`
	Outcome string `json:"outcome"` // completed|skipped|gateFailure
	Reason  string `json:"reason,omitempty"`
	Missing []string `json:"missing,omitempty"`
}

// CompleteTree implements complete_tree: collect the target set, build the
// induced dependency subgraph, order it with Kahn's algorithm, then apply
// the trigger in order with gate enforcement and downstream skip
// propagation on failure.
func (h *Handlers) CompleteTree(ctx context.Context, raw json.RawMessage) Envelope {
	var args CompleteTreeArgs
	if err := marshalArgs(raw, &args); err != nil {
		return fail(CodeValidation, "invalid complete_tree args: "+err.Error(), nil)
	}
	trigger := args.Trigger
	if trigger == "" {
		trigger = types.TriggerComplete
	}

	targets, err := h.completeTreeTargets(ctx, args)
	if err != nil {
		return fromError(err)
	}
	if len(targets) == 0 {
		return fail(CodeValidation, "complete_tree requires rootId or itemIds", nil)
	}

	order, after, err := h.inducedTopologicalOrder(ctx, targets)
	if err != nil {
		return fromError(err)
	}

	results := make(map[string]treeItemResult)
	skipped := map[string]bool{}
	completed, skippedN, gateFailures := 0, 0, 0

	for _, id := range order {
		if skipped[id] {
			results[id] = treeItemResult{ItemID: id, Outcome: "skipped", Reason: "dependency gate failed"}
			skippedN++
			continue
		}

		item, err := h.Store.GetItem(ctx, id)
		if err != nil {
			results[id] = treeItemResult{ItemID: id, Outcome: "skipped", Reason: err.Error()}
			skippedN++
			continue
		}
		if item.Role == types.RoleTerminal {
			results[id] = treeItemResult{ItemID: id, Outcome: "skipped", Reason: "already terminal"}
			skippedN++
			continue
		}

		if trigger == types.TriggerComplete {
			notes, err := h.Store.FindNotesByItem(ctx, id, nil)
			if err == nil {
				schema, serr := h.Schemas.SchemaForTags(types.TagList(item.Tags))
				if serr == nil {
					if gateErr := workflow.EvaluateCompleteGate(schema, notes); gateErr != nil {
						ge := gateErr.(*workflow.GateError)
						results[id] = treeItemResult{ItemID: id, Outcome: "gateFailure", Missing: ge.Missing}
						gateFailures++
						markDownstreamSkipped(id, after, skipped)
						continue
					}
				}
			}
		}

		if _, err := h.Engine.Advance(ctx, id, trigger, nil); err != nil {
			results[id] = treeItemResult{ItemID: id, Outcome: "gateFailure", Reason: err.Error()}
			gateFailures++
			markDownstreamSkipped(id, after, skipped)
			continue
		}

		results[id] = treeItemResult{ItemID: id, Outcome: "completed"}
		completed++
	}

	ordered := make([]treeItemResult, len(order))
	for i, id := range order {
		ordered[i] = results[id]
	}

	return ok(map[string]any{
		"results":      ordered,
		"total":        len(order),
		"completed":    completed,
		"skipped":      skippedN,
		"gateFailures": gateFailures,
	}, "")
}

func (h *Handlers) completeTreeTargets(ctx context.Context, args CompleteTreeArgs) ([]string, error) {
	if args.RootID != "" {
		root, err := h.Store.GetItem(ctx, args.RootID)
		if err != nil {
			return nil, err
		}
		descendants, err := h.Store.FindDescendants(ctx, args.RootID)
		if err != nil {
			return nil, err
		}
		ids := []string{root.ID}
		for _, d := range descendants {
			ids = append(ids, d.ID)
		}
		return ids, nil
	}
	return args.ItemIDs, nil
}

// inducedTopologicalOrder builds the dependency subgraph induced by target
// (edges whose both endpoints are in target, BLOCKS/IS_BLOCKED_BY only,
// normalized so u precedes v) and orders it with Kahn's algorithm; nodes
// left in a residual cycle are appended in their original order.
func (h *Handlers) inducedTopologicalOrder(ctx context.Context, target []string) ([]string, map[string][]string, error) {
	inSet := make(map[string]struct{}, len(target))
	for _, id := range target {
		inSet[id] = struct{}{}
	}

	after := make(map[string][]string) // u -> v where u precedes v
	indegree := make(map[string]int, len(target))
	for _, id := range target {
		indegree[id] = 0
	}

	seenEdge := map[[2]string]struct{}{}
	for _, id := range target {
		deps, err := h.Store.FindDependenciesByFromItem(ctx, id)
		if err != nil {
			return nil, nil, err
		}
		incomingDeps, err := h.Store.FindDependenciesByToItem(ctx, id)
		if err != nil {
			return nil, nil, err
		}
		deps = append(deps, incomingDeps...)

		for _, d := range deps {
			var u, v string
			switch d.Type {
			case types.DepBlocks:
				u, v = d.FromItemID, d.ToItemID
			case types.DepIsBlockedBy:
				u, v = d.ToItemID, d.FromItemID
			default:
				continue
			}
			if _, ok := inSet[u]; !ok {
				continue
			}
			if _, ok := inSet[v]; !ok {
				continue
			}
			key := [2]string{u, v}
			if _, dup := seenEdge[key]; dup {
				continue
			}
			seenEdge[key] = struct{}{}
			after[u] = append(after[u], v)
			indegree[v]++
		}
	}

	var queue, order []string
	for _, id := range target {
		if indegree[id] == 0 {
			queue = append(queue, id)
		}
	}
	processed := map[string]struct{}{}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if _, done := processed[id]; done {
			continue
		}
		processed[id] = struct{}{}
		order = append(order, id)
		for _, next := range after[id] {
			indegree[next]--
			if indegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}
	for _, id := range target {
		if _, done := processed[id]; !done {
			order = append(order, id)
		}
	}

	return order, after, nil
}

func markDownstreamSkipped(id string, after map[string][]string, skipped map[string]bool) {
	for _, next := range after[id] {
		if skipped[next] {
			continue
		}
		skipped[next] = true
		markDownstreamSkipped(next, after, skipped)
	}
}
