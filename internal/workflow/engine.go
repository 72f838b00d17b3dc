package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/workgraph/core/internal/depgraph"
	"github.com/workgraph/core/internal/noteschema"
	"github.com/workgraph/core/internal/storage"
	"github.com/workgraph/core/internal/types"
)

// DefaultMaxCascadeDepth bounds the ancestor walk of cascade detection.
const DefaultMaxCascadeDepth = 16

// Engine is the workflow state machine: it composes the repository facade
// and the note-schema source into the resolve/validate/apply pipeline plus
// cascade and unblock detection.
type Engine struct {
	Store           storage.Storage
	Schemas         noteschema.Source
	MaxCascadeDepth int
}

// NewEngine builds an Engine with DefaultMaxCascadeDepth.
func NewEngine(store storage.Storage, schemas noteschema.Source) *Engine {
	return &Engine{Store: store, Schemas: schemas, MaxCascadeDepth: DefaultMaxCascadeDepth}
}

// AdvanceResult is the outcome of one advance_item element.
type AdvanceResult struct {
	Item           *types.WorkItem
	CascadeEvents  []CascadeEvent
	UnblockedItems []*types.WorkItem
	ExpectedNotes  []ExpectedNote
}

// CascadeEvent records one automatic parent transition.
type CascadeEvent struct {
	ItemID       string
	PreviousRole types.Role
	TargetRole   types.Role
}

// Advance runs resolve → validate → apply for one item and trigger, then
// cascade and unblock detection. Gate evaluation (note-schema completeness)
// is the tool handler's responsibility, run before Advance is called;
// Advance assumes the gate has already passed.
func (e *Engine) Advance(ctx context.Context, itemID string, trigger types.Trigger, summary *string) (*AdvanceResult, error) {
	var result AdvanceResult

	err := e.Store.WithTx(ctx, func(ctx context.Context) error {
		item, err := e.Store.GetItem(ctx, itemID)
		if err != nil {
			return err
		}

		schema, err := e.Schemas.SchemaForTags(types.TagList(item.Tags))
		if err != nil {
			return err
		}

		target, statusLabel, err := resolveTransition(item, trigger, schema.HasReviewPhase())
		if err != nil {
			return err
		}

		var blockers []depgraph.Blocker
		if trigger != types.TriggerResume {
			blockers, err = validateTransition(ctx, e.Store, itemID, target)
			if err != nil {
				return err
			}
		}
		if len(blockers) > 0 {
			return &TransitionError{Trigger: trigger, Msg: "dependency gate not satisfied", Blockers: blockers}
		}

		updated, err := e.apply(ctx, item, target, trigger, statusLabel, summary)
		if err != nil {
			return err
		}
		result.Item = updated

		if target == types.RoleTerminal {
			events, err := e.detectAndApplyCascade(ctx, updated)
			if err != nil {
				return err
			}
			result.CascadeEvents = events
		}

		unblocked, err := e.detectUnblocked(ctx, itemID)
		if err != nil {
			return err
		}
		result.UnblockedItems = unblocked

		notes, err := e.Store.FindNotesByItem(ctx, itemID, nil)
		if err != nil {
			return err
		}
		result.ExpectedNotes = ExpectedNotesForRole(schema, updated.Role, notes)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// apply persists the resolved transition: role/previousRole/statusLabel
// update via optimistic-locking repository update, plus an audit
// RoleTransition row in the same transaction.
func (e *Engine) apply(ctx context.Context, item *types.WorkItem, target types.Role, trigger types.Trigger, statusLabel, summary *string) (*types.WorkItem, error) {
	from := item.Role
	now := time.Now()

	if target == types.RoleBlocked {
		prev := item.Role
		item.PreviousRole = &prev
	} else if from == types.RoleBlocked {
		item.PreviousRole = nil
	}

	item.Role = target
	item.StatusLabel = statusLabel
	item.RoleChangedAt = now
	item.ModifiedAt = now

	if err := e.Store.UpdateItem(ctx, item); err != nil {
		return nil, err
	}

	rt := &types.RoleTransition{
		ID:          types.NewTransitionID(),
		ItemID:      item.ID,
		FromRole:    from,
		ToRole:      target,
		Trigger:     trigger,
		Summary:     summary,
		StatusLabel: statusLabel,
		OccurredAt:  now,
	}
	if err := e.Store.AppendTransition(ctx, rt); err != nil {
		return nil, err
	}
	return item, nil
}

// detectAndApplyCascade walks the parent chain of a newly terminal item,
// applying at most one cascade transition per iteration and re-detecting
// from the promoted parent, bounded by MaxCascadeDepth.
func (e *Engine) detectAndApplyCascade(ctx context.Context, item *types.WorkItem) ([]CascadeEvent, error) {
	var events []CascadeEvent
	current := item

	for depth := 0; depth < e.MaxCascadeDepth; depth++ {
		if current.ParentID == nil {
			break
		}
		parent, err := e.Store.GetItem(ctx, *current.ParentID)
		if err != nil {
			return events, err
		}
		if parent.Role == types.RoleTerminal {
			break
		}

		counts, err := e.Store.CountChildrenByRole(ctx, parent.ID)
		if err != nil {
			return events, err
		}
		total := 0
		for _, n := range counts {
			total += n
		}
		if total == 0 || counts[types.RoleTerminal] != total {
			break
		}

		prev := parent.Role
		summary := fmt.Sprintf("all children of %s reached terminal", parent.ID)
		updated, err := e.apply(ctx, parent, types.RoleTerminal, types.TriggerCascade, nil, &summary)
		if err != nil {
			return events, err
		}
		events = append(events, CascadeEvent{ItemID: parent.ID, PreviousRole: prev, TargetRole: types.RoleTerminal})
		current = updated
	}
	return events, nil
}

// detectUnblocked enumerates items that depend on itemID (outgoing BLOCKS
// and incoming IS_BLOCKED_BY edges) and reports those whose full blocking
// set is now satisfied at their current role. Advisory only — it never
// mutates a dependent's role.
func (e *Engine) detectUnblocked(ctx context.Context, itemID string) ([]*types.WorkItem, error) {
	outgoing, err := e.Store.FindDependenciesByFromItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	incoming, err := e.Store.FindDependenciesByToItem(ctx, itemID)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var dependents []string
	for _, d := range outgoing {
		if d.Type == types.DepBlocks {
			if _, ok := seen[d.ToItemID]; !ok {
				seen[d.ToItemID] = struct{}{}
				dependents = append(dependents, d.ToItemID)
			}
		}
	}
	for _, d := range incoming {
		if d.Type == types.DepIsBlockedBy {
			if _, ok := seen[d.FromItemID]; !ok {
				seen[d.FromItemID] = struct{}{}
				dependents = append(dependents, d.FromItemID)
			}
		}
	}
	if len(dependents) == 0 {
		return nil, nil
	}

	var unblocked []*types.WorkItem
	for _, depID := range dependents {
		deps, err := e.Store.FindDependenciesByItem(ctx, depID)
		if err != nil {
			return nil, err
		}
		blockerIDs := make(map[string]struct{})
		for _, d := range deps {
			if d.Type == types.DepBlocks && d.ToItemID == depID {
				blockerIDs[d.FromItemID] = struct{}{}
			}
			if d.Type == types.DepIsBlockedBy && d.FromItemID == depID {
				blockerIDs[d.ToItemID] = struct{}{}
			}
		}
		ids := make([]string, 0, len(blockerIDs))
		for id := range blockerIDs {
			ids = append(ids, id)
		}
		blockerItems, err := e.Store.FindByIDs(ctx, ids)
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
		blocked, _ := depgraph.IsBlocked(depID, depVals, depVals, roleOf)
		if blocked {
			continue
		}
		item, err := e.Store.GetItem(ctx, depID)
		if err != nil {
			return nil, err
		}
		unblocked = append(unblocked, item)
	}
	return unblocked, nil
}
