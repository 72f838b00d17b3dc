package rpc

import (
	"context"
	"encoding/json"

	"github.com/workgraph/core/internal/observability"
	"github.com/workgraph/core/internal/types"
	"github.com/workgraph/core/internal/workflow"
)

// AdvanceElement is one element of an advance_item batch.
type AdvanceElement struct {
	ItemID  string        `json:"itemId"`
	Trigger types.Trigger `json:"trigger"`
	Summary *string       `json:"summary,omitempty"`
}

// AdvanceItemArgs is the advance_item tool's parameter envelope.
type AdvanceItemArgs struct {
	Items []AdvanceElement `json:"items"`
}

type advanceElementResult struct {
	ItemID         string                  `json:"itemId"`
	Success        bool                    `json:"success"`
	Item           *types.WorkItem         `json:"item,omitempty"`
	Error          string                  `json:"error,omitempty"`
	Missing        []string                `json:"missing,omitempty"`
	CascadeEvents  []workflow.CascadeEvent `json:"cascadeEvents,omitempty"`
	UnblockedItems []*types.WorkItem       `json:"unblockedItems,omitempty"`
	ExpectedNotes  []workflow.ExpectedNote `json:"expectedNotes,omitempty"`
}

// AdvanceItem implements advance_item: a batch of independent per-element
// trigger applications, gate-checked before the engine runs resolve/
// validate/apply/cascade/unblock.
func (h *Handlers) AdvanceItem(ctx context.Context, raw json.RawMessage) Envelope {
	var args AdvanceItemArgs
	if err := marshalArgs(raw, &args); err != nil {
		return fail(CodeValidation, "invalid advance_item args: "+err.Error(), nil)
	}
	if len(args.Items) == 0 {
		return fail(CodeValidation, "advance_item requires at least one item", nil)
	}

	var results []advanceElementResult
	var allUnblocked []*types.WorkItem
	succeeded, failed := 0, 0

	for _, el := range args.Items {
		res := h.advanceOne(ctx, el)
		results = append(results, res)
		if res.Success {
			succeeded++
			allUnblocked = append(allUnblocked, res.UnblockedItems...)
		} else {
			failed++
		}
	}

	return ok(map[string]any{
		"results":           results,
		"total":             len(args.Items),
		"succeeded":         succeeded,
		"failed":            failed,
		"allUnblockedItems": allUnblocked,
	}, "")
}

func (h *Handlers) advanceOne(ctx context.Context, el AdvanceElement) advanceElementResult {
	if !el.Trigger.IsValid() {
		return advanceElementResult{ItemID: el.ItemID, Error: "invalid trigger: " + string(el.Trigger)}
	}

	if err := h.checkGate(ctx, el); err != nil {
		if ge, isGate := err.(*workflow.GateError); isGate {
			return advanceElementResult{ItemID: el.ItemID, Error: ge.Error(), Missing: ge.Missing}
		}
		return advanceElementResult{ItemID: el.ItemID, Error: err.Error()}
	}

	result, err := h.Engine.Advance(ctx, el.ItemID, el.Trigger, el.Summary)
	if err != nil {
		return advanceElementResult{ItemID: el.ItemID, Error: err.Error()}
	}
	if len(result.CascadeEvents) > 0 {
		observability.Metrics.CascadeEvents.Add(ctx, int64(len(result.CascadeEvents)))
	}
	if len(result.UnblockedItems) > 0 {
		observability.Metrics.UnblockEvents.Add(ctx, int64(len(result.UnblockedItems)))
	}

	return advanceElementResult{
		ItemID:         el.ItemID,
		Success:        true,
		Item:           result.Item,
		CascadeEvents:  result.CascadeEvents,
		UnblockedItems: result.UnblockedItems,
		ExpectedNotes:  result.ExpectedNotes,
	}
}

// checkGate evaluates the start or complete note-schema gate for the
// trigger about to be applied; other triggers have no gate.
func (h *Handlers) checkGate(ctx context.Context, el AdvanceElement) error {
	if el.Trigger != types.TriggerStart && el.Trigger != types.TriggerComplete {
		return nil
	}

	item, err := h.Store.GetItem(ctx, el.ItemID)
	if err != nil {
		return err
	}
	schema, err := h.Schemas.SchemaForTags(types.TagList(item.Tags))
	if err != nil {
		return err
	}
	notes, err := h.Store.FindNotesByItem(ctx, el.ItemID, nil)
	if err != nil {
		return err
	}

	if el.Trigger == types.TriggerStart {
		return workflow.EvaluateStartGate(schema, item.Role, notes)
	}
	return workflow.EvaluateCompleteGate(schema, notes)
}
