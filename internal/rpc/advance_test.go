package rpc

import (
	"encoding/json"
	"testing"

	"github.com/workgraph/core/internal/types"
)

func TestAdvanceItemBatchMixedOutcome(t *testing.T) {
	h := newTestHandlers(t)
	ctx := t.Context()

	createArgs, _ := json.Marshal(ManageItemsArgs{
		Op:    "create",
		Items: []ItemInput{{Title: "a"}, {Title: "b"}},
	})
	env := h.ManageItems(ctx, createArgs)
	created := env.Data.([]*types.WorkItem)
	a, b := created[0], created[1]

	advanceArgs, _ := json.Marshal(AdvanceItemArgs{
		Items: []AdvanceElement{
			{ItemID: a.ID, Trigger: types.TriggerStart},
			{ItemID: b.ID, Trigger: types.Trigger("bogus")},
		},
	})
	env = h.AdvanceItem(ctx, advanceArgs)
	if !env.Success {
		t.Fatalf("advance_item envelope-level failure: %+v", env.Error)
	}
	data := env.Data.(map[string]any)
	if data["succeeded"].(int) != 1 || data["failed"].(int) != 1 {
		t.Fatalf("succeeded/failed = %v/%v, want 1/1", data["succeeded"], data["failed"])
	}

	got, err := h.Store.GetItem(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetItem: %v", err)
	}
	if got.Role != types.RoleWork {
		t.Fatalf("item a role = %q, want work", got.Role)
	}
}

func TestAdvanceItemEmptyBatchFails(t *testing.T) {
	h := newTestHandlers(t)
	env := h.AdvanceItem(t.Context(), json.RawMessage(`{"items":[]}`))
	if env.Success {
		t.Fatal("expected empty advance_item batch to fail")
	}
	if env.Error.Code != CodeValidation {
		t.Fatalf("Code = %q, want %q", env.Error.Code, CodeValidation)
	}
}
