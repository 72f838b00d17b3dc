package rpc

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/workgraph/core/internal/types"
)

func TestGetNextItemRanksByPriorityThenComplexity(t *testing.T) {
	h := newTestHandlers(t)
	ctx := t.Context()

	low := intPtr(8)
	high := intPtr(2)
	createArgs, _ := json.Marshal(ManageItemsArgs{
		Op: "create",
		Items: []ItemInput{
			{Title: "medium priority, complex", Priority: types.PriorityMedium, Complexity: low},
			{Title: "high priority, simple", Priority: types.PriorityHigh, Complexity: high},
			{Title: "low priority", Priority: types.PriorityLow},
		},
	})
	env := h.ManageItems(ctx, createArgs)
	if !env.Success {
		t.Fatalf("create failed: %+v", env.Error)
	}

	env = h.GetNextItem(ctx, json.RawMessage(`{"limit":1}`))
	if !env.Success {
		t.Fatalf("get_next_item failed: %+v", env.Error)
	}
	data := env.Data.(map[string]any)
	items := data["items"].([]*types.WorkItem)
	if len(items) != 1 {
		t.Fatalf("got %d items, want 1", len(items))
	}
	if items[0].Priority != types.PriorityHigh {
		t.Fatalf("top item priority = %q, want high", items[0].Priority)
	}
}

func TestGetNextItemExcludesBlocked(t *testing.T) {
	h := newTestHandlers(t)
	ctx := t.Context()

	createArgs, _ := json.Marshal(ManageItemsArgs{
		Op: "create",
		Items: []ItemInput{
			{Title: "blocker"},
			{Title: "blocked"},
		},
	})
	env := h.ManageItems(ctx, createArgs)
	created := env.Data.([]*types.WorkItem)
	blocker, blocked := created[0], created[1]

	dep := &types.Dependency{
		ID: types.NewDependencyID(), FromItemID: blocker.ID, ToItemID: blocked.ID,
		Type: types.DepBlocks, CreatedAt: time.Now(),
	}
	if err := h.Store.CreateDependencyBatch(ctx, []*types.Dependency{dep}); err != nil {
		t.Fatalf("CreateDependencyBatch: %v", err)
	}

	env = h.GetNextItem(ctx, json.RawMessage(`{"limit":20}`))
	if !env.Success {
		t.Fatalf("get_next_item failed: %+v", env.Error)
	}
	data := env.Data.(map[string]any)
	items := data["items"].([]*types.WorkItem)
	for _, it := range items {
		if it.ID == blocked.ID {
			t.Fatal("blocked item should not appear in get_next_item results")
		}
	}
	found := false
	for _, it := range items {
		if it.ID == blocker.ID {
			found = true
		}
	}
	if !found {
		t.Fatal("unblocked blocker item should appear in get_next_item results")
	}
}

func TestGetBlockedItems(t *testing.T) {
	h := newTestHandlers(t)
	ctx := t.Context()

	createArgs, _ := json.Marshal(ManageItemsArgs{
		Op: "create",
		Items: []ItemInput{
			{Title: "blocker"},
			{Title: "blocked"},
		},
	})
	env := h.ManageItems(ctx, createArgs)
	created := env.Data.([]*types.WorkItem)
	blocker, blocked := created[0], created[1]

	dep := &types.Dependency{
		ID: types.NewDependencyID(), FromItemID: blocker.ID, ToItemID: blocked.ID,
		Type: types.DepBlocks, CreatedAt: time.Now(),
	}
	if err := h.Store.CreateDependencyBatch(ctx, []*types.Dependency{dep}); err != nil {
		t.Fatalf("CreateDependencyBatch: %v", err)
	}

	env = h.GetBlockedItems(ctx, json.RawMessage(`{}`))
	if !env.Success {
		t.Fatalf("get_blocked_items failed: %+v", env.Error)
	}
	data := env.Data.(map[string]any)
	results := data["items"].([]blockedItemResult)
	if len(results) != 1 || results[0].Item.ID != blocked.ID {
		t.Fatalf("results = %+v, want one entry for %s", results, blocked.ID)
	}
}

func intPtr(i int) *int { return &i }
