package rpc

import (
	"encoding/json"
	"testing"

	"github.com/workgraph/core/internal/types"
)

func TestCompleteTreeOrdersByDependency(t *testing.T) {
	h := newTestHandlers(t)
	ctx := t.Context()
	items := createThreeItems(t, h) // a, b, c

	// a blocks b blocks c: completion must happen a, b, c in order.
	linearArgs, _ := json.Marshal(ManageDependenciesArgs{
		Op:     "create",
		Linear: []string{items[0].ID, items[1].ID, items[2].ID},
	})
	if env := h.ManageDependencies(ctx, linearArgs); !env.Success {
		t.Fatalf("linear create failed: %+v", env.Error)
	}

	completeArgs, _ := json.Marshal(CompleteTreeArgs{
		ItemIDs: []string{items[2].ID, items[0].ID, items[1].ID},
	})
	env := h.CompleteTree(ctx, completeArgs)
	if !env.Success {
		t.Fatalf("complete_tree failed: %+v", env.Error)
	}
	data := env.Data.(map[string]any)
	if data["completed"].(int) != 3 {
		t.Fatalf("completed = %v, want 3", data["completed"])
	}

	for _, item := range items {
		got, err := h.Store.GetItem(ctx, item.ID)
		if err != nil {
			t.Fatalf("GetItem %s: %v", item.ID, err)
		}
		if got.Role != types.RoleTerminal {
			t.Fatalf("item %s role = %q, want terminal", item.ID, got.Role)
		}
	}
}

func TestCompleteTreeRootMode(t *testing.T) {
	h := newTestHandlers(t)
	ctx := t.Context()

	createArgs, _ := json.Marshal(ManageItemsArgs{Op: "create", Items: []ItemInput{{Title: "root"}}})
	env := h.ManageItems(ctx, createArgs)
	root := env.Data.([]*types.WorkItem)[0]

	createChild, _ := json.Marshal(ManageItemsArgs{Op: "create", Items: []ItemInput{{Title: "child", ParentID: &root.ID}}})
	env = h.ManageItems(ctx, createChild)
	child := env.Data.([]*types.WorkItem)[0]

	completeArgs, _ := json.Marshal(CompleteTreeArgs{RootID: root.ID})
	env = h.CompleteTree(ctx, completeArgs)
	if !env.Success {
		t.Fatalf("complete_tree rootId failed: %+v", env.Error)
	}
	data := env.Data.(map[string]any)
	if data["total"].(int) != 2 {
		t.Fatalf("total = %v, want 2 (root + child)", data["total"])
	}

	gotChild, err := h.Store.GetItem(ctx, child.ID)
	if err != nil {
		t.Fatalf("GetItem child: %v", err)
	}
	if gotChild.Role != types.RoleTerminal {
		t.Fatalf("child role = %q, want terminal", gotChild.Role)
	}
}

func TestCompleteTreeRequiresTarget(t *testing.T) {
	h := newTestHandlers(t)
	env := h.CompleteTree(t.Context(), json.RawMessage(`{}`))
	if env.Success {
		t.Fatal("expected complete_tree with no target to fail")
	}
	if env.Error.Code != CodeValidation {
		t.Fatalf("Code = %q, want %q", env.Error.Code, CodeValidation)
	}
}
