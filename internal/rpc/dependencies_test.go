package rpc

import (
	"encoding/json"
	"testing"

	"github.com/workgraph/core/internal/types"
)

func createThreeItems(t *testing.T, h *Handlers) []*types.WorkItem {
	t.Helper()
	createArgs, _ := json.Marshal(ManageItemsArgs{
		Op:    "create",
		Items: []ItemInput{{Title: "a"}, {Title: "b"}, {Title: "c"}},
	})
	env := h.ManageItems(t.Context(), createArgs)
	if !env.Success {
		t.Fatalf("create failed: %+v", env.Error)
	}
	return env.Data.([]*types.WorkItem)
}

func TestManageDependenciesLinearPattern(t *testing.T) {
	h := newTestHandlers(t)
	ctx := t.Context()
	items := createThreeItems(t, h)

	createArgs, _ := json.Marshal(ManageDependenciesArgs{
		Op:     "create",
		Linear: []string{items[0].ID, items[1].ID, items[2].ID},
	})
	env := h.ManageDependencies(ctx, createArgs)
	if !env.Success {
		t.Fatalf("linear create failed: %+v", env.Error)
	}
	deps := env.Data.([]*types.Dependency)
	if len(deps) != 2 {
		t.Fatalf("created %d deps, want 2", len(deps))
	}
}

func TestManageDependenciesFanOut(t *testing.T) {
	h := newTestHandlers(t)
	ctx := t.Context()
	items := createThreeItems(t, h)

	createArgs, _ := json.Marshal(ManageDependenciesArgs{
		Op:         "create",
		FanOutFrom: items[0].ID,
		FanOutTo:   []string{items[1].ID, items[2].ID},
	})
	env := h.ManageDependencies(ctx, createArgs)
	if !env.Success {
		t.Fatalf("fan-out create failed: %+v", env.Error)
	}
	deps := env.Data.([]*types.Dependency)
	if len(deps) != 2 {
		t.Fatalf("created %d deps, want 2", len(deps))
	}
}

func TestManageDependenciesRejectsEmptyPattern(t *testing.T) {
	h := newTestHandlers(t)
	env := h.ManageDependencies(t.Context(), json.RawMessage(`{"op":"create"}`))
	if env.Success {
		t.Fatal("expected empty create to fail")
	}
	if env.Error.Code != CodeValidation {
		t.Fatalf("Code = %q, want %q", env.Error.Code, CodeValidation)
	}
}

func TestManageDependenciesDeleteByFromTo(t *testing.T) {
	h := newTestHandlers(t)
	ctx := t.Context()
	items := createThreeItems(t, h)

	createArgs, _ := json.Marshal(ManageDependenciesArgs{
		Op: "create", Deps: []DependencyInput{{FromItemID: items[0].ID, ToItemID: items[1].ID, Type: types.DepBlocks}},
	})
	if env := h.ManageDependencies(ctx, createArgs); !env.Success {
		t.Fatalf("create failed: %+v", env.Error)
	}

	to := items[1].ID
	deleteArgs, _ := json.Marshal(ManageDependenciesArgs{Op: "delete", From: items[0].ID, To: &to})
	env := h.ManageDependencies(ctx, deleteArgs)
	if !env.Success {
		t.Fatalf("delete failed: %+v", env.Error)
	}

	deps, err := h.Store.FindDependenciesByItem(ctx, items[0].ID)
	if err != nil {
		t.Fatalf("FindDependenciesByItem: %v", err)
	}
	if len(deps) != 0 {
		t.Fatalf("expected dependency gone after delete, got %+v", deps)
	}
}

func TestQueryDependenciesRequiresItemID(t *testing.T) {
	h := newTestHandlers(t)
	env := h.QueryDependencies(t.Context(), json.RawMessage(`{}`))
	if env.Success {
		t.Fatal("expected missing itemId to fail")
	}
	if env.Error.Code != CodeValidation {
		t.Fatalf("Code = %q, want %q", env.Error.Code, CodeValidation)
	}
}

func TestQueryDependenciesDirectionFilter(t *testing.T) {
	h := newTestHandlers(t)
	ctx := t.Context()
	items := createThreeItems(t, h)

	createArgs, _ := json.Marshal(ManageDependenciesArgs{
		Op: "create", Deps: []DependencyInput{{FromItemID: items[0].ID, ToItemID: items[1].ID, Type: types.DepBlocks}},
	})
	if env := h.ManageDependencies(ctx, createArgs); !env.Success {
		t.Fatalf("create failed: %+v", env.Error)
	}

	queryArgs, _ := json.Marshal(QueryDependenciesArgs{ItemID: items[0].ID, Direction: "outgoing", NeighborsOnly: true})
	env := h.QueryDependencies(ctx, queryArgs)
	if !env.Success {
		t.Fatalf("query failed: %+v", env.Error)
	}
	data := env.Data.(map[string]any)
	deps := data["dependencies"].([]*types.Dependency)
	if len(deps) != 1 || deps[0].FromItemID != items[0].ID {
		t.Fatalf("dependencies = %+v, want one outgoing edge from %s", deps, items[0].ID)
	}
}
