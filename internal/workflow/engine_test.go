package workflow

import (
	"context"
	"testing"
	"time"

	"github.com/workgraph/core/internal/storage/sqlite"
	"github.com/workgraph/core/internal/types"
)

// fakeSchemaSource lets engine tests control hasReviewPhase and required
// notes without a filesystem-backed noteschema.Store.
type fakeSchemaSource struct {
	schema *types.NoteSchema
}

func (f *fakeSchemaSource) SchemaForTags(tags []string) (*types.NoteSchema, error) {
	return f.schema, nil
}

func newEngineTestStore(t *testing.T) *sqlite.SQLiteStorage {
	t.Helper()
	dbPath := t.TempDir() + "/engine.db"
	store, err := sqlite.Open(context.Background(), dbPath, nil)
	if err != nil {
		t.Fatalf("opening test store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func mustCreateEngineItem(t *testing.T, store *sqlite.SQLiteStorage, title string, parentID *string) *types.WorkItem {
	t.Helper()
	now := time.Now()
	item := &types.WorkItem{
		ID: types.NewItemID(), ParentID: parentID, Title: title,
		Role: types.RoleQueue, Priority: types.PriorityMedium,
		CreatedAt: now, ModifiedAt: now, RoleChangedAt: now, Version: 1,
	}
	if parentID != nil {
		item.Depth = 1
	}
	if err := store.CreateItem(context.Background(), item); err != nil {
		t.Fatalf("CreateItem %s: %v", title, err)
	}
	return item
}

func TestAdvanceQueueToWorkNoReviewPhase(t *testing.T) {
	store := newEngineTestStore(t)
	engine := NewEngine(store, &fakeSchemaSource{})
	ctx := context.Background()

	item := mustCreateEngineItem(t, store, "task", nil)
	result, err := engine.Advance(ctx, item.ID, types.TriggerStart, nil)
	if err != nil {
		t.Fatalf("Advance start: %v", err)
	}
	if result.Item.Role != types.RoleWork {
		t.Fatalf("Role = %q, want work", result.Item.Role)
	}

	result, err = engine.Advance(ctx, item.ID, types.TriggerStart, nil)
	if err != nil {
		t.Fatalf("Advance start (no review phase): %v", err)
	}
	if result.Item.Role != types.RoleTerminal {
		t.Fatalf("Role = %q, want terminal (no review phase configured)", result.Item.Role)
	}
}

func TestAdvanceWithReviewPhase(t *testing.T) {
	store := newEngineTestStore(t)
	schema := &types.NoteSchema{Entries: []types.SchemaEntry{{Key: "post-mortem", Role: types.NoteRoleReview, Required: false}}}
	engine := NewEngine(store, &fakeSchemaSource{schema: schema})
	ctx := context.Background()

	item := mustCreateEngineItem(t, store, "task", nil)
	if _, err := engine.Advance(ctx, item.ID, types.TriggerStart, nil); err != nil {
		t.Fatalf("Advance start: %v", err)
	}
	result, err := engine.Advance(ctx, item.ID, types.TriggerStart, nil)
	if err != nil {
		t.Fatalf("Advance start (into review): %v", err)
	}
	if result.Item.Role != types.RoleReview {
		t.Fatalf("Role = %q, want review", result.Item.Role)
	}
}

func TestAdvanceBlockedByDependency(t *testing.T) {
	store := newEngineTestStore(t)
	engine := NewEngine(store, &fakeSchemaSource{})
	ctx := context.Background()

	blocker := mustCreateEngineItem(t, store, "blocker", nil)
	blocked := mustCreateEngineItem(t, store, "blocked", nil)

	dep := &types.Dependency{
		ID: types.NewDependencyID(), FromItemID: blocker.ID, ToItemID: blocked.ID,
		Type: types.DepBlocks, CreatedAt: time.Now(),
	}
	if err := store.CreateDependencyBatch(ctx, []*types.Dependency{dep}); err != nil {
		t.Fatalf("CreateDependencyBatch: %v", err)
	}

	_, err := engine.Advance(ctx, blocked.ID, types.TriggerStart, nil)
	if err == nil {
		t.Fatal("expected blocked transition to fail validation")
	}
	te, ok := err.(*TransitionError)
	if !ok {
		t.Fatalf("expected *TransitionError, got %T: %v", err, err)
	}
	if len(te.Blockers) == 0 {
		t.Fatal("expected a non-empty Blockers list")
	}
}

func TestAdvanceUnblockedAfterBlockerTerminal(t *testing.T) {
	store := newEngineTestStore(t)
	engine := NewEngine(store, &fakeSchemaSource{})
	ctx := context.Background()

	blocker := mustCreateEngineItem(t, store, "blocker", nil)
	blocked := mustCreateEngineItem(t, store, "blocked", nil)

	dep := &types.Dependency{
		ID: types.NewDependencyID(), FromItemID: blocker.ID, ToItemID: blocked.ID,
		Type: types.DepBlocks, CreatedAt: time.Now(),
	}
	if err := store.CreateDependencyBatch(ctx, []*types.Dependency{dep}); err != nil {
		t.Fatalf("CreateDependencyBatch: %v", err)
	}

	result, err := engine.Advance(ctx, blocker.ID, types.TriggerComplete, nil)
	if err != nil {
		t.Fatalf("Advance complete on blocker: %v", err)
	}
	if result.Item.Role != types.RoleTerminal {
		t.Fatalf("blocker role = %q, want terminal", result.Item.Role)
	}
	if len(result.UnblockedItems) != 1 || result.UnblockedItems[0].ID != blocked.ID {
		t.Fatalf("UnblockedItems = %+v, want [%s]", result.UnblockedItems, blocked.ID)
	}

	// Unblock detection is advisory: the dependent's role must be untouched.
	stillQueued, err := store.GetItem(ctx, blocked.ID)
	if err != nil {
		t.Fatalf("GetItem blocked: %v", err)
	}
	if stillQueued.Role != types.RoleQueue {
		t.Fatalf("blocked item role = %q, want queue (unblock must not mutate)", stillQueued.Role)
	}
}

func TestCascadeOnAllChildrenTerminal(t *testing.T) {
	store := newEngineTestStore(t)
	engine := NewEngine(store, &fakeSchemaSource{})
	ctx := context.Background()

	parent := mustCreateEngineItem(t, store, "parent", nil)
	child1 := mustCreateEngineItem(t, store, "child1", &parent.ID)
	child2 := mustCreateEngineItem(t, store, "child2", &parent.ID)

	if _, err := engine.Advance(ctx, child1.ID, types.TriggerComplete, nil); err != nil {
		t.Fatalf("Advance complete child1: %v", err)
	}
	parentAfterFirst, err := store.GetItem(ctx, parent.ID)
	if err != nil {
		t.Fatalf("GetItem parent: %v", err)
	}
	if parentAfterFirst.Role == types.RoleTerminal {
		t.Fatal("parent cascaded to terminal before all children reached terminal")
	}

	result, err := engine.Advance(ctx, child2.ID, types.TriggerComplete, nil)
	if err != nil {
		t.Fatalf("Advance complete child2: %v", err)
	}
	if len(result.CascadeEvents) != 1 || result.CascadeEvents[0].ItemID != parent.ID {
		t.Fatalf("CascadeEvents = %+v, want one event for parent %s", result.CascadeEvents, parent.ID)
	}
	if result.CascadeEvents[0].PreviousRole != types.RoleQueue {
		t.Fatalf("CascadeEvents[0].PreviousRole = %q, want %q (the role parent held before cascading)",
			result.CascadeEvents[0].PreviousRole, types.RoleQueue)
	}

	parentAfter, err := store.GetItem(ctx, parent.ID)
	if err != nil {
		t.Fatalf("GetItem parent: %v", err)
	}
	if parentAfter.Role != types.RoleTerminal {
		t.Fatalf("parent role = %q, want terminal after both children complete", parentAfter.Role)
	}
}

func TestAdvanceAlreadyTerminalFails(t *testing.T) {
	store := newEngineTestStore(t)
	engine := NewEngine(store, &fakeSchemaSource{})
	ctx := context.Background()

	item := mustCreateEngineItem(t, store, "task", nil)
	if _, err := engine.Advance(ctx, item.ID, types.TriggerComplete, nil); err != nil {
		t.Fatalf("Advance complete: %v", err)
	}
	_, err := engine.Advance(ctx, item.ID, types.TriggerComplete, nil)
	if err == nil {
		t.Fatal("expected error advancing an already-terminal item")
	}
}

func TestAdvanceHoldAndResume(t *testing.T) {
	store := newEngineTestStore(t)
	engine := NewEngine(store, &fakeSchemaSource{})
	ctx := context.Background()

	item := mustCreateEngineItem(t, store, "task", nil)
	if _, err := engine.Advance(ctx, item.ID, types.TriggerStart, nil); err != nil {
		t.Fatalf("Advance start: %v", err)
	}
	result, err := engine.Advance(ctx, item.ID, types.TriggerHold, nil)
	if err != nil {
		t.Fatalf("Advance hold: %v", err)
	}
	if result.Item.Role != types.RoleBlocked {
		t.Fatalf("Role = %q, want blocked", result.Item.Role)
	}
	if result.Item.PreviousRole == nil || *result.Item.PreviousRole != types.RoleWork {
		t.Fatalf("PreviousRole = %v, want work", result.Item.PreviousRole)
	}

	result, err = engine.Advance(ctx, item.ID, types.TriggerResume, nil)
	if err != nil {
		t.Fatalf("Advance resume: %v", err)
	}
	if result.Item.Role != types.RoleWork {
		t.Fatalf("Role after resume = %q, want work", result.Item.Role)
	}
	if result.Item.PreviousRole != nil {
		t.Fatalf("PreviousRole after resume = %v, want nil", result.Item.PreviousRole)
	}
}
