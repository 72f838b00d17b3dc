package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/workgraph/core/internal/types"
)

func mustCreateItem(t *testing.T, store *SQLiteStorage, title string) *types.WorkItem {
	t.Helper()
	item := newTestItem(t, title, nil, 0)
	if err := store.CreateItem(context.Background(), item); err != nil {
		t.Fatalf("CreateItem %s: %v", title, err)
	}
	return item
}

func TestCreateDependencyBatch(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	a := mustCreateItem(t, store, "a")
	b := mustCreateItem(t, store, "b")

	dep := &types.Dependency{
		ID:         types.NewDependencyID(),
		FromItemID: a.ID,
		ToItemID:   b.ID,
		Type:       types.DepBlocks,
		CreatedAt:  time.Now(),
	}
	if err := store.CreateDependencyBatch(ctx, []*types.Dependency{dep}); err != nil {
		t.Fatalf("CreateDependencyBatch: %v", err)
	}

	deps, err := store.FindDependenciesByItem(ctx, a.ID)
	if err != nil {
		t.Fatalf("FindDependenciesByItem: %v", err)
	}
	if len(deps) != 1 || deps[0].ID != dep.ID {
		t.Fatalf("FindDependenciesByItem = %+v, want [%s]", deps, dep.ID)
	}
}

func TestCreateDependencyBatchRejectsCycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	a := mustCreateItem(t, store, "a")
	b := mustCreateItem(t, store, "b")
	c := mustCreateItem(t, store, "c")

	existing := &types.Dependency{
		ID: types.NewDependencyID(), FromItemID: a.ID, ToItemID: b.ID,
		Type: types.DepBlocks, CreatedAt: time.Now(),
	}
	if err := store.CreateDependencyBatch(ctx, []*types.Dependency{existing}); err != nil {
		t.Fatalf("seeding first edge: %v", err)
	}

	batch := []*types.Dependency{
		{ID: types.NewDependencyID(), FromItemID: b.ID, ToItemID: c.ID, Type: types.DepBlocks, CreatedAt: time.Now()},
		{ID: types.NewDependencyID(), FromItemID: c.ID, ToItemID: a.ID, Type: types.DepBlocks, CreatedAt: time.Now()},
	}
	err := store.CreateDependencyBatch(ctx, batch)
	if err == nil {
		t.Fatal("expected cycle rejection, got nil error")
	}

	deps, err := store.FindDependenciesByItem(ctx, b.ID)
	if err != nil {
		t.Fatalf("FindDependenciesByItem: %v", err)
	}
	for _, d := range deps {
		if d.FromItemID == b.ID && d.ToItemID == c.ID {
			t.Fatal("cycle-rejected batch partially committed")
		}
	}
}

func TestDeleteDependenciesByItem(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	a := mustCreateItem(t, store, "a")
	b := mustCreateItem(t, store, "b")
	dep := &types.Dependency{
		ID: types.NewDependencyID(), FromItemID: a.ID, ToItemID: b.ID,
		Type: types.DepBlocks, CreatedAt: time.Now(),
	}
	if err := store.CreateDependencyBatch(ctx, []*types.Dependency{dep}); err != nil {
		t.Fatalf("CreateDependencyBatch: %v", err)
	}

	if err := store.DeleteDependenciesByItem(ctx, a.ID); err != nil {
		t.Fatalf("DeleteDependenciesByItem: %v", err)
	}
	deps, err := store.FindDependenciesByItem(ctx, a.ID)
	if err != nil {
		t.Fatalf("FindDependenciesByItem: %v", err)
	}
	if len(deps) != 0 {
		t.Fatalf("expected no dependencies after delete, got %+v", deps)
	}
}

func TestUpsertNoteInsertThenUpdate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	item := mustCreateItem(t, store, "has notes")
	now := time.Now()
	note := &types.Note{
		ID: types.NewNoteID(), ItemID: item.ID, Key: "plan", Role: types.NoteRoleWork,
		Body: "first draft", CreatedAt: now, ModifiedAt: now,
	}
	if err := store.UpsertNote(ctx, note); err != nil {
		t.Fatalf("UpsertNote insert: %v", err)
	}

	update := &types.Note{
		ID: types.NewNoteID(), ItemID: item.ID, Key: "plan", Role: types.NoteRoleWork,
		Body: "revised draft", CreatedAt: now, ModifiedAt: now,
	}
	if err := store.UpsertNote(ctx, update); err != nil {
		t.Fatalf("UpsertNote update: %v", err)
	}

	got, err := store.FindNoteByItemAndKey(ctx, item.ID, "plan")
	if err != nil {
		t.Fatalf("FindNoteByItemAndKey: %v", err)
	}
	if got.Body != "revised draft" {
		t.Errorf("Body = %q, want %q", got.Body, "revised draft")
	}
	if got.ID != note.ID {
		t.Errorf("upsert should preserve the original note ID, got %q want %q", got.ID, note.ID)
	}

	notes, err := store.FindNotesByItem(ctx, item.ID, nil)
	if err != nil {
		t.Fatalf("FindNotesByItem: %v", err)
	}
	if len(notes) != 1 {
		t.Fatalf("expected exactly one note after upsert-update, got %d", len(notes))
	}
}

func TestAppendAndFindTransitions(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	item := mustCreateItem(t, store, "transitioned")
	rt := &types.RoleTransition{
		ID: types.NewTransitionID(), ItemID: item.ID,
		FromRole: types.RoleQueue, ToRole: types.RoleWork,
		Trigger: types.TriggerStart, OccurredAt: time.Now(),
	}
	if err := store.AppendTransition(ctx, rt); err != nil {
		t.Fatalf("AppendTransition: %v", err)
	}

	transitions, err := store.FindTransitionsByItem(ctx, item.ID)
	if err != nil {
		t.Fatalf("FindTransitionsByItem: %v", err)
	}
	if len(transitions) != 1 || transitions[0].ID != rt.ID {
		t.Fatalf("FindTransitionsByItem = %+v, want [%s]", transitions, rt.ID)
	}
}
