package rpc

import (
	"context"
	"testing"

	"github.com/workgraph/core/internal/storage/sqlite"
	"github.com/workgraph/core/internal/types"
	"github.com/workgraph/core/internal/workflow"
)

// noopSchemaSource matches no tags, so every gate passes vacuously — the
// behavior the handler layer sees for untagged items.
type noopSchemaSource struct{}

func (noopSchemaSource) SchemaForTags(tags []string) (*types.NoteSchema, error) {
	return nil, nil
}

func newTestHandlers(t *testing.T) *Handlers {
	t.Helper()
	dbPath := t.TempDir() + "/rpc.db"
	store, err := sqlite.Open(context.Background(), dbPath, nil)
	if err != nil {
		t.Fatalf("opening test store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	engine := workflow.NewEngine(store, noopSchemaSource{})
	return NewHandlers(store, engine, noopSchemaSource{}, nil)
}
