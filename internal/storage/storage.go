package storage

import (
	"context"

	"github.com/workgraph/core/internal/types"
)

// AncestorChain is the path [root, ..., directParent] above an item.
type AncestorChain struct {
	ItemID    string
	Ancestors []*types.WorkItem
}

// ChildRoleCounts maps a role to the number of children of a parent in that
// role, used by cascade detection.
type ChildRoleCounts map[types.Role]int

// Storage is the repository facade: typed, transactional operations over
// persistence. Persistence failures come back as a *RepositoryError; input
// rejected by domain validation comes back as a *types.ValidationError.
//
// Implementations must honor: optimistic locking on Update (matches on both
// id and version), cascade-on-delete from items to their notes and
// dependencies, and atomic, cycle-checked batch dependency insertion.
type Storage interface {
	ItemStore
	DependencyStore
	NoteStore
	TransitionStore

	// WithTx runs fn inside a single transactional scope and commits iff fn
	// returns nil; any error rolls back. Nested calls to WithTx on the
	// context returned to fn reuse the same transaction.
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error

	Close() error
}

// ItemStore is the WorkItem slice of the repository facade.
type ItemStore interface {
	GetItem(ctx context.Context, id string) (*types.WorkItem, error)
	CreateItem(ctx context.Context, item *types.WorkItem) error
	UpdateItem(ctx context.Context, item *types.WorkItem) error
	DeleteItem(ctx context.Context, id string) error
	DeleteItems(ctx context.Context, ids []string) error

	FindByParent(ctx context.Context, parentID string) ([]*types.WorkItem, error)
	FindByRole(ctx context.Context, role types.Role, limit int) ([]*types.WorkItem, error)
	FindByDepth(ctx context.Context, depth int) ([]*types.WorkItem, error)
	FindRoot(ctx context.Context, itemID string) (*types.WorkItem, error)
	FindRootItems(ctx context.Context) ([]*types.WorkItem, error)
	SearchItems(ctx context.Context, query string, limit int) ([]*types.WorkItem, error)
	CountItems(ctx context.Context) (int, error)
	FindChildren(ctx context.Context, parentID string) ([]*types.WorkItem, error)
	CountChildrenByRole(ctx context.Context, parentID string) (ChildRoleCounts, error)
	FindDescendants(ctx context.Context, rootID string) ([]*types.WorkItem, error)
	FindByIDs(ctx context.Context, ids []string) ([]*types.WorkItem, error)
	FindAncestorChains(ctx context.Context, ids []string) ([]AncestorChain, error)

	FindByFilters(ctx context.Context, filter types.ItemFilter) ([]*types.WorkItem, error)
	CountByFilters(ctx context.Context, filter types.ItemFilter) (int, error)
}

// DependencyStore is the Dependency slice of the repository facade.
type DependencyStore interface {
	CreateDependency(ctx context.Context, dep *types.Dependency) error
	CreateDependencyBatch(ctx context.Context, deps []*types.Dependency) error
	DeleteDependency(ctx context.Context, id string) error
	DeleteDependenciesByItem(ctx context.Context, itemID string) error
	FindDependenciesByItem(ctx context.Context, itemID string) ([]*types.Dependency, error)
	FindDependenciesByFromItem(ctx context.Context, fromItemID string) ([]*types.Dependency, error)
	FindDependenciesByToItem(ctx context.Context, toItemID string) ([]*types.Dependency, error)
}

// NoteStore is the Note slice of the repository facade.
type NoteStore interface {
	UpsertNote(ctx context.Context, note *types.Note) error
	GetNote(ctx context.Context, id string) (*types.Note, error)
	DeleteNote(ctx context.Context, id string) error
	DeleteNotesByItem(ctx context.Context, itemID string) error
	FindNotesByItem(ctx context.Context, itemID string, role *types.NoteRole) ([]*types.Note, error)
	FindNoteByItemAndKey(ctx context.Context, itemID, key string) (*types.Note, error)
}

// TransitionStore is the RoleTransition slice of the repository facade.
type TransitionStore interface {
	AppendTransition(ctx context.Context, rt *types.RoleTransition) error
	FindTransitionsByItem(ctx context.Context, itemID string) ([]*types.RoleTransition, error)
}
