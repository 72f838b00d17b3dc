package rpc

import (
	"context"
	"encoding/json"
	"time"

	"github.com/workgraph/core/internal/types"
)

// WorkTreeItemInput is one node of a manage_items createTree payload. Ref is a
// symbolic name local to the call, used by ParentRef and by dependency/note
// specs below to point at a node before it has a real ID.
type WorkTreeItemInput struct {
	Ref                  string         `json:"ref"`
	ParentRef            *string        `json:"parentRef,omitempty"`
	Title                string         `json:"title"`
	Description          *string        `json:"description,omitempty"`
	Summary              string         `json:"summary,omitempty"`
	Priority             types.Priority `json:"priority,omitempty"`
	Complexity           *int           `json:"complexity,omitempty"`
	RequiresVerification bool           `json:"requiresVerification,omitempty"`
	Metadata             string         `json:"metadata,omitempty"`
	Tags                 []string       `json:"tags,omitempty"`
}

// WorkTreeDependencyInput is a dependency spec keyed by ref rather than ID.
type WorkTreeDependencyInput struct {
	FromRef   string             `json:"fromRef"`
	ToRef     string             `json:"toRef"`
	Type      types.DependencyType `json:"type"`
	UnblockAt *types.Role        `json:"unblockAt,omitempty"`
}

// WorkTreeNoteInput is a note spec keyed by ref rather than ID.
type WorkTreeNoteInput struct {
	Ref  string         `json:"ref"`
	Key  string         `json:"key"`
	Role types.NoteRole `json:"role"`
	Body string         `json:"body"`
}

// CreateWorkTreeArgs is manage_items' "createTree" op parameter shape: a
// root-first ordered list of nodes (the first with no ParentRef is the
// root), dependencies and notes referring to those nodes by ref. There is no
// separate top-level tool for this — catalogue has no entry
// for it, so it rides manage_items alongside create/update/delete.
type CreateWorkTreeArgs struct {
	Items        []WorkTreeItemInput       `json:"items"`
	Dependencies []WorkTreeDependencyInput `json:"dependencies,omitempty"`
	Notes        []WorkTreeNoteInput       `json:"notes,omitempty"`
}

// CreateWorkTree implements atomic work-tree creation: every
// item, dependency, and note in the payload is inserted in one transaction,
// with dependencies cycle-checked as a batch; any failure rolls back the
// entire tree so no partial rows are left behind.
func (h *Handlers) CreateWorkTree(ctx context.Context, raw json.RawMessage) Envelope {
	var args CreateWorkTreeArgs
	if err := marshalArgs(raw, &args); err != nil {
		return fail(CodeValidation, "invalid manage_items createTree args: "+err.Error(), nil)
	}
	if len(args.Items) == 0 {
		return fail(CodeValidation, "createTree requires at least one item", nil)
	}

	var created []*types.WorkItem
	var createdNotes []*types.Note

	err := h.Store.WithTx(ctx, func(ctx context.Context) error {
		refToID := make(map[string]string, len(args.Items))
		refToDepth := make(map[string]int, len(args.Items))

		for _, in := range args.Items {
			if in.Ref == "" {
				return types.NewValidationError("create_work_tree: item missing ref")
			}
			if _, dup := refToID[in.Ref]; dup {
				return types.NewValidationError("create_work_tree: duplicate ref %q", in.Ref)
			}

			var parentID *string
			depth := 0
			if in.ParentRef != nil {
				pid, ok := refToID[*in.ParentRef]
				if !ok {
					return types.NewValidationError("create_work_tree: ref %q references unknown parentRef %q", in.Ref, *in.ParentRef)
				}
				parentID = &pid
				depth = refToDepth[*in.ParentRef] + 1
			}

			tags, err := types.NormalizeTags(in.Tags)
			if err != nil {
				return err
			}
			priority := in.Priority
			if priority == "" {
				priority = types.PriorityMedium
			}

			now := time.Now()
			item := &types.WorkItem{
				ID:                   types.NewItemID(),
				ParentID:             parentID,
				Title:                in.Title,
				Description:          in.Description,
				Summary:              in.Summary,
				Role:                 types.RoleQueue,
				Priority:             priority,
				Complexity:           in.Complexity,
				RequiresVerification: in.RequiresVerification,
				Depth:                depth,
				Metadata:             in.Metadata,
				Tags:                 tags,
				CreatedAt:            now,
				ModifiedAt:           now,
				RoleChangedAt:        now,
				Version:              1,
			}
			if err := item.Validate(); err != nil {
				return err
			}
			if err := h.Store.CreateItem(ctx, item); err != nil {
				return err
			}

			refToID[in.Ref] = item.ID
			refToDepth[in.Ref] = depth
			created = append(created, item)
		}

		if len(args.Dependencies) > 0 {
			deps := make([]*types.Dependency, 0, len(args.Dependencies))
			for _, d := range args.Dependencies {
				fromID, ok := refToID[d.FromRef]
				if !ok {
					return types.NewValidationError("create_work_tree: dependency references unknown fromRef %q", d.FromRef)
				}
				toID, ok := refToID[d.ToRef]
				if !ok {
					return types.NewValidationError("create_work_tree: dependency references unknown toRef %q", d.ToRef)
				}
				depType := d.Type
				if depType == "" {
					depType = types.DepBlocks
				}
				now := time.Now()
				deps = append(deps, &types.Dependency{
					ID:         types.NewDependencyID(),
					FromItemID: fromID,
					ToItemID:   toID,
					Type:       depType,
					UnblockAt:  d.UnblockAt,
					CreatedAt:  now,
				})
			}
			if err := h.Store.CreateDependencyBatch(ctx, deps); err != nil {
				return err
			}
		}

		if len(args.Notes) > 0 {
			now := time.Now()
			for _, n := range args.Notes {
				itemID, ok := refToID[n.Ref]
				if !ok {
					return types.NewValidationError("create_work_tree: note references unknown ref %q", n.Ref)
				}
				note := &types.Note{
					ID:         types.NewNoteID(),
					ItemID:     itemID,
					Key:        n.Key,
					Role:       n.Role,
					Body:       n.Body,
					CreatedAt:  now,
					ModifiedAt: now,
				}
				if err := h.Store.UpsertNote(ctx, note); err != nil {
					return err
				}
				createdNotes = append(createdNotes, note)
			}
		}

		return nil
	})
	if err != nil {
		return fromError(err)
	}

	return ok(map[string]any{
		"items": created,
		"notes": createdNotes,
	}, "")
}
