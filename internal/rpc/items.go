package rpc

import (
	"context"
	"encoding/json"
	"time"

	"github.com/workgraph/core/internal/storage"
	"github.com/workgraph/core/internal/types"
)

// ItemInput is the create-time shape of a work item.
type ItemInput struct {
	ParentID              *string        `json:"parentId,omitempty"`
	Title                 string         `json:"title"`
	Description           *string        `json:"description,omitempty"`
	Summary               string         `json:"summary,omitempty"`
	Priority              types.Priority `json:"priority,omitempty"`
	Complexity            *int           `json:"complexity,omitempty"`
	RequiresVerification  bool           `json:"requiresVerification,omitempty"`
	Metadata              string         `json:"metadata,omitempty"`
	Tags                  []string       `json:"tags,omitempty"`
}

// ItemUpdateInput is the optimistic-locking update shape.
type ItemUpdateInput struct {
	ID                    string          `json:"id"`
	Version               int             `json:"version"`
	Title                 *string         `json:"title,omitempty"`
	Description           *string         `json:"description,omitempty"`
	Summary               *string         `json:"summary,omitempty"`
	Priority              *types.Priority `json:"priority,omitempty"`
	Complexity            *int            `json:"complexity,omitempty"`
	RequiresVerification  *bool           `json:"requiresVerification,omitempty"`
	Metadata              *string         `json:"metadata,omitempty"`
	Tags                  []string        `json:"tags,omitempty"`
}

// ManageItemsArgs is the manage_items tool's parameter envelope.
type ManageItemsArgs struct {
	Op      string            `json:"op"`
	Items   []ItemInput       `json:"items,omitempty"`
	Updates []ItemUpdateInput `json:"updates,omitempty"`
	IDs     []string          `json:"ids,omitempty"`
}

// ManageItems implements manage_items (ops: create, update, delete, createTree), all
// atomic "atomic multi-entity writes".
func (h *Handlers) ManageItems(ctx context.Context, raw json.RawMessage) Envelope {
	var args ManageItemsArgs
	if err := marshalArgs(raw, &args); err != nil {
		return fail(CodeValidation, "invalid manage_items args: "+err.Error(), nil)
	}

	switch args.Op {
	case "create":
		return h.createItems(ctx, args.Items)
	case "update":
		return h.updateItems(ctx, args.Updates)
	case "delete":
		return h.deleteItems(ctx, args.IDs)
	case "createTree":
		return h.CreateWorkTree(ctx, raw)
	default:
		return fail(CodeValidation, "unknown manage_items op: "+args.Op, nil)
	}
}

func (h *Handlers) createItems(ctx context.Context, inputs []ItemInput) Envelope {
	if len(inputs) == 0 {
		return fail(CodeValidation, "create requires at least one item", nil)
	}

	var created []*types.WorkItem
	err := h.Store.WithTx(ctx, func(ctx context.Context) error {
		for _, in := range inputs {
			item, err := h.buildItem(ctx, in)
			if err != nil {
				return err
			}
			if err := h.Store.CreateItem(ctx, item); err != nil {
				return err
			}
			created = append(created, item)
		}
		return nil
	})
	if err != nil {
		return fromError(err)
	}
	return ok(created, "")
}

func (h *Handlers) buildItem(ctx context.Context, in ItemInput) (*types.WorkItem, error) {
	depth := 0
	if in.ParentID != nil {
		parent, err := h.Store.GetItem(ctx, *in.ParentID)
		if err != nil {
			return nil, err
		}
		depth = parent.Depth + 1
	}

	tags, err := types.NormalizeTags(in.Tags)
	if err != nil {
		return nil, err
	}

	priority := in.Priority
	if priority == "" {
		priority = types.PriorityMedium
	}

	now := time.Now()
	item := &types.WorkItem{
		ID:                    types.NewItemID(),
		ParentID:              in.ParentID,
		Title:                 in.Title,
		Description:           in.Description,
		Summary:               in.Summary,
		Role:                  types.RoleQueue,
		Priority:              priority,
		Complexity:            in.Complexity,
		RequiresVerification:  in.RequiresVerification,
		Depth:                 depth,
		Metadata:              in.Metadata,
		Tags:                  tags,
		CreatedAt:             now,
		ModifiedAt:            now,
		RoleChangedAt:         now,
		Version:               1,
	}
	if err := item.Validate(); err != nil {
		return nil, err
	}
	return item, nil
}

func (h *Handlers) updateItems(ctx context.Context, updates []ItemUpdateInput) Envelope {
	if len(updates) == 0 {
		return fail(CodeValidation, "update requires at least one item", nil)
	}

	var updated []*types.WorkItem
	err := h.Store.WithTx(ctx, func(ctx context.Context) error {
		for _, u := range updates {
			item, err := h.Store.GetItem(ctx, u.ID)
			if err != nil {
				return err
			}
			if item.Version != u.Version {
				return storage.Conflict("update item " + u.ID + ": version mismatch")
			}
			if err := applyItemUpdate(item, u); err != nil {
				return err
			}
			item.ModifiedAt = time.Now()
			if err := item.Validate(); err != nil {
				return err
			}
			if err := h.Store.UpdateItem(ctx, item); err != nil {
				return err
			}
			updated = append(updated, item)
		}
		return nil
	})
	if err != nil {
		return fromError(err)
	}
	return ok(updated, "")
}

func applyItemUpdate(item *types.WorkItem, u ItemUpdateInput) error {
	if u.Title != nil {
		item.Title = *u.Title
	}
	if u.Description != nil {
		item.Description = u.Description
	}
	if u.Summary != nil {
		item.Summary = *u.Summary
	}
	if u.Priority != nil {
		item.Priority = *u.Priority
	}
	if u.Complexity != nil {
		item.Complexity = u.Complexity
	}
	if u.RequiresVerification != nil {
		item.RequiresVerification = *u.RequiresVerification
	}
	if u.Metadata != nil {
		item.Metadata = *u.Metadata
	}
	if u.Tags != nil {
		normalized, err := types.NormalizeTags(u.Tags)
		if err != nil {
			return err
		}
		item.Tags = normalized
	}
	return nil
}

func (h *Handlers) deleteItems(ctx context.Context, ids []string) Envelope {
	if len(ids) == 0 {
		return fail(CodeValidation, "delete requires at least one id", nil)
	}

	err := h.Store.WithTx(ctx, func(ctx context.Context) error {
		for _, id := range ids {
			if err := h.Store.DeleteNotesByItem(ctx, id); err != nil {
				return err
			}
			if err := h.Store.DeleteDependenciesByItem(ctx, id); err != nil {
				return err
			}
		}
		return h.Store.DeleteItems(ctx, ids)
	})
	if err != nil {
		return fromError(err)
	}
	return ok(map[string]any{"deleted": ids}, "")
}
