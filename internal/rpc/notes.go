package rpc

import (
	"context"
	"encoding/json"
	"time"

	"github.com/workgraph/core/internal/types"
)

// NoteInput is one note in a manage_notes upsert call.
type NoteInput struct {
	ItemID string        `json:"itemId"`
	Key    string        `json:"key"`
	Role   types.NoteRole `json:"role"`
	Body   string        `json:"body"`
}

// ManageNotesArgs is the manage_notes tool's parameter envelope.
type ManageNotesArgs struct {
	Op     string      `json:"op"`
	Notes  []NoteInput `json:"notes,omitempty"`
	IDs    []string    `json:"ids,omitempty"`
	ItemID string      `json:"itemId,omitempty"`
	Key    string      `json:"key,omitempty"`
}

// ManageNotes implements manage_notes (ops: upsert, delete). Upsert never
// aborts the whole batch on a per-element failure; delete
// supports by-ids, by-item, or by-(item,key).
func (h *Handlers) ManageNotes(ctx context.Context, raw json.RawMessage) Envelope {
	var args ManageNotesArgs
	if err := marshalArgs(raw, &args); err != nil {
		return fail(CodeValidation, "invalid manage_notes args: "+err.Error(), nil)
	}

	switch args.Op {
	case "upsert":
		return h.upsertNotes(ctx, args.Notes)
	case "delete":
		return h.deleteNotes(ctx, args)
	default:
		return fail(CodeValidation, "unknown manage_notes op: "+args.Op, nil)
	}
}

type noteFailure struct {
	ItemID string `json:"itemId"`
	Key    string `json:"key"`
	Error  string `json:"error"`
}

func (h *Handlers) upsertNotes(ctx context.Context, inputs []NoteInput) Envelope {
	if len(inputs) == 0 {
		return fail(CodeValidation, "upsert requires at least one note", nil)
	}

	var succeeded []*types.Note
	var failures []noteFailure
	now := time.Now()

	for _, in := range inputs {
		if _, err := h.Store.GetItem(ctx, in.ItemID); err != nil {
			failures = append(failures, noteFailure{ItemID: in.ItemID, Key: in.Key, Error: err.Error()})
			continue
		}
		note := &types.Note{
			ID:         types.NewNoteID(),
			ItemID:     in.ItemID,
			Key:        in.Key,
			Role:       in.Role,
			Body:       in.Body,
			CreatedAt:  now,
			ModifiedAt: now,
		}
		if err := h.Store.UpsertNote(ctx, note); err != nil {
			failures = append(failures, noteFailure{ItemID: in.ItemID, Key: in.Key, Error: err.Error()})
			continue
		}
		succeeded = append(succeeded, note)
	}

	return ok(map[string]any{
		"notes":    succeeded,
		"failures": failures,
		"total":    len(inputs),
		"succeeded": len(succeeded),
		"failed":    len(failures),
	}, "")
}

func (h *Handlers) deleteNotes(ctx context.Context, args ManageNotesArgs) Envelope {
	switch {
	case len(args.IDs) > 0:
		for _, id := range args.IDs {
			if err := h.Store.DeleteNote(ctx, id); err != nil {
				return fromError(err)
			}
		}
		return ok(map[string]any{"deleted": args.IDs}, "")

	case args.ItemID != "" && args.Key != "":
		note, err := h.Store.FindNoteByItemAndKey(ctx, args.ItemID, args.Key)
		if err != nil {
			return fromError(err)
		}
		if err := h.Store.DeleteNote(ctx, note.ID); err != nil {
			return fromError(err)
		}
		return ok(map[string]any{"deleted": note.ID}, "")

	case args.ItemID != "":
		if err := h.Store.DeleteNotesByItem(ctx, args.ItemID); err != nil {
			return fromError(err)
		}
		return ok(map[string]any{"deletedFor": args.ItemID}, "")

	default:
		return fail(CodeValidation, "delete requires ids, or itemId, or (itemId,key)", nil)
	}
}
