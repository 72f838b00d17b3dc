package sqlite

import (
	"context"

	"github.com/workgraph/core/internal/storage"
	"github.com/workgraph/core/internal/types"
)

// UpsertNote inserts a note or overwrites the body/role of the existing note
// sharing its (itemId, key), preserving the original row's id and
// createdAt — keyed notes are a single mutable slot.1, not an
// append-only log.
func (s *SQLiteStorage) UpsertNote(ctx context.Context, note *types.Note) error {
	if err := note.Validate(); err != nil {
		return err
	}
	return s.WithTx(ctx, func(ctx context.Context) error {
		existing, err := s.FindNoteByItemAndKey(ctx, note.ItemID, note.Key)
		if err != nil && !storage.IsNotFound(err) {
			return err
		}
		if existing != nil {
			note.ID = existing.ID
			note.CreatedAt = existing.CreatedAt
			_, err := s.conn(ctx).ExecContext(ctx, `
				UPDATE notes SET role = ?, body = ?, modified_at = ? WHERE id = ?`,
				note.Role, note.Body, note.ModifiedAt, note.ID,
			)
			if err != nil {
				return wrapDBError("upsert note", note.ID, err)
			}
			return nil
		}

		_, err = s.conn(ctx).ExecContext(ctx, `
			INSERT INTO notes (`+noteColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			note.ID, note.ItemID, note.Key, note.Role, note.Body, note.CreatedAt, note.ModifiedAt,
		)
		if err != nil {
			return wrapDBError("upsert note", note.ID, err)
		}
		return nil
	})
}

func (s *SQLiteStorage) GetNote(ctx context.Context, id string) (*types.Note, error) {
	row := s.conn(ctx).QueryRowContext(ctx, `SELECT `+noteColumns+` FROM notes WHERE id = ?`, id)
	note, err := scanNote(row)
	if err != nil {
		return nil, wrapDBError("get note", id, err)
	}
	return note, nil
}

func (s *SQLiteStorage) DeleteNote(ctx context.Context, id string) error {
	res, err := s.conn(ctx).ExecContext(ctx, `DELETE FROM notes WHERE id = ?`, id)
	if err != nil {
		return wrapDBError("delete note", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return storage.DatabaseError("delete note", err)
	}
	if affected == 0 {
		return storage.NotFound(id, "delete note: not found")
	}
	return nil
}

func (s *SQLiteStorage) DeleteNotesByItem(ctx context.Context, itemID string) error {
	_, err := s.conn(ctx).ExecContext(ctx, `DELETE FROM notes WHERE item_id = ?`, itemID)
	if err != nil {
		return wrapDBError("delete notes by item", itemID, err)
	}
	return nil
}

func (s *SQLiteStorage) FindNotesByItem(ctx context.Context, itemID string, role *types.NoteRole) ([]*types.Note, error) {
	q := `SELECT ` + noteColumns + ` FROM notes WHERE item_id = ?`
	args := []any{itemID}
	if role != nil {
		q += ` AND role = ?`
		args = append(args, *role)
	}
	q += ` ORDER BY key`

	rows, err := s.conn(ctx).QueryContext(ctx, q, args...)
	if err != nil {
		return nil, storage.DatabaseError("find notes by item", err)
	}
	defer rows.Close()

	var notes []*types.Note
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			s.log.Warn("skipping unreadable note row", "error", err)
			continue
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

func (s *SQLiteStorage) FindNoteByItemAndKey(ctx context.Context, itemID, key string) (*types.Note, error) {
	row := s.conn(ctx).QueryRowContext(ctx, `
		SELECT `+noteColumns+` FROM notes WHERE item_id = ? AND key = ?`, itemID, key)
	note, err := scanNote(row)
	if err != nil {
		return nil, wrapDBError("find note by item and key", itemID+"/"+key, err)
	}
	return note, nil
}
