// Package migrations applies the persisted schema: tables for work_items,
// dependencies, notes, and role_transitions, plus the indexes and unique
// constraints the repository facade depends on. Each statement is
// idempotent (IF NOT EXISTS) so Apply can run on every process start
// without a separate version table.
package migrations

import (
	"database/sql"
	"fmt"
)

type statement struct {
	name string
	sql  string
}

var statements = []statement{
	{
		name: "work_items_table",
		sql: `CREATE TABLE IF NOT EXISTS work_items (
			id                     TEXT PRIMARY KEY,
			parent_id              TEXT REFERENCES work_items(id) ON DELETE CASCADE,
			title                  TEXT NOT NULL,
			description            TEXT,
			summary                TEXT NOT NULL DEFAULT '',
			role                   TEXT NOT NULL,
			previous_role          TEXT,
			status_label           TEXT,
			priority               TEXT NOT NULL,
			complexity             INTEGER,
			requires_verification  INTEGER NOT NULL DEFAULT 0,
			depth                  INTEGER NOT NULL,
			metadata               TEXT NOT NULL DEFAULT '',
			tags                   TEXT NOT NULL DEFAULT '',
			created_at             TIMESTAMP NOT NULL,
			modified_at            TIMESTAMP NOT NULL,
			role_changed_at        TIMESTAMP NOT NULL,
			version                INTEGER NOT NULL DEFAULT 1
		)`,
	},
	{name: "idx_work_items_parent", sql: `CREATE INDEX IF NOT EXISTS idx_work_items_parent ON work_items(parent_id)`},
	{name: "idx_work_items_role", sql: `CREATE INDEX IF NOT EXISTS idx_work_items_role ON work_items(role)`},
	{name: "idx_work_items_depth", sql: `CREATE INDEX IF NOT EXISTS idx_work_items_depth ON work_items(depth)`},
	{name: "idx_work_items_created_at", sql: `CREATE INDEX IF NOT EXISTS idx_work_items_created_at ON work_items(created_at)`},
	{name: "idx_work_items_modified_at", sql: `CREATE INDEX IF NOT EXISTS idx_work_items_modified_at ON work_items(modified_at)`},
	{name: "idx_work_items_role_changed_at", sql: `CREATE INDEX IF NOT EXISTS idx_work_items_role_changed_at ON work_items(role_changed_at)`},
	{name: "idx_work_items_priority", sql: `CREATE INDEX IF NOT EXISTS idx_work_items_priority ON work_items(priority)`},

	{
		name: "dependencies_table",
		sql: `CREATE TABLE IF NOT EXISTS dependencies (
			id            TEXT PRIMARY KEY,
			from_item_id  TEXT NOT NULL REFERENCES work_items(id) ON DELETE CASCADE,
			to_item_id    TEXT NOT NULL REFERENCES work_items(id) ON DELETE CASCADE,
			type          TEXT NOT NULL,
			unblock_at    TEXT,
			created_at    TIMESTAMP NOT NULL,
			UNIQUE(from_item_id, to_item_id, type)
		)`,
	},
	{name: "idx_dependencies_from", sql: `CREATE INDEX IF NOT EXISTS idx_dependencies_from ON dependencies(from_item_id)`},
	{name: "idx_dependencies_to", sql: `CREATE INDEX IF NOT EXISTS idx_dependencies_to ON dependencies(to_item_id)`},

	{
		name: "notes_table",
		sql: `CREATE TABLE IF NOT EXISTS notes (
			id          TEXT PRIMARY KEY,
			item_id     TEXT NOT NULL REFERENCES work_items(id) ON DELETE CASCADE,
			key         TEXT NOT NULL,
			role        TEXT NOT NULL,
			body        TEXT NOT NULL DEFAULT '',
			created_at  TIMESTAMP NOT NULL,
			modified_at TIMESTAMP NOT NULL,
			UNIQUE(item_id, key)
		)`,
	},
	{name: "idx_notes_item", sql: `CREATE INDEX IF NOT EXISTS idx_notes_item ON notes(item_id)`},

	{
		name: "role_transitions_table",
		sql: `CREATE TABLE IF NOT EXISTS role_transitions (
			id            TEXT PRIMARY KEY,
			item_id       TEXT NOT NULL REFERENCES work_items(id) ON DELETE CASCADE,
			from_role     TEXT NOT NULL,
			to_role       TEXT NOT NULL,
			trigger       TEXT NOT NULL,
			summary       TEXT,
			status_label  TEXT,
			occurred_at   TIMESTAMP NOT NULL
		)`,
	},
	{name: "idx_role_transitions_item", sql: `CREATE INDEX IF NOT EXISTS idx_role_transitions_item ON role_transitions(item_id, occurred_at)`},
}

// Apply runs every schema statement in order.
func Apply(db *sql.DB) error {
	for _, stmt := range statements {
		if _, err := db.Exec(stmt.sql); err != nil {
			return fmt.Errorf("applying migration %s: %w", stmt.name, err)
		}
	}
	return nil
}
