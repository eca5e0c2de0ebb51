// Package migrations holds the schema migrations of the local skillcms database.
// Versions are timestamps (YYYYMMDDHHmmss); append new migrations to All.
package migrations

import (
	"database/sql"

	"github.com/pkg/errors"

	"github.com/jingkaihe/skillcms/pkg/db"
)

// All returns every registered migration
func All() []db.Migration {
	return []db.Migration{
		Migration20260301090000CreateDrafts(),
	}
}

// Migration20260301090000CreateDrafts creates the drafts table. The draft body is one
// opaque JSON object; name, category and language are copied out for listing.
func Migration20260301090000CreateDrafts() db.Migration {
	return db.Migration{
		Version:     20260301090000,
		Description: "Create drafts table",
		Up: func(tx *sql.Tx) error {
			if _, err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS drafts (
					id TEXT PRIMARY KEY,
					owner TEXT NOT NULL,
					name TEXT NOT NULL DEFAULT '',
					category TEXT NOT NULL DEFAULT '',
					language TEXT NOT NULL DEFAULT '',
					object TEXT NOT NULL,
					created_at DATETIME NOT NULL
				)
			`); err != nil {
				return errors.Wrap(err, "failed to create drafts table")
			}

			if _, err := tx.Exec(`
				CREATE INDEX IF NOT EXISTS idx_drafts_owner_created_at
				ON drafts(owner, created_at)
			`); err != nil {
				return errors.Wrap(err, "failed to create owner index")
			}
			return nil
		},
		Down: func(tx *sql.Tx) error {
			_, err := tx.Exec("DROP TABLE IF EXISTS drafts")
			return errors.Wrap(err, "failed to drop drafts table")
		},
	}
}
