package postgres

import (
	"context"
	"fmt"
)

// Schema creates the tables used by Repository. The (field, authority)
// index backs FindItemsReferencingAuthority.
const Schema = `
CREATE TABLE IF NOT EXISTS authority (
	id         TEXT PRIMARY KEY,
	kind       TEXT NOT NULL,
	value      TEXT NOT NULL,
	field      TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS item (
	id         TEXT PRIMARY KEY,
	revision   BIGINT NOT NULL DEFAULT 0,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS metadata_value (
	item_id   TEXT NOT NULL REFERENCES item(id) ON DELETE CASCADE,
	place     INT NOT NULL,
	field     TEXT NOT NULL,
	value     TEXT NOT NULL,
	authority TEXT,
	PRIMARY KEY (item_id, place)
);

CREATE INDEX IF NOT EXISTS metadata_value_field_authority_idx
	ON metadata_value (field, authority, item_id);
`

// Migrate applies Schema
func Migrate(ctx context.Context, db DBTX) error {
	if _, err := db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
