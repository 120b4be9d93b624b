package ledger

import (
	"context"
	"errors"

	ledgermodels "github.com/epochlabs/ledgerx/pkg/db/models/ledger"
	"github.com/jackc/pgx/v5"
)

// GetCursor retrieves the sync position for the given key. Returns nil when
// the key has never been synced; absence is not an error.
func (db *DB) GetCursor(ctx context.Context, key ledgermodels.CursorKey) (*ledgermodels.Cursor, error) {
	cursor := ledgermodels.Cursor{Key: key}
	err := db.QueryRow(ctx, `
		SELECT value, updated_at
		FROM sync_cursors
		WHERE node_id = $1 AND scope_id = $2 AND source = $3 AND stream = $4 AND source_ref = $5`,
		key.NodeID, key.ScopeID, key.Source, key.Stream, key.SourceRef,
	).Scan(&cursor.Value, &cursor.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &cursor, nil
}

// UpsertCursor writes the cursor value for the given key. Monotonicity is the
// caller's concern: the activity computes the effective value before calling.
func (db *DB) UpsertCursor(ctx context.Context, key ledgermodels.CursorKey, value string) error {
	return db.Exec(ctx, `
		INSERT INTO sync_cursors (node_id, scope_id, source, stream, source_ref, value, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (node_id, scope_id, source, stream, source_ref)
		DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`,
		key.NodeID, key.ScopeID, key.Source, key.Stream, key.SourceRef, value)
}
