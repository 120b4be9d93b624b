package ledger

import (
	"context"
	"fmt"

	ledgermodels "github.com/epochlabs/ledgerx/pkg/db/models/ledger"
	"github.com/jackc/pgx/v5"
)

// InsertCurationsDoNothing inserts curation rows, tolerating concurrent
// inserts: a (epoch_id, event_id) pair that already exists is left untouched,
// which is what protects admin-set fields from the automated pipeline.
func (db *DB) InsertCurationsDoNothing(ctx context.Context, rows []*ledgermodels.Curation) error {
	if len(rows) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, row := range rows {
		batch.Queue(`
			INSERT INTO curations (epoch_id, event_id, node_id, user_id, included)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (epoch_id, event_id) DO NOTHING`,
			row.EpochID, row.EventID, row.NodeID, row.UserID, row.Included)
	}

	results := db.Pool.SendBatch(ctx, batch)
	defer func() { _ = results.Close() }()

	for range rows {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("insert curations: %w", err)
		}
	}

	return nil
}

// UpdateCurationUserID sets user_id on an existing curation row. This is the
// only post-insert write the pipeline performs; included/override/note stay
// owned by the admin surface.
func (db *DB) UpdateCurationUserID(ctx context.Context, epochID int64, eventID, userID string) error {
	return db.Exec(ctx, `
		UPDATE curations
		SET user_id = $3, updated_at = NOW()
		WHERE epoch_id = $1 AND event_id = $2`,
		epochID, eventID, userID)
}

// ResolveIdentities maps external platform user ids to internal user ids for
// one source. Ids without a directory entry are absent from the result map.
func (db *DB) ResolveIdentities(ctx context.Context, source string, externalIDs []string) (map[string]string, error) {
	resolved := make(map[string]string, len(externalIDs))
	if len(externalIDs) == 0 {
		return resolved, nil
	}

	rows, err := db.Query(ctx, `
		SELECT external_id, user_id
		FROM identities
		WHERE source = $1 AND external_id = ANY($2)`,
		source, externalIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var externalID, userID string
		if err := rows.Scan(&externalID, &userID); err != nil {
			return nil, err
		}
		resolved[externalID] = userID
	}

	return resolved, rows.Err()
}
