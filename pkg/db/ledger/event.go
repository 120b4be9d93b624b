package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	ledgermodels "github.com/epochlabs/ledgerx/pkg/db/models/ledger"
	"github.com/jackc/pgx/v5"
)

// InsertActivityEvents persists a batch of events, skipping ids that already
// exist. Re-running with an overlapping batch neither errors nor duplicates.
func (db *DB) InsertActivityEvents(ctx context.Context, events []*ledgermodels.ActivityEvent) error {
	if len(events) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, event := range events {
		var metadata []byte
		if event.Metadata != nil {
			var err error
			metadata, err = json.Marshal(event.Metadata)
			if err != nil {
				return fmt.Errorf("marshal metadata for event %s: %w", event.ID, err)
			}
		}

		batch.Queue(`
			INSERT INTO activity_events (
				id, node_id, scope_id, source, event_type,
				external_user_id, external_login, artifact_url, metadata,
				payload_hash, producer, producer_version, event_time, retrieved_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
			ON CONFLICT (id) DO NOTHING`,
			event.ID, event.NodeID, event.ScopeID, event.Source, event.EventType,
			event.ExternalUserID, event.ExternalLogin, event.ArtifactURL, metadata,
			event.PayloadHash, event.Producer, event.ProducerVersion,
			event.EventTime, event.RetrievedAt)
	}

	results := db.Pool.SendBatch(ctx, batch)
	defer func() { _ = results.Close() }()

	for range events {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("insert activity events: %w", err)
		}
	}

	return nil
}

// GetUncuratedEvents returns the curation delta set for an epoch window:
// events in [start, end) that either have no curation row or whose row is
// still unresolved (NULL user_id), each flagged with row existence.
func (db *DB) GetUncuratedEvents(ctx context.Context, nodeID string, epochID int64, start, end time.Time) ([]ledgermodels.UncuratedEvent, error) {
	rows, err := db.Query(ctx, `
		SELECT e.id, e.node_id, e.scope_id, e.source, e.event_type,
		       e.external_user_id, e.external_login, e.artifact_url, e.metadata,
		       e.payload_hash, e.producer, e.producer_version, e.event_time, e.retrieved_at,
		       (c.event_id IS NOT NULL) AS has_curation
		FROM activity_events e
		LEFT JOIN curations c ON c.epoch_id = $2 AND c.event_id = e.id
		WHERE e.node_id = $1
		  AND e.event_time >= $3 AND e.event_time < $4
		  AND (c.event_id IS NULL OR c.user_id IS NULL)
		ORDER BY e.event_time, e.id`,
		nodeID, epochID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledgermodels.UncuratedEvent
	for rows.Next() {
		var (
			event    ledgermodels.ActivityEvent
			metadata []byte
			hasRow   bool
		)
		if err := rows.Scan(&event.ID, &event.NodeID, &event.ScopeID, &event.Source,
			&event.EventType, &event.ExternalUserID, &event.ExternalLogin,
			&event.ArtifactURL, &metadata, &event.PayloadHash, &event.Producer,
			&event.ProducerVersion, &event.EventTime, &event.RetrievedAt,
			&hasRow); err != nil {
			return nil, err
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &event.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal metadata for event %s: %w", event.ID, err)
			}
		}
		out = append(out, ledgermodels.UncuratedEvent{Event: &event, HasCuration: hasRow})
	}

	return out, rows.Err()
}
