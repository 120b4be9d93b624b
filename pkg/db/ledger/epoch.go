package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	ledgermodels "github.com/epochlabs/ledgerx/pkg/db/models/ledger"
	"github.com/jackc/pgx/v5"
)

// GetEpochByWindow retrieves the epoch for the exact (node, scope, start, end)
// window regardless of status. Returns nil when no row exists.
func (db *DB) GetEpochByWindow(ctx context.Context, nodeID, scopeID string, start, end time.Time) (*ledgermodels.Epoch, error) {
	row := db.QueryRow(ctx, `
		SELECT id, node_id, scope_id, period_start, period_end, status, weights, created_at
		FROM epochs
		WHERE node_id = $1 AND scope_id = $2 AND period_start = $3 AND period_end = $4`,
		nodeID, scopeID, start, end)

	return scanEpoch(row)
}

// CreateEpoch inserts a new epoch row with its pinned weight configuration.
// A racing creator for the same window fails with a unique violation; callers
// detect that via IsUniqueViolation and re-fetch the winner.
func (db *DB) CreateEpoch(ctx context.Context, epoch *ledgermodels.Epoch) (*ledgermodels.Epoch, error) {
	weights, err := json.Marshal(epoch.Weights)
	if err != nil {
		return nil, fmt.Errorf("marshal weight config: %w", err)
	}

	status := epoch.Status
	if status == "" {
		status = ledgermodels.EpochStatusOpen
	}

	created := *epoch
	created.Status = status
	err = db.QueryRow(ctx, `
		INSERT INTO epochs (node_id, scope_id, period_start, period_end, status, weights)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`,
		epoch.NodeID, epoch.ScopeID, epoch.PeriodStart, epoch.PeriodEnd, status, weights,
	).Scan(&created.ID, &created.CreatedAt)
	if err != nil {
		return nil, err
	}

	return &created, nil
}

// GetEpoch retrieves an epoch by id. Returns nil when no row exists.
func (db *DB) GetEpoch(ctx context.Context, id int64) (*ledgermodels.Epoch, error) {
	row := db.QueryRow(ctx, `
		SELECT id, node_id, scope_id, period_start, period_end, status, weights, created_at
		FROM epochs
		WHERE id = $1`, id)

	return scanEpoch(row)
}

// GetEpochSummary returns the epoch row together with curation totals.
func (db *DB) GetEpochSummary(ctx context.Context, id int64) (*ledgermodels.EpochSummary, error) {
	epoch, err := db.GetEpoch(ctx, id)
	if err != nil {
		return nil, err
	}
	if epoch == nil {
		return nil, nil
	}

	summary := &ledgermodels.EpochSummary{Epoch: epoch}
	err = db.QueryRow(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE user_id IS NOT NULL),
		       COUNT(*) FILTER (WHERE user_id IS NULL)
		FROM curations
		WHERE epoch_id = $1`, id,
	).Scan(&summary.TotalCurations, &summary.Resolved, &summary.Unresolved)
	if err != nil {
		return nil, fmt.Errorf("count curations for epoch %d: %w", id, err)
	}

	return summary, nil
}

func scanEpoch(row pgx.Row) (*ledgermodels.Epoch, error) {
	var (
		epoch       ledgermodels.Epoch
		weightsJSON []byte
	)
	err := row.Scan(&epoch.ID, &epoch.NodeID, &epoch.ScopeID, &epoch.PeriodStart,
		&epoch.PeriodEnd, &epoch.Status, &weightsJSON, &epoch.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if len(weightsJSON) > 0 {
		if err := json.Unmarshal(weightsJSON, &epoch.Weights); err != nil {
			return nil, fmt.Errorf("unmarshal weight config: %w", err)
		}
	}

	return &epoch, nil
}
