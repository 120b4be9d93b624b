package activity

import (
	"context"
	"fmt"
	"maps"

	"github.com/epochlabs/ledgerx/app/worker/types"
	ledgerstore "github.com/epochlabs/ledgerx/pkg/db/ledger"
	ledgermodels "github.com/epochlabs/ledgerx/pkg/db/models/ledger"
	"github.com/epochlabs/ledgerx/pkg/metrics"
	"go.uber.org/zap"
)

// EnsureEpoch returns the epoch for the exact window, creating it if absent.
//
// The weight configuration is pinned at creation: when an epoch already
// exists with a different configuration the drift is logged and the stored
// configuration wins. A concurrent creator losing the insert race re-fetches
// the winner's row; both callers end up observing the same epoch.
func (ac *Context) EnsureEpoch(ctx context.Context, in types.EnsureEpochInput) (types.EnsureEpochOutput, error) {
	existing, err := ac.LedgerDB.GetEpochByWindow(ctx, in.NodeID, in.ScopeID, in.PeriodStart, in.PeriodEnd)
	if err != nil {
		return types.EnsureEpochOutput{}, fmt.Errorf("get epoch by window: %w", err)
	}
	if existing != nil {
		if !maps.Equal(existing.Weights, in.Weights) {
			ac.Logger.Warn("Weight configuration drift detected, keeping pinned configuration",
				zap.Int64("epoch_id", existing.ID),
				zap.Any("pinned", existing.Weights),
				zap.Any("requested", in.Weights))
		}
		return epochOutput(existing, false), nil
	}

	created, err := ac.LedgerDB.CreateEpoch(ctx, &ledgermodels.Epoch{
		NodeID:      in.NodeID,
		ScopeID:     in.ScopeID,
		PeriodStart: in.PeriodStart,
		PeriodEnd:   in.PeriodEnd,
		Status:      ledgermodels.EpochStatusOpen,
		Weights:     in.Weights,
	})
	if err != nil {
		if ledgerstore.IsUniqueViolation(err) {
			// A concurrent caller won the race; their row is authoritative.
			winner, getErr := ac.LedgerDB.GetEpochByWindow(ctx, in.NodeID, in.ScopeID, in.PeriodStart, in.PeriodEnd)
			if getErr != nil {
				return types.EnsureEpochOutput{}, fmt.Errorf("refetch epoch after conflict: %w", getErr)
			}
			if winner == nil {
				return types.EnsureEpochOutput{}, fmt.Errorf("epoch conflict but no row found: %w", err)
			}
			ac.Logger.Info("Lost epoch creation race, using existing epoch",
				zap.Int64("epoch_id", winner.ID))
			return epochOutput(winner, false), nil
		}
		return types.EnsureEpochOutput{}, fmt.Errorf("create epoch: %w", err)
	}

	metrics.EpochsCreated.Inc()
	ac.Logger.Info("Epoch created",
		zap.Int64("epoch_id", created.ID),
		zap.Time("period_start", created.PeriodStart),
		zap.Time("period_end", created.PeriodEnd))

	return epochOutput(created, true), nil
}

func epochOutput(epoch *ledgermodels.Epoch, isNew bool) types.EnsureEpochOutput {
	return types.EnsureEpochOutput{
		EpochID: epoch.ID,
		Status:  epoch.Status,
		Weights: epoch.Weights,
		IsNew:   isNew,
	}
}
