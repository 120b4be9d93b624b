package activity

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/epochlabs/ledgerx/app/worker/types"
	ledgermodels "github.com/epochlabs/ledgerx/pkg/db/models/ledger"
	"github.com/epochlabs/ledgerx/pkg/metrics"
	"go.temporal.io/sdk/temporal"
	"go.uber.org/zap"
)

// CurateAndResolve performs identity resolution and curation bookkeeping for
// every event in the epoch's window that lacks a fully-resolved curation row.
//
// New rows are created with insert-if-absent; existing rows only ever get
// their user id filled in. Admin-set fields (included, weight override, note)
// are structurally out of reach of this activity. Re-running with no new
// events or resolutions is a no-op.
func (ac *Context) CurateAndResolve(ctx context.Context, in types.CurateInput) (types.CurateOutput, error) {
	start := time.Now()

	epoch, err := ac.LedgerDB.GetEpoch(ctx, in.EpochID)
	if err != nil {
		return types.CurateOutput{}, fmt.Errorf("get epoch: %w", err)
	}
	if epoch == nil {
		// The orchestrator only passes ids it obtained from ensure-epoch, so
		// a missing row is an invariant violation, not a transient condition.
		return types.CurateOutput{}, temporal.NewNonRetryableApplicationError(
			fmt.Sprintf("epoch %d not found", in.EpochID), "epoch_not_found", nil)
	}

	delta, err := ac.LedgerDB.GetUncuratedEvents(ctx, epoch.NodeID, epoch.ID, epoch.PeriodStart, epoch.PeriodEnd)
	if err != nil {
		return types.CurateOutput{}, fmt.Errorf("get uncurated events: %w", err)
	}
	if len(delta) == 0 {
		return types.CurateOutput{DurationMs: elapsedMs(start)}, nil
	}

	resolved, err := ac.resolveDelta(ctx, delta)
	if err != nil {
		return types.CurateOutput{}, err
	}

	out := types.CurateOutput{Processed: len(delta)}
	var newRows []*ledgermodels.Curation

	for _, item := range delta {
		event := item.Event
		userID, hasUser := resolved[event.Source][event.ExternalUserID]

		switch {
		case !item.HasCuration:
			row := &ledgermodels.Curation{
				NodeID:   epoch.NodeID,
				EpochID:  epoch.ID,
				EventID:  event.ID,
				Included: true,
			}
			if hasUser {
				row.UserID = &userID
			}
			newRows = append(newRows, row)
			out.Created++
		case hasUser:
			if err := ac.LedgerDB.UpdateCurationUserID(ctx, epoch.ID, event.ID, userID); err != nil {
				return types.CurateOutput{}, fmt.Errorf("update curation user id: %w", err)
			}
		}

		if hasUser {
			out.Resolved++
		} else {
			out.Unresolved++
		}
	}

	if len(newRows) > 0 {
		if err := ac.LedgerDB.InsertCurationsDoNothing(ctx, newRows); err != nil {
			return types.CurateOutput{}, fmt.Errorf("insert curations: %w", err)
		}
		metrics.CurationsCreated.Add(float64(len(newRows)))
	}

	metrics.IdentitiesResolved.Add(float64(out.Resolved))
	metrics.IdentitiesUnresolved.Add(float64(out.Unresolved))

	out.DurationMs = elapsedMs(start)
	ac.Logger.Info("Curation run complete",
		zap.Int64("epoch_id", epoch.ID),
		zap.Int("processed", out.Processed),
		zap.Int("created", out.Created),
		zap.Int("resolved", out.Resolved),
		zap.Int("unresolved", out.Unresolved))

	ac.publishCurationSummary(ctx, epoch, out)

	return out, nil
}

// resolveDelta batch-resolves the distinct external user ids of the delta
// set, grouped by source. Sources without a wired resolver are skipped; their
// events stay unresolved rather than erroring.
func (ac *Context) resolveDelta(ctx context.Context, delta []ledgermodels.UncuratedEvent) (map[string]map[string]string, error) {
	bySource := make(map[string]map[string]bool)
	for _, item := range delta {
		event := item.Event
		if event.ExternalUserID == "" {
			continue
		}
		if bySource[event.Source] == nil {
			bySource[event.Source] = make(map[string]bool)
		}
		bySource[event.Source][event.ExternalUserID] = true
	}

	sources := make([]string, 0, len(bySource))
	for src := range bySource {
		sources = append(sources, src)
	}
	sort.Strings(sources)

	resolved := make(map[string]map[string]string, len(bySource))
	for _, src := range sources {
		if !resolvableSources[src] {
			ac.Logger.Debug("No identity resolver for source, leaving events unresolved",
				zap.String("source", src),
				zap.Int("distinct_ids", len(bySource[src])))
			continue
		}

		ids := make([]string, 0, len(bySource[src]))
		for id := range bySource[src] {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		m, err := ac.LedgerDB.ResolveIdentities(ctx, src, ids)
		if err != nil {
			return nil, fmt.Errorf("resolve identities for %s: %w", src, err)
		}
		resolved[src] = m
	}

	return resolved, nil
}

// publishCurationSummary appends a run summary to the curation stream for
// dashboards. Best effort: a missing or unhealthy Redis never fails the run.
func (ac *Context) publishCurationSummary(ctx context.Context, epoch *ledgermodels.Epoch, out types.CurateOutput) {
	if ac.RedisClient == nil {
		return
	}

	ac.RedisClient.XAdd(ctx, "ledgerx:curation", map[string]interface{}{
		"epoch_id":   epoch.ID,
		"node_id":    epoch.NodeID,
		"scope_id":   epoch.ScopeID,
		"processed":  out.Processed,
		"created":    out.Created,
		"resolved":   out.Resolved,
		"unresolved": out.Unresolved,
	})
}

func elapsedMs(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}
