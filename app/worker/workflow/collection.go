package workflow

import (
	"sort"
	"time"

	"github.com/epochlabs/ledgerx/app/worker/types"
	ledgermodels "github.com/epochlabs/ledgerx/pkg/db/models/ledger"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// CollectionWorkflow runs one idempotent collection pass for a scope:
// ensure the epoch covering the trigger time, then for every configured
// (source, ref, stream) triple load the cursor, collect, persist, and advance
// the cursor, and finally curate the epoch's window.
//
// Every activity is idempotent, so a workflow replayed or retried at any
// point converges to the same ledger state.
func (c *Context) CollectionWorkflow(ctx workflow.Context, in types.CollectionInput) (types.CollectionResult, error) {
	logger := workflow.GetLogger(ctx)

	trigger := in.TriggeredAt
	if trigger.IsZero() {
		trigger = workflow.Now(ctx)
	}
	windowStart, windowEnd := ComputeEpochWindow(trigger, in.EpochLengthDays)

	storeCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    time.Minute,
			MaximumAttempts:    5,
		},
	})
	collectCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    5 * time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    2 * time.Minute,
			MaximumAttempts:    3,
		},
	})

	sources := make([]string, 0, len(in.Sources))
	for name := range in.Sources {
		sources = append(sources, name)
	}
	sort.Strings(sources)

	var epoch types.EnsureEpochOutput
	err := workflow.ExecuteActivity(storeCtx, c.ActivityContext.EnsureEpoch, types.EnsureEpochInput{
		NodeID:      in.NodeID,
		ScopeID:     in.ScopeID,
		PeriodStart: windowStart,
		PeriodEnd:   windowEnd,
		Weights:     DeriveWeights(sources),
	}).Get(ctx, &epoch)
	if err != nil {
		return types.CollectionResult{}, err
	}

	result := types.CollectionResult{
		EpochID:     epoch.EpochID,
		WindowStart: windowStart,
		WindowEnd:   windowEnd,
	}

	if epoch.Status != ledgermodels.EpochStatusOpen {
		logger.Info("Epoch is not open, skipping collection",
			"epochId", epoch.EpochID, "status", epoch.Status)
		result.Skipped = true
		result.SkipReason = "epoch status is " + epoch.Status
		return result, nil
	}

	for _, src := range sources {
		spec := in.Sources[src]
		for _, ref := range spec.SourceRefs {
			for _, stream := range spec.Streams {
				key := types.CursorKeyInput{
					NodeID:    in.NodeID,
					ScopeID:   in.ScopeID,
					Source:    src,
					Stream:    stream,
					SourceRef: ref,
				}

				var cursor types.LoadCursorOutput
				if err := workflow.ExecuteActivity(storeCtx, c.ActivityContext.LoadCursor, key).Get(ctx, &cursor); err != nil {
					return types.CollectionResult{}, err
				}

				var collected types.CollectOutput
				err := workflow.ExecuteActivity(collectCtx, c.ActivityContext.CollectFromSource, types.CollectInput{
					NodeID:      in.NodeID,
					ScopeID:     in.ScopeID,
					Source:      src,
					SourceRef:   ref,
					Streams:     []string{stream},
					CursorValue: cursor.Value,
					WindowStart: windowStart,
					WindowEnd:   windowEnd,
				}).Get(ctx, &collected)
				if err != nil {
					return types.CollectionResult{}, err
				}

				if len(collected.Events) > 0 {
					var inserted types.InsertEventsOutput
					err := workflow.ExecuteActivity(storeCtx, c.ActivityContext.InsertEvents, types.InsertEventsInput{
						NodeID:          in.NodeID,
						ScopeID:         in.ScopeID,
						ProducerVersion: collected.ProducerVersion,
						Events:          collected.Events,
					}).Get(ctx, &inserted)
					if err != nil {
						return types.CollectionResult{}, err
					}
					result.EventsCollected += inserted.NumEvents
				}

				// The cursor advances even for empty scans so quiet repos do
				// not get rescanned from the window start forever.
				var saved types.SaveCursorOutput
				err = workflow.ExecuteActivity(storeCtx, c.ActivityContext.SaveCursor, types.SaveCursorInput{
					Key:   key,
					Value: collected.NextCursor.Value,
				}).Get(ctx, &saved)
				if err != nil {
					return types.CollectionResult{}, err
				}
			}
		}
	}

	var curation types.CurateOutput
	err = workflow.ExecuteActivity(storeCtx, c.ActivityContext.CurateAndResolve, types.CurateInput{
		EpochID: epoch.EpochID,
	}).Get(ctx, &curation)
	if err != nil {
		return types.CollectionResult{}, err
	}
	result.Curation = curation

	logger.Info("Collection run complete",
		"epochId", epoch.EpochID,
		"eventsCollected", result.EventsCollected,
		"curationsCreated", curation.Created,
		"unresolved", curation.Unresolved)

	return result, nil
}
