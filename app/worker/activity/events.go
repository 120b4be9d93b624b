package activity

import (
	"context"
	"fmt"

	"github.com/epochlabs/ledgerx/app/worker/types"
	"github.com/epochlabs/ledgerx/pkg/metrics"
	"go.uber.org/zap"
)

// InsertEvents persists a collected batch idempotently. Every event is
// enriched with the node/scope identity and producer version before storage;
// the store skips duplicate ids, so overlapping batches across runs are safe.
func (ac *Context) InsertEvents(ctx context.Context, in types.InsertEventsInput) (types.InsertEventsOutput, error) {
	if len(in.Events) == 0 {
		return types.InsertEventsOutput{}, nil
	}

	for _, event := range in.Events {
		event.NodeID = in.NodeID
		event.ScopeID = in.ScopeID
		event.ProducerVersion = in.ProducerVersion
	}

	if err := ac.LedgerDB.InsertActivityEvents(ctx, in.Events); err != nil {
		return types.InsertEventsOutput{}, fmt.Errorf("insert activity events: %w", err)
	}

	metrics.EventsInserted.Add(float64(len(in.Events)))
	ac.Logger.Debug("Inserted activity events",
		zap.Int("num_events", len(in.Events)),
		zap.String("producer_version", in.ProducerVersion))

	return types.InsertEventsOutput{NumEvents: len(in.Events)}, nil
}
