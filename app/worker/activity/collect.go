package activity

import (
	"context"
	"time"

	"github.com/epochlabs/ledgerx/app/worker/types"
	"github.com/epochlabs/ledgerx/pkg/metrics"
	"github.com/epochlabs/ledgerx/pkg/source"
	"go.uber.org/zap"
)

// CollectFromSource delegates one scan to the registered adapter for the
// source. A source without an adapter is a soft-skip: empty events, cursor
// unchanged (falling back to the window start) and an "unknown" producer
// version, so unconfigured sources never block the workflow. Adapter failures
// (rate limits, upstream outages) propagate for the retry policy to handle.
func (ac *Context) CollectFromSource(ctx context.Context, in types.CollectInput) (types.CollectOutput, error) {
	start := time.Now()

	adapter, ok := ac.Sources.Get(in.Source)
	if !ok {
		ac.Logger.Warn("No adapter registered for source, skipping collection",
			zap.String("source", in.Source),
			zap.String("source_ref", in.SourceRef))

		fallback := in.WindowStart.UTC().Format(time.RFC3339)
		if in.CursorValue != nil {
			fallback = *in.CursorValue
		}
		streamID := ""
		if len(in.Streams) > 0 {
			streamID = in.Streams[0]
		}
		return types.CollectOutput{
			NextCursor:      types.NextCursor{StreamID: streamID, Value: fallback},
			ProducerVersion: types.ProducerVersionUnknown,
		}, nil
	}

	result, err := adapter.Collect(ctx, source.CollectRequest{
		SourceRef:   in.SourceRef,
		Streams:     in.Streams,
		Cursor:      in.CursorValue,
		WindowStart: in.WindowStart,
		WindowEnd:   in.WindowEnd,
	})
	if err != nil {
		return types.CollectOutput{}, err
	}

	metrics.EventsCollected.WithLabelValues(in.Source).Add(float64(len(result.Events)))
	ac.Logger.Debug("Collected events from source",
		zap.String("source", in.Source),
		zap.String("source_ref", in.SourceRef),
		zap.Strings("streams", in.Streams),
		zap.Int("num_events", len(result.Events)))

	durationMs := float64(time.Since(start).Microseconds()) / 1000.0
	return types.CollectOutput{
		Events:          result.Events,
		NextCursor:      types.NextCursor(result.NextCursor),
		ProducerVersion: adapter.Version(),
		DurationMs:      durationMs,
	}, nil
}
