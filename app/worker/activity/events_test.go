package activity

import (
	"context"
	"testing"
	"time"

	"github.com/epochlabs/ledgerx/app/worker/types"
	ledgermodels "github.com/epochlabs/ledgerx/pkg/db/models/ledger"
	"github.com/stretchr/testify/require"
)

func TestInsertEventsEmptyBatchIsNoop(t *testing.T) {
	store := newFakeStore()
	ac := newTestContext(t, store)

	out, err := ac.InsertEvents(context.Background(), types.InsertEventsInput{
		NodeID: "node-1", ScopeID: "scope-1", ProducerVersion: "github-adapter/1.2.0",
	})
	require.NoError(t, err)
	require.Zero(t, out.NumEvents)
	require.Zero(t, store.insertEventCalls, "empty batch must not hit the store")
}

func TestInsertEventsEnrichesProvenance(t *testing.T) {
	store := newFakeStore()
	ac := newTestContext(t, store)

	out, err := ac.InsertEvents(context.Background(), types.InsertEventsInput{
		NodeID:          "node-1",
		ScopeID:         "scope-1",
		ProducerVersion: "github-adapter/1.2.0",
		Events: []*ledgermodels.ActivityEvent{
			{ID: "ev-1", Source: "github", EventType: "issue_closed", EventTime: time.Now()},
		},
	})
	require.NoError(t, err)
	require.Equal(t, 1, out.NumEvents)

	stored := store.events["ev-1"]
	require.NotNil(t, stored)
	require.Equal(t, "node-1", stored.NodeID)
	require.Equal(t, "scope-1", stored.ScopeID)
	require.Equal(t, "github-adapter/1.2.0", stored.ProducerVersion)
}

func TestInsertEventsDuplicateIDsAreIdempotent(t *testing.T) {
	store := newFakeStore()
	ac := newTestContext(t, store)

	batch := types.InsertEventsInput{
		NodeID:          "node-1",
		ScopeID:         "scope-1",
		ProducerVersion: "github-adapter/1.2.0",
		Events: []*ledgermodels.ActivityEvent{
			{ID: "ev-1", Source: "github", EventType: "issue_closed", Metadata: map[string]any{"number": 7}},
		},
	}

	_, err := ac.InsertEvents(context.Background(), batch)
	require.NoError(t, err)

	// Replay the same batch with mutated metadata: first write wins.
	batch.Events[0].Metadata = map[string]any{"number": 8}
	_, err = ac.InsertEvents(context.Background(), batch)
	require.NoError(t, err)

	require.Len(t, store.events, 1)
	require.Equal(t, 7, store.events["ev-1"].Metadata["number"])
}
