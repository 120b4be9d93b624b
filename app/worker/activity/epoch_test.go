package activity

import (
	"context"
	"testing"
	"time"

	"github.com/epochlabs/ledgerx/app/worker/types"
	ledgermodels "github.com/epochlabs/ledgerx/pkg/db/models/ledger"
	"github.com/epochlabs/ledgerx/pkg/source"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestContext(t *testing.T, store *fakeStore) *Context {
	return &Context{
		Logger:   zaptest.NewLogger(t),
		LedgerDB: store,
		Sources:  source.NewRegistry(),
	}
}

func testWindow() (time.Time, time.Time) {
	start := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 7)
}

func TestEnsureEpochCreatesAndPinsWeights(t *testing.T) {
	store := newFakeStore()
	ac := newTestContext(t, store)
	start, end := testWindow()

	in := types.EnsureEpochInput{
		NodeID:      "node-1",
		ScopeID:     "scope-1",
		PeriodStart: start,
		PeriodEnd:   end,
		Weights:     ledgermodels.WeightConfig{"github.pull_request_merged": 10},
	}

	out, err := ac.EnsureEpoch(context.Background(), in)
	require.NoError(t, err)
	require.True(t, out.IsNew)
	require.Equal(t, ledgermodels.EpochStatusOpen, out.Status)
	require.Equal(t, int64(10), out.Weights["github.pull_request_merged"])

	// A second call with different weights returns the pinned configuration.
	in.Weights = ledgermodels.WeightConfig{"github.pull_request_merged": 99}
	again, err := ac.EnsureEpoch(context.Background(), in)
	require.NoError(t, err)
	require.False(t, again.IsNew)
	require.Equal(t, out.EpochID, again.EpochID)
	require.Equal(t, int64(10), again.Weights["github.pull_request_merged"])
	require.Equal(t, 1, store.createEpochCalls)
}

func TestEnsureEpochLostRaceConvergesToWinner(t *testing.T) {
	store := newFakeStore()
	ac := newTestContext(t, store)
	start, end := testWindow()

	winner, err := store.CreateEpoch(context.Background(), &ledgermodels.Epoch{
		NodeID:      "node-1",
		ScopeID:     "scope-1",
		PeriodStart: start,
		PeriodEnd:   end,
		Status:      ledgermodels.EpochStatusOpen,
		Weights:     ledgermodels.WeightConfig{"github.issue_closed": 5},
	})
	require.NoError(t, err)

	// The winner's row lands between our existence check and our insert: the
	// check misses, the insert conflicts, the re-fetch finds the winner.
	store.missWindowOnce = true
	store.conflictOnCreate = true

	out, err := ac.EnsureEpoch(context.Background(), types.EnsureEpochInput{
		NodeID:      "node-1",
		ScopeID:     "scope-1",
		PeriodStart: start,
		PeriodEnd:   end,
		Weights:     ledgermodels.WeightConfig{"github.issue_closed": 7},
	})
	require.NoError(t, err)
	require.False(t, out.IsNew)
	require.Equal(t, winner.ID, out.EpochID)
	require.Equal(t, int64(5), out.Weights["github.issue_closed"], "winner's weights are authoritative")
}

func TestEnsureEpochConflictWithoutRowErrors(t *testing.T) {
	store := newFakeStore()
	ac := newTestContext(t, store)
	start, end := testWindow()

	store.conflictOnCreate = true

	_, err := ac.EnsureEpoch(context.Background(), types.EnsureEpochInput{
		NodeID:      "node-1",
		ScopeID:     "scope-1",
		PeriodStart: start,
		PeriodEnd:   end,
		Weights:     ledgermodels.WeightConfig{},
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "no row found")
}
