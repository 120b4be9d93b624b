package activity

import (
	"context"
	"testing"
	"time"

	"github.com/epochlabs/ledgerx/app/worker/types"
	ledgermodels "github.com/epochlabs/ledgerx/pkg/db/models/ledger"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/temporal"
)

func seedEpoch(t *testing.T, store *fakeStore) *ledgermodels.Epoch {
	t.Helper()
	start, end := testWindow()
	epoch, err := store.CreateEpoch(context.Background(), &ledgermodels.Epoch{
		NodeID:      "node-1",
		ScopeID:     "scope-1",
		PeriodStart: start,
		PeriodEnd:   end,
		Status:      ledgermodels.EpochStatusOpen,
		Weights:     ledgermodels.WeightConfig{"github.issue_closed": 5},
	})
	require.NoError(t, err)
	return epoch
}

func seedEvent(store *fakeStore, id, extUserID string, offset time.Duration) {
	start, _ := testWindow()
	store.events[id] = &ledgermodels.ActivityEvent{
		ID:             id,
		NodeID:         "node-1",
		ScopeID:        "scope-1",
		Source:         "github",
		EventType:      "issue_closed",
		ExternalUserID: extUserID,
		EventTime:      start.Add(offset),
	}
}

func TestCurateAndResolveCreatesRows(t *testing.T) {
	store := newFakeStore()
	ac := newTestContext(t, store)
	epoch := seedEpoch(t, store)

	store.identity["github"] = map[string]string{"octocat": "user-42"}
	seedEvent(store, "ev-1", "octocat", time.Hour)
	seedEvent(store, "ev-2", "stranger", 2*time.Hour)

	out, err := ac.CurateAndResolve(context.Background(), types.CurateInput{EpochID: epoch.ID})
	require.NoError(t, err)
	require.Equal(t, 2, out.Processed)
	require.Equal(t, 2, out.Created)
	require.Equal(t, 1, out.Resolved)
	require.Equal(t, 1, out.Unresolved)

	known := store.curations[curationKey(epoch.ID, "ev-1")]
	require.NotNil(t, known)
	require.True(t, known.Included)
	require.NotNil(t, known.UserID)
	require.Equal(t, "user-42", *known.UserID)

	// Unknown identity is retained, not dropped: row exists with nil user.
	unknown := store.curations[curationKey(epoch.ID, "ev-2")]
	require.NotNil(t, unknown)
	require.True(t, unknown.Included)
	require.Nil(t, unknown.UserID)
}

func TestCurateAndResolveFillsInLateIdentity(t *testing.T) {
	store := newFakeStore()
	ac := newTestContext(t, store)
	epoch := seedEpoch(t, store)

	seedEvent(store, "ev-1", "octocat", time.Hour)

	// First pass: identity unknown, row created unresolved.
	out, err := ac.CurateAndResolve(context.Background(), types.CurateInput{EpochID: epoch.ID})
	require.NoError(t, err)
	require.Equal(t, 1, out.Created)
	require.Equal(t, 1, out.Unresolved)

	// The identity directory learns the mapping; a later pass fills it in.
	store.identity["github"] = map[string]string{"octocat": "user-42"}
	out, err = ac.CurateAndResolve(context.Background(), types.CurateInput{EpochID: epoch.ID})
	require.NoError(t, err)
	require.Equal(t, 1, out.Processed)
	require.Zero(t, out.Created, "existing row is updated, not recreated")
	require.Equal(t, 1, out.Resolved)
	require.Equal(t, 1, store.updateUserIDCalls)

	row := store.curations[curationKey(epoch.ID, "ev-1")]
	require.NotNil(t, row.UserID)
	require.Equal(t, "user-42", *row.UserID)
}

func TestCurateAndResolvePreservesAdminFields(t *testing.T) {
	store := newFakeStore()
	ac := newTestContext(t, store)
	epoch := seedEpoch(t, store)

	seedEvent(store, "ev-1", "octocat", time.Hour)

	// An admin already excluded this event and pinned an override weight.
	excluded := false
	weight := int64(2500)
	note := "spam filter"
	store.curations[curationKey(epoch.ID, "ev-1")] = &ledgermodels.Curation{
		NodeID:              "node-1",
		EpochID:             epoch.ID,
		EventID:             "ev-1",
		Included:            false,
		IncludedOverride:    &excluded,
		WeightOverrideMilli: &weight,
		Note:                &note,
	}

	store.identity["github"] = map[string]string{"octocat": "user-42"}
	_, err := ac.CurateAndResolve(context.Background(), types.CurateInput{EpochID: epoch.ID})
	require.NoError(t, err)

	row := store.curations[curationKey(epoch.ID, "ev-1")]
	require.False(t, row.Included, "admin exclusion survives resolution")
	require.NotNil(t, row.IncludedOverride)
	require.False(t, *row.IncludedOverride)
	require.Equal(t, int64(2500), *row.WeightOverrideMilli)
	require.Equal(t, "spam filter", *row.Note)
	require.NotNil(t, row.UserID, "only the user id was filled in")
	require.Equal(t, "user-42", *row.UserID)
}

func TestCurateAndResolveEmptyDeltaIsNoop(t *testing.T) {
	store := newFakeStore()
	ac := newTestContext(t, store)
	epoch := seedEpoch(t, store)

	out, err := ac.CurateAndResolve(context.Background(), types.CurateInput{EpochID: epoch.ID})
	require.NoError(t, err)
	require.Zero(t, out.Processed)
	require.Zero(t, out.Created)
	require.Zero(t, store.updateUserIDCalls)
}

func TestCurateAndResolveResolvedRowsLeaveTheDelta(t *testing.T) {
	store := newFakeStore()
	ac := newTestContext(t, store)
	epoch := seedEpoch(t, store)

	store.identity["github"] = map[string]string{"octocat": "user-42"}
	seedEvent(store, "ev-1", "octocat", time.Hour)

	_, err := ac.CurateAndResolve(context.Background(), types.CurateInput{EpochID: epoch.ID})
	require.NoError(t, err)

	out, err := ac.CurateAndResolve(context.Background(), types.CurateInput{EpochID: epoch.ID})
	require.NoError(t, err)
	require.Zero(t, out.Processed, "fully resolved rows are not reprocessed")
}

func TestCurateAndResolveMissingEpochIsNonRetryable(t *testing.T) {
	ac := newTestContext(t, newFakeStore())

	_, err := ac.CurateAndResolve(context.Background(), types.CurateInput{EpochID: 404})
	require.Error(t, err)

	var appErr *temporal.ApplicationError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "epoch_not_found", appErr.Type())
	require.True(t, appErr.NonRetryable())
}
