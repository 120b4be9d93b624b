package activity

import (
	"context"
	"testing"

	"github.com/epochlabs/ledgerx/app/worker/types"
	"github.com/stretchr/testify/require"
)

func testCursorKey() types.CursorKeyInput {
	return types.CursorKeyInput{
		NodeID:    "node-1",
		ScopeID:   "scope-1",
		Source:    "github",
		Stream:    "pull_requests",
		SourceRef: "acme/widgets",
	}
}

func TestLoadCursorNeverSynced(t *testing.T) {
	ac := newTestContext(t, newFakeStore())

	out, err := ac.LoadCursor(context.Background(), testCursorKey())
	require.NoError(t, err)
	require.Nil(t, out.Value)
}

func TestSaveCursorAdvances(t *testing.T) {
	store := newFakeStore()
	ac := newTestContext(t, store)
	key := testCursorKey()

	out, err := ac.SaveCursor(context.Background(), types.SaveCursorInput{
		Key: key, Value: "2026-08-24T12:00:00Z",
	})
	require.NoError(t, err)
	require.Equal(t, "2026-08-24T12:00:00Z", out.EffectiveValue)

	out, err = ac.SaveCursor(context.Background(), types.SaveCursorInput{
		Key: key, Value: "2026-08-25T09:30:00Z",
	})
	require.NoError(t, err)
	require.Equal(t, "2026-08-25T09:30:00Z", out.EffectiveValue)

	loaded, err := ac.LoadCursor(context.Background(), key)
	require.NoError(t, err)
	require.NotNil(t, loaded.Value)
	require.Equal(t, "2026-08-25T09:30:00Z", *loaded.Value)
}

func TestSaveCursorNeverRegresses(t *testing.T) {
	store := newFakeStore()
	ac := newTestContext(t, store)
	key := testCursorKey()

	_, err := ac.SaveCursor(context.Background(), types.SaveCursorInput{
		Key: key, Value: "2026-08-25T09:30:00Z",
	})
	require.NoError(t, err)

	// A retried older run writes a stale value; the stored cursor wins.
	out, err := ac.SaveCursor(context.Background(), types.SaveCursorInput{
		Key: key, Value: "2026-08-24T12:00:00Z",
	})
	require.NoError(t, err)
	require.Equal(t, "2026-08-25T09:30:00Z", out.EffectiveValue)

	loaded, err := ac.LoadCursor(context.Background(), key)
	require.NoError(t, err)
	require.Equal(t, "2026-08-25T09:30:00Z", *loaded.Value)
}

func TestSaveCursorIsScopedByKey(t *testing.T) {
	store := newFakeStore()
	ac := newTestContext(t, store)

	keyA := testCursorKey()
	keyB := testCursorKey()
	keyB.SourceRef = "acme/gadgets"

	_, err := ac.SaveCursor(context.Background(), types.SaveCursorInput{Key: keyA, Value: "2026-08-25T00:00:00Z"})
	require.NoError(t, err)

	out, err := ac.LoadCursor(context.Background(), keyB)
	require.NoError(t, err)
	require.Nil(t, out.Value, "cursors for different refs are independent")
}
