package workflow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestComputeEpochWindowWeekly(t *testing.T) {
	// 2026-08-26 is a Wednesday; the covering week starts Monday 2026-08-24.
	trigger := time.Date(2026, 8, 26, 15, 4, 5, 0, time.UTC)

	start, end := ComputeEpochWindow(trigger, 7)
	require.Equal(t, time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC), start)
	require.Equal(t, time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC), end)
}

func TestComputeEpochWindowMondayTriggerStartsOwnWeek(t *testing.T) {
	trigger := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)

	start, end := ComputeEpochWindow(trigger, 7)
	require.Equal(t, trigger, start)
	require.Equal(t, trigger.AddDate(0, 0, 7), end)
}

func TestComputeEpochWindowIsStableWithinWindow(t *testing.T) {
	early := time.Date(2026, 8, 24, 0, 0, 1, 0, time.UTC)
	late := time.Date(2026, 8, 30, 23, 59, 59, 0, time.UTC)

	s1, e1 := ComputeEpochWindow(early, 7)
	s2, e2 := ComputeEpochWindow(late, 7)
	require.Equal(t, s1, s2, "every trigger inside the window maps to the same start")
	require.Equal(t, e1, e2)
}

func TestComputeEpochWindowFortnightAlignsToOrigin(t *testing.T) {
	// Two triggers one week apart must land in the same fortnight when it
	// covers both, and adjacent fortnights must tile without gaps.
	a := time.Date(2026, 8, 18, 12, 0, 0, 0, time.UTC)
	sA, eA := ComputeEpochWindow(a, 14)
	require.Equal(t, time.Monday, sA.Weekday())
	require.Equal(t, 14*24*time.Hour, eA.Sub(sA))

	b := sA.Add(20 * 24 * time.Hour)
	sB, _ := ComputeEpochWindow(b, 14)
	require.Equal(t, eA, sB, "consecutive fortnights tile exactly")
}

func TestComputeEpochWindowHalfOpenBoundary(t *testing.T) {
	// A trigger exactly at a window end belongs to the next window.
	start, end := ComputeEpochWindow(time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC), 7)
	s2, _ := ComputeEpochWindow(end, 7)
	require.Equal(t, end, s2)
	require.NotEqual(t, start, s2)
}

func TestComputeEpochWindowDefaultsLength(t *testing.T) {
	start, end := ComputeEpochWindow(time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC), 0)
	require.Equal(t, 7*24*time.Hour, end.Sub(start))
}

func TestDeriveWeightsNamespacesKeys(t *testing.T) {
	weights := DeriveWeights([]string{"github"})
	require.Equal(t, int64(10), weights["github.pull_request_merged"])
	require.Equal(t, int64(5), weights["github.issue_closed"])
	require.Equal(t, int64(3), weights["github.pull_request_review"])
}

func TestDeriveWeightsUnknownSourceContributesNothing(t *testing.T) {
	weights := DeriveWeights([]string{"gitlab"})
	require.Empty(t, weights)
}
