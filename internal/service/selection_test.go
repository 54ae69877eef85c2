package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSelectionAccumulatesAcrossPages(t *testing.T) {
	tracker := NewSelectionTracker(setupRedis(t), time.Hour, testLogger())
	ctx := context.Background()

	pageA := []string{"a1", "a2", "a3"}
	pageB := []string{"b1", "b2"}

	require.NoError(t, tracker.SelectAll(ctx, "sess", pageA))
	require.NoError(t, tracker.SelectAll(ctx, "sess", pageB))

	count, err := tracker.Count(ctx, "sess")
	require.NoError(t, err)
	require.Equal(t, int64(len(pageA)+len(pageB)), count)

	members, err := tracker.Members(ctx, "sess")
	require.NoError(t, err)
	require.ElementsMatch(t, append(append([]string{}, pageA...), pageB...), members)
}

func TestSelectAllIsIdempotent(t *testing.T) {
	tracker := NewSelectionTracker(setupRedis(t), time.Hour, testLogger())
	ctx := context.Background()

	ids := []string{"a1", "a2"}
	require.NoError(t, tracker.SelectAll(ctx, "sess", ids))
	require.NoError(t, tracker.SelectAll(ctx, "sess", ids))

	count, err := tracker.Count(ctx, "sess")
	require.NoError(t, err)
	require.Equal(t, int64(2), count)
}

func TestToggleFlipsMembership(t *testing.T) {
	tracker := NewSelectionTracker(setupRedis(t), time.Hour, testLogger())
	ctx := context.Background()

	selected, err := tracker.Toggle(ctx, "sess", "a1")
	require.NoError(t, err)
	require.True(t, selected)

	selected, err = tracker.Toggle(ctx, "sess", "a1")
	require.NoError(t, err)
	require.False(t, selected)

	count, err := tracker.Count(ctx, "sess")
	require.NoError(t, err)
	require.Zero(t, count)

	_, err = tracker.Toggle(ctx, "sess", "  ")
	require.Error(t, err)
}

func TestClearEmptiesTheSelection(t *testing.T) {
	tracker := NewSelectionTracker(setupRedis(t), time.Hour, testLogger())
	ctx := context.Background()

	require.NoError(t, tracker.SelectAll(ctx, "sess", []string{"a1", "a2", "a3"}))
	require.NoError(t, tracker.Clear(ctx, "sess"))

	count, err := tracker.Count(ctx, "sess")
	require.NoError(t, err)
	require.Zero(t, count)

	// A subsequent select starts from empty.
	require.NoError(t, tracker.SelectAll(ctx, "sess", []string{"b1"}))
	count, err = tracker.Count(ctx, "sess")
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
}

func TestSelectionsAreSessionScoped(t *testing.T) {
	tracker := NewSelectionTracker(setupRedis(t), time.Hour, testLogger())
	ctx := context.Background()

	require.NoError(t, tracker.SelectAll(ctx, "sess-a", []string{"a1"}))
	require.NoError(t, tracker.SelectAll(ctx, "sess-b", []string{"b1", "b2"}))

	countA, err := tracker.Count(ctx, "sess-a")
	require.NoError(t, err)
	require.Equal(t, int64(1), countA)

	countB, err := tracker.Count(ctx, "sess-b")
	require.NoError(t, err)
	require.Equal(t, int64(2), countB)
}
