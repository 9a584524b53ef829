package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewReviewCycleEntry(t *testing.T) {
	entry, err := NewReviewCycleEntry("s1", 42, 1, "2026-03-10", "2026-03-11")
	require.NoError(t, err)
	require.Equal(t, "s1", entry.SessionID)
	require.Equal(t, int64(42), entry.UserID)
	require.Equal(t, 1, entry.ReviewStage)
	require.Equal(t, ReviewPending, entry.Status)

	// Same-day due date is allowed
	_, err = NewReviewCycleEntry("s1", 42, 3, "2026-03-10", "2026-03-10")
	require.NoError(t, err)
}

func TestNewReviewCycleEntryValidation(t *testing.T) {
	_, err := NewReviewCycleEntry("", 42, 1, "2026-03-10", "2026-03-11")
	require.Error(t, err)

	_, err = NewReviewCycleEntry("s1", 42, 0, "2026-03-10", "2026-03-11")
	require.Error(t, err)

	_, err = NewReviewCycleEntry("s1", 42, 1, "2026-03-10", "not-a-date")
	require.Error(t, err)

	// Due date before the first appearance date
	_, err = NewReviewCycleEntry("s1", 42, 1, "2026-03-10", "2026-03-09")
	require.Error(t, err)
}

func TestMarkCompleted(t *testing.T) {
	entry, err := NewReviewCycleEntry("s1", 42, 2, "2026-03-10", "2026-03-13")
	require.NoError(t, err)

	require.NoError(t, entry.MarkCompleted())
	require.Equal(t, ReviewCompleted, entry.Status)

	// Second completion is rejected
	require.ErrorIs(t, entry.MarkCompleted(), ErrAlreadyCompleted)

	rescheduled := &ReviewCycleEntry{Status: ReviewMissedRescheduled}
	require.ErrorIs(t, rescheduled.MarkCompleted(), ErrAlreadyCompleted)
}
