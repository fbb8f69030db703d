package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestBatchTransitionTable(t *testing.T) {
	allowed := []struct {
		from, to BatchStatus
	}{
		{BatchPending, BatchInProgress},
		{BatchPending, BatchCancelled},
		{BatchInProgress, BatchCompleted},
		{BatchInProgress, BatchDelayed},
		{BatchInProgress, BatchCancelled},
		{BatchDelayed, BatchInProgress},
		{BatchDelayed, BatchCompleted},
		{BatchDelayed, BatchCancelled},
	}
	for _, tc := range allowed {
		assert.True(t, CanTransitionBatch(tc.from, tc.to), "%s -> %s should be allowed", tc.from, tc.to)
	}

	denied := []struct {
		from, to BatchStatus
	}{
		{BatchPending, BatchCompleted},
		{BatchPending, BatchDelayed},
		{BatchCompleted, BatchInProgress},
		{BatchCompleted, BatchCancelled},
		{BatchCancelled, BatchInProgress},
		{BatchCancelled, BatchPending},
		{BatchInProgress, BatchPending},
	}
	for _, tc := range denied {
		assert.False(t, CanTransitionBatch(tc.from, tc.to), "%s -> %s should be denied", tc.from, tc.to)
	}
}

func TestAttemptBatchTransitionAutoFillsStartDate(t *testing.T) {
	today := day(2024, 3, 10)
	b := &BatchWorkflow{Status: BatchPending}

	require.NoError(t, AttemptBatchTransition(b, BatchInProgress, today))
	require.NotNil(t, b.StartDate)
	assert.Equal(t, today, *b.StartDate)
	assert.Equal(t, BatchInProgress, b.Status)
}

func TestAttemptBatchTransitionKeepsExplicitStartDate(t *testing.T) {
	start := day(2024, 3, 1)
	b := &BatchWorkflow{Status: BatchPending, StartDate: &start}

	require.NoError(t, AttemptBatchTransition(b, BatchInProgress, day(2024, 3, 10)))
	assert.Equal(t, start, *b.StartDate)
}

func TestAttemptBatchTransitionCompletedStampsEndDate(t *testing.T) {
	today := day(2024, 4, 2)
	b := &BatchWorkflow{Status: BatchInProgress}

	require.NoError(t, AttemptBatchTransition(b, BatchCompleted, today))
	require.NotNil(t, b.EndDate)
	assert.Equal(t, today, *b.EndDate)
}

func TestAttemptBatchTransitionDelayedRequiresPastEndDate(t *testing.T) {
	today := day(2024, 4, 2)

	b := &BatchWorkflow{Status: BatchInProgress}
	var illegal *IllegalTransitionError
	err := AttemptBatchTransition(b, BatchDelayed, today)
	require.Error(t, err)
	assert.True(t, errors.As(err, &illegal))
	assert.Equal(t, BatchInProgress, b.Status)

	future := day(2024, 5, 1)
	b = &BatchWorkflow{Status: BatchInProgress, EndDate: &future}
	err = AttemptBatchTransition(b, BatchDelayed, today)
	require.Error(t, err)

	past := day(2024, 3, 20)
	b = &BatchWorkflow{Status: BatchInProgress, EndDate: &past}
	require.NoError(t, AttemptBatchTransition(b, BatchDelayed, today))
	assert.Equal(t, BatchDelayed, b.Status)
}

func TestAttemptBatchTransitionTerminalIsFinal(t *testing.T) {
	for _, from := range []BatchStatus{BatchCompleted, BatchCancelled} {
		b := &BatchWorkflow{Status: from}
		err := AttemptBatchTransition(b, BatchInProgress, day(2024, 4, 2))
		var illegal *IllegalTransitionError
		require.Error(t, err)
		assert.True(t, errors.As(err, &illegal))
	}
}

func TestMaintenanceTransitionTable(t *testing.T) {
	assert.True(t, CanTransitionMaintenance(MaintenancePending, MaintenanceInProgress))
	assert.True(t, CanTransitionMaintenance(MaintenancePending, MaintenanceCompleted))
	assert.True(t, CanTransitionMaintenance(MaintenanceInProgress, MaintenanceCompleted))

	assert.False(t, CanTransitionMaintenance(MaintenanceCompleted, MaintenanceInProgress))
	assert.False(t, CanTransitionMaintenance(MaintenanceCompleted, MaintenancePending))
	assert.False(t, CanTransitionMaintenance(MaintenanceInProgress, MaintenancePending))
}

func TestAttemptMaintenanceTransitionCompletionNeedsAction(t *testing.T) {
	now := time.Date(2024, 3, 10, 14, 30, 0, 0, time.UTC)

	l := &MaintenanceLog{Status: MaintenanceInProgress}
	err := AttemptMaintenanceTransition(l, MaintenanceCompleted, now)
	var constraint *ConstraintViolationError
	require.Error(t, err)
	require.True(t, errors.As(err, &constraint))
	assert.Equal(t, "action_taken", constraint.Field)
	assert.Nil(t, l.ResolvedAt)

	l.ActionTaken = "replaced drive belt"
	require.NoError(t, AttemptMaintenanceTransition(l, MaintenanceCompleted, now))
	require.NotNil(t, l.ResolvedAt)
	assert.Equal(t, now, *l.ResolvedAt)
}

func TestBatchIsOverdue(t *testing.T) {
	today := day(2024, 4, 2)
	past := day(2024, 3, 20)

	b := &BatchWorkflow{Status: BatchInProgress, EndDate: &past}
	assert.True(t, b.IsOverdue(today))

	b.Status = BatchCompleted
	assert.False(t, b.IsOverdue(today))

	b = &BatchWorkflow{Status: BatchInProgress}
	assert.False(t, b.IsOverdue(today))
}
