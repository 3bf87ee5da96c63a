package collection

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testWindow() Window {
	end := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	return Window{Start: end.AddDate(0, 0, -7), End: end}
}

func newRunningJob(t *testing.T) *CollectionJob {
	t.Helper()
	job, err := NewCollectionJob(uuid.New(), testWindow(), TriggerManual, time.Now())
	require.NoError(t, err)
	require.NoError(t, job.Start(time.Now()))
	return job
}

func TestNewCollectionJob(t *testing.T) {
	supplierID := uuid.New()
	job, err := NewCollectionJob(supplierID, testWindow(), "", time.Now())
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, job.ID)
	assert.Equal(t, supplierID, job.SupplierID)
	assert.Equal(t, JobStatusPending, job.Status)
	assert.Equal(t, TriggerManual, job.Trigger)
	assert.Nil(t, job.StartedAt)
	assert.Nil(t, job.CompletedAt)
}

func TestNewCollectionJob_InvalidWindow(t *testing.T) {
	w := testWindow()
	w.Start, w.End = w.End, w.Start

	_, err := NewCollectionJob(uuid.New(), w, TriggerManual, time.Now())
	assert.ErrorIs(t, err, ErrInvalidWindow)
}

func TestCollectionJob_Start(t *testing.T) {
	job := newRunningJob(t)
	assert.Equal(t, JobStatusRunning, job.Status)
	assert.NotNil(t, job.StartedAt)

	assert.ErrorIs(t, job.Start(time.Now()), ErrInvalidTransition)
}

func TestCollectionJob_Finish(t *testing.T) {
	tests := []struct {
		name   string
		result Result
		status JobStatus
	}{
		{
			name:   "success completes",
			result: Result{Success: true, TotalProducts: 3, NewProducts: 3},
			status: JobStatusCompleted,
		},
		{
			name: "partial failure fails",
			result: Result{
				Success:         false,
				TotalProducts:   10,
				NewProducts:     4,
				UpdatedProducts: 5,
				FailedProducts:  1,
				Errors:          []CollectionError{{Stage: StagePersist, ItemRef: "SKU-5", Message: "constraint violation"}},
			},
			status: JobStatusFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := newRunningJob(t)
			require.NoError(t, job.Finish(tt.result, time.Now()))

			assert.Equal(t, tt.status, job.Status)
			assert.NotNil(t, job.CompletedAt)
			assert.Equal(t, job.Counters.New+job.Counters.Updated+job.Counters.Failed, job.Counters.Total)
			assert.True(t, job.IsTerminal())
		})
	}
}

func TestCollectionJob_FinishStoresErrorSummary(t *testing.T) {
	job := newRunningJob(t)
	err := job.Finish(Result{
		FailedProducts: 1,
		Errors:         []CollectionError{{Stage: StageFetch, ItemRef: "page 2", Message: "status 502"}},
	}, time.Now())
	require.NoError(t, err)

	assert.Equal(t, "[fetch] page 2: status 502", job.ErrorSummary)
}

func TestCollectionJob_TotalIsReconciled(t *testing.T) {
	job := newRunningJob(t)
	require.NoError(t, job.Finish(Result{Success: true, TotalProducts: 99, NewProducts: 2, UpdatedProducts: 1}, time.Now()))

	assert.Equal(t, 3, job.Counters.Total)
}

func TestCollectionJob_TerminalIsImmutable(t *testing.T) {
	job := newRunningJob(t)
	require.NoError(t, job.Fail("boom", Counters{}, time.Now()))

	err := job.Finish(Result{Success: true}, time.Now())
	assert.ErrorIs(t, err, ErrJobAlreadyFinished)
	assert.Equal(t, JobStatusFailed, job.Status)
	assert.Equal(t, "boom", job.ErrorSummary)

	assert.ErrorIs(t, job.Start(time.Now()), ErrInvalidTransition)
}

func TestCollectionJob_FailRequiresRunning(t *testing.T) {
	job, err := NewCollectionJob(uuid.New(), testWindow(), TriggerManual, time.Now())
	require.NoError(t, err)

	assert.ErrorIs(t, job.Fail("x", Counters{}, time.Now()), ErrInvalidTransition)
}

func TestCollectionJob_Duration(t *testing.T) {
	job, err := NewCollectionJob(uuid.New(), testWindow(), TriggerManual, time.Now())
	require.NoError(t, err)
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, job.Start(start))
	assert.Zero(t, job.Duration())

	require.NoError(t, job.Finish(Result{Success: true}, start.Add(90*time.Second)))
	assert.Equal(t, 90*time.Second, job.Duration())
}

func TestJobStatus(t *testing.T) {
	assert.True(t, JobStatusCompleted.IsTerminal())
	assert.True(t, JobStatusFailed.IsTerminal())
	assert.False(t, JobStatusRunning.IsTerminal())
	assert.False(t, JobStatus("cancelled").IsValid())
}
