package collection

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the lifecycle state of a collection job
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// IsValid reports whether s is a known status.
func (s JobStatus) IsValid() bool {
	switch s {
	case JobStatusPending, JobStatusRunning, JobStatusCompleted, JobStatusFailed:
		return true
	}
	return false
}

// IsTerminal reports whether s is a final status.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Trigger records what started a job.
type Trigger string

const (
	TriggerManual    Trigger = "manual"
	TriggerScheduled Trigger = "scheduled"
	TriggerCLI       Trigger = "cli"
)

// Counters are the aggregate item counts of a run.
type Counters struct {
	Total   int `json:"total"`
	New     int `json:"new"`
	Updated int `json:"updated"`
	Failed  int `json:"failed"`
}

// Reconciled returns the counters with Total recomputed from its parts.
func (c Counters) Reconciled() Counters {
	c.Total = c.New + c.Updated + c.Failed
	return c
}

// CollectionJob is the durable log record of one collection run.
type CollectionJob struct {
	ID           uuid.UUID
	SupplierID   uuid.UUID
	Window       Window
	Status       JobStatus
	Trigger      Trigger
	StartedAt    *time.Time
	CompletedAt  *time.Time
	Counters     Counters
	ErrorSummary string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewCollectionJob creates a pending job.
func NewCollectionJob(supplierID uuid.UUID, window Window, trigger Trigger, now time.Time) (*CollectionJob, error) {
	if err := window.Validate(); err != nil {
		return nil, err
	}
	if trigger == "" {
		trigger = TriggerManual
	}
	return &CollectionJob{
		ID:         uuid.New(),
		SupplierID: supplierID,
		Window:     window,
		Status:     JobStatusPending,
		Trigger:    trigger,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// Start moves a pending job to running.
func (j *CollectionJob) Start(now time.Time) error {
	if j.Status != JobStatusPending {
		return ErrInvalidTransition
	}
	j.Status = JobStatusRunning
	j.StartedAt = &now
	j.UpdatedAt = now
	return nil
}

// Finish folds a collector result into the job: completed when the run
// succeeded, failed otherwise.
func (j *CollectionJob) Finish(result Result, now time.Time) error {
	status := JobStatusFailed
	if result.Success {
		status = JobStatusCompleted
	}
	return j.finish(status, result.Counters(), SummarizeErrors(result.Errors, result.DroppedErrors), now)
}

// Fail marks a running job failed with a message, keeping any counters
// gathered so far.
func (j *CollectionJob) Fail(message string, counters Counters, now time.Time) error {
	return j.finish(JobStatusFailed, counters, message, now)
}

func (j *CollectionJob) finish(status JobStatus, counters Counters, summary string, now time.Time) error {
	if j.Status.IsTerminal() {
		return ErrJobAlreadyFinished
	}
	if j.Status != JobStatusRunning {
		return ErrInvalidTransition
	}
	j.Status = status
	j.Counters = counters.Reconciled()
	j.ErrorSummary = summary
	j.CompletedAt = &now
	j.UpdatedAt = now
	return nil
}

// IsTerminal reports whether the job reached a final status.
func (j *CollectionJob) IsTerminal() bool {
	return j.Status.IsTerminal()
}

// Duration returns the elapsed run time, or zero when unfinished.
func (j *CollectionJob) Duration() time.Duration {
	if j.StartedAt == nil || j.CompletedAt == nil {
		return 0
	}
	return j.CompletedAt.Sub(*j.StartedAt)
}
