package collection

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/erp/backoffice/internal/domain/shared"
)

// JobFilter narrows job log queries.
type JobFilter struct {
	shared.Filter
	SupplierID *uuid.UUID
	Status     JobStatus
	From       *time.Time
	To         *time.Time
}

// JobRepository is the job log store.
type JobRepository interface {
	// Create inserts a new job row
	Create(ctx context.Context, job *CollectionJob) error

	// SaveTerminal persists a job that reached a terminal status. It only
	// succeeds while the stored row is still running and returns
	// ErrJobAlreadyFinished otherwise
	SaveTerminal(ctx context.Context, job *CollectionJob) error

	// FindByID returns ErrJobNotFound when the job does not exist
	FindByID(ctx context.Context, id uuid.UUID) (*CollectionJob, error)

	// List returns a page of jobs and the total count
	List(ctx context.Context, filter JobFilter) ([]CollectionJob, int64, error)

	// FindRunningStartedBefore returns running jobs started before cutoff
	FindRunningStartedBefore(ctx context.Context, cutoff time.Time, limit int) ([]CollectionJob, error)

	// HasRunning reports whether a supplier has a running job
	HasRunning(ctx context.Context, supplierID uuid.UUID) (bool, error)
}
