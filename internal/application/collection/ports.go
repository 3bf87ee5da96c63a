package collection

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/erp/backoffice/internal/domain/collection"
)

// SupplierLock is an advisory per-supplier lock held for a job's duration.
// The owner is the job ID, so only the job that took the lock releases it.
type SupplierLock interface {
	// Acquire returns false when another owner holds the lock
	Acquire(ctx context.Context, supplierID uuid.UUID, owner string, ttl time.Duration) (bool, error)

	// Release frees the lock if owner still holds it
	Release(ctx context.Context, supplierID uuid.UUID, owner string) error
}

// Task is a unit of background work.
type Task func(ctx context.Context)

// Dispatcher runs tasks detached from the caller. The context handed to a
// task belongs to the dispatcher, never to the submitting request.
type Dispatcher interface {
	Submit(task Task) error
}

// Metrics receives job lifecycle events.
type Metrics interface {
	JobStarted(ctx context.Context, trigger collection.Trigger)
	JobFinished(ctx context.Context, status collection.JobStatus, duration time.Duration, counters collection.Counters)
}

type noopMetrics struct{}

func (noopMetrics) JobStarted(context.Context, collection.Trigger) {}
func (noopMetrics) JobFinished(context.Context, collection.JobStatus, time.Duration, collection.Counters) {
}

// InlineDispatcher runs tasks synchronously on the caller's goroutine with
// the context it was built with.
type InlineDispatcher struct {
	Ctx context.Context
}

// Submit runs the task immediately.
func (d InlineDispatcher) Submit(task Task) error {
	ctx := d.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	task(ctx)
	return nil
}
