package scheduler

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	appcollection "github.com/erp/backoffice/internal/application/collection"
	"github.com/erp/backoffice/internal/domain/collection"
	"github.com/erp/backoffice/internal/domain/partner"
)

// SupplierSource lists suppliers that take part in scheduled collection
type SupplierSource interface {
	FindSchedulable(ctx context.Context) ([]partner.Supplier, error)
}

// CollectionStarter starts one collection job
type CollectionStarter interface {
	StartCollection(ctx context.Context, req appcollection.StartRequest) (*collection.CollectionJob, error)
}

// TriggerStats summarizes one scheduling pass
type TriggerStats struct {
	Started int
	Skipped int
	Failed  int
}

// CollectionTrigger periodically starts a scheduled collection for every
// schedulable supplier. A supplier whose previous job is still running is
// skipped until the next tick.
type CollectionTrigger struct {
	suppliers SupplierSource
	starter   CollectionStarter
	logger    *zap.Logger
	loop      *periodic
}

// NewCollectionTrigger creates a trigger firing every interval
func NewCollectionTrigger(interval time.Duration, suppliers SupplierSource, starter CollectionStarter, logger *zap.Logger) *CollectionTrigger {
	t := &CollectionTrigger{
		suppliers: suppliers,
		starter:   starter,
		logger:    logger.Named("collection_trigger"),
	}
	t.loop = &periodic{
		name:     "collection_trigger",
		interval: interval,
		logger:   t.logger,
		fn: func(ctx context.Context) {
			_, _ = t.TriggerAll(ctx)
		},
	}
	return t
}

// Start starts the trigger loop; the first pass runs immediately
func (t *CollectionTrigger) Start(ctx context.Context) error {
	return t.loop.start(ctx)
}

// Stop stops the trigger loop
func (t *CollectionTrigger) Stop(ctx context.Context) error {
	return t.loop.stop(ctx)
}

// TriggerAll runs one scheduling pass over all schedulable suppliers.
func (t *CollectionTrigger) TriggerAll(ctx context.Context) (TriggerStats, error) {
	var stats TriggerStats

	suppliers, err := t.suppliers.FindSchedulable(ctx)
	if err != nil {
		t.logger.Error("Failed to list schedulable suppliers", zap.Error(err))
		return stats, err
	}

	for i := range suppliers {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
		supplier := &suppliers[i]

		job, err := t.starter.StartCollection(ctx, appcollection.StartRequest{
			SupplierID: supplier.ID,
			Trigger:    collection.TriggerScheduled,
		})
		switch {
		case err == nil:
			stats.Started++
			t.logger.Debug("Scheduled collection started",
				zap.String("supplier_code", supplier.Code),
				zap.String("job_id", job.ID.String()),
			)
		case errors.Is(err, collection.ErrCollectionInProgress):
			stats.Skipped++
			t.logger.Debug("Collection already running, skipping supplier",
				zap.String("supplier_code", supplier.Code),
			)
		default:
			stats.Failed++
			t.logger.Warn("Failed to start scheduled collection",
				zap.String("supplier_code", supplier.Code),
				zap.Error(err),
			)
		}
	}

	if len(suppliers) > 0 {
		t.logger.Info("Scheduled collection pass finished",
			zap.Int("suppliers", len(suppliers)),
			zap.Int("started", stats.Started),
			zap.Int("skipped", stats.Skipped),
			zap.Int("failed", stats.Failed),
		)
	}
	return stats, nil
}
