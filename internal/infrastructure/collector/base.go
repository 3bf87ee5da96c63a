// Package collector provides the concrete supplier catalog collectors and
// the helpers they share.
package collector

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/erp/backoffice/internal/domain/catalog"
	"github.com/erp/backoffice/internal/domain/collection"
	"github.com/erp/backoffice/internal/domain/partner"
)

// BaseCollector carries the per-run state every collector shares: the sink
// it persists through, the running counters and the bounded error list.
// Concrete collectors embed it and only deal with fetching.
type BaseCollector struct {
	jobID    uuid.UUID
	supplier *partner.Supplier
	sink     collection.ProductSink
	policy   catalog.StockPolicy
	errors   *collection.ErrorCollection
	counters collection.Counters
	logger   *zap.Logger
}

// NewBaseCollector creates the shared state for one run.
func NewBaseCollector(params collection.CollectorParams, policy catalog.StockPolicy, maxErrors int, logger *zap.Logger) BaseCollector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return BaseCollector{
		jobID:    params.JobID,
		supplier: params.Supplier,
		sink:     params.Sink,
		policy:   policy,
		errors:   collection.NewErrorCollection(maxErrors),
		logger: logger.With(
			zap.String("job_id", params.JobID.String()),
			zap.String("supplier_id", params.Supplier.ID.String()),
		),
	}
}

// saveProduct normalizes, classifies and persists one item. It returns false
// when the item was counted as failed; the caller keeps going either way.
func (b *BaseCollector) saveProduct(ctx context.Context, item collection.CatalogItem) bool {
	item.Normalize()
	item.Classify(b.policy)

	snapshot := item.ToSnapshot(b.supplier.ID)
	if err := snapshot.Validate(); err != nil {
		b.recordItemFailure(collection.StageNormalize, item.NaturalKey, err)
		return false
	}

	result, err := b.sink.UpsertProduct(ctx, snapshot)
	if err != nil {
		b.recordItemFailure(collection.StagePersist, item.NaturalKey, err)
		return false
	}

	b.counters.Total++
	switch result.Action {
	case collection.UpsertActionCreated:
		b.counters.New++
	default:
		b.counters.Updated++
	}
	return true
}

func (b *BaseCollector) recordItemFailure(stage collection.Stage, itemRef string, err error) {
	b.counters.Total++
	b.counters.Failed++
	b.errors.Add(stage, itemRef, err.Error())
	b.logger.Warn("Catalog item failed",
		zap.String("stage", string(stage)),
		zap.String("item", itemRef),
		zap.Error(err),
	)
}

// recordBatchFailure counts an estimated number of items as failed for a
// page that could not be fetched or decoded.
func (b *BaseCollector) recordBatchFailure(stage collection.Stage, ref string, estimated int, err error) {
	b.counters.Total += estimated
	b.counters.Failed += estimated
	b.errors.Add(stage, ref, err.Error())
	b.logger.Warn("Catalog page failed",
		zap.String("stage", string(stage)),
		zap.String("page", ref),
		zap.Int("estimated_items", estimated),
		zap.Error(err),
	)
}

// recordWarning keeps an error on the run without failing any item.
func (b *BaseCollector) recordWarning(stage collection.Stage, ref string, err error) {
	b.errors.Add(stage, ref, err.Error())
	b.logger.Warn("Collection warning",
		zap.String("stage", string(stage)),
		zap.String("ref", ref),
		zap.Error(err),
	)
}

// result builds the run's Result. A run succeeds when no item failed.
func (b *BaseCollector) result() *collection.Result {
	return &collection.Result{
		Success:         b.counters.Failed == 0,
		TotalProducts:   b.counters.Total,
		NewProducts:     b.counters.New,
		UpdatedProducts: b.counters.Updated,
		FailedProducts:  b.counters.Failed,
		Errors:          b.errors.Errors(),
		DroppedErrors:   b.errors.Dropped(),
	}
}

// aborted builds the partial Result of a run that stopped early.
func (b *BaseCollector) aborted() *collection.Result {
	r := b.result()
	r.Success = false
	return r
}
