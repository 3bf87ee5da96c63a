package collection

import (
	"context"

	"github.com/google/uuid"

	"github.com/erp/backoffice/internal/domain/catalog"
	"github.com/erp/backoffice/internal/domain/partner"
)

// Result is what a collector reports at the end of a run.
type Result struct {
	Success         bool              `json:"success"`
	TotalProducts   int               `json:"total_products"`
	NewProducts     int               `json:"new_products"`
	UpdatedProducts int               `json:"updated_products"`
	FailedProducts  int               `json:"failed_products"`
	Errors          []CollectionError `json:"errors,omitempty"`
	DroppedErrors   int               `json:"dropped_errors,omitempty"`
}

// Counters projects the result onto job counters.
func (r Result) Counters() Counters {
	return Counters{
		Total:   r.TotalProducts,
		New:     r.NewProducts,
		Updated: r.UpdatedProducts,
		Failed:  r.FailedProducts,
	}
}

// Collector fetches one supplier's catalog for a window and persists every
// item through a ProductSink. Per-item and per-page failures are counted in
// the Result; a returned error aborts the whole run.
type Collector interface {
	Collect(ctx context.Context, window Window) (*Result, error)
}

// UpsertAction tells whether reconciliation created or updated a product.
type UpsertAction string

const (
	UpsertActionCreated UpsertAction = "created"
	UpsertActionUpdated UpsertAction = "updated"
)

// UpsertResult is the outcome of reconciling one item.
type UpsertResult struct {
	Action    UpsertAction `json:"action"`
	ProductID uuid.UUID    `json:"product_id"`
}

// ProductSink is the single persistence entry point collectors write
// through.
type ProductSink interface {
	UpsertProduct(ctx context.Context, snapshot catalog.Snapshot) (*UpsertResult, error)
}

// CollectorParams carries everything a collector factory needs to build a
// collector for one job.
type CollectorParams struct {
	JobID    uuid.UUID
	Supplier *partner.Supplier
	Sink     ProductSink
}

// CollectorFactory builds a collector for one job.
type CollectorFactory func(params CollectorParams) (Collector, error)
