package catalog

import (
	"context"

	"github.com/erp/backoffice/internal/domain/catalog"
	"github.com/erp/backoffice/internal/domain/collection"
)

// Metrics receives reconciliation outcomes.
type Metrics interface {
	RecordUpsert(ctx context.Context, action collection.UpsertAction)
	RecordStockAlert(ctx context.Context, alertType catalog.AlertType)
}

type noopMetrics struct{}

func (noopMetrics) RecordUpsert(context.Context, collection.UpsertAction)  {}
func (noopMetrics) RecordStockAlert(context.Context, catalog.AlertType) {}
