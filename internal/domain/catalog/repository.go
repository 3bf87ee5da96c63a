package catalog

import (
	"context"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/google/uuid"
)

// ProductRepository defines the interface for product persistence
type ProductRepository interface {
	// FindByID returns shared.ErrNotFound when the product does not exist
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)

	// FindByNaturalKeyForUpdate locks and returns the product for a natural
	// key, or (nil, nil) when none exists
	FindByNaturalKeyForUpdate(ctx context.Context, supplierID uuid.UUID, naturalKey string) (*Product, error)

	// Create inserts a new product. Returns ErrDuplicateNaturalKey when the
	// (supplier, natural key) pair already exists
	Create(ctx context.Context, product *Product) error

	// Update persists the mutable fields of an existing product
	Update(ctx context.Context, product *Product) error

	// CountBySupplier counts products of one supplier
	CountBySupplier(ctx context.Context, supplierID uuid.UUID) (int64, error)
}

// StockTransitionRepository stores the append-only stock audit trail.
type StockTransitionRepository interface {
	Append(ctx context.Context, transition *StockTransition) error
	ListByProduct(ctx context.Context, productID uuid.UUID, filter shared.Filter) ([]StockTransition, int64, error)
}

// AlertFilter narrows stock alert queries.
type AlertFilter struct {
	shared.Filter
	SupplierID *uuid.UUID
	UnreadOnly bool
	AlertType  AlertType
}

// StockAlertRepository stores stock notifications.
type StockAlertRepository interface {
	Append(ctx context.Context, alert *StockAlert) error
	FindByID(ctx context.Context, id uuid.UUID) (*StockAlert, error)
	List(ctx context.Context, filter AlertFilter) ([]StockAlert, int64, error)
	MarkRead(ctx context.Context, id uuid.UUID) error
}
