package catalog

import (
	"context"

	"github.com/erp/backoffice/internal/domain/catalog"
)

// TransactionScope runs reconciliation of one item atomically.
type TransactionScope interface {
	// Execute runs fn inside a database transaction. Returning an error
	// rolls the transaction back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories exposes the catalog repositories bound to the
// current transaction.
type TransactionalRepositories interface {
	Products() catalog.ProductRepository
	Transitions() catalog.StockTransitionRepository
	Alerts() catalog.StockAlertRepository
}
