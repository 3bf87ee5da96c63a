package catalog

import (
	"context"

	"github.com/google/uuid"

	"github.com/erp/backoffice/internal/domain/catalog"
	"github.com/erp/backoffice/internal/domain/shared"
)

// StockQueryService serves the read side of stock history and alerts.
type StockQueryService struct {
	products    catalog.ProductRepository
	transitions catalog.StockTransitionRepository
	alerts      catalog.StockAlertRepository
}

// NewStockQueryService creates a new StockQueryService
func NewStockQueryService(
	products catalog.ProductRepository,
	transitions catalog.StockTransitionRepository,
	alerts catalog.StockAlertRepository,
) *StockQueryService {
	return &StockQueryService{
		products:    products,
		transitions: transitions,
		alerts:      alerts,
	}
}

// CountProducts returns how many products a supplier's catalog holds.
func (s *StockQueryService) CountProducts(ctx context.Context, supplierID uuid.UUID) (int64, error) {
	return s.products.CountBySupplier(ctx, supplierID)
}

// ListTransitions returns the stock audit trail of one product.
func (s *StockQueryService) ListTransitions(ctx context.Context, productID uuid.UUID, filter shared.Filter) (shared.Paginated[catalog.StockTransition], error) {
	filter = filter.Normalize()
	if _, err := s.products.FindByID(ctx, productID); err != nil {
		return shared.Paginated[catalog.StockTransition]{}, err
	}
	items, total, err := s.transitions.ListByProduct(ctx, productID, filter)
	if err != nil {
		return shared.Paginated[catalog.StockTransition]{}, err
	}
	return shared.NewPaginated(items, total, filter.Page, filter.PageSize), nil
}

// ListAlerts returns stock alerts matching the filter.
func (s *StockQueryService) ListAlerts(ctx context.Context, filter catalog.AlertFilter) (shared.Paginated[catalog.StockAlert], error) {
	filter.Filter = filter.Filter.Normalize()
	items, total, err := s.alerts.List(ctx, filter)
	if err != nil {
		return shared.Paginated[catalog.StockAlert]{}, err
	}
	return shared.NewPaginated(items, total, filter.Page, filter.PageSize), nil
}

// MarkAlertRead flags one alert as read.
func (s *StockQueryService) MarkAlertRead(ctx context.Context, id uuid.UUID) (*catalog.StockAlert, error) {
	alert, err := s.alerts.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if alert.IsRead {
		return alert, nil
	}
	if err := s.alerts.MarkRead(ctx, id); err != nil {
		return nil, err
	}
	alert.MarkRead()
	return alert, nil
}
