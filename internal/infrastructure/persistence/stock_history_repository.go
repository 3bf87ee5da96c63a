package persistence

import (
	"context"
	"errors"

	"github.com/erp/backoffice/internal/domain/catalog"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormStockTransitionRepository implements catalog.StockTransitionRepository
type GormStockTransitionRepository struct {
	db *gorm.DB
}

// NewGormStockTransitionRepository creates a new GormStockTransitionRepository
func NewGormStockTransitionRepository(db *gorm.DB) *GormStockTransitionRepository {
	return &GormStockTransitionRepository{db: db}
}

// Append inserts a transition row
func (r *GormStockTransitionRepository) Append(ctx context.Context, transition *catalog.StockTransition) error {
	return r.db.WithContext(ctx).Create(models.StockTransitionModelFromDomain(transition)).Error
}

// ListByProduct returns a page of transitions for a product, newest first by default
func (r *GormStockTransitionRepository) ListByProduct(ctx context.Context, productID uuid.UUID, filter shared.Filter) ([]catalog.StockTransition, int64, error) {
	filter = filter.Normalize()
	query := r.db.WithContext(ctx).
		Model(&models.StockTransitionModel{}).
		Where("product_id = ?", productID).
		Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.StockTransitionModel
	if err := query.
		Order(orderClause(filter.OrderBy, filter.OrderDir, StockTransitionSortFields, "occurred_at")).
		Offset(filter.Offset()).
		Limit(filter.PageSize).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	transitions := make([]catalog.StockTransition, len(rows))
	for i := range rows {
		transitions[i] = *rows[i].ToDomain()
	}
	return transitions, total, nil
}

// GormStockAlertRepository implements catalog.StockAlertRepository
type GormStockAlertRepository struct {
	db *gorm.DB
}

// NewGormStockAlertRepository creates a new GormStockAlertRepository
func NewGormStockAlertRepository(db *gorm.DB) *GormStockAlertRepository {
	return &GormStockAlertRepository{db: db}
}

// Append inserts an alert row
func (r *GormStockAlertRepository) Append(ctx context.Context, alert *catalog.StockAlert) error {
	return r.db.WithContext(ctx).Create(models.StockAlertModelFromDomain(alert)).Error
}

// FindByID finds an alert by its ID
func (r *GormStockAlertRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.StockAlert, error) {
	var model models.StockAlertModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// List returns a page of alerts matching the filter
func (r *GormStockAlertRepository) List(ctx context.Context, filter catalog.AlertFilter) ([]catalog.StockAlert, int64, error) {
	page := filter.Filter.Normalize()
	query := r.db.WithContext(ctx).Model(&models.StockAlertModel{})

	if filter.SupplierID != nil {
		query = query.Where("product_id IN (?)",
			r.db.Model(&models.ProductModel{}).Select("id").Where("supplier_id = ?", *filter.SupplierID))
	}
	if filter.UnreadOnly {
		query = query.Where("is_read = ?", false)
	}
	if filter.AlertType != "" {
		query = query.Where("alert_type = ?", string(filter.AlertType))
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.StockAlertModel
	if err := query.
		Order(orderClause(page.OrderBy, page.OrderDir, StockAlertSortFields, "created_at")).
		Offset(page.Offset()).
		Limit(page.PageSize).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	alerts := make([]catalog.StockAlert, len(rows))
	for i := range rows {
		alerts[i] = *rows[i].ToDomain()
	}
	return alerts, total, nil
}

// MarkRead flags an alert as read
func (r *GormStockAlertRepository) MarkRead(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Model(&models.StockAlertModel{}).
		Where("id = ?", id).
		Update("is_read", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var (
	_ catalog.StockTransitionRepository = (*GormStockTransitionRepository)(nil)
	_ catalog.StockAlertRepository      = (*GormStockAlertRepository)(nil)
)
