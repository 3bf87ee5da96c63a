package models

import (
	"time"

	"github.com/erp/backoffice/internal/domain/catalog"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductModel is the persistence model for a collected supplier product.
// (supplier_id, natural_key) is unique.
type ProductModel struct {
	BaseModel
	SupplierID    uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_products_supplier_natural_key,priority:1"`
	NaturalKey    string          `gorm:"type:varchar(191);not null;uniqueIndex:idx_products_supplier_natural_key,priority:2"`
	Name          string          `gorm:"type:varchar(500);not null"`
	Price         decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Status        string          `gorm:"type:varchar(20);not null"`
	StockStatus   string          `gorm:"type:varchar(20);not null;index"`
	StockQuantity int             `gorm:"not null;default:0"`
	Metadata      map[string]any  `gorm:"type:jsonb;serializer:json"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// ToDomain converts the persistence model to a domain Product.
func (m *ProductModel) ToDomain() *catalog.Product {
	return &catalog.Product{
		BaseEntity:    m.BaseModel.ToDomain(),
		SupplierID:    m.SupplierID,
		NaturalKey:    m.NaturalKey,
		Name:          m.Name,
		Price:         m.Price,
		Status:        catalog.ProductStatus(m.Status),
		StockStatus:   catalog.StockStatus(m.StockStatus),
		StockQuantity: m.StockQuantity,
		Metadata:      m.Metadata,
	}
}

// FromDomain populates the persistence model from a domain Product.
func (m *ProductModel) FromDomain(p *catalog.Product) {
	m.FromDomainBaseEntity(p.BaseEntity)
	m.SupplierID = p.SupplierID
	m.NaturalKey = p.NaturalKey
	m.Name = p.Name
	m.Price = p.Price
	m.Status = string(p.Status)
	m.StockStatus = string(p.StockStatus)
	m.StockQuantity = p.StockQuantity
	m.Metadata = p.Metadata
}

// ProductModelFromDomain creates a persistence model from a domain Product.
func ProductModelFromDomain(p *catalog.Product) *ProductModel {
	m := &ProductModel{}
	m.FromDomain(p)
	return m
}

// StockTransitionModel is one row of the append-only stock audit trail.
type StockTransitionModel struct {
	ID               uuid.UUID `gorm:"type:uuid;primary_key"`
	ProductID        uuid.UUID `gorm:"type:uuid;not null;index:idx_stock_transitions_product,priority:1"`
	PreviousStatus   string    `gorm:"type:varchar(20);not null"`
	NewStatus        string    `gorm:"type:varchar(20);not null"`
	PreviousQuantity int       `gorm:"not null"`
	NewQuantity      int       `gorm:"not null"`
	Reason           string    `gorm:"type:varchar(50);not null"`
	OccurredAt       time.Time `gorm:"not null;index:idx_stock_transitions_product,priority:2"`
}

// TableName returns the table name for GORM
func (StockTransitionModel) TableName() string {
	return "stock_transitions"
}

// ToDomain converts the persistence model to a domain StockTransition.
func (m *StockTransitionModel) ToDomain() *catalog.StockTransition {
	return &catalog.StockTransition{
		ID:               m.ID,
		ProductID:        m.ProductID,
		PreviousStatus:   catalog.StockStatus(m.PreviousStatus),
		NewStatus:        catalog.StockStatus(m.NewStatus),
		PreviousQuantity: m.PreviousQuantity,
		NewQuantity:      m.NewQuantity,
		Reason:           m.Reason,
		OccurredAt:       m.OccurredAt,
	}
}

// StockTransitionModelFromDomain creates a persistence model from a domain StockTransition.
func StockTransitionModelFromDomain(t *catalog.StockTransition) *StockTransitionModel {
	return &StockTransitionModel{
		ID:               t.ID,
		ProductID:        t.ProductID,
		PreviousStatus:   string(t.PreviousStatus),
		NewStatus:        string(t.NewStatus),
		PreviousQuantity: t.PreviousQuantity,
		NewQuantity:      t.NewQuantity,
		Reason:           t.Reason,
		OccurredAt:       t.OccurredAt.UTC(),
	}
}

// StockAlertModel is a stock notification row.
type StockAlertModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	ProductID uuid.UUID `gorm:"type:uuid;not null;index"`
	AlertType string    `gorm:"type:varchar(20);not null"`
	Message   string    `gorm:"type:text;not null"`
	IsRead    bool      `gorm:"not null;default:false;index"`
	CreatedAt time.Time `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (StockAlertModel) TableName() string {
	return "stock_alerts"
}

// ToDomain converts the persistence model to a domain StockAlert.
func (m *StockAlertModel) ToDomain() *catalog.StockAlert {
	return &catalog.StockAlert{
		ID:        m.ID,
		ProductID: m.ProductID,
		AlertType: catalog.AlertType(m.AlertType),
		Message:   m.Message,
		IsRead:    m.IsRead,
		CreatedAt: m.CreatedAt,
	}
}

// StockAlertModelFromDomain creates a persistence model from a domain StockAlert.
func StockAlertModelFromDomain(a *catalog.StockAlert) *StockAlertModel {
	return &StockAlertModel{
		ID:        a.ID,
		ProductID: a.ProductID,
		AlertType: string(a.AlertType),
		Message:   a.Message,
		IsRead:    a.IsRead,
		CreatedAt: a.CreatedAt.UTC(),
	}
}
