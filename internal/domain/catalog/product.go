package catalog

import (
	"strings"
	"time"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductStatus represents the sale status of a product
type ProductStatus string

const (
	ProductStatusActive   ProductStatus = "active"
	ProductStatusInactive ProductStatus = "inactive"
)

// ParseProductStatus maps a supplier's raw status string onto a product
// status. Anything that is not recognisably disabled counts as active.
func ParseProductStatus(raw string) ProductStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "inactive", "disabled", "hidden", "discontinued", "deleted", "false", "0", "off":
		return ProductStatusInactive
	default:
		return ProductStatusActive
	}
}

// Product is a supplier catalog entry identified by (SupplierID, NaturalKey).
type Product struct {
	shared.BaseEntity
	SupplierID    uuid.UUID
	NaturalKey    string
	Name          string
	Price         decimal.Decimal
	Status        ProductStatus
	StockStatus   StockStatus
	StockQuantity int
	Metadata      map[string]any
}

// Snapshot is the normalized state of a product as reported by a supplier.
// It is the single input accepted by product reconciliation.
type Snapshot struct {
	SupplierID    uuid.UUID
	NaturalKey    string
	Name          string
	Price         decimal.Decimal
	Status        ProductStatus
	StockStatus   StockStatus
	StockQuantity int
	Metadata      map[string]any
}

// Validate checks the snapshot can be persisted.
func (s Snapshot) Validate() error {
	if s.SupplierID == uuid.Nil {
		return shared.NewDomainError("INVALID_SUPPLIER", "Supplier ID is required")
	}
	if strings.TrimSpace(s.NaturalKey) == "" {
		return shared.NewDomainError("INVALID_NATURAL_KEY", "Natural key cannot be empty")
	}
	if len(s.NaturalKey) > 191 {
		return shared.NewDomainError("INVALID_NATURAL_KEY", "Natural key cannot exceed 191 characters")
	}
	if strings.TrimSpace(s.Name) == "" {
		return shared.NewDomainError("INVALID_NAME", "Product name cannot be empty")
	}
	if s.Price.IsNegative() {
		return shared.NewDomainError("INVALID_PRICE", "Price cannot be negative")
	}
	if s.StockQuantity < 0 {
		return shared.NewDomainError("INVALID_STOCK_QUANTITY", "Stock quantity cannot be negative")
	}
	if s.StockStatus != "" && !s.StockStatus.IsValid() {
		return shared.NewDomainError("INVALID_STOCK_STATUS", "Unknown stock status: "+string(s.StockStatus))
	}
	return nil
}

// NewProductFromSnapshot creates a product for a natural key seen for the
// first time. Stock status defaults to in stock when unspecified.
func NewProductFromSnapshot(s Snapshot, now time.Time) (*Product, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	p := &Product{
		BaseEntity: shared.NewBaseEntity(now),
		SupplierID: s.SupplierID,
		NaturalKey: s.NaturalKey,
	}
	p.overwrite(s)
	p.StockStatus = s.StockStatus
	if p.StockStatus == "" {
		p.StockStatus = StockStatusInStock
	}
	p.StockQuantity = s.StockQuantity
	return p, nil
}

// Apply overwrites the mutable fields from a newer snapshot and returns the
// stock transition it caused, or nil when the stock status is unchanged.
func (p *Product) Apply(s Snapshot, now time.Time) (*StockTransition, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	previousStatus := p.StockStatus
	previousQuantity := p.StockQuantity

	p.overwrite(s)
	p.StockQuantity = s.StockQuantity
	if s.StockStatus != "" {
		p.StockStatus = s.StockStatus
	}
	p.Touch(now)

	if previousStatus == p.StockStatus {
		return nil, nil
	}
	return &StockTransition{
		ID:               uuid.New(),
		ProductID:        p.ID,
		PreviousStatus:   previousStatus,
		NewStatus:        p.StockStatus,
		PreviousQuantity: previousQuantity,
		NewQuantity:      p.StockQuantity,
		Reason:           TransitionReasonSync,
		OccurredAt:       now,
	}, nil
}

func (p *Product) overwrite(s Snapshot) {
	p.Name = strings.TrimSpace(s.Name)
	p.Price = s.Price
	p.Status = s.Status
	if p.Status == "" {
		p.Status = ProductStatusActive
	}
	p.Metadata = s.Metadata
	if p.Metadata == nil {
		p.Metadata = map[string]any{}
	}
}
