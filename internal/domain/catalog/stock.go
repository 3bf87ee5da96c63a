package catalog

import "github.com/erp/backoffice/internal/domain/shared"

// StockStatus is the coarse stock state derived from a quantity.
type StockStatus string

const (
	StockStatusInStock    StockStatus = "in_stock"
	StockStatusLowStock   StockStatus = "low_stock"
	StockStatusOutOfStock StockStatus = "out_of_stock"
)

// IsValid reports whether s is a known stock status.
func (s StockStatus) IsValid() bool {
	switch s {
	case StockStatusInStock, StockStatusLowStock, StockStatusOutOfStock:
		return true
	}
	return false
}

// DefaultLowStockThreshold is the quantity below which stock counts as low.
const DefaultLowStockThreshold = 10

// StockPolicy classifies quantities into stock states.
type StockPolicy struct {
	LowStockThreshold int
}

// DefaultStockPolicy returns the policy with the default low-stock threshold.
func DefaultStockPolicy() StockPolicy {
	return StockPolicy{LowStockThreshold: DefaultLowStockThreshold}
}

// NewStockPolicy validates and builds a policy.
func NewStockPolicy(lowStockThreshold int) (StockPolicy, error) {
	if lowStockThreshold < 1 {
		return StockPolicy{}, shared.NewDomainError("INVALID_THRESHOLD", "Low stock threshold must be at least 1")
	}
	return StockPolicy{LowStockThreshold: lowStockThreshold}, nil
}

// Classify maps a quantity to a stock status. Negative quantities are
// treated as zero.
func (p StockPolicy) Classify(quantity int) StockStatus {
	threshold := p.LowStockThreshold
	if threshold < 1 {
		threshold = DefaultLowStockThreshold
	}
	switch {
	case quantity <= 0:
		return StockStatusOutOfStock
	case quantity < threshold:
		return StockStatusLowStock
	default:
		return StockStatusInStock
	}
}
