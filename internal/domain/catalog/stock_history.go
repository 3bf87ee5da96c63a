package catalog

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TransitionReasonSync marks transitions caused by a supplier collection.
const TransitionReasonSync = "sync"

// StockTransition is an append-only audit row for a stock status change.
type StockTransition struct {
	ID               uuid.UUID
	ProductID        uuid.UUID
	PreviousStatus   StockStatus
	NewStatus        StockStatus
	PreviousQuantity int
	NewQuantity      int
	Reason           string
	OccurredAt       time.Time
}

// AlertType classifies stock alerts
type AlertType string

const (
	AlertTypeOutOfStock  AlertType = "out_of_stock"
	AlertTypeLowStock    AlertType = "low_stock"
	AlertTypeBackInStock AlertType = "back_in_stock"
)

// StockAlert is an append-only notification row.
type StockAlert struct {
	ID        uuid.UUID
	ProductID uuid.UUID
	AlertType AlertType
	Message   string
	IsRead    bool
	CreatedAt time.Time
}

// MarkRead flags the alert as seen.
func (a *StockAlert) MarkRead() {
	a.IsRead = true
}

func newAlert(p *Product, alertType AlertType, message string, now time.Time) *StockAlert {
	return &StockAlert{
		ID:        uuid.New(),
		ProductID: p.ID,
		AlertType: alertType,
		Message:   message,
		CreatedAt: now,
	}
}

// AlertForNewProduct returns the alert owed for a product that arrives
// already out of stock or low on stock, or nil.
func AlertForNewProduct(p *Product, now time.Time) *StockAlert {
	switch p.StockStatus {
	case StockStatusOutOfStock:
		return newAlert(p, AlertTypeOutOfStock,
			fmt.Sprintf("New product %q was registered already out of stock", p.Name), now)
	case StockStatusLowStock:
		return newAlert(p, AlertTypeLowStock,
			fmt.Sprintf("New product %q was registered with low stock: %d remaining", p.Name, p.StockQuantity), now)
	}
	return nil
}

// AlertForTransition returns the alert owed for a stock transition, or nil.
// Recovering from low stock to in stock is silent; only a recovery from out
// of stock raises back-in-stock.
func AlertForTransition(p *Product, t *StockTransition, now time.Time) *StockAlert {
	if t == nil || t.PreviousStatus == t.NewStatus {
		return nil
	}
	switch {
	case t.NewStatus == StockStatusOutOfStock:
		return newAlert(p, AlertTypeOutOfStock,
			fmt.Sprintf("Product %q is out of stock", p.Name), now)
	case t.NewStatus == StockStatusLowStock:
		return newAlert(p, AlertTypeLowStock,
			fmt.Sprintf("Product %q is low on stock: %d remaining", p.Name, t.NewQuantity), now)
	case t.PreviousStatus == StockStatusOutOfStock && t.NewStatus == StockStatusInStock:
		return newAlert(p, AlertTypeBackInStock,
			fmt.Sprintf("Product %q is back in stock: %d available", p.Name, t.NewQuantity), now)
	}
	return nil
}
