package catalog

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erp/backoffice/internal/domain/shared"
)

func newSnapshot(key string, qty int) Snapshot {
	return Snapshot{
		SupplierID:    uuid.MustParse("5b0c2f8e-8c2b-4d7e-9a51-3f4c1a2b9d10"),
		NaturalKey:    key,
		Name:          "Widget " + key,
		Price:         decimal.NewFromFloat(12.5),
		Status:        ProductStatusActive,
		StockStatus:   DefaultStockPolicy().Classify(qty),
		StockQuantity: qty,
		Metadata:      map[string]any{"category": "tools"},
	}
}

func TestParseProductStatus(t *testing.T) {
	assert.Equal(t, ProductStatusActive, ParseProductStatus("ON_SALE"))
	assert.Equal(t, ProductStatusActive, ParseProductStatus(""))
	assert.Equal(t, ProductStatusInactive, ParseProductStatus(" Hidden "))
	assert.Equal(t, ProductStatusInactive, ParseProductStatus("discontinued"))
}

func TestSnapshot_Validate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(s *Snapshot)
		wantCode string
	}{
		{"missing supplier", func(s *Snapshot) { s.SupplierID = uuid.Nil }, "INVALID_SUPPLIER"},
		{"blank key", func(s *Snapshot) { s.NaturalKey = " " }, "INVALID_NATURAL_KEY"},
		{"blank name", func(s *Snapshot) { s.Name = "" }, "INVALID_NAME"},
		{"negative price", func(s *Snapshot) { s.Price = decimal.NewFromInt(-1) }, "INVALID_PRICE"},
		{"negative quantity", func(s *Snapshot) { s.StockQuantity = -1 }, "INVALID_STOCK_QUANTITY"},
		{"bad stock status", func(s *Snapshot) { s.StockStatus = "plenty" }, "INVALID_STOCK_STATUS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSnapshot("A", 5)
			tt.mutate(&s)
			err := s.Validate()
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, shared.CodeOf(err))
		})
	}
}

func TestNewProductFromSnapshot_DefaultsStockStatus(t *testing.T) {
	s := newSnapshot("A", 12)
	s.StockStatus = ""
	s.Metadata = nil

	p, err := NewProductFromSnapshot(s, time.Now())
	require.NoError(t, err)

	assert.Equal(t, StockStatusInStock, p.StockStatus)
	assert.Equal(t, 12, p.StockQuantity)
	assert.NotNil(t, p.Metadata)
	assert.NotEqual(t, uuid.Nil, p.ID)
}

func TestProduct_Apply_NoTransitionWhenStatusUnchanged(t *testing.T) {
	p, err := NewProductFromSnapshot(newSnapshot("A", 20), time.Now())
	require.NoError(t, err)

	next := newSnapshot("A", 30)
	next.Name = "Widget A v2"
	next.Price = decimal.NewFromInt(15)

	transition, err := p.Apply(next, time.Now())
	require.NoError(t, err)

	assert.Nil(t, transition)
	assert.Equal(t, "Widget A v2", p.Name)
	assert.True(t, decimal.NewFromInt(15).Equal(p.Price))
	assert.Equal(t, 30, p.StockQuantity)
}

func TestProduct_Apply_RecordsTransition(t *testing.T) {
	p, err := NewProductFromSnapshot(newSnapshot("A", 20), time.Now())
	require.NoError(t, err)

	now := time.Now()
	transition, err := p.Apply(newSnapshot("A", 0), now)
	require.NoError(t, err)
	require.NotNil(t, transition)

	assert.Equal(t, p.ID, transition.ProductID)
	assert.Equal(t, StockStatusInStock, transition.PreviousStatus)
	assert.Equal(t, StockStatusOutOfStock, transition.NewStatus)
	assert.Equal(t, 20, transition.PreviousQuantity)
	assert.Equal(t, 0, transition.NewQuantity)
	assert.Equal(t, TransitionReasonSync, transition.Reason)
	assert.Equal(t, now, transition.OccurredAt)
	assert.Equal(t, now, p.UpdatedAt)
}

func TestProduct_Apply_InvalidSnapshotLeavesProductUntouched(t *testing.T) {
	p, err := NewProductFromSnapshot(newSnapshot("A", 20), time.Now())
	require.NoError(t, err)

	bad := newSnapshot("A", 0)
	bad.Name = ""

	_, err = p.Apply(bad, time.Now())
	assert.Error(t, err)
	assert.Equal(t, "Widget A", p.Name)
	assert.Equal(t, StockStatusInStock, p.StockStatus)
}
