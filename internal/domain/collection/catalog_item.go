package collection

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"

	"github.com/erp/backoffice/internal/domain/catalog"
)

// CatalogItem is the normalized shape every collector emits for one remote
// record.
type CatalogItem struct {
	NaturalKey    string
	DisplayName   string
	Price         decimal.Decimal
	RawStatus     string
	StockQuantity int
	StockStatus   catalog.StockStatus
	CategoryRef   string
	OptionsRef    string
	SourcePayload json.RawMessage
}

// NormalizeText folds full-width characters and applies NFC composition so
// the same name from different sources compares equal.
func NormalizeText(s string) string {
	s = width.Fold.String(s)
	s = norm.NFC.String(s)
	return strings.Join(strings.Fields(s), " ")
}

// Normalize cleans identifying text fields in place.
func (i *CatalogItem) Normalize() {
	i.NaturalKey = strings.TrimSpace(width.Fold.String(i.NaturalKey))
	i.DisplayName = NormalizeText(i.DisplayName)
}

// Classify derives StockStatus from StockQuantity when the collector left it
// unset.
func (i *CatalogItem) Classify(policy catalog.StockPolicy) {
	if i.StockStatus == "" {
		i.StockStatus = policy.Classify(i.StockQuantity)
	}
}

// ToSnapshot builds the reconciliation input for a supplier.
func (i CatalogItem) ToSnapshot(supplierID uuid.UUID) catalog.Snapshot {
	metadata := map[string]any{}
	if i.CategoryRef != "" {
		metadata["category_ref"] = i.CategoryRef
	}
	if i.OptionsRef != "" {
		metadata["options_ref"] = i.OptionsRef
	}
	if i.RawStatus != "" {
		metadata["raw_status"] = i.RawStatus
	}
	if len(i.SourcePayload) > 0 && json.Valid(i.SourcePayload) {
		metadata["source"] = i.SourcePayload
	}

	return catalog.Snapshot{
		SupplierID:    supplierID,
		NaturalKey:    i.NaturalKey,
		Name:          i.DisplayName,
		Price:         i.Price,
		Status:        catalog.ParseProductStatus(i.RawStatus),
		StockStatus:   i.StockStatus,
		StockQuantity: i.StockQuantity,
		Metadata:      metadata,
	}
}
