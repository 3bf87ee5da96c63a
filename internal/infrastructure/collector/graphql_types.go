package collector

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/erp/backoffice/internal/domain/catalog"
	"github.com/erp/backoffice/internal/domain/collection"
)

// productsQuery pages through a supplier catalog filtered by update time.
const productsQuery = `query Products($page: Int!, $pageSize: Int!, $updatedFrom: DateTime, $updatedTo: DateTime) {
  products(page: $page, pageSize: $pageSize, updatedFrom: $updatedFrom, updatedTo: $updatedTo) {
    items {
      id
      sku
      name
      price
      status
      stockQuantity
      stockStatus
      categoryId
      optionsId
    }
    pageInfo {
      page
      pageSize
      totalPages
      hasNextPage
    }
  }
}`

// graphQLRequest is the POST body sent to the supplier endpoint
type graphQLRequest struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables"`
}

// graphQLResponse is the envelope of a products query response
type graphQLResponse struct {
	Data struct {
		Products *productPage `json:"products"`
	} `json:"data"`
	Errors []graphQLError `json:"errors,omitempty"`
}

// graphQLError is one entry of the GraphQL errors array
type graphQLError struct {
	Message    string `json:"message"`
	Extensions struct {
		Code string `json:"code"`
	} `json:"extensions"`
}

// productPage is one page of the products connection. Items stay raw so a
// single malformed item fails alone and its payload is kept for audit.
type productPage struct {
	Items    []json.RawMessage `json:"items"`
	PageInfo pageInfo          `json:"pageInfo"`
}

// pageInfo is the server-reported pagination metadata
type pageInfo struct {
	Page        int   `json:"page"`
	PageSize    int   `json:"pageSize"`
	TotalPages  int   `json:"totalPages"`
	HasNextPage *bool `json:"hasNextPage"`
}

// hasMore decides whether another page should be requested. The explicit
// flag wins, then the page count, then a full page as a hint.
func (p pageInfo) hasMore(page, itemCount, pageSize int) bool {
	if p.HasNextPage != nil {
		return *p.HasNextPage
	}
	if p.TotalPages > 0 {
		return page < p.TotalPages
	}
	return itemCount >= pageSize
}

// remoteProduct is a supplier catalog record
type remoteProduct struct {
	ID            string          `json:"id"`
	SKU           string          `json:"sku"`
	Name          string          `json:"name"`
	Price         decimal.Decimal `json:"price"`
	Status        string          `json:"status"`
	StockQuantity *int            `json:"stockQuantity"`
	StockStatus   string          `json:"stockStatus"`
	CategoryID    string          `json:"categoryId"`
	OptionsID     string          `json:"optionsId"`
}

// naturalKey prefers the SKU and falls back to the remote ID
func (p remoteProduct) naturalKey() string {
	if strings.TrimSpace(p.SKU) != "" {
		return p.SKU
	}
	return p.ID
}

// toCatalogItem converts a remote record to the collector output shape.
// Stock is classified from the quantity; the remote stock label is only
// used when the supplier omits the quantity.
func (p remoteProduct) toCatalogItem(raw json.RawMessage) collection.CatalogItem {
	item := collection.CatalogItem{
		NaturalKey:    p.naturalKey(),
		DisplayName:   p.Name,
		Price:         p.Price,
		RawStatus:     p.Status,
		CategoryRef:   p.CategoryID,
		OptionsRef:    p.OptionsID,
		SourcePayload: raw,
	}
	if p.StockQuantity != nil {
		item.StockQuantity = max(*p.StockQuantity, 0)
	} else {
		item.StockStatus = mapRemoteStockStatus(p.StockStatus)
	}
	return item
}

// mapRemoteStockStatus maps supplier stock labels to stock states. Unknown
// labels return "" so the quantity-based policy applies.
func mapRemoteStockStatus(status string) catalog.StockStatus {
	switch strings.ToUpper(strings.TrimSpace(status)) {
	case "IN_STOCK", "INSTOCK", "AVAILABLE":
		return catalog.StockStatusInStock
	case "LOW_STOCK", "LOWSTOCK", "LIMITED":
		return catalog.StockStatusLowStock
	case "OUT_OF_STOCK", "OUTOFSTOCK", "SOLD_OUT", "SOLDOUT":
		return catalog.StockStatusOutOfStock
	default:
		return ""
	}
}
