package persistence

import (
	"strings"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	if strings.ToUpper(strings.TrimSpace(orderDir)) == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist of allowed fields.
// Returns the defaultField if the input is invalid, empty, or not in the whitelist.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" || !allowedFields[trimmed] {
		return defaultField
	}
	return trimmed
}

// SupplierSortFields contains allowed sort fields for suppliers
var SupplierSortFields = map[string]bool{
	"code":       true,
	"name":       true,
	"status":     true,
	"created_at": true,
	"updated_at": true,
}

// CollectionJobSortFields contains allowed sort fields for collection jobs
var CollectionJobSortFields = map[string]bool{
	"created_at":       true,
	"started_at":       true,
	"completed_at":     true,
	"status":           true,
	"total_products":   true,
	"failed_products":  true,
	"updated_products": true,
}

// StockAlertSortFields contains allowed sort fields for stock alerts
var StockAlertSortFields = map[string]bool{
	"created_at": true,
	"alert_type": true,
}

// StockTransitionSortFields contains allowed sort fields for stock transitions
var StockTransitionSortFields = map[string]bool{
	"occurred_at":  true,
	"new_status":   true,
	"new_quantity": true,
}
