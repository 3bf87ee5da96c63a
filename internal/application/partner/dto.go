package partner

import (
	"time"

	"github.com/erp/backoffice/internal/domain/partner"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/google/uuid"
)

// CreateSupplierRequest represents a request to register a supplier integration
type CreateSupplierRequest struct {
	Code            string `json:"code" binding:"required,min=1,max=50"`
	Name            string `json:"name" binding:"required,min=1,max=200"`
	IntegrationType string `json:"integration_type" binding:"required,oneof=graphql rest crawling"`
	Endpoint        string `json:"endpoint" binding:"required,url,max=500"`
	APIKey          string `json:"api_key" binding:"max=500"`
	AccessToken     string `json:"access_token" binding:"max=2000"`
	WindowDays      int    `json:"window_days" binding:"min=0,max=3650"`
	WindowMonths    int    `json:"window_months" binding:"min=0,max=120"`
	ScheduleEnabled bool   `json:"schedule_enabled"`
}

// Integration builds the domain integration config
func (r CreateSupplierRequest) Integration() partner.Integration {
	return partner.Integration{
		Type:     partner.IntegrationType(r.IntegrationType),
		Endpoint: r.Endpoint,
		Credentials: partner.Credentials{
			APIKey:      r.APIKey,
			AccessToken: r.AccessToken,
		},
		WindowDefaults: partner.WindowDefaults{
			Days:   r.WindowDays,
			Months: r.WindowMonths,
		},
		ScheduleEnabled: r.ScheduleEnabled,
	}
}

// UpdateSupplierRequest represents a partial supplier update. Nil fields keep
// their current value; an empty credential string clears it.
type UpdateSupplierRequest struct {
	Name            *string `json:"name" binding:"omitempty,min=1,max=200"`
	IntegrationType *string `json:"integration_type" binding:"omitempty,oneof=graphql rest crawling"`
	Endpoint        *string `json:"endpoint" binding:"omitempty,url,max=500"`
	APIKey          *string `json:"api_key" binding:"omitempty,max=500"`
	AccessToken     *string `json:"access_token" binding:"omitempty,max=2000"`
	WindowDays      *int    `json:"window_days" binding:"omitempty,min=0,max=3650"`
	WindowMonths    *int    `json:"window_months" binding:"omitempty,min=0,max=120"`
	ScheduleEnabled *bool   `json:"schedule_enabled"`
}

// touchesIntegration reports whether any integration field is set
func (r UpdateSupplierRequest) touchesIntegration() bool {
	return r.IntegrationType != nil || r.Endpoint != nil || r.APIKey != nil || r.AccessToken != nil ||
		r.WindowDays != nil || r.WindowMonths != nil || r.ScheduleEnabled != nil
}

// apply merges the set fields over current
func (r UpdateSupplierRequest) apply(current partner.Integration) partner.Integration {
	next := current
	if r.IntegrationType != nil {
		next.Type = partner.IntegrationType(*r.IntegrationType)
	}
	if r.Endpoint != nil {
		next.Endpoint = *r.Endpoint
	}
	if r.APIKey != nil {
		next.Credentials.APIKey = *r.APIKey
	}
	if r.AccessToken != nil {
		next.Credentials.AccessToken = *r.AccessToken
	}
	if r.WindowDays != nil {
		next.WindowDefaults.Days = *r.WindowDays
	}
	if r.WindowMonths != nil {
		next.WindowDefaults.Months = *r.WindowMonths
	}
	if r.ScheduleEnabled != nil {
		next.ScheduleEnabled = *r.ScheduleEnabled
	}
	return next
}

// SupplierListFilter represents filter options for supplier list
type SupplierListFilter struct {
	Search          string `form:"search" binding:"max=100"`
	Status          string `form:"status" binding:"omitempty,oneof=active inactive"`
	IntegrationType string `form:"integration_type" binding:"omitempty,oneof=graphql rest crawling"`
	Page            int    `form:"page" binding:"omitempty,min=1"`
	PageSize        int    `form:"page_size" binding:"omitempty,min=1,max=200"`
	OrderBy         string `form:"order_by"`
	OrderDir        string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// toDomain builds the repository filter. An empty OrderBy lets the repository
// list by code.
func (f SupplierListFilter) toDomain() partner.SupplierFilter {
	filter := partner.SupplierFilter{
		Filter: shared.Filter{
			Page:     f.Page,
			PageSize: f.PageSize,
			OrderBy:  f.OrderBy,
			OrderDir: f.OrderDir,
		}.Normalize(),
		Status:          partner.SupplierStatus(f.Status),
		IntegrationType: partner.IntegrationType(f.IntegrationType),
		Search:          f.Search,
	}
	return filter
}

// SupplierResponse represents a supplier in API responses. Credentials are
// never echoed back, only whether they are set.
type SupplierResponse struct {
	ID              uuid.UUID `json:"id"`
	Code            string    `json:"code"`
	Name            string    `json:"name"`
	Status          string    `json:"status"`
	IntegrationType string    `json:"integration_type"`
	Endpoint        string    `json:"endpoint"`
	HasAPIKey       bool      `json:"has_api_key"`
	HasAccessToken  bool      `json:"has_access_token"`
	WindowDays      int       `json:"window_days"`
	WindowMonths    int       `json:"window_months"`
	ScheduleEnabled bool      `json:"schedule_enabled"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// ToSupplierResponse converts a domain Supplier to SupplierResponse
func ToSupplierResponse(s *partner.Supplier) SupplierResponse {
	return SupplierResponse{
		ID:              s.ID,
		Code:            s.Code,
		Name:            s.Name,
		Status:          string(s.Status),
		IntegrationType: string(s.Integration.Type),
		Endpoint:        s.Integration.Endpoint,
		HasAPIKey:       s.Integration.Credentials.APIKey != "",
		HasAccessToken:  s.Integration.Credentials.AccessToken != "",
		WindowDays:      s.Integration.WindowDefaults.Days,
		WindowMonths:    s.Integration.WindowDefaults.Months,
		ScheduleEnabled: s.Integration.ScheduleEnabled,
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}
}

// ToSupplierResponses converts a slice of suppliers
func ToSupplierResponses(suppliers []partner.Supplier) []SupplierResponse {
	responses := make([]SupplierResponse, len(suppliers))
	for i := range suppliers {
		responses[i] = ToSupplierResponse(&suppliers[i])
	}
	return responses
}
