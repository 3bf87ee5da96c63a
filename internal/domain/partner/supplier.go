package partner

import (
	"context"
	"strings"
	"time"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/google/uuid"
)

// SupplierStatus represents the status of a supplier
type SupplierStatus string

const (
	SupplierStatusActive   SupplierStatus = "active"
	SupplierStatusInactive SupplierStatus = "inactive"
)

// IsValid reports whether s is a known status.
func (s SupplierStatus) IsValid() bool {
	return s == SupplierStatusActive || s == SupplierStatusInactive
}

// IntegrationType is the transport family a supplier exposes its catalog through.
type IntegrationType string

const (
	IntegrationTypeGraphQL  IntegrationType = "graphql"
	IntegrationTypeREST     IntegrationType = "rest"
	IntegrationTypeCrawling IntegrationType = "crawling"
)

// IsValid reports whether t is a known integration type.
func (t IntegrationType) IsValid() bool {
	switch t {
	case IntegrationTypeGraphQL, IntegrationTypeREST, IntegrationTypeCrawling:
		return true
	}
	return false
}

// Credentials holds the secrets used to authenticate against a supplier API.
type Credentials struct {
	APIKey      string `json:"api_key,omitempty"`
	AccessToken string `json:"access_token,omitempty"`
}

// IsZero reports whether no credential is configured.
func (c Credentials) IsZero() bool {
	return c.APIKey == "" && c.AccessToken == ""
}

// WindowDefaults describes the relative collection window used when a trigger
// does not provide one. When both are set the window covers their sum.
type WindowDefaults struct {
	Days   int `json:"days,omitempty"`
	Months int `json:"months,omitempty"`
}

// Integration is the read-only supplier integration config consumed by the
// collection pipeline.
type Integration struct {
	Type            IntegrationType
	Endpoint        string
	Credentials     Credentials
	WindowDefaults  WindowDefaults
	ScheduleEnabled bool
}

// Supplier is a partner whose catalog can be collected.
type Supplier struct {
	shared.BaseEntity
	Code        string
	Name        string
	Status      SupplierStatus
	Integration Integration
}

// NewSupplier creates a new active supplier.
func NewSupplier(code, name string, integration Integration) (*Supplier, error) {
	if err := validateSupplierCode(code); err != nil {
		return nil, err
	}
	if err := validateSupplierName(name); err != nil {
		return nil, err
	}
	if err := integration.Validate(); err != nil {
		return nil, err
	}

	return &Supplier{
		BaseEntity:  shared.NewBaseEntity(time.Now()),
		Code:        strings.ToUpper(code),
		Name:        name,
		Status:      SupplierStatusActive,
		Integration: integration,
	}, nil
}

// IsActive returns true if the supplier accepts new collections.
func (s *Supplier) IsActive() bool {
	return s.Status == SupplierStatusActive
}

// Deactivate stops the supplier from being collected.
func (s *Supplier) Deactivate() {
	s.Status = SupplierStatusInactive
	s.Touch(time.Now())
}

// Activate makes the supplier collectable again.
func (s *Supplier) Activate() {
	s.Status = SupplierStatusActive
	s.Touch(time.Now())
}

// Rename changes the display name.
func (s *Supplier) Rename(name string) error {
	if err := validateSupplierName(name); err != nil {
		return err
	}
	s.Name = name
	s.Touch(time.Now())
	return nil
}

// UpdateIntegration replaces the integration config. Jobs already running
// keep the config they started with.
func (s *Supplier) UpdateIntegration(integration Integration) error {
	if err := integration.Validate(); err != nil {
		return err
	}
	s.Integration = integration
	s.Touch(time.Now())
	return nil
}

// EndpointHost returns the lowercased endpoint, used for collector matching.
func (s *Supplier) EndpointHost() string {
	return strings.ToLower(strings.TrimSpace(s.Integration.Endpoint))
}

// Validate checks the integration config.
func (i Integration) Validate() error {
	if !i.Type.IsValid() {
		return shared.NewDomainError("INVALID_INTEGRATION_TYPE", "Unknown integration type: "+string(i.Type))
	}
	if strings.TrimSpace(i.Endpoint) == "" {
		return shared.NewDomainError("INVALID_ENDPOINT", "Integration endpoint cannot be empty")
	}
	if i.WindowDefaults.Days < 0 || i.WindowDefaults.Months < 0 {
		return shared.NewDomainError("INVALID_WINDOW", "Window defaults cannot be negative")
	}
	return nil
}

func validateSupplierCode(code string) error {
	if code == "" {
		return shared.NewDomainError("INVALID_CODE", "Supplier code cannot be empty")
	}
	if len(code) > 50 {
		return shared.NewDomainError("INVALID_CODE", "Supplier code cannot exceed 50 characters")
	}
	for _, r := range code {
		if !((r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' || r == '-') {
			return shared.NewDomainError("INVALID_CODE", "Supplier code can only contain letters, numbers, underscores, and hyphens")
		}
	}
	return nil
}

func validateSupplierName(name string) error {
	if strings.TrimSpace(name) == "" {
		return shared.NewDomainError("INVALID_NAME", "Supplier name cannot be empty")
	}
	if len(name) > 200 {
		return shared.NewDomainError("INVALID_NAME", "Supplier name cannot exceed 200 characters")
	}
	return nil
}

// SupplierFilter narrows supplier listings.
type SupplierFilter struct {
	shared.Filter
	Status          SupplierStatus
	IntegrationType IntegrationType
	// Search matches code or name, case-insensitively
	Search string
}

// SupplierRepository stores supplier integration configs.
type SupplierRepository interface {
	// FindByID returns shared.ErrNotFound when the supplier does not exist
	FindByID(ctx context.Context, id uuid.UUID) (*Supplier, error)

	// FindByCode returns shared.ErrNotFound when no supplier has the code
	FindByCode(ctx context.Context, code string) (*Supplier, error)

	// List returns one page of suppliers and the total match count
	List(ctx context.Context, filter SupplierFilter) ([]Supplier, int64, error)

	// FindSchedulable returns active suppliers with scheduled collection enabled
	FindSchedulable(ctx context.Context) ([]Supplier, error)

	// Save creates or updates a supplier
	Save(ctx context.Context, supplier *Supplier) error
}
