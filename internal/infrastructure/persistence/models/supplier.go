package models

import (
	"github.com/erp/backoffice/internal/domain/partner"
)

// SupplierModel is the persistence model for a supplier and its integration config.
type SupplierModel struct {
	BaseModel
	Code            string              `gorm:"type:varchar(50);not null;uniqueIndex"`
	Name            string              `gorm:"type:varchar(200);not null"`
	Status          string              `gorm:"type:varchar(20);not null;default:'active'"`
	IntegrationType string              `gorm:"type:varchar(20);not null"`
	Endpoint        string              `gorm:"type:varchar(500);not null"`
	Credentials     partner.Credentials `gorm:"type:jsonb;serializer:json"`
	WindowDays      int                 `gorm:"not null;default:0"`
	WindowMonths    int                 `gorm:"not null;default:0"`
	ScheduleEnabled bool                `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (SupplierModel) TableName() string {
	return "suppliers"
}

// ToDomain converts the persistence model to a domain Supplier.
func (m *SupplierModel) ToDomain() *partner.Supplier {
	return &partner.Supplier{
		BaseEntity: m.BaseModel.ToDomain(),
		Code:       m.Code,
		Name:       m.Name,
		Status:     partner.SupplierStatus(m.Status),
		Integration: partner.Integration{
			Type:        partner.IntegrationType(m.IntegrationType),
			Endpoint:    m.Endpoint,
			Credentials: m.Credentials,
			WindowDefaults: partner.WindowDefaults{
				Days:   m.WindowDays,
				Months: m.WindowMonths,
			},
			ScheduleEnabled: m.ScheduleEnabled,
		},
	}
}

// FromDomain populates the persistence model from a domain Supplier.
func (m *SupplierModel) FromDomain(s *partner.Supplier) {
	m.FromDomainBaseEntity(s.BaseEntity)
	m.Code = s.Code
	m.Name = s.Name
	m.Status = string(s.Status)
	m.IntegrationType = string(s.Integration.Type)
	m.Endpoint = s.Integration.Endpoint
	m.Credentials = s.Integration.Credentials
	m.WindowDays = s.Integration.WindowDefaults.Days
	m.WindowMonths = s.Integration.WindowDefaults.Months
	m.ScheduleEnabled = s.Integration.ScheduleEnabled
}

// SupplierModelFromDomain creates a persistence model from a domain Supplier.
func SupplierModelFromDomain(s *partner.Supplier) *SupplierModel {
	m := &SupplierModel{}
	m.FromDomain(s)
	return m
}
