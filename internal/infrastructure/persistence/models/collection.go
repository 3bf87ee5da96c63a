package models

import (
	"time"

	"github.com/erp/backoffice/internal/domain/collection"
	"github.com/google/uuid"
)

// CollectionJobModel is the job log row.
type CollectionJobModel struct {
	ID              uuid.UUID  `gorm:"type:uuid;primary_key"`
	SupplierID      uuid.UUID  `gorm:"type:uuid;not null;index:idx_collection_jobs_supplier_status,priority:1"`
	Status          string     `gorm:"type:varchar(20);not null;index:idx_collection_jobs_supplier_status,priority:2"`
	Trigger         string     `gorm:"type:varchar(20);not null"`
	WindowStart     time.Time  `gorm:"not null"`
	WindowEnd       time.Time  `gorm:"not null"`
	StartedAt       *time.Time `gorm:"index"`
	CompletedAt     *time.Time
	TotalProducts   int       `gorm:"not null;default:0"`
	NewProducts     int       `gorm:"not null;default:0"`
	UpdatedProducts int       `gorm:"not null;default:0"`
	FailedProducts  int       `gorm:"not null;default:0"`
	ErrorSummary    string    `gorm:"type:text"`
	CreatedAt       time.Time `gorm:"not null"`
	UpdatedAt       time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CollectionJobModel) TableName() string {
	return "collection_jobs"
}

// ToDomain converts the persistence model to a domain CollectionJob.
func (m *CollectionJobModel) ToDomain() *collection.CollectionJob {
	return &collection.CollectionJob{
		ID:         m.ID,
		SupplierID: m.SupplierID,
		Window: collection.Window{
			Start: m.WindowStart,
			End:   m.WindowEnd,
		},
		Status:      collection.JobStatus(m.Status),
		Trigger:     collection.Trigger(m.Trigger),
		StartedAt:   m.StartedAt,
		CompletedAt: m.CompletedAt,
		Counters: collection.Counters{
			Total:   m.TotalProducts,
			New:     m.NewProducts,
			Updated: m.UpdatedProducts,
			Failed:  m.FailedProducts,
		},
		ErrorSummary: m.ErrorSummary,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

// CollectionJobModelFromDomain creates a persistence model from a domain CollectionJob.
func CollectionJobModelFromDomain(j *collection.CollectionJob) *CollectionJobModel {
	return &CollectionJobModel{
		ID:              j.ID,
		SupplierID:      j.SupplierID,
		Status:          string(j.Status),
		Trigger:         string(j.Trigger),
		WindowStart:     j.Window.Start.UTC(),
		WindowEnd:       j.Window.End.UTC(),
		StartedAt:       utcPtr(j.StartedAt),
		CompletedAt:     utcPtr(j.CompletedAt),
		TotalProducts:   j.Counters.Total,
		NewProducts:     j.Counters.New,
		UpdatedProducts: j.Counters.Updated,
		FailedProducts:  j.Counters.Failed,
		ErrorSummary:    j.ErrorSummary,
		CreatedAt:       j.CreatedAt.UTC(),
		UpdatedAt:       j.UpdatedAt.UTC(),
	}
}

// AllModels lists every model for schema tooling and tests.
func AllModels() []any {
	return []any{
		&SupplierModel{},
		&ProductModel{},
		&StockTransitionModel{},
		&StockAlertModel{},
		&CollectionJobModel{},
	}
}
