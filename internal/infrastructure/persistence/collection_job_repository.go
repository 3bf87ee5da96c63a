package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/erp/backoffice/internal/domain/collection"
	"github.com/erp/backoffice/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormCollectionJobRepository implements collection.JobRepository using GORM
type GormCollectionJobRepository struct {
	db *gorm.DB
}

// NewGormCollectionJobRepository creates a new GormCollectionJobRepository
func NewGormCollectionJobRepository(db *gorm.DB) *GormCollectionJobRepository {
	return &GormCollectionJobRepository{db: db}
}

// Create inserts a new job row
func (r *GormCollectionJobRepository) Create(ctx context.Context, job *collection.CollectionJob) error {
	return r.db.WithContext(ctx).Create(models.CollectionJobModelFromDomain(job)).Error
}

// SaveTerminal writes the terminal status, counters and summary. The update
// is conditional on the stored row still being running so a late writer
// cannot overwrite a finished job.
func (r *GormCollectionJobRepository) SaveTerminal(ctx context.Context, job *collection.CollectionJob) error {
	if !job.Status.IsTerminal() {
		return collection.ErrInvalidTransition
	}

	model := models.CollectionJobModelFromDomain(job)
	result := r.db.WithContext(ctx).
		Model(&models.CollectionJobModel{}).
		Where("id = ? AND status = ?", job.ID, string(collection.JobStatusRunning)).
		Updates(map[string]any{
			"status":           model.Status,
			"completed_at":     model.CompletedAt,
			"total_products":   model.TotalProducts,
			"new_products":     model.NewProducts,
			"updated_products": model.UpdatedProducts,
			"failed_products":  model.FailedProducts,
			"error_summary":    model.ErrorSummary,
			"updated_at":       model.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		if _, err := r.FindByID(ctx, job.ID); err != nil {
			return err
		}
		return collection.ErrJobAlreadyFinished
	}
	return nil
}

// FindByID finds a job by its ID
func (r *GormCollectionJobRepository) FindByID(ctx context.Context, id uuid.UUID) (*collection.CollectionJob, error) {
	var model models.CollectionJobModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, collection.ErrJobNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// List returns a page of jobs and the total count
func (r *GormCollectionJobRepository) List(ctx context.Context, filter collection.JobFilter) ([]collection.CollectionJob, int64, error) {
	page := filter.Filter.Normalize()
	query := r.db.WithContext(ctx).Model(&models.CollectionJobModel{})

	if filter.SupplierID != nil {
		query = query.Where("supplier_id = ?", *filter.SupplierID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", string(filter.Status))
	}
	if filter.From != nil {
		query = query.Where("created_at >= ?", filter.From.UTC())
	}
	if filter.To != nil {
		query = query.Where("created_at <= ?", filter.To.UTC())
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.CollectionJobModel
	if err := query.
		Order(orderClause(page.OrderBy, page.OrderDir, CollectionJobSortFields, "created_at")).
		Offset(page.Offset()).
		Limit(page.PageSize).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	jobs := make([]collection.CollectionJob, len(rows))
	for i := range rows {
		jobs[i] = *rows[i].ToDomain()
	}
	return jobs, total, nil
}

// FindRunningStartedBefore returns running jobs started before cutoff, oldest first
func (r *GormCollectionJobRepository) FindRunningStartedBefore(ctx context.Context, cutoff time.Time, limit int) ([]collection.CollectionJob, error) {
	if limit <= 0 {
		limit = 100
	}

	var rows []models.CollectionJobModel
	if err := r.db.WithContext(ctx).
		Where("status = ? AND started_at < ?", string(collection.JobStatusRunning), cutoff.UTC()).
		Order("started_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}

	jobs := make([]collection.CollectionJob, len(rows))
	for i := range rows {
		jobs[i] = *rows[i].ToDomain()
	}
	return jobs, nil
}

// HasRunning reports whether a supplier has a running job
func (r *GormCollectionJobRepository) HasRunning(ctx context.Context, supplierID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.CollectionJobModel{}).
		Where("supplier_id = ? AND status = ?", supplierID, string(collection.JobStatusRunning)).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Ensure GormCollectionJobRepository implements collection.JobRepository
var _ collection.JobRepository = (*GormCollectionJobRepository)(nil)
