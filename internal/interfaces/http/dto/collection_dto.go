package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	appcollection "github.com/erp/backoffice/internal/application/collection"
	"github.com/erp/backoffice/internal/domain/catalog"
	"github.com/erp/backoffice/internal/domain/collection"
	"github.com/erp/backoffice/internal/domain/shared"
)

// Filter converts paging parameters into a domain filter
func (r ListRequest) Filter() shared.Filter {
	f := DefaultListRequest()
	if r.Page > 0 {
		f.Page = r.Page
	}
	if r.PageSize > 0 {
		f.PageSize = r.PageSize
	}
	if r.OrderBy != "" {
		f.OrderBy = r.OrderBy
	}
	if r.OrderDir != "" {
		f.OrderDir = r.OrderDir
	}
	return shared.Filter{
		Page:     f.Page,
		PageSize: f.PageSize,
		OrderBy:  f.OrderBy,
		OrderDir: f.OrderDir,
	}.Normalize()
}

// StartCollectionRequest asks for a collection run. Either explicit bounds or
// a relative look-back may be given; an empty body uses the supplier's
// window defaults.
type StartCollectionRequest struct {
	StartDate  *time.Time `json:"start_date"`
	EndDate    *time.Time `json:"end_date"`
	DaysBack   int        `json:"days_back" binding:"omitempty,min=1,max=3650"`
	MonthsBack int        `json:"months_back" binding:"omitempty,min=1,max=120"`
}

// WindowSpec converts the request into a window spec
func (r StartCollectionRequest) WindowSpec() collection.WindowSpec {
	return collection.WindowSpec{
		Start:      r.StartDate,
		End:        r.EndDate,
		DaysBack:   r.DaysBack,
		MonthsBack: r.MonthsBack,
	}
}

// StartCollectionResponse is returned as soon as the job row exists
type StartCollectionResponse struct {
	JobID       uuid.UUID            `json:"job_id"`
	SupplierID  uuid.UUID            `json:"supplier_id"`
	Status      collection.JobStatus `json:"status"`
	WindowStart time.Time            `json:"window_start"`
	WindowEnd   time.Time            `json:"window_end"`
}

// CollectionJobResponse is the job log record
type CollectionJobResponse struct {
	ID           uuid.UUID            `json:"id"`
	SupplierID   uuid.UUID            `json:"supplier_id"`
	Status       collection.JobStatus `json:"status"`
	Trigger      collection.Trigger   `json:"trigger"`
	WindowStart  time.Time            `json:"window_start"`
	WindowEnd    time.Time            `json:"window_end"`
	StartedAt    *time.Time           `json:"started_at,omitempty"`
	CompletedAt  *time.Time           `json:"completed_at,omitempty"`
	DurationMS   int64                `json:"duration_ms"`
	TotalItems   int                  `json:"total_items"`
	NewItems     int                  `json:"new_items"`
	UpdatedItems int                  `json:"updated_items"`
	FailedItems  int                  `json:"failed_items"`
	ErrorSummary string               `json:"error_summary,omitempty"`
	CreatedAt    time.Time            `json:"created_at"`
	UpdatedAt    time.Time            `json:"updated_at"`
}

// ToCollectionJobResponse maps a job to its response
func ToCollectionJobResponse(job *collection.CollectionJob) CollectionJobResponse {
	return CollectionJobResponse{
		ID:           job.ID,
		SupplierID:   job.SupplierID,
		Status:       job.Status,
		Trigger:      job.Trigger,
		WindowStart:  job.Window.Start,
		WindowEnd:    job.Window.End,
		StartedAt:    job.StartedAt,
		CompletedAt:  job.CompletedAt,
		DurationMS:   job.Duration().Milliseconds(),
		TotalItems:   job.Counters.Total,
		NewItems:     job.Counters.New,
		UpdatedItems: job.Counters.Updated,
		FailedItems:  job.Counters.Failed,
		ErrorSummary: job.ErrorSummary,
		CreatedAt:    job.CreatedAt,
		UpdatedAt:    job.UpdatedAt,
	}
}

// ToCollectionJobResponses maps a page of jobs
func ToCollectionJobResponses(jobs []collection.CollectionJob) []CollectionJobResponse {
	out := make([]CollectionJobResponse, len(jobs))
	for i := range jobs {
		out[i] = ToCollectionJobResponse(&jobs[i])
	}
	return out
}

// ListCollectionJobsRequest filters the job log
type ListCollectionJobsRequest struct {
	ListRequest
	SupplierID string     `form:"supplier_id" binding:"omitempty,uuid"`
	Status     string     `form:"status" binding:"omitempty,oneof=pending running completed failed"`
	From       *time.Time `form:"from" time_format:"2006-01-02T15:04:05Z07:00"`
	To         *time.Time `form:"to" time_format:"2006-01-02T15:04:05Z07:00"`
}

// ToFilter converts the request into a job filter
func (r ListCollectionJobsRequest) ToFilter() collection.JobFilter {
	filter := collection.JobFilter{
		Filter: r.ListRequest.Filter(),
		Status: collection.JobStatus(r.Status),
		From:   r.From,
		To:     r.To,
	}
	if id, err := uuid.Parse(r.SupplierID); err == nil {
		filter.SupplierID = &id
	}
	return filter
}

// StockAlertResponse is one stock notification
type StockAlertResponse struct {
	ID        uuid.UUID         `json:"id"`
	ProductID uuid.UUID         `json:"product_id"`
	AlertType catalog.AlertType `json:"alert_type"`
	Message   string            `json:"message"`
	IsRead    bool              `json:"is_read"`
	CreatedAt time.Time         `json:"created_at"`
}

// ToStockAlertResponse maps an alert to its response
func ToStockAlertResponse(a *catalog.StockAlert) StockAlertResponse {
	return StockAlertResponse{
		ID:        a.ID,
		ProductID: a.ProductID,
		AlertType: a.AlertType,
		Message:   a.Message,
		IsRead:    a.IsRead,
		CreatedAt: a.CreatedAt,
	}
}

// ToStockAlertResponses maps a page of alerts
func ToStockAlertResponses(alerts []catalog.StockAlert) []StockAlertResponse {
	out := make([]StockAlertResponse, len(alerts))
	for i := range alerts {
		out[i] = ToStockAlertResponse(&alerts[i])
	}
	return out
}

// ListStockAlertsRequest filters stock alerts
type ListStockAlertsRequest struct {
	ListRequest
	SupplierID string `form:"supplier_id" binding:"omitempty,uuid"`
	Unread     bool   `form:"unread"`
	AlertType  string `form:"type" binding:"omitempty,oneof=out_of_stock low_stock back_in_stock"`
}

// ToFilter converts the request into an alert filter
func (r ListStockAlertsRequest) ToFilter() catalog.AlertFilter {
	filter := catalog.AlertFilter{
		Filter:     r.ListRequest.Filter(),
		UnreadOnly: r.Unread,
		AlertType:  catalog.AlertType(r.AlertType),
	}
	if id, err := uuid.Parse(r.SupplierID); err == nil {
		filter.SupplierID = &id
	}
	return filter
}

// StockTransitionResponse is one row of a product's stock audit trail
type StockTransitionResponse struct {
	ID               uuid.UUID           `json:"id"`
	ProductID        uuid.UUID           `json:"product_id"`
	PreviousStatus   catalog.StockStatus `json:"previous_status"`
	NewStatus        catalog.StockStatus `json:"new_status"`
	PreviousQuantity int                 `json:"previous_quantity"`
	NewQuantity      int                 `json:"new_quantity"`
	Reason           string              `json:"reason"`
	OccurredAt       time.Time           `json:"occurred_at"`
}

// ToStockTransitionResponses maps a page of transitions
func ToStockTransitionResponses(items []catalog.StockTransition) []StockTransitionResponse {
	out := make([]StockTransitionResponse, len(items))
	for i, t := range items {
		out[i] = StockTransitionResponse{
			ID:               t.ID,
			ProductID:        t.ProductID,
			PreviousStatus:   t.PreviousStatus,
			NewStatus:        t.NewStatus,
			PreviousQuantity: t.PreviousQuantity,
			NewQuantity:      t.NewQuantity,
			Reason:           t.Reason,
			OccurredAt:       t.OccurredAt,
		}
	}
	return out
}

// Worker protocol. Remote workers speak camelCase JSON, matching the job
// request they receive.

// CompletionReportRequest is posted by a remote worker when its run ends
type CompletionReportRequest struct {
	Success         *bool    `json:"success" binding:"required"`
	TotalProducts   int      `json:"totalProducts" binding:"min=0"`
	NewProducts     int      `json:"newProducts" binding:"min=0"`
	UpdatedProducts int      `json:"updatedProducts" binding:"min=0"`
	FailedProducts  int      `json:"failedProducts" binding:"min=0"`
	Errors          []string `json:"errors" binding:"max=1000"`
}

// ToReport converts the request into a completion report
func (r CompletionReportRequest) ToReport() appcollection.CompletionReport {
	return appcollection.CompletionReport{
		Success:         r.Success != nil && *r.Success,
		TotalProducts:   r.TotalProducts,
		NewProducts:     r.NewProducts,
		UpdatedProducts: r.UpdatedProducts,
		FailedProducts:  r.FailedProducts,
		Errors:          r.Errors,
	}
}

// UpsertProductRequest is one catalog item pushed by a remote worker
type UpsertProductRequest struct {
	NaturalKey    string          `json:"naturalKey" binding:"required,max=191"`
	Name          string          `json:"name" binding:"required,max=500"`
	Price         decimal.Decimal `json:"price"`
	Status        string          `json:"status" binding:"max=50"`
	StockStatus   string          `json:"stockStatus" binding:"omitempty,oneof=in_stock low_stock out_of_stock"`
	StockQuantity int             `json:"stockQuantity" binding:"min=0"`
	Metadata      map[string]any  `json:"metadata"`
}

// ToCatalogItem converts the request into the collector item shape
func (r UpsertProductRequest) ToCatalogItem() collection.CatalogItem {
	return collection.CatalogItem{
		NaturalKey:    r.NaturalKey,
		DisplayName:   r.Name,
		Price:         r.Price,
		RawStatus:     r.Status,
		StockQuantity: r.StockQuantity,
		StockStatus:   catalog.StockStatus(r.StockStatus),
	}
}

// UpsertProductResponse reports what reconciliation did
type UpsertProductResponse struct {
	Action    collection.UpsertAction `json:"action"`
	ProductID uuid.UUID               `json:"productId"`
}
