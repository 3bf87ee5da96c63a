package handler

import (
	"context"
	"errors"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	appcollection "github.com/erp/backoffice/internal/application/collection"
	"github.com/erp/backoffice/internal/domain/collection"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/interfaces/http/dto"
)

// CollectionJobService is the part of the orchestrator the admin API uses
type CollectionJobService interface {
	StartCollection(ctx context.Context, req appcollection.StartRequest) (*collection.CollectionJob, error)
	GetJob(ctx context.Context, id uuid.UUID) (*collection.CollectionJob, error)
	ListJobs(ctx context.Context, filter collection.JobFilter) (shared.Paginated[collection.CollectionJob], error)
}

// CollectionJobHandler handles collection job API endpoints
type CollectionJobHandler struct {
	BaseHandler
	jobs CollectionJobService
}

// NewCollectionJobHandler creates a new CollectionJobHandler
func NewCollectionJobHandler(jobs CollectionJobService) *CollectionJobHandler {
	return &CollectionJobHandler{jobs: jobs}
}

// StartCollection godoc
// @ID           startSupplierCollection
// @Summary      Start a product collection for a supplier
// @Description  Creates a running job log entry and returns immediately. The
// @Description  collection itself continues in the background. An empty body
// @Description  uses the supplier's default window.
// @Tags         collection-jobs
// @Accept       json
// @Produce      json
// @Param        id path string true "Supplier ID" format(uuid)
// @Param        request body dto.StartCollectionRequest false "Collection window"
// @Success      202 {object} APIResponse[dto.StartCollectionResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /suppliers/{id}/collections [post]
func (h *CollectionJobHandler) StartCollection(c *gin.Context) {
	supplierID, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.StartCollectionRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		h.BindError(c, err)
		return
	}

	job, err := h.jobs.StartCollection(c.Request.Context(), appcollection.StartRequest{
		SupplierID: supplierID,
		Window:     req.WindowSpec(),
		Trigger:    collection.TriggerManual,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Accepted(c, dto.StartCollectionResponse{
		JobID:       job.ID,
		SupplierID:  job.SupplierID,
		Status:      job.Status,
		WindowStart: job.Window.Start,
		WindowEnd:   job.Window.End,
	})
}

// ListJobs godoc
// @ID           listCollectionJobs
// @Summary      List collection jobs
// @Description  Returns the job log, newest first unless another order is requested
// @Tags         collection-jobs
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(200)
// @Param        supplier_id query string false "Supplier ID" format(uuid)
// @Param        status query string false "Job status" Enums(pending, running, completed, failed)
// @Param        from query string false "Created at or after (RFC3339)"
// @Param        to query string false "Created before (RFC3339)"
// @Success      200 {object} APIResponse[[]dto.CollectionJobResponse]
// @Failure      400 {object} ErrorResponse
// @Router       /collection-jobs [get]
func (h *CollectionJobHandler) ListJobs(c *gin.Context) {
	var req dto.ListCollectionJobsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BindError(c, err)
		return
	}

	page, err := h.jobs.ListJobs(c.Request.Context(), req.ToFilter())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, dto.ToCollectionJobResponses(page.Items), page.Total, page.Page, page.PageSize)
}

// GetJob godoc
// @ID           getCollectionJob
// @Summary      Get a collection job
// @Tags         collection-jobs
// @Produce      json
// @Param        id path string true "Job ID" format(uuid)
// @Success      200 {object} APIResponse[dto.CollectionJobResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /collection-jobs/{id} [get]
func (h *CollectionJobHandler) GetJob(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}

	job, err := h.jobs.GetJob(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToCollectionJobResponse(job))
}
