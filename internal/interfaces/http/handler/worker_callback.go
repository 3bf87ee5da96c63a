package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	appcollection "github.com/erp/backoffice/internal/application/collection"
	"github.com/erp/backoffice/internal/domain/catalog"
	"github.com/erp/backoffice/internal/domain/collection"
	"github.com/erp/backoffice/internal/infrastructure/auth"
	"github.com/erp/backoffice/internal/infrastructure/logger"
	"github.com/erp/backoffice/internal/interfaces/http/dto"
	"github.com/erp/backoffice/internal/interfaces/http/middleware"
)

// CompletionReporter records the outcome reported by a remote worker
type CompletionReporter interface {
	ReportCompletion(ctx context.Context, jobID uuid.UUID, report appcollection.CompletionReport) (*collection.CollectionJob, error)
}

// TokenLifetime reports how long a worker token stays valid
type TokenLifetime interface {
	RemainingTTL(claims *auth.WorkerClaims) time.Duration
}

// WorkerCallbackHandler serves the endpoints remote collection workers call
// with their job-scoped token
type WorkerCallbackHandler struct {
	BaseHandler
	jobs       CompletionReporter
	sink       collection.ProductSink
	policy     catalog.StockPolicy
	tokens     TokenLifetime
	revocation auth.TokenRevocation
}

// NewWorkerCallbackHandler creates a new WorkerCallbackHandler
func NewWorkerCallbackHandler(
	jobs CompletionReporter,
	sink collection.ProductSink,
	policy catalog.StockPolicy,
	tokens TokenLifetime,
	revocation auth.TokenRevocation,
) *WorkerCallbackHandler {
	return &WorkerCallbackHandler{
		jobs:       jobs,
		sink:       sink,
		policy:     policy,
		tokens:     tokens,
		revocation: revocation,
	}
}

// ReportCompletion godoc
// @ID           completeCollectionJob
// @Summary      Report completion of a remotely executed collection
// @Description  Moves a running job to completed or failed. The worker token
// @Description  is revoked afterwards, so a job can be completed only once.
// @Tags         worker
// @Accept       json
// @Produce      json
// @Security     WorkerToken
// @Param        id path string true "Job ID" format(uuid)
// @Param        request body dto.CompletionReportRequest true "Completion report"
// @Success      200 {object} APIResponse[dto.CollectionJobResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /collection-jobs/{id}/complete [post]
func (h *WorkerCallbackHandler) ReportCompletion(c *gin.Context) {
	jobID, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.CompletionReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	ctx := c.Request.Context()
	job, err := h.jobs.ReportCompletion(ctx, jobID, req.ToReport())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	if claims := middleware.GetWorkerClaims(c); claims != nil && h.revocation != nil {
		if err := h.revocation.Revoke(ctx, claims.ID, h.tokens.RemainingTTL(claims)); err != nil {
			logger.L(ctx).Warn("Failed to revoke worker token",
				zap.String("job_id", jobID.String()),
				zap.Error(err),
			)
		}
	}

	h.Success(c, dto.ToCollectionJobResponse(job))
}

// UpsertProduct godoc
// @ID           upsertSupplierProduct
// @Summary      Push one collected product
// @Description  Reconciles one catalog item for the supplier exactly as an
// @Description  in-process collector would, raising stock alerts as needed.
// @Tags         worker
// @Accept       json
// @Produce      json
// @Security     WorkerToken
// @Param        id path string true "Supplier ID" format(uuid)
// @Param        request body dto.UpsertProductRequest true "Catalog item"
// @Success      200 {object} APIResponse[dto.UpsertProductResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Router       /suppliers/{id}/products [post]
func (h *WorkerCallbackHandler) UpsertProduct(c *gin.Context) {
	supplierID, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.UpsertProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	item := req.ToCatalogItem()
	item.Normalize()
	item.Classify(h.policy)
	snapshot := item.ToSnapshot(supplierID)
	for k, v := range req.Metadata {
		if _, taken := snapshot.Metadata[k]; !taken {
			snapshot.Metadata[k] = v
		}
	}

	result, err := h.sink.UpsertProduct(c.Request.Context(), snapshot)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.UpsertProductResponse{Action: result.Action, ProductID: result.ProductID})
}
