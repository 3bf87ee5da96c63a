package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/erp/backoffice/internal/domain/catalog"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/interfaces/http/dto"
)

// StockQueries is the read side of stock history and alerts
type StockQueries interface {
	ListTransitions(ctx context.Context, productID uuid.UUID, filter shared.Filter) (shared.Paginated[catalog.StockTransition], error)
	ListAlerts(ctx context.Context, filter catalog.AlertFilter) (shared.Paginated[catalog.StockAlert], error)
	MarkAlertRead(ctx context.Context, id uuid.UUID) (*catalog.StockAlert, error)
}

// StockHandler handles stock alert and stock history endpoints
type StockHandler struct {
	BaseHandler
	queries StockQueries
}

// NewStockHandler creates a new StockHandler
func NewStockHandler(queries StockQueries) *StockHandler {
	return &StockHandler{queries: queries}
}

// ListAlerts godoc
// @ID           listStockAlerts
// @Summary      List stock alerts
// @Description  Returns stock alerts raised by reconciliation, newest first
// @Tags         stock
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(200)
// @Param        supplier_id query string false "Supplier ID" format(uuid)
// @Param        unread query bool false "Only unread alerts"
// @Param        type query string false "Alert type" Enums(out_of_stock, low_stock, back_in_stock)
// @Success      200 {object} APIResponse[[]dto.StockAlertResponse]
// @Failure      400 {object} ErrorResponse
// @Router       /stock-alerts [get]
func (h *StockHandler) ListAlerts(c *gin.Context) {
	var req dto.ListStockAlertsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BindError(c, err)
		return
	}

	page, err := h.queries.ListAlerts(c.Request.Context(), req.ToFilter())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, dto.ToStockAlertResponses(page.Items), page.Total, page.Page, page.PageSize)
}

// MarkAlertRead godoc
// @ID           markStockAlertRead
// @Summary      Mark a stock alert as read
// @Tags         stock
// @Produce      json
// @Param        id path string true "Alert ID" format(uuid)
// @Success      200 {object} APIResponse[dto.StockAlertResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /stock-alerts/{id}/read [put]
func (h *StockHandler) MarkAlertRead(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}

	alert, err := h.queries.MarkAlertRead(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToStockAlertResponse(alert))
}

// ListTransitions godoc
// @ID           listProductStockTransitions
// @Summary      List a product's stock history
// @Description  Returns the stock status transitions recorded for one product
// @Tags         stock
// @Produce      json
// @Param        id path string true "Product ID" format(uuid)
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(200)
// @Success      200 {object} APIResponse[[]dto.StockTransitionResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /products/{id}/stock-transitions [get]
func (h *StockHandler) ListTransitions(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BindError(c, err)
		return
	}

	page, err := h.queries.ListTransitions(c.Request.Context(), id, req.Filter())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, dto.ToStockTransitionResponses(page.Items), page.Total, page.Page, page.PageSize)
}
