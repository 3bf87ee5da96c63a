package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apppartner "github.com/erp/backoffice/internal/application/partner"
	"github.com/erp/backoffice/internal/domain/shared"
)

// SupplierService is the supplier administration surface
type SupplierService interface {
	Create(ctx context.Context, req apppartner.CreateSupplierRequest) (*apppartner.SupplierResponse, error)
	GetByID(ctx context.Context, id uuid.UUID) (*apppartner.SupplierResponse, error)
	List(ctx context.Context, filter apppartner.SupplierListFilter) (shared.Paginated[apppartner.SupplierResponse], error)
	Update(ctx context.Context, id uuid.UUID, req apppartner.UpdateSupplierRequest) (*apppartner.SupplierResponse, error)
	Activate(ctx context.Context, id uuid.UUID) (*apppartner.SupplierResponse, error)
	Deactivate(ctx context.Context, id uuid.UUID) (*apppartner.SupplierResponse, error)
}

// SupplierHandler handles supplier-related API endpoints
type SupplierHandler struct {
	BaseHandler
	suppliers SupplierService
}

// NewSupplierHandler creates a new SupplierHandler
func NewSupplierHandler(suppliers SupplierService) *SupplierHandler {
	return &SupplierHandler{suppliers: suppliers}
}

// Create godoc
// @ID           createSupplier
// @Summary      Register a supplier integration
// @Tags         suppliers
// @Accept       json
// @Produce      json
// @Param        request body apppartner.CreateSupplierRequest true "Supplier"
// @Success      201 {object} APIResponse[apppartner.SupplierResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Router       /suppliers [post]
func (h *SupplierHandler) Create(c *gin.Context) {
	var req apppartner.CreateSupplierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	supplier, err := h.suppliers.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, supplier)
}

// List godoc
// @ID           listSuppliers
// @Summary      List suppliers
// @Description  Ordered by code unless order_by is given
// @Tags         suppliers
// @Produce      json
// @Param        search query string false "Code or name contains"
// @Param        status query string false "Supplier status" Enums(active, inactive)
// @Param        integration_type query string false "Integration type" Enums(graphql, rest, crawling)
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(200)
// @Success      200 {object} APIResponse[[]apppartner.SupplierResponse]
// @Failure      400 {object} ErrorResponse
// @Router       /suppliers [get]
func (h *SupplierHandler) List(c *gin.Context) {
	var filter apppartner.SupplierListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BindError(c, err)
		return
	}

	page, err := h.suppliers.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// GetByID godoc
// @ID           getSupplier
// @Summary      Get a supplier
// @Tags         suppliers
// @Produce      json
// @Param        id path string true "Supplier ID" format(uuid)
// @Success      200 {object} APIResponse[apppartner.SupplierResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /suppliers/{id} [get]
func (h *SupplierHandler) GetByID(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}

	supplier, err := h.suppliers.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, supplier)
}

// Update godoc
// @ID           updateSupplier
// @Summary      Update a supplier
// @Description  Omitted fields keep their value. Running jobs keep the config they started with.
// @Tags         suppliers
// @Accept       json
// @Produce      json
// @Param        id path string true "Supplier ID" format(uuid)
// @Param        request body apppartner.UpdateSupplierRequest true "Changes"
// @Success      200 {object} APIResponse[apppartner.SupplierResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /suppliers/{id} [put]
func (h *SupplierHandler) Update(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req apppartner.UpdateSupplierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	supplier, err := h.suppliers.Update(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, supplier)
}

// Activate godoc
// @ID           activateSupplier
// @Summary      Activate a supplier
// @Tags         suppliers
// @Produce      json
// @Param        id path string true "Supplier ID" format(uuid)
// @Success      200 {object} APIResponse[apppartner.SupplierResponse]
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /suppliers/{id}/activate [post]
func (h *SupplierHandler) Activate(c *gin.Context) {
	h.changeStatus(c, h.suppliers.Activate)
}

// Deactivate godoc
// @ID           deactivateSupplier
// @Summary      Deactivate a supplier
// @Description  New collections are refused. Jobs already running finish.
// @Tags         suppliers
// @Produce      json
// @Param        id path string true "Supplier ID" format(uuid)
// @Success      200 {object} APIResponse[apppartner.SupplierResponse]
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /suppliers/{id}/deactivate [post]
func (h *SupplierHandler) Deactivate(c *gin.Context) {
	h.changeStatus(c, h.suppliers.Deactivate)
}

func (h *SupplierHandler) changeStatus(c *gin.Context, fn func(context.Context, uuid.UUID) (*apppartner.SupplierResponse, error)) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}

	supplier, err := fn(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, supplier)
}
