package router

import (
	"github.com/gin-gonic/gin"

	"github.com/erp/backoffice/internal/interfaces/http/handler"
	"github.com/erp/backoffice/internal/interfaces/http/middleware"
)

// Handlers bundles the API handlers
type Handlers struct {
	Suppliers *handler.SupplierHandler
	Jobs      *handler.CollectionJobHandler
	Stock     *handler.StockHandler
	Worker    *handler.WorkerCallbackHandler
}

// RegisterAPI declares the back-office routes. workerChain guards the worker
// callback endpoints and normally holds WorkerAuth followed by a per-token
// rate limit.
func RegisterAPI(r *Router, h Handlers, workerChain ...gin.HandlerFunc) *Router {
	suppliers := NewDomainGroup("supplier", "/suppliers").
		POST("", h.Suppliers.Create).
		GET("", h.Suppliers.List).
		GET("/:id", h.Suppliers.GetByID).
		PUT("/:id", h.Suppliers.Update).
		POST("/:id/activate", h.Suppliers.Activate).
		POST("/:id/deactivate", h.Suppliers.Deactivate)

	collections := NewDomainGroup("collection", "")
	collections.POST("/suppliers/:id/collections", h.Jobs.StartCollection)
	collections.Group("jobs", "/collection-jobs").
		GET("", h.Jobs.ListJobs).
		GET("/:id", h.Jobs.GetJob)

	stock := NewDomainGroup("stock", "")
	stock.Group("alerts", "/stock-alerts").
		GET("", h.Stock.ListAlerts).
		PUT("/:id/read", h.Stock.MarkAlertRead)
	stock.GET("/products/:id/stock-transitions", h.Stock.ListTransitions)

	worker := NewDomainGroup("worker", "").Use(workerChain...)
	worker.POST("/collection-jobs/:id/complete", middleware.RequireJobParam("id"), h.Worker.ReportCompletion)
	worker.POST("/suppliers/:id/products", middleware.RequireSupplierParam("id"), h.Worker.UpsertProduct)

	return r.Register(suppliers).Register(collections).Register(stock).Register(worker)
}
