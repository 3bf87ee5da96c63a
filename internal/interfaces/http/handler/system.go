package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/erp/backoffice/internal/infrastructure/logger"
	"github.com/erp/backoffice/internal/interfaces/http/dto"
)

// Pinger checks a backing dependency is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// CollectorCatalog lists the registered collector keys
type CollectorCatalog interface {
	Keys() []string
}

// SystemHandler handles health and system information endpoints
type SystemHandler struct {
	BaseHandler
	name       string
	version    string
	db         Pinger
	collectors CollectorCatalog
	startTime  time.Time
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(name, version string, db Pinger, collectors CollectorCatalog) *SystemHandler {
	return &SystemHandler{
		name:       name,
		version:    version,
		db:         db,
		collectors: collectors,
		startTime:  time.Now(),
	}
}

// SystemInfoResponse represents the system information response
// @name HandlerSystemInfoResponse
type SystemInfoResponse struct {
	Name       string   `json:"name" example:"backoffice"`
	Version    string   `json:"version" example:"1.0.0"`
	GoVersion  string   `json:"go_version" example:"go1.25.5"`
	Uptime     string   `json:"uptime" example:"1h30m45s"`
	Collectors []string `json:"collectors" example:"graphql/*"`
}

// HealthResponse is the readiness probe body
type HealthResponse struct {
	Status   string `json:"status" example:"healthy"`
	Time     string `json:"time" example:"2026-01-23T12:00:00Z"`
	Database string `json:"database" example:"ok"`
}

// GetSystemInfo godoc
// @ID           getSystemSystemInfo
// @Summary      Get system information
// @Description  Returns version, uptime and the registered collectors (type/endpoint pattern)
// @Tags         system
// @Produce      json
// @Success      200 {object} APIResponse[SystemInfoResponse]
// @Router       /system/info [get]
func (h *SystemHandler) GetSystemInfo(c *gin.Context) {
	collectors := []string{}
	if h.collectors != nil {
		collectors = h.collectors.Keys()
	}
	h.Success(c, SystemInfoResponse{
		Name:       h.name,
		Version:    h.version,
		GoVersion:  runtime.Version(),
		Uptime:     time.Since(h.startTime).Round(time.Second).String(),
		Collectors: collectors,
	})
}

// Health reports whether the process and its database are usable
func (h *SystemHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	now := time.Now().Format(time.RFC3339)
	if err := h.db.Ping(ctx); err != nil {
		logger.L(c.Request.Context()).Warn("Health check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, HealthResponse{Status: "unhealthy", Time: now, Database: "error"})
		return
	}
	c.JSON(http.StatusOK, HealthResponse{Status: "healthy", Time: now, Database: "ok"})
}

// Live reports the process is up without touching dependencies
func (h *SystemHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(gin.H{"status": "alive"}))
}
