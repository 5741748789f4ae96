package handler

import (
	"net/http"
	"time"

	"github.com/billing/backend/internal/infrastructure/persistence"
	"github.com/gin-gonic/gin"
)

// SystemHandler handles health and service info endpoints
type SystemHandler struct {
	BaseHandler
	db        *persistence.Database // Optional; nil when running on in-memory storage
	version   string
	startedAt time.Time
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(db *persistence.Database, version string) *SystemHandler {
	return &SystemHandler{
		db:        db,
		version:   version,
		startedAt: time.Now(),
	}
}

// RegisterRoutes registers system routes on the API group
func (h *SystemHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/health", h.Health)
	rg.GET("/info", h.Info)
	rg.GET("/ping", h.Ping)
}

// HealthResponse represents the service health report
// @Description Health check response
type HealthResponse struct {
	Status   string            `json:"status" example:"healthy" enums:"healthy,degraded"`
	Uptime   string            `json:"uptime" example:"1h2m3s"`
	Database *DatabaseHealth   `json:"database,omitempty"`
	Checks   map[string]string `json:"checks,omitempty"`
}

// DatabaseHealth reports database connectivity and pool usage
// @Description Database health details
type DatabaseHealth struct {
	Reachable       bool `json:"reachable"`
	OpenConnections int  `json:"open_connections"`
	InUse           int  `json:"in_use"`
	Idle            int  `json:"idle"`
}

// InfoResponse represents basic service information
// @Description Service info response
type InfoResponse struct {
	Name    string `json:"name" example:"billing-backend"`
	Version string `json:"version" example:"1.0.0"`
}

// Health godoc
// @Summary Health check
// @Description Reports service health including database connectivity
// @Tags system
// @Produce json
// @Success 200 {object} HealthResponse
// @Success 503 {object} HealthResponse
// @Router /health [get]
func (h *SystemHandler) Health(c *gin.Context) {
	resp := HealthResponse{
		Status: "healthy",
		Uptime: time.Since(h.startedAt).Round(time.Second).String(),
		Checks: map[string]string{},
	}

	status := http.StatusOK
	if h.db != nil {
		dbHealth := &DatabaseHealth{Reachable: true}
		if err := h.db.Ping(); err != nil {
			dbHealth.Reachable = false
			resp.Status = "degraded"
			resp.Checks["database"] = err.Error()
			status = http.StatusServiceUnavailable
		} else if stats, err := h.db.Stats(); err == nil {
			dbHealth.OpenConnections = stats.OpenConnections
			dbHealth.InUse = stats.InUse
			dbHealth.Idle = stats.Idle
		}
		resp.Database = dbHealth
	}

	c.JSON(status, resp)
}

// Info godoc
// @Summary Service info
// @Tags system
// @Produce json
// @Success 200 {object} APIResponse[InfoResponse]
// @Router /info [get]
func (h *SystemHandler) Info(c *gin.Context) {
	h.Success(c, InfoResponse{
		Name:    "billing-backend",
		Version: h.version,
	})
}

// Ping godoc
// @Summary Liveness probe
// @Tags system
// @Produce plain
// @Success 200 {string} string "pong"
// @Router /ping [get]
func (h *SystemHandler) Ping(c *gin.Context) {
	c.String(http.StatusOK, "pong")
}
