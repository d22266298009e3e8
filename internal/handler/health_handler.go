package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// DependencyChecker reports whether the external OCR tooling is usable.
type DependencyChecker interface {
	CheckBinaries() error
}

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	deps DependencyChecker
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(deps DependencyChecker) *HealthHandler {
	return &HealthHandler{deps: deps}
}

// Liveness handles GET /healthz
// @Summary Liveness check
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /healthz [get]
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// Readiness handles GET /readyz
// @Summary Readiness check
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /readyz [get]
func (h *HealthHandler) Readiness(c *gin.Context) {
	if h.deps != nil {
		if err := h.deps.CheckBinaries(); err != nil {
			c.JSON(http.StatusServiceUnavailable, HealthResponse{Status: "unavailable", Error: err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}
