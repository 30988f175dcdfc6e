package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/shortlink/internal/monitoring"
	"github.com/charlesng35/shortlink/pkg/response"
)

// HealthHandler exposes liveness and readiness endpoints.
type HealthHandler struct {
	manager *monitoring.HealthManager
}

// NewHealthHandler constructs a handler over the supplied manager.
func NewHealthHandler(manager *monitoring.HealthManager) *HealthHandler {
	return &HealthHandler{manager: manager}
}

// Live returns a simple status payload useful for liveness checks.
func (h *HealthHandler) Live(c *gin.Context) {
	response.Success(c, http.StatusOK, gin.H{"status": "ok"})
}

// Ready evaluates the readiness probes against backing dependencies.
func (h *HealthHandler) Ready(c *gin.Context) {
	report := h.manager.EvaluateReadiness(requestContext(c))

	status := http.StatusOK
	if !report.Success {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, report)
}
