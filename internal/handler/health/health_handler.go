package health

import (
	"net/http"

	"maintenance-task-service/internal/service"

	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	svc service.HealthService
}

func NewHealthHandler(svc service.HealthService) *HealthHandler {
	return &HealthHandler{
		svc: svc,
	}
}

func (h *HealthHandler) Check(c *gin.Context) {
	status := h.svc.CheckHealth(c.Request.Context())

	code := http.StatusOK
	overall := "ok"
	if status.System != "operational" {
		code = http.StatusServiceUnavailable
		overall = "degraded"
	}

	c.JSON(code, gin.H{
		"status": overall,
		"checks": status,
	})
}
