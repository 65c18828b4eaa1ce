package handler

import (
	"net/http"

	"github.com/easygo/easygo-schools/internal/response"
	"github.com/easygo/easygo-schools/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// DashboardHandler handles admin dashboard endpoints.
type DashboardHandler struct {
	errorWriter
	dashboardService *service.DashboardService
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(dashboardService *service.DashboardService, log zerolog.Logger) *DashboardHandler {
	return &DashboardHandler{
		errorWriter:      errorWriter{log: log.With().Str("component", "dashboard_handler").Logger()},
		dashboardService: dashboardService,
	}
}

// GetDashboardData godoc
// GET /api/v1/admin/dashboard
// Returns the headline counters: enrollment, staff, today's attendance,
// outstanding fees, pending approvals and items to reorder.
func (h *DashboardHandler) GetDashboardData(c *gin.Context) {
	data, err := h.dashboardService.GetCounters(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, data)
}
