package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetDashboardStats returns the admin KPIs.
// GET /api/admin/dashboard
func (h *Handlers) GetDashboardStats(c *gin.Context) {
	stats, err := h.Store.DashboardStats(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
