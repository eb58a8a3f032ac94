// internal/interfaces/http/handlers/analytics.go
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/fruitbox/internal/domain/analytics"
)

// AnalyticsHandler handles admin reporting endpoints
type AnalyticsHandler struct {
	analyticsService *analytics.Service
	logger           *logrus.Logger
}

// NewAnalyticsHandler creates a new analytics handler
func NewAnalyticsHandler(analyticsService *analytics.Service, logger *logrus.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		analyticsService: analyticsService,
		logger:           logger,
	}
}

// GetDashboard handles GET /admin/analytics/dashboard
func (h *AnalyticsHandler) GetDashboard(c *gin.Context) {
	stats, err := h.analyticsService.GetDashboard(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("failed to build dashboard")
		fail(c, http.StatusInternalServerError, "Failed to retrieve dashboard statistics")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"dashboard": stats,
	})
}

// GetSalesReport handles GET /admin/analytics/sales?days=30
func (h *AnalyticsHandler) GetSalesReport(c *gin.Context) {
	days, _ := strconv.Atoi(c.DefaultQuery("days", "30"))

	report, err := h.analyticsService.GetSalesReport(c.Request.Context(), days)
	if err != nil {
		h.logger.WithError(err).Error("failed to build sales report")
		fail(c, http.StatusInternalServerError, "Failed to retrieve sales report")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"sales":   report,
	})
}
