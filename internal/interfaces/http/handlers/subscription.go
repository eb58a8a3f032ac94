// internal/interfaces/http/handlers/subscription.go
package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/fruitbox/internal/domain/subscription"
	"github.com/your-org/fruitbox/internal/interfaces/http/middleware"
	"github.com/your-org/fruitbox/internal/pkg/auth"
)

// SubscriptionHandler serves delivery calendars to customers and partners
type SubscriptionHandler struct {
	subscriptionService *subscription.Service
	logger              *logrus.Logger
	location            *time.Location
}

// NewSubscriptionHandler creates a new subscription handler
func NewSubscriptionHandler(subscriptionService *subscription.Service, loc *time.Location, logger *logrus.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{
		subscriptionService: subscriptionService,
		logger:              logger,
		location:            loc,
	}
}

// GetCalendar handles GET /subscriptions/:id/calendar
func (h *SubscriptionHandler) GetCalendar(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	sub, err := h.subscriptionService.Calendar(c.Request.Context(), id)
	if errors.Is(err, subscription.ErrNotFound) {
		fail(c, http.StatusNotFound, "Subscription not found")
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("failed to load calendar")
		fail(c, http.StatusInternalServerError, "Failed to retrieve calendar")
		return
	}
	if !canActFor(c, sub.CustomerID, auth.RoleAdmin, auth.RolePartner) {
		fail(c, http.StatusNotFound, "Subscription not found")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"subscription": sub,
	})
}

// GetCustomerSubscriptions handles GET /customers/:id/subscriptions
func (h *SubscriptionHandler) GetCustomerSubscriptions(c *gin.Context) {
	customerID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	if !canActFor(c, customerID, auth.RoleAdmin) {
		fail(c, http.StatusForbidden, "Access denied")
		return
	}

	subs, err := h.subscriptionService.ListForCustomer(c.Request.Context(), customerID)
	if err != nil {
		h.logger.WithError(err).Error("failed to list subscriptions")
		fail(c, http.StatusInternalServerError, "Failed to retrieve subscriptions")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"subscriptions": subs,
	})
}

// GetDeliveries handles GET /partner/deliveries?date=YYYY-MM-DD (defaults to today)
func (h *SubscriptionHandler) GetDeliveries(c *gin.Context) {
	date := c.Query("date")
	if date == "" {
		date = time.Now().In(h.location).Format(subscription.DateLayout)
	}

	deliveries, err := h.subscriptionService.DeliveriesOn(c.Request.Context(), date)
	if err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"date":       date,
		"deliveries": deliveries,
	})
}

// UpdateDayRequest is a partner's status change for one day
type UpdateDayRequest struct {
	Status subscription.DayStatus `json:"status" binding:"required"`
}

// UpdateDay handles PATCH /partner/subscriptions/:id/days/:date
func (h *SubscriptionHandler) UpdateDay(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	var req UpdateDayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	claims, _ := middleware.GetClaims(c)
	actor := subscription.Actor{}
	if claims != nil {
		actor = subscription.Actor{ID: claims.UserID, Role: claims.Role}
	}

	day, err := h.subscriptionService.UpdateStatus(c.Request.Context(), id, c.Param("date"), req.Status, actor)
	switch {
	case errors.Is(err, subscription.ErrForbidden):
		fail(c, http.StatusForbidden, err.Error())
		return
	case errors.Is(err, subscription.ErrNotFound), errors.Is(err, subscription.ErrDayNotFound):
		fail(c, http.StatusNotFound, err.Error())
		return
	case errors.Is(err, subscription.ErrDayNotDeliverable), errors.Is(err, subscription.ErrInvalidTransition):
		fail(c, http.StatusConflict, err.Error())
		return
	case err != nil:
		h.logger.WithError(err).Error("failed to update delivery day")
		fail(c, http.StatusInternalServerError, "Failed to update delivery")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"day":     day,
	})
}
