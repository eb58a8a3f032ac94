// internal/interfaces/http/handlers/order.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/your-org/fruitbox/internal/domain/order"
	"github.com/your-org/fruitbox/internal/interfaces/http/middleware"
	"github.com/your-org/fruitbox/internal/pkg/auth"
)

// OrderHandler handles order endpoints
type OrderHandler struct {
	orderService *order.Service
	logger       *logrus.Logger
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(orderService *order.Service, logger *logrus.Logger) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		logger:       logger,
	}
}

// CreateSecureOrder handles POST /orders/create-secure
func (h *OrderHandler) CreateSecureOrder(c *gin.Context) {
	var req order.CreateSecureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	customerID, err := uuid.Parse(req.CustomerID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"errors":  []string{"customerId is not a valid id"},
		})
		return
	}
	if !canActFor(c, customerID, auth.RoleAdmin) {
		fail(c, http.StatusForbidden, "Cannot place orders for another customer")
		return
	}

	_, intent, err := h.orderService.CreateSecure(c.Request.Context(), &req)
	var verr *order.ValidationError
	switch {
	case errors.Is(err, order.ErrEmptyCart):
		fail(c, http.StatusBadRequest, "Cart is empty")
		return
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"errors":  verr.Errors,
		})
		return
	case err != nil:
		fail(c, http.StatusBadGateway, "Failed to create order")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"order":   intent,
	})
}

// GetOrder handles GET /orders/:id
func (h *OrderHandler) GetOrder(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	ord, err := h.orderService.GetOrder(c.Request.Context(), id)
	if errors.Is(err, order.ErrNotFound) {
		fail(c, http.StatusNotFound, "Order not found")
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("failed to get order")
		fail(c, http.StatusInternalServerError, "Failed to retrieve order")
		return
	}

	// other customers get a 404 rather than learning the id exists
	if !canActFor(c, ord.CustomerID, auth.RoleAdmin) {
		fail(c, http.StatusNotFound, "Order not found")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"order":   ord,
	})
}

// GetCustomerOrders handles GET /customers/:id/orders
func (h *OrderHandler) GetCustomerOrders(c *gin.Context) {
	customerID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	if !canActFor(c, customerID, auth.RoleAdmin) {
		fail(c, http.StatusForbidden, "Access denied")
		return
	}

	page, limit := pageParams(c)
	response, err := h.orderService.GetCustomerOrders(c.Request.Context(), customerID, page, limit)
	if err != nil {
		h.logger.WithError(err).Error("failed to list customer orders")
		fail(c, http.StatusInternalServerError, "Failed to retrieve orders")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"orders":     response.Orders,
		"pagination": response.Pagination,
	})
}

// ListOrders handles GET /admin/orders
func (h *OrderHandler) ListOrders(c *gin.Context) {
	var req order.OrderListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, err)
		return
	}

	response, err := h.orderService.GetOrders(c.Request.Context(), &req)
	if err != nil {
		h.logger.WithError(err).Error("failed to list orders")
		fail(c, http.StatusInternalServerError, "Failed to retrieve orders")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"orders":     response.Orders,
		"pagination": response.Pagination,
	})
}

// UpdateStatusRequest is an admin fulfilment update
type UpdateStatusRequest struct {
	Status  order.OrderStatus `json:"status" binding:"required"`
	Comment string            `json:"comment"`
}

// UpdateOrderStatus handles PATCH /admin/orders/:id/status
func (h *OrderHandler) UpdateOrderStatus(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	adminID, _ := middleware.GetUserIDFromContext(c)
	ord, err := h.orderService.UpdateOrderStatus(c.Request.Context(), id, req.Status, req.Comment, adminID)
	switch {
	case errors.Is(err, order.ErrNotFound):
		fail(c, http.StatusNotFound, "Order not found")
		return
	case errors.Is(err, order.ErrInvalidStatusTransition):
		fail(c, http.StatusConflict, err.Error())
		return
	case err != nil:
		h.logger.WithError(err).Error("failed to update order status")
		fail(c, http.StatusInternalServerError, "Failed to update order status")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"order":   ord,
	})
}
