// internal/interfaces/http/handlers/customer.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/your-org/fruitbox/internal/domain/customer"
	"github.com/your-org/fruitbox/internal/interfaces/http/middleware"
	"github.com/your-org/fruitbox/internal/pkg/auth"
)

// CustomerHandler handles customer profile endpoints
type CustomerHandler struct {
	customerService *customer.Service
	logger          *logrus.Logger
}

// NewCustomerHandler creates a new customer handler
func NewCustomerHandler(customerService *customer.Service, logger *logrus.Logger) *CustomerHandler {
	return &CustomerHandler{
		customerService: customerService,
		logger:          logger,
	}
}

// CreateCustomer handles POST /customers. A customer token creates the
// profile under its own id; admins may create any profile.
func (h *CustomerHandler) CreateCustomer(c *gin.Context) {
	var req customer.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	claims, _ := middleware.GetClaims(c)
	if claims != nil && claims.Role == auth.RoleCustomer {
		id, err := uuid.Parse(claims.UserID)
		if err != nil {
			fail(c, http.StatusForbidden, "Token subject is not a customer id")
			return
		}
		if req.ID != nil && *req.ID != id {
			fail(c, http.StatusForbidden, "Cannot create another customer's profile")
			return
		}
		req.ID = &id
	}

	created, err := h.customerService.Create(c.Request.Context(), &req)
	if errors.Is(err, customer.ErrEmailExists) {
		fail(c, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("failed to create customer")
		fail(c, http.StatusInternalServerError, "Failed to create customer")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":  true,
		"customer": created,
	})
}

// GetCustomer handles GET /customers/:id
func (h *CustomerHandler) GetCustomer(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	if !canActFor(c, id, auth.RoleAdmin) {
		fail(c, http.StatusForbidden, "Access denied")
		return
	}

	cust, err := h.customerService.Get(c.Request.Context(), id)
	if errors.Is(err, customer.ErrNotFound) {
		fail(c, http.StatusNotFound, "Customer not found")
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("failed to get customer")
		fail(c, http.StatusInternalServerError, "Failed to retrieve customer")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"customer": cust,
	})
}

// UpdateCustomer handles PUT /customers/:id
func (h *CustomerHandler) UpdateCustomer(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	if !canActFor(c, id, auth.RoleAdmin) {
		fail(c, http.StatusForbidden, "Access denied")
		return
	}

	var req customer.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	updated, err := h.customerService.Update(c.Request.Context(), id, &req)
	if errors.Is(err, customer.ErrNotFound) {
		fail(c, http.StatusNotFound, "Customer not found")
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("failed to update customer")
		fail(c, http.StatusInternalServerError, "Failed to update customer")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"customer": updated,
	})
}

// DeleteCustomer handles DELETE /customers/:id
func (h *CustomerHandler) DeleteCustomer(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	if !canActFor(c, id, auth.RoleAdmin) {
		fail(c, http.StatusForbidden, "Access denied")
		return
	}

	err := h.customerService.Delete(c.Request.Context(), id)
	if errors.Is(err, customer.ErrNotFound) {
		fail(c, http.StatusNotFound, "Customer not found")
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("failed to delete customer")
		fail(c, http.StatusInternalServerError, "Failed to delete customer")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
