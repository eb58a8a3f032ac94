// internal/interfaces/http/handlers/staff.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/fruitbox/internal/domain/staff"
	"github.com/your-org/fruitbox/internal/pkg/auth"
)

// StaffHandler handles admin and delivery-partner accounts
type StaffHandler struct {
	staffService *staff.Service
	logger       *logrus.Logger
}

// NewStaffHandler creates a new staff handler
func NewStaffHandler(staffService *staff.Service, logger *logrus.Logger) *StaffHandler {
	return &StaffHandler{
		staffService: staffService,
		logger:       logger,
	}
}

// Login handles POST /auth/staff/login
func (h *StaffHandler) Login(c *gin.Context) {
	var req staff.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	resp, err := h.staffService.Login(c.Request.Context(), &req)
	if errors.Is(err, staff.ErrInvalidCredentials) {
		fail(c, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("staff login errored")
		fail(c, http.StatusInternalServerError, "Login failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"account":     resp.Account,
		"accessToken": resp.AccessToken,
		"expiresIn":   resp.ExpiresIn,
	})
}

// CreateStaff handles POST /admin/staff
func (h *StaffHandler) CreateStaff(c *gin.Context) {
	var req staff.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	account, err := h.staffService.Create(c.Request.Context(), &req)
	switch {
	case errors.Is(err, staff.ErrEmailExists):
		fail(c, http.StatusConflict, err.Error())
		return
	case err != nil:
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"account": account,
	})
}

// ListStaff handles GET /admin/staff?role=partner
func (h *StaffHandler) ListStaff(c *gin.Context) {
	accounts, err := h.staffService.List(c.Request.Context(), auth.Role(c.Query("role")))
	if err != nil {
		h.logger.WithError(err).Error("failed to list staff")
		fail(c, http.StatusInternalServerError, "Failed to retrieve staff")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"accounts": accounts,
	})
}
