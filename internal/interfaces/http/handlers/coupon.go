// internal/interfaces/http/handlers/coupon.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/fruitbox/internal/domain/coupon"
	"github.com/your-org/fruitbox/internal/pkg/metrics"
)

// CouponHandler handles coupon endpoints
type CouponHandler struct {
	couponService *coupon.Service
	logger        *logrus.Logger
	metrics       *metrics.Metrics
}

// NewCouponHandler creates a new coupon handler
func NewCouponHandler(couponService *coupon.Service, logger *logrus.Logger, m *metrics.Metrics) *CouponHandler {
	return &CouponHandler{
		couponService: couponService,
		logger:        logger,
		metrics:       m,
	}
}

// ValidateCouponRequest is the storefront's coupon check. Cart lines carry no price.
type ValidateCouponRequest struct {
	CouponCode string        `json:"couponCode"`
	CartItems  []coupon.Line `json:"cartItems"`
}

// ValidateCoupon handles POST /coupon/validate
func (h *CouponHandler) ValidateCoupon(c *gin.Context) {
	var req ValidateCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.couponService.Validate(c.Request.Context(), req.CouponCode, req.CartItems)
	var verr *coupon.ValidationError
	if errors.As(err, &verr) {
		h.metrics.CouponChecked(verr.Reason)
		body := gin.H{
			"success": false,
			"reason":  verr.Reason,
			"message": verr.Message,
		}
		if verr.Reason == coupon.ReasonNotEligible {
			body["eligibleProducts"] = verr.EligibleProducts
		}
		c.JSON(http.StatusBadRequest, body)
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("coupon validation failed")
		fail(c, http.StatusInternalServerError, "Failed to validate coupon")
		return
	}

	h.metrics.CouponChecked("ok")
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"coupon": gin.H{
			"code":          result.Coupon.Code,
			"description":   result.Coupon.Description,
			"discountType":  result.Coupon.DiscountType,
			"discountValue": result.Coupon.DiscountValue,
		},
		"pricing":       result.Pricing,
		"eligibleItems": result.EligibleItems,
	})
}

// CreateCoupon handles POST /admin/coupons
func (h *CouponHandler) CreateCoupon(c *gin.Context) {
	var req coupon.CouponCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	created, err := h.couponService.Create(c.Request.Context(), &req)
	if err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"coupon":  created,
	})
}

// ListCoupons handles GET /admin/coupons
func (h *CouponHandler) ListCoupons(c *gin.Context) {
	coupons, err := h.couponService.List(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("failed to list coupons")
		fail(c, http.StatusInternalServerError, "Failed to retrieve coupons")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"coupons": coupons,
	})
}
