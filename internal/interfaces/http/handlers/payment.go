// internal/interfaces/http/handlers/payment.go
package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/fruitbox/internal/domain/payment"
)

// PaymentHandler handles payment verification and gateway webhooks
type PaymentHandler struct {
	paymentService *payment.Service
	logger         *logrus.Logger
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(paymentService *payment.Service, logger *logrus.Logger) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		logger:         logger,
	}
}

// VerifySecure handles POST /payment/verify-secure
func (h *PaymentHandler) VerifySecure(c *gin.Context) {
	var req payment.VerificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.paymentService.VerifySecure(c.Request.Context(), &req)
	switch {
	case errors.Is(err, payment.ErrInvalidSignature):
		fail(c, http.StatusBadRequest, "Payment verification failed")
		return
	case errors.Is(err, payment.ErrOrderNotFound):
		fail(c, http.StatusNotFound, "Order not found")
		return
	case err != nil:
		h.logger.WithError(err).WithField("razorpay_order_id", req.RazorpayOrderID).Error("payment verification errored")
		fail(c, http.StatusInternalServerError, "Failed to verify payment")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"message":         "Payment verified",
		"orderId":         result.OrderID,
		"orderNumber":     result.OrderNumber,
		"paymentId":       result.PaymentID,
		"alreadyVerified": result.AlreadyVerified,
		"subscriptionIds": result.SubscriptionIDs,
	})
}

// RazorpayWebhook handles POST /webhooks/razorpay
func (h *PaymentHandler) RazorpayWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		fail(c, http.StatusBadRequest, "Failed to read request body")
		return
	}

	err = h.paymentService.HandleWebhook(c.Request.Context(), body, c.GetHeader("X-Razorpay-Signature"))
	switch {
	case errors.Is(err, payment.ErrInvalidSignature):
		fail(c, http.StatusUnauthorized, "Invalid webhook signature")
		return
	case errors.Is(err, payment.ErrAmountMismatch):
		fail(c, http.StatusUnprocessableEntity, err.Error())
		return
	case errors.Is(err, payment.ErrOrderNotFound):
		// acknowledged so the gateway stops retrying events for orders we never created
		c.JSON(http.StatusOK, gin.H{"success": true, "ignored": true})
		return
	case err != nil:
		h.logger.WithError(err).Error("webhook processing failed")
		fail(c, http.StatusInternalServerError, "Failed to process webhook")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
