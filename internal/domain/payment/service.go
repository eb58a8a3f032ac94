// internal/domain/payment/service.go
package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/fruitbox/internal/domain/order"
	"github.com/your-org/fruitbox/internal/domain/subscription"
	"github.com/your-org/fruitbox/internal/pkg/metrics"
	"gorm.io/gorm"
)

var (
	ErrInvalidSignature = errors.New("invalid payment signature")
	ErrOrderNotFound    = errors.New("order not found for payment")
	ErrAmountMismatch   = errors.New("captured amount does not match order total")
)

// Gateway is the subset of RazorpayService the verifier needs
type Gateway interface {
	VerifySignature(orderID, paymentID, signature string) bool
	VerifyWebhookSignature(body []byte, signature string) bool
}

// CouponUsage records a redeemed coupon inside the payment transaction
type CouponUsage interface {
	RecordUsage(ctx context.Context, tx *gorm.DB, code string) error
}

// Scheduler creates delivery calendars for paid subscription lines
type Scheduler interface {
	CreateForOrder(ctx context.Context, tx *gorm.DB, ord *order.Order, paidAt time.Time) ([]subscription.Subscription, error)
}

// Notifier is told about orders whose payment was just confirmed
type Notifier interface {
	OrderPaid(ctx context.Context, ord *order.Order) error
}

// Service verifies payments and finalizes orders
type Service struct {
	db        *gorm.DB
	gateway   Gateway
	coupons   CouponUsage
	scheduler Scheduler
	notifier  Notifier
	logger    *logrus.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

// NewService creates a new payment service
func NewService(db *gorm.DB, gateway Gateway, coupons CouponUsage, scheduler Scheduler, logger *logrus.Logger, m *metrics.Metrics) *Service {
	return &Service{
		db:        db,
		gateway:   gateway,
		coupons:   coupons,
		scheduler: scheduler,
		logger:    logger,
		metrics:   m,
		now:       time.Now,
	}
}

// WithNotifier registers a receiver for payment confirmations
func (s *Service) WithNotifier(n Notifier) *Service {
	s.notifier = n
	return s
}

// VerificationRequest is what the checkout widget hands back
type VerificationRequest struct {
	RazorpayOrderID   string `json:"razorpay_order_id" binding:"required"`
	RazorpayPaymentID string `json:"razorpay_payment_id" binding:"required"`
	RazorpaySignature string `json:"razorpay_signature" binding:"required"`
}

// VerificationResult describes the finalized order
type VerificationResult struct {
	OrderID         uint   `json:"orderId"`
	OrderNumber     string `json:"orderNumber"`
	PaymentID       string `json:"paymentId"`
	AlreadyVerified bool   `json:"alreadyVerified"`
	SubscriptionIDs []uint `json:"subscriptionIds,omitempty"`
}

// VerifySecure checks the checkout signature and, when valid, marks the
// order paid. Repeated calls for a paid order succeed without side effects.
func (s *Service) VerifySecure(ctx context.Context, req *VerificationRequest) (*VerificationResult, error) {
	if !s.gateway.VerifySignature(req.RazorpayOrderID, req.RazorpayPaymentID, req.RazorpaySignature) {
		s.metrics.PaymentVerified("invalid_signature")
		s.logger.WithField("razorpay_order_id", req.RazorpayOrderID).Warn("payment signature mismatch")
		return nil, ErrInvalidSignature
	}

	result, err := s.markPaid(ctx, req.RazorpayOrderID, req.RazorpayPaymentID, "", "checkout", "")
	if err != nil {
		s.metrics.PaymentVerified("failed")
		return nil, err
	}
	s.metrics.PaymentVerified("verified")
	return result, nil
}

// WebhookEvent is the subset of a Razorpay webhook payload we act on
type WebhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity RazorpayPayment `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// HandleWebhook processes payment.captured and payment.failed. Other events
// are acknowledged and ignored.
func (s *Service) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	if !s.gateway.VerifyWebhookSignature(body, signature) {
		return ErrInvalidSignature
	}

	var event WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("failed to parse webhook: %w", err)
	}
	p := event.Payload.Payment.Entity

	log := s.logger.WithFields(logrus.Fields{
		"event":               event.Event,
		"razorpay_order_id":   p.OrderID,
		"razorpay_payment_id": p.ID,
	})

	switch event.Event {
	case "payment.captured":
		ord, err := s.findOrder(ctx, p.OrderID)
		if err != nil {
			return err
		}
		if p.Amount != ord.AmountInPaise() {
			log.WithField("amount", p.Amount).Error("captured amount mismatch")
			return ErrAmountMismatch
		}
		raw, _ := json.Marshal(p)
		if _, err := s.markPaid(ctx, p.OrderID, p.ID, p.Method, "webhook", string(raw)); err != nil {
			return err
		}
		log.Info("payment captured")
	case "payment.failed":
		if err := s.markFailed(ctx, p); err != nil {
			return err
		}
		log.WithField("reason", p.ErrorDescription).Warn("payment failed")
	default:
		log.Debug("ignoring webhook event")
	}
	return nil
}

func (s *Service) findOrder(ctx context.Context, rzpOrderID string) (*order.Order, error) {
	var ord order.Order
	err := s.db.WithContext(ctx).Preload("Items").Where("razorpay_order_id = ?", rzpOrderID).First(&ord).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	return &ord, nil
}

// markPaid confirms the order, records the payment, redeems the coupon and
// schedules subscriptions in one transaction
func (s *Service) markPaid(ctx context.Context, rzpOrderID, paymentID, method, source, gatewayResponse string) (*VerificationResult, error) {
	ord, err := s.findOrder(ctx, rzpOrderID)
	if err != nil {
		return nil, err
	}

	result := &VerificationResult{
		OrderID:     ord.ID,
		OrderNumber: ord.OrderNumber,
		PaymentID:   paymentID,
	}
	if ord.IsPaid() {
		result.AlreadyVerified = true
		result.PaymentID = ord.RazorpayPaymentID
		return result, nil
	}

	paidAt := s.now().UTC()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&order.Order{}).
			Where("id = ? AND payment_status <> ?", ord.ID, order.PaymentStatusPaid).
			Updates(map[string]interface{}{
				"status":              order.OrderStatusConfirmed,
				"payment_status":      order.PaymentStatusPaid,
				"razorpay_payment_id": paymentID,
				"paid_at":             paidAt,
			})
		if res.Error != nil {
			return fmt.Errorf("failed to confirm order: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			// another verifier won the race
			result.AlreadyVerified = true
			return nil
		}

		if err := tx.Create(&order.Payment{
			OrderID:           ord.ID,
			Gateway:           "razorpay",
			ProviderOrderID:   rzpOrderID,
			ProviderPaymentID: paymentID,
			Method:            method,
			Amount:            ord.TotalAmount,
			Currency:          ord.Currency,
			Status:            order.PaymentStatusPaid,
			Source:            source,
			GatewayResponse:   gatewayResponse,
			ProcessedAt:       &paidAt,
		}).Error; err != nil {
			return fmt.Errorf("failed to record payment: %w", err)
		}

		if err := tx.Create(&order.OrderStatusHistory{
			OrderID:   ord.ID,
			Status:    order.OrderStatusConfirmed,
			Comment:   fmt.Sprintf("Payment %s verified via %s", paymentID, source),
			CreatedBy: "system",
			CreatedAt: paidAt,
		}).Error; err != nil {
			return fmt.Errorf("failed to create status history: %w", err)
		}

		if ord.CouponCode != "" {
			if err := s.coupons.RecordUsage(ctx, tx, ord.CouponCode); err != nil {
				return err
			}
		}

		if ord.HasSubscription() {
			subs, err := s.scheduler.CreateForOrder(ctx, tx, ord, paidAt)
			if err != nil {
				return err
			}
			for _, sub := range subs {
				result.SubscriptionIDs = append(result.SubscriptionIDs, sub.ID)
			}
		}
		return nil
	})
	if err != nil {
		s.logger.WithError(err).WithField("order_id", ord.ID).Error("failed to finalize payment")
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"order_id":            ord.ID,
		"razorpay_payment_id": paymentID,
		"source":              source,
		"subscriptions":       len(result.SubscriptionIDs),
	}).Info("payment verified")

	if s.notifier != nil && !result.AlreadyVerified {
		ord.Status = order.OrderStatusConfirmed
		ord.PaymentStatus = order.PaymentStatusPaid
		ord.RazorpayPaymentID = paymentID
		ord.PaidAt = &paidAt
		if err := s.notifier.OrderPaid(ctx, ord); err != nil {
			s.logger.WithError(err).WithField("order_id", ord.ID).Warn("payment confirmation email failed")
		}
	}

	return result, nil
}

func (s *Service) markFailed(ctx context.Context, p RazorpayPayment) error {
	ord, err := s.findOrder(ctx, p.OrderID)
	if err != nil {
		return err
	}
	if ord.IsPaid() {
		return nil
	}

	raw, _ := json.Marshal(p)
	now := s.now().UTC()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&order.Order{}).
			Where("id = ? AND payment_status <> ?", ord.ID, order.PaymentStatusPaid).
			Update("payment_status", order.PaymentStatusFailed).Error; err != nil {
			return fmt.Errorf("failed to mark payment failed: %w", err)
		}

		var existing int64
		if err := tx.Model(&order.Payment{}).Where("provider_payment_id = ?", p.ID).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return nil
		}
		return tx.Create(&order.Payment{
			OrderID:           ord.ID,
			Gateway:           "razorpay",
			ProviderOrderID:   p.OrderID,
			ProviderPaymentID: p.ID,
			Method:            p.Method,
			Amount:            ord.TotalAmount,
			Currency:          ord.Currency,
			Status:            order.PaymentStatusFailed,
			Source:            "webhook",
			GatewayResponse:   string(raw),
			ProcessedAt:       &now,
		}).Error
	})
}
