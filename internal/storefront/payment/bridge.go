// internal/storefront/payment/bridge.go

// Package payment hands a backend-issued order to the hosted checkout widget
// and has the backend verify what the widget returns.
package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/your-org/fruitbox/internal/storefront/apiclient"
	"github.com/your-org/fruitbox/internal/storefront/order"
)

// ErrDismissed means the shopper closed the widget without paying
var ErrDismissed = errors.New("Payment cancelled")

// WidgetFailure is a failure the payment provider reported
type WidgetFailure struct {
	Code        string
	Description string
}

func (e *WidgetFailure) Error() string {
	if e.Description == "" {
		return "Payment failed"
	}
	return "Payment failed: " + e.Description
}

// VerificationError means the backend did not accept the payment proof
type VerificationError struct {
	Status  int
	Message string
}

func (e *VerificationError) Error() string {
	return e.Message
}

// WidgetResult is what the hosted checkout hands back on completion
type WidgetResult struct {
	RazorpayOrderID string `json:"razorpay_order_id"`
	PaymentID       string `json:"razorpay_payment_id"`
	Signature       string `json:"razorpay_signature"`
}

// Widget is the hosted checkout. Open blocks until the shopper pays,
// dismisses it, or ctx ends.
type Widget interface {
	Open(ctx context.Context, intent *order.PaymentIntent) (*WidgetResult, error)
}

// CartClearer empties the local cart once a payment is confirmed
type CartClearer interface {
	Clear(ctx context.Context)
}

// Confirmation is a verified payment
type Confirmation struct {
	OrderID         uint   `json:"orderId"`
	OrderNumber     string `json:"orderNumber"`
	PaymentID       string `json:"paymentId"`
	AlreadyVerified bool   `json:"alreadyVerified"`
	SubscriptionIDs []uint `json:"subscriptionIds,omitempty"`
}

// Bridge connects the widget to the verification endpoint
type Bridge struct {
	client *apiclient.Client
	widget Widget
	cart   CartClearer
	logger *logrus.Logger
}

func NewBridge(client *apiclient.Client, widget Widget, cart CartClearer, logger *logrus.Logger) *Bridge {
	return &Bridge{
		client: client,
		widget: widget,
		cart:   cart,
		logger: logger,
	}
}

// Open runs the widget for intent and verifies the result. The cart is
// cleared and onSuccess called only after the backend accepts the payment;
// every other outcome goes to onFailure with the cart untouched.
func (b *Bridge) Open(ctx context.Context, intent *order.PaymentIntent, onSuccess func(*Confirmation), onFailure func(error)) {
	conf, err := b.pay(ctx, intent, nil)
	if err != nil {
		onFailure(err)
		return
	}
	onSuccess(conf)
}

// pay is Open without callbacks. verifying, when set, is called between the
// widget closing and the verification request.
func (b *Bridge) pay(ctx context.Context, intent *order.PaymentIntent, verifying func()) (*Confirmation, error) {
	if intent == nil || intent.RazorpayOrderID == "" || intent.Amount <= 0 {
		return nil, fmt.Errorf("payment intent is incomplete")
	}

	result, err := b.widget.Open(ctx, intent)
	if err != nil {
		b.logger.WithError(err).WithField("order_id", intent.OrderID).Info("payment widget closed without payment")
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	if verifying != nil {
		verifying()
	}
	conf, err := b.Verify(ctx, result)
	if err != nil {
		return nil, err
	}

	b.cart.Clear(ctx)
	return conf, nil
}

// Verify forwards the widget's proof to the backend
func (b *Bridge) Verify(ctx context.Context, result *WidgetResult) (*Confirmation, error) {
	var out Confirmation
	resp, err := b.client.Post(ctx, "/api/payment/verify-secure", result, &out)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		b.logger.WithError(err).WithField("razorpay_order_id", result.RazorpayOrderID).Warn("payment verification request failed")
		return nil, fmt.Errorf("could not reach the store to verify payment: %w", err)
	}

	if !resp.OK() {
		msg := resp.Message
		if msg == "" {
			msg = fmt.Sprintf("server error: %d", resp.Status)
		}
		b.logger.WithFields(logrus.Fields{
			"razorpay_order_id": result.RazorpayOrderID,
			"status":            resp.Status,
		}).Warn("payment verification rejected")
		return nil, &VerificationError{Status: resp.Status, Message: msg}
	}

	b.logger.WithFields(logrus.Fields{
		"order_number": out.OrderNumber,
		"payment_id":   out.PaymentID,
	}).Info("payment verified")
	return &out, nil
}
