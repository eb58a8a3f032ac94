// internal/storefront/order/composer.go

// Package order submits the cart to the backend for pricing. Prices never
// leave the client; the backend re-prices every line from its own catalog.
package order

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"github.com/your-org/fruitbox/internal/storefront/apiclient"
	"github.com/your-org/fruitbox/internal/storefront/coupon"
)

// ErrEmptyCart is returned before any request is made
var ErrEmptyCart = errors.New("Cart is empty")

// CustomerDetails is the delivery contact sent with the order
type CustomerDetails struct {
	Name         string `json:"name" validate:"required"`
	Email        string `json:"email" validate:"required,email"`
	Phone        string `json:"phone" validate:"required,min=10,max=15"`
	AddressLine1 string `json:"addressLine1" validate:"required"`
	AddressLine2 string `json:"addressLine2,omitempty"`
	City         string `json:"city" validate:"required"`
	State        string `json:"state,omitempty"`
	Pincode      string `json:"pincode" validate:"required,numeric,len=6"`
}

// PaymentIntent is the backend's answer: what to charge and where
type PaymentIntent struct {
	OrderID         uint   `json:"id"`
	OrderNumber     string `json:"orderNumber"`
	Amount          int64  `json:"amount"` // paise
	Currency        string `json:"currency"`
	RazorpayOrderID string `json:"razorpayOrderId"`
	KeyID           string `json:"keyId"`
}

// ServerError is a rejected order. Message is what the shopper sees.
type ServerError struct {
	Status  int
	Message string
}

func (e *ServerError) Error() string {
	return e.Message
}

// DetailsError lists the customer details that failed validation
type DetailsError struct {
	Problems []string
}

func (e *DetailsError) Error() string {
	return strings.Join(e.Problems, ", ")
}

type createRequest struct {
	Cart            []Line          `json:"cart"`
	CustomerID      string          `json:"customerId"`
	CustomerDetails CustomerDetails `json:"customerDetails"`
	CouponCode      string          `json:"couponCode,omitempty"`
}

type createResponse struct {
	Order PaymentIntent `json:"order"`
}

// Composer builds and submits secure orders
type Composer struct {
	client   *apiclient.Client
	logger   *logrus.Logger
	validate *validator.Validate
}

func NewComposer(client *apiclient.Client, logger *logrus.Logger) *Composer {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" {
			return f.Name
		}
		return tag
	})
	return &Composer{client: client, logger: logger, validate: v}
}

// CreateOrder reduces raw to identities and quantities and submits it. There
// is no retry; on any failure the shopper re-submits.
func (c *Composer) CreateOrder(ctx context.Context, raw []RawLine, customerID string, details CustomerDetails, couponCode string) (*PaymentIntent, error) {
	lines := Reduce(raw)
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}
	if err := c.ValidateDetails(details); err != nil {
		return nil, err
	}

	req := createRequest{
		Cart:            lines,
		CustomerID:      customerID,
		CustomerDetails: details,
		CouponCode:      coupon.NormalizeCode(couponCode),
	}

	var out createResponse
	resp, err := c.client.Post(ctx, "/api/orders/create-secure", req, &out)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.logger.WithError(err).Warn("order creation request failed")
		return nil, fmt.Errorf("could not reach the store: %w", err)
	}

	if !resp.OK() {
		serr := &ServerError{Status: resp.Status}
		switch {
		case len(resp.Errors) > 0:
			serr.Message = strings.Join(resp.Errors, ", ")
		case resp.Message != "":
			serr.Message = resp.Message
		default:
			serr.Message = fmt.Sprintf("server error: %d", resp.Status)
		}
		c.logger.WithFields(logrus.Fields{
			"status": resp.Status,
			"reason": serr.Message,
		}).Info("order rejected")
		return nil, serr
	}

	c.logger.WithFields(logrus.Fields{
		"order_id":     out.Order.OrderID,
		"order_number": out.Order.OrderNumber,
		"amount":       out.Order.Amount,
	}).Info("order created")
	return &out.Order, nil
}

// ValidateDetails checks the contact fields before they are sent
func (c *Composer) ValidateDetails(details CustomerDetails) error {
	err := c.validate.Struct(details)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	problems := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		problems = append(problems, fe.Field()+" "+validationMessage(fe))
	}
	return &DetailsError{Problems: problems}
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "len":
		return fmt.Sprintf("must be exactly %s characters", fe.Param())
	case "numeric":
		return "must be numeric"
	}
	return "is invalid"
}
