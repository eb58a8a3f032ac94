// internal/storefront/coupon/evaluator.go

// Package coupon applies discount codes to the local cart. The backend does
// all the pricing; this package only carries its answer to the screen.
package coupon

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/fruitbox/internal/pkg/producttype"
	"github.com/your-org/fruitbox/internal/storefront/apiclient"
	"github.com/your-org/fruitbox/internal/storefront/cartstore"
)

const (
	ReasonInvalidCode = "invalid_code"
	ReasonNotEligible = "not_eligible"
	ReasonMinOrder    = "min_order_not_met"
	ReasonNetwork     = "network"
)

// ErrStaleResponse means the cart changed, or a newer code was tried, while
// the request was in flight. The answer was thrown away.
var ErrStaleResponse = errors.New("coupon response is stale")

// EligibleProduct is one product the rejected code would have applied to
type EligibleProduct struct {
	ID   int              `json:"id"`
	Type producttype.Type `json:"type,omitempty"`
	Name string           `json:"name,omitempty"`
}

// Error is a rejection to show verbatim
type Error struct {
	Reason           string
	Message          string
	EligibleProducts []EligibleProduct
}

func (e *Error) Error() string {
	return e.Message
}

// EligibleItem is a cart line the discount covers, priced by the backend
type EligibleItem struct {
	ProductID int              `json:"productId"`
	Type      producttype.Type `json:"type"`
	Name      string           `json:"name"`
	Quantity  int              `json:"quantity"`
	UnitPrice decimal.Decimal  `json:"unitPrice"`
	LineTotal decimal.Decimal  `json:"lineTotal"`
}

// Applied is the projection of an accepted code
type Applied struct {
	Code           string
	Description    string
	DiscountAmount decimal.Decimal
	EligibleTotal  decimal.Decimal
	OriginalTotal  decimal.Decimal
	FinalTotal     decimal.Decimal
	EligibleItems  []EligibleItem
}

type validateLine struct {
	ProductID int              `json:"productId"`
	Type      producttype.Type `json:"type"`
	Quantity  int              `json:"quantity"`
}

type validateRequest struct {
	CouponCode string         `json:"couponCode"`
	CartItems  []validateLine `json:"cartItems"`
}

type validateResponse struct {
	Success bool `json:"success"`
	Coupon  struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"coupon"`
	Pricing struct {
		DiscountAmount decimal.Decimal `json:"discountAmount"`
		EligibleTotal  decimal.Decimal `json:"eligibleTotal"`
		OriginalTotal  decimal.Decimal `json:"originalTotal"`
		FinalTotal     decimal.Decimal `json:"finalTotal"`
	} `json:"pricing"`
	EligibleItems []EligibleItem `json:"eligibleItems"`
}

type rejection struct {
	Reason           string            `json:"reason"`
	Message          string            `json:"message"`
	EligibleProducts []EligibleProduct `json:"eligibleProducts"`
}

// Evaluator asks the backend what a code is worth for a cart
type Evaluator struct {
	client *apiclient.Client
	logger *logrus.Logger
}

func NewEvaluator(client *apiclient.Client, logger *logrus.Logger) *Evaluator {
	return &Evaluator{client: client, logger: logger}
}

// NormalizeCode trims and uppercases a code as typed
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Apply validates code against lines. Only identities and quantities are
// sent; display prices stay on the client.
func (e *Evaluator) Apply(ctx context.Context, code string, lines []cartstore.CartLine) (*Applied, error) {
	code = NormalizeCode(code)
	if code == "" {
		return nil, &Error{Reason: ReasonInvalidCode, Message: "Please enter a coupon code"}
	}

	req := validateRequest{CouponCode: code, CartItems: make([]validateLine, 0, len(lines))}
	for _, l := range lines {
		req.CartItems = append(req.CartItems, validateLine{ProductID: l.ProductID, Type: l.Type, Quantity: l.Quantity})
	}

	var out validateResponse
	resp, err := e.client.Post(ctx, "/api/coupon/validate", req, &out)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		e.logger.WithError(err).WithField("code", code).Warn("coupon validation failed")
		return nil, &Error{Reason: ReasonNetwork, Message: "Could not validate the coupon, please try again"}
	}

	if !resp.OK() {
		return nil, rejectionFrom(resp)
	}

	return &Applied{
		Code:           out.Coupon.Code,
		Description:    out.Coupon.Description,
		DiscountAmount: out.Pricing.DiscountAmount,
		EligibleTotal:  out.Pricing.EligibleTotal,
		OriginalTotal:  out.Pricing.OriginalTotal,
		FinalTotal:     out.Pricing.FinalTotal,
		EligibleItems:  out.EligibleItems,
	}, nil
}

func rejectionFrom(resp *apiclient.Response) *Error {
	var rej rejection
	_ = json.Unmarshal(resp.Body, &rej)

	if rej.Message == "" {
		rej.Message = resp.Message
	}
	if rej.Reason == "" || rej.Message == "" {
		msg := rej.Message
		if msg == "" {
			msg = "Could not validate the coupon, please try again"
		}
		return &Error{Reason: ReasonNetwork, Message: msg}
	}
	return &Error{
		Reason:           rej.Reason,
		Message:          rej.Message,
		EligibleProducts: rej.EligibleProducts,
	}
}
