// internal/domain/coupon/service.go
package coupon

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/fruitbox/internal/domain/product"
	"github.com/your-org/fruitbox/internal/pkg/producttype"
	"gorm.io/gorm"
)

// Error reasons returned to clients
const (
	ReasonInvalidCode = "invalid_code"
	ReasonNotEligible = "not_eligible"
	ReasonMinOrder    = "min_order_not_met"
)

// ErrInvalidCode is the sentinel wrapped by every invalid-code ValidationError
var ErrInvalidCode = errors.New("invalid coupon code")

// EligibleProduct is echoed back when a coupon does not cover the cart
type EligibleProduct struct {
	ID   uint             `json:"id"`
	Type producttype.Type `json:"type,omitempty"`
	Name string           `json:"name,omitempty"`
}

// ValidationError is a rejection the user should see verbatim
type ValidationError struct {
	Reason           string
	Message          string
	EligibleProducts []EligibleProduct
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Unwrap lets callers match invalid codes with errors.Is
func (e *ValidationError) Unwrap() error {
	if e.Reason == ReasonInvalidCode {
		return ErrInvalidCode
	}
	return nil
}

// Line is one cart line as submitted for validation; any client price is ignored
type Line struct {
	ProductID uint             `json:"productId"`
	Type      producttype.Type `json:"type"`
	Quantity  int              `json:"quantity"`
}

// EligibleItem is a priced line the discount applies to
type EligibleItem struct {
	ProductID uint             `json:"productId"`
	Type      producttype.Type `json:"type"`
	Name      string           `json:"name"`
	Quantity  int              `json:"quantity"`
	UnitPrice decimal.Decimal  `json:"unitPrice"`
	LineTotal decimal.Decimal  `json:"lineTotal"`
}

// Pricing is the server-computed result of applying a coupon
type Pricing struct {
	DiscountAmount decimal.Decimal `json:"discountAmount"`
	EligibleTotal  decimal.Decimal `json:"eligibleTotal"`
	OriginalTotal  decimal.Decimal `json:"originalTotal"`
	FinalTotal     decimal.Decimal `json:"finalTotal"`
}

// Result bundles the coupon, pricing and eligible lines
type Result struct {
	Coupon        *Coupon        `json:"coupon"`
	Pricing       Pricing        `json:"pricing"`
	EligibleItems []EligibleItem `json:"eligibleItems"`
}

// PriceSource resolves authoritative catalog prices
type PriceSource interface {
	PriceIndex(ctx context.Context, keys []product.Key) (map[product.Key]product.Product, error)
}

// Service handles coupon business logic
type Service struct {
	db     *gorm.DB
	prices PriceSource
	logger *logrus.Logger
	now    func() time.Time
}

// NewService creates a new coupon service
func NewService(db *gorm.DB, prices PriceSource, logger *logrus.Logger) *Service {
	return &Service{
		db:     db,
		prices: prices,
		logger: logger,
		now:    time.Now,
	}
}

// CouponCreateRequest represents coupon creation data
type CouponCreateRequest struct {
	Code                 string           `json:"code" binding:"required"`
	Description          string           `json:"description"`
	DiscountType         DiscountType     `json:"discountType" binding:"required,oneof=percentage flat"`
	DiscountValue        decimal.Decimal  `json:"discountValue"`
	ApplicableProductIDs []uint           `json:"applicableProductIds"`
	MinOrderAmount       decimal.Decimal  `json:"minOrderAmount"`
	MaxDiscountAmount    *decimal.Decimal `json:"maxDiscountAmount"`
	ValidFrom            *time.Time       `json:"validFrom"`
	ValidUntil           *time.Time       `json:"validUntil"`
	UsageLimit           int              `json:"usageLimit"`
}

// Create stores a new coupon
func (s *Service) Create(ctx context.Context, req *CouponCreateRequest) (*Coupon, error) {
	if !req.DiscountValue.IsPositive() {
		return nil, fmt.Errorf("discount value must be greater than 0")
	}
	if req.DiscountType == DiscountPercentage && req.DiscountValue.GreaterThan(decimal.NewFromInt(100)) {
		return nil, fmt.Errorf("percentage discount cannot exceed 100")
	}
	if req.ValidFrom != nil && req.ValidUntil != nil && req.ValidUntil.Before(*req.ValidFrom) {
		return nil, fmt.Errorf("validUntil must be after validFrom")
	}

	c := Coupon{
		Code:                 req.Code,
		Description:          req.Description,
		DiscountType:         req.DiscountType,
		DiscountValue:        req.DiscountValue,
		ApplicableProductIDs: req.ApplicableProductIDs,
		MinOrderAmount:       req.MinOrderAmount,
		MaxDiscountAmount:    req.MaxDiscountAmount,
		ValidFrom:            req.ValidFrom,
		ValidUntil:           req.ValidUntil,
		UsageLimit:           req.UsageLimit,
		IsActive:             true,
	}

	if err := s.db.WithContext(ctx).Create(&c).Error; err != nil {
		return nil, fmt.Errorf("failed to create coupon: %w", err)
	}
	return &c, nil
}

// List returns every coupon, newest first
func (s *Service) List(ctx context.Context) ([]Coupon, error) {
	var coupons []Coupon
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&coupons).Error; err != nil {
		return nil, fmt.Errorf("failed to list coupons: %w", err)
	}
	return coupons, nil
}

// Validate prices the lines from the catalog and applies the coupon.
// Lines that do not resolve to an active product are ignored here; order
// creation rejects them separately.
func (s *Service) Validate(ctx context.Context, code string, lines []Line) (*Result, error) {
	code = NormalizeCode(code)
	if code == "" {
		return nil, &ValidationError{Reason: ReasonInvalidCode, Message: "Invalid coupon code"}
	}

	var c Coupon
	err := s.db.WithContext(ctx).Where("code = ?", code).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &ValidationError{Reason: ReasonInvalidCode, Message: "Invalid coupon code"}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load coupon: %w", err)
	}

	if !c.IsUsableAt(s.now()) {
		return nil, &ValidationError{Reason: ReasonInvalidCode, Message: "Coupon is expired or no longer available"}
	}

	keys := make([]product.Key, 0, len(lines))
	for _, l := range lines {
		keys = append(keys, product.Key{ID: l.ProductID, Type: l.Type})
	}
	index, err := s.prices.PriceIndex(ctx, keys)
	if err != nil {
		return nil, err
	}

	result := &Result{Coupon: &c}
	originalTotal := decimal.Zero
	eligibleTotal := decimal.Zero

	for _, l := range lines {
		prod, ok := index[product.Key{ID: l.ProductID, Type: l.Type}]
		if !ok || l.Quantity < 1 {
			continue
		}
		lineTotal := prod.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
		originalTotal = originalTotal.Add(lineTotal)

		if c.AppliesTo(l.ProductID) {
			eligibleTotal = eligibleTotal.Add(lineTotal)
			result.EligibleItems = append(result.EligibleItems, EligibleItem{
				ProductID: prod.ID,
				Type:      prod.Type,
				Name:      prod.Name,
				Quantity:  l.Quantity,
				UnitPrice: prod.Price,
				LineTotal: lineTotal,
			})
		}
	}

	if len(result.EligibleItems) == 0 {
		return nil, &ValidationError{
			Reason:           ReasonNotEligible,
			Message:          "Coupon is not eligible for these items",
			EligibleProducts: s.eligibleProducts(ctx, &c),
		}
	}

	if c.MinOrderAmount.IsPositive() && originalTotal.LessThan(c.MinOrderAmount) {
		return nil, &ValidationError{
			Reason:  ReasonMinOrder,
			Message: fmt.Sprintf("Minimum order amount for this coupon is %s", c.MinOrderAmount.StringFixed(2)),
		}
	}

	discount := c.DiscountOn(eligibleTotal)
	result.Pricing = Pricing{
		DiscountAmount: discount,
		EligibleTotal:  eligibleTotal,
		OriginalTotal:  originalTotal,
		FinalTotal:     originalTotal.Sub(discount),
	}

	s.logger.WithFields(logrus.Fields{
		"coupon":   c.Code,
		"discount": discount.StringFixed(2),
		"eligible": len(result.EligibleItems),
	}).Debug("coupon validated")

	return result, nil
}

// RecordUsage increments the usage counter once a payment is verified
func (s *Service) RecordUsage(ctx context.Context, tx *gorm.DB, code string) error {
	code = NormalizeCode(code)
	if code == "" {
		return nil
	}
	if tx == nil {
		tx = s.db
	}
	err := tx.WithContext(ctx).Model(&Coupon{}).
		Where("code = ?", code).
		UpdateColumn("used_count", gorm.Expr("used_count + ?", 1)).Error
	if err != nil {
		return fmt.Errorf("failed to record coupon usage: %w", err)
	}
	return nil
}

func (s *Service) eligibleProducts(ctx context.Context, c *Coupon) []EligibleProduct {
	out := make([]EligibleProduct, 0, len(c.ApplicableProductIDs))
	if len(c.ApplicableProductIDs) == 0 {
		return out
	}

	var products []product.Product
	err := s.db.WithContext(ctx).
		Where("id IN ? AND is_active = ?", c.ApplicableProductIDs, true).
		Order("id ASC").
		Find(&products).Error
	if err != nil {
		s.logger.WithError(err).Warn("failed to load eligible products")
	}

	named := make(map[uint]bool, len(products))
	for _, p := range products {
		named[p.ID] = true
		out = append(out, EligibleProduct{ID: p.ID, Type: p.Type, Name: p.Name})
	}
	for _, id := range c.ApplicableProductIDs {
		if !named[id] {
			out = append(out, EligibleProduct{ID: id})
		}
	}
	return out
}
