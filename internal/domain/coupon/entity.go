// internal/domain/coupon/entity.go
package coupon

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DiscountType is how the discount value is interpreted
type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFlat       DiscountType = "flat"
)

// Coupon is a server-owned discount code
type Coupon struct {
	ID                   uint             `gorm:"primaryKey" json:"id"`
	Code                 string           `gorm:"uniqueIndex;not null;size:50" json:"code"`
	Description          string           `gorm:"size:255" json:"description"`
	DiscountType         DiscountType     `gorm:"not null;size:20" json:"discountType"`
	DiscountValue        decimal.Decimal  `gorm:"type:numeric(12,2);not null" json:"discountValue"`
	ApplicableProductIDs []uint           `gorm:"serializer:json;type:text" json:"applicableProductIds"`
	MinOrderAmount       decimal.Decimal  `gorm:"type:numeric(12,2);default:0" json:"minOrderAmount"`
	MaxDiscountAmount    *decimal.Decimal `gorm:"type:numeric(12,2)" json:"maxDiscountAmount,omitempty"`
	ValidFrom            *time.Time       `json:"validFrom,omitempty"`
	ValidUntil           *time.Time       `json:"validUntil,omitempty"`
	UsageLimit           int              `gorm:"default:0" json:"usageLimit"` // 0 means unlimited
	UsedCount            int              `gorm:"default:0" json:"usedCount"`
	IsActive             bool             `gorm:"default:true" json:"isActive"`
	CreatedAt            time.Time        `json:"createdAt"`
	UpdatedAt            time.Time        `json:"updatedAt"`
	DeletedAt            gorm.DeletedAt   `gorm:"index" json:"-"`
}

// TableName overrides the table name
func (Coupon) TableName() string {
	return "coupons"
}

// BeforeSave keeps codes in their canonical form
func (c *Coupon) BeforeSave(tx *gorm.DB) error {
	c.Code = NormalizeCode(c.Code)
	return nil
}

// NormalizeCode trims and uppercases a user-entered code
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// AppliesTo reports whether the coupon covers the given product id.
// An empty applicable set covers every product.
func (c *Coupon) AppliesTo(productID uint) bool {
	if len(c.ApplicableProductIDs) == 0 {
		return true
	}
	for _, id := range c.ApplicableProductIDs {
		if id == productID {
			return true
		}
	}
	return false
}

// IsUsableAt reports whether the coupon is active, in its window and not exhausted
func (c *Coupon) IsUsableAt(now time.Time) bool {
	if !c.IsActive {
		return false
	}
	if c.ValidFrom != nil && now.Before(*c.ValidFrom) {
		return false
	}
	if c.ValidUntil != nil && now.After(*c.ValidUntil) {
		return false
	}
	if c.UsageLimit > 0 && c.UsedCount >= c.UsageLimit {
		return false
	}
	return true
}

// DiscountOn computes the discount for an eligible subtotal, rounded to paise
func (c *Coupon) DiscountOn(eligibleTotal decimal.Decimal) decimal.Decimal {
	if !eligibleTotal.IsPositive() {
		return decimal.Zero
	}

	var discount decimal.Decimal
	switch c.DiscountType {
	case DiscountPercentage:
		discount = eligibleTotal.Mul(c.DiscountValue).Div(decimal.NewFromInt(100))
	case DiscountFlat:
		discount = c.DiscountValue
	default:
		return decimal.Zero
	}

	if c.MaxDiscountAmount != nil && discount.GreaterThan(*c.MaxDiscountAmount) {
		discount = *c.MaxDiscountAmount
	}
	if discount.GreaterThan(eligibleTotal) {
		discount = eligibleTotal
	}
	return discount.Round(2)
}
