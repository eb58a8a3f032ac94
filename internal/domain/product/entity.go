// internal/domain/product/entity.go
package product

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/your-org/fruitbox/internal/pkg/producttype"
	"gorm.io/gorm"
)

// Product represents a catalog entry. Ids are only unique within a type,
// so the primary key is (id, type).
type Product struct {
	ID             uint             `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Type           producttype.Type `gorm:"primaryKey;size:20" json:"type"`
	Name           string           `gorm:"not null;size:255" json:"name"`
	Description    string           `gorm:"type:text" json:"description"`
	Image          string           `gorm:"size:500" json:"image"`
	Price          decimal.Decimal  `gorm:"type:numeric(12,2);not null" json:"price"`
	OriginalPrice  *decimal.Decimal `gorm:"type:numeric(12,2)" json:"originalPrice,omitempty"`
	IsSubscription bool             `gorm:"default:false" json:"isSubscription"`
	IsActive       bool             `gorm:"default:true;index" json:"isActive"`
	SortOrder      int              `gorm:"default:0" json:"sortOrder"`
	CreatedAt      time.Time        `json:"createdAt"`
	UpdatedAt      time.Time        `json:"updatedAt"`
	DeletedAt      gorm.DeletedAt   `gorm:"index" json:"-"`
}

// TableName overrides the table name
func (Product) TableName() string {
	return "products"
}

// Key identifies a product across types
type Key struct {
	ID   uint
	Type producttype.Type
}

// Key returns the product identity
func (p *Product) Key() Key {
	return Key{ID: p.ID, Type: p.Type}
}

// HasDiscount reports whether the product is shown with a struck-through price
func (p *Product) HasDiscount() bool {
	return p.OriginalPrice != nil && p.OriginalPrice.GreaterThan(p.Price)
}
