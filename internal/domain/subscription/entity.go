// internal/domain/subscription/entity.go
package subscription

import (
	"time"

	"github.com/google/uuid"
	"github.com/your-org/fruitbox/internal/pkg/producttype"
	"gorm.io/gorm"
)

// DayStatus is the delivery state of one calendar day
type DayStatus string

const (
	DayPending        DayStatus = "pending"
	DayOutForDelivery DayStatus = "out_for_delivery"
	DayDelivered      DayStatus = "delivered"
	DayNA             DayStatus = "NA"
)

// Status of the subscription as a whole
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// DateLayout is the calendar day format used on the wire and in storage
const DateLayout = "2006-01-02"

// Subscription is one purchased pack and its delivery calendar
type Subscription struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	OrderID     uint             `gorm:"not null;index" json:"orderId"`
	OrderItemID uint             `gorm:"not null;uniqueIndex" json:"orderItemId"`
	CustomerID  uuid.UUID        `gorm:"type:uuid;not null;index" json:"customerId"`
	ProductID   uint             `gorm:"not null" json:"productId"`
	ProductType producttype.Type `gorm:"not null;size:20" json:"type"`
	PackName    string           `gorm:"size:255" json:"packName"`
	StartDate   string           `gorm:"size:10;not null" json:"startDate"`
	EndDate     string           `gorm:"size:10;not null" json:"endDate"`
	TotalDays   int              `json:"totalDays"` // deliverable days only
	Status      Status           `gorm:"size:20;not null;default:'active'" json:"status"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
	DeletedAt   gorm.DeletedAt   `gorm:"index" json:"-"`

	Days []DeliveryDay `gorm:"foreignKey:SubscriptionID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"days,omitempty"`
}

// DeliveryDay is one calendar entry. NA days carry DayNumber 0.
type DeliveryDay struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	SubscriptionID uint       `gorm:"not null;uniqueIndex:idx_subscription_day" json:"subscriptionId"`
	Date           string     `gorm:"size:10;not null;uniqueIndex:idx_subscription_day;index" json:"date"`
	DayNumber      int        `gorm:"not null" json:"dayNumber"`
	Status         DayStatus  `gorm:"size:20;not null" json:"status"`
	UpdatedBy      string     `gorm:"size:64" json:"updatedBy,omitempty"`
	DeliveredAt    *time.Time `json:"deliveredAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// TableName overrides
func (Subscription) TableName() string { return "subscriptions" }
func (DeliveryDay) TableName() string  { return "subscription_days" }

// Deliverable reports whether the day can ever change status
func (d *DeliveryDay) Deliverable() bool {
	return d.Status != DayNA
}
