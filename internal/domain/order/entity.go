// internal/domain/order/entity.go
package order

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/your-org/fruitbox/internal/domain/customer"
	"github.com/your-org/fruitbox/internal/pkg/producttype"
	"gorm.io/gorm"
)

// OrderStatus represents the order status
type OrderStatus string

const (
	OrderStatusPending        OrderStatus = "pending"
	OrderStatusConfirmed      OrderStatus = "confirmed"
	OrderStatusOutForDelivery OrderStatus = "out_for_delivery"
	OrderStatusDelivered      OrderStatus = "delivered"
	OrderStatusCancelled      OrderStatus = "cancelled"
	OrderStatusRefunded       OrderStatus = "refunded"
)

// PaymentStatus represents payment status
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// Order is a server-priced order awaiting or holding a Razorpay payment
type Order struct {
	ID            uint          `gorm:"primaryKey" json:"id"`
	OrderNumber   string        `gorm:"uniqueIndex;size:50" json:"orderNumber"`
	CustomerID    uuid.UUID     `gorm:"type:uuid;index;not null" json:"customerId"`
	Status        OrderStatus   `gorm:"not null;size:30;default:'pending'" json:"status"`
	PaymentStatus PaymentStatus `gorm:"not null;size:30;default:'pending'" json:"paymentStatus"`

	// Amounts in rupees
	SubtotalAmount decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"subtotalAmount"`
	DiscountAmount decimal.Decimal `gorm:"type:numeric(12,2);default:0" json:"discountAmount"`
	TotalAmount    decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"totalAmount"`
	Currency       string          `gorm:"size:3;default:'INR'" json:"currency"`
	CouponCode     string          `gorm:"size:50" json:"couponCode,omitempty"`

	Customer customer.Details `gorm:"embedded;embeddedPrefix:customer_" json:"customerDetails"`

	RazorpayOrderID   string `gorm:"size:64;index" json:"razorpayOrderId"`
	RazorpayPaymentID string `gorm:"size:64" json:"razorpayPaymentId,omitempty"`

	PaidAt      *time.Time     `json:"paidAt,omitempty"`
	DeliveredAt *time.Time     `json:"deliveredAt,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	Items         []OrderItem          `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"items"`
	Payments      []Payment            `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"payments,omitempty"`
	StatusHistory []OrderStatusHistory `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"statusHistory,omitempty"`
}

// OrderItem is one re-priced line of an order
type OrderItem struct {
	ID             uint             `gorm:"primaryKey" json:"id"`
	OrderID        uint             `gorm:"not null;index" json:"orderId"`
	ProductID      uint             `gorm:"not null" json:"productId"`
	ProductType    producttype.Type `gorm:"not null;size:20" json:"type"`
	Name           string           `gorm:"not null;size:255" json:"name"`
	Quantity       int              `gorm:"not null" json:"quantity"`
	UnitPrice      decimal.Decimal  `gorm:"type:numeric(12,2);not null" json:"unitPrice"`
	TotalPrice     decimal.Decimal  `gorm:"type:numeric(12,2);not null" json:"totalPrice"`
	IsSubscription bool             `gorm:"default:false" json:"isSubscription"`
	CreatedAt      time.Time        `json:"createdAt"`
	UpdatedAt      time.Time        `json:"updatedAt"`
}

// Payment records a gateway transaction against an order
type Payment struct {
	ID                uint            `gorm:"primaryKey" json:"id"`
	OrderID           uint            `gorm:"not null;index" json:"orderId"`
	Gateway           string          `gorm:"size:50;default:'razorpay'" json:"gateway"`
	ProviderOrderID   string          `gorm:"size:64" json:"providerOrderId"`
	ProviderPaymentID string          `gorm:"size:64;index" json:"providerPaymentId"`
	Method            string          `gorm:"size:50" json:"method,omitempty"`
	Amount            decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	Currency          string          `gorm:"size:3;default:'INR'" json:"currency"`
	Status            PaymentStatus   `gorm:"not null;size:30" json:"status"`
	Source            string          `gorm:"size:20" json:"source"` // checkout or webhook
	GatewayResponse   string          `gorm:"type:text" json:"-"`
	ProcessedAt       *time.Time      `json:"processedAt,omitempty"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

// OrderStatusHistory tracks order status changes
type OrderStatusHistory struct {
	ID        uint        `gorm:"primaryKey" json:"id"`
	OrderID   uint        `gorm:"not null;index" json:"orderId"`
	Status    OrderStatus `gorm:"not null;size:30" json:"status"`
	Comment   string      `gorm:"type:text" json:"comment"`
	CreatedBy string      `gorm:"size:64" json:"createdBy"`
	CreatedAt time.Time   `json:"createdAt"`
}

// TableName overrides
func (Order) TableName() string              { return "orders" }
func (OrderItem) TableName() string          { return "order_items" }
func (Payment) TableName() string            { return "payments" }
func (OrderStatusHistory) TableName() string { return "order_status_history" }

// GenerateOrderNumber formats ORD-YYYYMMDD-XXXXXXXX; it is assigned before
// insert so the unique index never sees an empty value
func GenerateOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("ORD-%s-%s", now.Format("20060102"), suffix)
}

// AmountInPaise converts the total to the smallest currency unit
func (o *Order) AmountInPaise() int64 {
	return ToPaise(o.TotalAmount)
}

// ToPaise converts rupees to paise, rounding half away from zero
func ToPaise(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// IsPaid reports whether a payment has been verified for the order
func (o *Order) IsPaid() bool {
	return o.PaymentStatus == PaymentStatusPaid
}

// HasSubscription reports whether any line is a subscription pack
func (o *Order) HasSubscription() bool {
	for _, item := range o.Items {
		if item.IsSubscription {
			return true
		}
	}
	return false
}

// CanBeCancelled checks if order can be cancelled
func (o *Order) CanBeCancelled() bool {
	return o.Status == OrderStatusPending || o.Status == OrderStatusConfirmed
}

// AddStatusHistory adds a new status change to history
func (o *Order) AddStatusHistory(status OrderStatus, comment, createdBy string) {
	o.StatusHistory = append(o.StatusHistory, OrderStatusHistory{
		OrderID:   o.ID,
		Status:    status,
		Comment:   comment,
		CreatedBy: createdBy,
		CreatedAt: time.Now().UTC(),
	})
}
