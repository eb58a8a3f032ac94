// internal/pkg/email/types.go
package email

import "context"

// Kind tags a message for logging
type Kind string

const (
	KindPaymentConfirmed Kind = "payment_confirmed"
	KindOrderStatus      Kind = "order_status"
	KindTest             Kind = "test"
)

// Message is one outgoing email
type Message struct {
	To          []string `json:"to"`
	Subject     string   `json:"subject"`
	HTMLContent string   `json:"html_content"`
	Kind        Kind     `json:"kind"`
}

// Transport delivers a rendered message
type Transport interface {
	Send(ctx context.Context, msg *Message) error
}

// TemplateData carries the fields every template shares
type TemplateData struct {
	SiteName     string
	SiteURL      string
	CustomerName string
	Year         int
}

// OrderLine is one row of the order summary table
type OrderLine struct {
	Name         string
	Quantity     int
	Total        string
	Subscription bool
}

// PaymentConfirmedData feeds the payment confirmation template
type PaymentConfirmedData struct {
	TemplateData
	OrderNumber string
	PaidOn      string
	Items       []OrderLine
	Subtotal    string
	Discount    string
	CouponCode  string
	Total       string
	HasPlan     bool
}

// OrderStatusData feeds the status update template
type OrderStatusData struct {
	TemplateData
	OrderNumber string
	Status      string
	Headline    string
}
