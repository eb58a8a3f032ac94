// internal/pkg/email/service.go
package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/fruitbox/internal/config"
	"github.com/your-org/fruitbox/internal/domain/order"
)

// Service renders order notifications and hands them to the configured transport
type Service struct {
	cfg       config.EmailConfig
	transport Transport
	templates map[Kind]*template.Template
	logger    *logrus.Logger
	now       func() time.Time
}

// NewService picks the transport named by EMAIL_PROVIDER
func NewService(cfg *config.Config, logger *logrus.Logger) *Service {
	var t Transport
	switch cfg.Email.Provider {
	case "smtp":
		t = NewSMTPTransport(cfg.Email)
	case "resend":
		t = NewResendTransport(cfg.Email, &http.Client{Timeout: 30 * time.Second})
	default:
		t = NewLogTransport(logger)
	}
	return NewServiceWithTransport(cfg.Email, t, logger)
}

// NewServiceWithTransport builds a service around an explicit transport
func NewServiceWithTransport(cfg config.EmailConfig, t Transport, logger *logrus.Logger) *Service {
	return &Service{
		cfg:       cfg,
		transport: t,
		templates: map[Kind]*template.Template{
			KindPaymentConfirmed: template.Must(template.New("paid").Parse(paymentConfirmedTemplate)),
			KindOrderStatus:      template.Must(template.New("status").Parse(orderStatusTemplate)),
		},
		logger: logger,
		now:    time.Now,
	}
}

// Send delivers a message as is
func (s *Service) Send(ctx context.Context, msg *Message) error {
	if len(msg.To) == 0 {
		return fmt.Errorf("email has no recipients")
	}
	if err := s.transport.Send(ctx, msg); err != nil {
		return fmt.Errorf("failed to send %s email: %w", msg.Kind, err)
	}
	s.logger.WithFields(logrus.Fields{
		"kind": msg.Kind,
		"to":   msg.To,
	}).Debug("email sent")
	return nil
}

// OrderPaid tells the customer their payment went through
func (s *Service) OrderPaid(ctx context.Context, ord *order.Order) error {
	if ord.Customer.Email == "" {
		return nil
	}

	data := PaymentConfirmedData{
		TemplateData: s.base(ord.Customer.Name),
		OrderNumber:  ord.OrderNumber,
		Subtotal:     ord.SubtotalAmount.StringFixed(2),
		Total:        ord.TotalAmount.StringFixed(2),
		CouponCode:   ord.CouponCode,
		HasPlan:      ord.HasSubscription(),
	}
	if ord.DiscountAmount.IsPositive() {
		data.Discount = ord.DiscountAmount.StringFixed(2)
	}
	paidAt := s.now()
	if ord.PaidAt != nil {
		paidAt = *ord.PaidAt
	}
	data.PaidOn = paidAt.Format("2 January 2006")
	for _, item := range ord.Items {
		data.Items = append(data.Items, OrderLine{
			Name:         item.Name,
			Quantity:     item.Quantity,
			Total:        item.TotalPrice.StringFixed(2),
			Subscription: item.IsSubscription,
		})
	}

	html, err := s.render(KindPaymentConfirmed, data)
	if err != nil {
		return err
	}
	return s.Send(ctx, &Message{
		To:          []string{ord.Customer.Email},
		Subject:     fmt.Sprintf("Payment received for order %s", ord.OrderNumber),
		HTMLContent: html,
		Kind:        KindPaymentConfirmed,
	})
}

var statusHeadlines = map[order.OrderStatus]string{
	order.OrderStatusOutForDelivery: "Your fruit is on its way",
	order.OrderStatusDelivered:      "Your order has been delivered",
	order.OrderStatusCancelled:      "Your order has been cancelled",
	order.OrderStatusRefunded:       "Your refund has been issued",
}

// OrderStatusChanged notifies the customer of fulfilment progress. Statuses
// without a headline are not worth an email.
func (s *Service) OrderStatusChanged(ctx context.Context, ord *order.Order) error {
	headline, ok := statusHeadlines[ord.Status]
	if !ok || ord.Customer.Email == "" {
		return nil
	}

	html, err := s.render(KindOrderStatus, OrderStatusData{
		TemplateData: s.base(ord.Customer.Name),
		OrderNumber:  ord.OrderNumber,
		Status:       string(ord.Status),
		Headline:     headline,
	})
	if err != nil {
		return err
	}
	return s.Send(ctx, &Message{
		To:          []string{ord.Customer.Email},
		Subject:     fmt.Sprintf("%s (%s)", headline, ord.OrderNumber),
		HTMLContent: html,
		Kind:        KindOrderStatus,
	})
}

func (s *Service) base(name string) TemplateData {
	return TemplateData{
		SiteName:     s.cfg.FromName,
		SiteURL:      s.cfg.SiteURL,
		CustomerName: name,
		Year:         s.now().Year(),
	}
}

func (s *Service) render(kind Kind, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := s.templates[kind].Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render %s template: %w", kind, err)
	}
	return buf.String(), nil
}

const paymentConfirmedTemplate = `<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"><title>{{.SiteName}}</title></head>
<body style="font-family: Arial, sans-serif; background-color: #f4f4f4; padding: 20px;">
  <div style="max-width: 600px; margin: 0 auto; background-color: white; padding: 20px; border-radius: 8px;">
    <h1 style="color: #2e7d32;">{{.SiteName}}</h1>
    <p>Hello {{.CustomerName}},</p>
    <p>We received your payment for order <strong>{{.OrderNumber}}</strong> on {{.PaidOn}}.</p>
    <table style="width: 100%; border-collapse: collapse;">
      <tr><th align="left">Item</th><th align="right">Qty</th><th align="right">Amount</th></tr>
      {{range .Items}}<tr>
        <td>{{.Name}}{{if .Subscription}} (subscription){{end}}</td>
        <td align="right">{{.Quantity}}</td>
        <td align="right">&#8377;{{.Total}}</td>
      </tr>{{end}}
    </table>
    <p>Subtotal: &#8377;{{.Subtotal}}</p>
    {{if .Discount}}<p>Discount{{if .CouponCode}} ({{.CouponCode}}){{end}}: -&#8377;{{.Discount}}</p>{{end}}
    <p><strong>Total paid: &#8377;{{.Total}}</strong></p>
    {{if .HasPlan}}<p>Your subscription deliveries start tomorrow. You can see the calendar at <a href="{{.SiteURL}}/subscriptions">{{.SiteURL}}/subscriptions</a>.</p>{{end}}
    <hr>
    <p style="font-size: 12px; color: #666;">&copy; {{.Year}} {{.SiteName}}</p>
  </div>
</body>
</html>`

const orderStatusTemplate = `<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"><title>{{.SiteName}}</title></head>
<body style="font-family: Arial, sans-serif; background-color: #f4f4f4; padding: 20px;">
  <div style="max-width: 600px; margin: 0 auto; background-color: white; padding: 20px; border-radius: 8px;">
    <h1 style="color: #2e7d32;">{{.Headline}}</h1>
    <p>Hello {{.CustomerName}},</p>
    <p>Order <strong>{{.OrderNumber}}</strong> is now {{.Status}}.</p>
    <p><a href="{{.SiteURL}}/orders">View your orders</a></p>
    <hr>
    <p style="font-size: 12px; color: #666;">&copy; {{.Year}} {{.SiteName}}</p>
  </div>
</body>
</html>`
