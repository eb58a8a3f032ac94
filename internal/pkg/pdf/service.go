// internal/pkg/pdf/service.go
package pdf

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/SebastiaanKlippert/go-wkhtmltopdf"
	"github.com/your-org/fruitbox/internal/config"
	"github.com/your-org/fruitbox/internal/domain/order"
)

// Service renders order invoices
type Service struct {
	config *config.Config
	tmpl   *template.Template
	now    func() time.Time
}

// NewService creates a new invoice service
func NewService(cfg *config.Config) *Service {
	return &Service{
		config: cfg,
		tmpl:   template.Must(template.New("invoice").Parse(invoiceTemplate)),
		now:    time.Now,
	}
}

// InvoiceData is what the invoice template sees
type InvoiceData struct {
	InvoiceNumber string
	InvoiceDate   string
	PaidOn        string
	Order         *order.Order
	Company       CompanyInfo
	Lines         []InvoiceLine
	Subtotal      string
	Discount      string
	Total         string
}

// InvoiceLine is one item row with amounts already formatted
type InvoiceLine struct {
	Name         string
	Type         string
	Quantity     int
	UnitPrice    string
	Total        string
	Subscription bool
}

// CompanyInfo is the seller block
type CompanyInfo struct {
	Name    string
	Address string
	Phone   string
	Email   string
	GSTIN   string
}

// InvoiceNumber derives the invoice number from the order number
func InvoiceNumber(ord *order.Order) string {
	return "INV-" + ord.OrderNumber
}

func (s *Service) data(ord *order.Order) InvoiceData {
	d := InvoiceData{
		InvoiceNumber: InvoiceNumber(ord),
		InvoiceDate:   s.now().Format("2 January 2006"),
		Order:         ord,
		Company: CompanyInfo{
			Name:    s.config.App.CompanyName,
			Address: s.config.App.CompanyAddress,
			Phone:   s.config.App.CompanyPhone,
			Email:   s.config.App.CompanyEmail,
			GSTIN:   s.config.App.CompanyGSTIN,
		},
		Subtotal: ord.SubtotalAmount.StringFixed(2),
		Total:    ord.TotalAmount.StringFixed(2),
	}
	if ord.PaidAt != nil {
		d.PaidOn = ord.PaidAt.Format("2 January 2006")
	}
	if ord.DiscountAmount.IsPositive() {
		d.Discount = ord.DiscountAmount.StringFixed(2)
	}
	for _, item := range ord.Items {
		d.Lines = append(d.Lines, InvoiceLine{
			Name:         item.Name,
			Type:         string(item.ProductType),
			Quantity:     item.Quantity,
			UnitPrice:    item.UnitPrice.StringFixed(2),
			Total:        item.TotalPrice.StringFixed(2),
			Subscription: item.IsSubscription,
		})
	}
	return d
}

// RenderHTML renders the invoice page. The PDF is printed from the same markup.
func (s *Service) RenderHTML(ord *order.Order) ([]byte, error) {
	var buf bytes.Buffer
	if err := s.tmpl.Execute(&buf, s.data(ord)); err != nil {
		return nil, fmt.Errorf("failed to execute template: %w", err)
	}
	return buf.Bytes(), nil
}

// GenerateInvoice prints the invoice to PDF with wkhtmltopdf, which must be on PATH
func (s *Service) GenerateInvoice(ord *order.Order) (*bytes.Buffer, error) {
	html, err := s.RenderHTML(ord)
	if err != nil {
		return nil, fmt.Errorf("failed to generate HTML: %w", err)
	}

	pdfg, err := wkhtmltopdf.NewPDFGenerator()
	if err != nil {
		return nil, fmt.Errorf("failed to create PDF generator: %w", err)
	}
	pdfg.Dpi.Set(300)
	pdfg.Orientation.Set(wkhtmltopdf.OrientationPortrait)
	pdfg.PageSize.Set(wkhtmltopdf.PageSizeA4)

	page := wkhtmltopdf.NewPageReader(bytes.NewReader(html))
	page.FooterRight.Set("[page]")
	page.FooterFontSize.Set(9)
	page.Zoom.Set(0.95)
	pdfg.AddPage(page)

	if err := pdfg.Create(); err != nil {
		return nil, fmt.Errorf("failed to create PDF: %w", err)
	}
	return bytes.NewBuffer(pdfg.Bytes()), nil
}

const invoiceTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Invoice {{.InvoiceNumber}}</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 0; padding: 20px; color: #333; }
        .header { display: flex; justify-content: space-between; margin-bottom: 30px; border-bottom: 2px solid #eee; padding-bottom: 20px; }
        .company-info { flex: 1; }
        .invoice-info { text-align: right; flex: 1; }
        .invoice-title { font-size: 28px; font-weight: bold; color: #2e7d32; margin-bottom: 10px; }
        .section-title { font-size: 16px; font-weight: bold; margin-bottom: 10px; color: #374151; }
        .items-table { width: 100%; border-collapse: collapse; margin-bottom: 30px; }
        .items-table th, .items-table td { border: 1px solid #ddd; padding: 10px 8px; text-align: left; }
        .items-table th { background-color: #f8f9fa; }
        .num { text-align: right !important; width: 90px; }
        .totals { float: right; width: 300px; }
        .totals table { width: 100%; border-collapse: collapse; }
        .totals td { padding: 8px; border-bottom: 1px solid #eee; }
        .total-row td { font-size: 18px; font-weight: bold; border-top: 2px solid #333; }
        .footer { margin-top: 50px; padding-top: 20px; border-top: 1px solid #eee; text-align: center; color: #666; font-size: 12px; }
    </style>
</head>
<body>
    <div class="header">
        <div class="company-info">
            <h1>{{.Company.Name}}</h1>
            {{if .Company.Address}}<p>{{.Company.Address}}</p>{{end}}
            {{if .Company.Phone}}<p>Phone: {{.Company.Phone}}</p>{{end}}
            <p>Email: {{.Company.Email}}</p>
            {{if .Company.GSTIN}}<p>GSTIN: {{.Company.GSTIN}}</p>{{end}}
        </div>
        <div class="invoice-info">
            <div class="invoice-title">TAX INVOICE</div>
            <p><strong>Invoice #:</strong> {{.InvoiceNumber}}</p>
            <p><strong>Invoice Date:</strong> {{.InvoiceDate}}</p>
            <p><strong>Order #:</strong> {{.Order.OrderNumber}}</p>
            {{if .PaidOn}}<p><strong>Paid On:</strong> {{.PaidOn}}</p>{{end}}
            {{if .Order.RazorpayPaymentID}}<p><strong>Payment ID:</strong> {{.Order.RazorpayPaymentID}}</p>{{end}}
        </div>
    </div>

    <div>
        <div class="section-title">Deliver To:</div>
        <p><strong>{{.Order.Customer.Name}}</strong></p>
        <p>{{.Order.Customer.AddressLine1}}</p>
        {{if .Order.Customer.AddressLine2}}<p>{{.Order.Customer.AddressLine2}}</p>{{end}}
        <p>{{.Order.Customer.City}}{{if .Order.Customer.State}}, {{.Order.Customer.State}}{{end}} {{.Order.Customer.Pincode}}</p>
        <p>Phone: {{.Order.Customer.Phone}}</p>
        <p>Email: {{.Order.Customer.Email}}</p>
    </div>

    <table class="items-table">
        <thead>
            <tr>
                <th>Item</th>
                <th>Type</th>
                <th class="num">Qty</th>
                <th class="num">Price</th>
                <th class="num">Total</th>
            </tr>
        </thead>
        <tbody>
            {{range .Lines}}
            <tr>
                <td><strong>{{.Name}}</strong>{{if .Subscription}}<br><small>subscription pack</small>{{end}}</td>
                <td>{{.Type}}</td>
                <td class="num">{{.Quantity}}</td>
                <td class="num">&#8377;{{.UnitPrice}}</td>
                <td class="num">&#8377;{{.Total}}</td>
            </tr>
            {{end}}
        </tbody>
    </table>

    <div class="totals">
        <table>
            <tr><td>Subtotal:</td><td class="num">&#8377;{{.Subtotal}}</td></tr>
            {{if .Discount}}<tr><td>Discount{{if .Order.CouponCode}} ({{.Order.CouponCode}}){{end}}:</td><td class="num">-&#8377;{{.Discount}}</td></tr>{{end}}
            <tr class="total-row"><td>Total:</td><td class="num">&#8377;{{.Total}}</td></tr>
        </table>
    </div>

    <div style="clear: both;"></div>

    <div class="footer">
        <p>Thank you for eating fresh!</p>
        <p>Questions about this invoice? Write to {{.Company.Email}}</p>
    </div>
</body>
</html>
`
