// internal/interfaces/http/handlers/invoice.go
package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/fruitbox/internal/domain/order"
	"github.com/your-org/fruitbox/internal/pkg/auth"
	"github.com/your-org/fruitbox/internal/pkg/pdf"
)

// InvoiceHandler serves invoices for paid orders
type InvoiceHandler struct {
	orderService *order.Service
	pdfService   *pdf.Service
	logger       *logrus.Logger
}

// NewInvoiceHandler creates a new invoice handler
func NewInvoiceHandler(orderService *order.Service, pdfService *pdf.Service, logger *logrus.Logger) *InvoiceHandler {
	return &InvoiceHandler{
		orderService: orderService,
		pdfService:   pdfService,
		logger:       logger,
	}
}

// GetInvoice handles GET /orders/:id/invoice. ?format=html returns the
// printable page instead of a PDF.
func (h *InvoiceHandler) GetInvoice(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	ord, err := h.orderService.GetOrder(c.Request.Context(), id)
	if errors.Is(err, order.ErrNotFound) {
		fail(c, http.StatusNotFound, "Order not found")
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("failed to get order")
		fail(c, http.StatusInternalServerError, "Failed to retrieve order")
		return
	}
	if !canActFor(c, ord.CustomerID, auth.RoleAdmin) {
		fail(c, http.StatusNotFound, "Order not found")
		return
	}
	if !ord.IsPaid() {
		fail(c, http.StatusConflict, "Invoice is available once payment is verified")
		return
	}

	if c.Query("format") == "html" {
		page, err := h.pdfService.RenderHTML(ord)
		if err != nil {
			h.logger.WithError(err).WithField("order_id", ord.ID).Error("failed to render invoice")
			fail(c, http.StatusInternalServerError, "Failed to generate invoice")
			return
		}
		c.Data(http.StatusOK, "text/html; charset=utf-8", page)
		return
	}

	buf, err := h.pdfService.GenerateInvoice(ord)
	if err != nil {
		h.logger.WithError(err).WithField("order_id", ord.ID).Error("failed to generate invoice")
		fail(c, http.StatusInternalServerError, "Failed to generate invoice")
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.pdf", pdf.InvoiceNumber(ord)))
	c.Header("Content-Length", strconv.Itoa(buf.Len()))
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}
