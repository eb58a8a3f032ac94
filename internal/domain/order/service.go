// internal/domain/order/service.go
package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/fruitbox/internal/config"
	"github.com/your-org/fruitbox/internal/domain/coupon"
	"github.com/your-org/fruitbox/internal/domain/customer"
	"github.com/your-org/fruitbox/internal/domain/product"
	"github.com/your-org/fruitbox/internal/pkg/metrics"
	"github.com/your-org/fruitbox/internal/pkg/producttype"
	"go.uber.org/multierr"
	"gorm.io/gorm"
)

// Per-line quantity bounds accepted at order creation
const (
	MinQuantity = 1
	MaxQuantity = 7
)

var (
	ErrEmptyCart = errors.New("cart is empty")
	ErrNotFound  = errors.New("order not found")

	ErrInvalidStatusTransition = errors.New("invalid status transition")
)

// ValidationError carries every problem found in a create-secure request
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Errors, ", ")
}

func newValidationError(err error) *ValidationError {
	errs := multierr.Errors(err)
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, e.Error())
	}
	return &ValidationError{Errors: msgs}
}

// PriceSource resolves authoritative catalog prices
type PriceSource interface {
	PriceIndex(ctx context.Context, keys []product.Key) (map[product.Key]product.Product, error)
}

// CouponValidator re-validates a coupon against server prices
type CouponValidator interface {
	Validate(ctx context.Context, code string, lines []coupon.Line) (*coupon.Result, error)
}

// PaymentGateway creates the provider-side order the checkout widget pays
type PaymentGateway interface {
	CreatePaymentOrder(ctx context.Context, amountPaise int64, receipt string, notes map[string]string) (string, error)
	KeyID() string
	Currency() string
}

// StatusNotifier is told when an order moves along its fulfilment states
type StatusNotifier interface {
	OrderStatusChanged(ctx context.Context, ord *Order) error
}

// Service handles order business logic
type Service struct {
	db       *gorm.DB
	prices   PriceSource
	coupons  CouponValidator
	gateway  PaymentGateway
	notifier StatusNotifier
	config   *config.Config
	logger   *logrus.Logger
	metrics  *metrics.Metrics
}

// NewService creates a new order service
func NewService(db *gorm.DB, prices PriceSource, coupons CouponValidator, gateway PaymentGateway, cfg *config.Config, logger *logrus.Logger, m *metrics.Metrics) *Service {
	return &Service{
		db:      db,
		prices:  prices,
		coupons: coupons,
		gateway: gateway,
		config:  cfg,
		logger:  logger,
		metrics: m,
	}
}

// WithNotifier registers a receiver for status changes
func (s *Service) WithNotifier(n StatusNotifier) *Service {
	s.notifier = n
	return s
}

// LineRequest is one cart line. There is deliberately no price field.
type LineRequest struct {
	ProductID uint   `json:"productId"`
	Type      string `json:"type"`
	Quantity  int    `json:"quantity"`
}

// CreateSecureRequest represents a client order submission
type CreateSecureRequest struct {
	Cart            []LineRequest    `json:"cart"`
	CustomerID      string           `json:"customerId" binding:"required"`
	CustomerDetails customer.Details `json:"customerDetails"`
	CouponCode      string           `json:"couponCode"`
}

// PaymentIntent is what the client needs to open the checkout widget
type PaymentIntent struct {
	ID              uint            `json:"id"`
	OrderNumber     string          `json:"orderNumber"`
	Amount          int64           `json:"amount"` // paise
	Total           decimal.Decimal `json:"total"`
	Currency        string          `json:"currency"`
	RazorpayOrderID string          `json:"razorpayOrderId"`
	KeyID           string          `json:"keyId"`
}

// OrderListRequest represents order list query parameters
type OrderListRequest struct {
	Page          int           `form:"page,default=1"`
	Limit         int           `form:"limit,default=20"`
	Status        OrderStatus   `form:"status"`
	PaymentStatus PaymentStatus `form:"payment_status"`
	CustomerID    string        `form:"customer_id"`
	SortBy        string        `form:"sort_by,default=created_at"`
	SortOrder     string        `form:"sort_order,default=desc"`
	DateFrom      string        `form:"date_from"`
	DateTo        string        `form:"date_to"`
}

// OrderResponse represents order response with pagination
type OrderResponse struct {
	Orders     []Order    `json:"orders"`
	Pagination Pagination `json:"pagination"`
}

// Pagination represents pagination information
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
	HasNext    bool  `json:"hasNext"`
	HasPrev    bool  `json:"hasPrev"`
}

type pricedLine struct {
	product  product.Product
	quantity int
}

// CreateSecure re-prices the submitted cart from the catalog, re-validates the
// coupon, persists the order and opens a Razorpay order for the server total.
func (s *Service) CreateSecure(ctx context.Context, req *CreateSecureRequest) (*Order, *PaymentIntent, error) {
	if len(req.Cart) == 0 {
		s.metrics.OrderCreated("rejected")
		return nil, nil, ErrEmptyCart
	}

	lines, customerID, err := s.priceLines(ctx, req)
	if err != nil {
		s.metrics.OrderCreated("rejected")
		return nil, nil, err
	}

	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.product.Price.Mul(decimal.NewFromInt(int64(l.quantity))))
	}

	discount := decimal.Zero
	code := coupon.NormalizeCode(req.CouponCode)
	if code != "" {
		couponLines := make([]coupon.Line, 0, len(lines))
		for _, l := range lines {
			couponLines = append(couponLines, coupon.Line{ProductID: l.product.ID, Type: l.product.Type, Quantity: l.quantity})
		}
		result, err := s.coupons.Validate(ctx, code, couponLines)
		if err != nil {
			var verr *coupon.ValidationError
			if errors.As(err, &verr) {
				s.metrics.OrderCreated("rejected")
				return nil, nil, &ValidationError{Errors: []string{verr.Message}}
			}
			s.metrics.OrderCreated("failed")
			return nil, nil, err
		}
		discount = result.Pricing.DiscountAmount
	}

	total := subtotal.Sub(discount)
	if ToPaise(total) < 100 {
		s.metrics.OrderCreated("rejected")
		return nil, nil, &ValidationError{Errors: []string{"order total must be at least 1.00"}}
	}

	ord := Order{
		CustomerID:     customerID,
		Status:         OrderStatusPending,
		PaymentStatus:  PaymentStatusPending,
		SubtotalAmount: subtotal,
		DiscountAmount: discount,
		TotalAmount:    total,
		Currency:       s.gateway.Currency(),
		CouponCode:     code,
		Customer:       req.CustomerDetails,
		OrderNumber:    GenerateOrderNumber(time.Now()),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.ensureCustomer(tx, customerID, req.CustomerDetails); err != nil {
			return err
		}

		if err := tx.Create(&ord).Error; err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}

		for _, l := range lines {
			ord.Items = append(ord.Items, OrderItem{
				OrderID:        ord.ID,
				ProductID:      l.product.ID,
				ProductType:    l.product.Type,
				Name:           l.product.Name,
				Quantity:       l.quantity,
				UnitPrice:      l.product.Price,
				TotalPrice:     l.product.Price.Mul(decimal.NewFromInt(int64(l.quantity))),
				IsSubscription: l.product.IsSubscription,
			})
		}
		if err := tx.Create(&ord.Items).Error; err != nil {
			return fmt.Errorf("failed to create order items: %w", err)
		}

		ord.AddStatusHistory(OrderStatusPending, "Order created", customerID.String())
		if err := tx.Create(&ord.StatusHistory).Error; err != nil {
			return fmt.Errorf("failed to create status history: %w", err)
		}

		rzpOrderID, err := s.gateway.CreatePaymentOrder(ctx, ord.AmountInPaise(), ord.OrderNumber, map[string]string{
			"order_id":    fmt.Sprintf("%d", ord.ID),
			"customer_id": customerID.String(),
		})
		if err != nil {
			return fmt.Errorf("failed to create payment order: %w", err)
		}
		ord.RazorpayOrderID = rzpOrderID

		return tx.Model(&ord).Update("razorpay_order_id", rzpOrderID).Error
	})
	if err != nil {
		s.metrics.OrderCreated("failed")
		s.logger.WithError(err).WithField("customer_id", customerID).Error("secure order creation failed")
		return nil, nil, err
	}

	s.metrics.OrderCreated("created")
	s.logger.WithFields(logrus.Fields{
		"order_id":          ord.ID,
		"order_number":      ord.OrderNumber,
		"razorpay_order_id": ord.RazorpayOrderID,
		"total":             ord.TotalAmount.StringFixed(2),
		"coupon":            ord.CouponCode,
	}).Info("secure order created")

	return &ord, &PaymentIntent{
		ID:              ord.ID,
		OrderNumber:     ord.OrderNumber,
		Amount:          ord.AmountInPaise(),
		Total:           ord.TotalAmount,
		Currency:        ord.Currency,
		RazorpayOrderID: ord.RazorpayOrderID,
		KeyID:           s.gateway.KeyID(),
	}, nil
}

// priceLines validates every line and collects all problems before failing
func (s *Service) priceLines(ctx context.Context, req *CreateSecureRequest) ([]pricedLine, uuid.UUID, error) {
	var errs error

	customerID, err := uuid.Parse(strings.TrimSpace(req.CustomerID))
	if err != nil {
		errs = multierr.Append(errs, fmt.Errorf("customerId is not a valid id"))
	}

	keys := make([]product.Key, 0, len(req.Cart))
	for i, l := range req.Cart {
		typ, err := producttype.Parse(l.Type)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("item %d: invalid product type %q", i+1, l.Type))
			continue
		}
		if l.ProductID == 0 {
			errs = multierr.Append(errs, fmt.Errorf("item %d: missing productId", i+1))
			continue
		}
		if l.Quantity < MinQuantity || l.Quantity > MaxQuantity {
			errs = multierr.Append(errs, fmt.Errorf("item %d: quantity must be between %d and %d", i+1, MinQuantity, MaxQuantity))
		}
		keys = append(keys, product.Key{ID: l.ProductID, Type: typ})
	}

	index, err := s.prices.PriceIndex(ctx, keys)
	if err != nil {
		return nil, uuid.Nil, err
	}

	lines := make([]pricedLine, 0, len(req.Cart))
	for i, l := range req.Cart {
		typ, err := producttype.Parse(l.Type)
		if err != nil || l.ProductID == 0 {
			continue
		}
		prod, ok := index[product.Key{ID: l.ProductID, Type: typ}]
		if !ok {
			errs = multierr.Append(errs, fmt.Errorf("item %d: product %d (%s) is not available", i+1, l.ProductID, typ))
			continue
		}
		lines = append(lines, pricedLine{product: prod, quantity: l.Quantity})
	}

	if errs != nil {
		return nil, uuid.Nil, newValidationError(errs)
	}
	return lines, customerID, nil
}

// ensureCustomer records the provider-issued customer the first time they order
func (s *Service) ensureCustomer(tx *gorm.DB, id uuid.UUID, details customer.Details) error {
	var existing []customer.Customer
	email := strings.ToLower(strings.TrimSpace(details.Email))
	if err := tx.Where("id = ? OR email = ?", id, email).Limit(1).Find(&existing).Error; err != nil {
		return fmt.Errorf("failed to look up customer: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}

	c := customer.Customer{
		ID:           id,
		Name:         details.Name,
		Email:        email,
		Phone:        details.Phone,
		AddressLine1: details.AddressLine1,
		AddressLine2: details.AddressLine2,
		City:         details.City,
		State:        details.State,
		Pincode:      details.Pincode,
	}
	if err := tx.Create(&c).Error; err != nil {
		return fmt.Errorf("failed to create customer: %w", err)
	}
	return nil
}

// GetOrder retrieves a single order by ID
func (s *Service) GetOrder(ctx context.Context, id uint) (*Order, error) {
	var ord Order
	err := s.db.WithContext(ctx).
		Preload("Items").
		Preload("Payments").
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC")
		}).
		Where("id = ?", id).
		First(&ord).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve order: %w", err)
	}
	return &ord, nil
}

// FindByRazorpayOrderID loads the order a gateway order id belongs to
func (s *Service) FindByRazorpayOrderID(ctx context.Context, rzpOrderID string) (*Order, error) {
	var ord Order
	err := s.db.WithContext(ctx).
		Preload("Items").
		Where("razorpay_order_id = ?", rzpOrderID).
		First(&ord).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve order: %w", err)
	}
	return &ord, nil
}

// GetOrders retrieves orders with filtering and pagination
func (s *Service) GetOrders(ctx context.Context, req *OrderListRequest) (*OrderResponse, error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.Limit < 1 || req.Limit > 100 {
		req.Limit = 20
	}

	var orders []Order
	var total int64

	query := s.db.WithContext(ctx).Model(&Order{})

	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}
	if req.PaymentStatus != "" {
		query = query.Where("payment_status = ?", req.PaymentStatus)
	}
	if req.CustomerID != "" {
		query = query.Where("customer_id = ?", req.CustomerID)
	}
	if req.DateFrom != "" {
		query = query.Where("created_at >= ?", req.DateFrom)
	}
	if req.DateTo != "" {
		query = query.Where("created_at <= ?", req.DateTo)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}

	offset := (req.Page - 1) * req.Limit
	err := query.Preload("Items").
		Order(s.buildOrderClause(req.SortBy, req.SortOrder)).
		Offset(offset).
		Limit(req.Limit).
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve orders: %w", err)
	}

	totalPages := int((total + int64(req.Limit) - 1) / int64(req.Limit))
	return &OrderResponse{
		Orders: orders,
		Pagination: Pagination{
			Page:       req.Page,
			Limit:      req.Limit,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    req.Page < totalPages,
			HasPrev:    req.Page > 1,
		},
	}, nil
}

// GetCustomerOrders retrieves orders for a specific customer
func (s *Service) GetCustomerOrders(ctx context.Context, customerID uuid.UUID, page, limit int) (*OrderResponse, error) {
	return s.GetOrders(ctx, &OrderListRequest{
		Page:       page,
		Limit:      limit,
		CustomerID: customerID.String(),
	})
}

// UpdateOrderStatus moves an order along its fulfilment states
func (s *Service) UpdateOrderStatus(ctx context.Context, orderID uint, status OrderStatus, comment, updatedBy string) (*Order, error) {
	ord, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !isValidStatusTransition(ord.Status, status) {
		return nil, fmt.Errorf("%w from %s to %s", ErrInvalidStatusTransition, ord.Status, status)
	}

	updates := map[string]interface{}{"status": status}
	now := time.Now().UTC()
	if status == OrderStatusDelivered {
		updates["delivered_at"] = now
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(ord).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update order status: %w", err)
		}
		return tx.Create(&OrderStatusHistory{
			OrderID:   orderID,
			Status:    status,
			Comment:   comment,
			CreatedBy: updatedBy,
			CreatedAt: now,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if s.notifier != nil {
		if err := s.notifier.OrderStatusChanged(ctx, updated); err != nil {
			s.logger.WithError(err).WithField("order_id", orderID).Warn("status email failed")
		}
	}
	return updated, nil
}

func isValidStatusTransition(from, to OrderStatus) bool {
	validTransitions := map[OrderStatus][]OrderStatus{
		OrderStatusPending: {
			OrderStatusConfirmed,
			OrderStatusCancelled,
		},
		OrderStatusConfirmed: {
			OrderStatusOutForDelivery,
			OrderStatusDelivered,
			OrderStatusCancelled,
			OrderStatusRefunded,
		},
		OrderStatusOutForDelivery: {
			OrderStatusDelivered,
		},
		OrderStatusDelivered: {
			OrderStatusRefunded,
		},
	}

	for _, status := range validTransitions[from] {
		if status == to {
			return true
		}
	}
	return false
}

func (s *Service) buildOrderClause(sortBy, sortOrder string) string {
	validSortFields := map[string]bool{
		"created_at":   true,
		"updated_at":   true,
		"total_amount": true,
		"status":       true,
		"order_number": true,
	}

	if !validSortFields[sortBy] {
		sortBy = "created_at"
	}
	if sortOrder != "asc" && sortOrder != "desc" {
		sortOrder = "desc"
	}

	return fmt.Sprintf("%s %s", sortBy, sortOrder)
}
