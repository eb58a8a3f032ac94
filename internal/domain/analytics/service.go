// internal/domain/analytics/service.go
package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/your-org/fruitbox/internal/config"
	"github.com/your-org/fruitbox/internal/domain/order"
	"github.com/your-org/fruitbox/internal/domain/subscription"
	"github.com/your-org/fruitbox/internal/pkg/producttype"
	"gorm.io/gorm"
)

// Service answers the admin dashboard's reporting queries
type Service struct {
	db     *gorm.DB
	config *config.Config
	now    func() time.Time
}

// NewService creates a new analytics service
func NewService(db *gorm.DB, cfg *config.Config) *Service {
	return &Service{
		db:     db,
		config: cfg,
		now:    time.Now,
	}
}

// Dashboard is the admin landing page summary. Revenue counts paid orders only.
type Dashboard struct {
	Revenue       decimal.Decimal `json:"revenue"`
	RevenueToday  decimal.Decimal `json:"revenueToday"`
	PaidOrders    int64           `json:"paidOrders"`
	PendingOrders int64           `json:"pendingOrders"`
	AvgOrderValue decimal.Decimal `json:"avgOrderValue"`
	CouponOrders  int64           `json:"couponOrders"`

	OrdersByStatus      []StatusCount `json:"ordersByStatus"`
	ActiveSubscriptions int64         `json:"activeSubscriptions"`
	DeliveriesToday     DeliveryStats `json:"deliveriesToday"`
}

// StatusCount is one bucket of a GROUP BY status
type StatusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

// DeliveryStats breaks one calendar day down by delivery state
type DeliveryStats struct {
	Date           string `json:"date"`
	Pending        int64  `json:"pending"`
	OutForDelivery int64  `json:"outForDelivery"`
	Delivered      int64  `json:"delivered"`
}

// DailySales is revenue bucketed by delivery-zone calendar day
type DailySales struct {
	Date    string          `json:"date"`
	Orders  int64           `json:"orders"`
	Revenue decimal.Decimal `json:"revenue"`
}

// ProductSales ranks products by paid revenue
type ProductSales struct {
	ProductID   uint             `json:"productId"`
	ProductType producttype.Type `json:"type"`
	Name        string           `json:"name"`
	Quantity    int64            `json:"quantity"`
	Revenue     decimal.Decimal  `json:"revenue"`
}

// SalesReport covers the trailing window of days
type SalesReport struct {
	Days        int             `json:"days"`
	Daily       []DailySales    `json:"daily"`
	Total       decimal.Decimal `json:"total"`
	TopProducts []ProductSales  `json:"topProducts"`
}

func (s *Service) today() time.Time {
	now := s.now().In(s.config.DeliveryLocation())
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}

func (s *Service) paidOrders(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Model(&order.Order{}).Where("payment_status = ?", order.PaymentStatusPaid)
}

// GetDashboard gathers the headline numbers
func (s *Service) GetDashboard(ctx context.Context) (*Dashboard, error) {
	d := &Dashboard{}
	today := s.today()

	if err := s.paidOrders(ctx).Select("COALESCE(SUM(total_amount), 0)").Row().Scan(&d.Revenue); err != nil {
		return nil, fmt.Errorf("failed to sum revenue: %w", err)
	}
	if err := s.paidOrders(ctx).Where("paid_at >= ?", today.UTC()).Select("COALESCE(SUM(total_amount), 0)").Row().Scan(&d.RevenueToday); err != nil {
		return nil, fmt.Errorf("failed to sum today's revenue: %w", err)
	}
	d.Revenue = d.Revenue.Round(2)
	d.RevenueToday = d.RevenueToday.Round(2)

	if err := s.paidOrders(ctx).Count(&d.PaidOrders).Error; err != nil {
		return nil, fmt.Errorf("failed to count paid orders: %w", err)
	}
	if err := s.paidOrders(ctx).Where("coupon_code <> ''").Count(&d.CouponOrders).Error; err != nil {
		return nil, fmt.Errorf("failed to count coupon orders: %w", err)
	}
	if err := s.db.WithContext(ctx).Model(&order.Order{}).
		Where("payment_status = ?", order.PaymentStatusPending).
		Count(&d.PendingOrders).Error; err != nil {
		return nil, fmt.Errorf("failed to count pending orders: %w", err)
	}
	if d.PaidOrders > 0 {
		d.AvgOrderValue = d.Revenue.Div(decimal.NewFromInt(d.PaidOrders)).Round(2)
	}

	if err := s.db.WithContext(ctx).Model(&order.Order{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Order("count DESC").
		Scan(&d.OrdersByStatus).Error; err != nil {
		return nil, fmt.Errorf("failed to group orders: %w", err)
	}

	if err := s.db.WithContext(ctx).Model(&subscription.Subscription{}).
		Where("status = ?", subscription.StatusActive).
		Count(&d.ActiveSubscriptions).Error; err != nil {
		return nil, fmt.Errorf("failed to count subscriptions: %w", err)
	}

	deliveries, err := s.deliveriesOn(ctx, today.Format(subscription.DateLayout))
	if err != nil {
		return nil, err
	}
	d.DeliveriesToday = *deliveries
	return d, nil
}

func (s *Service) deliveriesOn(ctx context.Context, date string) (*DeliveryStats, error) {
	var rows []StatusCount
	err := s.db.WithContext(ctx).Model(&subscription.DeliveryDay{}).
		Select("status, COUNT(*) AS count").
		Where("date = ? AND status <> ?", date, subscription.DayNA).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to group deliveries: %w", err)
	}

	stats := &DeliveryStats{Date: date}
	for _, r := range rows {
		switch subscription.DayStatus(r.Status) {
		case subscription.DayPending:
			stats.Pending = r.Count
		case subscription.DayOutForDelivery:
			stats.OutForDelivery = r.Count
		case subscription.DayDelivered:
			stats.Delivered = r.Count
		}
	}
	return stats, nil
}

// GetSalesReport returns paid revenue per day for the last days days,
// oldest first, plus the best sellers over the same window
func (s *Service) GetSalesReport(ctx context.Context, days int) (*SalesReport, error) {
	if days <= 0 || days > 366 {
		days = 30
	}
	loc := s.config.DeliveryLocation()
	start := s.today().AddDate(0, 0, -(days - 1))

	var paid []order.Order
	if err := s.paidOrders(ctx).
		Select("id, total_amount, paid_at").
		Where("paid_at >= ?", start.UTC()).
		Find(&paid).Error; err != nil {
		return nil, fmt.Errorf("failed to load paid orders: %w", err)
	}

	report := &SalesReport{Days: days, Total: decimal.Zero}
	index := make(map[string]int, days)
	for i := 0; i < days; i++ {
		date := start.AddDate(0, 0, i).Format(subscription.DateLayout)
		index[date] = i
		report.Daily = append(report.Daily, DailySales{Date: date, Revenue: decimal.Zero})
	}
	for _, o := range paid {
		if o.PaidAt == nil {
			continue
		}
		i, ok := index[o.PaidAt.In(loc).Format(subscription.DateLayout)]
		if !ok {
			continue
		}
		report.Daily[i].Orders++
		report.Daily[i].Revenue = report.Daily[i].Revenue.Add(o.TotalAmount)
		report.Total = report.Total.Add(o.TotalAmount)
	}

	top, err := s.topProducts(ctx, start, 10)
	if err != nil {
		return nil, err
	}
	report.TopProducts = top
	return report, nil
}

func (s *Service) topProducts(ctx context.Context, since time.Time, limit int) ([]ProductSales, error) {
	var rows []ProductSales
	err := s.db.WithContext(ctx).Model(&order.OrderItem{}).
		Select("order_items.product_id, order_items.product_type, order_items.name, "+
			"SUM(order_items.quantity) AS quantity, SUM(order_items.total_price) AS revenue").
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("orders.payment_status = ? AND orders.paid_at >= ?", order.PaymentStatusPaid, since.UTC()).
		Group("order_items.product_id, order_items.product_type, order_items.name").
		Order("revenue DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to rank products: %w", err)
	}
	for i := range rows {
		rows[i].Revenue = rows[i].Revenue.Round(2)
	}
	return rows, nil
}
