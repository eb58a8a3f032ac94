package analytics

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/fruitbox/internal/config"
	"github.com/your-org/fruitbox/internal/domain/order"
	"github.com/your-org/fruitbox/internal/domain/subscription"
	"github.com/your-org/fruitbox/internal/pkg/producttype"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var fixedNow = time.Date(2026, 6, 10, 15, 0, 0, 0, time.UTC)

func setupAnalyticsTest(t *testing.T) (*gorm.DB, *Service) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&order.Order{}, &order.OrderItem{},
		&subscription.Subscription{}, &subscription.DeliveryDay{},
	))

	cfg := &config.Config{}
	cfg.Subscription.Timezone = "UTC"
	svc := NewService(db, cfg)
	svc.now = func() time.Time { return fixedNow }
	return db, svc
}

func seedOrder(t *testing.T, db *gorm.DB, status order.PaymentStatus, paidAt *time.Time, coupon string, items ...order.OrderItem) {
	t.Helper()
	var total decimal.Decimal
	for _, it := range items {
		total = total.Add(it.TotalPrice)
	}
	ord := order.Order{
		OrderNumber:    order.GenerateOrderNumber(fixedNow),
		CustomerID:     uuid.New(),
		Status:         order.OrderStatusPending,
		PaymentStatus:  status,
		SubtotalAmount: total,
		TotalAmount:    total,
		CouponCode:     coupon,
		PaidAt:         paidAt,
		Items:          items,
	}
	if status == order.PaymentStatusPaid {
		ord.Status = order.OrderStatusConfirmed
	}
	require.NoError(t, db.Create(&ord).Error)
}

func item(id uint, typ producttype.Type, name string, qty int, total string) order.OrderItem {
	return order.OrderItem{
		ProductID: id, ProductType: typ, Name: name, Quantity: qty,
		UnitPrice: decimal.RequireFromString(total), TotalPrice: decimal.RequireFromString(total),
	}
}

func at(days int) *time.Time {
	ts := fixedNow.AddDate(0, 0, -days)
	return &ts
}

func TestDashboard(t *testing.T) {
	db, svc := setupAnalyticsTest(t)

	seedOrder(t, db, order.PaymentStatusPaid, at(0), "", item(1, producttype.Fruit, "Mango", 2, "200"))
	seedOrder(t, db, order.PaymentStatusPaid, at(3), "SAVE10", item(2, producttype.Bowl, "Power Bowl", 1, "100"))
	seedOrder(t, db, order.PaymentStatusPending, nil, "", item(1, producttype.Fruit, "Mango", 1, "100"))

	sub := subscription.Subscription{OrderID: 1, OrderItemID: 1, CustomerID: uuid.New(), ProductID: 1, ProductType: producttype.Pack, StartDate: "2026-06-10", EndDate: "2026-07-09", Status: subscription.StatusActive}
	require.NoError(t, db.Create(&sub).Error)
	require.NoError(t, db.Create(&[]subscription.DeliveryDay{
		{SubscriptionID: sub.ID, Date: "2026-06-10", DayNumber: 1, Status: subscription.DayDelivered},
		{SubscriptionID: sub.ID, Date: "2026-06-11", DayNumber: 2, Status: subscription.DayPending},
	}).Error)

	d, err := svc.GetDashboard(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "300", d.Revenue.String())
	assert.Equal(t, "200", d.RevenueToday.String())
	assert.Equal(t, int64(2), d.PaidOrders)
	assert.Equal(t, int64(1), d.PendingOrders)
	assert.Equal(t, int64(1), d.CouponOrders)
	assert.Equal(t, "150", d.AvgOrderValue.String())
	assert.Equal(t, int64(1), d.ActiveSubscriptions)
	assert.Equal(t, DeliveryStats{Date: "2026-06-10", Delivered: 1}, d.DeliveriesToday)

	counts := map[string]int64{}
	for _, sc := range d.OrdersByStatus {
		counts[sc.Status] = sc.Count
	}
	assert.Equal(t, map[string]int64{"confirmed": 2, "pending": 1}, counts)
}

func TestSalesReport(t *testing.T) {
	db, svc := setupAnalyticsTest(t)

	seedOrder(t, db, order.PaymentStatusPaid, at(0), "", item(1, producttype.Fruit, "Mango", 2, "200"))
	seedOrder(t, db, order.PaymentStatusPaid, at(0), "", item(2, producttype.Bowl, "Power Bowl", 1, "100"))
	seedOrder(t, db, order.PaymentStatusPaid, at(2), "", item(1, producttype.Fruit, "Mango", 3, "300"))
	seedOrder(t, db, order.PaymentStatusPaid, at(20), "", item(3, producttype.Refreshment, "Lime Soda", 1, "50"))

	report, err := svc.GetSalesReport(context.Background(), 7)
	require.NoError(t, err)

	require.Len(t, report.Daily, 7)
	assert.Equal(t, "2026-06-04", report.Daily[0].Date)
	last := report.Daily[6]
	assert.Equal(t, "2026-06-10", last.Date)
	assert.Equal(t, int64(2), last.Orders)
	assert.Equal(t, "300", last.Revenue.String())
	assert.Equal(t, int64(1), report.Daily[4].Orders)
	assert.Equal(t, "600", report.Total.String())

	require.Len(t, report.TopProducts, 2, "orders outside the window are not ranked")
	assert.Equal(t, "Mango", report.TopProducts[0].Name)
	assert.Equal(t, int64(5), report.TopProducts[0].Quantity)
	assert.Equal(t, "500", report.TopProducts[0].Revenue.String())
}
