package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/fruitbox/internal/domain/coupon"
	"github.com/your-org/fruitbox/internal/domain/customer"
	"github.com/your-org/fruitbox/internal/domain/order"
	"github.com/your-org/fruitbox/internal/domain/product"
	"github.com/your-org/fruitbox/internal/domain/subscription"
	"github.com/your-org/fruitbox/internal/pkg/logger"
	"github.com/your-org/fruitbox/internal/pkg/producttype"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type paymentFixture struct {
	db       *gorm.DB
	orders   *order.Service
	coupons  *coupon.Service
	razorpay *RazorpayService
	svc      *Service
}

func setupPaymentTest(t *testing.T) *paymentFixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&product.Product{}, &coupon.Coupon{}, &customer.Customer{},
		&order.Order{}, &order.OrderItem{}, &order.Payment{}, &order.OrderStatusHistory{},
		&subscription.Subscription{}, &subscription.DeliveryDay{},
	))
	require.NoError(t, db.Create(&[]product.Product{
		{ID: 1, Type: producttype.Fruit, Name: "Mango", Price: decimal.NewFromInt(100), IsActive: true},
		{ID: 1, Type: producttype.Pack, Name: "Morning Pack", Price: decimal.NewFromInt(1499), IsSubscription: true, IsActive: true},
	}).Error)

	srv := newFakeRazorpay(t)
	cfg := testRazorpayConfig(srv.URL + "/v1")
	cfg.Subscription.Days = 30
	cfg.Subscription.Timezone = "UTC"

	log := logger.Discard()
	prices := product.NewService(db, nil, cfg, log)
	coupons := coupon.NewService(db, prices, log)
	rzp := NewRazorpayService(cfg, log)
	orders := order.NewService(db, prices, coupons, rzp, cfg, log, nil)
	subs := subscription.NewService(db, cfg, log, nil)

	return &paymentFixture{
		db:       db,
		orders:   orders,
		coupons:  coupons,
		razorpay: rzp,
		svc:      NewService(db, rzp, coupons, subs, log, nil),
	}
}

func (f *paymentFixture) createOrder(t *testing.T, lines []order.LineRequest, couponCode string) (*order.Order, *order.PaymentIntent) {
	t.Helper()
	ord, intent, err := f.orders.CreateSecure(context.Background(), &order.CreateSecureRequest{
		Cart:       lines,
		CustomerID: uuid.NewString(),
		CustomerDetails: customer.Details{
			Name: "Ravi", Email: "ravi@example.com", Phone: "9876543210",
			AddressLine1: "1 Park St", City: "Kolkata", Pincode: "700016",
		},
		CouponCode: couponCode,
	})
	require.NoError(t, err)
	return ord, intent
}

func TestVerifySecureConfirmsOrder(t *testing.T) {
	ctx := context.Background()
	f := setupPaymentTest(t)

	_, err := f.coupons.Create(ctx, &coupon.CouponCreateRequest{Code: "SAVE10", DiscountType: coupon.DiscountPercentage, DiscountValue: decimal.NewFromInt(10)})
	require.NoError(t, err)

	ord, intent := f.createOrder(t, []order.LineRequest{
		{ProductID: 1, Type: "pack", Quantity: 1},
		{ProductID: 1, Type: "fruit", Quantity: 1},
	}, "SAVE10")

	req := &VerificationRequest{
		RazorpayOrderID:   intent.RazorpayOrderID,
		RazorpayPaymentID: "pay_123",
		RazorpaySignature: Sign("test_secret", intent.RazorpayOrderID+"|pay_123"),
	}
	result, err := f.svc.VerifySecure(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, ord.ID, result.OrderID)
	assert.False(t, result.AlreadyVerified)
	require.Len(t, result.SubscriptionIDs, 1)

	stored, err := f.orders.GetOrder(ctx, ord.ID)
	require.NoError(t, err)
	assert.Equal(t, order.OrderStatusConfirmed, stored.Status)
	assert.Equal(t, order.PaymentStatusPaid, stored.PaymentStatus)
	assert.Equal(t, "pay_123", stored.RazorpayPaymentID)
	require.Len(t, stored.Payments, 1)
	assert.Equal(t, "checkout", stored.Payments[0].Source)

	var c coupon.Coupon
	require.NoError(t, f.db.Where("code = ?", "SAVE10").First(&c).Error)
	assert.Equal(t, 1, c.UsedCount)

	var days int64
	f.db.Model(&subscription.DeliveryDay{}).Where("subscription_id = ?", result.SubscriptionIDs[0]).Count(&days)
	assert.Equal(t, int64(30), days)

	again, err := f.svc.VerifySecure(ctx, req)
	require.NoError(t, err)
	assert.True(t, again.AlreadyVerified)
	require.NoError(t, f.db.Where("code = ?", "SAVE10").First(&c).Error)
	assert.Equal(t, 1, c.UsedCount, "repeat verification must not redeem twice")
}

func TestVerifySecureRejectsBadSignature(t *testing.T) {
	ctx := context.Background()
	f := setupPaymentTest(t)
	ord, intent := f.createOrder(t, []order.LineRequest{{ProductID: 1, Type: "fruit", Quantity: 2}}, "")

	_, err := f.svc.VerifySecure(ctx, &VerificationRequest{
		RazorpayOrderID:   intent.RazorpayOrderID,
		RazorpayPaymentID: "pay_123",
		RazorpaySignature: Sign("attacker", intent.RazorpayOrderID+"|pay_123"),
	})
	assert.ErrorIs(t, err, ErrInvalidSignature)

	stored, err := f.orders.GetOrder(ctx, ord.ID)
	require.NoError(t, err)
	assert.Equal(t, order.PaymentStatusPending, stored.PaymentStatus)

	_, err = f.svc.VerifySecure(ctx, &VerificationRequest{
		RazorpayOrderID:   "order_unknown",
		RazorpayPaymentID: "pay_1",
		RazorpaySignature: Sign("test_secret", "order_unknown|pay_1"),
	})
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func webhookBody(t *testing.T, event, rzpOrderID, paymentID string, amount int64) []byte {
	t.Helper()
	var ev WebhookEvent
	ev.Event = event
	ev.Payload.Payment.Entity = RazorpayPayment{
		ID:       paymentID,
		OrderID:  rzpOrderID,
		Amount:   amount,
		Currency: "INR",
		Method:   "upi",
		Status:   "captured",
	}
	body, err := json.Marshal(ev)
	require.NoError(t, err)
	return body
}

func TestWebhookCapturedAndFailed(t *testing.T) {
	ctx := context.Background()
	f := setupPaymentTest(t)
	f.svc.now = func() time.Time { return time.Date(2024, 5, 31, 10, 0, 0, 0, time.UTC) }

	ord, intent := f.createOrder(t, []order.LineRequest{{ProductID: 1, Type: "fruit", Quantity: 3}}, "")

	failed := webhookBody(t, "payment.failed", intent.RazorpayOrderID, "pay_failed", intent.Amount)
	require.NoError(t, f.svc.HandleWebhook(ctx, failed, Sign("whsec", string(failed))))
	require.NoError(t, f.svc.HandleWebhook(ctx, failed, Sign("whsec", string(failed))), "replays are idempotent")

	stored, err := f.orders.GetOrder(ctx, ord.ID)
	require.NoError(t, err)
	assert.Equal(t, order.PaymentStatusFailed, stored.PaymentStatus)
	assert.Len(t, stored.Payments, 1)

	wrongAmount := webhookBody(t, "payment.captured", intent.RazorpayOrderID, "pay_ok", intent.Amount-1)
	assert.ErrorIs(t, f.svc.HandleWebhook(ctx, wrongAmount, Sign("whsec", string(wrongAmount))), ErrAmountMismatch)

	captured := webhookBody(t, "payment.captured", intent.RazorpayOrderID, "pay_ok", intent.Amount)
	assert.ErrorIs(t, f.svc.HandleWebhook(ctx, captured, "bad"), ErrInvalidSignature)
	require.NoError(t, f.svc.HandleWebhook(ctx, captured, Sign("whsec", string(captured))))

	stored, err = f.orders.GetOrder(ctx, ord.ID)
	require.NoError(t, err)
	assert.Equal(t, order.PaymentStatusPaid, stored.PaymentStatus)
	assert.Equal(t, order.OrderStatusConfirmed, stored.Status)
	require.NotNil(t, stored.PaidAt)
	assert.Equal(t, 2024, stored.PaidAt.Year())

	// a late failure event must not downgrade a paid order
	require.NoError(t, f.svc.HandleWebhook(ctx, failed, Sign("whsec", string(failed))))
	stored, err = f.orders.GetOrder(ctx, ord.ID)
	require.NoError(t, err)
	assert.Equal(t, order.PaymentStatusPaid, stored.PaymentStatus)

	ignored := []byte(`{"event":"order.paid","payload":{}}`)
	assert.NoError(t, f.svc.HandleWebhook(ctx, ignored, Sign("whsec", string(ignored))))
}

type paidRecorder struct {
	orders []*order.Order
}

func (r *paidRecorder) OrderPaid(_ context.Context, ord *order.Order) error {
	r.orders = append(r.orders, ord)
	return nil
}

func TestVerifySecureNotifiesOnce(t *testing.T) {
	ctx := context.Background()
	f := setupPaymentTest(t)
	rec := &paidRecorder{}
	f.svc.WithNotifier(rec)

	_, intent := f.createOrder(t, []order.LineRequest{{ProductID: 1, Type: "fruit", Quantity: 2}}, "")
	req := &VerificationRequest{
		RazorpayOrderID:   intent.RazorpayOrderID,
		RazorpayPaymentID: "pay_789",
		RazorpaySignature: Sign("test_secret", intent.RazorpayOrderID+"|pay_789"),
	}

	_, err := f.svc.VerifySecure(ctx, req)
	require.NoError(t, err)
	_, err = f.svc.VerifySecure(ctx, req)
	require.NoError(t, err)

	require.Len(t, rec.orders, 1)
	assert.Equal(t, order.PaymentStatusPaid, rec.orders[0].PaymentStatus)
	assert.Equal(t, "pay_789", rec.orders[0].RazorpayPaymentID)
	assert.NotNil(t, rec.orders[0].PaidAt)
	assert.Equal(t, "ravi@example.com", rec.orders[0].Customer.Email)
}
