package order

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/fruitbox/internal/config"
	"github.com/your-org/fruitbox/internal/domain/coupon"
	"github.com/your-org/fruitbox/internal/domain/customer"
	"github.com/your-org/fruitbox/internal/domain/product"
	"github.com/your-org/fruitbox/internal/pkg/logger"
	"github.com/your-org/fruitbox/internal/pkg/producttype"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type fakeGateway struct {
	amounts []int64
	receipt string
	err     error
}

func (f *fakeGateway) CreatePaymentOrder(_ context.Context, amountPaise int64, receipt string, _ map[string]string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.amounts = append(f.amounts, amountPaise)
	f.receipt = receipt
	return fmt.Sprintf("order_test_%d", len(f.amounts)), nil
}

func (f *fakeGateway) KeyID() string    { return "rzp_test_key" }
func (f *fakeGateway) Currency() string { return "INR" }

type orderFixture struct {
	svc     *Service
	db      *gorm.DB
	gateway *fakeGateway
	coupons *coupon.Service
}

func setupOrderTest(t *testing.T) *orderFixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&product.Product{}, &coupon.Coupon{}, &customer.Customer{},
		&Order{}, &OrderItem{}, &Payment{}, &OrderStatusHistory{},
	))

	products := []product.Product{
		{ID: 1, Type: producttype.Fruit, Name: "Mango", Price: decimal.NewFromInt(100), IsActive: true},
		{ID: 1, Type: producttype.Pack, Name: "Morning Pack", Price: decimal.NewFromInt(1499), IsSubscription: true, IsActive: true},
		{ID: 150, Type: producttype.Bowl, Name: "Tropical Bowl", Price: decimal.RequireFromString("199.50"), IsActive: true},
		{ID: 9, Type: producttype.Fruit, Name: "Retired", Price: decimal.NewFromInt(10), IsActive: false},
	}
	require.NoError(t, db.Create(&products).Error)
	// is_active defaults to true on insert
	require.NoError(t, db.Model(&product.Product{}).Where("id = ? AND type = ?", 9, producttype.Fruit).Update("is_active", false).Error)

	cfg := &config.Config{}
	log := logger.Discard()
	prices := product.NewService(db, nil, cfg, log)
	coupons := coupon.NewService(db, prices, log)
	gw := &fakeGateway{}

	return &orderFixture{
		svc:     NewService(db, prices, coupons, gw, cfg, log, nil),
		db:      db,
		gateway: gw,
		coupons: coupons,
	}
}

func details() customer.Details {
	return customer.Details{
		Name:         "Asha",
		Email:        "asha@example.com",
		Phone:        "9876543210",
		AddressLine1: "12 MG Road",
		City:         "Pune",
		Pincode:      "411001",
	}
}

func TestCreateSecurePricesFromCatalog(t *testing.T) {
	ctx := context.Background()
	f := setupOrderTest(t)
	customerID := uuid.New()

	ord, intent, err := f.svc.CreateSecure(ctx, &CreateSecureRequest{
		Cart: []LineRequest{
			{ProductID: 1, Type: "fruit", Quantity: 2},
			{ProductID: 150, Type: "bowl", Quantity: 1},
		},
		CustomerID:      customerID.String(),
		CustomerDetails: details(),
	})
	require.NoError(t, err)

	assert.True(t, ord.TotalAmount.Equal(decimal.RequireFromString("399.50")))
	assert.Equal(t, int64(39950), intent.Amount)
	assert.Equal(t, []int64{39950}, f.gateway.amounts)
	assert.Equal(t, ord.OrderNumber, f.gateway.receipt)
	assert.Equal(t, "order_test_1", intent.RazorpayOrderID)
	assert.Equal(t, "rzp_test_key", intent.KeyID)
	assert.Equal(t, "INR", intent.Currency)

	stored, err := f.svc.GetOrder(ctx, ord.ID)
	require.NoError(t, err)
	assert.Equal(t, "order_test_1", stored.RazorpayOrderID)
	assert.Equal(t, OrderStatusPending, stored.Status)
	require.Len(t, stored.Items, 2)
	assert.Equal(t, "Asha", stored.Customer.Name)
	require.Len(t, stored.StatusHistory, 1)

	var c customer.Customer
	require.NoError(t, f.db.Where("id = ?", customerID).First(&c).Error)
	assert.Equal(t, "asha@example.com", c.Email)
}

func TestCreateSecureSeparatesFruitAndPackWithSameID(t *testing.T) {
	ctx := context.Background()
	f := setupOrderTest(t)

	ord, _, err := f.svc.CreateSecure(ctx, &CreateSecureRequest{
		Cart:            []LineRequest{{ProductID: 1, Type: "pack", Quantity: 1}},
		CustomerID:      uuid.NewString(),
		CustomerDetails: details(),
	})
	require.NoError(t, err)
	assert.True(t, ord.TotalAmount.Equal(decimal.NewFromInt(1499)))
	assert.True(t, ord.HasSubscription())
}

func TestCreateSecureCollectsAllLineErrors(t *testing.T) {
	ctx := context.Background()
	f := setupOrderTest(t)

	_, _, err := f.svc.CreateSecure(ctx, &CreateSecureRequest{
		Cart: []LineRequest{
			{ProductID: 1, Type: "juice", Quantity: 1},
			{ProductID: 1, Type: "fruit", Quantity: 8},
			{ProductID: 9, Type: "fruit", Quantity: 1},
			{ProductID: 404, Type: "bowl", Quantity: 1},
		},
		CustomerID:      "not-a-uuid",
		CustomerDetails: details(),
	})

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Len(t, verr.Errors, 5)
	assert.Contains(t, verr.Error(), "item 1: invalid product type")
	assert.Contains(t, verr.Error(), "item 2: quantity must be between 1 and 7")
	assert.Contains(t, verr.Error(), "item 3: product 9 (fruit) is not available")
	assert.Empty(t, f.gateway.amounts, "no gateway call on invalid carts")

	var count int64
	f.db.Model(&Order{}).Count(&count)
	assert.Zero(t, count)
}

func TestCreateSecureEmptyCart(t *testing.T) {
	f := setupOrderTest(t)
	_, _, err := f.svc.CreateSecure(context.Background(), &CreateSecureRequest{CustomerID: uuid.NewString()})
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestCreateSecureAppliesCoupon(t *testing.T) {
	ctx := context.Background()
	f := setupOrderTest(t)

	_, err := f.coupons.Create(ctx, &coupon.CouponCreateRequest{Code: "SAVE10", DiscountType: coupon.DiscountPercentage, DiscountValue: decimal.NewFromInt(10)})
	require.NoError(t, err)

	ord, intent, err := f.svc.CreateSecure(ctx, &CreateSecureRequest{
		Cart:            []LineRequest{{ProductID: 1, Type: "fruit", Quantity: 2}},
		CustomerID:      uuid.NewString(),
		CustomerDetails: details(),
		CouponCode:      " save10",
	})
	require.NoError(t, err)
	assert.Equal(t, "SAVE10", ord.CouponCode)
	assert.True(t, ord.DiscountAmount.Equal(decimal.NewFromInt(20)))
	assert.Equal(t, int64(18000), intent.Amount)

	_, _, err = f.svc.CreateSecure(ctx, &CreateSecureRequest{
		Cart:            []LineRequest{{ProductID: 1, Type: "fruit", Quantity: 2}},
		CustomerID:      uuid.NewString(),
		CustomerDetails: details(),
		CouponCode:      "BOGUS",
	})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, []string{"Invalid coupon code"}, verr.Errors)
}

func TestCreateSecureRollsBackWhenGatewayFails(t *testing.T) {
	ctx := context.Background()
	f := setupOrderTest(t)
	f.gateway.err = errors.New("razorpay down")

	_, _, err := f.svc.CreateSecure(ctx, &CreateSecureRequest{
		Cart:            []LineRequest{{ProductID: 1, Type: "fruit", Quantity: 1}},
		CustomerID:      uuid.NewString(),
		CustomerDetails: details(),
	})
	require.Error(t, err)

	var count int64
	f.db.Model(&Order{}).Count(&count)
	assert.Zero(t, count)
}

func TestListAndUpdateStatus(t *testing.T) {
	ctx := context.Background()
	f := setupOrderTest(t)
	customerID := uuid.New()

	for i := 0; i < 3; i++ {
		_, _, err := f.svc.CreateSecure(ctx, &CreateSecureRequest{
			Cart:            []LineRequest{{ProductID: 1, Type: "fruit", Quantity: i + 1}},
			CustomerID:      customerID.String(),
			CustomerDetails: details(),
		})
		require.NoError(t, err)
	}

	page, err := f.svc.GetCustomerOrders(ctx, customerID, 1, 2)
	require.NoError(t, err)
	assert.Len(t, page.Orders, 2)
	assert.Equal(t, int64(3), page.Pagination.Total)
	assert.True(t, page.Pagination.HasNext)

	target := page.Orders[0].ID
	_, err = f.svc.UpdateOrderStatus(ctx, target, OrderStatusDelivered, "skip", "admin")
	assert.Error(t, err, "pending orders cannot jump to delivered")

	updated, err := f.svc.UpdateOrderStatus(ctx, target, OrderStatusCancelled, "customer request", "admin")
	require.NoError(t, err)
	assert.Equal(t, OrderStatusCancelled, updated.Status)

	_, err = f.svc.GetOrder(ctx, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestToPaiseRounds(t *testing.T) {
	assert.Equal(t, int64(18000), ToPaise(decimal.NewFromInt(180)))
	assert.Equal(t, int64(1000), ToPaise(decimal.RequireFromString("9.995")))
	assert.Equal(t, int64(19950), ToPaise(decimal.RequireFromString("199.5")))
}
