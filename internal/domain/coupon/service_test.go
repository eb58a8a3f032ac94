package coupon

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/fruitbox/internal/config"
	"github.com/your-org/fruitbox/internal/domain/product"
	"github.com/your-org/fruitbox/internal/pkg/logger"
	"github.com/your-org/fruitbox/internal/pkg/producttype"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupCouponTest(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&product.Product{}, &Coupon{}))

	products := []product.Product{
		{ID: 1, Type: producttype.Fruit, Name: "Mango", Price: decimal.NewFromInt(100), IsActive: true},
		{ID: 2, Type: producttype.Fruit, Name: "Kiwi", Price: decimal.NewFromInt(50), IsActive: true},
		{ID: 150, Type: producttype.Bowl, Name: "Tropical Bowl", Price: decimal.NewFromInt(200), IsActive: true},
	}
	require.NoError(t, db.Create(&products).Error)

	prices := product.NewService(db, nil, &config.Config{}, logger.Discard())
	return NewService(db, prices, logger.Discard()), db
}

func TestValidatePercentageCoupon(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupCouponTest(t)

	_, err := svc.Create(ctx, &CouponCreateRequest{Code: "save10", DiscountType: DiscountPercentage, DiscountValue: decimal.NewFromInt(10)})
	require.NoError(t, err)

	result, err := svc.Validate(ctx, "  save10 ", []Line{{ProductID: 1, Type: producttype.Fruit, Quantity: 2}})
	require.NoError(t, err)

	assert.Equal(t, "SAVE10", result.Coupon.Code)
	assert.True(t, result.Pricing.DiscountAmount.Equal(decimal.NewFromInt(20)), result.Pricing.DiscountAmount.String())
	assert.True(t, result.Pricing.FinalTotal.Equal(decimal.NewFromInt(180)))
	assert.True(t, result.Pricing.OriginalTotal.Equal(decimal.NewFromInt(200)))
	require.Len(t, result.EligibleItems, 1)
	assert.Equal(t, "Mango", result.EligibleItems[0].Name)
}

func TestValidateRestrictedCouponOnlyDiscountsEligibleLines(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupCouponTest(t)

	_, err := svc.Create(ctx, &CouponCreateRequest{
		Code:                 "BOWL50",
		DiscountType:         DiscountFlat,
		DiscountValue:        decimal.NewFromInt(50),
		ApplicableProductIDs: []uint{150},
	})
	require.NoError(t, err)

	result, err := svc.Validate(ctx, "BOWL50", []Line{
		{ProductID: 1, Type: producttype.Fruit, Quantity: 1},
		{ProductID: 150, Type: producttype.Bowl, Quantity: 1},
	})
	require.NoError(t, err)

	assert.True(t, result.Pricing.EligibleTotal.Equal(decimal.NewFromInt(200)))
	assert.True(t, result.Pricing.OriginalTotal.Equal(decimal.NewFromInt(300)))
	assert.True(t, result.Pricing.FinalTotal.Equal(decimal.NewFromInt(250)))
}

func TestValidateNotEligibleEchoesProducts(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupCouponTest(t)

	_, err := svc.Create(ctx, &CouponCreateRequest{
		Code:                 "BOWLONLY",
		DiscountType:         DiscountPercentage,
		DiscountValue:        decimal.NewFromInt(15),
		ApplicableProductIDs: []uint{150},
	})
	require.NoError(t, err)

	_, err = svc.Validate(ctx, "BOWLONLY", []Line{{ProductID: 2, Type: producttype.Fruit, Quantity: 3}})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, ReasonNotEligible, verr.Reason)
	require.Len(t, verr.EligibleProducts, 1)
	assert.Equal(t, "Tropical Bowl", verr.EligibleProducts[0].Name)
}

func TestValidateInvalidCodes(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupCouponTest(t)

	_, err := svc.Validate(ctx, "NOPE", []Line{{ProductID: 1, Type: producttype.Fruit, Quantity: 1}})
	assert.ErrorIs(t, err, ErrInvalidCode)

	_, err = svc.Validate(ctx, "   ", nil)
	assert.ErrorIs(t, err, ErrInvalidCode)

	past := time.Now().Add(-48 * time.Hour)
	yesterday := time.Now().Add(-24 * time.Hour)
	_, err = svc.Create(ctx, &CouponCreateRequest{Code: "OLD", DiscountType: DiscountFlat, DiscountValue: decimal.NewFromInt(5), ValidFrom: &past, ValidUntil: &yesterday})
	require.NoError(t, err)

	_, err = svc.Validate(ctx, "old", []Line{{ProductID: 1, Type: producttype.Fruit, Quantity: 1}})
	assert.ErrorIs(t, err, ErrInvalidCode)
}

func TestValidateMinimumOrder(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupCouponTest(t)

	_, err := svc.Create(ctx, &CouponCreateRequest{Code: "BIG", DiscountType: DiscountFlat, DiscountValue: decimal.NewFromInt(30), MinOrderAmount: decimal.NewFromInt(500)})
	require.NoError(t, err)

	_, err = svc.Validate(ctx, "BIG", []Line{{ProductID: 2, Type: producttype.Fruit, Quantity: 1}})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, ReasonMinOrder, verr.Reason)
}

func TestUsageLimitExhausts(t *testing.T) {
	ctx := context.Background()
	svc, db := setupCouponTest(t)

	_, err := svc.Create(ctx, &CouponCreateRequest{Code: "ONCE", DiscountType: DiscountFlat, DiscountValue: decimal.NewFromInt(10), UsageLimit: 1})
	require.NoError(t, err)

	lines := []Line{{ProductID: 1, Type: producttype.Fruit, Quantity: 1}}
	_, err = svc.Validate(ctx, "ONCE", lines)
	require.NoError(t, err)

	require.NoError(t, svc.RecordUsage(ctx, db, "once"))

	_, err = svc.Validate(ctx, "ONCE", lines)
	assert.ErrorIs(t, err, ErrInvalidCode)
}

func TestCreateRejectsBadCoupons(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupCouponTest(t)

	_, err := svc.Create(ctx, &CouponCreateRequest{Code: "X", DiscountType: DiscountPercentage, DiscountValue: decimal.NewFromInt(150)})
	assert.Error(t, err)

	_, err = svc.Create(ctx, &CouponCreateRequest{Code: "Y", DiscountType: DiscountFlat, DiscountValue: decimal.Zero})
	assert.Error(t, err)
}

func TestDiscountOnCapsAndClamps(t *testing.T) {
	maxDiscount := decimal.NewFromInt(25)
	c := Coupon{DiscountType: DiscountPercentage, DiscountValue: decimal.NewFromInt(50), MaxDiscountAmount: &maxDiscount}
	assert.True(t, c.DiscountOn(decimal.NewFromInt(200)).Equal(decimal.NewFromInt(25)))

	flat := Coupon{DiscountType: DiscountFlat, DiscountValue: decimal.NewFromInt(500)}
	assert.True(t, flat.DiscountOn(decimal.NewFromInt(120)).Equal(decimal.NewFromInt(120)))

	pct := Coupon{DiscountType: DiscountPercentage, DiscountValue: decimal.NewFromInt(10)}
	assert.True(t, pct.DiscountOn(decimal.RequireFromString("99.99")).Equal(decimal.RequireFromString("10")))
}
