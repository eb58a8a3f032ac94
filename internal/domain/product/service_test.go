package product

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/fruitbox/internal/config"
	"github.com/your-org/fruitbox/internal/pkg/logger"
	"github.com/your-org/fruitbox/internal/pkg/producttype"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupProductTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Product{}))
	return db
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	return NewService(setupProductTestDB(t), nil, &config.Config{}, logger.Discard())
}

func TestCreateAndListActive(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	_, err := svc.Create(ctx, &ProductCreateRequest{ID: 1, Type: producttype.Fruit, Name: "Alphonso Mango", Price: decimal.NewFromInt(120)})
	require.NoError(t, err)
	pack, err := svc.Create(ctx, &ProductCreateRequest{ID: 1, Type: producttype.Pack, Name: "Morning Pack", Price: decimal.NewFromInt(1499)})
	require.NoError(t, err)
	assert.True(t, pack.IsSubscription, "packs are always subscriptions")

	products, err := svc.ListActive(ctx)
	require.NoError(t, err)
	assert.Len(t, products, 2)

	got, err := svc.Get(ctx, 1, producttype.Pack)
	require.NoError(t, err)
	assert.Equal(t, "Morning Pack", got.Name)
	assert.True(t, got.Price.Equal(decimal.NewFromInt(1499)))
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	_, err := svc.Create(ctx, &ProductCreateRequest{ID: 5, Type: "juice", Name: "x", Price: decimal.NewFromInt(1)})
	assert.Error(t, err)

	_, err = svc.Create(ctx, &ProductCreateRequest{ID: 5, Type: producttype.Fruit, Name: "x", Price: decimal.Zero})
	assert.Error(t, err)
}

func TestUpdateDeactivatesProduct(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	_, err := svc.Create(ctx, &ProductCreateRequest{ID: 150, Type: producttype.Bowl, Name: "Fruit Bowl", Price: decimal.NewFromInt(199)})
	require.NoError(t, err)

	inactive := false
	newPrice := decimal.NewFromInt(210)
	updated, err := svc.Update(ctx, 150, producttype.Bowl, &ProductUpdateRequest{IsActive: &inactive, Price: &newPrice})
	require.NoError(t, err)
	assert.False(t, updated.IsActive)
	assert.True(t, updated.Price.Equal(newPrice))

	_, err = svc.Get(ctx, 150, producttype.Bowl)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Update(ctx, 999, producttype.Bowl, &ProductUpdateRequest{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPriceIndexSeparatesTypes(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	_, err := svc.Create(ctx, &ProductCreateRequest{ID: 3, Type: producttype.Fruit, Name: "Kiwi", Price: decimal.NewFromInt(60)})
	require.NoError(t, err)
	_, err = svc.Create(ctx, &ProductCreateRequest{ID: 3, Type: producttype.Pack, Name: "Family Pack", Price: decimal.NewFromInt(2499)})
	require.NoError(t, err)

	index, err := svc.PriceIndex(ctx, []Key{{ID: 3, Type: producttype.Fruit}, {ID: 3, Type: producttype.Pack}, {ID: 77, Type: producttype.Fruit}})
	require.NoError(t, err)

	assert.True(t, index[Key{ID: 3, Type: producttype.Fruit}].Price.Equal(decimal.NewFromInt(60)))
	assert.True(t, index[Key{ID: 3, Type: producttype.Pack}].Price.Equal(decimal.NewFromInt(2499)))
	_, ok := index[Key{ID: 77, Type: producttype.Fruit}]
	assert.False(t, ok)
}

func TestHasDiscount(t *testing.T) {
	original := decimal.NewFromInt(150)
	p := Product{Price: decimal.NewFromInt(120), OriginalPrice: &original}
	assert.True(t, p.HasDiscount())

	p.OriginalPrice = nil
	assert.False(t, p.HasDiscount())
}
