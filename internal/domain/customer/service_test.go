package customer

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/fruitbox/internal/pkg/logger"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) *Service {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Customer{}))
	return NewService(db, logger.Discard())
}

func TestCustomerLifecycle(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	created, err := svc.Create(ctx, &CreateRequest{Name: " Asha ", Email: "Asha@Example.com", City: "Pune"})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.Equal(t, "asha@example.com", created.Email)
	assert.Equal(t, "Asha", created.Name)

	_, err = svc.Create(ctx, &CreateRequest{Name: "Other", Email: "asha@example.com"})
	assert.ErrorIs(t, err, ErrEmailExists)

	city := "Mumbai"
	updated, err := svc.Update(ctx, created.ID, &UpdateRequest{City: &city})
	require.NoError(t, err)
	assert.Equal(t, "Mumbai", updated.City)
	assert.Equal(t, "Mumbai", updated.Snapshot().City)

	require.NoError(t, svc.Delete(ctx, created.ID))
	_, err = svc.Get(ctx, created.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, created.ID), ErrNotFound)
}

func TestCreateKeepsProviderID(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	id := uuid.New()
	created, err := svc.Create(ctx, &CreateRequest{ID: &id, Name: "Ravi", Email: "ravi@example.com"})
	require.NoError(t, err)
	assert.Equal(t, id, created.ID)

	got, err := svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Ravi", got.Name)
}
