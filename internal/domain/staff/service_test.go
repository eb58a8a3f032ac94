package staff

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/fruitbox/internal/config"
	"github.com/your-org/fruitbox/internal/pkg/auth"
	"github.com/your-org/fruitbox/internal/pkg/logger"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.JWT.Secret = "0123456789abcdef0123456789abcdef"
	cfg.JWT.AccessTokenExpiry = time.Hour
	cfg.Security.BcryptCost = bcrypt.MinCost
	return cfg
}

func newTestService(t *testing.T) *Service {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Account{}))
	return NewService(db, testConfig(), logger.Discard())
}

func TestCreateAndLogin(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	account, err := svc.Create(ctx, &CreateRequest{Email: "Rider@FruitBox.in", Name: "Rider", Password: "deliver123", Role: auth.RolePartner})
	require.NoError(t, err)
	assert.Equal(t, "rider@fruitbox.in", account.Email)
	assert.NotEqual(t, "deliver123", account.PasswordHash)

	_, err = svc.Create(ctx, &CreateRequest{Email: "rider@fruitbox.in", Password: "deliver123", Role: auth.RolePartner})
	assert.ErrorIs(t, err, ErrEmailExists)

	resp, err := svc.Login(ctx, &LoginRequest{Email: "rider@fruitbox.in", Password: "deliver123"})
	require.NoError(t, err)
	assert.Equal(t, int64(3600), resp.ExpiresIn)
	require.NotNil(t, resp.Account.LastLoginAt)

	claims, err := auth.NewJWTManager(testConfig()).ValidateAccessToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, auth.RolePartner, claims.Role)
	assert.Equal(t, account.Subject(), claims.UserID)
	assert.True(t, claims.IsStaff())

	_, err = svc.Login(ctx, &LoginRequest{Email: "rider@fruitbox.in", Password: "wrongpass1"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, &LoginRequest{Email: "nobody@fruitbox.in", Password: "deliver123"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestCreateRejectsCustomerRoleAndWeakPasswords(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	_, err := svc.Create(ctx, &CreateRequest{Email: "a@b.in", Password: "deliver123", Role: auth.RoleCustomer})
	assert.ErrorIs(t, err, ErrInvalidRole)

	_, err = svc.Create(ctx, &CreateRequest{Email: "a@b.in", Password: "short", Role: auth.RoleAdmin})
	assert.Error(t, err)
}

func TestListFiltersByRole(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	_, err := svc.Create(ctx, &CreateRequest{Email: "admin@fruitbox.in", Password: "admin1234", Role: auth.RoleAdmin})
	require.NoError(t, err)
	_, err = svc.Create(ctx, &CreateRequest{Email: "p1@fruitbox.in", Password: "partner123", Role: auth.RolePartner})
	require.NoError(t, err)

	partners, err := svc.List(ctx, auth.RolePartner)
	require.NoError(t, err)
	require.Len(t, partners, 1)
	assert.Equal(t, "p1@fruitbox.in", partners[0].Email)

	all, err := svc.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
