package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/fruitbox/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Name: "Fruitbox"},
		JWT: config.JWTConfig{
			Secret:            "test-secret-that-is-long-enough-for-hs256",
			AccessTokenExpiry: time.Hour,
		},
		Security: config.SecurityConfig{BcryptCost: 4},
	}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	manager := NewJWTManager(testConfig())

	token, err := manager.GenerateAccessToken("42", "partner@fruitbox.in", RolePartner)
	require.NoError(t, err)

	claims, err := manager.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "42", claims.UserID)
	assert.Equal(t, RolePartner, claims.Role)
	assert.True(t, claims.IsStaff())
}

func TestProviderTokenDefaultsToCustomer(t *testing.T) {
	cfg := testConfig()
	claims := jwt.MapClaims{
		"user_id": "6b1f0c1e-4a57-4df2-9a58-0d0f8f0b1d11",
		"email":   "asha@example.com",
		"exp":     time.Now().Add(time.Hour).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.JWT.Secret))
	require.NoError(t, err)

	parsed, err := NewJWTManager(cfg).ValidateAccessToken(signed)
	require.NoError(t, err)
	assert.Equal(t, RoleCustomer, parsed.Role)
	assert.False(t, parsed.IsStaff())
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	token, err := NewJWTManager(testConfig()).GenerateAccessToken("1", "a@b.c", RoleAdmin)
	require.NoError(t, err)

	other := testConfig()
	other.JWT.Secret = "a-completely-different-secret-of-length"
	_, err = NewJWTManager(other).ValidateAccessToken(token)
	assert.Error(t, err)
}

func TestExtractTokenFromHeader(t *testing.T) {
	assert.Equal(t, "abc", ExtractTokenFromHeader("Bearer abc"))
	assert.Equal(t, "abc", ExtractTokenFromHeader("bearer abc"))
	assert.Equal(t, "", ExtractTokenFromHeader("Basic abc"))
	assert.Equal(t, "", ExtractTokenFromHeader("Bearer"))
}

func TestPasswordHashAndVerify(t *testing.T) {
	manager := NewPasswordManager(testConfig())

	hash, err := manager.HashPassword("mango2026")
	require.NoError(t, err)
	assert.NoError(t, manager.VerifyPassword("mango2026", hash))
	assert.Error(t, manager.VerifyPassword("papaya2026", hash))

	_, err = manager.HashPassword("short1")
	assert.Error(t, err)
	_, err = manager.HashPassword("onlyletters")
	assert.Error(t, err)
}
