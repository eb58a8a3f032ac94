package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 30, cfg.Subscription.Days)
	assert.Equal(t, "INR", cfg.Razorpay.Currency)
	assert.Equal(t, "file", cfg.Storefront.Storage)
	assert.True(t, cfg.IsDevelopment())
}

func TestValidateRejectsShortSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "short")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestValidateRejectsBadHoliday(t *testing.T) {
	t.Setenv("SUBSCRIPTION_HOLIDAYS", "2026-01-26,not-a-date")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not-a-date")
}

func TestValidateRequiresRazorpayKeysInProduction(t *testing.T) {
	t.Setenv("APP_ENV", "production")

	_, err := Load()
	require.Error(t, err)

	t.Setenv("RAZORPAY_KEY_ID", "rzp_live_x")
	t.Setenv("RAZORPAY_KEY_SECRET", "secret")
	_, err = Load()
	require.NoError(t, err)
}

func TestHolidaySet(t *testing.T) {
	t.Setenv("SUBSCRIPTION_HOLIDAYS", "2026-01-26, 2026-08-15")

	cfg, err := Load()
	require.NoError(t, err)

	set := cfg.HolidaySet()
	assert.True(t, set["2026-01-26"])
	assert.True(t, set["2026-08-15"])
	assert.False(t, set["2026-10-02"])
}

func TestValidateEmailProvider(t *testing.T) {
	t.Setenv("EMAIL_PROVIDER", "resend")
	t.Setenv("EMAIL_API_KEY", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "EMAIL_API_KEY")

	t.Setenv("EMAIL_PROVIDER", "pigeon")
	_, err = Load()
	require.Error(t, err)
}
