package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SERVER_ENV", "development")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "local", cfg.Checkout.LockBackend)
	assert.Equal(t, 168*time.Hour, cfg.Auth.RefreshTokenTTL)
	assert.Equal(t, 6, cfg.OTP.Length)
	assert.True(t, cfg.Checkout.ShippingFee.IsZero())
	assert.NotEmpty(t, cfg.Auth.JWTSecret)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("PAYMOB_INTEGRATION_IDS", "111,222")
	t.Setenv("CHECKOUT_SHIPPING_FEE", "25.50")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, []int{111, 222}, cfg.Paymob.IntegrationIDs)
	assert.Equal(t, "25.5", cfg.Checkout.ShippingFee.String())
}

func TestLoadRejectsMissingSecretInProduction(t *testing.T) {
	t.Setenv("SERVER_ENV", "production")
	t.Setenv("AUTH_JWT_SECRET", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsRedisLocksWithoutRedis(t *testing.T) {
	t.Setenv("CHECKOUT_LOCK_BACKEND", "redis")
	t.Setenv("REDIS_ENABLED", "false")

	_, err := Load()
	assert.Error(t, err)
}
