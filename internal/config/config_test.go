package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"PORT", "CORS_ORIGINS", "STATIC_DIR", "TIMEZONE",
	"STRIPE_SECRET_KEY", "STRIPE_PUBLISHABLE_KEY", "STRIPE_WEBHOOK_SECRET", "PAYMENT_MODE",
	"SENDGRID_API_KEY", "SENDGRID_TEMPLATE_ID", "EMAIL_FROM", "EMAIL_FROM_NAME",
	"DATABASE_URL", "REDIS_URL", "IDEMPOTENCY_STORE", "IDEMPOTENCY_TTL_HOURS",
	"KAFKA_BROKERS", "TRACKING_TOPIC", "JWT_SECRET", "ADMIN_EMAIL", "ADMIN_PASSWORD",
	"ENCRYPTION_KEY", "COLLABORATOR_TIMEOUT_SECONDS", "SHUTDOWN_TIMEOUT_SECONDS",
}

// clearEnv blanks every variable Load reads; empty values count as unset.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Equal(t, StoreMemory, cfg.IdempotencyStore)
	assert.Equal(t, PaymentStripe, cfg.PaymentMode)
	assert.Equal(t, 10*time.Second, cfg.CollaboratorTimeout)
	assert.Equal(t, 30*24*time.Hour, cfg.IdempotencyTTL)
	assert.Equal(t, "UTC", cfg.Location.String())
	assert.Empty(t, cfg.KafkaBrokers)
	assert.False(t, cfg.StripeConfigured())
	assert.False(t, cfg.EmailConfigured())
	assert.False(t, cfg.AdminConfigured())
}

func TestLoad_FromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "8080")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("STRIPE_SECRET_KEY", "sk_test")
	t.Setenv("SENDGRID_API_KEY", "SG.x")
	t.Setenv("IDEMPOTENCY_STORE", "Redis")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("COLLABORATOR_TIMEOUT_SECONDS", "3")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, StoreRedis, cfg.IdempotencyStore)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 3*time.Second, cfg.CollaboratorTimeout)
	assert.True(t, cfg.StripeConfigured())
	assert.True(t, cfg.EmailConfigured())
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"port", map[string]string{"PORT": "abc"}},
		{"timezone", map[string]string{"TIMEZONE": "Mars/Olympus"}},
		{"payment mode", map[string]string{"PAYMENT_MODE": "paypal"}},
		{"store", map[string]string{"IDEMPOTENCY_STORE": "etcd"}},
		{"redis without url", map[string]string{"IDEMPOTENCY_STORE": "redis"}},
		{"postgres without url", map[string]string{"IDEMPOTENCY_STORE": "postgres"}},
		{"short key", map[string]string{"ENCRYPTION_KEY": "short"}},
		{"negative timeout", map[string]string{"SHUTDOWN_TIMEOUT_SECONDS": "-1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestMockModeCountsAsConfigured(t *testing.T) {
	clearEnv(t)
	t.Setenv("PAYMENT_MODE", "mock")
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.StripeConfigured())
}
