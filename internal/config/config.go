package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Idempotency store backends.
const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

// Payment modes.
const (
	PaymentStripe = "stripe"
	PaymentMock   = "mock"
)

// Config holds all application configuration loaded from environment variables.
// Missing collaborator secrets are allowed: only the endpoints that need them fail.
type Config struct {
	Port        int
	CORSOrigins []string
	StaticDir   string
	Location    *time.Location

	StripeSecretKey      string
	StripePublishableKey string
	StripeWebhookSecret  string
	PaymentMode          string

	SendGridAPIKey     string
	SendGridTemplateID string
	EmailFrom          string
	EmailFromName      string

	DatabaseURL      string
	RedisURL         string
	IdempotencyStore string
	IdempotencyTTL   time.Duration

	KafkaBrokers  []string
	TrackingTopic string

	JWTSecret     string
	AdminEmail    string
	AdminPassword string
	EncryptionKey string

	CollaboratorTimeout time.Duration
	ShutdownTimeout     time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	port, err := getInt("PORT", 3000)
	if err != nil {
		return nil, err
	}

	loc, err := time.LoadLocation(getEnv("TIMEZONE", "UTC"))
	if err != nil {
		return nil, fmt.Errorf("TIMEZONE is invalid: %w", err)
	}

	mode := strings.ToLower(getEnv("PAYMENT_MODE", PaymentStripe))
	if mode != PaymentStripe && mode != PaymentMock {
		return nil, fmt.Errorf("PAYMENT_MODE must be %q or %q, got %q", PaymentStripe, PaymentMock, mode)
	}

	dbURL := getEnv("DATABASE_URL", "")
	redisURL := getEnv("REDIS_URL", "")
	store := strings.ToLower(getEnv("IDEMPOTENCY_STORE", StoreMemory))
	switch store {
	case StoreMemory:
	case StoreRedis:
		if redisURL == "" {
			return nil, fmt.Errorf("IDEMPOTENCY_STORE=redis requires REDIS_URL")
		}
	case StorePostgres:
		if dbURL == "" {
			return nil, fmt.Errorf("IDEMPOTENCY_STORE=postgres requires DATABASE_URL")
		}
	default:
		return nil, fmt.Errorf("IDEMPOTENCY_STORE must be memory, redis or postgres, got %q", store)
	}

	ttlHours, err := getInt("IDEMPOTENCY_TTL_HOURS", 24*30)
	if err != nil {
		return nil, err
	}

	encKey := getEnv("ENCRYPTION_KEY", "")
	if encKey != "" && len(encKey) != 32 {
		return nil, fmt.Errorf("ENCRYPTION_KEY must be exactly 32 bytes, got %d", len(encKey))
	}

	collabSecs, err := getInt("COLLABORATOR_TIMEOUT_SECONDS", 10)
	if err != nil {
		return nil, err
	}
	shutdownSecs, err := getInt("SHUTDOWN_TIMEOUT_SECONDS", 10)
	if err != nil {
		return nil, err
	}

	return &Config{
		Port:        port,
		CORSOrigins: splitList(getEnv("CORS_ORIGINS", "*")),
		StaticDir:   getEnv("STATIC_DIR", ""),
		Location:    loc,

		StripeSecretKey:      getEnv("STRIPE_SECRET_KEY", ""),
		StripePublishableKey: getEnv("STRIPE_PUBLISHABLE_KEY", ""),
		StripeWebhookSecret:  getEnv("STRIPE_WEBHOOK_SECRET", ""),
		PaymentMode:          mode,

		SendGridAPIKey:     getEnv("SENDGRID_API_KEY", ""),
		SendGridTemplateID: getEnv("SENDGRID_TEMPLATE_ID", ""),
		EmailFrom:          getEnv("EMAIL_FROM", "bookings@vpoexperience.com"),
		EmailFromName:      getEnv("EMAIL_FROM_NAME", "VPO Experience"),

		DatabaseURL:      dbURL,
		RedisURL:         redisURL,
		IdempotencyStore: store,
		IdempotencyTTL:   time.Duration(ttlHours) * time.Hour,

		KafkaBrokers:  splitList(getEnv("KAFKA_BROKERS", "")),
		TrackingTopic: getEnv("TRACKING_TOPIC", "checkout-events"),

		JWTSecret:     getEnv("JWT_SECRET", ""),
		AdminEmail:    getEnv("ADMIN_EMAIL", ""),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),
		EncryptionKey: encKey,

		CollaboratorTimeout: time.Duration(collabSecs) * time.Second,
		ShutdownTimeout:     time.Duration(shutdownSecs) * time.Second,
	}, nil
}

// StripeConfigured reports whether payment intents can be created.
func (c *Config) StripeConfigured() bool {
	return c.PaymentMode == PaymentMock || c.StripeSecretKey != ""
}

// EmailConfigured reports whether confirmation emails are delivered.
func (c *Config) EmailConfigured() bool {
	return c.SendGridAPIKey != ""
}

// AdminConfigured reports whether the admin endpoints can issue tokens.
func (c *Config) AdminConfigured() bool {
	return c.JWTSecret != "" && c.AdminEmail != "" && c.AdminPassword != ""
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer, got %q", key, v)
	}
	return n, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
