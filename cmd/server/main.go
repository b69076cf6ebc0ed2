package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/vpoguide/backend/internal/checkout"
	"github.com/vpoguide/backend/internal/config"
	"github.com/vpoguide/backend/internal/handler"
	"github.com/vpoguide/backend/internal/i18n"
	"github.com/vpoguide/backend/internal/idempotency"
	appMiddleware "github.com/vpoguide/backend/internal/middleware"
	"github.com/vpoguide/backend/internal/notify"
	"github.com/vpoguide/backend/internal/repository"
	"github.com/vpoguide/backend/internal/service"
	"github.com/vpoguide/backend/internal/tracking"
	"github.com/vpoguide/backend/internal/ws"
	"github.com/vpoguide/backend/pkg/crypto"
	"github.com/vpoguide/backend/pkg/payment"
)

const (
	statusRetention = 15 * time.Minute
	statusMaxWait   = 5 * time.Minute
)

func main() {
	// Load .env file if present (for local development)
	loadDotEnv()

	// Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Config error: %v", err)
	}

	ctx := context.Background()

	catalog, err := i18n.Load()
	if err != nil {
		log.Fatalf("❌ Translations error: %v", err)
	}

	// Database is optional: bookings fall back to memory without it.
	var db *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		db, err = repository.NewDB(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("❌ Database error: %v", err)
		}
		defer db.Close()

		if err := repository.RunMigrations(ctx, db); err != nil {
			log.Fatalf("❌ Migration error: %v", err)
		}
		log.Println("✅ Database connected & migrated")
	} else {
		log.Println("⚠️  DATABASE_URL not set, bookings are kept in memory")
	}

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		rdb, err = idempotency.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatalf("❌ Redis error: %v", err)
		}
		defer rdb.Close()
		log.Println("✅ Redis connected")
	}

	// Initialize sealer for customer contact details at rest
	sealer, err := crypto.NewSealer(cfg.EncryptionKey)
	if err != nil {
		log.Fatalf("❌ Encryption error: %v", err)
	}

	store := newIdempotencyStore(cfg, db, rdb)
	log.Printf("✅ Idempotency store: %s", store.Name())

	// Sweep old claims for stores without native expiry
	bgCtx, stopBackground := context.WithCancel(ctx)
	defer stopBackground()
	monitor := service.NewMonitorService(store, cfg.IdempotencyTTL, 0)
	monitor.Start(bgCtx)
	if monitor.Enabled() {
		log.Printf("✅ Claim sweeper started (retention %s)", cfg.IdempotencyTTL)
	}

	var bookings repository.BookingRepository = repository.NewMemoryBookingRepository()
	if db != nil {
		bookings = repository.NewPostgresBookingRepository(db, sealer)
	}

	gateway := newGateway(cfg)
	var webhookGateway payment.Gateway
	if gateway != nil && (cfg.PaymentMode == config.PaymentMock || cfg.StripeWebhookSecret != "") {
		webhookGateway = gateway
	} else {
		log.Println("⚠️  Webhook secret not set, /api/webhook will answer 500")
	}

	var mailer notify.Mailer = notify.NewLogMailer()
	if cfg.EmailConfigured() {
		mailer = notify.NewSendGridMailer(notify.SendGridConfig{
			APIKey:     cfg.SendGridAPIKey,
			TemplateID: cfg.SendGridTemplateID,
			FromEmail:  cfg.EmailFrom,
			FromName:   cfg.EmailFromName,
			Timeout:    cfg.CollaboratorTimeout,
		}, catalog)
		log.Println("✅ SendGrid configured")
	} else {
		log.Println("⚠️  SENDGRID_API_KEY not set, confirmation emails are logged only")
	}

	var tracker tracking.Tracker = tracking.NewLogTracker()
	if len(cfg.KafkaBrokers) > 0 {
		tracker = tracking.NewKafkaTracker(tracking.NewKafkaWriter(cfg.TrackingTopic, cfg.KafkaBrokers...))
		log.Printf("✅ Tracking events -> kafka topic %s", cfg.TrackingTopic)
	}
	defer tracker.Close()

	hub := ws.NewHub(statusRetention)

	// Initialize services
	validator := checkout.NewValidator(cfg.Location)
	paymentSvc := service.NewPaymentService(gateway, validator, tracker, cfg.StripePublishableKey, cfg.CollaboratorTimeout)
	successSvc := service.NewSuccessHandler(store, bookings, mailer, tracker, hub, catalog, cfg.CollaboratorTimeout)
	authSvc, err := service.NewAuthService(cfg.JWTSecret, cfg.AdminEmail, cfg.AdminPassword)
	if err != nil {
		log.Fatalf("❌ Admin auth error: %v", err)
	}
	if !authSvc.Configured() {
		log.Println("⚠️  JWT_SECRET/ADMIN_EMAIL/ADMIN_PASSWORD not set, admin endpoints disabled")
	}

	// Initialize handlers
	healthHandler := handler.NewHealthHandler(handler.HealthInfo{
		StripeConfigured: cfg.StripeConfigured(),
		EmailConfigured:  cfg.EmailConfigured(),
		IdempotencyStore: store.Name(),
	}, healthChecks(store, db, rdb)...)
	paymentHandler := handler.NewPaymentHandler(paymentSvc)
	plansHandler := handler.NewPlansHandler(paymentSvc)
	webhookHandler := handler.NewWebhookHandler(webhookGateway, successSvc)
	translationsHandler := handler.NewTranslationsHandler(catalog)
	authHandler := handler.NewAuthHandler(authSvc)
	adminHandler := handler.NewAdminHandler(bookings)
	statusHandler := ws.NewStatusHandler(hub, statusMaxWait)

	// Build router
	r := chi.NewRouter()

	// Global middleware
	r.Use(appMiddleware.RequestID)
	r.Use(appMiddleware.Recovery)
	r.Use(appMiddleware.Logger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key", appMiddleware.RequestIDHeader},
		ExposedHeaders:   []string{appMiddleware.RequestIDHeader, "X-Translation-Fallbacks"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Global rate limiter (20 req/sec per IP, burst of 40)
	globalRL := appMiddleware.NewRateLimiter(20, 40)
	defer globalRL.Stop()
	r.Use(globalRL.Middleware())

	strictRL := appMiddleware.StrictRateLimiter()
	defer strictRL.Stop()

	// Public routes
	r.Get("/health", healthHandler.Check)
	r.Get("/api/health", healthHandler.Check)
	r.Get("/api/stripe-key", paymentHandler.StripeKey)
	r.Get("/api/plans", plansHandler.List)
	r.Get("/api/catalogue", plansHandler.Catalogue)
	r.Post("/api/quote", paymentHandler.Quote)
	r.Get("/api/translations", translationsHandler.Languages)
	r.Get("/api/translations/{lang}", translationsHandler.Get)
	r.Post("/api/webhook", webhookHandler.HandlePayment) // Signed by the payment provider

	// Payment status stream for the success page
	r.HandleFunc("/api/payments/{id}/events", statusHandler.Handle)

	// Strictly limited routes
	r.Group(func(r chi.Router) {
		r.Use(strictRL.Middleware())
		r.Post("/api/create-payment-intent", paymentHandler.CreatePaymentIntent)
		r.Post("/api/admin/login", authHandler.Login)
	})

	// Admin routes
	r.Group(func(r chi.Router) {
		r.Use(appMiddleware.Auth(authSvc))
		r.Use(appMiddleware.AdminOnly)
		r.Get("/api/admin/bookings", adminHandler.ListBookings)
		r.Get("/api/admin/bookings/{id}", adminHandler.GetBooking)
		r.Get("/api/admin/stats", adminHandler.GetStats)
	})

	if cfg.StaticDir != "" {
		if _, err := os.Stat(cfg.StaticDir); err != nil {
			log.Fatalf("❌ STATIC_DIR error: %v", err)
		}
		r.Handle("/*", http.FileServer(http.Dir(cfg.StaticDir)))
		log.Printf("✅ Serving static files from %s", cfg.StaticDir)
	}

	// Start server
	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		// WriteTimeout must be 0 for WebSocket connections (they are long-lived)
		IdleTimeout: 120 * time.Second,
	}

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		log.Println("🛑 Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Printf("⚠️  Shutdown error: %v", err)
		}
	}()

	log.Printf("🚀 VPO Guidance backend listening at http://%s (payments: %s)", addr, gatewayName(gateway))
	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("❌ Server error: %v", err)
	}
	<-done
}

func newGateway(cfg *config.Config) payment.Gateway {
	switch {
	case cfg.PaymentMode == config.PaymentMock:
		secret := cfg.StripeWebhookSecret
		if secret == "" {
			secret = "whsec_mock"
		}
		log.Println("⚠️  PAYMENT_MODE=mock, no real charges will be created")
		return payment.NewMockGateway(secret)
	case cfg.StripeSecretKey != "":
		log.Println("✅ Stripe configured")
		return payment.NewStripeGateway(payment.StripeConfig{
			SecretKey:     cfg.StripeSecretKey,
			WebhookSecret: cfg.StripeWebhookSecret,
			Timeout:       cfg.CollaboratorTimeout,
			MaxRetries:    2,
		})
	default:
		log.Println("⚠️  STRIPE_SECRET_KEY not set, payment endpoints will answer 500")
		return nil
	}
}

func gatewayName(g payment.Gateway) string {
	if g == nil {
		return "disabled"
	}
	return g.Name()
}

func newIdempotencyStore(cfg *config.Config, db *pgxpool.Pool, rdb *redis.Client) idempotency.Store {
	switch cfg.IdempotencyStore {
	case config.StoreRedis:
		return idempotency.NewRedisStore(rdb, cfg.IdempotencyTTL)
	case config.StorePostgres:
		return idempotency.NewPostgresStore(db)
	default:
		return idempotency.NewMemoryStore(cfg.IdempotencyTTL)
	}
}

func healthChecks(store idempotency.Store, db *pgxpool.Pool, rdb *redis.Client) []handler.HealthCheck {
	checks := []handler.HealthCheck{{Name: "idempotency", Ping: store.Ping}}
	if db != nil {
		checks = append(checks, handler.HealthCheck{Name: "database", Ping: db.Ping})
	}
	if rdb != nil {
		checks = append(checks, handler.HealthCheck{Name: "redis", Ping: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
	}
	return checks
}

// loadDotEnv reads a .env file if it exists.
func loadDotEnv() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("⚠️  .env not loaded: %v", err)
	}
}
