package handler

import (
	"context"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

const healthCheckTimeout = 2 * time.Second

// HealthCheck probes one backing service.
type HealthCheck struct {
	Name string
	Ping func(ctx context.Context) error
}

// HealthInfo is the static part of the health report.
type HealthInfo struct {
	StripeConfigured bool
	EmailConfigured  bool
	IdempotencyStore string
}

// HealthHandler handles the health check endpoint.
type HealthHandler struct {
	info   HealthInfo
	checks []HealthCheck
	now    func() time.Time
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(info HealthInfo, checks ...HealthCheck) *HealthHandler {
	return &HealthHandler{info: info, checks: checks, now: time.Now}
}

// Check handles GET /api/health.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	status := map[string]interface{}{
		"status":           "ok",
		"timestamp":        h.now().UTC().Format(time.RFC3339),
		"stripeConfigured": h.info.StripeConfigured,
		"emailConfigured":  h.info.EmailConfigured,
		"idempotencyStore": h.info.IdempotencyStore,
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, c := range h.checks {
		g.Go(func() error {
			result := "ok"
			if err := c.Ping(gctx); err != nil {
				result = "error"
			}
			mu.Lock()
			status[c.Name] = result
			if result != "ok" {
				status["status"] = "degraded"
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	code := http.StatusOK
	if status["status"] == "degraded" {
		code = http.StatusServiceUnavailable
	}

	JSON(w, code, status)
}
