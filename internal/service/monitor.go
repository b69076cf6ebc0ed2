package service

import (
	"context"
	"time"

	"github.com/vpoguide/backend/internal/idempotency"
	"github.com/vpoguide/backend/internal/logutil"
)

const defaultSweepInterval = time.Hour

// MonitorService periodically forgets idempotency claims older than the
// retention window, for stores that do not expire keys by themselves.
type MonitorService struct {
	store    idempotency.Store
	ttl      time.Duration
	interval time.Duration
	now      func() time.Time
}

// NewMonitorService creates a new monitor service. A zero ttl disables sweeping.
func NewMonitorService(store idempotency.Store, ttl, interval time.Duration) *MonitorService {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	return &MonitorService{store: store, ttl: ttl, interval: interval, now: time.Now}
}

// Enabled reports whether Start will launch a sweep loop.
func (s *MonitorService) Enabled() bool {
	_, ok := s.store.(idempotency.Pruner)
	return ok && s.ttl > 0
}

// Start begins the sweep loop in a background goroutine.
func (s *MonitorService) Start(ctx context.Context) {
	if !s.Enabled() {
		return
	}
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.sweep(ctx)
			}
		}
	}()
}

func (s *MonitorService) sweep(ctx context.Context) int64 {
	pruner, ok := s.store.(idempotency.Pruner)
	if !ok {
		return 0
	}
	before := s.now().Add(-s.ttl)
	n, err := pruner.Prune(ctx, before)
	if err != nil {
		logutil.Event("monitor", "sweep_failed", "store", s.store.Name(), "error", err)
		return 0
	}
	if n > 0 {
		logutil.Event("monitor", "claims_pruned", "store", s.store.Name(), "count", n)
	}
	return n
}
