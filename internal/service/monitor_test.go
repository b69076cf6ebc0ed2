package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vpoguide/backend/internal/idempotency"
)

func TestMonitorService_SweepsExpiredClaims(t *testing.T) {
	ctx := context.Background()
	store := idempotency.NewMemoryStore(24 * time.Hour)

	_, err := store.Claim(ctx, "pi_1")
	require.NoError(t, err)

	m := NewMonitorService(store, 24*time.Hour, time.Minute)
	require.True(t, m.Enabled())

	assert.Zero(t, m.sweep(ctx))
	assert.Equal(t, 1, store.Len())

	m.now = func() time.Time { return time.Now().Add(25 * time.Hour) }
	assert.Equal(t, int64(1), m.sweep(ctx))
	assert.Zero(t, store.Len())
}

func TestMonitorService_Disabled(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	assert.False(t, NewMonitorService(idempotency.NewRedisStore(client, time.Hour), time.Hour, 0).Enabled())
	assert.False(t, NewMonitorService(idempotency.NewMemoryStore(0), 0, 0).Enabled())
}

func TestMonitorService_StartStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	store := idempotency.NewMemoryStore(time.Millisecond)
	_, _ = store.Claim(ctx, "pi_1")

	m := NewMonitorService(store, time.Millisecond, 5*time.Millisecond)
	m.Start(ctx)

	assert.Eventually(t, func() bool { return store.Len() == 0 }, time.Second, 5*time.Millisecond)
	cancel()
}
