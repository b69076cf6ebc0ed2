package idempotency

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client, ttl), mr
}

// fakeDB emulates ON CONFLICT DO NOTHING on a primary key.
type fakeDB struct {
	mu     sync.Mutex
	rows   map[string]time.Time
	err    error
	cutoff time.Time
}

func (f *fakeDB) Exec(_ context.Context, _ string, args ...any) (pgconn.CommandTag, error) {
	if f.err != nil {
		return pgconn.CommandTag{}, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if before, ok := args[0].(time.Time); ok {
		f.cutoff = before
		var n int
		for id, at := range f.rows {
			if at.Before(before) {
				delete(f.rows, id)
				n++
			}
		}
		return pgconn.NewCommandTag(fmt.Sprintf("DELETE %d", n)), nil
	}
	id := args[0].(string)
	if _, ok := f.rows[id]; ok {
		return pgconn.NewCommandTag("INSERT 0 0"), nil
	}
	f.rows[id] = time.Now()
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (f *fakeDB) Ping(context.Context) error { return f.err }

func stores(t *testing.T) map[string]Store {
	redisStore, _ := setupTestRedis(t, time.Hour)
	return map[string]Store{
		"memory":   NewMemoryStore(0),
		"redis":    redisStore,
		"postgres": NewPostgresStore(&fakeDB{rows: map[string]time.Time{}}),
	}
}

func TestClaim_FirstCallerWins(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ok, err := s.Claim(ctx, "pi_1")
			require.NoError(t, err)
			assert.True(t, ok)

			ok, err = s.Claim(ctx, "pi_1")
			require.NoError(t, err)
			assert.False(t, ok)

			ok, err = s.Claim(ctx, "pi_2")
			require.NoError(t, err)
			assert.True(t, ok)

			assert.NoError(t, s.Ping(ctx))
			assert.Equal(t, name, s.Name())
		})
	}
}

func TestClaim_Concurrent(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			var wins atomic.Int32
			var wg sync.WaitGroup
			for i := 0; i < 50; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					ok, err := s.Claim(ctx, "pi_race")
					if err == nil && ok {
						wins.Add(1)
					}
				}()
			}
			wg.Wait()
			assert.Equal(t, int32(1), wins.Load())
		})
	}
}

func TestMemoryStore_TTL(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewMemoryStore(time.Hour)
	s.now = func() time.Time { return now }

	ok, _ := s.Claim(context.Background(), "pi_1")
	assert.True(t, ok)

	now = now.Add(30 * time.Minute)
	ok, _ = s.Claim(context.Background(), "pi_1")
	assert.False(t, ok)

	now = now.Add(time.Hour)
	ok, _ = s.Claim(context.Background(), "pi_1")
	assert.True(t, ok)
	assert.Equal(t, 1, s.Len())
}

func TestRedisStore_KeyAndTTL(t *testing.T) {
	s, mr := setupTestRedis(t, 2*time.Hour)

	ok, err := s.Claim(context.Background(), "pi_42")
	require.NoError(t, err)
	require.True(t, ok)

	assert.True(t, mr.Exists("processed_pi:pi_42"))
	assert.Equal(t, 2*time.Hour, mr.TTL("processed_pi:pi_42"))

	mr.FastForward(3 * time.Hour)
	ok, err = s.Claim(context.Background(), "pi_42")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisStore_Unavailable(t *testing.T) {
	s, mr := setupTestRedis(t, time.Hour)
	mr.Close()

	_, err := s.Claim(context.Background(), "pi_1")
	assert.Error(t, err)
}

func TestPostgresStore_Error(t *testing.T) {
	s := NewPostgresStore(&fakeDB{err: errors.New("connection refused")})
	ok, err := s.Claim(context.Background(), "pi_1")
	assert.False(t, ok)
	assert.ErrorContains(t, err, "connection refused")
}

func TestMemoryStore_Prune(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(time.Hour)
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return t0 }
	_, _ = s.Claim(ctx, "pi_old")
	s.now = func() time.Time { return t0.Add(2 * time.Hour) }
	_, _ = s.Claim(ctx, "pi_new")

	n, err := s.Prune(ctx, t0.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, 1, s.Len())

	ok, _ := s.Claim(ctx, "pi_new")
	assert.False(t, ok)
}

func TestPostgresStore_Prune(t *testing.T) {
	ctx := context.Background()
	db := &fakeDB{rows: map[string]time.Time{
		"pi_old": time.Now().Add(-48 * time.Hour),
		"pi_new": time.Now(),
	}}
	s := NewPostgresStore(db)

	cutoff := time.Now().Add(-24 * time.Hour)
	n, err := s.Prune(ctx, cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, cutoff, db.cutoff)

	_, err = NewPostgresStore(&fakeDB{err: errors.New("down")}).Prune(ctx, cutoff)
	assert.Error(t, err)
}

func TestRedisStore_IsNotPruner(t *testing.T) {
	s, _ := setupTestRedis(t, time.Hour)
	var store Store = s
	_, ok := store.(Pruner)
	assert.False(t, ok, "redis expires claims through key TTLs")
}

func ExampleMemoryStore() {
	s := NewMemoryStore(0)
	first, _ := s.Claim(context.Background(), "pi_123")
	second, _ := s.Claim(context.Background(), "pi_123")
	fmt.Println(first, second)
	// Output: true false
}
