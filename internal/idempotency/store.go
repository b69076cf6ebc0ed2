// Package idempotency records which payment intents have already been
// post-processed. A claim is an atomic put-if-absent: exactly one caller wins
// per ID for as long as the backing store remembers it.
package idempotency

import (
	"context"
	"sync"
	"time"
)

// Store is a put-if-absent set of processed payment intent IDs.
type Store interface {
	// Claim marks id as processed. It returns true only for the first caller.
	Claim(ctx context.Context, id string) (bool, error)
	Ping(ctx context.Context) error
	Name() string
}

// Pruner is implemented by stores that do not expire claims on their own.
type Pruner interface {
	// Prune forgets claims made before the cutoff and returns how many.
	Prune(ctx context.Context, before time.Time) (int64, error)
}

// MemoryStore keeps claims in process memory. Claims are lost on restart, so
// a webhook retried after a restart is processed again.
type MemoryStore struct {
	mu   sync.Mutex
	seen map[string]time.Time
	ttl  time.Duration
	now  func() time.Time
}

// NewMemoryStore creates a MemoryStore. A zero ttl keeps claims forever.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{seen: make(map[string]time.Time), ttl: ttl, now: time.Now}
}

func (s *MemoryStore) Claim(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if at, ok := s.seen[id]; ok && (s.ttl == 0 || now.Sub(at) < s.ttl) {
		return false, nil
	}
	s.seen[id] = now
	return true, nil
}

func (s *MemoryStore) Prune(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, at := range s.seen {
		if at.Before(before) {
			delete(s.seen, id)
			n++
		}
	}
	return n, nil
}

// Len returns the number of remembered claims, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Name() string { return "memory" }
