// Package replay records request references (the Ref header) so a signed
// request cannot be submitted twice while its reference is remembered.
package replay

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store claims references.  Claim returns true the first time ref is seen
// within ttl and false for every repeat.
type Store interface {
	Claim(ctx context.Context, ref string, ttl time.Duration) (bool, error)
}

// RedisStore claims references with SET NX so every replica shares them.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisStore(rdb *redis.Client, prefix string) *RedisStore {
	return &RedisStore{rdb: rdb, prefix: prefix}
}

// Claim implements Store.
func (s *RedisStore) Claim(ctx context.Context, ref string, ttl time.Duration) (bool, error) {
	return s.rdb.SetNX(ctx, s.prefix+":"+ref, 1, ttl).Result()
}

// MemoryStore is the single-process fallback used when Redis is unavailable.
type MemoryStore struct {
	mu      sync.Mutex
	seen    map[string]time.Time // ref -> expiry
	now     func() time.Time
	claims  int
	sweepAt int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{seen: make(map[string]time.Time), now: time.Now, sweepAt: 1024}
}

// Claim implements Store.
func (s *MemoryStore) Claim(_ context.Context, ref string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.claims++
	if s.claims >= s.sweepAt {
		s.sweep(now)
		s.claims = 0
	}
	if exp, ok := s.seen[ref]; ok && now.Before(exp) {
		return false, nil
	}
	s.seen[ref] = now.Add(ttl)
	return true, nil
}

// sweep drops expired references.  Caller holds mu.
func (s *MemoryStore) sweep(now time.Time) {
	for ref, exp := range s.seen {
		if !now.Before(exp) {
			delete(s.seen, ref)
		}
	}
}
