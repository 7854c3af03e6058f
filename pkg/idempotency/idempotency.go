// Package idempotency deduplicates retried requests with a redis SetNX
// marker per request key.
package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl}
}

func (s *Store) Key(route, key string) string {
	return fmt.Sprintf("idem:%s:%s", route, key)
}

// Seen marks the key and reports whether it was already marked. The first
// caller gets false, every retry within the TTL gets true.
func (s *Store) Seen(ctx context.Context, key string) (bool, error) {
	ok, err := s.rdb.SetNX(ctx, key, "1", s.ttl).Result()
	if err != nil {
		return false, err
	}
	return !ok, nil
}
