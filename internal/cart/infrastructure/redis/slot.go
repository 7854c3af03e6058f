package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// carts are kept for a week of inactivity; every save renews the TTL.
const slotTTL = 7 * 24 * time.Hour

// Slot stores each cart as one JSON value per session key.
type Slot struct {
	rdb *redis.Client
}

func NewSlot(rdb *redis.Client) *Slot {
	return &Slot{rdb: rdb}
}

func (s *Slot) Load(ctx context.Context, key string) ([]byte, error) {
	data, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (s *Slot) Save(ctx context.Context, key string, data []byte) error {
	return s.rdb.Set(ctx, key, data, slotTTL).Err()
}
