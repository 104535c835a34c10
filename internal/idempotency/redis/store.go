package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nfcstore/checkout/internal/checkout/ports"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "idempotency:"

// Store keeps idempotency responses in Redis with a TTL, so replay windows
// expire on their own instead of needing a cleanup job.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStore creates a Redis-backed idempotency store.
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

// Get returns the stored response for a key, or nil if absent or expired.
func (s *Store) Get(ctx context.Context, key string) (*ports.StoredResponse, error) {
	raw, err := s.client.Get(ctx, keyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("get idempotency key: %w", err)
	}

	var resp ports.StoredResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode idempotency response: %w", err)
	}

	return &resp, nil
}

// Save stores the response unless the key already exists. SETNX preserves
// the first response the same way the Postgres store's ON CONFLICT does.
func (s *Store) Save(ctx context.Context, key string, response ports.StoredResponse) error {
	raw, err := json.Marshal(response)
	if err != nil {
		return fmt.Errorf("encode idempotency response: %w", err)
	}

	if err := s.client.SetNX(ctx, keyPrefix+key, raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("set idempotency key: %w", err)
	}

	return nil
}
