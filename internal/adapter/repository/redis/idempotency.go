package redis

import (
	"bytes"
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vaultline/ledgerd/internal/domain"
	"github.com/vaultline/ledgerd/internal/usecase"
)

// processingMarker is the placeholder stored under a claimed key while its
// posting is in flight. Stored outcomes are JSON objects, so the marker can
// never collide with a real outcome.
var processingMarker = []byte("processing")

// IdempotencyStore implements usecase.IdempotencyStore using Redis. The TTL
// on each key is the idempotency retention window: within it a key replays
// its outcome, after it the key is forgotten and the unique database column
// takes over as the durable guard.
type IdempotencyStore struct {
	client *redis.Client
	prefix string
}

// NewIdempotencyStore creates a new IdempotencyStore.
func NewIdempotencyStore(client *redis.Client) *IdempotencyStore {
	return &IdempotencyStore{
		client: client,
		prefix: "idempotency:",
	}
}

// Claim atomically claims the key with SETNX. Exactly one concurrent caller
// wins; the rest see either the in-flight marker or the stored outcome.
func (s *IdempotencyStore) Claim(ctx context.Context, key string, ttl time.Duration) (bool, []byte, error) {
	fullKey := s.prefix + key

	set, err := s.client.SetNX(ctx, fullKey, processingMarker, ttl).Result()
	if err != nil {
		return false, nil, err
	}

	if set {
		return true, nil, nil
	}

	existing, err := s.client.Get(ctx, fullKey).Bytes()
	if errors.Is(err, redis.Nil) {
		// The key expired between SETNX and GET; the caller re-claims.
		return false, nil, nil
	}
	if err != nil {
		return false, nil, err
	}

	if bytes.Equal(existing, processingMarker) {
		return false, nil, nil
	}

	return false, existing, nil
}

// Get returns the stored outcome for a key.
func (s *IdempotencyStore) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrTransactionNotFound
	}
	if err != nil {
		return nil, err
	}

	if bytes.Equal(value, processingMarker) {
		return nil, usecase.ErrOutcomePending
	}

	return value, nil
}

// Store replaces the in-flight marker with the final outcome.
func (s *IdempotencyStore) Store(ctx context.Context, key string, outcome []byte, ttl time.Duration) error {
	return s.client.Set(ctx, s.prefix+key, outcome, ttl).Err()
}

// Release drops a claim whose posting produced no durable effect.
func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.prefix+key).Err()
}
