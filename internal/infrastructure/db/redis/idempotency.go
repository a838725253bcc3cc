package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultIdempotencyTTL = 24 * time.Hour

// IdempotencyStore binds a client Idempotency-Key to the application a create
// request produced.
// Key format: idem:<user_id>:<key>
type IdempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewIdempotencyStore wraps client. A non-positive ttl selects 24h.
func NewIdempotencyStore(client *redis.Client, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}
	return &IdempotencyStore{client: client, ttl: ttl}
}

// Claim binds key to applicationID with SET NX. When the key is already bound
// it reports the existing application id instead.
func (s *IdempotencyStore) Claim(ctx context.Context, userID, key, applicationID string) (bool, string, error) {
	k := s.key(userID, key)
	ok, err := s.client.SetNX(ctx, k, applicationID, s.ttl).Result()
	if err != nil {
		return false, "", fmt.Errorf("idempotency claim: %w", err)
	}
	if ok {
		return true, applicationID, nil
	}

	existing, err := s.client.Get(ctx, k).Result()
	if errors.Is(err, redis.Nil) {
		// Expired between SETNX and GET; take it.
		return s.Claim(ctx, userID, key, applicationID)
	}
	if err != nil {
		return false, "", fmt.Errorf("idempotency lookup: %w", err)
	}
	return false, existing, nil
}

func (s *IdempotencyStore) Release(ctx context.Context, userID, key string) error {
	if err := s.client.Del(ctx, s.key(userID, key)).Err(); err != nil {
		return fmt.Errorf("idempotency release: %w", err)
	}
	return nil
}

func (s *IdempotencyStore) key(userID, key string) string {
	return fmt.Sprintf("idem:%s:%s", userID, key)
}
