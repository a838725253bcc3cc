package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRevocationTTL = 30 * 24 * time.Hour

// RevocationStore remembers, per principal, the instant before which every
// issued credential is rejected.
// Key format: revoked:<user_id> -> unix seconds
type RevocationStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRevocationStore wraps client. ttl should cover the longest credential
// lifetime the issuer hands out; a non-positive ttl selects 30 days.
func NewRevocationStore(client *redis.Client, ttl time.Duration) *RevocationStore {
	if ttl <= 0 {
		ttl = defaultRevocationTTL
	}
	return &RevocationStore{client: client, ttl: ttl}
}

// RevokeBefore rejects every credential issued to userID at or before at. The
// cutoff is whole seconds, so a credential minted later within the same
// second, or within the issuer's clock skew behind ours, is rejected too until
// it is refreshed.
func (s *RevocationStore) RevokeBefore(ctx context.Context, userID string, at time.Time) error {
	if err := s.client.Set(ctx, s.key(userID), at.Unix(), s.ttl).Err(); err != nil {
		return fmt.Errorf("revoke: %w", err)
	}
	return nil
}

// IsRevoked reports whether a credential issued at issuedAt has been revoked.
// Token iat has second precision, so the comparison is done in seconds.
func (s *RevocationStore) IsRevoked(ctx context.Context, userID string, issuedAt time.Time) (bool, error) {
	raw, err := s.client.Get(ctx, s.key(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("revocation lookup: %w", err)
	}
	cutoff, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return false, fmt.Errorf("revocation value %q: %w", raw, err)
	}
	return issuedAt.Unix() <= cutoff, nil
}

func (s *RevocationStore) key(userID string) string {
	return "revoked:" + userID
}
