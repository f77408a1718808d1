// Package session provides server-side session state that complements stateless tokens.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"wandertrails_backend/internal/feature/auth/usecase"
)

// RevocationRedis implements usecase.RevocationList using Redis keys with a TTL.
// Each key lives exactly as long as the token it revokes, so the list never needs sweeping.
type RevocationRedis struct {
	client redis.Cmdable
	prefix string
}

// Compile-time check to ensure RevocationRedis implements RevocationList.
var _ usecase.RevocationList = (*RevocationRedis)(nil)

// NewRevocationRedis creates a new RevocationRedis instance.
func NewRevocationRedis(client redis.Cmdable, prefix string) *RevocationRedis {
	return &RevocationRedis{
		client: client,
		prefix: prefix,
	}
}

// revokedKey returns the Redis key for a revoked token ID.
func (r *RevocationRedis) revokedKey(tokenID string) string {
	return fmt.Sprintf("%s:revoked:%s", r.prefix, tokenID)
}

// Revoke stores the token ID until ttl elapses.
func (r *RevocationRedis) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if tokenID == "" {
		return errors.New("token id is empty")
	}
	if ttl <= 0 {
		// Already expired; nothing to remember.
		return nil
	}
	return r.client.Set(ctx, r.revokedKey(tokenID), "1", ttl).Err()
}

// IsRevoked reports whether the token ID has been revoked.
func (r *RevocationRedis) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := r.client.Exists(ctx, r.revokedKey(tokenID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
