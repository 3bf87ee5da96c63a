package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenRevocation invalidates worker tokens before they expire, so a token
// stops working once its job has reported completion
type TokenRevocation interface {
	// Revoke marks a token ID as revoked. ttl should be the token's
	// remaining lifetime
	Revoke(ctx context.Context, jti string, ttl time.Duration) error

	// IsRevoked checks whether a token ID has been revoked
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// RedisTokenRevocation implements TokenRevocation using Redis
type RedisTokenRevocation struct {
	client    redis.Cmdable
	keyPrefix string
}

// NewRedisTokenRevocation creates a revocation list on an existing client
func NewRedisTokenRevocation(client redis.Cmdable, keyPrefix string) *RedisTokenRevocation {
	return &RedisTokenRevocation{
		client:    client,
		keyPrefix: keyPrefix + "worker_token:revoked:",
	}
}

func (r *RedisTokenRevocation) key(jti string) string {
	return r.keyPrefix + jti
}

// Revoke stores the token ID until the token would have expired anyway
func (r *RedisTokenRevocation) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := r.client.Set(ctx, r.key(jti), "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// IsRevoked checks whether the token ID is stored
func (r *RedisTokenRevocation) IsRevoked(ctx context.Context, jti string) (bool, error) {
	exists, err := r.client.Exists(ctx, r.key(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token revocation: %w", err)
	}
	return exists > 0, nil
}

// InMemoryTokenRevocation implements TokenRevocation in process memory, for
// single-instance deployments and tests
type InMemoryTokenRevocation struct {
	mu      sync.RWMutex
	revoked map[string]time.Time
	now     func() time.Time
}

// NewInMemoryTokenRevocation creates an in-memory revocation list
func NewInMemoryTokenRevocation() *InMemoryTokenRevocation {
	return &InMemoryTokenRevocation{
		revoked: make(map[string]time.Time),
		now:     time.Now,
	}
}

// Revoke marks a token ID as revoked until ttl elapses
func (r *InMemoryTokenRevocation) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	for id, exp := range r.revoked {
		if !now.Before(exp) {
			delete(r.revoked, id)
		}
	}
	r.revoked[jti] = now.Add(ttl)
	return nil
}

// IsRevoked checks whether a token ID is revoked and not yet expired
func (r *InMemoryTokenRevocation) IsRevoked(_ context.Context, jti string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	exp, ok := r.revoked[jti]
	return ok && r.now().Before(exp), nil
}

var (
	_ TokenRevocation = (*RedisTokenRevocation)(nil)
	_ TokenRevocation = (*InMemoryTokenRevocation)(nil)
)
