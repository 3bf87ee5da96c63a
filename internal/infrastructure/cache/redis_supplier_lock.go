package cache

import (
	"context"
	"fmt"
	"time"

	appcollection "github.com/erp/backoffice/internal/application/collection"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultLockPrefix = "collection:lock:"

// releaseScript deletes the key only when it still holds the caller's token,
// so an expired-then-reacquired lock is never released by the old owner.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisSupplierLock implements the per-supplier collection lock with
// SET NX PX, shared by every API instance.
type RedisSupplierLock struct {
	client    redis.Cmdable
	keyPrefix string
}

// NewRedisSupplierLock creates a lock over an existing client. keyPrefix is
// prepended to the default lock namespace.
func NewRedisSupplierLock(client redis.Cmdable, keyPrefix string) *RedisSupplierLock {
	return &RedisSupplierLock{
		client:    client,
		keyPrefix: keyPrefix + defaultLockPrefix,
	}
}

// Acquire takes the lock for owner. Returns false when another owner holds it.
func (l *RedisSupplierLock) Acquire(ctx context.Context, supplierID uuid.UUID, owner string, ttl time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.key(supplierID), owner, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire supplier lock: %w", err)
	}
	return ok, nil
}

// Release frees the lock if owner still holds it.
func (l *RedisSupplierLock) Release(ctx context.Context, supplierID uuid.UUID, owner string) error {
	if err := releaseScript.Run(ctx, l.client, []string{l.key(supplierID)}, owner).Err(); err != nil {
		return fmt.Errorf("release supplier lock: %w", err)
	}
	return nil
}

func (l *RedisSupplierLock) key(supplierID uuid.UUID) string {
	return l.keyPrefix + supplierID.String()
}

// Ensure RedisSupplierLock implements SupplierLock
var _ appcollection.SupplierLock = (*RedisSupplierLock)(nil)
