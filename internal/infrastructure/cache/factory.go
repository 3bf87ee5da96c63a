package cache

import (
	"context"
	"fmt"

	appcollection "github.com/erp/backoffice/internal/application/collection"
	"github.com/erp/backoffice/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// LockFactory creates the supplier lock based on configuration
type LockFactory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// LockFactoryOption is a functional option for configuring the factory
type LockFactoryOption func(*LockFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) LockFactoryOption {
	return func(f *LockFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to an in-memory lock
// when Redis is unavailable. Default is true.
func WithInMemoryFallback(allow bool) LockFactoryOption {
	return func(f *LockFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewLockFactory creates a new factory
func NewLockFactory(cfg config.RedisConfig, opts ...LockFactoryOption) *LockFactory {
	f := &LockFactory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Create returns a Redis-backed lock when Redis is reachable, otherwise an
// in-memory lock if fallback is allowed. The returned client is nil for the
// in-memory lock; callers close it on shutdown.
func (f *LockFactory) Create(ctx context.Context) (appcollection.SupplierLock, *redis.Client, error) {
	if f.redisConfig.Addr() == "" {
		if !f.allowInMemoryFallback {
			return nil, nil, fmt.Errorf("redis required for supplier lock but not configured")
		}
		f.logger.Info("Redis not configured, using in-memory supplier lock")
		return NewInMemorySupplierLock(), nil, nil
	}

	client, err := NewRedisClient(ctx, f.redisConfig)
	if err == nil {
		f.logger.Info("Using Redis supplier lock", zap.String("addr", f.redisConfig.Addr()))
		return NewRedisSupplierLock(client, f.redisConfig.KeyPrefix), client, nil
	}

	if !f.allowInMemoryFallback {
		return nil, nil, fmt.Errorf("redis required for supplier lock but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory supplier lock. "+
		"Concurrent collections for one supplier are only prevented within this instance.",
		zap.Error(err),
	)
	return NewInMemorySupplierLock(), nil, nil
}
