package cache

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemorySupplierLock(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	lock := NewInMemorySupplierLock()
	lock.now = func() time.Time { return now }
	supplierID := uuid.New()

	t.Run("first owner acquires", func(t *testing.T) {
		ok, err := lock.Acquire(ctx, supplierID, "job-1", time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.True(t, lock.Held(supplierID))
	})

	t.Run("second owner is refused", func(t *testing.T) {
		ok, err := lock.Acquire(ctx, supplierID, "job-2", time.Minute)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("other supplier is independent", func(t *testing.T) {
		ok, err := lock.Acquire(ctx, uuid.New(), "job-3", time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("non owner release is ignored", func(t *testing.T) {
		require.NoError(t, lock.Release(ctx, supplierID, "job-2"))
		assert.True(t, lock.Held(supplierID))
	})

	t.Run("expired lock can be taken over", func(t *testing.T) {
		now = now.Add(2 * time.Minute)
		assert.False(t, lock.Held(supplierID))

		ok, err := lock.Acquire(ctx, supplierID, "job-2", time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)

		// The original owner's late release must not free job-2's lock.
		require.NoError(t, lock.Release(ctx, supplierID, "job-1"))
		assert.True(t, lock.Held(supplierID))
	})

	t.Run("owner release frees the lock", func(t *testing.T) {
		require.NoError(t, lock.Release(ctx, supplierID, "job-2"))
		assert.False(t, lock.Held(supplierID))
	})
}
