package cache

import (
	"context"
	"sync"
	"time"

	appcollection "github.com/erp/backoffice/internal/application/collection"
	"github.com/google/uuid"
)

type lockEntry struct {
	owner     string
	expiresAt time.Time
}

// InMemorySupplierLock implements the per-supplier lock inside one process.
// It does not coordinate multiple API instances.
type InMemorySupplierLock struct {
	mu      sync.Mutex
	entries map[uuid.UUID]lockEntry
	now     func() time.Time
}

// NewInMemorySupplierLock creates a new in-memory lock
func NewInMemorySupplierLock() *InMemorySupplierLock {
	return &InMemorySupplierLock{
		entries: make(map[uuid.UUID]lockEntry),
		now:     time.Now,
	}
}

// Acquire takes the lock for owner unless a live entry belongs to someone else.
// Expired entries are overwritten.
func (l *InMemorySupplierLock) Acquire(_ context.Context, supplierID uuid.UUID, owner string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if e, ok := l.entries[supplierID]; ok && now.Before(e.expiresAt) {
		return false, nil
	}
	l.entries[supplierID] = lockEntry{owner: owner, expiresAt: now.Add(ttl)}
	return true, nil
}

// Release frees the lock if owner still holds it.
func (l *InMemorySupplierLock) Release(_ context.Context, supplierID uuid.UUID, owner string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if e, ok := l.entries[supplierID]; ok && e.owner == owner {
		delete(l.entries, supplierID)
	}
	return nil
}

// Held reports whether a live lock exists for the supplier (for testing/monitoring)
func (l *InMemorySupplierLock) Held(supplierID uuid.UUID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[supplierID]
	return ok && l.now().Before(e.expiresAt)
}

// Ensure InMemorySupplierLock implements SupplierLock
var _ appcollection.SupplierLock = (*InMemorySupplierLock)(nil)
