package collection

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/erp/backoffice/internal/domain/catalog"
	"github.com/erp/backoffice/internal/domain/collection"
	"github.com/erp/backoffice/internal/domain/partner"
)

// MockSupplierRepository is a mock implementation of partner.SupplierRepository
type MockSupplierRepository struct {
	mock.Mock
}

func (m *MockSupplierRepository) FindByID(ctx context.Context, id uuid.UUID) (*partner.Supplier, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*partner.Supplier), args.Error(1)
}

func (m *MockSupplierRepository) FindSchedulable(ctx context.Context) ([]partner.Supplier, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]partner.Supplier), args.Error(1)
}

func (m *MockSupplierRepository) Save(ctx context.Context, supplier *partner.Supplier) error {
	args := m.Called(ctx, supplier)
	return args.Error(0)
}

func (m *MockSupplierRepository) FindByCode(ctx context.Context, code string) (*partner.Supplier, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*partner.Supplier), args.Error(1)
}

func (m *MockSupplierRepository) List(ctx context.Context, filter partner.SupplierFilter) ([]partner.Supplier, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]partner.Supplier), args.Get(1).(int64), args.Error(2)
}

// memoryJobRepository is an in-memory job log honouring the terminal guard
type memoryJobRepository struct {
	mu        sync.Mutex
	jobs      map[uuid.UUID]collection.CollectionJob
	createErr error
}

func newMemoryJobRepository() *memoryJobRepository {
	return &memoryJobRepository{jobs: make(map[uuid.UUID]collection.CollectionJob)}
}

func (r *memoryJobRepository) Create(_ context.Context, job *collection.CollectionJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	r.jobs[job.ID] = *job
	return nil
}

func (r *memoryJobRepository) SaveTerminal(_ context.Context, job *collection.CollectionJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.jobs[job.ID]
	if !ok || stored.Status != collection.JobStatusRunning {
		return collection.ErrJobAlreadyFinished
	}
	r.jobs[job.ID] = *job
	return nil
}

func (r *memoryJobRepository) FindByID(_ context.Context, id uuid.UUID) (*collection.CollectionJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, collection.ErrJobNotFound
	}
	return &job, nil
}

func (r *memoryJobRepository) List(_ context.Context, filter collection.JobFilter) ([]collection.CollectionJob, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]collection.CollectionJob, 0)
	for _, job := range r.jobs {
		if filter.SupplierID != nil && job.SupplierID != *filter.SupplierID {
			continue
		}
		if filter.Status != "" && job.Status != filter.Status {
			continue
		}
		out = append(out, job)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, int64(len(out)), nil
}

func (r *memoryJobRepository) FindRunningStartedBefore(_ context.Context, cutoff time.Time, limit int) ([]collection.CollectionJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]collection.CollectionJob, 0)
	for _, job := range r.jobs {
		if job.Status == collection.JobStatusRunning && job.StartedAt != nil && job.StartedAt.Before(cutoff) {
			out = append(out, job)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memoryJobRepository) HasRunning(_ context.Context, supplierID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, job := range r.jobs {
		if job.SupplierID == supplierID && job.Status == collection.JobStatusRunning {
			return true, nil
		}
	}
	return false, nil
}

func (r *memoryJobRepository) get(id uuid.UUID) collection.CollectionJob {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.jobs[id]
}

// memoryLock is a process-local SupplierLock
type memoryLock struct {
	mu         sync.Mutex
	owners     map[uuid.UUID]string
	releases   int
	acquireErr error
}

func newMemoryLock() *memoryLock {
	return &memoryLock{owners: make(map[uuid.UUID]string)}
}

func (l *memoryLock) Acquire(_ context.Context, supplierID uuid.UUID, owner string, _ time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.acquireErr != nil {
		return false, l.acquireErr
	}
	if _, held := l.owners[supplierID]; held {
		return false, nil
	}
	l.owners[supplierID] = owner
	return true, nil
}

func (l *memoryLock) Release(_ context.Context, supplierID uuid.UUID, owner string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.owners[supplierID] == owner {
		delete(l.owners, supplierID)
		l.releases++
	}
	return nil
}

func (l *memoryLock) held(supplierID uuid.UUID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.owners[supplierID]
	return ok
}

// goDispatcher runs each task on its own goroutine and lets tests wait
type goDispatcher struct {
	wg        sync.WaitGroup
	submitErr error
	// queued delays each task as if it waited behind busy workers
	queued time.Duration
}

func (d *goDispatcher) Submit(task Task) error {
	if d.submitErr != nil {
		return d.submitErr
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		time.Sleep(d.queued)
		task(context.Background())
	}()
	return nil
}

// stubCollector returns a canned result
type stubCollector struct {
	result *collection.Result
	err    error
	panic  any
	block  bool
}

func (c *stubCollector) Collect(ctx context.Context, _ collection.Window) (*collection.Result, error) {
	if c.panic != nil {
		panic(c.panic)
	}
	if c.block {
		<-ctx.Done()
		return &collection.Result{TotalProducts: 2, NewProducts: 2}, ctx.Err()
	}
	return c.result, c.err
}

// nopSink accepts every snapshot
type nopSink struct{}

func (nopSink) UpsertProduct(context.Context, catalog.Snapshot) (*collection.UpsertResult, error) {
	return &collection.UpsertResult{Action: collection.UpsertActionCreated, ProductID: uuid.New()}, nil
}

// countingMetrics records job lifecycle events
type countingMetrics struct {
	mu       sync.Mutex
	started  int
	finished map[collection.JobStatus]int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{finished: map[collection.JobStatus]int{}}
}

func (m *countingMetrics) JobStarted(context.Context, collection.Trigger) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started++
}

func (m *countingMetrics) JobFinished(_ context.Context, status collection.JobStatus, _ time.Duration, _ collection.Counters) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finished[status]++
}

