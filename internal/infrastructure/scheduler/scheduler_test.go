package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appcollection "github.com/erp/backoffice/internal/application/collection"
	"github.com/erp/backoffice/internal/domain/collection"
	"github.com/erp/backoffice/internal/domain/partner"
	"github.com/erp/backoffice/internal/infrastructure/config"
)

// ---------------------------------------------------------------------------
// WorkerPool
// ---------------------------------------------------------------------------

func TestWorkerPoolConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultWorkerPoolConfig().Validate())
	assert.ErrorIs(t, WorkerPoolConfig{MaxConcurrentJobs: 0}.Validate(), ErrInvalidConfig)
	assert.ErrorIs(t, WorkerPoolConfig{MaxConcurrentJobs: 1, QueueSize: -1}.Validate(), ErrInvalidConfig)

	cfg := WorkerPoolConfigFrom(config.CollectionConfig{MaxConcurrentJobs: 2, QueueSize: 8})
	assert.Equal(t, WorkerPoolConfig{MaxConcurrentJobs: 2, QueueSize: 8}, cfg)
}

func TestWorkerPool_SubmitBeforeStart(t *testing.T) {
	pool, err := NewWorkerPool(DefaultWorkerPoolConfig(), zap.NewNop())
	require.NoError(t, err)
	assert.ErrorIs(t, pool.Submit(func(context.Context) {}), ErrSchedulerNotRunning)
}

func TestWorkerPool_RunsTasks(t *testing.T) {
	pool, err := NewWorkerPool(WorkerPoolConfig{MaxConcurrentJobs: 3, QueueSize: 10}, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, pool.Start(context.Background()))

	var ran atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		require.NoError(t, pool.Submit(func(context.Context) {
			defer wg.Done()
			ran.Add(1)
		}))
	}
	wg.Wait()
	assert.Equal(t, int32(10), ran.Load())

	require.NoError(t, pool.Stop(context.Background()))
	assert.ErrorIs(t, pool.Submit(func(context.Context) {}), ErrSchedulerNotRunning)
}

func TestWorkerPool_BoundsConcurrency(t *testing.T) {
	pool, err := NewWorkerPool(WorkerPoolConfig{MaxConcurrentJobs: 2, QueueSize: 10}, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, pool.Start(context.Background()))
	t.Cleanup(func() { _ = pool.Stop(context.Background()) })

	var current, peak atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		require.NoError(t, pool.Submit(func(context.Context) {
			defer wg.Done()
			n := current.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			current.Add(-1)
		}))
	}
	wg.Wait()
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestWorkerPool_QueueFull(t *testing.T) {
	pool, err := NewWorkerPool(WorkerPoolConfig{MaxConcurrentJobs: 1, QueueSize: 1}, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, pool.Start(context.Background()))

	release := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, pool.Submit(func(context.Context) {
		close(started)
		<-release
	}))
	<-started
	require.NoError(t, pool.Submit(func(context.Context) {}))
	assert.ErrorIs(t, pool.Submit(func(context.Context) {}), ErrJobQueueFull)
	assert.Equal(t, 1, pool.Active())
	assert.Equal(t, 1, pool.Queued())

	close(release)
	require.NoError(t, pool.Stop(context.Background()))
}

func TestWorkerPool_StopCancelsAndDrains(t *testing.T) {
	pool, err := NewWorkerPool(WorkerPoolConfig{MaxConcurrentJobs: 1, QueueSize: 4}, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, pool.Start(context.Background()))

	started := make(chan struct{})
	var cancelled, drained atomic.Bool
	require.NoError(t, pool.Submit(func(ctx context.Context) {
		close(started)
		<-ctx.Done()
		cancelled.Store(true)
	}))
	require.NoError(t, pool.Submit(func(ctx context.Context) {
		drained.Store(ctx.Err() != nil)
	}))
	<-started

	require.NoError(t, pool.Stop(context.Background()))
	assert.True(t, cancelled.Load())
	assert.True(t, drained.Load())
}

func TestWorkerPool_RecoversPanics(t *testing.T) {
	pool, err := NewWorkerPool(WorkerPoolConfig{MaxConcurrentJobs: 1, QueueSize: 2}, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, pool.Start(context.Background()))

	done := make(chan struct{})
	require.NoError(t, pool.Submit(func(context.Context) { panic("boom") }))
	require.NoError(t, pool.Submit(func(context.Context) { close(done) }))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not survive panic")
	}
	require.NoError(t, pool.Stop(context.Background()))
}

// ---------------------------------------------------------------------------
// CollectionTrigger
// ---------------------------------------------------------------------------

type fakeSupplierSource struct {
	suppliers []partner.Supplier
	err       error
}

func (f *fakeSupplierSource) FindSchedulable(context.Context) ([]partner.Supplier, error) {
	return f.suppliers, f.err
}

type fakeStarter struct {
	mu       sync.Mutex
	requests []appcollection.StartRequest
	results  map[uuid.UUID]error
}

func (f *fakeStarter) StartCollection(_ context.Context, req appcollection.StartRequest) (*collection.CollectionJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if err := f.results[req.SupplierID]; err != nil {
		return nil, err
	}
	return &collection.CollectionJob{ID: uuid.New(), SupplierID: req.SupplierID}, nil
}

func (f *fakeStarter) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func newSchedulableSupplier(t *testing.T, code string) partner.Supplier {
	t.Helper()
	s, err := partner.NewSupplier(code, code+" Inc", partner.Integration{
		Type:            partner.IntegrationTypeGraphQL,
		Endpoint:        "https://" + code + ".example.com/graphql",
		ScheduleEnabled: true,
	})
	require.NoError(t, err)
	return *s
}

func TestCollectionTrigger_TriggerAll(t *testing.T) {
	a := newSchedulableSupplier(t, "alpha")
	b := newSchedulableSupplier(t, "beta")
	c := newSchedulableSupplier(t, "gamma")

	starter := &fakeStarter{results: map[uuid.UUID]error{
		b.ID: collection.ErrCollectionInProgress,
		c.ID: errors.New("database unavailable"),
	}}
	trigger := NewCollectionTrigger(time.Hour, &fakeSupplierSource{suppliers: []partner.Supplier{a, b, c}}, starter, zap.NewNop())

	stats, err := trigger.TriggerAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, TriggerStats{Started: 1, Skipped: 1, Failed: 1}, stats)

	require.Len(t, starter.requests, 3)
	for _, req := range starter.requests {
		assert.Equal(t, collection.TriggerScheduled, req.Trigger)
		assert.True(t, req.Window.IsZero())
	}
}

func TestCollectionTrigger_SourceError(t *testing.T) {
	trigger := NewCollectionTrigger(time.Hour, &fakeSupplierSource{err: errors.New("boom")}, &fakeStarter{}, zap.NewNop())
	_, err := trigger.TriggerAll(context.Background())
	assert.Error(t, err)
}

func TestCollectionTrigger_StartRunsImmediately(t *testing.T) {
	starter := &fakeStarter{}
	trigger := NewCollectionTrigger(time.Hour,
		&fakeSupplierSource{suppliers: []partner.Supplier{newSchedulableSupplier(t, "alpha")}}, starter, zap.NewNop())

	require.NoError(t, trigger.Start(context.Background()))
	assert.Eventually(t, func() bool { return starter.calls() == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, trigger.Stop(context.Background()))
	require.NoError(t, trigger.Stop(context.Background()))
}

func TestCollectionTrigger_InvalidInterval(t *testing.T) {
	trigger := NewCollectionTrigger(0, &fakeSupplierSource{}, &fakeStarter{}, zap.NewNop())
	assert.ErrorIs(t, trigger.Start(context.Background()), ErrInvalidConfig)
}

// ---------------------------------------------------------------------------
// StaleJobSweeper
// ---------------------------------------------------------------------------

type fakeStaleJobs struct {
	remaining int
	cutoffs   []time.Time
	err       error
}

func (f *fakeStaleJobs) FailStaleJobs(_ context.Context, cutoff time.Time, limit int) (int, error) {
	f.cutoffs = append(f.cutoffs, cutoff)
	if f.err != nil {
		return 0, f.err
	}
	n := min(limit, f.remaining)
	f.remaining -= n
	return n, nil
}

func TestStaleJobSweeper_Sweep(t *testing.T) {
	jobs := &fakeStaleJobs{remaining: 5}
	sweeper := NewStaleJobSweeper(StaleJobSweeperConfig{
		Interval:   time.Minute,
		JobTimeout: 30 * time.Minute,
		Grace:      5 * time.Minute,
		BatchSize:  2,
	}, jobs, zap.NewNop())
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	sweeper.now = func() time.Time { return now }

	n, err := sweeper.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	require.Len(t, jobs.cutoffs, 3)
	assert.Equal(t, now.Add(-35*time.Minute), jobs.cutoffs[0])
}

func TestStaleJobSweeper_Error(t *testing.T) {
	jobs := &fakeStaleJobs{err: errors.New("db down")}
	sweeper := NewStaleJobSweeper(StaleJobSweeperConfig{Interval: time.Minute}, jobs, zap.NewNop())

	_, err := sweeper.Sweep(context.Background())
	assert.Error(t, err)
	assert.Len(t, jobs.cutoffs, 1)
}
