// Package scheduler runs collection jobs on a bounded worker pool and drives
// the periodic collection trigger and stale job sweep.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	appcollection "github.com/erp/backoffice/internal/application/collection"
	"github.com/erp/backoffice/internal/infrastructure/config"
)

// WorkerPoolConfig holds configuration for the collection worker pool
type WorkerPoolConfig struct {
	// MaxConcurrentJobs is the number of workers
	MaxConcurrentJobs int
	// QueueSize is the number of accepted tasks waiting for a worker
	QueueSize int
}

// DefaultWorkerPoolConfig returns default configuration
func DefaultWorkerPoolConfig() WorkerPoolConfig {
	return WorkerPoolConfig{
		MaxConcurrentJobs: 4,
		QueueSize:         64,
	}
}

// WorkerPoolConfigFrom maps collection settings onto the pool configuration
func WorkerPoolConfigFrom(cfg config.CollectionConfig) WorkerPoolConfig {
	return WorkerPoolConfig{
		MaxConcurrentJobs: cfg.MaxConcurrentJobs,
		QueueSize:         cfg.QueueSize,
	}
}

// Validate validates the configuration
func (c WorkerPoolConfig) Validate() error {
	if c.MaxConcurrentJobs <= 0 {
		return fmt.Errorf("%w: max concurrent jobs must be positive", ErrInvalidConfig)
	}
	if c.QueueSize < 0 {
		return fmt.Errorf("%w: queue size cannot be negative", ErrInvalidConfig)
	}
	return nil
}

// WorkerPool executes dispatched collection tasks on a fixed number of
// goroutines. Submit never blocks: a full queue is reported to the caller,
// who then fails the job instead of leaving it Running.
type WorkerPool struct {
	config WorkerPoolConfig
	logger *zap.Logger

	tasks     chan appcollection.Task
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
	active    atomic.Int64
}

var _ appcollection.Dispatcher = (*WorkerPool)(nil)

// NewWorkerPool creates a stopped pool
func NewWorkerPool(cfg WorkerPoolConfig, logger *zap.Logger) (*WorkerPool, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &WorkerPool{
		config: cfg,
		logger: logger.Named("worker_pool"),
	}, nil
}

// Start launches the workers. Tasks receive a context derived from ctx
// that is cancelled by Stop.
func (p *WorkerPool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.isRunning {
		return nil
	}
	p.isRunning = true
	p.tasks = make(chan appcollection.Task, p.config.QueueSize)

	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	for i := 0; i < p.config.MaxConcurrentJobs; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}

	p.logger.Info("Collection worker pool started",
		zap.Int("workers", p.config.MaxConcurrentJobs),
		zap.Int("queue_size", p.config.QueueSize),
	)
	return nil
}

// Stop rejects new tasks, cancels running ones and waits for the workers.
// Queued tasks still run with a cancelled context so each job reaches a
// terminal state.
func (p *WorkerPool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.isRunning {
		p.mu.Unlock()
		return nil
	}
	p.isRunning = false
	p.cancel()
	close(p.tasks)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("Collection worker pool stopped gracefully")
		return nil
	case <-ctx.Done():
		p.logger.Warn("Collection worker pool stop timed out", zap.Int64("active", p.active.Load()))
		return ctx.Err()
	}
}

// Submit queues a task for execution
func (p *WorkerPool) Submit(task appcollection.Task) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.isRunning {
		return ErrSchedulerNotRunning
	}

	select {
	case p.tasks <- task:
		return nil
	default:
		return ErrJobQueueFull
	}
}

// Active returns the number of tasks currently executing
func (p *WorkerPool) Active() int {
	return int(p.active.Load())
}

// Queued returns the number of tasks waiting for a worker
func (p *WorkerPool) Queued() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.tasks == nil {
		return 0
	}
	return len(p.tasks)
}

func (p *WorkerPool) worker(ctx context.Context, workerID int) {
	defer p.wg.Done()
	for task := range p.tasks {
		p.execute(ctx, task, workerID)
	}
	p.logger.Debug("Collection worker stopped", zap.Int("worker_id", workerID))
}

func (p *WorkerPool) execute(ctx context.Context, task appcollection.Task, workerID int) {
	p.active.Add(1)
	defer p.active.Add(-1)
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("Collection task panicked",
				zap.Int("worker_id", workerID),
				zap.Any("panic", r),
				zap.Stack("stacktrace"),
			)
		}
	}()
	task(ctx)
}
