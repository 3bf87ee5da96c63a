package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// periodic runs fn immediately on Start and then on every tick until Stop.
type periodic struct {
	name     string
	interval time.Duration
	fn       func(context.Context)
	logger   *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

func (p *periodic) start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.isRunning {
		return nil
	}
	if p.interval <= 0 {
		return ErrInvalidConfig
	}
	p.isRunning = true

	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.wg.Add(1)
	go p.runLoop(ctx)

	p.logger.Info("Periodic task started",
		zap.String("task", p.name),
		zap.Duration("interval", p.interval),
	)
	return nil
}

func (p *periodic) stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.isRunning {
		p.mu.Unlock()
		return nil
	}
	p.isRunning = false
	p.cancel()
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("Periodic task stopped", zap.String("task", p.name))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *periodic) runLoop(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.fn(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.fn(ctx)
		}
	}
}
