package uiexec

import (
	"context"
	"log/slog"
	"runtime"
	"runtime/debug"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Pool runs background work with bounded parallelism. Work submitted to a
// pool never runs on the interactive executor.
type Pool struct {
	sem    *semaphore.Weighted
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	logger *slog.Logger

	mu     sync.Mutex
	closed bool
}

// PoolOption configures a Pool.
type PoolOption func(*poolConfig)

type poolConfig struct {
	workers int
	logger  *slog.Logger
}

// WithWorkers sets the maximum number of concurrently running tasks.
func WithWorkers(n int) PoolOption {
	return func(c *poolConfig) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithPoolLogger sets the logger used to report panicking tasks.
func WithPoolLogger(l *slog.Logger) PoolOption {
	return func(c *poolConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewPool creates a background pool. The default parallelism is GOMAXPROCS.
func NewPool(opts ...PoolOption) *Pool {
	cfg := poolConfig{
		workers: runtime.GOMAXPROCS(0),
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		sem:    semaphore.NewWeighted(int64(cfg.workers)),
		ctx:    ctx,
		cancel: cancel,
		logger: cfg.logger,
	}
}

// Submit queues fn without blocking the caller. fn receives a context that
// is cancelled when the pool is closed.
func (p *Pool) Submit(fn func(ctx context.Context)) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	p.wg.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.wg.Done()
		if err := p.sem.Acquire(p.ctx, 1); err != nil {
			return
		}
		defer p.sem.Release(1)
		defer func() {
			if r := recover(); r != nil {
				p.logger.Error("background task panicked", "panic", r, "stack", string(debug.Stack()))
			}
		}()
		fn(p.ctx)
	}()
	return nil
}

// Wait blocks until all submitted work has finished.
func (p *Pool) Wait() {
	p.wg.Wait()
}

// Close cancels the pool context, rejects new work and waits for running
// tasks to return.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	p.cancel()
	p.wg.Wait()
}
