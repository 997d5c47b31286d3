package ingest

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Job is a unit of work run by a Pool. A non-nil error cancels the
// remaining jobs and is returned from Close.
type Job func(ctx context.Context) error

// Pool runs jobs concurrently.
type Pool interface {
	// Submit blocks until a worker slot is free, ctx is done or an
	// earlier job failed.
	Submit(ctx context.Context, job Job) error
	// Close stops accepting jobs, waits for running ones and returns the
	// first job error.
	Close() error
}

// WorkerPool bounds the number of concurrently running jobs.
type WorkerPool struct {
	mu     sync.Mutex
	g      *errgroup.Group
	ctx    context.Context
	slots  chan struct{}
	closed bool
}

// NewWorkerPool returns a pool running at most workers jobs at once. Jobs see
// a context derived from ctx that is cancelled when any job fails.
func NewWorkerPool(ctx context.Context, workers int) *WorkerPool {
	if workers <= 0 {
		workers = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	return &WorkerPool{g: g, ctx: gctx, slots: make(chan struct{}, workers)}
}

func (p *WorkerPool) Submit(ctx context.Context, job Job) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPoolClosed
	}
	if err := p.ctx.Err(); err != nil {
		return err
	}
	select {
	case p.slots <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	case <-p.ctx.Done():
		return p.ctx.Err()
	}
	p.g.Go(func() error {
		defer func() { <-p.slots }()
		return job(p.ctx)
	})
	return nil
}

func (p *WorkerPool) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	return p.g.Wait()
}

// ErrPoolClosed is returned if a Submit is attempted after Close.
var ErrPoolClosed = &PoolError{"worker pool closed"}

// PoolError provides a simple typed error for pool operations.
type PoolError struct{ msg string }

func (e *PoolError) Error() string { return e.msg }
