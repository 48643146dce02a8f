// Package queue runs dispatches in the background so webhook deliveries can
// be acknowledged before the reasoning collaborator answers.
package queue

import (
	"context"
	"errors"
	"sync"
	"time"

	"farcaster-trader/internal/dispatcher"

	"go.uber.org/zap"
)

var (
	ErrFull   = errors.New("dispatch queue is full")
	ErrClosed = errors.New("dispatch queue is closed")
)

// Dispatcher is the work each job performs.
type Dispatcher interface {
	Dispatch(ctx context.Context, req dispatcher.Request) (dispatcher.Result, error)
}

// Queue defines the interface for adding jobs and controlling lifecycle.
type Queue interface {
	Add(req dispatcher.Request) error
	Start(ctx context.Context) error
	Stop()
}

// queue holds buffered jobs and the workers draining them.
type queue struct {
	log      *zap.Logger
	disp     Dispatcher
	workers  int
	timeout  time.Duration
	jobs     chan dispatcher.Request
	mu       sync.RWMutex
	closed   bool
	quit     chan struct{}
	stopOnce sync.Once
}

// New initializes a Queue with size buffered slots and workers goroutines.
func New(log *zap.Logger, d Dispatcher, workers, size int, timeout time.Duration) Queue {
	return &queue{
		log:     log,
		disp:    d,
		workers: workers,
		timeout: timeout,
		jobs:    make(chan dispatcher.Request, size),
		quit:    make(chan struct{}),
	}
}

// Add enqueues req without blocking.
func (q *queue) Add(req dispatcher.Request) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrClosed
	}
	select {
	case q.jobs <- req:
		return nil
	default:
		return ErrFull
	}
}

// Start runs the workers until ctx is cancelled or Stop is called, then
// drains queued jobs and returns.
func (q *queue) Start(ctx context.Context) error {
	var wg sync.WaitGroup
	jobCtx := context.WithoutCancel(ctx)
	for i := 0; i < q.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for req := range q.jobs {
				q.run(jobCtx, req)
			}
		}()
	}

	select {
	case <-ctx.Done():
	case <-q.quit:
	}

	q.mu.Lock()
	q.closed = true
	close(q.jobs)
	q.mu.Unlock()

	q.log.Info("draining dispatch queue", zap.Int("pending", len(q.jobs)))
	wg.Wait()
	return nil
}

// Stop signals the queue to drain and shut down.
func (q *queue) Stop() {
	q.stopOnce.Do(func() { close(q.quit) })
}

func (q *queue) run(ctx context.Context, req dispatcher.Request) {
	ctx, cancel := context.WithTimeout(ctx, q.timeout)
	defer cancel()

	start := time.Now()
	res, err := q.disp.Dispatch(ctx, req)
	if err != nil {
		q.log.Error("queued dispatch failed",
			zap.String("event_key", string(req.Key)),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
		return
	}
	q.log.Info("queued dispatch finished",
		zap.String("event_key", string(req.Key)),
		zap.String("dispatch_id", res.DispatchID),
		zap.Bool("executed", res.Executed),
		zap.Duration("duration", time.Since(start)))
}
