// Package worker provides goroutine pool management.
//
// Naked goroutines are forbidden in request-scoped fan-out work; anything
// that spawns concurrent tasks goes through a Pool with context propagation.
package worker

import (
	"context"
	"errors"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/fredsystems/zabbid/internal/pkg/logger"
)

// ErrPoolClosed is returned when submitting to a closed pool.
var ErrPoolClosed = errors.New("worker pool is closed")

// Task is a context-aware task function.
type Task func(ctx context.Context)

// Pool wraps ants.Pool with context-aware submission.
type Pool struct {
	pool *ants.Pool
	name string
}

// PoolConfig contains Worker Pool configuration.
type PoolConfig struct {
	Name string
	Size int
}

// NewPool creates a named goroutine pool.
func NewPool(cfg PoolConfig) (*Pool, error) {
	panicHandler := func(p interface{}) {
		logger.Error("worker panic recovered",
			zap.String("pool", cfg.Name),
			zap.Any("panic", p),
			zap.Stack("stack"),
		)
	}

	size := cfg.Size
	if size <= 0 {
		size = 1
	}

	p, err := ants.NewPool(size,
		ants.WithPanicHandler(panicHandler),
		ants.WithNonblocking(false),
		ants.WithExpiryDuration(10*time.Second),
	)
	if err != nil {
		return nil, err
	}

	return &Pool{pool: p, name: cfg.Name}, nil
}

// Submit submits a context-aware task. The task receives the caller's
// context and should check ctx.Done() at blocking points. If the context is
// already cancelled, Submit returns ctx.Err() immediately without
// submitting.
func (p *Pool) Submit(ctx context.Context, task Task) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	return p.pool.Submit(func() {
		select {
		case <-ctx.Done():
			logger.Debug("task skipped: context cancelled",
				zap.String("pool", p.name),
				zap.Error(ctx.Err()),
			)
			return
		default:
		}
		task(ctx)
	})
}

// Shutdown gracefully releases the pool with a timeout.
func (p *Pool) Shutdown() {
	const shutdownTimeout = 30 * time.Second
	if err := p.pool.ReleaseTimeout(shutdownTimeout); err != nil {
		logger.Warn("pool shutdown timeout", zap.String("pool", p.name), zap.Error(err))
	}
}

// Metrics returns pool metrics for observability.
func (p *Pool) Metrics() map[string]int {
	return map[string]int{
		"running": p.pool.Running(),
		"free":    p.pool.Free(),
		"cap":     p.pool.Cap(),
	}
}
