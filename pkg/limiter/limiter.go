// Package limiter bounds the number of per-item export tasks running at once.
//
// Callers beyond the bound queue and are released first-in-first-out as
// slots free up. A failing task releases its slot like a succeeding one.
package limiter

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/semaphore"
)

// DefaultBound is the default number of concurrent tasks.
const DefaultBound = 5

// ErrInvalidBound is returned by New for a non-positive bound.
var ErrInvalidBound = errors.New("limiter: bound must be positive")

var limiterActive = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "export_limiter_active",
	Help: "Export tasks currently holding a limiter slot",
})

// Limiter is a FIFO counting semaphore. The zero value is not usable.
type Limiter struct {
	sem    *semaphore.Weighted
	bound  int
	active atomic.Int64
}

// New creates a limiter admitting at most n tasks at once.
func New(n int) (*Limiter, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w (got %d)", ErrInvalidBound, n)
	}
	return &Limiter{sem: semaphore.NewWeighted(int64(n)), bound: n}, nil
}

// Bound returns the configured maximum.
func (l *Limiter) Bound() int {
	return l.bound
}

// Active returns the number of tasks currently running.
func (l *Limiter) Active() int {
	return int(l.active.Load())
}

// Run waits for a free slot, runs task and returns its error. If ctx ends
// while waiting, task is not run and ctx.Err() is returned.
func (l *Limiter) Run(ctx context.Context, task func(context.Context) error) error {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	l.active.Add(1)
	limiterActive.Inc()
	defer func() {
		l.active.Add(-1)
		limiterActive.Dec()
		l.sem.Release(1)
	}()

	return task(ctx)
}
