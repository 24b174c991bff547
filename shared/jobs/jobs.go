// Package jobs schedules batch work with explicit dependency handles. A job
// starts only after every handle it was scheduled with has completed; nothing
// waits implicitly on submission order.
package jobs

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Handle completes when its job and all of the job's dependencies finished.
type Handle struct {
	done chan struct{}
	err  error
}

// Completed returns a handle that is already done.
func Completed() *Handle {
	h := &Handle{done: make(chan struct{})}
	close(h.done)
	return h
}

// Done is closed when the job finished.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Wait blocks until the job finished and returns its error.
func (h *Handle) Wait() error {
	<-h.done
	return h.err
}

// Combine returns a handle that completes once every input completed. Its
// error joins the errors of the inputs.
func Combine(deps ...*Handle) *Handle {
	return Schedule(context.Background(), func(context.Context) error { return nil }, deps...)
}

// Schedule runs fn on its own goroutine after deps completed. If a dependency
// failed, fn is skipped and the handle carries the dependency's error.
func Schedule(ctx context.Context, fn func(context.Context) error, deps ...*Handle) *Handle {
	h := &Handle{done: make(chan struct{})}
	go func() {
		defer close(h.done)
		var errs []error
		for _, d := range deps {
			if d == nil {
				continue
			}
			select {
			case <-d.done:
				if d.err != nil {
					errs = append(errs, d.err)
				}
			case <-ctx.Done():
				h.err = ctx.Err()
				return
			}
		}
		if len(errs) > 0 {
			h.err = errors.Join(errs...)
			return
		}
		h.err = fn(ctx)
	}()
	return h
}

// ParallelFor splits [0,n) into batches of batchSize and runs fn on each
// batch concurrently once deps completed. Batches own disjoint index ranges,
// so fn may write per-index state without locking.
func ParallelFor(ctx context.Context, n, batchSize int, fn func(ctx context.Context, start, end int) error, deps ...*Handle) *Handle {
	if batchSize < 1 {
		batchSize = 1
	}
	return Schedule(ctx, func(ctx context.Context) error {
		g, ctx := errgroup.WithContext(ctx)
		for start := 0; start < n; start += batchSize {
			start, end := start, min(start+batchSize, n)
			g.Go(func() error { return fn(ctx, start, end) })
		}
		return g.Wait()
	}, deps...)
}

// Exclusive serializes the jobs that mutate one shared structure. Jobs run
// through it one at a time; readers run outside it in parallel.
type Exclusive struct {
	mu sync.Mutex
}

// Schedule runs fn after deps while holding the exclusive section.
func (x *Exclusive) Schedule(ctx context.Context, fn func(context.Context) error, deps ...*Handle) *Handle {
	return Schedule(ctx, func(ctx context.Context) error {
		x.mu.Lock()
		defer x.mu.Unlock()
		return fn(ctx)
	}, deps...)
}
