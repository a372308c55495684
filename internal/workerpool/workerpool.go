// Package workerpool implements the data-parallel-over-pages stage runner
// described in spec section 5: a fixed-size worker pool processes one page
// per job, in any order, and results are gathered back into input order.
// Generalized from the teacher's internal/pipeline/parallel.go jobs/results
// channel pattern.
package workerpool

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
)

// Options configures a Run call.
type Options struct {
	// Workers is the pool size. 0 selects runtime.GOMAXPROCS(0) (spec
	// section 5: "default = hardware parallelism").
	Workers int
}

func (o Options) workers() int {
	if o.Workers <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return o.Workers
}

type job[T any] struct {
	index int
	item  T
}

type result[R any] struct {
	index int
	value R
	err   error
}

// Fn processes one item and returns its result or an error. Implementations
// must check ctx for cancellation on any blocking operation (spec section 5:
// "External processes receive termination on cancellation").
type Fn[T any, R any] func(ctx context.Context, item T) (R, error)

// Run applies fn to every item using a bounded worker pool, returning
// results in the same order as items. It stops launching new work and
// returns the first error once any worker fails or ctx is canceled, but
// already-dispatched workers are allowed to finish so goroutines never leak.
func Run[T any, R any](ctx context.Context, items []T, opts Options, fn Fn[T, R]) ([]R, error) {
	if len(items) == 0 {
		return nil, nil
	}

	workers := opts.workers()
	if workers > len(items) {
		workers = len(items)
	}

	jobs := make(chan job[T], len(items))
	results := make(chan result[R], len(items))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runWorker(runCtx, jobs, results, fn)
		}()
	}

	go func() {
		defer close(jobs)
		for i, it := range items {
			select {
			case jobs <- job[T]{index: i, item: it}:
			case <-runCtx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	out := make([]R, len(items))
	var firstErr error
	for r := range results {
		if r.err != nil {
			if firstErr == nil {
				firstErr = r.err
				slog.Error("worker pool job failed", "index", r.index, "error", r.err)
				cancel()
			}
			continue
		}
		out[r.index] = r.value
	}

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func runWorker[T any, R any](ctx context.Context, jobs <-chan job[T], results chan<- result[R], fn Fn[T, R]) {
	for j := range jobs {
		if err := ctx.Err(); err != nil {
			results <- result[R]{index: j.index, err: err}
			continue
		}
		v, err := fn(ctx, j.item)
		results <- result[R]{index: j.index, value: v, err: err}
	}
}
