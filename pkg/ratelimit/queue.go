// Package ratelimit provides backpressure for bulk gateway work: a batched
// task queue with bounded concurrency and an optional call-rate limiter.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

// Task is one unit of queued work
type Task func(ctx context.Context) error

// Options configures a Queue
type Options struct {
	// MaxConcurrent bounds tasks running at once, 1 when not positive
	MaxConcurrent int

	// BatchSize is the number of tasks started before pausing; all tasks
	// form one batch when not positive
	BatchSize int

	// BatchDelay is the pause between consecutive batches
	BatchDelay time.Duration

	// Limiter optionally bounds task starts per second
	Limiter *Limiter
}

// Queue runs tasks in batches. Within a batch at most MaxConcurrent tasks
// run at once; the next batch starts BatchDelay after the previous one
// finished. A failing task never stops the others.
type Queue struct {
	opts Options
}

// NewQueue creates a queue
func NewQueue(opts Options) *Queue {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 1
	}
	return &Queue{opts: opts}
}

// Run executes tasks and returns their errors, index-aligned with tasks.
// Once ctx is done no new task starts and the remaining ones report
// ctx.Err().
func (q *Queue) Run(ctx context.Context, tasks []Task) []error {
	errs := make([]error, len(tasks))
	batch := q.opts.BatchSize
	if batch <= 0 {
		batch = len(tasks)
	}

	for start := 0; start < len(tasks); start += batch {
		if start > 0 {
			if err := sleep(ctx, q.opts.BatchDelay); err != nil {
				markRemaining(errs, start, err)
				return errs
			}
		}
		end := start + batch
		if end > len(tasks) {
			end = len(tasks)
		}

		var g errgroup.Group
		g.SetLimit(q.opts.MaxConcurrent)
		for i := start; i < end; i++ {
			if err := ctx.Err(); err != nil {
				errs[i] = err
				continue
			}
			g.Go(func() error {
				if err := q.opts.Limiter.Wait(ctx); err != nil {
					errs[i] = err
					return nil
				}
				errs[i] = run(ctx, tasks[i])
				return nil
			})
		}
		_ = g.Wait()
	}
	return errs
}

// run executes one task, converting a panic into its error
func run(ctx context.Context, task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return task(ctx)
}

func markRemaining(errs []error, from int, err error) {
	for i := from; i < len(errs); i++ {
		errs[i] = err
	}
}

// sleep waits for d or until ctx is done
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
