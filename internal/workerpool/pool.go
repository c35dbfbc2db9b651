// Package workerpool provides the bounded fan-out used by PortfolioSync
// and StopLossEngine to process users concurrently while keeping
// per-user work serialized (spec §5: "bounded worker pool (default 4);
// per-user work is serialized for that user").
//
// Grounded on aristath-sentinel/internal/evaluation/workers' pool
// concept, reimplemented directly on goroutines + a buffered channel
// since the teacher's own pool is stdlib-only too.
package workerpool

import (
	"context"
	"sync"
)

// DefaultSize is the pool size used when config doesn't override it
// (spec §5).
const DefaultSize = 4

// Task is one unit of work submitted to the pool.
type Task func(ctx context.Context) error

// Run executes tasks with at most size concurrent workers, waits for
// all of them to finish, and returns every error encountered (nil
// entries omitted). A task panicking is not recovered; callers are
// expected to handle their own per-task error returns instead.
func Run(ctx context.Context, size int, tasks []Task) []error {
	if size <= 0 {
		size = DefaultSize
	}
	if len(tasks) == 0 {
		return nil
	}

	sem := make(chan struct{}, size)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var errs []error

	for _, task := range tasks {
		task := task
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			if err := task(ctx); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return errs
}
