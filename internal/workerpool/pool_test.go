package workerpool

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRun_RunsAllTasks(t *testing.T) {
	var count int64
	tasks := make([]Task, 20)
	for i := range tasks {
		tasks[i] = func(ctx context.Context) error {
			atomic.AddInt64(&count, 1)
			return nil
		}
	}
	errs := Run(context.Background(), 4, tasks)
	assert.Empty(t, errs)
	assert.EqualValues(t, 20, count)
}

func TestRun_BoundsConcurrency(t *testing.T) {
	var current, max int64
	var mu sync.Mutex
	tasks := make([]Task, 10)
	for i := range tasks {
		tasks[i] = func(ctx context.Context) error {
			n := atomic.AddInt64(&current, 1)
			mu.Lock()
			if n > max {
				max = n
			}
			mu.Unlock()
			atomic.AddInt64(&current, -1)
			return nil
		}
	}
	Run(context.Background(), 2, tasks)
	assert.LessOrEqual(t, max, int64(2))
}

func TestRun_CollectsErrors(t *testing.T) {
	tasks := []Task{
		func(ctx context.Context) error { return assertErr("a") },
		func(ctx context.Context) error { return nil },
		func(ctx context.Context) error { return assertErr("b") },
	}
	errs := Run(context.Background(), 2, tasks)
	assert.Len(t, errs, 2)
}

func TestRun_EmptyTasksReturnsNil(t *testing.T) {
	assert.Nil(t, Run(context.Background(), 4, nil))
}

type assertErr string

func (e assertErr) Error() string { return string(e) }
