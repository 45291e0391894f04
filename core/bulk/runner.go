package bulk

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// ProcessFunc handles one target. It returns false to stop the run (eg. the operation was reset).
type ProcessFunc func(ctx context.Context, targetID string) bool

// Runner consumes a queue of targets. Whatever the strategy, every target is handed to `process` at most once
// and Run returns only once all started targets are done.
type Runner interface {
	Run(ctx context.Context, queue <-chan string, process ProcessFunc)
}

// SequentialRunner processes one target at a time, in queue order.
type SequentialRunner struct{}

func (SequentialRunner) Run(ctx context.Context, queue <-chan string, process ProcessFunc) {
	for id := range queue {
		if !process(ctx, id) {
			return
		}
	}
}

// BoundedRunner processes up to `limit` targets concurrently.
type BoundedRunner struct {
	limit int64
}

func NewBoundedRunner(limit int) *BoundedRunner {
	if limit < 1 {
		limit = 1
	}
	return &BoundedRunner{limit: int64(limit)}
}

func (r *BoundedRunner) Run(ctx context.Context, queue <-chan string, process ProcessFunc) {
	sem := semaphore.NewWeighted(r.limit)
	var (
		wg      sync.WaitGroup
		stopped int32
	)
	for id := range queue {
		if atomic.LoadInt32(&stopped) == 1 {
			break
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			defer sem.Release(1)
			if !process(ctx, id) {
				atomic.StoreInt32(&stopped, 1)
			}
		}(id)
	}
	wg.Wait()
}

// NewRunner returns a SequentialRunner unless `concurrency` allows parallel processing.
func NewRunner(concurrency int) Runner {
	if concurrency > 1 {
		return NewBoundedRunner(concurrency)
	}
	return SequentialRunner{}
}

func enqueue(ids []string) <-chan string {
	queue := make(chan string, len(ids))
	for _, id := range ids {
		queue <- id
	}
	close(queue)
	return queue
}
