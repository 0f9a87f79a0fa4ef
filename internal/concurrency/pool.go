package concurrency

import (
	"context"
	"sync"
)

// ForEach runs fn for every index in [0, n) using at most workers
// goroutines and blocks until all of them return. Once ctx is
// cancelled, remaining indices are not started; fn is responsible for
// its own error collection.
func ForEach(ctx context.Context, workers, n int, fn func(ctx context.Context, i int)) {
	if n == 0 {
		return
	}
	if workers <= 0 || workers > n {
		workers = n
	}

	tasks := make(chan int)
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range tasks {
				fn(ctx, i)
			}
		}()
	}

feed:
	for i := 0; i < n; i++ {
		select {
		case tasks <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(tasks)
	wg.Wait()
}
