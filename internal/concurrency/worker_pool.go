package concurrency

import (
	"context"
	"sync"
)

// WorkerFn is one unit of fanned-out work.
type WorkerFn func(ctx context.Context, index int)

// FanOut runs fn in n goroutines and blocks until all have returned. Used by
// the redemption tests to race concurrent attempts against one voucher.
func FanOut(ctx context.Context, n int, fn WorkerFn) {
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			fn(ctx, idx)
		}(i)
	}
	wg.Wait()
}
