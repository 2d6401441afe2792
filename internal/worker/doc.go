// Package worker provides a single-use goroutine pool for one run.
//
// A Pool owns a bounded job queue and a fixed number of worker goroutines
// managed by an errgroup. One producer submits jobs and then closes the
// queue; workers drain what is left and exit. The first job error, or a
// panic converted to *PanicError, cancels the pool context and is returned
// from Wait.
//
// # Basic Usage
//
//	pool := worker.NewPool(4) // 4 workers
//	ctx = pool.Start(ctx)
//
//	for _, item := range items {
//	    if err := pool.Submit(func(ctx context.Context) error {
//	        return process(ctx, item)
//	    }); err != nil {
//	        break // pool cancelled
//	    }
//	}
//	pool.Close()
//
//	if err := pool.Wait(); err != nil {
//	    return err
//	}
//
// # Configuration
//
// Use NewPoolWithConfig for custom settings:
//
//	config := worker.PoolConfig{
//	    NumWorkers:  8,
//	    QueueFactor: 16, // Queue size = 8 * 16 = 128
//	    Tag:         "run-1a2b3c4d",
//	}
//	pool := worker.NewPoolWithConfig(config)
//
// # Lifecycle
//
// A Pool is not reusable: after Wait returns, create a new one.
package worker
