// Package collector provides the order-preserving result sink of a run.
//
// A Collector is created for a known number of lines. Workers add their
// results concurrently; each index may be added exactly once. The owner
// blocks on Wait until every index is present or its context ends.
//
// # Basic Usage
//
//	c := collector.New(len(jobs))
//
//	// from any goroutine
//	if err := c.Add(line.Result{Index: job.Index, Text: text}); err != nil {
//	    return err
//	}
//
//	// on the owning goroutine
//	if err := c.Wait(ctx); err != nil {
//	    return err // ctx ended before all results arrived
//	}
//	out := line.Join(c.Results(), "\n")
//
// # Thread Safety
//
// Add, Len and Results are guarded by a mutex. Completion is signalled by
// closing a channel, so any number of goroutines may wait on it.
package collector
