// Package metrics provides line and run metrics collection and reporting.
//
// Metrics collects per-line justification latency, line failures, run
// outcomes and throughput (lines per second). It is thread-safe and is
// shared by every run of an engine.
//
// # Basic Usage
//
//	m := metrics.New()
//
//	start := time.Now()
//	// ... justify a line ...
//	m.RecordLine(time.Since(start))
//
//	m.RecordRun(metrics.RunSucceeded, runElapsed)
//
//	snap := m.Snapshot()
//	fmt.Println(snap.Report())
//
// # Configuration
//
// Use NewWithConfig for custom settings:
//
//	config := metrics.Config{
//	    MaxLatencySamples: 5000, // More samples for P99 accuracy
//	}
//	m := metrics.NewWithConfig(config)
package metrics
