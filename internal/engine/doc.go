// Package engine runs the concurrent justification pipeline.
//
// Transform splits the text into line jobs on the calling goroutine,
// hands them to a fresh worker pool, waits on a collector until every line
// is justified, and joins the lines in their original order. Each call owns
// its queue, cancellation scope and collector; nothing is reused between
// calls.
//
// # Basic Usage
//
//	eng := engine.New(engine.DefaultConfig())
//
//	out, err := eng.Transform(ctx, "Слово второе слово", 21)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(out) // "Слово   второе  слово"
//
// # Errors
//
// Every failure is a single terminal error; a partial string is never
// returned. Use errors.Is with the sentinel errors:
//   - ErrInvalidArgument: width <= 0 or absent text
//   - ErrOverflow: a multi-word line cannot fit (internal defect)
//   - ErrWorkerFailure: a worker failed or panicked
//   - ErrCancelled: ctx or the run timeout ended the run
//   - ErrAlreadyRunning: overlapping call on an exclusive engine
//
// # Concurrency
//
// With Config.Exclusive unset an Engine may serve concurrent calls. With it
// set, a call made while another is running fails with ErrAlreadyRunning.
// The number of workers never changes the output.
package engine
