// Package line provides the pure building blocks of line justification.
//
// Text is split into Jobs by a greedy fill policy, each Job is justified
// independently, and the justified Results are joined back in index order.
// Nothing in this package holds shared state, so Justify may be called
// from any number of goroutines at once.
//
// # Basic Usage
//
//	jobs, err := line.Split("one two three", 20)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	results := make([]line.Result, 0, len(jobs))
//	for _, job := range jobs {
//	    text, err := line.Justify(job, ' ')
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    results = append(results, line.Result{Index: job.Index, Text: text})
//	}
//
//	fmt.Println(line.Join(results, "\n"))
//
// # Width
//
// Lengths are counted in runes. A line holding a single word longer than
// the width is returned unpadded; every other line is exactly width runes.
package line
