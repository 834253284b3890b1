package bench

import "errors"

// ErrAlreadyRun indicates Run was invoked on a benchmark that has already
// produced a result, spec.md §7's Internal error kind ("a post-has_run
// second invocation").
var ErrAlreadyRun = errors.New("bench: benchmark has already run")

// ErrTooFewWorkers indicates loaded latency was requested with fewer than
// the 2 workers spec.md §3 requires (worker 0 plus at least one loader).
var ErrTooFewWorkers = errors.New("bench: loaded latency requires at least 2 worker threads")
