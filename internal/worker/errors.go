package worker

import "errors"

// ErrAlreadyRun indicates Run was invoked a second time on the same Worker,
// spec.md §7's Internal error kind.
var ErrAlreadyRun = errors.New("worker: run invoked more than once")
