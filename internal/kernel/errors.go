package kernel

import "errors"

// ErrUnavailable indicates the requested width/pattern/mode combination has
// no implementation registered for this host, per spec.md §7's
// KernelUnavailable error kind.
var ErrUnavailable = errors.New("kernel: requested combination unavailable on this host")
