package platform

import "errors"

var (
	// ErrAlloc indicates region allocation failed.
	ErrAlloc = errors.New("platform: region allocation failed")

	// ErrUnsupportedCombo indicates huge pages and NUMA memory binding were
	// both requested on a platform that cannot honor both simultaneously.
	ErrUnsupportedCombo = errors.New("platform: huge pages and numa binding requested together are unsupported")

	// ErrInvalidNode indicates a NUMA node index outside the topology's range.
	ErrInvalidNode = errors.New("platform: invalid numa node")
)
