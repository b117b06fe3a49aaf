package router

import "errors"

var (
	// ErrAllocFailure is returned if setting up the router's stdin/stdout
	// descriptors fails during New, e.g. putting them in non-blocking mode.
	ErrAllocFailure = errors.New("router: failed to allocate buffers")
)
