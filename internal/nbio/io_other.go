//go:build !unix

package nbio

import (
	"errors"
	"time"
)

// ErrWouldBlock mirrors the unix build's sentinel so callers can compile
// against either.
var ErrWouldBlock = errors.New("nbio: operation would block")

var errUnsupported = errors.New("nbio: non-blocking pipe I/O is only implemented for unix targets")

func SetNonblock(fd int) error { return errUnsupported }

func Close(fd int) error { return errUnsupported }

func Read(fd int, p []byte) (int, error) { return 0, errUnsupported }

func Write(fd int, p []byte) (int, error) { return 0, errUnsupported }

func Pipe() (r, w int, err error) { return -1, -1, errUnsupported }

type PollFD struct {
	FD       int
	Readable bool
	Writable bool
}

type PollResult struct {
	Readable bool
	Writable bool
}

func Poll(fds []PollFD, timeout time.Duration) ([]PollResult, error) {
	return nil, errUnsupported
}
